package domain

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type RegisterRequest struct {
	Username string `validate:"required,max=64"`
	Interest string `validate:"max=64"`
}

type ChatRequest struct {
	Message string `validate:"required"`
}

// ValidateRegister checks the register payload. maxUsername tightens the static
// upper bound when the deployment configures a shorter one.
func ValidateRegister(req RegisterRequest, maxUsername int) error {
	if err := validate.Struct(req); err != nil {
		return err
	}
	if maxUsername > 0 {
		return validate.Var(req.Username, "max="+strconv.Itoa(maxUsername))
	}
	return nil
}

// ValidateChat rejects empty and oversized chat lines.
func ValidateChat(req ChatRequest, maxLength int) error {
	if err := validate.Struct(req); err != nil {
		return err
	}
	if maxLength > 0 {
		return validate.Var(req.Message, "max="+strconv.Itoa(maxLength))
	}
	return nil
}

// NormalizeUsername trims surrounding spaces; names are otherwise case sensitive.
func NormalizeUsername(raw string) string {
	return strings.TrimSpace(raw)
}

// NormalizeInterest lower-cases the tag and strips control characters so it can
// be embedded in store keys. An empty tag falls back to defaultInterest.
func NormalizeInterest(raw, defaultInterest string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, strings.TrimSpace(raw))
	if cleaned == "" {
		return defaultInterest
	}
	return cleaned
}

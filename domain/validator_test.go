package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeInterest(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{"trimmed and lower-cased", "  Jazz Music ", "jazz music"},
		{"control characters dropped", "go\x00lang\n", "golang"},
		{"empty falls back", "   ", "general"},
		{"only control characters", "\x00\x01", "general"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, NormalizeInterest(tt.raw, "general"))
		})
	}
}

func TestValidateRegister(t *testing.T) {
	req := require.New(t)

	req.NoError(ValidateRegister(RegisterRequest{Username: "alice", Interest: "chess"}, 16))
	req.NoError(ValidateRegister(RegisterRequest{Username: "Alice"}, 0))
	req.Error(ValidateRegister(RegisterRequest{Username: ""}, 16))
	req.Error(ValidateRegister(RegisterRequest{Username: "alice-in-wonderland"}, 16))
	req.Error(ValidateRegister(RegisterRequest{Username: "alice", Interest: strings.Repeat("x", 65)}, 16))
	req.Equal("alice", NormalizeUsername("  alice "))
}

func TestValidateChat(t *testing.T) {
	req := require.New(t)

	req.NoError(ValidateChat(ChatRequest{Message: "hello"}, 10))
	req.Error(ValidateChat(ChatRequest{Message: ""}, 10))
	req.Error(ValidateChat(ChatRequest{Message: "hello world!"}, 10))
	req.NoError(ValidateChat(ChatRequest{Message: strings.Repeat("x", 5000)}, 0))
}

package moderation

import (
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

const replacementChar = '*'

// Dictionary words are long enough to avoid partial collisions ("he" inside "The").
func TestModerator_Censor(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	dictionary := []string{"idiot", "loser", "spammer"}
	mod, err := NewModerator(dictionary, replacementChar, log)
	req.NoError(err)

	tests := []struct {
		name     string
		input    string
		expected string
		words    []string
	}{
		{
			name:     "Single word keeps spacing",
			input:    "you are an idiot right",
			expected: "you are an ***** right",
			words:    []string{"idiot"},
		},
		{
			name:     "Repeated word",
			input:    "loser loser",
			expected: "***** *****",
			words:    []string{"loser", "loser"},
		},
		{
			name:     "Leet speak with dots",
			input:    "such a L.0.$.3.r :)",
			expected: "such a ********* :)",
			words:    []string{"loser"},
		},
		{
			name:     "Uppercase and dashes",
			input:    "S-P-A-M-M-E-R and IDIOT",
			expected: "************* and *****",
			words:    []string{"spammer", "idiot"},
		},
		{
			name:     "Accented text around a word",
			input:    "un été de loser",
			expected: "un été de *****",
			words:    []string{"loser"},
		},
		{
			name:     "Clean line",
			input:    "hello, what do you like about chess?",
			expected: "hello, what do you like about chess?",
			words:    nil,
		},
		{
			name:     "Empty line",
			input:    "",
			expected: "",
			words:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, words := mod.Censor(tt.input)
			req.Equal(tt.expected, content)
			req.Equal(tt.words, words)
		})
	}
}

func TestModerator_IgnoresWordsMadeOfNoise(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	// Given a dictionary polluted with punctuation only entries
	mod, err := NewModerator([]string{"...", ",,,", "", "idiot"}, replacementChar, log)
	req.NoError(err)

	// Then real words are still censored
	content, words := mod.Censor("what an idiot")
	req.Equal("what an *****", content)
	req.Equal([]string{"idiot"}, words)

	// Then punctuation is left alone
	content, words = mod.Censor("well ...")
	req.Equal("well ...", content)
	req.Nil(words)
}

func TestModerator_EmptyDictionary(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	_, err := NewModerator([]string{"  ", "--", "..."}, replacementChar, log)
	req.Error(err)
}

package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewGroupID(t *testing.T) {
	req := require.New(t)

	// Then the id does not depend on who matched whom
	req.Equal(NewGroupID("alice", "bob"), NewGroupID("bob", "alice"))
	req.True(strings.HasPrefix(NewGroupID("alice", "bob").String(), "chat_"))

	// Then names that would concatenate the same stay distinct
	req.NotEqual(NewGroupID("ab", "c"), NewGroupID("a", "bc"))
	req.NotEqual(NewGroupID("alice", "bob"), NewGroupID("alice", "carol"))
}

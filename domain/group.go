package domain

import (
	"github.com/google/uuid"
)

// GroupID names the relay channel shared by two matched users.
type GroupID string

// groupNamespace scopes the name-based UUIDs used for group ids.
var groupNamespace = uuid.MustParse("6f1c3c9e-5b7a-4a53-9d8e-2f0b7c4e1a90")

// NewGroupID derives the group id from both display names.
// The pair is ordered first so NewGroupID(a, b) == NewGroupID(b, a).
// Hashing keeps ids unambiguous whatever characters the names contain.
func NewGroupID(a, b string) GroupID {
	if b < a {
		a, b = b, a
	}
	id := uuid.NewSHA1(groupNamespace, []byte(a+"\x00"+b))
	return GroupID("chat_" + id.String())
}

func (g GroupID) String() string {
	return string(g)
}

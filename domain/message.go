// Package domain contains core concepts of the random chat.
// This file defines chat messages relayed between two matched users.
// Messages are never stored.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message represents an immutable chat line.
type Message struct {
	ID        uuid.UUID
	Sender    string
	Content   string
	CreatedAt time.Time
}

func NewMessage(sender, content string) Message {
	return Message{
		ID:        uuid.New(),
		Sender:    sender,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

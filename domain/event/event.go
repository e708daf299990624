// Package event defines what travels on the group delivery bus between sessions.
package event

import (
	"random-chat/domain"
	"time"
)

// Event is delivered either to a single endpoint or to the members of a group.
type Event interface {
	GroupID() domain.GroupID
}

// Matched is sent point-to-point to the passive side of a match, the user that
// was waiting in the queue and found by the initiator.
type Matched struct {
	Group domain.GroupID
	Peer  string
	At    time.Time
}

func (m Matched) GroupID() domain.GroupID {
	return m.Group
}

// ChatMessage is relayed to every member of the group except the sender.
type ChatMessage struct {
	Group   domain.GroupID
	Message domain.Message
}

func (m ChatMessage) GroupID() domain.GroupID {
	return m.Group
}

type DepartureReason string

const (
	ReasonSkipped      DepartureReason = "skipped"
	ReasonDisconnected DepartureReason = "disconnected"
	ReasonRejected     DepartureReason = "rejected"
)

// PeerDeparted tells the remaining member that the group is dissolved.
type PeerDeparted struct {
	Group  domain.GroupID
	Peer   string
	Reason DepartureReason
}

func (p PeerDeparted) GroupID() domain.GroupID {
	return p.Group
}

// Describe renders the notification shown to the remaining user.
func (p PeerDeparted) Describe() string {
	switch p.Reason {
	case ReasonSkipped:
		return p.Peer + " has skipped the chat."
	case ReasonRejected:
		return p.Peer + " is no longer available."
	default:
		return p.Peer + " has disconnected."
	}
}

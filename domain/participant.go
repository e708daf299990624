// Package domain contains core concepts of the random chat.
// This file defines the per-connection session state and the peer it may be matched with.
// No runtime, network, or storage logic should be added here.
package domain

type State int

const (
	StateUnregistered State = iota
	StateIdle
	StateSearching
	StateMatched
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnregistered:
		return "unregistered"
	case StateIdle:
		return "idle"
	case StateSearching:
		return "searching"
	case StateMatched:
		return "matched"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Registered is true once a name has been granted and until the session is closed.
func (s State) Registered() bool {
	return s == StateIdle || s == StateSearching || s == StateMatched
}

// Peer is the other side of an active chat.
type Peer struct {
	Username string
	Group    GroupID
}

// Participant is the identity a session exposes to the pairing coordinator.
type Participant struct {
	Username string
	Interest string
	Endpoint string
}

// MatchResult is what a search reports. Peer is only meaningful when Matched is true.
type MatchResult struct {
	Matched bool
	Peer    Peer
}

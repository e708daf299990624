package domain

// InboundType is the "type" field of a frame sent by a client.
type InboundType string

const (
	InboundRegister       InboundType = "register"
	InboundFindNewUser    InboundType = "find_new_user"
	InboundSearch         InboundType = "search" // legacy alias of find_new_user
	InboundSkip           InboundType = "skip"
	InboundChangeInterest InboundType = "change_interest"
	InboundMessage        InboundType = "message"
	InboundLogout         InboundType = "logout"
)

// Inbound is the decoded form of every client frame. Only the fields
// relevant to Type are read.
type Inbound struct {
	Type        InboundType `json:"type"`
	Username    string      `json:"username,omitempty"`
	Interest    string      `json:"interest,omitempty"`
	NewInterest string      `json:"new_interest,omitempty"`
	Message     string      `json:"message,omitempty"`
}

// OutboundType is the "type" field of a frame sent to a client.
type OutboundType string

const (
	OutboundSuccess         OutboundType = "success"
	OutboundError           OutboundType = "error"
	OutboundSearch          OutboundType = "search"
	OutboundMatch           OutboundType = "match"
	OutboundMessage         OutboundType = "message"
	OutboundSkip            OutboundType = "skip"
	OutboundInterestChanged OutboundType = "interest_changed"
	OutboundDisconnect      OutboundType = "disconnect"
	OutboundLogout          OutboundType = "logout"
)

// NextActionFindNewUser tells the client how to resume searching after a skip.
const NextActionFindNewUser = "find_new_user"

type Outbound struct {
	Type        OutboundType `json:"type"`
	Message     string       `json:"message,omitempty"`
	Username    string       `json:"username,omitempty"`
	MatchedUser string       `json:"matched_user,omitempty"`
	NextAction  string       `json:"next_action,omitempty"`
}

func Success(message, username string) Outbound {
	return Outbound{Type: OutboundSuccess, Message: message, Username: username}
}

func Error(message string) Outbound {
	return Outbound{Type: OutboundError, Message: message}
}

func Searching() Outbound {
	return Outbound{Type: OutboundSearch, Message: "No match found. Searching for a chat partner..."}
}

func Matched(peer string) Outbound {
	return Outbound{Type: OutboundMatch, MatchedUser: peer}
}

func ChatLine(content, sender string) Outbound {
	return Outbound{Type: OutboundMessage, Message: content, Username: sender}
}

func Skipped(message string) Outbound {
	return Outbound{Type: OutboundSkip, Message: message, NextAction: NextActionFindNewUser}
}

func InterestChanged(interest string) Outbound {
	return Outbound{Type: OutboundInterestChanged, Message: "Interest changed to " + interest}
}

func Disconnected(message string) Outbound {
	return Outbound{Type: OutboundDisconnect, Message: message}
}

func LoggedOut() Outbound {
	return Outbound{Type: OutboundLogout, Message: "You have been logged out."}
}

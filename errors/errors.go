package errors

import (
	stderrors "errors"
	"fmt"
)

var (
	ErrWorkerPanic   = fmt.Errorf("worker panic")
	ErrEmptyWords    = fmt.Errorf("no words have been found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// User facing
	ErrNameTaken         = fmt.Errorf("username already exists")
	ErrNotRegistered     = fmt.Errorf("user is not registered")
	ErrAlreadyRegistered = fmt.Errorf("user is already registered")
	ErrNoPeer            = fmt.Errorf("no active chat partner")
	ErrAlreadyMatched    = fmt.Errorf("already chatting with a partner")
	ErrInvalidPayload    = fmt.Errorf("invalid payload")
	ErrUnknownType       = fmt.Errorf("unknown message type")
	ErrSessionClosed     = fmt.Errorf("session is closed")

	// Infrastructure
	ErrStoreUnavailable = fmt.Errorf("shared store unavailable")
	ErrEndpointGone     = fmt.Errorf("endpoint is no longer connected")
	ErrDeliveryTimeout  = fmt.Errorf("delivery timed out")
)

// Is lets callers importing this package match sentinels without also importing the standard errors package.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

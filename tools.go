//go:build tools

// Package tools pins the code generators used through go generate (mockgen),
// so they are versioned in go.mod with the rest of the module.
package random_chat

import (
	_ "go.uber.org/mock/mockgen"
)

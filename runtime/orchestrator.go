// Package runtime holds the in-process machinery of the chat server: the
// delivery bus, the per-interest lock table, the pairing coordinator and the
// supervised background workers. It carries no session logic.
package runtime

import (
	"context"
	"embed"
	"log/slog"
	"random-chat/contract"
	"random-chat/moderation"
	"strings"
	"sync"
)

//go:embed censored/*
var censoredFolder embed.FS

// Orchestrator owns the background workers of the server and runs them under the supervisor.
type Orchestrator struct {
	mu         sync.Mutex
	log        *slog.Logger
	supervisor contract.ISupervisor
	workers    []contract.Worker
}

func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor) *Orchestrator {
	return &Orchestrator{log: log, supervisor: supervisor}
}

func (o *Orchestrator) Add(workers ...contract.Worker) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.workers = append(o.workers, workers...)
}

// Start hands every worker to the supervisor and blocks until they all return.
func (o *Orchestrator) Start(ctx context.Context) {
	o.mu.Lock()
	o.supervisor.Add(o.workers...)
	count := len(o.workers)
	o.mu.Unlock()

	o.log.Info("Starting supervised workers", "count", count)
	o.supervisor.Run(ctx)
}

func (o *Orchestrator) Stop() {
	o.log.Info("Requesting workers shutdown")
	o.supervisor.Stop()
}

// LoadModerator builds the chat moderator from the word lists embedded in the binary.
func LoadModerator(log *slog.Logger, charReplacement rune) (*moderation.Moderator, error) {
	data, err := NewCensoredLoader(censoredFolder).LoadAll("censored")
	if err != nil {
		return nil, err
	}
	log.Info("Censored word lists loaded",
		"languages", strings.Join(data.Languages, ","),
		"words", len(data.Words),
	)
	return moderation.NewModerator(data.Words, charReplacement, log)
}

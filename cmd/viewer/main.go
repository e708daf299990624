package main

import (
	"fmt"
	"log"
	"random-chat/internal"
	"random-chat/observability"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// viewer serves the inspection page over a persistent store without running the chat.
func main() {
	// 1. Load config
	_ = godotenv.Load()
	config, err := internal.LoadConfig()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	if config.BadgerFilepath == "" {
		log.Fatal("BADGER_FILEPATH is empty: an in-memory store cannot be viewed from another process")
	}
	logger := logs.GetLoggerFromString(config.LogLevel)

	// 2. Open Badger in Read-Only mode
	// BypassLockGuard allows opening while the server holds the directory lock.
	opts := badger.DefaultOptions(config.BadgerFilepath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	// 3. Start Debug Server Only
	stats := func() map[string]any {
		return map[string]any{
			"Status": "Viewer Mode (Read-Only)",
			"Time":   time.Now().Format(time.RFC822),
		}
	}
	address := fmt.Sprintf("%s:%d", config.Host, config.DebugPort)
	server := internal.NewDebugServer(address, db, observability.NewMetrics().Handler(), stats, nil, logger)

	logger.Info("Viewer started", "url", fmt.Sprintf("http://%s/inspect", address))
	if err = server.ListenAndServe(); err != nil {
		log.Printf("Viewer stopped: %v", err)
	}
}

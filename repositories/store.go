package repositories

import (
	"context"
	"fmt"
	"log/slog"
	"random-chat/errors"

	"github.com/dgraph-io/badger/v4"
)

// Key prefixes of the shared store. Every repository owns one family of keys.
const (
	userPrefix     = "user:"
	queuePrefix    = "queue:"
	queueIdxPrefix = "qidx:"
	presencePrefix = "presence:"
	sequenceKey    = "seq:queue"
)

// keySeparator splits an interest from the rest of a queue key. Interests are
// normalized without control characters so it can never appear inside one.
const keySeparator = "\x00"

const maxConflictRetries = 8

// OpenStore opens the BadgerDB instance shared by every repository.
// An empty path keeps the whole store in memory, which is what a single node needs.
func OpenStore(path string, log *slog.Logger) (*badger.DB, error) {
	options := badger.DefaultOptions(path).WithLoggingLevel(badger.WARNING)
	if path == "" {
		options = badger.DefaultOptions("").WithInMemory(true).WithLoggingLevel(badger.WARNING)
	}
	db, err := badger.Open(options)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}
	log.Info("Shared store opened", "path", path, "in_memory", path == "")
	return db, nil
}

// update runs fn in a read-write transaction and retries it when Badger detects
// a conflicting concurrent commit. Conflict detection is what turns a
// read-then-write transaction into an atomic test-and-set.
func update(ctx context.Context, db *badger.DB, fn func(txn *badger.Txn) error) error {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
		}
		err := db.Update(fn)
		if errors.Is(err, badger.ErrConflict) && attempt < maxConflictRetries {
			continue
		}
		return storeError(err)
	}
}

func view(ctx context.Context, db *badger.DB, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}
	return storeError(db.View(fn))
}

// storeError keeps domain sentinels intact and maps everything else to ErrStoreUnavailable.
func storeError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errors.ErrNameTaken):
		return err
	default:
		return fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}
}

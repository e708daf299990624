//go:generate go run go.uber.org/mock/mockgen -source=queue.go -destination=../mocks/mock_queue_repository.go -package=mocks
package repositories

import (
	"context"
	"fmt"
	"log/slog"
	"random-chat/errors"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// IQueueRepository stores one FIFO waiting list per interest.
type IQueueRepository interface {
	Enqueue(ctx context.Context, interest, username string) error
	Dequeue(ctx context.Context, interest string, usernames ...string) (int, error)
	Snapshot(ctx context.Context, interest string) ([]string, error)
	Depths(ctx context.Context) (map[string]int, error)
}

// QueueRepository keeps each waiting user under two keys:
//
//	queue:{interest}\x00{seq%020d} -> username   (ordered entry)
//	qidx:{interest}\x00{username}  -> seq        (membership index)
//
// The zero padded sequence makes a prefix scan return users in insertion
// order, and the index makes Enqueue idempotent without scanning.
type QueueRepository struct {
	db  *badger.DB
	seq *badger.Sequence
	log *slog.Logger
}

func NewQueueRepository(db *badger.DB, log *slog.Logger) (*QueueRepository, error) {
	seq, err := db.GetSequence([]byte(sequenceKey), 1000)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}
	return &QueueRepository{db: db, seq: seq, log: log}, nil
}

// Close returns the unused part of the leased sequence range.
func (q *QueueRepository) Close() error {
	return q.seq.Release()
}

// Enqueue appends username to the interest's queue unless it is already waiting there.
func (q *QueueRepository) Enqueue(ctx context.Context, interest, username string) error {
	idxKey := indexKey(interest, username)
	// Positions only need to be increasing, a gap left by an already waiting user is harmless.
	next, err := q.seq.Next()
	if err != nil {
		return storeError(err)
	}
	position := fmt.Sprintf("%020d", next)
	return update(ctx, q.db, func(txn *badger.Txn) error {
		if _, err := txn.Get(idxKey); err == nil {
			return nil
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(entryKey(interest, position), []byte(username)); err != nil {
			return err
		}
		return txn.Set(idxKey, []byte(position))
	})
}

// Dequeue removes every given username from the interest's queue in a single
// transaction and reports how many were actually waiting. Unknown names are ignored.
func (q *QueueRepository) Dequeue(ctx context.Context, interest string, usernames ...string) (int, error) {
	var removed int
	err := update(ctx, q.db, func(txn *badger.Txn) error {
		removed = 0
		for _, username := range usernames {
			idxKey := indexKey(interest, username)
			item, err := txn.Get(idxKey)
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			position, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if err = txn.Delete(entryKey(interest, string(position))); err != nil {
				return err
			}
			if err = txn.Delete(idxKey); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	return removed, err
}

// Snapshot returns the waiting usernames of one interest, oldest first.
func (q *QueueRepository) Snapshot(ctx context.Context, interest string) ([]string, error) {
	var usernames []string
	err := view(ctx, q.db, func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(queuePrefix + interest + keySeparator)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				usernames = append(usernames, string(val))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return usernames, err
}

// Depths counts waiting users per interest. Interests with an empty queue are absent.
func (q *QueueRepository) Depths(ctx context.Context) (map[string]int, error) {
	depths := make(map[string]int)
	err := view(ctx, q.db, func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		prefix := []byte(queuePrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			interest, _, ok := strings.Cut(strings.TrimPrefix(string(it.Item().Key()), queuePrefix), keySeparator)
			if !ok {
				q.log.Warn("Malformed queue key", "key", strconv.Quote(string(it.Item().Key())))
				continue
			}
			depths[interest]++
		}
		return nil
	})
	return depths, err
}

func entryKey(interest, position string) []byte {
	return []byte(queuePrefix + interest + keySeparator + position)
}

func indexKey(interest, username string) []byte {
	return []byte(queueIdxPrefix + interest + keySeparator + username)
}

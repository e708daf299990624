package repositories

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Entry is a decoded store record, for inspection tools only.
type Entry struct {
	Key      string
	Kind     string
	Interest string
	Name     string
	Detail   string
}

// Scan returns every record whose key starts with prefix, decoded. An empty
// prefix lists the whole store.
func Scan(ctx context.Context, db *badger.DB, prefix string) ([]Entry, error) {
	var entries []Entry
	err := view(ctx, db, func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			item := it.Item()
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			entries = append(entries, Describe(string(item.Key()), val))
		}
		return nil
	})
	return entries, err
}

// Describe decodes one key/value pair written by the repositories of this package.
func Describe(key string, val []byte) Entry {
	entry := Entry{Key: strconv.Quote(key), Kind: "raw", Detail: strconv.Itoa(len(val)) + " bytes"}

	switch {
	case strings.HasPrefix(key, userPrefix):
		entry.Kind = "user"
		entry.Name = strings.TrimPrefix(key, userPrefix)
		entry.Detail = "since " + string(val)
		if at, err := time.Parse(time.RFC3339Nano, string(val)); err == nil {
			entry.Detail = "since " + at.Format(time.TimeOnly)
		}
	case strings.HasPrefix(key, queuePrefix):
		entry.Kind = "queue"
		interest, position, _ := strings.Cut(strings.TrimPrefix(key, queuePrefix), keySeparator)
		entry.Interest = interest
		entry.Name = string(val)
		entry.Detail = "position " + strings.TrimLeft(position, "0")
	case strings.HasPrefix(key, queueIdxPrefix):
		entry.Kind = "queue index"
		interest, username, _ := strings.Cut(strings.TrimPrefix(key, queueIdxPrefix), keySeparator)
		entry.Interest = interest
		entry.Name = username
		entry.Detail = "position " + strings.TrimLeft(string(val), "0")
	case strings.HasPrefix(key, presencePrefix):
		entry.Kind = "presence"
		entry.Name = strings.TrimPrefix(key, presencePrefix)
		entry.Detail = "endpoint " + string(val)
	case strings.HasPrefix(key, sequenceKey):
		entry.Kind = "sequence"
	}
	return entry
}

//go:generate go run go.uber.org/mock/mockgen -source=presence.go -destination=../mocks/mock_presence_repository.go -package=mocks
package repositories

import (
	"context"
	"random-chat/errors"

	"github.com/dgraph-io/badger/v4"
)

// IPresenceRepository maps a registered name to the endpoint address of its connection.
type IPresenceRepository interface {
	Publish(ctx context.Context, username, endpoint string) error
	Lookup(ctx context.Context, username string) (string, bool, error)
	Unpublish(ctx context.Context, username string) error
}

type PresenceRepository struct {
	db *badger.DB
}

func NewPresenceRepository(db *badger.DB) *PresenceRepository {
	return &PresenceRepository{db: db}
}

func (p *PresenceRepository) Publish(ctx context.Context, username, endpoint string) error {
	return update(ctx, p.db, func(txn *badger.Txn) error {
		return txn.Set([]byte(presencePrefix+username), []byte(endpoint))
	})
}

// Lookup returns the endpoint of username and false when the user is not present.
func (p *PresenceRepository) Lookup(ctx context.Context, username string) (string, bool, error) {
	var endpoint string
	found := false
	err := view(ctx, p.db, func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(presencePrefix + username))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		value, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		endpoint, found = string(value), true
		return nil
	})
	return endpoint, found, err
}

// Unpublish is idempotent.
func (p *PresenceRepository) Unpublish(ctx context.Context, username string) error {
	return update(ctx, p.db, func(txn *badger.Txn) error {
		return txn.Delete([]byte(presencePrefix + username))
	})
}

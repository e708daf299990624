//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"context"
	"random-chat/errors"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// IUserRepository is the identity registry: the set of display names currently in use.
type IUserRepository interface {
	Register(ctx context.Context, username string) error
	Release(ctx context.Context, username string) error
	IsActive(ctx context.Context, username string) (bool, error)
	ActiveUsers(ctx context.Context) ([]string, error)
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Register claims username. The membership check and the insert run in the
// same transaction, so two concurrent claims of one name cannot both commit:
// the loser is retried by update and then observes the key.
func (u *UserRepository) Register(ctx context.Context, username string) error {
	key := []byte(userPrefix + username)
	return update(ctx, u.db, func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err == nil {
			return errors.ErrNameTaken
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, []byte(time.Now().UTC().Format(time.RFC3339Nano)))
	})
}

// Release frees username. Releasing a name that is not held is a no-op.
func (u *UserRepository) Release(ctx context.Context, username string) error {
	return update(ctx, u.db, func(txn *badger.Txn) error {
		return txn.Delete([]byte(userPrefix + username))
	})
}

func (u *UserRepository) IsActive(ctx context.Context, username string) (bool, error) {
	active := false
	err := view(ctx, u.db, func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(userPrefix + username))
		switch {
		case err == nil:
			active = true
			return nil
		case errors.Is(err, badger.ErrKeyNotFound):
			return nil
		default:
			return err
		}
	})
	return active, err
}

// ActiveUsers lists registered names in key order.
func (u *UserRepository) ActiveUsers(ctx context.Context) ([]string, error) {
	var users []string
	err := view(ctx, u.db, func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		prefix := []byte(userPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			users = append(users, strings.TrimPrefix(string(it.Item().Key()), userPrefix))
		}
		return nil
	})
	return users, err
}

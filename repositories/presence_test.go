package repositories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPresenceRepository(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := NewPresenceRepository(setupStore(t))

	// Given nobody published
	_, found, err := repo.Lookup(ctx, "alice")
	req.NoError(err)
	req.False(found)

	// When alice publishes, then republishes from a new endpoint
	req.NoError(repo.Publish(ctx, "alice", "endpoint-1"))
	req.NoError(repo.Publish(ctx, "alice", "endpoint-2"))

	endpoint, found, err := repo.Lookup(ctx, "alice")
	req.NoError(err)
	req.True(found)
	req.Equal("endpoint-2", endpoint)

	// When alice unpublishes, twice
	req.NoError(repo.Unpublish(ctx, "alice"))
	req.NoError(repo.Unpublish(ctx, "alice"))

	_, found, err = repo.Lookup(ctx, "alice")
	req.NoError(err)
	req.False(found)
}

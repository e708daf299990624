package repositories

import (
	"context"
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func TestScan_DecodesEveryFamily(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	db := setupStore(t)

	queue, err := NewQueueRepository(db, logs.GetLoggerFromLevel(slog.LevelWarn))
	req.NoError(err)
	defer queue.Close()
	req.NoError(NewUserRepository(db).Register(ctx, "alice"))
	req.NoError(NewPresenceRepository(db).Publish(ctx, "alice", "ep-1"))
	req.NoError(queue.Enqueue(ctx, "chess", "alice"))

	entries, err := Scan(ctx, db, "")
	req.NoError(err)

	kinds := lo.Map(entries, func(e Entry, _ int) string { return e.Kind })
	req.Subset(kinds, []string{"user", "presence", "queue", "queue index"})

	queued, ok := lo.Find(entries, func(e Entry) bool { return e.Kind == "queue" })
	req.True(ok)
	req.Equal("chess", queued.Interest)
	req.Equal("alice", queued.Name)

	present, ok := lo.Find(entries, func(e Entry) bool { return e.Kind == "presence" })
	req.True(ok)
	req.Equal("endpoint ep-1", present.Detail)

	// Then a prefix narrows the scan
	entries, err = Scan(ctx, db, "user:")
	req.NoError(err)
	req.Len(entries, 1)
	req.Equal("alice", entries[0].Name)
}

package runtime_test

import (
	"context"
	"log/slog"
	"random-chat/domain"
	"random-chat/domain/event"
	"random-chat/errors"
	"random-chat/mocks"
	"random-chat/observability"
	"random-chat/repositories"
	"random-chat/runtime"
	"sync"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type coordinatorHarness struct {
	coordinator *runtime.Coordinator
	bus         *runtime.Bus
	queue       *repositories.QueueRepository
	presence    *repositories.PresenceRepository
	metrics     *observability.Metrics
}

func newCoordinatorHarness(t *testing.T, attempts int) *coordinatorHarness {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	db, err := repositories.OpenStore("", log)
	require.NoError(t, err)
	queue, err := repositories.NewQueueRepository(db, log)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = queue.Close()
		_ = db.Close()
	})

	h := &coordinatorHarness{
		bus:      runtime.NewBus(log, 50*time.Millisecond),
		queue:    queue,
		presence: repositories.NewPresenceRepository(db),
		metrics:  observability.NewMetrics(),
	}
	h.coordinator = runtime.NewCoordinator(log, h.queue, h.presence, h.bus, h.metrics, attempts)
	return h
}

// connect registers a live endpoint for username, the way a connection does before searching.
func (h *coordinatorHarness) connect(username, interest string, buffer int) (domain.Participant, *runtime.ChannelSink) {
	p := domain.Participant{Username: username, Interest: interest, Endpoint: "ep-" + username}
	sink := runtime.NewChannelSink(buffer)
	h.bus.Register(p.Endpoint, sink)
	return p, sink
}

func TestCoordinator_FirstComeFirstServed(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	h := newCoordinatorHarness(t, 3)

	a, sinkA := h.connect("A", "chess", 4)
	b, _ := h.connect("B", "chess", 4)
	c, _ := h.connect("C", "chess", 4)

	// Given A searching alone
	result, err := h.coordinator.AttemptMatch(ctx, a)
	req.NoError(err)
	req.False(result.Matched)

	// When B then C search
	result, err = h.coordinator.AttemptMatch(ctx, b)
	req.NoError(err)
	req.True(result.Matched)
	req.Equal("A", result.Peer.Username)
	req.Equal(domain.NewGroupID("A", "B"), result.Peer.Group)

	result, err = h.coordinator.AttemptMatch(ctx, c)
	req.NoError(err)
	req.False(result.Matched)

	// Then A is told about B, and only C keeps waiting
	matched, ok := (<-sinkA.Events()).(event.Matched)
	req.True(ok)
	req.Equal("B", matched.Peer)

	waiting, err := h.queue.Snapshot(ctx, "chess")
	req.NoError(err)
	req.Equal([]string{"C"}, waiting)
	req.ElementsMatch([]string{"ep-A", "ep-B"}, h.bus.Members(domain.NewGroupID("A", "B")))

	endpoint, found, err := h.presence.Lookup(ctx, "C")
	req.NoError(err)
	req.True(found)
	req.Equal("ep-C", endpoint)
	req.Equal(1.0, testutil.ToFloat64(h.metrics.Matches))
}

func TestCoordinator_InterestsAreSeparate(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	h := newCoordinatorHarness(t, 3)

	a, _ := h.connect("A", "chess", 4)
	b, _ := h.connect("B", "music", 4)

	_, err := h.coordinator.AttemptMatch(ctx, a)
	req.NoError(err)
	result, err := h.coordinator.AttemptMatch(ctx, b)
	req.NoError(err)

	req.False(result.Matched)
	depths, err := h.queue.Depths(ctx)
	req.NoError(err)
	req.Equal(map[string]int{"chess": 1, "music": 1}, depths)
}

func TestCoordinator_ConcurrentSearchesNeverShareAPartner(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	h := newCoordinatorHarness(t, 3)

	const users = 20
	participants := make([]domain.Participant, users)
	sinks := make([]*runtime.ChannelSink, users)
	for i := range users {
		participants[i], sinks[i] = h.connect(string(rune('a'+i)), "chess", 4)
	}

	results := make([]domain.MatchResult, users)
	var wg sync.WaitGroup
	for i := range users {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := h.coordinator.AttemptMatch(ctx, participants[i])
			if err == nil {
				results[i] = result
			}
		}()
	}
	wg.Wait()

	// Then every user ends up in exactly one pair, either as initiator or as the one found
	involvement := make(map[string]int)
	initiators := 0
	for i, result := range results {
		if result.Matched {
			initiators++
			involvement[participants[i].Username]++
		}
	}
	for i, sink := range sinks {
		for len(sink.Events()) > 0 {
			_, ok := (<-sink.Events()).(event.Matched)
			req.True(ok)
			involvement[participants[i].Username]++
		}
	}

	req.Equal(users/2, initiators)
	req.Len(involvement, users)
	for username, count := range involvement {
		req.Equal(1, count, username)
	}

	waiting, err := h.queue.Snapshot(ctx, "chess")
	req.NoError(err)
	req.Empty(waiting)
	req.Equal(users/2, h.bus.Groups())
}

func TestCoordinator_PartnerDisconnectedFallsBackToSearching(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	h := newCoordinatorHarness(t, 3)

	a, _ := h.connect("A", "chess", 4)
	b, _ := h.connect("B", "chess", 4)

	// Given A waiting, then gone from the bus before cleaning up its presence
	_, err := h.coordinator.AttemptMatch(ctx, a)
	req.NoError(err)
	h.bus.Unregister(a.Endpoint)

	// When B searches
	result, err := h.coordinator.AttemptMatch(ctx, b)
	req.NoError(err)

	// Then B keeps searching and no group is left behind
	req.False(result.Matched)
	req.Zero(h.bus.Groups())
	waiting, err := h.queue.Snapshot(ctx, "chess")
	req.NoError(err)
	req.Equal([]string{"B"}, waiting)
	req.Equal(1.0, testutil.ToFloat64(h.metrics.MatchFallbacks.WithLabelValues("peer_gone")))
}

func TestCoordinator_PartnerWithoutPresenceIsSkipped(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	h := newCoordinatorHarness(t, 3)

	a, _ := h.connect("A", "chess", 4)
	b, _ := h.connect("B", "chess", 4)
	c, _ := h.connect("C", "chess", 4)

	// Given A waiting without presence, then C waiting after it
	_, err := h.coordinator.AttemptMatch(ctx, a)
	req.NoError(err)
	req.NoError(h.presence.Unpublish(ctx, "A"))

	// When B searches, A is dropped and B waits
	result, err := h.coordinator.AttemptMatch(ctx, b)
	req.NoError(err)
	req.False(result.Matched)

	// Then the next searcher gets B
	result, err = h.coordinator.AttemptMatch(ctx, c)
	req.NoError(err)
	req.True(result.Matched)
	req.Equal("B", result.Peer.Username)
}

func TestCoordinator_StuckPartnerIsRestored(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	h := newCoordinatorHarness(t, 2)

	// Given A waiting with a sink nobody reads
	a, _ := h.connect("A", "chess", 0)
	b, _ := h.connect("B", "chess", 4)
	_, err := h.coordinator.AttemptMatch(ctx, a)
	req.NoError(err)

	// When B searches
	result, err := h.coordinator.AttemptMatch(ctx, b)
	req.NoError(err)

	// Then both are waiting again and no group is left behind
	req.False(result.Matched)
	req.Zero(h.bus.Groups())
	waiting, err := h.queue.Snapshot(ctx, "chess")
	req.NoError(err)
	req.ElementsMatch([]string{"A", "B"}, waiting)
	req.Equal(2.0, testutil.ToFloat64(h.metrics.MatchFallbacks.WithLabelValues("peer_gone")))
}

func TestCoordinator_Withdraw(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	h := newCoordinatorHarness(t, 3)

	a, _ := h.connect("A", "chess", 4)
	_, err := h.coordinator.AttemptMatch(ctx, a)
	req.NoError(err)

	removed, err := h.coordinator.Withdraw(ctx, "chess", "A")
	req.NoError(err)
	req.Equal(1, removed)

	removed, err = h.coordinator.Withdraw(ctx, "chess", "A")
	req.NoError(err)
	req.Zero(removed)
}

func TestCoordinator_CallerNotNewestKeepsWaiting(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	queue := mocks.NewMockIQueueRepository(ctrl)
	presence := mocks.NewMockIPresenceRepository(ctrl)
	bus := mocks.NewMockIBus(ctrl)
	metrics := observability.NewMetrics()
	coordinator := runtime.NewCoordinator(log, queue, presence, bus, metrics, 3)

	a := domain.Participant{Username: "A", Interest: "chess", Endpoint: "ep-A"}

	// Given A already queued before C
	queue.EXPECT().Enqueue(gomock.Any(), "chess", "A").Return(nil)
	queue.EXPECT().Snapshot(gomock.Any(), "chess").Return([]string{"A", "C"}, nil)
	presence.EXPECT().Publish(gomock.Any(), "A", "ep-A").Return(nil)

	// When A searches again
	result, err := coordinator.AttemptMatch(ctx, a)

	// Then it keeps its place without touching the bus
	req.NoError(err)
	req.False(result.Matched)
	req.Equal(1.0, testutil.ToFloat64(metrics.MatchFallbacks.WithLabelValues("race_resolved")))
}

func TestCoordinator_StoreFailure(t *testing.T) {
	ctx := context.Background()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	queue := mocks.NewMockIQueueRepository(ctrl)
	presence := mocks.NewMockIPresenceRepository(ctrl)
	bus := mocks.NewMockIBus(ctrl)
	coordinator := runtime.NewCoordinator(log, queue, presence, bus, observability.NewMetrics(), 3)

	a := domain.Participant{Username: "A", Interest: "chess", Endpoint: "ep-A"}
	b := domain.Participant{Username: "B", Interest: "chess", Endpoint: "ep-B"}
	group := domain.NewGroupID("A", "B")

	t.Run("enqueue fails", func(t *testing.T) {
		req := require.New(t)
		queue.EXPECT().Enqueue(gomock.Any(), "chess", "A").Return(errors.ErrStoreUnavailable)

		_, err := coordinator.AttemptMatch(ctx, a)
		req.ErrorIs(err, errors.ErrStoreUnavailable)
	})

	t.Run("partner lookup fails", func(t *testing.T) {
		req := require.New(t)
		gomock.InOrder(
			queue.EXPECT().Enqueue(gomock.Any(), "chess", "B").Return(nil),
			queue.EXPECT().Snapshot(gomock.Any(), "chess").Return([]string{"A", "B"}, nil),
			queue.EXPECT().Dequeue(gomock.Any(), "chess", "A", "B").Return(2, nil),
			bus.EXPECT().JoinGroup(group, "ep-B").Return(nil),
			presence.EXPECT().Lookup(gomock.Any(), "A").Return("", false, errors.ErrStoreUnavailable),
			bus.EXPECT().LeaveGroup(group, "ep-B"),
			// Both go back to the queue in their previous order
			queue.EXPECT().Enqueue(gomock.Any(), "chess", "A").Return(nil),
			queue.EXPECT().Enqueue(gomock.Any(), "chess", "B").Return(nil),
		)

		_, err := coordinator.AttemptMatch(ctx, b)
		req.ErrorIs(err, errors.ErrStoreUnavailable)
	})
}

func TestCoordinator_LookupFailureKeepsBothQueued(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)

	db, err := repositories.OpenStore("", log)
	req.NoError(err)
	defer db.Close()
	queue, err := repositories.NewQueueRepository(db, log)
	req.NoError(err)
	defer queue.Close()

	presence := mocks.NewMockIPresenceRepository(ctrl)
	bus := runtime.NewBus(log, 50*time.Millisecond)
	bus.Register("ep-B", runtime.NewChannelSink(1))
	coordinator := runtime.NewCoordinator(log, queue, presence, bus, observability.NewMetrics(), 3)

	// Given A waiting
	req.NoError(queue.Enqueue(ctx, "chess", "A"))

	// When the presence lookup of A fails while B searches
	presence.EXPECT().Lookup(gomock.Any(), "A").Return("", false, errors.ErrStoreUnavailable)
	_, err = coordinator.AttemptMatch(ctx, domain.Participant{Username: "B", Interest: "chess", Endpoint: "ep-B"})
	req.ErrorIs(err, errors.ErrStoreUnavailable)

	// Then nobody lost their place and no group is left behind
	waiting, err := queue.Snapshot(ctx, "chess")
	req.NoError(err)
	req.Equal([]string{"A", "B"}, waiting)
	req.Zero(bus.Groups())
}

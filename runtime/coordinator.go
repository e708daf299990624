package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"random-chat/contract"
	"random-chat/domain"
	"random-chat/domain/event"
	"random-chat/errors"
	"random-chat/observability"
	"random-chat/repositories"
	"time"
)

const restoreTimeout = 2 * time.Second

// Coordinator pairs waiting users of the same interest. Every queue mutation
// for an interest happens inside that interest's exclusive section, so two
// concurrent searches can never pick the same partner.
type Coordinator struct {
	log      *slog.Logger
	locks    *KeyedMutex
	queue    repositories.IQueueRepository
	presence repositories.IPresenceRepository
	bus      contract.IBus
	metrics  *observability.Metrics
	attempts int
}

func NewCoordinator(
	log *slog.Logger,
	queue repositories.IQueueRepository,
	presence repositories.IPresenceRepository,
	bus contract.IBus,
	metrics *observability.Metrics,
	attempts int,
) *Coordinator {
	if attempts < 1 {
		attempts = 1
	}
	return &Coordinator{
		log:      log,
		locks:    NewKeyedMutex(),
		queue:    queue,
		presence: presence,
		bus:      bus,
		metrics:  metrics,
		attempts: attempts,
	}
}

// AttemptMatch queues p under its interest and pairs it with the user waiting
// immediately before it, if any. When no partner can be reached p stays queued
// and the result reports searching.
func (c *Coordinator) AttemptMatch(ctx context.Context, p domain.Participant) (domain.MatchResult, error) {
	log := c.log.With("username", p.Username, "interest", p.Interest)

	for attempt := 1; attempt <= c.attempts; attempt++ {
		partner, err := c.pick(ctx, p)
		if err != nil {
			return domain.MatchResult{}, err
		}
		if partner == "" {
			return c.searching(ctx, p)
		}

		peer, err := c.pair(ctx, p, partner)
		if err == nil {
			c.metrics.Matches.Inc()
			log.Debug("Pair formed", "peer", partner, "group", peer.Group)
			return domain.MatchResult{Matched: true, Peer: peer}, nil
		}
		if !errors.Is(err, errors.ErrEndpointGone) {
			return domain.MatchResult{}, err
		}
		c.metrics.MatchFallbacks.WithLabelValues("peer_gone").Inc()
		log.Warn("Partner no longer reachable", "peer", partner, "attempt", attempt, "error", err)
	}

	if err := c.enqueue(ctx, p); err != nil {
		return domain.MatchResult{}, err
	}
	return c.searching(ctx, p)
}

// Withdraw removes username from the interest's queue and returns how many entries were removed.
func (c *Coordinator) Withdraw(ctx context.Context, interest, username string) (int, error) {
	unlock, err := c.locks.Lock(ctx, interest)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}
	defer unlock()
	return c.queue.Dequeue(ctx, interest, username)
}

// pick enqueues p and, when p is the newest entry and someone waits before it,
// extracts both names in a single transaction. An empty partner means p keeps waiting.
func (c *Coordinator) pick(ctx context.Context, p domain.Participant) (string, error) {
	unlock, err := c.locks.Lock(ctx, p.Interest)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}
	defer unlock()

	if err = c.queue.Enqueue(ctx, p.Interest, p.Username); err != nil {
		return "", err
	}
	waiting, err := c.queue.Snapshot(ctx, p.Interest)
	if err != nil {
		return "", err
	}
	if len(waiting) == 0 || waiting[len(waiting)-1] != p.Username {
		// Someone queued after p already had the chance to take it.
		c.metrics.MatchFallbacks.WithLabelValues("race_resolved").Inc()
		c.log.Debug("Caller is not the newest entry", "username", p.Username, "interest", p.Interest)
		return "", nil
	}
	if len(waiting) < 2 {
		return "", nil
	}

	partner := waiting[len(waiting)-2]
	removed, err := c.queue.Dequeue(ctx, p.Interest, partner, p.Username)
	if err != nil {
		return "", err
	}
	if removed != 2 {
		c.log.Warn("Queue changed outside the interest section", "interest", p.Interest, "removed", removed)
		if err = c.queue.Enqueue(ctx, p.Interest, p.Username); err != nil {
			return "", err
		}
		return "", nil
	}
	return partner, nil
}

// pair builds the group of p and partner and notifies partner. On failure no
// group membership is left behind. ErrEndpointGone means partner is unreachable
// and the caller may try again.
func (c *Coordinator) pair(ctx context.Context, p domain.Participant, partner string) (domain.Peer, error) {
	group := domain.NewGroupID(p.Username, partner)

	if err := c.bus.JoinGroup(group, p.Endpoint); err != nil {
		c.restore(ctx, p.Interest, partner)
		return domain.Peer{}, fmt.Errorf("%w: %v", errors.ErrSessionClosed, err)
	}

	endpoint, ok, err := c.presence.Lookup(ctx, partner)
	if err != nil {
		c.bus.LeaveGroup(group, p.Endpoint)
		c.restore(ctx, p.Interest, partner)
		c.restore(ctx, p.Interest, p.Username)
		return domain.Peer{}, err
	}
	if !ok {
		c.bus.LeaveGroup(group, p.Endpoint)
		return domain.Peer{}, fmt.Errorf("%w: %s has no presence", errors.ErrEndpointGone, partner)
	}

	if err = c.bus.JoinGroup(group, endpoint); err != nil {
		c.bus.LeaveGroup(group, p.Endpoint)
		return domain.Peer{}, err
	}

	matched := event.Matched{Group: group, Peer: p.Username, At: time.Now().UTC()}
	if err = c.bus.SendToEndpoint(ctx, endpoint, matched); err != nil {
		c.bus.LeaveGroup(group, p.Endpoint)
		c.bus.LeaveGroup(group, endpoint)
		if errors.Is(err, errors.ErrDeliveryTimeout) {
			// Partner is alive but did not take the event, it is still searching.
			c.restore(ctx, p.Interest, partner)
		}
		if !errors.Is(err, errors.ErrEndpointGone) {
			err = fmt.Errorf("%w: %v", errors.ErrEndpointGone, err)
		}
		return domain.Peer{}, err
	}

	return domain.Peer{Username: partner, Group: group}, nil
}

func (c *Coordinator) enqueue(ctx context.Context, p domain.Participant) error {
	unlock, err := c.locks.Lock(ctx, p.Interest)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}
	defer unlock()
	return c.queue.Enqueue(ctx, p.Interest, p.Username)
}

// restore puts back a name extracted by pick when the pair could not be formed
// for a reason other than the partner being gone.
func (c *Coordinator) restore(ctx context.Context, interest, username string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), restoreTimeout)
	defer cancel()

	err := c.enqueue(ctx, domain.Participant{Username: username, Interest: interest})
	if err != nil {
		c.log.Error("Unable to restore waiting user", "username", username, "interest", interest, "error", err)
	}
}

func (c *Coordinator) searching(ctx context.Context, p domain.Participant) (domain.MatchResult, error) {
	if err := c.presence.Publish(ctx, p.Username, p.Endpoint); err != nil {
		return domain.MatchResult{}, err
	}
	return domain.MatchResult{}, nil
}

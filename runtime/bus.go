package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"random-chat/contract"
	"random-chat/domain"
	"random-chat/domain/event"
	"random-chat/errors"
	"sync"
	"time"

	"github.com/samber/lo"
)

type Set map[string]struct{}

// Bus is the in-process group delivery bus. It knows every connected endpoint
// and the members of every pairing group, and hands events to endpoint sinks.
// It carries no chat logic: sessions decide what to send and how to react.
type Bus struct {
	mu          sync.RWMutex
	log         *slog.Logger
	sinkTimeout time.Duration
	endpoints   map[string]contract.EventSink          // endpoint -> sink
	groups      map[domain.GroupID]Set                 // group -> endpoints
	memberships map[string]map[domain.GroupID]struct{} // endpoint -> groups
}

func NewBus(log *slog.Logger, sinkTimeout time.Duration) *Bus {
	return &Bus{
		log:         log,
		sinkTimeout: sinkTimeout,
		endpoints:   make(map[string]contract.EventSink),
		groups:      make(map[domain.GroupID]Set),
		memberships: make(map[string]map[domain.GroupID]struct{}),
	}
}

// Register makes endpoint reachable. Registering again replaces the sink.
func (b *Bus) Register(endpoint string, sink contract.EventSink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.endpoints[endpoint] = sink
}

// Unregister removes endpoint and its group memberships, and returns the groups
// it was still part of. Once it returns, deliveries to endpoint fail with ErrEndpointGone.
func (b *Bus) Unregister(endpoint string) []domain.GroupID {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.endpoints, endpoint)
	groups := lo.Keys(b.memberships[endpoint])
	for _, group := range groups {
		b.leave(group, endpoint)
	}
	delete(b.memberships, endpoint)
	return groups
}

// JoinGroup adds a registered endpoint to group, creating the group on first use.
func (b *Bus) JoinGroup(group domain.GroupID, endpoint string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.endpoints[endpoint]; !ok {
		return fmt.Errorf("%w: %s", errors.ErrEndpointGone, endpoint)
	}
	if _, ok := b.groups[group]; !ok {
		b.groups[group] = make(Set)
	}
	b.groups[group][endpoint] = struct{}{}
	if _, ok := b.memberships[endpoint]; !ok {
		b.memberships[endpoint] = make(map[domain.GroupID]struct{})
	}
	b.memberships[endpoint][group] = struct{}{}
	return nil
}

// LeaveGroup is idempotent. The group disappears with its last member.
func (b *Bus) LeaveGroup(group domain.GroupID, endpoint string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.leave(group, endpoint)
}

func (b *Bus) leave(group domain.GroupID, endpoint string) {
	if members, ok := b.groups[group]; ok {
		delete(members, endpoint)
		if len(members) == 0 {
			delete(b.groups, group)
		}
	}
	if groups, ok := b.memberships[endpoint]; ok {
		delete(groups, group)
		if len(groups) == 0 {
			delete(b.memberships, endpoint)
		}
	}
}

func (b *Bus) Members(group domain.GroupID) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return lo.Keys(b.groups[group])
}

// SendToGroup delivers e to every member of group except the listed endpoints
// and returns how many sinks accepted it. Delivery is best effort: a slow sink
// only delays the call by sinkTimeout.
func (b *Bus) SendToGroup(ctx context.Context, group domain.GroupID, e event.Event, except ...string) int {
	b.mu.RLock()
	targets := make(map[string]contract.EventSink)
	for endpoint := range b.groups[group] {
		if lo.Contains(except, endpoint) {
			continue
		}
		if sink, ok := b.endpoints[endpoint]; ok {
			targets[endpoint] = sink
		}
	}
	b.mu.RUnlock()

	delivered := 0
	for endpoint, sink := range targets {
		if err := b.consume(ctx, sink, e); err != nil {
			b.log.Warn("Group delivery failed", "group", group, "endpoint", endpoint, "error", err)
			continue
		}
		delivered++
	}
	return delivered
}

// SendToEndpoint delivers e to a single endpoint.
func (b *Bus) SendToEndpoint(ctx context.Context, endpoint string, e event.Event) error {
	b.mu.RLock()
	sink, ok := b.endpoints[endpoint]
	b.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", errors.ErrEndpointGone, endpoint)
	}
	return b.consume(ctx, sink, e)
}

func (b *Bus) consume(ctx context.Context, sink contract.EventSink, e event.Event) error {
	sinkCtx, cancel := context.WithTimeout(ctx, b.sinkTimeout)
	defer cancel()
	return sink.Consume(sinkCtx, e)
}

func (b *Bus) Endpoints() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.endpoints)
}

func (b *Bus) Groups() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.groups)
}

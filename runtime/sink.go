package runtime

import (
	"context"
	"fmt"
	"random-chat/domain/event"
	"random-chat/errors"
	"sync"
)

// ChannelSink buffers the bus events of one connection until its session goroutine reads them.
type ChannelSink struct {
	mu     sync.RWMutex
	closed bool
	events chan event.Event
}

func NewChannelSink(bufferSize int) *ChannelSink {
	return &ChannelSink{events: make(chan event.Event, bufferSize)}
}

// Consume is called by the bus. It waits for room in the buffer until ctx
// expires, so a stuck session cannot block its peer forever.
func (s *ChannelSink) Consume(ctx context.Context, e event.Event) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errors.ErrEndpointGone
	}

	select {
	case s.events <- e:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", errors.ErrDeliveryTimeout, ctx.Err())
	}
}

func (s *ChannelSink) Events() <-chan event.Event {
	return s.events
}

// Close waits for in-flight deliveries, then refuses new ones. Events already
// buffered stay readable so the owner can drain them.
func (s *ChannelSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

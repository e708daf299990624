package runtime_test

import (
	"context"
	"random-chat/domain/event"
	"random-chat/errors"
	"random-chat/runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestChannelSink(t *testing.T) {
	req := require.New(t)
	sink := runtime.NewChannelSink(1)
	first := event.ChatMessage{Group: "g"}

	// Given a buffer of one event, already filled
	req.NoError(sink.Consume(context.Background(), first))

	// Then the next delivery times out
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := sink.Consume(ctx, event.ChatMessage{Group: "g"})
	req.ErrorIs(err, errors.ErrDeliveryTimeout)

	// When the sink is closed
	sink.Close()

	// Then deliveries are refused but the buffered event can still be drained
	req.ErrorIs(sink.Consume(context.Background(), first), errors.ErrEndpointGone)
	req.Equal(first, <-sink.Events())
}

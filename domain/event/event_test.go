package event

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPeerDeparted_Describe(t *testing.T) {
	req := require.New(t)

	req.Equal("bob has skipped the chat.", PeerDeparted{Peer: "bob", Reason: ReasonSkipped}.Describe())
	req.Equal("bob has disconnected.", PeerDeparted{Peer: "bob", Reason: ReasonDisconnected}.Describe())
	req.Equal("bob is no longer available.", PeerDeparted{Peer: "bob", Reason: ReasonRejected}.Describe())
}

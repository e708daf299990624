package main

import (
	"random-chat/domain"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		line     string
		expected domain.Inbound
	}{
		{line: "  hello there ", expected: domain.Inbound{Type: domain.InboundMessage, Message: "hello there"}},
		{line: "/next", expected: domain.Inbound{Type: domain.InboundFindNewUser}},
		{line: "/skip", expected: domain.Inbound{Type: domain.InboundSkip}},
		{line: "/interest  Chess ", expected: domain.Inbound{Type: domain.InboundChangeInterest, NewInterest: "Chess"}},
		{line: "/quit", expected: domain.Inbound{Type: domain.InboundLogout}},
		{line: "/unknown", expected: domain.Inbound{}},
		{line: "   ", expected: domain.Inbound{}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			require.Equal(t, tt.expected, parse(tt.line))
		})
	}
}

func TestRender_SearchesAgainAfterDisconnect(t *testing.T) {
	req := require.New(t)

	req.True(render(domain.Disconnected("bob has disconnected.")))
	req.False(render(domain.Skipped("bob has skipped the chat.")))
	req.False(render(domain.ChatLine("hi", "bob")))
}

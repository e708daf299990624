package e2e

import (
	"random-chat/domain"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type ChatScenarioSuite struct {
	BaseWsSuite
}

func TestChatScenarios(t *testing.T) {
	suite.Run(t, new(ChatScenarioSuite))
}

func (s *ChatScenarioSuite) TestMatchAndRelay() {
	interest := s.Unique("music")
	aliceName, bobName := s.Unique("alice"), s.Unique("bob")

	// Given alice waiting under an interest
	alice := s.Dial("alice")
	alice.Register(aliceName, interest)
	s.Equal(aliceName, alice.Expect(domain.OutboundSuccess).Username)
	alice.Expect(domain.OutboundSearch)

	// When bob registers with the same interest
	bob := s.Dial("bob")
	bob.Register(bobName, interest)
	bob.Expect(domain.OutboundSuccess)

	// Then both are told about each other
	s.Equal(aliceName, bob.Expect(domain.OutboundMatch).MatchedUser)
	s.Equal(bobName, alice.Expect(domain.OutboundMatch).MatchedUser)

	// When bob says hi, alice receives it and bob gets no echo
	bob.Send(domain.Inbound{Type: domain.InboundMessage, Message: "hi"})
	line := alice.Expect(domain.OutboundMessage)
	s.Equal("hi", line.Message)
	s.Equal(bobName, line.Username)

	// Then moderated words are masked on the way
	alice.Send(domain.Inbound{Type: domain.InboundMessage, Message: "you moron"})
	s.Equal("you *****", bob.Expect(domain.OutboundMessage).Message)
	bob.Silent(200 * time.Millisecond)
}

func (s *ChatScenarioSuite) TestSkipThenRematch() {
	interest := s.Unique("chess")
	aliceName, bobName, carolName := s.Unique("alice"), s.Unique("bob"), s.Unique("carol")

	alice := s.Dial("alice")
	alice.Register(aliceName, interest)
	alice.Expect(domain.OutboundSuccess)
	alice.Expect(domain.OutboundSearch)

	bob := s.Dial("bob")
	bob.Register(bobName, interest)
	bob.Expect(domain.OutboundSuccess)
	bob.Expect(domain.OutboundMatch)
	alice.Expect(domain.OutboundMatch)

	// When alice skips
	alice.Send(domain.Inbound{Type: domain.InboundSkip})

	// Then alice is invited to search again and bob learns why the chat ended
	skipped := alice.Expect(domain.OutboundSkip)
	s.Equal(domain.NextActionFindNewUser, skipped.NextAction)
	s.Equal(aliceName+" has skipped the chat.", bob.Expect(domain.OutboundSkip).Message)

	// When carol arrives and alice searches again, they are paired
	carol := s.Dial("carol")
	carol.Register(carolName, interest)
	carol.Expect(domain.OutboundSuccess)
	carol.Expect(domain.OutboundSearch)

	alice.Send(domain.Inbound{Type: domain.InboundFindNewUser})
	s.Equal(carolName, alice.Expect(domain.OutboundMatch).MatchedUser)
	s.Equal(aliceName, carol.Expect(domain.OutboundMatch).MatchedUser)

	// Then bob, who did not search again, is left alone
	bob.Silent(200 * time.Millisecond)
}

func (s *ChatScenarioSuite) TestDisconnectNotifiesPeer() {
	interest := s.Unique("films")
	aliceName, bobName := s.Unique("alice"), s.Unique("bob")

	alice := s.Dial("alice")
	alice.Register(aliceName, interest)
	alice.Expect(domain.OutboundSuccess)
	alice.Expect(domain.OutboundSearch)

	bob := s.Dial("bob")
	bob.Register(bobName, interest)
	bob.Expect(domain.OutboundSuccess)
	bob.Expect(domain.OutboundMatch)
	alice.Expect(domain.OutboundMatch)

	// When bob closes his tab
	bob.Close()

	// Then alice is told and the name is free again
	s.Equal(bobName+" has disconnected.", alice.Expect(domain.OutboundDisconnect).Message)

	again := s.Dial("bob again")
	again.Register(bobName, s.Unique("other"))
	again.Expect(domain.OutboundSuccess)
}

func (s *ChatScenarioSuite) TestUserErrors() {
	name := s.Unique("dave")

	dave := s.Dial("dave")
	dave.Send(domain.Inbound{Type: domain.InboundMessage, Message: "anyone?"})
	s.Equal("You must register first.", dave.Expect(domain.OutboundError).Message)

	dave.Register(name, s.Unique("cats"))
	dave.Expect(domain.OutboundSuccess)
	dave.Expect(domain.OutboundSearch)

	dave.Send(domain.Inbound{Type: domain.InboundMessage, Message: "anyone?"})
	s.Equal("You are not matched with anyone.", dave.Expect(domain.OutboundError).Message)

	// A second tab cannot take the same name
	impostor := s.Dial("impostor")
	impostor.Register(name, "cats")
	s.Equal("Username already exists", impostor.Expect(domain.OutboundError).Message)

	// Logging out is acknowledged before the server closes the socket
	dave.Send(domain.Inbound{Type: domain.InboundLogout})
	s.Equal("You have been logged out.", dave.Expect(domain.OutboundLogout).Message)
}

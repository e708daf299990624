package services

import (
	"context"
	"fmt"
	"log/slog"
	"random-chat/contract"
	"random-chat/domain"
	"random-chat/domain/event"
	"random-chat/errors"
)

// Session is the state machine of one connection. It is owned by a single
// goroutine: Run, or a test calling Handle and Deliver directly. None of its
// fields are shared, so it needs no lock.
type Session struct {
	service  *ChatService
	log      *slog.Logger
	endpoint string
	emitter  contract.Emitter
	inbox    contract.Inbox

	state    domain.State
	username string
	interest string
	peer     *domain.Peer
	writeErr error
}

func (s *Session) State() domain.State {
	return s.state
}

func (s *Session) Username() string {
	return s.username
}

// Peer returns the current chat partner, nil when not matched.
func (s *Session) Peer() *domain.Peer {
	return s.peer
}

// Run processes client frames and bus events one at a time until the session
// is closed, inbound is closed, ctx is done or the client can no longer be written to.
// Buffered bus events are always handled before the next client frame.
// Run does not clean up: the caller must Close the session afterwards.
func (s *Session) Run(ctx context.Context, inbound <-chan domain.Inbound) error {
	for s.state != domain.StateClosed {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt := <-s.inbox.Events():
			if err := s.Deliver(ctx, evt); err != nil {
				return err
			}
		case in, ok := <-inbound:
			if !ok {
				return nil
			}
			if err := s.drain(ctx); err != nil {
				return err
			}
			if err := s.Handle(ctx, in); err != nil {
				return err
			}
		}
	}
	return nil
}

// Handle applies one client frame. User mistakes and store failures are
// reported to the client as error frames; the returned error is only set when
// the client could not be written to.
func (s *Session) Handle(ctx context.Context, in domain.Inbound) error {
	opCtx, cancel := s.service.withTimeout(ctx)
	defer cancel()

	var err error
	switch in.Type {
	case domain.InboundRegister:
		err = s.register(opCtx, in.Username, in.Interest)
	case domain.InboundFindNewUser, domain.InboundSearch:
		err = s.findNewUser(opCtx)
	case domain.InboundChangeInterest:
		err = s.changeInterest(opCtx, in.NewInterest)
	case domain.InboundMessage:
		err = s.message(opCtx, in.Message)
	case domain.InboundSkip:
		err = s.skip(opCtx)
	case domain.InboundLogout:
		err = s.logout(opCtx)
	case "":
		err = errors.ErrInvalidPayload
	default:
		err = fmt.Errorf("%w: %q", errors.ErrUnknownType, in.Type)
	}

	if err != nil {
		s.fail(opCtx, in.Type, err)
	}
	return s.writeErr
}

// Deliver applies one bus event addressed to this session.
func (s *Session) Deliver(ctx context.Context, evt event.Event) error {
	opCtx, cancel := s.service.withTimeout(ctx)
	defer cancel()

	switch e := evt.(type) {
	case event.Matched:
		s.onMatched(opCtx, e)
	case event.ChatMessage:
		if s.inGroup(e.Group) {
			s.emit(opCtx, domain.ChatLine(e.Message.Content, e.Message.Sender))
		}
	case event.PeerDeparted:
		if s.inGroup(e.Group) {
			s.onPeerDeparted(opCtx, e)
		}
	default:
		s.log.Warn("Unexpected bus event", "type", fmt.Sprintf("%T", evt))
	}
	return s.writeErr
}

// Close tears the session down: the endpoint leaves the bus, the name, queue
// entry and presence are released, and the peer is told. Matches that reached
// the inbox in the meantime are refused. Close is idempotent.
func (s *Session) Close(ctx context.Context) {
	if s.state == domain.StateClosed {
		return
	}
	ctx, cancel := s.service.detached(ctx)
	defer cancel()

	s.service.bus.Unregister(s.endpoint)
	s.inbox.Close()

	if s.state.Registered() {
		s.release(ctx)
	}
	// The name is free again by the time the peer hears about the departure.
	if s.peer != nil {
		s.depart(ctx, event.ReasonDisconnected)
	}

	s.state = domain.StateClosed
	_ = s.drain(ctx)
	s.username, s.interest = "", ""
	s.log.Debug("Session closed")
}

func (s *Session) register(ctx context.Context, rawUsername, rawInterest string) error {
	if s.state.Registered() {
		return errors.ErrAlreadyRegistered
	}
	if s.state == domain.StateClosed {
		return errors.ErrSessionClosed
	}

	username := domain.NormalizeUsername(rawUsername)
	interest := domain.NormalizeInterest(rawInterest, s.service.opts.DefaultInterest)
	req := domain.RegisterRequest{Username: username, Interest: interest}
	if err := domain.ValidateRegister(req, s.service.opts.MaxUsernameLength); err != nil {
		s.service.metrics.Registrations.WithLabelValues("invalid").Inc()
		return fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}

	if err := s.service.users.Register(ctx, username); err != nil {
		if errors.Is(err, errors.ErrNameTaken) {
			s.service.metrics.Registrations.WithLabelValues("taken").Inc()
		} else {
			s.service.metrics.Registrations.WithLabelValues("error").Inc()
		}
		return err
	}
	s.username, s.interest = username, interest
	s.state = domain.StateIdle
	s.log = s.log.With("username", username)

	if err := s.service.presence.Publish(ctx, username, s.endpoint); err != nil {
		s.rollbackRegistration(ctx)
		return err
	}
	result, err := s.search(ctx)
	if err != nil {
		s.rollbackRegistration(ctx)
		return err
	}

	s.service.metrics.Registrations.WithLabelValues("ok").Inc()
	s.log.Info("User registered", "interest", interest)
	s.emit(ctx, domain.Success("User registered successfully", username))
	s.announce(ctx, result)
	return nil
}

// rollbackRegistration undoes a registration whose first search failed, so the
// name can be claimed again.
func (s *Session) rollbackRegistration(ctx context.Context) {
	ctx, cancel := s.service.detached(ctx)
	defer cancel()

	s.release(ctx)
	s.state = domain.StateUnregistered
	s.username, s.interest = "", ""
	s.log = s.service.log.With("endpoint", s.endpoint)
	s.service.metrics.Registrations.WithLabelValues("error").Inc()
}

func (s *Session) findNewUser(ctx context.Context) error {
	switch s.state {
	case domain.StateIdle, domain.StateSearching:
	case domain.StateMatched:
		return errors.ErrAlreadyMatched
	default:
		return errors.ErrNotRegistered
	}

	result, err := s.search(ctx)
	if err != nil {
		return err
	}
	s.announce(ctx, result)
	return nil
}

// search runs the coordinator and moves to Matched or Searching. On failure a
// session that was already searching keeps its state and its queue entry,
// which the coordinator puts back; an idle one returns to idle.
func (s *Session) search(ctx context.Context) (domain.MatchResult, error) {
	previous := s.state
	s.state = domain.StateSearching
	result, err := s.service.coordinator.AttemptMatch(ctx, s.participant())
	if err != nil {
		if previous != domain.StateSearching {
			s.state = domain.StateIdle
			s.withdraw(ctx)
		}
		return domain.MatchResult{}, err
	}
	if result.Matched {
		peer := result.Peer
		s.peer = &peer
		s.state = domain.StateMatched
		s.log.Info("Matched", "peer", peer.Username, "group", peer.Group)
	}
	return result, nil
}

func (s *Session) announce(ctx context.Context, result domain.MatchResult) {
	if result.Matched {
		s.emit(ctx, domain.Matched(result.Peer.Username))
		return
	}
	s.emit(ctx, domain.Searching())
}

func (s *Session) changeInterest(ctx context.Context, rawInterest string) error {
	if !s.state.Registered() {
		return errors.ErrNotRegistered
	}
	interest := domain.NormalizeInterest(rawInterest, s.service.opts.DefaultInterest)
	req := domain.RegisterRequest{Username: s.username, Interest: interest}
	if err := domain.ValidateRegister(req, 0); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}

	if s.state == domain.StateSearching {
		if _, err := s.service.coordinator.Withdraw(ctx, s.interest, s.username); err != nil {
			return err
		}
		s.state = domain.StateIdle
	}
	s.log.Debug("Interest changed", "from", s.interest, "to", interest)
	s.interest = interest
	s.emit(ctx, domain.InterestChanged(interest))
	return nil
}

func (s *Session) message(ctx context.Context, content string) error {
	if !s.state.Registered() {
		return errors.ErrNotRegistered
	}
	if s.peer == nil {
		return errors.ErrNoPeer
	}
	if err := domain.ValidateChat(domain.ChatRequest{Message: content}, s.service.opts.MaxMessageLength); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}

	if s.service.moderator != nil {
		censored, words := s.service.moderator.Censor(content)
		if len(words) > 0 {
			s.service.metrics.MessagesCensored.Inc()
			content = censored
		}
	}

	msg := event.ChatMessage{Group: s.peer.Group, Message: domain.NewMessage(s.username, content)}
	if delivered := s.service.bus.SendToGroup(ctx, s.peer.Group, msg, s.endpoint); delivered == 0 {
		// The departure notice of the peer is on its way.
		s.log.Warn("Message not delivered", "group", s.peer.Group)
		return nil
	}
	s.service.metrics.MessagesRelayed.Inc()
	return nil
}

func (s *Session) skip(ctx context.Context) error {
	if !s.state.Registered() {
		return errors.ErrNotRegistered
	}
	if s.peer == nil {
		return errors.ErrNoPeer
	}

	peer := s.peer.Username
	s.depart(ctx, event.ReasonSkipped)
	s.state = domain.StateIdle
	s.emit(ctx, domain.Skipped(fmt.Sprintf("You have skipped the chat with %s.", peer)))
	return nil
}

func (s *Session) logout(ctx context.Context) error {
	if s.state == domain.StateUnregistered {
		return errors.ErrNotRegistered
	}
	s.log.Info("User logged out")
	s.Close(ctx)
	s.emit(ctx, domain.LoggedOut())
	return nil
}

// depart notifies the peer, leaves the group and forgets the peer.
func (s *Session) depart(ctx context.Context, reason event.DepartureReason) {
	group := s.peer.Group
	notice := event.PeerDeparted{Group: group, Peer: s.username, Reason: reason}
	s.service.bus.SendToGroup(ctx, group, notice, s.endpoint)
	s.service.bus.LeaveGroup(group, s.endpoint)
	s.service.metrics.Departures.WithLabelValues(string(reason)).Inc()
	s.log.Debug("Left chat", "peer", s.peer.Username, "reason", reason)
	s.peer = nil
}

func (s *Session) onMatched(ctx context.Context, e event.Matched) {
	if s.state != domain.StateIdle && s.state != domain.StateSearching {
		s.reject(ctx, e)
		return
	}
	// The initiator already took this session out of the queue, unless it was
	// queued again by a search that raced with the event.
	s.withdraw(ctx)

	s.peer = &domain.Peer{Username: e.Peer, Group: e.Group}
	s.state = domain.StateMatched
	s.log.Info("Matched", "peer", e.Peer, "group", e.Group)
	s.emit(ctx, domain.Matched(e.Peer))
}

// reject dissolves a group this session was added to while it could not take part.
func (s *Session) reject(ctx context.Context, e event.Matched) {
	s.log.Debug("Match refused", "peer", e.Peer, "group", e.Group, "state", s.state)
	notice := event.PeerDeparted{Group: e.Group, Peer: s.displayName(), Reason: event.ReasonRejected}
	s.service.bus.SendToGroup(ctx, e.Group, notice, s.endpoint)
	s.service.bus.LeaveGroup(e.Group, s.endpoint)
	s.service.metrics.Departures.WithLabelValues(string(event.ReasonRejected)).Inc()
}

func (s *Session) onPeerDeparted(ctx context.Context, e event.PeerDeparted) {
	s.service.bus.LeaveGroup(e.Group, s.endpoint)
	s.peer = nil
	s.state = domain.StateIdle
	s.log.Debug("Peer left", "peer", e.Peer, "reason", e.Reason)

	if e.Reason == event.ReasonSkipped {
		s.emit(ctx, domain.Skipped(e.Describe()))
		return
	}
	s.emit(ctx, domain.Disconnected(e.Describe()))
}

// drain handles every event already buffered in the inbox.
func (s *Session) drain(ctx context.Context) error {
	for {
		select {
		case evt := <-s.inbox.Events():
			if err := s.Deliver(ctx, evt); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (s *Session) release(ctx context.Context) {
	s.withdraw(ctx)
	if err := s.service.presence.Unpublish(ctx, s.username); err != nil {
		s.log.Error("Unable to unpublish presence", "error", err)
	}
	if err := s.service.users.Release(ctx, s.username); err != nil {
		s.log.Error("Unable to release username", "error", err)
	}
}

func (s *Session) withdraw(ctx context.Context) {
	if _, err := s.service.coordinator.Withdraw(ctx, s.interest, s.username); err != nil {
		s.log.Error("Unable to leave the waiting queue", "interest", s.interest, "error", err)
	}
}

func (s *Session) participant() domain.Participant {
	return domain.Participant{Username: s.username, Interest: s.interest, Endpoint: s.endpoint}
}

func (s *Session) inGroup(group domain.GroupID) bool {
	return s.peer != nil && s.peer.Group == group
}

func (s *Session) displayName() string {
	if s.username == "" {
		return "Your match"
	}
	return s.username
}

// emit writes a frame to the client. After the first write failure every
// following frame is dropped and the error is reported by Handle or Deliver.
func (s *Session) emit(ctx context.Context, frame domain.Outbound) {
	if s.writeErr != nil {
		return
	}
	if err := s.emitter.Emit(context.WithoutCancel(ctx), frame); err != nil {
		s.log.Debug("Unable to write frame", "type", frame.Type, "error", err)
		s.writeErr = err
	}
}

func (s *Session) fail(ctx context.Context, inType domain.InboundType, err error) {
	if isUserError(err) {
		s.log.Debug("Request refused", "type", inType, "error", err)
	} else {
		s.log.Error("Request failed", "type", inType, "error", err)
	}
	s.emit(ctx, domain.Error(userMessage(err)))
}

func isUserError(err error) bool {
	for _, target := range []error{
		errors.ErrNameTaken, errors.ErrNotRegistered, errors.ErrAlreadyRegistered,
		errors.ErrNoPeer, errors.ErrAlreadyMatched, errors.ErrInvalidPayload,
		errors.ErrUnknownType, errors.ErrSessionClosed,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func userMessage(err error) string {
	switch {
	case errors.Is(err, errors.ErrNameTaken):
		return "Username already exists"
	case errors.Is(err, errors.ErrNotRegistered):
		return "You must register first."
	case errors.Is(err, errors.ErrAlreadyRegistered):
		return "You are already registered."
	case errors.Is(err, errors.ErrNoPeer):
		return "You are not matched with anyone."
	case errors.Is(err, errors.ErrAlreadyMatched):
		return "You are already chatting. Skip first to find someone new."
	case errors.Is(err, errors.ErrInvalidPayload):
		return "Invalid request."
	case errors.Is(err, errors.ErrUnknownType):
		return "Unknown message type."
	case errors.Is(err, errors.ErrSessionClosed):
		return "This session is closed."
	default:
		return "Something went wrong, please try again."
	}
}

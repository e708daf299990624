package services

import (
	"context"
	"log/slog"
	"random-chat/contract"
	"random-chat/domain"
	"random-chat/moderation"
	"random-chat/observability"
	"random-chat/repositories"
	"time"
)

type Options struct {
	DefaultInterest   string
	MaxMessageLength  int
	MaxUsernameLength int
	StoreTimeout      time.Duration
}

// ChatService holds what every session shares: the stores, the bus, the
// coordinator and the optional moderator. It creates one Session per connection.
type ChatService struct {
	log         *slog.Logger
	users       repositories.IUserRepository
	presence    repositories.IPresenceRepository
	bus         contract.IBus
	coordinator contract.ICoordinator
	moderator   *moderation.Moderator
	metrics     *observability.Metrics
	opts        Options
}

// NewChatService wires the shared dependencies. moderator may be nil to relay text untouched.
func NewChatService(
	log *slog.Logger,
	users repositories.IUserRepository,
	presence repositories.IPresenceRepository,
	bus contract.IBus,
	coordinator contract.ICoordinator,
	moderator *moderation.Moderator,
	metrics *observability.Metrics,
	opts Options,
) *ChatService {
	return &ChatService{
		log:         log,
		users:       users,
		presence:    presence,
		bus:         bus,
		coordinator: coordinator,
		moderator:   moderator,
		metrics:     metrics,
		opts:        opts,
	}
}

// NewSession creates the controller of one connection. The endpoint must
// already be registered on the bus with the sink behind inbox.
func (c *ChatService) NewSession(endpoint string, emitter contract.Emitter, inbox contract.Inbox) *Session {
	return &Session{
		service:  c,
		log:      c.log.With("endpoint", endpoint),
		endpoint: endpoint,
		emitter:  emitter,
		inbox:    inbox,
		state:    domain.StateUnregistered,
	}
}

// withTimeout bounds one store round of a session.
func (c *ChatService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.opts.StoreTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.opts.StoreTimeout)
}

// detached is used for cleanup that must run even when the request context is over.
func (c *ChatService) detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return c.withTimeout(context.WithoutCancel(ctx))
}

package websocket

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"random-chat/contract"
	"random-chat/domain"
	"random-chat/runtime"
	"random-chat/services"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"
)

type Config struct {
	BufferSize     int
	MaxFrameBytes  int64
	PongWait       time.Duration
	WriteWait      time.Duration
	AllowedOrigins []string
}

// Server upgrades HTTP requests to WebSocket chat connections. Each connection
// gets an endpoint on the bus and a session driven by the request goroutine.
type Server struct {
	baseCtx  context.Context
	log      *slog.Logger
	service  *services.ChatService
	bus      contract.IBus
	cfg      Config
	upgrader websocket.Upgrader
	active   sync.WaitGroup
}

// NewServer returns the handler. Cancelling baseCtx ends every open connection.
func NewServer(baseCtx context.Context, log *slog.Logger, service *services.ChatService, bus contract.IBus, cfg Config) *Server {
	s := &Server{baseCtx: baseCtx, log: log, service: service, bus: bus, cfg: cfg}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// ServeHTTP blocks for the lifetime of the connection and always cleans up the session.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already answered the client.
		s.log.Debug("Upgrade refused", "remote", r.RemoteAddr, "error", err)
		return
	}

	s.active.Add(1)
	defer s.active.Done()

	endpoint := uuid.NewString()
	log := s.log.With("endpoint", endpoint)
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	stop := context.AfterFunc(s.baseCtx, cancel)
	defer stop()

	sink := runtime.NewChannelSink(s.cfg.BufferSize)
	s.bus.Register(endpoint, sink)

	c := newConnection(conn, log, s.cfg)
	session := s.service.NewSession(endpoint, c, sink)
	log.Info("Client connected", "remote", r.RemoteAddr)

	inbound := make(chan domain.Inbound)
	go c.writePump()
	go c.readPump(ctx, inbound, s.cfg.MaxFrameBytes)

	if err = session.Run(ctx, inbound); err != nil {
		log.Debug("Session ended", "error", err)
	}
	session.Close(ctx)
	cancel()
	c.close()
	log.Info("Client disconnected")
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return lo.ContainsBy(s.cfg.AllowedOrigins, func(allowed string) bool {
		return strings.EqualFold(allowed, origin) || strings.EqualFold(allowed, u.Host)
	})
}

// Wait blocks until every connection has finished its cleanup or ctx is done.
// http.Server.Shutdown does not track upgraded connections, hence this method.
func (s *Server) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.active.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

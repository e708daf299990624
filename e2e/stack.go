package e2e

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"random-chat/infrastructure/websocket"
	"random-chat/observability"
	"random-chat/repositories"
	"random-chat/runtime"
	"random-chat/services"
	"strings"
	"time"

	"github.com/mama165/sdk-go/logs"
)

// stack is a complete chat server running inside the test process.
type stack struct {
	url     string
	metrics *observability.Metrics
	close   func()
}

func startStack() (*stack, error) {
	log := logs.GetLoggerFromLevel(slog.LevelWarn)
	db, err := repositories.OpenStore("", log)
	if err != nil {
		return nil, err
	}
	queue, err := repositories.NewQueueRepository(db, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	users := repositories.NewUserRepository(db)
	presence := repositories.NewPresenceRepository(db)

	metrics := observability.NewMetrics()
	bus := runtime.NewBus(log, time.Second)
	coordinator := runtime.NewCoordinator(log, queue, presence, bus, metrics, 3)
	moderator, err := runtime.LoadModerator(log, '*')
	if err != nil {
		_ = queue.Close()
		_ = db.Close()
		return nil, err
	}
	service := services.NewChatService(log, users, presence, bus, coordinator, moderator, metrics, services.Options{
		DefaultInterest:   "general",
		MaxMessageLength:  500,
		MaxUsernameLength: 32,
		StoreTimeout:      2 * time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	ws := websocket.NewServer(ctx, log, service, bus, websocket.Config{
		BufferSize:    16,
		MaxFrameBytes: 4096,
		PongWait:      30 * time.Second,
		WriteWait:     5 * time.Second,
	})
	server := httptest.NewServer(ws)

	return &stack{
		url:     "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/chat/",
		metrics: metrics,
		close: func() {
			cancel()
			server.Close()
			waitCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = ws.Wait(waitCtx)
			_ = queue.Close()
			_ = db.Close()
		},
	}, nil
}

package websocket_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"random-chat/domain"
	chatws "random-chat/infrastructure/websocket"
	"random-chat/observability"
	"random-chat/repositories"
	"random-chat/runtime"
	"random-chat/services"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type wsHarness struct {
	url    string
	bus    *runtime.Bus
	server *chatws.Server
}

func newWsHarness(t *testing.T, origins ...string) *wsHarness {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	db, err := repositories.OpenStore("", log)
	require.NoError(t, err)
	queue, err := repositories.NewQueueRepository(db, log)
	require.NoError(t, err)

	metrics := observability.NewMetrics()
	bus := runtime.NewBus(log, time.Second)
	presence := repositories.NewPresenceRepository(db)
	coordinator := runtime.NewCoordinator(log, queue, presence, bus, metrics, 3)
	service := services.NewChatService(log, repositories.NewUserRepository(db), presence, bus, coordinator, nil, metrics, services.Options{
		DefaultInterest: "general",
		StoreTimeout:    time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	server := chatws.NewServer(ctx, log, service, bus, chatws.Config{
		BufferSize:     8,
		MaxFrameBytes:  1024,
		PongWait:       10 * time.Second,
		WriteWait:      time.Second,
		AllowedOrigins: origins,
	})
	httpServer := httptest.NewServer(server)

	t.Cleanup(func() {
		cancel()
		httpServer.Close()
		waitCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		_ = server.Wait(waitCtx)
		_ = queue.Close()
		_ = db.Close()
	})
	return &wsHarness{url: "ws" + strings.TrimPrefix(httpServer.URL, "http"), bus: bus, server: server}
}

func dial(t *testing.T, url string, header http.Header) *websocket.Conn {
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) domain.Outbound {
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame domain.Outbound
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestServer_MalformedFrameKeepsConnection(t *testing.T) {
	req := require.New(t)
	h := newWsHarness(t)
	conn := dial(t, h.url, nil)

	// When the client sends something that is not JSON
	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte("{not json")))

	// Then it gets an error frame and can still register
	req.Equal(domain.Error("Invalid request."), readFrame(t, conn))

	req.NoError(conn.WriteJSON(domain.Inbound{Type: domain.InboundRegister, Username: "alice", Interest: "chess"}))
	req.Equal(domain.Success("User registered successfully", "alice"), readFrame(t, conn))
	req.Equal(domain.Searching(), readFrame(t, conn))
}

func TestServer_RelayBetweenTwoSockets(t *testing.T) {
	req := require.New(t)
	h := newWsHarness(t)
	alice := dial(t, h.url, nil)
	bob := dial(t, h.url, nil)

	req.NoError(alice.WriteJSON(domain.Inbound{Type: domain.InboundRegister, Username: "alice", Interest: "chess"}))
	readFrame(t, alice)
	readFrame(t, alice)

	req.NoError(bob.WriteJSON(domain.Inbound{Type: domain.InboundRegister, Username: "bob", Interest: "chess"}))
	readFrame(t, bob)
	req.Equal(domain.Matched("alice"), readFrame(t, bob))
	req.Equal(domain.Matched("bob"), readFrame(t, alice))

	req.NoError(bob.WriteJSON(domain.Inbound{Type: domain.InboundMessage, Message: "hi alice"}))
	req.Equal(domain.ChatLine("hi alice", "bob"), readFrame(t, alice))

	// When bob's socket drops, then alice is told
	req.NoError(bob.Close())
	req.Equal(domain.Disconnected("bob has disconnected."), readFrame(t, alice))
}

func TestServer_LogoutClosesSocket(t *testing.T) {
	req := require.New(t)
	h := newWsHarness(t)
	conn := dial(t, h.url, nil)

	req.NoError(conn.WriteJSON(domain.Inbound{Type: domain.InboundRegister, Username: "alice"}))
	readFrame(t, conn)
	readFrame(t, conn)

	// When alice logs out
	req.NoError(conn.WriteJSON(domain.Inbound{Type: domain.InboundLogout}))

	// Then the logout frame is followed by a normal close
	req.Equal(domain.LoggedOut(), readFrame(t, conn))
	_, _, err := conn.ReadMessage()
	req.True(websocket.IsCloseError(err, websocket.CloseNormalClosure), "unexpected error %v", err)

	waitCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req.NoError(h.server.Wait(waitCtx))
	req.Zero(h.bus.Endpoints())
}

func TestServer_CheckOrigin(t *testing.T) {
	req := require.New(t)
	h := newWsHarness(t, "chat.example.com")

	// Given a foreign origin, then the upgrade is refused
	_, resp, err := websocket.DefaultDialer.Dial(h.url, http.Header{"Origin": {"https://evil.example.com"}})
	req.Error(err)
	req.NotNil(resp)
	req.Equal(http.StatusForbidden, resp.StatusCode)

	// Given the allowed host, then the upgrade succeeds
	dial(t, h.url, http.Header{"Origin": {"https://chat.example.com"}})
}

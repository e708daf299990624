package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"random-chat/domain"
	"random-chat/errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// connection pumps JSON frames between one WebSocket and its session. The
// write pump is the only writer of the socket, the read pump the only reader.
type connection struct {
	conn      *websocket.Conn
	log       *slog.Logger
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	pongWait  time.Duration
	writeWait time.Duration
}

func newConnection(conn *websocket.Conn, log *slog.Logger, cfg Config) *connection {
	return &connection{
		conn:      conn,
		log:       log,
		send:      make(chan []byte, cfg.BufferSize),
		done:      make(chan struct{}),
		pongWait:  cfg.PongWait,
		writeWait: cfg.WriteWait,
	}
}

// Emit queues a frame for the write pump. It fails once the socket is gone.
func (c *connection) Emit(ctx context.Context, frame domain.Outbound) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return errors.ErrEndpointGone
	case <-ctx.Done():
		return ctx.Err()
	}
}

// readPump decodes client frames until the socket fails. A frame that is not
// valid JSON is passed on as an empty Inbound so the session can answer it.
func (c *connection) readPump(ctx context.Context, inbound chan<- domain.Inbound, maxFrameBytes int64) {
	defer close(inbound)

	c.conn.SetReadLimit(maxFrameBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("Connection lost", "error", err)
			}
			return
		}

		var in domain.Inbound
		if err = json.Unmarshal(data, &in); err != nil {
			c.log.Debug("Malformed frame", "error", err)
			in = domain.Inbound{}
		}
		select {
		case inbound <- in:
		case <-ctx.Done():
			return
		}
	}
}

// writePump writes queued frames and keeps the peer alive with pings. When
// send is closed it says goodbye with a close frame and releases the socket.
func (c *connection) writePump() {
	ticker := time.NewTicker(c.pongWait * 9 / 10)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		close(c.done)
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.log.Debug("Write failed", "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// close flushes the pending frames and waits for the socket to be released.
// It must be called by the goroutine that calls Emit.
func (c *connection) close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
	<-c.done
}

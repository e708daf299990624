package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"random-chat/domain"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
)

type BaseWsSuite struct {
	suite.Suite
	Config       Config
	stack        *stack
	url          string
	frameTimeout time.Duration
	seq          atomic.Int64
}

// SetupSuite loads the environment configuration and, unless a server URL is
// given, starts a server in the test process.
func (s *BaseWsSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)

	s.frameTimeout, err = time.ParseDuration(s.Config.FrameTimeout)
	s.Require().NoError(err)

	s.url = s.Config.ServerURL
	if s.url == "" {
		s.stack, err = startStack()
		s.Require().NoError(err)
		s.url = s.stack.url
	}
}

func (s *BaseWsSuite) TearDownSuite() {
	if s.stack != nil {
		s.stack.close()
	}
}

// Unique suffixes a name so scenarios sharing a server never collide.
func (s *BaseWsSuite) Unique(name string) string {
	return fmt.Sprintf("%s-%d-%d", name, time.Now().UnixNano()%100000, s.seq.Add(1))
}

// Client is one simulated browser tab.
type Client struct {
	s    *BaseWsSuite
	t    *testing.T
	name string
	conn *websocket.Conn
}

// Dial opens a connection and prints a colorized header for it in the logs.
func (s *BaseWsSuite) Dial(name string) *Client {
	t := s.T()
	header := fmt.Sprintf("  ====== %s connects ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	t.Log(header)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	s.Require().NoError(err, "Failed to connect to "+s.url)

	c := &Client{s: s, t: t, name: name, conn: conn}
	t.Cleanup(func() { _ = conn.Close() })
	return c
}

func (c *Client) Send(in domain.Inbound) {
	c.dump("->", in)
	c.s.Require().NoError(c.conn.WriteJSON(in))
}

func (c *Client) Register(username, interest string) {
	c.Send(domain.Inbound{Type: domain.InboundRegister, Username: username, Interest: interest})
}

// Next reads the next frame, failing the test when none arrives in time.
func (c *Client) Next() domain.Outbound {
	c.s.Require().NoError(c.conn.SetReadDeadline(time.Now().Add(c.s.frameTimeout)))
	var frame domain.Outbound
	c.s.Require().NoError(c.conn.ReadJSON(&frame), "%s expected a frame", c.name)
	c.dump("<-", frame)
	return frame
}

// Expect reads the next frame and checks its type.
func (c *Client) Expect(kind domain.OutboundType) domain.Outbound {
	frame := c.Next()
	c.s.Require().Equal(kind, frame.Type, "%s got %+v", c.name, frame)
	return frame
}

// Silent checks that nothing arrives during wait.
func (c *Client) Silent(wait time.Duration) {
	c.s.Require().NoError(c.conn.SetReadDeadline(time.Now().Add(wait)))
	var frame domain.Outbound
	err := c.conn.ReadJSON(&frame)
	c.s.Require().Error(err, "%s received an unexpected frame %+v", c.name, frame)
}

func (c *Client) Close() {
	_ = c.conn.Close()
}

func (c *Client) dump(direction string, v any) {
	if !c.s.Config.DebugJSON {
		return
	}
	data, _ := json.Marshal(v)
	c.t.Logf("%s %s %s", c.name, direction, data)
}

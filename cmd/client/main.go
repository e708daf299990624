package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"random-chat/domain"
	"strings"
	"syscall"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerURL string `env:"CHAT_SERVER_URL,default=ws://localhost:8000/ws/chat/"`
	Username  string `env:"CHAT_USERNAME,required=true"`
	Interest  string `env:"CHAT_INTEREST,default=general"`
	LogLevel  string `env:"LOG_LEVEL,default=WARN"`
}

var (
	system  = color.New(color.FgGray)
	peer    = color.New(color.FgCyan, color.OpBold)
	warning = color.New(color.FgYellow)
	failure = color.New(color.FgRed)
	matched = color.New(color.BgBlack, color.FgGreen)
)

const usage = "Commands: /next to search, /skip to leave the chat, /interest <tag>, /quit. Anything else is sent to your partner."

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run connects, registers and then relays stdin lines and server frames until
// the user quits, the server closes the connection or the process is interrupted.
func run() (int, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, config.ServerURL, nil)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to %s: %w", config.ServerURL, err)
	}
	defer func() {
		log.Info("Closing connection...")
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = conn.Close()
	}()

	if err = conn.WriteJSON(domain.Inbound{
		Type:     domain.InboundRegister,
		Username: config.Username,
		Interest: config.Interest,
	}); err != nil {
		return exitRuntime, err
	}
	system.Println(usage)

	frames := make(chan domain.Outbound)
	readErr := make(chan error, 1)
	go func() {
		for {
			var frame domain.Outbound
			if err := conn.ReadJSON(&frame); err != nil {
				readErr <- err
				return
			}
			frames <- frame
		}
	}()

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return exitOK, nil
		case err := <-readErr:
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return exitOK, nil
			}
			return exitRuntime, fmt.Errorf("connection lost: %w", err)
		case frame := <-frames:
			if again := render(frame); again {
				if err := conn.WriteJSON(domain.Inbound{Type: domain.InboundFindNewUser}); err != nil {
					return exitRuntime, err
				}
			}
		case line, ok := <-lines:
			if !ok {
				_ = conn.WriteJSON(domain.Inbound{Type: domain.InboundLogout})
				return exitOK, nil
			}
			// After /quit the server acknowledges the logout and closes the socket.
			in := parse(line)
			if in.Type == "" {
				continue
			}
			if err := conn.WriteJSON(in); err != nil {
				return exitRuntime, err
			}
		}
	}
}

// parse turns a typed line into a frame. An empty Type means nothing to send.
func parse(line string) domain.Inbound {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return domain.Inbound{}
	case line == "/quit":
		return domain.Inbound{Type: domain.InboundLogout}
	case line == "/next":
		return domain.Inbound{Type: domain.InboundFindNewUser}
	case line == "/skip":
		return domain.Inbound{Type: domain.InboundSkip}
	case strings.HasPrefix(line, "/interest "):
		return domain.Inbound{
			Type:        domain.InboundChangeInterest,
			NewInterest: strings.TrimSpace(strings.TrimPrefix(line, "/interest ")),
		}
	case strings.HasPrefix(line, "/"):
		system.Println(usage)
		return domain.Inbound{}
	default:
		return domain.Inbound{Type: domain.InboundMessage, Message: line}
	}
}

// render prints a server frame. It returns true when the client should search
// again, which is what the browser client does after its partner left.
func render(frame domain.Outbound) bool {
	now := time.Now().Format(time.TimeOnly)
	switch frame.Type {
	case domain.OutboundMessage:
		fmt.Printf("[%s] %s: %s\n", now, peer.Render(frame.Username), frame.Message)
	case domain.OutboundMatch:
		fmt.Println(matched.Render(fmt.Sprintf("  You are now chatting with %s  ", frame.MatchedUser)))
	case domain.OutboundError:
		failure.Println(frame.Message)
	case domain.OutboundSkip:
		warning.Println(frame.Message)
		system.Println("Type /next to find someone new.")
	case domain.OutboundDisconnect:
		warning.Println(frame.Message)
		return true
	default:
		system.Println(frame.Message)
	}
	return false
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"random-chat/infrastructure/grpc/server"
	"random-chat/infrastructure/websocket"
	"random-chat/internal"
	"random-chat/moderation"
	"random-chat/observability"
	"random-chat/repositories"
	"random-chat/runtime"
	"random-chat/runtime/workers"
	"random-chat/services"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Exit codes to provide meaningful status to the operating system or service manager.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const shutdownTimeout = 10 * time.Second

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires every component, serves until a signal or a listener failure, and
// shuts down in reverse order so deferred cleanups always run.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	config, err := internal.LoadConfig()
	if err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	charReplacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return exitConfig, err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Shared store (BadgerDB)
	db, err := repositories.OpenStore(config.BadgerFilepath, log)
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	users := repositories.NewUserRepository(db)
	presence := repositories.NewPresenceRepository(db)
	queue, err := repositories.NewQueueRepository(db, log)
	if err != nil {
		return exitRuntime, err
	}
	defer func() { _ = queue.Close() }()

	// 3. Pairing & delivery
	metrics := observability.NewMetrics()
	monitoring := observability.NewMonitoringManager()
	bus := runtime.NewBus(log, config.SinkTimeout)
	coordinator := runtime.NewCoordinator(log, queue, presence, bus, metrics, config.MatchAttempts)

	var moderator *moderation.Moderator
	if config.EnableModeration {
		if moderator, err = runtime.LoadModerator(log, charReplacement); err != nil {
			return exitRuntime, fmt.Errorf("moderation setup failed: %w", err)
		}
	}

	chatService := services.NewChatService(log, users, presence, bus, coordinator, moderator, metrics, services.Options{
		DefaultInterest:   config.DefaultInterest,
		MaxMessageLength:  config.MaxMessageLength,
		MaxUsernameLength: config.MaxUsernameLength,
		StoreTimeout:      config.StoreTimeout,
	})

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 3)

	// 5. Supervised workers
	supervisor := workers.NewSupervisor(log, config.RestartInterval).OnRestart(func(worker string) {
		metrics.WorkerRestarts.WithLabelValues(worker).Inc()
	})
	orchestrator := runtime.NewOrchestrator(log, supervisor)
	orchestrator.Add(workers.NewHealthMonitoringWorker(log, users, queue, bus, metrics, monitoring, config.MetricInterval))
	workersDone := make(chan struct{})
	go func() {
		orchestrator.Start(ctx)
		close(workersDone)
	}()

	// 6. WebSocket chat endpoint
	mux := http.NewServeMux()
	wsServer := websocket.NewServer(ctx, log, chatService, bus, websocket.Config{
		BufferSize:     config.ConnectionBufferSize,
		MaxFrameBytes:  int64(config.MaxMessageLength)*4 + 1024,
		PongWait:       config.PongWait,
		WriteWait:      config.WriteWait,
		AllowedOrigins: config.Origins(),
	})
	mux.Handle(config.WSPath, wsServer)
	chatServer := &http.Server{Addr: config.Addr(), Handler: mux}
	go func() {
		log.Info("Starting chat server", "address", config.Addr(), "path", config.WSPath)
		if err := chatServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("chat server error: %w", err)
		}
	}()

	// 7. gRPC health service
	grpcAddress := fmt.Sprintf("%s:%d", config.Host, config.GrpcPort)
	listener, err := net.Listen("tcp", grpcAddress)
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to listen on %s: %w", grpcAddress, err)
	}
	healthServer := server.NewHealthServer(log, bus)
	go func() {
		if err := healthServer.Serve(listener); err != nil {
			errChan <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	// 8. Debug server: store inspection, metrics, health
	debugAddress := fmt.Sprintf("%s:%d", config.Host, config.DebugPort)
	debugServer := internal.NewDebugServer(debugAddress, db, metrics.Handler(),
		func() map[string]any { return monitoring.GetLatest().AsMap() },
		func(ctx context.Context) bool {
			status, err := healthServer.Check(ctx)
			return err == nil && status == healthpb.HealthCheckResponse_SERVING
		},
		log,
	)
	go func() {
		log.Info("Debug inspector available", "url", fmt.Sprintf("http://%s/inspect", debugAddress))
		if err := debugServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("debug server error: %w", err)
		}
	}()

	// 9. Wait for Stop or Error
	code := exitOK
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err = <-errChan:
		log.Error("Component failed, shutting down", "error", err)
		code = exitRuntime
	}
	stop()

	// 10. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	healthServer.Shutdown()
	if shutdownErr := chatServer.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Warn("Chat server shutdown", "error", shutdownErr)
	}
	if shutdownErr := wsServer.Wait(shutdownCtx); shutdownErr != nil {
		log.Warn("Open chats did not finish in time", "error", shutdownErr)
	}
	if shutdownErr := debugServer.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Warn("Debug server shutdown", "error", shutdownErr)
	}
	orchestrator.Stop()
	<-workersDone
	log.Info("Program stopped cleanly")

	return code, err
}

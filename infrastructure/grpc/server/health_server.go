package server

import (
	"context"
	"log/slog"
	"net"
	"random-chat/contract"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the name probed by orchestrators for the chat service itself.
const ServiceName = "randomchat.Chat"

// HealthServer exposes the standard gRPC health protocol. The chat service is
// reported SERVING while the delivery bus is up and NOT_SERVING once shutdown starts.
type HealthServer struct {
	log    *slog.Logger
	health *health.Server
	grpc   *grpc.Server
	bus    contract.IBus
}

func NewHealthServer(log *slog.Logger, bus contract.IBus) *HealthServer {
	h := &HealthServer{
		log:    log,
		health: health.NewServer(),
		grpc:   grpc.NewServer(),
		bus:    bus,
	}
	healthpb.RegisterHealthServer(h.grpc, h.health)
	h.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	h.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return h
}

// Serve blocks until the listener fails or Stop is called.
func (h *HealthServer) Serve(lis net.Listener) error {
	h.log.Info("gRPC health service listening", "addr", lis.Addr().String())
	return h.grpc.Serve(lis)
}

// Check answers in-process probes with the same status as the gRPC service.
func (h *HealthServer) Check(ctx context.Context) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := h.health.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	h.log.Debug("Health probed", "status", resp.Status, "endpoints", h.bus.Endpoints())
	return resp.Status, nil
}

// Shutdown flips every service to NOT_SERVING, then stops the gRPC server
// after in-flight probes are answered.
func (h *HealthServer) Shutdown() {
	h.health.Shutdown()
	h.grpc.GracefulStop()
}

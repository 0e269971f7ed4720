package daemon

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"ainotes/internal/logging"
)

// healthServer exposes the standard gRPC health service. A blank bind
// disables it.
type healthServer struct {
	bind   string
	logger *slog.Logger

	status   *health.Server
	server   *grpc.Server
	listener net.Listener
}

func newHealthServer(bind string, logger *slog.Logger) *healthServer {
	return &healthServer{
		bind:   strings.TrimSpace(bind),
		logger: logging.NewComponentLogger(logger, "health"),
	}
}

func (h *healthServer) start() error {
	if h.bind == "" {
		return nil
	}
	listener, err := net.Listen("tcp", h.bind)
	if err != nil {
		return fmt.Errorf("health listen: %w", err)
	}
	h.listener = listener
	h.server = grpc.NewServer()
	h.status = health.NewServer()
	healthpb.RegisterHealthServer(h.server, h.status)
	h.status.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	go func() {
		if err := h.server.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			h.logger.Error("health server error", logging.Error(err))
		}
	}()
	h.logger.Info("health server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (h *healthServer) setServing(serving bool) {
	if h.status == nil {
		return
	}
	if serving {
		h.status.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		return
	}
	h.status.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
}

func (h *healthServer) stop() {
	if h.server == nil {
		return
	}
	h.status.Shutdown()
	h.server.GracefulStop()
	h.server = nil
	h.status = nil
	h.listener = nil
}

func (h *healthServer) addr() string {
	if h.listener == nil {
		return ""
	}
	return h.listener.Addr().String()
}

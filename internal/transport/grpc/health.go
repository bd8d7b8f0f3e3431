// Package grpc exposes the standard gRPC health service, driven by store pings.
package grpc

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name reported next to the overall ("") status.
const ServiceName = "producttags.ProductService"

// Pinger checks that a dependency answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthServer reports SERVING while the pinger answers and NOT_SERVING otherwise.
type HealthServer struct {
	*health.Server
	pinger  Pinger
	timeout time.Duration
	logger  *slog.Logger
}

func NewHealthServer(pinger Pinger, timeout time.Duration, logger *slog.Logger) *HealthServer {
	s := &HealthServer{
		Server:  health.NewServer(),
		pinger:  pinger,
		timeout: timeout,
		logger:  logger.With("component", "health"),
	}
	s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// Probe pings once and updates the reported status.
func (s *HealthServer) Probe(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	pingCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.pinger.Ping(pingCtx); err != nil {
		s.logger.WarnContext(ctx, "Store ping failed", "error", err)
		s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
		return healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.setStatus(healthpb.HealthCheckResponse_SERVING)
	return healthpb.HealthCheckResponse_SERVING
}

// Run checks immediately and then at every interval until ctx is done.
// On return every service is marked NOT_SERVING.
func (s *HealthServer) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	s.Probe(ctx)
	for {
		select {
		case <-ctx.Done():
			s.Shutdown()
			return
		case <-ticker.C:
			s.Probe(ctx)
		}
	}
}

func (s *HealthServer) setStatus(status healthpb.HealthCheckResponse_ServingStatus) {
	s.SetServingStatus("", status)
	s.SetServingStatus(ServiceName, status)
}

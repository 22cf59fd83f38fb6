package health

import (
	"context"
	"fmt"
	"net"
	"time"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/vietddude/overseer/internal/core/domain"
)

// GRPCServer serves the standard gRPC health protocol. The overall system
// status is exposed under the empty service name, and each tracked agent
// under its own name.
type GRPCServer struct {
	monitor *Monitor
	server  *grpc.Server
	health  *grpchealth.Server
	port    int
}

// NewGRPCServer creates a gRPC health server on the given port.
func NewGRPCServer(monitor *Monitor, port int) *GRPCServer {
	s := &GRPCServer{
		monitor: monitor,
		server:  grpc.NewServer(),
		health:  grpchealth.NewServer(),
		port:    port,
	}
	healthpb.RegisterHealthServer(s.server, s.health)
	return s
}

// Start listens and serves until Stop is called.
func (s *GRPCServer) Start() error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("failed to listen on grpc port %d: %w", s.port, err)
	}
	return s.server.Serve(lis)
}

// Stop gracefully stops the server.
func (s *GRPCServer) Stop() {
	s.health.Shutdown()
	s.server.GracefulStop()
}

// Run refreshes the served statuses on the given interval until the context
// is cancelled.
func (s *GRPCServer) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	s.refresh(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refresh(ctx)
		}
	}
}

func (s *GRPCServer) refresh(ctx context.Context) {
	report := s.monitor.CheckHealth(ctx)

	overall := healthpb.HealthCheckResponse_SERVING
	if report.SystemStatus == StatusCritical {
		overall = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", overall)

	for name, agent := range report.Agents {
		status := healthpb.HealthCheckResponse_NOT_SERVING
		if agent.Status == domain.AgentStatusActive {
			status = healthpb.HealthCheckResponse_SERVING
		}
		s.health.SetServingStatus(name, status)
	}
}

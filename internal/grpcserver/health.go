package grpcserver

import (
	"context"
	"log/slog"
	"net"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"tasky-chat/internal/observability"
)

type pinger interface {
	PingContext(ctx context.Context) error
}

// Server is the internal gRPC endpoint. It only serves grpc.health.v1.Health.
type Server struct {
	grpc    *grpc.Server
	health  *health.Server
	service string
	log     *slog.Logger
}

// New builds a Server whose health reports NOT_SERVING until the first database check.
func New(service string, log *slog.Logger) *Server {
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.UnaryInterceptor(observability.GRPCServerMetricsUnaryInterceptor()),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(service, healthpb.HealthCheckResponse_NOT_SERVING)
	return &Server{grpc: srv, health: hs, service: service, log: log}
}

// Serve blocks until the listener fails or Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// Stop drains in-flight calls.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}

// WatchDatabase flips the serving status with each database ping until ctx ends.
func (s *Server) WatchDatabase(ctx context.Context, db pinger, interval time.Duration) {
	s.check(ctx, db)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.check(ctx, db)
		}
	}
}

func (s *Server) check(ctx context.Context, db pinger) {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := db.PingContext(pingCtx); err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
		s.log.Warn("database ping failed", "err", err)
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(s.service, status)
}

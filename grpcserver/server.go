package grpcserver

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/ziflex/lecho/v3"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the name the payment service reports health under.
const ServiceName = "upiverify.PaymentService"

type HealthCheck = func(ctx context.Context) error

type Server struct {
	grpc   *grpc.Server
	health *health.Server
	check  HealthCheck
	logger *lecho.Logger
}

func NewGrpcServer(check HealthCheck, logger *lecho.Logger) *Server {
	s := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(s, healthServer)
	reflection.Register(s)
	healthServer.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &Server{
		grpc:   s,
		health: healthServer,
		check:  check,
		logger: logger,
	}
}

// Refresh runs the health check once and publishes the result for both the
// overall server and ServiceName.
func (s *Server) Refresh(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	if err := s.check(ctx); err != nil {
		s.logger.Errorf("gRPC health check failed: %v", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// Serve serves on lis and refreshes the health status every interval until
// ctx is cancelled, then stops gracefully.
func (s *Server) Serve(ctx context.Context, lis net.Listener, interval time.Duration) error {
	s.Refresh(ctx)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.health.Shutdown()
				s.grpc.GracefulStop()
				return
			case <-ticker.C:
				s.Refresh(ctx)
			}
		}
	}()
	s.logger.Infof("gRPC server started at %v", lis.Addr())
	return s.grpc.Serve(lis)
}

func StartGrpcServer(ctx context.Context, port int, check HealthCheck, logger *lecho.Logger) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("failed to start grpc server: %w", err)
	}
	return NewGrpcServer(check, logger).Serve(ctx, lis, 10*time.Second)
}

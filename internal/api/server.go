package api

import (
	"context"
	"fmt"
	"net"
	"time"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/miradorstack/posture-dashboard/internal/config"
	"github.com/miradorstack/posture-dashboard/internal/models"
)

// DatasetServicePrefix prefixes the health service name of each dataset.
const DatasetServicePrefix = "posture.dataset."

// Server is the ops gRPC endpoint: standard health checks, one health service
// per dataset, reflection and Prometheus interceptors.
type Server struct {
	cfg        config.ServerConfig
	grpcServer *grpc.Server
	healthSrv  *health.Server
	listener   net.Listener
}

// NewServer constructs a gRPC server bound to the configured ops address.
func NewServer(cfg config.ServerConfig, opts ...grpc.ServerOption) (*Server, error) {
	lis, err := net.Listen("tcp", cfg.OpsAddress)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", cfg.OpsAddress, err)
	}

	grpc_prometheus.EnableHandlingTimeHistogram()
	serverOpts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(grpc_prometheus.UnaryServerInterceptor),
		grpc.ChainStreamInterceptor(grpc_prometheus.StreamServerInterceptor),
	}
	serverOpts = append(serverOpts, opts...)
	grpcServer := grpc.NewServer(serverOpts...)

	healthSrv := health.NewServer()
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	for _, d := range models.Datasets {
		healthSrv.SetServingStatus(DatasetServiceName(d.Name), healthpb.HealthCheckResponse_UNKNOWN)
	}
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	grpc_prometheus.Register(grpcServer)

	reflection.Register(grpcServer)

	return &Server{
		cfg:        cfg,
		grpcServer: grpcServer,
		healthSrv:  healthSrv,
		listener:   lis,
	}, nil
}

// DatasetServiceName returns the health service name for dataset.
func DatasetServiceName(dataset string) string {
	return DatasetServicePrefix + dataset
}

// SetDatasetHealth publishes whether the last cycle produced dataset.
func (s *Server) SetDatasetHealth(dataset string, available bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if available {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.healthSrv.SetServingStatus(DatasetServiceName(dataset), status)
}

// Start serves incoming gRPC requests until Stop/Shutdown is invoked.
func (s *Server) Start() error {
	if s.grpcServer == nil || s.listener == nil {
		return fmt.Errorf("server not initialised")
	}
	return s.grpcServer.Serve(s.listener)
}

// Shutdown marks every service not serving, then stops gracefully, falling
// back to Stop after the context expires.
func (s *Server) Shutdown(ctx context.Context) {
	if s.grpcServer == nil {
		return
	}
	s.healthSrv.Shutdown()

	stopped := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-ctx.Done():
		s.grpcServer.Stop()
	case <-stopped:
	}
}

// Address exposes the bound listener address.
func (s *Server) Address() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// GracefulTimeout returns the configured graceful timeout duration.
func (s *Server) GracefulTimeout() time.Duration {
	return s.cfg.GracefulTimeout
}

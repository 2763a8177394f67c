// Package grpc exposes the standard gRPC health service for the orchestrator.
package grpc

import (
	"context"
	"fmt"
	"net"

	"github.com/aescanero/agentflow/internal/application/orchestrator"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service name reported for the orchestrator.
const ServiceName = "agentflow.Orchestrator"

// Server represents the gRPC API server
type Server struct {
	server       *grpc.Server
	listener     net.Listener
	health       *health.Server
	orchestrator *orchestrator.Manager
	logger       *zap.Logger
}

// Config holds gRPC server configuration
type Config struct {
	Port         int
	Orchestrator *orchestrator.Manager
	Logger       *zap.Logger
}

// NewServer creates a new gRPC server listening on cfg.Port
func NewServer(cfg *Config) (*Server, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return nil, fmt.Errorf("failed to create listener: %w", err)
	}
	return newServer(listener, cfg), nil
}

func newServer(listener net.Listener, cfg *Config) *Server {
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()

	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	healthServer.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	return &Server{
		server:       grpcServer,
		listener:     listener,
		health:       healthServer,
		orchestrator: cfg.Orchestrator,
		logger:       cfg.Logger,
	}
}

// Addr returns the listener address
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Start starts the gRPC server
func (s *Server) Start() error {
	s.logger.Info("starting gRPC server", zap.String("addr", s.listener.Addr().String()))

	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	if err := s.server.Serve(s.listener); err != nil {
		return fmt.Errorf("failed to serve gRPC: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server, falling back to a hard stop
// when ctx expires first.
func (s *Server) Shutdown(ctx context.Context) error {
	fields := []zap.Field{}
	if s.orchestrator != nil {
		fields = append(fields, zap.Int("active_runs", s.orchestrator.ActiveRuns()))
	}
	s.logger.Info("shutting down gRPC server", fields...)

	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.server.Stop()
		return fmt.Errorf("gRPC shutdown timeout: %w", ctx.Err())
	}

	s.logger.Info("gRPC server shut down complete")
	return nil
}

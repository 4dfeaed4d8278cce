package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"hydration-user-service/cmd/api/di"
	"hydration-user-service/internal/config"
)

// Server struct holds all server dependencies
type Server struct {
	Config *config.Config
	Logger *zap.Logger
	GRPC   *grpc.Server
	Gin    *http.Server
}

// New creates a new server instance
func New(cfg *config.Config, l *zap.Logger, c *di.Container) (*Server, error) {
	ginServer, err := SetupGinServer(
		c.Handlers,
		c.Sessions,
		c.Limiter,
		c.RateLimit,
		cfg.App.TrustedProxies,
		cfg.App.Environment,
		":"+cfg.App.HTTPPort,
		l,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to set up HTTP server: %w", err)
	}

	return &Server{
		Config: cfg,
		Logger: l,
		GRPC:   SetupGRPC(c.Procedures, l, c.GRPCRateLimiter),
		Gin:    ginServer,
	}, nil
}

// Start runs the gRPC and HTTP servers and returns when the first one stops.
func (s *Server) Start() error {
	errCh := make(chan error, 2)
	go func() { errCh <- s.startGRPC() }()
	go func() { errCh <- s.startGin() }()
	return <-errCh
}

// startGRPC starts the gRPC server
func (s *Server) startGRPC() error {
	lc := net.ListenConfig{}
	lis, err := lc.Listen(context.Background(), "tcp", s.grpcAddress())
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	s.Logger.Info("gRPC server running", zap.String("address", s.grpcAddress()))
	if err := s.GRPC.Serve(lis); err != nil {
		return fmt.Errorf("failed to start gRPC server: %w", err)
	}
	return nil
}

// startGin starts the HTTP server
func (s *Server) startGin() error {
	s.Logger.Info("HTTP server running", zap.String("address", s.Gin.Addr))
	if err := s.Gin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// grpcAddress returns the gRPC server address
func (s *Server) grpcAddress() string {
	return ":" + s.Config.App.GRPCPort
}

package server

import (
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	usersapi "hydration-user-service/api/users"
	grpcadapter "hydration-user-service/internal/adapter/grpc"
	"hydration-user-service/internal/adapter/grpc/middleware"
	"hydration-user-service/internal/adapter/rpc"
	"hydration-user-service/pkg/logger"
)

// SetupGRPC creates the gRPC server exposing the procedures registered on router
func SetupGRPC(router *rpc.Router, l *zap.Logger, rateLimiter *middleware.RateLimiter) *grpc.Server {
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			logger.RequestIDInterceptor(),
			logger.LoggingInterceptor(l),
			rateLimiter.UnaryInterceptor(),
		),
	)
	usersapi.RegisterUserServiceServer(grpcServer, grpcadapter.NewUserServiceServer(router))

	healthServer := health.NewServer()
	healthServer.SetServingStatus(usersapi.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	return grpcServer
}

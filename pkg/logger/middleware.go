package logger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// RequestIDHeader is the header (and gRPC metadata key) used to propagate request IDs.
const RequestIDHeader = "x-request-id"

// RequestIDInterceptor is a gRPC interceptor that adds a request ID to the context.
// An incoming x-request-id metadata value is reused, otherwise a new one is generated.
func RequestIDInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		requestID := ""
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if values := md.Get(RequestIDHeader); len(values) > 0 {
				requestID = values[0]
			}
		}
		if requestID == "" {
			requestID = uuid.New().String()
		}

		return handler(ContextWithRequestID(ctx, requestID), req)
	}
}

// LoggingInterceptor logs every unary call with its duration and resulting code.
func LoggingInterceptor(l *zap.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", status.Code(err).String()),
			zap.Duration("duration", time.Since(start)),
		}
		if err != nil {
			WithContext(ctx, l).Warn("grpc call failed", append(fields, zap.Error(err))...)
		} else {
			WithContext(ctx, l).Info("grpc call", fields...)
		}

		return resp, err
	}
}

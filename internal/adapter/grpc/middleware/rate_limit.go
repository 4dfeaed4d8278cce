package middleware

import (
	"context"
	"net"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"hydration-user-service/pkg/logger"
	"hydration-user-service/pkg/ratelimit"
	"hydration-user-service/pkg/security"
)

// healthMethodPrefix marks probes that are never limited.
const healthMethodPrefix = "/grpc.health.v1.Health/"

// RateLimiter limits unary calls per method and client address.
type RateLimiter struct {
	limiter ratelimit.Limiter
	config  ratelimit.Config
	trusted security.TrustedProxies
	log     *zap.Logger
}

// NewRateLimiter creates a new rate limiter interceptor. Forwarded client
// metadata is only honoured when the peer is one of trusted.
func NewRateLimiter(limiter ratelimit.Limiter, config ratelimit.Config, trusted security.TrustedProxies, log *zap.Logger) *RateLimiter {
	return &RateLimiter{
		limiter: limiter,
		config:  config,
		trusted: trusted,
		log:     log,
	}
}

// UnaryInterceptor rejects calls over the limit with ResourceExhausted.
// Limiter errors let the call through.
func (rl *RateLimiter) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !rl.config.Enabled || rl.limiter == nil || strings.HasPrefix(info.FullMethod, healthMethodPrefix) {
			return handler(ctx, req)
		}

		client := clientAddr(ctx, rl.trusted)
		log := logger.WithContext(ctx, rl.log).With(
			zap.String("client_ip", client),
			zap.String("method", info.FullMethod),
		)

		allowed, err := rl.limiter.Allow(ctx, "ratelimit:tb:"+info.FullMethod+":"+client)
		switch {
		case err != nil:
			log.Warn("rate limiter error, allowing request", zap.Error(err))
		case !allowed:
			log.Warn("rate limit exceeded", zap.Float64("limit", rl.config.RequestsPerSecond))
			return nil, status.Errorf(codes.ResourceExhausted,
				"rate limit exceeded: %.2f requests/second (burst capacity: %d)",
				rl.config.RequestsPerSecond, rl.config.BurstCapacity)
		}

		return handler(ctx, req)
	}
}

// clientAddr returns the peer IP without its port. When the peer is a
// trusted proxy the first x-forwarded-for hop, then x-real-ip, win.
func clientAddr(ctx context.Context, trusted security.TrustedProxies) string {
	host := "unknown"
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		host = p.Addr.String()
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}
	}

	if !trusted.Contains(host) {
		return host
	}

	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if xff := md.Get("x-forwarded-for"); len(xff) > 0 {
			if first, _, _ := strings.Cut(xff[0], ","); strings.TrimSpace(first) != "" {
				return strings.TrimSpace(first)
			}
		}
		if xri := md.Get("x-real-ip"); len(xri) > 0 && xri[0] != "" {
			return xri[0]
		}
	}

	return host
}

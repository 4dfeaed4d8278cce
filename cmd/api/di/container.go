package di

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"hydration-user-service/cmd/api/infrastructure"
	"hydration-user-service/internal/adapter/db/postgres"
	ginhandler "hydration-user-service/internal/adapter/gin/handler"
	ginmiddleware "hydration-user-service/internal/adapter/gin/middleware"
	ginrouter "hydration-user-service/internal/adapter/gin/router"
	grpcmiddleware "hydration-user-service/internal/adapter/grpc/middleware"
	"hydration-user-service/internal/adapter/repository/cached"
	"hydration-user-service/internal/adapter/rpc"
	"hydration-user-service/internal/auth"
	"hydration-user-service/internal/config"
	"hydration-user-service/internal/usecase/user"
	"hydration-user-service/pkg/ratelimit"
	redisclient "hydration-user-service/pkg/redis"
	"hydration-user-service/pkg/security"
)

// Container holds all application dependencies
type Container struct {
	Config          *config.Config
	Logger          *zap.Logger
	DB              *gorm.DB
	RedisClient     *redisclient.Client
	UserUC          user.Usecase
	Procedures      *rpc.Router
	Sessions        *ginmiddleware.Sessions
	Limiter         ratelimit.Limiter
	RateLimit       ratelimit.Config
	GRPCRateLimiter *grpcmiddleware.RateLimiter
	Handlers        ginrouter.Handlers
}

// NewContainer creates and initializes all application dependencies
func NewContainer(ctx context.Context, cfg *config.Config, l *zap.Logger) (*Container, error) {
	// Validate configuration before initializing any dependencies
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	c := &Container{Config: cfg, Logger: l}

	db, err := infrastructure.NewDatabase(ctx, cfg, l)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	c.DB = db

	// Redis backs the shared cache when CACHE_DRIVER=redis. With the memory
	// driver it is optional and only used for rate limiting.
	rdb, err := infrastructure.NewRedisClient(ctx, cfg, l)
	if err != nil {
		if cfg.Cache.Driver == "redis" {
			_ = c.Close()
			return nil, fmt.Errorf("failed to initialize Redis: %w", err)
		}
		l.Warn("redis unavailable, using in-process rate limiting", zap.Error(err))
	}
	c.RedisClient = rdb

	userCache, err := infrastructure.NewUserListCache(cfg, rdb, l)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}

	dbRepo := postgres.NewUserRepoPG(db, l)
	repo := cached.NewCachedUserRepository(dbRepo, userCache, l)
	c.UserUC = user.New(repo, l)

	if cfg.DB.Seed {
		if err := infrastructure.SeedUsers(ctx, c.UserUC, l); err != nil {
			_ = c.Close()
			return nil, err
		}
	}

	c.Procedures = rpc.NewRouter(l)
	rpc.RegisterUserProcedures(c.Procedures, c.UserUC)

	c.RateLimit = ratelimit.Config{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		BurstCapacity:     cfg.RateLimit.BurstCapacity,
		Enabled:           cfg.RateLimit.Enabled,
	}
	var limiterClient *redis.Client
	if rdb != nil {
		limiterClient = rdb.Client
	}
	c.Limiter = ratelimit.New(limiterClient, c.RateLimit, l)
	proxies, err := security.ParseTrustedProxies(cfg.App.TrustedProxies)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	c.GRPCRateLimiter = grpcmiddleware.NewRateLimiter(c.Limiter, c.RateLimit, proxies, l)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLMinutes)*time.Minute)
	c.Sessions = ginmiddleware.NewSessions(tokens, c.UserUC, ginmiddleware.SessionConfig{
		CookieName: cfg.Auth.CookieName,
		Secure:     cfg.Auth.CookieSecure,
		LoginPath:  cfg.Auth.LoginPath,
		HomePath:   cfg.Auth.HomePath,
	}, l)

	c.Handlers = ginrouter.Handlers{
		Pages:  ginhandler.NewPageHandler(c.Procedures, time.Duration(cfg.Query.StaleTimeSeconds)*time.Second, l),
		Auth:   ginhandler.NewAuthHandler(c.UserUC, c.Sessions, l),
		RPC:    ginhandler.NewRPCHandler(c.Procedures, l),
		Health: ginhandler.NewHealthHandler(c.healthChecks(), l),
	}

	return c, nil
}

func (c *Container) healthChecks() map[string]ginhandler.HealthCheck {
	checks := map[string]ginhandler.HealthCheck{
		"database": func(ctx context.Context) error {
			sqlDB, err := c.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if c.RedisClient != nil {
		checks["redis"] = c.RedisClient.Ping
	}
	return checks
}

// Close closes all resources held by the container
func (c *Container) Close() error {
	var errs []error

	// Close Redis connection
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Redis: %w", err))
		}
	}

	// Close database connection
	if c.DB != nil {
		if err := infrastructure.CloseDatabase(c.DB); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("container close errors: %v", errs)
	}

	return nil
}

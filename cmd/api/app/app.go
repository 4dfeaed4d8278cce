package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"hydration-user-service/cmd/api/di"
	"hydration-user-service/cmd/api/server"
	"hydration-user-service/internal/config"
	"hydration-user-service/pkg/logger"
)

// App represents the application
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Server    *server.Server
	Container *di.Container
}

// New creates a new application instance
func New(ctx context.Context) (*App, error) {
	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	l, err := initLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	// Create DI container
	container, err := di.NewContainer(ctx, cfg, l)
	if err != nil {
		return nil, fmt.Errorf("failed to create container: %w", err)
	}

	// Create server instance
	srv, err := server.New(cfg, l, container)
	if err != nil {
		_ = container.Close()
		return nil, err
	}

	return &App{
		Config:    cfg,
		Logger:    l,
		Server:    srv,
		Container: container,
	}, nil
}

// Run serves until ctx is canceled or a server fails, then shuts down.
func (a *App) Run(ctx context.Context) error {
	a.Logger.Info("starting application",
		zap.String("service", a.Config.Logger.ServiceName),
		zap.String("version", a.Config.Logger.ServiceVersion),
		zap.String("environment", a.Config.App.Environment),
		zap.String("db_driver", a.Config.DB.Driver),
		zap.String("cache_driver", a.Config.Cache.Driver),
	)

	errChan := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				a.Logger.Error("panic recovered in server", zap.Any("panic", r), zap.Stack("stack"))
				errChan <- fmt.Errorf("server panic: %v", r)
			}
		}()
		errChan <- a.Server.Start()
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.Logger.Info("shutdown signal received")
	case err := <-errChan:
		if err != nil {
			runErr = fmt.Errorf("server error: %w", err)
			a.Logger.Error("server stopped", zap.Error(err))
		}
	}

	return errors.Join(runErr, a.shutdown())
}

// shutdown stops accepting requests, drains in-flight ones within the
// configured timeout and releases the container.
func (a *App) shutdown() error {
	timeout := time.Duration(a.Config.App.ShutdownTimeoutSeconds) * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	a.Logger.Info("starting graceful shutdown", zap.Duration("timeout", timeout))

	var errs []error

	if a.Server.Gin != nil {
		if err := a.Server.Gin.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("HTTP shutdown: %w", err))
		}
	}

	if a.Server.GRPC != nil {
		stopped := make(chan struct{})
		go func() {
			a.Server.GRPC.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-shutdownCtx.Done():
			a.Logger.Warn("gRPC graceful stop timed out, forcing")
			a.Server.GRPC.Stop()
		}
	}

	if err := a.Container.Close(); err != nil {
		errs = append(errs, fmt.Errorf("container close: %w", err))
	}

	err := errors.Join(errs...)
	if err != nil {
		a.Logger.Error("shutdown finished with errors", zap.Error(err))
	} else {
		a.Logger.Info("application shutdown complete")
	}

	return errors.Join(err, logger.Sync(a.Logger))
}

// loadConfig loads application configuration
func loadConfig() (*config.Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "."
	}
	return config.LoadConfig(path)
}

// initLogger initializes the application logger
func initLogger(cfg *config.Config) (*zap.Logger, error) {
	return logger.NewWithConfig(logger.Config{
		Level:            cfg.Logger.Level,
		Format:           cfg.Logger.Format,
		OutputPath:       cfg.Logger.OutputPath,
		SlowQuerySeconds: cfg.Logger.SlowQuerySeconds,
		EnableSampling:   cfg.Logger.EnableSampling,
		ServiceName:      cfg.Logger.ServiceName,
		ServiceVersion:   cfg.Logger.ServiceVersion,
		Environment:      cfg.App.Environment,
	})
}

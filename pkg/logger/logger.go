package logger

import (
	"errors"
	"os"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config represents logger configuration
type Config struct {
	Level            string  // debug, info, warn, error
	Format           string  // json, console
	OutputPath       string  // stdout, stderr, or file path
	SlowQuerySeconds float64 // slow query threshold
	EnableSampling   bool    // enable sampling for production
	ServiceName      string
	ServiceVersion   string
	Environment      string

	// File rotation, used when OutputPath is a file.
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// NewWithConfig builds the service logger. Every entry carries the service,
// version and environment fields.
func NewWithConfig(cfg Config) (*zap.Logger, error) {
	core := zapcore.NewCore(newEncoder(cfg), newWriteSyncer(cfg), parseLogLevel(cfg.Level))

	if cfg.EnableSampling {
		// First 100 entries per second per message, then every 10th.
		core = zapcore.NewSamplerWithOptions(core, time.Second, 100, 10)
	}

	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)).With(
		zap.String("service", cfg.ServiceName),
		zap.String("version", cfg.ServiceVersion),
		zap.String("environment", cfg.Environment),
	), nil
}

// Sync flushes l, ignoring the errors terminals return for fsync.
func Sync(l *zap.Logger) error {
	err := l.Sync()
	if errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) {
		return nil
	}
	return err
}

func newEncoder(cfg Config) zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "timestamp"
	ec.MessageKey = "message"
	ec.FunctionKey = zapcore.OmitKey
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	ec.EncodeDuration = zapcore.SecondsDurationEncoder

	if cfg.Format == "json" {
		return zapcore.NewJSONEncoder(ec)
	}
	if cfg.Environment != "production" {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return zapcore.NewConsoleEncoder(ec)
}

// parseLogLevel maps a configured level name to zap; unknown names mean info.
func parseLogLevel(level string) zapcore.Level {
	name := strings.ToLower(strings.TrimSpace(level))
	if name == "warning" {
		name = "warn"
	}
	parsed, err := zapcore.ParseLevel(name)
	if err != nil {
		return zapcore.InfoLevel
	}
	return parsed
}

func newWriteSyncer(cfg Config) zapcore.WriteSyncer {
	switch cfg.OutputPath {
	case "stdout", "":
		return zapcore.Lock(os.Stdout)
	case "stderr":
		return zapcore.Lock(os.Stderr)
	}

	rotate := &lumberjack.Logger{
		Filename:   cfg.OutputPath,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}
	if rotate.MaxSize <= 0 {
		rotate.MaxSize = 100
	}
	if rotate.MaxBackups <= 0 {
		rotate.MaxBackups = 3
	}
	if rotate.MaxAge <= 0 {
		rotate.MaxAge = 28
	}
	return zapcore.AddSync(rotate)
}

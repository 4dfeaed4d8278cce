package logger

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

func TestNewWithConfig_JSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	l, err := NewWithConfig(Config{
		Level:          "info",
		Format:         "json",
		OutputPath:     path,
		ServiceName:    "hydration-user-service",
		ServiceVersion: "1.2.3",
		Environment:    "test",
	})
	require.NoError(t, err)

	l.Debug("dropped")
	l.Info("kept", zap.Int("users", 2))
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "kept", entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "hydration-user-service", entry["service"])
	assert.Equal(t, "1.2.3", entry["version"])
	assert.Equal(t, "test", entry["environment"])
	assert.Equal(t, float64(2), entry["users"])
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLogLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLogLevel("warning"))
	assert.Equal(t, zapcore.InfoLevel, parseLogLevel("verbose"))
}

func TestWithContext(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	ctx := ContextWithUserID(ContextWithRequestID(context.Background(), "req-1"), 42)
	WithContext(ctx, base).Info("hello")
	WithContext(context.Background(), base).Info("bare")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, map[string]any{"request_id": "req-1", "user_id": int64(42)}, entries[0].ContextMap())
	assert.Empty(t, entries[1].ContextMap())

	_, ok := GetUserID(ContextWithUserID(context.Background(), 0))
	assert.False(t, ok)
}

func TestInterceptors(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	info := &grpc.UnaryServerInfo{FullMethod: "/users.UserService/GetUsers"}

	var seen string
	handler := func(ctx context.Context, req any) (any, error) {
		seen = GetRequestID(ctx)
		return "ok", nil
	}
	chain := func(ctx context.Context) {
		_, err := RequestIDInterceptor()(ctx, nil, info, func(ctx context.Context, req any) (any, error) {
			return LoggingInterceptor(zap.New(core))(ctx, req, info, handler)
		})
		require.NoError(t, err)
	}

	t.Run("Reuses incoming metadata", func(t *testing.T) {
		ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(RequestIDHeader, "from-client"))
		chain(ctx)
		assert.Equal(t, "from-client", seen)
	})

	t.Run("Generates an id", func(t *testing.T) {
		chain(context.Background())
		assert.Len(t, seen, 36)
	})

	entries := logs.FilterMessage("grpc call").All()
	require.Len(t, entries, 2)
	assert.Equal(t, "OK", entries[0].ContextMap()["code"])
	assert.Equal(t, "from-client", entries[0].ContextMap()["request_id"])
}

package logger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"gitlab.com/simigo/client/datacore/pkg/contextkeys"
)

func TestContextFieldsAreLifted(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewFromZap(zap.New(core))

	ctx := context.WithValue(context.Background(), contextkeys.RequestIDKey, "req-1")
	ctx = context.WithValue(ctx, contextkeys.CacheKeyKey, "orders:v1")
	l.Info(ctx, "cache hit", "stale", false, "err", errors.New("boom"))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "orders:v1", fields["cache_key"])
	assert.Equal(t, false, fields["stale"])
	assert.Equal(t, "boom", fields["err"])
}

func TestWithAndOddFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewFromZap(zap.New(core)).With("component", "coordinator")

	l.Warn(context.Background(), "odd", "lonely")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "coordinator", fields["component"])
	assert.Equal(t, "lonely", fields["orphan_field_0"])
}

func TestLevelFiltering(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	l := NewFromZap(zap.New(core))

	l.Debug(context.Background(), "hidden")
	l.Info(context.Background(), "hidden")
	l.Error(context.Background(), "shown")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "shown", logs.All()[0].Message)
}

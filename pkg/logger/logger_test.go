package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// swapGlobal installs an observed logger for the duration of the test.
func swapGlobal(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	mu.Lock()
	prev := globalLogger
	globalLogger = zap.New(core)
	mu.Unlock()
	t.Cleanup(func() {
		mu.Lock()
		globalLogger = prev
		mu.Unlock()
	})
	return logs
}

func TestWithContext(t *testing.T) {
	logs := swapGlobal(t)

	ctx := context.WithValue(context.Background(), RunIDKey, "run-42")
	ctx = context.WithValue(ctx, SourceKey, "jira")
	WithContext(ctx).Info("page processed")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "run-42", fields["run_id"])
	assert.Equal(t, "jira", fields["source"])
}

func TestWithContext_EmptyContext(t *testing.T) {
	logs := swapGlobal(t)

	WithContext(context.Background()).Info("no run fields")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Empty(t, entries[0].ContextMap())
}

func TestInitReplacesLogger(t *testing.T) {
	// Package-level init elsewhere may have pinned a default logger; a later
	// Init must still take effect.
	require.NotNil(t, Get())
	require.NoError(t, Init(Config{Level: "debug", Encoding: "json"}))
	assert.True(t, Get().Core().Enabled(zapcore.DebugLevel))
}

func TestInitInvalidLevel(t *testing.T) {
	assert.Error(t, Init(Config{Level: "chatty", Encoding: "json"}))
}

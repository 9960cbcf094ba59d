package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	err := New(ErrorTypeAuthentication, "invalid credentials")
	assert.Equal(t, "authentication: invalid credentials", err.Error())

	wrapped := Wrap(stderrors.New("connection reset"), ErrorTypeConnection, "HTTP request failed")
	assert.Equal(t, "connection: HTTP request failed: connection reset", wrapped.Error())
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrorTypeInternal, "ignored"))
}

func TestUnwrapChain(t *testing.T) {
	root := stderrors.New("root cause")
	wrapped := Wrap(root, ErrorTypeData, "failed to decode")
	outer := fmt.Errorf("page 3: %w", wrapped)

	assert.True(t, stderrors.Is(outer, root))
	assert.True(t, IsType(outer, ErrorTypeData))
	assert.Equal(t, ErrorTypeData, GetType(outer))
}

func TestRetryableClassification(t *testing.T) {
	tests := []struct {
		errType   ErrorType
		retryable bool
		fatal     bool
	}{
		{ErrorTypeConnection, true, false},
		{ErrorTypeRateLimit, true, false},
		{ErrorTypeTimeout, true, false},
		{ErrorTypeAuthentication, false, true},
		{ErrorTypePermission, false, true},
		{ErrorTypeConfig, false, true},
		{ErrorTypeState, false, true},
		{ErrorTypeData, false, false},
		{ErrorTypeInternal, false, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.errType), func(t *testing.T) {
			err := New(tt.errType, "boom")
			assert.Equal(t, tt.retryable, IsRetryable(err))
			assert.Equal(t, tt.fatal, IsFatal(err))
		})
	}
}

func TestPlainErrorsAreNeitherRetryableNorFatal(t *testing.T) {
	err := stderrors.New("plain")
	assert.False(t, IsRetryable(err))
	assert.False(t, IsFatal(err))
	assert.Equal(t, ErrorTypeInternal, GetType(err))
}

func TestWithDetail(t *testing.T) {
	err := New(ErrorTypeRateLimit, "throttled").
		WithDetail("status", 429).
		WithDetail("offset", 300)
	assert.Equal(t, 429, err.Details["status"])
	assert.Equal(t, 300, err.Details["offset"])
}

func TestStackCaptured(t *testing.T) {
	err := New(ErrorTypeInternal, "boom")
	require.NotEmpty(t, err.Stack)
	assert.Contains(t, err.Stack[0].Function, "TestStackCaptured")
}

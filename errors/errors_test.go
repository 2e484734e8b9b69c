package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClassString(t *testing.T) {
	assert.Equal(t, "transient", ErrorTransient.String())
	assert.Equal(t, "invalid", ErrorInvalid.String())
	assert.Equal(t, "fatal", ErrorFatal.String())
	assert.Equal(t, "unknown", ErrorClass(99).String())
}

func TestWrap(t *testing.T) {
	base := errors.New("boom")
	err := Wrap(base, "cache", "Put", "size accounting")
	require.Error(t, err)
	assert.Equal(t, "cache.Put: size accounting failed: boom", err.Error())
	assert.True(t, errors.Is(err, base))

	assert.NoError(t, Wrap(nil, "cache", "Put", "size accounting"))
}

func TestWrapInvalid(t *testing.T) {
	err := WrapInvalid(ErrInvalidConfig, "config", "Validate", "max size check")
	require.Error(t, err)

	var ce *ClassifiedError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, ErrorInvalid, ce.Class)
	assert.Equal(t, "config", ce.Component)
	assert.Equal(t, "Validate", ce.Operation)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
	assert.True(t, IsInvalid(err))
	assert.False(t, IsFatal(err))
	assert.False(t, IsTransient(err))
}

func TestWrapFatal(t *testing.T) {
	err := WrapFatal(errors.New("collector registration rejected"), "metric", "register", "collector registration")
	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.False(t, IsInvalid(err))
}

func TestWrapTransient(t *testing.T) {
	err := WrapTransient(errors.New("busy"), "writebuffer", "Enqueue", "admit")
	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.False(t, IsFatal(err))
}

func TestSentinelClassification(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", ErrInvalidData)
	assert.True(t, IsInvalid(wrapped))
	assert.False(t, IsInvalid(nil))
	assert.False(t, IsFatal(nil))
	assert.False(t, IsTransient(nil))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ErrorInvalid, Classify(ErrInvalidConfig))
	assert.Equal(t, ErrorFatal, Classify(WrapFatal(errors.New("boom"), "metric", "register", "collector registration")))
	assert.Equal(t, ErrorTransient, Classify(errors.New("unknown")))
}

func TestClassifiedErrorUnwrap(t *testing.T) {
	base := errors.New("root cause")
	err := WrapFatal(base, "cache", "Close", "flush")

	var ce *ClassifiedError
	require.True(t, errors.As(err, &ce))
	assert.True(t, errors.Is(ce.Unwrap(), base))
}

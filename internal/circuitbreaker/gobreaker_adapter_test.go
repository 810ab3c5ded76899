package circuitbreaker

import (
	"context"
	"fmt"
	"testing"
	"time"

	"spectral-workbench/internal/common/errors"
	"spectral-workbench/internal/common/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		MaxFailures:           2,
		Timeout:               50 * time.Millisecond,
		MaxConcurrentRequests: 1,
	}
}

func TestGoBreakerAdapter(t *testing.T) {
	logger := logging.GetGlobalLogger()

	t.Run("basic operation", func(t *testing.T) {
		cb := NewGoBreaker("test-basic", testConfig(), logger)
		assert.Equal(t, StateClosed, cb.State())

		err := cb.Execute(context.Background(), func() error { return nil })
		assert.NoError(t, err)
		assert.Equal(t, StateClosed, cb.State())
		assert.Equal(t, 1, cb.Stats().Successes)
	})

	t.Run("opens after consecutive failures", func(t *testing.T) {
		cb := NewGoBreaker("test-failures", testConfig(), logger)

		for i := 0; i < 2; i++ {
			err := cb.Execute(context.Background(), func() error {
				return fmt.Errorf("failure %d", i)
			})
			assert.Error(t, err)
			assert.False(t, IsOpenError(err))
		}
		assert.Equal(t, "open", cb.Stats().State)

		err := cb.Execute(context.Background(), func() error {
			t.Fatal("should not be called while open")
			return nil
		})
		require.Error(t, err)
		assert.True(t, IsOpenError(err))
		assert.True(t, errors.IsType(err, errors.ErrTypeConnection))
	})

	t.Run("recovers after timeout", func(t *testing.T) {
		cb := NewGoBreaker("test-recovery", testConfig(), logger)
		for i := 0; i < 2; i++ {
			_ = cb.Execute(context.Background(), func() error { return fmt.Errorf("down") })
		}
		require.Equal(t, StateOpen, cb.State())

		time.Sleep(80 * time.Millisecond)
		assert.Equal(t, StateHalfOpen, cb.State())

		require.NoError(t, cb.Execute(context.Background(), func() error { return nil }))
		assert.Equal(t, StateClosed, cb.State())
	})

	t.Run("client errors do not trip", func(t *testing.T) {
		cb := NewGoBreaker("test-client-errors", testConfig(), logger)
		for i := 0; i < 5; i++ {
			err := cb.Execute(context.Background(), func() error {
				return errors.NotFoundError("key")
			})
			assert.Error(t, err)
		}
		assert.Equal(t, StateClosed, cb.State())
	})

	t.Run("cancelled context skips the call", func(t *testing.T) {
		cb := NewGoBreaker("test-cancelled", testConfig(), logger)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		called := false
		err := cb.Execute(ctx, func() error {
			called = true
			return nil
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, called)
	})

	t.Run("invalid config falls back to defaults", func(t *testing.T) {
		cb := NewGoBreaker("test-invalid", Config{}, logger)
		for i := 0; i < 4; i++ {
			_ = cb.Execute(context.Background(), func() error { return fmt.Errorf("down") })
		}
		// DefaultConfig needs five failures.
		assert.Equal(t, StateClosed, cb.State())
	})
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.NoError(t, SharedCacheConfig.Validate())

	bad := DefaultConfig()
	bad.Timeout = 0
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.Interval = -time.Second
	assert.Error(t, bad.Validate())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(9).String())
}

package retry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func fast(attempts int) Policy {
	return Policy{Attempts: attempts, Base: time.Millisecond, Ceiling: 2 * time.Millisecond, Factor: 2}
}

func TestDo_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), fast(3), quiet, "op", func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("flaky")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	sentinel := errors.New("down")
	calls := 0
	_, err := Do(context.Background(), fast(2), quiet, "op", func(ctx context.Context) (int, error) {
		calls++
		return 0, sentinel
	})
	assert.ErrorIs(t, err, sentinel)
	assert.Contains(t, err.Error(), "gave up after 2 attempts")
	assert.Equal(t, 2, calls)
}

func TestDo_PermanentStopsImmediately(t *testing.T) {
	sentinel := errors.New("bad request")
	calls := 0
	_, err := Do(context.Background(), fast(5), quiet, "op", func(ctx context.Context) (int, error) {
		calls++
		return 0, Permanent(sentinel)
	})
	assert.ErrorIs(t, err, sentinel)
	assert.True(t, IsPermanent(err))
	assert.Equal(t, 1, calls)
}

func TestDo_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Do(ctx, fast(3), quiet, "op", func(ctx context.Context) (int, error) {
		t.Fatal("should not be called")
		return 0, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPolicy_DelayCapped(t *testing.T) {
	p := Policy{Base: time.Second, Ceiling: 3 * time.Second, Factor: 2}
	assert.Equal(t, time.Second, p.Delay(0))
	assert.Equal(t, 2*time.Second, p.Delay(1))
	assert.Equal(t, 3*time.Second, p.Delay(5))
}

func TestNewPolicy_ClampsAttempts(t *testing.T) {
	assert.Equal(t, 1, NewPolicy(0).Attempts)
	assert.Equal(t, 4, NewPolicy(4).Attempts)
}

package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tubescribe/tubescribe/model"
)

func noSleep(waits *[]time.Duration) Option {
	return WithSleep(func(_ context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	})
}

func TestDoSuccessFirstAttempt(t *testing.T) {
	var waits []time.Duration
	c := New(Policy{MaxAttempts: 3, BaseDelay: 5 * time.Second}, noSleep(&waits))

	calls := 0
	got, err := Do(context.Background(), c, func(context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	require.NoError(t, err)
	require.Equal(t, "ok", got)
	require.Equal(t, 1, calls)
	require.Empty(t, waits)
}

func TestDoRetryThenSuccess(t *testing.T) {
	var waits []time.Duration
	c := New(Policy{MaxAttempts: 3, BaseDelay: 5 * time.Second}, noSleep(&waits))

	calls := 0
	got, err := Do(context.Background(), c, func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, fmt.Errorf("upstream: %w", model.ErrRateLimited)
		}
		return 42, nil
	})
	require.NoError(t, err)
	require.Equal(t, 42, got)
	require.Equal(t, 3, calls)
	require.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second}, waits)
}

func TestDoBackoffSequenceAndExhaustion(t *testing.T) {
	var waits []time.Duration
	c := New(Policy{MaxAttempts: 3, BaseDelay: 5 * time.Second}, noSleep(&waits))

	calls := 0
	_, err := Do(context.Background(), c, func(context.Context) (string, error) {
		calls++
		return "", fmt.Errorf("upstream: %w", model.ErrTransientNetwork)
	})
	require.ErrorIs(t, err, model.ErrExhaustedRetries)
	require.ErrorIs(t, err, model.ErrTransientNetwork)
	require.Equal(t, 3, calls, "a 4th attempt must never occur")
	require.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second, 20 * time.Second}, waits)
}

func TestDoNonRetryableReturnsImmediately(t *testing.T) {
	var waits []time.Duration
	c := New(Policy{MaxAttempts: 3, BaseDelay: 5 * time.Second}, noSleep(&waits))

	calls := 0
	_, err := Do(context.Background(), c, func(context.Context) (string, error) {
		calls++
		return "", fmt.Errorf("no captions: %w", model.ErrNotFound)
	})
	require.ErrorIs(t, err, model.ErrNotFound)
	require.NotErrorIs(t, err, model.ErrExhaustedRetries)
	require.Equal(t, 1, calls)
	require.Empty(t, waits)
}

func TestDoContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New(Policy{MaxAttempts: 3, BaseDelay: time.Millisecond})
	calls := 0
	_, err := Do(ctx, c, func(context.Context) (string, error) {
		calls++
		return "", model.ErrRateLimited
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, calls)
}

func TestDoCancelDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	c := New(Policy{MaxAttempts: 3, BaseDelay: time.Minute})
	done := make(chan error, 1)
	go func() {
		_, err := Do(ctx, c, func(context.Context) (string, error) {
			return "", model.ErrTransientNetwork
		})
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Do did not return after cancellation")
	}
}

func TestDoReportsAttempts(t *testing.T) {
	var attempts []Attempt
	var waits []time.Duration
	c := New(Policy{MaxAttempts: 2, BaseDelay: 5 * time.Second},
		noSleep(&waits),
		WithObserver(func(a Attempt) { attempts = append(attempts, a) }))

	calls := 0
	_, err := Do(context.Background(), c, func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", model.ErrRateLimited
		}
		return "ok", nil
	})
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	require.Equal(t, 1, attempts[0].Number)
	require.Error(t, attempts[0].Err)
	require.Equal(t, 5*time.Second, attempts[0].Wait)
	require.Equal(t, 2, attempts[1].Number)
	require.NoError(t, attempts[1].Err)
	require.Zero(t, attempts[1].Wait)
}

func TestDoGenericOverErrorOnlyOps(t *testing.T) {
	c := New(Policy{MaxAttempts: 2, BaseDelay: time.Millisecond},
		WithSleep(func(context.Context, time.Duration) error { return nil }))

	// struct{} result: the controller works for operations with no value.
	calls := 0
	_, err := Do(context.Background(), c, func(context.Context) (struct{}, error) {
		calls++
		return struct{}{}, errors.New("permanent")
	})
	require.Error(t, err)
	require.Equal(t, 1, calls)
}

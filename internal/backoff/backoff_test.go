package backoff

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRetrySucceedsEventually(t *testing.T) {
	attempts := 0
	ok, err := Retry(context.Background(), Config{MaxRetries: 3, Delay: time.Millisecond}, "test", func(ctx context.Context) (bool, error) {
		attempts++
		if attempts < 2 {
			return false, errors.New("not yet")
		}
		return true, nil
	})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 2, attempts)
}

func TestRetryExhaustsAndReturnsLastError(t *testing.T) {
	attempts := 0
	ok, err := Retry(context.Background(), Config{MaxRetries: 2, Delay: time.Millisecond}, "test", func(ctx context.Context) (bool, error) {
		attempts++
		return false, errors.New("boom")
	})
	require.Error(t, err)
	require.False(t, ok)
	require.Equal(t, 2, attempts)
}

func TestRetryStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ok, err := Retry(ctx, Config{MaxRetries: 5, Delay: time.Second}, "test", func(ctx context.Context) (bool, error) {
		return false, errors.New("still failing")
	})
	require.False(t, ok)
	require.Error(t, err)
}

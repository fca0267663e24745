package clock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestSystemSleep verifies that System.Sleep returns early on cancellation.
func TestSystemSleep(t *testing.T) {
	t.Parallel()

	var c System

	require.NoError(t, c.Sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	started := time.Now()
	require.ErrorIs(t, c.Sleep(ctx, time.Hour), context.Canceled)
	require.Less(t, time.Since(started), time.Second)
	require.ErrorIs(t, c.Sleep(ctx, 0), context.Canceled)
}

// TestFake checks that Sleep advances time and calls the hook.
func TestFake(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 10, 19, 23, 0, 0, 0, time.UTC)
	f := NewFake(start)

	var hooked time.Duration

	f.OnSleep(func(d time.Duration) { hooked += d })

	require.NoError(t, f.Sleep(context.Background(), 45*time.Second))
	require.Equal(t, start.Add(45*time.Second), f.Now())
	require.Equal(t, 45*time.Second, hooked)
	require.Equal(t, 45*time.Second, f.Slept())

	f.Advance(time.Minute)
	require.Equal(t, start.Add(105*time.Second), f.Now())

	f.Set(start)
	require.Equal(t, start, f.Now())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, f.Sleep(ctx, time.Second), context.Canceled)
	require.Equal(t, start, f.Now())
}

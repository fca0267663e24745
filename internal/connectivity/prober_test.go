package connectivity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/garage-sentinel/internal/clock"
)

var errTestLookup = errors.New("no such host")

type livePublisher struct {
	live    bool
	changes int
	mu      sync.Mutex
}

func (p *livePublisher) SetInternetLive(live bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.live == live {
		return false
	}

	p.live = live
	p.changes++

	return true
}

func TestProber_Probe(t *testing.T) {
	t.Parallel()

	var failing bool

	lookup := func(_ context.Context, host string) ([]string, error) {
		require.Equal(t, "www.google.com", host)

		if failing {
			return nil, errTestLookup
		}

		return []string{"142.250.74.36"}, nil
	}

	publisher := new(livePublisher)
	clk := clock.NewFake(time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC))
	p := NewProber("www.google.com", 3*time.Second, time.Second, publisher, clk, WithLookup(lookup))

	ctx := context.Background()

	require.True(t, p.Probe(ctx))
	require.True(t, publisher.live)

	failing = true
	require.False(t, p.Probe(ctx))
	require.False(t, p.Probe(ctx))
	require.False(t, publisher.live)
	require.Equal(t, 2, publisher.changes)
}

func TestProber_LookupTimeout(t *testing.T) {
	t.Parallel()

	lookup := func(ctx context.Context, _ string) ([]string, error) {
		<-ctx.Done()

		return nil, ctx.Err()
	}

	publisher := &livePublisher{live: true}
	p := NewProber("example.com", time.Second, 10*time.Millisecond, publisher, clock.System{}, WithLookup(lookup))

	require.False(t, p.Probe(context.Background()))
	require.False(t, publisher.live)
}

func TestProber_Run(t *testing.T) {
	t.Parallel()

	var lookups int

	lookup := func(context.Context, string) ([]string, error) {
		lookups++

		return nil, nil
	}

	clk := clock.NewFake(time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clk.OnSleep(func(time.Duration) {
		if lookups == 3 {
			cancel()
		}
	})

	publisher := new(livePublisher)
	p := NewProber("example.com", 3*time.Second, time.Second, publisher, clk, WithLookup(lookup))

	require.NoError(t, p.Run(ctx))
	require.Equal(t, 3, lookups)
	require.Equal(t, 9*time.Second, clk.Slept())
	require.True(t, publisher.live)
}

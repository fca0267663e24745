package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/garage-sentinel/internal/clock"
	"github.com/oshokin/garage-sentinel/internal/domain/door"
)

var errTestRelay = errors.New("test relay write error")

// openLong opens the door and observes it until the long-open alert is raised.
func openLong(ctx context.Context, t *testing.T, r *rig) {
	t.Helper()

	r.sensor.set(door.Open)
	r.runFor(ctx, 10*time.Second)
	require.True(t, r.state.LongOpenAlert())
}

// TestActuationMonitor_NoDaytimeActuation verifies that the relay is never
// pulsed outside the suspicious window however long the door stays open.
func TestActuationMonitor_NoDaytimeActuation(t *testing.T) {
	t.Parallel()

	for hour := 6; hour <= 17; hour++ {
		ctx := context.Background()
		r := newRig(hour)
		openLong(ctx, t, r)

		for range 30 {
			require.NoError(t, r.actuations.evaluate(ctx))
			r.observe(ctx)
		}

		require.Empty(t, r.actuator.recorded(), "hour %d", hour)
		require.False(t, r.state.ActuationTaken(), "hour %d", hour)
		require.Zero(t, r.notifier.count(door.KindAutoClosed), "hour %d", hour)
	}
}

// TestActuationMonitor_SuspiciousWindow verifies one pulse per episode at night
// and the close timeout wait before re-evaluation.
func TestActuationMonitor_SuspiciousWindow(t *testing.T) {
	t.Parallel()

	for _, hour := range []int{23, 3, 18, 0, 5} {
		ctx := context.Background()
		r := newRig(hour)
		openLong(ctx, t, r)

		actuatedAt := r.clock.Now()
		require.NoError(t, r.actuations.evaluate(ctx))

		drives := r.actuator.recorded()
		require.Len(t, drives, 2, "hour %d", hour)
		require.Equal(t, door.High, drives[0].level)
		require.Equal(t, door.Low, drives[1].level)
		require.Equal(t, 2*time.Second, drives[1].at.Sub(drives[0].at), "relay hold")
		require.True(t, r.state.ActuationTaken())
		require.Equal(t, actuatedAt, r.state.Snapshot().ActuationTime)
		require.Equal(t, 1, r.notifier.count(door.KindAutoClosed))

		// The next evaluation waits the full close timeout.
		before := r.clock.Now()
		require.NoError(t, r.actuations.evaluate(ctx))
		require.Equal(t, 45*time.Second, r.clock.Now().Sub(before))
		require.Equal(t, 1, r.actuator.highs(), "hour %d", hour)
	}
}

// TestActuationMonitor_FailureAndSelfHealing verifies that a door still open
// after the close timeout raises the failure once and that a later closed
// observation clears it without manual reset.
func TestActuationMonitor_FailureAndSelfHealing(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := newRig(23)
	openLong(ctx, t, r)

	require.NoError(t, r.actuations.evaluate(ctx))
	require.NoError(t, r.actuations.evaluate(ctx))
	require.True(t, r.state.SystemFailure())
	require.Equal(t, 1, r.notifier.count(door.KindCloseFailed))

	// Still open: keeps waiting, no repeated failure notification, no second pulse.
	require.NoError(t, r.actuations.evaluate(ctx))
	require.True(t, r.state.SystemFailure())
	require.Equal(t, 1, r.notifier.count(door.KindCloseFailed))
	require.Equal(t, 1, r.actuator.highs())

	r.sensor.set(door.Closed)
	r.observe(ctx)
	require.False(t, r.state.LongOpenAlert())

	require.NoError(t, r.actuations.evaluate(ctx))
	require.False(t, r.state.ActuationTaken())
	require.False(t, r.state.SystemFailure())

	// A new episode may actuate again.
	openLong(ctx, t, r)
	require.NoError(t, r.actuations.evaluate(ctx))
	require.Equal(t, 2, r.actuator.highs())
	require.Equal(t, []door.MessageKind{
		door.KindLongOpen,
		door.KindAutoClosed,
		door.KindCloseFailed,
		door.KindLongOpen,
		door.KindAutoClosed,
	}, r.notifier.kinds())
}

// TestActuationMonitor_EpisodeExample replays an episode at 23:00 with a 5s
// notify delay in which the door closes during the close timeout.
func TestActuationMonitor_EpisodeExample(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := newRig(23)
	settings := testSettings()

	opened := r.clock.Now()
	openLong(ctx, t, r)

	alertAt := r.state.Snapshot().LongOpenSince.Add(settings.Timing.NotifyDelay)
	require.WithinDuration(t, opened.Add(5*time.Second), alertAt, time.Second)

	require.NoError(t, r.actuations.evaluate(ctx))
	require.True(t, r.state.ActuationTaken())

	// The door finishes travelling while the actuation loop waits; the other
	// loops keep observing it.
	r.clock.OnSleep(func(d time.Duration) {
		if d != settings.Timing.CloseTimeout {
			return
		}

		r.sensor.set(door.Closed)
		r.observe(ctx)
	})

	require.NoError(t, r.actuations.evaluate(ctx))
	require.False(t, r.state.LongOpenAlert())
	require.False(t, r.state.SystemFailure())

	require.NoError(t, r.actuations.evaluate(ctx))
	require.False(t, r.state.ActuationTaken())
	require.Zero(t, r.notifier.count(door.KindCloseFailed))
	require.Equal(t, 1, r.notifier.count(door.KindLongOpen))
	require.Equal(t, 1, r.notifier.count(door.KindAutoClosed))
}

// TestActuationMonitor_ReopenedDuringCloseTimeout verifies that a door which
// closed during the close timeout and reopened long enough to alert again is
// treated as a new episode: no failure is raised and the new episode is
// pulsed.
func TestActuationMonitor_ReopenedDuringCloseTimeout(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := newRig(23)
	settings := testSettings()
	openLong(ctx, t, r)

	require.NoError(t, r.actuations.evaluate(ctx))
	require.True(t, r.state.ActuationTaken())

	r.clock.OnSleep(func(d time.Duration) {
		if d != settings.Timing.CloseTimeout {
			return
		}

		r.sensor.set(door.Closed)
		r.observe(ctx)
		require.False(t, r.state.LongOpenAlert())

		r.sensor.set(door.Open)
		r.runFor(ctx, 10*time.Second)
		require.True(t, r.state.LongOpenAlert())
	})

	require.NoError(t, r.actuations.evaluate(ctx))
	require.False(t, r.state.SystemFailure())
	require.False(t, r.state.ActuationTaken())
	require.Zero(t, r.notifier.count(door.KindCloseFailed))

	r.clock.OnSleep(nil)

	require.NoError(t, r.actuations.evaluate(ctx))
	require.True(t, r.state.ActuationTaken())
	require.True(t, r.state.ActuatedThisEpisode())
	require.Equal(t, 2, r.actuator.highs())
	require.Equal(t, []door.MessageKind{
		door.KindLongOpen,
		door.KindAutoClosed,
		door.KindLongOpen,
		door.KindAutoClosed,
	}, r.notifier.kinds())
}

// TestActuationMonitor_RelayFailure verifies that a failed HIGH write does not
// count as an actuation and is retried on the next evaluation.
func TestActuationMonitor_RelayFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := newRig(2)
	openLong(ctx, t, r)

	r.actuator.highErr = errTestRelay
	require.ErrorIs(t, r.actuations.evaluate(ctx), errTestRelay)
	require.False(t, r.state.ActuationTaken())
	require.Zero(t, r.notifier.count(door.KindAutoClosed))

	r.actuator.mu.Lock()
	r.actuator.highErr = nil
	r.actuator.mu.Unlock()

	require.NoError(t, r.actuations.evaluate(ctx))
	require.True(t, r.state.ActuationTaken())
}

// TestActuationMonitor_ReleaseOnCancel verifies the relay is driven LOW when
// the context is cancelled during the hold.
func TestActuationMonitor_ReleaseOnCancel(t *testing.T) {
	t.Parallel()

	r := newRig(23)
	openLong(context.Background(), t, r)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, r.actuations.evaluate(ctx), context.Canceled)

	drives := r.actuator.recorded()
	require.Len(t, drives, 2)
	require.Equal(t, door.Low, drives[len(drives)-1].level)
}

// TestActuationMonitor_DisableClearsFailure verifies that switching the
// sentinel off drops the episode including a raised failure.
func TestActuationMonitor_DisableClearsFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := newRig(23)
	openLong(ctx, t, r)

	require.NoError(t, r.actuations.evaluate(ctx))
	require.NoError(t, r.actuations.evaluate(ctx))
	require.True(t, r.state.SystemFailure())

	r.state.SetUserEnabled(false)
	r.observe(ctx)
	require.NoError(t, r.actuations.evaluate(ctx))

	require.False(t, r.state.LongOpenAlert())
	require.False(t, r.state.ActuationTaken())
	require.False(t, r.state.SystemFailure())
	require.Equal(t, 1, r.actuator.highs())
}

// TestActuationMonitor_RunReleasesRelay verifies that Run drives the relay LOW on exit.
func TestActuationMonitor_RunReleasesRelay(t *testing.T) {
	t.Parallel()

	settings := testSettings()
	settings.Timing.ActuationInterval = time.Millisecond

	state := NewState(clock.System{})
	actuator := &fakeActuator{clock: clock.System{}}
	m := NewActuationMonitor(state, actuator, nil, clock.System{}, settings)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- m.Run(ctx)
	}()

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("actuation monitor did not stop")
	}

	drives := actuator.recorded()
	require.NotEmpty(t, drives)
	require.Equal(t, door.Low, drives[len(drives)-1].level)
}

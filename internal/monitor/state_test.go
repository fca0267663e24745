package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/garage-sentinel/internal/clock"
	"github.com/oshokin/garage-sentinel/internal/domain/door"
)

// TestNewState verifies the initial status: closed door, every flag cleared.
func TestNewState(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	s := NewState(clock.NewFake(start))

	snapshot := s.Snapshot()
	require.Equal(t, &door.Status{TakenAt: start}, snapshot)
	require.Equal(t, door.Closed, s.Position())
	require.False(t, s.UserEnabled())
	require.False(t, s.LongOpenAlert())
	require.False(t, s.ActuationTaken())
	require.False(t, s.SystemFailure())
	require.False(t, s.HardwareFault())
}

// TestStateEpisode checks the episode setters used by the duration monitor.
func TestStateEpisode(t *testing.T) {
	t.Parallel()

	s := NewState(clock.NewFake(time.Unix(0, 0)))
	require.False(t, s.EndEpisode())

	first := time.Unix(100, 0)

	since, started := s.StartEpisode(first)
	require.True(t, started)
	require.Equal(t, first, since)

	// A later call keeps the recorded start.
	since, started = s.StartEpisode(first.Add(time.Minute))
	require.False(t, started)
	require.Equal(t, first, since)

	s.RaiseLongOpenAlert()
	require.True(t, s.LongOpenAlert())
	require.True(t, s.NotifiedThisEpisode())

	require.True(t, s.EndEpisode())
	require.False(t, s.LongOpenAlert())
	require.False(t, s.NotifiedThisEpisode())
	require.True(t, s.Snapshot().LongOpenSince.IsZero())
}

// TestStateActuation checks the actuation setters and the change reports.
func TestStateActuation(t *testing.T) {
	t.Parallel()

	s := NewState(clock.NewFake(time.Unix(0, 0)))

	at := time.Unix(500, 0)
	s.MarkActuated(at)
	require.True(t, s.ActuationTaken())
	require.Equal(t, at, s.Snapshot().ActuationTime)

	require.True(t, s.MarkSystemFailure())
	require.False(t, s.MarkSystemFailure())

	require.True(t, s.ClearActuation())
	require.False(t, s.ActuationTaken())
	require.False(t, s.SystemFailure())
	require.False(t, s.ClearActuation())

	require.True(t, s.SetPosition(door.Open))
	require.False(t, s.SetPosition(door.Open))
	require.True(t, s.SetHardwareFault(true))
	require.False(t, s.SetHardwareFault(true))
	require.True(t, s.SetUserEnabled(true))
	require.True(t, s.SetInternetLive(true))
	require.False(t, s.SetInternetLive(true))
	require.True(t, s.Snapshot().InternetLive)
}

// TestStateActuatedThisEpisode checks that a pulse is tied to the episode it
// was recorded in.
func TestStateActuatedThisEpisode(t *testing.T) {
	t.Parallel()

	s := NewState(clock.NewFake(time.Unix(0, 0)))
	require.False(t, s.ActuatedThisEpisode())

	first, started := s.StartEpisode(time.Unix(100, 0))
	require.True(t, started)

	s.MarkActuated(first.Add(5 * time.Second))
	require.True(t, s.ActuatedThisEpisode())

	require.True(t, s.EndEpisode())
	require.False(t, s.ActuatedThisEpisode())

	_, started = s.StartEpisode(time.Unix(160, 0))
	require.True(t, started)
	require.True(t, s.ActuationTaken())
	require.False(t, s.ActuatedThisEpisode())

	s.ClearActuation()
	require.False(t, s.ActuatedThisEpisode())
}

// TestStateSnapshotClosedDoor checks that a closed door is never reported
// with the fields of an episode the duration loop has not ended yet.
func TestStateSnapshotClosedDoor(t *testing.T) {
	t.Parallel()

	s := NewState(clock.NewFake(time.Unix(0, 0)))
	s.SetPosition(door.Open)
	s.StartEpisode(time.Unix(100, 0))
	s.RaiseLongOpenAlert()

	open := s.Snapshot()
	require.True(t, open.LongOpenAlert)
	require.True(t, open.NotifiedThisEpisode)
	require.Equal(t, time.Unix(100, 0), open.LongOpenSince)

	s.SetPosition(door.Closed)
	require.True(t, s.LongOpenAlert(), "episode not ended yet")

	closed := s.Snapshot()
	require.Equal(t, door.Closed, closed.Position)
	require.False(t, closed.LongOpenAlert)
	require.False(t, closed.NotifiedThisEpisode)
	require.True(t, closed.LongOpenSince.IsZero())
}

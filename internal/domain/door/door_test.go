package door

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestPositionString verifies the textual form used in logs and status output.
func TestPositionString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "closed", Closed.String())
	require.Equal(t, "open", Open.String())
	require.Equal(t, "unknown", Position(42).String())
	require.Equal(t, "high", High.String())
	require.Equal(t, "low", Low.String())
}

// TestStatusClone verifies that Clone copies fields and handles nil safely.
func TestStatusClone(t *testing.T) {
	t.Parallel()
	require.Nil(t, (*Status)(nil).Clone())

	s := &Status{
		TakenAt:       time.Unix(200, 0),
		LongOpenSince: time.Unix(100, 0),
		Position:      Open,
		LongOpenAlert: true,
	}

	c := s.Clone()
	require.Equal(t, s, c)
	require.NotSame(t, s, c)
}

// TestStatusOpenForAndHealthy checks derived values of the snapshot.
func TestStatusOpenForAndHealthy(t *testing.T) {
	t.Parallel()

	s := &Status{
		TakenAt:       time.Unix(130, 0),
		LongOpenSince: time.Unix(100, 0),
		Position:      Open,
	}
	require.Equal(t, 30*time.Second, s.OpenFor())
	require.True(t, s.Healthy())

	s.Position = Closed
	require.Zero(t, s.OpenFor())

	s.SystemFailure = true
	require.False(t, s.Healthy())

	s.SystemFailure = false
	s.HardwareFault = true
	require.False(t, s.Healthy())
}

// TestMessages ensures every constructor sets the kind and a subject.
func TestMessages(t *testing.T) {
	t.Parallel()

	at := time.Unix(0, 0)
	cases := map[MessageKind]Message{
		KindLongOpen:      NewLongOpenMessage(at, 5*time.Second),
		KindAutoClosed:    NewAutoClosedMessage(at),
		KindCloseFailed:   NewCloseFailedMessage(at, 45*time.Second),
		KindHardwareFault: NewHardwareFaultMessage(at, 3, errors.New("pin gone")),
	}

	for kind, msg := range cases {
		require.Equal(t, kind, msg.Kind)
		require.NotEmpty(t, msg.Subject)
		require.NotEmpty(t, msg.Body)
		require.Equal(t, at, msg.Timestamp)
	}

	require.Contains(t, NewLongOpenMessage(at, 5*time.Second).Body, "5s")
	require.Contains(t, NewCloseFailedMessage(at, 45*time.Second).Body, "45s")
}

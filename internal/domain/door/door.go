package door

import "time"

// Position is the canonical, debounced door position.
type Position int

const (
	// Closed is the zero value: a freshly started sentinel assumes a closed door.
	Closed Position = iota
	// Open means the reed switch reported the door open after debounce.
	Open
)

// String renders the position for logs and status output.
func (p Position) String() string {
	switch p {
	case Open:
		return "open"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Level is the logic level of a digital line.
type Level bool

const (
	// Low releases the output.
	Low Level = false
	// High drives the output.
	High Level = true
)

// String renders the level for logs.
func (l Level) String() string {
	if l {
		return "high"
	}

	return "low"
}

// Status is a point-in-time snapshot of the shared status block.
type Status struct {
	// TakenAt is when the snapshot was taken.
	TakenAt time.Time
	// LongOpenSince is when the current open episode started (zero if none).
	LongOpenSince time.Time
	// ActuationTime is when the relay was last pulsed in the current episode.
	ActuationTime time.Time
	// Position is the debounced door position.
	Position Position
	// UserEnabled reports whether the operator enable switch is on.
	UserEnabled bool
	// LongOpenAlert is true once the door has been open for the notify delay.
	LongOpenAlert bool
	// NotifiedThisEpisode guards the single long-open notification.
	NotifiedThisEpisode bool
	// ActuationTaken is true once the relay has been pulsed in this episode.
	ActuationTaken bool
	// SystemFailure is true when the door did not close after actuation.
	SystemFailure bool
	// HardwareFault is true after repeated sensor read failures.
	HardwareFault bool
	// InternetLive reports the last connectivity probe result.
	InternetLive bool
}

// Clone returns a copy of the status.
func (s *Status) Clone() *Status {
	if s == nil {
		return nil
	}

	cloned := *s

	return &cloned
}

// Healthy reports whether no fault flag is raised.
func (s *Status) Healthy() bool {
	return !s.SystemFailure && !s.HardwareFault
}

// OpenFor returns how long the current episode has lasted at the snapshot time.
func (s *Status) OpenFor() time.Duration {
	if s.Position != Open || s.LongOpenSince.IsZero() {
		return 0
	}

	return s.TakenAt.Sub(s.LongOpenSince)
}

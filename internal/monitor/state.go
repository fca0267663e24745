package monitor

import (
	"sync"
	"time"

	"github.com/oshokin/garage-sentinel/internal/clock"
	"github.com/oshokin/garage-sentinel/internal/domain/door"
)

// State is the status block shared by the loops.
//
// Every field has a single writer, named on its setter. Readers may run in
// any loop. The lock is held for single field accesses only.
type State struct {
	// clock stamps snapshots.
	clock clock.Clock
	// status holds the fields; TakenAt is set on Snapshot only.
	status door.Status
	// actuatedEpisode is the LongOpenSince of the episode the relay was pulsed in.
	actuatedEpisode time.Time
	// mu protects status.
	mu sync.RWMutex
}

// NewState returns a state with every flag cleared and the door closed.
func NewState(clk clock.Clock) *State {
	return &State{
		clock: clk,
	}
}

// Snapshot returns a copy of the current status.
//
// The duration loop ends an episode up to one evaluation interval after the
// door is seen closed. A closed snapshot reports the episode fields cleared
// so readers never see a long-open alert on a closed door.
func (s *State) Snapshot() *door.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := s.status.Clone()
	result.TakenAt = s.clock.Now()

	if result.Position == door.Closed {
		result.LongOpenSince = time.Time{}
		result.LongOpenAlert = false
		result.NotifiedThisEpisode = false
	}

	return result
}

// Position returns the debounced door position.
func (s *State) Position() door.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.status.Position
}

// UserEnabled reports whether the operator enable switch is on.
func (s *State) UserEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.status.UserEnabled
}

// LongOpenAlert reports whether the door has been open for the notify delay.
func (s *State) LongOpenAlert() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.status.LongOpenAlert
}

// NotifiedThisEpisode reports whether the long-open notification was sent.
func (s *State) NotifiedThisEpisode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.status.NotifiedThisEpisode
}

// ActuationTaken reports whether the relay was pulsed in this episode.
func (s *State) ActuationTaken() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.status.ActuationTaken
}

// SystemFailure reports whether the door failed to close after actuation.
func (s *State) SystemFailure() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.status.SystemFailure
}

// HardwareFault reports whether the door sensor keeps failing.
func (s *State) HardwareFault() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.status.HardwareFault
}

// SetPosition publishes the debounced position and reports a change.
// Writer: SwitchMonitor.
func (s *State) SetPosition(p door.Position) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := s.status.Position != p
	s.status.Position = p

	return changed
}

// SetHardwareFault raises or clears the sensor fault flag and reports a change.
// Writer: SwitchMonitor.
func (s *State) SetHardwareFault(fault bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := s.status.HardwareFault != fault
	s.status.HardwareFault = fault

	return changed
}

// SetUserEnabled publishes the enable switch and reports a change.
// Writer: EnablePoller.
func (s *State) SetUserEnabled(enabled bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := s.status.UserEnabled != enabled
	s.status.UserEnabled = enabled

	return changed
}

// SetInternetLive publishes the connectivity probe result and reports a change.
// Writer: connectivity prober.
func (s *State) SetInternetLive(live bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := s.status.InternetLive != live
	s.status.InternetLive = live

	return changed
}

// StartEpisode records the episode start unless one is already recorded and
// returns the recorded start. started is true when a new episode began.
// Writer: DurationMonitor.
func (s *State) StartEpisode(now time.Time) (since time.Time, started bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.status.LongOpenSince.IsZero() {
		return s.status.LongOpenSince, false
	}

	s.status.LongOpenSince = now
	s.status.NotifiedThisEpisode = false

	return now, true
}

// RaiseLongOpenAlert sets the alert and marks the episode as notified.
// Writer: DurationMonitor.
func (s *State) RaiseLongOpenAlert() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status.LongOpenAlert = true
	s.status.NotifiedThisEpisode = true
}

// EndEpisode clears the episode fields and reports whether an episode was active.
// Writer: DurationMonitor.
func (s *State) EndEpisode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := !s.status.LongOpenSince.IsZero() || s.status.LongOpenAlert || s.status.NotifiedThisEpisode

	s.status.LongOpenSince = time.Time{}
	s.status.LongOpenAlert = false
	s.status.NotifiedThisEpisode = false

	return active
}

// MarkActuated records a relay pulse against the current open episode.
// Writer: ActuationMonitor.
func (s *State) MarkActuated(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status.ActuationTaken = true
	s.status.ActuationTime = at
	s.actuatedEpisode = s.status.LongOpenSince
}

// ActuatedThisEpisode reports whether the recorded pulse belongs to the
// current open episode. It is false once the door closed and reopened.
func (s *State) ActuatedThisEpisode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.status.ActuationTaken &&
		!s.status.LongOpenSince.IsZero() &&
		s.actuatedEpisode.Equal(s.status.LongOpenSince)
}

// MarkSystemFailure raises the failure flag and reports whether it was newly raised.
// Writer: ActuationMonitor.
func (s *State) MarkSystemFailure() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	raised := !s.status.SystemFailure
	s.status.SystemFailure = true

	return raised
}

// ClearActuation resets the actuation fields and reports whether a failure was cleared.
// Writer: ActuationMonitor.
func (s *State) ClearActuation() (failureCleared bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	failureCleared = s.status.SystemFailure
	s.status.ActuationTaken = false
	s.status.SystemFailure = false
	s.actuatedEpisode = time.Time{}

	return failureCleared
}

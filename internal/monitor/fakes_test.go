package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/oshokin/garage-sentinel/internal/clock"
	"github.com/oshokin/garage-sentinel/internal/config"
	"github.com/oshokin/garage-sentinel/internal/domain/door"
)

// reading is one scripted sensor result.
type reading struct {
	// position is the raw position to return.
	position door.Position
	// err is the error to return.
	err error
}

// fakeSensor returns scripted readings first, then the current position.
type fakeSensor struct {
	// scripted holds readings consumed one per call.
	scripted []reading
	// current is returned once the script is exhausted.
	current door.Position
	// err is returned with current once the script is exhausted.
	err error
	// reads counts calls.
	reads int
	// mu protects the fields.
	mu sync.Mutex
}

// ReadSwitch returns the next scripted reading or the current position.
func (s *fakeSensor) ReadSwitch(context.Context) (door.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reads++

	if len(s.scripted) > 0 {
		r := s.scripted[0]
		s.scripted = s.scripted[1:]

		return r.position, r.err
	}

	return s.current, s.err
}

// set changes the steady-state position and clears the error.
func (s *fakeSensor) set(p door.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = p
	s.err = nil
}

// script queues readings returned before the steady state.
func (s *fakeSensor) script(readings ...reading) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scripted = append(s.scripted, readings...)
}

// fail makes every steady-state read fail.
func (s *fakeSensor) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.err = err
}

// drive is one recorded actuator write.
type drive struct {
	// at is the fake time of the write.
	at time.Time
	// level is the written level.
	level door.Level
}

// fakeActuator records writes.
type fakeActuator struct {
	// clock stamps writes.
	clock clock.Clock
	// highErr is returned for HIGH writes.
	highErr error
	// drives holds every successful write.
	drives []drive
	// mu protects the fields.
	mu sync.Mutex
}

// Drive records the level.
func (a *fakeActuator) Drive(_ context.Context, level door.Level) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if level == door.High && a.highErr != nil {
		return a.highErr
	}

	a.drives = append(a.drives, drive{at: a.clock.Now(), level: level})

	return nil
}

// highs counts HIGH writes.
func (a *fakeActuator) highs() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	count := 0

	for _, d := range a.drives {
		if d.level == door.High {
			count++
		}
	}

	return count
}

// recorded returns a copy of the writes.
func (a *fakeActuator) recorded() []drive {
	a.mu.Lock()
	defer a.mu.Unlock()

	return append([]drive(nil), a.drives...)
}

// fakeNotifier records queued messages.
type fakeNotifier struct {
	// err is returned from Enqueue; the message is still recorded.
	err error
	// messages holds every queued message.
	messages []door.Message
	// mu protects the fields.
	mu sync.Mutex
}

// Enqueue records the message.
func (n *fakeNotifier) Enqueue(_ context.Context, msg door.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.messages = append(n.messages, msg)

	return n.err
}

// kinds returns the kinds of the recorded messages in order.
func (n *fakeNotifier) kinds() []door.MessageKind {
	n.mu.Lock()
	defer n.mu.Unlock()

	result := make([]door.MessageKind, 0, len(n.messages))
	for _, m := range n.messages {
		result = append(result, m.Kind)
	}

	return result
}

// count returns how many messages of kind were recorded.
func (n *fakeNotifier) count(kind door.MessageKind) int {
	count := 0

	for _, k := range n.kinds() {
		if k == kind {
			count++
		}
	}

	return count
}

// fakeEnable returns a fixed value.
type fakeEnable struct {
	// enabled is returned from Enabled.
	enabled bool
	// err is returned from Enabled.
	err error
	// mu protects the fields.
	mu sync.Mutex
}

// Enabled returns the configured value.
func (e *fakeEnable) Enabled(context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.enabled, e.err
}

// testSettings mirrors the reference installation with a 5s notify delay.
func testSettings() Settings {
	return Settings{
		Timing: config.Timing{
			PollInterval:       2 * time.Second,
			DebounceInterval:   250 * time.Millisecond,
			EvalInterval:       250 * time.Millisecond,
			ActuationInterval:  time.Second,
			EnablePollInterval: time.Second,
			NotifyDelay:        5 * time.Second,
			HoldDuration:       2 * time.Second,
			CloseTimeout:       45 * time.Second,
			RestartBackoff:     time.Millisecond,
			MaxRestartBackoff:  10 * time.Millisecond,
		},
		Window: config.Window{
			PMHour: config.DefaultPMHour,
			AMHour: config.DefaultAMHour,
		},
		Location:       time.UTC,
		FaultThreshold: config.DefaultSensorFaultThreshold,
	}
}

// rig wires all loops against fakes and one fake clock.
type rig struct {
	clock      *clock.Fake
	state      *State
	sensor     *fakeSensor
	actuator   *fakeActuator
	notifier   *fakeNotifier
	switches   *SwitchMonitor
	durations  *DurationMonitor
	actuations *ActuationMonitor
}

// newRig builds a rig starting at the given hour (UTC) with the sentinel enabled.
func newRig(hour int) *rig {
	clk := clock.NewFake(time.Date(2026, 10, 19, hour, 0, 0, 0, time.UTC))
	settings := testSettings()

	r := &rig{
		clock:    clk,
		state:    NewState(clk),
		sensor:   new(fakeSensor),
		actuator: &fakeActuator{clock: clk},
		notifier: new(fakeNotifier),
	}

	r.switches = NewSwitchMonitor(r.state, r.sensor, r.notifier, clk, settings)
	r.durations = NewDurationMonitor(r.state, r.notifier, clk, settings)
	r.actuations = NewActuationMonitor(r.state, r.actuator, r.notifier, clk, settings)
	r.state.SetUserEnabled(true)

	return r
}

// observe polls the switch and evaluates the duration monitor.
func (r *rig) observe(ctx context.Context) {
	_ = r.switches.poll(ctx)
	_ = r.durations.evaluate(ctx)
}

// runFor observes the door every second for d without running the actuation loop.
func (r *rig) runFor(ctx context.Context, d time.Duration) {
	end := r.clock.Now().Add(d)

	for r.clock.Now().Before(end) {
		r.observe(ctx)
		r.clock.Advance(time.Second)
	}
}

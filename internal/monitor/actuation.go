package monitor

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/garage-sentinel/internal/clock"
	"github.com/oshokin/garage-sentinel/internal/domain/door"
	"github.com/oshokin/garage-sentinel/internal/logger"
)

// ActuationMonitor closes a long-open door during the suspicious window and
// verifies that it closed.
//
// Per episode: Idle -> Actuated -> Idle (door closed) or Failed (still open
// after the close timeout). Failed returns to Idle as soon as the door is seen
// closed; there is no manual acknowledgment.
type ActuationMonitor struct {
	// state provides the alert and receives the actuation fields.
	state *State
	// actuator is the opener relay.
	actuator Actuator
	// notifier receives the auto-close and failure notifications.
	notifier Notifier
	// clock provides the local hour, the hold and the close timeout.
	clock clock.Clock
	// settings holds the window and the timing.
	settings Settings
}

// NewActuationMonitor wires an actuation monitor.
func NewActuationMonitor(
	state *State,
	actuator Actuator,
	notifier Notifier,
	clk clock.Clock,
	settings Settings,
) *ActuationMonitor {
	return &ActuationMonitor{
		state:    state,
		actuator: actuator,
		notifier: notifier,
		clock:    clk,
		settings: settings,
	}
}

// Name identifies the loop in logs.
func (m *ActuationMonitor) Name() string {
	return "actuation-monitor"
}

// Run evaluates until ctx is done. The relay is released on exit.
func (m *ActuationMonitor) Run(ctx context.Context) error {
	ctx = logger.WithName(ctx, m.Name())

	logger.InfoKV(ctx, "Actuation monitor started",
		"pm_hour", m.settings.Window.PMHour,
		"am_hour", m.settings.Window.AMHour,
		"close_timeout", m.settings.Timing.CloseTimeout.String())

	defer m.release(ctx)

	return runLoop(ctx, m.clock, m.settings.Timing.ActuationInterval, m.evaluate)
}

// evaluate runs one step of the actuation state machine.
// While verifying it blocks for the close timeout; other loops keep running.
func (m *ActuationMonitor) evaluate(ctx context.Context) error {
	if !m.state.UserEnabled() {
		if m.state.ActuationTaken() && m.state.ClearActuation() {
			logger.Info(ctx, "Sentinel disabled, system failure cleared")
		}

		return nil
	}

	alert := m.state.LongOpenAlert()
	taken := m.state.ActuationTaken()

	if alert && taken && !m.state.ActuatedThisEpisode() {
		m.endActuation(ctx)

		taken = false
	}

	switch {
	case alert && !taken:
		return m.actuate(ctx)
	case alert && taken:
		return m.verify(ctx)
	case !alert && taken:
		m.endActuation(ctx)
	}

	return nil
}

// endActuation resets the actuation fields after the door was seen closed.
func (m *ActuationMonitor) endActuation(ctx context.Context) {
	if m.state.ClearActuation() {
		logger.Info(ctx, "Door closed, system failure cleared")
	} else {
		logger.Info(ctx, "Door closed after automatic action")
	}
}

// actuate pulses the relay if the current hour is suspicious.
func (m *ActuationMonitor) actuate(ctx context.Context) error {
	now := m.clock.Now()

	hour := m.settings.localHour(now)
	if !m.settings.Window.Suspicious(hour) {
		return nil
	}

	logger.WarnKV(ctx, "Door open at suspicious time, closing", "hour", hour)

	pressed, err := m.pulse(ctx)
	if !pressed {
		return err
	}

	m.state.MarkActuated(now)
	notify(ctx, m.notifier, door.NewAutoClosedMessage(now))

	return err
}

// verify waits the close timeout and raises the failure flag if the door
// is still open in the actuated episode. The failure notification is sent
// once per episode.
func (m *ActuationMonitor) verify(ctx context.Context) error {
	if err := m.clock.Sleep(ctx, m.settings.Timing.CloseTimeout); err != nil {
		return err
	}

	if !m.state.UserEnabled() || !m.state.LongOpenAlert() {
		return nil
	}

	// The door closed during the wait and a new episode has begun since.
	if !m.state.ActuatedThisEpisode() {
		m.endActuation(ctx)

		return nil
	}

	if !m.state.MarkSystemFailure() {
		return nil
	}

	logger.ErrorKV(ctx, "Door still open after automatic action, suspect system failure",
		"waited", m.settings.Timing.CloseTimeout.String())
	notify(ctx, m.notifier, door.NewCloseFailedMessage(m.clock.Now(), m.settings.Timing.CloseTimeout))

	return nil
}

// pulse holds the relay HIGH for the hold duration and then drives it LOW.
// pressed reports whether the HIGH level was applied.
func (m *ActuationMonitor) pulse(ctx context.Context) (pressed bool, err error) {
	if err = m.actuator.Drive(ctx, door.High); err != nil {
		return false, fmt.Errorf("drive opener high: %w", err)
	}

	sleepErr := m.clock.Sleep(ctx, m.settings.Timing.HoldDuration)

	// Release even when ctx was cancelled during the hold.
	if err = m.actuator.Drive(context.WithoutCancel(ctx), door.Low); err != nil {
		return true, errors.Join(sleepErr, fmt.Errorf("drive opener low: %w", err))
	}

	return true, sleepErr
}

// release drives the relay LOW.
func (m *ActuationMonitor) release(ctx context.Context) {
	if err := m.actuator.Drive(context.WithoutCancel(ctx), door.Low); err != nil {
		logger.ErrorKV(ctx, "Failed to release opener relay", "error", err)
	}
}

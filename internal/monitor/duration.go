package monitor

import (
	"context"

	"github.com/oshokin/garage-sentinel/internal/clock"
	"github.com/oshokin/garage-sentinel/internal/domain/door"
	"github.com/oshokin/garage-sentinel/internal/logger"
)

// DurationMonitor tracks open episodes and raises the long-open alert.
//
// At most one notification is sent per episode however often the monitor
// evaluates. Closing the door or disabling the sentinel ends the episode.
type DurationMonitor struct {
	// state provides the position and receives the episode fields.
	state *State
	// notifier receives the long-open notification.
	notifier Notifier
	// clock measures the open duration.
	clock clock.Clock
	// settings holds the notify delay and evaluation interval.
	settings Settings
}

// NewDurationMonitor wires a duration monitor.
func NewDurationMonitor(state *State, notifier Notifier, clk clock.Clock, settings Settings) *DurationMonitor {
	return &DurationMonitor{
		state:    state,
		notifier: notifier,
		clock:    clk,
		settings: settings,
	}
}

// Name identifies the loop in logs.
func (m *DurationMonitor) Name() string {
	return "duration-monitor"
}

// Run evaluates until ctx is done.
func (m *DurationMonitor) Run(ctx context.Context) error {
	ctx = logger.WithName(ctx, m.Name())

	logger.InfoKV(ctx, "Duration monitor started", "notify_delay", m.settings.Timing.NotifyDelay.String())

	return runLoop(ctx, m.clock, m.settings.Timing.EvalInterval, m.evaluate)
}

// evaluate advances the episode state machine by one step.
func (m *DurationMonitor) evaluate(ctx context.Context) error {
	if !m.state.UserEnabled() {
		if m.state.EndEpisode() {
			logger.Info(ctx, "Sentinel disabled, open episode discarded")
		}

		return nil
	}

	if m.state.Position() == door.Closed {
		if m.state.EndEpisode() {
			logger.Info(ctx, "Door closed, episode ended")
		}

		return nil
	}

	now := m.clock.Now()

	since, started := m.state.StartEpisode(now)
	if started {
		logger.InfoKV(ctx, "Open episode started", "since", since)
	}

	if m.state.NotifiedThisEpisode() {
		return nil
	}

	openFor := now.Sub(since)
	if openFor < m.settings.Timing.NotifyDelay {
		return nil
	}

	m.state.RaiseLongOpenAlert()

	logger.WarnKV(ctx, "Door open too long", "open_for", openFor.String())
	notify(ctx, m.notifier, door.NewLongOpenMessage(now, openFor))

	return nil
}

package monitor

import (
	"context"
	"fmt"

	"github.com/oshokin/garage-sentinel/internal/clock"
	"github.com/oshokin/garage-sentinel/internal/domain/door"
	"github.com/oshokin/garage-sentinel/internal/logger"
)

// SwitchMonitor polls the reed switch and publishes the debounced position.
//
// Debounce is asymmetric: a raw OPEN must be confirmed by a second read after
// the debounce interval, a raw CLOSED is published at once.
type SwitchMonitor struct {
	// state receives the position and the hardware fault flag.
	state *State
	// sensor is the reed switch.
	sensor Sensor
	// notifier receives the hardware fault notification.
	notifier Notifier
	// clock paces polling and debouncing.
	clock clock.Clock
	// settings holds intervals and the fault threshold.
	settings Settings

	// failures counts consecutive failed reads; owned by the loop goroutine.
	failures int
}

// NewSwitchMonitor wires a switch monitor.
func NewSwitchMonitor(state *State, sensor Sensor, notifier Notifier, clk clock.Clock, settings Settings) *SwitchMonitor {
	return &SwitchMonitor{
		state:    state,
		sensor:   sensor,
		notifier: notifier,
		clock:    clk,
		settings: settings,
	}
}

// Name identifies the loop in logs.
func (m *SwitchMonitor) Name() string {
	return "switch-monitor"
}

// Run polls until ctx is done.
func (m *SwitchMonitor) Run(ctx context.Context) error {
	ctx = logger.WithName(ctx, m.Name())

	logger.InfoKV(ctx, "Switch monitor started",
		"poll_interval", m.settings.Timing.PollInterval.String(),
		"debounce_interval", m.settings.Timing.DebounceInterval.String())

	return runLoop(ctx, m.clock, m.settings.Timing.PollInterval, m.poll)
}

// poll performs one debounced read and publishes the result.
func (m *SwitchMonitor) poll(ctx context.Context) error {
	position, err := m.read(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}

		m.recordFailure(ctx, err)

		return nil
	}

	m.recordSuccess(ctx)

	if m.state.SetPosition(position) {
		logger.InfoKV(ctx, "Door position changed", "position", position.String())
	}

	return nil
}

// read returns OPEN only if two reads separated by the debounce interval agree.
func (m *SwitchMonitor) read(ctx context.Context) (door.Position, error) {
	raw, err := m.sensor.ReadSwitch(ctx)
	if err != nil {
		return door.Closed, fmt.Errorf("read switch: %w", err)
	}

	if raw == door.Closed {
		return door.Closed, nil
	}

	if err = m.clock.Sleep(ctx, m.settings.Timing.DebounceInterval); err != nil {
		return door.Closed, err
	}

	confirmed, err := m.sensor.ReadSwitch(ctx)
	if err != nil {
		return door.Closed, fmt.Errorf("re-read switch: %w", err)
	}

	if confirmed != door.Open {
		logger.DebugKV(ctx, "Open reading not confirmed by debounce")
	}

	return confirmed, nil
}

// recordFailure counts a failed read and raises the fault flag at the threshold.
// The published position is left as it was.
func (m *SwitchMonitor) recordFailure(ctx context.Context, err error) {
	m.failures++

	logger.WarnKV(ctx, "Switch read failed", "consecutive_failures", m.failures, "error", err)

	threshold := m.settings.FaultThreshold
	if threshold <= 0 {
		threshold = 1
	}

	if m.failures < threshold || !m.state.SetHardwareFault(true) {
		return
	}

	logger.ErrorKV(ctx, "Door sensor fault", "consecutive_failures", m.failures, "error", err)
	notify(ctx, m.notifier, door.NewHardwareFaultMessage(m.clock.Now(), m.failures, err))
}

// recordSuccess resets the failure counter and clears the fault flag.
func (m *SwitchMonitor) recordSuccess(ctx context.Context) {
	m.failures = 0

	if m.state.SetHardwareFault(false) {
		logger.Info(ctx, "Door sensor recovered")
	}
}

package monitor

import (
	"context"
	"fmt"

	"github.com/oshokin/garage-sentinel/internal/clock"
	"github.com/oshokin/garage-sentinel/internal/logger"
)

// EnablePoller publishes the operator enable switch.
type EnablePoller struct {
	// state receives the enable flag.
	state *State
	// enable is the operator switch.
	enable EnableSwitch
	// clock paces polling.
	clock clock.Clock
	// settings holds the poll interval.
	settings Settings
}

// NewEnablePoller wires an enable poller.
func NewEnablePoller(state *State, enable EnableSwitch, clk clock.Clock, settings Settings) *EnablePoller {
	return &EnablePoller{
		state:    state,
		enable:   enable,
		clock:    clk,
		settings: settings,
	}
}

// Name identifies the loop in logs.
func (p *EnablePoller) Name() string {
	return "enable-poller"
}

// Run polls until ctx is done.
func (p *EnablePoller) Run(ctx context.Context) error {
	ctx = logger.WithName(ctx, p.Name())

	return runLoop(ctx, p.clock, p.settings.Timing.EnablePollInterval, p.poll)
}

// poll reads the switch once; on error the previous value is kept.
func (p *EnablePoller) poll(ctx context.Context) error {
	enabled, err := p.enable.Enabled(ctx)
	if err != nil {
		return fmt.Errorf("read enable switch: %w", err)
	}

	if p.state.SetUserEnabled(enabled) {
		logger.InfoKV(ctx, "Enable switch changed", "enabled", enabled)
	}

	return nil
}

// Package indicator blinks the status LED in a pattern that encodes the
// sentinel state, so the operator can read it from the garage.
package indicator

import (
	"context"
	"time"

	"github.com/oshokin/garage-sentinel/internal/clock"
	"github.com/oshokin/garage-sentinel/internal/domain/door"
	"github.com/oshokin/garage-sentinel/internal/logger"
)

const (
	// StepDuration is how long the LED holds each step of a pattern.
	StepDuration = 175 * time.Millisecond
	// PowerOnFlash is how long the LED is lit once at start-up.
	PowerOnFlash = 250 * time.Millisecond
	// Steps is the length of every pattern.
	Steps = 16
)

// Pattern is one blink sequence; true lights the LED.
// Steady on or steady off are never used: they mean a hung program or no power.
type Pattern struct {
	// Name identifies the pattern in logs and the status API.
	Name string
	// Steps are played in order, then repeated.
	Steps [Steps]bool
}

// Blink patterns in the order of their priority.
var (
	FailureSuspected = Pattern{Name: "failure_suspected", Steps: bits(1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0)}
	Stopped          = Pattern{Name: "stopped", Steps: bits(1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 0)}
	NoInternet       = Pattern{Name: "no_internet", Steps: bits(1, 0, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0)}
	DoorOpen         = Pattern{Name: "door_open", Steps: bits(0, 0, 0, 0, 0, 0, 0, 0, 1, 0, 1, 0, 1, 1, 1, 1)}
	Running          = Pattern{Name: "running", Steps: bits(1, 1, 1, 1, 0, 0, 0, 0, 1, 1, 1, 1, 0, 0, 0, 0)}
)

// LED is the indicator output.
type LED interface {
	Set(ctx context.Context, on bool) error
}

// StatusSource provides the sentinel state.
type StatusSource interface {
	Snapshot() *door.Status
}

// Select picks the pattern for a status.
func Select(status *door.Status) Pattern {
	switch {
	case status.SystemFailure || status.HardwareFault:
		return FailureSuspected
	case !status.UserEnabled:
		return Stopped
	case !status.InternetLive:
		return NoInternet
	case status.Position == door.Open:
		return DoorOpen
	default:
		return Running
	}
}

// Indicator plays the selected pattern on the LED.
type Indicator struct {
	led    LED
	source StatusSource
	clock  clock.Clock
}

// New creates an indicator.
func New(led LED, source StatusSource, clk clock.Clock) *Indicator {
	return &Indicator{
		led:    led,
		source: source,
		clock:  clk,
	}
}

// Name identifies the loop in logs.
func (i *Indicator) Name() string {
	return "status-indicator"
}

// Run flashes the LED once, then plays patterns until ctx is done.
// The pattern is re-selected after every step so a state change shows at once.
// The LED is switched off on exit.
func (i *Indicator) Run(ctx context.Context) error {
	ctx = logger.WithName(ctx, i.Name())

	defer func() {
		if err := i.led.Set(context.WithoutCancel(ctx), false); err != nil {
			logger.WarnKV(ctx, "Failed to switch LED off", "error", err)
		}
	}()

	if err := i.flash(ctx); err != nil {
		return nil
	}

	current := Select(i.source.Snapshot())
	logger.DebugKV(ctx, "Indicator started", "pattern", current.Name)

	for step := 0; ; step = (step + 1) % Steps {
		if next := Select(i.source.Snapshot()); next.Name != current.Name {
			logger.DebugKV(ctx, "Indicator pattern changed", "from", current.Name, "to", next.Name)
			current = next
		}

		if err := i.led.Set(ctx, current.Steps[step]); err != nil {
			logger.WarnKV(ctx, "Failed to drive LED", "error", err)
		}

		if err := i.clock.Sleep(ctx, StepDuration); err != nil {
			return nil
		}
	}
}

// flash lights the LED for the power-on flash.
func (i *Indicator) flash(ctx context.Context) error {
	if err := i.led.Set(ctx, true); err != nil {
		logger.WarnKV(ctx, "Failed to drive LED", "error", err)
	}

	return i.clock.Sleep(ctx, PowerOnFlash)
}

// bits converts 0/1 literals into a pattern.
func bits(values ...int) [Steps]bool {
	var result [Steps]bool

	for i, v := range values[:Steps] {
		result[i] = v != 0
	}

	return result
}

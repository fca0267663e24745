package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/oshokin/garage-sentinel/internal/clock"
	"github.com/oshokin/garage-sentinel/internal/config"
	"github.com/oshokin/garage-sentinel/internal/domain/door"
	"github.com/oshokin/garage-sentinel/internal/logger"
)

// Settings are the timing parameters and the suspicious window of the loops.
type Settings struct {
	// Timing holds the poll intervals and thresholds.
	Timing config.Timing
	// Window is the suspicious time-of-day window.
	Window config.Window
	// Location is the time zone the window is evaluated in.
	Location *time.Location
	// FaultThreshold is the number of consecutive sensor failures that raise
	// the hardware fault flag.
	FaultThreshold int
}

// SettingsFromConfig extracts the loop settings from a validated configuration.
func SettingsFromConfig(cfg *config.Config) (Settings, error) {
	loc, err := cfg.Window.LoadLocation()
	if err != nil {
		return Settings{}, fmt.Errorf("window location: %w", err)
	}

	return Settings{
		Timing:         cfg.Timing,
		Window:         cfg.Window,
		Location:       loc,
		FaultThreshold: cfg.Hardware.SensorFaultThreshold,
	}, nil
}

// localHour returns the hour of t in the configured location.
func (s Settings) localHour(t time.Time) int {
	if s.Location == nil {
		return t.Hour()
	}

	return t.In(s.Location).Hour()
}

// runLoop calls step, then sleeps for interval, until ctx is done.
// Step errors are logged and never stop the loop.
func runLoop(ctx context.Context, clk clock.Clock, interval time.Duration, step func(context.Context) error) error {
	for {
		if err := step(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}

			logger.WarnKV(ctx, "Evaluation failed", "error", err)
		}

		if err := clk.Sleep(ctx, interval); err != nil {
			return nil
		}
	}
}

// notify hands msg to the notifier; a rejected message is logged and dropped.
func notify(ctx context.Context, n Notifier, msg door.Message) {
	if n == nil {
		return
	}

	if err := n.Enqueue(ctx, msg); err != nil {
		logger.WarnKV(ctx, "Notification dropped", "kind", msg.Kind, "error", err)
	}
}

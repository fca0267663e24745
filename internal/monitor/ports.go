package monitor

import (
	"context"

	"github.com/oshokin/garage-sentinel/internal/domain/door"
)

// Sensor reads the raw door reed switch.
type Sensor interface {
	ReadSwitch(ctx context.Context) (door.Position, error)
}

// Actuator drives the door opener relay.
type Actuator interface {
	Drive(ctx context.Context, level door.Level) error
}

// EnableSwitch reads the operator enable switch.
type EnableSwitch interface {
	Enabled(ctx context.Context) (bool, error)
}

// Notifier accepts notifications without waiting for delivery.
type Notifier interface {
	Enqueue(ctx context.Context, msg door.Message) error
}

// Runner is a loop managed by the Supervisor.
type Runner interface {
	Name() string
	Run(ctx context.Context) error
}

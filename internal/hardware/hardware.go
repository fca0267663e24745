package hardware

import (
	"cmp"
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/garage-sentinel/internal/config"
	"github.com/oshokin/garage-sentinel/internal/domain/door"
)

// InputPin is a digital input line.
type InputPin interface {
	Read(ctx context.Context) (door.Level, error)
}

// OutputPin is a digital output line.
type OutputPin interface {
	Write(ctx context.Context, level door.Level) error
}

// Driver opens pins by name.
type Driver interface {
	Input(name string) (InputPin, error)
	Output(name string) (OutputPin, error)
}

// Pin names used when the configuration leaves a mandatory pin empty,
// which only the simulated driver allows.
const (
	fallbackSensorPin   = "sensor"
	fallbackActuatorPin = "actuator"
)

var (
	// errUnknownDriver is returned for an unsupported driver name.
	errUnknownDriver = errors.New("unknown hardware driver")
	// errUnknownLevel is returned for a level name other than high or low.
	errUnknownLevel = errors.New("unknown level")
)

// Devices are the adapted lines of one installation.
type Devices struct {
	// Sensor reads the door reed switch.
	Sensor *DoorSensor
	// Enable reads the operator switch.
	Enable EnableReader
	// Relay drives the door opener.
	Relay *Relay
	// LED drives the status indicator; nil when no LED is fitted.
	LED *LED
}

// EnableReader reports whether the operator has the sentinel switched on.
type EnableReader interface {
	Enabled(ctx context.Context) (bool, error)
}

// NewDriver returns the driver named in the configuration.
func NewDriver(name string) (Driver, error) {
	switch name {
	case config.DriverPeriph:
		return NewPeriph()
	case config.DriverSimulated, "":
		return NewSimulated(), nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownDriver, name)
	}
}

// Open opens every configured pin on the driver and wraps it.
// The relay is driven LOW before Open returns.
func Open(ctx context.Context, driver Driver, cfg config.Hardware) (*Devices, error) {
	openLevel, err := parseLevel(cfg.SensorOpenLevel, door.High)
	if err != nil {
		return nil, fmt.Errorf("sensor open level: %w", err)
	}

	activeLevel, err := parseLevel(cfg.EnableActiveLevel, door.Low)
	if err != nil {
		return nil, fmt.Errorf("enable active level: %w", err)
	}

	sensorName := cmp.Or(cfg.SensorPin, fallbackSensorPin)

	sensorPin, err := driver.Input(sensorName)
	if err != nil {
		return nil, fmt.Errorf("open sensor pin %s: %w", sensorName, err)
	}

	actuatorName := cmp.Or(cfg.ActuatorPin, fallbackActuatorPin)

	relayPin, err := driver.Output(actuatorName)
	if err != nil {
		return nil, fmt.Errorf("open actuator pin %s: %w", actuatorName, err)
	}

	devices := &Devices{
		Sensor: NewDoorSensor(sensorPin, openLevel),
		Enable: AlwaysEnabled{},
		Relay:  NewRelay(relayPin),
	}

	if err = devices.Relay.Drive(ctx, door.Low); err != nil {
		return nil, fmt.Errorf("release actuator pin %s: %w", actuatorName, err)
	}

	if cfg.EnablePin != "" {
		enablePin, enableErr := driver.Input(cfg.EnablePin)
		if enableErr != nil {
			return nil, fmt.Errorf("open enable pin %s: %w", cfg.EnablePin, enableErr)
		}

		devices.Enable = NewEnableSwitch(enablePin, activeLevel)
	}

	if cfg.LEDPin != "" {
		ledPin, ledErr := driver.Output(cfg.LEDPin)
		if ledErr != nil {
			return nil, fmt.Errorf("open led pin %s: %w", cfg.LEDPin, ledErr)
		}

		devices.LED = NewLED(ledPin)
	}

	return devices, nil
}

// parseLevel maps "high" and "low" to levels; empty selects def.
func parseLevel(s string, def door.Level) (door.Level, error) {
	switch s {
	case "":
		return def, nil
	case config.LevelHigh:
		return door.High, nil
	case config.LevelLow:
		return door.Low, nil
	default:
		return door.Low, fmt.Errorf("%w: %q", errUnknownLevel, s)
	}
}

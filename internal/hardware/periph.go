package hardware

import (
	"context"
	"errors"
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/oshokin/garage-sentinel/internal/domain/door"
)

// errPinNotFound is returned when the GPIO registry has no pin with the name.
var errPinNotFound = errors.New("gpio pin not found")

// Periph opens pins through periph.io. Pins are addressed by registry name,
// e.g. "GPIO22" for BCM 22.
type Periph struct{}

// NewPeriph initialises the periph host drivers.
func NewPeriph() (*Periph, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init periph host: %w", err)
	}

	return &Periph{}, nil
}

// Input configures the pin as a floating input; the boards carry external
// pull resistors.
func (*Periph) Input(name string) (InputPin, error) {
	pin, err := lookup(name)
	if err != nil {
		return nil, err
	}

	if err = pin.In(gpio.Float, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("configure %s as input: %w", name, err)
	}

	return &periphPin{pin: pin}, nil
}

// Output configures the pin as an output driven LOW.
func (*Periph) Output(name string) (OutputPin, error) {
	pin, err := lookup(name)
	if err != nil {
		return nil, err
	}

	if err = pin.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("configure %s as output: %w", name, err)
	}

	return &periphPin{pin: pin}, nil
}

// lookup finds a pin in the periph registry.
func lookup(name string) (gpio.PinIO, error) {
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("%w: %s", errPinNotFound, name)
	}

	return pin, nil
}

// periphPin adapts a periph pin.
type periphPin struct {
	pin gpio.PinIO
}

// Read samples the input.
func (p *periphPin) Read(ctx context.Context) (door.Level, error) {
	if err := ctx.Err(); err != nil {
		return door.Low, err
	}

	return toLevel(p.pin.Read()), nil
}

// Write drives the output.
func (p *periphPin) Write(_ context.Context, level door.Level) error {
	if err := p.pin.Out(toGPIO(level)); err != nil {
		return fmt.Errorf("write %s: %w", p.pin.Name(), err)
	}

	return nil
}

// toLevel converts a periph level.
func toLevel(l gpio.Level) door.Level {
	return door.Level(l == gpio.High)
}

// toGPIO converts to a periph level.
func toGPIO(l door.Level) gpio.Level {
	if l == door.High {
		return gpio.High
	}

	return gpio.Low
}

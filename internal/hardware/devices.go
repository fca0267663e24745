package hardware

import (
	"context"

	"github.com/oshokin/garage-sentinel/internal/domain/door"
)

// DoorSensor maps the reed switch level to a door position.
type DoorSensor struct {
	pin       InputPin
	openLevel door.Level
}

// NewDoorSensor wraps pin; openLevel is the level read while the door is open.
func NewDoorSensor(pin InputPin, openLevel door.Level) *DoorSensor {
	return &DoorSensor{pin: pin, openLevel: openLevel}
}

// ReadSwitch reads the current position.
func (s *DoorSensor) ReadSwitch(ctx context.Context) (door.Position, error) {
	level, err := s.pin.Read(ctx)
	if err != nil {
		return door.Closed, err
	}

	if level == s.openLevel {
		return door.Open, nil
	}

	return door.Closed, nil
}

// EnableSwitch maps the operator switch level to the enabled flag.
type EnableSwitch struct {
	pin         InputPin
	activeLevel door.Level
}

// NewEnableSwitch wraps pin; activeLevel is the level read while switched on.
func NewEnableSwitch(pin InputPin, activeLevel door.Level) *EnableSwitch {
	return &EnableSwitch{pin: pin, activeLevel: activeLevel}
}

// Enabled reports whether the switch is on.
func (s *EnableSwitch) Enabled(ctx context.Context) (bool, error) {
	level, err := s.pin.Read(ctx)
	if err != nil {
		return false, err
	}

	return level == s.activeLevel, nil
}

// AlwaysEnabled stands in for an installation without an enable switch.
type AlwaysEnabled struct{}

// Enabled always reports true.
func (AlwaysEnabled) Enabled(context.Context) (bool, error) {
	return true, nil
}

// Relay drives the door opener. HIGH presses the button.
type Relay struct {
	pin OutputPin
}

// NewRelay wraps pin.
func NewRelay(pin OutputPin) *Relay {
	return &Relay{pin: pin}
}

// Drive sets the relay level.
func (r *Relay) Drive(ctx context.Context, level door.Level) error {
	return r.pin.Write(ctx, level)
}

// LED drives the status indicator.
type LED struct {
	pin OutputPin
}

// NewLED wraps pin.
func NewLED(pin OutputPin) *LED {
	return &LED{pin: pin}
}

// Set switches the LED on or off.
func (l *LED) Set(ctx context.Context, on bool) error {
	return l.pin.Write(ctx, door.Level(on))
}

package door

import (
	"fmt"
	"time"
)

// MessageKind classifies a notification.
type MessageKind string

const (
	// KindLongOpen is sent once per episode when the notify delay elapses.
	KindLongOpen MessageKind = "long_open"
	// KindAutoClosed is sent after the relay has been pulsed.
	KindAutoClosed MessageKind = "auto_closed"
	// KindCloseFailed is sent when the door stayed open after actuation.
	KindCloseFailed MessageKind = "close_failed"
	// KindHardwareFault is sent when the door sensor keeps failing.
	KindHardwareFault MessageKind = "hardware_fault"
)

// Message is an out-of-band notification for the operator.
type Message struct {
	// Timestamp is when the monitor produced the message.
	Timestamp time.Time
	// Kind classifies the message.
	Kind MessageKind
	// Subject is a short title, used as the e-mail subject.
	Subject string
	// Body is the human-readable text.
	Body string
}

// NewLongOpenMessage builds the notification for a door open past the notify delay.
func NewLongOpenMessage(at time.Time, openFor time.Duration) Message {
	return Message{
		Timestamp: at,
		Kind:      KindLongOpen,
		Subject:   "Notice!",
		Body:      fmt.Sprintf("Garage open! Open for %s.", openFor.Round(time.Second)),
	}
}

// NewAutoClosedMessage builds the notification sent after the relay pulse.
func NewAutoClosedMessage(at time.Time) Message {
	return Message{
		Timestamp: at,
		Kind:      KindAutoClosed,
		Subject:   "Notice! - Autoclosed",
		Body: "Took action to auto-close the door due to it being open " +
			"for a long time during a suspicious time of day.",
	}
}

// NewCloseFailedMessage builds the notification sent when the door did not close.
func NewCloseFailedMessage(at time.Time, waited time.Duration) Message {
	return Message{
		Timestamp: at,
		Kind:      KindCloseFailed,
		Subject:   "Notice! - System failure",
		Body:      fmt.Sprintf("Garage may be open, failed to close within %s!", waited),
	}
}

// NewHardwareFaultMessage builds the notification sent when the sensor keeps failing.
func NewHardwareFaultMessage(at time.Time, failures int, cause error) Message {
	return Message{
		Timestamp: at,
		Kind:      KindHardwareFault,
		Subject:   "Notice! - Sensor fault",
		Body:      fmt.Sprintf("Door sensor failed %d reads in a row: %v", failures, cause),
	}
}

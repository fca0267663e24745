// Package hardware binds the sentinel's ports to GPIO lines.
//
// A Driver hands out raw input and output pins by name. The adapters in this
// package translate raw levels into domain values using the configured
// polarity: door position, enable switch state, opener relay and status LED.
package hardware

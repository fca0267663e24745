// Package door contains core domain types for the garage door sentinel.
//
// It defines the debounced door Position, the binary output Level, the
// Status snapshot rendered to operators and the notification Message
// produced by the monitors.
package door

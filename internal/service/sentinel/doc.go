// Package sentinel wires the garage door sentinel daemon: hardware, the
// shared state, the supervised monitor loops, notifications and the status API.
package sentinel

// Package clock abstracts the time source used by the monitors.
//
// System is backed by the runtime clock. Fake is a deterministic clock for
// tests: Sleep advances the fake time immediately instead of blocking, so a
// whole open episode can be replayed in microseconds.
package clock

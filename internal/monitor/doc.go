// Package monitor implements the garage door state coordination loops.
//
// Four polling loops share one State:
//
//   - SwitchMonitor reads the reed switch, debounces the opening edge and
//     publishes the door position;
//   - EnablePoller publishes the operator enable switch;
//   - DurationMonitor tracks open episodes and raises the long-open alert
//     with a single notification per episode;
//   - ActuationMonitor pulses the opener relay during the suspicious window
//     and verifies that the door closed within the close timeout.
//
// Each field of State has exactly one writer. Loops sleep on a cancellable
// clock and never hold the state lock across a sleep. A Supervisor restarts
// loops that panic or return unexpectedly.
package monitor

package clock

import (
	"context"
	"sync"
	"time"
)

// Clock is the time source of the monitors.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
	// Sleep blocks for d or until ctx is done, whichever comes first.
	Sleep(ctx context.Context, d time.Duration) error
}

// System is the runtime clock.
type System struct{}

// Now returns time.Now.
func (System) Now() time.Time {
	return time.Now()
}

// Sleep waits on a timer that is released when ctx is done.
func (System) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Fake is a manually driven clock.
type Fake struct {
	mu     sync.Mutex
	now    time.Time
	slept  time.Duration
	hookFn func(d time.Duration)
}

// NewFake returns a fake clock set to start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

// Now returns the fake time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.now
}

// Sleep advances the fake time by d without blocking and runs the sleep hook.
func (f *Fake) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.Advance(d)

	f.mu.Lock()
	hook := f.hookFn
	f.slept += d
	f.mu.Unlock()

	if hook != nil {
		hook(d)
	}

	return ctx.Err()
}

// Advance moves the fake time forward.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.now = f.now.Add(d)
}

// Set moves the fake time to t.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.now = t
}

// Slept returns the total duration passed to Sleep.
func (f *Fake) Slept() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.slept
}

// OnSleep registers a hook called after every Sleep with the slept duration.
// Tests use it to change the world while a monitor is waiting, e.g. to close
// the door during the close timeout.
func (f *Fake) OnSleep(hook func(d time.Duration)) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.hookFn = hook
}

package monitor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/oshokin/garage-sentinel/internal/clock"
	"github.com/oshokin/garage-sentinel/internal/logger"
)

// errStoppedUnexpectedly is reported when a loop returns while its context is live.
var errStoppedUnexpectedly = errors.New("loop returned before shutdown")

// Supervisor runs loops concurrently and restarts any loop that panics or
// returns before shutdown, with exponential backoff.
type Supervisor struct {
	// runners are the supervised loops.
	runners []Runner
	// clock paces restarts.
	clock clock.Clock
	// backoff is the first restart delay.
	backoff time.Duration
	// maxBackoff caps the restart delay.
	maxBackoff time.Duration

	// restarts counts restarts per loop name.
	restarts map[string]int
	// mu protects restarts.
	mu sync.Mutex
}

// NewSupervisor creates a supervisor for the provided loops.
func NewSupervisor(clk clock.Clock, backoff, maxBackoff time.Duration, runners ...Runner) *Supervisor {
	if maxBackoff < backoff {
		maxBackoff = backoff
	}

	return &Supervisor{
		runners:    runners,
		clock:      clk,
		backoff:    backoff,
		maxBackoff: maxBackoff,
		restarts:   make(map[string]int, len(runners)),
	}
}

// Run starts every loop and blocks until ctx is done and all loops returned.
func (s *Supervisor) Run(ctx context.Context) error {
	ctx = logger.WithName(ctx, "supervisor")

	var wg sync.WaitGroup

	for _, r := range s.runners {
		wg.Go(func() {
			s.supervise(ctx, r)
		})
	}

	wg.Wait()

	return nil
}

// Restarts returns a copy of the restart counters.
func (s *Supervisor) Restarts() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make(map[string]int, len(s.restarts))
	for name, count := range s.restarts {
		result[name] = count
	}

	return result
}

// supervise keeps one loop running until ctx is done.
func (s *Supervisor) supervise(ctx context.Context, r Runner) {
	delay := s.backoff

	for {
		started := s.clock.Now()
		err := runRecovered(ctx, r)

		if ctx.Err() != nil {
			return
		}

		if err == nil {
			err = errStoppedUnexpectedly
		}

		// A loop that ran for a while before failing starts over with the short delay.
		if s.clock.Now().Sub(started) > s.maxBackoff {
			delay = s.backoff
		}

		restarts := s.countRestart(r.Name())

		logger.ErrorKV(ctx, "Loop stopped, restarting",
			"loop", r.Name(),
			"restarts", restarts,
			"backoff", delay.String(),
			"error", err)

		if err = s.clock.Sleep(ctx, delay); err != nil {
			return
		}

		delay = min(delay*2, s.maxBackoff)
	}
}

// countRestart increments and returns the restart counter of a loop.
func (s *Supervisor) countRestart(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.restarts[name]++

	return s.restarts[name]
}

// runRecovered runs the loop and converts a panic into an error.
func runRecovered(ctx context.Context, r Runner) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic in %s: %v\n%s", r.Name(), p, debug.Stack())
		}
	}()

	return r.Run(ctx)
}

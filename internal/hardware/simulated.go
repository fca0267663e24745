package hardware

import (
	"context"
	"sync"

	"github.com/oshokin/garage-sentinel/internal/domain/door"
)

// Simulated keeps pin levels in memory. It lets the daemon run on machines
// without GPIO and lets tests drive inputs.
type Simulated struct {
	// levels maps pin names to their current level.
	levels map[string]door.Level
	// failures maps pin names to a read or write error.
	failures map[string]error
	// mu protects the maps.
	mu sync.RWMutex
}

// NewSimulated creates a driver with every pin LOW.
func NewSimulated() *Simulated {
	return &Simulated{
		levels:   make(map[string]door.Level),
		failures: make(map[string]error),
	}
}

// Input returns an input backed by the named level.
func (s *Simulated) Input(name string) (InputPin, error) {
	return &simulatedPin{driver: s, name: name}, nil
}

// Output returns an output backed by the named level.
func (s *Simulated) Output(name string) (OutputPin, error) {
	return &simulatedPin{driver: s, name: name}, nil
}

// Set changes the level of a pin.
func (s *Simulated) Set(name string, level door.Level) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.levels[name] = level
}

// Level returns the level of a pin.
func (s *Simulated) Level(name string) door.Level {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.levels[name]
}

// Fail makes every access to the pin return err; nil heals it.
func (s *Simulated) Fail(name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err == nil {
		delete(s.failures, name)

		return
	}

	s.failures[name] = err
}

// simulatedPin is one named line of a Simulated driver.
type simulatedPin struct {
	driver *Simulated
	name   string
}

func (p *simulatedPin) Read(ctx context.Context) (door.Level, error) {
	if err := ctx.Err(); err != nil {
		return door.Low, err
	}

	p.driver.mu.RLock()
	defer p.driver.mu.RUnlock()

	if err := p.driver.failures[p.name]; err != nil {
		return door.Low, err
	}

	return p.driver.levels[p.name], nil
}

func (p *simulatedPin) Write(_ context.Context, level door.Level) error {
	p.driver.mu.Lock()
	defer p.driver.mu.Unlock()

	if err := p.driver.failures[p.name]; err != nil {
		return err
	}

	p.driver.levels[p.name] = level

	return nil
}

// Package connectivity checks whether the sentinel can reach the internet.
package connectivity

import (
	"context"
	"net"
	"time"

	"github.com/oshokin/garage-sentinel/internal/clock"
	"github.com/oshokin/garage-sentinel/internal/logger"
)

// LookupFunc resolves a host name.
type LookupFunc func(ctx context.Context, host string) ([]string, error)

// Publisher receives the probe result.
type Publisher interface {
	SetInternetLive(live bool) bool
}

// Prober resolves a well-known host periodically and publishes whether the
// lookup succeeded. A failure only changes state; it is never notified.
type Prober struct {
	host      string
	interval  time.Duration
	timeout   time.Duration
	lookup    LookupFunc
	publisher Publisher
	clock     clock.Clock
}

// Option configures a prober.
type Option func(*Prober)

// WithLookup replaces the resolver.
func WithLookup(lookup LookupFunc) Option {
	return func(p *Prober) {
		p.lookup = lookup
	}
}

// NewProber creates a prober for host.
func NewProber(
	host string,
	interval, timeout time.Duration,
	publisher Publisher,
	clk clock.Clock,
	opts ...Option,
) *Prober {
	p := &Prober{
		host:      host,
		interval:  interval,
		timeout:   timeout,
		lookup:    net.DefaultResolver.LookupHost,
		publisher: publisher,
		clock:     clk,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Name identifies the loop in logs.
func (p *Prober) Name() string {
	return "connectivity-prober"
}

// Run probes until ctx is done.
func (p *Prober) Run(ctx context.Context) error {
	ctx = logger.WithName(ctx, p.Name())

	logger.InfoKV(ctx, "Connectivity prober started", "host", p.host, "interval", p.interval.String())

	for {
		p.Probe(ctx)

		if err := p.clock.Sleep(ctx, p.interval); err != nil {
			return nil
		}
	}
}

// Probe runs one lookup and publishes the result.
func (p *Prober) Probe(ctx context.Context) bool {
	lookupCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	_, err := p.lookup(lookupCtx, p.host)
	if ctx.Err() != nil {
		return false
	}

	live := err == nil
	if !p.publisher.SetInternetLive(live) {
		return live
	}

	if live {
		logger.Info(ctx, "Internet connection restored")
	} else {
		logger.WarnKV(ctx, "Internet connection lost", "host", p.host, "error", err)
	}

	return live
}

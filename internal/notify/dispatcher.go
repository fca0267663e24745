package notify

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/oshokin/garage-sentinel/internal/domain/door"
	"github.com/oshokin/garage-sentinel/internal/logger"
)

// ErrQueueFull is returned by Enqueue when the message was dropped.
var ErrQueueFull = errors.New("notification queue is full")

// Stats are the delivery counters of a dispatcher.
type Stats struct {
	// Delivered counts successful deliveries.
	Delivered int64
	// Failed counts deliveries that returned an error.
	Failed int64
	// Dropped counts messages rejected because the queue was full.
	Dropped int64
}

// Dispatcher queues messages and delivers them from a single worker.
type Dispatcher struct {
	// notifier delivers messages.
	notifier Notifier
	// queue holds pending messages.
	queue chan door.Message
	// timeout bounds one delivery.
	timeout time.Duration
	// signature is appended to every body.
	signature string

	delivered atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

// Option configures a dispatcher.
type Option func(*Dispatcher)

// WithTimeout bounds every delivery.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithSignature appends a line identifying the sender to every body.
func WithSignature(signature string) Option {
	return func(d *Dispatcher) {
		d.signature = signature
	}
}

// NewDispatcher creates a dispatcher with a queue of the given size.
func NewDispatcher(notifier Notifier, size int, opts ...Option) *Dispatcher {
	if size <= 0 {
		size = 1
	}

	d := &Dispatcher{
		notifier: notifier,
		queue:    make(chan door.Message, size),
		timeout:  30 * time.Second,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Enqueue queues msg without blocking.
func (d *Dispatcher) Enqueue(_ context.Context, msg door.Message) error {
	select {
	case d.queue <- msg:
		return nil
	default:
		d.dropped.Add(1)

		return fmt.Errorf("%s: %w", msg.Kind, ErrQueueFull)
	}
}

// Name identifies the worker in logs.
func (d *Dispatcher) Name() string {
	return "notification-dispatcher"
}

// Run delivers queued messages until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) error {
	ctx = logger.WithName(ctx, d.Name())

	for {
		select {
		case <-ctx.Done():
			if pending := len(d.queue); pending > 0 {
				logger.WarnKV(ctx, "Dispatcher stopped with undelivered notifications", "pending", pending)
			}

			return nil
		case msg := <-d.queue:
			d.deliver(ctx, msg)
		}
	}
}

// Stats returns the delivery counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Delivered: d.delivered.Load(),
		Failed:    d.failed.Load(),
		Dropped:   d.dropped.Load(),
	}
}

// deliver sends one message; a failure is logged and counted only.
func (d *Dispatcher) deliver(ctx context.Context, msg door.Message) {
	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if d.signature != "" {
		msg.Body += "\n\n-- " + d.signature
	}

	if err := d.notifier.Notify(callCtx, msg); err != nil {
		d.failed.Add(1)
		logger.ErrorKV(ctx, "Notification delivery failed", "kind", msg.Kind, "error", err)

		return
	}

	d.delivered.Add(1)
	logger.DebugKV(ctx, "Notification delivered", "kind", msg.Kind)
}

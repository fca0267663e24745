package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/garage-sentinel/internal/domain/door"
	"github.com/oshokin/garage-sentinel/internal/logger"
)

// Notifier delivers a message synchronously.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, msg door.Message) error
}

// Log writes notifications to the log. It is always part of the chain so that
// every notification is visible locally.
type Log struct{}

// Name returns the transport name.
func (Log) Name() string { return "log" }

// Notify logs the message at warning level.
func (Log) Notify(ctx context.Context, msg door.Message) error {
	logger.WarnKV(ctx, msg.Subject, "kind", msg.Kind, "body", msg.Body)

	return nil
}

// Multi delivers to every notifier and joins their errors.
type Multi []Notifier

// Name returns the transport name.
func (m Multi) Name() string { return "multi" }

// Notify delivers to all notifiers even if some fail.
func (m Multi) Notify(ctx context.Context, msg door.Message) error {
	var errs []error

	for _, n := range m {
		if err := n.Notify(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}

	return errors.Join(errs...)
}

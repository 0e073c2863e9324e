package notifier

import (
	"context"

	"github.com/aleister1102/imgsync/internal/common"
	"github.com/rs/zerolog"
)

// Dispatcher calls every registered backend in order. A failing backend
// does not stop the others; all errors are returned joined.
type Dispatcher struct {
	backends []Notifier
	logger   zerolog.Logger
}

// NewDispatcher creates an empty dispatcher
func NewDispatcher(logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		logger: logger.With().Str("module", "notifier").Logger(),
	}
}

// Register adds a backend
func (d *Dispatcher) Register(n Notifier) {
	d.backends = append(d.backends, n)
	d.logger.Info().Str("backend", n.Name()).Msg("Notification backend registered")
}

// Len is the number of registered backends
func (d *Dispatcher) Len() int {
	return len(d.backends)
}

// NotifyAll posts msg on every backend
func (d *Dispatcher) NotifyAll(ctx context.Context, msg Message) error {
	var ec common.ErrorCollector
	for _, n := range d.backends {
		handle, err := n.Notify(ctx, msg)
		if err != nil {
			d.logger.Error().Err(err).Str("backend", n.Name()).Str("shortcode", msg.Shortcode).Msg("Notification failed")
			ec.AddWithContext(err, n.Name())
			continue
		}
		d.logger.Debug().Str("backend", n.Name()).Str("shortcode", msg.Shortcode).Str("handle", handle).Msg("Notification sent")
	}
	return ec.Error()
}

// EditAll updates the message for msg.Shortcode on every backend
func (d *Dispatcher) EditAll(ctx context.Context, msg Message) error {
	var ec common.ErrorCollector
	for _, n := range d.backends {
		if err := n.Edit(ctx, msg); err != nil {
			d.logger.Error().Err(err).Str("backend", n.Name()).Str("shortcode", msg.Shortcode).Msg("Notification edit failed")
			ec.AddWithContext(err, n.Name())
		}
	}
	return ec.Error()
}

// DeleteAll removes the message for shortcode on every backend
func (d *Dispatcher) DeleteAll(ctx context.Context, shortcode string) error {
	var ec common.ErrorCollector
	for _, n := range d.backends {
		if err := n.Delete(ctx, shortcode); err != nil {
			d.logger.Error().Err(err).Str("backend", n.Name()).Str("shortcode", shortcode).Msg("Notification delete failed")
			ec.AddWithContext(err, n.Name())
		}
	}
	return ec.Error()
}

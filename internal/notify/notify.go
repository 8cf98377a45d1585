// ABOUTME: Dispatcher interface and the simple sinks for delivering notifications
// ABOUTME: LogSink records deliveries with slog, Multi fans out to several dispatchers

package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/freegoat/manga-admin/internal/store"
)

// ErrNoSinks is returned by Multi when it has nothing to deliver to.
var ErrNoSinks = errors.New("no notification sinks configured")

// Dispatcher delivers a stored notification. A nil error means it reached readers.
type Dispatcher interface {
	Dispatch(ctx context.Context, n *store.Notification) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, n *store.Notification) error

// Dispatch calls f.
func (f DispatcherFunc) Dispatch(ctx context.Context, n *store.Notification) error {
	return f(ctx, n)
}

// LogSink logs each notification and always succeeds.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a sink writing to the default logger.
func NewLogSink() *LogSink {
	return &LogSink{logger: slog.Default().With("component", "notify")}
}

// Dispatch logs n.
func (s *LogSink) Dispatch(_ context.Context, n *store.Notification) error {
	s.logger.Info("notification delivered",
		"id", n.ID,
		"title", n.Title,
		"type", n.Type,
		"priority", n.Priority,
	)
	return nil
}

// Multi delivers to every dispatcher and succeeds if at least one did.
type Multi []Dispatcher

// Dispatch tries every sink in order. Failures are joined when all of them fail.
func (m Multi) Dispatch(ctx context.Context, n *store.Notification) error {
	if len(m) == 0 {
		return ErrNoSinks
	}
	var errs []error
	for i, d := range m {
		if err := d.Dispatch(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("sink %d: %w", i, err))
		}
	}
	if len(errs) == len(m) {
		return errors.Join(errs...)
	}
	if len(errs) > 0 {
		slog.Default().With("component", "notify").Warn("partial delivery", "notification_id", n.ID, "error", errors.Join(errs...))
	}
	return nil
}

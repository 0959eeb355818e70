package audit

import (
	"context"
	"log/slog"
)

// Store is the append-only persistence contract for audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByApp(ctx context.Context, appID string) ([]Event, error)
}

// Worker consumes audit events from a channel and persists them. It keeps
// background processing off the request path and testable without wiring a
// queue implementation.
type Worker struct {
	store  Store
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(store Store, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{store: store, inbox: inbox, logger: logger}
}

// Run drains the inbox until ctx is cancelled. Append failures are logged
// and the loop continues; losing one audit row must not abort the server.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "failed to persist audit event",
					"action", string(event.Action),
					"error", err,
				)
			}
		}
	}
}

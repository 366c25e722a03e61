package worker

import (
	"context"
	"log/slog"

	audit "authgate/pkg/platform/audit"
)

// Worker consumes audit events from a channel and persists them. A failed
// append is logged and the event dropped; audit delivery never blocks the
// authorization flow.
type Worker struct {
	store  audit.Store
	inbox  <-chan audit.Event
	logger *slog.Logger
}

func NewWorker(store audit.Store, inbox <-chan audit.Event, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{store: store, inbox: inbox, logger: logger}
}

// Run persists events until the inbox is closed (returns nil) or ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.inbox:
			if !ok {
				return nil
			}
			if err := w.store.Append(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "failed to persist audit event",
					"action", event.Action,
					"request_id", event.RequestID,
					"error", err,
				)
			}
		}
	}
}

package audit

import (
	"context"
	"log/slog"

	"sigil/pkg/requestcontext"
)

// Publisher hands events to the background worker without blocking the
// request path. A full inbox drops the event with a log line; the audit
// trail is best-effort and never stalls badge transactions.
type Publisher struct {
	inbox  chan<- Event
	logger *slog.Logger
}

func NewPublisher(inbox chan<- Event, logger *slog.Logger) *Publisher {
	return &Publisher{inbox: inbox, logger: logger}
}

func (p *Publisher) Emit(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	select {
	case p.inbox <- event:
	default:
		p.logger.WarnContext(ctx, "audit inbox full, event dropped",
			"action", string(event.Action),
			"transaction_id", event.TransactionID,
		)
	}
}

package audit

import "time"

// Action identifies what happened.
type Action string

const (
	ActionTransactionStarted Action = "transaction_started"
	ActionEmailSubmitted     Action = "email_submitted"
	ActionBadgeAwarded       Action = "badge_awarded"
	ActionTransactionRefused Action = "transaction_refused"
	ActionSupportRequested   Action = "support_requested"
	ActionAppRegistered      Action = "app_registered"
	ActionAppStatusChanged   Action = "app_status_changed"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp     time.Time
	Action        Action
	TransactionID string
	AppID         string
	UserEmail     string
	Detail        string
}

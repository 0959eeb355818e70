package models

import "time"

// State of a badge transaction. Awarded and Refused are terminal.
type State string

const (
	StatePendingCredentials  State = "pending_credentials"
	StatePendingVerification State = "pending_verification"
	StateAwarded             State = "awarded"
	StateRefused             State = "refused"
)

// RefusalReason is recorded when a transaction enters StateRefused.
type RefusalReason string

const (
	RefusalTooManyRetries RefusalReason = "too_many_retries"
	RefusalUserTimeout    RefusalReason = "user_timeout"
)

// Transaction is one badge-request handshake between a sponsor app, an end
// user and this authority. The ID is the unguessable token handed to the
// user-facing form; it embeds the sponsor app id as a prefix so operators
// can attribute tokens at a glance without a join.
//
// Invariants:
//   - RetryCount only increments while in StatePendingVerification
//   - entering StatePendingVerification resets StartedAt and RetryCount,
//     opening a fresh timeout/retry window
//   - VerificationCode is set only in StatePendingVerification
//   - UserEmail is set from StatePendingVerification onward
type Transaction struct {
	ID               string        `json:"id"`
	State            State         `json:"state"`
	SponsorAppID     string        `json:"sponsor_app_id"`
	SponsorAppName   string        `json:"sponsor_app_name"` // display-name snapshot at creation
	StartedAt        time.Time     `json:"started_at"`
	VerificationCode string        `json:"verification_code,omitempty"`
	UserEmail        string        `json:"user_email,omitempty"`
	RetryCount       int           `json:"retry_count"`
	RefusalReason    RefusalReason `json:"refusal_reason,omitempty"`
}

// Timeouts are lazy: evaluated against StartedAt whenever the transaction is
// next touched, never by a background timer. The two windows close
// differently: credentials must arrive strictly inside their window, while a
// code submitted at the exact verification deadline still counts.

// CredentialsWindowClosed reports whether the email-submission window has
// closed. A submission at exactly StartedAt+window is late.
func (t *Transaction) CredentialsWindowClosed(now time.Time, window time.Duration) bool {
	return !now.Before(t.StartedAt.Add(window))
}

// Expired reports whether the verification window has passed.
func (t *Transaction) Expired(now time.Time, window time.Duration) bool {
	return now.After(t.StartedAt.Add(window))
}

package models

import "time"

// Type distinguishes how a badge was earned.
type Type string

const (
	// TypeEmail is the plain proof-of-address badge; its name is the email
	// domain itself.
	TypeEmail Type = "email"
	// TypeInferred is a category badge derived from the domain through the
	// inference graph (e.g. apple.com -> "Tech Industry").
	TypeInferred Type = "inferred"
)

// Badge is an awarded credential. Immutable after creation; expiry is
// consumed elsewhere, never rewritten here.
type Badge struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	OwnerEmail      string     `json:"owner_email"`
	Type            Type       `json:"type"`
	CreatedAt       time.Time  `json:"created_at"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"` // nil = never expires
	RequestingAppID string     `json:"requesting_app_id"`
}

// Active reports whether the badge is unexpired at the given instant.
func (b Badge) Active(now time.Time) bool {
	return b.ExpiresAt == nil || b.ExpiresAt.After(now)
}

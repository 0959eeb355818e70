package models

import (
	"strings"
	"time"

	dErrors "sigil/pkg/domain-errors"
)

// Status of a sponsor app's membership with this authority. Only active apps
// may start badge transactions.
type Status string

const (
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusSuspended Status = "suspended"
)

// Application is a registered badge-sponsor app.
//
// Invariants:
//   - ID is non-empty and doubles as the app's login name
//   - PasswordHash holds a bcrypt hash, never a plaintext password
//   - CallbackEndpoint + CallbackPath form the URL that receives outcome
//     notifications
//   - Immutable after creation except Status
type Application struct {
	ID               string    `json:"id"`
	DisplayName      string    `json:"display_name"`
	PasswordHash     string    `json:"-"`
	CallbackEndpoint string    `json:"callback_endpoint"`
	CallbackPath     string    `json:"callback_path"`
	Status           Status    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
}

func NewApplication(id, displayName, passwordHash, callbackEndpoint, callbackPath string, now time.Time) (*Application, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "application id cannot be empty")
	}
	if passwordHash == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "application password hash cannot be empty")
	}
	if callbackEndpoint == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "callback endpoint cannot be empty")
	}
	if displayName == "" {
		displayName = id
	}
	return &Application{
		ID:               id,
		DisplayName:      displayName,
		PasswordHash:     passwordHash,
		CallbackEndpoint: strings.TrimRight(callbackEndpoint, "/"),
		CallbackPath:     strings.TrimLeft(callbackPath, "/"),
		Status:           StatusActive,
		CreatedAt:        now,
	}, nil
}

// CallbackURL joins endpoint and path into the POST target for outcome
// notifications.
func (a *Application) CallbackURL() string {
	if a.CallbackPath == "" {
		return a.CallbackEndpoint
	}
	return a.CallbackEndpoint + "/" + a.CallbackPath
}

// IsActive reports whether the app may start transactions.
func (a *Application) IsActive() bool {
	return a.Status == StatusActive
}

// ValidStatus reports whether s is a known membership status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusActive, StatusExpired, StatusSuspended:
		return true
	}
	return false
}

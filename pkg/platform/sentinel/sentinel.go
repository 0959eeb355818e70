package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: record does not exist in store
// - ErrConflict: a uniqueness constraint rejected the write
// - ErrStateMismatch: conditional update found a different prior state
// - ErrUnavailable: store temporarily unreachable
//
// For validation errors use pkg/domain-errors directly.
var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrStateMismatch = errors.New("state mismatch")
	ErrUnavailable   = errors.New("unavailable")
)

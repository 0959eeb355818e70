// Package issuer materializes badges idempotently: at most one badge exists
// per (name, owner email) pair, no matter how many transactions try.
package issuer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	badgeModel "sigil/internal/badge/models"
	"sigil/internal/platform/metrics"
	dErrors "sigil/pkg/domain-errors"
	"sigil/pkg/platform/sentinel"
	"sigil/pkg/requestcontext"
)

// Store is the persistence contract for badges.
type Store interface {
	Insert(ctx context.Context, badge *badgeModel.Badge) error
	FindByNameAndOwner(ctx context.Context, name, ownerEmail string) (*badgeModel.Badge, error)
	ListByOwner(ctx context.Context, ownerEmail string) ([]badgeModel.Badge, error)
}

// Issuer creates and deduplicates badges.
type Issuer struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func New(store Store, logger *slog.Logger, metrics *metrics.Metrics) *Issuer {
	return &Issuer{store: store, logger: logger, metrics: metrics}
}

// EnsureBadge returns the existing badge for (name, ownerEmail) or mints a
// new one. An existing badge is returned unchanged: no new expiry, no
// duplicate. The lookup-then-insert is not atomic, so the store's uniqueness
// constraint is the backstop; a conflicting insert re-reads the winner.
func (i *Issuer) EnsureBadge(ctx context.Context, name, ownerEmail string, badgeType badgeModel.Type, expiresAt *time.Time, requestingAppID string) (*badgeModel.Badge, error) {
	existing, err := i.store.FindByNameAndOwner(ctx, name, ownerEmail)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up badge")
	}

	badge := &badgeModel.Badge{
		Name:            name,
		OwnerEmail:      ownerEmail,
		Type:            badgeType,
		CreatedAt:       requestcontext.Now(ctx),
		ExpiresAt:       expiresAt,
		RequestingAppID: requestingAppID,
	}
	if err := i.store.Insert(ctx, badge); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// Lost the race to another transaction; the winner's badge is
			// the badge.
			winner, findErr := i.store.FindByNameAndOwner(ctx, name, ownerEmail)
			if findErr != nil {
				return nil, dErrors.Wrap(findErr, dErrors.CodeInternal, "failed to load badge after conflict")
			}
			return winner, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to insert badge")
	}

	if i.metrics != nil {
		i.metrics.BadgesMinted.WithLabelValues(string(badgeType)).Inc()
	}
	i.logger.InfoContext(ctx, "badge minted",
		"badge_id", badge.ID,
		"badge_name", name,
		"badge_type", string(badgeType),
		"app_id", requestingAppID,
	)
	return badge, nil
}

// ActiveForOwner returns the owner's non-expired badges at the
// request-scoped instant.
func (i *Issuer) ActiveForOwner(ctx context.Context, ownerEmail string) ([]badgeModel.Badge, error) {
	all, err := i.store.ListByOwner(ctx, ownerEmail)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list badges")
	}
	now := requestcontext.Now(ctx)
	active := all[:0]
	for _, badge := range all {
		if badge.Active(now) {
			active = append(active, badge)
		}
	}
	return active, nil
}

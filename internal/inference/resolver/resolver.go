package resolver

import (
	"context"

	"sigil/internal/inference/models"
	dErrors "sigil/pkg/domain-errors"
)

// Store is the read contract against the inference graph.
type Store interface {
	FindByDomain(ctx context.Context, domain string) ([]models.Entry, error)
}

// ErrSchemaIndeterminate marks a resolve that hit rows written under a schema
// this code does not understand. Callers must fail the operation, not treat
// the domain as unsupported.
var ErrSchemaIndeterminate = dErrors.New(dErrors.CodeInternal, "inference graph contains entries with an unsupported schema version")

// Resolver answers "which inferred badge names does this domain carry".
type Resolver struct {
	store Store
}

func New(store Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve returns the inferred badge names for domain. The result is empty
// (not an error) for unknown domains. Any row with a schema version other
// than the supported one poisons the whole response.
func (r *Resolver) Resolve(ctx context.Context, domain string) ([]string, error) {
	entries, err := r.store.FindByDomain(ctx, domain)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read inference graph")
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.SchemaVersion != models.SchemaVersionSupported {
			return nil, ErrSchemaIndeterminate
		}
		names = append(names, entry.InferredBadgeName)
	}
	return names, nil
}

// IsSupported reports whether the domain maps to at least one inferred name.
func (r *Resolver) IsSupported(ctx context.Context, domain string) (bool, error) {
	names, err := r.Resolve(ctx, domain)
	if err != nil {
		return false, err
	}
	return len(names) > 0, nil
}

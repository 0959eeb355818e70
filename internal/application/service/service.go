package service

import (
	"context"
	"errors"
	"log/slog"

	"sigil/internal/application/models"
	dErrors "sigil/pkg/domain-errors"
	"sigil/pkg/platform/sentinel"
	"sigil/pkg/requestcontext"
	"sigil/pkg/secrets"
)

// Store is the persistence contract for sponsor applications.
type Store interface {
	Create(ctx context.Context, app *models.Application) error
	FindByID(ctx context.Context, id string) (*models.Application, error)
	UpdateStatus(ctx context.Context, id string, status models.Status) error
}

// Service manages sponsor-app registration and authentication. Applications
// are owned by the administrative surface; the orchestrator only reads them.
type Service struct {
	store  Store
	logger *slog.Logger
}

func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Register creates a sponsor application, hashing the provided password.
func (s *Service) Register(ctx context.Context, id, displayName, password, callbackEndpoint, callbackPath string) (*models.Application, error) {
	hash, err := secrets.Hash(password)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvalidInput) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash application password")
	}
	app, err := models.NewApplication(id, displayName, hash, callbackEndpoint, callbackPath, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, app); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "application id is already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to register application")
	}
	return app, nil
}

// Authenticate verifies sponsor credentials and membership status. The error
// is the same for unknown id, wrong password and inactive membership so
// probing cannot distinguish them.
func (s *Service) Authenticate(ctx context.Context, id, password string) (*models.Application, error) {
	unauthorized := dErrors.New(dErrors.CodeUnauthorized, "unknown application or bad credentials")

	app, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, unauthorized
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load application")
	}
	if err := secrets.Verify(password, app.PasswordHash); err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			return nil, unauthorized
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify credentials")
	}
	if !app.IsActive() {
		s.logger.WarnContext(ctx, "inactive application attempted to start a transaction",
			"app_id", app.ID,
			"status", string(app.Status),
		)
		return nil, unauthorized
	}
	return app, nil
}

// Get loads an application by id.
func (s *Service) Get(ctx context.Context, id string) (*models.Application, error) {
	app, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "application not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load application")
	}
	return app, nil
}

// SetStatus updates membership status, the only mutable field.
func (s *Service) SetStatus(ctx context.Context, id string, status models.Status) error {
	if !models.ValidStatus(status) {
		return dErrors.New(dErrors.CodeBadRequest, "unknown application status: "+string(status))
	}
	if err := s.store.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "application not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update application status")
	}
	return nil
}

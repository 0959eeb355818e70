// Package handler exposes the JWT-gated administrative API: sponsor-app
// registration and inference graph maintenance.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	appModel "sigil/internal/application/models"
	"sigil/internal/audit"
	inferenceModel "sigil/internal/inference/models"
	dErrors "sigil/pkg/domain-errors"
	"sigil/pkg/platform/httputil"
	"sigil/pkg/platform/sentinel"
)

// Applications is the slice of the application service the admin API needs.
type Applications interface {
	Register(ctx context.Context, id, displayName, password, callbackEndpoint, callbackPath string) (*appModel.Application, error)
	Get(ctx context.Context, id string) (*appModel.Application, error)
	SetStatus(ctx context.Context, id string, status appModel.Status) error
}

// Graph is the writable view of the domain-inference graph.
type Graph interface {
	Add(ctx context.Context, entry inferenceModel.Entry) error
	FindByDomain(ctx context.Context, domain string) ([]inferenceModel.Entry, error)
}

// AuditPublisher records administrative actions.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

// Handler wires admin endpoints to their services. The router mounts it
// behind middleware.RequireAdmin.
type Handler struct {
	apps   Applications
	graph  Graph
	audit  AuditPublisher
	logger *slog.Logger
}

func New(apps Applications, graph Graph, audit AuditPublisher, logger *slog.Logger) *Handler {
	return &Handler{apps: apps, graph: graph, audit: audit, logger: logger}
}

// Register mounts the admin endpoints on the (already guarded) router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/applications", h.HandleRegisterApplication)
	r.Put("/applications/{id}/status", h.HandleSetApplicationStatus)
	r.Post("/inference-entries", h.HandleAddInferenceEntry)
	r.Get("/inference-entries/{domain}", h.HandleListInferenceEntries)
}

// RegisterApplicationRequest creates a sponsor app.
type RegisterApplicationRequest struct {
	ID               string `json:"id"`
	DisplayName      string `json:"display_name"`
	Password         string `json:"password"`
	CallbackEndpoint string `json:"callback_endpoint"`
	CallbackPath     string `json:"callback_path"`
}

// SetStatusRequest changes a sponsor app's membership status.
type SetStatusRequest struct {
	Status string `json:"status"`
}

// AddInferenceEntryRequest maps a domain to an inferred badge name.
type AddInferenceEntryRequest struct {
	Domain            string `json:"domain"`
	InferredBadgeName string `json:"inferred_badge_name"`
}

// HandleRegisterApplication handles POST /admin/applications.
func (h *Handler) HandleRegisterApplication(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.Decode[RegisterApplicationRequest](w, r, h.logger)
	if !ok {
		return
	}

	app, err := h.apps.Register(ctx, req.ID, req.DisplayName, req.Password, req.CallbackEndpoint, req.CallbackPath)
	if err != nil {
		h.logger.WarnContext(ctx, "application registration failed", "app_id", req.ID, "error", err)
		httputil.WriteError(w, err)
		return
	}

	h.audit.Emit(ctx, audit.Event{Action: audit.ActionAppRegistered, AppID: app.ID})
	h.logger.InfoContext(ctx, "application registered", "app_id", app.ID)
	httputil.WriteJSON(w, http.StatusCreated, app)
}

// HandleSetApplicationStatus handles PUT /admin/applications/{id}/status.
func (h *Handler) HandleSetApplicationStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	req, ok := httputil.Decode[SetStatusRequest](w, r, h.logger)
	if !ok {
		return
	}

	if err := h.apps.SetStatus(ctx, id, appModel.Status(req.Status)); err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.audit.Emit(ctx, audit.Event{Action: audit.ActionAppStatusChanged, AppID: id, Detail: req.Status})
	app, err := h.apps.Get(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, app)
}

// HandleAddInferenceEntry handles POST /admin/inference-entries.
func (h *Handler) HandleAddInferenceEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.Decode[AddInferenceEntryRequest](w, r, h.logger)
	if !ok {
		return
	}
	if req.Domain == "" || req.InferredBadgeName == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "domain and inferred_badge_name are required"))
		return
	}

	entry := inferenceModel.Entry{
		Domain:            req.Domain,
		InferredBadgeName: req.InferredBadgeName,
		SchemaVersion:     inferenceModel.SchemaVersionSupported,
	}
	if err := h.graph.Add(ctx, entry); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			err = dErrors.New(dErrors.CodeConflict, "entry already exists for this domain")
		}
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "inference entry added",
		"domain", req.Domain,
		"inferred_badge_name", req.InferredBadgeName,
	)
	httputil.WriteJSON(w, http.StatusCreated, entry)
}

// HandleListInferenceEntries handles GET /admin/inference-entries/{domain}.
func (h *Handler) HandleListInferenceEntries(w http.ResponseWriter, r *http.Request) {
	domain := chi.URLParam(r, "domain")
	entries, err := h.graph.FindByDomain(r.Context(), domain)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entries)
}

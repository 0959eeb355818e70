// Package handler exposes the public badge-transaction endpoints: the
// sponsor-facing begin call and the user-facing form submissions.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"sigil/internal/transaction/models"
	"sigil/pkg/platform/httputil"
	"sigil/pkg/requestcontext"
)

// Service defines the transaction operations the transport needs.
type Service interface {
	Begin(ctx context.Context, appID, appPassword string) (models.Step, error)
	SubmitEmail(ctx context.Context, token, email string) models.Step
	SubmitCode(ctx context.Context, token, code string) models.Step
	RequestDomainSupport(ctx context.Context, email, domain string)
}

// Handler wires transaction endpoints to the orchestrator.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the public endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/badges/transactions", h.HandleBegin)
	r.Post("/badges/credentials", h.HandleSubmitEmail)
	r.Post("/badges/verify", h.HandleSubmitCode)
	r.Post("/badges/support-request", h.HandleSupportRequest)
}

// BeginRequest carries the sponsor app's credentials.
type BeginRequest struct {
	AppID       string `json:"app_id"`
	AppPassword string `json:"app_password"`
}

// CredentialsRequest carries the user's email for a pending transaction.
type CredentialsRequest struct {
	Token string `json:"token"`
	Email string `json:"email"`
}

// VerifyRequest carries the emailed code.
type VerifyRequest struct {
	Token string `json:"token"`
	Code  string `json:"code"`
}

// SupportRequest asks the authority to support an email domain.
type SupportRequest struct {
	Email  string `json:"email"`
	Domain string `json:"domain"`
}

// HandleBegin handles POST /badges/transactions.
func (h *Handler) HandleBegin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	req, ok := httputil.Decode[BeginRequest](w, r, h.logger)
	if !ok {
		return
	}

	step, err := h.service.Begin(ctx, req.AppID, req.AppPassword)
	if err != nil {
		h.logger.WarnContext(ctx, "begin transaction rejected",
			"request_id", requestcontext.RequestID(ctx),
			"app_id", req.AppID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "transaction opened",
		"request_id", requestcontext.RequestID(ctx),
		"app_id", req.AppID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, step)
}

// HandleSubmitEmail handles POST /badges/credentials.
func (h *Handler) HandleSubmitEmail(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[CredentialsRequest](w, r, h.logger)
	if !ok {
		return
	}
	step := h.service.SubmitEmail(r.Context(), req.Token, req.Email)
	httputil.WriteJSON(w, http.StatusOK, step)
}

// HandleSubmitCode handles POST /badges/verify.
func (h *Handler) HandleSubmitCode(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[VerifyRequest](w, r, h.logger)
	if !ok {
		return
	}
	step := h.service.SubmitCode(r.Context(), req.Token, req.Code)
	httputil.WriteJSON(w, http.StatusOK, step)
}

// HandleSupportRequest handles POST /badges/support-request. Always
// acknowledged; delivery to the operators is best-effort.
func (h *Handler) HandleSupportRequest(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[SupportRequest](w, r, h.logger)
	if !ok {
		return
	}
	h.service.RequestDomainSupport(r.Context(), req.Email, req.Domain)
	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

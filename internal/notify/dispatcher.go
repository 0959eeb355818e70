// Package notify delivers the authority's outbound messages: sponsor
// callbacks over HTTP and verification emails over SMTP.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	badgeModel "sigil/internal/badge/models"
	"sigil/internal/platform/config"
	"sigil/internal/platform/metrics"
)

// BadgePayload is the sponsor-facing view of one awarded badge.
type BadgePayload struct {
	BadgeID   string `json:"badge_id"`
	BadgeType string `json:"badge_type"`
	BadgeName string `json:"badge_name"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

// CallbackPayload is the body POSTed to a sponsor's callback URL.
type CallbackPayload struct {
	TransactionID string         `json:"transaction_id"`
	Authority     string         `json:"authority"`
	State         string         `json:"state"`
	Badges        []BadgePayload `json:"badges,omitempty"`
	Reason        string         `json:"reason,omitempty"`
}

const (
	callbackStateGranted     = "granted"
	callbackStateRefused     = "refused"
	callbackStateServerError = "server_error"
)

// Dispatcher POSTs transaction outcomes to sponsor apps. One pooled client
// serves all sponsors; per-request deadlines come from the client timeout.
type Dispatcher struct {
	client    *http.Client
	authority string
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func NewDispatcher(cfg config.CallbackConfig, authority string, logger *slog.Logger, m *metrics.Metrics) *Dispatcher {
	transport := &http.Transport{
		MaxIdleConns:    cfg.MaxIdleConns,
		MaxConnsPerHost: cfg.MaxConnsPerHost,
		IdleConnTimeout: 90 * time.Second,
	}
	return &Dispatcher{
		client:    &http.Client{Transport: transport, Timeout: cfg.Timeout},
		authority: authority,
		logger:    logger,
		metrics:   m,
	}
}

// NotifyGranted reports freshly awarded (or re-confirmed) badges. The
// returned bool says whether the sponsor acknowledged with 202; delivery
// errors are folded into "not acknowledged" because the award already stands
// and must not be rolled back.
func (d *Dispatcher) NotifyGranted(ctx context.Context, callbackURL, transactionID string, badges []badgeModel.Badge) bool {
	payload := CallbackPayload{
		TransactionID: transactionID,
		Authority:     d.authority,
		State:         callbackStateGranted,
		Badges:        make([]BadgePayload, 0, len(badges)),
	}
	for _, b := range badges {
		bp := BadgePayload{
			BadgeID:   b.ID,
			BadgeType: string(b.Type),
			BadgeName: b.Name,
		}
		if b.ExpiresAt != nil {
			bp.ExpiresAt = b.ExpiresAt.UTC().Format(time.RFC3339)
		}
		payload.Badges = append(payload.Badges, bp)
	}
	return d.post(ctx, callbackURL, transactionID, payload)
}

// NotifyRefused reports a terminal refusal. Fire-and-forget: the sponsor's
// answer does not change the transaction's fate.
func (d *Dispatcher) NotifyRefused(ctx context.Context, callbackURL, transactionID, reason string) {
	d.post(ctx, callbackURL, transactionID, CallbackPayload{
		TransactionID: transactionID,
		Authority:     d.authority,
		State:         callbackStateRefused,
		Reason:        reason,
	})
}

// NotifyServerError tells the sponsor the transaction died to an internal
// fault so it can stop waiting. Fire-and-forget.
func (d *Dispatcher) NotifyServerError(ctx context.Context, callbackURL, transactionID string) {
	d.post(ctx, callbackURL, transactionID, CallbackPayload{
		TransactionID: transactionID,
		Authority:     d.authority,
		State:         callbackStateServerError,
	})
}

func (d *Dispatcher) post(ctx context.Context, callbackURL, transactionID string, payload CallbackPayload) bool {
	body, err := json.Marshal(payload)
	if err != nil {
		d.logger.ErrorContext(ctx, "failed to marshal callback payload", "error", err)
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, callbackURL, bytes.NewReader(body))
	if err != nil {
		d.logger.ErrorContext(ctx, "failed to build callback request",
			"transaction_id", transactionID,
			"error", err,
		)
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := d.client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		d.metrics.ObserveCallback("error", elapsed)
		d.logger.WarnContext(ctx, "sponsor callback failed",
			"transaction_id", transactionID,
			"state", payload.State,
			"error", err,
		)
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	// The contract is strict: only 202 counts as an acknowledgement.
	if resp.StatusCode != http.StatusAccepted {
		d.metrics.ObserveCallback("rejected", elapsed)
		d.logger.WarnContext(ctx, "sponsor did not acknowledge callback",
			"transaction_id", transactionID,
			"state", payload.State,
			"status", fmt.Sprintf("%d", resp.StatusCode),
		)
		return false
	}
	d.metrics.ObserveCallback("accepted", elapsed)
	return true
}

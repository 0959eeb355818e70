// Package httptransport composes the feature handlers into the public
// router. No business logic lives here.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	adminHandler "sigil/internal/admin/handler"
	"sigil/internal/platform/metrics"
	"sigil/internal/platform/middleware"
	transactionHandler "sigil/internal/transaction/handler"
)

// Deps are the pieces the router mounts.
type Deps struct {
	Transactions *transactionHandler.Handler
	Admin        *adminHandler.Handler
	JWTValidator middleware.JWTValidator
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
}

// NewRouter assembles middleware and routes. Public badge endpoints carry no
// session auth of their own; the token inside the request body is the
// credential. Admin endpoints sit behind the JWT gate.
func NewRouter(deps Deps) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recovery(deps.Logger))
	router.Use(middleware.Logger(deps.Logger))
	router.Use(middleware.Timeout(30 * time.Second))
	router.Use(middleware.ContentTypeJSON)
	router.Use(middleware.LatencyMiddleware(deps.Metrics))

	deps.Transactions.Register(router)

	router.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequireAdmin(deps.JWTValidator, deps.Logger))
		deps.Admin.Register(r)
	})

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return router
}

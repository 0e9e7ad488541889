// Package httptransport assembles the HTTP surface: the public terminal
// session endpoint, the authenticated verification and heartbeat endpoints,
// and the operational health and metrics endpoints.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pollguard/internal/platform/middleware"
	"pollguard/internal/terminal"
	terminalhandler "pollguard/internal/terminal/handler"
	verificationhandler "pollguard/internal/verification/handler"
	"pollguard/pkg/platform/httputil"
)

// HealthCheck probes one backing dependency.
type HealthCheck func(ctx context.Context) error

// Routes carries everything the router mounts.
type Routes struct {
	Verification *verificationhandler.Handler
	Terminal     *terminalhandler.Handler
	Tokens       terminal.TokenValidator
	Logger       *slog.Logger
	Health       map[string]HealthCheck
}

// NewRouter wires the middleware chain and all endpoints. Terminal
// authentication guards everything except the session exchange, health,
// and metrics.
func NewRouter(routes Routes) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(routes.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(routes.Logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ContentTypeJSON)

	r.Get("/healthz", healthHandler(routes.Health))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	routes.Terminal.RegisterSession(r)

	r.Group(func(authed chi.Router) {
		authed.Use(terminal.RequireTerminal(routes.Tokens, routes.Logger))
		routes.Verification.Register(authed)
		routes.Terminal.RegisterHeartbeat(authed)
	})

	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		if len(checks) > 0 {
			resp.Checks = make(map[string]string, len(checks))
			for name, check := range checks {
				if err := check(r.Context()); err != nil {
					resp.Checks[name] = err.Error()
					resp.Status = "degraded"
					status = http.StatusServiceUnavailable
				} else {
					resp.Checks[name] = "ok"
				}
			}
		}
		httputil.WriteJSON(w, status, resp)
	}
}

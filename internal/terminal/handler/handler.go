// Package handler exposes the terminal session and heartbeat endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pollguard/internal/terminal"
	dErrors "pollguard/pkg/domain-errors"
	"pollguard/pkg/platform/httputil"
	"pollguard/pkg/requestcontext"
)

// Service defines the terminal operations the handler depends on.
type Service interface {
	Authenticate(ctx context.Context, terminalID, secret string) (string, error)
	Heartbeat(ctx context.Context, hb terminal.Heartbeat) bool
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterSession mounts the unauthenticated session endpoint.
func (h *Handler) RegisterSession(r chi.Router) {
	r.Post("/api/terminal/session", h.HandleSession)
}

// RegisterHeartbeat mounts the authenticated heartbeat endpoint.
func (h *Handler) RegisterHeartbeat(r chi.Router) {
	r.Post("/api/terminal/heartbeat", h.HandleHeartbeat)
}

// HandleSession exchanges an enrollment secret for a session token.
func (h *Handler) HandleSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SessionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	token, err := h.service.Authenticate(ctx, req.TerminalID, req.Secret)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, SessionResponse{
		AccessToken: token,
		TokenType:   "Bearer",
	})
}

// HandleHeartbeat records a terminal liveness report.
func (h *Handler) HandleHeartbeat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[HeartbeatRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	// An authenticated terminal may only report for itself.
	if authTerminal := requestcontext.TerminalID(ctx); authTerminal != "" && authTerminal != req.TerminalID {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "terminal_id does not match session"))
		return
	}

	updatesAvailable := h.service.Heartbeat(ctx, terminal.Heartbeat{
		TerminalID:       req.TerminalID,
		PollingStationID: requestcontext.StationID(ctx),
		Status:           req.Status,
	})

	httputil.WriteJSON(w, http.StatusOK, HeartbeatResponse{
		Status:           "acknowledged",
		UpdatesAvailable: updatesAvailable,
	})
}

package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pollguard/internal/verification"
	dErrors "pollguard/pkg/domain-errors"
	"pollguard/pkg/platform/httputil"
	"pollguard/pkg/requestcontext"
)

// Service defines the interface for verification operations.
type Service interface {
	Verify(ctx context.Context, req verification.Request) (*verification.Result, error)
}

// Handler wires the verification endpoint to the orchestrator.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a verification handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts verification endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/verify", h.HandleVerify)
}

// HandleVerify handles POST /api/verify requests.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[VerifyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	// An authenticated terminal may only verify as itself.
	if authTerminal := requestcontext.TerminalID(ctx); authTerminal != "" && authTerminal != req.TerminalID {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "terminal_id does not match session"))
		return
	}

	result, err := h.service.Verify(ctx, req.ToDomain())
	if err != nil {
		h.logger.ErrorContext(ctx, "verification failed",
			"request_id", requestID,
			"terminal_id", req.TerminalID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, statusCodeFor(result), FromResult(result))
}

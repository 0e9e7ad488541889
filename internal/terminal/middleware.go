package terminal

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"pollguard/pkg/requestcontext"
)

// TokenValidator validates a bearer token into terminal claims.
type TokenValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

// RequireTerminal is middleware that authenticates the calling terminal and
// injects its identity into the request context.
func RequireTerminal(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Terminal token required")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				ctx := r.Context()
				logger.WarnContext(ctx, "unauthorized terminal - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired terminal token")
				return
			}

			ctx := requestcontext.WithTerminalID(r.Context(), claims.TerminalID)
			ctx = requestcontext.WithStationID(ctx, claims.PollingStationID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":%q,"error_description":%q}`, errCode, errDesc))
}

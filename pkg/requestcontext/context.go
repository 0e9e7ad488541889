// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values. Middleware sets them, services read them, and tests
// inject them without running the full middleware chain.
package requestcontext

import (
	"context"
	"time"
)

// Context key types (unexported for encapsulation).
type (
	requestIDKey   struct{}
	terminalIDKey  struct{}
	stationIDKey   struct{}
	requestTimeKey struct{}
)

// RequestID retrieves the request correlation ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request correlation ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// TerminalID retrieves the authenticated terminal ID from the context.
// Empty when the request did not pass terminal authentication.
func TerminalID(ctx context.Context) string {
	if terminalID, ok := ctx.Value(terminalIDKey{}).(string); ok {
		return terminalID
	}
	return ""
}

// WithTerminalID injects the authenticated terminal ID into the context.
func WithTerminalID(ctx context.Context, terminalID string) context.Context {
	return context.WithValue(ctx, terminalIDKey{}, terminalID)
}

// StationID retrieves the polling station the terminal is enrolled at.
func StationID(ctx context.Context) string {
	if stationID, ok := ctx.Value(stationIDKey{}).(string); ok {
		return stationID
	}
	return ""
}

// WithStationID injects the terminal's polling station into the context.
func WithStationID(ctx context.Context, stationID string) context.Context {
	return context.WithValue(ctx, stationIDKey{}, stationID)
}

// Now retrieves the request-scoped time from context. Falls back to
// time.Now() for non-HTTP contexts like workers and tests that don't set it.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context. Useful for service unit
// tests and for workers that need consistent time within a batch.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}

// Package terminal owns the polling-terminal session boundary: short-lived
// JWT session tokens issued against enrolled terminal secrets, the request
// middleware that validates them, and the heartbeat monitor.
package terminal

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "pollguard/pkg/domain-errors"
)

// Claims are the session token claims for an authenticated terminal.
type Claims struct {
	TerminalID       string `json:"terminal_id"`
	PollingStationID string `json:"polling_station_id"`
	jwt.RegisteredClaims
}

// TokenService issues and validates terminal session tokens.
type TokenService struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
}

// NewTokenService constructs a token service with HS256 signing.
func NewTokenService(signingKey string, ttl time.Duration) *TokenService {
	return &TokenService{
		signingKey: []byte(signingKey),
		issuer:     "pollguard",
		ttl:        ttl,
	}
}

// Issue creates a session token for an enrolled terminal.
func (s *TokenService) Issue(terminalID, pollingStationID string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		TerminalID:       terminalID,
		PollingStationID: pollingStationID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(s.signingKey)
}

// ValidateToken parses and verifies a session token.
func (s *TokenService) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	if claims.TerminalID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token missing terminal claim")
	}
	return claims, nil
}

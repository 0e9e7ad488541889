package terminal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSigningKey = "test-signing-key"

func TestTokenRoundTrip(t *testing.T) {
	svc := NewTokenService(testSigningKey, time.Hour)

	token, err := svc.Issue("term-A", "station-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "term-A", claims.TerminalID)
	assert.Equal(t, "station-1", claims.PollingStationID)
	assert.Equal(t, "pollguard", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestValidateTokenRejections(t *testing.T) {
	svc := NewTokenService(testSigningKey, time.Hour)

	t.Run("garbage token", func(t *testing.T) {
		_, err := svc.ValidateToken("not-a-token")
		assert.Error(t, err)
	})

	t.Run("wrong signing key", func(t *testing.T) {
		other := NewTokenService("a-different-key", time.Hour)
		token, err := other.Issue("term-A", "station-1")
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("expired token", func(t *testing.T) {
		expired := NewTokenService(testSigningKey, -time.Minute)
		token, err := expired.Issue("term-A", "station-1")
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("missing terminal claim", func(t *testing.T) {
		token, err := svc.Issue("", "station-1")
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.Error(t, err)
	})
}

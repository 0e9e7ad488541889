package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	first, err := Generate()
	require.NoError(t, err)
	assert.NotEmpty(t, first)

	second, err := Generate()
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestHashAndVerify(t *testing.T) {
	secret, err := Generate()
	require.NoError(t, err)

	hash, err := Hash(secret)
	require.NoError(t, err)
	assert.NotEqual(t, secret, hash)

	assert.NoError(t, Verify(secret, hash))
	assert.Error(t, Verify("wrong-secret", hash))
}

func TestHashEmptySecret(t *testing.T) {
	_, err := Hash("")
	assert.Error(t, err)
}

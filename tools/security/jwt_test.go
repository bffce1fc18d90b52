package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateVerifyRoundTrip(t *testing.T) {
	opts := DefaultOptions([]byte("secret"))
	token, expireAt, err := Generate(opts, "user-1")
	require.NoError(t, err)
	assert.True(t, expireAt.After(time.Now()))

	sub, err := Verify(opts, token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", sub)
}

func TestVerifyWrongSecret(t *testing.T) {
	token, _, err := Generate(DefaultOptions([]byte("secret")), "user-1")
	require.NoError(t, err)

	_, err = Verify(DefaultOptions([]byte("other")), token)
	assert.Error(t, err)
}

func TestVerifyExpired(t *testing.T) {
	opts := DefaultOptions([]byte("secret"))
	opts.TTL = -time.Minute
	token, _, err := Generate(opts, "user-1")
	require.NoError(t, err)

	_, err = Verify(opts, token)
	assert.Error(t, err)
}

func TestVerifyGarbage(t *testing.T) {
	_, err := Verify(DefaultOptions([]byte("secret")), "not.a.token")
	assert.Error(t, err)
}

func TestAlgVariants(t *testing.T) {
	for _, alg := range []string{"HS256", "HS384", "HS512", "hs256"} {
		opts := DefaultOptions([]byte("secret"))
		opts.Alg = alg
		token, _, err := Generate(opts, "user-1")
		require.NoError(t, err, alg)
		sub, err := Verify(opts, token)
		require.NoError(t, err, alg)
		assert.Equal(t, "user-1", sub)
	}
}

func TestUnsupportedAlg(t *testing.T) {
	opts := DefaultOptions([]byte("secret"))
	opts.Alg = "RS256"
	_, _, err := Generate(opts, "user-1")
	assert.Error(t, err)
}

func TestExtractBearer(t *testing.T) {
	assert.Equal(t, "abc", ExtractBearer("Bearer abc"))
	assert.Equal(t, "abc", ExtractBearer("bearer abc"))
	assert.Equal(t, "abc", ExtractBearer("  Bearer   abc  "))
	assert.Empty(t, ExtractBearer("abc"))
	assert.Empty(t, ExtractBearer(""))
	assert.Empty(t, ExtractBearer("Bearer"))
}

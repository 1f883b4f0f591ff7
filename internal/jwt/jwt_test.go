package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignParseRoundTrip(t *testing.T) {
	iss, err := NewIssuer("comfygate", "test-secret-0123456789", time.Hour)
	require.NoError(t, err)

	token, err := iss.Sign(42, 1, "alice")
	require.NoError(t, err)

	claims, err := iss.Parse(token)
	require.NoError(t, err)
	require.Equal(t, int64(42), claims.UserID)
	require.Equal(t, int64(1), claims.TenantID)
	require.Equal(t, "alice", claims.Username)
	require.Equal(t, "comfygate", claims.Issuer)
	require.Greater(t, claims.ExpiresAt, claims.IssuedAt)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	a, err := NewIssuer("comfygate", "secret-a-0123456789", time.Hour)
	require.NoError(t, err)
	b, err := NewIssuer("comfygate", "secret-b-0123456789", time.Hour)
	require.NoError(t, err)

	token, err := a.Sign(1, 1, "alice")
	require.NoError(t, err)

	_, err = b.Parse(token)
	require.Error(t, err)
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	a, err := NewIssuer("other-service", "shared-secret-01234", time.Hour)
	require.NoError(t, err)
	b, err := NewIssuer("comfygate", "shared-secret-01234", time.Hour)
	require.NoError(t, err)

	token, err := a.Sign(1, 1, "alice")
	require.NoError(t, err)

	_, err = b.Parse(token)
	require.ErrorIs(t, err, ErrInvalidIssuer)
}

func TestParseRejectsGarbage(t *testing.T) {
	iss, err := NewIssuer("comfygate", "test-secret-0123456789", time.Hour)
	require.NoError(t, err)

	for _, tok := range []string{"", "abc", "a.b.c"} {
		_, err := iss.Parse(tok)
		require.Error(t, err, "token %q", tok)
	}
}

func TestNewIssuerRequiresSecret(t *testing.T) {
	_, err := NewIssuer("comfygate", "", time.Hour)
	require.Error(t, err)
}

func TestDefaultTTL(t *testing.T) {
	iss, err := NewIssuer("comfygate", "test-secret-0123456789", 0)
	require.NoError(t, err)
	require.Equal(t, 24*time.Hour, iss.TTL())
}

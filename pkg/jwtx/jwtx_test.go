package jwtx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestSignAndVerifyRoundTrip(t *testing.T) {
	t.Parallel()

	h, err := NewHMAC("HS256", testSecret)
	require.NoError(t, err)

	claims := NewAccessClaims("user@example.com", "dataviz", 30*time.Minute, time.Now())
	token, err := h.Sign(claims)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	got, err := h.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user@example.com", got.Subject)
	require.Equal(t, "dataviz", got.Issuer)
}

func TestNewHMACAlgorithms(t *testing.T) {
	t.Parallel()

	for _, alg := range []string{"HS256", "HS384", "HS512"} {
		h, err := NewHMAC(alg, testSecret)
		require.NoError(t, err, alg)
		require.Equal(t, alg, h.Alg())
	}

	_, err := NewHMAC("RS256", testSecret)
	require.ErrorIs(t, err, ErrUnsupportedAlg)
	_, err = NewHMAC("none", testSecret)
	require.ErrorIs(t, err, ErrUnsupportedAlg)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	t.Parallel()

	h, err := NewHMAC("HS256", testSecret)
	require.NoError(t, err)

	claims := NewAccessClaims("user@example.com", "dataviz", time.Minute, time.Now().Add(-time.Hour))
	token, err := h.Sign(claims)
	require.NoError(t, err)

	_, err = h.Verify(token)
	require.ErrorIs(t, err, ErrExpired)
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	t.Parallel()

	signer, err := NewHMAC("HS256", testSecret)
	require.NoError(t, err)
	other, err := NewHMAC("HS256", "a completely different secret value")
	require.NoError(t, err)

	token, err := signer.Sign(NewAccessClaims("user@example.com", "dataviz", time.Minute, time.Now()))
	require.NoError(t, err)

	_, err = other.Verify(token)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = signer.Verify("not.a.token")
	require.ErrorIs(t, err, ErrInvalidToken)
}

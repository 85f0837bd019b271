package jwtx_test

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/aussiebroadwan/wgportal/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func newSigner(t *testing.T) *jwtx.Signer {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	s, err := jwtx.NewSigner(priv)
	require.NoError(t, err)
	return s
}

func TestSignVerifyRoundTrip(t *testing.T) {
	s := newSigner(t)
	v := jwtx.NewVerifier("wgportal", s.PublicKey())

	claims := jwtx.NewAccessClaims("wgportal", "01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZV", "alice",
		[]string{"devices:write"}, time.Hour, time.Now())
	token, err := s.Sign(claims)
	require.NoError(t, err)

	got, err := v.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZV", got.Subject)
	require.Equal(t, "alice", got.Username)
	require.True(t, got.HasScope("devices:write"))
	require.False(t, got.HasScope("admin:write"))
}

func TestVerifyRejects(t *testing.T) {
	s := newSigner(t)
	other := newSigner(t)
	v := jwtx.NewVerifier("wgportal", s.PublicKey())
	now := time.Now()

	t.Run("expired", func(t *testing.T) {
		token, err := s.Sign(jwtx.NewAccessClaims("wgportal", "u", "alice", nil, time.Minute, now.Add(-2*time.Hour)))
		require.NoError(t, err)
		_, err = v.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrExpired)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		token, err := s.Sign(jwtx.NewAccessClaims("someone-else", "u", "alice", nil, time.Hour, now))
		require.NoError(t, err)
		_, err = v.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrIssuer)
	})

	t.Run("unknown key", func(t *testing.T) {
		token, err := other.Sign(jwtx.NewAccessClaims("wgportal", "u", "alice", nil, time.Hour, now))
		require.NoError(t, err)
		_, err = v.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrUnknownKID)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := v.Verify("not.a.jwt")
		require.ErrorIs(t, err, jwtx.ErrMalformed)
	})
}

func TestKeyIDStable(t *testing.T) {
	s := newSigner(t)
	require.Equal(t, jwtx.KeyID(s.PublicKey()), s.KID())
}

package service_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sbilab/dataviz/internal/domain"
	"github.com/sbilab/dataviz/internal/service"
	"github.com/sbilab/dataviz/internal/store/drivers/memory"
	"github.com/sbilab/dataviz/pkg/jwtx"
)

func TestClassifyToken(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw  string
		want service.TokenKind
	}{
		{"ya29.a0AfB_byDummy", service.TokenExternal},
		{"1//0gDummyRefresh", service.TokenExternal},
		{"eyJhbGciOiJIUzI1NiJ9.payload.sig", service.TokenLocal},
		{"", service.TokenLocal},
		{"ya2", service.TokenLocal},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, service.ClassifyToken(tc.raw), "token %q", tc.raw)
	}
}

func newAuthnFixture(t *testing.T) (*service.AuthnService, *service.UserService, *jwtx.HMAC) {
	t.Helper()

	users := &service.UserService{Store: memory.NewStore()}
	hmac, err := jwtx.NewHMAC("HS256", "0123456789abcdef0123456789abcdef")
	require.NoError(t, err)

	authn := service.NewAuthnService(users, hmac, service.NewOAuthService("test-client"))
	return authn, users, hmac
}

func signFor(t *testing.T, h *jwtx.HMAC, email string) string {
	t.Helper()
	token, err := h.Sign(jwtx.NewAccessClaims(email, "dataviz", time.Minute, time.Now()))
	require.NoError(t, err)
	return token
}

func TestResolveLocalToken(t *testing.T) {
	t.Parallel()
	authn, users, hmac := newAuthnFixture(t)
	ctx := t.Context()

	created, err := users.Create(ctx, "alice@example.com", "alice", "", "hunter22secret")
	require.NoError(t, err)

	got, err := authn.Resolve(ctx, signFor(t, hmac, "alice@example.com"))
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)
}

func TestResolveRejectsGarbageToken(t *testing.T) {
	t.Parallel()
	authn, _, _ := newAuthnFixture(t)

	_, err := authn.Resolve(t.Context(), "not-a-jwt-at-all")
	require.ErrorIs(t, err, service.ErrUnauthorized)
}

func TestResolveRejectsUnknownSubject(t *testing.T) {
	t.Parallel()
	authn, _, hmac := newAuthnFixture(t)

	_, err := authn.Resolve(t.Context(), signFor(t, hmac, "ghost@example.com"))
	require.ErrorIs(t, err, service.ErrUnauthorized)
}

func TestResolveRejectsInactiveUser(t *testing.T) {
	t.Parallel()
	authn, users, hmac := newAuthnFixture(t)
	ctx := t.Context()

	created, err := users.Create(ctx, "alice@example.com", "alice", "", "hunter22secret")
	require.NoError(t, err)

	inactive := false
	_, err = users.Update(ctx, created.ID, domain.UserUpdate{Active: &inactive})
	require.NoError(t, err)

	_, err = authn.Resolve(ctx, signFor(t, hmac, "alice@example.com"))
	require.ErrorIs(t, err, service.ErrInactiveUser)
}

package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/api/idtoken"
)

// fakeGoogle stands in for the tokeninfo and userinfo endpoints.
func fakeGoogle(t *testing.T, tokeninfo, userinfo http.HandlerFunc) *OAuthService {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/tokeninfo", tokeninfo)
	mux.HandleFunc("/userinfo", userinfo)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	s := NewOAuthService("test-client")
	s.HTTPClient = srv.Client()
	s.TokenInfoURL = srv.URL + "/tokeninfo"
	s.UserInfoURL = srv.URL + "/userinfo"
	return s
}

func TestVerifyAccessToken(t *testing.T) {
	t.Parallel()

	s := fakeGoogle(t,
		func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "ya29.valid", r.URL.Query().Get("access_token"))
			w.Write([]byte(`{"expires_in": 3000}`))
		},
		func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"id":"g-123","email":"alice@example.com","name":"Alice","verified_email":true}`))
		},
	)

	identity, err := s.VerifyExternalToken(t.Context(), "ya29.valid")
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", identity.Email)
	require.Equal(t, "Alice", identity.Name)
	require.Equal(t, "g-123", identity.ExternalID)
	require.True(t, identity.Verified)
}

func TestVerifyAccessTokenRejectsExpired(t *testing.T) {
	t.Parallel()

	s := fakeGoogle(t,
		func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"expires_in": 0}`))
		},
		func(w http.ResponseWriter, r *http.Request) {
			t.Error("userinfo must not be called for an expired token")
		},
	)

	_, err := s.VerifyExternalToken(t.Context(), "ya29.stale")
	require.ErrorIs(t, err, ErrExternalToken)
}

func TestVerifyAccessTokenFailsClosed(t *testing.T) {
	t.Parallel()

	s := fakeGoogle(t,
		func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusBadRequest)
		},
		func(w http.ResponseWriter, r *http.Request) {},
	)

	_, err := s.VerifyExternalToken(t.Context(), "ya29.broken")
	require.ErrorIs(t, err, ErrExternalToken)
}

func TestVerifyIdentityToken(t *testing.T) {
	t.Parallel()

	s := NewOAuthService("test-client")
	s.validateIDToken = func(ctx context.Context, token, audience string) (*idtoken.Payload, error) {
		require.Equal(t, "test-client", audience)
		return &idtoken.Payload{
			Subject: "g-456",
			Claims: map[string]any{
				"email":          "bob@example.com",
				"name":           "Bob",
				"email_verified": true,
			},
		}, nil
	}

	identity, err := s.VerifyExternalToken(t.Context(), "eyJhbGciOiJSUzI1NiJ9.fake.sig")
	require.NoError(t, err)
	require.Equal(t, "bob@example.com", identity.Email)
	require.Equal(t, "g-456", identity.ExternalID)
}

func TestVerifyIdentityTokenFailsClosed(t *testing.T) {
	t.Parallel()

	s := NewOAuthService("test-client")
	s.validateIDToken = func(ctx context.Context, token, audience string) (*idtoken.Payload, error) {
		return nil, errors.New("signature mismatch")
	}

	_, err := s.VerifyExternalToken(t.Context(), "eyJhbGciOiJSUzI1NiJ9.fake.sig")
	require.ErrorIs(t, err, ErrExternalToken)
}

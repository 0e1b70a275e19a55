package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"google.golang.org/api/idtoken"

	"github.com/sbilab/dataviz/internal/domain"
	"github.com/sbilab/dataviz/pkg/slogx"
)

// ErrExternalToken is the single failure signal of the OAuth bridge. Every
// verification error, timeout or malformed provider response collapses into
// it; nothing propagates past this boundary.
var ErrExternalToken = errors.New("external token verification failed")

const (
	googleTokenInfoURL = "https://www.googleapis.com/oauth2/v1/tokeninfo"
	googleUserInfoURL  = "https://www.googleapis.com/oauth2/v2/userinfo"

	externalVerifyTimeout = 30 * time.Second
)

// externalTokenPrefixes are the literal prefixes of Google opaque access and
// authorization tokens.
var externalTokenPrefixes = []string{"ya29.", "1//"}

// IsExternalToken reports whether raw looks like a provider-issued opaque
// token rather than a locally signed one.
func IsExternalToken(raw string) bool {
	for _, p := range externalTokenPrefixes {
		if strings.HasPrefix(raw, p) {
			return true
		}
	}
	return false
}

// OAuthService verifies third-party identity tokens against Google and
// normalizes them to a local identity. Verification is read-only; account
// provisioning is the caller's decision.
type OAuthService struct {
	ClientID string

	// HTTPClient performs the introspection round-trips. It carries the only
	// explicit network timeout in the system.
	HTTPClient *http.Client

	// Endpoint bases, overridable in tests.
	TokenInfoURL string
	UserInfoURL  string

	// validateIDToken wraps idtoken.Validate, overridable in tests.
	validateIDToken func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
}

func NewOAuthService(clientID string) *OAuthService {
	return &OAuthService{
		ClientID:        clientID,
		HTTPClient:      &http.Client{Timeout: externalVerifyTimeout},
		TokenInfoURL:    googleTokenInfoURL,
		UserInfoURL:     googleUserInfoURL,
		validateIDToken: idtoken.Validate,
	}
}

// VerifyExternalToken verifies either token shape and returns the normalized
// identity. Opaque access tokens round-trip through the provider's tokeninfo
// and userinfo endpoints; JWT-shaped identity tokens are verified locally
// against the provider's public keys and the configured audience.
func (s *OAuthService) VerifyExternalToken(ctx context.Context, raw string) (domain.ExternalIdentity, error) {
	if IsExternalToken(raw) {
		return s.verifyAccessToken(ctx, raw)
	}
	return s.verifyIdentityToken(ctx, raw)
}

type tokenInfoResponse struct {
	ExpiresIn int `json:"expires_in"`
}

type userInfoResponse struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	VerifiedEmail bool   `json:"verified_email"`
}

func (s *OAuthService) verifyAccessToken(ctx context.Context, raw string) (domain.ExternalIdentity, error) {
	log := slogx.FromContext(ctx)

	var info tokenInfoResponse
	if err := s.getJSON(ctx, s.TokenInfoURL, raw, &info); err != nil {
		log.Warn("access token introspection failed", "err", err)
		return domain.ExternalIdentity{}, ErrExternalToken
	}
	if info.ExpiresIn <= 0 {
		log.Warn("access token expired")
		return domain.ExternalIdentity{}, ErrExternalToken
	}

	var user userInfoResponse
	if err := s.getJSON(ctx, s.UserInfoURL, raw, &user); err != nil {
		log.Warn("userinfo lookup failed", "err", err)
		return domain.ExternalIdentity{}, ErrExternalToken
	}

	return domain.ExternalIdentity{
		Email:      user.Email,
		Name:       user.Name,
		ExternalID: user.ID,
		Verified:   user.VerifiedEmail,
	}, nil
}

func (s *OAuthService) verifyIdentityToken(ctx context.Context, raw string) (domain.ExternalIdentity, error) {
	log := slogx.FromContext(ctx)

	payload, err := s.validateIDToken(ctx, raw, s.ClientID)
	if err != nil {
		log.Warn("identity token verification failed", "err", err)
		return domain.ExternalIdentity{}, ErrExternalToken
	}

	identity := domain.ExternalIdentity{ExternalID: payload.Subject}
	if email, ok := payload.Claims["email"].(string); ok {
		identity.Email = email
	}
	if name, ok := payload.Claims["name"].(string); ok {
		identity.Name = name
	}
	if verified, ok := payload.Claims["email_verified"].(bool); ok {
		identity.Verified = verified
	}

	return identity, nil
}

// getJSON performs one access-token query against a provider endpoint and
// decodes the JSON body. Any non-200 status is a verification failure.
func (s *OAuthService) getJSON(ctx context.Context, base, accessToken string, out any) error {
	u, err := url.Parse(base)
	if err != nil {
		return err
	}
	q := u.Query()
	q.Set("access_token", accessToken)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sbilab/dataviz/internal/domain"
	"github.com/sbilab/dataviz/pkg/jwtx"
	"github.com/sbilab/dataviz/pkg/slogx"
)

var (
	// ErrUnauthorized covers every bearer-token failure: bad signature,
	// expiry, missing subject, or no matching local account.
	ErrUnauthorized = errors.New("could not validate credentials")

	// ErrInactiveUser reports a valid token whose account has been
	// deactivated.
	ErrInactiveUser = errors.New("inactive user")
)

// TokenKind enumerates the two bearer-token shapes a request can carry. The
// classifier runs once per request; everything downstream dispatches on the
// kind, never on the raw string.
type TokenKind int

const (
	TokenLocal TokenKind = iota
	TokenExternal
)

// ClassifyToken decides the kind from the token's literal prefix.
func ClassifyToken(raw string) TokenKind {
	if IsExternalToken(raw) {
		return TokenExternal
	}
	return TokenLocal
}

// TokenVerifier resolves a raw bearer token to the subject email it proves.
type TokenVerifier interface {
	ResolveSubject(ctx context.Context, raw string) (string, error)
}

// localVerifier verifies locally signed JWTs.
type localVerifier struct {
	verifier jwtx.Verifier
}

func (v localVerifier) ResolveSubject(ctx context.Context, raw string) (string, error) {
	claims, err := v.verifier.Verify(raw)
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject claim")
	}
	return claims.Subject, nil
}

// externalVerifier delegates to the OAuth bridge. It never provisions an
// account; an unknown external identity stays unauthorized.
type externalVerifier struct {
	bridge *OAuthService
}

func (v externalVerifier) ResolveSubject(ctx context.Context, raw string) (string, error) {
	identity, err := v.bridge.VerifyExternalToken(ctx, raw)
	if err != nil {
		return "", err
	}
	if identity.Email == "" {
		return "", errors.New("external identity has no email")
	}
	return identity.Email, nil
}

// AuthnService resolves inbound bearer tokens to authenticated users.
type AuthnService struct {
	Users     *UserService
	verifiers map[TokenKind]TokenVerifier
}

func NewAuthnService(users *UserService, local jwtx.Verifier, bridge *OAuthService) *AuthnService {
	return &AuthnService{
		Users: users,
		verifiers: map[TokenKind]TokenVerifier{
			TokenLocal:    localVerifier{verifier: local},
			TokenExternal: externalVerifier{bridge: bridge},
		},
	}
}

// Resolve authenticates a raw bearer token and returns the local user it
// belongs to. Inactive accounts are rejected after identity resolution.
func (s *AuthnService) Resolve(ctx context.Context, raw string) (domain.User, error) {
	log := slogx.FromContext(ctx)

	kind := ClassifyToken(raw)
	verifier := s.verifiers[kind]

	email, err := verifier.ResolveSubject(ctx, raw)
	if err != nil {
		log.Warn("bearer token rejected", "kind", int(kind), "err", err)
		return domain.User{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	user, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			if kind == TokenExternal {
				return domain.User{}, fmt.Errorf("%w: not registered", ErrUnauthorized)
			}
			return domain.User{}, fmt.Errorf("%w: unknown subject", ErrUnauthorized)
		}
		return domain.User{}, fmt.Errorf("resolve bearer token: %w", err)
	}

	if !user.Active {
		return domain.User{}, ErrInactiveUser
	}

	return user, nil
}

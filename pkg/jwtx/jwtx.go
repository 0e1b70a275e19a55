// Package jwtx issues and verifies the locally-signed bearer tokens. Signing
// is symmetric (HMAC family) with the secret and algorithm taken from
// process-wide configuration.
package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrUnsupportedAlg = errors.New("jwtx: unsupported signing algorithm")
	ErrInvalidToken   = errors.New("jwtx: invalid token")
	ErrExpired        = errors.New("jwtx: token expired")
)

// Claims are the access-token claims. The subject carries the user's email.
type Claims struct {
	jwt.RegisteredClaims
}

// NewAccessClaims builds minimally-correct claims for an access token.
func NewAccessClaims(subject, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}

// Signer is anything that can sign access-token claims.
type Signer interface {
	Alg() string
	Sign(Claims) (string, error)
}

// Verifier validates a token string and returns its claims if it is legit.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// HMAC is a symmetric Signer/Verifier over the HS256/HS384/HS512 family.
type HMAC struct {
	method *jwt.SigningMethodHMAC
	secret []byte
}

// NewHMAC builds an HMAC signer/verifier for the named algorithm.
func NewHMAC(alg, secret string) (*HMAC, error) {
	if secret == "" {
		return nil, errors.New("jwtx: empty signing secret")
	}

	method, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodHMAC)
	if !ok || method == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlg, alg)
	}

	return &HMAC{method: method, secret: []byte(secret)}, nil
}

func (h *HMAC) Alg() string { return h.method.Alg() }

func (h *HMAC) Sign(c Claims) (string, error) {
	token := jwt.NewWithClaims(h.method, c)
	signed, err := token.SignedString(h.secret)
	if err != nil {
		return "", fmt.Errorf("jwtx: signing failed: %w", err)
	}
	return signed, nil
}

func (h *HMAC) Verify(raw string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != h.method.Alg() {
			return nil, fmt.Errorf("%w: got %q", ErrUnsupportedAlg, t.Method.Alg())
		}
		return h.secret, nil
	}, jwt.WithValidMethods([]string{h.method.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpired
		}
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	return claims, nil
}

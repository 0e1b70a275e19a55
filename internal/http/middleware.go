package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sbilab/dataviz/internal/domain"
	"github.com/sbilab/dataviz/internal/service"
	"github.com/sbilab/dataviz/pkg/httpx"
	"github.com/sbilab/dataviz/pkg/slogx"
)

type ctxKey struct{}

// UserFromContext returns the authenticated user placed by AuthnMiddleware.
func UserFromContext(ctx context.Context) (domain.User, bool) {
	user, ok := ctx.Value(ctxKey{}).(domain.User)
	return user, ok
}

// AuthnMiddleware extracts the bearer token, resolves it to an active user
// and injects the user into the request context. Requests without a usable
// token never reach the wrapped handler.
func AuthnMiddleware(authn *service.AuthnService) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw, ok := bearerToken(r)
			if !ok {
				w.Header().Set("WWW-Authenticate", "Bearer")
				httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
				return
			}

			user, err := authn.Resolve(ctx, raw)
			if err != nil {
				switch {
				case errors.Is(err, service.ErrInactiveUser):
					httpx.WriteError(w, http.StatusBadRequest, "inactive_user", service.ErrInactiveUser.Error())
				case errors.Is(err, service.ErrUnauthorized):
					w.Header().Set("WWW-Authenticate", "Bearer")
					httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", service.ErrUnauthorized.Error())
				default:
					log.Error("bearer token resolution failed", "err", err)
					httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal server error")
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, ctxKey{}, user)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return token, true
}

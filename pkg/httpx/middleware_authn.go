package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/yakshxo/snapstudy/pkg/jwtx"
	"github.com/yakshxo/snapstudy/pkg/slogx"
)

// AuthnMiddleware verifies the bearer token (Authorization header, falling
// back to the "token" cookie for browser clients) and injects the account id
// into the request context. Rejection is a generic 401 envelope.
func AuthnMiddleware(v jwtx.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw := bearerToken(r)
			if raw == "" {
				Fail(w, http.StatusUnauthorized, "Not authorized - no token provided")
				return
			}

			claims, err := v.Verify(raw)
			if err != nil {
				log.Warn("session token verification failed", "err", err)
				Fail(w, http.StatusUnauthorized, "Not authorized - token is invalid")
				return
			}

			ctx = context.WithValue(ctx, CtxKeyAccountID, claims.Subject)
			ctx = context.WithValue(ctx, CtxKeyClaims, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	if authz := r.Header.Get("Authorization"); strings.HasPrefix(authz, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
	}
	if c, err := r.Cookie("token"); err == nil {
		return c.Value
	}
	return ""
}

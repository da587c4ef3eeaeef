package httpapi

import (
	"context"
	"net/http"
	"strings"

	"herdbook.org/internal/auth"
	"herdbook.org/internal/obs"
)

const (
	authHeader   = "Authorization"
	bearerPrefix = "Bearer "
)

// Paths reachable without a session. Logout is public on purpose: it is
// idempotent and must succeed even with a dead token.
var publicPaths = []string{
	"/",
	"/healthz",
	"/readyz",
	"/metrics",
	"/v1/info",
	"/auth/register",
	"/auth/login",
	"/auth/logout",
}

// ResolveIdentity is the single entry point every protected endpoint uses
// to turn an Authorization header into an acting identity. Downstream CRUD
// modules (animals, feeding, health, production, financial) have no auth
// logic beyond calling this.
func (a *API) ResolveIdentity(ctx context.Context, authorizationHeader string) (auth.Identity, error) {
	identity, err := a.svc.Authenticate(ctx, bearerToken(authorizationHeader))
	if err != nil {
		obs.ObserveTokenValidation("denied")
		return auth.Identity{}, err
	}
	obs.ObserveTokenValidation("ok")
	return identity, nil
}

func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get(authHeader)
		identity, err := a.ResolveIdentity(r.Context(), header)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}

		ctx := auth.ContextWithIdentity(r.Context(), identity)
		ctx = auth.ContextWithToken(ctx, bearerToken(header))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole gates a handler on an already-resolved identity holding the
// given role. A missing identity is 401; a present identity with the wrong
// role is 403, never 401.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := auth.IdentityFromContext(r.Context())
			if !ok {
				writeError(w, r, http.StatusUnauthorized, "unauthenticated: missing token")
				return
			}
			if identity.Role != role {
				w.Header().Set("WWW-Authenticate", `Bearer realm="herdbook"`)
				writeError(w, r, http.StatusForbidden, "permission denied: insufficient privileges")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken extracts the token from an Authorization header value. The
// "Bearer " prefix is stripped case-insensitively; a bare token without the
// prefix is tolerated.
func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	if len(header) >= len(bearerPrefix) && strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return strings.TrimSpace(header[len(bearerPrefix):])
	}
	return header
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}

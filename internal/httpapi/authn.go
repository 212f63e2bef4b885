package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"guildstock.gg/internal/audit"
	"guildstock.gg/internal/session"
)

const (
	authHeader       = "Authorization"
	bearerPrefix     = "Bearer "
	staleStateHeader = "X-Session-Stale"
)

var publicPaths = []string{
	"/healthz",
	"/readyz",
	"/metrics",
	"/v1/info",
	"/v1/session",
	"/v1/session/refresh",
	"/",
}

// withSession authenticates protected requests with the signed session
// token and places the state in the request context. Stale sessions are
// still served; the response signals that a refresh is due.
func (a *API) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, err.Error())
			return
		}

		state, err := a.sessions.Parse(token)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "invalid session token")
			return
		}
		if a.sessions.NeedsRefresh(state) {
			w.Header().Set(staleStateHeader, "true")
		}

		ctx := session.ContextWithState(r.Context(), state)
		ctx = audit.WithRequestID(ctx, RequestIDFromContext(ctx))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearerPrefix)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}

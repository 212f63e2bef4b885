package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"guildstock.gg/internal/identity"
	"guildstock.gg/internal/session"
)

type sessionRequest struct {
	AccessToken string `json:"access_token"`
}

type sessionResponse struct {
	Token string        `json:"token"`
	State session.State `json:"state"`
}

// handleSessionCreate exchanges a directory access token for a signed
// session token.
func (a *API) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.AccessToken) == "" {
		writeError(w, r, http.StatusBadRequest, "access_token is required")
		return
	}

	state, token, err := a.sessions.Resolve(r.Context(), req.AccessToken)
	if err != nil {
		if errors.Is(err, identity.ErrUnauthorized) {
			writeError(w, r, http.StatusUnauthorized, "access token rejected")
			return
		}
		writeError(w, r, http.StatusBadGateway, "identity resolution failed")
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{Token: token, State: state})
}

// handleSessionRefresh re-resolves the identity behind the presented
// session token and issues a fresh one.
func (a *API) handleSessionRefresh(w http.ResponseWriter, r *http.Request) {
	token, err := extractBearerToken(r.Header.Get(authHeader))
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, err.Error())
		return
	}

	state, newToken, err := a.sessions.Refresh(r.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrInvalidToken):
			writeError(w, r, http.StatusUnauthorized, "invalid session token")
		case errors.Is(err, identity.ErrUnauthorized):
			writeError(w, r, http.StatusUnauthorized, "access token rejected")
		default:
			writeError(w, r, http.StatusBadGateway, "identity resolution failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Token: newToken, State: state})
}

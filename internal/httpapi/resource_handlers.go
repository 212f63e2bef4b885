package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"guildstock.gg/internal/ledger"
	"guildstock.gg/internal/resource"
	"guildstock.gg/internal/session"
)

// handleResourceQuantity mutates one resource's quantity. The caller
// needs the resource access permission and a role that grants access to
// the owning guild.
func (a *API) handleResourceQuantity(w http.ResponseWriter, r *http.Request) {
	state, ok := session.FromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "session required")
		return
	}
	id := r.PathValue("id")
	if strings.TrimSpace(id) == "" {
		writeError(w, r, http.StatusBadRequest, "resource id is required")
		return
	}
	if !state.Permissions.ResourceAccess {
		writeError(w, r, http.StatusForbidden, "resource access required")
		return
	}

	var req resource.UpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	res, err := a.resources.Find(r.Context(), id)
	if err != nil {
		if errors.Is(err, resource.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "resource not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "resource lookup failed")
		return
	}

	if !a.guilds.CanAccessGuild(r.Context(), res.GuildID, state.Identity.RoleIDs, state.Permissions.TrueAdmin) {
		writeError(w, r, http.StatusForbidden, "access denied to this guild")
		return
	}

	result, err := a.resources.UpdateQuantity(r.Context(), id, state.Identity.UserID, req, ledger.SourceWebsite)
	if err != nil {
		switch {
		case errors.Is(err, resource.ErrNotFound):
			writeError(w, r, http.StatusNotFound, "resource not found")
		case errors.Is(err, resource.ErrInvalidMode):
			writeError(w, r, http.StatusBadRequest, "invalid update type")
		default:
			writeError(w, r, http.StatusInternalServerError, "resource update failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, result)
}

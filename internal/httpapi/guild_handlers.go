package httpapi

import (
	"context"
	"net/http"

	"guildstock.gg/internal/guild"
	"guildstock.gg/internal/session"
)

type guildsResponse struct {
	Guilds []guild.Guild `json:"guilds"`
}

// handleGuilds lists the guilds the caller may see.
func (a *API) handleGuilds(w http.ResponseWriter, r *http.Request) {
	state, ok := session.FromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "session required")
		return
	}

	ids, err := a.accessibleGuildIDs(r.Context(), state)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "guild listing failed")
		return
	}
	guilds, err := a.guilds.Describe(r.Context(), ids)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "guild listing failed")
		return
	}
	writeJSON(w, http.StatusOK, guildsResponse{Guilds: guilds})
}

// accessibleGuildIDs computes the caller's tenant scope from the
// session state.
func (a *API) accessibleGuildIDs(ctx context.Context, state session.State) ([]string, error) {
	return a.guilds.AccessibleGuildsForUser(
		ctx,
		state.Identity.UserID,
		state.Identity.ServerRoles,
		state.Identity.OwnedServerIDs,
		state.Permissions.TrueAdmin,
	)
}

package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"guildstock.gg/internal/ledger"
	"guildstock.gg/internal/session"
)

type leaderboardResponse struct {
	Filter   ledger.TimeFilter `json:"filter"`
	Rankings []ledger.Ranking  `json:"rankings"`
	Total    int64             `json:"total"`
}

type rankResponse struct {
	UserID string            `json:"user_id"`
	Filter ledger.TimeFilter `json:"filter"`
	Rank   int               `json:"rank"`
	Ranked bool              `json:"ranked"`
}

// handleLeaderboard serves the aggregated board across the caller's
// guilds, optionally narrowed to one of them.
func (a *API) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	state, ok := session.FromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "session required")
		return
	}

	filter, err := parseTimeFilter(r.URL.Query().Get("filter"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := parsePositiveInt(r.URL.Query().Get("limit"), 50, 1, 100)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := parsePositiveInt(r.URL.Query().Get("offset"), 0, 0, 100000)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	guildIDs, ok := a.scopedGuildIDs(w, r, state)
	if !ok {
		return
	}

	board, err := a.board.Leaderboard(r.Context(), filter, limit, offset, guildIDs)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "leaderboard query failed")
		return
	}
	writeJSON(w, http.StatusOK, leaderboardResponse{Filter: filter, Rankings: board.Rankings, Total: board.Total})
}

// handleContributions serves one user's scored entries within the
// caller's guilds.
func (a *API) handleContributions(w http.ResponseWriter, r *http.Request) {
	state, ok := session.FromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "session required")
		return
	}
	userID := r.PathValue("id")
	if strings.TrimSpace(userID) == "" {
		writeError(w, r, http.StatusBadRequest, "user id is required")
		return
	}

	filter, err := parseTimeFilter(r.URL.Query().Get("filter"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := parsePositiveInt(r.URL.Query().Get("limit"), 25, 1, 100)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := parsePositiveInt(r.URL.Query().Get("offset"), 0, 0, 100000)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	guildIDs, ok := a.scopedGuildIDs(w, r, state)
	if !ok {
		return
	}

	report, err := a.board.UserContributions(r.Context(), userID, filter, limit, offset, guildIDs)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "contribution query failed")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleRank serves one user's leaderboard position within the
// caller's guilds.
func (a *API) handleRank(w http.ResponseWriter, r *http.Request) {
	state, ok := session.FromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "session required")
		return
	}
	userID := r.PathValue("id")
	if strings.TrimSpace(userID) == "" {
		writeError(w, r, http.StatusBadRequest, "user id is required")
		return
	}

	filter, err := parseTimeFilter(r.URL.Query().Get("filter"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	guildIDs, ok := a.scopedGuildIDs(w, r, state)
	if !ok {
		return
	}

	rank, err := a.board.UserRank(r.Context(), userID, filter, guildIDs)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "rank query failed")
		return
	}
	writeJSON(w, http.StatusOK, rankResponse{
		UserID: userID,
		Filter: filter,
		Rank:   rank,
		Ranked: rank > 0,
	})
}

// scopedGuildIDs computes the caller's accessible guilds and applies an
// optional guild_id narrowing parameter. A guild outside the caller's
// scope is rejected, not silently widened.
func (a *API) scopedGuildIDs(w http.ResponseWriter, r *http.Request, state session.State) ([]string, bool) {
	guildIDs, err := a.accessibleGuildIDs(r.Context(), state)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "guild listing failed")
		return nil, false
	}

	if requested := strings.TrimSpace(r.URL.Query().Get("guild_id")); requested != "" {
		for _, id := range guildIDs {
			if id == requested {
				return []string{requested}, true
			}
		}
		writeError(w, r, http.StatusForbidden, "access denied to this guild")
		return nil, false
	}
	return guildIDs, true
}

func parsePositiveInt(raw string, def, min, max int) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return def, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("value must be an integer")
	}
	if val < min || val > max {
		return 0, errors.New("value out of range")
	}
	return val, nil
}

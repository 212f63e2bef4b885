// Package guild models the tenant unit: an isolated resource-tracking guild
// that belongs to exactly one directory server. Access to a guild is derived
// from the member/officer/leader role triple, with owner/admin overrides.
package guild

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates the guild id is not configured.
	ErrNotFound = errors.New("guild: not found")
)

// Guild is one tenant. The three role ids grant view/edit access; the admin
// role list grants tenant-scoped configuration access only.
type Guild struct {
	ID       string `json:"id"`
	ServerID string `json:"server_id"`
	Title    string `json:"title"`

	MemberRoleID  string   `json:"member_role_id,omitempty"`
	OfficerRoleID string   `json:"officer_role_id,omitempty"`
	LeaderRoleID  string   `json:"leader_role_id,omitempty"`
	AdminRoleIDs  []string `json:"admin_role_ids,omitempty"`

	OrderBonusPercent   int  `json:"order_bonus_percent"`
	WebsiteBonusPercent int  `json:"website_bonus_percent"`
	AutoUpdate          bool `json:"auto_update"`
	NotifyOnChange      bool `json:"notify_on_change"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AccessRoleIDs returns the non-empty member/officer/leader role ids.
func (g Guild) AccessRoleIDs() []string {
	var out []string
	for _, id := range []string{g.MemberRoleID, g.OfficerRoleID, g.LeaderRoleID} {
		if id != "" {
			out = append(out, id)
		}
	}
	return out
}

// Store describes tenant persistence needed by the access engine.
type Store interface {
	Find(ctx context.Context, id string) (Guild, error)
	ListByServer(ctx context.Context, serverID string) ([]Guild, error)
	ListAll(ctx context.Context) ([]Guild, error)
	// ServerIDsWithGuilds returns the distinct server ids that have at least
	// one configured guild. Identity resolution uses it to bound directory
	// fan-out.
	ServerIDsWithGuilds(ctx context.Context) ([]string, error)
}

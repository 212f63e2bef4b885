package identity

import (
	"context"
	"errors"
)

// User is the authenticated account behind a bearer token.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Server is one membership row from the directory, as seen by the user.
type Server struct {
	ID          string
	Name        string
	Owner       bool
	Permissions uint64
}

// Member is the user's membership detail within one server.
type Member struct {
	RoleIDs  []string
	Nickname string
}

// NamedRole pairs a role id with its display name.
type NamedRole struct {
	ID   string
	Name string
}

// Directory is the external membership source. Implementations talk to
// the Discord REST API; tests substitute fakes.
type Directory interface {
	// Me identifies the account the bearer token belongs to.
	Me(ctx context.Context, bearer string) (User, error)
	// UserServers lists every server the user belongs to. One call.
	UserServers(ctx context.Context, bearer string) ([]Server, error)
	// MemberRoles fetches the user's membership in one server.
	MemberRoles(ctx context.Context, bearer, serverID string) (Member, error)
	// ServerRoles lists a server's roles using the service credential.
	ServerRoles(ctx context.Context, serverID string) ([]NamedRole, error)
}

var ErrUnauthorized = errors.New("identity: unauthorized")

// Identity is the resolved view of a user: who they are, which servers
// were retained, and the roles they hold there. Server and role data is
// pruned to owned-or-tenanted servers; IsAnyServerOwner still reflects
// every server the user owns.
type Identity struct {
	UserID           string              `json:"user_id"`
	Username         string              `json:"username"`
	Nickname         string              `json:"nickname,omitempty"`
	RoleIDs          []string            `json:"role_ids"`
	ServerRoles      map[string][]string `json:"server_roles"`
	ServerNames      map[string]string   `json:"server_names"`
	RoleNames        map[string]string   `json:"role_names"`
	OwnedServerIDs   []string            `json:"owned_server_ids"`
	AdminServerIDs   []string            `json:"admin_server_ids"`
	IsAnyServerOwner bool                `json:"is_any_server_owner"`
	InTenantServer   bool                `json:"in_tenant_server"`
}

// DisplayName prefers the server nickname, then the account username,
// then the raw id.
func (id Identity) DisplayName() string {
	if id.Nickname != "" {
		return id.Nickname
	}
	if id.Username != "" {
		return id.Username
	}
	return id.UserID
}

package identity

import (
	"context"
	"sort"

	"guildstock.gg/internal/obs"
)

// administratorBit is the directory's ADMINISTRATOR permission flag.
const administratorBit = 0x8

// TenantSource reports which servers have at least one configured
// guild. Member fetches are bounded to those servers.
type TenantSource interface {
	ServerIDsWithGuilds(ctx context.Context) ([]string, error)
}

// Resolver turns a bearer token into a pruned Identity.
type Resolver struct {
	dir     Directory
	tenants TenantSource
}

func NewResolver(dir Directory, tenants TenantSource) *Resolver {
	return &Resolver{dir: dir, tenants: tenants}
}

// Resolve identifies the user and gathers their memberships. Member
// detail is fetched only for servers that carry configured guilds, one
// server at a time; a failed server is logged and skipped. Directory
// outages after identification degrade to an identity with no server
// data rather than failing the resolution.
func (r *Resolver) Resolve(ctx context.Context, bearer string) (Identity, error) {
	me, err := r.dir.Me(ctx, bearer)
	if err != nil {
		return Identity{}, err
	}

	id := Identity{
		UserID:      me.ID,
		Username:    me.Username,
		RoleIDs:     []string{},
		ServerRoles: map[string][]string{},
		ServerNames: map[string]string{},
		RoleNames:   map[string]string{},
	}

	servers, err := r.dir.UserServers(ctx, bearer)
	if err != nil {
		obs.DirectoryFetchFailures.WithLabelValues("user_servers").Inc()
		obs.Warn("server list fetch failed", map[string]any{
			"user_id": me.ID,
			"error":   err.Error(),
		})
		return id, nil
	}

	var ownedIDs []string
	var adminIDs []string
	names := map[string]string{}
	for _, s := range servers {
		names[s.ID] = s.Name
		if s.Owner {
			ownedIDs = append(ownedIDs, s.ID)
		}
		if s.Owner || s.Permissions&administratorBit != 0 {
			adminIDs = append(adminIDs, s.ID)
		}
	}
	// Ownership anywhere counts, even in servers pruned below.
	id.IsAnyServerOwner = len(ownedIDs) > 0

	tenanted := map[string]struct{}{}
	if r.tenants != nil {
		serverIDs, err := r.tenants.ServerIDsWithGuilds(ctx)
		if err != nil {
			obs.Error("tenant server lookup failed", map[string]any{"error": err.Error()})
		}
		for _, sid := range serverIDs {
			tenanted[sid] = struct{}{}
		}
	}

	var relevant []string
	for _, s := range servers {
		if _, ok := tenanted[s.ID]; ok {
			relevant = append(relevant, s.ID)
		}
	}

	for _, sid := range relevant {
		member, err := r.dir.MemberRoles(ctx, bearer, sid)
		if err != nil {
			obs.DirectoryFetchFailures.WithLabelValues("member_roles").Inc()
			obs.Warn("member fetch failed", map[string]any{
				"user_id":   me.ID,
				"server_id": sid,
				"error":     err.Error(),
			})
			continue
		}
		id.ServerRoles[sid] = member.RoleIDs
		if id.Nickname == "" && member.Nickname != "" {
			id.Nickname = member.Nickname
		}
	}

	// Retain tenanted servers plus owned ones; when no server carries a
	// tenant at all, keep everything the user owns.
	retained := map[string]struct{}{}
	for _, sid := range relevant {
		retained[sid] = struct{}{}
	}
	for _, sid := range ownedIDs {
		if _, ok := tenanted[sid]; ok || len(relevant) == 0 {
			retained[sid] = struct{}{}
		}
	}

	for _, sid := range ownedIDs {
		if _, ok := retained[sid]; ok {
			id.OwnedServerIDs = append(id.OwnedServerIDs, sid)
		}
	}
	for _, sid := range adminIDs {
		if _, ok := retained[sid]; ok {
			id.AdminServerIDs = append(id.AdminServerIDs, sid)
		}
	}
	for sid := range retained {
		if name, ok := names[sid]; ok {
			id.ServerNames[sid] = name
		}
	}

	r.fetchRoleNames(ctx, &id)

	id.RoleIDs = uniqueRoles(id.ServerRoles)
	id.InTenantServer = len(id.ServerRoles) > 0
	return id, nil
}

// fetchRoleNames resolves display names for the roles the user holds,
// using the service credential. Failures leave names unresolved.
func (r *Resolver) fetchRoleNames(ctx context.Context, id *Identity) {
	for sid, roleIDs := range id.ServerRoles {
		if len(roleIDs) == 0 {
			continue
		}
		roles, err := r.dir.ServerRoles(ctx, sid)
		if err != nil {
			obs.DirectoryFetchFailures.WithLabelValues("server_roles").Inc()
			obs.Warn("role name fetch failed", map[string]any{
				"server_id": sid,
				"error":     err.Error(),
			})
			continue
		}
		byID := make(map[string]string, len(roles))
		for _, role := range roles {
			byID[role.ID] = role.Name
		}
		for _, rid := range roleIDs {
			if name, ok := byID[rid]; ok {
				id.RoleNames[rid] = name
			}
		}
	}
}

func uniqueRoles(serverRoles map[string][]string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, roles := range serverRoles {
		for _, rid := range roles {
			if _, ok := seen[rid]; ok {
				continue
			}
			seen[rid] = struct{}{}
			out = append(out, rid)
		}
	}
	sort.Strings(out)
	if out == nil {
		out = []string{}
	}
	return out
}

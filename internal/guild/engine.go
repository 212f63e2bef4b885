package guild

import (
	"context"
	"errors"

	"guildstock.gg/internal/obs"
)

// Engine answers tenant-access questions. Every lookup failure is treated as
// "no access" and logged, never surfaced to callers.
type Engine struct {
	store            Store
	superAdminUserID string
}

// NewEngine constructs the access engine. superAdminUserID may be empty, in
// which case no actor gets the super-admin short-circuit.
func NewEngine(store Store, superAdminUserID string) *Engine {
	return &Engine{store: store, superAdminUserID: superAdminUserID}
}

// IsSuperAdmin reports whether the actor id matches the configured super admin.
func (e *Engine) IsSuperAdmin(actorID string) bool {
	return e.superAdminUserID != "" && actorID == e.superAdminUserID
}

// CanAccessGuild reports whether the held roles grant view/edit access to one
// guild. Global access bypasses the role check; an unknown guild or a guild
// with no configured roles denies.
func (e *Engine) CanAccessGuild(ctx context.Context, guildID string, heldRoleIDs []string, hasGlobalAccess bool) bool {
	if hasGlobalAccess {
		return true
	}

	g, err := e.store.Find(ctx, guildID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			obs.Warn("guild access check for unknown guild", map[string]any{"guild_id": guildID})
		} else {
			obs.Error("guild lookup failed during access check", map[string]any{"guild_id": guildID, "error": err.Error()})
		}
		return false
	}

	roles := g.AccessRoleIDs()
	if len(roles) == 0 {
		return false
	}
	return holdsAny(heldRoleIDs, roles)
}

// HasGuildAdminAccess reports whether the held roles grant tenant-scoped
// configuration access to one guild via its admin role list.
func (e *Engine) HasGuildAdminAccess(ctx context.Context, guildID string, heldRoleIDs []string) bool {
	g, err := e.store.Find(ctx, guildID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			obs.Warn("guild admin check for unknown guild", map[string]any{"guild_id": guildID})
		} else {
			obs.Error("guild lookup failed during admin check", map[string]any{"guild_id": guildID, "error": err.Error()})
		}
		return false
	}
	if len(g.AdminRoleIDs) == 0 {
		return false
	}
	return holdsAny(heldRoleIDs, g.AdminRoleIDs)
}

// AccessibleGuilds returns the guild ids on one server the actor may see.
// The configured super admin sees every guild in the system; server owners
// and globally privileged actors see every guild on the server; everyone
// else is filtered by the role triple.
func (e *Engine) AccessibleGuilds(ctx context.Context, serverID string, heldRoleIDs []string, actorID string, isServerOwner, hasGlobalAccess bool) ([]string, error) {
	if e.IsSuperAdmin(actorID) {
		all, err := e.store.ListAll(ctx)
		if err != nil {
			return nil, err
		}
		return guildIDs(all), nil
	}

	serverGuilds, err := e.store.ListByServer(ctx, serverID)
	if err != nil {
		return nil, err
	}

	if isServerOwner || hasGlobalAccess {
		return guildIDs(serverGuilds), nil
	}

	var out []string
	for _, g := range serverGuilds {
		roles := g.AccessRoleIDs()
		if len(roles) == 0 {
			continue
		}
		if holdsAny(heldRoleIDs, roles) {
			out = append(out, g.ID)
		}
	}
	return out, nil
}

// AccessibleGuildsForUser unions AccessibleGuilds across every server in the
// actor's retained membership map, deduplicated. serverRoles holds the per
// server held role ids; ownedServerIDs the servers the actor owns.
func (e *Engine) AccessibleGuildsForUser(ctx context.Context, actorID string, serverRoles map[string][]string, ownedServerIDs []string, hasGlobalAccess bool) ([]string, error) {
	if e.IsSuperAdmin(actorID) {
		all, err := e.store.ListAll(ctx)
		if err != nil {
			return nil, err
		}
		return guildIDs(all), nil
	}

	owned := make(map[string]struct{}, len(ownedServerIDs))
	for _, id := range ownedServerIDs {
		owned[id] = struct{}{}
	}

	serverIDs := make([]string, 0, len(serverRoles))
	for id := range serverRoles {
		serverIDs = append(serverIDs, id)
	}
	for _, id := range ownedServerIDs {
		if _, ok := serverRoles[id]; !ok {
			serverIDs = append(serverIDs, id)
		}
	}

	seen := make(map[string]struct{})
	var out []string
	for _, serverID := range serverIDs {
		_, isOwner := owned[serverID]
		ids, err := e.AccessibleGuilds(ctx, serverID, serverRoles[serverID], actorID, isOwner, hasGlobalAccess)
		if err != nil {
			obs.Error("accessible guild listing failed for server", map[string]any{"server_id": serverID, "error": err.Error()})
			continue
		}
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out, nil
}

// Describe resolves guild details for a set of ids. Ids that vanished
// between listing and lookup are skipped.
func (e *Engine) Describe(ctx context.Context, ids []string) ([]Guild, error) {
	out := make([]Guild, 0, len(ids))
	for _, id := range ids {
		g, err := e.store.Find(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func guildIDs(guilds []Guild) []string {
	out := make([]string, 0, len(guilds))
	for _, g := range guilds {
		out = append(out, g.ID)
	}
	return out
}

func holdsAny(held, wanted []string) bool {
	set := make(map[string]struct{}, len(wanted))
	for _, id := range wanted {
		set[id] = struct{}{}
	}
	for _, id := range held {
		if _, ok := set[id]; ok {
			return true
		}
	}
	return false
}

// Package access derives per-session capability sets from held directory
// roles. Derivation is a pure filter over the injected role hierarchy:
// with nothing configured, nothing is granted, and server ownership is the
// only bypass for the core capabilities.
package access

import "guildstock.gg/internal/rolecfg"

// PermissionSet is the ephemeral capability set computed for one session.
// It is recomputed on every session resolve and never persisted.
type PermissionSet struct {
	ResourceAccess bool `json:"resource_access"`
	ResourceAdmin  bool `json:"resource_admin"`
	TargetEdit     bool `json:"target_edit"`
	BotAdmin       bool `json:"bot_admin"`
	ViewReports    bool `json:"view_reports"`
	ManageUsers    bool `json:"manage_users"`
	ExportData     bool `json:"export_data"`

	// TrueAdmin is granted only to the super admin or role-derived admins,
	// never through server ownership. It gates the admin surfaces.
	TrueAdmin bool `json:"true_admin"`
}

// Resolver computes permission sets against an immutable role hierarchy.
type Resolver struct {
	hierarchy *rolecfg.Hierarchy
}

// NewResolver constructs a resolver over the given hierarchy. A nil hierarchy
// behaves like an empty one.
func NewResolver(h *rolecfg.Hierarchy) *Resolver {
	if h == nil {
		h = rolecfg.Empty()
	}
	return &Resolver{hierarchy: h}
}

// Resolve turns held role ids plus ownership flags into a capability set.
// Super admins get everything. Server owners get the three core capabilities
// regardless of roles; auxiliary capabilities still derive from roles only.
// Everything else is a role-set intersection, and an empty capability role
// set denies.
func (r *Resolver) Resolve(heldRoleIDs []string, isAnyServerOwner, isSuperAdmin bool) PermissionSet {
	if isSuperAdmin {
		return PermissionSet{
			ResourceAccess: true,
			ResourceAdmin:  true,
			TargetEdit:     true,
			BotAdmin:       true,
			ViewReports:    true,
			ManageUsers:    true,
			ExportData:     true,
			TrueAdmin:      true,
		}
	}

	roleAdmin := intersects(heldRoleIDs, r.hierarchy.AdminRoles())

	set := PermissionSet{
		ResourceAccess: intersects(heldRoleIDs, r.hierarchy.ResourceAccessRoles()),
		ResourceAdmin:  roleAdmin,
		TargetEdit:     intersects(heldRoleIDs, r.hierarchy.TargetEditRoles()),
		ViewReports:    intersects(heldRoleIDs, r.hierarchy.ReportRoles()),
		ManageUsers:    intersects(heldRoleIDs, r.hierarchy.UserManagementRoles()),
		ExportData:     intersects(heldRoleIDs, r.hierarchy.DataExportRoles()),
		TrueAdmin:      roleAdmin,
	}

	// Bot settings fall back to resource admin when no dedicated roles exist.
	if botRoles := r.hierarchy.BotAdminRoles(); len(botRoles) > 0 {
		set.BotAdmin = intersects(heldRoleIDs, botRoles)
	} else {
		set.BotAdmin = roleAdmin
	}

	if isAnyServerOwner {
		set.ResourceAccess = true
		set.ResourceAdmin = true
		set.TargetEdit = true
		set.BotAdmin = true
	}

	return set
}

func intersects(held, capability []string) bool {
	if len(capability) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(capability))
	for _, id := range capability {
		set[id] = struct{}{}
	}
	for _, id := range held {
		if _, ok := set[id]; ok {
			return true
		}
	}
	return false
}

// Package rolecfg holds the externally supplied role hierarchy: a table
// mapping directory role identifiers to capability flags and a numeric rank.
// The hierarchy is parsed once at startup and injected where needed; an empty
// table is a valid state and means no role-derived capability is ever granted.
package rolecfg

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// RoleDefinition describes one configured role and the capabilities it grants.
type RoleDefinition struct {
	ID                   string `json:"id" validate:"required"`
	Name                 string `json:"name" validate:"required"`
	Rank                 int    `json:"rank"`
	IsAdmin              bool   `json:"isAdmin"`
	CanEditTargets       bool   `json:"canEditTargets"`
	CanAccessResources   bool   `json:"canAccessResources"`
	CanManageBotSettings bool   `json:"canManageBotSettings"`
	CanViewReports       bool   `json:"canViewReports"`
	CanManageUsers       bool   `json:"canManageUsers"`
	CanExportData        bool   `json:"canExportData"`
}

// ParseIssue reports one entry that was dropped during parsing.
type ParseIssue struct {
	Index  int
	Reason string
}

func (i ParseIssue) String() string {
	return fmt.Sprintf("role entry %d dropped: %s", i.Index, i.Reason)
}

// ErrNotArray indicates the configured value was valid JSON but not an array.
var ErrNotArray = errors.New("rolecfg: role hierarchy must be a JSON array")

// Hierarchy is an immutable lookup table over the configured role definitions.
type Hierarchy struct {
	byID  map[string]RoleDefinition
	order []string
}

// Empty returns a hierarchy with no configured roles.
func Empty() *Hierarchy {
	return &Hierarchy{byID: map[string]RoleDefinition{}}
}

// ParseHierarchy decodes a JSON-encoded array of role definitions. Entries
// failing validation are dropped and reported as issues; only malformed JSON
// or a non-array value is an error. An empty input is a valid empty hierarchy.
func ParseHierarchy(raw []byte) (*Hierarchy, []ParseIssue, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return Empty(), nil, nil
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, nil, ErrNotArray
		}
		return nil, nil, fmt.Errorf("rolecfg: decode role hierarchy: %w", err)
	}

	validate := validator.New()
	h := Empty()
	var issues []ParseIssue
	for i, entry := range entries {
		var def RoleDefinition
		if err := json.Unmarshal(entry, &def); err != nil {
			issues = append(issues, ParseIssue{Index: i, Reason: "not a role object"})
			continue
		}
		if err := validate.Struct(def); err != nil {
			issues = append(issues, ParseIssue{Index: i, Reason: "missing required fields (id, name)"})
			continue
		}
		if _, dup := h.byID[def.ID]; dup {
			issues = append(issues, ParseIssue{Index: i, Reason: "duplicate role id " + def.ID})
			continue
		}
		h.byID[def.ID] = def
		h.order = append(h.order, def.ID)
	}
	return h, issues, nil
}

// Len reports the number of configured roles.
func (h *Hierarchy) Len() int { return len(h.byID) }

// Role returns the definition for a role id.
func (h *Hierarchy) Role(id string) (RoleDefinition, bool) {
	def, ok := h.byID[id]
	return def, ok
}

// RoleName returns the configured display name, or a placeholder for
// unconfigured ids.
func (h *Hierarchy) RoleName(id string) string {
	if def, ok := h.byID[id]; ok {
		return def.Name
	}
	return fmt.Sprintf("Unknown Role (%s)", id)
}

// HighestRole returns the held role with the greatest rank, if any is
// configured.
func (h *Hierarchy) HighestRole(held []string) (RoleDefinition, bool) {
	var best RoleDefinition
	found := false
	for _, id := range held {
		def, ok := h.byID[id]
		if !ok {
			continue
		}
		if !found || def.Rank > best.Rank {
			best = def
			found = true
		}
	}
	return best, found
}

func (h *Hierarchy) filter(pred func(RoleDefinition) bool) []string {
	var out []string
	for _, id := range h.order {
		if pred(h.byID[id]) {
			out = append(out, id)
		}
	}
	return out
}

// AdminRoles returns role ids granting resource admin access.
func (h *Hierarchy) AdminRoles() []string {
	return h.filter(func(d RoleDefinition) bool { return d.IsAdmin })
}

// TargetEditRoles returns role ids allowed to edit target quantities.
func (h *Hierarchy) TargetEditRoles() []string {
	return h.filter(func(d RoleDefinition) bool { return d.CanEditTargets })
}

// ResourceAccessRoles returns role ids allowed to view the resource system.
func (h *Hierarchy) ResourceAccessRoles() []string {
	return h.filter(func(d RoleDefinition) bool { return d.CanAccessResources })
}

// BotAdminRoles returns role ids allowed to manage bot settings.
func (h *Hierarchy) BotAdminRoles() []string {
	return h.filter(func(d RoleDefinition) bool { return d.CanManageBotSettings })
}

// ReportRoles returns role ids allowed to view reports.
func (h *Hierarchy) ReportRoles() []string {
	return h.filter(func(d RoleDefinition) bool { return d.CanViewReports })
}

// UserManagementRoles returns role ids allowed to manage user accounts.
func (h *Hierarchy) UserManagementRoles() []string {
	return h.filter(func(d RoleDefinition) bool { return d.CanManageUsers })
}

// DataExportRoles returns role ids allowed to export data.
func (h *Hierarchy) DataExportRoles() []string {
	return h.filter(func(d RoleDefinition) bool { return d.CanExportData })
}

package rolecfg

import (
	"errors"
	"testing"
)

func TestParseHierarchy(t *testing.T) {
	raw := []byte(`[
		{"id":"r-admin","name":"Quartermaster","rank":3,"isAdmin":true,"canAccessResources":true,"canEditTargets":true},
		{"id":"r-member","name":"Hauler","rank":1,"canAccessResources":true},
		{"id":"r-analyst","name":"Analyst","rank":2,"canViewReports":true,"canExportData":true}
	]`)

	h, issues, err := ParseHierarchy(raw)
	if err != nil {
		t.Fatalf("ParseHierarchy: %v", err)
	}
	if len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}
	if h.Len() != 3 {
		t.Fatalf("expected 3 roles, got %d", h.Len())
	}
	if got := h.AdminRoles(); len(got) != 1 || got[0] != "r-admin" {
		t.Fatalf("unexpected admin roles: %v", got)
	}
	if got := h.ResourceAccessRoles(); len(got) != 2 {
		t.Fatalf("unexpected access roles: %v", got)
	}
	if got := h.ReportRoles(); len(got) != 1 || got[0] != "r-analyst" {
		t.Fatalf("unexpected report roles: %v", got)
	}
	if name := h.RoleName("r-member"); name != "Hauler" {
		t.Fatalf("unexpected role name: %s", name)
	}
	if name := h.RoleName("missing"); name != "Unknown Role (missing)" {
		t.Fatalf("unexpected placeholder: %s", name)
	}
}

func TestParseHierarchyDropsInvalidEntries(t *testing.T) {
	raw := []byte(`[
		{"id":"r1","name":"Valid"},
		{"name":"missing id"},
		{"id":"r2"},
		"not an object",
		{"id":"r1","name":"duplicate"}
	]`)

	h, issues, err := ParseHierarchy(raw)
	if err != nil {
		t.Fatalf("ParseHierarchy: %v", err)
	}
	if h.Len() != 1 {
		t.Fatalf("expected only the valid entry, got %d", h.Len())
	}
	if len(issues) != 4 {
		t.Fatalf("expected 4 issues, got %d: %v", len(issues), issues)
	}
}

func TestParseHierarchyRejectsNonArray(t *testing.T) {
	if _, _, err := ParseHierarchy([]byte(`{"id":"r1"}`)); !errors.Is(err, ErrNotArray) {
		t.Fatalf("expected ErrNotArray, got %v", err)
	}
	if _, _, err := ParseHierarchy([]byte(`{invalid json`)); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestParseHierarchyEmptyInput(t *testing.T) {
	for _, raw := range []string{"", "   ", "[]"} {
		h, issues, err := ParseHierarchy([]byte(raw))
		if err != nil {
			t.Fatalf("ParseHierarchy(%q): %v", raw, err)
		}
		if len(issues) != 0 || h.Len() != 0 {
			t.Fatalf("expected empty hierarchy for %q", raw)
		}
		if roles := h.AdminRoles(); len(roles) != 0 {
			t.Fatalf("empty hierarchy must grant nothing, got %v", roles)
		}
	}
}

func TestHighestRole(t *testing.T) {
	h, _, err := ParseHierarchy([]byte(`[
		{"id":"a","name":"A","rank":1},
		{"id":"b","name":"B","rank":5},
		{"id":"c","name":"C","rank":3}
	]`))
	if err != nil {
		t.Fatal(err)
	}
	best, ok := h.HighestRole([]string{"a", "c", "unknown"})
	if !ok || best.ID != "c" {
		t.Fatalf("expected c, got %v ok=%v", best.ID, ok)
	}
	if _, ok := h.HighestRole([]string{"unknown"}); ok {
		t.Fatal("expected no role for unconfigured ids")
	}
}

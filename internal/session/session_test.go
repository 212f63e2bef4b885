package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"guildstock.gg/internal/access"
	"guildstock.gg/internal/identity"
	"guildstock.gg/internal/rolecfg"
)

type stubResolver struct {
	id    identity.Identity
	err   error
	calls int
}

func (r *stubResolver) Resolve(ctx context.Context, bearer string) (identity.Identity, error) {
	r.calls++
	if r.err != nil {
		return identity.Identity{}, r.err
	}
	return r.id, nil
}

func testPerms(t *testing.T) *access.Resolver {
	t.Helper()
	h, issues, err := rolecfg.ParseHierarchy([]byte(`[
		{"id":"r-officer","name":"Officer","rank":2,"canAccessResources":true,"canEditTargets":true}
	]`))
	if err != nil || len(issues) != 0 {
		t.Fatalf("parse hierarchy: %v %v", err, issues)
	}
	return access.NewResolver(h)
}

func testManager(t *testing.T, resolver IdentityResolver) *Manager {
	t.Helper()
	m, err := NewManager("test-secret", time.Hour, 10*time.Minute, resolver, testPerms(t), "super-1")
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestManagerConfigValidation(t *testing.T) {
	perms := testPerms(t)
	if _, err := NewManager("", time.Hour, time.Minute, &stubResolver{}, perms, ""); err == nil {
		t.Fatal("empty secret should be rejected")
	}
	if _, err := NewManager("s", 0, time.Minute, &stubResolver{}, perms, ""); err == nil {
		t.Fatal("non-positive ttl should be rejected")
	}
	if _, err := NewManager("s", time.Minute, time.Hour, &stubResolver{}, perms, ""); err == nil {
		t.Fatal("refresh-after beyond ttl should be rejected")
	}
}

func TestResolveRoundTrip(t *testing.T) {
	resolver := &stubResolver{id: identity.Identity{
		UserID:   "u1",
		Username: "muaddib",
		RoleIDs:  []string{"r-officer"},
	}}
	m := testManager(t, resolver)

	state, token, err := m.Resolve(context.Background(), "discord-token")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if token == "" {
		t.Fatal("expected a signed token")
	}
	if !state.Permissions.ResourceAccess || !state.Permissions.TargetEdit {
		t.Fatalf("role permissions not computed: %+v", state.Permissions)
	}
	if state.Permissions.TrueAdmin {
		t.Fatalf("officer must not be admin: %+v", state.Permissions)
	}

	parsed, err := m.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Identity.UserID != "u1" || parsed.Identity.Username != "muaddib" {
		t.Fatalf("identity lost in transit: %+v", parsed.Identity)
	}
	if parsed.Permissions != state.Permissions {
		t.Fatalf("permissions lost in transit: %+v", parsed.Permissions)
	}
}

func TestResolveSuperAdmin(t *testing.T) {
	resolver := &stubResolver{id: identity.Identity{UserID: "super-1"}}
	m := testManager(t, resolver)

	state, _, err := m.Resolve(context.Background(), "discord-token")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !state.Permissions.TrueAdmin || !state.Permissions.ExportData {
		t.Fatalf("super admin should hold everything: %+v", state.Permissions)
	}
}

func TestResolvePropagatesResolverFailure(t *testing.T) {
	resolver := &stubResolver{err: identity.ErrUnauthorized}
	m := testManager(t, resolver)

	if _, _, err := m.Resolve(context.Background(), "bad"); !errors.Is(err, identity.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	m := testManager(t, &stubResolver{})
	for _, tok := range []string{"", "  ", "not.a.jwt"} {
		if _, err := m.Parse(tok); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("token %q should be invalid, got %v", tok, err)
		}
	}
}

func TestParseRejectsForeignSignature(t *testing.T) {
	resolver := &stubResolver{id: identity.Identity{UserID: "u1"}}
	other, err := NewManager("other-secret", time.Hour, 10*time.Minute, resolver, testPerms(t), "")
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	_, token, err := other.Resolve(context.Background(), "discord-token")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	m := testManager(t, resolver)
	if _, err := m.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("foreign signature should be rejected, got %v", err)
	}
}

func TestParseRejectsExpired(t *testing.T) {
	resolver := &stubResolver{id: identity.Identity{UserID: "u1"}}
	m := testManager(t, resolver)

	base := time.Now().UTC()
	m.WithClock(func() time.Time { return base })
	_, token, err := m.Resolve(context.Background(), "discord-token")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	m.WithClock(func() time.Time { return base.Add(2 * time.Hour) })
	if _, err := m.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired token should be rejected, got %v", err)
	}
}

func TestNeedsRefresh(t *testing.T) {
	resolver := &stubResolver{id: identity.Identity{UserID: "u1"}}
	m := testManager(t, resolver)

	base := time.Now().UTC()
	m.WithClock(func() time.Time { return base })
	state, _, err := m.Resolve(context.Background(), "discord-token")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if m.NeedsRefresh(state) {
		t.Fatal("fresh state should not need a refresh")
	}

	m.WithClock(func() time.Time { return base.Add(11 * time.Minute) })
	if !m.NeedsRefresh(state) {
		t.Fatal("state past refresh-after should need a refresh")
	}
}

func TestRefreshReResolves(t *testing.T) {
	resolver := &stubResolver{id: identity.Identity{UserID: "u1", RoleIDs: []string{"r-officer"}}}
	m := testManager(t, resolver)

	_, token, err := m.Resolve(context.Background(), "discord-token")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	// Roles changed upstream since the session was issued.
	resolver.id.RoleIDs = nil
	state, newToken, err := m.Refresh(context.Background(), token)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if resolver.calls != 2 {
		t.Fatalf("refresh must re-resolve, calls=%d", resolver.calls)
	}
	if state.Permissions.ResourceAccess {
		t.Fatalf("revoked role should drop permissions: %+v", state.Permissions)
	}
	if newToken == "" || newToken == token {
		t.Fatal("refresh should issue a new token")
	}
}

func TestRefreshRejectsInvalidSession(t *testing.T) {
	m := testManager(t, &stubResolver{})
	if _, _, err := m.Refresh(context.Background(), "junk"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	if _, ok := FromContext(ctx); ok {
		t.Fatal("empty context should carry no state")
	}
	s := State{Identity: identity.Identity{UserID: "u1"}}
	ctx = ContextWithState(ctx, s)
	got, ok := FromContext(ctx)
	if !ok || got.Identity.UserID != "u1" {
		t.Fatalf("state lost in context: %+v", got)
	}
	uid, ok := UserIDFromContext(ctx)
	if !ok || uid != "u1" {
		t.Fatalf("unexpected user id: %q", uid)
	}
}

package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"guildstock.gg/internal/access"
	"guildstock.gg/internal/identity"
	"guildstock.gg/internal/obs"
)

const issuer = "guildstock"

var (
	// ErrInvalidToken indicates the session token failed validation.
	ErrInvalidToken = errors.New("session: invalid token")
)

// State is the token-carried session: the resolved identity plus the
// permissions computed from it. Permissions live only here and in the
// signed token, never in storage.
type State struct {
	Identity    identity.Identity    `json:"identity"`
	Permissions access.PermissionSet `json:"permissions"`
	ResolvedAt  time.Time            `json:"resolved_at"`
	ExpiresAt   time.Time            `json:"expires_at"`
}

// Claims is the JWT payload. The directory token rides along so a
// refresh can re-resolve without the client re-authenticating upstream.
type Claims struct {
	Identity       identity.Identity    `json:"identity"`
	Permissions    access.PermissionSet `json:"permissions"`
	DirectoryToken string               `json:"dtk,omitempty"`
	jwt.RegisteredClaims
}

// IdentityResolver yields a pruned identity for a directory bearer.
type IdentityResolver interface {
	Resolve(ctx context.Context, bearer string) (identity.Identity, error)
}

// Manager issues and validates session tokens. Permissions are
// recomputed on every resolve and refresh.
type Manager struct {
	secret       []byte
	ttl          time.Duration
	refreshAfter time.Duration
	resolver     IdentityResolver
	perms        *access.Resolver
	superAdminID string
	now          func() time.Time
}

func NewManager(secret string, ttl, refreshAfter time.Duration, resolver IdentityResolver, perms *access.Resolver, superAdminID string) (*Manager, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("session: secret is required")
	}
	if ttl <= 0 {
		return nil, errors.New("session: ttl must be greater than zero")
	}
	if refreshAfter <= 0 || refreshAfter >= ttl {
		return nil, errors.New("session: refresh-after must be positive and below the ttl")
	}
	return &Manager{
		secret:       []byte(secret),
		ttl:          ttl,
		refreshAfter: refreshAfter,
		resolver:     resolver,
		perms:        perms,
		superAdminID: superAdminID,
		now:          func() time.Time { return time.Now().UTC() },
	}, nil
}

// WithClock overrides the manager's clock. Only intended for test use.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Resolve exchanges a directory bearer token for a session: it resolves
// the identity, computes permissions, and signs a session token.
func (m *Manager) Resolve(ctx context.Context, directoryBearer string) (State, string, error) {
	state, token, err := m.establish(ctx, directoryBearer)
	if err != nil {
		return State{}, "", err
	}
	obs.SessionResolutions.WithLabelValues("login").Inc()
	return state, token, nil
}

// Refresh re-resolves the identity behind an existing session and
// issues a fresh token. The session must still be valid.
func (m *Manager) Refresh(ctx context.Context, sessionToken string) (State, string, error) {
	claims, err := m.parseClaims(sessionToken)
	if err != nil {
		return State{}, "", err
	}
	if claims.DirectoryToken == "" {
		return State{}, "", ErrInvalidToken
	}
	state, token, err := m.establish(ctx, claims.DirectoryToken)
	if err != nil {
		return State{}, "", err
	}
	obs.SessionResolutions.WithLabelValues("refresh").Inc()
	return state, token, nil
}

func (m *Manager) establish(ctx context.Context, directoryBearer string) (State, string, error) {
	id, err := m.resolver.Resolve(ctx, directoryBearer)
	if err != nil {
		return State{}, "", err
	}
	isSuperAdmin := m.superAdminID != "" && id.UserID == m.superAdminID
	perms := m.perms.Resolve(id.RoleIDs, id.IsAnyServerOwner, isSuperAdmin)

	now := m.now().UTC()
	state := State{
		Identity:    id,
		Permissions: perms,
		ResolvedAt:  now,
		ExpiresAt:   now.Add(m.ttl),
	}

	claims := Claims{
		Identity:       id,
		Permissions:    perms,
		DirectoryToken: directoryBearer,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(state.ExpiresAt),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return State{}, "", fmt.Errorf("session: sign token: %w", err)
	}
	return state, signed, nil
}

// Parse verifies a session token and reconstructs its state.
func (m *Manager) Parse(token string) (State, error) {
	claims, err := m.parseClaims(token)
	if err != nil {
		return State{}, err
	}
	return State{
		Identity:    claims.Identity,
		Permissions: claims.Permissions,
		ResolvedAt:  claims.IssuedAt.Time,
		ExpiresAt:   claims.ExpiresAt.Time,
	}, nil
}

// NeedsRefresh reports whether the state is stale under the manager's
// refresh-after policy. A stale session still parses; callers decide
// when to re-resolve.
func (m *Manager) NeedsRefresh(s State) bool {
	return m.now().UTC().After(s.ResolvedAt.Add(m.refreshAfter))
}

func (m *Manager) parseClaims(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if err := m.validateClaims(claims); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (m *Manager) validateClaims(claims *Claims) error {
	if claims.Issuer != issuer {
		return fmt.Errorf("unexpected issuer: %s", claims.Issuer)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return errors.New("subject missing")
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return errors.New("timestamps missing")
	}
	now := m.now().UTC()
	if now.After(claims.ExpiresAt.Time) {
		return errors.New("token expired")
	}
	// Allow a small clock skew of 5 seconds when validating issued-at.
	if claims.IssuedAt.Time.After(now.Add(5 * time.Second)) {
		return errors.New("token issued in the future")
	}
	if claims.ExpiresAt.Time.Before(claims.IssuedAt.Time) {
		return errors.New("token expiry precedes issued-at")
	}
	return nil
}

package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

const defaultBaseURL = "https://discord.com/api/v10"

// RESTDirectory implements Directory against the Discord REST API.
type RESTDirectory struct {
	baseURL  string
	botToken string
	client   *http.Client
}

// NewRESTDirectory builds a directory client. baseURL may be empty to
// use the public API; tests point it at a local server.
func NewRESTDirectory(baseURL, botToken string) *RESTDirectory {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &RESTDirectory{
		baseURL:  baseURL,
		botToken: botToken,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (d *RESTDirectory) Me(ctx context.Context, bearer string) (User, error) {
	var u User
	if err := d.get(ctx, "/users/@me", "Bearer "+bearer, &u); err != nil {
		return User{}, err
	}
	return u, nil
}

func (d *RESTDirectory) UserServers(ctx context.Context, bearer string) ([]Server, error) {
	var raw []struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Owner       bool   `json:"owner"`
		Permissions string `json:"permissions"`
	}
	if err := d.get(ctx, "/users/@me/guilds", "Bearer "+bearer, &raw); err != nil {
		return nil, err
	}
	out := make([]Server, 0, len(raw))
	for _, g := range raw {
		// Permission bits arrive as a decimal string.
		perms, _ := strconv.ParseUint(g.Permissions, 10, 64)
		out = append(out, Server{ID: g.ID, Name: g.Name, Owner: g.Owner, Permissions: perms})
	}
	return out, nil
}

func (d *RESTDirectory) MemberRoles(ctx context.Context, bearer, serverID string) (Member, error) {
	var raw struct {
		Roles []string `json:"roles"`
		Nick  string   `json:"nick"`
	}
	if err := d.get(ctx, "/users/@me/guilds/"+serverID+"/member", "Bearer "+bearer, &raw); err != nil {
		return Member{}, err
	}
	return Member{RoleIDs: raw.Roles, Nickname: raw.Nick}, nil
}

func (d *RESTDirectory) ServerRoles(ctx context.Context, serverID string) ([]NamedRole, error) {
	var raw struct {
		Roles []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"roles"`
	}
	if err := d.get(ctx, "/guilds/"+serverID, "Bot "+d.botToken, &raw); err != nil {
		return nil, err
	}
	out := make([]NamedRole, 0, len(raw.Roles))
	for _, r := range raw.Roles {
		out = append(out, NamedRole{ID: r.ID, Name: r.Name})
	}
	return out, nil
}

func (d *RESTDirectory) get(ctx context.Context, path, authorization string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("identity: build request: %w", err)
	}
	req.Header.Set("Authorization", authorization)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("identity: %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s: status %d", ErrUnauthorized, path, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("identity: %s: status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("identity: decode %s: %w", path, err)
	}
	return nil
}

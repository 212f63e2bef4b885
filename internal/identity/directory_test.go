package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /users/@me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"id":"u1","username":"muaddib"}`))
	})
	mux.HandleFunc("GET /users/@me/guilds", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"id":"server-1","name":"Arrakis","owner":false,"permissions":"8"},
			{"id":"server-2","name":"Caladan","owner":true,"permissions":"0"}
		]`))
	})
	mux.HandleFunc("GET /users/@me/guilds/server-1/member", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"roles":["r1","r2"],"nick":"Usul"}`))
	})
	mux.HandleFunc("GET /guilds/server-1", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bot bot-secret" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Write([]byte(`{"roles":[{"id":"r1","name":"Fedaykin"},{"id":"r2","name":"Naib"}]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRESTDirectory(t *testing.T) {
	srv := testAPI(t)
	dir := NewRESTDirectory(srv.URL, "bot-secret")
	ctx := context.Background()

	me, err := dir.Me(ctx, "good")
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if me.ID != "u1" || me.Username != "muaddib" {
		t.Fatalf("unexpected user: %+v", me)
	}

	servers, err := dir.UserServers(ctx, "good")
	if err != nil {
		t.Fatalf("servers: %v", err)
	}
	if len(servers) != 2 {
		t.Fatalf("expected 2 servers, got %d", len(servers))
	}
	if servers[0].Permissions != 8 || servers[0].Owner {
		t.Fatalf("unexpected server: %+v", servers[0])
	}
	if !servers[1].Owner {
		t.Fatalf("owner flag lost: %+v", servers[1])
	}

	member, err := dir.MemberRoles(ctx, "good", "server-1")
	if err != nil {
		t.Fatalf("member: %v", err)
	}
	if member.Nickname != "Usul" || len(member.RoleIDs) != 2 {
		t.Fatalf("unexpected member: %+v", member)
	}

	roles, err := dir.ServerRoles(ctx, "server-1")
	if err != nil {
		t.Fatalf("roles: %v", err)
	}
	if len(roles) != 2 || roles[0].Name != "Fedaykin" {
		t.Fatalf("unexpected roles: %+v", roles)
	}
}

func TestRESTDirectoryUnauthorized(t *testing.T) {
	srv := testAPI(t)
	dir := NewRESTDirectory(srv.URL, "bot-secret")

	if _, err := dir.Me(context.Background(), "bad"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

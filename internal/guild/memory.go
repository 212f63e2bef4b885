package guild

import (
	"context"
	"sync"
)

// InMemory implements Store with in-process concurrency safety. Used by tests
// and local development; production uses the postgres store.
type InMemory struct {
	mu     sync.RWMutex
	guilds map[string]Guild
	order  []string
}

// NewInMemory creates an empty in-memory tenant store.
func NewInMemory() *InMemory {
	return &InMemory{guilds: make(map[string]Guild)}
}

// Put inserts or replaces a guild.
func (s *InMemory) Put(g Guild) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.guilds[g.ID]; !ok {
		s.order = append(s.order, g.ID)
	}
	s.guilds[g.ID] = g
}

func (s *InMemory) Find(ctx context.Context, id string) (Guild, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.guilds[id]
	if !ok {
		return Guild{}, ErrNotFound
	}
	return g, nil
}

func (s *InMemory) ListByServer(ctx context.Context, serverID string) ([]Guild, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Guild
	for _, id := range s.order {
		if g := s.guilds[id]; g.ServerID == serverID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (s *InMemory) ListAll(ctx context.Context) ([]Guild, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Guild, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.guilds[id])
	}
	return out, nil
}

func (s *InMemory) ServerIDsWithGuilds(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	var out []string
	for _, id := range s.order {
		sid := s.guilds[id].ServerID
		if _, ok := seen[sid]; ok {
			continue
		}
		seen[sid] = struct{}{}
		out = append(out, sid)
	}
	return out, nil
}

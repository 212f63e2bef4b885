package ledger

import (
	"context"
	"sort"
	"sync"
)

// InMemory implements Store with in-process concurrency safety. Used by
// tests and local development; production uses the postgres store.
type InMemory struct {
	mu      sync.RWMutex
	entries []Entry
	names   map[string]string // user id -> display name
}

// NewInMemory creates an empty ledger store.
func NewInMemory() *InMemory {
	return &InMemory{names: make(map[string]string)}
}

// SetDisplayName records the name reported for a user.
func (s *InMemory) SetDisplayName(userID, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names[userID] = name
}

func (s *InMemory) Append(ctx context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	return nil
}

func (s *InMemory) Rankings(ctx context.Context, filter TimeFilter, guildIDs []string, limit, offset int) ([]Ranking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := map[string]*Ranking{}
	for _, e := range s.filtered(filter, guildIDs) {
		r, ok := totals[e.UserID]
		if !ok {
			r = &Ranking{UserID: e.UserID, DisplayName: s.names[e.UserID]}
			totals[e.UserID] = r
		}
		r.TotalPoints += e.FinalPoints
		r.EntryCount++
	}

	rows := make([]Ranking, 0, len(totals))
	for _, r := range totals {
		rows = append(rows, *r)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TotalPoints != rows[j].TotalPoints {
			return rows[i].TotalPoints > rows[j].TotalPoints
		}
		return rows[i].UserID < rows[j].UserID
	})

	if offset >= len(rows) {
		return []Ranking{}, nil
	}
	rows = rows[offset:]
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (s *InMemory) Contributions(ctx context.Context, userID string, filter TimeFilter, guildIDs []string, limit, offset int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []Entry
	for _, e := range s.filtered(filter, guildIDs) {
		if e.UserID == userID {
			rows = append(rows, e)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt.After(rows[j].CreatedAt) })

	if offset >= len(rows) {
		return []Entry{}, nil
	}
	rows = rows[offset:]
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (s *InMemory) ContributorCount(ctx context.Context, filter TimeFilter, guildIDs []string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := map[string]struct{}{}
	for _, e := range s.filtered(filter, guildIDs) {
		seen[e.UserID] = struct{}{}
	}
	return int64(len(seen)), nil
}

func (s *InMemory) ContributionSummary(ctx context.Context, userID string, filter TimeFilter, guildIDs []string) (Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum Summary
	for _, e := range s.filtered(filter, guildIDs) {
		if e.UserID == userID {
			sum.TotalPoints += e.FinalPoints
			sum.EntryCount++
		}
	}
	return sum, nil
}

func (s *InMemory) DisplayName(ctx context.Context, userID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	name, ok := s.names[userID]
	if !ok {
		return "", ErrNotFound
	}
	return name, nil
}

// filtered returns entries within the window and guild set. Callers
// must hold the read lock.
func (s *InMemory) filtered(filter TimeFilter, guildIDs []string) []Entry {
	allowed := make(map[string]struct{}, len(guildIDs))
	for _, id := range guildIDs {
		allowed[id] = struct{}{}
	}
	cutoff, bounded := filter.Since(nowUTC())

	var out []Entry
	for _, e := range s.entries {
		if _, ok := allowed[e.GuildID]; !ok {
			continue
		}
		if bounded && e.CreatedAt.Before(cutoff) {
			continue
		}
		out = append(out, e)
	}
	return out
}

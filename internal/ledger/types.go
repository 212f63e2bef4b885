package ledger

import (
	"context"
	"errors"
	"time"

	"guildstock.gg/internal/ids"
	"guildstock.gg/internal/points"
)

// Source identifies where a scored mutation originated.
type Source string

const (
	SourceWebsite Source = "website"
	SourceDiscord Source = "discord"
)

// TimeFilter bounds ledger queries to a trailing window.
type TimeFilter string

const (
	FilterDay   TimeFilter = "24h"
	FilterWeek  TimeFilter = "7d"
	FilterMonth TimeFilter = "30d"
	FilterAll   TimeFilter = "all"
)

func (f TimeFilter) Valid() bool {
	switch f {
	case FilterDay, FilterWeek, FilterMonth, FilterAll:
		return true
	}
	return false
}

// Since returns the window cutoff. The second result is false for
// unbounded queries.
func (f TimeFilter) Since(now time.Time) (time.Time, bool) {
	switch f {
	case FilterDay:
		return now.Add(-24 * time.Hour), true
	case FilterWeek:
		return now.Add(-7 * 24 * time.Hour), true
	case FilterMonth:
		return now.Add(-30 * 24 * time.Hour), true
	}
	return time.Time{}, false
}

// Entry is one append-only ledger row. Entries are never updated or
// deleted after Append.
type Entry struct {
	ID                 string        `json:"id"`
	GuildID            string        `json:"guild_id"`
	UserID             string        `json:"user_id"`
	ResourceID         string        `json:"resource_id"`
	Action             points.Action `json:"action"`
	QuantityChanged    int64         `json:"quantity_changed"`
	BasePoints         float64       `json:"base_points"`
	ResourceMultiplier float64       `json:"resource_multiplier"`
	StatusBonus        float64       `json:"status_bonus"`
	FinalPoints        float64       `json:"final_points"`
	ResourceName       string        `json:"resource_name"`
	ResourceCategory   string        `json:"resource_category"`
	ResourceStatus     string        `json:"resource_status"`
	CreatedAt          time.Time     `json:"created_at"`
}

// ResourceSnapshot carries the resource attributes scoring needs,
// captured before the mutation was applied.
type ResourceSnapshot struct {
	ID         string
	GuildID    string
	ServerID   string
	Name       string
	Category   string
	Status     string
	Multiplier float64
}

// Ranking is one aggregated leaderboard row.
type Ranking struct {
	Rank        int     `json:"rank"`
	UserID      string  `json:"user_id"`
	DisplayName string  `json:"display_name,omitempty"`
	TotalPoints float64 `json:"total_points"`
	EntryCount  int64   `json:"entry_count"`
}

// Board is one leaderboard page plus the distinct contributor count
// across the whole window, for pagination.
type Board struct {
	Rankings []Ranking `json:"rankings"`
	Total    int64     `json:"total"`
}

// Summary totals a user's scored activity within a window.
type Summary struct {
	TotalPoints float64 `json:"total_points"`
	EntryCount  int64   `json:"entry_count"`
}

// ContributionReport is a user's recent entries plus totals.
type ContributionReport struct {
	UserID      string  `json:"user_id"`
	DisplayName string  `json:"display_name,omitempty"`
	Entries     []Entry `json:"entries"`
	Summary     Summary `json:"summary"`
}

var (
	ErrNotFound      = errors.New("ledger: not found")
	ErrInvalidFilter = errors.New("ledger: invalid time filter")
	ErrInvalidAction = errors.New("ledger: invalid action")
)

// Store is the persistence boundary. Every query takes the caller's
// accessible guild set; implementations must filter by it.
type Store interface {
	Append(ctx context.Context, e Entry) error
	Rankings(ctx context.Context, filter TimeFilter, guildIDs []string, limit, offset int) ([]Ranking, error)
	ContributorCount(ctx context.Context, filter TimeFilter, guildIDs []string) (int64, error)
	Contributions(ctx context.Context, userID string, filter TimeFilter, guildIDs []string, limit, offset int) ([]Entry, error)
	ContributionSummary(ctx context.Context, userID string, filter TimeFilter, guildIDs []string) (Summary, error)
	DisplayName(ctx context.Context, userID string) (string, error)
}

func newID() string {
	return ids.New()
}

package ledger

import (
	"context"
	"errors"
	"testing"

	"guildstock.gg/internal/points"
)

type stubBonus struct {
	pct int
	err error
}

func (b stubBonus) WebsiteBonusPercent(ctx context.Context, serverID string) (int, error) {
	return b.pct, b.err
}

type failingStore struct{ Store }

func (failingStore) Append(ctx context.Context, e Entry) error {
	return errors.New("boom")
}

func snapshot() ResourceSnapshot {
	return ResourceSnapshot{
		ID:         "res-1",
		GuildID:    "guild-1",
		ServerID:   "server-1",
		Name:       "Melange",
		Category:   "Raw",
		Status:     points.StatusCritical,
		Multiplier: 1.5,
	}
}

func TestAwardPersistsAndScores(t *testing.T) {
	store := NewInMemory()
	svc := NewService(store, nil)

	b, err := svc.Award(context.Background(), "u1", snapshot(), points.ActionAdd, 1000, SourceDiscord)
	if err != nil {
		t.Fatalf("award: %v", err)
	}
	if b.Final != 165.00 {
		t.Fatalf("unexpected final: %v", b.Final)
	}

	rows, err := store.Contributions(context.Background(), "u1", FilterAll, []string{"guild-1"}, 10, 0)
	if err != nil {
		t.Fatalf("contributions: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one entry, got %d", len(rows))
	}
	e := rows[0]
	if e.ID == "" || e.FinalPoints != 165.00 || e.Action != points.ActionAdd || e.QuantityChanged != 1000 {
		t.Fatalf("unexpected entry: %+v", e)
	}
}

func TestAwardSkipsZeroPoints(t *testing.T) {
	store := NewInMemory()
	svc := NewService(store, nil)

	b, err := svc.Award(context.Background(), "u1", snapshot(), points.ActionRemove, 500, SourceDiscord)
	if err != nil {
		t.Fatalf("award: %v", err)
	}
	if b.Final != 0 {
		t.Fatalf("REMOVE should earn nothing, got %v", b.Final)
	}
	rows, _ := store.Contributions(context.Background(), "u1", FilterAll, []string{"guild-1"}, 10, 0)
	if len(rows) != 0 {
		t.Fatalf("zero-point awards must not be persisted, got %d rows", len(rows))
	}
}

func TestAwardRejectsUnknownAction(t *testing.T) {
	svc := NewService(NewInMemory(), nil)
	if _, err := svc.Award(context.Background(), "u1", snapshot(), points.Action("DROP"), 1, SourceDiscord); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("expected ErrInvalidAction, got %v", err)
	}
}

func TestAwardWebsiteBonus(t *testing.T) {
	store := NewInMemory()
	svc := NewService(store, stubBonus{pct: 10})

	b, err := svc.Award(context.Background(), "u1", snapshot(), points.ActionAdd, 1000, SourceWebsite)
	if err != nil {
		t.Fatalf("award: %v", err)
	}
	// 165 * 1.10 = 181.50
	if b.Final != 181.50 {
		t.Fatalf("website bonus not applied: %v", b.Final)
	}
}

func TestAwardWebsiteBonusOnlyForWebsiteAdds(t *testing.T) {
	svc := NewService(NewInMemory(), stubBonus{pct: 10})

	b, _ := svc.Award(context.Background(), "u1", snapshot(), points.ActionAdd, 1000, SourceDiscord)
	if b.Final != 165.00 {
		t.Fatalf("discord award must not get website bonus: %v", b.Final)
	}
	b, _ = svc.Award(context.Background(), "u1", snapshot(), points.ActionSet, 1000, SourceWebsite)
	if b.Final != 1 {
		t.Fatalf("SET must not get website bonus: %v", b.Final)
	}
}

func TestAwardWebsiteBonusLookupFailureKeepsValue(t *testing.T) {
	svc := NewService(NewInMemory(), stubBonus{err: errors.New("config down")})

	b, err := svc.Award(context.Background(), "u1", snapshot(), points.ActionAdd, 1000, SourceWebsite)
	if err != nil {
		t.Fatalf("award: %v", err)
	}
	if b.Final != 165.00 {
		t.Fatalf("lookup failure should keep the unmodified value: %v", b.Final)
	}
}

func TestAwardAppendFailureStillReturnsBreakdown(t *testing.T) {
	svc := NewService(failingStore{}, nil)

	b, err := svc.Award(context.Background(), "u1", snapshot(), points.ActionAdd, 1000, SourceDiscord)
	if err != nil {
		t.Fatalf("append failure must not surface: %v", err)
	}
	if b.Final != 165.00 {
		t.Fatalf("unexpected final: %v", b.Final)
	}
}

func seedBoard(t *testing.T) *InMemory {
	t.Helper()
	store := NewInMemory()
	store.SetDisplayName("u1", "Paul")
	store.SetDisplayName("u2", "Chani")
	svc := NewService(store, nil)
	award := func(user, guild string, delta int64) {
		snap := snapshot()
		snap.GuildID = guild
		if _, err := svc.Award(context.Background(), user, snap, points.ActionAdd, delta, SourceDiscord); err != nil {
			t.Fatalf("seed award: %v", err)
		}
	}
	award("u1", "guild-1", 1000) // 165
	award("u1", "guild-1", 2000) // 330
	award("u2", "guild-1", 4000) // 660
	award("u3", "guild-2", 9000) // other tenant
	return store
}

func TestLeaderboard(t *testing.T) {
	svc := NewService(seedBoard(t), nil)

	board, err := svc.Leaderboard(context.Background(), FilterAll, 10, 0, []string{"guild-1"})
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	rows := board.Rankings
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if board.Total != 2 {
		t.Fatalf("expected 2 distinct contributors, got %d", board.Total)
	}
	if rows[0].UserID != "u2" || rows[0].Rank != 1 || rows[0].TotalPoints != 660 {
		t.Fatalf("unexpected first row: %+v", rows[0])
	}
	if rows[1].UserID != "u1" || rows[1].Rank != 2 || rows[1].TotalPoints != 495 || rows[1].EntryCount != 2 {
		t.Fatalf("unexpected second row: %+v", rows[1])
	}
	if rows[0].DisplayName != "Chani" {
		t.Fatalf("display name missing: %+v", rows[0])
	}
}

func TestLeaderboardPagination(t *testing.T) {
	svc := NewService(seedBoard(t), nil)

	board, err := svc.Leaderboard(context.Background(), FilterAll, 1, 1, []string{"guild-1"})
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	rows := board.Rankings
	if len(rows) != 1 || rows[0].UserID != "u1" || rows[0].Rank != 2 {
		t.Fatalf("unexpected page: %+v", rows)
	}
	// The total spans the whole window, not the returned page.
	if board.Total != 2 {
		t.Fatalf("expected total 2 on a one-row page, got %d", board.Total)
	}
}

func TestLeaderboardEmptyGuildSet(t *testing.T) {
	svc := NewService(seedBoard(t), nil)

	for _, guilds := range [][]string{nil, {}} {
		board, err := svc.Leaderboard(context.Background(), FilterAll, 10, 0, guilds)
		if err != nil {
			t.Fatalf("leaderboard: %v", err)
		}
		if len(board.Rankings) != 0 || board.Total != 0 {
			t.Fatalf("empty guild set must yield an empty board, got %+v", board)
		}
	}
}

func TestLeaderboardInvalidFilter(t *testing.T) {
	svc := NewService(NewInMemory(), nil)
	if _, err := svc.Leaderboard(context.Background(), TimeFilter("1y"), 10, 0, []string{"g"}); !errors.Is(err, ErrInvalidFilter) {
		t.Fatalf("expected ErrInvalidFilter, got %v", err)
	}
}

func TestUserContributions(t *testing.T) {
	svc := NewService(seedBoard(t), nil)

	report, err := svc.UserContributions(context.Background(), "u1", FilterAll, 10, 0, []string{"guild-1"})
	if err != nil {
		t.Fatalf("contributions: %v", err)
	}
	if len(report.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(report.Entries))
	}
	if report.Summary.TotalPoints != 495 || report.Summary.EntryCount != 2 {
		t.Fatalf("unexpected summary: %+v", report.Summary)
	}
	if report.DisplayName != "Paul" {
		t.Fatalf("unexpected display name: %q", report.DisplayName)
	}
}

func TestUserContributionsEmptyGuildSet(t *testing.T) {
	svc := NewService(seedBoard(t), nil)

	report, err := svc.UserContributions(context.Background(), "u1", FilterAll, 10, 0, nil)
	if err != nil {
		t.Fatalf("contributions: %v", err)
	}
	if len(report.Entries) != 0 || report.Summary.EntryCount != 0 {
		t.Fatalf("empty guild set must yield an empty report, got %+v", report)
	}
}

func TestUserRank(t *testing.T) {
	svc := NewService(seedBoard(t), nil)

	rank, err := svc.UserRank(context.Background(), "u1", FilterAll, []string{"guild-1"})
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if rank != 2 {
		t.Fatalf("expected rank 2, got %d", rank)
	}

	rank, err = svc.UserRank(context.Background(), "u3", FilterAll, []string{"guild-1"})
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if rank != 0 {
		t.Fatalf("user outside tenant must be unranked, got %d", rank)
	}

	rank, err = svc.UserRank(context.Background(), "u1", FilterAll, nil)
	if err != nil || rank != 0 {
		t.Fatalf("empty guild set must be unranked, got %d (%v)", rank, err)
	}
}

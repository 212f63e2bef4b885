package ledger

import (
	"context"
	"time"

	"guildstock.gg/internal/obs"
	"guildstock.gg/internal/points"
)

const rankScanLimit = 1000

var nowUTC = func() time.Time { return time.Now().UTC() }

// BonusSource reports the per-server website bonus percentage.
type BonusSource interface {
	WebsiteBonusPercent(ctx context.Context, serverID string) (int, error)
}

// Service scores resource mutations and serves tenant-scoped reads.
type Service struct {
	store Store
	bonus BonusSource
}

func NewService(store Store, bonus BonusSource) *Service {
	return &Service{store: store, bonus: bonus}
}

// Award scores a mutation and appends it to the ledger when it earned
// anything. Persistence is best effort: the caller gets the breakdown
// even if the append fails, so a storage outage never blocks the
// mutation that triggered scoring.
func (s *Service) Award(ctx context.Context, userID string, snap ResourceSnapshot, action points.Action, delta int64, source Source) (points.Breakdown, error) {
	if !action.Valid() {
		return points.Breakdown{}, ErrInvalidAction
	}

	b := points.Calculate(action, delta, snap.Multiplier, snap.Status, snap.Category)

	// Website submissions can carry an extra per-server bonus. A failed
	// lookup keeps the unmodified value rather than blocking the award.
	if source == SourceWebsite && action == points.ActionAdd && b.Final > 0 && s.bonus != nil {
		pct, err := s.bonus.WebsiteBonusPercent(ctx, snap.ServerID)
		switch {
		case err != nil:
			obs.Warn("website bonus lookup failed", map[string]any{
				"server_id": snap.ServerID,
				"error":     err.Error(),
			})
		case pct > 0:
			b.Final = points.Round2(b.Final * (1 + float64(pct)/100))
		}
	}

	if b.Final <= 0 {
		return b, nil
	}

	e := Entry{
		ID:                 newID(),
		GuildID:            snap.GuildID,
		UserID:             userID,
		ResourceID:         snap.ID,
		Action:             action,
		QuantityChanged:    delta,
		BasePoints:         b.Base,
		ResourceMultiplier: b.Multiplier,
		StatusBonus:        b.StatusBonus,
		FinalPoints:        b.Final,
		ResourceName:       snap.Name,
		ResourceCategory:   snap.Category,
		ResourceStatus:     snap.Status,
		CreatedAt:          nowUTC(),
	}
	if err := s.store.Append(ctx, e); err != nil {
		obs.LedgerAppendFailures.Inc()
		obs.Error("ledger append failed", map[string]any{
			"user_id":     userID,
			"resource_id": snap.ID,
			"error":       err.Error(),
		})
		return b, nil
	}
	obs.PointsAwardedTotal.WithLabelValues(string(action), string(source)).Inc()
	return b, nil
}

// Leaderboard aggregates points per user across the caller's guilds.
// An empty guild set yields an empty board, never an unfiltered one.
// Total counts distinct contributors across the whole window, not just
// the returned page.
func (s *Service) Leaderboard(ctx context.Context, filter TimeFilter, limit, offset int, guildIDs []string) (Board, error) {
	board := Board{Rankings: []Ranking{}}
	if !filter.Valid() {
		return board, ErrInvalidFilter
	}
	if len(guildIDs) == 0 {
		return board, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.store.Rankings(ctx, filter, guildIDs, limit, offset)
	if err != nil {
		return board, err
	}
	for i := range rows {
		rows[i].Rank = offset + i + 1
	}
	if rows != nil {
		board.Rankings = rows
	}
	board.Total, err = s.store.ContributorCount(ctx, filter, guildIDs)
	if err != nil {
		return Board{Rankings: []Ranking{}}, err
	}
	return board, nil
}

// UserContributions lists a user's scored entries within the caller's
// guilds, newest first, with totals and the user's display name.
func (s *Service) UserContributions(ctx context.Context, userID string, filter TimeFilter, limit, offset int, guildIDs []string) (ContributionReport, error) {
	report := ContributionReport{UserID: userID, Entries: []Entry{}}
	if !filter.Valid() {
		return report, ErrInvalidFilter
	}
	if len(guildIDs) == 0 {
		return report, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	if offset < 0 {
		offset = 0
	}

	entries, err := s.store.Contributions(ctx, userID, filter, guildIDs, limit, offset)
	if err != nil {
		return report, err
	}
	report.Entries = entries

	report.Summary, err = s.store.ContributionSummary(ctx, userID, filter, guildIDs)
	if err != nil {
		return report, err
	}

	name, err := s.store.DisplayName(ctx, userID)
	if err == nil {
		report.DisplayName = name
	}
	return report, nil
}

// UserRank finds the user's position within the top rankScanLimit rows.
// Zero means unranked.
func (s *Service) UserRank(ctx context.Context, userID string, filter TimeFilter, guildIDs []string) (int, error) {
	if !filter.Valid() {
		return 0, ErrInvalidFilter
	}
	if len(guildIDs) == 0 {
		return 0, nil
	}
	rows, err := s.store.Rankings(ctx, filter, guildIDs, rankScanLimit, 0)
	if err != nil {
		return 0, err
	}
	for i, r := range rows {
		if r.UserID == userID {
			return i + 1, nil
		}
	}
	return 0, nil
}

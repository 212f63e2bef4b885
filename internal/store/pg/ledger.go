package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"guildstock.gg/internal/ledger"
)

func (s *Store) Append(ctx context.Context, e ledger.Entry) error {
	_, err := s.db.ExecContext(ctx, `
		insert into leaderboard(
			id, guild_id, user_id, resource_id, action_type, quantity_changed,
			base_points, resource_multiplier, status_bonus, final_points,
			resource_name, resource_category, resource_status, created_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`, e.ID, e.GuildID, e.UserID, e.ResourceID, string(e.Action), e.QuantityChanged,
		e.BasePoints, e.ResourceMultiplier, e.StatusBonus, e.FinalPoints,
		e.ResourceName, e.ResourceCategory, e.ResourceStatus, e.CreatedAt)
	return err
}

func (s *Store) Rankings(ctx context.Context, filter ledger.TimeFilter, guildIDs []string, limit, offset int) ([]ledger.Ranking, error) {
	if len(guildIDs) == 0 {
		return []ledger.Ranking{}, nil
	}

	query := `
		select l.user_id,
			coalesce(nullif(u.custom_nickname,''), nullif(u.name,''), l.user_id),
			sum(l.final_points), count(*)
		from leaderboard l
		left join users u on u.discord_id = l.user_id
		where l.guild_id in (` + placeholders(1, len(guildIDs)) + `)`
	args := appendIDs(nil, guildIDs)

	if cutoff, bounded := filter.Since(time.Now().UTC()); bounded {
		args = append(args, cutoff)
		query += ` and l.created_at >= $` + itoa(len(args))
	}
	query += `
		group by l.user_id, u.custom_nickname, u.name
		order by sum(l.final_points) desc, l.user_id asc`
	args = append(args, limit)
	query += ` limit $` + itoa(len(args))
	args = append(args, offset)
	query += ` offset $` + itoa(len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Ranking
	for rows.Next() {
		var r ledger.Ranking
		if err := rows.Scan(&r.UserID, &r.DisplayName, &r.TotalPoints, &r.EntryCount); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) ContributorCount(ctx context.Context, filter ledger.TimeFilter, guildIDs []string) (int64, error) {
	if len(guildIDs) == 0 {
		return 0, nil
	}

	query := `select count(distinct user_id)
		from leaderboard
		where guild_id in (` + placeholders(1, len(guildIDs)) + `)`
	args := appendIDs(nil, guildIDs)

	if cutoff, bounded := filter.Since(time.Now().UTC()); bounded {
		args = append(args, cutoff)
		query += ` and created_at >= $` + itoa(len(args))
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

const entryColumns = `
	id, guild_id, user_id, resource_id, action_type, quantity_changed,
	base_points, resource_multiplier, status_bonus, final_points,
	resource_name, resource_category, resource_status, created_at`

func (s *Store) Contributions(ctx context.Context, userID string, filter ledger.TimeFilter, guildIDs []string, limit, offset int) ([]ledger.Entry, error) {
	if len(guildIDs) == 0 {
		return []ledger.Entry{}, nil
	}

	query := `select ` + entryColumns + `
		from leaderboard
		where user_id=$1 and guild_id in (` + placeholders(2, len(guildIDs)) + `)`
	args := appendIDs([]any{userID}, guildIDs)

	if cutoff, bounded := filter.Since(time.Now().UTC()); bounded {
		args = append(args, cutoff)
		query += ` and created_at >= $` + itoa(len(args))
	}
	query += ` order by created_at desc`
	args = append(args, limit)
	query += ` limit $` + itoa(len(args))
	args = append(args, offset)
	query += ` offset $` + itoa(len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Entry
	for rows.Next() {
		var e ledger.Entry
		var action string
		if err := rows.Scan(
			&e.ID, &e.GuildID, &e.UserID, &e.ResourceID, &action, &e.QuantityChanged,
			&e.BasePoints, &e.ResourceMultiplier, &e.StatusBonus, &e.FinalPoints,
			&e.ResourceName, &e.ResourceCategory, &e.ResourceStatus, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		e.Action = actionFromString(action)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) ContributionSummary(ctx context.Context, userID string, filter ledger.TimeFilter, guildIDs []string) (ledger.Summary, error) {
	if len(guildIDs) == 0 {
		return ledger.Summary{}, nil
	}

	query := `select coalesce(sum(final_points),0), count(*)
		from leaderboard
		where user_id=$1 and guild_id in (` + placeholders(2, len(guildIDs)) + `)`
	args := appendIDs([]any{userID}, guildIDs)

	if cutoff, bounded := filter.Since(time.Now().UTC()); bounded {
		args = append(args, cutoff)
		query += ` and created_at >= $` + itoa(len(args))
	}

	var sum ledger.Summary
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&sum.TotalPoints, &sum.EntryCount); err != nil {
		return ledger.Summary{}, err
	}
	return sum, nil
}

func (s *Store) DisplayName(ctx context.Context, userID string) (string, error) {
	var name string
	err := s.db.QueryRowContext(ctx, `
		select coalesce(nullif(custom_nickname,''), nullif(name,''), discord_id)
		from users where discord_id=$1
	`, userID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ledger.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return name, nil
}

// WebsiteBonusPercent reads the per-server bonus configuration. A
// missing row means no bonus.
func (s *Store) WebsiteBonusPercent(ctx context.Context, serverID string) (int, error) {
	var pct int
	err := s.db.QueryRowContext(ctx, `
		select coalesce(website_bonus_percentage,0)
		from bot_configurations where guild_id=$1
	`, serverID).Scan(&pct)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return pct, nil
}

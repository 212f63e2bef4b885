package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"guildstock.gg/internal/guild"
)

const guildColumns = `
	id, discord_guild_id, guild_name,
	coalesce(member_role_id,''), coalesce(officer_role_id,''), coalesce(leader_role_id,''),
	coalesce(admin_role_ids,''),
	coalesce(order_bonus_percentage,0), coalesce(website_bonus_percentage,0),
	auto_update, notify_on_change, created_at, updated_at`

func (s *Store) Find(ctx context.Context, id string) (guild.Guild, error) {
	row := s.db.QueryRowContext(ctx, `select `+guildColumns+` from guilds where id=$1`, id)
	g, err := scanGuild(row)
	if errors.Is(err, sql.ErrNoRows) {
		return guild.Guild{}, guild.ErrNotFound
	}
	return g, err
}

func (s *Store) ListByServer(ctx context.Context, serverID string) ([]guild.Guild, error) {
	rows, err := s.db.QueryContext(ctx, `select `+guildColumns+` from guilds where discord_guild_id=$1 order by created_at`, serverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectGuilds(rows)
}

func (s *Store) ListAll(ctx context.Context) ([]guild.Guild, error) {
	rows, err := s.db.QueryContext(ctx, `select `+guildColumns+` from guilds order by created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectGuilds(rows)
}

func (s *Store) ServerIDsWithGuilds(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `select discord_guild_id from guilds group by discord_guild_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGuild(row rowScanner) (guild.Guild, error) {
	var g guild.Guild
	var adminRoles string
	err := row.Scan(
		&g.ID, &g.ServerID, &g.Title,
		&g.MemberRoleID, &g.OfficerRoleID, &g.LeaderRoleID,
		&adminRoles,
		&g.OrderBonusPercent, &g.WebsiteBonusPercent,
		&g.AutoUpdate, &g.NotifyOnChange, &g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		return guild.Guild{}, err
	}
	g.AdminRoleIDs = decodeRoleIDs(adminRoles)
	return g, nil
}

func collectGuilds(rows *sql.Rows) ([]guild.Guild, error) {
	var out []guild.Guild
	for rows.Next() {
		g, err := scanGuild(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// decodeRoleIDs parses a JSON-encoded role id array. Malformed or
// empty values degrade to no roles.
func decodeRoleIDs(raw string) []string {
	if raw == "" {
		return nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil
	}
	return ids
}

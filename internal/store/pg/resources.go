package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"guildstock.gg/internal/resource"
)

// ResourceStore is the resource-facing view of the store.
type ResourceStore struct {
	db *sql.DB
}

// Resources returns the resource store view.
func (s *Store) Resources() *ResourceStore { return &ResourceStore{db: s.db} }

func (s *ResourceStore) Find(ctx context.Context, id string) (resource.Resource, error) {
	var r resource.Resource
	err := s.db.QueryRowContext(ctx, `
		select id, coalesce(guild_id,''), name, coalesce(category,''),
			quantity, coalesce(target_quantity,0), coalesce(multiplier,1),
			coalesce(last_updated_by,''), created_at, updated_at
		from resources where id=$1
	`, id).Scan(
		&r.ID, &r.GuildID, &r.Name, &r.Category,
		&r.Quantity, &r.TargetQuantity, &r.Multiplier,
		&r.LastUpdatedBy, &r.CreatedAt, &r.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return resource.Resource{}, resource.ErrNotFound
	}
	if err != nil {
		return resource.Resource{}, err
	}
	return r, nil
}

func (s *ResourceStore) SetQuantity(ctx context.Context, id string, quantity int64, updatedBy string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		update resources set quantity=$2, last_updated_by=$3, updated_at=$4 where id=$1
	`, id, quantity, updatedBy, at)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return resource.ErrNotFound
	}
	return nil
}

func (s *ResourceStore) AppendHistory(ctx context.Context, h resource.History) error {
	_, err := s.db.ExecContext(ctx, `
		insert into resource_history(
			id, resource_id, guild_id, previous_quantity, new_quantity,
			change_amount, change_type, updated_by, reason, created_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,nullif($9,''),$10)
	`, h.ID, h.ResourceID, h.GuildID, h.PreviousQuantity, h.NewQuantity,
		h.ChangeAmount, string(h.ChangeType), h.UpdatedBy, h.Reason, h.CreatedAt)
	return err
}

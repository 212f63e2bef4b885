package resource

import (
	"context"
	"time"

	"guildstock.gg/internal/audit"
	"guildstock.gg/internal/guild"
	"guildstock.gg/internal/ids"
	"guildstock.gg/internal/ledger"
	"guildstock.gg/internal/obs"
	"guildstock.gg/internal/points"
)

// Scorer awards points for a scored mutation.
type Scorer interface {
	Award(ctx context.Context, userID string, snap ledger.ResourceSnapshot, action points.Action, delta int64, source ledger.Source) (points.Breakdown, error)
}

// UpdateRequest describes one quantity mutation.
type UpdateRequest struct {
	Mode     UpdateMode `json:"update_type"`
	Quantity int64      `json:"quantity"`
	Value    int64      `json:"value"`
	Reason   string     `json:"reason,omitempty"`
}

// UpdateResult is the mutated resource plus the scoring outcome.
type UpdateResult struct {
	Resource     Resource          `json:"resource"`
	PointsEarned float64           `json:"points_earned"`
	Breakdown    *points.Breakdown `json:"points_calculation,omitempty"`
}

// Service is the mutation boundary for resource quantities. Guild
// access is checked by the caller; the service owns the write order
// and the scoring hand-off.
type Service struct {
	store  Store
	guilds guild.Store
	scorer Scorer
	now    func() time.Time
}

func NewService(store Store, guilds guild.Store, scorer Scorer) *Service {
	return &Service{
		store:  store,
		guilds: guilds,
		scorer: scorer,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Find returns one resource by id.
func (s *Service) Find(ctx context.Context, id string) (Resource, error) {
	return s.store.Find(ctx, id)
}

// UpdateQuantity applies a quantity change and scores it. The quantity
// and history rows are written first; scoring runs after and its
// failure modes never roll the mutation back. The status used for
// scoring reflects the quantity before the change.
func (s *Service) UpdateQuantity(ctx context.Context, id, actorID string, req UpdateRequest, source ledger.Source) (UpdateResult, error) {
	if !req.Mode.Valid() {
		return UpdateResult{}, ErrInvalidMode
	}

	res, err := s.store.Find(ctx, id)
	if err != nil {
		return UpdateResult{}, err
	}

	previous := res.Quantity
	var newQuantity, change int64
	switch req.Mode {
	case ModeAbsolute:
		newQuantity = req.Quantity
		change = newQuantity - previous
	case ModeRelative:
		change = req.Value
		newQuantity = previous + change
	}

	now := s.now()
	if err := s.store.SetQuantity(ctx, id, newQuantity, actorID, now); err != nil {
		return UpdateResult{}, err
	}
	if err := s.store.AppendHistory(ctx, History{
		ID:               ids.New(),
		ResourceID:       id,
		GuildID:          res.GuildID,
		PreviousQuantity: previous,
		NewQuantity:      newQuantity,
		ChangeAmount:     change,
		ChangeType:       req.Mode,
		UpdatedBy:        actorID,
		Reason:           req.Reason,
		CreatedAt:        now,
	}); err != nil {
		return UpdateResult{}, err
	}

	res.Quantity = newQuantity
	res.LastUpdatedBy = actorID
	res.UpdatedAt = now
	result := UpdateResult{Resource: res}

	if change != 0 {
		action := points.ActionSet
		if req.Mode == ModeRelative {
			action = points.ActionAdd
			if change < 0 {
				action = points.ActionRemove
			}
		}
		status := points.StatusFor(previous, res.TargetQuantity)
		snap := ledger.ResourceSnapshot{
			ID:         res.ID,
			GuildID:    res.GuildID,
			ServerID:   s.serverID(ctx, res.GuildID),
			Name:       res.Name,
			Category:   category(res.Category),
			Status:     status,
			Multiplier: multiplier(res.Multiplier),
		}
		delta := change
		if delta < 0 {
			delta = -delta
		}
		b, err := s.scorer.Award(ctx, actorID, snap, action, delta, source)
		if err != nil {
			obs.Error("award failed", map[string]any{
				"resource_id": id,
				"user_id":     actorID,
				"error":       err.Error(),
			})
		} else {
			result.PointsEarned = b.Final
			result.Breakdown = &b
		}
	}

	_ = audit.LogEvent(ctx, "resource.quantity_updated", map[string]any{
		"resource_id":       id,
		"guild_id":          res.GuildID,
		"previous_quantity": previous,
		"new_quantity":      newQuantity,
		"change_type":       string(req.Mode),
	})
	return result, nil
}

// serverID looks up the owning server for bonus configuration. A
// failed lookup only disables the website bonus.
func (s *Service) serverID(ctx context.Context, guildID string) string {
	if s.guilds == nil || guildID == "" {
		return ""
	}
	g, err := s.guilds.Find(ctx, guildID)
	if err != nil {
		obs.Warn("guild lookup for scoring failed", map[string]any{
			"guild_id": guildID,
			"error":    err.Error(),
		})
		return ""
	}
	return g.ServerID
}

func category(c string) string {
	if c == "" {
		return "Other"
	}
	return c
}

func multiplier(m float64) float64 {
	if m == 0 {
		return 1.0
	}
	return m
}

package resource

import (
	"context"
	"errors"
	"time"
)

// UpdateMode selects how a quantity request is interpreted.
type UpdateMode string

const (
	// ModeAbsolute sets the quantity to the requested value.
	ModeAbsolute UpdateMode = "absolute"
	// ModeRelative shifts the quantity by the requested delta.
	ModeRelative UpdateMode = "relative"
)

func (m UpdateMode) Valid() bool {
	return m == ModeAbsolute || m == ModeRelative
}

// Resource is a tracked stockpile item owned by exactly one guild.
type Resource struct {
	ID             string    `json:"id"`
	GuildID        string    `json:"guild_id"`
	Name           string    `json:"name"`
	Category       string    `json:"category"`
	Quantity       int64     `json:"quantity"`
	TargetQuantity int64     `json:"target_quantity"`
	Multiplier     float64   `json:"multiplier"`
	LastUpdatedBy  string    `json:"last_updated_by,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// History is one immutable quantity-change record.
type History struct {
	ID               string     `json:"id"`
	ResourceID       string     `json:"resource_id"`
	GuildID          string     `json:"guild_id"`
	PreviousQuantity int64      `json:"previous_quantity"`
	NewQuantity      int64      `json:"new_quantity"`
	ChangeAmount     int64      `json:"change_amount"`
	ChangeType       UpdateMode `json:"change_type"`
	UpdatedBy        string     `json:"updated_by"`
	Reason           string     `json:"reason,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

var (
	ErrNotFound    = errors.New("resource: not found")
	ErrInvalidMode = errors.New("resource: invalid update mode")
)

// Store is the persistence boundary for resources and their history.
type Store interface {
	Find(ctx context.Context, id string) (Resource, error)
	SetQuantity(ctx context.Context, id string, quantity int64, updatedBy string, at time.Time) error
	AppendHistory(ctx context.Context, h History) error
}

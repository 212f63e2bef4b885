// Package points scores resource-quantity actions. Calculation is a pure
// function over the action kind and the resource attributes captured at the
// moment of the triggering update.
package points

import "math"

// Action is the kind of quantity change being scored.
type Action string

const (
	ActionAdd    Action = "ADD"
	ActionSet    Action = "SET"
	ActionRemove Action = "REMOVE"
)

// Valid reports whether the action is one of the three known kinds.
func (a Action) Valid() bool {
	switch a {
	case ActionAdd, ActionSet, ActionRemove:
		return true
	}
	return false
}

// Resource stock statuses, derived from quantity vs target.
const (
	StatusCritical    = "critical"
	StatusBelowTarget = "below_target"
	StatusAtTarget    = "at_target"
	StatusAboveTarget = "above_target"
)

const (
	basePointsPer1000 = 100.0
	setActionPoints   = 1.0
	refinedFlatPoints = 2.0

	// Refined goods score a flat amount regardless of quantity or status.
	refinedCategory = "Refined"
)

var statusBonuses = map[string]float64{
	StatusCritical:    0.10,
	StatusBelowTarget: 0.05,
}

// Breakdown is the result of scoring one action.
type Breakdown struct {
	Base        float64 `json:"base_points"`
	Multiplier  float64 `json:"resource_multiplier"`
	StatusBonus float64 `json:"status_bonus"`
	Final       float64 `json:"final_points"`
}

// Calculate scores an action. Rules are evaluated in order and the first
// match wins:
//
//  1. REMOVE actions and zero-multiplier resources earn nothing.
//  2. The Refined category earns a flat 2 points for ADD and SET.
//  3. SET earns a flat 1 point regardless of magnitude.
//  4. ADD earns quantity-proportional points, scaled by the resource
//     multiplier and the stock-status bonus.
func Calculate(action Action, quantityDelta int64, multiplier float64, status, category string) Breakdown {
	if action == ActionRemove || multiplier == 0 {
		return Breakdown{Multiplier: multiplier}
	}

	if category == refinedCategory {
		return Breakdown{
			Base:       refinedFlatPoints,
			Multiplier: 1.0,
			Final:      refinedFlatPoints,
		}
	}

	if action == ActionSet {
		return Breakdown{
			Base:       setActionPoints,
			Multiplier: 1.0,
			Final:      setActionPoints,
		}
	}

	base := float64(quantityDelta) / 1000 * basePointsPer1000
	multiplied := base * multiplier
	bonus := statusBonuses[status]
	final := multiplied * (1 + bonus)

	return Breakdown{
		Base:        base,
		Multiplier:  multiplier,
		StatusBonus: bonus,
		Final:       Round2(final),
	}
}

// Round2 rounds to two decimal places, matching how final points are stored.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// StatusFor derives the stock status from a quantity and its target. A
// missing or non-positive target reads as at-target.
func StatusFor(quantity int64, target int64) string {
	if target <= 0 {
		return StatusAtTarget
	}
	pct := float64(quantity) / float64(target) * 100
	switch {
	case pct >= 150:
		return StatusAboveTarget
	case pct >= 100:
		return StatusAtTarget
	case pct >= 50:
		return StatusBelowTarget
	default:
		return StatusCritical
	}
}

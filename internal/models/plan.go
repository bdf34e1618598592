package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Plan status values. Transitions are triggered by planners, never automatically.
const (
	PlanStatusOpen   = "OPEN"
	PlanStatusClosed = "CLOSED"
)

// DefaultShiftRate is the units-per-shift assumed when an item carries no rate
var DefaultShiftRate = decimal.NewFromInt(50)

// ProductionPlan is a named set of plan items
type ProductionPlan struct {
	ID        int        `json:"id"`
	Name      string     `json:"name"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	Items     []PlanItem `json:"items"`
}

// PlanItem is one line of a plan: a target quantity of a semi-finished good
type PlanItem struct {
	ID          int             `json:"id"`
	PlanID      int             `json:"plan_id"`
	SemiID      int             `json:"semi_id"`
	SemiCode    string          `json:"semi_code,omitempty"` // joined field
	SemiName    string          `json:"semi_name,omitempty"` // joined field
	RequiredQty decimal.Decimal `json:"required_qty"`
	ProducedQty decimal.Decimal `json:"produced_qty"`
	ShiftRate   decimal.Decimal `json:"shift_rate"`
	StartDate   *time.Time      `json:"start_date"`
	SortOrder   int             `json:"sort_order"`
	SplitFromID *int            `json:"split_from_id,omitempty"`
}

// IsComplete reports whether production has reached the required quantity
func (i PlanItem) IsComplete() bool {
	return i.ProducedQty.GreaterThanOrEqual(i.RequiredQty)
}

// PlanItemInput is one submitted line of a create/update request. ID is zero
// for new lines.
type PlanItemInput struct {
	ID          int              `json:"id,omitempty"`
	SemiID      int              `json:"semi_id"`
	RequiredQty decimal.Decimal  `json:"required_qty"`
	ShiftRate   *decimal.Decimal `json:"shift_rate,omitempty"`
	StartDate   string           `json:"start_date,omitempty"`
}

// CreatePlanRequest represents the request to create a plan
type CreatePlanRequest struct {
	Name  string          `json:"name"`
	Items []PlanItemInput `json:"items"`
}

// UpdatePlanRequest replaces a plan's item set. A nil Name keeps the stored name.
type UpdatePlanRequest struct {
	Name  *string         `json:"name,omitempty"`
	Items []PlanItemInput `json:"items"`
}

// UpdatePlanStatusRequest represents an external OPEN/CLOSED transition
type UpdatePlanStatusRequest struct {
	Status string `json:"status"`
}

// PlanResult is returned by create/update: the stored plan plus the shortage
// projection computed in the same transaction.
type PlanResult struct {
	Plan      *ProductionPlan    `json:"plan"`
	Shortages []MaterialShortage `json:"shortages"`
}

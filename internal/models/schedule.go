package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ScheduledTask is the derived timeline view of a plan item. It is computed on
// demand and never stored.
type ScheduledTask struct {
	PlanItemID       int             `json:"plan_item_id"`
	SemiID           int             `json:"semi_id"`
	SemiName         string          `json:"semi_name,omitempty"`
	StartDate        *time.Time      `json:"start_date"`
	DurationDays     float64         `json:"duration_days"`
	ProgressFraction float64         `json:"progress_fraction"`
	IsActiveToday    bool            `json:"is_active_today"`
	IsSplitRemainder bool            `json:"is_split_remainder"`
	RequiredQty      decimal.Decimal `json:"required_qty"`
	ProducedQty      decimal.Decimal `json:"produced_qty"`
	SortOrder        int             `json:"sort_order"`
}

// ScheduleLane is a row of the timeline grid, usually one production line.
// Day indices are counted from OriginDate.
type ScheduleLane struct {
	ID         int         `json:"id"`
	PlanID     int         `json:"plan_id"`
	Name       string      `json:"name"`
	OriginDate time.Time   `json:"origin_date"`
	Cells      []LaneCell  `json:"cells"`
	Blocks     []LaneBlock `json:"blocks"`
}

// LaneCell is one occupied day of a lane
type LaneCell struct {
	LaneID     int    `json:"lane_id"`
	DayIndex   int    `json:"day_index"`
	PlanItemID *int   `json:"plan_item_id"`
	Value      string `json:"value"`
}

// LaneBlock is a locked, annotated day range [StartIndex, EndIndex] of a lane
type LaneBlock struct {
	ID         int    `json:"id"`
	LaneID     int    `json:"lane_id"`
	StartIndex int    `json:"start_index"`
	EndIndex   int    `json:"end_index"`
	Label      string `json:"label"`
}

// SplitTaskRequest divides an item into done and pending portions
type SplitTaskRequest struct {
	DoneQty    decimal.Decimal `json:"done_qty"`
	PendingQty decimal.Decimal `json:"pending_qty"`
}

// SplitTaskResult returns both halves of a split
type SplitTaskResult struct {
	Original  *PlanItem `json:"original"`
	Remainder *PlanItem `json:"remainder"`
}

// MergeTaskRequest folds an item into the item directly before it
type MergeTaskRequest struct {
	PreviousItemID int `json:"previous_item_id"`
}

// RescheduleTaskRequest moves a task bar. Either DeltaDays is set, or the
// visual OffsetPx/DayWidthPx pair the UI measured.
type RescheduleTaskRequest struct {
	DeltaDays  *int     `json:"delta_days,omitempty"`
	OffsetPx   *float64 `json:"offset_px,omitempty"`
	DayWidthPx *float64 `json:"day_width_px,omitempty"`
}

// ReorderTaskRequest moves an item to a new display position within its plan
type ReorderTaskRequest struct {
	Position int `json:"position"`
}

// CreateLaneRequest represents the request to add a lane to a plan
type CreateLaneRequest struct {
	Name       string `json:"name"`
	OriginDate string `json:"origin_date"`
}

// PlaceTaskRequest appends a plan item to a lane. A nil DayIndex asks for
// cascading auto-placement after the lane's last occupied day.
type PlaceTaskRequest struct {
	PlanItemID int  `json:"plan_item_id"`
	DayIndex   *int `json:"day_index,omitempty"`
}

// LockRangeRequest annotates and locks a day range of a lane
type LockRangeRequest struct {
	StartIndex int    `json:"start_index"`
	EndIndex   int    `json:"end_index"`
	Label      string `json:"label"`
}

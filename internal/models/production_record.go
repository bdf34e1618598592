package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductionRecord is an immutable operator report. PlanItemID becomes nil when
// the item it was booked against is deleted; the quantities are kept.
type ProductionRecord struct {
	ID          int             `json:"id"`
	PlanItemID  *int            `json:"plan_item_id"`
	SemiID      int             `json:"semi_id"`
	OperatorID  int             `json:"operator_id"`
	OKQty       decimal.Decimal `json:"ok_qty"`
	ScrapQty    decimal.Decimal `json:"scrap_qty"`
	ScrapReason string          `json:"scrap_reason,omitempty"`
	Shift       string          `json:"shift"`
	ProducedOn  time.Time       `json:"produced_on"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Operator is a shop-floor worker production can be booked to
type Operator struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// RecordProductionRequest represents an operator's production report
type RecordProductionRequest struct {
	SemiID      int             `json:"semi_id"`
	OKQty       decimal.Decimal `json:"ok_qty"`
	ScrapQty    decimal.Decimal `json:"scrap_qty"`
	ScrapReason string          `json:"scrap_reason,omitempty"`
	OperatorID  int             `json:"operator_id"`
	Shift       string          `json:"shift"`
	Date        string          `json:"date,omitempty"`
}

// RecordProductionResult carries the item's new cumulative produced quantity
type RecordProductionResult struct {
	Record      *ProductionRecord `json:"record"`
	PlanItemID  int               `json:"plan_item_id"`
	ProducedQty decimal.Decimal   `json:"produced_qty"`
}

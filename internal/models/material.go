package models

import "github.com/shopspring/decimal"

// SemiFinishedGood is an intermediate item produced by plan items
type SemiFinishedGood struct {
	ID    int             `json:"id"`
	Code  string          `json:"code"`
	Name  string          `json:"name"`
	Stock []LocationStock `json:"stock,omitempty"`
}

// LocationStock is the on-hand quantity of a good at one storage location
type LocationStock struct {
	Location string          `json:"location"`
	Qty      decimal.Decimal `json:"qty"`
}

// RawMaterial is a purchased input consumed by semi-finished goods
type RawMaterial struct {
	ID           int             `json:"id"`
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	CurrentStock decimal.Decimal `json:"current_stock"`
	MinimumStock decimal.Decimal `json:"minimum_stock"`
}

// SemiToMaterialEdge is one line of a semi-finished good's recipe
type SemiToMaterialEdge struct {
	SemiID     int             `json:"semi_id"`
	MaterialID int             `json:"material_id"`
	QtyPerUnit decimal.Decimal `json:"qty_per_unit"`
}

// ProductToSemiEdge is one line of a finished product's recipe. Dispatch uses
// it; the planning core never explodes through this tier.
type ProductToSemiEdge struct {
	ProductID  int             `json:"product_id"`
	SemiID     int             `json:"semi_id"`
	QtyPerUnit decimal.Decimal `json:"qty_per_unit"`
}

// MaterialShortage is a raw material whose projected balance falls below its
// minimum stock once the plan's demand is subtracted
type MaterialShortage struct {
	MaterialID       int             `json:"material_id"`
	Code             string          `json:"code"`
	Name             string          `json:"name"`
	CurrentStock     decimal.Decimal `json:"current_stock"`
	MinimumStock     decimal.Decimal `json:"minimum_stock"`
	Demand           decimal.Decimal `json:"demand"`
	ProjectedBalance decimal.Decimal `json:"projected_balance"`
}

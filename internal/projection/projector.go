// Package projection computes a plan's raw-material demand through the
// semi-finished -> raw-material recipe tier and reports the materials whose
// stock would fall below their minimum. It reads, never writes.
package projection

import (
	"context"
	"sort"

	"factory-backend/internal/apperrors"
	"factory-backend/internal/models"

	"github.com/shopspring/decimal"
)

// BOMSource is the read-only view of the engineering data the projector needs.
// Lookups of deleted records return an apperrors NotFound error.
type BOMSource interface {
	GetSemiFinishedGood(ctx context.Context, semiID int) (*models.SemiFinishedGood, error)
	GetSemiToMaterialRecipe(ctx context.Context, semiID int) ([]models.SemiToMaterialEdge, error)
	GetRawMaterial(ctx context.Context, materialID int) (*models.RawMaterial, error)
}

// Demand sums qtyPerUnit * requiredQty per material across all items. Items
// whose good no longer exists contribute nothing.
func Demand(ctx context.Context, items []models.PlanItem, src BOMSource) (map[int]decimal.Decimal, error) {
	demand := make(map[int]decimal.Decimal)
	recipes := make(map[int][]models.SemiToMaterialEdge)

	for _, item := range items {
		edges, seen := recipes[item.SemiID]
		if !seen {
			if _, err := src.GetSemiFinishedGood(ctx, item.SemiID); err != nil {
				if apperrors.IsNotFound(err) {
					recipes[item.SemiID] = nil
					continue
				}
				return nil, err
			}
			var err error
			edges, err = src.GetSemiToMaterialRecipe(ctx, item.SemiID)
			if err != nil && !apperrors.IsNotFound(err) {
				return nil, err
			}
			recipes[item.SemiID] = edges
		}
		for _, e := range edges {
			demand[e.MaterialID] = demand[e.MaterialID].Add(e.QtyPerUnit.Mul(item.RequiredQty))
		}
	}
	return demand, nil
}

// Project returns every material whose current stock minus the plan's demand
// drops below its minimum stock, sorted by material code. Materials that have
// been deleted are skipped.
func Project(ctx context.Context, items []models.PlanItem, src BOMSource) ([]models.MaterialShortage, error) {
	demand, err := Demand(ctx, items, src)
	if err != nil {
		return nil, err
	}

	shortages := make([]models.MaterialShortage, 0)
	for materialID, qty := range demand {
		if !qty.IsPositive() {
			continue
		}
		m, err := src.GetRawMaterial(ctx, materialID)
		if err != nil {
			if apperrors.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		balance := m.CurrentStock.Sub(qty)
		if balance.LessThan(m.MinimumStock) {
			shortages = append(shortages, models.MaterialShortage{
				MaterialID:       m.ID,
				Code:             m.Code,
				Name:             m.Name,
				CurrentStock:     m.CurrentStock,
				MinimumStock:     m.MinimumStock,
				Demand:           qty,
				ProjectedBalance: balance,
			})
		}
	}

	sort.Slice(shortages, func(i, j int) bool {
		if shortages[i].Code != shortages[j].Code {
			return shortages[i].Code < shortages[j].Code
		}
		return shortages[i].MaterialID < shortages[j].MaterialID
	})
	return shortages, nil
}

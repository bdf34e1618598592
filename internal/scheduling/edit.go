package scheduling

import (
	"math"
	"time"

	"factory-backend/internal/apperrors"
	"factory-backend/internal/models"

	"github.com/shopspring/decimal"
)

// DayDelta converts a horizontal drag of offsetPx on a timeline where one day
// is dayWidthPx wide into whole days, rounding to the nearest day.
func DayDelta(offsetPx, dayWidthPx float64) (int, error) {
	if dayWidthPx <= 0 || math.IsNaN(dayWidthPx) || math.IsInf(dayWidthPx, 0) {
		return 0, apperrors.Validationf("day width must be positive")
	}
	if math.IsNaN(offsetPx) || math.IsInf(offsetPx, 0) {
		return 0, apperrors.Validationf("offset must be a finite number")
	}
	return int(math.Round(offsetPx / dayWidthPx)), nil
}

// Shift moves a start date by delta days. An unscheduled item is anchored at today.
func Shift(start *time.Time, delta int, today time.Time) time.Time {
	base := today
	if start != nil {
		base = *start
	}
	return base.AddDate(0, 0, delta)
}

// Split divides item into the part already made (doneQty, kept on the original)
// and the part still pending (a new item starting one day later). The two
// required quantities always sum to the original's.
func Split(item models.PlanItem, doneQty, pendingQty decimal.Decimal) (models.PlanItem, models.PlanItem, error) {
	if doneQty.IsNegative() {
		return models.PlanItem{}, models.PlanItem{}, apperrors.Validationf("done quantity cannot be negative")
	}
	if !pendingQty.IsPositive() {
		return models.PlanItem{}, models.PlanItem{}, apperrors.Conflictf("pending quantity must be greater than zero")
	}
	if !doneQty.Add(pendingQty).Equal(item.RequiredQty) {
		return models.PlanItem{}, models.PlanItem{}, apperrors.Validationf(
			"done (%s) and pending (%s) must add up to the required quantity %s",
			doneQty, pendingQty, item.RequiredQty)
	}

	original := item
	original.RequiredQty = doneQty
	original.ProducedQty = decimal.Min(item.ProducedQty, doneQty)

	remainder := models.PlanItem{
		PlanID:      item.PlanID,
		SemiID:      item.SemiID,
		SemiCode:    item.SemiCode,
		SemiName:    item.SemiName,
		RequiredQty: pendingQty,
		ProducedQty: decimal.Zero,
		ShiftRate:   item.ShiftRate,
		SortOrder:   item.SortOrder + 1,
	}
	if item.StartDate != nil {
		next := item.StartDate.AddDate(0, 0, 1)
		remainder.StartDate = &next
	}
	if item.ID != 0 {
		id := item.ID
		remainder.SplitFromID = &id
	}
	return original, remainder, nil
}

// Merge folds item into previous. Both must reference the same good and sit
// next to each other in the plan's display order. Progress is carried over so
// no production is lost.
func Merge(planItems []models.PlanItem, item, previous models.PlanItem) (models.PlanItem, error) {
	if item.ID == previous.ID {
		return models.PlanItem{}, apperrors.Conflictf("an item cannot be merged into itself")
	}
	if item.PlanID != previous.PlanID {
		return models.PlanItem{}, apperrors.Conflictf("items belong to different plans")
	}
	if item.SemiID != previous.SemiID {
		return models.PlanItem{}, apperrors.Conflictf("items reference different semi-finished goods")
	}
	ordered := SortByDisplayOrder(planItems)
	adjacent := false
	for i := 1; i < len(ordered); i++ {
		if ordered[i].ID == item.ID && ordered[i-1].ID == previous.ID {
			adjacent = true
			break
		}
	}
	if !adjacent {
		return models.PlanItem{}, apperrors.Conflictf("item %d does not directly follow item %d", item.ID, previous.ID)
	}

	merged := previous
	merged.RequiredQty = previous.RequiredQty.Add(item.RequiredQty)
	merged.ProducedQty = previous.ProducedQty.Add(item.ProducedQty)
	return merged, nil
}

// Reorder moves itemID to position (0-based, clamped) and renumbers every
// item's SortOrder densely. Dates and quantities are untouched.
func Reorder(planItems []models.PlanItem, itemID, position int) ([]models.PlanItem, error) {
	ordered := SortByDisplayOrder(planItems)
	from := -1
	for i, it := range ordered {
		if it.ID == itemID {
			from = i
			break
		}
	}
	if from < 0 {
		return nil, apperrors.NotFoundf("plan item %d not found", itemID)
	}
	if position < 0 {
		position = 0
	}
	if position > len(ordered)-1 {
		position = len(ordered) - 1
	}

	moved := ordered[from]
	rest := append(ordered[:from:from], ordered[from+1:]...)
	result := make([]models.PlanItem, 0, len(ordered))
	result = append(result, rest[:position]...)
	result = append(result, moved)
	result = append(result, rest[position:]...)
	for i := range result {
		result[i].SortOrder = i
	}
	return result, nil
}

// Package scheduling holds the timeline math behind the production schedule:
// capacity-derived durations, the active-now flag, drag rounding, split/merge
// arithmetic, lane locks and cascading placement. Nothing here touches storage.
package scheduling

import (
	"sort"
	"time"

	"factory-backend/internal/models"

	"github.com/shopspring/decimal"
)

const (
	// ShiftsPerDay is the number of production shifts assumed per calendar day
	ShiftsPerDay = 2
	// MinDurationDays is the shortest bar the timeline renders
	MinDurationDays = 0.5
)

var (
	shiftsPerDay = decimal.NewFromInt(ShiftsPerDay)
	minDuration  = decimal.NewFromFloat(MinDurationDays)
	one          = decimal.NewFromInt(1)
)

// EffectiveRate returns the units-per-shift used for duration estimates. A
// missing or zero rate falls back to the default; anything below one unit per
// shift is floored to one.
func EffectiveRate(rate decimal.Decimal) decimal.Decimal {
	if rate.IsZero() {
		rate = models.DefaultShiftRate
	}
	if rate.LessThan(one) {
		return one
	}
	return rate
}

// DurationDays estimates how many days producing requiredQty takes at the given
// rate: requiredQty / rate shifts, two shifts a day, never less than half a day.
// It is a throughput estimate, not a reservation.
func DurationDays(requiredQty, shiftRate decimal.Decimal) float64 {
	shifts := requiredQty.Div(EffectiveRate(shiftRate))
	days := shifts.Div(shiftsPerDay)
	if days.LessThan(minDuration) {
		days = minDuration
	}
	return days.InexactFloat64()
}

// EndOf returns the exclusive end of a bar that starts at start
func EndOf(start time.Time, durationDays float64) time.Time {
	return start.Add(time.Duration(durationDays * float64(24*time.Hour)))
}

// IsActiveOn reports whether the item is unfinished and today falls inside
// [startDate, startDate+duration). Items without a start date are never active.
func IsActiveOn(item models.PlanItem, today time.Time) bool {
	if item.StartDate == nil || item.IsComplete() {
		return false
	}
	start := *item.StartDate
	if today.Before(start) {
		return false
	}
	return today.Before(EndOf(start, DurationDays(item.RequiredQty, item.ShiftRate)))
}

// Progress returns producedQty / requiredQty clamped to [0, 1]. An item with
// nothing required counts as done.
func Progress(item models.PlanItem) float64 {
	if !item.RequiredQty.IsPositive() {
		return 1
	}
	f := item.ProducedQty.Div(item.RequiredQty).InexactFloat64()
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// Task derives the timeline bar for one item
func Task(item models.PlanItem, today time.Time) models.ScheduledTask {
	return models.ScheduledTask{
		PlanItemID:       item.ID,
		SemiID:           item.SemiID,
		SemiName:         item.SemiName,
		StartDate:        item.StartDate,
		DurationDays:     DurationDays(item.RequiredQty, item.ShiftRate),
		ProgressFraction: Progress(item),
		IsActiveToday:    IsActiveOn(item, today),
		IsSplitRemainder: item.SplitFromID != nil,
		RequiredQty:      item.RequiredQty,
		ProducedQty:      item.ProducedQty,
		SortOrder:        item.SortOrder,
	}
}

// Schedule derives bars for every item, in display order
func Schedule(items []models.PlanItem, today time.Time) []models.ScheduledTask {
	ordered := SortByDisplayOrder(items)
	tasks := make([]models.ScheduledTask, 0, len(ordered))
	for _, item := range ordered {
		tasks = append(tasks, Task(item, today))
	}
	return tasks
}

// SortByDisplayOrder returns a copy of items ordered by SortOrder, then ID
func SortByDisplayOrder(items []models.PlanItem) []models.PlanItem {
	ordered := make([]models.PlanItem, len(items))
	copy(ordered, items)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].SortOrder != ordered[j].SortOrder {
			return ordered[i].SortOrder < ordered[j].SortOrder
		}
		return ordered[i].ID < ordered[j].ID
	})
	return ordered
}

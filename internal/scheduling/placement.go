package scheduling

import (
	"math"

	"factory-backend/internal/apperrors"
	"factory-backend/internal/models"
)

// SpanDays is the number of lane cells a bar of durationDays occupies
func SpanDays(durationDays float64) int {
	n := int(math.Ceil(durationDays))
	if n < 1 {
		return 1
	}
	return n
}

// LastOccupiedIndex scans a lane for the highest day that holds data or sits
// under a block, or -1 for an empty lane.
func LastOccupiedIndex(cells []models.LaneCell, blocks *BlockSet) int {
	last := -1
	for _, c := range cells {
		if c.Value != "" || c.PlanItemID != nil {
			if c.DayIndex > last {
				last = c.DayIndex
			}
		}
	}
	if blocks != nil {
		if b := blocks.LastIndex(); b > last {
			last = b
		}
	}
	return last
}

// NextFreeIndex is the cascading auto-placement rule: a new task goes right
// after the lane's last occupied day. It is greedy and row-local; earlier gaps
// are never back-filled and other lanes are never consulted.
func NextFreeIndex(cells []models.LaneCell, blocks *BlockSet) int {
	return LastOccupiedIndex(cells, blocks) + 1
}

// PlaceCells lays a task of span days out from start. Placing over a locked day
// is rejected; the caller must unlock first.
func PlaceCells(laneID, start, span int, itemID int, label string, blocks *BlockSet) ([]models.LaneCell, error) {
	if start < 0 {
		return nil, apperrors.Validationf("day index cannot be negative")
	}
	cells := make([]models.LaneCell, 0, span)
	for day := start; day < start+span; day++ {
		if blocks != nil {
			if b, locked := blocks.Covering(day); locked {
				return nil, apperrors.Conflictf("day %d is locked by %q", day, b.Label)
			}
		}
		id := itemID
		cells = append(cells, models.LaneCell{LaneID: laneID, DayIndex: day, PlanItemID: &id, Value: label})
	}
	return cells, nil
}

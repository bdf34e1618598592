package scheduling

import (
	"testing"

	"factory-backend/internal/apperrors"
	"factory-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cellsFor(itemID int, from, to int) []models.LaneCell {
	var cells []models.LaneCell
	for day := from; day <= to; day++ {
		id := itemID
		cells = append(cells, models.LaneCell{DayIndex: day, PlanItemID: &id, Value: "task"})
	}
	return cells
}

func TestNextFreeIndexAfterTaskAndBlock(t *testing.T) {
	cells := cellsFor(1, 0, 3)
	blocks := NewBlockSet([]models.LaneBlock{{ID: 1, StartIndex: 4, EndIndex: 5, Label: "maintenance"}})

	assert.Equal(t, 6, NextFreeIndex(cells, blocks))
}

func TestNextFreeIndexDoesNotBackfill(t *testing.T) {
	cells := append(cellsFor(1, 0, 1), cellsFor(2, 8, 9)...)
	assert.Equal(t, 10, NextFreeIndex(cells, NewBlockSet(nil)))
	assert.Equal(t, 0, NextFreeIndex(nil, NewBlockSet(nil)))
	assert.Equal(t, 0, NextFreeIndex([]models.LaneCell{{DayIndex: 3}}, nil), "empty cells are not occupied")
}

func TestSpanDays(t *testing.T) {
	assert.Equal(t, 1, SpanDays(0.5))
	assert.Equal(t, 2, SpanDays(1.5))
	assert.Equal(t, 4, SpanDays(4))
}

func TestPlaceCells(t *testing.T) {
	blocks := NewBlockSet([]models.LaneBlock{{StartIndex: 4, EndIndex: 5, Label: "holiday"}})

	cells, err := PlaceCells(7, 6, 3, 42, "S1", blocks)
	require.NoError(t, err)
	require.Len(t, cells, 3)
	assert.Equal(t, 6, cells[0].DayIndex)
	assert.Equal(t, 8, cells[2].DayIndex)
	assert.Equal(t, 42, *cells[1].PlanItemID)

	_, err = PlaceCells(7, 3, 2, 42, "S1", blocks)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
}

func TestBlockSetInsertEvictsIntersecting(t *testing.T) {
	s := NewBlockSet(nil)
	s.Insert(models.LaneBlock{ID: 1, StartIndex: 0, EndIndex: 2})
	s.Insert(models.LaneBlock{ID: 2, StartIndex: 5, EndIndex: 7})
	s.Insert(models.LaneBlock{ID: 3, StartIndex: 10, EndIndex: 12})

	evicted := s.Insert(models.LaneBlock{ID: 4, StartIndex: 2, EndIndex: 5})

	require.Len(t, evicted, 2)
	assert.Equal(t, 1, evicted[0].ID)
	assert.Equal(t, 2, evicted[1].ID)

	got := s.Blocks()
	require.Len(t, got, 2)
	assert.Equal(t, 4, got[0].ID)
	assert.Equal(t, 3, got[1].ID)
	for i := 1; i < len(got); i++ {
		assert.Less(t, got[i-1].EndIndex, got[i].StartIndex)
	}
}

func TestBlockSetCoveringAndRemove(t *testing.T) {
	s := NewBlockSet([]models.LaneBlock{
		{ID: 1, StartIndex: 10, EndIndex: 12},
		{ID: 2, StartIndex: 3, EndIndex: 4},
	})

	b, ok := s.Covering(11)
	require.True(t, ok)
	assert.Equal(t, 1, b.ID)
	_, ok = s.Covering(5)
	assert.False(t, ok)
	assert.Equal(t, 12, s.LastIndex())

	assert.True(t, s.Remove(1))
	assert.False(t, s.Remove(1))
	assert.Equal(t, 4, s.LastIndex())
	assert.Len(t, s.Intersecting(0, 3), 1)
}

func TestValidateRange(t *testing.T) {
	assert.NoError(t, ValidateRange(0, 0))
	assert.Error(t, ValidateRange(-1, 2))
	assert.Error(t, ValidateRange(5, 4))
}

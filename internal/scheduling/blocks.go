package scheduling

import (
	"sort"

	"factory-backend/internal/apperrors"
	"factory-backend/internal/models"
)

// BlockSet is the set of locked ranges on one lane, kept sorted by start and
// never overlapping. Ranges are inclusive on both ends.
type BlockSet struct {
	blocks []models.LaneBlock
}

// NewBlockSet builds a set from stored blocks. Later blocks win over earlier
// ones they intersect, the same as inserting them one by one.
func NewBlockSet(blocks []models.LaneBlock) *BlockSet {
	s := &BlockSet{}
	for _, b := range blocks {
		s.Insert(b)
	}
	return s
}

// ValidateRange checks an inclusive day range
func ValidateRange(start, end int) error {
	if start < 0 {
		return apperrors.Validationf("start index cannot be negative")
	}
	if end < start {
		return apperrors.Validationf("end index %d is before start index %d", end, start)
	}
	return nil
}

func overlaps(a, b models.LaneBlock) bool {
	return a.StartIndex <= b.EndIndex && b.StartIndex <= a.EndIndex
}

// Insert adds b and evicts every existing block that intersects it. Ranges are
// replaced, never merged. The evicted blocks are returned.
func (s *BlockSet) Insert(b models.LaneBlock) []models.LaneBlock {
	var evicted []models.LaneBlock
	kept := s.blocks[:0:0]
	for _, existing := range s.blocks {
		if overlaps(existing, b) {
			evicted = append(evicted, existing)
			continue
		}
		kept = append(kept, existing)
	}
	i := sort.Search(len(kept), func(i int) bool { return kept[i].StartIndex > b.StartIndex })
	kept = append(kept, models.LaneBlock{})
	copy(kept[i+1:], kept[i:])
	kept[i] = b
	s.blocks = kept
	return evicted
}

// Intersecting returns the blocks that a new range [start, end] would evict
func (s *BlockSet) Intersecting(start, end int) []models.LaneBlock {
	rng := models.LaneBlock{StartIndex: start, EndIndex: end}
	var out []models.LaneBlock
	for _, b := range s.blocks {
		if overlaps(b, rng) {
			out = append(out, b)
		}
	}
	return out
}

// Remove drops the block with the given id. Cells under it are not restored.
func (s *BlockSet) Remove(id int) bool {
	for i, b := range s.blocks {
		if b.ID == id {
			s.blocks = append(s.blocks[:i], s.blocks[i+1:]...)
			return true
		}
	}
	return false
}

// Covering returns the block containing day, if any
func (s *BlockSet) Covering(day int) (models.LaneBlock, bool) {
	i := sort.Search(len(s.blocks), func(i int) bool { return s.blocks[i].EndIndex >= day })
	if i < len(s.blocks) && s.blocks[i].StartIndex <= day {
		return s.blocks[i], true
	}
	return models.LaneBlock{}, false
}

// LastIndex returns the highest day covered by any block, or -1
func (s *BlockSet) LastIndex() int {
	if len(s.blocks) == 0 {
		return -1
	}
	return s.blocks[len(s.blocks)-1].EndIndex
}

// Blocks returns the ranges in ascending order
func (s *BlockSet) Blocks() []models.LaneBlock {
	out := make([]models.LaneBlock, len(s.blocks))
	copy(out, s.blocks)
	return out
}

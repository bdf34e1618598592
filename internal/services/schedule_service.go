package services

import (
	"context"
	"log"
	"strings"
	"time"

	"factory-backend/internal/apperrors"
	"factory-backend/internal/cache"
	"factory-backend/internal/models"
	"factory-backend/internal/realtime"
	"factory-backend/internal/repositories"
	"factory-backend/internal/scheduling"
	"factory-backend/internal/timeutil"
)

// ScheduleService renders plans as timelines and persists timeline edits back
// onto plan items and lanes
type ScheduleService struct {
	Store  repositories.Store
	Cache  *cache.Cache
	Events realtime.Publisher
	Today  func() time.Time
}

func NewScheduleService(store repositories.Store, c *cache.Cache, events realtime.Publisher) *ScheduleService {
	return &ScheduleService{
		Store:  store,
		Cache:  c,
		Events: events,
		Today:  timeutil.Today,
	}
}

// GetSchedule derives the task bars of a plan in display order
func (s *ScheduleService) GetSchedule(ctx context.Context, planID int) ([]models.ScheduledTask, error) {
	plan, err := s.Store.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	return scheduling.Schedule(plan.Items, s.Today()), nil
}

// planOf resolves the plan an item belongs to before its siblings are locked
func (s *ScheduleService) planOf(ctx context.Context, itemID int) (int, error) {
	item, err := s.Store.GetPlanItem(ctx, itemID)
	if err != nil {
		return 0, err
	}
	return item.PlanID, nil
}

func findItem(items []models.PlanItem, id int) (models.PlanItem, bool) {
	for _, item := range items {
		if item.ID == id {
			return item, true
		}
	}
	return models.PlanItem{}, false
}

// renumber writes dense sort orders for items in the given order, touching
// only rows whose order changed
func renumber(ctx context.Context, tx repositories.Tx, ordered []models.PlanItem) error {
	for i := range ordered {
		if ordered[i].SortOrder == i {
			continue
		}
		ordered[i].SortOrder = i
		if err := tx.UpdatePlanItem(ctx, &ordered[i]); err != nil {
			return err
		}
	}
	return nil
}

// SplitTask separates what is already made from what is left. The remainder
// becomes a new item right after the original, starting a day later.
func (s *ScheduleService) SplitTask(ctx context.Context, itemID int, req *models.SplitTaskRequest) (*models.SplitTaskResult, error) {
	planID, err := s.planOf(ctx, itemID)
	if err != nil {
		return nil, err
	}

	var result models.SplitTaskResult
	err = s.Store.InTx(ctx, func(tx repositories.Tx) error {
		items, err := tx.LockPlanItems(ctx, planID)
		if err != nil {
			return err
		}
		item, ok := findItem(items, itemID)
		if !ok {
			return apperrors.NotFoundf("plan item %d not found", itemID)
		}

		original, remainder, err := scheduling.Split(item, req.DoneQty, req.PendingQty)
		if err != nil {
			return err
		}
		if err := tx.UpdatePlanItem(ctx, &original); err != nil {
			return err
		}
		if err := tx.InsertPlanItem(ctx, &remainder); err != nil {
			return err
		}

		ordered := make([]models.PlanItem, 0, len(items)+1)
		for _, it := range scheduling.SortByDisplayOrder(items) {
			if it.ID == original.ID {
				ordered = append(ordered, original, remainder)
				continue
			}
			ordered = append(ordered, it)
		}
		if err := renumber(ctx, tx, ordered); err != nil {
			return err
		}

		for _, it := range ordered {
			switch it.ID {
			case original.ID:
				o := it
				result.Original = &o
			case remainder.ID:
				r := it
				result.Remainder = &r
			}
		}
		return nil
	})
	if err != nil {
		return nil, txFailed("split_task", err)
	}

	log.Printf("[Schedule] Split item %d: %s done, %s pending as item %d",
		itemID, req.DoneQty, req.PendingQty, result.Remainder.ID)
	s.changed(ctx, planID, itemID)
	return &result, nil
}

// MergeTask folds item into the item directly before it. Required and
// produced quantities are summed and the item's production records move to
// the surviving item.
func (s *ScheduleService) MergeTask(ctx context.Context, itemID int, req *models.MergeTaskRequest) (*models.PlanItem, error) {
	planID, err := s.planOf(ctx, itemID)
	if err != nil {
		return nil, err
	}

	var merged models.PlanItem
	err = s.Store.InTx(ctx, func(tx repositories.Tx) error {
		items, err := tx.LockPlanItems(ctx, planID)
		if err != nil {
			return err
		}
		item, ok := findItem(items, itemID)
		if !ok {
			return apperrors.NotFoundf("plan item %d not found", itemID)
		}
		previous, ok := findItem(items, req.PreviousItemID)
		if !ok {
			other, err := tx.GetPlanItem(ctx, req.PreviousItemID)
			if err != nil {
				return err
			}
			previous = *other
		}

		merged, err = scheduling.Merge(items, item, previous)
		if err != nil {
			return err
		}
		if merged.SplitFromID != nil && *merged.SplitFromID == item.ID {
			merged.SplitFromID = nil
		}
		if err := tx.ReassignProductionRecords(ctx, item.ID, previous.ID); err != nil {
			return err
		}
		if err := tx.DeletePlanItem(ctx, item.ID); err != nil {
			return err
		}
		if err := tx.UpdatePlanItem(ctx, &merged); err != nil {
			return err
		}

		ordered := make([]models.PlanItem, 0, len(items)-1)
		for _, it := range scheduling.SortByDisplayOrder(items) {
			switch it.ID {
			case item.ID:
			case merged.ID:
				ordered = append(ordered, merged)
			default:
				// the store already cleared references to the deleted item
				if it.SplitFromID != nil && *it.SplitFromID == item.ID {
					it.SplitFromID = nil
				}
				ordered = append(ordered, it)
			}
		}
		if err := renumber(ctx, tx, ordered); err != nil {
			return err
		}
		if m, ok := findItem(ordered, merged.ID); ok {
			merged = m
		}
		return nil
	})
	if err != nil {
		return nil, txFailed("merge_task", err)
	}

	log.Printf("[Schedule] Merged item %d into item %d", itemID, merged.ID)
	s.changed(ctx, planID, merged.ID)
	return &merged, nil
}

// RescheduleTask moves an item's start by whole days. A drag measured in
// pixels is rounded to the nearest day. No check against other items is made.
func (s *ScheduleService) RescheduleTask(ctx context.Context, itemID int, req *models.RescheduleTaskRequest) (*models.PlanItem, error) {
	var delta int
	switch {
	case req.DeltaDays != nil:
		delta = *req.DeltaDays
	case req.OffsetPx != nil && req.DayWidthPx != nil:
		d, err := scheduling.DayDelta(*req.OffsetPx, *req.DayWidthPx)
		if err != nil {
			return nil, err
		}
		delta = d
	default:
		return nil, apperrors.Validationf("either delta_days or offset_px and day_width_px are required")
	}

	var updated models.PlanItem
	err := s.Store.InTx(ctx, func(tx repositories.Tx) error {
		item, err := tx.LockPlanItem(ctx, itemID)
		if err != nil {
			return err
		}
		start := scheduling.Shift(item.StartDate, delta, s.Today())
		item.StartDate = &start
		if err := tx.UpdatePlanItem(ctx, item); err != nil {
			return err
		}
		updated = *item
		return nil
	})
	if err != nil {
		return nil, txFailed("reschedule_task", err)
	}

	log.Printf("[Schedule] Rescheduled item %d by %d days to %s", itemID, delta, timeutil.FormatDate(updated.StartDate))
	s.changed(ctx, updated.PlanID, itemID)
	return &updated, nil
}

// ReorderTask moves an item to a new display position. Dates and quantities
// stay as they are.
func (s *ScheduleService) ReorderTask(ctx context.Context, itemID int, req *models.ReorderTaskRequest) ([]models.PlanItem, error) {
	planID, err := s.planOf(ctx, itemID)
	if err != nil {
		return nil, err
	}

	var reordered []models.PlanItem
	err = s.Store.InTx(ctx, func(tx repositories.Tx) error {
		items, err := tx.LockPlanItems(ctx, planID)
		if err != nil {
			return err
		}
		reordered, err = scheduling.Reorder(items, itemID, req.Position)
		if err != nil {
			return err
		}
		before := make(map[int]int, len(items))
		for _, it := range items {
			before[it.ID] = it.SortOrder
		}
		for i := range reordered {
			if before[reordered[i].ID] == reordered[i].SortOrder {
				continue
			}
			if err := tx.UpdatePlanItem(ctx, &reordered[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, txFailed("reorder_task", err)
	}

	publish(s.Events, realtime.Event{Type: realtime.ScheduleChanged, PlanID: planID, ItemID: itemID})
	return reordered, nil
}

func (s *ScheduleService) changed(ctx context.Context, planID, itemID int) {
	s.Cache.InvalidatePlan(ctx, planID)
	publish(s.Events, realtime.Event{Type: realtime.ScheduleChanged, PlanID: planID, ItemID: itemID})
}

// Lanes

func (s *ScheduleService) CreateLane(ctx context.Context, planID int, req *models.CreateLaneRequest) (*models.ScheduleLane, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperrors.Validationf("lane name is required")
	}
	origin := s.Today()
	if req.OriginDate != "" {
		d, err := timeutil.ParseDate(req.OriginDate)
		if err != nil {
			return nil, apperrors.Validationf("invalid origin date %q, expected YYYY-MM-DD", req.OriginDate)
		}
		origin = d
	}

	lane := &models.ScheduleLane{PlanID: planID, Name: name, OriginDate: origin}
	err := s.Store.InTx(ctx, func(tx repositories.Tx) error {
		if _, err := tx.LockPlan(ctx, planID); err != nil {
			return err
		}
		return tx.InsertLane(ctx, lane)
	})
	if err != nil {
		return nil, txFailed("create_lane", err)
	}

	lane.Cells = []models.LaneCell{}
	lane.Blocks = []models.LaneBlock{}
	publish(s.Events, realtime.Event{Type: realtime.LaneChanged, PlanID: planID, LaneID: lane.ID})
	return lane, nil
}

func (s *ScheduleService) GetLane(ctx context.Context, laneID int) (*models.ScheduleLane, error) {
	return s.Store.GetLane(ctx, laneID)
}

func (s *ScheduleService) ListLanes(ctx context.Context, planID int) ([]*models.ScheduleLane, error) {
	if _, err := s.Store.GetPlan(ctx, planID); err != nil {
		return nil, err
	}
	return s.Store.ListLanes(ctx, planID)
}

func (s *ScheduleService) DeleteLane(ctx context.Context, laneID int) error {
	var planID int
	err := s.Store.InTx(ctx, func(tx repositories.Tx) error {
		lane, err := tx.LockLane(ctx, laneID)
		if err != nil {
			return err
		}
		planID = lane.PlanID
		return tx.DeleteLane(ctx, laneID)
	})
	if err != nil {
		return txFailed("delete_lane", err)
	}
	publish(s.Events, realtime.Event{Type: realtime.LaneChanged, PlanID: planID, LaneID: laneID})
	return nil
}

// PlaceTask lays a plan item onto a lane. Without an explicit day the task
// goes right after the lane's last occupied day. The item's start date follows
// the placement.
func (s *ScheduleService) PlaceTask(ctx context.Context, laneID int, req *models.PlaceTaskRequest) (*models.ScheduleLane, error) {
	if req.PlanItemID <= 0 {
		return nil, apperrors.Validationf("plan_item_id is required")
	}

	var placed *models.ScheduleLane
	err := s.Store.InTx(ctx, func(tx repositories.Tx) error {
		lane, err := tx.LockLane(ctx, laneID)
		if err != nil {
			return err
		}
		item, err := tx.LockPlanItem(ctx, req.PlanItemID)
		if err != nil {
			return err
		}
		if item.PlanID != lane.PlanID {
			return apperrors.Validationf("item %d does not belong to the lane's plan", item.ID)
		}

		// placing an item again moves it
		remaining := make([]models.LaneCell, 0, len(lane.Cells))
		for _, c := range lane.Cells {
			if c.PlanItemID != nil && *c.PlanItemID == item.ID {
				if err := tx.DeleteLaneCells(ctx, lane.ID, c.DayIndex, c.DayIndex); err != nil {
					return err
				}
				continue
			}
			remaining = append(remaining, c)
		}

		blocks := scheduling.NewBlockSet(lane.Blocks)
		start := scheduling.NextFreeIndex(remaining, blocks)
		if req.DayIndex != nil {
			start = *req.DayIndex
		}
		span := scheduling.SpanDays(scheduling.DurationDays(item.RequiredQty, item.ShiftRate))

		label := item.SemiCode
		if label == "" {
			label = item.SemiName
		}
		cells, err := scheduling.PlaceCells(lane.ID, start, span, item.ID, label, blocks)
		if err != nil {
			return err
		}
		if err := tx.UpsertLaneCells(ctx, cells); err != nil {
			return err
		}

		startDate := timeutil.AddDays(lane.OriginDate, start)
		item.StartDate = &startDate
		if err := tx.UpdatePlanItem(ctx, item); err != nil {
			return err
		}

		placed, err = tx.GetLane(ctx, laneID)
		return err
	})
	if err != nil {
		return nil, txFailed("place_task", err)
	}

	s.changed(ctx, placed.PlanID, req.PlanItemID)
	return placed, nil
}

// LockRange annotates [start, end] on a lane. Cell data under the range is
// deleted and any block it intersects is replaced.
func (s *ScheduleService) LockRange(ctx context.Context, laneID int, req *models.LockRangeRequest) (*models.LaneBlock, error) {
	if err := scheduling.ValidateRange(req.StartIndex, req.EndIndex); err != nil {
		return nil, err
	}
	label := strings.TrimSpace(req.Label)
	if label == "" {
		return nil, apperrors.Validationf("block label is required")
	}

	block := &models.LaneBlock{LaneID: laneID, StartIndex: req.StartIndex, EndIndex: req.EndIndex, Label: label}
	var planID int
	err := s.Store.InTx(ctx, func(tx repositories.Tx) error {
		lane, err := tx.LockLane(ctx, laneID)
		if err != nil {
			return err
		}
		planID = lane.PlanID

		blocks := scheduling.NewBlockSet(lane.Blocks)
		for _, evicted := range blocks.Intersecting(block.StartIndex, block.EndIndex) {
			if err := tx.DeleteLaneBlock(ctx, laneID, evicted.ID); err != nil {
				return err
			}
		}
		if err := tx.DeleteLaneCells(ctx, laneID, block.StartIndex, block.EndIndex); err != nil {
			return err
		}
		return tx.InsertLaneBlock(ctx, block)
	})
	if err != nil {
		return nil, txFailed("lock_range", err)
	}

	log.Printf("[Schedule] Lane %d locked days %d-%d: %s", laneID, block.StartIndex, block.EndIndex, label)
	publish(s.Events, realtime.Event{Type: realtime.LaneChanged, PlanID: planID, LaneID: laneID})
	return block, nil
}

// UnlockRange removes a block. The cell data it deleted is not restored.
func (s *ScheduleService) UnlockRange(ctx context.Context, laneID, blockID int) error {
	var planID int
	err := s.Store.InTx(ctx, func(tx repositories.Tx) error {
		lane, err := tx.LockLane(ctx, laneID)
		if err != nil {
			return err
		}
		planID = lane.PlanID
		blocks := scheduling.NewBlockSet(lane.Blocks)
		if !blocks.Remove(blockID) {
			return apperrors.NotFoundf("block %d not found on lane %d", blockID, laneID)
		}
		return tx.DeleteLaneBlock(ctx, laneID, blockID)
	})
	if err != nil {
		return txFailed("unlock_range", err)
	}
	publish(s.Events, realtime.Event{Type: realtime.LaneChanged, PlanID: planID, LaneID: laneID})
	return nil
}

package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"factory-backend/internal/apperrors"
	"factory-backend/internal/models"

	"github.com/shopspring/decimal"
)

// state is one consistent snapshot of every table. A transaction works on a
// clone and the clone replaces the live state on success.
type state struct {
	now func() time.Time
	seq map[string]int

	plans     map[int]models.ProductionPlan
	items     map[int]models.PlanItem
	records   map[int]models.ProductionRecord
	operators map[int]models.Operator
	semis     map[int]models.SemiFinishedGood
	recipes   map[int][]models.SemiToMaterialEdge
	materials map[int]models.RawMaterial
	lanes     map[int]models.ScheduleLane
	cells     map[int]map[int]models.LaneCell
	blocks    map[int]models.LaneBlock
}

func newState(now func() time.Time) *state {
	return &state{
		now:       now,
		seq:       make(map[string]int),
		plans:     make(map[int]models.ProductionPlan),
		items:     make(map[int]models.PlanItem),
		records:   make(map[int]models.ProductionRecord),
		operators: make(map[int]models.Operator),
		semis:     make(map[int]models.SemiFinishedGood),
		recipes:   make(map[int][]models.SemiToMaterialEdge),
		materials: make(map[int]models.RawMaterial),
		lanes:     make(map[int]models.ScheduleLane),
		cells:     make(map[int]map[int]models.LaneCell),
		blocks:    make(map[int]models.LaneBlock),
	}
}

func copyMap[V any](m map[int]V) map[int]V {
	out := make(map[int]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// clone copies every table. Pointer fields inside rows are never mutated in
// place, so a shallow row copy is enough.
func (s *state) clone() *state {
	c := &state{
		now:       s.now,
		seq:       make(map[string]int, len(s.seq)),
		plans:     copyMap(s.plans),
		items:     copyMap(s.items),
		records:   copyMap(s.records),
		operators: copyMap(s.operators),
		semis:     copyMap(s.semis),
		recipes:   copyMap(s.recipes),
		materials: copyMap(s.materials),
		lanes:     copyMap(s.lanes),
		cells:     make(map[int]map[int]models.LaneCell, len(s.cells)),
		blocks:    copyMap(s.blocks),
	}
	for k, v := range s.seq {
		c.seq[k] = v
	}
	for laneID, days := range s.cells {
		c.cells[laneID] = copyMap(days)
	}
	return c
}

func (s *state) next(table string) int {
	s.seq[table]++
	return s.seq[table]
}

func missingReference(what string, id int) error {
	return &apperrors.Error{Kind: apperrors.KindValidation, Message: fmt.Sprintf("referenced %s %d does not exist", what, id)}
}

// Plans

func (s *state) withJoin(item models.PlanItem) models.PlanItem {
	if g, ok := s.semis[item.SemiID]; ok {
		item.SemiCode = g.Code
		item.SemiName = g.Name
	}
	return item
}

func (s *state) planItems(planID int, keep func(models.PlanItem) bool) []models.PlanItem {
	items := make([]models.PlanItem, 0)
	for _, item := range s.items {
		if item.PlanID == planID && (keep == nil || keep(item)) {
			items = append(items, s.withJoin(item))
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].SortOrder != items[j].SortOrder {
			return items[i].SortOrder < items[j].SortOrder
		}
		return items[i].ID < items[j].ID
	})
	return items
}

func (s *state) GetPlan(_ context.Context, id int) (*models.ProductionPlan, error) {
	plan, ok := s.plans[id]
	if !ok {
		return nil, apperrors.NotFoundf("plan %d not found", id)
	}
	plan.Items = s.planItems(id, nil)
	return &plan, nil
}

func (s *state) LockPlan(_ context.Context, id int) (*models.ProductionPlan, error) {
	plan, ok := s.plans[id]
	if !ok {
		return nil, apperrors.NotFoundf("plan %d not found", id)
	}
	return &plan, nil
}

func (s *state) ListOpenPlans(_ context.Context) ([]*models.ProductionPlan, error) {
	plans := make([]*models.ProductionPlan, 0)
	for _, p := range s.plans {
		if p.Status == models.PlanStatusOpen {
			p := p
			plans = append(plans, &p)
		}
	}
	sort.Slice(plans, func(i, j int) bool {
		if !plans[i].CreatedAt.Equal(plans[j].CreatedAt) {
			return plans[i].CreatedAt.After(plans[j].CreatedAt)
		}
		return plans[i].ID > plans[j].ID
	})
	return plans, nil
}

func (s *state) InsertPlan(_ context.Context, plan *models.ProductionPlan) error {
	plan.ID = s.next("plans")
	plan.CreatedAt = s.now()
	row := *plan
	row.Items = nil
	s.plans[plan.ID] = row
	return nil
}

func (s *state) UpdatePlanName(_ context.Context, id int, name string) error {
	plan, ok := s.plans[id]
	if !ok {
		return apperrors.NotFoundf("plan %d not found", id)
	}
	plan.Name = name
	s.plans[id] = plan
	return nil
}

func (s *state) UpdatePlanStatus(_ context.Context, id int, status string) error {
	plan, ok := s.plans[id]
	if !ok {
		return apperrors.NotFoundf("plan %d not found", id)
	}
	plan.Status = status
	s.plans[id] = plan
	return nil
}

// DeletePlan cascades to items and lanes, like the foreign keys do
func (s *state) DeletePlan(_ context.Context, id int) error {
	if _, ok := s.plans[id]; !ok {
		return apperrors.NotFoundf("plan %d not found", id)
	}
	for itemID, item := range s.items {
		if item.PlanID == id {
			s.deleteItem(itemID)
		}
	}
	for laneID, lane := range s.lanes {
		if lane.PlanID == id {
			s.deleteLane(laneID)
		}
	}
	delete(s.plans, id)
	return nil
}

// Items

func (s *state) ListPlanItems(_ context.Context, planID int) ([]models.PlanItem, error) {
	return s.planItems(planID, nil), nil
}

func (s *state) GetPlanItem(_ context.Context, id int) (*models.PlanItem, error) {
	item, ok := s.items[id]
	if !ok {
		return nil, apperrors.NotFoundf("plan item %d not found", id)
	}
	item = s.withJoin(item)
	return &item, nil
}

func (s *state) LockPlanItems(ctx context.Context, planID int) ([]models.PlanItem, error) {
	return s.ListPlanItems(ctx, planID)
}

func (s *state) LockPlanItem(ctx context.Context, id int) (*models.PlanItem, error) {
	return s.GetPlanItem(ctx, id)
}

func (s *state) LockPlanItemsBySemi(_ context.Context, planID, semiID int) ([]models.PlanItem, error) {
	return s.planItems(planID, func(item models.PlanItem) bool { return item.SemiID == semiID }), nil
}

func (s *state) checkItemRefs(item *models.PlanItem) error {
	if _, ok := s.plans[item.PlanID]; !ok {
		return missingReference("plan", item.PlanID)
	}
	if item.SplitFromID != nil {
		if _, ok := s.items[*item.SplitFromID]; !ok {
			return missingReference("plan item", *item.SplitFromID)
		}
	}
	if item.RequiredQty.IsNegative() || item.ProducedQty.IsNegative() {
		return &apperrors.Error{Kind: apperrors.KindValidation, Message: "constraint violated"}
	}
	return nil
}

func storedItem(item models.PlanItem) models.PlanItem {
	item.SemiCode = ""
	item.SemiName = ""
	return item
}

func (s *state) InsertPlanItem(_ context.Context, item *models.PlanItem) error {
	if err := s.checkItemRefs(item); err != nil {
		return err
	}
	item.ID = s.next("plan_items")
	s.items[item.ID] = storedItem(*item)
	return nil
}

func (s *state) UpdatePlanItem(_ context.Context, item *models.PlanItem) error {
	existing, ok := s.items[item.ID]
	if !ok {
		return apperrors.NotFoundf("plan item %d not found", item.ID)
	}
	if err := s.checkItemRefs(item); err != nil {
		return err
	}
	row := storedItem(*item)
	row.PlanID = existing.PlanID
	s.items[item.ID] = row
	return nil
}

func (s *state) DeletePlanItem(_ context.Context, id int) error {
	if _, ok := s.items[id]; !ok {
		return apperrors.NotFoundf("plan item %d not found", id)
	}
	s.deleteItem(id)
	return nil
}

// deleteItem applies the ON DELETE SET NULL rules of everything pointing at
// the item
func (s *state) deleteItem(id int) {
	for recID, rec := range s.records {
		if rec.PlanItemID != nil && *rec.PlanItemID == id {
			rec.PlanItemID = nil
			s.records[recID] = rec
		}
	}
	for otherID, other := range s.items {
		if other.SplitFromID != nil && *other.SplitFromID == id {
			other.SplitFromID = nil
			s.items[otherID] = other
		}
	}
	for _, days := range s.cells {
		for day, cell := range days {
			if cell.PlanItemID != nil && *cell.PlanItemID == id {
				cell.PlanItemID = nil
				days[day] = cell
			}
		}
	}
	delete(s.items, id)
}

func (s *state) AddProducedQty(_ context.Context, itemID int, delta decimal.Decimal) (decimal.Decimal, error) {
	item, ok := s.items[itemID]
	if !ok {
		return decimal.Zero, apperrors.NotFoundf("plan item %d not found", itemID)
	}
	item.ProducedQty = decimal.Max(item.ProducedQty.Add(delta), decimal.Zero)
	s.items[itemID] = item
	return item.ProducedQty, nil
}

// Production records

func (s *state) InsertProductionRecord(_ context.Context, rec *models.ProductionRecord) error {
	if _, ok := s.operators[rec.OperatorID]; !ok {
		return missingReference("operator", rec.OperatorID)
	}
	if rec.PlanItemID != nil {
		if _, ok := s.items[*rec.PlanItemID]; !ok {
			return missingReference("plan item", *rec.PlanItemID)
		}
	}
	rec.ID = s.next("production_records")
	rec.CreatedAt = s.now()
	s.records[rec.ID] = *rec
	return nil
}

func (s *state) ListProductionRecords(_ context.Context, planID int) ([]*models.ProductionRecord, error) {
	records := make([]*models.ProductionRecord, 0)
	for _, rec := range s.records {
		if rec.PlanItemID == nil {
			continue
		}
		if item, ok := s.items[*rec.PlanItemID]; ok && item.PlanID == planID {
			rec := rec
			records = append(records, &rec)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].ProducedOn.Equal(records[j].ProducedOn) {
			return records[i].ProducedOn.After(records[j].ProducedOn)
		}
		return records[i].ID > records[j].ID
	})
	return records, nil
}

func (s *state) LockProductionRecord(_ context.Context, id int) (*models.ProductionRecord, error) {
	rec, ok := s.records[id]
	if !ok {
		return nil, apperrors.NotFoundf("production record %d not found", id)
	}
	return &rec, nil
}

func (s *state) DeleteProductionRecord(_ context.Context, id int) error {
	if _, ok := s.records[id]; !ok {
		return apperrors.NotFoundf("production record %d not found", id)
	}
	delete(s.records, id)
	return nil
}

func (s *state) ReassignProductionRecords(_ context.Context, fromItemID, toItemID int) error {
	for id, rec := range s.records {
		if rec.PlanItemID != nil && *rec.PlanItemID == fromItemID {
			to := toItemID
			rec.PlanItemID = &to
			s.records[id] = rec
		}
	}
	return nil
}

func (s *state) GetOperator(_ context.Context, id int) (*models.Operator, error) {
	op, ok := s.operators[id]
	if !ok {
		return nil, apperrors.NotFoundf("operator %d not found", id)
	}
	return &op, nil
}

// Engineering data

func (s *state) GetSemiFinishedGood(_ context.Context, id int) (*models.SemiFinishedGood, error) {
	g, ok := s.semis[id]
	if !ok {
		return nil, apperrors.NotFoundf("semi-finished good %d not found", id)
	}
	g.Stock = append([]models.LocationStock(nil), g.Stock...)
	return &g, nil
}

func (s *state) GetSemiToMaterialRecipe(_ context.Context, semiID int) ([]models.SemiToMaterialEdge, error) {
	var edges []models.SemiToMaterialEdge
	for _, e := range s.recipes[semiID] {
		if _, ok := s.materials[e.MaterialID]; ok {
			edges = append(edges, e)
		}
	}
	return edges, nil
}

func (s *state) GetRawMaterial(_ context.Context, id int) (*models.RawMaterial, error) {
	m, ok := s.materials[id]
	if !ok {
		return nil, apperrors.NotFoundf("raw material %d not found", id)
	}
	return &m, nil
}

// Lanes

func (s *state) laneWithContents(lane models.ScheduleLane) *models.ScheduleLane {
	lane.Cells = make([]models.LaneCell, 0, len(s.cells[lane.ID]))
	for _, c := range s.cells[lane.ID] {
		lane.Cells = append(lane.Cells, c)
	}
	sort.Slice(lane.Cells, func(i, j int) bool { return lane.Cells[i].DayIndex < lane.Cells[j].DayIndex })

	lane.Blocks = make([]models.LaneBlock, 0)
	for _, b := range s.blocks {
		if b.LaneID == lane.ID {
			lane.Blocks = append(lane.Blocks, b)
		}
	}
	sort.Slice(lane.Blocks, func(i, j int) bool { return lane.Blocks[i].StartIndex < lane.Blocks[j].StartIndex })
	return &lane
}

func (s *state) GetLane(_ context.Context, id int) (*models.ScheduleLane, error) {
	lane, ok := s.lanes[id]
	if !ok {
		return nil, apperrors.NotFoundf("lane %d not found", id)
	}
	return s.laneWithContents(lane), nil
}

func (s *state) LockLane(ctx context.Context, id int) (*models.ScheduleLane, error) {
	return s.GetLane(ctx, id)
}

func (s *state) ListLanes(_ context.Context, planID int) ([]*models.ScheduleLane, error) {
	lanes := make([]*models.ScheduleLane, 0)
	for _, lane := range s.lanes {
		if lane.PlanID == planID {
			lanes = append(lanes, s.laneWithContents(lane))
		}
	}
	sort.Slice(lanes, func(i, j int) bool { return lanes[i].ID < lanes[j].ID })
	return lanes, nil
}

func (s *state) InsertLane(_ context.Context, lane *models.ScheduleLane) error {
	if _, ok := s.plans[lane.PlanID]; !ok {
		return missingReference("plan", lane.PlanID)
	}
	lane.ID = s.next("schedule_lanes")
	row := *lane
	row.Cells, row.Blocks = nil, nil
	s.lanes[lane.ID] = row
	return nil
}

func (s *state) DeleteLane(_ context.Context, id int) error {
	if _, ok := s.lanes[id]; !ok {
		return apperrors.NotFoundf("lane %d not found", id)
	}
	s.deleteLane(id)
	return nil
}

func (s *state) deleteLane(id int) {
	delete(s.cells, id)
	for blockID, b := range s.blocks {
		if b.LaneID == id {
			delete(s.blocks, blockID)
		}
	}
	delete(s.lanes, id)
}

func (s *state) UpsertLaneCells(_ context.Context, cells []models.LaneCell) error {
	for _, c := range cells {
		if _, ok := s.lanes[c.LaneID]; !ok {
			return missingReference("lane", c.LaneID)
		}
		if c.DayIndex < 0 {
			return &apperrors.Error{Kind: apperrors.KindValidation, Message: "constraint violated"}
		}
		days, ok := s.cells[c.LaneID]
		if !ok {
			days = make(map[int]models.LaneCell)
			s.cells[c.LaneID] = days
		}
		days[c.DayIndex] = c
	}
	return nil
}

func (s *state) DeleteLaneCells(_ context.Context, laneID, start, end int) error {
	for day := range s.cells[laneID] {
		if day >= start && day <= end {
			delete(s.cells[laneID], day)
		}
	}
	return nil
}

func (s *state) InsertLaneBlock(_ context.Context, block *models.LaneBlock) error {
	if _, ok := s.lanes[block.LaneID]; !ok {
		return missingReference("lane", block.LaneID)
	}
	block.ID = s.next("lane_blocks")
	s.blocks[block.ID] = *block
	return nil
}

func (s *state) DeleteLaneBlock(_ context.Context, laneID, blockID int) error {
	b, ok := s.blocks[blockID]
	if !ok || b.LaneID != laneID {
		return apperrors.NotFoundf("block %d not found on lane %d", blockID, laneID)
	}
	delete(s.blocks, blockID)
	return nil
}

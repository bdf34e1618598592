// Package memory is an in-process implementation of the planning store. It
// backs the test suites and the "memory" database driver used for demos.
package memory

import (
	"context"
	"sync"
	"time"

	"factory-backend/internal/apperrors"
	"factory-backend/internal/models"
	"factory-backend/internal/repositories"
	"factory-backend/internal/timeutil"

	"github.com/shopspring/decimal"
)

// Store serializes transactions behind one mutex. Each transaction runs on a
// private copy of the tables, so a failed one leaves nothing behind.
type Store struct {
	mu sync.Mutex
	st *state
}

var _ repositories.Store = (*Store)(nil)

func New() *Store {
	return NewWithClock(timeutil.Now)
}

// NewWithClock lets tests pin CreatedAt timestamps
func NewWithClock(now func() time.Time) *Store {
	return &Store{st: newState(now)}
}

func (s *Store) InTx(ctx context.Context, fn func(tx repositories.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Transaction(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(work); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return apperrors.Transaction(err)
	}
	s.st = work
	return nil
}

// Savepoint runs fn on a copy of the transaction's tables and keeps the copy
// only when fn succeeds.
func (s *state) Savepoint(ctx context.Context, fn func(tx repositories.Tx) error) error {
	work := s.clone()
	if err := fn(work); err != nil {
		return err
	}
	*s = *work
	return nil
}

func (s *Store) read() *state {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st
}

// Committed states are never mutated again, so reads can run on the snapshot
// without holding the lock.

func (s *Store) GetPlan(ctx context.Context, id int) (*models.ProductionPlan, error) {
	return s.read().GetPlan(ctx, id)
}

func (s *Store) ListOpenPlans(ctx context.Context) ([]*models.ProductionPlan, error) {
	return s.read().ListOpenPlans(ctx)
}

func (s *Store) ListPlanItems(ctx context.Context, planID int) ([]models.PlanItem, error) {
	return s.read().ListPlanItems(ctx, planID)
}

func (s *Store) GetPlanItem(ctx context.Context, id int) (*models.PlanItem, error) {
	return s.read().GetPlanItem(ctx, id)
}

func (s *Store) ListProductionRecords(ctx context.Context, planID int) ([]*models.ProductionRecord, error) {
	return s.read().ListProductionRecords(ctx, planID)
}

func (s *Store) GetOperator(ctx context.Context, id int) (*models.Operator, error) {
	return s.read().GetOperator(ctx, id)
}

func (s *Store) ListLanes(ctx context.Context, planID int) ([]*models.ScheduleLane, error) {
	return s.read().ListLanes(ctx, planID)
}

func (s *Store) GetLane(ctx context.Context, id int) (*models.ScheduleLane, error) {
	return s.read().GetLane(ctx, id)
}

func (s *Store) GetSemiFinishedGood(ctx context.Context, id int) (*models.SemiFinishedGood, error) {
	return s.read().GetSemiFinishedGood(ctx, id)
}

func (s *Store) GetSemiToMaterialRecipe(ctx context.Context, semiID int) ([]models.SemiToMaterialEdge, error) {
	return s.read().GetSemiToMaterialRecipe(ctx, semiID)
}

func (s *Store) GetRawMaterial(ctx context.Context, id int) (*models.RawMaterial, error) {
	return s.read().GetRawMaterial(ctx, id)
}

// Master data. The planning core only reads these; they are written here by
// seeding code and tests.

func (s *Store) mutate(fn func(st *state)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.st.clone()
	fn(work)
	s.st = work
}

func (s *Store) AddSemiFinishedGood(code, name string, stock ...models.LocationStock) int {
	var id int
	s.mutate(func(st *state) {
		id = st.next("semi_finished_goods")
		st.semis[id] = models.SemiFinishedGood{ID: id, Code: code, Name: name, Stock: stock}
	})
	return id
}

func (s *Store) AddRawMaterial(code, name string, current, minimum decimal.Decimal) int {
	var id int
	s.mutate(func(st *state) {
		id = st.next("raw_materials")
		st.materials[id] = models.RawMaterial{ID: id, Code: code, Name: name, CurrentStock: current, MinimumStock: minimum}
	})
	return id
}

// AddRecipeLine adds qtyPerUnit of material to one unit of the good's recipe
func (s *Store) AddRecipeLine(semiID, materialID int, qtyPerUnit decimal.Decimal) {
	s.mutate(func(st *state) {
		edges := append([]models.SemiToMaterialEdge(nil), st.recipes[semiID]...)
		st.recipes[semiID] = append(edges, models.SemiToMaterialEdge{SemiID: semiID, MaterialID: materialID, QtyPerUnit: qtyPerUnit})
	})
}

func (s *Store) AddOperator(name string) int {
	var id int
	s.mutate(func(st *state) {
		id = st.next("operators")
		st.operators[id] = models.Operator{ID: id, Name: name}
	})
	return id
}

// SetMaterialStock overwrites a material's on-hand quantity
func (s *Store) SetMaterialStock(id int, current decimal.Decimal) {
	s.mutate(func(st *state) {
		if m, ok := st.materials[id]; ok {
			m.CurrentStock = current
			st.materials[id] = m
		}
	})
}

// DeleteRawMaterial removes a material and the recipe lines that use it
func (s *Store) DeleteRawMaterial(id int) {
	s.mutate(func(st *state) {
		delete(st.materials, id)
		for semiID, edges := range st.recipes {
			kept := make([]models.SemiToMaterialEdge, 0, len(edges))
			for _, e := range edges {
				if e.MaterialID != id {
					kept = append(kept, e)
				}
			}
			st.recipes[semiID] = kept
		}
	})
}

// DeleteSemiFinishedGood removes a good and its recipe. Plan items keep
// pointing at it.
func (s *Store) DeleteSemiFinishedGood(id int) {
	s.mutate(func(st *state) {
		delete(st.semis, id)
		delete(st.recipes, id)
	})
}

package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"factory-backend/internal/models"
	"factory-backend/internal/realtime"
	"factory-backend/internal/repositories"
	"factory-backend/internal/repositories/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func dp(v int64) *decimal.Decimal {
	x := decimal.NewFromInt(v)
	return &x
}

type notification struct {
	planName  string
	shortages []models.MaterialShortage
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []notification
}

func (r *recordingNotifier) Notify(planName string, shortages []models.MaterialShortage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, notification{planName, shortages})
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (r *recordingPublisher) Publish(ev realtime.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingPublisher) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

var fixedToday = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

type fixture struct {
	ctx        context.Context
	store      *memory.Store
	plans      *PlanService
	production *ProductionService
	schedule   *ScheduleService
	notifier   *recordingNotifier
	events     *recordingPublisher

	// S1 uses 2 x M1 per unit; S2 uses 1 x M1 and 1 x M2
	s1, s2   int
	m1, m2   int
	operator int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	f := &fixture{
		ctx:      context.Background(),
		store:    store,
		notifier: &recordingNotifier{},
		events:   &recordingPublisher{},
	}

	f.m1 = store.AddRawMaterial("M1", "Steel sheet", d(150), d(10))
	f.m2 = store.AddRawMaterial("M2", "Paint", d(1000), d(100))
	f.s1 = store.AddSemiFinishedGood("S1", "Bracket")
	f.s2 = store.AddSemiFinishedGood("S2", "Panel")
	store.AddRecipeLine(f.s1, f.m1, d(2))
	store.AddRecipeLine(f.s2, f.m1, d(1))
	store.AddRecipeLine(f.s2, f.m2, d(1))
	f.operator = store.AddOperator("Operator A")

	f.plans = NewPlanService(store, nil, f.notifier, f.events)
	f.production = NewProductionService(store, f.events)
	f.schedule = NewScheduleService(store, nil, f.events)
	f.schedule.Today = func() time.Time { return fixedToday }
	return f
}

// createPlan stores a plan with the given lines and returns it
func (f *fixture) createPlan(t *testing.T, name string, items ...models.PlanItemInput) *models.ProductionPlan {
	t.Helper()
	res, err := f.plans.CreatePlan(f.ctx, &models.CreatePlanRequest{Name: name, Items: items})
	require.NoError(t, err)
	return res.Plan
}

func line(semiID int, qty int64) models.PlanItemInput {
	return models.PlanItemInput{SemiID: semiID, RequiredQty: d(qty)}
}

func (f *fixture) record(t *testing.T, planID, semiID int, ok int64) *models.RecordProductionResult {
	t.Helper()
	res, err := f.production.RecordProduction(f.ctx, planID, &models.RecordProductionRequest{
		SemiID:     semiID,
		OKQty:      d(ok),
		OperatorID: f.operator,
		Shift:      "A",
		Date:       "2026-03-10",
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) item(t *testing.T, id int) *models.PlanItem {
	t.Helper()
	item, err := f.store.GetPlanItem(f.ctx, id)
	require.NoError(t, err)
	return item
}

// recordByID reads a record whether or not it is still attached to an item
func (f *fixture) recordByID(id int) (*models.ProductionRecord, error) {
	var rec *models.ProductionRecord
	err := f.store.InTx(f.ctx, func(tx repositories.Tx) error {
		var err error
		rec, err = tx.LockProductionRecord(f.ctx, id)
		return err
	})
	return rec, err
}

package services

import (
	"sync"
	"testing"

	"factory-backend/internal/apperrors"
	"factory-backend/internal/models"
	"factory-backend/internal/realtime"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordProductionAccumulates(t *testing.T) {
	f := newFixture(t)
	plan := f.createPlan(t, "Line 1", line(f.s1, 50))
	itemID := plan.Items[0].ID

	first := f.record(t, plan.ID, f.s1, 10)
	assert.Equal(t, itemID, first.PlanItemID)
	assert.True(t, first.ProducedQty.Equal(d(10)))

	second := f.record(t, plan.ID, f.s1, 10)
	assert.True(t, second.ProducedQty.Equal(d(20)))
	assert.True(t, f.item(t, itemID).ProducedQty.Equal(d(20)))

	records, err := f.production.ListProductionRecords(f.ctx, plan.ID)
	require.NoError(t, err)
	require.Len(t, records, 2, "each report keeps its own record")
	for _, rec := range records {
		assert.True(t, rec.OKQty.Equal(d(10)))
		assert.Equal(t, "A", rec.Shift)
		assert.Equal(t, "2026-03-10", rec.ProducedOn.Format("2006-01-02"))
	}
	assert.Contains(t, f.events.types(), realtime.ProductionAdded)
}

func TestRecordProductionScrapOnly(t *testing.T) {
	f := newFixture(t)
	plan := f.createPlan(t, "Scrap", line(f.s2, 10))

	res, err := f.production.RecordProduction(f.ctx, plan.ID, &models.RecordProductionRequest{
		SemiID:      f.s2,
		ScrapQty:    d(3),
		ScrapReason: " bent ",
		OperatorID:  f.operator,
		Shift:       "B",
	})
	require.NoError(t, err)
	assert.True(t, res.ProducedQty.IsZero(), "scrap does not count as produced")
	assert.Equal(t, "bent", res.Record.ScrapReason)
	assert.False(t, res.Record.ProducedOn.IsZero(), "date defaults to today")
}

func TestRecordProductionValidation(t *testing.T) {
	f := newFixture(t)
	plan := f.createPlan(t, "Checks", line(f.s1, 10))

	base := func() models.RecordProductionRequest {
		return models.RecordProductionRequest{SemiID: f.s1, OKQty: d(1), OperatorID: f.operator, Shift: "A"}
	}
	tests := []struct {
		name   string
		mutate func(r *models.RecordProductionRequest)
	}{
		{"missing semi", func(r *models.RecordProductionRequest) { r.SemiID = 0 }},
		{"missing operator", func(r *models.RecordProductionRequest) { r.OperatorID = 0 }},
		{"negative ok", func(r *models.RecordProductionRequest) { r.OKQty = d(-1) }},
		{"negative scrap", func(r *models.RecordProductionRequest) { r.ScrapQty = d(-1) }},
		{"nothing to record", func(r *models.RecordProductionRequest) { r.OKQty = d(0) }},
		{"missing shift", func(r *models.RecordProductionRequest) { r.Shift = " " }},
		{"bad date", func(r *models.RecordProductionRequest) { r.Date = "yesterday" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base()
			tt.mutate(&req)
			_, err := f.production.RecordProduction(f.ctx, plan.ID, &req)
			assert.True(t, apperrors.IsKind(err, apperrors.KindValidation), "got %v", err)
		})
	}
	assert.True(t, f.item(t, plan.Items[0].ID).ProducedQty.IsZero())
}

func TestRecordProductionNotFound(t *testing.T) {
	f := newFixture(t)
	plan := f.createPlan(t, "Only S1", line(f.s1, 10))

	req := &models.RecordProductionRequest{SemiID: f.s2, OKQty: d(1), OperatorID: f.operator, Shift: "A"}
	_, err := f.production.RecordProduction(f.ctx, plan.ID, req)
	assert.True(t, apperrors.IsNotFound(err), "good not in plan: %v", err)

	req.SemiID = f.s1
	_, err = f.production.RecordProduction(f.ctx, 999, req)
	assert.True(t, apperrors.IsNotFound(err), "unknown plan: %v", err)

	req.OperatorID = 4242
	_, err = f.production.RecordProduction(f.ctx, plan.ID, req)
	assert.True(t, apperrors.IsNotFound(err), "unknown operator: %v", err)
	assert.True(t, f.item(t, plan.Items[0].ID).ProducedQty.IsZero(), "failed recording leaves no trace")

	records, err := f.production.ListProductionRecords(f.ctx, plan.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRecordProductionTargetsFirstIncompleteItem(t *testing.T) {
	f := newFixture(t)
	plan := f.createPlan(t, "Two runs", line(f.s1, 10), line(f.s2, 5), line(f.s1, 10))
	first, last := plan.Items[0].ID, plan.Items[2].ID

	res := f.record(t, plan.ID, f.s1, 10)
	assert.Equal(t, first, res.PlanItemID)

	res = f.record(t, plan.ID, f.s1, 4)
	assert.Equal(t, last, res.PlanItemID, "first item is complete")

	res = f.record(t, plan.ID, f.s1, 6)
	assert.Equal(t, last, res.PlanItemID)

	res = f.record(t, plan.ID, f.s1, 2)
	assert.Equal(t, last, res.PlanItemID, "surplus goes to the last item")
	assert.True(t, res.ProducedQty.Equal(d(12)))
	assert.True(t, f.item(t, first).ProducedQty.Equal(d(10)))
}

func TestRecordProductionConcurrent(t *testing.T) {
	f := newFixture(t)
	plan := f.createPlan(t, "Busy", line(f.s1, 100))

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.production.RecordProduction(f.ctx, plan.ID, &models.RecordProductionRequest{
				SemiID: f.s1, OKQty: d(1), OperatorID: f.operator, Shift: "A",
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.True(t, f.item(t, plan.Items[0].ID).ProducedQty.Equal(d(workers)))
	records, err := f.production.ListProductionRecords(f.ctx, plan.ID)
	require.NoError(t, err)
	assert.Len(t, records, workers)
}

func TestDeleteProductionRecordReversesQuantity(t *testing.T) {
	f := newFixture(t)
	plan := f.createPlan(t, "Undo", line(f.s1, 50))
	itemID := plan.Items[0].ID

	keep := f.record(t, plan.ID, f.s1, 7)
	undo := f.record(t, plan.ID, f.s1, 5)

	require.NoError(t, f.production.DeleteProductionRecord(f.ctx, undo.Record.ID))
	assert.True(t, f.item(t, itemID).ProducedQty.Equal(d(7)))

	records, err := f.production.ListProductionRecords(f.ctx, plan.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, keep.Record.ID, records[0].ID)

	err = f.production.DeleteProductionRecord(f.ctx, undo.Record.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestDeleteDetachedProductionRecord(t *testing.T) {
	f := newFixture(t)
	plan := f.createPlan(t, "Detached", line(f.s1, 50))
	res := f.record(t, plan.ID, f.s1, 7)
	require.NoError(t, f.plans.DeletePlan(f.ctx, plan.ID))

	require.NoError(t, f.production.DeleteProductionRecord(f.ctx, res.Record.ID))
	_, err := f.recordByID(res.Record.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestListProductionRecordsUnknownPlan(t *testing.T) {
	f := newFixture(t)
	_, err := f.production.ListProductionRecords(f.ctx, 31)
	assert.True(t, apperrors.IsNotFound(err))
}

package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"factory-backend/internal/health"
	"factory-backend/internal/models"
	"factory-backend/internal/repositories/memory"
	"factory-backend/internal/services"
	"factory-backend/pkg/utils"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	router   *mux.Router
	store    *memory.Store
	semi     int
	operator int
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memory.New()
	steel := store.AddRawMaterial("M1", "Steel sheet", decimal.NewFromInt(150), decimal.NewFromInt(10))
	semi := store.AddSemiFinishedGood("S1", "Bracket")
	store.AddRecipeLine(semi, steel, decimal.NewFromInt(2))
	operator := store.AddOperator("Operator A")

	plans := services.NewPlanService(store, nil, nil, nil)
	production := services.NewProductionService(store, nil)
	schedule := services.NewScheduleService(store, nil, nil)
	schedule.Today = func() time.Time { return time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC) }
	reports := services.NewReportService(plans, schedule, nil)

	planHandler := NewPlanHandler(plans)
	productionHandler := NewProductionHandler(production)
	scheduleHandler := NewScheduleHandler(schedule)
	laneHandler := NewLaneHandler(schedule)
	reportHandler := NewReportHandler(reports)
	healthHandler := NewHealthHandler(health.NewHealthChecker("memory", nil, nil))

	r := mux.NewRouter()
	r.HandleFunc("/health/ready", healthHandler.ReadinessHealth).Methods("GET")
	r.HandleFunc("/api/plans", planHandler.CreatePlan).Methods("POST")
	r.HandleFunc("/api/plans", planHandler.ListPlans).Methods("GET")
	r.HandleFunc("/api/plans/{id}", planHandler.GetPlan).Methods("GET")
	r.HandleFunc("/api/plans/{id}", planHandler.UpdatePlan).Methods("PUT")
	r.HandleFunc("/api/plans/{id}", planHandler.DeletePlan).Methods("DELETE")
	r.HandleFunc("/api/plans/{id}/status", planHandler.SetStatus).Methods("PATCH")
	r.HandleFunc("/api/plans/{id}/shortages", planHandler.GetShortages).Methods("GET")
	r.HandleFunc("/api/plans/{id}/schedule", scheduleHandler.GetSchedule).Methods("GET")
	r.HandleFunc("/api/plans/{id}/schedule.pdf", reportHandler.GetSchedulePDF).Methods("GET")
	r.HandleFunc("/api/plans/{id}/production", productionHandler.RecordProduction).Methods("POST")
	r.HandleFunc("/api/plans/{id}/production", productionHandler.ListRecords).Methods("GET")
	r.HandleFunc("/api/production/{id}", productionHandler.DeleteRecord).Methods("DELETE")
	r.HandleFunc("/api/items/{id}/split", scheduleHandler.SplitTask).Methods("POST")
	r.HandleFunc("/api/items/{id}/merge", scheduleHandler.MergeTask).Methods("POST")
	r.HandleFunc("/api/items/{id}/reschedule", scheduleHandler.RescheduleTask).Methods("POST")
	r.HandleFunc("/api/items/{id}/reorder", scheduleHandler.ReorderTask).Methods("POST")
	r.HandleFunc("/api/plans/{id}/lanes", laneHandler.CreateLane).Methods("POST")
	r.HandleFunc("/api/plans/{id}/lanes", laneHandler.ListLanes).Methods("GET")
	r.HandleFunc("/api/lanes/{id}", laneHandler.GetLane).Methods("GET")
	r.HandleFunc("/api/lanes/{id}", laneHandler.DeleteLane).Methods("DELETE")
	r.HandleFunc("/api/lanes/{id}/tasks", laneHandler.PlaceTask).Methods("POST")
	r.HandleFunc("/api/lanes/{id}/blocks", laneHandler.LockRange).Methods("POST")
	r.HandleFunc("/api/lanes/{id}/blocks/{blockId}", laneHandler.UnlockRange).Methods("DELETE")

	return &testServer{router: r, store: store, semi: semi, operator: operator}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), dst), rr.Body.String())
}

func (s *testServer) createPlan(t *testing.T, qty int64) *models.PlanResult {
	t.Helper()
	rr := s.do(t, "POST", "/api/plans", map[string]interface{}{
		"name":  "Week 11",
		"items": []map[string]interface{}{{"semi_id": s.semi, "required_qty": qty}},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var result models.PlanResult
	decodeBody(t, rr, &result)
	return &result
}

func TestCreatePlan_ReturnsShortages(t *testing.T) {
	s := newTestServer(t)
	result := s.createPlan(t, 100)

	require.Len(t, result.Plan.Items, 1)
	require.Len(t, result.Shortages, 1)
	assert.True(t, result.Shortages[0].Demand.Equal(decimal.NewFromInt(200)))
	assert.True(t, result.Shortages[0].ProjectedBalance.Equal(decimal.NewFromInt(-50)))
}

func TestCreatePlan_Errors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name     string
		body     interface{}
		wantCode int
		wantKind string
	}{
		{"malformed json", "{not json", http.StatusBadRequest, ""},
		{"missing name", map[string]interface{}{"items": []interface{}{}}, http.StatusBadRequest, "validation"},
		{"negative quantity", map[string]interface{}{
			"name":  "Bad",
			"items": []map[string]interface{}{{"semi_id": s.semi, "required_qty": -1}},
		}, http.StatusBadRequest, "validation"},
		{"unknown good", map[string]interface{}{
			"name":  "Bad",
			"items": []map[string]interface{}{{"semi_id": 999, "required_qty": 1}},
		}, http.StatusNotFound, "not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := s.do(t, "POST", "/api/plans", tt.body)
			assert.Equal(t, tt.wantCode, rr.Code)
			if tt.wantKind != "" {
				var body utils.ErrorBody
				decodeBody(t, rr, &body)
				assert.Equal(t, tt.wantKind, body.Kind)
			}
		})
	}

	rr := s.do(t, "GET", "/api/plans", nil)
	var plans []models.ProductionPlan
	decodeBody(t, rr, &plans)
	assert.Empty(t, plans)
}

func TestPlanLifecycle(t *testing.T) {
	s := newTestServer(t)
	created := s.createPlan(t, 10)
	base := "/api/plans/" + strconv.Itoa(created.Plan.ID)

	rr := s.do(t, "PUT", base, map[string]interface{}{
		"name":  "Week 12",
		"items": []map[string]interface{}{{"id": created.Plan.Items[0].ID, "semi_id": s.semi, "required_qty": 20}},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var updated models.PlanResult
	decodeBody(t, rr, &updated)
	assert.Equal(t, "Week 12", updated.Plan.Name)
	assert.True(t, updated.Plan.Items[0].RequiredQty.Equal(decimal.NewFromInt(20)))

	rr = s.do(t, "PATCH", base+"/status", map[string]string{"status": "closed"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var plan models.ProductionPlan
	decodeBody(t, rr, &plan)
	assert.Equal(t, models.PlanStatusClosed, plan.Status)

	rr = s.do(t, "PATCH", base+"/status", map[string]string{"status": "archived"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do(t, "DELETE", base, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = s.do(t, "GET", base, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr = s.do(t, "DELETE", base, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestInvalidPathID(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/api/plans/abc", "/api/plans/0", "/api/plans/-3"} {
		rr := s.do(t, "GET", path, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code, path)
	}
}

func TestGetShortages(t *testing.T) {
	s := newTestServer(t)
	// 50 units need 100 of M1: balance 50 stays above the minimum of 10
	enough := s.createPlan(t, 50)
	rr := s.do(t, "GET", "/api/plans/"+strconv.Itoa(enough.Plan.ID)+"/shortages", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var shortages []models.MaterialShortage
	decodeBody(t, rr, &shortages)
	assert.Empty(t, shortages)

	short := s.createPlan(t, 100)
	rr = s.do(t, "GET", "/api/plans/"+strconv.Itoa(short.Plan.ID)+"/shortages", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	decodeBody(t, rr, &shortages)
	require.Len(t, shortages, 1)
	assert.True(t, shortages[0].ProjectedBalance.Equal(decimal.NewFromInt(-50)))
}

func TestProductionEndpoints(t *testing.T) {
	s := newTestServer(t)
	created := s.createPlan(t, 100)
	base := "/api/plans/" + strconv.Itoa(created.Plan.ID) + "/production"

	rr := s.do(t, "POST", base, map[string]interface{}{
		"semi_id": s.semi, "ok_qty": 30, "scrap_qty": 2, "scrap_reason": "burr",
		"operator_id": s.operator, "shift": "A", "date": "2026-03-10",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var result models.RecordProductionResult
	decodeBody(t, rr, &result)
	assert.True(t, result.ProducedQty.Equal(decimal.NewFromInt(30)))
	assert.Equal(t, created.Plan.Items[0].ID, result.PlanItemID)

	rr = s.do(t, "POST", base, map[string]interface{}{
		"semi_id": s.semi, "ok_qty": 0, "scrap_qty": 0, "operator_id": s.operator, "shift": "A",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do(t, "GET", base, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var records []models.ProductionRecord
	decodeBody(t, rr, &records)
	require.Len(t, records, 1)

	rr = s.do(t, "DELETE", "/api/production/"+strconv.Itoa(result.Record.ID), nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = s.do(t, "GET", "/api/plans/"+strconv.Itoa(created.Plan.ID), nil)
	var plan models.ProductionPlan
	decodeBody(t, rr, &plan)
	assert.True(t, plan.Items[0].ProducedQty.IsZero())
}

func TestScheduleEndpoints(t *testing.T) {
	s := newTestServer(t)
	created := s.createPlan(t, 100)
	planPath := "/api/plans/" + strconv.Itoa(created.Plan.ID)
	itemPath := "/api/items/" + strconv.Itoa(created.Plan.Items[0].ID)

	rr := s.do(t, "GET", planPath+"/schedule", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var tasks []models.ScheduledTask
	decodeBody(t, rr, &tasks)
	require.Len(t, tasks, 1)
	assert.Equal(t, 1.0, tasks[0].DurationDays)

	rr = s.do(t, "POST", itemPath+"/split", map[string]interface{}{"done_qty": 100, "pending_qty": 0})
	assert.Equal(t, http.StatusConflict, rr.Code)
	rr = s.do(t, "POST", itemPath+"/split", map[string]interface{}{"done_qty": 50, "pending_qty": 40})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do(t, "POST", itemPath+"/split", map[string]interface{}{"done_qty": 60, "pending_qty": 40})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var split models.SplitTaskResult
	decodeBody(t, rr, &split)
	require.NotNil(t, split.Remainder.SplitFromID)
	assert.Equal(t, split.Original.ID, *split.Remainder.SplitFromID)

	rr = s.do(t, "POST", "/api/items/"+strconv.Itoa(split.Remainder.ID)+"/reorder", map[string]int{"position": 0})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var items []models.PlanItem
	decodeBody(t, rr, &items)
	assert.Equal(t, split.Remainder.ID, items[0].ID)

	rr = s.do(t, "POST", itemPath+"/reschedule", map[string]int{"delta_days": 3})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var moved models.PlanItem
	decodeBody(t, rr, &moved)
	require.NotNil(t, moved.StartDate)
	assert.Equal(t, "2026-03-13", moved.StartDate.Format("2006-01-02"))

	rr = s.do(t, "POST", itemPath+"/merge", map[string]int{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLaneEndpoints(t *testing.T) {
	s := newTestServer(t)
	created := s.createPlan(t, 100)
	planPath := "/api/plans/" + strconv.Itoa(created.Plan.ID)

	rr := s.do(t, "POST", planPath+"/lanes", map[string]string{"name": "Line 1", "origin_date": "2026-03-09"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var lane models.ScheduleLane
	decodeBody(t, rr, &lane)
	lanePath := "/api/lanes/" + strconv.Itoa(lane.ID)

	rr = s.do(t, "POST", lanePath+"/blocks", map[string]interface{}{"start_index": 0, "end_index": 1, "label": "Maintenance"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var block models.LaneBlock
	decodeBody(t, rr, &block)

	zero := 0
	rr = s.do(t, "POST", lanePath+"/tasks", models.PlaceTaskRequest{PlanItemID: created.Plan.Items[0].ID, DayIndex: &zero})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = s.do(t, "POST", lanePath+"/tasks", models.PlaceTaskRequest{PlanItemID: created.Plan.Items[0].ID})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	decodeBody(t, rr, &lane)
	require.Len(t, lane.Cells, 1)
	assert.Equal(t, 2, lane.Cells[0].DayIndex)

	rr = s.do(t, "GET", planPath+"/lanes", nil)
	var lanes []models.ScheduleLane
	decodeBody(t, rr, &lanes)
	assert.Len(t, lanes, 1)

	rr = s.do(t, "DELETE", lanePath+"/blocks/"+strconv.Itoa(block.ID), nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = s.do(t, "DELETE", lanePath+"/blocks/"+strconv.Itoa(block.ID), nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = s.do(t, "DELETE", lanePath, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = s.do(t, "GET", lanePath, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSchedulePDF(t *testing.T) {
	s := newTestServer(t)
	created := s.createPlan(t, 100)
	path := "/api/plans/" + strconv.Itoa(created.Plan.ID) + "/schedule.pdf"

	rr := s.do(t, "GET", path, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "plan-"+strconv.Itoa(created.Plan.ID)+"-schedule")
	assert.True(t, strings.HasPrefix(rr.Body.String(), "%PDF"))

	// No archiver configured
	rr = s.do(t, "GET", path+"?archive=true", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do(t, "GET", "/api/plans/999/schedule.pdf", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestReadinessHealth_MemoryDriver(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, "GET", "/health/ready", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var status health.HealthStatus
	decodeBody(t, rr, &status)
	assert.Equal(t, "healthy", status.Status)
}

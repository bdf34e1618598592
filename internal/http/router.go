package http

import (
	"net/http"

	"factory-backend/internal/auth"
	"factory-backend/internal/handlers"
	"factory-backend/internal/middleware"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(
	planHandler *handlers.PlanHandler,
	productionHandler *handlers.ProductionHandler,
	scheduleHandler *handlers.ScheduleHandler,
	laneHandler *handlers.LaneHandler,
	reportHandler *handlers.ReportHandler,
	healthHandler *handlers.HealthHandler,
	liveUpdates http.HandlerFunc,
	authMiddleware *middleware.AuthMiddleware,
) *mux.Router {
	r := mux.NewRouter()

	// Protected API routes - everything under /api needs a bearer token
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authMiddleware.Authenticate)

	// Plans
	api.HandleFunc("/plans", planHandler.ListPlans).Methods("GET")
	api.HandleFunc("/plans", planHandler.CreatePlan).Methods("POST")
	api.HandleFunc("/plans/{id}", planHandler.GetPlan).Methods("GET")
	api.HandleFunc("/plans/{id}", planHandler.UpdatePlan).Methods("PUT")
	api.HandleFunc("/plans/{id}", planHandler.DeletePlan).Methods("DELETE")
	api.HandleFunc("/plans/{id}/status", planHandler.SetStatus).Methods("PATCH")
	api.HandleFunc("/plans/{id}/shortages", planHandler.GetShortages).Methods("GET")

	// Schedule view and sheet
	api.HandleFunc("/plans/{id}/schedule", scheduleHandler.GetSchedule).Methods("GET")
	api.HandleFunc("/plans/{id}/schedule.pdf", reportHandler.GetSchedulePDF).Methods("GET")

	// Production records (deleting one is admin only)
	api.HandleFunc("/plans/{id}/production", productionHandler.ListRecords).Methods("GET")
	api.HandleFunc("/plans/{id}/production", productionHandler.RecordProduction).Methods("POST")
	api.HandleFunc("/production/{id}", authMiddleware.RequireRole(auth.RoleAdmin)(http.HandlerFunc(productionHandler.DeleteRecord)).ServeHTTP).Methods("DELETE")

	// Task edits
	api.HandleFunc("/items/{id}/split", scheduleHandler.SplitTask).Methods("POST")
	api.HandleFunc("/items/{id}/merge", scheduleHandler.MergeTask).Methods("POST")
	api.HandleFunc("/items/{id}/reschedule", scheduleHandler.RescheduleTask).Methods("POST")
	api.HandleFunc("/items/{id}/reorder", scheduleHandler.ReorderTask).Methods("POST")

	// Lanes
	api.HandleFunc("/plans/{id}/lanes", laneHandler.ListLanes).Methods("GET")
	api.HandleFunc("/plans/{id}/lanes", laneHandler.CreateLane).Methods("POST")
	api.HandleFunc("/lanes/{id}", laneHandler.GetLane).Methods("GET")
	api.HandleFunc("/lanes/{id}", laneHandler.DeleteLane).Methods("DELETE")
	api.HandleFunc("/lanes/{id}/tasks", laneHandler.PlaceTask).Methods("POST")
	api.HandleFunc("/lanes/{id}/blocks", laneHandler.LockRange).Methods("POST")
	api.HandleFunc("/lanes/{id}/blocks/{blockId}", laneHandler.UnlockRange).Methods("DELETE")

	// Live timeline updates
	if liveUpdates != nil {
		r.HandleFunc("/ws/plans", liveUpdates).Methods("GET")
	}

	// Health check endpoints (no auth required - for load balancers/K8s)
	r.HandleFunc("/health", healthHandler.BasicHealth).Methods("GET")
	r.HandleFunc("/health/ready", healthHandler.ReadinessHealth).Methods("GET")
	r.HandleFunc("/health/detailed", healthHandler.DetailedHealth).Methods("GET")

	// Prometheus metrics endpoint (no auth - should be protected by network policy)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

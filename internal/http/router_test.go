package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"factory-backend/internal/auth"
	"factory-backend/internal/config"
	"factory-backend/internal/handlers"
	"factory-backend/internal/health"
	"factory-backend/internal/middleware"
	"factory-backend/internal/repositories/memory"
	"factory-backend/internal/services"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*mux.Router, *auth.JWTManager) {
	t.Helper()
	cfg := &config.Config{}
	cfg.JWT.Secret = "router-secret"
	cfg.JWT.Issuer = "factory-backend"
	cfg.JWT.ExpirationHours = 1
	tokens := auth.NewJWTManager(cfg)

	store := memory.New()
	plans := services.NewPlanService(store, nil, nil, nil)
	production := services.NewProductionService(store, nil)
	schedule := services.NewScheduleService(store, nil, nil)
	reports := services.NewReportService(plans, schedule, nil)

	router := NewRouter(
		handlers.NewPlanHandler(plans),
		handlers.NewProductionHandler(production),
		handlers.NewScheduleHandler(schedule),
		handlers.NewLaneHandler(schedule),
		handlers.NewReportHandler(reports),
		handlers.NewHealthHandler(health.NewHealthChecker("memory", nil, nil)),
		nil,
		middleware.NewAuthMiddleware(tokens),
	)
	return router, tokens
}

func serve(router http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader("{}"))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRouter_APIRequiresToken(t *testing.T) {
	router, tokens := newTestRouter(t)

	rec := serve(router, http.MethodGet, "/api/plans", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := tokens.GenerateToken(1, "planner@example.com", auth.RolePlanner)
	require.NoError(t, err)
	rec = serve(router, http.MethodGet, "/api/plans", token)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(router, http.MethodGet, "/api/plans/42", token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_DeleteRecordIsAdminOnly(t *testing.T) {
	router, tokens := newTestRouter(t)

	planner, err := tokens.GenerateToken(1, "planner@example.com", auth.RolePlanner)
	require.NoError(t, err)
	admin, err := tokens.GenerateToken(2, "admin@example.com", auth.RoleAdmin)
	require.NoError(t, err)

	rec := serve(router, http.MethodDelete, "/api/production/7", planner)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(router, http.MethodDelete, "/api/production/7", admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_PublicEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, path := range []string{"/health", "/health/ready", "/metrics"} {
		rec := serve(router, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	// not mounted without a hub
	rec := serve(router, http.MethodGet, "/ws/plans", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

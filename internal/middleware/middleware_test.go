package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"factory-backend/internal/auth"
	"factory-backend/internal/config"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jwtManager() *auth.JWTManager {
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.Issuer = "factory-backend"
	cfg.JWT.ExpirationHours = 1
	return auth.NewJWTManager(cfg)
}

func bearer(t *testing.T, m *auth.JWTManager, role string) string {
	t.Helper()
	token, err := m.GenerateToken(3, "user@example.com", role)
	require.NoError(t, err)
	return "Bearer " + token
}

var echoUser = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	id, _ := GetUserIDFromContext(r.Context())
	role, _ := GetRoleFromContext(r.Context())
	w.Header().Set("X-User", role)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte{byte('0' + id)})
})

func TestAuthenticate(t *testing.T) {
	m := jwtManager()
	h := NewAuthMiddleware(m).Authenticate(echoUser)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer nope", http.StatusUnauthorized},
		{"valid", bearer(t, m, auth.RolePlanner), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/plans", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/api/plans", nil)
	req.Header.Set("Authorization", bearer(t, m, auth.RolePlanner))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "3", rec.Body.String())
	assert.Equal(t, auth.RolePlanner, rec.Header().Get("X-User"))
}

func TestRequireRole(t *testing.T) {
	m := jwtManager()
	h := NewAuthMiddleware(m).RequireRole(auth.RoleAdmin)(echoUser)

	for role, status := range map[string]int{
		auth.RoleAdmin:    http.StatusOK,
		auth.RolePlanner:  http.StatusForbidden,
		auth.RoleOperator: http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodDelete, "/api/production/1", nil)
		req.Header.Set("Authorization", bearer(t, m, role))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, status, rec.Code, role)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/production/1", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPILoggingAssignsRequestID(t *testing.T) {
	var seen string
	h := APILogging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/plans", nil))
	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/api/plans", nil)
	req.Header.Set(RequestIDHeader, "client-42")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "client-42", seen)
	assert.Equal(t, "client-42", rec.Header().Get(RequestIDHeader))
}

func TestPanicRecovery(t *testing.T) {
	h := PanicRecovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())
}

func TestRoutePathUsesTemplate(t *testing.T) {
	var got string
	r := mux.NewRouter()
	r.HandleFunc("/api/plans/{id}", func(w http.ResponseWriter, req *http.Request) {
		got = routePath(req)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/plans/17", nil))
	assert.Equal(t, "/api/plans/{id}", got)
	assert.Equal(t, "unmatched", routePath(httptest.NewRequest(http.MethodGet, "/x", nil)))
}

package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sasa-apparel/backend/internal/interfaces/http/handler"
)

func buildTestEngine(t *testing.T, authMiddleware gin.HandlerFunc) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine := gin.New()
	r := NewRouter(engine)
	routes := BuildRoutes(APIHandlers{
		System:    handler.NewSystemHandler(),
		Auth:      handler.NewAuthHandler(nil),
		Analytics: handler.NewAnalyticsHandler(nil, nil, nil, nil, 0, nil),
	}, authMiddleware)
	for _, route := range routes {
		r.Register(route)
	}
	r.Setup()
	return engine
}

func TestBuildRoutesRegistersAPISurface(t *testing.T) {
	engine := buildTestEngine(t, nil)

	expected := []struct {
		method string
		path   string
	}{
		{"GET", "/api/v1/health"},
		{"GET", "/api/v1/info"},
		{"GET", "/api/v1/ping"},
		{"POST", "/api/v1/auth/login"},
		{"POST", "/api/v1/auth/refresh"},
		{"POST", "/api/v1/auth/logout"},
		{"GET", "/api/v1/auth/me"},
		{"PUT", "/api/v1/auth/password"},
		{"GET", "/api/v1/analytics/kpis"},
		{"GET", "/api/v1/analytics/trend"},
		{"GET", "/api/v1/analytics/breakdown"},
		{"GET", "/api/v1/analytics/drilldown"},
		{"POST", "/api/v1/analytics/refresh"},
		{"GET", "/api/v1/analytics/scheduler/status"},
	}

	registered := make(map[string]bool)
	for _, route := range engine.Routes() {
		registered[route.Method+" "+route.Path] = true
	}

	for _, e := range expected {
		assert.True(t, registered[e.method+" "+e.path], "missing route %s %s", e.method, e.path)
	}
}

func TestBuildRoutesHealthEndpoint(t *testing.T) {
	engine := buildTestEngine(t, nil)

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestBuildRoutesAppliesAuthMiddleware(t *testing.T) {
	var middlewareHits int
	authMiddleware := func(c *gin.Context) {
		middlewareHits++
		c.AbortWithStatus(http.StatusUnauthorized)
	}

	engine := buildTestEngine(t, authMiddleware)

	// Protected group goes through the middleware
	req := httptest.NewRequest("GET", "/api/v1/analytics/kpis", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 1, middlewareHits)

	// System endpoints stay open
	req = httptest.NewRequest("GET", "/api/v1/health", nil)
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

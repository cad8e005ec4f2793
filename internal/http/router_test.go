package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/healthsphere/go-health-backend/internal/config"
	"github.com/healthsphere/go-health-backend/internal/repo"
)

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:router_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	// Generous limiter so tests never trip it.
	cfg.RateRPS = 1000
	cfg.RateBurst = 1000

	r := gin.New()
	RegisterRoutes(r, db, cfg)
	return r
}

func TestRouter_Health(t *testing.T) {
	r := newRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("health -> %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatal("no request id header")
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("security headers missing")
	}
}

func TestRouter_NoRouteEnvelope(t *testing.T) {
	r := newRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/definitely/not/here", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown route -> %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v body=%s", err, w.Body.String())
	}
	if body["code"] != "not_found" {
		t.Fatalf("code = %q", body["code"])
	}
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	r := newRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/health", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("wrong method -> %d", w.Code)
	}
}

func TestRouter_MetricsExposed(t *testing.T) {
	r := newRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("metrics -> %d", w.Code)
	}
}

func TestRouter_ProtectedEndpointsRequireToken(t *testing.T) {
	r := newRouter(t)

	for _, path := range []string{
		"/api/v1/checkin/session",
		"/api/v1/checkins",
		"/api/v1/uploads",
		"/api/v1/dashboard/insights",
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s without token -> %d", path, w.Code)
		}
	}
}

func TestRouter_PublicEndpointsOpen(t *testing.T) {
	r := newRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet,
		"/api/v1/emergency/nearby?lat=28.64&lon=77.22", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("emergency without token -> %d body=%s", w.Code, w.Body.String())
	}
}

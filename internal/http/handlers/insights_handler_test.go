package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/healthsphere/go-health-backend/internal/llm"
	"github.com/healthsphere/go-health-backend/internal/services"
)

func insightsRouter(h *Handlers, uid string) *gin.Engine {
	r := gin.New()
	g := r.Group("", asUser(uid))
	g.GET("/risk/series", h.RiskSeries)
	g.GET("/risk/summary", h.RiskSummary)
	g.GET("/dashboard/insights", h.DashboardInsights)
	g.GET("/dashboard/activity", h.DashboardActivity)
	g.POST("/feedback", h.SubmitFeedback)
	g.POST("/checkin/submit", h.SubmitCheckin)
	return r
}

func TestRiskEndpoints_EmptyHistory(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newHandlerDB(t)
	h := newTestHandlers(t, db, &fakeNarrative{questionsErr: llm.ErrUnavailable}, &fakeExtractor{})
	r := insightsRouter(h, "u1")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/risk/series", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("series -> %d", w.Code)
	}
	var series RiskSeriesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &series); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(series.Points) != 0 || series.Trend != "" {
		t.Fatalf("series = %+v", series)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/risk/summary", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("summary -> %d", w.Code)
	}
}

func TestDashboard_AfterSubmission(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newHandlerDB(t)
	fn := &fakeNarrative{
		questionsErr: llm.ErrUnavailable,
		analysis: &llm.CheckinAnalysis{
			RiskScore: 0.1,
			Summary:   "looking good",
		},
	}
	h := newTestHandlers(t, db, fn, &fakeExtractor{})
	r := insightsRouter(h, "u1")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/checkin/submit",
		strings.NewReader(allNoneBody(t))))
	if w.Code != http.StatusCreated {
		t.Fatalf("submit -> %d body=%s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard/insights", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("insights -> %d body=%s", w.Code, w.Body.String())
	}
	var ins services.HealthInsights
	if err := json.Unmarshal(w.Body.Bytes(), &ins); err != nil {
		t.Fatalf("json: %v", err)
	}
	if ins.CheckinCount != 1 {
		t.Fatalf("checkin count = %d", ins.CheckinCount)
	}
	if ins.WellnessScore != 100 {
		t.Fatalf("wellness = %d", ins.WellnessScore)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard/activity", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("activity -> %d", w.Code)
	}
	var feed []services.Activity
	if err := json.Unmarshal(w.Body.Bytes(), &feed); err != nil || len(feed) != 1 {
		t.Fatalf("feed = %d err=%v", len(feed), err)
	}
	if feed[0].Relative != "just now" {
		t.Fatalf("relative = %q", feed[0].Relative)
	}
}

func TestSubmitFeedback_StoredAndValidated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newHandlerDB(t)
	h := newTestHandlers(t, db, &fakeNarrative{}, &fakeExtractor{})
	r := insightsRouter(h, "u1")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/feedback",
		bytes.NewBufferString(`{"text":"   "}`)))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("blank feedback -> %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/feedback",
		bytes.NewBufferString(`{"text":"love the trend chart"}`)))
	if w.Code != http.StatusCreated {
		t.Fatalf("feedback -> %d body=%s", w.Code, w.Body.String())
	}
}

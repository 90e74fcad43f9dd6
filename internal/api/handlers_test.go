package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pterm/pterm"

	"errwatch/internal/model"
	"errwatch/internal/store"
)

type fakeAgentLister struct {
	agents  []model.AgentRecord
	summary model.StatsSummary
}

func (f *fakeAgentLister) AgentRecords() []model.AgentRecord { return f.agents }
func (f *fakeAgentLister) StatsSummary() model.StatsSummary  { return f.summary }

func newTestRouter(t *testing.T) (*gin.Engine, *store.Store, *fakeAgentLister) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := pterm.DefaultLogger.WithLevel(pterm.LogLevelTrace)
	st := store.New(1000, 0, 60*time.Minute, logger)
	lister := &fakeAgentLister{
		agents:  []model.AgentRecord{{AgentIdentity: model.AgentIdentity{ServerID: "web-01"}, Status: model.AgentOnline}},
		summary: model.StatsSummary{TotalErrors: 3, TotalServers: 1, OnlineServers: 1},
	}
	h := NewHandlers(st, lister, logger)

	router := gin.New()
	router.Use(corsMiddleware())
	router.GET("/api/servers", h.GetServers)
	router.GET("/api/errors", h.GetErrors)
	router.GET("/api/stats", h.GetStats)
	router.GET("/api/insights", h.GetInsights)
	router.GET("/api/health", h.GetHealth)
	return router, st, lister
}

func TestGetServers_ReturnsAgentList(t *testing.T) {
	router, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/servers", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var agents []model.AgentRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &agents); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(agents) != 1 || agents[0].ServerID != "web-01" {
		t.Errorf("unexpected agent list: %+v", agents)
	}
}

func TestGetErrors_LimitCappedAt100(t *testing.T) {
	router, st, _ := newTestRouter(t)
	for i := 0; i < 150; i++ {
		st.AddError(store.IncomingError{
			ServerID:     "web-01",
			LogFile:      "/var/log/app.log",
			ErrorMessage: fmt.Sprintf("distinct error %c%c", 'a'+i/26, 'a'+i%26),
			Timestamp:    time.Now().UTC(),
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/api/errors?limit=100000", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var errs []model.StoredError
	if err := json.Unmarshal(rec.Body.Bytes(), &errs); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(errs) != 100 {
		t.Errorf("expected limit capped at 100, got %d", len(errs))
	}
}

func TestGetErrors_SearchQueryUsesStoreSearch(t *testing.T) {
	router, st, _ := newTestRouter(t)
	st.AddError(store.IncomingError{
		ServerID: "db-01", LogFile: "/var/log/app.log",
		ErrorMessage: "Database connection timeout", Timestamp: time.Now().UTC(),
	})

	req := httptest.NewRequest(http.MethodGet, "/api/errors?q=database", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var errs []model.StoredError
	if err := json.Unmarshal(rec.Body.Bytes(), &errs); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(errs) != 1 {
		t.Fatalf("expected 1 matching error, got %d", len(errs))
	}
}

func TestGetStats_ReturnsSummary(t *testing.T) {
	router, _, lister := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var summary model.StatsSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if summary.TotalErrors != lister.summary.TotalErrors {
		t.Errorf("expected %d total errors, got %d", lister.summary.TotalErrors, summary.TotalErrors)
	}
}

func TestGetHealth_ReportsStatusOK(t *testing.T) {
	router, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %v", body["status"])
	}
	for _, field := range []string{"uptime", "memory", "servers", "errors"} {
		if _, ok := body[field]; !ok {
			t.Errorf("expected field %q in health response, got %+v", field, body)
		}
	}
}

func TestCORSMiddleware_PreflightGetsOK(t *testing.T) {
	router, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/servers", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on preflight, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("expected wildcard CORS origin header")
	}
}

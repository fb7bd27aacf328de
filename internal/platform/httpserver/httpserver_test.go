package httpserver

import (
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type pingRoute struct{}

func (pingRoute) Register(group *gin.RouterGroup) {
	group.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
}

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func TestEngineServesRoutesHealthAndMetrics(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	engine, err := NewEngine(nil, reg, pingRoute{})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	for _, path := range []string{"/api/ping", "/api/ping", "/healthz", "/missing"} {
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if path != "/missing" && rec.Code != http.StatusOK {
			t.Fatalf("%s: status %d", path, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `ridesafe_http_requests_total{method="GET",route="/api/ping",status="200"} 2`) {
		t.Fatalf("ping requests not counted:\n%s", body)
	}
	if !strings.Contains(body, `route="unmatched",status="404"`) {
		t.Fatalf("unmatched route not counted:\n%s", body)
	}
	if n := testutil.CollectAndCount(reg, "ridesafe_http_request_duration_seconds"); n == 0 {
		t.Fatalf("expected latency series")
	}
}

func TestEngineRejectsDuplicateRegistration(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	if _, err := NewEngine(nil, reg); err != nil {
		t.Fatalf("first engine: %v", err)
	}
	if _, err := NewEngine(nil, reg); err == nil {
		t.Fatalf("expected duplicate metrics error")
	}
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yungbote/grammar-annotation-backend/internal/observability"
	"github.com/yungbote/grammar-annotation-backend/internal/platform/ctxutil"
)

func TestAttachTraceContextEchoesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext())
	var seen *ctxutil.TraceData
	r.GET("/x", func(c *gin.Context) {
		seen = ctxutil.GetTraceData(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-Id", "req-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-Id"); got != "req-1" {
		t.Fatalf("X-Request-Id: want=%q got=%q", "req-1", got)
	}
	if rec.Header().Get("X-Trace-Id") == "" {
		t.Fatalf("X-Trace-Id: want generated value")
	}
	if seen == nil || seen.RequestID != "req-1" {
		t.Fatalf("trace data: want request id req-1 got=%+v", seen)
	}
}

func TestMetricsLabelsRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)

	r := gin.New()
	r.Use(Metrics(m))
	r.GET("/api/questions/:id/annotations", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/api/questions/q1/annotations", "/api/questions/q2/annotations", "/nope"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var series int
	for _, mf := range mfs {
		if mf.GetName() == "annotation_api_requests_total" {
			series = len(mf.GetMetric())
		}
	}
	if series != 2 {
		t.Fatalf("api_requests_total series: want=2 got=%d", series)
	}
	if n, err := testutil.GatherAndCount(m.Registry(), "annotation_api_inflight_requests"); err != nil || n != 1 {
		t.Fatalf("inflight gauge: want=1 got=%d err=%v", n, err)
	}
}

func TestAttachRequestContextSetsDeadline(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachRequestContext())
	var hasDeadline bool
	r.GET("/x", func(c *gin.Context) {
		_, hasDeadline = c.Request.Context().Deadline()
		c.Status(http.StatusOK)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	if !hasDeadline {
		t.Fatalf("request context: want deadline")
	}
}

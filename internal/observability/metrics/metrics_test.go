package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/comex-reports-etl/internal/core/domain"
)

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("scrape status = %d", rec.Code)
	}
	return rec.Body.String()
}

func TestIngestMetricsCountsOutcomes(t *testing.T) {
	m := NewIngestMetrics("etl")

	m.FileStarted()
	m.FileFinished(domain.KindInventory, domain.StatusSuccess, 12, 50*time.Millisecond)
	m.FileStarted()
	m.FileFinished(domain.KindDelivery, domain.StatusFailed, 0, time.Millisecond)

	body := scrape(t, m.Handler())
	for _, want := range []string{
		`comex_ingest_files_total{kind="inventory",service="etl",status="success"} 1`,
		`comex_ingest_files_total{kind="delivery",service="etl",status="failed"} 1`,
		`comex_ingest_records_total{kind="inventory",service="etl"} 12`,
		`comex_ingest_files_in_flight{service="etl"} 0`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %q\n%s", want, body)
		}
	}
}

func TestHTTPMiddlewareRecordsNormalizedPath(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	handler := m.Middleware("api", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	for _, path := range []string{"/v1/stats", "/random/123"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	body := scrape(t, m.Handler())
	for _, want := range []string{
		`comex_http_requests_total{method="GET",path="/v1/stats",service="api",status="418"} 1`,
		`comex_http_requests_total{method="GET",path="other",service="api",status="418"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %q\n%s", want, body)
		}
	}
}

package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	return rr.Body.String()
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/companies")

	req := httptest.NewRequest(http.MethodGet, "/companies", nil)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rr.Code)
	}

	body := scrape(t, metrics)
	if !strings.Contains(body, `companymanager_http_requests_total{code="418",route="/companies"} 1`) {
		t.Fatalf("expected metrics to record request, got: %s", body)
	}
	if !strings.Contains(body, `companymanager_http_request_duration_seconds_bucket{route="/companies"`) {
		t.Fatalf("expected duration histogram to be present, got: %s", body)
	}
}

func TestObserveUpstream(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObserveUpstream(http.MethodDelete, "/companies/{id}", http.StatusNoContent, 20*time.Millisecond)
	metrics.ObserveUpstream(http.MethodGet, "/employees", 0, time.Second)

	body := scrape(t, metrics)
	if !strings.Contains(body, `companymanager_api_requests_total{code="204",method="DELETE",resource="/companies/{id}"} 1`) {
		t.Fatalf("expected upstream call to be counted, got: %s", body)
	}
	if !strings.Contains(body, `companymanager_api_requests_total{code="0",method="GET",resource="/employees"} 1`) {
		t.Fatalf("expected transport failure to be counted, got: %s", body)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var metrics *Metrics
	metrics.ObserveUpstream(http.MethodGet, "/companies", http.StatusOK, time.Millisecond)

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 from nil metrics, got %d", rr.Code)
	}
}

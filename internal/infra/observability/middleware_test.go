package observability_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/boddenberg/shop-advisor-go/internal/infra/observability"
)

func TestTracingMiddleware_EchoesTraceID(t *testing.T) {
	shutdown, err := observability.InitTracer("", "test")
	if err != nil {
		t.Fatalf("InitTracer: %v", err)
	}
	defer shutdown(context.Background())

	h := observability.TracingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Trace-Id"); got != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("unexpected trace id %q", got)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if got := rec.Header().Get("X-Trace-Id"); got != "" {
		t.Errorf("expected no trace id without traceparent, got %q", got)
	}
}

func TestZapLoggerMiddleware_RecordsRoutePattern(t *testing.T) {
	metrics := observability.NewMetrics()
	r := chi.NewRouter()
	r.Use(observability.ZapLoggerMiddleware(zap.NewNop(), metrics))
	r.Get("/v1/leads/{leadId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/leads/abc", nil))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	families, err := metrics.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, f := range families {
		for _, m := range f.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetValue() == "GET /v1/leads/{leadId}" {
					return
				}
			}
		}
	}
	t.Error("expected a duration sample labelled with the route pattern")
}

package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	chatdomain "github.com/boddenberg/shop-advisor-go/internal/chat/domain"
	chatservice "github.com/boddenberg/shop-advisor-go/internal/chat/service"
	"github.com/boddenberg/shop-advisor-go/internal/domain"
	"github.com/boddenberg/shop-advisor-go/internal/handler"
	"github.com/boddenberg/shop-advisor-go/internal/infra/cache"
	"github.com/boddenberg/shop-advisor-go/internal/infra/memory"
	"github.com/boddenberg/shop-advisor-go/internal/infra/observability"
	"github.com/boddenberg/shop-advisor-go/internal/infra/queue"
	"github.com/boddenberg/shop-advisor-go/internal/service"
)

// ============================================================
// Test fixtures
// ============================================================

type noContact struct{}

func (noContact) IsContactInfoResponse(string) bool { return false }
func (noContact) GenerateFollowUpMessage(domain.ContactExtractionResult) string {
	return ""
}

type echoStrategy struct{}

func (echoStrategy) CanHandle(chatdomain.TurnKind) bool { return true }

func (echoStrategy) Handle(_ context.Context, turn *chatdomain.TurnContext) (*chatdomain.TurnResult, error) {
	return &chatdomain.TurnResult{
		Kind:     turn.Kind,
		Question: turn.Request.Question,
		Answer:   "echo: " + turn.Request.Question,
		Products: []domain.Product{},
	}, nil
}

type testServer struct {
	handler http.Handler
}

func newTestServer(t *testing.T, opts handler.Options) *testServer {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()

	messages := memory.NewMessageStore()
	leads := memory.NewLeadStore()
	products := memory.NewProductStore()

	ctxCache := cache.New[string](time.Minute)
	t.Cleanup(ctxCache.Close)
	provider := service.NewProductContextProvider(products, ctxCache, metrics, logger)

	svcs := handler.Services{
		Chat:     chatservice.NewChatService(noContact{}, []chatservice.TurnStrategy{echoStrategy{}}, metrics, logger),
		Leads:    service.NewLeadService(leads, messages, queue.NoopPublisher{}, metrics, logger),
		Messages: service.NewMessageService(messages, logger),
		Products: service.NewProductService(products, provider, logger),
	}
	if opts.CORSAllowedOrigins == nil {
		opts.CORSAllowedOrigins = []string{"*"}
	}
	return &testServer{handler: handler.NewRouter(svcs, opts, metrics, logger)}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return v
}

// ============================================================
// Operational endpoints
// ============================================================

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, handler.Options{})

	rec := srv.do(t, http.MethodGet, "/healthz", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	status := decode[domain.HealthStatus](t, rec)
	if status.Status != "healthy" {
		t.Errorf("expected healthy, got %q", status.Status)
	}
}

func TestHealthz_DegradedDependency(t *testing.T) {
	srv := newTestServer(t, handler.Options{HealthChecks: []handler.HealthCheck{{
		Name:  "redis",
		Check: func(context.Context) error { return errors.New("connection refused") },
	}}})

	rec := srv.do(t, http.MethodGet, "/healthz", "")

	status := decode[domain.HealthStatus](t, rec)
	if status.Status != "degraded" {
		t.Errorf("expected degraded, got %q", status.Status)
	}
	if len(status.Services) != 2 || status.Services[1].Name != "redis" {
		t.Errorf("unexpected services %+v", status.Services)
	}
}

func TestReadyz(t *testing.T) {
	srv := newTestServer(t, handler.Options{HealthChecks: []handler.HealthCheck{{
		Name:  "redis",
		Check: func(context.Context) error { return errors.New("down") },
	}}})

	if rec := srv.do(t, http.MethodGet, "/readyz", ""); rec.Code != http.StatusOK {
		t.Errorf("non-critical failure should stay ready, got %d", rec.Code)
	}
}

func TestReadyz_CriticalFailure(t *testing.T) {
	srv := newTestServer(t, handler.Options{HealthChecks: []handler.HealthCheck{{
		Name:     "postgres",
		Critical: true,
		Check:    func(context.Context) error { return errors.New("down") },
	}}})

	if rec := srv.do(t, http.MethodGet, "/readyz", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
	status := decode[domain.HealthStatus](t, srv.do(t, http.MethodGet, "/healthz", ""))
	if status.Status != "unhealthy" {
		t.Errorf("expected unhealthy, got %q", status.Status)
	}
}

func TestMetrics(t *testing.T) {
	srv := newTestServer(t, handler.Options{})

	rec := srv.do(t, http.MethodGet, "/metrics", "")

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestLeadMetrics(t *testing.T) {
	srv := newTestServer(t, handler.Options{})
	srv.do(t, http.MethodPost, "/v1/ai/ask", `{"question":"hello"}`)

	rec := srv.do(t, http.MethodGet, "/v1/metrics/leads", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	m := decode[domain.LeadMetrics](t, rec)
	if m.TotalTurns != 1 {
		t.Errorf("expected 1 turn, got %d", m.TotalTurns)
	}
}

// ============================================================
// Sales chat
// ============================================================

func TestAsk(t *testing.T) {
	srv := newTestServer(t, handler.Options{})

	rec := srv.do(t, http.MethodPost, "/v1/ai/ask", `{"question":"Do you have laptops?"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	res := decode[chatdomain.TurnResult](t, rec)
	if res.Answer != "echo: Do you have laptops?" {
		t.Errorf("unexpected answer %q", res.Answer)
	}
}

func TestAsk_EmptyQuestion(t *testing.T) {
	srv := newTestServer(t, handler.Options{})

	rec := srv.do(t, http.MethodPost, "/v1/ai/ask", `{"question":""}`)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestAsk_RateLimited(t *testing.T) {
	limiter := handler.NewRateLimiter(0.001, 2, zap.NewNop())
	t.Cleanup(limiter.Stop)
	srv := newTestServer(t, handler.Options{AskLimiter: limiter})

	for i := 0; i < 2; i++ {
		if rec := srv.do(t, http.MethodPost, "/v1/ai/ask", `{"question":"hi"}`); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}

	rec := srv.do(t, http.MethodPost, "/v1/ai/ask", `{"question":"hi"}`)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}

	// Admin routes are not throttled.
	if rec := srv.do(t, http.MethodGet, "/v1/leads", ""); rec.Code != http.StatusOK {
		t.Errorf("expected 200 on /v1/leads, got %d", rec.Code)
	}
}

// ============================================================
// Leads
// ============================================================

func TestLeads_CRUD(t *testing.T) {
	srv := newTestServer(t, handler.Options{})

	rec := srv.do(t, http.MethodPost, "/v1/leads",
		`{"name":"Ana Lima","email":"ana@example.com","phone":"11987654321","interested_products":["p1"]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	lead := decode[domain.Lead](t, rec)
	if lead.ID == "" || lead.Status != domain.LeadStatusNew {
		t.Fatalf("unexpected lead %+v", lead)
	}

	rec = srv.do(t, http.MethodGet, "/v1/leads/"+lead.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", rec.Code)
	}

	rec = srv.do(t, http.MethodPut, "/v1/leads/"+lead.ID+"/status", `{"status":"contacted","notes":"called"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := decode[domain.Lead](t, rec); got.Status != domain.LeadStatusContacted || got.Notes != "called" {
		t.Errorf("unexpected lead after status update %+v", got)
	}

	rec = srv.do(t, http.MethodGet, "/v1/leads?status=contacted", "")
	if got := decode[[]domain.Lead](t, rec); len(got) != 1 {
		t.Errorf("expected 1 contacted lead, got %d", len(got))
	}

	rec = srv.do(t, http.MethodDelete, "/v1/leads/"+lead.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", rec.Code)
	}
	if rec := srv.do(t, http.MethodGet, "/v1/leads/"+lead.ID, ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestLeads_DuplicateEmail(t *testing.T) {
	srv := newTestServer(t, handler.Options{})
	body := `{"name":"Ana","email":"ana@example.com","phone":"11987654321"}`

	if rec := srv.do(t, http.MethodPost, "/v1/leads", body); rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	rec := srv.do(t, http.MethodPost, "/v1/leads", strings.Replace(body, "ana@", "ANA@", 1))
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}
}

func TestLeads_Validation(t *testing.T) {
	srv := newTestServer(t, handler.Options{})

	cases := []struct {
		name, method, path, body string
	}{
		{"missing phone", http.MethodPost, "/v1/leads", `{"name":"Ana","email":"ana@example.com"}`},
		{"bad json", http.MethodPost, "/v1/leads", `{`},
		{"unknown status filter", http.MethodGet, "/v1/leads?status=archived", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := srv.do(t, tc.method, tc.path, tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
			if body := decode[map[string]string](t, rec); body["error"] == "" {
				t.Error("expected an error message")
			}
		})
	}
}

func TestLeads_LinkAndHistory(t *testing.T) {
	srv := newTestServer(t, handler.Options{})

	lead := decode[domain.Lead](t, srv.do(t, http.MethodPost, "/v1/leads",
		`{"name":"Ana","email":"ana@example.com","phone":"11987654321"}`))
	msg := decode[domain.Message](t, srv.do(t, http.MethodPost, "/v1/messages",
		`{"question":"Is the X1 in stock?","answer":"Yes","product_ids":["p1"]}`))

	rec := srv.do(t, http.MethodPost, "/v1/leads/"+lead.ID+"/messages", `{"message_id":"`+msg.ID+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("link: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = srv.do(t, http.MethodGet, "/v1/leads/"+lead.ID+"/messages", "")
	withMsgs := decode[domain.LeadWithMessages](t, rec)
	if withMsgs.TotalMessages != 1 || withMsgs.RelatedMessages[0].ID != msg.ID {
		t.Errorf("unexpected lead messages %+v", withMsgs)
	}

	rec = srv.do(t, http.MethodGet, "/v1/leads/"+lead.ID+"/conversation", "")
	history := decode[domain.ConversationHistory](t, rec)
	if history.TotalMessages != 1 || history.ConversationStart == nil {
		t.Errorf("unexpected history %+v", history)
	}

	rec = srv.do(t, http.MethodGet, "/v1/leads/"+lead.ID+"/analytics", "")
	analytics := decode[domain.LeadAnalytics](t, rec)
	if analytics.LeadID != lead.ID || analytics.TotalMessages != 1 {
		t.Errorf("unexpected analytics %+v", analytics)
	}

	if rec := srv.do(t, http.MethodPost, "/v1/leads/missing/messages", `{"message_id":"`+msg.ID+`"}`); rec.Code != http.StatusNotFound {
		t.Errorf("link to unknown lead: expected 404, got %d", rec.Code)
	}
}

// ============================================================
// Messages
// ============================================================

func TestMessages_Filters(t *testing.T) {
	srv := newTestServer(t, handler.Options{})

	srv.do(t, http.MethodPost, "/v1/messages", `{"question":"q1","answer":"a1","product_ids":["p1"]}`)
	srv.do(t, http.MethodPost, "/v1/messages", `{"question":"q2","answer":"a2","product_ids":["p2"]}`)

	all := decode[[]domain.Message](t, srv.do(t, http.MethodGet, "/v1/messages", ""))
	if len(all) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(all))
	}

	byProduct := decode[[]domain.Message](t, srv.do(t, http.MethodGet, "/v1/messages?product_ids=p2,p9", ""))
	if len(byProduct) != 1 || byProduct[0].Question != "q2" {
		t.Errorf("unexpected product filter result %+v", byProduct)
	}

	today := time.Now().UTC().Format("2006-01-02")
	byDate := decode[[]domain.Message](t, srv.do(t, http.MethodGet,
		"/v1/messages?start_date="+today+"&end_date="+today, ""))
	if len(byDate) != 2 {
		t.Errorf("expected 2 messages for today, got %d", len(byDate))
	}

	if rec := srv.do(t, http.MethodGet, "/v1/messages?start_date=yesterday&end_date="+today, ""); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid date: expected 400, got %d", rec.Code)
	}
}

func TestMessages_GetAndDelete(t *testing.T) {
	srv := newTestServer(t, handler.Options{})

	rec := srv.do(t, http.MethodPost, "/v1/messages", `{"question":"q","answer":"a"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	msg := decode[domain.Message](t, rec)

	if rec := srv.do(t, http.MethodGet, "/v1/messages/"+msg.ID, ""); rec.Code != http.StatusOK {
		t.Errorf("get: expected 200, got %d", rec.Code)
	}
	if rec := srv.do(t, http.MethodDelete, "/v1/messages/"+msg.ID, ""); rec.Code != http.StatusOK {
		t.Errorf("delete: expected 200, got %d", rec.Code)
	}
	if rec := srv.do(t, http.MethodDelete, "/v1/messages/"+msg.ID, ""); rec.Code != http.StatusNotFound {
		t.Errorf("second delete: expected 404, got %d", rec.Code)
	}
	if rec := srv.do(t, http.MethodPost, "/v1/messages", `{"question":"q"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("missing answer: expected 400, got %d", rec.Code)
	}
}

// ============================================================
// Products
// ============================================================

func TestProducts_CRUD(t *testing.T) {
	srv := newTestServer(t, handler.Options{})

	rec := srv.do(t, http.MethodPost, "/v1/products",
		`{"name":"Laptop Pro 14","price":1299.9,"category":"Laptops","specs":{"ram":"16GB"}}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	p := decode[domain.Product](t, rec)

	rec = srv.do(t, http.MethodPut, "/v1/products/"+p.ID, `{"price":1199}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	updated := decode[domain.Product](t, rec)
	if updated.Price != 1199 || updated.Name != "Laptop Pro 14" || updated.Specs.RAM != "16GB" {
		t.Errorf("partial update lost fields: %+v", updated)
	}

	list := decode[[]domain.Product](t, srv.do(t, http.MethodGet, "/v1/products", ""))
	if len(list) != 1 {
		t.Errorf("expected 1 product, got %d", len(list))
	}

	if rec := srv.do(t, http.MethodDelete, "/v1/products/"+p.ID, ""); rec.Code != http.StatusOK {
		t.Errorf("delete: expected 200, got %d", rec.Code)
	}
	if rec := srv.do(t, http.MethodGet, "/v1/products/"+p.ID, ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
	if rec := srv.do(t, http.MethodPost, "/v1/products", `{"price":10}`); rec.Code != http.StatusBadRequest {
		t.Errorf("missing name: expected 400, got %d", rec.Code)
	}
}

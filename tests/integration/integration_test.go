package integration_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/boddenberg/shop-advisor-go/internal/app"
	chatdomain "github.com/boddenberg/shop-advisor-go/internal/chat/domain"
	"github.com/boddenberg/shop-advisor-go/internal/config"
	"github.com/boddenberg/shop-advisor-go/internal/domain"
	"github.com/boddenberg/shop-advisor-go/internal/infra/cache"
	"github.com/boddenberg/shop-advisor-go/internal/infra/memory"
	"github.com/boddenberg/shop-advisor-go/internal/infra/observability"
	"github.com/boddenberg/shop-advisor-go/internal/port"
)

// scriptedModel answers every prompt with the same MESSAGE:/PRODUCTS: reply.
type scriptedModel struct {
	reply string
	err   error

	mu    sync.Mutex
	calls int
}

func (m *scriptedModel) Name() string { return "scripted" }

func (m *scriptedModel) Complete(_ context.Context, _ []port.ChatTurn, _ string) (string, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.LeadEvent
}

func (p *recordingPublisher) PublishLeadEvent(_ context.Context, evt domain.LeadEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []domain.LeadEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.LeadEventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

func testConfig() *config.Config {
	return &config.Config{
		StoreBackend:          config.StoreMemory,
		LLMProvider:           config.ProviderGemini,
		LLMTimeout:            2 * time.Second,
		MaxRetries:            0,
		InitialBackoff:        time.Millisecond,
		MaxConcurrency:        10,
		ContactExtractionMode: "regex",
		InterestAIEnabled:     false,
		CORSAllowedOrigins:    []string{"*"},
	}
}

func newApp(t *testing.T, model *scriptedModel, publisher *recordingPublisher) *app.App {
	t.Helper()
	ctxCache := cache.New[string](time.Minute)
	t.Cleanup(ctxCache.Close)

	a, err := app.New(testConfig(), app.Backends{
		Messages:     memory.NewMessageStore(),
		Leads:        memory.NewLeadStore(),
		Products:     memory.NewProductStore(),
		ContextCache: ctxCache,
		Publisher:    publisher,
		Completer:    model,
	}, observability.NewMetrics(), zap.NewNop())
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	t.Cleanup(a.Close)
	return a
}

func call(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, path, nil)
	} else {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		req = httptest.NewRequest(method, path, strings.NewReader(string(raw)))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v (body %q)", err, rec.Body.String())
	}
	return v
}

// TestIntegration_LeadCaptureFlow walks a customer from a buying question to
// a completed lead: the catalog is seeded over the admin API, the first turn
// creates a placeholder lead and the contact reply fills it in.
func TestIntegration_LeadCaptureFlow(t *testing.T) {
	model := &scriptedModel{reply: "MESSAGE: The UltraBook Pro 14 is a great fit.\nPRODUCTS: UltraBook Pro 14"}
	publisher := &recordingPublisher{}
	h := newApp(t, model, publisher).Handler

	// --- Seed catalog ---
	rec := call(t, h, http.MethodPost, "/v1/products", map[string]any{
		"name":     "UltraBook Pro 14",
		"price":    1299.9,
		"category": "Laptops",
		"specs":    map[string]string{"ram": "16GB", "processor": "M3"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create product: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	product := decode[domain.Product](t, rec)

	// --- Turn 1: buying question ---
	rec = call(t, h, http.MethodPost, "/v1/ai/ask", chatdomain.TurnRequest{
		Question: "I want to buy a laptop, what is the price?",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("ask: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	first := decode[chatdomain.TurnResult](t, rec)

	if first.Kind != chatdomain.TurnNewQuestion {
		t.Errorf("expected NEW_QUESTION, got %s", first.Kind)
	}
	if first.Answer != "The UltraBook Pro 14 is a great fit." {
		t.Errorf("unexpected answer %q", first.Answer)
	}
	if len(first.Products) != 1 || first.Products[0].ID != product.ID {
		t.Fatalf("expected the catalog product to be resolved, got %+v", first.Products)
	}
	if !first.LeadCreated || first.PreliminaryLeadID == "" {
		t.Fatalf("expected a preliminary lead, got %+v", first)
	}
	if first.LeadCaptureMessage == "" {
		t.Error("expected a capture message")
	}
	if first.MessageID == "" {
		t.Error("expected the message to be persisted")
	}

	leadID := first.PreliminaryLeadID
	lead := decode[domain.Lead](t, call(t, h, http.MethodGet, "/v1/leads/"+leadID, nil))
	if lead.Status != domain.LeadStatusPendingContactInfo {
		t.Errorf("expected pending_contact_info, got %s", lead.Status)
	}

	// --- Turn 2: contact reply ---
	rec = call(t, h, http.MethodPost, "/v1/ai/ask", chatdomain.TurnRequest{
		Question: "Je m'appelle Marie Martin, email marie.martin@example.com, téléphone 0612345678",
		LeadID:   leadID,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("contact reply: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	second := decode[chatdomain.TurnResult](t, rec)
	if second.Kind != chatdomain.TurnContactReply {
		t.Fatalf("expected CONTACT_REPLY, got %s", second.Kind)
	}
	if !second.LeadUpdated {
		t.Fatalf("expected lead update, got %+v", second)
	}

	lead = decode[domain.Lead](t, call(t, h, http.MethodGet, "/v1/leads/"+leadID, nil))
	if lead.Name != "Marie Martin" || lead.Email != "marie.martin@example.com" {
		t.Errorf("unexpected contact %q %q", lead.Name, lead.Email)
	}
	if lead.Status != domain.LeadStatusNew {
		t.Errorf("expected status new, got %s", lead.Status)
	}

	// --- History ---
	history := decode[domain.ConversationHistory](t, call(t, h, http.MethodGet, "/v1/leads/"+leadID+"/conversation", nil))
	if history.TotalMessages != 2 {
		t.Fatalf("expected 2 messages in history, got %d", history.TotalMessages)
	}
	if history.Messages[0].ID != first.MessageID {
		t.Errorf("history should start with the source message")
	}

	byProduct := decode[[]domain.Message](t, call(t, h, http.MethodGet, "/v1/messages?product_ids="+product.ID, nil))
	if len(byProduct) != 1 || byProduct[0].ID != first.MessageID {
		t.Errorf("expected the first turn to reference the product, got %+v", byProduct)
	}

	// --- Events and metrics ---
	types := publisher.types()
	if len(types) != 2 || types[0] != domain.LeadEventCaptured || types[1] != domain.LeadEventContactUpdated {
		t.Errorf("unexpected lead events %v", types)
	}

	m := decode[domain.LeadMetrics](t, call(t, h, http.MethodGet, "/v1/metrics/leads", nil))
	if m.QuestionTurns != 1 || m.ContactReplyTurns != 1 || m.LeadsCreated != 1 || m.LeadsCompleted != 1 {
		t.Errorf("unexpected lead metrics %+v", m)
	}
}

// TestIntegration_ExistingCustomerIsLinked checks that a returning customer
// identified by email gets the new message linked instead of a second lead.
func TestIntegration_ExistingCustomerIsLinked(t *testing.T) {
	model := &scriptedModel{reply: "MESSAGE: Sure, it ships tomorrow.\nPRODUCTS: none"}
	h := newApp(t, model, &recordingPublisher{}).Handler

	rec := call(t, h, http.MethodPost, "/v1/leads", domain.CreateLeadRequest{
		Name: "Ana Lima", Email: "ana@example.com", Phone: "11987654321",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create lead: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	lead := decode[domain.Lead](t, rec)

	res := decode[chatdomain.TurnResult](t, call(t, h, http.MethodPost, "/v1/ai/ask", chatdomain.TurnRequest{
		Question: "I want to buy it now, is delivery available?",
		Email:    "ANA@example.com",
	}))
	if res.LeadCreated {
		t.Error("must not create a second lead")
	}
	if res.LinkedLeadID != lead.ID {
		t.Errorf("expected link to %s, got %q", lead.ID, res.LinkedLeadID)
	}

	leads := decode[[]domain.Lead](t, call(t, h, http.MethodGet, "/v1/leads", nil))
	if len(leads) != 1 {
		t.Errorf("expected one lead, got %d", len(leads))
	}
	withMsgs := decode[domain.LeadWithMessages](t, call(t, h, http.MethodGet, "/v1/leads/"+lead.ID+"/messages", nil))
	if withMsgs.TotalMessages != 1 {
		t.Errorf("expected one linked message, got %d", withMsgs.TotalMessages)
	}
}

// TestIntegration_ModelFailureIsGeneric ensures provider errors never leak
// to the caller and nothing is persisted for the failed turn.
func TestIntegration_ModelFailureIsGeneric(t *testing.T) {
	model := &scriptedModel{err: errors.New("googleapi: Error 403: key leaked-secret-123 revoked")}
	h := newApp(t, model, &recordingPublisher{}).Handler

	rec := call(t, h, http.MethodPost, "/v1/ai/ask", chatdomain.TurnRequest{Question: "I want to buy a laptop"})

	if rec.Code == http.StatusOK {
		t.Fatalf("expected a failure status, got 200")
	}
	if strings.Contains(rec.Body.String(), "leaked-secret-123") {
		t.Error("provider error leaked to the caller")
	}

	msgs := decode[[]domain.Message](t, call(t, h, http.MethodGet, "/v1/messages", nil))
	if len(msgs) != 0 {
		t.Errorf("failed turn must not persist a message, got %d", len(msgs))
	}
}

package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/boddenberg/shop-advisor-go/internal/domain"
	"github.com/boddenberg/shop-advisor-go/internal/infra/cache"
	"github.com/boddenberg/shop-advisor-go/internal/infra/memory"
	"github.com/boddenberg/shop-advisor-go/internal/infra/observability"
	"github.com/boddenberg/shop-advisor-go/internal/service"
)

// ============================================================
// Fakes
// ============================================================

type fakeGenerator struct {
	mu       sync.Mutex
	reply    string
	err      error
	prompts  []string
	contexts []string
}

func (f *fakeGenerator) GenerateAnswer(_ context.Context, prompt, productContext string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	f.contexts = append(f.contexts, productContext)
	return f.reply, f.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.LeadEvent
	err    error
}

func (p *recordingPublisher) PublishLeadEvent(_ context.Context, evt domain.LeadEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []domain.LeadEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.LeadEventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// ============================================================
// Fixtures
// ============================================================

func sampleCatalog() []domain.Product {
	return []domain.Product{
		{
			ID:           "p-laptop",
			Name:         "UltraBook Pro 14",
			Description:  "Thin and light laptop",
			Price:        1299.99,
			Tags:         []string{"portable", "work"},
			Category:     "Laptops",
			Brand:        "Acme",
			Rating:       4.5,
			ReviewsCount: 120,
			Available:    true,
			Specs:        domain.ProductSpecs{Processor: "M3", RAM: "16GB"},
		},
		{
			ID:          "p-mouse",
			Name:        "Gaming Mouse",
			Description: "Wireless mouse",
			Price:       49,
			Category:    "Accessories",
			Available:   true,
		},
	}
}

func newContextProvider(t *testing.T, products *memory.ProductStore) (*service.ProductContextProvider, *observability.Metrics) {
	t.Helper()
	c := cache.New[string](time.Minute)
	t.Cleanup(c.Close)
	metrics := observability.NewMetrics()
	return service.NewProductContextProvider(products, c, metrics, zap.NewNop()), metrics
}

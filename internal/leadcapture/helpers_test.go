package leadcapture_test

import (
	"context"
	"sync"
	"testing"

	"github.com/boddenberg/shop-advisor-go/internal/leadcapture"
)

// scriptedGenerator returns a fixed answer or error and records prompts.
type scriptedGenerator struct {
	mu      sync.Mutex
	answer  string
	err     error
	prompts []string
}

func (g *scriptedGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	return g.answer, g.err
}

type countingMetrics struct {
	mu        sync.Mutex
	attempts  map[string]int
	fallbacks map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{attempts: map[string]int{}, fallbacks: map[string]int{}}
}

func (m *countingMetrics) IncrAIAttempt(c string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts[c]++
}

func (m *countingMetrics) IncrAIFallback(c string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallbacks[c]++
}

func newExtractor(t *testing.T) *leadcapture.ContactExtractor {
	t.Helper()
	e, err := leadcapture.NewContactExtractor(leadcapture.MustDefaultKeywords())
	if err != nil {
		t.Fatalf("NewContactExtractor: %v", err)
	}
	return e
}

func strPtr(s string) *string { return &s }

func deref(s *string) string {
	if s == nil {
		return "<nil>"
	}
	return *s
}

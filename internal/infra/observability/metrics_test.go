package observability_test

import (
	"testing"

	"github.com/boddenberg/shop-advisor-go/internal/infra/observability"
)

func TestMetrics_LeadSnapshot(t *testing.T) {
	m := observability.NewMetrics()

	m.IncrTurn("NEW_QUESTION", "success")
	m.IncrTurn("NEW_QUESTION", "success")
	m.IncrTurn("NEW_QUESTION", "error")
	m.IncrTurn("NEW_QUESTION", "success")
	m.IncrTurn("CONTACT_REPLY", "success")
	m.IncrLead(observability.LeadEventCreated)
	m.IncrLead(observability.LeadEventCompleted)
	m.IncrInterestLevel("high")
	m.IncrInterestLevel("medium")
	m.IncrInterestLevel("medium")
	m.IncrAIAttempt(observability.ComponentInterest)
	m.IncrAIAttempt(observability.ComponentInterest)
	m.IncrAIFallback(observability.ComponentInterest)
	m.IncrCacheHit("product_context")
	m.IncrCacheHit("product_context")
	m.IncrCacheHit("product_context")
	m.IncrCacheMiss("product_context")

	snap := m.GetLeadSnapshot()

	if snap.TotalTurns != 5 {
		t.Errorf("expected 5 turns, got %d", snap.TotalTurns)
	}
	if snap.QuestionTurns != 4 || snap.ContactReplyTurns != 1 {
		t.Errorf("unexpected turn split %d/%d", snap.QuestionTurns, snap.ContactReplyTurns)
	}
	if snap.CaptureRate != 0.25 {
		t.Errorf("expected capture rate 0.25, got %v", snap.CaptureRate)
	}
	if snap.AIFallbackRate != 0.5 {
		t.Errorf("expected fallback rate 0.5, got %v", snap.AIFallbackRate)
	}
	if snap.CacheHitRate != 0.75 {
		t.Errorf("expected cache hit rate 0.75, got %v", snap.CacheHitRate)
	}
	if snap.HighInterestTurns != 1 || snap.MediumInterestTurns != 2 {
		t.Errorf("unexpected interest counts %d/%d", snap.HighInterestTurns, snap.MediumInterestTurns)
	}
	if snap.Period != "all_time" {
		t.Errorf("unexpected period %s", snap.Period)
	}
}

func TestMetrics_EmptySnapshot(t *testing.T) {
	snap := observability.NewMetrics().GetLeadSnapshot()
	if snap.TotalTurns != 0 || snap.CaptureRate != 0 || snap.CacheHitRate != 0 {
		t.Errorf("expected zero snapshot, got %+v", snap)
	}
}

func TestNewMetrics_PrivateRegistry(t *testing.T) {
	a := observability.NewMetrics()
	b := observability.NewMetrics()
	if a.Registry == b.Registry {
		t.Fatal("expected separate registries")
	}
}

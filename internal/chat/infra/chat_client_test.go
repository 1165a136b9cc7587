package infra_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/boddenberg/shop-advisor-go/internal/chat/infra"
	"github.com/boddenberg/shop-advisor-go/internal/domain"
	"github.com/boddenberg/shop-advisor-go/internal/infra/resilience"
	"github.com/boddenberg/shop-advisor-go/internal/port"
)

type scriptedCompleter struct {
	replies []string
	errs    []error
	calls   int
	history [][]port.ChatTurn
	block   bool
}

func (s *scriptedCompleter) Name() string { return "scripted" }

func (s *scriptedCompleter) Complete(ctx context.Context, history []port.ChatTurn, _ string) (string, error) {
	i := s.calls
	s.calls++
	s.history = append(s.history, history)
	if s.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.replies) {
		return s.replies[i], nil
	}
	return "", errors.New("script exhausted")
}

type errorCounter struct{ n int }

func (e *errorCounter) IncrExternalError(string) { e.n++ }

func fastConfig() resilience.Config {
	return resilience.Config{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxConcurrency: 2}
}

func TestChatClient_GenerateAnswerSeedsHistory(t *testing.T) {
	comp := &scriptedCompleter{replies: []string{"MESSAGE: hi"}}
	c := infra.NewChatClient(comp, resilience.NewCircuitBreaker("test"), fastConfig(), nil, zap.NewNop())

	out, err := c.GenerateAnswer(context.Background(), "question", "catalog")
	if err != nil {
		t.Fatalf("GenerateAnswer: %v", err)
	}
	if out != "MESSAGE: hi" {
		t.Errorf("unexpected output %q", out)
	}
	h := comp.history[0]
	if len(h) != 2 || h[0].Role != "user" || h[0].Text != "catalog" || h[1].Role != "model" {
		t.Errorf("unexpected seed history %+v", h)
	}
}

func TestChatClient_RetriesTransientFailures(t *testing.T) {
	comp := &scriptedCompleter{
		errs:    []error{errors.New("503"), nil},
		replies: []string{"", "ok"},
	}
	c := infra.NewChatClient(comp, resilience.NewCircuitBreaker("test"), fastConfig(), nil, zap.NewNop())

	out, err := c.Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != "ok" || comp.calls != 2 {
		t.Errorf("expected success on second attempt, got %q after %d calls", out, comp.calls)
	}
	if len(comp.history[0]) != 0 {
		t.Error("Generate must not send history")
	}
}

func TestChatClient_ExhaustedRetriesIsExternalError(t *testing.T) {
	boom := errors.New("boom")
	comp := &scriptedCompleter{errs: []error{boom, boom, boom}}
	counter := &errorCounter{}
	c := infra.NewChatClient(comp, resilience.NewCircuitBreaker("test"), fastConfig(), counter, zap.NewNop())

	_, err := c.Generate(context.Background(), "prompt")
	var ext *domain.ErrExternalService
	if !errors.As(err, &ext) || ext.Service != "scripted" {
		t.Fatalf("expected ErrExternalService, got %v", err)
	}
	if comp.calls != 3 || counter.n != 1 {
		t.Errorf("expected 3 attempts and 1 error metric, got %d and %d", comp.calls, counter.n)
	}
}

func TestChatClient_AttemptTimeout(t *testing.T) {
	comp := &scriptedCompleter{block: true}
	cfg := resilience.Config{MaxRetries: 0, CallTimeout: 10 * time.Millisecond}
	c := infra.NewChatClient(comp, resilience.NewCircuitBreaker("test"), cfg, nil, zap.NewNop())

	_, err := c.Generate(context.Background(), "prompt")
	var te *domain.ErrTimeout
	if !errors.As(err, &te) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
}

func TestChatClient_OpenBreaker(t *testing.T) {
	boom := errors.New("down")
	errs := make([]error, 20)
	for i := range errs {
		errs[i] = boom
	}
	comp := &scriptedCompleter{errs: errs}
	cfg := resilience.Config{MaxRetries: 0}
	c := infra.NewChatClient(comp, resilience.NewCircuitBreaker("test"), cfg, nil, zap.NewNop())

	for i := 0; i < 5; i++ {
		_, _ = c.Generate(context.Background(), "prompt")
	}
	_, err := c.Generate(context.Background(), "prompt")
	var open *domain.ErrCircuitOpen
	if !errors.As(err, &open) {
		t.Errorf("expected ErrCircuitOpen after repeated failures, got %v", err)
	}
	if comp.calls != 5 {
		t.Errorf("open breaker must not call the model, got %d calls", comp.calls)
	}
}

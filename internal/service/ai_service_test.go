package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/boddenberg/shop-advisor-go/internal/infra/memory"
	"github.com/boddenberg/shop-advisor-go/internal/service"
)

func TestParseAnswer(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantMsg   string
		wantNames []string
	}{
		{
			name:      "both sections",
			raw:       "MESSAGE: The UltraBook is a great fit.\nPRODUCTS: UltraBook Pro 14, Gaming Mouse",
			wantMsg:   "The UltraBook is a great fit.",
			wantNames: []string{"UltraBook Pro 14", "Gaming Mouse"},
		},
		{
			name:      "bulleted list",
			raw:       "MESSAGE: Voici mes choix\nPRODUCTS:\n- UltraBook Pro 14\n* Gaming Mouse\n",
			wantMsg:   "Voici mes choix",
			wantNames: []string{"UltraBook Pro 14", "Gaming Mouse"},
		},
		{
			name:      "no markers",
			raw:       "  Hello! How can I help?  ",
			wantMsg:   "Hello! How can I help?",
			wantNames: []string{},
		},
		{
			name:      "none",
			raw:       "message: Nothing fits.\nproducts: none",
			wantMsg:   "Nothing fits.",
			wantNames: []string{},
		},
		{
			name:      "aucun and duplicates",
			raw:       "MESSAGE: ok\nPRODUCTS: Gaming Mouse, gaming mouse, aucun",
			wantMsg:   "ok",
			wantNames: []string{"Gaming Mouse"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, names := service.ParseAnswer(tt.raw)
			if msg != tt.wantMsg {
				t.Errorf("message: got %q, want %q", msg, tt.wantMsg)
			}
			if strings.Join(names, "|") != strings.Join(tt.wantNames, "|") {
				t.Errorf("names: got %v, want %v", names, tt.wantNames)
			}
		})
	}
}

func TestAiService_Ask(t *testing.T) {
	store := memory.NewProductStore(sampleCatalog()...)
	provider, _ := newContextProvider(t, store)
	gen := &fakeGenerator{reply: "MESSAGE: Take the UltraBook.\nPRODUCTS: UltraBook Pro 14, Unknown Thing"}
	svc := service.NewAiService(gen, provider, zap.NewNop())

	answer, err := svc.Ask(context.Background(), "I need a laptop for work")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if answer.Message != "Take the UltraBook." {
		t.Errorf("unexpected message %q", answer.Message)
	}
	if len(answer.Products) != 1 || answer.Products[0].ID != "p-laptop" {
		t.Errorf("expected only the resolvable laptop, got %+v", answer.Products)
	}
	if ids := answer.ProductIDs(); len(ids) != 1 || ids[0] != "p-laptop" {
		t.Errorf("unexpected ids %v", ids)
	}
	if gen.prompts[0] != "I need a laptop for work" {
		t.Errorf("question not forwarded: %q", gen.prompts[0])
	}
	if !strings.Contains(gen.contexts[0], "UltraBook Pro 14") {
		t.Error("product context not forwarded")
	}
}

func TestAiService_AskPropagatesModelError(t *testing.T) {
	store := memory.NewProductStore(sampleCatalog()...)
	provider, _ := newContextProvider(t, store)
	boom := errors.New("model down")
	svc := service.NewAiService(&fakeGenerator{err: boom}, provider, zap.NewNop())

	if _, err := svc.Ask(context.Background(), "hi"); !errors.Is(err, boom) {
		t.Errorf("expected model error, got %v", err)
	}
}

func TestAiService_Acknowledge(t *testing.T) {
	store := memory.NewProductStore(sampleCatalog()...)
	provider, _ := newContextProvider(t, store)
	gen := &fakeGenerator{reply: "MESSAGE: Merci Marie !\nPRODUCTS: none"}
	svc := service.NewAiService(gen, provider, zap.NewNop())

	msg, err := svc.Acknowledge(context.Background(), "Je m'appelle Marie Martin")
	if err != nil {
		t.Fatalf("Acknowledge: %v", err)
	}
	if msg != "Merci Marie !" {
		t.Errorf("unexpected acknowledgement %q", msg)
	}
	if !strings.Contains(gen.prompts[0], "Je m'appelle Marie Martin") {
		t.Error("reply not embedded in prompt")
	}
}

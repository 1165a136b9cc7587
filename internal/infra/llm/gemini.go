// Package llm adapts hosted generative models to port.Completer.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/boddenberg/shop-advisor-go/internal/port"
)

const defaultGeminiModel = "gemini-1.5-flash"

// GeminiProvider calls Google Gemini. Each call opens a fresh chat session
// with the supplied history, so the provider itself holds no conversation state.
type GeminiProvider struct {
	client  *genai.Client
	modelID string
}

// NewGeminiProvider creates the provider.
func NewGeminiProvider(ctx context.Context, apiKey, modelID string) (*GeminiProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("llm: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("llm: create gemini client: %w", err)
	}
	return &GeminiProvider{client: client, modelID: modelID}, nil
}

func (g *GeminiProvider) Name() string { return "gemini" }

// Complete replays history and sends prompt as the next user turn.
func (g *GeminiProvider) Complete(ctx context.Context, history []port.ChatTurn, prompt string) (string, error) {
	model := g.client.GenerativeModel(g.modelID)
	cs := model.StartChat()

	for _, turn := range history {
		text := strings.TrimSpace(turn.Text)
		if text == "" {
			continue
		}
		role := "user"
		if turn.Role == "model" || turn.Role == "assistant" {
			role = "model"
		}
		cs.History = append(cs.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(text)},
		})
	}

	resp, err := cs.SendMessage(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("llm: gemini completion: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return "", errors.New("llm: gemini returned no candidates")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", errors.New("llm: gemini returned empty content")
	}

	var out strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			out.WriteString(string(text))
		}
	}
	return strings.TrimSpace(out.String()), nil
}

// Close releases the underlying client.
func (g *GeminiProvider) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

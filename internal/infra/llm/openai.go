package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/boddenberg/shop-advisor-go/internal/port"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIProvider calls any OpenAI-compatible chat completion endpoint.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates the provider. baseURL is optional and targets
// compatible gateways.
func NewOpenAIProvider(apiKey, baseURL, model string) (*OpenAIProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("llm: openai api key is required")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIProvider{client: openai.NewClientWithConfig(cfg), model: model}, nil
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Complete(ctx context.Context, history []port.ChatTurn, prompt string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	for _, turn := range history {
		role := openai.ChatMessageRoleUser
		if turn.Role == "model" || turn.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: turn.Text})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    p.model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("llm: openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("llm: openai returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/shop-advisor-go/internal/domain"
	"github.com/boddenberg/shop-advisor-go/internal/port"
)

// AiService answers customer questions grounded on the product catalog.
type AiService struct {
	generator port.AnswerGenerator
	products  *ProductContextProvider
	logger    *zap.Logger
}

// NewAiService creates the service.
func NewAiService(generator port.AnswerGenerator, products *ProductContextProvider, logger *zap.Logger) *AiService {
	return &AiService{generator: generator, products: products, logger: logger}
}

// Ask sends the question with the catalog context and resolves the
// recommended product names against the catalog.
func (s *AiService) Ask(ctx context.Context, question string) (*domain.Answer, error) {
	ctx, span := tracer.Start(ctx, "AiService.Ask")
	defer span.End()

	productContext, err := s.products.FetchProductContext(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := s.generator.GenerateAnswer(ctx, question, productContext)
	if err != nil {
		return nil, err
	}

	message, names := ParseAnswer(raw)
	products := s.products.ProductsByNames(ctx, names)
	span.SetAttributes(
		attribute.Int("answer.product_names", len(names)),
		attribute.Int("answer.products", len(products)),
	)

	s.logger.Debug("question answered",
		zap.Strings("product_names", names),
		zap.Int("products_resolved", len(products)),
	)

	return &domain.Answer{Message: message, Products: products}, nil
}

// Acknowledge produces the courtesy reply to a message carrying contact details.
func (s *AiService) Acknowledge(ctx context.Context, reply string) (string, error) {
	ctx, span := tracer.Start(ctx, "AiService.Acknowledge")
	defer span.End()

	productContext, err := s.products.FetchProductContext(ctx)
	if err != nil {
		return "", err
	}

	prompt := fmt.Sprintf(
		"The customer just sent their contact details: %q. Thank them briefly, confirm that a sales advisor will get back to them, and answer in the customer's language.",
		reply,
	)
	raw, err := s.generator.GenerateAnswer(ctx, prompt, productContext)
	if err != nil {
		return "", err
	}
	message, _ := ParseAnswer(raw)
	return message, nil
}

var (
	messageMarker  = regexp.MustCompile(`(?i)MESSAGE\s*:`)
	productsMarker = regexp.MustCompile(`(?i)PRODUCTS\s*:`)
	bulletPrefix   = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s*`)
)

// ParseAnswer splits a MESSAGE:/PRODUCTS: reply into the customer-facing
// text and the recommended product names. Without a MESSAGE: marker the
// whole text (minus any PRODUCTS: section) is the message.
func ParseAnswer(raw string) (string, []string) {
	text := raw
	var productsPart string
	if loc := productsMarker.FindStringIndex(text); loc != nil {
		productsPart = text[loc[1]:]
		text = text[:loc[0]]
	}
	if loc := messageMarker.FindStringIndex(text); loc != nil {
		text = text[loc[1]:]
	}
	return strings.TrimSpace(text), parseProductNames(productsPart)
}

func parseProductNames(section string) []string {
	names := []string{}
	seen := make(map[string]bool)
	fields := strings.FieldsFunc(section, func(r rune) bool { return r == ',' || r == '\n' })
	for _, f := range fields {
		name := strings.TrimSpace(bulletPrefix.ReplaceAllString(f, ""))
		name = strings.Trim(name, `"'*.`)
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		switch strings.ToLower(name) {
		case "none", "aucun", "aucune", "n/a":
			continue
		}
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		names = append(names, name)
	}
	return names
}

// Package app assembles the advisor's services and HTTP surface from a set
// of already-opened backends.
package app

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	chatinfra "github.com/boddenberg/shop-advisor-go/internal/chat/infra"
	chatport "github.com/boddenberg/shop-advisor-go/internal/chat/port"
	chatservice "github.com/boddenberg/shop-advisor-go/internal/chat/service"
	"github.com/boddenberg/shop-advisor-go/internal/config"
	"github.com/boddenberg/shop-advisor-go/internal/handler"
	"github.com/boddenberg/shop-advisor-go/internal/infra/observability"
	"github.com/boddenberg/shop-advisor-go/internal/infra/resilience"
	"github.com/boddenberg/shop-advisor-go/internal/leadcapture"
	"github.com/boddenberg/shop-advisor-go/internal/port"
	"github.com/boddenberg/shop-advisor-go/internal/service"
)

// Backends are the infrastructure adapters selected by configuration.
type Backends struct {
	Messages     port.MessageStore
	Leads        port.LeadStore
	Products     port.ProductStore
	ContextCache port.Cache[string]
	Publisher    port.LeadEventPublisher
	Completer    port.Completer
	HealthChecks []handler.HealthCheck
}

// App holds the wired services and the HTTP handler.
type App struct {
	Handler  http.Handler
	Chat     *chatservice.ChatService
	Leads    *service.LeadService
	Messages *service.MessageService
	Products *service.ProductService

	limiter *handler.RateLimiter
}

// New wires every component on top of b.
func New(cfg *config.Config, b Backends, metrics *observability.Metrics, logger *zap.Logger) (*App, error) {
	kw, err := leadcapture.LoadKeywords(cfg.KeywordsFile)
	if err != nil {
		return nil, fmt.Errorf("load keywords: %w", err)
	}
	extractor, err := leadcapture.NewContactExtractor(kw)
	if err != nil {
		return nil, fmt.Errorf("contact extractor: %w", err)
	}

	// --- Language model ---
	chatClient := chatinfra.NewChatClient(
		b.Completer,
		resilience.NewCircuitBreaker("llm-"+b.Completer.Name()),
		resilience.Config{
			MaxRetries:     cfg.MaxRetries,
			InitialBackoff: cfg.InitialBackoff,
			MaxConcurrency: cfg.MaxConcurrency,
			CallTimeout:    cfg.LLMTimeout,
		},
		metrics,
		logger,
	)

	// --- Lead capture ---
	var interestAI leadcapture.Generator
	if cfg.InterestAIEnabled {
		interestAI = chatClient
	}
	analyzer := leadcapture.NewInterestAnalyzer(kw, extractor, interestAI, metrics, logger)

	var reader chatport.ContactReader = leadcapture.RegexExtractor{ContactExtractor: extractor}
	if cfg.ContactExtractionMode == "ai" {
		reader = leadcapture.NewLLMContactExtractor(extractor, chatClient, metrics, logger)
	}

	// --- Services ---
	contextProvider := service.NewProductContextProvider(b.Products, b.ContextCache, metrics, logger)
	aiSvc := service.NewAiService(chatClient, contextProvider, logger)

	a := &App{
		Leads:    service.NewLeadService(b.Leads, b.Messages, b.Publisher, metrics, logger),
		Messages: service.NewMessageService(b.Messages, logger),
		Products: service.NewProductService(b.Products, contextProvider, logger),
		limiter:  handler.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, logger),
	}
	a.Chat = chatservice.NewChatService(extractor, []chatservice.TurnStrategy{
		chatservice.NewQuestionStrategy(aiSvc, analyzer, reader, b.Leads, b.Messages, b.Publisher, metrics, logger),
		chatservice.NewContactStrategy(aiSvc, reader, extractor, b.Leads, b.Messages, b.Publisher, metrics, logger),
	}, metrics, logger)

	a.Handler = handler.NewRouter(handler.Services{
		Chat:     a.Chat,
		Leads:    a.Leads,
		Messages: a.Messages,
		Products: a.Products,
	}, handler.Options{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		AskLimiter:         a.limiter,
		HealthChecks:       b.HealthChecks,
	}, metrics, logger)

	logger.Info("advisor wired",
		zap.String("llm_provider", b.Completer.Name()),
		zap.String("contact_extraction", cfg.ContactExtractionMode),
		zap.Bool("interest_ai", cfg.InterestAIEnabled),
	)
	return a, nil
}

// Close releases background resources owned by the app.
func (a *App) Close() {
	a.limiter.Stop()
}

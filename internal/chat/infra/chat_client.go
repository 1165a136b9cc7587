package infra

import (
	"context"
	"errors"
	"strings"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	maindomain "github.com/boddenberg/shop-advisor-go/internal/domain"
	"github.com/boddenberg/shop-advisor-go/internal/infra/resilience"
	"github.com/boddenberg/shop-advisor-go/internal/port"
)

// tracer é o tracer OpenTelemetry para o módulo chat/infra.
var tracer = otel.Tracer("chat/infra")

// contextAck é a resposta do modelo que fecha o "seed" da conversa.
// Ela fixa o formato MESSAGE:/PRODUCTS: que o AiService sabe interpretar.
const contextAck = "Okay, I will answer based on this product list and recommend relevant products. " +
	"I will format my responses with MESSAGE: and PRODUCTS: as requested."

// ExternalErrorCounter registra falhas do modelo no Prometheus.
type ExternalErrorCounter interface {
	IncrExternalError(service string)
}

// ============================================================
// ChatClient: cliente do modelo generativo com resiliência
// ============================================================
//
// O ChatClient embrulha qualquer port.Completer (Gemini, OpenAI) com:
//   - bulkhead: limita chamadas simultâneas ao modelo
//   - circuit breaker: se o modelo estiver fora, falha rápido
//   - retry com backoff: tenta de novo em falha temporária
//   - timeout por tentativa (LLM_TIMEOUT)
//
// Ele implementa duas interfaces:
//   - port.AnswerGenerator (GenerateAnswer) → usado pelo AiService
//   - leadcapture.Generator (Generate)      → usado pelos analisadores com IA
//
// A conversa é stateless: a cada chamada o histórico é reenviado
// (contexto do catálogo + confirmação do modelo), então o client
// não guarda nenhum estado entre turnos.
type ChatClient struct {
	completer port.Completer
	cb        *gobreaker.CircuitBreaker
	cfg       resilience.Config
	bulkhead  *resilience.Bulkhead
	metrics   ExternalErrorCounter
	logger    *zap.Logger
}

// NewChatClient cria o client. metrics pode ser nil.
func NewChatClient(
	completer port.Completer,
	cb *gobreaker.CircuitBreaker,
	cfg resilience.Config,
	metrics ExternalErrorCounter,
	logger *zap.Logger,
) *ChatClient {
	return &ChatClient{
		completer: completer,
		cb:        cb,
		cfg:       cfg,
		bulkhead:  resilience.NewBulkhead(cfg.MaxConcurrency),
		metrics:   metrics,
		logger:    logger,
	}
}

// GenerateAnswer responde prompt numa conversa "semeada" com o contexto
// de produtos:
//
//	user:  <contexto do catálogo>
//	model: <contextAck>
//	user:  <prompt>
func (c *ChatClient) GenerateAnswer(ctx context.Context, prompt, productContext string) (string, error) {
	ctx, span := tracer.Start(ctx, "ChatClient.GenerateAnswer")
	defer span.End()
	span.SetAttributes(attribute.String("llm.provider", c.completer.Name()))

	history := []port.ChatTurn{
		{Role: "user", Text: productContext},
		{Role: "model", Text: contextAck},
	}
	return c.complete(ctx, history, prompt)
}

// Generate faz uma chamada única, sem histórico.
func (c *ChatClient) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, span := tracer.Start(ctx, "ChatClient.Generate")
	defer span.End()
	span.SetAttributes(attribute.String("llm.provider", c.completer.Name()))

	return c.complete(ctx, nil, prompt)
}

// complete executa a chamada com bulkhead → circuit breaker → retry → timeout.
func (c *ChatClient) complete(ctx context.Context, history []port.ChatTurn, prompt string) (string, error) {
	service := c.completer.Name()

	if err := c.bulkhead.Acquire(ctx); err != nil {
		return "", &maindomain.ErrTimeout{Operation: service + " bulkhead"}
	}
	defer c.bulkhead.Release()

	var text string
	_, err := c.cb.Execute(func() (any, error) {
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			return resilience.WithAttemptTimeout(ctx, c.cfg, func(ctx context.Context) error {
				out, err := c.completer.Complete(ctx, history, prompt)
				if err != nil {
					return err
				}
				if strings.TrimSpace(out) == "" {
					return errors.New("empty completion")
				}
				text = out
				return nil
			})
		})
		return nil, innerErr
	})
	if err == nil {
		return text, nil
	}

	if c.metrics != nil {
		c.metrics.IncrExternalError(service)
	}
	c.logger.Warn("model call failed", zap.String("provider", service), zap.Error(err))

	switch {
	case resilience.IsBreakerOpen(err):
		return "", &maindomain.ErrCircuitOpen{Service: service}
	case errors.Is(err, context.DeadlineExceeded):
		return "", &maindomain.ErrTimeout{Operation: service + " completion"}
	default:
		return "", &maindomain.ErrExternalService{Service: service, Err: err}
	}
}

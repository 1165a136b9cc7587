// Package service: chat_service.go implementa o ChatService.
//
// ============================================================
// ARQUITETURA: Máquina de estados por turno + Strategy Pattern
// ============================================================
//
// O ChatService é o orquestrador central da rota POST /v1/ai/ask.
// Cada turno é independente: nenhum estado fica em memória entre turnos,
// tudo que liga uma conversa (lead, mensagens) está no store.
//
// Fluxo completo:
//  1. Handler recebe POST /v1/ai/ask com body {"question", "email", "lead_id"}
//  2. ChatService.HandleTurn() valida e classifica o turno:
//     - CONTACT_REPLY: o texto parece ter dados de contato E veio um lead_id
//     - NEW_QUESTION:  qualquer outro caso
//  3. Busca a Strategy que aceita o TurnKind
//  4. A Strategy chama a IA, persiste a mensagem, analisa o interesse
//     e cria/atualiza o Lead
//  5. Qualquer erro inesperado vira uma falha genérica (ErrTurnFailed),
//     sem vazar detalhe interno pro chamador
//
// Strategies disponíveis:
//   - QuestionStrategy: NEW_QUESTION (resposta + análise + captura de lead)
//   - ContactStrategy:  CONTACT_REPLY (extração + atualização do lead)
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/shop-advisor-go/internal/chat/domain"
	"github.com/boddenberg/shop-advisor-go/internal/chat/port"
	maindomain "github.com/boddenberg/shop-advisor-go/internal/domain"
)

// chatTracer é o tracer OpenTelemetry para o módulo de chat.
var chatTracer = otel.Tracer("chat/service")

// ErrTurnFailed é o único erro (além de validação) que sai do HandleTurn.
// A mensagem é exatamente o que o chamador vê.
var ErrTurnFailed = errors.New("AI response failed")

// ============================================================
// TurnStrategy: interface que cada tipo de turno implementa
// ============================================================

// TurnStrategy define o contrato de uma estratégia de processamento.
//
// CanHandle: diz se essa strategy sabe lidar com o tipo de turno
// Handle:    processa o turno e devolve o TurnResult
type TurnStrategy interface {
	CanHandle(kind domain.TurnKind) bool
	Handle(ctx context.Context, turn *domain.TurnContext) (*domain.TurnResult, error)
}

// ============================================================
// ChatService: orquestrador com strategy routing
// ============================================================

// ChatService é o serviço principal da rota de chat.
type ChatService struct {
	// detector classifica o turno (regex, sem IA)
	detector port.ContactDetector

	// strategies registradas. A primeira que aceita o TurnKind ganha.
	strategies []TurnStrategy

	metrics port.TurnMetrics
	logger  *zap.Logger
}

// NewChatService cria o ChatService com as dependências injetadas.
func NewChatService(
	detector port.ContactDetector,
	strategies []TurnStrategy,
	metrics port.TurnMetrics,
	logger *zap.Logger,
) *ChatService {
	return &ChatService{
		detector:   detector,
		strategies: strategies,
		metrics:    metrics,
		logger:     logger,
	}
}

// HandleTurn é o ponto de entrada principal do chat.
//
// Fluxo:
//  1. Valida que a pergunta não está vazia (ErrValidation, sem efeito colateral)
//  2. Classifica o turno
//  3. Delega para a strategy
//  4. Mascara qualquer erro inesperado como ErrTurnFailed
func (s *ChatService) HandleTurn(ctx context.Context, req *domain.TurnRequest) (*domain.TurnResult, error) {
	ctx, span := chatTracer.Start(ctx, "ChatService.HandleTurn")
	defer span.End()

	// Passo 1: validação de entrada
	turn := &domain.TurnContext{
		Request: domain.TurnRequest{
			Question: strings.TrimSpace(req.Question),
			Email:    strings.TrimSpace(req.Email),
			LeadID:   strings.TrimSpace(req.LeadID),
		},
	}
	if turn.Request.Question == "" {
		return nil, &maindomain.ErrValidation{Field: "question", Message: "question is required"}
	}

	// Passo 2: classifica o turno
	turn.Kind = s.Classify(turn.Request)
	span.SetAttributes(attribute.String("turn.kind", string(turn.Kind)))

	s.logger.Info("chat turn received",
		zap.String("turn_kind", string(turn.Kind)),
		zap.Bool("has_lead_id", turn.Request.LeadID != ""),
		zap.Int("question_length", len(turn.Request.Question)),
	)

	// Passo 3: procura a strategy que aceita o turno
	strategy, err := s.strategyFor(turn.Kind)
	if err != nil {
		s.logger.Error("no strategy for turn", zap.Error(err))
		s.metrics.IncrTurn(string(turn.Kind), "error")
		return nil, ErrTurnFailed
	}

	result, err := strategy.Handle(ctx, turn)
	if err != nil {
		s.metrics.IncrTurn(string(turn.Kind), "error")

		// Passo 4: validação passa, o resto é mascarado
		var ve *maindomain.ErrValidation
		if errors.As(err, &ve) {
			return nil, err
		}
		s.logger.Error("chat turn failed",
			zap.String("turn_kind", string(turn.Kind)),
			zap.Error(err),
		)
		span.RecordError(err)
		return nil, ErrTurnFailed
	}

	s.metrics.IncrTurn(string(turn.Kind), "success")
	return result, nil
}

// Classify aplica a regra de transição da máquina de estados:
// CONTACT_REPLY só quando há dados de contato no texto E um lead_id.
func (s *ChatService) Classify(req domain.TurnRequest) domain.TurnKind {
	if req.LeadID != "" && s.detector.IsContactInfoResponse(req.Question) {
		return domain.TurnContactReply
	}
	return domain.TurnNewQuestion
}

func (s *ChatService) strategyFor(kind domain.TurnKind) (TurnStrategy, error) {
	for _, strategy := range s.strategies {
		if strategy.CanHandle(kind) {
			return strategy, nil
		}
	}
	return nil, fmt.Errorf("no strategy registered for %s", kind)
}

// Package service: chat_strategy_question.go implementa o turno NEW_QUESTION.
//
// ============================================================
// NEW_QUESTION: resposta + análise de interesse + captura de lead
// ============================================================
//
//	Passo 1: IA responde com base no catálogo (MESSAGE:/PRODUCTS:)
//	Passo 2: Persiste a mensagem (pergunta, resposta, ids dos produtos)
//	Passo 3: Em paralelo (errgroup):
//	            → InterestAnalyzer pontua o interesse
//	            → ContactExtractor procura dados de contato no MESMO texto
//	Passo 4: should_capture = análise OR interesse sério
//	Passo 5: Lead existente (lead_id / email)? vincula a mensagem a ele
//	          Senão, se should_capture → cria o lead:
//	            confiança medium/high → dados reais, status "new", mensagem vinculada
//	            confiança low         → placeholders, status "pending_contact_info"
//	Passo 6: Pedido de contato (se ainda faltar algum dado)
package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/boddenberg/shop-advisor-go/internal/chat/domain"
	"github.com/boddenberg/shop-advisor-go/internal/chat/port"
	maindomain "github.com/boddenberg/shop-advisor-go/internal/domain"
	mainport "github.com/boddenberg/shop-advisor-go/internal/port"
)

// Rótulos de métricas de lead (mesmos valores de observability).
const (
	leadEventCreated   = "created"
	leadEventCompleted = "completed"
	leadEventLinked    = "linked"
)

// QuestionStrategy trata os turnos NEW_QUESTION.
type QuestionStrategy struct {
	advisor  port.Advisor
	scorer   port.InterestScorer
	contacts port.ContactReader
	store    *turnStore
	metrics  port.TurnMetrics
	logger   *zap.Logger
}

// NewQuestionStrategy cria a strategy de pergunta.
func NewQuestionStrategy(
	advisor port.Advisor,
	scorer port.InterestScorer,
	contacts port.ContactReader,
	leads mainport.LeadStore,
	messages mainport.MessageStore,
	publisher mainport.LeadEventPublisher,
	metrics port.TurnMetrics,
	logger *zap.Logger,
) *QuestionStrategy {
	return &QuestionStrategy{
		advisor:  advisor,
		scorer:   scorer,
		contacts: contacts,
		store: &turnStore{
			leads:     leads,
			messages:  messages,
			publisher: publisher,
			logger:    logger,
			now:       time.Now,
		},
		metrics: metrics,
		logger:  logger,
	}
}

// CanHandle aceita somente NEW_QUESTION.
func (q *QuestionStrategy) CanHandle(kind domain.TurnKind) bool {
	return kind == domain.TurnNewQuestion
}

// Handle processa o turno NEW_QUESTION.
func (q *QuestionStrategy) Handle(ctx context.Context, turn *domain.TurnContext) (*domain.TurnResult, error) {
	ctx, span := chatTracer.Start(ctx, "QuestionStrategy.Handle")
	defer span.End()

	question := turn.Request.Question

	// Passo 1: IA responde. Erro aqui aborta o turno (falha genérica).
	answer, err := q.advisor.Ask(ctx, question)
	if err != nil {
		return nil, err
	}
	productNames := answer.ProductNames()

	// Passo 2: persiste a mensagem
	messageID := q.store.saveMessage(ctx, question, answer.Message, answer.ProductIDs())

	// Passo 3: análise de interesse e extração de contato em paralelo.
	// Nenhuma das duas devolve erro: ambas degradam para regras fixas.
	var (
		analysis   maindomain.InterestAnalysisResult
		extraction maindomain.ContactExtractionResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		analysis = q.scorer.AnalyzeInterestLevel(gctx, question, answer.Message, productNames)
		return nil
	})
	g.Go(func() error {
		extraction = q.contacts.ExtractContactInfo(gctx, question)
		return nil
	})
	_ = g.Wait()

	// Passo 4: combina com o detector de interesse sério
	serious := q.scorer.DetectSeriousInterest(question)
	shouldCapture := analysis.ShouldCaptureLead || serious
	q.metrics.IncrInterestLevel(string(analysis.InterestLevel))

	span.SetAttributes(
		attribute.Int("interest.score", analysis.InterestScore),
		attribute.Bool("interest.serious", serious),
		attribute.String("contact.confidence", string(extraction.Confidence)),
	)

	result := &domain.TurnResult{
		Kind:              domain.TurnNewQuestion,
		Question:          question,
		Answer:            answer.Message,
		Products:          answer.Products,
		MessageID:         messageID,
		InterestAnalysis:  &analysis,
		ShouldCaptureLead: shouldCapture,
		ContactExtraction: &extraction,
	}

	// Passo 5: lead existente ganha a mensagem; senão, cria um lead novo
	leadComplete := false
	if existing := q.existingLead(ctx, turn.Request, extraction); existing != nil {
		if q.store.linkMessage(ctx, existing.ID, messageID) {
			result.LinkedLeadID = existing.ID
			q.metrics.IncrLead(leadEventLinked)
		}
		leadComplete = !existing.HasPlaceholderContact()
	} else if shouldCapture {
		if lead := q.createLead(ctx, messageID, productNames, extraction); lead != nil {
			result.LeadCreated = true
			result.PreliminaryLeadID = lead.ID
			leadComplete = !lead.HasPlaceholderContact()
		}
	}

	// Passo 6: pedido de contato, só se ainda falta dado
	if shouldCapture && !leadComplete {
		combined := analysis
		combined.ShouldCaptureLead = true
		if msg, ok := q.scorer.GenerateLeadCaptureMessage(combined, question); ok {
			result.LeadCaptureMessage = msg
		}
	}

	q.logger.Info("question turn handled",
		zap.Int("interest_score", analysis.InterestScore),
		zap.String("interest_level", string(analysis.InterestLevel)),
		zap.Bool("should_capture_lead", shouldCapture),
		zap.Bool("lead_created", result.LeadCreated),
		zap.String("linked_lead_id", result.LinkedLeadID),
	)
	return result, nil
}

// existingLead procura o lead do cliente: primeiro pelo lead_id informado,
// depois pelo email do request e por último pelo email extraído do texto.
func (q *QuestionStrategy) existingLead(ctx context.Context, req domain.TurnRequest, extraction maindomain.ContactExtractionResult) *maindomain.Lead {
	if req.LeadID != "" {
		if lead := q.store.findLead(ctx, req.LeadID); lead != nil {
			return lead
		}
	}
	if lead := q.store.findLeadByEmail(ctx, req.Email); lead != nil {
		return lead
	}
	return q.store.findLeadByEmail(ctx, extraction.EmailValue())
}

// createLead cria o lead do turno. Devolve nil se a gravação falhar.
func (q *QuestionStrategy) createLead(ctx context.Context, messageID string, products []string, extraction maindomain.ContactExtractionResult) *maindomain.Lead {
	now := q.store.now().UTC()
	lead := &maindomain.Lead{
		Name:               maindomain.PlaceholderName,
		Email:              maindomain.PlaceholderEmail,
		Phone:              maindomain.PlaceholderPhone,
		InterestedProducts: products,
		SourceMessageID:    messageID,
		LinkedMessageIDs:   []string{},
		Status:             maindomain.LeadStatusPendingContactInfo,
		CreatedAt:          now,
		LastContact:        now,
	}

	// Confiança medium/high: usa os dados extraídos e já vincula a mensagem
	if extraction.Confidence.AtLeastMedium() {
		if v := extraction.NameValue(); v != "" {
			lead.Name = v
		}
		if v := extraction.EmailValue(); v != "" {
			lead.Email = v
		}
		if v := extraction.PhoneValue(); v != "" {
			lead.Phone = v
		}
		lead.Status = maindomain.LeadStatusNew
		if messageID != "" {
			lead.LinkedMessageIDs = []string{messageID}
		}
	}

	created, err := q.store.leads.CreateLead(ctx, lead)
	if err != nil {
		q.logger.Error("failed to create lead", zap.Error(err))
		return nil
	}

	q.metrics.IncrLead(leadEventCreated)
	q.store.publish(ctx, maindomain.LeadEventCaptured, created)
	return created
}

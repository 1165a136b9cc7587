// Package service: chat_strategy_contact.go implementa o turno CONTACT_REPLY.
//
// ============================================================
// CONTACT_REPLY: cliente respondeu ao pedido de contato
// ============================================================
//
//	Passo 1: Extrai nome/email/telefone do texto
//	Passo 2: IA agradece (turno de cortesia, também persistido)
//	Passo 3: Vincula a mensagem ao lead informado
//	Passo 4: Confiança medium/high → atualiza SÓ os campos que ainda são
//	          placeholder e volta o status para "new"
//	Passo 5: Follow-up pedindo o que ainda falta
//
// A atualização do passo 4 é atômica no store: duas respostas simultâneas
// para o mesmo lead nunca sobrescrevem um dado real já gravado.
package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/shop-advisor-go/internal/chat/domain"
	"github.com/boddenberg/shop-advisor-go/internal/chat/port"
	maindomain "github.com/boddenberg/shop-advisor-go/internal/domain"
	mainport "github.com/boddenberg/shop-advisor-go/internal/port"
)

// ContactStrategy trata os turnos CONTACT_REPLY.
type ContactStrategy struct {
	advisor  port.Advisor
	contacts port.ContactReader
	detector port.ContactDetector
	store    *turnStore
	metrics  port.TurnMetrics
	logger   *zap.Logger
}

// NewContactStrategy cria a strategy de resposta de contato.
func NewContactStrategy(
	advisor port.Advisor,
	contacts port.ContactReader,
	detector port.ContactDetector,
	leads mainport.LeadStore,
	messages mainport.MessageStore,
	publisher mainport.LeadEventPublisher,
	metrics port.TurnMetrics,
	logger *zap.Logger,
) *ContactStrategy {
	return &ContactStrategy{
		advisor:  advisor,
		contacts: contacts,
		detector: detector,
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

// CanHandle aceita somente CONTACT_REPLY.
func (c *ContactStrategy) CanHandle(kind domain.TurnKind) bool {
	return kind == domain.TurnContactReply
}

// Handle processa o turno CONTACT_REPLY.
func (c *ContactStrategy) Handle(ctx context.Context, turn *domain.TurnContext) (*domain.TurnResult, error) {
	ctx, span := chatTracer.Start(ctx, "ContactStrategy.Handle")
	defer span.End()

	reply := turn.Request.Question
	leadID := turn.Request.LeadID

	// Passo 1: extração de contato
	extraction := c.contacts.ExtractContactInfo(ctx, reply)
	span.SetAttributes(attribute.String("contact.confidence", string(extraction.Confidence)))

	// Passo 2: agradecimento da IA. Erro aqui aborta o turno (falha genérica).
	ack, err := c.advisor.Acknowledge(ctx, reply)
	if err != nil {
		return nil, err
	}
	messageID := c.store.saveMessage(ctx, reply, ack, []string{})

	result := &domain.TurnResult{
		Kind:              domain.TurnContactReply,
		Question:          reply,
		Answer:            ack,
		Products:          []maindomain.Product{},
		MessageID:         messageID,
		ContactExtraction: &extraction,
	}

	// Passo 3: vincula a mensagem ao lead (se ele existir)
	lead := c.store.findLead(ctx, leadID)
	if lead != nil && c.store.linkMessage(ctx, lead.ID, messageID) {
		result.LinkedLeadID = lead.ID
		c.metrics.IncrLead(leadEventLinked)
	}

	// Passo 4: atualiza somente placeholders, com confiança suficiente.
	// Lead sem placeholder para preencher não é tocado (status incluso).
	upd := maindomain.ContactUpdate{
		Name:  extraction.NameValue(),
		Email: extraction.EmailValue(),
		Phone: extraction.PhoneValue(),
	}
	if lead != nil && extraction.Confidence.AtLeastMedium() && fillsPlaceholder(lead, upd) {
		updated, err := c.store.leads.UpdateLeadContact(ctx, lead.ID, upd, true)
		switch {
		case err != nil:
			c.logger.Error("failed to update lead contact", zap.String("lead_id", lead.ID), zap.Error(err))
		case contactChanged(lead, updated):
			// lead_updated=true só quando algum campo mudou de fato
			result.LeadUpdated = true
			c.metrics.IncrLead(leadEventCompleted)
			c.store.publish(ctx, maindomain.LeadEventContactUpdated, updated)
		}
	}

	// Passo 5: follow-up com o que ainda falta
	result.FollowUpMessage = c.detector.GenerateFollowUpMessage(extraction)

	c.logger.Info("contact reply handled",
		zap.String("lead_id", leadID),
		zap.Bool("lead_found", lead != nil),
		zap.String("confidence", string(extraction.Confidence)),
		zap.Bool("lead_updated", result.LeadUpdated),
	)
	return result, nil
}

// fillsPlaceholder diz se upd traz algum valor para um campo que ainda é placeholder.
func fillsPlaceholder(lead *maindomain.Lead, upd maindomain.ContactUpdate) bool {
	return (upd.Name != "" && maindomain.IsPlaceholderName(lead.Name)) ||
		(upd.Email != "" && maindomain.IsPlaceholderEmail(lead.Email)) ||
		(upd.Phone != "" && maindomain.IsPlaceholderPhone(lead.Phone))
}

func contactChanged(before, after *maindomain.Lead) bool {
	return before.Name != after.Name || before.Email != after.Email || before.Phone != after.Phone
}

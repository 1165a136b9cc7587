package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/boddenberg/shop-advisor-go/internal/domain"
	"github.com/boddenberg/shop-advisor-go/internal/port"
)

// ============================================================
// turnStore: persistência compartilhada pelas strategies
// ============================================================
//
// Toda escrita aqui é "best effort": uma falha é logada e vira flag
// no TurnResult, nunca aborta o turno.
type turnStore struct {
	leads     port.LeadStore
	messages  port.MessageStore
	publisher port.LeadEventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// saveMessage persiste o turno e devolve o id ("" em caso de falha).
func (t *turnStore) saveMessage(ctx context.Context, question, answer string, productIDs []string) string {
	msg, err := t.messages.CreateMessage(ctx, &domain.Message{
		Question:   question,
		Answer:     answer,
		ProductIDs: productIDs,
		Timestamp:  t.now().UTC(),
	})
	if err != nil {
		t.logger.Error("failed to persist message", zap.Error(err))
		return ""
	}
	return msg.ID
}

// linkMessage vincula a mensagem ao lead. Devolve false se não vinculou.
func (t *turnStore) linkMessage(ctx context.Context, leadID, messageID string) bool {
	if messageID == "" {
		return false
	}
	if err := t.leads.LinkMessage(ctx, leadID, messageID); err != nil {
		t.logger.Error("failed to link message to lead",
			zap.String("lead_id", leadID),
			zap.String("message_id", messageID),
			zap.Error(err),
		)
		return false
	}
	return true
}

// findLead busca um lead por id. Não encontrado (ou erro) devolve nil.
func (t *turnStore) findLead(ctx context.Context, id string) *domain.Lead {
	lead, err := t.leads.GetLead(ctx, id)
	if err != nil {
		t.logLookupError("lead_id", id, err)
		return nil
	}
	return lead
}

// findLeadByEmail busca um lead pelo email. Não encontrado (ou erro) devolve nil.
func (t *turnStore) findLeadByEmail(ctx context.Context, email string) *domain.Lead {
	if email == "" || domain.IsPlaceholderEmail(email) {
		return nil
	}
	lead, err := t.leads.GetLeadByEmail(ctx, email)
	if err != nil {
		t.logLookupError("email", email, err)
		return nil
	}
	return lead
}

func (t *turnStore) logLookupError(field, value string, err error) {
	var nf *domain.ErrNotFound
	if errors.As(err, &nf) {
		t.logger.Debug("lead not found", zap.String(field, value))
		return
	}
	t.logger.Error("lead lookup failed", zap.String(field, value), zap.Error(err))
}

// publish envia o evento de lead. Falha no broker só gera log.
func (t *turnStore) publish(ctx context.Context, evtType domain.LeadEventType, lead *domain.Lead) {
	evt := domain.NewLeadEvent(evtType, lead, t.now())
	if err := t.publisher.PublishLeadEvent(ctx, evt); err != nil {
		t.logger.Warn("failed to publish lead event",
			zap.String("type", string(evtType)),
			zap.String("lead_id", lead.ID),
			zap.Error(err),
		)
	}
}

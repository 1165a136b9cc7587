package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/shop-advisor-go/internal/domain"
	"github.com/boddenberg/shop-advisor-go/internal/infra/observability"
	"github.com/boddenberg/shop-advisor-go/internal/port"
)

// LeadService administers sales leads and their message timelines.
type LeadService struct {
	leads     port.LeadStore
	messages  port.MessageStore
	publisher port.LeadEventPublisher
	metrics   *observability.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewLeadService creates the service.
func NewLeadService(
	leads port.LeadStore,
	messages port.MessageStore,
	publisher port.LeadEventPublisher,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *LeadService {
	return &LeadService{
		leads:     leads,
		messages:  messages,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateLead registers a lead with complete contact data. An email already
// used by another lead is a conflict.
func (s *LeadService) CreateLead(ctx context.Context, req *domain.CreateLeadRequest) (*domain.Lead, error) {
	ctx, span := tracer.Start(ctx, "LeadService.CreateLead")
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	email := strings.TrimSpace(req.Email)
	if err := s.ensureEmailFree(ctx, email, ""); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	lead := &domain.Lead{
		Name:               strings.TrimSpace(req.Name),
		Email:              email,
		Phone:              strings.TrimSpace(req.Phone),
		InterestedProducts: nonNil(req.InterestedProducts),
		SourceMessageID:    req.SourceMessageID,
		LinkedMessageIDs:   []string{},
		Status:             domain.LeadStatusNew,
		CreatedAt:          now,
		LastContact:        now,
	}
	created, err := s.leads.CreateLead(ctx, lead)
	if err != nil {
		return nil, fmt.Errorf("create lead: %w", err)
	}
	span.SetAttributes(attribute.String("lead.id", created.ID))

	s.metrics.IncrLead(observability.LeadEventCreated)
	s.publish(ctx, domain.LeadEventCaptured, created)
	return created, nil
}

// GetLead returns a lead by id.
func (s *LeadService) GetLead(ctx context.Context, id string) (*domain.Lead, error) {
	ctx, span := tracer.Start(ctx, "LeadService.GetLead")
	defer span.End()
	return s.leads.GetLead(ctx, id)
}

// ListLeads returns every lead, newest first.
func (s *LeadService) ListLeads(ctx context.Context) ([]domain.Lead, error) {
	ctx, span := tracer.Start(ctx, "LeadService.ListLeads")
	defer span.End()

	leads, err := s.leads.ListLeads(ctx)
	if err != nil {
		return nil, err
	}
	sortLeadsNewestFirst(leads)
	return leads, nil
}

// ListLeadsByStatus returns the leads in one status, newest first.
func (s *LeadService) ListLeadsByStatus(ctx context.Context, status domain.LeadStatus) ([]domain.Lead, error) {
	ctx, span := tracer.Start(ctx, "LeadService.ListLeadsByStatus")
	defer span.End()

	if !status.Valid() {
		return nil, &domain.ErrValidation{Field: "status", Message: fmt.Sprintf("unknown status %q", status)}
	}
	leads, err := s.leads.ListLeadsByStatus(ctx, status)
	if err != nil {
		return nil, err
	}
	sortLeadsNewestFirst(leads)
	return leads, nil
}

// UpdateLeadStatus moves a lead through its sales lifecycle.
func (s *LeadService) UpdateLeadStatus(ctx context.Context, id string, req *domain.UpdateLeadStatusRequest) (*domain.Lead, error) {
	ctx, span := tracer.Start(ctx, "LeadService.UpdateLeadStatus")
	defer span.End()

	if !req.Status.Valid() {
		return nil, &domain.ErrValidation{Field: "status", Message: fmt.Sprintf("unknown status %q", req.Status)}
	}
	return s.leads.UpdateLeadStatus(ctx, id, req.Status, req.Notes)
}

// UpdateLeadContact overwrites the contact fields that are set in upd and
// moves the lead back to status new.
func (s *LeadService) UpdateLeadContact(ctx context.Context, id string, upd domain.ContactUpdate) (*domain.Lead, error) {
	ctx, span := tracer.Start(ctx, "LeadService.UpdateLeadContact")
	defer span.End()

	upd.Name = strings.TrimSpace(upd.Name)
	upd.Email = strings.TrimSpace(upd.Email)
	upd.Phone = strings.TrimSpace(upd.Phone)
	if upd == (domain.ContactUpdate{}) {
		return nil, &domain.ErrValidation{Field: "contact", Message: "at least one of name, email or phone is required"}
	}
	if _, err := s.leads.GetLead(ctx, id); err != nil {
		return nil, err
	}
	if upd.Email != "" {
		if err := s.ensureEmailFree(ctx, upd.Email, id); err != nil {
			return nil, err
		}
	}

	lead, err := s.leads.UpdateLeadContact(ctx, id, upd, false)
	if err != nil {
		return nil, err
	}
	s.metrics.IncrLead(observability.LeadEventCompleted)
	s.publish(ctx, domain.LeadEventContactUpdated, lead)
	return lead, nil
}

// DeleteLead removes a lead. Its messages are kept.
func (s *LeadService) DeleteLead(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "LeadService.DeleteLead")
	defer span.End()
	return s.leads.DeleteLead(ctx, id)
}

// LinkMessage attaches an existing message to an existing lead.
func (s *LeadService) LinkMessage(ctx context.Context, leadID, messageID string) error {
	ctx, span := tracer.Start(ctx, "LeadService.LinkMessage")
	defer span.End()

	if strings.TrimSpace(messageID) == "" {
		return &domain.ErrValidation{Field: "message_id", Message: "message_id is required"}
	}
	if _, err := s.leads.GetLead(ctx, leadID); err != nil {
		return err
	}
	if _, err := s.messages.GetMessage(ctx, messageID); err != nil {
		return err
	}
	if err := s.leads.LinkMessage(ctx, leadID, messageID); err != nil {
		return err
	}
	s.metrics.IncrLead(observability.LeadEventLinked)
	return nil
}

// GetLeadWithMessages returns the lead with its source message and every linked message.
func (s *LeadService) GetLeadWithMessages(ctx context.Context, id string) (*domain.LeadWithMessages, error) {
	ctx, span := tracer.Start(ctx, "LeadService.GetLeadWithMessages")
	defer span.End()

	lead, err := s.leads.GetLead(ctx, id)
	if err != nil {
		return nil, err
	}

	result := &domain.LeadWithMessages{Lead: lead, RelatedMessages: []domain.Message{}}
	if lead.SourceMessageID != "" {
		src, err := s.messages.GetMessage(ctx, lead.SourceMessageID)
		var nf *domain.ErrNotFound
		switch {
		case err == nil:
			result.SourceMessage = src
			result.TotalMessages++
		case !errors.As(err, &nf):
			return nil, err
		}
	}

	linked := uniqueIDs(lead.LinkedMessageIDs, lead.SourceMessageID)
	if len(linked) > 0 {
		related, err := s.messages.GetMessagesByIDs(ctx, linked)
		if err != nil {
			return nil, err
		}
		result.RelatedMessages = related
		result.TotalMessages += len(related)
	}
	return result, nil
}

// GetConversationHistory returns the lead's messages in chronological order.
func (s *LeadService) GetConversationHistory(ctx context.Context, id string) (*domain.ConversationHistory, error) {
	ctx, span := tracer.Start(ctx, "LeadService.GetConversationHistory")
	defer span.End()

	lead, messages, err := s.leadMessages(ctx, id)
	if err != nil {
		return nil, err
	}

	history := &domain.ConversationHistory{Lead: lead, Messages: messages, TotalMessages: len(messages)}
	if len(messages) > 0 {
		start := messages[0].Timestamp
		end := messages[len(messages)-1].Timestamp
		history.ConversationStart = &start
		history.ConversationEnd = &end
	}
	return history, nil
}

// GetLeadAnalytics summarises the activity around a lead.
func (s *LeadService) GetLeadAnalytics(ctx context.Context, id string) (*domain.LeadAnalytics, error) {
	ctx, span := tracer.Start(ctx, "LeadService.GetLeadAnalytics")
	defer span.End()

	lead, messages, err := s.leadMessages(ctx, id)
	if err != nil {
		return nil, err
	}

	analytics := &domain.LeadAnalytics{
		LeadID:                  lead.ID,
		TotalMessages:           len(messages),
		InterestedProductsCount: len(lead.InterestedProducts),
		LeadAgeDays:             int(s.now().Sub(lead.CreatedAt).Hours() / 24),
		ConversionProbability:   conversionProbability(lead.Status, len(messages)),
	}
	if len(messages) > 0 {
		first := messages[0].Timestamp
		last := messages[len(messages)-1].Timestamp
		analytics.FirstMessageDate = &first
		analytics.LastMessageDate = &last
	}
	return analytics, nil
}

// leadMessages loads the source and linked messages of a lead, oldest first.
// Dangling ids are skipped.
func (s *LeadService) leadMessages(ctx context.Context, id string) (*domain.Lead, []domain.Message, error) {
	lead, err := s.leads.GetLead(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	ids := uniqueIDs(append([]string{lead.SourceMessageID}, lead.LinkedMessageIDs...), "")
	messages := []domain.Message{}
	if len(ids) > 0 {
		messages, err = s.messages.GetMessagesByIDs(ctx, ids)
		if err != nil {
			return nil, nil, err
		}
	}
	slices.SortStableFunc(messages, func(a, b domain.Message) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return lead, messages, nil
}

func (s *LeadService) ensureEmailFree(ctx context.Context, email, ownerID string) error {
	existing, err := s.leads.GetLeadByEmail(ctx, email)
	var nf *domain.ErrNotFound
	switch {
	case errors.As(err, &nf):
		return nil
	case err != nil:
		return err
	case existing.ID != ownerID:
		return &domain.ErrConflict{Message: fmt.Sprintf("a lead with email %s already exists", email)}
	}
	return nil
}

func (s *LeadService) publish(ctx context.Context, t domain.LeadEventType, lead *domain.Lead) {
	if err := s.publisher.PublishLeadEvent(ctx, domain.NewLeadEvent(t, lead, s.now())); err != nil {
		s.logger.Warn("failed to publish lead event",
			zap.String("type", string(t)),
			zap.String("lead_id", lead.ID),
			zap.Error(err),
		)
	}
}

func conversionProbability(status domain.LeadStatus, messages int) string {
	switch {
	case status == domain.LeadStatusConverted:
		return "converted"
	case status == domain.LeadStatusLost:
		return "lost"
	case messages >= 5:
		return "high"
	case messages >= 2:
		return "medium"
	default:
		return "low"
	}
}

func sortLeadsNewestFirst(leads []domain.Lead) {
	slices.SortStableFunc(leads, func(a, b domain.Lead) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}

// uniqueIDs drops blanks, duplicates and skip while keeping order.
func uniqueIDs(ids []string, skip string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || id == skip || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

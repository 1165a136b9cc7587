package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/boddenberg/shop-advisor-go/internal/domain"
	"github.com/boddenberg/shop-advisor-go/internal/port"
)

const dateOnly = "2006-01-02"

// MessageService administers persisted chat turns.
type MessageService struct {
	store  port.MessageStore
	logger *zap.Logger
	now    func() time.Time
}

// NewMessageService creates the service.
func NewMessageService(store port.MessageStore, logger *zap.Logger) *MessageService {
	return &MessageService{store: store, logger: logger, now: time.Now}
}

// CreateMessage stores a question/answer pair.
func (s *MessageService) CreateMessage(ctx context.Context, req *domain.CreateMessageRequest) (*domain.Message, error) {
	ctx, span := tracer.Start(ctx, "MessageService.CreateMessage")
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.store.CreateMessage(ctx, &domain.Message{
		Question:   req.Question,
		Answer:     req.Answer,
		ProductIDs: nonNil(req.ProductIDs),
		Timestamp:  s.now().UTC(),
	})
}

// GetMessage returns a message by id.
func (s *MessageService) GetMessage(ctx context.Context, id string) (*domain.Message, error) {
	ctx, span := tracer.Start(ctx, "MessageService.GetMessage")
	defer span.End()
	return s.store.GetMessage(ctx, id)
}

// ListMessages returns every message, newest first.
func (s *MessageService) ListMessages(ctx context.Context) ([]domain.Message, error) {
	ctx, span := tracer.Start(ctx, "MessageService.ListMessages")
	defer span.End()

	msgs, err := s.store.ListMessages(ctx)
	if err != nil {
		return nil, err
	}
	sortMessagesNewestFirst(msgs)
	return msgs, nil
}

// ListMessagesByDateRange returns the messages between start and end, both
// inclusive. Dates are RFC3339 or YYYY-MM-DD; a bare end date covers the
// whole day.
func (s *MessageService) ListMessagesByDateRange(ctx context.Context, startRaw, endRaw string) ([]domain.Message, error) {
	ctx, span := tracer.Start(ctx, "MessageService.ListMessagesByDateRange")
	defer span.End()

	start, _, err := parseDate("start_date", startRaw)
	if err != nil {
		return nil, err
	}
	end, dateOnlyEnd, err := parseDate("end_date", endRaw)
	if err != nil {
		return nil, err
	}
	if dateOnlyEnd {
		end = end.Add(24*time.Hour - time.Nanosecond)
	}
	if end.Before(start) {
		return nil, &domain.ErrValidation{Field: "end_date", Message: "end_date must not be before start_date"}
	}

	msgs, err := s.store.ListMessagesByDateRange(ctx, start, end)
	if err != nil {
		return nil, err
	}
	sortMessagesNewestFirst(msgs)
	return msgs, nil
}

// ListMessagesByProductIDs returns the messages recommending any of the products.
func (s *MessageService) ListMessagesByProductIDs(ctx context.Context, productIDs []string) ([]domain.Message, error) {
	ctx, span := tracer.Start(ctx, "MessageService.ListMessagesByProductIDs")
	defer span.End()

	ids := uniqueIDs(productIDs, "")
	if len(ids) == 0 {
		return nil, &domain.ErrValidation{Field: "product_ids", Message: "at least one product id is required"}
	}
	msgs, err := s.store.ListMessagesByProductIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	sortMessagesNewestFirst(msgs)
	return msgs, nil
}

// DeleteMessage removes a message.
func (s *MessageService) DeleteMessage(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "MessageService.DeleteMessage")
	defer span.End()
	return s.store.DeleteMessage(ctx, id)
}

func parseDate(field, raw string) (time.Time, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false, &domain.ErrValidation{Field: field, Message: field + " is required"}
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), false, nil
	}
	if t, err := time.Parse(dateOnly, raw); err == nil {
		return t, true, nil
	}
	return time.Time{}, false, &domain.ErrValidation{
		Field:   field,
		Message: fmt.Sprintf("invalid date %q, expected RFC3339 or YYYY-MM-DD", raw),
	}
}

func sortMessagesNewestFirst(msgs []domain.Message) {
	slices.SortStableFunc(msgs, func(a, b domain.Message) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
}

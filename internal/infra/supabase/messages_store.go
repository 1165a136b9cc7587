package supabase

import (
	"context"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/boddenberg/shop-advisor-go/internal/domain"
)

// ============================================================
// MessageStore implementation (table: messages)
// ============================================================

func (c *Client) CreateMessage(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateMessage")
	defer span.End()

	id := msg.ID
	if id == "" {
		id = uuid.NewString()
	}
	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	productIDs := msg.ProductIDs
	if productIDs == nil {
		productIDs = []string{}
	}

	resp, err := c.doPost(ctx, "create_message", "messages", map[string]any{
		"id":          id,
		"question":    msg.Question,
		"answer":      msg.Answer,
		"product_ids": productIDs,
		"timestamp":   ts.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, err
	}
	if err := statusError("create_message", resp); err != nil {
		return nil, err
	}

	var rows []domain.Message
	if err := decodeRows("create_message", resp.body, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return &domain.Message{ID: id, Question: msg.Question, Answer: msg.Answer, ProductIDs: productIDs, Timestamp: ts.UTC()}, nil
	}
	return normalizeMessage(rows[0]), nil
}

func (c *Client) GetMessage(ctx context.Context, id string) (*domain.Message, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetMessage")
	defer span.End()

	var rows []domain.Message
	q := url.Values{"id": {eq(id)}, "limit": {"1"}}
	if err := c.rows(ctx, "get_message", withQuery("messages", q), &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "message", ID: id}
	}
	return normalizeMessage(rows[0]), nil
}

// GetMessagesByIDs returns the messages found, in the order of ids.
func (c *Client) GetMessagesByIDs(ctx context.Context, ids []string) ([]domain.Message, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetMessagesByIDs")
	defer span.End()

	if len(ids) == 0 {
		return []domain.Message{}, nil
	}
	var rows []domain.Message
	q := url.Values{"id": {inFilter(ids)}}
	if err := c.rows(ctx, "get_messages_by_ids", withQuery("messages", q), &rows); err != nil {
		return nil, err
	}

	byID := make(map[string]domain.Message, len(rows))
	for _, m := range rows {
		byID[m.ID] = m
	}
	out := make([]domain.Message, 0, len(ids))
	for _, id := range ids {
		if m, ok := byID[id]; ok {
			out = append(out, *normalizeMessage(m))
		}
	}
	return out, nil
}

func (c *Client) ListMessages(ctx context.Context) ([]domain.Message, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListMessages")
	defer span.End()

	return c.listMessages(ctx, "list_messages", url.Values{})
}

func (c *Client) ListMessagesByDateRange(ctx context.Context, start, end time.Time) ([]domain.Message, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListMessagesByDateRange")
	defer span.End()

	q := url.Values{"timestamp": {
		"gte." + start.UTC().Format(time.RFC3339Nano),
		"lte." + end.UTC().Format(time.RFC3339Nano),
	}}
	return c.listMessages(ctx, "list_messages_by_date", q)
}

func (c *Client) ListMessagesByProductIDs(ctx context.Context, productIDs []string) ([]domain.Message, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListMessagesByProductIDs")
	defer span.End()

	q := url.Values{"product_ids": {overlapFilter(productIDs)}}
	return c.listMessages(ctx, "list_messages_by_products", q)
}

func (c *Client) DeleteMessage(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteMessage")
	defer span.End()

	return c.deleteRow(ctx, "delete_message", "messages", "message", id)
}

func (c *Client) listMessages(ctx context.Context, service string, q url.Values) ([]domain.Message, error) {
	q.Set("order", "timestamp.asc")
	var rows []domain.Message
	if err := c.rows(ctx, service, withQuery("messages", q), &rows); err != nil {
		return nil, err
	}
	out := make([]domain.Message, 0, len(rows))
	for _, m := range rows {
		out = append(out, *normalizeMessage(m))
	}
	return out, nil
}

// deleteRow removes one row by id. An empty representation means nothing matched.
func (c *Client) deleteRow(ctx context.Context, service, table, resource, id string) error {
	resp, err := c.doDelete(ctx, service, withQuery(table, url.Values{"id": {eq(id)}}))
	if err != nil {
		return err
	}
	if err := statusError(service, resp); err != nil {
		return err
	}
	var rows []map[string]any
	if err := decodeRows(service, resp.body, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return &domain.ErrNotFound{Resource: resource, ID: id}
	}
	return nil
}

func normalizeMessage(m domain.Message) *domain.Message {
	if m.ProductIDs == nil {
		m.ProductIDs = []string{}
	}
	m.Timestamp = m.Timestamp.UTC()
	return &m
}

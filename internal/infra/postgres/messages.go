package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/boddenberg/shop-advisor-go/internal/domain"
)

const messageColumns = `id, question, answer, product_ids, "timestamp"`

// MessageStore implements port.MessageStore.
type MessageStore struct {
	db DB
}

func NewMessageStore(db DB) *MessageStore {
	return &MessageStore{db: db}
}

func (s *MessageStore) CreateMessage(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	ctx, span := tracer.Start(ctx, "MessageStore.CreateMessage")
	defer span.End()

	m := *msg
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	m.ProductIDs = nonNil(m.ProductIDs)

	_, err := s.db.Exec(ctx,
		`INSERT INTO messages (`+messageColumns+`) VALUES ($1, $2, $3, $4, $5)`,
		m.ID, m.Question, m.Answer, m.ProductIDs, m.Timestamp)
	if err != nil {
		return nil, externalErr("insert_message", err)
	}
	return &m, nil
}

func (s *MessageStore) GetMessage(ctx context.Context, id string) (*domain.Message, error) {
	ctx, span := tracer.Start(ctx, "MessageStore.GetMessage")
	defer span.End()

	m, err := scanMessage(s.db.QueryRow(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &domain.ErrNotFound{Resource: "message", ID: id}
	}
	if err != nil {
		return nil, externalErr("get_message", err)
	}
	return m, nil
}

// GetMessagesByIDs returns the messages found, in the order of ids.
func (s *MessageStore) GetMessagesByIDs(ctx context.Context, ids []string) ([]domain.Message, error) {
	if len(ids) == 0 {
		return []domain.Message{}, nil
	}
	found, err := s.list(ctx, "get_messages_by_ids",
		`SELECT `+messageColumns+` FROM messages WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]domain.Message, len(found))
	for _, m := range found {
		byID[m.ID] = m
	}
	out := make([]domain.Message, 0, len(ids))
	for _, id := range ids {
		if m, ok := byID[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *MessageStore) ListMessages(ctx context.Context) ([]domain.Message, error) {
	return s.list(ctx, "list_messages",
		`SELECT `+messageColumns+` FROM messages ORDER BY "timestamp"`)
}

func (s *MessageStore) ListMessagesByDateRange(ctx context.Context, start, end time.Time) ([]domain.Message, error) {
	return s.list(ctx, "list_messages_by_date",
		`SELECT `+messageColumns+` FROM messages WHERE "timestamp" BETWEEN $1 AND $2 ORDER BY "timestamp"`,
		start, end)
}

func (s *MessageStore) ListMessagesByProductIDs(ctx context.Context, productIDs []string) ([]domain.Message, error) {
	return s.list(ctx, "list_messages_by_products",
		`SELECT `+messageColumns+` FROM messages WHERE product_ids && $1 ORDER BY "timestamp"`,
		productIDs)
}

func (s *MessageStore) DeleteMessage(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "MessageStore.DeleteMessage")
	defer span.End()

	tag, err := s.db.Exec(ctx, `DELETE FROM messages WHERE id = $1`, id)
	if err != nil {
		return externalErr("delete_message", err)
	}
	if tag.RowsAffected() == 0 {
		return &domain.ErrNotFound{Resource: "message", ID: id}
	}
	return nil
}

func (s *MessageStore) list(ctx context.Context, op, query string, args ...any) ([]domain.Message, error) {
	ctx, span := tracer.Start(ctx, "MessageStore."+op)
	defer span.End()

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, externalErr(op, err)
	}
	defer rows.Close()

	out := []domain.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, externalErr(op, err)
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, externalErr(op, err)
	}
	return out, nil
}

func scanMessage(row pgx.Row) (*domain.Message, error) {
	var m domain.Message
	if err := row.Scan(&m.ID, &m.Question, &m.Answer, &m.ProductIDs, &m.Timestamp); err != nil {
		return nil, err
	}
	m.ProductIDs = nonNil(m.ProductIDs)
	m.Timestamp = m.Timestamp.UTC()
	return &m, nil
}

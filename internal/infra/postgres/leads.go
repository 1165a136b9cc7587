package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/boddenberg/shop-advisor-go/internal/domain"
)

const leadColumns = `id, name, email, phone, interested_products, COALESCE(source_message_id, ''),
	linked_message_ids, status, created_at, last_contact, notes`

// LeadStore implements port.LeadStore. Contact updates and message links are
// single UPDATE statements, so Postgres row locking keeps them atomic.
type LeadStore struct {
	db  DB
	now func() time.Time
}

func NewLeadStore(db DB) *LeadStore {
	return &LeadStore{db: db, now: time.Now}
}

func (s *LeadStore) CreateLead(ctx context.Context, lead *domain.Lead) (*domain.Lead, error) {
	ctx, span := tracer.Start(ctx, "LeadStore.CreateLead")
	defer span.End()

	l := *lead
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	now := s.now().UTC()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
	if l.LastContact.IsZero() {
		l.LastContact = now
	}
	l.InterestedProducts = nonNil(l.InterestedProducts)
	l.LinkedMessageIDs = nonNil(l.LinkedMessageIDs)

	var source *string
	if l.SourceMessageID != "" {
		source = &l.SourceMessageID
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO leads (id, name, email, phone, interested_products, source_message_id,
			linked_message_ids, status, created_at, last_contact, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		l.ID, l.Name, l.Email, l.Phone, l.InterestedProducts, source,
		l.LinkedMessageIDs, string(l.Status), l.CreatedAt, l.LastContact, l.Notes)
	if err != nil {
		if isDuplicateError(err) {
			return nil, &domain.ErrConflict{Message: "a lead with this email already exists"}
		}
		return nil, externalErr("insert_lead", err)
	}
	return &l, nil
}

func (s *LeadStore) GetLead(ctx context.Context, id string) (*domain.Lead, error) {
	ctx, span := tracer.Start(ctx, "LeadStore.GetLead")
	defer span.End()

	return s.one(ctx, "get_lead", id, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
}

func (s *LeadStore) GetLeadByEmail(ctx context.Context, email string) (*domain.Lead, error) {
	ctx, span := tracer.Start(ctx, "LeadStore.GetLeadByEmail")
	defer span.End()

	return s.one(ctx, "get_lead_by_email", email,
		`SELECT `+leadColumns+` FROM leads WHERE lower(email) = lower($1) ORDER BY created_at LIMIT 1`, email)
}

func (s *LeadStore) ListLeads(ctx context.Context) ([]domain.Lead, error) {
	return s.list(ctx, "list_leads", `SELECT `+leadColumns+` FROM leads ORDER BY created_at DESC`)
}

func (s *LeadStore) ListLeadsByStatus(ctx context.Context, status domain.LeadStatus) ([]domain.Lead, error) {
	return s.list(ctx, "list_leads_by_status",
		`SELECT `+leadColumns+` FROM leads WHERE status = $1 ORDER BY created_at DESC`, string(status))
}

func (s *LeadStore) UpdateLeadStatus(ctx context.Context, id string, status domain.LeadStatus, notes string) (*domain.Lead, error) {
	ctx, span := tracer.Start(ctx, "LeadStore.UpdateLeadStatus")
	defer span.End()

	return s.one(ctx, "update_lead_status", id, `
		UPDATE leads SET status = $2, notes = CASE WHEN $3 = '' THEN notes ELSE $3 END
		WHERE id = $1
		RETURNING `+leadColumns, id, string(status), notes)
}

// UpdateLeadContact delegates to the update_lead_contact SQL function shared
// with the Supabase backend.
func (s *LeadStore) UpdateLeadContact(ctx context.Context, id string, upd domain.ContactUpdate, onlyPlaceholders bool) (*domain.Lead, error) {
	ctx, span := tracer.Start(ctx, "LeadStore.UpdateLeadContact")
	defer span.End()

	return s.one(ctx, "update_lead_contact", id,
		`SELECT `+leadColumns+` FROM update_lead_contact($1, $2, $3, $4, $5)`,
		id, upd.Name, upd.Email, upd.Phone, onlyPlaceholders)
}

func (s *LeadStore) LinkMessage(ctx context.Context, leadID, messageID string) error {
	ctx, span := tracer.Start(ctx, "LeadStore.LinkMessage")
	defer span.End()

	tag, err := s.db.Exec(ctx, `
		UPDATE leads SET linked_message_ids = array_append(linked_message_ids, $2), last_contact = $3
		WHERE id = $1`, leadID, messageID, s.now().UTC())
	if err != nil {
		return externalErr("link_lead_message", err)
	}
	if tag.RowsAffected() == 0 {
		return &domain.ErrNotFound{Resource: "lead", ID: leadID}
	}
	return nil
}

func (s *LeadStore) DeleteLead(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "LeadStore.DeleteLead")
	defer span.End()

	tag, err := s.db.Exec(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return externalErr("delete_lead", err)
	}
	if tag.RowsAffected() == 0 {
		return &domain.ErrNotFound{Resource: "lead", ID: id}
	}
	return nil
}

func (s *LeadStore) one(ctx context.Context, op, key, query string, args ...any) (*domain.Lead, error) {
	l, err := scanLead(s.db.QueryRow(ctx, query, args...))
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, &domain.ErrNotFound{Resource: "lead", ID: key}
	case isDuplicateError(err):
		return nil, &domain.ErrConflict{Message: "a lead with this email already exists"}
	case err != nil:
		return nil, externalErr(op, err)
	}
	return l, nil
}

func (s *LeadStore) list(ctx context.Context, op, query string, args ...any) ([]domain.Lead, error) {
	ctx, span := tracer.Start(ctx, "LeadStore."+op)
	defer span.End()

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, externalErr(op, err)
	}
	defer rows.Close()

	out := []domain.Lead{}
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, externalErr(op, err)
		}
		out = append(out, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, externalErr(op, err)
	}
	return out, nil
}

func scanLead(row pgx.Row) (*domain.Lead, error) {
	var (
		l      domain.Lead
		status string
	)
	err := row.Scan(&l.ID, &l.Name, &l.Email, &l.Phone, &l.InterestedProducts, &l.SourceMessageID,
		&l.LinkedMessageIDs, &status, &l.CreatedAt, &l.LastContact, &l.Notes)
	if err != nil {
		return nil, err
	}
	l.Status = domain.LeadStatus(status)
	l.InterestedProducts = nonNil(l.InterestedProducts)
	l.LinkedMessageIDs = nonNil(l.LinkedMessageIDs)
	l.CreatedAt = l.CreatedAt.UTC()
	l.LastContact = l.LastContact.UTC()
	return &l, nil
}

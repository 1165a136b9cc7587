package supabase

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/boddenberg/shop-advisor-go/internal/domain"
)

// ============================================================
// LeadStore implementation (table: leads, rpc: update_lead_contact,
// link_lead_message)
// ============================================================

func (c *Client) CreateLead(ctx context.Context, lead *domain.Lead) (*domain.Lead, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateLead")
	defer span.End()

	id := lead.ID
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now().UTC()
	createdAt, lastContact := lead.CreatedAt, lead.LastContact
	if createdAt.IsZero() {
		createdAt = now
	}
	if lastContact.IsZero() {
		lastContact = now
	}

	data := map[string]any{
		"id":                  id,
		"name":                lead.Name,
		"email":               lead.Email,
		"phone":               lead.Phone,
		"interested_products": nonNil(lead.InterestedProducts),
		"linked_message_ids":  nonNil(lead.LinkedMessageIDs),
		"status":              lead.Status,
		"created_at":          createdAt.Format(time.RFC3339Nano),
		"last_contact":        lastContact.Format(time.RFC3339Nano),
		"notes":               lead.Notes,
	}
	if lead.SourceMessageID != "" {
		data["source_message_id"] = lead.SourceMessageID
	}

	resp, err := c.doPost(ctx, "create_lead", "leads", data)
	if err != nil {
		return nil, err
	}
	return c.singleLead("create_lead", resp, id)
}

func (c *Client) GetLead(ctx context.Context, id string) (*domain.Lead, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetLead")
	defer span.End()

	var rows []domain.Lead
	q := url.Values{"id": {eq(id)}, "limit": {"1"}}
	if err := c.rows(ctx, "get_lead", withQuery("leads", q), &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "lead", ID: id}
	}
	return normalizeLead(rows[0]), nil
}

// GetLeadByEmail matches case-insensitively. ilike treats "_" as a wildcard,
// so candidates are filtered again on exact equality.
func (c *Client) GetLeadByEmail(ctx context.Context, email string) (*domain.Lead, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetLeadByEmail")
	defer span.End()

	var rows []domain.Lead
	q := url.Values{"email": {"ilike." + email}, "order": {"created_at.asc"}}
	if err := c.rows(ctx, "get_lead_by_email", withQuery("leads", q), &rows); err != nil {
		return nil, err
	}
	for _, l := range rows {
		if strings.EqualFold(l.Email, email) {
			return normalizeLead(l), nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "lead", ID: email}
}

func (c *Client) ListLeads(ctx context.Context) ([]domain.Lead, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListLeads")
	defer span.End()

	return c.listLeads(ctx, "list_leads", url.Values{})
}

func (c *Client) ListLeadsByStatus(ctx context.Context, status domain.LeadStatus) ([]domain.Lead, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListLeadsByStatus")
	defer span.End()

	return c.listLeads(ctx, "list_leads_by_status", url.Values{"status": {eq(string(status))}})
}

func (c *Client) UpdateLeadStatus(ctx context.Context, id string, status domain.LeadStatus, notes string) (*domain.Lead, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateLeadStatus")
	defer span.End()

	data := map[string]any{"status": status}
	if notes != "" {
		data["notes"] = notes
	}
	resp, err := c.doPatch(ctx, "update_lead_status", withQuery("leads", url.Values{"id": {eq(id)}}), data)
	if err != nil {
		return nil, err
	}
	return c.singleLead("update_lead_status", resp, id)
}

// UpdateLeadContact calls the update_lead_contact SQL function, which applies
// the placeholder guard inside a single UPDATE.
func (c *Client) UpdateLeadContact(ctx context.Context, id string, upd domain.ContactUpdate, onlyPlaceholders bool) (*domain.Lead, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateLeadContact")
	defer span.End()

	resp, err := c.doPost(ctx, "update_lead_contact", "rpc/update_lead_contact", map[string]any{
		"p_id":                id,
		"p_name":              upd.Name,
		"p_email":             upd.Email,
		"p_phone":             upd.Phone,
		"p_only_placeholders": onlyPlaceholders,
	})
	if err != nil {
		return nil, err
	}
	return c.singleLead("update_lead_contact", resp, id)
}

func (c *Client) LinkMessage(ctx context.Context, leadID, messageID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.LinkMessage")
	defer span.End()

	resp, err := c.doPost(ctx, "link_lead_message", "rpc/link_lead_message", map[string]any{
		"p_lead_id":    leadID,
		"p_message_id": messageID,
	})
	if err != nil {
		return err
	}
	_, err = c.singleLead("link_lead_message", resp, leadID)
	return err
}

func (c *Client) DeleteLead(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteLead")
	defer span.End()

	return c.deleteRow(ctx, "delete_lead", "leads", "lead", id)
}

func (c *Client) listLeads(ctx context.Context, service string, q url.Values) ([]domain.Lead, error) {
	q.Set("order", "created_at.desc")
	var rows []domain.Lead
	if err := c.rows(ctx, service, withQuery("leads", q), &rows); err != nil {
		return nil, err
	}
	out := make([]domain.Lead, 0, len(rows))
	for _, l := range rows {
		out = append(out, *normalizeLead(l))
	}
	return out, nil
}

// singleLead decodes a write that returns the affected rows. No row means the
// lead does not exist.
func (c *Client) singleLead(service string, resp *response, id string) (*domain.Lead, error) {
	if err := statusError(service, resp); err != nil {
		var conflict *domain.ErrConflict
		if errors.As(err, &conflict) {
			return nil, &domain.ErrConflict{Message: "a lead with this email already exists"}
		}
		return nil, err
	}
	var rows []domain.Lead
	if err := decodeRows(service, resp.body, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "lead", ID: id}
	}
	return normalizeLead(rows[0]), nil
}

func normalizeLead(l domain.Lead) *domain.Lead {
	l.InterestedProducts = nonNil(l.InterestedProducts)
	l.LinkedMessageIDs = nonNil(l.LinkedMessageIDs)
	l.CreatedAt = l.CreatedAt.UTC()
	l.LastContact = l.LastContact.UTC()
	return &l
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

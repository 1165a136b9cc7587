package domain

import (
	"strings"
	"time"
)

// ============================================================
// Lead: prospective customer captured from chat signals
// ============================================================

// LeadStatus is the lifecycle state of a lead.
type LeadStatus string

const (
	LeadStatusNew                LeadStatus = "new"
	LeadStatusPendingContactInfo LeadStatus = "pending_contact_info"
	LeadStatusContacted          LeadStatus = "contacted"
	LeadStatusConverted          LeadStatus = "converted"
	LeadStatusLost               LeadStatus = "lost"
)

// Valid reports whether s is one of the known statuses.
func (s LeadStatus) Valid() bool {
	switch s {
	case LeadStatusNew, LeadStatusPendingContactInfo, LeadStatusContacted, LeadStatusConverted, LeadStatusLost:
		return true
	}
	return false
}

// Placeholder contact values used until the customer shares real data.
const (
	PlaceholderName  = "To be provided"
	PlaceholderEmail = "pending@example.com"
	PlaceholderPhone = "To be provided"
)

// Lead is a prospective customer record.
type Lead struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	Email              string     `json:"email"`
	Phone              string     `json:"phone"`
	InterestedProducts []string   `json:"interested_products"`
	SourceMessageID    string     `json:"source_message_id,omitempty"`
	LinkedMessageIDs   []string   `json:"linked_message_ids"`
	Status             LeadStatus `json:"status"`
	CreatedAt          time.Time  `json:"created_at"`
	LastContact        time.Time  `json:"last_contact"`
	Notes              string     `json:"notes"`
}

// HasPlaceholderContact reports whether any contact field still holds a placeholder.
func (l *Lead) HasPlaceholderContact() bool {
	return IsPlaceholderName(l.Name) || IsPlaceholderEmail(l.Email) || IsPlaceholderPhone(l.Phone)
}

// IsPlaceholderName reports whether v is empty or the name placeholder.
func IsPlaceholderName(v string) bool {
	return strings.TrimSpace(v) == "" || v == PlaceholderName
}

// IsPlaceholderEmail reports whether v is empty or the email placeholder.
func IsPlaceholderEmail(v string) bool {
	return strings.TrimSpace(v) == "" || strings.EqualFold(v, PlaceholderEmail)
}

// IsPlaceholderPhone reports whether v is empty or the phone placeholder.
func IsPlaceholderPhone(v string) bool {
	return strings.TrimSpace(v) == "" || v == PlaceholderPhone
}

// ContactUpdate carries contact fields for a lead. Empty fields are left untouched.
type ContactUpdate struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// CreateLeadRequest is the payload accepted by POST /v1/leads.
type CreateLeadRequest struct {
	Name               string   `json:"name"`
	Email              string   `json:"email"`
	Phone              string   `json:"phone"`
	InterestedProducts []string `json:"interested_products"`
	SourceMessageID    string   `json:"source_message_id,omitempty"`
}

// Validate checks the required fields.
func (r *CreateLeadRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return &ErrValidation{Field: "name", Message: "name is required"}
	}
	if strings.TrimSpace(r.Email) == "" {
		return &ErrValidation{Field: "email", Message: "email is required"}
	}
	if strings.TrimSpace(r.Phone) == "" {
		return &ErrValidation{Field: "phone", Message: "phone is required"}
	}
	return nil
}

// UpdateLeadStatusRequest is the payload accepted by PUT /v1/leads/{leadId}/status.
type UpdateLeadStatusRequest struct {
	Status LeadStatus `json:"status"`
	Notes  string     `json:"notes"`
}

// LeadWithMessages is a lead plus its source message and every linked message.
type LeadWithMessages struct {
	Lead            *Lead     `json:"lead"`
	SourceMessage   *Message  `json:"source_message,omitempty"`
	RelatedMessages []Message `json:"related_messages"`
	TotalMessages   int       `json:"total_messages"`
}

// ConversationHistory is the chronological timeline of a lead's messages.
type ConversationHistory struct {
	Lead              *Lead      `json:"lead"`
	Messages          []Message  `json:"messages"`
	TotalMessages     int        `json:"total_messages"`
	ConversationStart *time.Time `json:"conversation_start"`
	ConversationEnd   *time.Time `json:"conversation_end"`
}

// LeadAnalytics summarises activity around a lead.
type LeadAnalytics struct {
	LeadID                  string     `json:"lead_id"`
	TotalMessages           int        `json:"total_messages"`
	FirstMessageDate        *time.Time `json:"first_message_date"`
	LastMessageDate         *time.Time `json:"last_message_date"`
	InterestedProductsCount int        `json:"interested_products_count"`
	LeadAgeDays             int        `json:"lead_age_days"`
	ConversionProbability   string     `json:"conversion_probability"`
}

// LeadEventType names the lead lifecycle events published to sales tooling.
type LeadEventType string

const (
	LeadEventCaptured       LeadEventType = "lead.captured"
	LeadEventContactUpdated LeadEventType = "lead.contact_updated"
)

// LeadEvent is the message published when a lead is created or completed.
type LeadEvent struct {
	Type               LeadEventType `json:"type"`
	LeadID             string        `json:"lead_id"`
	Status             LeadStatus    `json:"status"`
	Email              string        `json:"email,omitempty"`
	InterestedProducts []string      `json:"interested_products,omitempty"`
	OccurredAt         time.Time     `json:"occurred_at"`
}

// NewLeadEvent snapshots l for publishing.
func NewLeadEvent(t LeadEventType, l *Lead, at time.Time) LeadEvent {
	evt := LeadEvent{
		Type:               t,
		LeadID:             l.ID,
		Status:             l.Status,
		InterestedProducts: l.InterestedProducts,
		OccurredAt:         at.UTC(),
	}
	if !IsPlaceholderEmail(l.Email) {
		evt.Email = l.Email
	}
	return evt
}

package domain

import "time"

// ============================================================
// Message: one persisted chat turn
// ============================================================

// Message is created once per inbound chat turn and never mutated afterwards.
// ProductIDs keeps the order in which the model recommended the products.
type Message struct {
	ID         string    `json:"id"`
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	ProductIDs []string  `json:"product_ids"`
	Timestamp  time.Time `json:"timestamp"`
}

// CreateMessageRequest is the payload accepted by POST /v1/messages.
type CreateMessageRequest struct {
	Question   string   `json:"question"`
	Answer     string   `json:"answer"`
	ProductIDs []string `json:"product_ids"`
}

// Validate checks the required fields.
func (r *CreateMessageRequest) Validate() error {
	if r.Question == "" {
		return &ErrValidation{Field: "question", Message: "question is required"}
	}
	if r.Answer == "" {
		return &ErrValidation{Field: "answer", Message: "answer is required"}
	}
	return nil
}

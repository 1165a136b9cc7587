// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"
	"time"

	"github.com/boddenberg/shop-advisor-go/internal/domain"
)

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(ctx context.Context, key string) (T, bool)
	Set(ctx context.Context, key string, value T)
	Delete(ctx context.Context, key string)
}

// MessageStore persists chat turns. Messages are immutable once created.
type MessageStore interface {
	CreateMessage(ctx context.Context, msg *domain.Message) (*domain.Message, error)
	GetMessage(ctx context.Context, id string) (*domain.Message, error)
	GetMessagesByIDs(ctx context.Context, ids []string) ([]domain.Message, error)
	ListMessages(ctx context.Context) ([]domain.Message, error)
	ListMessagesByDateRange(ctx context.Context, start, end time.Time) ([]domain.Message, error)
	ListMessagesByProductIDs(ctx context.Context, productIDs []string) ([]domain.Message, error)
	DeleteMessage(ctx context.Context, id string) error
}

// LeadStore persists sales leads.
//
// UpdateLeadContact and LinkMessage must be atomic per lead: two concurrent
// contact replies never overwrite each other's real contact data, and two
// concurrent links never lose an id.
type LeadStore interface {
	CreateLead(ctx context.Context, lead *domain.Lead) (*domain.Lead, error)
	GetLead(ctx context.Context, id string) (*domain.Lead, error)
	// GetLeadByEmail returns *domain.ErrNotFound when no lead uses the email.
	GetLeadByEmail(ctx context.Context, email string) (*domain.Lead, error)
	ListLeads(ctx context.Context) ([]domain.Lead, error)
	ListLeadsByStatus(ctx context.Context, status domain.LeadStatus) ([]domain.Lead, error)
	UpdateLeadStatus(ctx context.Context, id string, status domain.LeadStatus, notes string) (*domain.Lead, error)
	// UpdateLeadContact sets the non-empty fields of upd and moves the lead to
	// status new. With onlyPlaceholders, a field is written only while the
	// stored value is still a placeholder.
	UpdateLeadContact(ctx context.Context, id string, upd domain.ContactUpdate, onlyPlaceholders bool) (*domain.Lead, error)
	// LinkMessage appends messageID to linked_message_ids and touches last_contact.
	LinkMessage(ctx context.Context, leadID, messageID string) error
	DeleteLead(ctx context.Context, id string) error
}

// ProductStore is the product catalog.
type ProductStore interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	// FindProductsByNames does a case-insensitive substring match per name.
	FindProductsByNames(ctx context.Context, names []string) ([]domain.Product, error)
	CreateProduct(ctx context.Context, p *domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, p *domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

// LeadEventPublisher announces lead lifecycle changes to sales tooling.
type LeadEventPublisher interface {
	PublishLeadEvent(ctx context.Context, evt domain.LeadEvent) error
	Close() error
}

// ChatTurn is one entry of a model conversation history.
type ChatTurn struct {
	Role string // "user" or "model"
	Text string
}

// Completer is a generative language model. History is replayed before
// prompt so providers stay stateless between calls.
type Completer interface {
	Complete(ctx context.Context, history []ChatTurn, prompt string) (string, error)
	Name() string
}

// AnswerGenerator answers a prompt within a conversation seeded with context.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, prompt, productContext string) (string, error)
}

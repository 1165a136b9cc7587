// Package memory provides in-process stores for local runs and tests.
// Every value is copied on the way in and out so callers never share
// state with the store.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/boddenberg/shop-advisor-go/internal/domain"
)

// MessageStore keeps messages in a map.
type MessageStore struct {
	mu       sync.RWMutex
	messages map[string]domain.Message
}

func NewMessageStore() *MessageStore {
	return &MessageStore{messages: make(map[string]domain.Message)}
}

func (s *MessageStore) CreateMessage(_ context.Context, msg *domain.Message) (*domain.Message, error) {
	m := copyMessage(*msg)
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}

	s.mu.Lock()
	s.messages[m.ID] = m
	s.mu.Unlock()

	out := copyMessage(m)
	return &out, nil
}

func (s *MessageStore) GetMessage(_ context.Context, id string) (*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.messages[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "message", ID: id}
	}
	out := copyMessage(m)
	return &out, nil
}

// GetMessagesByIDs returns the messages found, in the order of ids.
func (s *MessageStore) GetMessagesByIDs(_ context.Context, ids []string) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Message, 0, len(ids))
	for _, id := range ids {
		if m, ok := s.messages[id]; ok {
			out = append(out, copyMessage(m))
		}
	}
	return out, nil
}

func (s *MessageStore) ListMessages(_ context.Context) ([]domain.Message, error) {
	return s.filter(func(domain.Message) bool { return true }), nil
}

func (s *MessageStore) ListMessagesByDateRange(_ context.Context, start, end time.Time) ([]domain.Message, error) {
	return s.filter(func(m domain.Message) bool {
		return !m.Timestamp.Before(start) && !m.Timestamp.After(end)
	}), nil
}

func (s *MessageStore) ListMessagesByProductIDs(_ context.Context, productIDs []string) ([]domain.Message, error) {
	return s.filter(func(m domain.Message) bool {
		for _, id := range m.ProductIDs {
			if slices.Contains(productIDs, id) {
				return true
			}
		}
		return false
	}), nil
}

func (s *MessageStore) DeleteMessage(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.messages[id]; !ok {
		return &domain.ErrNotFound{Resource: "message", ID: id}
	}
	delete(s.messages, id)
	return nil
}

func (s *MessageStore) filter(keep func(domain.Message) bool) []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Message{}
	for _, m := range s.messages {
		if keep(m) {
			out = append(out, copyMessage(m))
		}
	}
	slices.SortFunc(out, func(a, b domain.Message) int { return a.Timestamp.Compare(b.Timestamp) })
	return out
}

func copyMessage(m domain.Message) domain.Message {
	m.ProductIDs = slices.Clone(m.ProductIDs)
	if m.ProductIDs == nil {
		m.ProductIDs = []string{}
	}
	return m
}

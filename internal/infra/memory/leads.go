package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/boddenberg/shop-advisor-go/internal/domain"
)

// LeadStore keeps leads in a map. A single mutex serialises writes, which
// makes the placeholder-only contact update and message linking atomic.
type LeadStore struct {
	mu    sync.RWMutex
	leads map[string]domain.Lead
	now   func() time.Time
}

func NewLeadStore() *LeadStore {
	return &LeadStore{leads: make(map[string]domain.Lead), now: time.Now}
}

func (s *LeadStore) CreateLead(_ context.Context, lead *domain.Lead) (*domain.Lead, error) {
	l := copyLead(*lead)
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

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.leads[l.ID]; exists {
		return nil, &domain.ErrConflict{Message: "lead already exists: " + l.ID}
	}
	s.leads[l.ID] = l
	out := copyLead(l)
	return &out, nil
}

func (s *LeadStore) GetLead(_ context.Context, id string) (*domain.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.leads[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "lead", ID: id}
	}
	out := copyLead(l)
	return &out, nil
}

func (s *LeadStore) GetLeadByEmail(_ context.Context, email string) (*domain.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Oldest match wins, as in the SQL backends.
	var (
		found domain.Lead
		ok    bool
	)
	for _, l := range s.leads {
		if !strings.EqualFold(l.Email, email) {
			continue
		}
		if !ok || l.CreatedAt.Before(found.CreatedAt) ||
			(l.CreatedAt.Equal(found.CreatedAt) && l.ID < found.ID) {
			found, ok = l, true
		}
	}
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "lead", ID: email}
	}
	out := copyLead(found)
	return &out, nil
}

func (s *LeadStore) ListLeads(_ context.Context) ([]domain.Lead, error) {
	return s.filter(func(domain.Lead) bool { return true }), nil
}

func (s *LeadStore) ListLeadsByStatus(_ context.Context, status domain.LeadStatus) ([]domain.Lead, error) {
	return s.filter(func(l domain.Lead) bool { return l.Status == status }), nil
}

func (s *LeadStore) UpdateLeadStatus(_ context.Context, id string, status domain.LeadStatus, notes string) (*domain.Lead, error) {
	return s.update(id, func(l *domain.Lead) {
		l.Status = status
		if notes != "" {
			l.Notes = notes
		}
	})
}

func (s *LeadStore) UpdateLeadContact(_ context.Context, id string, upd domain.ContactUpdate, onlyPlaceholders bool) (*domain.Lead, error) {
	return s.update(id, func(l *domain.Lead) {
		if upd.Name != "" && (!onlyPlaceholders || domain.IsPlaceholderName(l.Name)) {
			l.Name = upd.Name
		}
		if upd.Email != "" && (!onlyPlaceholders || domain.IsPlaceholderEmail(l.Email)) {
			l.Email = upd.Email
		}
		if upd.Phone != "" && (!onlyPlaceholders || domain.IsPlaceholderPhone(l.Phone)) {
			l.Phone = upd.Phone
		}
		l.Status = domain.LeadStatusNew
	})
}

func (s *LeadStore) LinkMessage(_ context.Context, leadID, messageID string) error {
	_, err := s.update(leadID, func(l *domain.Lead) {
		l.LinkedMessageIDs = append(l.LinkedMessageIDs, messageID)
		l.LastContact = s.now().UTC()
	})
	return err
}

func (s *LeadStore) DeleteLead(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.leads[id]; !ok {
		return &domain.ErrNotFound{Resource: "lead", ID: id}
	}
	delete(s.leads, id)
	return nil
}

func (s *LeadStore) update(id string, mutate func(*domain.Lead)) (*domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.leads[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "lead", ID: id}
	}
	mutate(&l)
	s.leads[id] = l
	out := copyLead(l)
	return &out, nil
}

func (s *LeadStore) filter(keep func(domain.Lead) bool) []domain.Lead {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Lead{}
	for _, l := range s.leads {
		if keep(l) {
			out = append(out, copyLead(l))
		}
	}
	slices.SortFunc(out, func(a, b domain.Lead) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out
}

func copyLead(l domain.Lead) domain.Lead {
	l.InterestedProducts = cloneNonNil(l.InterestedProducts)
	l.LinkedMessageIDs = cloneNonNil(l.LinkedMessageIDs)
	return l
}

func cloneNonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return slices.Clone(s)
}

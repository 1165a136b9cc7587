package memory_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/boddenberg/shop-advisor-go/internal/domain"
	"github.com/boddenberg/shop-advisor-go/internal/infra/memory"
)

func TestLeadStore_UpdateContactOnlyPlaceholders(t *testing.T) {
	ctx := context.Background()
	s := memory.NewLeadStore()

	lead, err := s.CreateLead(ctx, &domain.Lead{
		Name:   "Jean Dupont",
		Email:  domain.PlaceholderEmail,
		Phone:  domain.PlaceholderPhone,
		Status: domain.LeadStatusPendingContactInfo,
	})
	if err != nil {
		t.Fatalf("CreateLead: %v", err)
	}

	got, err := s.UpdateLeadContact(ctx, lead.ID, domain.ContactUpdate{
		Name:  "Someone Else",
		Email: "jean@example.com",
	}, true)
	if err != nil {
		t.Fatalf("UpdateLeadContact: %v", err)
	}
	if got.Name != "Jean Dupont" {
		t.Errorf("real name overwritten: %q", got.Name)
	}
	if got.Email != "jean@example.com" {
		t.Errorf("expected email set, got %q", got.Email)
	}
	if got.Phone != domain.PlaceholderPhone {
		t.Errorf("phone should stay placeholder, got %q", got.Phone)
	}
	if got.Status != domain.LeadStatusNew {
		t.Errorf("expected status new, got %s", got.Status)
	}

	forced, err := s.UpdateLeadContact(ctx, lead.ID, domain.ContactUpdate{Name: "Jean-Pierre Dupont"}, false)
	if err != nil {
		t.Fatalf("UpdateLeadContact force: %v", err)
	}
	if forced.Name != "Jean-Pierre Dupont" {
		t.Errorf("expected forced name, got %q", forced.Name)
	}
}

func TestLeadStore_ConcurrentLinksKeepEveryID(t *testing.T) {
	ctx := context.Background()
	s := memory.NewLeadStore()
	lead, _ := s.CreateLead(ctx, &domain.Lead{Name: "A", Email: "a@example.com", Phone: "0600000000"})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := s.LinkMessage(ctx, lead.ID, fmt.Sprintf("msg-%d", i)); err != nil {
				t.Errorf("LinkMessage: %v", err)
			}
		}(i)
	}
	wg.Wait()

	got, _ := s.GetLead(ctx, lead.ID)
	if len(got.LinkedMessageIDs) != 50 {
		t.Errorf("expected 50 linked ids, got %d", len(got.LinkedMessageIDs))
	}
}

func TestLeadStore_NotFound(t *testing.T) {
	ctx := context.Background()
	s := memory.NewLeadStore()

	var nf *domain.ErrNotFound
	if _, err := s.GetLeadByEmail(ctx, "nobody@example.com"); !errors.As(err, &nf) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := s.LinkMessage(ctx, "missing", "m1"); !errors.As(err, &nf) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLeadStore_GetLeadByEmailPicksOldest(t *testing.T) {
	ctx := context.Background()
	s := memory.NewLeadStore()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	for i := range 5 {
		if _, err := s.CreateLead(ctx, &domain.Lead{
			Name: fmt.Sprintf("newer %d", i), Email: "Marie@Example.com", CreatedAt: base.Add(time.Duration(i+1) * time.Hour),
		}); err != nil {
			t.Fatalf("CreateLead: %v", err)
		}
	}
	oldest, _ := s.CreateLead(ctx, &domain.Lead{Name: "oldest", Email: "marie@example.com", CreatedAt: base})

	for range 20 {
		got, err := s.GetLeadByEmail(ctx, "MARIE@example.com")
		if err != nil {
			t.Fatalf("GetLeadByEmail: %v", err)
		}
		if got.ID != oldest.ID {
			t.Fatalf("expected oldest lead %s, got %s (%s)", oldest.ID, got.ID, got.Name)
		}
	}
}

func TestLeadStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := memory.NewLeadStore()
	lead, _ := s.CreateLead(ctx, &domain.Lead{Name: "A", InterestedProducts: []string{"X"}})

	lead.InterestedProducts[0] = "mutated"
	got, _ := s.GetLead(ctx, lead.ID)
	if got.InterestedProducts[0] != "X" {
		t.Errorf("store state leaked to caller: %v", got.InterestedProducts)
	}
}

func TestMessageStore_Queries(t *testing.T) {
	ctx := context.Background()
	s := memory.NewMessageStore()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	m1, _ := s.CreateMessage(ctx, &domain.Message{Question: "q1", Answer: "a1", ProductIDs: []string{"p1"}, Timestamp: base})
	m2, _ := s.CreateMessage(ctx, &domain.Message{Question: "q2", Answer: "a2", ProductIDs: []string{"p2", "p3"}, Timestamp: base.Add(48 * time.Hour)})
	_, _ = s.CreateMessage(ctx, &domain.Message{Question: "q3", Answer: "a3", Timestamp: base.Add(96 * time.Hour)})

	inRange, _ := s.ListMessagesByDateRange(ctx, base, base.Add(48*time.Hour))
	if len(inRange) != 2 {
		t.Errorf("expected 2 messages in range (inclusive), got %d", len(inRange))
	}

	byProduct, _ := s.ListMessagesByProductIDs(ctx, []string{"p3", "p9"})
	if len(byProduct) != 1 || byProduct[0].ID != m2.ID {
		t.Errorf("expected only m2, got %+v", byProduct)
	}

	byIDs, _ := s.GetMessagesByIDs(ctx, []string{m2.ID, "missing", m1.ID})
	if len(byIDs) != 2 || byIDs[0].ID != m2.ID || byIDs[1].ID != m1.ID {
		t.Errorf("expected [m2 m1] in request order, got %+v", byIDs)
	}

	if err := s.DeleteMessage(ctx, m1.ID); err != nil {
		t.Fatalf("DeleteMessage: %v", err)
	}
	var nf *domain.ErrNotFound
	if _, err := s.GetMessage(ctx, m1.ID); !errors.As(err, &nf) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestProductStore_FindProductsByNames(t *testing.T) {
	ctx := context.Background()
	s := memory.NewProductStore(
		domain.Product{ID: "1", Name: "UltraBook Pro 14 Laptop"},
		domain.Product{ID: "2", Name: "Gaming Mouse"},
		domain.Product{ID: "3", Name: "Office Laptop 15"},
	)

	got, err := s.FindProductsByNames(ctx, []string{"laptop", "  ", "LAPTOP", "mouse"})
	if err != nil {
		t.Fatalf("FindProductsByNames: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 distinct products, got %d", len(got))
	}
	if got[0].ID != "1" || got[1].ID != "3" || got[2].ID != "2" {
		t.Errorf("unexpected order: %s %s %s", got[0].ID, got[1].ID, got[2].ID)
	}
}

func TestProductStore_DeleteKeepsOrder(t *testing.T) {
	ctx := context.Background()
	s := memory.NewProductStore(
		domain.Product{ID: "1", Name: "A"},
		domain.Product{ID: "2", Name: "B"},
		domain.Product{ID: "3", Name: "C"},
	)
	if err := s.DeleteProduct(ctx, "2"); err != nil {
		t.Fatalf("DeleteProduct: %v", err)
	}
	list, _ := s.ListProducts(ctx)
	if len(list) != 2 || list[0].ID != "1" || list[1].ID != "3" {
		t.Errorf("unexpected catalog: %+v", list)
	}
}

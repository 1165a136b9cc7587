package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/boddenberg/shop-advisor-go/internal/domain"
)

// ProductStore keeps the catalog in insertion order.
type ProductStore struct {
	mu       sync.RWMutex
	order    []string
	products map[string]domain.Product
}

// NewProductStore creates a store seeded with products.
func NewProductStore(seed ...domain.Product) *ProductStore {
	s := &ProductStore{products: make(map[string]domain.Product)}
	for i := range seed {
		_, _ = s.CreateProduct(context.Background(), &seed[i])
	}
	return s
}

func (s *ProductStore) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Product, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, copyProduct(s.products[id]))
	}
	return out, nil
}

func (s *ProductStore) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "product", ID: id}
	}
	out := copyProduct(p)
	return &out, nil
}

// FindProductsByNames matches each name as a case-insensitive substring of
// the product name. Results follow the order of names without duplicates.
func (s *ProductStore) FindProductsByNames(_ context.Context, names []string) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	catalog := make([]domain.Product, 0, len(s.order))
	for _, id := range s.order {
		catalog = append(catalog, copyProduct(s.products[id]))
	}
	return domain.MatchProductsByNames(catalog, names), nil
}

func (s *ProductStore) CreateProduct(_ context.Context, p *domain.Product) (*domain.Product, error) {
	c := copyProduct(*p)
	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.products[c.ID]; !exists {
		s.order = append(s.order, c.ID)
	}
	s.products[c.ID] = c
	out := copyProduct(c)
	return &out, nil
}

func (s *ProductStore) UpdateProduct(_ context.Context, p *domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[p.ID]; !ok {
		return nil, &domain.ErrNotFound{Resource: "product", ID: p.ID}
	}
	c := copyProduct(*p)
	s.products[c.ID] = c
	out := copyProduct(c)
	return &out, nil
}

func (s *ProductStore) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return &domain.ErrNotFound{Resource: "product", ID: id}
	}
	delete(s.products, id)
	s.order = slices.DeleteFunc(s.order, func(v string) bool { return v == id })
	return nil
}

func copyProduct(p domain.Product) domain.Product {
	p.Tags = cloneNonNil(p.Tags)
	if p.UpdatedAt != nil {
		t := *p.UpdatedAt
		p.UpdatedAt = &t
	}
	return p
}

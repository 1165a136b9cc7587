package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/boddenberg/shop-advisor-go/internal/domain"
	"github.com/boddenberg/shop-advisor-go/internal/port"
)

// ProductService administers the catalog. Every write invalidates the
// rendered product context so the model sees the change on the next turn.
type ProductService struct {
	store    port.ProductStore
	products *ProductContextProvider
	logger   *zap.Logger
}

// NewProductService creates the service.
func NewProductService(store port.ProductStore, products *ProductContextProvider, logger *zap.Logger) *ProductService {
	return &ProductService{store: store, products: products, logger: logger}
}

func (s *ProductService) CreateProduct(ctx context.Context, req *domain.ProductRequest) (*domain.Product, error) {
	ctx, span := tracer.Start(ctx, "ProductService.CreateProduct")
	defer span.End()

	if err := req.ValidateCreate(); err != nil {
		return nil, err
	}
	p := domain.NewProductFromRequest(req)
	p.CreatedAt = time.Now().UTC()

	created, err := s.store.CreateProduct(ctx, p)
	if err != nil {
		return nil, err
	}
	s.products.Invalidate(ctx)
	s.logger.Info("product created", zap.String("product_id", created.ID), zap.String("name", created.Name))
	return created, nil
}

func (s *ProductService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	ctx, span := tracer.Start(ctx, "ProductService.GetProduct")
	defer span.End()
	return s.store.GetProduct(ctx, id)
}

func (s *ProductService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	ctx, span := tracer.Start(ctx, "ProductService.ListProducts")
	defer span.End()
	return s.store.ListProducts(ctx)
}

// UpdateProduct applies a partial update.
func (s *ProductService) UpdateProduct(ctx context.Context, id string, req *domain.ProductRequest) (*domain.Product, error) {
	ctx, span := tracer.Start(ctx, "ProductService.UpdateProduct")
	defer span.End()

	if err := req.ValidateUpdate(); err != nil {
		return nil, err
	}
	p, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	req.Apply(p)
	now := time.Now().UTC()
	p.UpdatedAt = &now

	updated, err := s.store.UpdateProduct(ctx, p)
	if err != nil {
		return nil, err
	}
	s.products.Invalidate(ctx)
	return updated, nil
}

func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "ProductService.DeleteProduct")
	defer span.End()

	if err := s.store.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.products.Invalidate(ctx)
	return nil
}

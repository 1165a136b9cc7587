package supabase

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/boddenberg/shop-advisor-go/internal/domain"
)

// ============================================================
// ProductStore implementation (table: products)
// ============================================================

func (c *Client) ListProducts(ctx context.Context) ([]domain.Product, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListProducts")
	defer span.End()

	return c.listProducts(ctx, "list_products", url.Values{})
}

func (c *Client) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetProduct")
	defer span.End()

	var rows []domain.Product
	q := url.Values{"id": {eq(id)}, "limit": {"1"}}
	if err := c.rows(ctx, "get_product", withQuery("products", q), &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "product", ID: id}
	}
	return normalizeProduct(rows[0]), nil
}

// FindProductsByNames sends one ilike clause per name and orders the hits
// by the order of names.
func (c *Client) FindProductsByNames(ctx context.Context, names []string) ([]domain.Product, error) {
	ctx, span := tracer.Start(ctx, "Supabase.FindProductsByNames")
	defer span.End()

	clauses := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			clauses = append(clauses, "name.ilike."+quote("*"+n+"*"))
		}
	}
	if len(clauses) == 0 {
		return []domain.Product{}, nil
	}

	found, err := c.listProducts(ctx, "find_products_by_names", url.Values{
		"or": {"(" + strings.Join(clauses, ",") + ")"},
	})
	if err != nil {
		return nil, err
	}
	return domain.MatchProductsByNames(found, names), nil
}

func (c *Client) CreateProduct(ctx context.Context, p *domain.Product) (*domain.Product, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateProduct")
	defer span.End()

	out := *p
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = time.Now().UTC()
	}

	data := productRow(&out)
	data["id"] = out.ID
	data["created_at"] = out.CreatedAt.Format(time.RFC3339Nano)

	resp, err := c.doPost(ctx, "create_product", "products", data)
	if err != nil {
		return nil, err
	}
	return c.singleProduct("create_product", resp, out.ID)
}

func (c *Client) UpdateProduct(ctx context.Context, p *domain.Product) (*domain.Product, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateProduct")
	defer span.End()

	data := productRow(p)
	if p.UpdatedAt != nil {
		data["updated_at"] = p.UpdatedAt.UTC().Format(time.RFC3339Nano)
	}
	resp, err := c.doPatch(ctx, "update_product", withQuery("products", url.Values{"id": {eq(p.ID)}}), data)
	if err != nil {
		return nil, err
	}
	return c.singleProduct("update_product", resp, p.ID)
}

func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteProduct")
	defer span.End()

	return c.deleteRow(ctx, "delete_product", "products", "product", id)
}

func (c *Client) listProducts(ctx context.Context, service string, q url.Values) ([]domain.Product, error) {
	q.Set("order", "created_at.asc,id.asc")
	var rows []domain.Product
	if err := c.rows(ctx, service, withQuery("products", q), &rows); err != nil {
		return nil, err
	}
	out := make([]domain.Product, 0, len(rows))
	for _, p := range rows {
		out = append(out, *normalizeProduct(p))
	}
	return out, nil
}

func (c *Client) singleProduct(service string, resp *response, id string) (*domain.Product, error) {
	if err := statusError(service, resp); err != nil {
		return nil, err
	}
	var rows []domain.Product
	if err := decodeRows(service, resp.body, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "product", ID: id}
	}
	return normalizeProduct(rows[0]), nil
}

// productRow maps the writable columns.
func productRow(p *domain.Product) map[string]any {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	return map[string]any{
		"name":          p.Name,
		"description":   p.Description,
		"price":         p.Price,
		"tags":          tags,
		"category":      p.Category,
		"image_url":     p.ImageURL,
		"brand":         p.Brand,
		"warranty":      p.Warranty,
		"rating":        p.Rating,
		"reviews_count": p.ReviewsCount,
		"available":     p.Available,
		"release_date":  p.ReleaseDate,
		"specs":         p.Specs,
	}
}

func normalizeProduct(p domain.Product) *domain.Product {
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return &p
}

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/boddenberg/shop-advisor-go/internal/domain"
)

const productColumns = `id, name, description, price, tags, category, image_url, brand, warranty,
	rating, reviews_count, available, release_date, specs, created_at, updated_at`

// ProductStore implements port.ProductStore.
type ProductStore struct {
	db DB
}

func NewProductStore(db DB) *ProductStore {
	return &ProductStore{db: db}
}

func (s *ProductStore) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.list(ctx, "list_products", `SELECT `+productColumns+` FROM products ORDER BY created_at, id`)
}

func (s *ProductStore) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	ctx, span := tracer.Start(ctx, "ProductStore.GetProduct")
	defer span.End()

	p, err := scanProduct(s.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &domain.ErrNotFound{Resource: "product", ID: id}
	}
	if err != nil {
		return nil, externalErr("get_product", err)
	}
	return p, nil
}

// FindProductsByNames matches each name as a case-insensitive substring and
// returns the hits in the order of names, without duplicates.
func (s *ProductStore) FindProductsByNames(ctx context.Context, names []string) ([]domain.Product, error) {
	patterns := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			patterns = append(patterns, "%"+escapeLike(n)+"%")
		}
	}
	if len(patterns) == 0 {
		return []domain.Product{}, nil
	}

	found, err := s.list(ctx, "find_products_by_names",
		`SELECT `+productColumns+` FROM products WHERE name ILIKE ANY($1) ORDER BY created_at, id`, patterns)
	if err != nil {
		return nil, err
	}

	return domain.MatchProductsByNames(found, names), nil
}

func (s *ProductStore) CreateProduct(ctx context.Context, p *domain.Product) (*domain.Product, error) {
	ctx, span := tracer.Start(ctx, "ProductStore.CreateProduct")
	defer span.End()

	out := *p
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = time.Now().UTC()
	}
	out.Tags = nonNil(out.Tags)
	specs, err := json.Marshal(out.Specs)
	if err != nil {
		return nil, fmt.Errorf("marshal specs: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		out.ID, out.Name, out.Description, out.Price, out.Tags, out.Category, out.ImageURL,
		out.Brand, out.Warranty, out.Rating, out.ReviewsCount, out.Available, out.ReleaseDate,
		specs, out.CreatedAt, out.UpdatedAt)
	if err != nil {
		if isDuplicateError(err) {
			return nil, &domain.ErrConflict{Message: "product already exists: " + out.ID}
		}
		return nil, externalErr("insert_product", err)
	}
	return &out, nil
}

func (s *ProductStore) UpdateProduct(ctx context.Context, p *domain.Product) (*domain.Product, error) {
	ctx, span := tracer.Start(ctx, "ProductStore.UpdateProduct")
	defer span.End()

	specs, err := json.Marshal(p.Specs)
	if err != nil {
		return nil, fmt.Errorf("marshal specs: %w", err)
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE products SET name = $2, description = $3, price = $4, tags = $5, category = $6,
			image_url = $7, brand = $8, warranty = $9, rating = $10, reviews_count = $11,
			available = $12, release_date = $13, specs = $14, updated_at = $15
		WHERE id = $1`,
		p.ID, p.Name, p.Description, p.Price, nonNil(p.Tags), p.Category, p.ImageURL,
		p.Brand, p.Warranty, p.Rating, p.ReviewsCount, p.Available, p.ReleaseDate,
		specs, p.UpdatedAt)
	if err != nil {
		return nil, externalErr("update_product", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, &domain.ErrNotFound{Resource: "product", ID: p.ID}
	}
	out := *p
	out.Tags = nonNil(out.Tags)
	return &out, nil
}

func (s *ProductStore) DeleteProduct(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "ProductStore.DeleteProduct")
	defer span.End()

	tag, err := s.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return externalErr("delete_product", err)
	}
	if tag.RowsAffected() == 0 {
		return &domain.ErrNotFound{Resource: "product", ID: id}
	}
	return nil
}

func (s *ProductStore) list(ctx context.Context, op, query string, args ...any) ([]domain.Product, error) {
	ctx, span := tracer.Start(ctx, "ProductStore."+op)
	defer span.End()

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, externalErr(op, err)
	}
	defer rows.Close()

	out := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, externalErr(op, err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, externalErr(op, err)
	}
	return out, nil
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var (
		p     domain.Product
		specs []byte
	)
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Tags, &p.Category, &p.ImageURL,
		&p.Brand, &p.Warranty, &p.Rating, &p.ReviewsCount, &p.Available, &p.ReleaseDate,
		&specs, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(specs) > 0 {
		if err := json.Unmarshal(specs, &p.Specs); err != nil {
			return nil, fmt.Errorf("decode specs: %w", err)
		}
	}
	p.Tags = nonNil(p.Tags)
	return &p, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

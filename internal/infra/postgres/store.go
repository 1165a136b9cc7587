// Package postgres implements the advisor stores on PostgreSQL through pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/boddenberg/shop-advisor-go/internal/domain"
)

var tracer = otel.Tracer("postgres")

// DB is the subset of *pgxpool.Pool the stores use. pgxmock pools satisfy it.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// Store bundles the message, lead and product stores over one pool.
type Store struct {
	pool     *pgxpool.Pool
	Messages *MessageStore
	Leads    *LeadStore
	Products *ProductStore
}

// Open connects to databaseURL and pings it before returning.
func Open(ctx context.Context, databaseURL string, maxConns int32, logger *zap.Logger) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse pg config: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pg pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping pg: %w", err)
	}

	logger.Info("postgres connected", zap.Int32("max_conns", cfg.MaxConns))
	return &Store{
		pool:     pool,
		Messages: NewMessageStore(pool),
		Leads:    NewLeadStore(pool),
		Products: NewProductStore(pool),
	}, nil
}

// Ping reports whether the database answers.
func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Close() { s.pool.Close() }

// isDuplicateError checks for PostgreSQL unique-violation (23505).
func isDuplicateError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func externalErr(op string, err error) error {
	return &domain.ErrExternalService{Service: "postgres/" + op, Err: err}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

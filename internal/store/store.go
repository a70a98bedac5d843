// Package store implements PostgreSQL persistence for the artifact catalog
// using pgx. All queries are written against the schema in schema.sql, which
// Init applies idempotently at startup.
package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/museodigital/catalog/internal/catalog"
)

//go:embed schema.sql
var schemaSQL string

// Store runs all catalog queries against a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Init applies the embedded schema. Safe to call on every startup.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Pool exposes the underlying pool for health checks.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// notFound converts pgx.ErrNoRows into the domain sentinel so callers can
// use errors.Is(err, catalog.ErrNotFound) without importing pgx.
func notFound(err error, what, key string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %q: %w", what, key, catalog.ErrNotFound)
	}
	return err
}

// isUniqueViolation reports whether err is a unique-constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

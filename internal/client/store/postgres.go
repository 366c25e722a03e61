package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"authgate/internal/client/models"
	"authgate/pkg/platform/sentinel"
)

// Schema creates the clients table used by PostgresStore.
const Schema = `
CREATE TABLE IF NOT EXISTS clients (
	id                TEXT PRIMARY KEY,
	organization_name TEXT NOT NULL DEFAULT '',
	redirect_uris     TEXT[] NOT NULL DEFAULT '{}',
	default_scopes    TEXT[] NOT NULL DEFAULT '{profile}',
	created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// uniqueViolation is the Postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// PostgresStore persists client registrations in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed client registry.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema applies Schema. Safe to call on every start.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure clients schema: %w", err)
	}
	return nil
}

// Create registers a client. Returns ErrConflict when the id is taken.
func (s *PostgresStore) Create(ctx context.Context, c *models.Client) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO clients (id, organization_name, redirect_uris, default_scopes)
		VALUES ($1, $2, $3, $4)
	`, c.ID, c.OrganizationName, pq.Array(c.RedirectURIs), pq.Array(c.DefaultScopes))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("client %q: %w", c.ID, sentinel.ErrConflict)
		}
		return fmt.Errorf("create client: %w", err)
	}
	return nil
}

// FindByID returns the client registered under id.
func (s *PostgresStore) FindByID(ctx context.Context, id string) (*models.Client, error) {
	var c models.Client
	err := s.db.QueryRowContext(ctx, `
		SELECT id, organization_name, redirect_uris, default_scopes
		FROM clients WHERE id = $1
	`, id).Scan(&c.ID, &c.OrganizationName, pq.Array(&c.RedirectURIs), pq.Array(&c.DefaultScopes))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("client not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find client: %w", err)
	}
	return &c, nil
}

// Health pings the database.
func (s *PostgresStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

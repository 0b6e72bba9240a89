package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"consentd/pkg/platform/sentinel"
)

// Schema creates the table used by PostgresStore.
const Schema = `
CREATE TABLE IF NOT EXISTS consent_preferences (
	namespace  TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (namespace, key)
)`

// PostgresStore persists consent blobs in a single table keyed by namespace
// and key.
type PostgresStore struct {
	db        *sql.DB
	namespace string
}

// NewPostgres constructs a PostgreSQL-backed store for namespace.
func NewPostgres(db *sql.DB, namespace string) *PostgresStore {
	return &PostgresStore{db: db, namespace: namespace}
}

// Migrate creates the consent_preferences table when missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("migrate consent_preferences: %w", classify(err))
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM consent_preferences WHERE namespace = $1 AND key = $2`,
		s.namespace, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", sentinel.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("select consent preference %s: %w", key, classify(err))
	}
	return value, nil
}

func (s *PostgresStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO consent_preferences (namespace, key, value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (namespace, key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		s.namespace, key, value,
	)
	if err != nil {
		return fmt.Errorf("upsert consent preference %s: %w", key, classify(err))
	}
	return nil
}

func (s *PostgresStore) Remove(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM consent_preferences WHERE namespace = $1 AND key = $2`,
		s.namespace, key,
	)
	if err != nil {
		return fmt.Errorf("delete consent preference %s: %w", key, classify(err))
	}
	return nil
}

// classify marks connection-level failures as unavailable. Errors reported
// by the server itself (constraint, syntax) are returned unchanged.
func classify(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// Class 08: connection exception, 57P: operator intervention.
		if pqErr.Code.Class() == "08" || pqErr.Code.Class() == "57" {
			return fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err)
		}
		return err
	}
	return fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err)
}

package apikeys

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// storeDB is the subset of pgxpool.Pool used by the store.
type storeDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStore keeps keys in the api_keys table.
type PostgresStore struct {
	db storeDB
}

// NewPostgresStore wraps a pgx pool (or any compatible handle).
func NewPostgresStore(db storeDB) *PostgresStore {
	if db == nil {
		panic("apikeys: db required")
	}
	return &PostgresStore{db: db}
}

// Insert stores a new active key.
func (s *PostgresStore) Insert(ctx context.Context, k Key, lookupKey, hash string) error {
	if s == nil {
		return ErrNotConfigured
	}
	query := `
		INSERT INTO api_keys (key_id, name, description, key_prefix, key_hash,
			is_active, usage_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, TRUE, 0, $6, $6)
	`
	if _, err := s.db.Exec(ctx, query, k.KeyID, k.Name, k.Description, lookupKey, hash, k.CreatedAt); err != nil {
		return fmt.Errorf("apikeys: insert failed: %w", err)
	}
	return nil
}

// Candidates returns the active keys sharing lookupKey.
func (s *PostgresStore) Candidates(ctx context.Context, lookupKey string) ([]Credential, error) {
	if s == nil {
		return nil, ErrNotConfigured
	}
	rows, err := s.db.Query(ctx, `
		SELECT key_id, key_hash
		FROM api_keys
		WHERE key_prefix = $1 AND is_active
	`, lookupKey)
	if err != nil {
		return nil, fmt.Errorf("apikeys: lookup failed: %w", err)
	}
	defer rows.Close()

	var creds []Credential
	for rows.Next() {
		var c Credential
		if err := rows.Scan(&c.KeyID, &c.Hash); err != nil {
			return nil, fmt.Errorf("apikeys: scan failed: %w", err)
		}
		creds = append(creds, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("apikeys: rows: %w", err)
	}
	return creds, nil
}

// TouchUsage bumps the usage counter of keyID.
func (s *PostgresStore) TouchUsage(ctx context.Context, keyID string, at time.Time) error {
	if s == nil {
		return ErrNotConfigured
	}
	if _, err := s.db.Exec(ctx, `
		UPDATE api_keys
		SET usage_count = usage_count + 1, last_used_at = $2
		WHERE key_id = $1
	`, keyID, at); err != nil {
		return fmt.Errorf("apikeys: touch failed: %w", err)
	}
	return nil
}

// List returns every key, newest first.
func (s *PostgresStore) List(ctx context.Context) ([]Key, error) {
	if s == nil {
		return nil, ErrNotConfigured
	}
	rows, err := s.db.Query(ctx, `
		SELECT key_id, name, description, is_active, usage_count,
			last_used_at, created_at, updated_at
		FROM api_keys
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("apikeys: list failed: %w", err)
	}
	defer rows.Close()

	keys := []Key{}
	for rows.Next() {
		var k Key
		if err := rows.Scan(&k.KeyID, &k.Name, &k.Description, &k.IsActive, &k.UsageCount,
			&k.LastUsedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("apikeys: scan failed: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("apikeys: rows: %w", err)
	}
	return keys, nil
}

// Deactivate marks keyID inactive. It returns ErrNotFound for unknown ids.
func (s *PostgresStore) Deactivate(ctx context.Context, keyID string, at time.Time) error {
	if s == nil {
		return ErrNotConfigured
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE api_keys SET is_active = FALSE, updated_at = $2 WHERE key_id = $1
	`, keyID, at)
	if err != nil {
		return fmt.Errorf("apikeys: deactivate failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes keyID. It returns ErrNotFound for unknown ids.
func (s *PostgresStore) Delete(ctx context.Context, keyID string) error {
	if s == nil {
		return ErrNotConfigured
	}
	tag, err := s.db.Exec(ctx, `DELETE FROM api_keys WHERE key_id = $1`, keyID)
	if err != nil {
		return fmt.Errorf("apikeys: delete failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

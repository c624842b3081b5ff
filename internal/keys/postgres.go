package keys

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is a PostgreSQL implementation of Store.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL key store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// SigningKey returns the active signing key for a user.
func (s *PostgresStore) SigningKey(ctx context.Context, userID string) ([]byte, error) {
	query := `
		SELECT signing_key
		FROM user_signing_keys
		WHERE user_id = $1 AND revoked_at IS NULL
	`

	var key []byte
	if err := s.pool.QueryRow(ctx, query, userID).Scan(&key); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("query signing key: %w", err)
	}
	if len(key) == 0 {
		return nil, ErrKeyNotFound
	}
	return key, nil
}

// Put stores or rotates the signing key for a user.
func (s *PostgresStore) Put(ctx context.Context, userID string, key []byte) error {
	query := `
		INSERT INTO user_signing_keys (user_id, signing_key, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			signing_key = EXCLUDED.signing_key,
			created_at = NOW(),
			revoked_at = NULL
	`

	if _, err := s.pool.Exec(ctx, query, userID, key); err != nil {
		return fmt.Errorf("store signing key: %w", err)
	}
	return nil
}

package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is a PostgreSQL implementation of Store.
// Per-user serialization uses a row lock on health_user_state.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL state store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Get returns the user's state.
func (s *PostgresStore) Get(ctx context.Context, userID string) (*UserState, error) {
	query := `
		SELECT submissions, steps, calories, distance
		FROM health_user_state
		WHERE user_id = $1
	`

	st, err := scanState(s.pool.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query user state: %w", err)
	}
	if len(st.Submissions) == 0 && len(st.Steps) == 0 {
		return nil, ErrNotFound
	}
	return st, nil
}

// Update locks the user's row, applies fn and writes the result in one transaction.
func (s *PostgresStore) Update(ctx context.Context, userID string, fn func(*UserState) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	insert := `
		INSERT INTO health_user_state (user_id, submissions, steps, calories, distance, updated_at)
		VALUES ($1, '{}', '{}', '{}', '{}', NOW())
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := tx.Exec(ctx, insert, userID); err != nil {
		return fmt.Errorf("ensure user state: %w", err)
	}

	lock := `
		SELECT submissions, steps, calories, distance
		FROM health_user_state
		WHERE user_id = $1
		FOR UPDATE
	`
	st, err := scanState(tx.QueryRow(ctx, lock, userID))
	if err != nil {
		return fmt.Errorf("lock user state: %w", err)
	}

	if err := fn(st); err != nil {
		return err
	}

	update := `
		UPDATE health_user_state SET
			submissions = $2,
			steps = $3,
			calories = $4,
			distance = $5,
			updated_at = NOW()
		WHERE user_id = $1
	`
	if _, err := tx.Exec(ctx, update, userID, st.Submissions, st.Steps, st.Calories, st.Distance); err != nil {
		return fmt.Errorf("update user state: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit user state: %w", err)
	}
	return nil
}

func scanState(row pgx.Row) (*UserState, error) {
	var (
		submissions []time.Time
		steps       []float64
		calories    []float64
		distance    []float64
	)
	if err := row.Scan(&submissions, &steps, &calories, &distance); err != nil {
		return nil, err
	}
	return &UserState{
		Submissions: submissions,
		Steps:       steps,
		Calories:    calories,
		Distance:    distance,
	}, nil
}

package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Recorder.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL audit repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Record inserts a record. Redelivered records with the same ID are ignored.
func (r *PostgresRepository) Record(ctx context.Context, rec Record) error {
	query := `
		INSERT INTO health_submission_audit (
			id, user_id, accepted, score, points, warnings, errors,
			data_date, submitted_at, processed_at, version
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := r.pool.Exec(ctx, query,
		rec.ID,
		rec.UserID,
		rec.Accepted,
		rec.Score,
		rec.Points,
		nonNil(rec.Warnings),
		nonNil(rec.Errors),
		rec.DataDate,
		rec.SubmittedAt,
		rec.ProcessedAt,
		rec.Version,
	)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

// ListByUser returns the records of a user, most recent first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, user_id, accepted, score, points, warnings, errors,
			data_date, submitted_at, processed_at, version
		FROM health_submission_audit
		WHERE user_id = $1
		ORDER BY processed_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(
			&rec.ID,
			&rec.UserID,
			&rec.Accepted,
			&rec.Score,
			&rec.Points,
			&rec.Warnings,
			&rec.Errors,
			&rec.DataDate,
			&rec.SubmittedAt,
			&rec.ProcessedAt,
			&rec.Version,
		); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

package persistence

import (
	"context"
	"fmt"

	"github.com/bookhive/bookhive/internal/automations/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRunLogRepository implements domain.RunLogRepository on pgx.
type PostgresRunLogRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRunLogRepository creates a PostgreSQL run log repository.
func NewPostgresRunLogRepository(pool *pgxpool.Pool) *PostgresRunLogRepository {
	return &PostgresRunLogRepository{pool: pool}
}

// Append appends an entry and prunes the rule's history beyond cap.
func (r *PostgresRunLogRepository) Append(ctx context.Context, entry *domain.RunLogEntry, cap int) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO rule_run_log (id, rule_id, run_at, success, message)
		VALUES ($1, $2, $3, $4, $5)
	`,
		entry.ID.String(),
		entry.RuleID.String(),
		entry.RunAt,
		entry.Success,
		entry.Message,
	)
	if err != nil {
		return fmt.Errorf("inserting run log entry: %w", err)
	}

	if cap > 0 {
		_, err = tx.Exec(ctx, `
			DELETE FROM rule_run_log
			WHERE rule_id = $1 AND id NOT IN (
				SELECT id FROM rule_run_log
				WHERE rule_id = $1
				ORDER BY run_at DESC, id DESC
				LIMIT $2
			)
		`, entry.RuleID.String(), cap)
		if err != nil {
			return fmt.Errorf("pruning run log: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// ListByRule retrieves a rule's entries, newest first.
func (r *PostgresRunLogRepository) ListByRule(ctx context.Context, ruleID uuid.UUID, limit int) ([]*domain.RunLogEntry, error) {
	query := `
		SELECT id, rule_id, run_at, success, message
		FROM rule_run_log
		WHERE rule_id = $1
		ORDER BY run_at DESC, id DESC
	`
	args := []any{ruleID.String()}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.RunLogEntry
	for rows.Next() {
		var (
			entry   domain.RunLogEntry
			idStr   string
			ruleStr string
		)
		if err := rows.Scan(&idStr, &ruleStr, &entry.RunAt, &entry.Success, &entry.Message); err != nil {
			return nil, err
		}
		if entry.ID, err = uuid.Parse(idStr); err != nil {
			return nil, err
		}
		if entry.RuleID, err = uuid.Parse(ruleStr); err != nil {
			return nil, err
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

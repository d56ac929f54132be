package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bookhive/bookhive/internal/automations/domain"
	"github.com/google/uuid"
)

// SQLiteRunLogRepository implements domain.RunLogRepository.
type SQLiteRunLogRepository struct {
	db *sql.DB
}

// NewSQLiteRunLogRepository creates a SQLite run log repository.
func NewSQLiteRunLogRepository(db *sql.DB) *SQLiteRunLogRepository {
	return &SQLiteRunLogRepository{db: db}
}

// Append appends an entry and prunes the rule's history beyond cap.
func (r *SQLiteRunLogRepository) Append(ctx context.Context, entry *domain.RunLogEntry, cap int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO rule_run_log (id, rule_id, run_at, success, message)
		VALUES (?, ?, ?, ?, ?)
	`,
		entry.ID.String(),
		entry.RuleID.String(),
		entry.RunAt.UTC().Format(time.RFC3339),
		boolToInt(entry.Success),
		entry.Message,
	)
	if err != nil {
		return fmt.Errorf("inserting run log entry: %w", err)
	}

	if cap > 0 {
		_, err = tx.ExecContext(ctx, `
			DELETE FROM rule_run_log
			WHERE rule_id = ? AND id NOT IN (
				SELECT id FROM rule_run_log
				WHERE rule_id = ?
				ORDER BY run_at DESC, id DESC
				LIMIT ?
			)
		`, entry.RuleID.String(), entry.RuleID.String(), cap)
		if err != nil {
			return fmt.Errorf("pruning run log: %w", err)
		}
	}

	return tx.Commit()
}

// ListByRule retrieves a rule's entries, newest first.
func (r *SQLiteRunLogRepository) ListByRule(ctx context.Context, ruleID uuid.UUID, limit int) ([]*domain.RunLogEntry, error) {
	query := `
		SELECT id, rule_id, run_at, success, message
		FROM rule_run_log
		WHERE rule_id = ?
		ORDER BY run_at DESC, id DESC
	`
	args := []any{ruleID.String()}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
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
			runAt   string
			success int
		)
		if err := rows.Scan(&idStr, &ruleStr, &runAt, &success, &entry.Message); err != nil {
			return nil, err
		}
		if entry.ID, err = uuid.Parse(idStr); err != nil {
			return nil, err
		}
		if entry.RuleID, err = uuid.Parse(ruleStr); err != nil {
			return nil, err
		}
		if entry.RunAt, err = time.Parse(time.RFC3339, runAt); err != nil {
			return nil, err
		}
		entry.Success = success != 0
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

// Package persistence implements the automation repositories on
// SQLite and PostgreSQL.
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bookhive/bookhive/internal/automations/domain"
	"github.com/google/uuid"
)

// SQLiteRuleRepository implements domain.RuleRepository.
type SQLiteRuleRepository struct {
	db *sql.DB
}

// NewSQLiteRuleRepository creates a SQLite rule repository.
func NewSQLiteRuleRepository(db *sql.DB) *SQLiteRuleRepository {
	return &SQLiteRuleRepository{db: db}
}

const ruleColumns = `id, name, rule_type, enabled, mode, schedule, params, last_run_at, next_run_at, created_at, updated_at`

// Create creates a new rule.
func (r *SQLiteRuleRepository) Create(ctx context.Context, rule *domain.Rule) error {
	scheduleJSON, paramsJSON, err := encodeRule(rule)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO automation_rules (` + ruleColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		rule.ID.String(),
		rule.Name,
		rule.Type,
		boolToInt(rule.Enabled),
		string(rule.Mode),
		scheduleJSON,
		paramsJSON,
		nullTime(rule.LastRunAt),
		nullTime(rule.NextRunAt),
		rule.CreatedAt.UTC().Format(time.RFC3339),
		rule.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting rule: %w", err)
	}
	return nil
}

// Update updates an existing rule, including run bookkeeping.
func (r *SQLiteRuleRepository) Update(ctx context.Context, rule *domain.Rule) error {
	scheduleJSON, paramsJSON, err := encodeRule(rule)
	if err != nil {
		return err
	}

	query := `
		UPDATE automation_rules
		SET name = ?, rule_type = ?, enabled = ?, mode = ?, schedule = ?, params = ?,
		    last_run_at = ?, next_run_at = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		rule.Name,
		rule.Type,
		boolToInt(rule.Enabled),
		string(rule.Mode),
		scheduleJSON,
		paramsJSON,
		nullTime(rule.LastRunAt),
		nullTime(rule.NextRunAt),
		rule.UpdatedAt.UTC().Format(time.RFC3339),
		rule.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("updating rule: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrRuleNotFound
	}
	return nil
}

// Delete deletes a rule by ID.
func (r *SQLiteRuleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM automation_rules WHERE id = ?`, id.String())
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrRuleNotFound
	}
	return nil
}

// GetByID retrieves a rule by ID.
func (r *SQLiteRuleRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Rule, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+ruleColumns+` FROM automation_rules WHERE id = ?`, id.String())
	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRuleNotFound
	}
	return rule, err
}

// ListAll retrieves every rule, enabled or not.
func (r *SQLiteRuleRepository) ListAll(ctx context.Context) ([]*domain.Rule, error) {
	return r.list(ctx, `SELECT `+ruleColumns+` FROM automation_rules ORDER BY name`)
}

// ListEnabled retrieves all enabled rules.
func (r *SQLiteRuleRepository) ListEnabled(ctx context.Context) ([]*domain.Rule, error) {
	return r.list(ctx, `SELECT `+ruleColumns+` FROM automation_rules WHERE enabled = 1 ORDER BY name`)
}

func (r *SQLiteRuleRepository) list(ctx context.Context, query string) ([]*domain.Rule, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*domain.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (*domain.Rule, error) {
	var (
		rule          domain.Rule
		idStr         string
		enabled       int
		mode          string
		scheduleJSON  string
		paramsJSON    string
		lastRun       sql.NullString
		nextRun       sql.NullString
		created, updt string
	)
	if err := row.Scan(&idStr, &rule.Name, &rule.Type, &enabled, &mode,
		&scheduleJSON, &paramsJSON, &lastRun, &nextRun, &created, &updt); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("parsing rule id: %w", err)
	}
	rule.ID = id
	rule.Enabled = enabled != 0
	rule.Mode = domain.RuleMode(mode)

	if err := json.Unmarshal([]byte(scheduleJSON), &rule.Schedule); err != nil {
		return nil, fmt.Errorf("decoding schedule: %w", err)
	}
	if err := json.Unmarshal([]byte(paramsJSON), &rule.Params); err != nil {
		return nil, fmt.Errorf("decoding params: %w", err)
	}

	if rule.LastRunAt, err = parseNullTime(lastRun); err != nil {
		return nil, err
	}
	if rule.NextRunAt, err = parseNullTime(nextRun); err != nil {
		return nil, err
	}
	if rule.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
		return nil, err
	}
	if rule.UpdatedAt, err = time.Parse(time.RFC3339, updt); err != nil {
		return nil, err
	}
	return &rule, nil
}

func encodeRule(rule *domain.Rule) (scheduleJSON, paramsJSON string, err error) {
	sched, err := json.Marshal(rule.Schedule)
	if err != nil {
		return "", "", fmt.Errorf("encoding schedule: %w", err)
	}
	params := rule.Params
	if params == nil {
		params = map[string]any{}
	}
	p, err := json.Marshal(params)
	if err != nil {
		return "", "", fmt.Errorf("encoding params: %w", err)
	}
	return string(sched), string(p), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

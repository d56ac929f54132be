package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bookhive/bookhive/internal/automations/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRuleRepository implements domain.RuleRepository on pgx.
type PostgresRuleRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRuleRepository creates a PostgreSQL rule repository.
func NewPostgresRuleRepository(pool *pgxpool.Pool) *PostgresRuleRepository {
	return &PostgresRuleRepository{pool: pool}
}

// Create creates a new rule.
func (r *PostgresRuleRepository) Create(ctx context.Context, rule *domain.Rule) error {
	scheduleJSON, paramsJSON, err := encodeRule(rule)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO automation_rules (id, name, rule_type, enabled, mode, schedule, params, last_run_at, next_run_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = r.pool.Exec(ctx, query,
		rule.ID.String(),
		rule.Name,
		rule.Type,
		rule.Enabled,
		string(rule.Mode),
		scheduleJSON,
		paramsJSON,
		rule.LastRunAt,
		rule.NextRunAt,
		rule.CreatedAt,
		rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting rule: %w", err)
	}
	return nil
}

// Update updates an existing rule, including run bookkeeping.
func (r *PostgresRuleRepository) Update(ctx context.Context, rule *domain.Rule) error {
	scheduleJSON, paramsJSON, err := encodeRule(rule)
	if err != nil {
		return err
	}

	query := `
		UPDATE automation_rules
		SET name = $1, rule_type = $2, enabled = $3, mode = $4, schedule = $5, params = $6,
		    last_run_at = $7, next_run_at = $8, updated_at = $9
		WHERE id = $10
	`
	tag, err := r.pool.Exec(ctx, query,
		rule.Name,
		rule.Type,
		rule.Enabled,
		string(rule.Mode),
		scheduleJSON,
		paramsJSON,
		rule.LastRunAt,
		rule.NextRunAt,
		rule.UpdatedAt,
		rule.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("updating rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRuleNotFound
	}
	return nil
}

// Delete deletes a rule by ID.
func (r *PostgresRuleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM automation_rules WHERE id = $1`, id.String())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRuleNotFound
	}
	return nil
}

// GetByID retrieves a rule by ID.
func (r *PostgresRuleRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Rule, error) {
	query := `
		SELECT id, name, rule_type, enabled, mode, schedule, params, last_run_at, next_run_at, created_at, updated_at
		FROM automation_rules WHERE id = $1
	`
	rule, err := scanPgRule(r.pool.QueryRow(ctx, query, id.String()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrRuleNotFound
	}
	return rule, err
}

// ListAll retrieves every rule, enabled or not.
func (r *PostgresRuleRepository) ListAll(ctx context.Context) ([]*domain.Rule, error) {
	return r.list(ctx, `
		SELECT id, name, rule_type, enabled, mode, schedule, params, last_run_at, next_run_at, created_at, updated_at
		FROM automation_rules ORDER BY name
	`)
}

// ListEnabled retrieves all enabled rules.
func (r *PostgresRuleRepository) ListEnabled(ctx context.Context) ([]*domain.Rule, error) {
	return r.list(ctx, `
		SELECT id, name, rule_type, enabled, mode, schedule, params, last_run_at, next_run_at, created_at, updated_at
		FROM automation_rules WHERE enabled ORDER BY name
	`)
}

func (r *PostgresRuleRepository) list(ctx context.Context, query string) ([]*domain.Rule, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*domain.Rule
	for rows.Next() {
		rule, err := scanPgRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func scanPgRule(row pgx.Row) (*domain.Rule, error) {
	var (
		rule         domain.Rule
		idStr        string
		mode         string
		scheduleJSON []byte
		paramsJSON   []byte
		lastRun      *time.Time
		nextRun      *time.Time
	)
	if err := row.Scan(&idStr, &rule.Name, &rule.Type, &rule.Enabled, &mode,
		&scheduleJSON, &paramsJSON, &lastRun, &nextRun, &rule.CreatedAt, &rule.UpdatedAt); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("parsing rule id: %w", err)
	}
	rule.ID = id
	rule.Mode = domain.RuleMode(mode)
	rule.LastRunAt = lastRun
	rule.NextRunAt = nextRun

	if err := json.Unmarshal(scheduleJSON, &rule.Schedule); err != nil {
		return nil, fmt.Errorf("decoding schedule: %w", err)
	}
	if err := json.Unmarshal(paramsJSON, &rule.Params); err != nil {
		return nil, fmt.Errorf("decoding params: %w", err)
	}
	return &rule, nil
}

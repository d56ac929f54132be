package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/bookhive/bookhive/internal/automations/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresActionRepository implements domain.ActionRepository on pgx.
type PostgresActionRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresActionRepository creates a PostgreSQL action repository.
func NewPostgresActionRepository(pool *pgxpool.Pool) *PostgresActionRepository {
	return &PostgresActionRepository{pool: pool}
}

const pgActionColumns = `id, rule_id, action_type, status, idempotency_key, input_snapshot, output_payload, notes, actor_id, created_at, updated_at`

// Create inserts a new action.
func (r *PostgresActionRepository) Create(ctx context.Context, action *domain.Action) error {
	snapshot, payload, err := encodeActionJSON(action)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO outbox_actions (` + pgActionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = r.pool.Exec(ctx, query,
		action.ID.String(),
		nullUUID(action.RuleID),
		action.ActionType,
		string(action.Status),
		action.IdempotencyKey,
		snapshot,
		payload,
		action.Notes,
		nullUUID(action.ActorID),
		action.CreatedAt,
		action.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting action: %w", err)
	}
	return nil
}

// Update persists a state transition.
func (r *PostgresActionRepository) Update(ctx context.Context, action *domain.Action) error {
	snapshot, payload, err := encodeActionJSON(action)
	if err != nil {
		return err
	}

	query := `
		UPDATE outbox_actions
		SET status = $1, input_snapshot = $2, output_payload = $3, notes = $4, actor_id = $5, updated_at = $6
		WHERE id = $7
	`
	tag, err := r.pool.Exec(ctx, query,
		string(action.Status),
		snapshot,
		payload,
		action.Notes,
		nullUUID(action.ActorID),
		action.UpdatedAt,
		action.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("updating action: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrActionNotFound
	}
	return nil
}

// GetByID retrieves an action by ID.
func (r *PostgresActionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Action, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+pgActionColumns+` FROM outbox_actions WHERE id = $1`, id.String())
	action, err := scanPgAction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrActionNotFound
	}
	return action, err
}

// FindLiveByKey returns the non-terminal action holding the key, or
// nil when the key is free.
func (r *PostgresActionRepository) FindLiveByKey(ctx context.Context, key string) (*domain.Action, error) {
	query := `
		SELECT ` + pgActionColumns + `
		FROM outbox_actions
		WHERE idempotency_key = $1 AND status IN ('draft', 'approved')
	`
	action, err := scanPgAction(r.pool.QueryRow(ctx, query, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return action, err
}

// List retrieves actions matching the filter, newest first, plus the
// total count ignoring limit/offset.
func (r *PostgresActionRepository) List(ctx context.Context, filter domain.ActionFilter) ([]*domain.Action, int64, error) {
	var (
		conds []string
		args  []any
	)
	addCond := func(expr string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(expr, len(args)))
	}
	if filter.RuleID != nil {
		addCond("rule_id = $%d", filter.RuleID.String())
	}
	if filter.Status != nil {
		addCond("status = $%d", string(*filter.Status))
	}
	if filter.ActionType != nil {
		addCond("action_type = $%d", *filter.ActionType)
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox_actions`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + pgActionColumns + ` FROM outbox_actions` + where + ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.Limit, filter.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var actions []*domain.Action
	for rows.Next() {
		action, err := scanPgAction(rows)
		if err != nil {
			return nil, 0, err
		}
		actions = append(actions, action)
	}
	return actions, total, rows.Err()
}

func scanPgAction(row pgx.Row) (*domain.Action, error) {
	var (
		action   domain.Action
		idStr    string
		ruleID   *string
		status   string
		snapshot []byte
		payload  []byte
		actorID  *string
	)
	if err := row.Scan(&idStr, &ruleID, &action.ActionType, &status, &action.IdempotencyKey,
		&snapshot, &payload, &action.Notes, &actorID, &action.CreatedAt, &action.UpdatedAt); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("parsing action id: %w", err)
	}
	action.ID = id
	action.Status = domain.ActionStatus(status)

	if action.RuleID, err = parseUUIDPtr(ruleID); err != nil {
		return nil, err
	}
	if action.ActorID, err = parseUUIDPtr(actorID); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(snapshot, &action.InputSnapshot); err != nil {
		return nil, fmt.Errorf("decoding input snapshot: %w", err)
	}
	if err := json.Unmarshal(payload, &action.OutputPayload); err != nil {
		return nil, fmt.Errorf("decoding output payload: %w", err)
	}
	return &action, nil
}

func parseUUIDPtr(s *string) (*uuid.UUID, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

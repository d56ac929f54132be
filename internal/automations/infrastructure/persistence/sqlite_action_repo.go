package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bookhive/bookhive/internal/automations/domain"
	"github.com/google/uuid"
)

// SQLiteActionRepository implements domain.ActionRepository.
//
// A partial unique index on (idempotency_key) over live statuses backs
// the at-most-one-live-draft invariant at the storage level, as a
// second line of defense behind the outbox key lock.
type SQLiteActionRepository struct {
	db *sql.DB
}

// NewSQLiteActionRepository creates a SQLite action repository.
func NewSQLiteActionRepository(db *sql.DB) *SQLiteActionRepository {
	return &SQLiteActionRepository{db: db}
}

const actionColumns = `id, rule_id, action_type, status, idempotency_key, input_snapshot, output_payload, notes, actor_id, created_at, updated_at`

// Create inserts a new action.
func (r *SQLiteActionRepository) Create(ctx context.Context, action *domain.Action) error {
	snapshot, payload, err := encodeActionJSON(action)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO outbox_actions (` + actionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		action.ID.String(),
		nullUUID(action.RuleID),
		action.ActionType,
		string(action.Status),
		action.IdempotencyKey,
		snapshot,
		payload,
		action.Notes,
		nullUUID(action.ActorID),
		action.CreatedAt.UTC().Format(time.RFC3339),
		action.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting action: %w", err)
	}
	return nil
}

// Update persists a state transition.
func (r *SQLiteActionRepository) Update(ctx context.Context, action *domain.Action) error {
	snapshot, payload, err := encodeActionJSON(action)
	if err != nil {
		return err
	}

	query := `
		UPDATE outbox_actions
		SET status = ?, input_snapshot = ?, output_payload = ?, notes = ?, actor_id = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		string(action.Status),
		snapshot,
		payload,
		action.Notes,
		nullUUID(action.ActorID),
		action.UpdatedAt.UTC().Format(time.RFC3339),
		action.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("updating action: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrActionNotFound
	}
	return nil
}

// GetByID retrieves an action by ID.
func (r *SQLiteActionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Action, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+actionColumns+` FROM outbox_actions WHERE id = ?`, id.String())
	action, err := scanAction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrActionNotFound
	}
	return action, err
}

// FindLiveByKey returns the non-terminal action holding the key, or
// nil when the key is free.
func (r *SQLiteActionRepository) FindLiveByKey(ctx context.Context, key string) (*domain.Action, error) {
	query := `
		SELECT ` + actionColumns + `
		FROM outbox_actions
		WHERE idempotency_key = ? AND status IN ('draft', 'approved')
	`
	row := r.db.QueryRowContext(ctx, query, key)
	action, err := scanAction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return action, err
}

// List retrieves actions matching the filter, newest first, plus the
// total count ignoring limit/offset.
func (r *SQLiteActionRepository) List(ctx context.Context, filter domain.ActionFilter) ([]*domain.Action, int64, error) {
	var (
		conds []string
		args  []any
	)
	if filter.RuleID != nil {
		conds = append(conds, "rule_id = ?")
		args = append(args, filter.RuleID.String())
	}
	if filter.Status != nil {
		conds = append(conds, "status = ?")
		args = append(args, string(*filter.Status))
	}
	if filter.ActionType != nil {
		conds = append(conds, "action_type = ?")
		args = append(args, *filter.ActionType)
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM outbox_actions`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + actionColumns + ` FROM outbox_actions` + where + ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.Limit, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var actions []*domain.Action
	for rows.Next() {
		action, err := scanAction(rows)
		if err != nil {
			return nil, 0, err
		}
		actions = append(actions, action)
	}
	return actions, total, rows.Err()
}

func scanAction(row rowScanner) (*domain.Action, error) {
	var (
		action        domain.Action
		idStr         string
		ruleID        sql.NullString
		status        string
		snapshot      string
		payload       string
		actorID       sql.NullString
		created, updt string
	)
	if err := row.Scan(&idStr, &ruleID, &action.ActionType, &status, &action.IdempotencyKey,
		&snapshot, &payload, &action.Notes, &actorID, &created, &updt); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("parsing action id: %w", err)
	}
	action.ID = id
	action.Status = domain.ActionStatus(status)

	if action.RuleID, err = parseNullUUID(ruleID); err != nil {
		return nil, err
	}
	if action.ActorID, err = parseNullUUID(actorID); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(snapshot), &action.InputSnapshot); err != nil {
		return nil, fmt.Errorf("decoding input snapshot: %w", err)
	}
	if err := json.Unmarshal([]byte(payload), &action.OutputPayload); err != nil {
		return nil, fmt.Errorf("decoding output payload: %w", err)
	}

	if action.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
		return nil, err
	}
	if action.UpdatedAt, err = time.Parse(time.RFC3339, updt); err != nil {
		return nil, err
	}
	return &action, nil
}

func encodeActionJSON(action *domain.Action) (snapshot, payload string, err error) {
	s, err := json.Marshal(orEmpty(action.InputSnapshot))
	if err != nil {
		return "", "", fmt.Errorf("encoding input snapshot: %w", err)
	}
	p, err := json.Marshal(orEmpty(action.OutputPayload))
	if err != nil {
		return "", "", fmt.Errorf("encoding output payload: %w", err)
	}
	return string(s), string(p), nil
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func nullUUID(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return id.String()
}

func parseNullUUID(s sql.NullString) (*uuid.UUID, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s.String)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

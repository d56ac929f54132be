package domain

import (
	"context"

	"github.com/google/uuid"
)

// ActionFilter specifies criteria for listing actions.
type ActionFilter struct {
	RuleID     *uuid.UUID
	Status     *ActionStatus
	ActionType *string
	Limit      int
	Offset     int
}

// RuleRepository defines the interface for rule persistence.
type RuleRepository interface {
	// Create creates a new rule.
	Create(ctx context.Context, rule *Rule) error

	// Update updates an existing rule, including run bookkeeping.
	Update(ctx context.Context, rule *Rule) error

	// Delete deletes a rule by ID.
	Delete(ctx context.Context, id uuid.UUID) error

	// GetByID retrieves a rule by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*Rule, error)

	// ListAll retrieves every rule, enabled or not.
	ListAll(ctx context.Context) ([]*Rule, error)

	// ListEnabled retrieves all enabled rules.
	ListEnabled(ctx context.Context) ([]*Rule, error)
}

// ActionRepository defines the interface for outbox action persistence.
type ActionRepository interface {
	// Create inserts a new action.
	Create(ctx context.Context, action *Action) error

	// Update persists a state transition.
	Update(ctx context.Context, action *Action) error

	// GetByID retrieves an action by ID. Returns ErrActionNotFound
	// when absent.
	GetByID(ctx context.Context, id uuid.UUID) (*Action, error)

	// FindLiveByKey returns the non-terminal action holding the
	// idempotency key, or nil when the key is free.
	FindLiveByKey(ctx context.Context, key string) (*Action, error)

	// List retrieves actions matching the filter, newest first.
	List(ctx context.Context, filter ActionFilter) ([]*Action, int64, error)
}

// RunLogRepository defines the interface for run log persistence.
type RunLogRepository interface {
	// Append appends an entry and prunes the rule's history beyond cap.
	Append(ctx context.Context, entry *RunLogEntry, cap int) error

	// ListByRule retrieves a rule's entries, newest first.
	ListByRule(ctx context.Context, ruleID uuid.UUID, limit int) ([]*RunLogEntry, error)
}

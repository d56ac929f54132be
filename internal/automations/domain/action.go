package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Common errors for outbox actions.
var (
	ErrActionNotFound = errors.New("action not found")
	// ErrInvalidTransition marks an attempt to move an action along an
	// edge the state machine does not allow. Terminal states are
	// permanent audit records; nothing leaves them.
	ErrInvalidTransition = errors.New("invalid action state transition")
	ErrInvalidAction     = errors.New("invalid action")
)

// Action types produced by the built-in factories.
const (
	ActionTypeEmail              = "email"
	ActionTypeResourceAssignment = "resource_assignment"
)

// ActionStatus is the state of an outbox action.
type ActionStatus string

const (
	ActionStatusDraft    ActionStatus = "draft"
	ActionStatusApproved ActionStatus = "approved"
	ActionStatusExecuted ActionStatus = "executed"
	ActionStatusRejected ActionStatus = "rejected"
	ActionStatusFailed   ActionStatus = "failed"
)

// IsTerminal reports whether the status admits no further transitions.
func (s ActionStatus) IsTerminal() bool {
	switch s {
	case ActionStatusExecuted, ActionStatusRejected, ActionStatusFailed:
		return true
	default:
		return false
	}
}

// Action is one proposed or executed side effect in the outbox.
// RuleID is nil for manual proposals.
type Action struct {
	ID             uuid.UUID
	RuleID         *uuid.UUID
	ActionType     string
	Status         ActionStatus
	IdempotencyKey string

	// InputSnapshot holds the data the factory used to decide, kept
	// for audit and debugging.
	InputSnapshot map[string]any

	// OutputPayload is the type-specific content to execute.
	OutputPayload map[string]any

	Notes   string
	ActorID *uuid.UUID

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewAction creates a draft action.
func NewAction(ruleID *uuid.UUID, actionType, idempotencyKey string, snapshot, payload map[string]any, now time.Time) (*Action, error) {
	if actionType == "" {
		return nil, fmt.Errorf("%w: action type is required", ErrInvalidAction)
	}
	if idempotencyKey == "" {
		return nil, fmt.Errorf("%w: idempotency key is required", ErrInvalidAction)
	}
	if snapshot == nil {
		snapshot = map[string]any{}
	}
	if payload == nil {
		payload = map[string]any{}
	}

	return &Action{
		ID:             uuid.New(),
		RuleID:         ruleID,
		ActionType:     actionType,
		Status:         ActionStatusDraft,
		IdempotencyKey: idempotencyKey,
		InputSnapshot:  snapshot,
		OutputPayload:  payload,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// IsLive reports whether the action still blocks its idempotency key.
func (a *Action) IsLive() bool {
	return !a.Status.IsTerminal()
}

// Approve moves Draft to Approved.
func (a *Action) Approve(actorID uuid.UUID, now time.Time) error {
	if a.Status != ActionStatusDraft {
		return transitionError(a.Status, ActionStatusApproved)
	}
	a.Status = ActionStatusApproved
	a.ActorID = &actorID
	a.UpdatedAt = now
	return nil
}

// Reject moves Draft to Rejected.
func (a *Action) Reject(actorID uuid.UUID, note string, now time.Time) error {
	if a.Status != ActionStatusDraft {
		return transitionError(a.Status, ActionStatusRejected)
	}
	a.Status = ActionStatusRejected
	a.ActorID = &actorID
	if note != "" {
		a.Notes = note
	}
	a.UpdatedAt = now
	return nil
}

// MarkExecuted moves Approved to Executed.
func (a *Action) MarkExecuted(now time.Time) error {
	if a.Status != ActionStatusApproved {
		return transitionError(a.Status, ActionStatusExecuted)
	}
	a.Status = ActionStatusExecuted
	a.UpdatedAt = now
	return nil
}

// MarkFailed moves Approved to Failed, recording the collaborator
// error in Notes. Failed actions are never retried automatically.
func (a *Action) MarkFailed(errMsg string, now time.Time) error {
	if a.Status != ActionStatusApproved {
		return transitionError(a.Status, ActionStatusFailed)
	}
	a.Status = ActionStatusFailed
	a.Notes = errMsg
	a.UpdatedAt = now
	return nil
}

func transitionError(from, to ActionStatus) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

package services

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/bookhive/bookhive/internal/automations/domain"
	"github.com/bookhive/bookhive/internal/shared/infrastructure/eventbus"
	"github.com/bookhive/bookhive/internal/shared/infrastructure/keylock"
	"github.com/bookhive/bookhive/pkg/observability"
	"github.com/google/uuid"
)

// SystemActorID is the actor recorded on autonomous transitions.
var SystemActorID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// Audit routing keys for outbox transitions.
const (
	auditActionCreated  = "outbox.action.created"
	auditActionApproved = "outbox.action.approved"
	auditActionRejected = "outbox.action.rejected"
	auditActionExecuted = "outbox.action.executed"
	auditActionFailed   = "outbox.action.failed"
)

// Outbox stores actions and enforces the legal state transitions.
//
// Every operation serializes on the action's idempotency key, so a
// human reviewer and the autonomous path can never both act on the
// same draft: the loser of the race gets ErrInvalidTransition.
type Outbox struct {
	actions  domain.ActionRepository
	guard    keylock.Guard
	executor *Executor
	audit    eventbus.Publisher
	clock    domain.Clock
	logger   *slog.Logger
	metrics  observability.Metrics
}

// NewOutbox creates the outbox service.
func NewOutbox(
	actions domain.ActionRepository,
	guard keylock.Guard,
	executor *Executor,
	audit eventbus.Publisher,
	clock domain.Clock,
	logger *slog.Logger,
	metrics observability.Metrics,
) *Outbox {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &Outbox{
		actions:  actions,
		guard:    guard,
		executor: executor,
		audit:    audit,
		clock:    clock,
		logger:   logger,
		metrics:  metrics,
	}
}

// CreateDraft inserts a draft unless a live action already holds its
// idempotency key; in that case the existing action's id is returned
// and nothing is created. Check and insert run under the key's lock.
func (o *Outbox) CreateDraft(ctx context.Context, draft *domain.Action) (uuid.UUID, error) {
	release, err := o.guard.Acquire(ctx, draft.IdempotencyKey)
	if err != nil {
		return uuid.Nil, err
	}
	defer release()

	existing, err := o.actions.FindLiveByKey(ctx, draft.IdempotencyKey)
	if err != nil {
		return uuid.Nil, err
	}
	if existing != nil {
		o.logger.Debug("draft suppressed by live idempotency key",
			"idempotency_key", draft.IdempotencyKey,
			"existing_action_id", existing.ID,
		)
		o.metrics.Counter("outbox_drafts_deduplicated_total", 1)
		return existing.ID, nil
	}

	if err := o.actions.Create(ctx, draft); err != nil {
		return uuid.Nil, err
	}

	o.metrics.Counter("outbox_drafts_created_total", 1, observability.T("action_type", draft.ActionType))
	o.publishAudit(ctx, auditActionCreated, draft)
	return draft.ID, nil
}

// Approve moves a draft to approved on behalf of actorID.
func (o *Outbox) Approve(ctx context.Context, id, actorID uuid.UUID) error {
	return o.transition(ctx, id, func(action *domain.Action) error {
		if err := action.Approve(actorID, o.clock.Now()); err != nil {
			return err
		}
		o.publishAudit(ctx, auditActionApproved, action)
		return nil
	})
}

// Reject moves a draft to rejected on behalf of actorID.
func (o *Outbox) Reject(ctx context.Context, id, actorID uuid.UUID, note string) error {
	return o.transition(ctx, id, func(action *domain.Action) error {
		if err := action.Reject(actorID, note, o.clock.Now()); err != nil {
			return err
		}
		o.publishAudit(ctx, auditActionRejected, action)
		return nil
	})
}

// Execute runs the executor for an approved action. A collaborator
// failure moves the action to failed with the error in notes; it is
// never retried automatically.
func (o *Outbox) Execute(ctx context.Context, id uuid.UUID) error {
	return o.transition(ctx, id, func(action *domain.Action) error {
		return o.executeLocked(ctx, action)
	})
}

// ApproveAndExecute combines approval and execution under one lock
// hold. It backs both the human "approve and send" button and the
// autonomous path, which passes SystemActorID.
func (o *Outbox) ApproveAndExecute(ctx context.Context, id, actorID uuid.UUID) error {
	return o.transition(ctx, id, func(action *domain.Action) error {
		if err := action.Approve(actorID, o.clock.Now()); err != nil {
			return err
		}
		o.publishAudit(ctx, auditActionApproved, action)
		return o.executeLocked(ctx, action)
	})
}

// GetByID returns one action.
func (o *Outbox) GetByID(ctx context.Context, id uuid.UUID) (*domain.Action, error) {
	return o.actions.GetByID(ctx, id)
}

// List returns actions matching the filter.
func (o *Outbox) List(ctx context.Context, filter domain.ActionFilter) ([]*domain.Action, int64, error) {
	return o.actions.List(ctx, filter)
}

// executeLocked runs the side effect for an already-approved action.
// Caller holds the key lock.
func (o *Outbox) executeLocked(ctx context.Context, action *domain.Action) error {
	if action.Status != domain.ActionStatusApproved {
		return domain.ErrInvalidTransition
	}

	now := o.clock.Now()
	if execErr := o.executor.Execute(ctx, action); execErr != nil {
		if err := action.MarkFailed(execErr.Error(), now); err != nil {
			return err
		}
		o.metrics.Counter("outbox_actions_failed_total", 1, observability.T("action_type", action.ActionType))
		o.publishAudit(ctx, auditActionFailed, action)
		return nil
	}

	if err := action.MarkExecuted(now); err != nil {
		return err
	}
	o.metrics.Counter("outbox_actions_executed_total", 1, observability.T("action_type", action.ActionType))
	o.publishAudit(ctx, auditActionExecuted, action)
	return nil
}

// transition loads the action, applies fn under the key lock and
// persists the result. fn errors leave the store untouched.
func (o *Outbox) transition(ctx context.Context, id uuid.UUID, fn func(*domain.Action) error) error {
	// First load resolves the idempotency key to lock on.
	action, err := o.actions.GetByID(ctx, id)
	if err != nil {
		return err
	}

	release, err := o.guard.Acquire(ctx, action.IdempotencyKey)
	if err != nil {
		return err
	}
	defer release()

	// Reload under the lock: another holder may have transitioned it.
	action, err = o.actions.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := fn(action); err != nil {
		return err
	}
	return o.actions.Update(ctx, action)
}

// publishAudit is fire-and-forget: audit sink failures never fail the
// triggering operation.
func (o *Outbox) publishAudit(ctx context.Context, routingKey string, action *domain.Action) {
	event, err := eventbus.NewAuditEvent(routingKey, o.clock.Now(), map[string]any{
		"action_id":       action.ID.String(),
		"action_type":     action.ActionType,
		"status":          string(action.Status),
		"idempotency_key": action.IdempotencyKey,
	})
	if err != nil {
		o.logger.Warn("failed to build audit event", "error", err)
		return
	}
	body, err := json.Marshal(event)
	if err != nil {
		o.logger.Warn("failed to encode audit event", "error", err)
		return
	}
	if err := o.audit.Publish(ctx, routingKey, body); err != nil {
		o.logger.Warn("failed to publish audit event",
			"routing_key", routingKey,
			"action_id", action.ID,
			"error", err,
		)
	}
}

package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bookhive/bookhive/internal/automations/domain"
	bookingDomain "github.com/bookhive/bookhive/internal/booking/domain"
	"github.com/bookhive/bookhive/internal/notifications"
	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
)

// ActionHandler performs the side effect for one action type.
type ActionHandler interface {
	// ActionType returns the action type this handler supports.
	ActionType() string

	// Execute performs the side effect described by the action's
	// output payload.
	Execute(ctx context.Context, action *domain.Action) error
}

// Executor dispatches approved actions to their handlers. Every
// collaborator call runs under a bounded timeout; a timeout fails that
// one action, never the runner.
type Executor struct {
	handlers map[string]ActionHandler
	timeout  time.Duration
	logger   *slog.Logger
}

// NewExecutor creates an executor with the given collaborator timeout.
func NewExecutor(timeout time.Duration, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Executor{
		handlers: make(map[string]ActionHandler),
		timeout:  timeout,
		logger:   logger,
	}
}

// RegisterHandler registers an action handler.
func (e *Executor) RegisterHandler(handler ActionHandler) {
	e.handlers[handler.ActionType()] = handler
}

// Execute runs the handler for the action's type.
func (e *Executor) Execute(ctx context.Context, action *domain.Action) error {
	handler, ok := e.handlers[action.ActionType]
	if !ok {
		return fmt.Errorf("no handler for action type %q", action.ActionType)
	}

	execCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	err := handler.Execute(execCtx, action)
	duration := time.Since(start)

	if err != nil {
		e.logger.Error("action execution failed",
			"action_id", action.ID,
			"action_type", action.ActionType,
			"duration_ms", duration.Milliseconds(),
			"error", err,
		)
		return err
	}

	e.logger.Info("action executed",
		"action_id", action.ID,
		"action_type", action.ActionType,
		"duration_ms", duration.Milliseconds(),
	)
	return nil
}

// newBreaker builds the circuit breaker wrapped around one external
// collaborator.
func newBreaker(name string) *gobreaker.CircuitBreaker[any] {
	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
}

// EmailActionHandler sends email actions through the mailer.
type EmailActionHandler struct {
	mailer  notifications.Mailer
	breaker *gobreaker.CircuitBreaker[any]
}

// NewEmailActionHandler creates the email handler.
func NewEmailActionHandler(mailer notifications.Mailer) *EmailActionHandler {
	return &EmailActionHandler{
		mailer:  mailer,
		breaker: newBreaker("mailer"),
	}
}

// ActionType returns the action type.
func (h *EmailActionHandler) ActionType() string {
	return domain.ActionTypeEmail
}

// Execute sends the email described by the output payload.
func (h *EmailActionHandler) Execute(ctx context.Context, action *domain.Action) error {
	to, _ := action.OutputPayload["to"].(string)
	subject, _ := action.OutputPayload["subject"].(string)
	body, _ := action.OutputPayload["body"].(string)

	if to == "" {
		return fmt.Errorf("email action %s has no recipient", action.ID)
	}

	_, err := h.breaker.Execute(func() (any, error) {
		return nil, h.mailer.Send(ctx, to, subject, body)
	})
	return err
}

// AssignmentActionHandler commits resource assignments.
type AssignmentActionHandler struct {
	assigner bookingDomain.ResourceAssigner
	breaker  *gobreaker.CircuitBreaker[any]
}

// NewAssignmentActionHandler creates the assignment handler.
func NewAssignmentActionHandler(assigner bookingDomain.ResourceAssigner) *AssignmentActionHandler {
	return &AssignmentActionHandler{
		assigner: assigner,
		breaker:  newBreaker("resource_assigner"),
	}
}

// ActionType returns the action type.
func (h *AssignmentActionHandler) ActionType() string {
	return domain.ActionTypeResourceAssignment
}

// Execute commits the proposed assignment. The assigner re-validates
// capacity; a conflict surfaces as a failed action.
func (h *AssignmentActionHandler) Execute(ctx context.Context, action *domain.Action) error {
	bookingID, err := payloadUUID(action.OutputPayload, "booking_id")
	if err != nil {
		return err
	}
	resourceID, err := payloadUUID(action.OutputPayload, "resource_id")
	if err != nil {
		return err
	}

	_, err = h.breaker.Execute(func() (any, error) {
		return nil, h.assigner.Assign(ctx, bookingID, resourceID)
	})
	return err
}

func payloadUUID(payload map[string]any, key string) (uuid.UUID, error) {
	s, _ := payload[key].(string)
	if s == "" {
		return uuid.Nil, fmt.Errorf("payload field %q is missing", key)
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("payload field %q is not a uuid: %w", key, err)
	}
	return id, nil
}

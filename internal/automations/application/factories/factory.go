// Package factories holds the per-rule-type proposal logic. A factory
// reads collaborator data through narrow query interfaces and emits
// zero or more action drafts; it never mutates external state and
// never touches the outbox directly.
package factories

import (
	"context"
	"fmt"
	"time"

	"github.com/bookhive/bookhive/internal/automations/domain"
	"github.com/google/uuid"
)

// Rule types with built-in factories.
const (
	RuleTypePaymentReminder = "payment_reminder"
	RuleTypeInvoiceSend     = "invoice_send"
	RuleTypeOverdueReminder = "overdue_reminder"
	RuleTypeInsightsReport  = "insights_report"
	RuleTypeRoomAssignment  = "room_assignment_proposal"
)

// ErrUnknownRuleType marks a rule whose type has no registered factory.
var ErrUnknownRuleType = fmt.Errorf("unknown rule type")

// Draft is a proposed action before it enters the outbox.
type Draft struct {
	ActionType     string
	IdempotencyKey string
	InputSnapshot  map[string]any
	OutputPayload  map[string]any
}

// Factory proposes drafts for one rule type.
type Factory interface {
	// RuleType returns the rule type this factory serves.
	RuleType() string

	// Propose queries collaborators and returns the drafts the rule
	// would produce at now. Zero qualifying targets is an empty slice,
	// not an error.
	Propose(ctx context.Context, rule domain.RuleView, now time.Time) ([]Draft, error)
}

// Registry maps rule types to factories. New rule types are added by
// registration, not by editing a dispatch switch.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty factory registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory. A later registration for the same rule type
// replaces the earlier one.
func (r *Registry) Register(f Factory) {
	r.factories[f.RuleType()] = f
}

// Lookup returns the factory for a rule type.
func (r *Registry) Lookup(ruleType string) (Factory, error) {
	f, ok := r.factories[ruleType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRuleType, ruleType)
	}
	return f, nil
}

// RuleTypes returns the registered rule types.
func (r *Registry) RuleTypes() []string {
	types := make([]string, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	return types
}

// defaultLimit bounds the drafts one factory invocation may produce
// when the rule carries no explicit limit param.
const defaultLimit = 25

// idempotencyKey builds the deterministic dedupe key for one target in
// one time bucket.
func idempotencyKey(ruleID uuid.UUID, targetID, bucket string) string {
	return fmt.Sprintf("%s:%s:%s", ruleID, targetID, bucket)
}

// dayBucket buckets a timestamp to its calendar day in loc, so a rule
// proposes at most one draft per target per day.
func dayBucket(now time.Time, loc *time.Location) string {
	return now.In(loc).Format("2006-01-02")
}

// weekBucket buckets a timestamp to its ISO week in loc.
func weekBucket(now time.Time, loc *time.Location) string {
	year, week := now.In(loc).ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

// limitFor reads the rule's limit param with a sane bound.
func limitFor(rule domain.RuleView) int {
	limit := rule.IntParam("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	return limit
}

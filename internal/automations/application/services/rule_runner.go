package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bookhive/bookhive/internal/automations/application/factories"
	"github.com/bookhive/bookhive/internal/automations/domain"
	"github.com/bookhive/bookhive/internal/shared/infrastructure/eventbus"
	"github.com/bookhive/bookhive/pkg/observability"
	"github.com/google/uuid"
)

// auditRuleRun is the routing key for run-log audit events.
const auditRuleRun = "runner.rule.run"

// RuleRunner drives one scheduler tick: select due rules, propose
// drafts through the factories, route them through the approval gate
// into the outbox, and update run bookkeeping.
//
// Rules are independent; a failure in one never blocks the others.
type RuleRunner struct {
	rules      domain.RuleRepository
	runLog     domain.RunLogRepository
	registry   *factories.Registry
	outbox     *Outbox
	audit      eventbus.Publisher
	globalMode domain.GlobalMode
	loc        *time.Location
	runLogCap  int
	maxDrafts  int
	clock      domain.Clock
	logger     *slog.Logger
	metrics    observability.Metrics
}

// NewRuleRunner creates the runner.
func NewRuleRunner(
	rules domain.RuleRepository,
	runLog domain.RunLogRepository,
	registry *factories.Registry,
	outbox *Outbox,
	audit eventbus.Publisher,
	globalMode domain.GlobalMode,
	loc *time.Location,
	runLogCap int,
	maxDrafts int,
	clock domain.Clock,
	logger *slog.Logger,
	metrics observability.Metrics,
) *RuleRunner {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	if clock == nil {
		clock = domain.SystemClock{}
	}
	if loc == nil {
		loc = time.UTC
	}
	if runLogCap <= 0 {
		runLogCap = 50
	}
	if audit == nil {
		audit = eventbus.NewNoopPublisher(logger)
	}
	return &RuleRunner{
		rules:      rules,
		runLog:     runLog,
		registry:   registry,
		outbox:     outbox,
		audit:      audit,
		globalMode: globalMode,
		loc:        loc,
		runLogCap:  runLogCap,
		maxDrafts:  maxDrafts,
		clock:      clock,
		logger:     logger,
		metrics:    metrics,
	}
}

// RunDueRules executes every enabled rule whose next run time has
// arrived. Due rules run concurrently.
func (r *RuleRunner) RunDueRules(ctx context.Context) error {
	now := r.clock.Now()

	enabled, err := r.rules.ListEnabled(ctx)
	if err != nil {
		return fmt.Errorf("loading enabled rules: %w", err)
	}

	var due []*domain.Rule
	for _, rule := range enabled {
		if rule.IsDue(now) {
			due = append(due, rule)
		}
	}
	if len(due) == 0 {
		return nil
	}

	r.logger.Info("running due rules", "due", len(due), "enabled", len(enabled))

	var wg sync.WaitGroup
	for _, rule := range due {
		wg.Add(1)
		go func(rule *domain.Rule) {
			defer wg.Done()
			r.runRule(ctx, rule, now)
		}(rule)
	}
	wg.Wait()

	r.metrics.Counter("runner_ticks_total", 1)
	return nil
}

// RunRule runs one rule immediately, due or not, through the exact
// same pipeline as a scheduled run. Backing for the manual "run now"
// request; it returns once the rule has completed. A disabled rule is
// refused, matching the scheduled path's enabled-only selection.
func (r *RuleRunner) RunRule(ctx context.Context, ruleID uuid.UUID) error {
	rule, err := r.rules.GetByID(ctx, ruleID)
	if err != nil {
		return err
	}
	if !rule.Enabled {
		return domain.ErrRuleDisabled
	}
	r.runRule(ctx, rule, r.clock.Now())
	return nil
}

// runRule executes one rule and always advances its bookkeeping, so a
// failing rule cannot go due on every subsequent tick and hammer its
// collaborators.
func (r *RuleRunner) runRule(ctx context.Context, rule *domain.Rule, now time.Time) {
	start := time.Now()
	created, executed, runErr := r.propose(ctx, rule, now)

	message := fmt.Sprintf("%d drafts created, %d auto-executed", created, executed)
	if runErr != nil {
		message = runErr.Error()
		r.logger.Error("rule run failed",
			"rule_id", rule.ID,
			"rule_name", rule.Name,
			"rule_type", rule.Type,
			"error", runErr,
		)
		r.metrics.Counter("runner_rule_failures_total", 1, observability.T("rule_type", rule.Type))
	} else {
		r.logger.Info("rule run complete",
			"rule_id", rule.ID,
			"rule_name", rule.Name,
			"drafts_created", created,
			"auto_executed", executed,
		)
	}
	r.metrics.Timing("runner_rule_duration", time.Since(start), observability.T("rule_type", rule.Type))

	next, err := rule.Schedule.NextRunAfter(&now, now, r.loc)
	if err != nil {
		// A malformed schedule cannot produce a next run; park the
		// rule one day out so it is not retried every tick.
		r.logger.Error("schedule computation failed", "rule_id", rule.ID, "error", err)
		next = now.Add(24 * time.Hour)
	}
	rule.RecordRun(now, next)

	if err := r.rules.Update(ctx, rule); err != nil {
		r.logger.Error("persisting rule bookkeeping failed", "rule_id", rule.ID, "error", err)
	}

	entry := domain.NewRunLogEntry(rule.ID, now, runErr == nil, message)
	if err := r.runLog.Append(ctx, entry, r.runLogCap); err != nil {
		r.logger.Error("appending run log failed", "rule_id", rule.ID, "error", err)
	}
	r.publishRunLog(ctx, rule, entry)
}

// publishRunLog mirrors the outbox audit path: fire-and-forget, sink
// failures never fail the run.
func (r *RuleRunner) publishRunLog(ctx context.Context, rule *domain.Rule, entry *domain.RunLogEntry) {
	event, err := eventbus.NewAuditEvent(auditRuleRun, r.clock.Now(), map[string]any{
		"rule_id":   rule.ID.String(),
		"rule_type": rule.Type,
		"run_at":    entry.RunAt,
		"success":   entry.Success,
		"message":   entry.Message,
	})
	if err != nil {
		r.logger.Warn("failed to build audit event", "error", err)
		return
	}
	body, err := json.Marshal(event)
	if err != nil {
		r.logger.Warn("failed to encode audit event", "error", err)
		return
	}
	if err := r.audit.Publish(ctx, auditRuleRun, body); err != nil {
		r.logger.Warn("failed to publish run log event", "rule_id", rule.ID, "error", err)
	}
}

// propose runs the factory and feeds its drafts into the outbox.
// Returns the number of drafts created and auto-executed.
func (r *RuleRunner) propose(ctx context.Context, rule *domain.Rule, now time.Time) (created, executed int, err error) {
	factory, err := r.registry.Lookup(rule.Type)
	if err != nil {
		return 0, 0, err
	}

	drafts, err := factory.Propose(ctx, rule.View(), now)
	if err != nil {
		return 0, 0, fmt.Errorf("factory %s: %w", rule.Type, err)
	}
	// Hard engine-wide bound on work per rule per tick, on top of the
	// rule's own limit param.
	if r.maxDrafts > 0 && len(drafts) > r.maxDrafts {
		drafts = drafts[:r.maxDrafts]
	}

	decision := Decide(rule.Mode, r.globalMode)
	for _, draft := range drafts {
		ruleID := rule.ID
		action, err := domain.NewAction(&ruleID, draft.ActionType, draft.IdempotencyKey, draft.InputSnapshot, draft.OutputPayload, now)
		if err != nil {
			return created, executed, err
		}

		id, err := r.outbox.CreateDraft(ctx, action)
		if err != nil {
			return created, executed, fmt.Errorf("creating draft: %w", err)
		}
		if id != action.ID {
			// Live draft already holds the key; nothing to do.
			continue
		}
		created++

		if decision != DecisionAutoExecute {
			continue
		}
		if err := r.outbox.ApproveAndExecute(ctx, id, SystemActorID); err != nil {
			return created, executed, fmt.Errorf("auto-executing action %s: %w", id, err)
		}
		executed++
	}
	return created, executed, nil
}

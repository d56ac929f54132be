package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bookhive/bookhive/internal/automations/application/factories"
	"github.com/bookhive/bookhive/internal/automations/domain"
	bookingDomain "github.com/bookhive/bookhive/internal/booking/domain"
	"github.com/bookhive/bookhive/internal/shared/infrastructure/eventbus"
	"github.com/bookhive/bookhive/internal/shared/infrastructure/keylock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRuleRepo struct {
	mu    sync.Mutex
	rules map[uuid.UUID]*domain.Rule
}

func newFakeRuleRepo(rules ...*domain.Rule) *fakeRuleRepo {
	repo := &fakeRuleRepo{rules: make(map[uuid.UUID]*domain.Rule)}
	for _, rule := range rules {
		repo.rules[rule.ID] = rule
	}
	return repo
}

func (r *fakeRuleRepo) Create(_ context.Context, rule *domain.Rule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[rule.ID] = rule
	return nil
}

func (r *fakeRuleRepo) Update(_ context.Context, rule *domain.Rule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[rule.ID] = rule
	return nil
}

func (r *fakeRuleRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rules, id)
	return nil
}

func (r *fakeRuleRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Rule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule, ok := r.rules[id]
	if !ok {
		return nil, domain.ErrRuleNotFound
	}
	return rule, nil
}

func (r *fakeRuleRepo) ListAll(_ context.Context) ([]*domain.Rule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Rule
	for _, rule := range r.rules {
		out = append(out, rule)
	}
	return out, nil
}

func (r *fakeRuleRepo) ListEnabled(_ context.Context) ([]*domain.Rule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Rule
	for _, rule := range r.rules {
		if rule.Enabled {
			out = append(out, rule)
		}
	}
	return out, nil
}

type fakeRunLogRepo struct {
	mu      sync.Mutex
	entries []*domain.RunLogEntry
}

func (r *fakeRunLogRepo) Append(_ context.Context, entry *domain.RunLogEntry, _ int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *fakeRunLogRepo) ListByRule(_ context.Context, ruleID uuid.UUID, _ int) ([]*domain.RunLogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.RunLogEntry
	for _, entry := range r.entries {
		if entry.RuleID == ruleID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (r *fakeRunLogRepo) forRule(ruleID uuid.UUID) []*domain.RunLogEntry {
	out, _ := r.ListByRule(context.Background(), ruleID, 0)
	return out
}

type runnerFixture struct {
	runner  *RuleRunner
	rules   *fakeRuleRepo
	actions *fakeActionRepo
	runLog  *fakeRunLogRepo
	handler *stubHandler
	now     time.Time
}

func newRunnerFixture(t *testing.T, globalMode domain.GlobalMode, unpaid []bookingDomain.Booking, rules ...*domain.Rule) *runnerFixture {
	t.Helper()

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	clock := domain.FixedClock{T: now}

	handler := &stubHandler{actionType: domain.ActionTypeEmail}
	executor := NewExecutor(time.Second, nil)
	executor.RegisterHandler(handler)

	actions := newFakeActionRepo()
	outbox := NewOutbox(actions, keylock.NewMutexGuard(), executor, eventbus.NewInProcessPublisher(), clock, nil, nil)

	registry := factories.NewRegistry()
	registry.Register(factories.NewPaymentReminderFactory(&stubBookingQuery{unpaid: unpaid}, time.UTC))

	ruleRepo := newFakeRuleRepo(rules...)
	runLog := &fakeRunLogRepo{}

	runner := NewRuleRunner(ruleRepo, runLog, registry, outbox, nil, globalMode, time.UTC, 50, 20, clock, nil, nil)
	return &runnerFixture{
		runner:  runner,
		rules:   ruleRepo,
		actions: actions,
		runLog:  runLog,
		handler: handler,
		now:     now,
	}
}

type stubBookingQuery struct {
	unpaid []bookingDomain.Booking
}

func (q *stubBookingQuery) UnpaidStartingBetween(_ context.Context, _, _ time.Time, _ int) ([]bookingDomain.Booking, error) {
	return q.unpaid, nil
}

func (q *stubBookingQuery) UnassignedBetween(_ context.Context, _, _ time.Time, _ int) ([]bookingDomain.Booking, error) {
	return nil, nil
}

func newReminderRule(t *testing.T) *domain.Rule {
	t.Helper()
	schedule, err := domain.DailySchedule(9, 0)
	require.NoError(t, err)
	rule, err := domain.NewRule("payment chasers", factories.RuleTypePaymentReminder, schedule, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return rule
}

func unpaidBooking(start time.Time) bookingDomain.Booking {
	return bookingDomain.Booking{
		ID:            uuid.New(),
		CustomerName:  "Ada",
		CustomerEmail: "ada@example.com",
		ServiceName:   "dinner",
		StartTime:     start,
		EndTime:       start.Add(2 * time.Hour),
	}
}

func actionsByStatus(t *testing.T, repo *fakeActionRepo, status domain.ActionStatus) []*domain.Action {
	t.Helper()
	out, _, err := repo.List(context.Background(), domain.ActionFilter{Status: &status})
	require.NoError(t, err)
	return out
}

func TestRunDueRulesHumanInTheLoop(t *testing.T) {
	rule := newReminderRule(t)
	booking := unpaidBooking(time.Date(2026, 3, 11, 18, 0, 0, 0, time.UTC))
	fx := newRunnerFixture(t, domain.GlobalHumanInTheLoop, []bookingDomain.Booking{booking}, rule)

	require.NoError(t, fx.runner.RunDueRules(context.Background()))

	drafts := actionsByStatus(t, fx.actions, domain.ActionStatusDraft)
	require.Len(t, drafts, 1, "human-in-the-loop parks the action as a draft")
	assert.Zero(t, fx.handler.calls, "nothing executes without approval")

	entries := fx.runLog.forRule(rule.ID)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Success)
	assert.Contains(t, entries[0].Message, "1 drafts created")
}

func TestRunDueRulesAutonomous(t *testing.T) {
	rule := newReminderRule(t)
	booking := unpaidBooking(time.Date(2026, 3, 11, 18, 0, 0, 0, time.UTC))
	fx := newRunnerFixture(t, domain.GlobalAutonomous, []bookingDomain.Booking{booking}, rule)

	require.NoError(t, fx.runner.RunDueRules(context.Background()))

	executed := actionsByStatus(t, fx.actions, domain.ActionStatusExecuted)
	require.Len(t, executed, 1)
	require.NotNil(t, executed[0].ActorID)
	assert.Equal(t, SystemActorID, *executed[0].ActorID)
	assert.Equal(t, 1, fx.handler.calls)
}

func TestRunDueRulesForceHITLOverridesGlobal(t *testing.T) {
	rule := newReminderRule(t)
	rule.SetMode(domain.ModeForceHITL, time.Now())
	booking := unpaidBooking(time.Date(2026, 3, 11, 18, 0, 0, 0, time.UTC))
	fx := newRunnerFixture(t, domain.GlobalAutonomous, []bookingDomain.Booking{booking}, rule)

	require.NoError(t, fx.runner.RunDueRules(context.Background()))

	drafts := actionsByStatus(t, fx.actions, domain.ActionStatusDraft)
	assert.Len(t, drafts, 1)
	assert.Zero(t, fx.handler.calls)
}

func TestRunDueRulesAdvancesBookkeeping(t *testing.T) {
	rule := newReminderRule(t)
	fx := newRunnerFixture(t, domain.GlobalHumanInTheLoop, nil, rule)

	require.NoError(t, fx.runner.RunDueRules(context.Background()))

	stored, err := fx.rules.GetByID(context.Background(), rule.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastRunAt)
	assert.Equal(t, fx.now, *stored.LastRunAt)
	require.NotNil(t, stored.NextRunAt)
	assert.Equal(t, time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC), *stored.NextRunAt, "daily 09:00 run at 09:00 schedules tomorrow")

	// Second pass at the same instant: the rule is no longer due.
	require.NoError(t, fx.runner.RunDueRules(context.Background()))
	assert.Len(t, fx.runLog.forRule(rule.ID), 1)
}

func TestRunDueRulesIdempotentDrafts(t *testing.T) {
	rule := newReminderRule(t)
	booking := unpaidBooking(time.Date(2026, 3, 11, 18, 0, 0, 0, time.UTC))
	fx := newRunnerFixture(t, domain.GlobalHumanInTheLoop, []bookingDomain.Booking{booking}, rule)

	require.NoError(t, fx.runner.RunDueRules(context.Background()))
	// Force the rule due again within the same day bucket.
	require.NoError(t, fx.runner.RunRule(context.Background(), rule.ID))

	drafts := actionsByStatus(t, fx.actions, domain.ActionStatusDraft)
	assert.Len(t, drafts, 1, "second run must not duplicate the live draft")

	entries := fx.runLog.forRule(rule.ID)
	require.Len(t, entries, 2)
	assert.Contains(t, entries[1].Message, "0 drafts created")
}

func TestRunDueRulesFailureIsolation(t *testing.T) {
	healthy := newReminderRule(t)

	schedule, err := domain.DailySchedule(9, 0)
	require.NoError(t, err)
	broken, err := domain.NewRule("mystery", "no_such_type", schedule, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	booking := unpaidBooking(time.Date(2026, 3, 11, 18, 0, 0, 0, time.UTC))
	fx := newRunnerFixture(t, domain.GlobalHumanInTheLoop, []bookingDomain.Booking{booking}, healthy, broken)

	require.NoError(t, fx.runner.RunDueRules(context.Background()))

	assert.Len(t, actionsByStatus(t, fx.actions, domain.ActionStatusDraft), 1, "the healthy rule still ran")

	brokenEntries := fx.runLog.forRule(broken.ID)
	require.Len(t, brokenEntries, 1)
	assert.False(t, brokenEntries[0].Success)
	assert.Contains(t, brokenEntries[0].Message, "no_such_type")

	// The failing rule's bookkeeping advanced too; it will not go due
	// again on the very next tick.
	stored, err := fx.rules.GetByID(context.Background(), broken.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.NextRunAt)
	assert.True(t, stored.NextRunAt.After(fx.now))
}

func TestRunRuleUnknownRule(t *testing.T) {
	fx := newRunnerFixture(t, domain.GlobalHumanInTheLoop, nil)
	err := fx.runner.RunRule(context.Background(), uuid.New())
	require.ErrorIs(t, err, domain.ErrRuleNotFound)
}

func TestRunRuleDisabledRule(t *testing.T) {
	rule := newReminderRule(t)
	rule.Disable(time.Now())
	booking := unpaidBooking(time.Date(2026, 3, 11, 18, 0, 0, 0, time.UTC))
	fx := newRunnerFixture(t, domain.GlobalAutonomous, []bookingDomain.Booking{booking}, rule)

	err := fx.runner.RunRule(context.Background(), rule.ID)
	require.ErrorIs(t, err, domain.ErrRuleDisabled)

	drafts := actionsByStatus(t, fx.actions, domain.ActionStatusDraft)
	executed := actionsByStatus(t, fx.actions, domain.ActionStatusExecuted)
	assert.Empty(t, drafts, "a disabled rule proposes nothing")
	assert.Empty(t, executed)
	assert.Zero(t, fx.handler.calls)
	assert.Empty(t, fx.runLog.forRule(rule.ID), "a refused run leaves no log entry")
}

package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRule(t *testing.T) *Rule {
	t.Helper()
	s, err := DailySchedule(9, 0)
	require.NoError(t, err)
	rule, err := NewRule("Payment reminders", "payment_reminder", s, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return rule
}

func TestNewRuleValidates(t *testing.T) {
	s, _ := DailySchedule(9, 0)
	now := time.Now()

	_, err := NewRule("", "payment_reminder", s, now)
	assert.ErrorIs(t, err, ErrInvalidRule)

	_, err = NewRule("r", "", s, now)
	assert.ErrorIs(t, err, ErrInvalidRule)

	_, err = NewRule("r", "payment_reminder", Schedule{Kind: "quarterly"}, now)
	assert.ErrorIs(t, err, ErrInvalidSchedule)
}

func TestIsDue(t *testing.T) {
	rule := newTestRule(t)
	now := time.Date(2026, 5, 4, 9, 1, 0, 0, time.UTC)

	// Never run: due immediately.
	assert.True(t, rule.IsDue(now))

	// Scheduled in the future: not due.
	future := now.Add(time.Hour)
	rule.NextRunAt = &future
	assert.False(t, rule.IsDue(now))

	// Exactly at the boundary: due.
	rule.NextRunAt = &now
	assert.True(t, rule.IsDue(now))

	// Disabled rules are never due, past next run or not.
	past := now.Add(-time.Hour)
	rule.NextRunAt = &past
	rule.Disable(now)
	assert.False(t, rule.IsDue(now))
}

func TestRecordRunKeepsInvariant(t *testing.T) {
	rule := newTestRule(t)
	ranAt := time.Date(2026, 5, 4, 9, 1, 0, 0, time.UTC)

	next, err := rule.Schedule.NextRunAfter(nil, ranAt, time.UTC)
	require.NoError(t, err)
	rule.RecordRun(ranAt, next)

	require.NotNil(t, rule.LastRunAt)
	require.NotNil(t, rule.NextRunAt)
	assert.False(t, rule.NextRunAt.Before(*rule.LastRunAt), "next_run_at must be >= last_run_at")
	assert.Equal(t, time.Date(2026, 5, 5, 9, 0, 0, 0, time.UTC), *rule.NextRunAt)
}

func TestForceDueMakesRuleSelectable(t *testing.T) {
	rule := newTestRule(t)
	now := time.Date(2026, 5, 4, 9, 1, 0, 0, time.UTC)
	future := now.Add(24 * time.Hour)
	rule.NextRunAt = &future

	rule.ForceDue(now)
	assert.True(t, rule.IsDue(now))
}

func TestViewIsDetachedFromAggregate(t *testing.T) {
	rule := newTestRule(t)
	rule.Params = map[string]any{"days_before": 3, "template_id": "friendly"}

	view := rule.View()
	view.Params["days_before"] = 99

	assert.Equal(t, 3, rule.Params["days_before"], "mutating the view must not touch the rule")
	assert.Equal(t, rule.ID, view.ID)
}

func TestRuleViewParamAccessors(t *testing.T) {
	view := RuleView{Params: map[string]any{
		"days_before": float64(7), // JSON decoding produces float64
		"limit":       5,
		"template_id": "overdue",
	}}

	assert.Equal(t, 7, view.IntParam("days_before", 3))
	assert.Equal(t, 5, view.IntParam("limit", 20))
	assert.Equal(t, 3, view.IntParam("missing", 3))
	assert.Equal(t, "overdue", view.StringParam("template_id", "default"))
	assert.Equal(t, "default", view.StringParam("missing", "default"))
}

package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var actionNow = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

func newDraft(t *testing.T) *Action {
	t.Helper()
	ruleID := uuid.New()
	a, err := NewAction(&ruleID, ActionTypeEmail, "key-1",
		map[string]any{"booking_id": "b1"},
		map[string]any{"to": "guest@example.com", "subject": "Reminder", "body": "Hi"},
		actionNow,
	)
	require.NoError(t, err)
	return a
}

func TestNewActionValidates(t *testing.T) {
	_, err := NewAction(nil, "", "key", nil, nil, actionNow)
	assert.ErrorIs(t, err, ErrInvalidAction)

	_, err = NewAction(nil, ActionTypeEmail, "", nil, nil, actionNow)
	assert.ErrorIs(t, err, ErrInvalidAction)

	a, err := NewAction(nil, ActionTypeEmail, "key", nil, nil, actionNow)
	require.NoError(t, err)
	assert.Nil(t, a.RuleID, "manual proposals have no owning rule")
	assert.Equal(t, ActionStatusDraft, a.Status)
	assert.NotNil(t, a.InputSnapshot)
	assert.NotNil(t, a.OutputPayload)
}

func TestApproveThenExecute(t *testing.T) {
	a := newDraft(t)
	actor := uuid.New()

	require.NoError(t, a.Approve(actor, actionNow))
	assert.Equal(t, ActionStatusApproved, a.Status)
	require.NotNil(t, a.ActorID)
	assert.Equal(t, actor, *a.ActorID)

	require.NoError(t, a.MarkExecuted(actionNow))
	assert.Equal(t, ActionStatusExecuted, a.Status)
	assert.True(t, a.Status.IsTerminal())
	assert.False(t, a.IsLive())
}

func TestRejectRecordsActorAndNote(t *testing.T) {
	a := newDraft(t)
	actor := uuid.New()

	require.NoError(t, a.Reject(actor, "duplicate of manual mail", actionNow))
	assert.Equal(t, ActionStatusRejected, a.Status)
	assert.Equal(t, "duplicate of manual mail", a.Notes)
}

func TestMarkFailedRecordsError(t *testing.T) {
	a := newDraft(t)
	require.NoError(t, a.Approve(uuid.New(), actionNow))

	require.NoError(t, a.MarkFailed("smtp: connection refused", actionNow))
	assert.Equal(t, ActionStatusFailed, a.Status)
	assert.Equal(t, "smtp: connection refused", a.Notes)
	assert.True(t, a.Status.IsTerminal())
}

// Every transition not explicitly allowed must fail with
// ErrInvalidTransition.
func TestIllegalTransitions(t *testing.T) {
	actor := uuid.New()

	apply := map[string]func(*Action) error{
		"approve": func(a *Action) error { return a.Approve(actor, actionNow) },
		"reject":  func(a *Action) error { return a.Reject(actor, "", actionNow) },
		"execute": func(a *Action) error { return a.MarkExecuted(actionNow) },
		"fail":    func(a *Action) error { return a.MarkFailed("boom", actionNow) },
	}

	prepare := map[ActionStatus]func(*Action){
		ActionStatusDraft: func(a *Action) {},
		ActionStatusApproved: func(a *Action) {
			require.NoError(t, a.Approve(actor, actionNow))
		},
		ActionStatusExecuted: func(a *Action) {
			require.NoError(t, a.Approve(actor, actionNow))
			require.NoError(t, a.MarkExecuted(actionNow))
		},
		ActionStatusRejected: func(a *Action) {
			require.NoError(t, a.Reject(actor, "", actionNow))
		},
		ActionStatusFailed: func(a *Action) {
			require.NoError(t, a.Approve(actor, actionNow))
			require.NoError(t, a.MarkFailed("boom", actionNow))
		},
	}

	legal := map[ActionStatus]map[string]bool{
		ActionStatusDraft:    {"approve": true, "reject": true},
		ActionStatusApproved: {"execute": true, "fail": true},
		ActionStatusExecuted: {},
		ActionStatusRejected: {},
		ActionStatusFailed:   {},
	}

	for status, setup := range prepare {
		for op, fn := range apply {
			t.Run(string(status)+"_"+op, func(t *testing.T) {
				a := newDraft(t)
				setup(a)
				err := fn(a)
				if legal[status][op] {
					assert.NoError(t, err)
				} else {
					assert.ErrorIs(t, err, ErrInvalidTransition)
				}
			})
		}
	}
}

// Execute on a bare Draft must fail; only the combined
// approve-and-execute path may take a draft to executed.
func TestExecuteOnDraftFails(t *testing.T) {
	a := newDraft(t)
	err := a.MarkExecuted(actionNow)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, ActionStatusDraft, a.Status, "failed transition must not corrupt state")
}

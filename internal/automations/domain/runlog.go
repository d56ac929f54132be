package domain

import (
	"time"

	"github.com/google/uuid"
)

// RunLogEntry is an append-only record of one runner pass for one
// rule. History per rule is capped; the repository prunes the oldest
// entries beyond the cap.
type RunLogEntry struct {
	ID      uuid.UUID
	RuleID  uuid.UUID
	RunAt   time.Time
	Success bool
	Message string
}

// NewRunLogEntry creates a run log entry.
func NewRunLogEntry(ruleID uuid.UUID, runAt time.Time, success bool, message string) *RunLogEntry {
	return &RunLogEntry{
		ID:      uuid.New(),
		RuleID:  ruleID,
		RunAt:   runAt,
		Success: success,
		Message: message,
	}
}

// Package domain contains the automation rules domain model.
package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Common errors for automation rules.
var (
	ErrRuleNotFound = errors.New("automation rule not found")
	ErrRuleDisabled = errors.New("automation rule is disabled")
	ErrInvalidRule  = errors.New("invalid automation rule")
)

// RuleMode is the per-rule override of the global operating mode.
type RuleMode string

const (
	// ModeInherit follows the global operating mode.
	ModeInherit RuleMode = "inherit"
	// ModeForceHITL always requires human approval, regardless of the
	// global mode.
	ModeForceHITL RuleMode = "force_hitl"
	// ModeForceAutonomous always auto-executes, regardless of the
	// global mode.
	ModeForceAutonomous RuleMode = "force_autonomous"
)

// GlobalMode is the engine-wide operating mode.
type GlobalMode string

const (
	GlobalAutonomous     GlobalMode = "autonomous"
	GlobalHumanInTheLoop GlobalMode = "human_in_the_loop"
)

// ParseGlobalMode parses a global mode name.
func ParseGlobalMode(s string) (GlobalMode, error) {
	switch GlobalMode(s) {
	case GlobalAutonomous, GlobalHumanInTheLoop:
		return GlobalMode(s), nil
	default:
		return "", fmt.Errorf("unknown global mode %q", s)
	}
}

// Rule is a recurring automation definition. The engine reads rules
// as-is; only the runner writes the LastRunAt/NextRunAt bookkeeping.
type Rule struct {
	ID      uuid.UUID
	Name    string
	Type    string
	Enabled bool
	Mode    RuleMode

	Schedule Schedule
	Params   map[string]any

	LastRunAt *time.Time
	NextRunAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewRule creates a new enabled rule with mode inherit.
func NewRule(name, ruleType string, schedule Schedule, now time.Time) (*Rule, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidRule)
	}
	if ruleType == "" {
		return nil, fmt.Errorf("%w: type is required", ErrInvalidRule)
	}
	if err := schedule.Validate(); err != nil {
		return nil, err
	}

	return &Rule{
		ID:        uuid.New(),
		Name:      name,
		Type:      ruleType,
		Enabled:   true,
		Mode:      ModeInherit,
		Schedule:  schedule,
		Params:    map[string]any{},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// IsDue reports whether the rule should run at now. A disabled rule is
// never due; an unset NextRunAt means never run, due immediately.
func (r *Rule) IsDue(now time.Time) bool {
	if !r.Enabled {
		return false
	}
	return r.NextRunAt == nil || !r.NextRunAt.After(now)
}

// RecordRun updates the bookkeeping after one runner pass. Only the
// runner calls this.
func (r *Rule) RecordRun(ranAt, next time.Time) {
	r.LastRunAt = &ranAt
	r.NextRunAt = &next
	r.UpdatedAt = ranAt
}

// ForceDue clears NextRunAt so the rule is selected on the next pass.
func (r *Rule) ForceDue(now time.Time) {
	r.NextRunAt = nil
	r.UpdatedAt = now
}

// Enable enables the rule.
func (r *Rule) Enable(now time.Time) {
	r.Enabled = true
	r.UpdatedAt = now
}

// Disable disables the rule.
func (r *Rule) Disable(now time.Time) {
	r.Enabled = false
	r.UpdatedAt = now
}

// SetMode sets the per-rule operating mode override.
func (r *Rule) SetMode(mode RuleMode, now time.Time) {
	r.Mode = mode
	r.UpdatedAt = now
}

// View returns the read-only snapshot handed to action factories.
// Factories never see the mutable aggregate.
func (r *Rule) View() RuleView {
	params := make(map[string]any, len(r.Params))
	for k, v := range r.Params {
		params[k] = v
	}
	return RuleView{
		ID:     r.ID,
		Name:   r.Name,
		Type:   r.Type,
		Mode:   r.Mode,
		Params: params,
	}
}

// RuleView is the factory-facing projection of a rule: identity, type
// and params, without the schedule bookkeeping.
type RuleView struct {
	ID     uuid.UUID
	Name   string
	Type   string
	Mode   RuleMode
	Params map[string]any
}

// IntParam returns an integer param, tolerating JSON float decoding.
func (v RuleView) IntParam(key string, fallback int) int {
	switch n := v.Params[key].(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return fallback
	}
}

// StringParam returns a string param.
func (v RuleView) StringParam(key, fallback string) string {
	if s, ok := v.Params[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

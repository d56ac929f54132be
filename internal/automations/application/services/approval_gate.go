// Package services contains the automation application services.
package services

import (
	"github.com/bookhive/bookhive/internal/automations/domain"
)

// Decision is the outcome of the approval gate for one new action.
type Decision string

const (
	// DecisionAutoExecute approves and executes the action in the
	// same tick, without a human.
	DecisionAutoExecute Decision = "auto_execute"
	// DecisionRequireApproval parks the action as a draft until a
	// human approves or rejects it.
	DecisionRequireApproval Decision = "require_approval"
)

// Decide resolves the per-rule mode against the global operating mode.
// Pure decision table, no side effects:
//
//	force_hitl       -> require approval, regardless of global
//	force_autonomous -> auto execute, regardless of global
//	inherit          -> follow the global mode
func Decide(ruleMode domain.RuleMode, globalMode domain.GlobalMode) Decision {
	switch ruleMode {
	case domain.ModeForceHITL:
		return DecisionRequireApproval
	case domain.ModeForceAutonomous:
		return DecisionAutoExecute
	}

	if globalMode == domain.GlobalAutonomous {
		return DecisionAutoExecute
	}
	return DecisionRequireApproval
}

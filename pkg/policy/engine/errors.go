package engine

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	// ErrNilRuleset indicates Evaluate was called without a ruleset.
	ErrNilRuleset = errors.New("ruleset is nil")

	// ErrNilPatient indicates Evaluate was called without patient facts.
	ErrNilPatient = errors.New("patient facts are nil")

	// ErrNilContract indicates Evaluate was called without a contract.
	ErrNilContract = errors.New("contract is nil")

	// ErrFamilyMismatch indicates the contract belongs to another rule family.
	ErrFamilyMismatch = errors.New("contract family does not match ruleset family")

	// ErrInvalidConfig indicates invalid engine configuration.
	ErrInvalidConfig = errors.New("invalid engine configuration")
)

// EvaluationError is the error recorded on an ERROR result.
type EvaluationError struct {
	RulesetID string
	GateID    string
	Message   string
	Cause     error
}

// Error returns the error message.
func (e *EvaluationError) Error() string {
	prefix := fmt.Sprintf("ruleset %s", e.RulesetID)
	if e.GateID != "" {
		prefix += fmt.Sprintf(" gate %s", e.GateID)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap returns the underlying cause.
func (e *EvaluationError) Unwrap() error {
	return e.Cause
}

// ConditionError indicates that one condition could not be evaluated. It is
// folded into the gate's reason rather than returned to callers.
type ConditionError struct {
	GateID    string
	Condition string
	Cause     error
}

// Error returns the error message.
func (e *ConditionError) Error() string {
	return fmt.Sprintf("gate %s: condition %q: %v", e.GateID, e.Condition, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *ConditionError) Unwrap() error {
	return e.Cause
}

package ast

import "strings"

// Outcome is a terminal evaluation token. Each Family accepts a closed subset.
type Outcome string

const (
	// Event family outcomes.
	OutcomeYes               Outcome = "YES"
	OutcomeNo                Outcome = "NO"
	OutcomeExcluded          Outcome = "EXCLUDED"
	OutcomeUnableToDetermine Outcome = "UNABLE_TO_DETERMINE"
	OutcomeNotEvaluated      Outcome = "NOT_EVALUATED"

	// Protocol family outcomes.
	OutcomeCompliant     Outcome = "COMPLIANT"
	OutcomeNonCompliant  Outcome = "NON_COMPLIANT"
	OutcomeNotTriggered  Outcome = "NOT_TRIGGERED"
	OutcomeIndeterminate Outcome = "INDETERMINATE"

	// OutcomeError is produced only when an evaluation faults at runtime.
	OutcomeError Outcome = "ERROR"
)

// ParseOutcome upper-cases s. The outcome is returned even when unknown so
// that validators can report it; ok reports membership in any family.
func ParseOutcome(s string) (o Outcome, ok bool) {
	o = Outcome(strings.ToUpper(strings.TrimSpace(s)))
	return o, FamilyEvent.Accepts(o) || FamilyProtocol.Accepts(o)
}

// IsAffirmative reports whether o asserts that a ruleset was fully satisfied.
func (o Outcome) IsAffirmative() bool {
	return o == OutcomeYes || o == OutcomeCompliant
}

// Family identifies a rule family and its outcome vocabulary.
type Family string

const (
	// FamilyEvent covers standardized hospital-event definitions (NTDS).
	FamilyEvent Family = "event"

	// FamilyProtocol covers trauma-care protocol compliance.
	FamilyProtocol Family = "protocol"
)

var vocabularies = map[Family][]Outcome{
	FamilyEvent: {
		OutcomeYes,
		OutcomeNo,
		OutcomeExcluded,
		OutcomeUnableToDetermine,
		OutcomeNotEvaluated,
		OutcomeError,
	},
	FamilyProtocol: {
		OutcomeCompliant,
		OutcomeNonCompliant,
		OutcomeNotTriggered,
		OutcomeIndeterminate,
		OutcomeError,
	},
}

// ParseFamily normalizes s. An empty string defaults to FamilyEvent.
func ParseFamily(s string) (Family, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", "event", "ntds", "ntds_event":
		return FamilyEvent, true
	case "protocol":
		return FamilyProtocol, true
	}
	return Family(s), false
}

// Valid reports whether f is a known family.
func (f Family) Valid() bool {
	_, ok := vocabularies[f]
	return ok
}

// Vocabulary returns the closed outcome set of the family.
func (f Family) Vocabulary() []Outcome {
	return append([]Outcome(nil), vocabularies[f]...)
}

// Accepts reports whether o belongs to the family's vocabulary.
func (f Family) Accepts(o Outcome) bool {
	for _, v := range vocabularies[f] {
		if v == o {
			return true
		}
	}
	return false
}

// Satisfied is the outcome when every gate completes without a halt.
func (f Family) Satisfied() Outcome {
	if f == FamilyProtocol {
		return OutcomeCompliant
	}
	return OutcomeYes
}

// NotEvaluated is the fixed outcome for context-only rulesets.
func (f Family) NotEvaluated() Outcome {
	if f == FamilyProtocol {
		return OutcomeNotTriggered
	}
	return OutcomeNotEvaluated
}

// MissingData is the built-in fallback for outcomes a contract does not allow.
func (f Family) MissingData() Outcome {
	if f == FamilyProtocol {
		return OutcomeIndeterminate
	}
	return OutcomeUnableToDetermine
}

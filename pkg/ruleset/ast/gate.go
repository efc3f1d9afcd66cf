package ast

import "github.com/Netrion-29/Netrion-cerebralos/pkg/facts"

// GateKind selects the evaluator for a gate. The set is closed; the parser
// rejects anything else.
type GateKind string

const (
	// GateEvidenceAny passes when at least MinCount blocks match any query key.
	GateEvidenceAny GateKind = "evidence_any"

	// GateTimingAfterArrival passes when a matching block is timestamped after arrival.
	GateTimingAfterArrival GateKind = "timing_after_arrival"

	// GateRequiresTreatmentAny is GateEvidenceAny for treatment documentation.
	GateRequiresTreatmentAny GateKind = "requires_treatment_any"

	// GateTriggerCriteria decides protocol applicability; its first condition is the primary trigger.
	GateTriggerCriteria GateKind = "trigger_criteria"

	// GateRequiredDataElements requires every listed element to be documented.
	GateRequiredDataElements GateKind = "required_data_elements"

	// GateTimingCritical requires time-bound actions and rejects exclusion conditions.
	GateTimingCritical GateKind = "timing_critical"
)

// ExclusionKind is the only supported exclusion kind.
const ExclusionKind = "exclude_if_any"

var gateKinds = map[GateKind]bool{
	GateEvidenceAny:          true,
	GateTimingAfterArrival:   true,
	GateRequiresTreatmentAny: true,
	GateTriggerCriteria:      true,
	GateRequiredDataElements: true,
	GateTimingCritical:       true,
}

// Valid reports whether k is a known gate kind.
func (k GateKind) Valid() bool {
	return gateKinds[k]
}

// IsProtocolKind reports whether k evaluates condition lists rather than query keys.
func (k GateKind) IsProtocolKind() bool {
	return k == GateTriggerCriteria || k == GateRequiredDataElements || k == GateTimingCritical
}

// RequirementType is the protocol severity of a gate.
type RequirementType string

const (
	RequirementMandatory   RequirementType = "MANDATORY"
	RequirementConditional RequirementType = "CONDITIONAL"
)

// MatchFlags override the contract's evidence-matching defaults. Nil fields
// inherit.
type MatchFlags struct {
	NegationAware        *bool
	SkipHistorical       *bool
	AdmissionWindowHours *int
}

// Merge returns f with every non-nil field of override applied.
func (f MatchFlags) Merge(override MatchFlags) MatchFlags {
	if override.NegationAware != nil {
		f.NegationAware = override.NegationAware
	}
	if override.SkipHistorical != nil {
		f.SkipHistorical = override.SkipHistorical
	}
	if override.AdmissionWindowHours != nil {
		f.AdmissionWindowHours = override.AdmissionWindowHours
	}
	return f
}

// Gate is one atomic pass/fail test.
type Gate struct {
	ID              string
	Kind            GateKind
	Description     string
	Required        bool
	RequirementType RequirementType

	// Query-key gates.
	QueryKeys      []string
	MinCount       int
	AllowedSources []facts.SourceType
	NoiseKeys      []string

	// Condition-list gates.
	Conditions          []*Condition
	AcceptableEvidence  []facts.SourceType
	ExclusionConditions []*Condition

	// Timing gates.
	TimestampRequired bool
	ArrivalField      string

	// Halting behavior. Empty outcomes are unset.
	FailOutcome Outcome
	FailReason  string
	PassOutcome Outcome
	PassReason  string

	Matching MatchFlags
	Location Location
}

// Exclusion is an unconditional disqualifier evaluated before any gate.
type Exclusion struct {
	RuleID         string
	QueryKeys      []string
	ContextKeys    []string
	AllowedSources []facts.SourceType
	Reason         string
	Matching       MatchFlags
	Location       Location
}

package report

import (
	"fmt"
	"unicode/utf8"

	"github.com/Netrion-29/Netrion-cerebralos/pkg/facts"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/policy/engine"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/ruleset/ast"
)

// MaxTextLength bounds evidence text in step traces and near-miss lists.
const MaxTextLength = 400

// Report is the serializable reviewer view of one evaluation.
type Report struct {
	RulesetID string      `json:"ruleset_id"`
	Name      string      `json:"name"`
	Version   string      `json:"version,omitempty"`
	Family    ast.Family  `json:"family"`
	Year      int         `json:"year,omitempty"`
	PatientID string      `json:"patient_id,omitempty"`
	Outcome   ast.Outcome `json:"outcome"`
	Summary   string      `json:"summary"`

	HardStop         *HardStop      `json:"hard_stop,omitempty"`
	SearchedFor      []SearchEntry  `json:"searched_for"`
	NearMissEvidence []EvidenceItem `json:"near_miss_evidence"`
	StepTrace        []Step         `json:"step_trace"`
	Warnings         []string       `json:"warnings"`
	Error            string         `json:"error,omitempty"`
}

// HardStop describes the exclusion or pass-outcome gate that halted
// evaluation.
type HardStop struct {
	Kind     engine.HardStopKind `json:"kind"`
	RuleID   string              `json:"rule_id"`
	Reason   string              `json:"reason"`
	Evidence []EvidenceItem      `json:"evidence"`
}

// SearchEntry lists the pattern keys one gate or exclusion searched for.
type SearchEntry struct {
	GateID      string   `json:"gate_id"`
	QueryKeys   []string `json:"query_keys"`
	ExcludeKeys []string `json:"exclude_keys"`
	ContextKeys []string `json:"context_keys,omitempty"`
}

// Step is one gate of the trace.
type Step struct {
	GateID          string               `json:"gate_id"`
	Kind            ast.GateKind         `json:"kind"`
	RequirementType ast.RequirementType  `json:"requirement_type,omitempty"`
	Required        bool                 `json:"required"`
	Passed          bool                 `json:"passed"`
	Reason          string               `json:"reason"`
	Evidence        []EvidenceItem       `json:"evidence"`
	MatchDetails    []engine.MatchDetail `json:"match_details,omitempty"`
	MissingData     []string             `json:"missing_data,omitempty"`
}

// EvidenceItem is an evidence block with bounded text.
type EvidenceItem struct {
	SourceType facts.SourceType `json:"source_type"`
	Timestamp  string           `json:"timestamp,omitempty"`
	Text       string           `json:"text"`
	Pointer    facts.Pointer    `json:"pointer,omitempty"`
}

// Summary returns the one-line human summary for a result.
func Summary(result *engine.Result) string {
	failedGate := "unknown"
	if g := result.FailedGate(); g != nil {
		failedGate = g.GateID
	}

	switch result.Outcome {
	case ast.OutcomeYes:
		return "YES - all required gates passed"
	case ast.OutcomeNo:
		return "NO - failed gate: " + failedGate
	case ast.OutcomeUnableToDetermine:
		return "UNABLE - failed gate: " + failedGate
	case ast.OutcomeExcluded:
		if result.HardStop != nil {
			return "EXCLUDED - " + result.HardStop.RuleID
		}
		return "EXCLUDED"
	case ast.OutcomeNotEvaluated:
		return "NOT_EVALUATED - ruleset is context only"
	case ast.OutcomeCompliant:
		return "COMPLIANT - All protocol requirements met"
	case ast.OutcomeNonCompliant:
		if g := lastFailed(result); g != nil {
			return fmt.Sprintf("NON_COMPLIANT - %s failed", g.GateID)
		}
		return "NON_COMPLIANT"
	case ast.OutcomeNotTriggered:
		return "NOT_TRIGGERED - Protocol does not apply to this patient"
	case ast.OutcomeIndeterminate:
		return "INDETERMINATE - Missing required data for compliance determination"
	case ast.OutcomeError:
		if result.Error != "" {
			return "ERROR - " + result.Error
		}
		return "ERROR"
	default:
		return string(result.Outcome)
	}
}

// lastFailed returns the last failed gate of the trace. A protocol can end
// NON_COMPLIANT through a declared fail_outcome on an optional gate, which
// FailedGate does not report.
func lastFailed(result *engine.Result) *engine.GateResult {
	for i := len(result.GateTrace) - 1; i >= 0; i-- {
		if !result.GateTrace[i].Passed {
			return result.GateTrace[i]
		}
	}
	return nil
}

// newEvidenceItems converts evidence blocks, bounding their text.
func newEvidenceItems(evidence []facts.Evidence) []EvidenceItem {
	items := make([]EvidenceItem, 0, len(evidence))
	for _, ev := range evidence {
		items = append(items, newEvidenceItem(ev))
	}
	return items
}

func newEvidenceItem(ev facts.Evidence) EvidenceItem {
	return EvidenceItem{
		SourceType: ev.SourceType,
		Timestamp:  ev.Timestamp,
		Text:       truncate(ev.Text, MaxTextLength),
		Pointer:    ev.Pointer,
	}
}

// truncate cuts s to at most n bytes on a rune boundary, marking the cut.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

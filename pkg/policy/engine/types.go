package engine

import (
	"github.com/Netrion-29/Netrion-cerebralos/pkg/facts"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/ruleset/ast"
)

// MatchDetail explains why one evidence block was accepted.
type MatchDetail struct {
	// PatternKey is the key, threshold parameter or keyword that matched.
	PatternKey string `json:"pattern_key"`

	// MatchedText is the exact matched substring.
	MatchedText string `json:"matched_text"`

	// Context is the surrounding text, trimmed.
	Context string `json:"context"`
}

// Hit is one accepted evidence block with the occurrence that qualified it.
type Hit struct {
	// Index is the block's position in PatientFacts.Evidence.
	Index    int
	Evidence facts.Evidence
	Detail   MatchDetail
}

// GateResult records the evaluation of one gate.
type GateResult struct {
	GateID   string       `json:"gate_id"`
	Kind     ast.GateKind `json:"kind"`
	Required bool         `json:"required"`
	Passed   bool         `json:"passed"`
	Reason   string       `json:"reason"`

	// Evidence is capped at the contract's max_items_per_gate.
	Evidence     []facts.Evidence `json:"evidence"`
	MatchDetails []MatchDetail    `json:"match_details,omitempty"`
	MissingData  []string         `json:"missing_data,omitempty"`

	// proposed is the outcome the evaluator suggests when the gate halts
	// evaluation without a declared fail_outcome.
	proposed ast.Outcome
}

// HardStopKind distinguishes the two ways evaluation can stop early with a citation.
type HardStopKind string

const (
	// HardStopExclusion marks a matched exclusion.
	HardStopExclusion HardStopKind = "exclusion"

	// HardStopPassOutcome marks a gate whose pass_outcome ended evaluation.
	HardStopPassOutcome HardStopKind = "pass_outcome"
)

// HardStop cites the rule and evidence that ended evaluation early.
type HardStop struct {
	Kind         HardStopKind     `json:"kind"`
	RuleID       string           `json:"rule_id"`
	Reason       string           `json:"reason"`
	Evidence     []facts.Evidence `json:"evidence"`
	MatchDetails []MatchDetail    `json:"match_details,omitempty"`
}

// Result is the outcome of evaluating one ruleset against one patient.
// It is created once per evaluation and never mutated afterwards.
type Result struct {
	RulesetID string     `json:"ruleset_id"`
	Name      string     `json:"name"`
	Version   string     `json:"version,omitempty"`
	Family    ast.Family `json:"family"`
	Year      int        `json:"year,omitempty"`
	PatientID string     `json:"patient_id,omitempty"`

	Outcome ast.Outcome `json:"outcome"`

	// GateTrace has one entry per gate actually evaluated, in declared order.
	GateTrace []*GateResult `json:"gate_trace"`
	HardStop  *HardStop     `json:"hard_stop,omitempty"`
	Warnings  []string      `json:"warnings"`

	// Error is set only when Outcome is ERROR.
	Error string `json:"error,omitempty"`
}

// FailedGate returns the required gate that halted evaluation, or nil when
// evaluation was not halted by a failing gate.
func (r *Result) FailedGate() *GateResult {
	if len(r.GateTrace) == 0 {
		return nil
	}
	last := r.GateTrace[len(r.GateTrace)-1]
	if last.Passed || !last.Required {
		return nil
	}
	return last
}

// HasRequiredEvidence reports whether any required gate passed with evidence.
func (r *Result) HasRequiredEvidence() bool {
	for _, g := range r.GateTrace {
		if g.Required && g.Passed && len(g.Evidence) > 0 {
			return true
		}
	}
	return false
}

// splitHits separates hits into capped evidence and detail lists.
func splitHits(hits []Hit, limit int) ([]facts.Evidence, []MatchDetail) {
	if limit >= 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	evidence := make([]facts.Evidence, 0, len(hits))
	details := make([]MatchDetail, 0, len(hits))
	for _, h := range hits {
		evidence = append(evidence, h.Evidence)
		details = append(details, h.Detail)
	}
	return evidence, details
}

// hitSet accumulates hits in first-seen order, de-duplicated by block.
type hitSet struct {
	seen map[int]bool
	hits []Hit
}

func (s *hitSet) add(hits ...Hit) {
	if s.seen == nil {
		s.seen = make(map[int]bool)
	}
	for _, h := range hits {
		if s.seen[h.Index] {
			continue
		}
		s.seen[h.Index] = true
		s.hits = append(s.hits, h)
	}
}

func (s *hitSet) len() int {
	return len(s.hits)
}

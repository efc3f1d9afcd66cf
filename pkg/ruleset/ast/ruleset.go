package ast

import (
	"sort"

	"github.com/Netrion-29/Netrion-cerebralos/pkg/patterns"
)

// EvaluationMode controls whether a ruleset is run through the gate sequencer.
type EvaluationMode string

const (
	// ModeEvaluable rulesets are evaluated gate by gate.
	ModeEvaluable EvaluationMode = "EVALUABLE"

	// ModeContextOnly rulesets carry reference material only and are never evaluated.
	ModeContextOnly EvaluationMode = "CONTEXT_ONLY"
)

// Ruleset is a parsed, immutable compliance rule: exclusions evaluated first,
// then gates in declared order.
type Ruleset struct {
	ID          string
	Name        string
	Version     string
	Family      Family
	Year        int
	Mode        EvaluationMode
	Description string

	Exclusions []*Exclusion
	Gates      []*Gate

	SourceFile string
	Location   Location
}

// GetGate returns the gate with the given ID, or nil if not found.
func (r *Ruleset) GetGate(id string) *Gate {
	for _, g := range r.Gates {
		if g.ID == id {
			return g
		}
	}
	return nil
}

// RequiredGateCount returns the number of gates marked required.
func (r *Ruleset) RequiredGateCount() int {
	n := 0
	for _, g := range r.Gates {
		if g.Required {
			n++
		}
	}
	return n
}

// IsContextOnly reports whether the ruleset bypasses evaluation.
func (r *Ruleset) IsContextOnly() bool {
	return r.Mode == ModeContextOnly
}

// PatternKeys returns every pattern key referenced by the ruleset, without
// source suffixes, sorted and de-duplicated. Reference conditions are
// included because they resolve to pattern keys when the library defines them.
func (r *Ruleset) PatternKeys() []string {
	seen := make(map[string]bool)
	add := func(refs ...string) {
		for _, ref := range refs {
			if k := patterns.ParseRef(ref).Key; k != "" {
				seen[k] = true
			}
		}
	}
	addConds := func(conds []*Condition) {
		for _, c := range conds {
			if c.Type == ConditionTemporal || c.Type == ConditionReference {
				add(c.Ref)
			}
		}
	}

	for _, ex := range r.Exclusions {
		add(ex.QueryKeys...)
		add(ex.ContextKeys...)
	}
	for _, g := range r.Gates {
		add(g.QueryKeys...)
		add(g.NoiseKeys...)
		addConds(g.Conditions)
		addConds(g.ExclusionConditions)
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

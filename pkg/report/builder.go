package report

import (
	"github.com/Netrion-29/Netrion-cerebralos/pkg/facts"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/patterns"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/policy/engine"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/ruleset/ast"
)

// Builder builds reports. It is safe for concurrent use.
type Builder struct {
	matcher *engine.Matcher
}

// NewBuilder creates a builder resolving near-miss keys against lib.
func NewBuilder(lib *patterns.Library) *Builder {
	return &Builder{matcher: engine.NewMatcher(lib, 0)}
}

// Build creates the report for result. rs supplies the gate definitions for
// searched_for and the near-miss keys; contract bounds the near-miss list
// and patient supplies its evidence. A nil contract uses the family default
// and a nil patient yields no near-miss evidence.
func (b *Builder) Build(result *engine.Result, rs *ast.Ruleset, contract *ast.Contract, patient *facts.PatientFacts) *Report {
	r := &Report{
		RulesetID:        result.RulesetID,
		Name:             result.Name,
		Version:          result.Version,
		Family:           result.Family,
		Year:             result.Year,
		PatientID:        result.PatientID,
		Outcome:          result.Outcome,
		Summary:          Summary(result),
		SearchedFor:      []SearchEntry{},
		NearMissEvidence: []EvidenceItem{},
		StepTrace:        make([]Step, 0, len(result.GateTrace)),
		Warnings:         append([]string{}, result.Warnings...),
		Error:            result.Error,
	}

	if hs := result.HardStop; hs != nil {
		r.HardStop = &HardStop{
			Kind:     hs.Kind,
			RuleID:   hs.RuleID,
			Reason:   hs.Reason,
			Evidence: newEvidenceItems(hs.Evidence),
		}
	}

	for _, g := range result.GateTrace {
		step := Step{
			GateID:       g.GateID,
			Kind:         g.Kind,
			Required:     g.Required,
			Passed:       g.Passed,
			Reason:       g.Reason,
			Evidence:     newEvidenceItems(g.Evidence),
			MatchDetails: g.MatchDetails,
			MissingData:  g.MissingData,
		}
		if rs != nil {
			if def := rs.GetGate(g.GateID); def != nil {
				step.RequirementType = def.RequirementType
			}
		}
		r.StepTrace = append(r.StepTrace, step)
	}

	if rs == nil {
		return r
	}

	r.SearchedFor = searchedFor(result, rs)

	if contract == nil {
		contract = ast.DefaultContract(rs.Family)
	}
	if failed := result.FailedGate(); failed != nil && patient != nil {
		if def := rs.GetGate(failed.GateID); def != nil {
			r.NearMissEvidence = b.nearMiss(def, patient, contract.Cap())
		}
	}

	return r
}

// searchedFor lists the keys of every evaluated gate, preceded by the
// exclusion that halted evaluation, if any.
func searchedFor(result *engine.Result, rs *ast.Ruleset) []SearchEntry {
	entries := []SearchEntry{}

	if hs := result.HardStop; hs != nil && hs.Kind == engine.HardStopExclusion {
		for _, ex := range rs.Exclusions {
			if ex.RuleID == hs.RuleID {
				entries = append(entries, SearchEntry{
					GateID:      ex.RuleID,
					QueryKeys:   nonNil(ex.QueryKeys),
					ExcludeKeys: []string{},
					ContextKeys: ex.ContextKeys,
				})
				break
			}
		}
	}

	for _, g := range result.GateTrace {
		entry := SearchEntry{GateID: g.GateID, QueryKeys: []string{}, ExcludeKeys: []string{}}
		if def := rs.GetGate(g.GateID); def != nil {
			entry.QueryKeys = gateKeys(def)
			entry.ExcludeKeys = nonNil(def.NoiseKeys)
		}
		entries = append(entries, entry)
	}

	return entries
}

// gateKeys returns the pattern references a gate searches: its query keys,
// or for condition-list gates the temporal and reference conditions.
func gateKeys(g *ast.Gate) []string {
	if !g.Kind.IsProtocolKind() {
		return nonNil(g.QueryKeys)
	}
	keys := []string{}
	for _, c := range g.Conditions {
		if c.Type == ast.ConditionTemporal || c.Type == ast.ConditionReference {
			keys = append(keys, c.Ref)
		}
	}
	return keys
}

// nearMiss collects blocks that match the gate's noise keys, then its query
// keys, on the same line and without negation, historical or window
// filtering. Blocks are listed once, in key order then evidence order.
func (b *Builder) nearMiss(g *ast.Gate, patient *facts.PatientFacts, limit int) []EvidenceItem {
	var keys []string
	seenKey := make(map[string]bool)
	for _, k := range append(append([]string{}, g.NoiseKeys...), gateKeys(g)...) {
		if !seenKey[k] {
			seenKey[k] = true
			keys = append(keys, k)
		}
	}

	near := []EvidenceItem{}
	seenBlock := make(map[int]bool)
	for _, key := range keys {
		ref := patterns.ParseRef(key)
		for i, ev := range patient.Evidence {
			if seenBlock[i] || !ref.Allows(ev.SourceType) {
				continue
			}
			if !b.matcher.LineMatches(ev.Text, key, false) {
				continue
			}
			seenBlock[i] = true
			near = append(near, newEvidenceItem(ev))
			if len(near) >= limit {
				return near
			}
		}
	}
	return near
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

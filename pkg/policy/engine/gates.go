package engine

import (
	"fmt"
	"strings"

	"github.com/Netrion-29/Netrion-cerebralos/pkg/ruleset/ast"
)

// queryHits matches every query key of g and returns the de-duplicated hits
// together with the keys the library does not define.
func (ev *evaluation) queryHits(g *ast.Gate, opts MatchOptions) (hitSet, []string) {
	var set hitSet
	var unresolved []string
	opts.Sources = g.AllowedSources
	for _, key := range g.QueryKeys {
		if !ev.engine.matcher.Resolves(key) {
			unresolved = append(unresolved, key)
			continue
		}
		set.add(ev.engine.matcher.MatchWithDetails(ev.patient, key, opts)...)
	}
	return set, unresolved
}

// evidenceAny passes when at least MinCount distinct blocks match any query
// key. It also serves requires_treatment_any, which differs only in wording.
func (ev *evaluation) evidenceAny(g *ast.Gate, opts MatchOptions) *GateResult {
	gr := newGateResult(g)
	set, unresolved := ev.queryHits(g, opts)
	ev.attach(gr, set.hits)

	minCount := g.MinCount
	if minCount < 1 {
		minCount = 1
	}
	treatment := g.Kind == ast.GateRequiresTreatmentAny
	if set.len() >= minCount {
		gr.Passed = true
		gr.Reason = "Evidence found."
		if treatment {
			gr.Reason = "Treatment evidence found."
		}
		return gr
	}

	switch {
	case g.FailReason != "":
		gr.Reason = g.FailReason
	case treatment:
		gr.Reason = "Required treatment not found."
	default:
		gr.Reason = "Required evidence not found."
	}
	if len(unresolved) > 0 {
		gr.Reason += fmt.Sprintf(" (undefined pattern keys: %s)", strings.Join(unresolved, ", "))
	}
	return gr
}

// timingAfterArrival passes when a matching block is timestamped strictly
// after the patient's arrival. A block whose zone disagrees with arrival's
// has unknown timing.
func (ev *evaluation) timingAfterArrival(g *ast.Gate, opts MatchOptions) *GateResult {
	gr := newGateResult(g)
	set, unresolved := ev.queryHits(g, opts)
	if set.len() == 0 {
		gr.Reason = "No onset evidence found."
		if len(unresolved) > 0 {
			gr.Reason += fmt.Sprintf(" (undefined pattern keys: %s)", strings.Join(unresolved, ", "))
		}
		return gr
	}

	arrival, arrivalErr := ev.patient.Arrival(g.ArrivalField)
	var after, unknown []Hit
	for _, h := range set.hits {
		ts, err := h.Evidence.Time()
		if arrivalErr == nil && err == nil && ts.Comparable(arrival) && ts.After(arrival.Time) {
			after = append(after, h)
		} else {
			unknown = append(unknown, h)
		}
	}

	if len(after) > 0 {
		gr.Passed = true
		gr.Reason = "Onset evidence timestamped after arrival."
		ev.attach(gr, after)
		return gr
	}

	ev.attach(gr, unknown)
	if arrivalErr != nil {
		gr.MissingData = []string{arrivalField(g)}
	}
	switch {
	case g.TimestampRequired && g.FailReason != "":
		gr.Reason = g.FailReason
	case g.TimestampRequired:
		gr.Reason = "Cannot prove timing after arrival."
	default:
		gr.Reason = "Timing not proven after arrival."
	}
	return gr
}

// exclusion returns a hard stop when ex matches. When require_context_keys
// are declared, a block must also match one of them to count.
func (ev *evaluation) exclusion(ex *ast.Exclusion, opts MatchOptions) *HardStop {
	opts.Sources = ex.AllowedSources
	opts.MaxHits = ev.engine.config.ExclusionMaxHits
	for _, key := range ex.QueryKeys {
		hits := ev.engine.matcher.MatchWithDetails(ev.patient, key, opts)
		if len(hits) == 0 {
			continue
		}
		if len(ex.ContextKeys) > 0 {
			hits = ev.withContext(hits, ex.ContextKeys)
			if len(hits) == 0 {
				continue
			}
		}

		reason := ex.Reason
		if reason == "" {
			reason = fmt.Sprintf("Excluded by rule %s", ex.RuleID)
		}
		evidence, details := splitHits(hits, ev.contract.Cap())
		return &HardStop{
			Kind:         HardStopExclusion,
			RuleID:       ex.RuleID,
			Reason:       reason,
			Evidence:     evidence,
			MatchDetails: details,
		}
	}
	return nil
}

func (ev *evaluation) withContext(hits []Hit, contextKeys []string) []Hit {
	var kept []Hit
	for _, h := range hits {
		for _, ck := range contextKeys {
			if ev.engine.matcher.LineMatches(h.Evidence.Text, ck, false) {
				kept = append(kept, h)
				break
			}
		}
	}
	return kept
}

// noiseFilter returns a Reject function dropping blocks that match any of
// the gate's noise keys, or nil when the gate declares none.
func (ev *evaluation) noiseFilter(keys []string) func(string) bool {
	if len(keys) == 0 {
		return nil
	}
	m := ev.engine.matcher
	return func(text string) bool {
		for _, k := range keys {
			if m.LineMatches(text, k, false) {
				return true
			}
		}
		return false
	}
}

package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Netrion-29/Netrion-cerebralos/pkg/ruleset/ast"
)

// maxMissingLabel bounds the condition text recorded in MissingData.
const maxMissingLabel = 50

// maxTimingFailures bounds the timing details joined into a reason.
const maxTimingFailures = 3

func newGateResult(g *ast.Gate) *GateResult {
	return &GateResult{
		GateID:   g.ID,
		Kind:     g.Kind,
		Required: g.Required,
	}
}

// attach sets the capped evidence and details of hits on gr.
func (ev *evaluation) attach(gr *GateResult, hits []Hit) {
	gr.Evidence, gr.MatchDetails = splitHits(hits, ev.contract.Cap())
}

// trigger decides whether a protocol applies. The first condition is the
// primary trigger: if it is not met the protocol does not apply. Later
// conditions that are not documented leave the decision indeterminate.
func (ev *evaluation) trigger(g *ast.Gate, opts MatchOptions) *GateResult {
	gr := newGateResult(g)
	var set hitSet
	var missing []string

	for i, c := range g.Conditions {
		cr := ev.condition(g, c, opts)
		if cr.unmet {
			gr.Reason = fmt.Sprintf("NOT_TRIGGERED: %s does not meet threshold (%s %s)",
				c.Parameter, c.Operator, formatValue(c.Value))
			gr.proposed = ast.OutcomeNotTriggered
			return gr
		}
		if cr.found() {
			set.add(cr.hits...)
			continue
		}
		if i == 0 {
			gr.Reason = "NOT_TRIGGERED: Primary trigger criteria not met"
			gr.MissingData = []string{truncate(c.Raw, maxMissingLabel)}
			gr.proposed = ast.OutcomeNotTriggered
			return gr
		}
		missing = append(missing, truncate(c.Raw, maxMissingLabel))
	}

	switch {
	case len(missing) > 0:
		gr.Reason = fmt.Sprintf("INDETERMINATE: Missing trigger data (%d conditions not documented)", len(missing))
		gr.MissingData = missing
		gr.proposed = ast.OutcomeIndeterminate
		ev.attach(gr, set.hits)
	case set.len() == 0:
		gr.Reason = "NOT_TRIGGERED: Trigger criteria not met"
		gr.proposed = ast.OutcomeNotTriggered
	default:
		gr.Passed = true
		gr.Reason = "Trigger criteria satisfied"
		ev.attach(gr, set.hits)
	}
	return gr
}

// dataElements requires every listed element to be documented. An element
// documented as an explicit negative still counts as addressed.
func (ev *evaluation) dataElements(g *ast.Gate, opts MatchOptions) *GateResult {
	gr := newGateResult(g)
	var set hitSet
	var missing []string

	for _, c := range g.Conditions {
		cr := ev.condition(g, c, opts)
		if cr.found() {
			set.add(cr.hits...)
			continue
		}
		missing = append(missing, truncate(c.Raw, maxMissingLabel))
	}

	ev.attach(gr, set.hits)
	if len(missing) > 0 {
		gr.Reason = fmt.Sprintf("INDETERMINATE: Missing required data elements (%d elements not documented)", len(missing))
		gr.MissingData = missing
		gr.proposed = ast.OutcomeIndeterminate
		return gr
	}
	gr.Passed = true
	gr.Reason = "All required data elements present"
	return gr
}

// timingCritical checks time-bound actions. Any documented condition
// satisfies the gate unless one of its exclusion conditions is matched.
func (ev *evaluation) timingCritical(g *ast.Gate, opts MatchOptions) *GateResult {
	gr := newGateResult(g)
	var set hitSet
	var failures []string

	for _, c := range g.Conditions {
		cr := ev.condition(g, c, opts)
		set.add(cr.hits...)
		if !cr.found() && cr.failure != "" {
			failures = append(failures, cr.failure)
		}
	}

	if set.len() == 0 {
		if len(failures) > 0 {
			shown := failures
			if len(shown) > maxTimingFailures {
				shown = shown[:maxTimingFailures]
			}
			gr.Reason = "NON_COMPLIANT: Timing requirements not met - " + strings.Join(shown, "; ")
			gr.MissingData = failures
		} else {
			gr.Reason = "NON_COMPLIANT: Timing-critical elements not documented"
		}
		gr.proposed = ast.OutcomeNonCompliant
		return gr
	}

	for _, c := range g.ExclusionConditions {
		if c.Type != ast.ConditionReference || !ev.engine.matcher.Resolves(c.Ref) {
			continue
		}
		xopts := ev.refOptions(c.Ref, g, opts)
		xopts.MaxHits = ev.engine.config.MaxHitsPerKey
		xopts.Reject = nil
		hits := ev.engine.matcher.MatchWithDetails(ev.patient, c.Ref, xopts)
		if len(hits) == 0 {
			continue
		}
		gr.Reason = fmt.Sprintf("NON_COMPLIANT: Timing violation detected (%s)", c.Raw)
		gr.proposed = ast.OutcomeNonCompliant
		ev.attach(gr, hits)
		return gr
	}

	gr.Passed = true
	gr.Reason = "Timing requirements met"
	ev.attach(gr, set.hits)
	return gr
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

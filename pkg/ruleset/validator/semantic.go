package validator

import (
	"github.com/Netrion-29/Netrion-cerebralos/pkg/patterns"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/policy/engine"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/ruleset/ast"
	rsErrors "github.com/Netrion-29/Netrion-cerebralos/pkg/ruleset/errors"
)

func (v *Validator) validateSemantics(p *pass) {
	rs := p.rs
	family := rs.Family
	contract := v.contracts[family]

	if len(rs.Exclusions) > 0 && !family.Accepts(ast.OutcomeExcluded) {
		p.errorf(rsErrors.ErrorTypeSemantic, rs.Exclusions[0].Location,
			"Ruleset family %q has no EXCLUDED outcome; exclusions are not supported", family)
	}

	checkOutcome := func(g *ast.Gate, field string, o ast.Outcome) {
		if o == "" {
			return
		}
		if o == ast.OutcomeError || !family.Accepts(o) {
			p.errorf(rsErrors.ErrorTypeSemantic, g.Location,
				"Gate %q %s %q is not a %s outcome", g.ID, field, o, family)
			return
		}
		if contract != nil && !contract.IsAllowed(o) {
			p.warnf(g.Location, "Gate %q %s %q is not allowed by the %s contract and resolves to %q",
				g.ID, field, o, family, contract.Resolve(o))
		}
	}

	for i, g := range rs.Gates {
		checkOutcome(g, "fail_outcome", g.FailOutcome)
		checkOutcome(g, "pass_outcome", g.PassOutcome)

		switch {
		case family == ast.FamilyProtocol && i == 0 && g.Kind != ast.GateTriggerCriteria:
			p.warnf(g.Location, "First protocol gate %q is %s, not trigger_criteria; applicability is never checked", g.ID, g.Kind)
		case family == ast.FamilyEvent && g.Kind.IsProtocolKind():
			p.warnf(g.Location, "Gate %q uses protocol kind %s in an event ruleset", g.ID, g.Kind)
		}

		for _, c := range g.Conditions {
			if c.Type == ast.ConditionThreshold && !engine.IsThresholdParameter(c.Parameter) {
				p.warnf(g.Location, "Gate %q threshold parameter %q has no extraction rules and never matches", g.ID, c.Parameter)
			}
		}
	}

	if v.library != nil {
		v.checkPatternKeys(p)
	}
}

// checkPatternKeys warns about query, noise and context keys that the library
// does not define. Reference conditions are not checked because they fall
// back to keyword matching.
func (v *Validator) checkPatternKeys(p *pass) {
	check := func(owner string, loc ast.Location, refs []string) {
		for _, ref := range refs {
			if key := patterns.ParseRef(ref).Key; !v.library.Has(key) {
				p.warnf(loc, "%q references undefined pattern key %q", owner, key)
			}
		}
	}

	for _, ex := range p.rs.Exclusions {
		check(ex.RuleID, ex.Location, ex.QueryKeys)
		check(ex.RuleID, ex.Location, ex.ContextKeys)
	}
	for _, g := range p.rs.Gates {
		check(g.ID, g.Location, g.QueryKeys)
		check(g.ID, g.Location, g.NoiseKeys)
		for _, c := range g.Conditions {
			if c.Type == ast.ConditionTemporal {
				check(g.ID, g.Location, []string{c.Ref})
			}
		}
	}
}

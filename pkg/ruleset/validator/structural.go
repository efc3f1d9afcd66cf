package validator

import (
	"github.com/Netrion-29/Netrion-cerebralos/pkg/facts"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/ruleset/ast"
	rsErrors "github.com/Netrion-29/Netrion-cerebralos/pkg/ruleset/errors"
)

func validateStructure(p *pass) {
	rs := p.rs

	if !rs.Family.Valid() {
		p.errorf(rsErrors.ErrorTypeStructural, rs.Location, "Unknown rule family %q", rs.Family)
	}
	if len(rs.Gates) == 0 && !rs.IsContextOnly() {
		p.errorf(rsErrors.ErrorTypeStructural, rs.Location,
			"Ruleset %q has no gates; declare gates or set evaluation_mode: CONTEXT_ONLY", rs.ID)
	}

	seen := make(map[string]ast.Location)
	checkID := func(id string, loc ast.Location) {
		if prev, dup := seen[id]; dup {
			p.errorf(rsErrors.ErrorTypeStructural, loc, "Duplicate identifier %q (first declared at %s)", id, prev)
			return
		}
		seen[id] = loc
	}

	for _, ex := range rs.Exclusions {
		checkID(ex.RuleID, ex.Location)
		checkSources(p, ex.RuleID, "allowed_sources", ex.AllowedSources, ex.Location)
		checkMatching(p, ex.RuleID, ex.Matching, ex.Location)
	}

	for _, g := range rs.Gates {
		checkID(g.ID, g.Location)
		checkSources(p, g.ID, "allowed_sources", g.AllowedSources, g.Location)
		checkSources(p, g.ID, "acceptable_evidence", g.AcceptableEvidence, g.Location)
		checkMatching(p, g.ID, g.Matching, g.Location)

		if g.Kind.IsProtocolKind() {
			if len(g.Conditions) == 0 {
				p.errorf(rsErrors.ErrorTypeStructural, g.Location,
					"Gate %q (%s) has no conditions", g.ID, g.Kind)
			}
			continue
		}

		if len(g.QueryKeys) == 0 {
			p.errorf(rsErrors.ErrorTypeStructural, g.Location,
				"Gate %q (%s) has no query_keys", g.ID, g.Kind)
		}
		if g.MinCount < 1 {
			p.errorf(rsErrors.ErrorTypeStructural, g.Location,
				"Gate %q min_count must be at least 1, got %d", g.ID, g.MinCount)
		}
	}
}

func checkSources(p *pass, owner, field string, sources []facts.SourceType, loc ast.Location) {
	for _, st := range sources {
		if !st.IsKnown() {
			p.errorf(rsErrors.ErrorTypeStructural, loc, "%q %s lists unknown source type %q", owner, field, st)
		}
	}
}

func checkMatching(p *pass, owner string, m ast.MatchFlags, loc ast.Location) {
	if m.AdmissionWindowHours != nil && *m.AdmissionWindowHours < 0 {
		p.errorf(rsErrors.ErrorTypeStructural, loc,
			"%q admission_window_hours must not be negative", owner)
	}
}

package engine

import (
	"regexp"

	"github.com/Netrion-29/Netrion-cerebralos/pkg/facts"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/patterns"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/ruleset/ast"
)

// conditionResult is the outcome of one entry of a condition list.
type conditionResult struct {
	hits []Hit

	// unmet marks a threshold whose value was documented but failed.
	unmet bool

	// failure carries the detail of a failed temporal condition.
	failure string

	// keyword is set when the condition was resolved by substring search.
	keyword bool
}

func (r conditionResult) found() bool {
	return len(r.hits) > 0
}

// condition evaluates c as a numeric threshold, a temporal window, a pattern
// key, or, when the library has no such key, a keyword search.
func (ev *evaluation) condition(g *ast.Gate, c *ast.Condition, opts MatchOptions) conditionResult {
	switch c.Type {
	case ast.ConditionThreshold:
		tr := ev.threshold(c, g.AcceptableEvidence)
		return conditionResult{hits: tr.hits, unmet: tr.unmet()}

	case ast.ConditionTemporal:
		tr := ev.temporal(g, c, ev.refOptions(c.Ref, g, opts))
		return conditionResult{hits: tr.hits, failure: tr.failure}

	default:
		if ev.engine.matcher.Resolves(c.Ref) {
			hits := ev.engine.matcher.MatchWithDetails(ev.patient, c.Ref, ev.refOptions(c.Ref, g, opts))
			return conditionResult{hits: hits}
		}
		if h, ok := ev.keyword(c.Ref, g.AcceptableEvidence); ok {
			return conditionResult{hits: []Hit{h}, keyword: true}
		}
		return conditionResult{keyword: true}
	}
}

// refOptions applies the gate's acceptable evidence unless the reference
// carries its own "@SOURCE" restriction.
func (ev *evaluation) refOptions(ref string, g *ast.Gate, opts MatchOptions) MatchOptions {
	if len(patterns.ParseRef(ref).Sources) > 0 {
		opts.Sources = nil
	} else {
		opts.Sources = g.AcceptableEvidence
	}
	return opts
}

// keyword returns the first block containing the reference key as a
// case-insensitive substring.
func (ev *evaluation) keyword(raw string, acceptable []facts.SourceType) (Hit, bool) {
	ref := patterns.ParseRef(raw)
	if ref.Key == "" {
		return Hit{}, false
	}
	sources := acceptable
	if len(ref.Sources) > 0 {
		sources = ref.Sources
	}
	re := regexp.MustCompile("(?i)" + regexp.QuoteMeta(ref.Key))
	for i, e := range ev.patient.Evidence {
		if !sourceAllowed(sources, e.SourceType) {
			continue
		}
		loc := re.FindStringIndex(e.Text)
		if loc == nil {
			continue
		}
		return Hit{
			Index:    i,
			Evidence: e,
			Detail: MatchDetail{
				PatternKey:  ref.Key,
				MatchedText: e.Text[loc[0]:loc[1]],
				Context:     snippet(e.Text, loc[0], loc[1], ev.engine.config.ContextChars),
			},
		}, true
	}
	return Hit{}, false
}

// truncate returns at most n runes of s.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

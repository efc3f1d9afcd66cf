package batch

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/Netrion-29/Netrion-cerebralos/pkg/ruleset/ast"
)

// Summary aggregates a batch.
type Summary struct {
	Total     int                            `json:"total"`
	Errors    int                            `json:"errors"`
	ByOutcome map[ast.Outcome]int            `json:"by_outcome"`
	ByRuleset map[string]map[ast.Outcome]int `json:"by_ruleset"`
	Duration  time.Duration                  `json:"duration"`
}

// Summarize counts outcomes overall and per ruleset. Duration is the sum of
// evaluation durations.
func Summarize(evals []Evaluation) *Summary {
	s := &Summary{
		ByOutcome: make(map[ast.Outcome]int),
		ByRuleset: make(map[string]map[ast.Outcome]int),
	}
	for _, ev := range evals {
		if ev.Result == nil {
			continue
		}
		s.Total++
		s.Duration += ev.Duration

		outcome := ev.Result.Outcome
		if outcome == ast.OutcomeError {
			s.Errors++
		}
		s.ByOutcome[outcome]++

		byRuleset, ok := s.ByRuleset[ev.RulesetID]
		if !ok {
			byRuleset = make(map[ast.Outcome]int)
			s.ByRuleset[ev.RulesetID] = byRuleset
		}
		byRuleset[outcome]++
	}
	return s
}

// WriteText writes the summary as an aligned table.
func (s *Summary) WriteText(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "evaluations: %d  errors: %d\n", s.Total, s.Errors); err != nil {
		return err
	}

	rulesetIDs := make([]string, 0, len(s.ByRuleset))
	for id := range s.ByRuleset {
		rulesetIDs = append(rulesetIDs, id)
	}
	sort.Strings(rulesetIDs)

	for _, id := range rulesetIDs {
		counts := s.ByRuleset[id]
		if _, err := fmt.Fprintf(w, "  %-32s", id); err != nil {
			return err
		}
		for _, o := range sortedOutcomes(counts) {
			if _, err := fmt.Fprintf(w, " %s=%d", o, counts[o]); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}

func sortedOutcomes(counts map[ast.Outcome]int) []ast.Outcome {
	out := make([]ast.Outcome, 0, len(counts))
	for o := range counts {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

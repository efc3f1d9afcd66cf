package engine

import (
	"fmt"

	"github.com/Netrion-29/Netrion-cerebralos/pkg/facts"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/ruleset/ast"
)

// temporalResult is the outcome of a temporal-window condition.
type temporalResult struct {
	hits []Hit

	// failure describes why no match qualified. Empty when hits is non-empty.
	failure string
}

// temporal accepts matches of c.Ref timestamped in [arrival, arrival+Within].
// Without a parseable arrival time the condition fails closed, and a block
// whose zone disagrees with arrival's is skipped.
func (ev *evaluation) temporal(g *ast.Gate, c *ast.Condition, opts MatchOptions) temporalResult {
	arrival, err := ev.patient.Arrival(g.ArrivalField)
	if err != nil {
		cerr := &ConditionError{GateID: g.ID, Condition: c.Raw, Cause: err}
		ev.logger.Debug("temporal condition fails closed", "error", cerr)
		return temporalResult{
			failure: fmt.Sprintf("%s: arrival time unavailable (required within %d %s of arrival)",
				c.Ref, c.WindowValue, c.WindowUnit),
		}
	}

	opts.AdmissionWindowHours = 0
	opts.MaxHits = Unlimited
	candidates := ev.engine.matcher.MatchWithDetails(ev.patient, c.Ref, opts)

	deadline := arrival.Add(c.Within)
	var hits []Hit
	for _, h := range candidates {
		ts, err := h.Evidence.Time()
		if err != nil || !ts.Comparable(arrival) {
			continue
		}
		if ts.Before(arrival.Time) || ts.After(deadline) {
			continue
		}
		hits = append(hits, h)
		if len(hits) >= ev.engine.config.MaxHitsPerKey {
			break
		}
	}
	if len(hits) > 0 {
		return temporalResult{hits: hits}
	}

	for _, h := range candidates {
		if h.Evidence.Timestamp == "" {
			continue
		}
		raw, _ := ev.patient.Fact(arrivalField(g))
		return temporalResult{
			failure: fmt.Sprintf("%s: evidence found at %s but required within %d %s of arrival (%s)",
				c.Ref, h.Evidence.Timestamp, c.WindowValue, c.WindowUnit, raw),
		}
	}
	return temporalResult{
		failure: fmt.Sprintf("%s: no evidence found (required within %d %s of arrival)",
			c.Ref, c.WindowValue, c.WindowUnit),
	}
}

func arrivalField(g *ast.Gate) string {
	if g.ArrivalField == "" {
		return facts.DefaultArrivalField
	}
	return g.ArrivalField
}

package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Netrion-29/Netrion-cerebralos/pkg/policy/engine"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/ruleset/ast"
)

// Attribute keys. Spans never carry patient identifiers.
const (
	AttrRunID       = "cerebral.batch.run_id"
	AttrPatients    = "cerebral.batch.patients"
	AttrRulesets    = "cerebral.batch.rulesets"
	AttrParallelism = "cerebral.batch.parallelism"
	AttrErrors      = "cerebral.batch.errors"

	AttrRulesetID  = "cerebral.ruleset.id"
	AttrFamily     = "cerebral.ruleset.family"
	AttrOutcome    = "cerebral.outcome"
	AttrGates      = "cerebral.gates.evaluated"
	AttrFailedGate = "cerebral.gates.failed"
	AttrHardStop   = "cerebral.hard_stop"
)

// BatchAttributes describes a batch run.
func BatchAttributes(runID string, patients, rulesets, parallelism int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrRunID, runID),
		attribute.Int(AttrPatients, patients),
		attribute.Int(AttrRulesets, rulesets),
		attribute.Int(AttrParallelism, parallelism),
	}
}

// SetResultAttributes records an evaluation outcome on span. An ERROR
// outcome sets the span status to Error.
func SetResultAttributes(span trace.Span, result *engine.Result) {
	if result == nil {
		return
	}
	span.SetAttributes(
		attribute.String(AttrRulesetID, result.RulesetID),
		attribute.String(AttrFamily, string(result.Family)),
		attribute.String(AttrOutcome, string(result.Outcome)),
		attribute.Int(AttrGates, len(result.GateTrace)),
	)
	if g := result.FailedGate(); g != nil {
		span.SetAttributes(attribute.String(AttrFailedGate, g.GateID))
	}
	if result.HardStop != nil {
		span.SetAttributes(attribute.String(AttrHardStop, result.HardStop.RuleID))
	}
	if result.Outcome == ast.OutcomeError {
		span.SetStatus(codes.Error, result.Error)
	}
}

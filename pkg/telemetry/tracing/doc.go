// Package tracing exports OpenTelemetry spans for batch evaluation.
//
// Each batch produces a "batch.run" span with one "batch.evaluate" child per
// (patient, ruleset) pair. Evaluation spans carry the ruleset, family,
// outcome and failing gate; they never carry patient identifiers.
//
// # Configuration
//
//	telemetry:
//	  tracing:
//	    enabled: true
//	    endpoint: localhost:4317
//	    insecure: true
//	    sampler: ratio
//	    sample_ratio: 0.1
//
// Spans are exported over OTLP gRPC. Sampling is parent-based, so a batch is
// either traced completely or not at all.
//
// # Usage
//
//	tracer, err := tracing.New(cfg.Telemetry.Tracing, version)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	runner.WithTracer(tracer)
package tracing

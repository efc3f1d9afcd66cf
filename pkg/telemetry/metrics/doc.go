// Package metrics provides Prometheus metrics for ruleset evaluation.
//
// # Metrics
//
//   - evaluations_total{family,ruleset_id,outcome}
//   - gate_results_total{ruleset_id,gate_id,passed}
//   - evaluation_duration_seconds{family}
//   - evaluation_errors_total{ruleset_id}
//   - hard_stops_total{ruleset_id,kind}
//
// All names are prefixed with the configured namespace and subsystem
// (cerebral_gates_ by default).
//
// # Usage
//
//	m := metrics.NewEvaluationMetrics(cfg.Namespace, cfg.Subsystem, nil)
//	m.Observe(result, elapsed)
//
//	// Batch runs export once at the end.
//	if err := m.WriteTextfile(cfg.TextfilePath); err != nil { ... }
//
// A nil *EvaluationMetrics is valid and records nothing, so callers can pass
// it through unconditionally when metrics are disabled.
//
// # Cardinality
//
// Gate IDs come from ruleset files. The gate counter is capped at 10,000
// unique ruleset/gate pairs; further pairs are dropped.
package metrics

// Package batch evaluates many patients against many rulesets.
//
// A Runner fans (patient, ruleset) pairs out to a bounded pool of
// goroutines and returns one Evaluation per pair in patient-major order,
// independent of scheduling. Every evaluation shares the run's UUID.
//
// A panic or nil result for one pair becomes an ERROR outcome for that pair
// only; the rest of the batch continues. Each evaluation is reported to the
// optional metrics observer and audit recorder as it completes. With a
// tracer set, the run gets a "batch.run" span and each pair a child
// "batch.evaluate" span.
//
//	runner, err := batch.NewRunner(eng, contracts, batch.DefaultConfig(), logger)
//	runner = runner.WithMetrics(m).WithRecorder(rec).WithTracer(tracer)
//	evals, err := runner.Run(ctx, patients, rulesets)
//	summary := batch.Summarize(evals)
package batch

package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/Netrion-29/Netrion-cerebralos/pkg/facts"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/policy/engine"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/ruleset/ast"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/telemetry/logging"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/telemetry/tracing"
)

// ErrNilResult is reported when an evaluator returns no result.
var ErrNilResult = errors.New("evaluator returned no result")

// Evaluation is the outcome of one (patient, ruleset) pair.
type Evaluation struct {
	RunID     string         `json:"run_id"`
	PatientID string         `json:"patient_id"`
	RulesetID string         `json:"ruleset_id"`
	Family    ast.Family     `json:"family"`
	Result    *engine.Result `json:"result"`
	Duration  time.Duration  `json:"duration"`
}

// Observer receives every completed evaluation. *metrics.EvaluationMetrics
// implements it.
type Observer interface {
	Observe(result *engine.Result, duration time.Duration)
}

// Observers fans each evaluation out to several observers. Nil entries are
// skipped.
type Observers []Observer

// Observe implements Observer.
func (o Observers) Observe(result *engine.Result, duration time.Duration) {
	for _, obs := range o {
		if obs != nil {
			obs.Observe(result, duration)
		}
	}
}

// Recorder persists completed evaluations. *recorder.Recorder implements it.
type Recorder interface {
	RecordResult(ctx context.Context, runID string, result *engine.Result, duration time.Duration) error
}

// Config contains batch runner settings.
type Config struct {
	// Parallelism is the number of concurrent evaluations.
	// Default: 4.
	Parallelism int

	// FailFast aborts the batch on the first recorder failure. Otherwise
	// recorder failures are logged and the batch continues.
	// Default: false.
	FailFast bool
}

// DefaultConfig returns the default batch configuration.
func DefaultConfig() *Config {
	return &Config{
		Parallelism: 4,
		FailFast:    false,
	}
}

// Validate validates the batch configuration.
func (c *Config) Validate() error {
	if c.Parallelism <= 0 {
		return fmt.Errorf("parallelism must be positive, got %d", c.Parallelism)
	}
	return nil
}

// Runner evaluates patient batches with bounded parallelism.
type Runner struct {
	evaluator engine.Evaluator
	contracts map[ast.Family]*ast.Contract
	config    *Config
	metrics   Observer
	recorder  Recorder
	tracer    *tracing.Tracer
	logger    *slog.Logger
}

// NewRunner creates a batch runner. contracts maps a family to its contract;
// families without an entry use ast.DefaultContract.
func NewRunner(evaluator engine.Evaluator, contracts map[ast.Family]*ast.Contract, config *Config, logger *slog.Logger) (*Runner, error) {
	if evaluator == nil {
		return nil, fmt.Errorf("evaluator cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	cfg := *config
	return &Runner{
		evaluator: evaluator,
		contracts: contracts,
		config:    &cfg,
		logger:    logger.With("component", "batch"),
	}, nil
}

// WithMetrics sets the metrics observer.
func (r *Runner) WithMetrics(m Observer) *Runner {
	r.metrics = m
	return r
}

// WithRecorder sets the audit recorder.
func (r *Runner) WithRecorder(rec Recorder) *Runner {
	r.recorder = rec
	return r
}

// WithTracer sets the span tracer. A nil tracer disables spans.
func (r *Runner) WithTracer(t *tracing.Tracer) *Runner {
	r.tracer = t
	return r
}

// Run evaluates every ruleset against every patient. The returned slice has
// one entry per pair, ordered by patient then ruleset, and every entry has
// a result.
//
// The error is non-nil when ctx is cancelled or, with FailFast, when the
// recorder fails. Pairs not evaluated because of it carry ERROR results.
func (r *Runner) Run(ctx context.Context, patients []*facts.PatientFacts, rulesets []*ast.Ruleset) ([]Evaluation, error) {
	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	logger := logging.FromContext(ctx, r.logger)

	ctx, span := r.tracer.Start(ctx, "batch.run",
		tracing.BatchAttributes(runID, len(patients), len(rulesets), r.config.Parallelism)...)
	defer span.End()

	logger.Info("batch started",
		"patients", len(patients),
		"rulesets", len(rulesets),
		"parallelism", r.config.Parallelism,
	)
	start := time.Now()

	evals := make([]Evaluation, len(patients)*len(rulesets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.Parallelism)

	for pi, patient := range patients {
		for ri, rs := range rulesets {
			ev := &evals[pi*len(rulesets)+ri]
			ev.RunID = runID
			if patient != nil {
				ev.PatientID = patient.PatientID
			}
			if rs != nil {
				ev.RulesetID = rs.ID
				ev.Family = rs.Family
			}

			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					ev.Result = engine.NewErrorResult(rs, patient, err)
					return err
				}
				return r.evaluate(gctx, ev, rs, patient)
			})
		}
	}

	err := g.Wait()

	summary := Summarize(evals)
	span.SetAttributes(attribute.Int(tracing.AttrErrors, summary.Errors))
	tracing.SetStatus(span, err)
	logger.Info("batch complete",
		"evaluations", summary.Total,
		"errors", summary.Errors,
		"duration", time.Since(start),
	)
	if err != nil {
		logger.Warn("batch aborted", "error", err)
		return evals, fmt.Errorf("batch %s: %w", runID, err)
	}
	return evals, nil
}

// evaluate runs one pair, isolating panics to that pair.
func (r *Runner) evaluate(ctx context.Context, ev *Evaluation, rs *ast.Ruleset, patient *facts.PatientFacts) (err error) {
	start := time.Now()
	ctx, span := r.tracer.Start(ctx, "batch.evaluate")

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Debug("evaluation panic stack", "stack", string(debug.Stack()))
			ev.Result = engine.NewErrorResult(rs, patient, fmt.Errorf("evaluation panicked: %v", rec))
		}
		ev.Duration = time.Since(start)
		tracing.SetResultAttributes(span, ev.Result)
		span.End()
		err = r.report(ctx, ev)
	}()

	ev.Result = r.evaluator.Evaluate(rs, r.contractFor(rs), patient)
	if ev.Result == nil {
		ev.Result = engine.NewErrorResult(rs, patient, ErrNilResult)
	}
	return nil
}

// report sends a completed evaluation to the metrics observer and recorder.
func (r *Runner) report(ctx context.Context, ev *Evaluation) error {
	if ev.Result.Outcome == ast.OutcomeError {
		logging.FromContext(logging.WithPatientID(logging.WithRulesetID(ctx, ev.RulesetID), ev.PatientID), r.logger).
			Warn("evaluation error", "error", ev.Result.Error)
	}

	if r.metrics != nil {
		r.metrics.Observe(ev.Result, ev.Duration)
	}

	if r.recorder == nil {
		return nil
	}
	if err := r.recorder.RecordResult(ctx, ev.RunID, ev.Result, ev.Duration); err != nil {
		if r.config.FailFast {
			return fmt.Errorf("failed to record %s/%s: %w", ev.PatientID, ev.RulesetID, err)
		}
		r.logger.Warn("failed to record evaluation",
			"patient_id", ev.PatientID,
			"ruleset_id", ev.RulesetID,
			"error", err,
		)
	}
	return nil
}

func (r *Runner) contractFor(rs *ast.Ruleset) *ast.Contract {
	if rs == nil {
		return nil
	}
	if c, ok := r.contracts[rs.Family]; ok && c != nil {
		return c
	}
	return ast.DefaultContract(rs.Family)
}

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Netrion-29/Netrion-cerebralos/pkg/audit"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/audit/recorder"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/batch"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/cli"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/facts"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/report"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/ruleset/ast"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/ruleset/registry"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/telemetry/metrics"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/telemetry/tracing"
)

var batchFlags struct {
	rules      string
	patients   string
	parallel   int
	out        string
	format     string
	audit      bool
	metricsOut string
	patterns   []string
	contracts  []string
	failFast   bool
	progress   bool
	strict     bool
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Evaluate every ruleset against every patient",
	Long: `Evaluate every ruleset under a directory against every patient file under
another directory and print an outcome summary.

Evaluations run in parallel. A failure in one evaluation is reported as an
ERROR result for that pair and never stops the batch.

Examples:
  # Summary only
  cerebral batch --rules rules/ --patients patients/

  # Full reports, audit trail and a Prometheus textfile
  cerebral batch --rules rules/ --patients patients/ \
    --out reports.json --audit --metrics-out metrics.prom`,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVar(&batchFlags.rules, "rules", "", "ruleset directory (default from config)")
	batchCmd.Flags().StringVar(&batchFlags.patients, "patients", "", "patient file or directory (required)")
	batchCmd.Flags().IntVar(&batchFlags.parallel, "parallel", 0, "concurrent evaluations (default from config)")
	batchCmd.Flags().StringVarP(&batchFlags.out, "out", "o", "", "write full JSON reports to this file")
	batchCmd.Flags().StringVar(&batchFlags.format, "format", "text", "summary format: text, json")
	batchCmd.Flags().BoolVar(&batchFlags.audit, "audit", false, "record results in the audit trail")
	batchCmd.Flags().StringVar(&batchFlags.metricsOut, "metrics-out", "", "write metrics in Prometheus text format to this file")
	batchCmd.Flags().StringSliceVar(&batchFlags.patterns, "patterns", nil, "pattern file(s), replacing the configured ones")
	batchCmd.Flags().StringSliceVar(&batchFlags.contracts, "contract", nil, "contract file(s), family taken from the document")
	batchCmd.Flags().BoolVar(&batchFlags.failFast, "fail-fast", false, "abort the batch when the audit trail cannot be written")
	batchCmd.Flags().BoolVar(&batchFlags.progress, "progress", false, "show a progress bar on stderr")
	batchCmd.Flags().BoolVar(&batchFlags.strict, "strict", false, "treat ruleset warnings as errors")
}

func runBatch(cmd *cobra.Command, args []string) error {
	if batchFlags.patients == "" {
		return cli.NewConfigError("", "--patients must be specified")
	}
	format, err := cli.ParseFormat(batchFlags.format, cli.FormatText, cli.FormatJSON)
	if err != nil {
		return err
	}

	env, err := setup(batchFlags.patterns, batchFlags.contracts)
	if err != nil {
		return err
	}

	reg, err := loadRegistry(env, batchFlags.rules, batchFlags.strict)
	if err != nil {
		return err
	}
	patients, err := loadPatients(batchFlags.patients)
	if err != nil {
		return err
	}

	session, err := newBatchSession(env, batchFlags.parallel, batchFlags.failFast, batchFlags.audit)
	if err != nil {
		return err
	}
	defer session.Close()

	ctx, stop := cli.SetupSignalHandler(commandContext(cmd))
	defer stop()

	var progress io.Writer
	if batchFlags.progress {
		progress = os.Stderr
	}
	rulesets := reg.List()
	evals, runErr := session.run(ctx, patients, rulesets, progress)

	if err := writeReports(batchFlags.out, env, evals, patients, rulesets); err != nil {
		return err
	}

	metricsOut := batchFlags.metricsOut
	if metricsOut == "" {
		metricsOut = env.cfg.Telemetry.Metrics.TextfilePath
	}
	if metricsOut != "" && session.metrics != nil {
		if err := session.metrics.WriteTextfile(metricsOut); err != nil {
			return err
		}
	}

	if err := writeSummary(commandOutput(cmd), format, batch.Summarize(evals)); err != nil {
		return err
	}

	if runErr != nil {
		return cli.NewCommandError("batch", runErr)
	}
	return nil
}

// loadRegistry loads every ruleset under dir, or the configured rules
// directory when dir is empty.
func loadRegistry(env *environment, dir string, strict bool) (*registry.Registry, error) {
	if dir == "" {
		dir = env.cfg.Rules.Dir
	}
	reg := registry.New(env.validator(strict), env.logger)
	if err := reg.LoadDir(dir); err != nil {
		return nil, cli.NewInputError(dir, err)
	}
	snap := reg.Snapshot()
	for _, w := range snap.Warnings {
		env.logger.Warn("ruleset warning", "warning", w.String())
	}
	if snap.Len() == 0 {
		return nil, cli.NewInputError(dir, fmt.Errorf("no rulesets found"))
	}
	return reg, nil
}

// batchSession is a batch runner with its optional metrics, tracing and
// audit trail.
type batchSession struct {
	env      *environment
	runner   *batch.Runner
	metrics  *metrics.EvaluationMetrics
	tracer   *tracing.Tracer
	recorder *recorder.Recorder
	store    audit.Storage
}

// newBatchSession builds the runner. parallel overrides the configured
// parallelism when positive; the audit trail is opened when withAudit is
// set or auditing is enabled in the configuration.
func newBatchSession(env *environment, parallel int, failFast, withAudit bool) (*batchSession, error) {
	cfg := &batch.Config{
		Parallelism: env.cfg.Batch.Parallelism,
		FailFast:    env.cfg.Batch.FailFast || failFast,
	}
	if parallel > 0 {
		cfg.Parallelism = parallel
	}

	runner, err := batch.NewRunner(env.engine, env.contracts, cfg, env.logger)
	if err != nil {
		return nil, cli.NewConfigError("batch", err.Error())
	}

	tracer, err := tracing.New(env.cfg.Telemetry.Tracing, Version)
	if err != nil {
		return nil, cli.NewConfigError("telemetry.tracing", err.Error())
	}
	runner.WithTracer(tracer)

	s := &batchSession{
		env:     env,
		runner:  runner,
		metrics: env.metrics(),
		tracer:  tracer,
	}

	if withAudit || env.cfg.Audit.Enabled {
		store, err := openStorage(env.cfg.Audit, env.logger)
		if err != nil {
			return nil, err
		}
		s.store = store
		s.recorder = newRecorder(store, env.cfg.Audit, env.logger)
		runner.WithRecorder(s.recorder)
	}
	return s, nil
}

// run evaluates one batch. When progress is non-nil a progress bar is drawn
// to it.
func (s *batchSession) run(ctx context.Context, patients []*facts.PatientFacts, rulesets []*ast.Ruleset, progress io.Writer) ([]batch.Evaluation, error) {
	var observers batch.Observers
	if s.metrics != nil {
		observers = append(observers, s.metrics)
	}
	var bar *cli.BatchProgress
	if progress != nil {
		bar = cli.NewBatchProgress(progress, len(patients)*len(rulesets))
		observers = append(observers, bar)
	}
	s.runner.WithMetrics(observers)

	evals, err := s.runner.Run(ctx, patients, rulesets)
	if bar != nil {
		bar.Finish()
	}
	return evals, err
}

// Close flushes pending spans, drains the audit recorder and closes its
// storage.
func (s *batchSession) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.tracer.Shutdown(ctx); err != nil {
		s.env.logger.Warn("failed to flush spans", "error", err)
	}

	if s.recorder == nil {
		return nil
	}
	s.recorder.Close()
	written, failed, drifted := s.recorder.Stats()
	s.env.logger.Info("audit trail updated",
		"written", written,
		"failed", failed,
		"drifted", drifted,
	)
	return s.store.Close()
}

// writeReports builds a report for every evaluation and writes them as JSON
// to path. Nothing is written when path is empty.
func writeReports(path string, env *environment, evals []batch.Evaluation, patients []*facts.PatientFacts, rulesets []*ast.Ruleset) error {
	if path == "" || len(rulesets) == 0 {
		return nil
	}

	builder := report.NewBuilder(env.library)
	reports := make([]*report.Report, 0, len(evals))
	for i, ev := range evals {
		if ev.Result == nil {
			continue
		}
		// Run orders evaluations by patient, then ruleset.
		p := patients[i/len(rulesets)]
		rs := rulesets[i%len(rulesets)]
		reports = append(reports, builder.Build(ev.Result, rs, env.contractFor(rs.Family), p))
	}

	w, closeFn, err := createOutput(path, os.Stdout)
	if err != nil {
		return err
	}
	if err := report.WriteJSON(w, reports); err != nil {
		closeFn()
		return err
	}
	return closeFn()
}

func writeSummary(w io.Writer, format cli.OutputFormat, summary *batch.Summary) error {
	if format == cli.FormatJSON {
		return cli.WriteJSON(w, summary)
	}
	return summary.WriteText(w)
}

package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/Netrion-29/Netrion-cerebralos/pkg/batch"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/cli"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/ruleset/registry"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/telemetry/health"
)

var watchFlags struct {
	rules     string
	patients  string
	parallel  int
	debounce  time.Duration
	audit     bool
	patterns  []string
	contracts []string
	strict    bool
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-evaluate patients whenever a ruleset changes",
	Long: `Load the ruleset directory, evaluate every patient, then watch the directory
and re-run the batch after each successful reload.

A reload that fails to parse or validate is logged and the previous rulesets
stay in use. When telemetry.metrics.listen_address is set, metrics are
served at /metrics alongside the /healthz, /readyz and /version probes.
With auditing enabled the retention pruner runs on its configured schedule.

Examples:
  cerebral watch --rules rules/ --patients patients/
  CEREBRAL_TELEMETRY_METRICS_LISTEN_ADDRESS=:9090 cerebral watch --patients patients/ --audit`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(&watchFlags.rules, "rules", "", "ruleset directory (default from config)")
	watchCmd.Flags().StringVar(&watchFlags.patients, "patients", "", "patient file or directory (required)")
	watchCmd.Flags().IntVar(&watchFlags.parallel, "parallel", 0, "concurrent evaluations (default from config)")
	watchCmd.Flags().DurationVar(&watchFlags.debounce, "debounce", 0, "quiet period before reloading (default from config)")
	watchCmd.Flags().BoolVar(&watchFlags.audit, "audit", false, "record results in the audit trail")
	watchCmd.Flags().StringSliceVar(&watchFlags.patterns, "patterns", nil, "pattern file(s), replacing the configured ones")
	watchCmd.Flags().StringSliceVar(&watchFlags.contracts, "contract", nil, "contract file(s), family taken from the document")
	watchCmd.Flags().BoolVar(&watchFlags.strict, "strict", false, "treat ruleset warnings as errors")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if watchFlags.patients == "" {
		return cli.NewConfigError("", "--patients must be specified")
	}

	env, err := setup(watchFlags.patterns, watchFlags.contracts)
	if err != nil {
		return err
	}
	reg, err := loadRegistry(env, watchFlags.rules, watchFlags.strict)
	if err != nil {
		return err
	}
	patients, err := loadPatients(watchFlags.patients)
	if err != nil {
		return err
	}

	session, err := newBatchSession(env, watchFlags.parallel, false, watchFlags.audit)
	if err != nil {
		return err
	}
	defer session.Close()

	ctx, stop := cli.SetupSignalHandler(commandContext(cmd))
	defer stop()

	if addr := env.cfg.Telemetry.Metrics.ListenAddress; addr != "" {
		go serveHTTP(ctx, env, addr, newWatchMux(reg, session))
	}

	if session.store != nil {
		pruner := newPruner(session.store, env.cfg.Audit, env.logger)
		if err := pruner.Start(ctx); err != nil {
			return cli.NewConfigError("audit.retention.schedule", err.Error())
		}
		defer pruner.Stop()
	}

	out := commandOutput(cmd)
	evaluate := func(snap *registry.Snapshot) {
		evals, err := session.run(ctx, patients, snap.List(), nil)
		if err != nil {
			env.logger.Error("batch failed", "version", snap.Version, "error", err)
		}
		if err := batch.Summarize(evals).WriteText(out); err != nil {
			env.logger.Error("failed to write summary", "error", err)
		}
	}
	evaluate(reg.Snapshot())

	debounce := watchFlags.debounce
	if debounce <= 0 {
		debounce = env.cfg.Rules.Debounce
	}
	if err := reg.Watch(ctx, debounce, evaluate); err != nil {
		return cli.NewCommandError("watch", err)
	}
	return nil
}

// newWatchMux routes the metrics endpoint and the health probes. Readiness
// requires a non-empty ruleset snapshot and, when auditing, a reachable store.
func newWatchMux(reg *registry.Registry, session *batchSession) *http.ServeMux {
	checker := health.New(2 * time.Second)
	checker.Register("rulesets", health.RulesetsLoaded(reg))
	if session.store != nil {
		checker.Register("audit", health.AuditStorage(session.store))
	}

	mux := http.NewServeMux()
	if session.metrics != nil {
		mux.Handle("/metrics", session.metrics.Handler())
	}
	health.Mount(mux, checker, Version, GitCommit, BuildDate)
	return mux
}

// serveHTTP serves handler on addr until ctx is cancelled.
func serveHTTP(ctx context.Context, env *environment, addr string, handler http.Handler) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	env.logger.Info("serving metrics and health probes", "address", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		env.logger.Error("http server failed", "address", addr, "error", err)
	}
}

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Netrion-29/Netrion-cerebralos/pkg/audit"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/audit/recorder"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/audit/storage"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/cli"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/config"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/facts"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/patterns"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/policy/engine"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/ruleset/ast"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/ruleset/parser"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/ruleset/validator"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/telemetry/logging"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/telemetry/metrics"
)

// environment is the wiring shared by the evaluating commands.
type environment struct {
	cfg       *config.Config
	logger    *slog.Logger
	library   *patterns.Library
	contracts map[ast.Family]*ast.Contract
	engine    *engine.Engine
}

// setup loads the configuration, then the pattern library and contracts,
// and builds the engine. Non-empty patternFiles replace the configured
// pattern files; contractFiles are applied over the configured contracts.
func setup(patternFiles, contractFiles []string) (*environment, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	if len(patternFiles) > 0 {
		cfg.Rules.Patterns = patternFiles
	}
	lib, err := patterns.Load(cfg.Rules.Patterns...)
	if err != nil {
		return nil, cli.NewInputError(strings.Join(cfg.Rules.Patterns, ","), err)
	}
	for _, fb := range lib.Fallbacks() {
		logger.Warn("pattern is not a valid regular expression, matching it literally",
			"key", fb.Key,
			"pattern", fb.Pattern,
		)
	}

	contracts, err := loadContracts(cfg.Rules.Contracts, contractFiles)
	if err != nil {
		return nil, err
	}

	engineCfg := engine.DefaultEngineConfig().
		WithMaxHitsPerKey(cfg.Engine.MaxHitsPerKey).
		WithContextChars(cfg.Engine.ContextChars).
		WithExclusionMaxHits(cfg.Engine.ExclusionMaxHits).
		WithDefaultAdmissionWindowHours(cfg.Engine.DefaultAdmissionWindowHours)
	eng, err := engine.NewEngine(lib, engineCfg, logger)
	if err != nil {
		return nil, cli.NewConfigError("engine", err.Error())
	}

	return &environment{
		cfg:       cfg,
		logger:    logger,
		library:   lib,
		contracts: contracts,
		engine:    eng,
	}, nil
}

// loadConfig reads the --config file with environment overrides applied.
// --verbose forces debug logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		path := cfgFile
		if path == "" {
			path = "environment"
		}
		return nil, cli.NewInputError(path, err)
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*slog.Logger, error) {
	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging, os.Stderr))
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	return logger, nil
}

// loadContracts parses the configured contracts keyed by family, then the
// extra contract files, which take their family from the document.
func loadContracts(configured map[string]string, extra []string) (map[ast.Family]*ast.Contract, error) {
	p := parser.NewParser()
	contracts := make(map[ast.Family]*ast.Contract)

	families := make([]string, 0, len(configured))
	for family := range configured {
		families = append(families, family)
	}
	sort.Strings(families)

	for _, name := range families {
		path := configured[name]
		family, ok := ast.ParseFamily(name)
		if !ok {
			return nil, cli.NewConfigError("rules.contracts", fmt.Sprintf("unknown family %q", name))
		}
		c, err := p.ParseContract(path)
		if err != nil {
			return nil, cli.NewInputError(path, err)
		}
		if c.Family != family {
			return nil, cli.NewInputError(path, fmt.Errorf("contract family %q configured as %q", c.Family, family))
		}
		contracts[family] = c
	}

	for _, path := range extra {
		c, err := p.ParseContract(path)
		if err != nil {
			return nil, cli.NewInputError(path, err)
		}
		contracts[c.Family] = c
	}
	return contracts, nil
}

// contractFor returns the loaded contract for family, or the default one.
func (env *environment) contractFor(family ast.Family) *ast.Contract {
	if c, ok := env.contracts[family]; ok {
		return c
	}
	return ast.DefaultContract(family)
}

// validator builds a ruleset validator over the loaded library and contracts.
func (env *environment) validator(strict bool) *validator.Validator {
	list := make([]*ast.Contract, 0, len(env.contracts))
	for _, c := range env.contracts {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Family < list[j].Family })

	return validator.NewValidator().
		WithLibrary(env.library).
		WithContracts(list...).
		WithStrictMode(strict || env.cfg.Rules.Strict)
}

// metrics returns the evaluation metrics, or nil when they are disabled.
func (env *environment) metrics() *metrics.EvaluationMetrics {
	mc := env.cfg.Telemetry.Metrics
	if !mc.Enabled {
		return nil
	}
	return metrics.NewEvaluationMetrics(mc.Namespace, mc.Subsystem, nil)
}

// openStorage opens the configured audit backend. The caller closes it.
func openStorage(cfg config.AuditConfig, logger *slog.Logger) (audit.Storage, error) {
	switch cfg.Backend {
	case "memory":
		return storage.NewMemoryStorage(), nil
	case "sqlite":
		if dir := filepath.Dir(cfg.SQLite.Path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create audit directory: %w", err)
			}
		}
		store, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{
			Path:         cfg.SQLite.Path,
			Driver:       cfg.SQLite.Driver,
			MaxOpenConns: cfg.SQLite.MaxOpenConns,
			WALMode:      cfg.SQLite.WALMode,
			BusyTimeout:  cfg.SQLite.BusyTimeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, cli.NewConfigError("audit.backend", fmt.Sprintf("unsupported backend %q", cfg.Backend))
	}
}

// newRecorder creates an audit recorder over store from the configuration.
func newRecorder(store audit.Storage, cfg config.AuditConfig, logger *slog.Logger) *recorder.Recorder {
	return recorder.NewRecorder(store, &recorder.Config{
		Enabled:      true,
		AsyncBuffer:  cfg.Recorder.AsyncBuffer,
		WriteTimeout: cfg.Recorder.WriteTimeout,
		StoreResult:  cfg.Recorder.StoreResult,
		DetectDrift:  true,
	}, logger)
}

// patientExtensions are the file types loaded from a patient directory.
var patientExtensions = map[string]bool{".yaml": true, ".yml": true, ".json": true}

// loadPatients loads a single patient file, or every patient file directly
// under a directory in name order.
func loadPatients(path string) ([]*facts.PatientFacts, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, cli.NewInputError(path, err)
	}

	var files []string
	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, cli.NewInputError(path, err)
		}
		for _, e := range entries {
			if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
				continue
			}
			if patientExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
				files = append(files, filepath.Join(path, e.Name()))
			}
		}
		if len(files) == 0 {
			return nil, cli.NewInputError(path, fmt.Errorf("no patient files found"))
		}
	} else {
		files = []string{path}
	}

	patients := make([]*facts.PatientFacts, 0, len(files))
	for _, f := range files {
		p, err := facts.LoadPatient(f)
		if err != nil {
			return nil, cli.NewInputError(f, err)
		}
		patients = append(patients, p)
	}
	return patients, nil
}

// commandContext returns the command's context, or a background context for
// commands invoked directly.
func commandContext(cmd *cobra.Command) context.Context {
	if cmd != nil && cmd.Context() != nil {
		return cmd.Context()
	}
	return context.Background()
}

// commandOutput returns the command's output writer, or stdout.
func commandOutput(cmd *cobra.Command) io.Writer {
	if cmd != nil {
		return cmd.OutOrStdout()
	}
	return os.Stdout
}

// createOutput opens path for writing, or returns w unchanged when path is
// empty or "-". The returned close function is always non-nil.
func createOutput(path string, w io.Writer) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return w, func() error { return nil }, nil
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

package config

import "time"

// Default values for configuration fields.
const (
	// Rules defaults
	DefaultRulesDir      = "./rules"
	DefaultRulesWatch    = false
	DefaultRulesDebounce = 500 * time.Millisecond

	// Engine defaults
	DefaultMaxHitsPerKey        = 8
	DefaultContextChars         = 100
	DefaultAdmissionWindowHours = 24
	DefaultExclusionMaxHits     = 50

	// Batch defaults
	DefaultBatchParallelism = 4
	DefaultBatchFailFast    = false

	// Audit defaults
	DefaultAuditEnabled              = false
	DefaultAuditBackend              = "sqlite"
	DefaultAuditSQLitePath           = "data/audit.db"
	DefaultAuditSQLiteDriver         = "sqlite"
	DefaultAuditSQLiteWALMode        = true
	DefaultAuditSQLiteBusyTimeout    = 5 * time.Second
	DefaultAuditSQLiteMaxOpenConns   = 10
	DefaultAuditRecorderAsyncBuffer  = 1000
	DefaultAuditRecorderWriteTimeout = 5 * time.Second
	DefaultAuditRecorderStoreResult  = true
	DefaultAuditRetentionDays        = 365
	DefaultAuditRetentionSchedule    = "0 3 * * *"
	DefaultAuditRetentionMaxRecords  = int64(0)

	// Telemetry defaults
	DefaultLoggingLevel     = "info"
	DefaultLoggingFormat    = "console"
	DefaultLoggingRedactPHI = true
	DefaultMetricsEnabled   = true
	DefaultMetricsNamespace = "cerebral"
	DefaultMetricsSubsystem = "gates"
	DefaultTracingSampler   = "always"
	DefaultTracingEndpoint  = "localhost:4317"
	DefaultTracingTimeout   = 10 * time.Second
	DefaultTracingService   = "cerebral"
)

// Default returns a fully defaulted configuration. Boolean fields whose
// default is true are set here; LoadConfig decodes the file over this value
// so an explicit false in YAML is kept.
func Default() *Config {
	cfg := &Config{
		Rules: RulesConfig{
			Watch: DefaultRulesWatch,
		},
		Batch: BatchConfig{
			FailFast: DefaultBatchFailFast,
		},
		Audit: AuditConfig{
			Enabled: DefaultAuditEnabled,
			SQLite: SQLiteConfig{
				WALMode: DefaultAuditSQLiteWALMode,
			},
			Recorder: RecorderConfig{
				StoreResult: DefaultAuditRecorderStoreResult,
			},
			Retention: RetentionConfig{
				Days:     DefaultAuditRetentionDays,
				Schedule: DefaultAuditRetentionSchedule,
			},
		},
		Telemetry: TelemetryConfig{
			Logging: LoggingConfig{
				RedactPHI: DefaultLoggingRedactPHI,
			},
			Metrics: MetricsConfig{
				Enabled: DefaultMetricsEnabled,
			},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
//
// Retention days and schedule are not defaulted here: zero days and an
// empty schedule are meaningful (keep forever, no scheduler). Their
// defaults come from Default.
func ApplyDefaults(cfg *Config) {
	// Rules defaults
	if cfg.Rules.Dir == "" {
		cfg.Rules.Dir = DefaultRulesDir
	}
	if cfg.Rules.Debounce == 0 {
		cfg.Rules.Debounce = DefaultRulesDebounce
	}
	if cfg.Rules.Contracts == nil {
		cfg.Rules.Contracts = make(map[string]string)
	}

	// Engine defaults
	if cfg.Engine.MaxHitsPerKey == 0 {
		cfg.Engine.MaxHitsPerKey = DefaultMaxHitsPerKey
	}
	if cfg.Engine.ContextChars == 0 {
		cfg.Engine.ContextChars = DefaultContextChars
	}
	if cfg.Engine.DefaultAdmissionWindowHours == 0 {
		cfg.Engine.DefaultAdmissionWindowHours = DefaultAdmissionWindowHours
	}
	if cfg.Engine.ExclusionMaxHits == 0 {
		cfg.Engine.ExclusionMaxHits = DefaultExclusionMaxHits
	}

	// Batch defaults
	if cfg.Batch.Parallelism == 0 {
		cfg.Batch.Parallelism = DefaultBatchParallelism
	}

	// Audit defaults
	if cfg.Audit.Backend == "" {
		cfg.Audit.Backend = DefaultAuditBackend
	}
	if cfg.Audit.SQLite.Path == "" {
		cfg.Audit.SQLite.Path = DefaultAuditSQLitePath
	}
	if cfg.Audit.SQLite.Driver == "" {
		cfg.Audit.SQLite.Driver = DefaultAuditSQLiteDriver
	}
	if cfg.Audit.SQLite.BusyTimeout == 0 {
		cfg.Audit.SQLite.BusyTimeout = DefaultAuditSQLiteBusyTimeout
	}
	if cfg.Audit.SQLite.MaxOpenConns == 0 {
		cfg.Audit.SQLite.MaxOpenConns = DefaultAuditSQLiteMaxOpenConns
	}
	if cfg.Audit.Recorder.AsyncBuffer == 0 {
		cfg.Audit.Recorder.AsyncBuffer = DefaultAuditRecorderAsyncBuffer
	}
	if cfg.Audit.Recorder.WriteTimeout == 0 {
		cfg.Audit.Recorder.WriteTimeout = DefaultAuditRecorderWriteTimeout
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if cfg.Telemetry.Tracing.Sampler == "" {
		cfg.Telemetry.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Telemetry.Tracing.Endpoint == "" {
		cfg.Telemetry.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if cfg.Telemetry.Tracing.Timeout == 0 {
		cfg.Telemetry.Tracing.Timeout = DefaultTracingTimeout
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingService
	}
}

package config

import "time"

// Config is the root configuration structure for the gate engine CLI.
// It contains the ruleset sources, engine limits, batch settings, the audit
// trail and telemetry.
type Config struct {
	// Rules locates ruleset, contract and pattern files.
	Rules RulesConfig `yaml:"rules"`

	// Engine contains evaluation limits passed to engine.NewEngine.
	Engine EngineConfig `yaml:"engine"`

	// Batch contains batch runner settings.
	Batch BatchConfig `yaml:"batch"`

	// Audit contains configuration for the evaluation audit trail including
	// backend selection, the async recorder and retention.
	Audit AuditConfig `yaml:"audit"`

	// Telemetry contains configuration for logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// RulesConfig locates the rule files loaded at startup.
type RulesConfig struct {
	// Dir is the directory scanned for *.yaml, *.yml and *.json rulesets.
	// Default: "./rules"
	Dir string `yaml:"dir"`

	// Contracts maps a rule family ("event", "protocol") to its contract
	// file. A family without an entry uses the built-in default contract.
	Contracts map[string]string `yaml:"contracts"`

	// Patterns lists pattern files merged into one library. Later files
	// override earlier keys.
	Patterns []string `yaml:"patterns"`

	// Watch enables hot reload of Dir.
	// Default: false
	Watch bool `yaml:"watch"`

	// Debounce is the quiet period before a reload after file changes.
	// Default: 500ms
	Debounce time.Duration `yaml:"debounce"`

	// Strict turns validator warnings (unknown pattern keys) into errors.
	// Default: false
	Strict bool `yaml:"strict"`
}

// EngineConfig mirrors engine.EngineConfig.
type EngineConfig struct {
	// MaxHitsPerKey bounds the evidence blocks returned for one pattern key.
	// Default: 8
	MaxHitsPerKey int `yaml:"max_hits_per_key"`

	// ContextChars is the context width on each side of a match.
	// Default: 100
	ContextChars int `yaml:"context_chars"`

	// DefaultAdmissionWindowHours applies when a contract sets no window.
	// Default: 24
	DefaultAdmissionWindowHours int `yaml:"default_admission_window_hours"`

	// ExclusionMaxHits bounds blocks examined per exclusion key.
	// Default: 50
	ExclusionMaxHits int `yaml:"exclusion_max_hits"`
}

// BatchConfig contains batch runner settings.
type BatchConfig struct {
	// Parallelism is the number of concurrent evaluations.
	// Default: 4
	Parallelism int `yaml:"parallelism"`

	// FailFast stops the batch at the first load or context error. Evaluation
	// errors never stop a batch; they become ERROR outcomes.
	// Default: false
	FailFast bool `yaml:"fail_fast"`
}

// AuditConfig contains configuration for the audit trail.
type AuditConfig struct {
	// Enabled controls whether evaluations are recorded.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Backend specifies the storage backend.
	// Valid values: "memory", "sqlite"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite-specific configuration.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Recorder contains async recorder settings.
	Recorder RecorderConfig `yaml:"recorder"`

	// Retention contains retention policy configuration.
	Retention RetentionConfig `yaml:"retention"`
}

// SQLiteConfig contains SQLite audit storage settings.
type SQLiteConfig struct {
	// Path is the database file path.
	// Default: "data/audit.db"
	Path string `yaml:"path"`

	// Driver selects the database/sql driver.
	// Valid values: "sqlite" (modernc, pure Go), "sqlite3" (mattn, cgo)
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// WALMode enables write-ahead logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is how long a writer waits on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`
}

// RecorderConfig contains async recorder settings.
type RecorderConfig struct {
	// AsyncBuffer is the recorder channel size.
	// Default: 1000
	AsyncBuffer int `yaml:"async_buffer"`

	// WriteTimeout bounds how long a producer waits on a full buffer.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// StoreResult keeps the full result JSON on each record.
	// Default: true
	StoreResult bool `yaml:"store_result"`
}

// RetentionConfig contains audit retention settings.
type RetentionConfig struct {
	// Days is how long records are kept. 0 keeps records forever.
	// Default: 365
	Days int `yaml:"days"`

	// Schedule is the cron expression for automatic pruning. Empty disables
	// the scheduler.
	// Default: "0 3 * * *"
	Schedule string `yaml:"schedule"`

	// MaxRecords caps the number of stored records. 0 is unlimited.
	// Default: 0
	MaxRecords int64 `yaml:"max_records"`

	// ArchivePath, when set, receives a JSON archive before each prune.
	ArchivePath string `yaml:"archive_path"`
}

// TelemetryConfig contains configuration for logging, metrics and tracing.
type TelemetryConfig struct {
	// Logging contains structured logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains OpenTelemetry tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format.
	// Valid values: "json", "text", "console"
	// Default: "console"
	Format string `yaml:"format"`

	// AddSource includes source file and line in log records.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactPHI redacts patient identifiers from log output.
	// Default: true
	RedactPHI bool `yaml:"redact_phi"`

	// RedactPatterns are extra redaction patterns applied after the
	// built-in PHI patterns.
	RedactPatterns []RedactPattern `yaml:"redact_patterns"`
}

// RedactPattern is a custom log redaction rule.
type RedactPattern struct {
	// Name identifies the pattern in errors.
	Name string `yaml:"name"`

	// Pattern is a Go regular expression.
	Pattern string `yaml:"pattern"`

	// Replacement replaces each match. It may reference groups ($1).
	Replacement string `yaml:"replacement"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether evaluation metrics are collected.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Namespace is the metric name prefix.
	// Default: "cerebral"
	Namespace string `yaml:"namespace"`

	// Subsystem is the second metric name component.
	// Default: "gates"
	Subsystem string `yaml:"subsystem"`

	// TextfilePath, when set, receives the metrics in Prometheus text format
	// at the end of each batch.
	TextfilePath string `yaml:"textfile_path"`

	// ListenAddress, when set, serves /metrics during `cerebral watch`.
	ListenAddress string `yaml:"listen_address"`
}

// TracingConfig contains OpenTelemetry tracing configuration. Spans cover
// each batch and each evaluation within it.
type TracingConfig struct {
	// Enabled controls whether spans are exported.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "always"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of batches to sample (0.0 to 1.0).
	// Only used when Sampler is "ratio".
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS for the collector connection.
	// Default: false
	Insecure bool `yaml:"insecure"`

	// Timeout bounds each export.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`

	// ServiceName is the service name attached to every span.
	// Default: "cerebral"
	ServiceName string `yaml:"service_name"`
}

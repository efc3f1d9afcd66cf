package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variable overrides.
const EnvPrefix = "CEREBRAL_"

// LoadConfig loads configuration from a YAML file at the specified path.
// The file is decoded over Default(), then defaults are applied and the
// result validated. Environment variables are not consulted; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention CEREBRAL_SECTION_FIELD (e.g., CEREBRAL_BATCH_PARALLELISM) and
// always take precedence over the file.
//
// An empty path skips the file and starts from Default().
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = Default()
	} else {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Unparseable numeric, boolean and duration values are ignored.
func applyEnvOverrides(cfg *Config) {
	// Rules overrides
	envString("RULES_DIR", &cfg.Rules.Dir)
	envBool("RULES_WATCH", &cfg.Rules.Watch)
	envDuration("RULES_DEBOUNCE", &cfg.Rules.Debounce)
	envBool("RULES_STRICT", &cfg.Rules.Strict)
	if val := os.Getenv(EnvPrefix + "RULES_PATTERNS"); val != "" {
		cfg.Rules.Patterns = splitList(val)
	}
	for _, family := range []string{"event", "protocol"} {
		if val := os.Getenv(EnvPrefix + "RULES_CONTRACTS_" + strings.ToUpper(family)); val != "" {
			if cfg.Rules.Contracts == nil {
				cfg.Rules.Contracts = make(map[string]string)
			}
			cfg.Rules.Contracts[family] = val
		}
	}

	// Engine overrides
	envInt("ENGINE_MAX_HITS_PER_KEY", &cfg.Engine.MaxHitsPerKey)
	envInt("ENGINE_CONTEXT_CHARS", &cfg.Engine.ContextChars)
	envInt("ENGINE_DEFAULT_ADMISSION_WINDOW_HOURS", &cfg.Engine.DefaultAdmissionWindowHours)
	envInt("ENGINE_EXCLUSION_MAX_HITS", &cfg.Engine.ExclusionMaxHits)

	// Batch overrides
	envInt("BATCH_PARALLELISM", &cfg.Batch.Parallelism)
	envBool("BATCH_FAIL_FAST", &cfg.Batch.FailFast)

	// Audit overrides
	envBool("AUDIT_ENABLED", &cfg.Audit.Enabled)
	envString("AUDIT_BACKEND", &cfg.Audit.Backend)
	envString("AUDIT_SQLITE_PATH", &cfg.Audit.SQLite.Path)
	envString("AUDIT_SQLITE_DRIVER", &cfg.Audit.SQLite.Driver)
	envBool("AUDIT_SQLITE_WAL_MODE", &cfg.Audit.SQLite.WALMode)
	envDuration("AUDIT_SQLITE_BUSY_TIMEOUT", &cfg.Audit.SQLite.BusyTimeout)
	envInt("AUDIT_SQLITE_MAX_OPEN_CONNS", &cfg.Audit.SQLite.MaxOpenConns)
	envInt("AUDIT_RECORDER_ASYNC_BUFFER", &cfg.Audit.Recorder.AsyncBuffer)
	envDuration("AUDIT_RECORDER_WRITE_TIMEOUT", &cfg.Audit.Recorder.WriteTimeout)
	envBool("AUDIT_RECORDER_STORE_RESULT", &cfg.Audit.Recorder.StoreResult)
	envInt("AUDIT_RETENTION_DAYS", &cfg.Audit.Retention.Days)
	envString("AUDIT_RETENTION_SCHEDULE", &cfg.Audit.Retention.Schedule)
	if val := os.Getenv(EnvPrefix + "AUDIT_RETENTION_MAX_RECORDS"); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.Audit.Retention.MaxRecords = i
		}
	}
	envString("AUDIT_RETENTION_ARCHIVE_PATH", &cfg.Audit.Retention.ArchivePath)

	// Telemetry overrides
	envString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("TELEMETRY_LOGGING_ADD_SOURCE", &cfg.Telemetry.Logging.AddSource)
	envBool("TELEMETRY_LOGGING_REDACT_PHI", &cfg.Telemetry.Logging.RedactPHI)
	envBool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("TELEMETRY_METRICS_NAMESPACE", &cfg.Telemetry.Metrics.Namespace)
	envString("TELEMETRY_METRICS_SUBSYSTEM", &cfg.Telemetry.Metrics.Subsystem)
	envString("TELEMETRY_METRICS_TEXTFILE_PATH", &cfg.Telemetry.Metrics.TextfilePath)
	envString("TELEMETRY_METRICS_LISTEN_ADDRESS", &cfg.Telemetry.Metrics.ListenAddress)
	envBool("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("TELEMETRY_TRACING_SAMPLER", &cfg.Telemetry.Tracing.Sampler)
	if val := os.Getenv(EnvPrefix + "TELEMETRY_TRACING_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Telemetry.Tracing.SampleRatio = f
		}
	}
	envString("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	envBool("TELEMETRY_TRACING_INSECURE", &cfg.Telemetry.Tracing.Insecure)
	envDuration("TELEMETRY_TRACING_TIMEOUT", &cfg.Telemetry.Tracing.Timeout)
	envString("TELEMETRY_TRACING_SERVICE_NAME", &cfg.Telemetry.Tracing.ServiceName)
}

func envString(name string, dst *string) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		*dst = val
	}
}

func envInt(name string, dst *int) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envBool(name string, dst *bool) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envDuration(name string, dst *time.Duration) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}

// splitList splits a comma-separated list, dropping empty entries.
func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

package config

import (
	"errors"
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		modify     func(*Config)
		wantFields []string
	}{
		{
			name:   "defaults",
			modify: func(*Config) {},
		},
		{
			name:       "empty rules dir",
			modify:     func(c *Config) { c.Rules.Dir = "" },
			wantFields: []string{"rules.dir"},
		},
		{
			name:       "unknown contract family",
			modify:     func(c *Config) { c.Rules.Contracts["quality"] = "q.yaml" },
			wantFields: []string{"rules.contracts.quality"},
		},
		{
			name:       "empty pattern path",
			modify:     func(c *Config) { c.Rules.Patterns = []string{"a.yaml", ""} },
			wantFields: []string{"rules.patterns[1]"},
		},
		{
			name: "engine limits",
			modify: func(c *Config) {
				c.Engine.MaxHitsPerKey = 0
				c.Engine.ContextChars = -1
				c.Engine.ExclusionMaxHits = -5
			},
			wantFields: []string{"engine.max_hits_per_key", "engine.context_chars", "engine.exclusion_max_hits"},
		},
		{
			name:       "memory backend skips sqlite checks",
			modify:     func(c *Config) { c.Audit.Backend = "memory"; c.Audit.SQLite.Driver = "pg" },
			wantFields: nil,
		},
		{
			name:       "bad sqlite driver",
			modify:     func(c *Config) { c.Audit.SQLite.Driver = "pg" },
			wantFields: []string{"audit.sqlite.driver"},
		},
		{
			name:       "empty schedule is allowed",
			modify:     func(c *Config) { c.Audit.Retention.Schedule = "" },
			wantFields: nil,
		},
		{
			name:       "negative retention",
			modify:     func(c *Config) { c.Audit.Retention.Days = -1; c.Audit.Retention.MaxRecords = -1 },
			wantFields: []string{"audit.retention.days", "audit.retention.max_records"},
		},
		{
			name:       "bad log level and format",
			modify:     func(c *Config) { c.Telemetry.Logging.Level = "trace"; c.Telemetry.Logging.Format = "xml" },
			wantFields: []string{"telemetry.logging.level", "telemetry.logging.format"},
		},
		{
			name: "bad redact pattern",
			modify: func(c *Config) {
				c.Telemetry.Logging.RedactPatterns = []RedactPattern{{Pattern: "[x"}}
			},
			wantFields: []string{"telemetry.logging.redact_patterns[0].name", "telemetry.logging.redact_patterns[0].pattern"},
		},
		{
			name:       "bad metric namespace",
			modify:     func(c *Config) { c.Telemetry.Metrics.Namespace = "cerebral-os" },
			wantFields: []string{"telemetry.metrics.namespace"},
		},
		{
			name: "metrics disabled skips names",
			modify: func(c *Config) {
				c.Telemetry.Metrics.Enabled = false
				c.Telemetry.Metrics.Namespace = "cerebral-os"
			},
		},
		{
			name: "tracing sampler",
			modify: func(c *Config) {
				c.Telemetry.Tracing.Enabled = true
				c.Telemetry.Tracing.Sampler = "sometimes"
			},
			wantFields: []string{"telemetry.tracing.sampler"},
		},
		{
			name: "tracing ratio out of range",
			modify: func(c *Config) {
				c.Telemetry.Tracing.Enabled = true
				c.Telemetry.Tracing.Sampler = "ratio"
				c.Telemetry.Tracing.SampleRatio = 1.5
				c.Telemetry.Tracing.Endpoint = ""
			},
			wantFields: []string{"telemetry.tracing.sample_ratio", "telemetry.tracing.endpoint"},
		},
		{
			name: "tracing disabled skips checks",
			modify: func(c *Config) {
				c.Telemetry.Tracing.Sampler = "sometimes"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := Validate(cfg)
			if len(tt.wantFields) == 0 {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}

			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() = %v, want ValidationError", err)
			}
			got := make(map[string]bool)
			for _, fe := range verr.Errors {
				got[fe.Field] = true
			}
			for _, field := range tt.wantFields {
				if !got[field] {
					t.Errorf("missing error for %s; got %v", field, verr.Errors)
				}
			}
			if len(verr.Errors) != len(tt.wantFields) {
				t.Errorf("got %d errors, want %d: %v", len(verr.Errors), len(tt.wantFields), verr.Errors)
			}
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	single := ValidationError{Errors: []FieldError{{Field: "batch.parallelism", Message: "parallelism must be positive"}}}
	if got := single.Error(); got != "configuration validation failed: batch.parallelism: parallelism must be positive" {
		t.Errorf("single = %q", got)
	}

	multi := ValidationError{Errors: []FieldError{{Field: "a", Message: "x"}, {Field: "b", Message: "y"}}}
	if got := multi.Error(); !strings.Contains(got, "with 2 errors") || !strings.Contains(got, "  - b: y") {
		t.Errorf("multi = %q", got)
	}

	if got := (ValidationError{}).Error(); got != "configuration validation failed" {
		t.Errorf("empty = %q", got)
	}
}

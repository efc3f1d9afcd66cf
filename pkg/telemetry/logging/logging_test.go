package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/Netrion-29/Netrion-cerebralos/pkg/config"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("log line is not JSON: %v\n%s", err, buf.String())
	}
	return m
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", Config{}, false},
		{"debug text", Config{Level: "debug", Format: "text"}, false},
		{"console", Config{Format: "console"}, false},
		{"redacting", Config{RedactPHI: true}, false},
		{"bad level", Config{Level: "verbose"}, true},
		{"bad format", Config{Format: "xml"}, true},
		{"bad custom pattern", Config{RedactPHI: true, RedactPatterns: []config.RedactPattern{{Name: "x", Pattern: "[unclosed"}}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.Writer = &bytes.Buffer{}
			logger, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && logger == nil {
				t.Fatal("New() returned nil logger")
			}
		})
	}
}

func TestNew_Level(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "warn", Writer: &buf})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info written at warn level: %s", buf.String())
	}
	logger.Warn("shown")
	if m := decodeLine(t, &buf); m["msg"] != "shown" {
		t.Errorf("msg = %v", m["msg"])
	}
}

func TestNew_ConsoleDropsTime(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := New(Config{Format: "console", Writer: &buf})
	logger.Info("hello", "k", "v")
	if strings.Contains(buf.String(), "time=") {
		t.Errorf("console output has a timestamp: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "k=v") {
		t.Errorf("console output = %s", buf.String())
	}
}

func TestRedactor_RedactString(t *testing.T) {
	r, err := NewRedactor(nil)
	if err != nil {
		t.Fatalf("NewRedactor() failed: %v", err)
	}

	tests := []struct {
		name    string
		input   string
		absent  string
		present string
	}{
		{"mrn", "Patient MRN: 00123456 admitted", "00123456", "MRN: [REDACTED]"},
		{"mrn hash", "MRN#A1234567", "A1234567", "[REDACTED]"},
		{"dob", "DOB 01/02/1950, male", "1950", "DOB: [REDACTED]"},
		{"ssn", "SSN 123-45-6789", "123-45-6789", "***-**-****"},
		{"phone", "call (317) 555-0142", "555-0142", "***-***-****"},
		{"email", "contact jdoe@example.org", "jdoe@example.org", "[REDACTED_EMAIL]"},
		{"timestamp untouched", "arrival 2026-01-15T10:00:00", "", "2026-01-15T10:00:00"},
		{"gcs untouched", "GCS 8 on arrival", "", "GCS 8 on arrival"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.RedactString(tt.input)
			if tt.absent != "" && strings.Contains(got, tt.absent) {
				t.Errorf("RedactString(%q) = %q, still contains %q", tt.input, got, tt.absent)
			}
			if !strings.Contains(got, tt.present) {
				t.Errorf("RedactString(%q) = %q, want it to contain %q", tt.input, got, tt.present)
			}
		})
	}
}

func TestRedactor_CustomPattern(t *testing.T) {
	r, err := NewRedactor([]config.RedactPattern{
		{Name: "encounter", Pattern: `ENC-\d+`, Replacement: "ENC-***"},
	})
	if err != nil {
		t.Fatalf("NewRedactor() failed: %v", err)
	}
	if got := r.RedactString("encounter ENC-998877"); got != "encounter ENC-***" {
		t.Errorf("RedactString() = %q", got)
	}
}

func TestRedactingHandler(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{RedactPHI: true, Writer: &buf})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	logger.With("dob", "1950-01-02").Info("loaded MRN: 99887766",
		"patient_name", "Jane Doe",
		"note", "SSN 123-45-6789",
		"error", errors.New("bad email jdoe@example.org"),
		"count", 3,
		slog.Group("source", slog.String("mrn", "12345")),
	)

	out := buf.String()
	for _, leaked := range []string{"99887766", "Jane Doe", "123-45-6789", "jdoe@example.org", "1950-01-02", "12345\""} {
		if strings.Contains(out, leaked) {
			t.Errorf("log output leaked %q: %s", leaked, out)
		}
	}

	m := decodeLine(t, &buf)
	if m["count"] != float64(3) {
		t.Errorf("non-string attribute changed: %v", m["count"])
	}
	if m["patient_name"] != "[REDACTED]" {
		t.Errorf("patient_name = %v", m["patient_name"])
	}
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	ctx := WithRunID(context.Background(), "run-1")
	ctx = WithPatientID(ctx, "P001")
	ctx = WithRulesetID(ctx, "NTDS_DVT")

	FromContext(ctx, logger).Info("evaluated")
	m := decodeLine(t, &buf)
	if m["run_id"] != "run-1" || m["patient_id"] != "P001" || m["ruleset_id"] != "NTDS_DVT" {
		t.Errorf("context fields = %v", m)
	}

	if FromContext(context.Background(), logger) != logger {
		t.Error("empty context should return the same logger")
	}
	if FromContext(context.Background(), nil) == nil {
		t.Error("nil logger should fall back to slog.Default()")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v", tt.in, got, err)
		}
	}
}

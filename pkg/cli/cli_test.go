package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/Netrion-29/Netrion-cerebralos/pkg/policy/engine"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/ruleset/ast"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"config", NewConfigError("batch.parallelism", "must be positive"), ExitInvalidInput},
		{"input", NewInputError("rules/dvt.yaml", errors.New("unknown gate kind")), ExitInvalidInput},
		{"wrapped input", fmt.Errorf("lint: %w", NewInputError("x.yaml", os.ErrNotExist)), ExitInvalidInput},
		{"command", NewCommandError("batch", errors.New("disk full")), ExitFailure},
		{"command wrapping input", NewCommandError("evaluate", NewInputError("p.json", os.ErrNotExist)), ExitInvalidInput},
		{"plain", errors.New("boom"), ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	if got := NewConfigError("", "no rules").Error(); got != "config error: no rules" {
		t.Errorf("ConfigError = %q", got)
	}
	if got := NewConfigError("format", "bad").Error(); got != "config error in format: bad" {
		t.Errorf("ConfigError = %q", got)
	}
	inErr := NewInputError("p.json", os.ErrNotExist)
	if !errors.Is(inErr, os.ErrNotExist) {
		t.Error("InputError should unwrap")
	}
	cmdErr := NewCommandError("batch", os.ErrClosed)
	if !errors.Is(cmdErr, os.ErrClosed) || !strings.Contains(cmdErr.Error(), "command batch failed") {
		t.Errorf("CommandError = %v", cmdErr)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", FormatText, false},
		{"JSON", FormatJSON, false},
		{" text ", FormatText, false},
		{"csv", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in, FormatText, FormatJSON)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
		if err != nil && ExitCode(err) != ExitInvalidInput {
			t.Errorf("ParseFormat(%q) error is not an input error", tt.in)
		}
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, map[string]int{"total": 2}); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "{\n  \"total\": 2\n}\n" {
		t.Errorf("WriteJSON() = %q", buf.String())
	}
}

func TestBatchProgress(t *testing.T) {
	buf := &bytes.Buffer{}
	progress := NewBatchProgress(buf, 2)

	progress.Observe(&engine.Result{Outcome: ast.OutcomeYes}, time.Millisecond)
	progress.Observe(&engine.Result{Outcome: ast.OutcomeError}, time.Millisecond)
	progress.Finish()

	completed, failed := progress.Counts()
	if completed != 2 || failed != 1 {
		t.Errorf("Counts() = %d, %d", completed, failed)
	}
	out := buf.String()
	if !strings.Contains(out, "(2/2) 1 errors") || !strings.HasSuffix(out, "\n") {
		t.Errorf("output = %q", out)
	}
}

func TestBatchProgress_ZeroTotal(t *testing.T) {
	buf := &bytes.Buffer{}
	progress := NewBatchProgress(buf, 0)
	progress.Observe(nil, 0)
	progress.Finish()

	if buf.String() != "\n" {
		t.Errorf("output = %q", buf.String())
	}
}

func TestSetupSignalHandler(t *testing.T) {
	ctx, stop := SetupSignalHandler(context.Background())
	defer stop()

	select {
	case <-ctx.Done():
		t.Fatal("context cancelled before any signal")
	default:
	}

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("failed to send SIGTERM: %v", err)
	}

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context not cancelled after SIGTERM")
	}
}

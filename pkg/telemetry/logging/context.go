package logging

import (
	"context"
	"log/slog"
)

// Context keys for common log fields.
type contextKey string

const (
	// RunIDKey is the context key for batch run IDs.
	RunIDKey contextKey = "run_id"

	// PatientIDKey is the context key for patient identifiers.
	PatientIDKey contextKey = "patient_id"

	// RulesetIDKey is the context key for ruleset IDs.
	RulesetIDKey contextKey = "ruleset_id"
)

// WithRunID adds a batch run ID to the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// GetRunID retrieves the run ID from the context.
func GetRunID(ctx context.Context) string {
	v, _ := ctx.Value(RunIDKey).(string)
	return v
}

// WithPatientID adds a patient identifier to the context.
func WithPatientID(ctx context.Context, patientID string) context.Context {
	return context.WithValue(ctx, PatientIDKey, patientID)
}

// GetPatientID retrieves the patient identifier from the context.
func GetPatientID(ctx context.Context) string {
	v, _ := ctx.Value(PatientIDKey).(string)
	return v
}

// WithRulesetID adds a ruleset ID to the context.
func WithRulesetID(ctx context.Context, rulesetID string) context.Context {
	return context.WithValue(ctx, RulesetIDKey, rulesetID)
}

// GetRulesetID retrieves the ruleset ID from the context.
func GetRulesetID(ctx context.Context) string {
	v, _ := ctx.Value(RulesetIDKey).(string)
	return v
}

// FromContext returns logger with the context's run, patient and ruleset
// fields attached. A nil logger falls back to slog.Default().
func FromContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	if fields := extractContextFields(ctx); len(fields) > 0 {
		return logger.With(fields...)
	}
	return logger
}

func extractContextFields(ctx context.Context) []any {
	var fields []any
	if v := GetRunID(ctx); v != "" {
		fields = append(fields, "run_id", v)
	}
	if v := GetPatientID(ctx); v != "" {
		fields = append(fields, "patient_id", v)
	}
	if v := GetRulesetID(ctx); v != "" {
		fields = append(fields, "ruleset_id", v)
	}
	return fields
}

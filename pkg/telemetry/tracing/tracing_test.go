package tracing

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Netrion-29/Netrion-cerebralos/pkg/config"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/policy/engine"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/ruleset/ast"
)

func newRecordingTracer(t *testing.T) (*Tracer, *tracetest.SpanRecorder) {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tracer := NewWithProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	t.Cleanup(func() { tracer.Shutdown(context.Background()) })
	return tracer, rec
}

func attrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	m := make(map[attribute.Key]attribute.Value)
	for _, kv := range span.Attributes() {
		m[kv.Key] = kv.Value
	}
	return m
}

func TestNew_Disabled(t *testing.T) {
	tracer, err := New(config.TracingConfig{}, "dev")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if tracer.Enabled() {
		t.Error("disabled tracer reports enabled")
	}
	ctx, span := tracer.Start(context.Background(), "batch.run")
	span.End()
	if TraceID(ctx) != "" {
		t.Error("no-op span has a trace ID")
	}
	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestNew_Enabled(t *testing.T) {
	tracer, err := New(config.TracingConfig{
		Enabled:     true,
		Sampler:     SamplerAlways,
		Endpoint:    "127.0.0.1:4317",
		Insecure:    true,
		ServiceName: "cerebral",
	}, "dev")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if !tracer.Enabled() {
		t.Error("enabled tracer reports disabled")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tracer.Shutdown(ctx)
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.TracingConfig
	}{
		{"bad sampler", config.TracingConfig{Enabled: true, Sampler: "sometimes", Endpoint: "x:1"}},
		{"bad ratio", config.TracingConfig{Enabled: true, Sampler: SamplerRatio, SampleRatio: 2, Endpoint: "x:1"}},
		{"no endpoint", config.TracingConfig{Enabled: true, Sampler: SamplerAlways}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg, "dev"); err == nil {
				t.Error("New() error = nil")
			}
		})
	}
}

func TestNilTracer(t *testing.T) {
	var tracer *Tracer
	_, span := tracer.Start(context.Background(), "batch.evaluate")
	span.End()
	if tracer.Enabled() {
		t.Error("nil tracer reports enabled")
	}
	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestStart_ParentChild(t *testing.T) {
	tracer, rec := newRecordingTracer(t)

	ctx, parent := tracer.Start(context.Background(), "batch.run", BatchAttributes("run-1", 2, 3, 4)...)
	if TraceID(ctx) == "" {
		t.Fatal("TraceID() empty inside a recorded span")
	}
	_, child := tracer.Start(ctx, "batch.evaluate")
	child.End()
	parent.End()

	spans := rec.Ended()
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2", len(spans))
	}
	if spans[0].Parent().SpanID() != spans[1].SpanContext().SpanID() {
		t.Error("evaluate span is not a child of the batch span")
	}
	if got := attrs(spans[1])[AttrPatients].AsInt64(); got != 2 {
		t.Errorf("%s = %d, want 2", AttrPatients, got)
	}
}

func TestSetResultAttributes(t *testing.T) {
	tracer, rec := newRecordingTracer(t)

	tests := []struct {
		name       string
		result     *engine.Result
		wantStatus codes.Code
		wantFailed string
	}{
		{
			name: "failed gate",
			result: &engine.Result{
				RulesetID: "NTDS_DVT",
				Family:    ast.FamilyEvent,
				Outcome:   ast.OutcomeNo,
				PatientID: "P001",
				GateTrace: []*engine.GateResult{{GateID: "G1_DVT_DX", Required: true}},
			},
			wantStatus: codes.Unset,
			wantFailed: "G1_DVT_DX",
		},
		{
			name: "error",
			result: &engine.Result{
				RulesetID: "NTDS_DVT",
				Family:    ast.FamilyEvent,
				Outcome:   ast.OutcomeError,
				Error:     "boom",
			},
			wantStatus: codes.Error,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, span := tracer.Start(context.Background(), "batch.evaluate")
			SetResultAttributes(span, tt.result)
			span.End()

			spans := rec.Ended()
			got := spans[len(spans)-1]
			a := attrs(got)
			if a[AttrOutcome].AsString() != string(tt.result.Outcome) {
				t.Errorf("%s = %v", AttrOutcome, a[AttrOutcome])
			}
			if a[AttrFailedGate].AsString() != tt.wantFailed {
				t.Errorf("%s = %q, want %q", AttrFailedGate, a[AttrFailedGate].AsString(), tt.wantFailed)
			}
			if got.Status().Code != tt.wantStatus {
				t.Errorf("status = %v, want %v", got.Status().Code, tt.wantStatus)
			}
			for _, kv := range got.Attributes() {
				if kv.Value.AsString() == "P001" {
					t.Errorf("span carries the patient ID in %s", kv.Key)
				}
			}
		})
	}
}

func TestSetStatus(t *testing.T) {
	tracer, rec := newRecordingTracer(t)

	_, span := tracer.Start(context.Background(), "ok")
	SetStatus(span, nil)
	span.End()
	_, span = tracer.Start(context.Background(), "failed")
	SetStatus(span, errors.New("recorder closed"))
	span.End()

	spans := rec.Ended()
	if spans[0].Status().Code != codes.Ok {
		t.Errorf("ok span status = %v", spans[0].Status().Code)
	}
	if spans[1].Status().Code != codes.Error || len(spans[1].Events()) == 0 {
		t.Errorf("failed span status = %v, events = %d", spans[1].Status().Code, len(spans[1].Events()))
	}
}

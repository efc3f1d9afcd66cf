// Package recorder writes engine results to the audit trail asynchronously.
package recorder

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Netrion-29/Netrion-cerebralos/pkg/audit"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/policy/engine"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/ruleset/ast"
)

// ErrClosed is returned when recording after Close.
var ErrClosed = errors.New("recorder closed")

// Config contains configuration for the audit recorder.
type Config struct {
	// Enabled enables recording. A disabled recorder accepts and drops
	// every result.
	Enabled bool

	// AsyncBuffer is the size of the write channel buffer.
	// Default: 1000
	AsyncBuffer int

	// WriteTimeout bounds both enqueueing and each storage write.
	// Default: 5 seconds
	WriteTimeout time.Duration

	// StoreResult keeps the serialized result and its hash on each record.
	// Default: true
	StoreResult bool

	// DetectDrift compares each outcome with the previous record for the
	// same patient and ruleset.
	// Default: true
	DetectDrift bool
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:      true,
		AsyncBuffer:  1000,
		WriteTimeout: 5 * time.Second,
		StoreResult:  true,
		DetectDrift:  true,
	}
}

// Recorder records evaluation results without blocking the caller on
// storage writes. A single worker writes records in enqueue order.
type Recorder struct {
	storage    audit.Storage
	config     *Config
	recordChan chan *audit.Record
	wg         sync.WaitGroup
	done       chan struct{}
	closeOnce  sync.Once
	logger     *slog.Logger

	mu      sync.Mutex
	written int64
	failed  int64
	drifted int64
}

// NewRecorder creates a recorder over storage and starts its worker.
func NewRecorder(storage audit.Storage, config *Config, logger *slog.Logger) *Recorder {
	if config == nil {
		config = DefaultConfig()
	}
	cfg := *config
	if cfg.AsyncBuffer <= 0 {
		cfg.AsyncBuffer = 1000
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Recorder{
		storage:    storage,
		config:     &cfg,
		recordChan: make(chan *audit.Record, cfg.AsyncBuffer),
		done:       make(chan struct{}),
		logger:     logger.With("component", "audit.recorder"),
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Debug("audit recorder initialized",
		"async_buffer", cfg.AsyncBuffer,
		"write_timeout", cfg.WriteTimeout,
		"detect_drift", cfg.DetectDrift,
	)
	return r
}

// NewRecord builds an audit record from an engine result. The category is
// CategoryError for ERROR outcomes and CategoryOutcome otherwise; drift is
// decided when the record is written.
func NewRecord(runID string, result *engine.Result, duration time.Duration, includeResult bool) (*audit.Record, error) {
	record := &audit.Record{
		ID:          uuid.New().String(),
		RunID:       runID,
		PatientID:   result.PatientID,
		RulesetID:   result.RulesetID,
		Family:      string(result.Family),
		Outcome:     string(result.Outcome),
		Category:    audit.CategoryOutcome,
		Warnings:    append([]string(nil), result.Warnings...),
		Error:       result.Error,
		GateCount:   len(result.GateTrace),
		EvaluatedAt: time.Now().UTC(),
		Duration:    duration,
	}

	if result.Outcome == ast.OutcomeError {
		record.Category = audit.CategoryError
	}
	if g := result.FailedGate(); g != nil {
		record.FailedGate = g.GateID
	}
	if result.HardStop != nil {
		record.HardStopRule = result.HardStop.RuleID
	}

	if includeResult {
		data, err := json.Marshal(result)
		if err != nil {
			return nil, audit.NewRecorderError(record.ID, err)
		}
		record.ResultJSON = string(data)
		record.ResultHash = HashContent(data)
	}
	return record, nil
}

// RecordResult converts result into a record and enqueues it. It returns
// immediately unless the buffer is full, in which case it waits up to
// WriteTimeout.
func (r *Recorder) RecordResult(ctx context.Context, runID string, result *engine.Result, duration time.Duration) error {
	if !r.config.Enabled || result == nil {
		return nil
	}

	record, err := NewRecord(runID, result, duration, r.config.StoreResult)
	if err != nil {
		return err
	}
	return r.enqueue(ctx, record)
}

func (r *Recorder) enqueue(ctx context.Context, record *audit.Record) error {
	select {
	case <-r.done:
		return audit.NewRecorderError(record.ID, ErrClosed)
	default:
	}

	timer := time.NewTimer(r.config.WriteTimeout)
	defer timer.Stop()

	select {
	case r.recordChan <- record:
		r.logger.Debug("audit record enqueued",
			"record_id", record.ID,
			"ruleset_id", record.RulesetID,
		)
		return nil
	case <-timer.C:
		r.logger.Error("audit channel full, dropping record",
			"record_id", record.ID,
			"channel_capacity", r.config.AsyncBuffer,
		)
		return audit.NewRecorderError(record.ID, context.DeadlineExceeded)
	case <-ctx.Done():
		return audit.NewRecorderError(record.ID, ctx.Err())
	case <-r.done:
		return audit.NewRecorderError(record.ID, ErrClosed)
	}
}

// Close stops accepting records, drains the channel and waits for pending
// writes.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		close(r.done)
		r.wg.Wait()
		r.logger.Debug("audit recorder shut down",
			"written", r.written,
			"failed", r.failed,
			"drifted", r.drifted,
		)
	})
	return nil
}

// Stats returns the number of records written, failed and flagged as drift.
func (r *Recorder) Stats() (written, failed, drifted int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written, r.failed, r.drifted
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case record := <-r.recordChan:
			r.writeRecord(record)

		case <-r.done:
			for {
				select {
				case record := <-r.recordChan:
					r.writeRecord(record)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) writeRecord(record *audit.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	if r.config.DetectDrift && record.Category == audit.CategoryOutcome {
		r.markDrift(ctx, record)
	}

	start := time.Now()
	if err := r.storage.Store(ctx, record); err != nil {
		r.logger.Error("failed to store audit record",
			"record_id", record.ID,
			"ruleset_id", record.RulesetID,
			"error", err,
		)
		r.count(&r.failed)
		return
	}
	r.count(&r.written)
	if record.Category == audit.CategoryDrift {
		r.count(&r.drifted)
	}

	if d := time.Since(start); d > r.config.WriteTimeout/2 {
		r.logger.Warn("slow audit write",
			"record_id", record.ID,
			"duration_ms", d.Milliseconds(),
		)
	}
}

// markDrift sets CategoryDrift when the previous non-error record for the
// same patient and ruleset had a different outcome.
func (r *Recorder) markDrift(ctx context.Context, record *audit.Record) {
	prev, err := r.storage.Latest(ctx, record.PatientID, record.RulesetID)
	if err != nil {
		r.logger.Warn("drift check failed", "record_id", record.ID, "error", err)
		return
	}
	if prev == nil || prev.Category == audit.CategoryError || prev.Outcome == record.Outcome {
		return
	}

	record.Category = audit.CategoryDrift
	record.PreviousOutcome = prev.Outcome
	r.logger.Warn("outcome drift detected",
		"ruleset_id", record.RulesetID,
		"previous_outcome", prev.Outcome,
		"outcome", record.Outcome,
	)
}

func (r *Recorder) count(n *int64) {
	r.mu.Lock()
	*n++
	r.mu.Unlock()
}

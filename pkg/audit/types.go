package audit

import (
	"context"
	"io"
	"time"
)

// Category classifies an audit record.
type Category string

const (
	// CategoryOutcome is a normal evaluation record.
	CategoryOutcome Category = "outcome"

	// CategoryError marks an evaluation that ended in ERROR.
	CategoryError Category = "error"

	// CategoryDrift marks an outcome that changed against the previous
	// record for the same patient and ruleset.
	CategoryDrift Category = "drift"
)

// IsValid reports whether c is a known category.
func (c Category) IsValid() bool {
	switch c {
	case CategoryOutcome, CategoryError, CategoryDrift:
		return true
	}
	return false
}

// Record is the audit trail entry for one (patient, ruleset) evaluation.
type Record struct {
	// Identity
	ID    string `json:"id"`     // UUID v4
	RunID string `json:"run_id"` // Batch run that produced the record

	// Subject
	PatientID string `json:"patient_id"`
	RulesetID string `json:"ruleset_id"`
	Family    string `json:"family"` // "event" or "protocol"

	// Decision
	Outcome         string   `json:"outcome"`
	PreviousOutcome string   `json:"previous_outcome,omitempty"` // Set on drift records
	Category        Category `json:"category"`
	FailedGate      string   `json:"failed_gate,omitempty"`    // Required gate that halted evaluation
	HardStopRule    string   `json:"hard_stop_rule,omitempty"` // Exclusion or pass_outcome gate
	Warnings        []string `json:"warnings,omitempty"`
	Error           string   `json:"error,omitempty"`
	GateCount       int      `json:"gate_count"` // Gates evaluated before halting

	// Timing
	EvaluatedAt time.Time     `json:"evaluated_at"`
	Duration    time.Duration `json:"duration"`

	// Payload
	ResultHash string `json:"result_hash,omitempty"` // SHA-256 of ResultJSON
	ResultJSON string `json:"result_json,omitempty"`
}

// Query defines filter parameters for audit records.
type Query struct {
	// Time range over EvaluatedAt
	StartTime *time.Time `json:"start_time,omitempty"` // Inclusive
	EndTime   *time.Time `json:"end_time,omitempty"`   // Inclusive

	// Filters
	RunID     string   `json:"run_id,omitempty"`
	PatientID string   `json:"patient_id,omitempty"`
	RulesetID string   `json:"ruleset_id,omitempty"`
	Family    string   `json:"family,omitempty"`
	Outcome   string   `json:"outcome,omitempty"`
	Category  Category `json:"category,omitempty"`

	// Pagination
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`

	// Sorting
	SortBy    string `json:"sort_by,omitempty"`    // "evaluated_at", "duration", "patient_id", "ruleset_id"
	SortOrder string `json:"sort_order,omitempty"` // "asc", "desc"
}

// Matches reports whether r satisfies the filters of q. Pagination and
// sorting are ignored.
func (q *Query) Matches(r *Record) bool {
	if q.StartTime != nil && r.EvaluatedAt.Before(*q.StartTime) {
		return false
	}
	if q.EndTime != nil && r.EvaluatedAt.After(*q.EndTime) {
		return false
	}
	if q.RunID != "" && r.RunID != q.RunID {
		return false
	}
	if q.PatientID != "" && r.PatientID != q.PatientID {
		return false
	}
	if q.RulesetID != "" && r.RulesetID != q.RulesetID {
		return false
	}
	if q.Family != "" && r.Family != q.Family {
		return false
	}
	if q.Outcome != "" && r.Outcome != q.Outcome {
		return false
	}
	if q.Category != "" && r.Category != q.Category {
		return false
	}
	return true
}

// Storage defines the interface for audit storage backends.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Store persists a record.
	Store(ctx context.Context, record *Record) error

	// Query retrieves records matching the query filters.
	// Returns an empty slice if no records match.
	Query(ctx context.Context, query *Query) ([]*Record, error)

	// QueryStream streams matching records. Both channels are closed when
	// the query completes; errCh carries at most one error.
	QueryStream(ctx context.Context, query *Query) (<-chan *Record, <-chan error, error)

	// Count returns the number of records matching the query filters.
	Count(ctx context.Context, query *Query) (int64, error)

	// Delete removes matching records and returns how many were removed.
	Delete(ctx context.Context, query *Query) (int64, error)

	// Latest returns the most recent record for a patient and ruleset, or
	// nil when there is none.
	Latest(ctx context.Context, patientID, rulesetID string) (*Record, error)

	// Close releases any resources held by the backend.
	Close() error
}

// Exporter writes audit records in some format.
type Exporter interface {
	Export(ctx context.Context, records []*Record, w io.Writer) error
}

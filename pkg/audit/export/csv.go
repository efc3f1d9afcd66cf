package export

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Netrion-29/Netrion-cerebralos/pkg/audit"
)

// CSVExporter exports audit records as CSV. The serialized result is left
// out; use the JSON exporter for full payloads.
type CSVExporter struct {
	// IncludeHeader writes a header row with column names.
	IncludeHeader bool
}

var _ audit.Exporter = (*CSVExporter)(nil)

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{IncludeHeader: includeHeader}
}

// Export writes records in CSV format.
func (e *CSVExporter) Export(ctx context.Context, records []*audit.Record, w io.Writer) error {
	writer := csv.NewWriter(w)

	if e.IncludeHeader {
		if err := writer.Write(headerRow()); err != nil {
			return audit.NewExportError("csv", len(records), err)
		}
	}

	for _, record := range records {
		if err := writer.Write(recordToRow(record)); err != nil {
			return audit.NewExportError("csv", len(records), err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return audit.NewExportError("csv", len(records), err)
	}
	return nil
}

// ExportStream writes records from recordsCh in CSV format, flushing every
// 100 rows.
func (e *CSVExporter) ExportStream(ctx context.Context, recordsCh <-chan *audit.Record, w io.Writer) error {
	writer := csv.NewWriter(w)

	if e.IncludeHeader {
		if err := writer.Write(headerRow()); err != nil {
			return audit.NewExportError("csv", 0, err)
		}
	}

	recordCount := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case record, ok := <-recordsCh:
			if !ok {
				writer.Flush()
				if err := writer.Error(); err != nil {
					return audit.NewExportError("csv", recordCount, err)
				}
				return nil
			}

			if err := writer.Write(recordToRow(record)); err != nil {
				return audit.NewExportError("csv", recordCount, err)
			}
			recordCount++

			if recordCount%100 == 0 {
				writer.Flush()
				if err := writer.Error(); err != nil {
					return audit.NewExportError("csv", recordCount, err)
				}
			}
		}
	}
}

func headerRow() []string {
	return []string{
		"id", "run_id",
		"patient_id", "ruleset_id", "family",
		"outcome", "previous_outcome", "category", "failed_gate", "hard_stop_rule",
		"warnings", "error", "gate_count",
		"evaluated_at", "duration_ms", "result_hash",
	}
}

func recordToRow(record *audit.Record) []string {
	evaluatedAt := ""
	if !record.EvaluatedAt.IsZero() {
		evaluatedAt = record.EvaluatedAt.UTC().Format(time.RFC3339Nano)
	}

	return []string{
		record.ID,
		record.RunID,
		record.PatientID,
		record.RulesetID,
		record.Family,
		record.Outcome,
		record.PreviousOutcome,
		string(record.Category),
		record.FailedGate,
		record.HardStopRule,
		strings.Join(record.Warnings, "; "),
		record.Error,
		strconv.Itoa(record.GateCount),
		evaluatedAt,
		strconv.FormatInt(record.Duration.Milliseconds(), 10),
		record.ResultHash,
	}
}

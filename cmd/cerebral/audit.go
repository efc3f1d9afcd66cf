package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Netrion-29/Netrion-cerebralos/pkg/audit"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/audit/export"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/audit/query"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/audit/recorder"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/audit/retention"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/cli"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/config"
)

var auditFlags struct {
	backend   string
	timeRange string
	run       string
	patient   string
	ruleset   string
	family    string
	outcome   string
	category  string
	limit     int
	offset    int
	sortBy    string
	sortOrder string
	format    string
	output    string

	days       int
	maxRecords int64
	archive    string
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query the audit trail",
	Long: `Query, export and prune the audit trail of evaluation results.

Every batch run with auditing enabled records one entry per patient and
ruleset. An entry whose outcome differs from the previous entry for the same
patient and ruleset is marked as drift.

Subcommands:
  query   - Query audit records with filters
  export  - Export every matching record as JSON or CSV
  prune   - Delete records outside the retention policy
  verify  - Check stored results against their hashes

Examples:
  # Outcome changes for one patient
  cerebral audit query --patient P001 --category drift

  # Export one run to CSV
  cerebral audit export --run 7f0c... --format csv --output run.csv

  # Keep 90 days
  cerebral audit prune --days 90

  # Check one run for tampering
  cerebral audit verify --run 7f0c...`,
}

var auditQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query audit records",
	Long: `Query audit records with filters.

Time Range Format:
  RFC3339 interval format: "start/end"
  Example: "2026-01-01T00:00:00Z/2026-02-01T00:00:00Z"

Examples:
  cerebral audit query --ruleset NTDS_DVT --outcome NO
  cerebral audit query --time-range "2026-01-01T00:00:00Z/2026-02-01T00:00:00Z" --format json`,
	RunE: queryAudit,
}

var auditExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export audit records",
	Long: `Stream every matching audit record as JSON or CSV, without pagination.

Examples:
  cerebral audit export --format csv --output audit.csv
  cerebral audit export --ruleset NTDS_DVT --format json`,
	RunE: exportAudit,
}

var auditPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Apply the retention policy",
	Long: `Delete audit records older than the retention period, then the oldest
records beyond the record limit. Flags override the configured policy.

Examples:
  cerebral audit prune
  cerebral audit prune --days 90 --archive data/archives/`,
	RunE: pruneAudit,
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify audit record integrity",
	Long: `Recompute the SHA-256 of every matching record's stored result and compare
it with the recorded hash. Any mismatch fails the command.

Records stored without a result payload are counted but have nothing to
check.

Examples:
  cerebral audit verify
  cerebral audit verify --ruleset NTDS_DVT --time-range "2026-01-01T00:00:00Z/2026-02-01T00:00:00Z"`,
	RunE: verifyAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditQueryCmd, auditExportCmd, auditPruneCmd, auditVerifyCmd)

	for _, c := range []*cobra.Command{auditQueryCmd, auditExportCmd, auditVerifyCmd} {
		c.Flags().StringVar(&auditFlags.backend, "backend", "", "backend: sqlite, memory (uses config if not specified)")
		c.Flags().StringVar(&auditFlags.timeRange, "time-range", "", "time range (RFC3339 interval: start/end)")
		c.Flags().StringVar(&auditFlags.run, "run", "", "filter by batch run ID")
		c.Flags().StringVar(&auditFlags.patient, "patient", "", "filter by patient ID")
		c.Flags().StringVar(&auditFlags.ruleset, "ruleset", "", "filter by ruleset ID")
		c.Flags().StringVar(&auditFlags.family, "family", "", "filter by family (event, protocol)")
		c.Flags().StringVar(&auditFlags.outcome, "outcome", "", "filter by outcome")
		c.Flags().StringVar(&auditFlags.category, "category", "", "filter by category (outcome, error, drift)")
		c.Flags().StringVarP(&auditFlags.output, "output", "o", "", "output file (default: stdout)")
	}

	auditQueryCmd.Flags().IntVar(&auditFlags.limit, "limit", query.DefaultLimit, "max results")
	auditQueryCmd.Flags().IntVar(&auditFlags.offset, "offset", 0, "pagination offset")
	auditQueryCmd.Flags().StringVar(&auditFlags.sortBy, "sort-by", "", "sort field: evaluated_at, duration, patient_id, ruleset_id, outcome")
	auditQueryCmd.Flags().StringVar(&auditFlags.sortOrder, "sort-order", "", "sort order: asc, desc")
	auditQueryCmd.Flags().StringVar(&auditFlags.format, "format", "text", "output format: text, json, csv")

	auditExportCmd.Flags().StringVar(&auditFlags.format, "format", "json", "output format: json, csv")

	auditPruneCmd.Flags().StringVar(&auditFlags.backend, "backend", "", "backend: sqlite, memory (uses config if not specified)")
	auditPruneCmd.Flags().IntVar(&auditFlags.days, "days", -1, "retention days, 0 keeps forever (uses config if not specified)")
	auditPruneCmd.Flags().Int64Var(&auditFlags.maxRecords, "max-records", -1, "maximum records to keep, 0 is unlimited (uses config if not specified)")
	auditPruneCmd.Flags().StringVar(&auditFlags.archive, "archive", "", "archive pruned records to this directory")
}

// openAudit loads the configuration and opens the audit store, honoring
// --backend.
func openAudit() (*config.Config, audit.Storage, *slog.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	if auditFlags.backend != "" {
		cfg.Audit.Backend = auditFlags.backend
	}
	store, err := openStorage(cfg.Audit, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, store, logger, nil
}

// buildQuery builds an audit query from the filter flags.
func buildQuery() (*audit.Query, error) {
	q := &audit.Query{
		RunID:     auditFlags.run,
		PatientID: auditFlags.patient,
		RulesetID: auditFlags.ruleset,
		Family:    strings.ToLower(auditFlags.family),
		Outcome:   strings.ToUpper(auditFlags.outcome),
		Category:  audit.Category(strings.ToLower(auditFlags.category)),
		SortBy:    auditFlags.sortBy,
		SortOrder: auditFlags.sortOrder,
	}

	if auditFlags.timeRange != "" {
		start, end, err := parseTimeRange(auditFlags.timeRange)
		if err != nil {
			return nil, cli.NewConfigError("time-range", err.Error())
		}
		q.StartTime, q.EndTime = &start, &end
	}

	if err := query.Validate(q); err != nil {
		return nil, cli.NewConfigError("query", err.Error())
	}
	return q, nil
}

func parseTimeRange(s string) (time.Time, time.Time, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid time range format (expected: start/end)")
	}
	start, err := time.Parse(time.RFC3339, parts[0])
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start time: %w", err)
	}
	end, err := time.Parse(time.RFC3339, parts[1])
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end time: %w", err)
	}
	return start, end, nil
}

func queryAudit(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(auditFlags.format, cli.FormatText, cli.FormatJSON, cli.FormatCSV)
	if err != nil {
		return err
	}
	q, err := buildQuery()
	if err != nil {
		return err
	}
	q.Limit = auditFlags.limit
	q.Offset = auditFlags.offset
	if err := query.Validate(q); err != nil {
		return cli.NewConfigError("query", err.Error())
	}
	query.ApplyDefaults(q)

	_, store, _, err := openAudit()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := commandContext(cmd)
	records, err := store.Query(ctx, q)
	if err != nil {
		return cli.NewCommandError("audit query", err)
	}

	w, closeFn, err := createOutput(auditFlags.output, commandOutput(cmd))
	if err != nil {
		return err
	}
	defer closeFn()

	switch format {
	case cli.FormatJSON:
		return export.NewJSONExporter(true).Export(ctx, records, w)
	case cli.FormatCSV:
		return export.NewCSVExporter(true).Export(ctx, records, w)
	default:
		total, err := store.Count(ctx, q)
		if err != nil {
			return cli.NewCommandError("audit query", err)
		}
		return outputAuditText(w, records, total, q)
	}
}

func outputAuditText(w io.Writer, records []*audit.Record, total int64, q *audit.Query) error {
	if q.StartTime != nil && q.EndTime != nil {
		fmt.Fprintf(w, "Time range: %s to %s\n",
			q.StartTime.Format(time.RFC3339),
			q.EndTime.Format(time.RFC3339))
	}
	fmt.Fprintf(w, "Total records: %d (showing %d from offset %d)\n", total, len(records), q.Offset)

	if len(records) == 0 {
		fmt.Fprintln(w, "No records found.")
		return nil
	}

	for _, r := range records {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Record ID: %s\n", r.ID)
		fmt.Fprintf(w, "Evaluated: %s (%s)\n", r.EvaluatedAt.Format(time.RFC3339), r.Duration)
		fmt.Fprintf(w, "Run: %s\n", r.RunID)
		fmt.Fprintf(w, "Patient: %s  Ruleset: %s (%s)\n", r.PatientID, r.RulesetID, r.Family)
		if r.Category == audit.CategoryDrift {
			fmt.Fprintf(w, "Outcome: %s (was %s) [drift]\n", r.Outcome, r.PreviousOutcome)
		} else {
			fmt.Fprintf(w, "Outcome: %s\n", r.Outcome)
		}
		if r.FailedGate != "" {
			fmt.Fprintf(w, "Failed Gate: %s\n", r.FailedGate)
		}
		if r.HardStopRule != "" {
			fmt.Fprintf(w, "Hard Stop: %s\n", r.HardStopRule)
		}
		if r.Error != "" {
			fmt.Fprintf(w, "Error: %s\n", r.Error)
		}
	}

	if shown := int64(q.Offset + len(records)); shown < total {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "... and %d more records\n", total-shown)
		fmt.Fprintf(w, "Use --limit and --offset for pagination.\n")
	}
	return nil
}

func exportAudit(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(auditFlags.format, cli.FormatJSON, cli.FormatCSV)
	if err != nil {
		return err
	}
	q, err := buildQuery()
	if err != nil {
		return err
	}

	_, store, _, err := openAudit()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := commandContext(cmd)
	recordsCh, errCh, err := store.QueryStream(ctx, q)
	if err != nil {
		return cli.NewCommandError("audit export", err)
	}

	w, closeFn, err := createOutput(auditFlags.output, commandOutput(cmd))
	if err != nil {
		return err
	}
	defer closeFn()

	if format == cli.FormatCSV {
		err = export.NewCSVExporter(true).ExportStream(ctx, recordsCh, w)
	} else {
		err = export.NewJSONExporter(true).ExportStream(ctx, recordsCh, w)
	}
	if err != nil {
		return cli.NewCommandError("audit export", err)
	}
	if err := <-errCh; err != nil {
		return cli.NewCommandError("audit export", err)
	}
	if format == cli.FormatJSON {
		fmt.Fprintln(w)
	}
	return nil
}

func verifyAudit(cmd *cobra.Command, args []string) error {
	q, err := buildQuery()
	if err != nil {
		return err
	}

	_, store, logger, err := openAudit()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := commandContext(cmd)
	recordsCh, errCh, err := store.QueryStream(ctx, q)
	if err != nil {
		return cli.NewCommandError("audit verify", err)
	}

	w, closeFn, err := createOutput(auditFlags.output, commandOutput(cmd))
	if err != nil {
		return err
	}
	defer closeFn()

	fmt.Fprintln(w, "Verifying audit records...")
	fmt.Fprintln(w)

	var total, unhashed, mismatched int
	for r := range recordsCh {
		total++
		if r.ResultJSON == "" && r.ResultHash == "" {
			unhashed++
			continue
		}
		if !recorder.VerifyRecord(r) {
			mismatched++
			logger.Warn("audit record hash mismatch",
				"record_id", r.ID,
				"patient_id", r.PatientID,
				"ruleset_id", r.RulesetID,
			)
			fmt.Fprintf(w, "✗ %s (patient=%s ruleset=%s run=%s): result hash mismatch\n",
				r.ID, r.PatientID, r.RulesetID, r.RunID)
		}
	}
	if err := <-errCh; err != nil {
		return cli.NewCommandError("audit verify", err)
	}

	checked := total - unhashed
	if mismatched == 0 {
		fmt.Fprintf(w, "✓ Hash integrity: %d/%d valid\n", checked, checked)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Summary:")
	fmt.Fprintf(w, "  %d records, %d verified, %d without result, %d mismatched\n",
		total, checked-mismatched, unhashed, mismatched)

	if mismatched > 0 {
		return cli.NewCommandError("audit verify", fmt.Errorf("%d record(s) failed hash verification", mismatched))
	}
	return nil
}

func pruneAudit(cmd *cobra.Command, args []string) error {
	cfg, store, logger, err := openAudit()
	if err != nil {
		return err
	}
	defer store.Close()

	if auditFlags.days >= 0 {
		cfg.Audit.Retention.Days = auditFlags.days
	}
	if auditFlags.maxRecords >= 0 {
		cfg.Audit.Retention.MaxRecords = auditFlags.maxRecords
	}
	if auditFlags.archive != "" {
		cfg.Audit.Retention.ArchivePath = auditFlags.archive
	}

	deleted, err := newPruner(store, cfg.Audit, logger).Prune(commandContext(cmd))
	if err != nil {
		return cli.NewCommandError("audit prune", err)
	}
	fmt.Fprintf(commandOutput(cmd), "Pruned %d record(s)\n", deleted)
	return nil
}

// newPruner creates a retention pruner from the audit configuration. Pruned
// records are archived when an archive path is configured.
func newPruner(store audit.Storage, cfg config.AuditConfig, logger *slog.Logger) *retention.Pruner {
	return retention.NewPruner(store, &retention.Config{
		RetentionDays:       cfg.Retention.Days,
		PruneSchedule:       cfg.Retention.Schedule,
		ArchiveBeforeDelete: cfg.Retention.ArchivePath != "",
		ArchivePath:         cfg.Retention.ArchivePath,
		MaxRecords:          cfg.Retention.MaxRecords,
	}, logger)
}

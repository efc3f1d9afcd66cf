package main

import (
	"bytes"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/Netrion-29/Netrion-cerebralos/pkg/cli"
)

func resetAuditFlags() {
	auditFlags.backend = ""
	auditFlags.timeRange = ""
	auditFlags.run = ""
	auditFlags.patient = ""
	auditFlags.ruleset = ""
	auditFlags.family = ""
	auditFlags.outcome = ""
	auditFlags.category = ""
	auditFlags.limit = 100
	auditFlags.offset = 0
	auditFlags.sortBy = ""
	auditFlags.sortOrder = ""
	auditFlags.format = "text"
	auditFlags.output = ""
	auditFlags.days = -1
	auditFlags.maxRecords = -1
	auditFlags.archive = ""
}

// seedAudit runs an audited batch over the test patients.
func seedAudit(t *testing.T) {
	t.Helper()
	cmd, _ := testCommand(t)
	setBatchFlags()
	batchFlags.audit = true
	if err := runBatch(cmd, nil); err != nil {
		t.Fatalf("runBatch() error = %v", err)
	}
	resetAuditFlags()
}

type auditRow struct {
	RunID     string `json:"run_id"`
	PatientID string `json:"patient_id"`
	RulesetID string `json:"ruleset_id"`
	Outcome   string `json:"outcome"`
	Category  string `json:"category"`
}

func TestAuditQuery(t *testing.T) {
	useAuditDB(t)
	seedAudit(t)

	cmd, buf := testCommand(t)
	auditFlags.format = "json"
	auditFlags.sortBy = "patient_id"
	auditFlags.sortOrder = "asc"
	if err := queryAudit(cmd, nil); err != nil {
		t.Fatalf("queryAudit() error = %v", err)
	}

	var rows []auditRow
	if err := json.Unmarshal(buf.Bytes(), &rows); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	if rows[0].PatientID != "P001" || rows[0].Outcome != "YES" || rows[1].Outcome != "NO" {
		t.Errorf("rows = %+v", rows)
	}
	if rows[0].RunID == "" || rows[0].RunID != rows[1].RunID {
		t.Errorf("run IDs = %q, %q", rows[0].RunID, rows[1].RunID)
	}
	for _, r := range rows {
		if r.Category != "outcome" {
			t.Errorf("category = %q, want outcome on first run", r.Category)
		}
	}
}

func TestAuditQuery_FiltersAndText(t *testing.T) {
	useAuditDB(t)
	seedAudit(t)

	cmd, buf := testCommand(t)
	auditFlags.outcome = "no"
	if err := queryAudit(cmd, nil); err != nil {
		t.Fatalf("queryAudit() error = %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Total records: 1") || !strings.Contains(out, "Patient: P002") {
		t.Errorf("output:\n%s", out)
	}
	if !strings.Contains(out, "Failed Gate: G1_DVT_DX") {
		t.Errorf("failed gate missing:\n%s", out)
	}
	if strings.Contains(out, "P001") {
		t.Errorf("outcome filter not applied:\n%s", out)
	}
}

func TestAuditQuery_Pagination(t *testing.T) {
	useAuditDB(t)
	seedAudit(t)

	cmd, buf := testCommand(t)
	auditFlags.limit = 1
	if err := queryAudit(cmd, nil); err != nil {
		t.Fatalf("queryAudit() error = %v", err)
	}
	if !strings.Contains(buf.String(), "... and 1 more records") {
		t.Errorf("output:\n%s", buf.String())
	}
}

func TestAuditQuery_Errors(t *testing.T) {
	tests := []struct {
		name   string
		modify func()
	}{
		{"bad format", func() { auditFlags.format = "xml" }},
		{"bad time range", func() { auditFlags.timeRange = "yesterday" }},
		{"bad category", func() { auditFlags.category = "weird" }},
		{"bad sort", func() { auditFlags.sortBy = "cost" }},
		{"limit too large", func() { auditFlags.limit = 1000000 }},
		{"bad backend", func() { auditFlags.backend = "postgres" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useAuditDB(t)
			cmd, _ := testCommand(t)
			resetAuditFlags()
			tt.modify()

			err := queryAudit(cmd, nil)
			if err == nil {
				t.Fatal("queryAudit() should fail")
			}
			if code := cli.ExitCode(err); code != cli.ExitInvalidInput {
				t.Errorf("ExitCode(%v) = %d, want %d", err, code, cli.ExitInvalidInput)
			}
		})
	}
}

func TestAuditExport_CSV(t *testing.T) {
	useAuditDB(t)
	seedAudit(t)

	cmd, buf := testCommand(t)
	auditFlags.format = "csv"
	if err := exportAudit(cmd, nil); err != nil {
		t.Fatalf("exportAudit() error = %v", err)
	}

	rows, err := csv.NewReader(bytes.NewReader(buf.Bytes())).ReadAll()
	if err != nil {
		t.Fatalf("output is not CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Errorf("len(rows) = %d, want header plus 2", len(rows))
	}
}

func TestAuditExport_JSON(t *testing.T) {
	useAuditDB(t)
	seedAudit(t)

	cmd, buf := testCommand(t)
	auditFlags.format = "json"
	auditFlags.patient = "P001"
	if err := exportAudit(cmd, nil); err != nil {
		t.Fatalf("exportAudit() error = %v", err)
	}

	var rows []auditRow
	if err := json.Unmarshal(buf.Bytes(), &rows); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if len(rows) != 1 || rows[0].PatientID != "P001" {
		t.Errorf("rows = %+v", rows)
	}
}

func TestAuditPrune(t *testing.T) {
	useAuditDB(t)
	seedAudit(t)

	cmd, buf := testCommand(t)
	auditFlags.days = 0
	auditFlags.maxRecords = 1
	auditFlags.archive = t.TempDir()
	if err := pruneAudit(cmd, nil); err != nil {
		t.Fatalf("pruneAudit() error = %v", err)
	}
	if !strings.HasPrefix(buf.String(), "Pruned ") || strings.HasPrefix(buf.String(), "Pruned 0 ") {
		t.Errorf("output = %q", buf.String())
	}

	cmd, buf = testCommand(t)
	resetAuditFlags()
	auditFlags.format = "json"
	if err := queryAudit(cmd, nil); err != nil {
		t.Fatalf("queryAudit() error = %v", err)
	}
	var rows []auditRow
	if err := json.Unmarshal(buf.Bytes(), &rows); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if len(rows) > 1 {
		t.Errorf("%d records left, want at most 1", len(rows))
	}
}

func TestAuditVerify(t *testing.T) {
	path := useAuditDB(t)
	seedAudit(t)

	cmd, buf := testCommand(t)
	if err := verifyAudit(cmd, nil); err != nil {
		t.Fatalf("verifyAudit() on an untouched trail error = %v\n%s", err, buf.String())
	}
	if !strings.Contains(buf.String(), "0 mismatched") {
		t.Errorf("output = %q", buf.String())
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open() error = %v", err)
	}
	res, err := db.Exec(`UPDATE audit_records SET result_json = result_json || ' '
		WHERE rowid = (SELECT MIN(rowid) FROM audit_records WHERE result_json IS NOT NULL)`)
	if err != nil {
		t.Fatalf("tampering update failed: %v", err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		t.Fatalf("updated %d rows, want 1", n)
	}
	db.Close()

	cmd, buf = testCommand(t)
	err = verifyAudit(cmd, nil)
	if err == nil {
		t.Fatal("verifyAudit() should fail on an edited result")
	}
	if code := cli.ExitCode(err); code != cli.ExitFailure {
		t.Errorf("ExitCode() = %d, want %d", code, cli.ExitFailure)
	}
	out := buf.String()
	if !strings.Contains(out, "result hash mismatch") || !strings.Contains(out, "1 mismatched") {
		t.Errorf("output = %q", out)
	}
}

func TestParseTimeRange(t *testing.T) {
	start, end, err := parseTimeRange("2026-01-01T00:00:00Z/2026-02-01T00:00:00Z")
	if err != nil {
		t.Fatalf("parseTimeRange() error = %v", err)
	}
	if !start.Before(end) {
		t.Errorf("start %v not before end %v", start, end)
	}

	for _, bad := range []string{"", "2026-01-01", "2026-01-01T00:00:00Z/later", "x/2026-01-01T00:00:00Z"} {
		if _, _, err := parseTimeRange(bad); err == nil {
			t.Errorf("parseTimeRange(%q) should fail", bad)
		}
	}
}

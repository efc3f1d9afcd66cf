package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements that create the audit schema.
// Times are stored as Unix nanoseconds so both drivers round-trip them
// identically.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_records (
    id TEXT PRIMARY KEY,
    run_id TEXT NOT NULL,

    -- Subject
    patient_id TEXT NOT NULL,
    ruleset_id TEXT NOT NULL,
    family TEXT NOT NULL,

    -- Decision
    outcome TEXT NOT NULL,
    previous_outcome TEXT,
    category TEXT NOT NULL,
    failed_gate TEXT,
    hard_stop_rule TEXT,
    warnings TEXT,
    error TEXT,
    gate_count INTEGER NOT NULL DEFAULT 0,

    -- Timing
    evaluated_at INTEGER NOT NULL,
    duration INTEGER NOT NULL DEFAULT 0,

    -- Payload
    result_hash TEXT,
    result_json TEXT
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_evaluated_at ON audit_records(evaluated_at);
CREATE INDEX IF NOT EXISTS idx_audit_subject ON audit_records(patient_id, ruleset_id, evaluated_at);
CREATE INDEX IF NOT EXISTS idx_audit_run_id ON audit_records(run_id);
CREATE INDEX IF NOT EXISTS idx_audit_outcome ON audit_records(outcome);
CREATE INDEX IF NOT EXISTS idx_audit_category ON audit_records(category);
`

// InsertSchemaVersion records the schema version.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the current schema version.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`

// recordColumns lists the columns in scan order.
const recordColumns = `id, run_id, patient_id, ruleset_id, family,
    outcome, previous_outcome, category, failed_gate, hard_stop_rule, warnings, error, gate_count,
    evaluated_at, duration, result_hash, result_json`

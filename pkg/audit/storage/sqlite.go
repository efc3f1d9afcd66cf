package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/Netrion-29/Netrion-cerebralos/pkg/audit"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/audit/query"
)

const (
	// DriverCGO selects github.com/mattn/go-sqlite3.
	DriverCGO = "sqlite3"

	// DriverModernc selects the pure-Go modernc.org/sqlite.
	DriverModernc = "sqlite"
)

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// Driver is the database/sql driver name, DriverCGO or DriverModernc.
	// Default: DriverModernc
	Driver string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables write-ahead logging.
	// Default: true
	WALMode bool

	// BusyTimeout is how long to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/audit.db",
		Driver:       DriverModernc,
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements audit.Storage using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

var _ audit.Storage = (*SQLiteStorage)(nil)

// NewSQLiteStorage opens the database, enables WAL mode if configured and
// creates the schema.
func NewSQLiteStorage(config *SQLiteConfig, logger *slog.Logger) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	cfg := *config
	if cfg.Driver == "" {
		cfg.Driver = DriverModernc
	}
	if cfg.Driver != DriverCGO && cfg.Driver != DriverModernc {
		return nil, audit.NewStorageError("sqlite", "open", fmt.Errorf("unknown driver %q", cfg.Driver))
	}
	if cfg.Path == "" {
		return nil, audit.NewStorageError("sqlite", "open", errors.New("path cannot be empty"))
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "audit.storage.sqlite")

	db, err := sql.Open(cfg.Driver, cfg.Path)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "open", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	s := &SQLiteStorage{
		db:     db,
		config: &cfg,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite audit storage initialized",
		"path", cfg.Path,
		"driver", cfg.Driver,
		"wal_mode", cfg.WALMode,
	)

	return s, nil
}

func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return audit.NewStorageError("sqlite", "enable_wal", err)
		}
	}

	if s.config.BusyTimeout > 0 {
		pragma := fmt.Sprintf("PRAGMA busy_timeout=%d;", s.config.BusyTimeout.Milliseconds())
		if _, err := s.db.Exec(pragma); err != nil {
			return audit.NewStorageError("sqlite", "set_busy_timeout", err)
		}
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return audit.NewStorageError("sqlite", "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return audit.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return audit.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return audit.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	s.logger.Debug("schema version verified", "version", version)
	return nil
}

// Store persists a record.
func (s *SQLiteStorage) Store(ctx context.Context, record *audit.Record) error {
	warnings, err := json.Marshal(record.Warnings)
	if err != nil {
		return audit.NewStorageError("sqlite", "store", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO audit_records (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.RunID, record.PatientID, record.RulesetID, record.Family,
		record.Outcome, nullString(record.PreviousOutcome), string(record.Category),
		nullString(record.FailedGate), nullString(record.HardStopRule), string(warnings),
		nullString(record.Error), record.GateCount,
		record.EvaluatedAt.UnixNano(), int64(record.Duration),
		nullString(record.ResultHash), nullString(record.ResultJSON),
	)
	if err != nil {
		return audit.NewStorageError("sqlite", "store", err)
	}
	return nil
}

// Query retrieves records matching the query filters. A zero Limit returns
// every match.
func (s *SQLiteStorage) Query(ctx context.Context, q *audit.Query) ([]*audit.Record, error) {
	sqlQuery, args := s.selectQuery(q)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	records := []*audit.Record{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, audit.NewStorageError("sqlite", "scan", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, audit.NewStorageError("sqlite", "query", err)
	}
	return records, nil
}

// QueryStream streams matching records without loading them all in memory.
func (s *SQLiteStorage) QueryStream(ctx context.Context, q *audit.Query) (<-chan *audit.Record, <-chan error, error) {
	recordsCh := make(chan *audit.Record, 100)
	errCh := make(chan error, 1)
	sqlQuery, args := s.selectQuery(q)

	go func() {
		defer close(recordsCh)
		defer close(errCh)

		rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
		if err != nil {
			errCh <- audit.NewStorageError("sqlite", "query_stream", err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			record, err := scanRecord(rows)
			if err != nil {
				errCh <- audit.NewStorageError("sqlite", "scan", err)
				return
			}

			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case recordsCh <- record:
			}
		}

		if err := rows.Err(); err != nil {
			errCh <- audit.NewStorageError("sqlite", "query_stream", err)
		}
	}()

	return recordsCh, errCh, nil
}

// Count returns the number of records matching the query filters.
func (s *SQLiteStorage) Count(ctx context.Context, q *audit.Query) (int64, error) {
	where, args := buildWhereClause(q)
	sqlQuery := "SELECT COUNT(*) FROM audit_records" + where

	var count int64
	if err := s.db.QueryRowContext(ctx, sqlQuery, args...).Scan(&count); err != nil {
		return 0, audit.NewStorageError("sqlite", "count", err)
	}
	return count, nil
}

// Delete removes records matching the query filters.
func (s *SQLiteStorage) Delete(ctx context.Context, q *audit.Query) (int64, error) {
	where, args := buildWhereClause(q)

	result, err := s.db.ExecContext(ctx, "DELETE FROM audit_records"+where, args...)
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "delete", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "delete", err)
	}
	return count, nil
}

// Latest returns the most recent record for patientID and rulesetID.
func (s *SQLiteStorage) Latest(ctx context.Context, patientID, rulesetID string) (*audit.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM audit_records
		WHERE patient_id = ? AND ruleset_id = ?
		ORDER BY evaluated_at DESC, id DESC LIMIT 1`,
		patientID, rulesetID)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "latest", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, audit.NewStorageError("sqlite", "latest", err)
		}
		return nil, nil
	}
	record, err := scanRecord(rows)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "scan", err)
	}
	return record, nil
}

// Close releases the database connection.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return audit.NewStorageError("sqlite", "close", err)
	}
	s.logger.Info("SQLite audit storage closed")
	return nil
}

func (s *SQLiteStorage) selectQuery(q *audit.Query) (string, []any) {
	where, args := buildWhereClause(q)
	sortBy, order := query.OrderBy(q)

	var b strings.Builder
	b.WriteString("SELECT " + recordColumns + " FROM audit_records")
	b.WriteString(where)
	fmt.Fprintf(&b, " ORDER BY %s %s, id %s", sortBy, strings.ToUpper(order), strings.ToUpper(order))

	switch {
	case q.Limit > 0:
		fmt.Fprintf(&b, " LIMIT %d", q.Limit)
	case q.Offset > 0:
		// SQLite requires a LIMIT before OFFSET.
		b.WriteString(" LIMIT -1")
	}
	if q.Offset > 0 {
		fmt.Fprintf(&b, " OFFSET %d", q.Offset)
	}
	return b.String(), args
}

// buildWhereClause returns the WHERE clause (with a leading space and the
// keyword, or empty) and its arguments.
func buildWhereClause(q *audit.Query) (string, []any) {
	var conditions []string
	var args []any

	add := func(cond string, arg any) {
		conditions = append(conditions, cond)
		args = append(args, arg)
	}

	if q.StartTime != nil {
		add("evaluated_at >= ?", q.StartTime.UnixNano())
	}
	if q.EndTime != nil {
		add("evaluated_at <= ?", q.EndTime.UnixNano())
	}
	if q.RunID != "" {
		add("run_id = ?", q.RunID)
	}
	if q.PatientID != "" {
		add("patient_id = ?", q.PatientID)
	}
	if q.RulesetID != "" {
		add("ruleset_id = ?", q.RulesetID)
	}
	if q.Family != "" {
		add("family = ?", q.Family)
	}
	if q.Outcome != "" {
		add("outcome = ?", q.Outcome)
	}
	if q.Category != "" {
		add("category = ?", string(q.Category))
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func scanRecord(rows *sql.Rows) (*audit.Record, error) {
	var record audit.Record
	var previous, failedGate, hardStop, warnings, errVal, hash, resultJSON sql.NullString
	var category string
	var evaluatedAt, duration int64

	err := rows.Scan(
		&record.ID, &record.RunID, &record.PatientID, &record.RulesetID, &record.Family,
		&record.Outcome, &previous, &category, &failedGate, &hardStop, &warnings, &errVal, &record.GateCount,
		&evaluatedAt, &duration, &hash, &resultJSON,
	)
	if err != nil {
		return nil, err
	}

	record.PreviousOutcome = previous.String
	record.Category = audit.Category(category)
	record.FailedGate = failedGate.String
	record.HardStopRule = hardStop.String
	record.Error = errVal.String
	record.ResultHash = hash.String
	record.ResultJSON = resultJSON.String
	record.EvaluatedAt = time.Unix(0, evaluatedAt).UTC()
	record.Duration = time.Duration(duration)

	if warnings.Valid && warnings.String != "" && warnings.String != "null" {
		if err := json.Unmarshal([]byte(warnings.String), &record.Warnings); err != nil {
			return nil, fmt.Errorf("decode warnings: %w", err)
		}
	}
	return &record, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

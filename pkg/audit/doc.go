// Package audit provides an append-only trail of gate-engine evaluations.
//
// Each call to the engine produces one Record: who was evaluated, against
// which ruleset, the outcome, the gate that halted evaluation and the full
// serialized result. Records are kept outside the pure evaluation core; the
// engine never reads them back.
//
// # Architecture
//
//  1. Recorder - turns engine results into records asynchronously
//  2. Storage backend - persists records (memory or SQLite)
//  3. Query, export and retention - read, archive and prune the trail
//
// # Categories
//
// Records are categorized when written:
//   - outcome: a normal evaluation
//   - error: the evaluation ended in ERROR
//   - drift: the outcome differs from the previous record for the same
//     patient and ruleset
//
// # Basic Usage
//
//	store, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{
//	    Path:    "data/audit.db",
//	    Driver:  storage.DriverModernc,
//	    WALMode: true,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	rec := recorder.NewRecorder(store, nil, logger)
//	defer rec.Close()
//
//	rec.RecordResult(ctx, runID, result, elapsed)
//
// # Querying
//
//	records, err := store.Query(ctx, &audit.Query{
//	    RulesetID: "NTDS_DVT",
//	    Category:  audit.CategoryDrift,
//	    Limit:     100,
//	})
//
// All storage backends are safe for concurrent use.
package audit

package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/Netrion-29/Netrion-cerebralos/pkg/audit"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/audit/query"
)

// MemoryStorage implements audit.Storage with an in-memory map.
// It is intended for tests and one-shot CLI runs.
type MemoryStorage struct {
	records map[string]*audit.Record
	mu      sync.RWMutex
}

var _ audit.Storage = (*MemoryStorage)(nil)

// NewMemoryStorage creates a new in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string]*audit.Record),
	}
}

// Store persists a copy of record.
func (s *MemoryStorage) Store(ctx context.Context, record *audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[record.ID] = copyRecord(record)
	return nil
}

// Query retrieves records matching the query filters. A zero Limit returns
// every match.
func (s *MemoryStorage) Query(ctx context.Context, q *audit.Query) ([]*audit.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.selectLocked(q), nil
}

// QueryStream streams matching records over a buffered channel.
func (s *MemoryStorage) QueryStream(ctx context.Context, q *audit.Query) (<-chan *audit.Record, <-chan error, error) {
	recordsCh := make(chan *audit.Record, 100)
	errCh := make(chan error, 1)

	s.mu.RLock()
	selected := s.selectLocked(q)
	s.mu.RUnlock()

	go func() {
		defer close(recordsCh)
		defer close(errCh)

		for _, record := range selected {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case recordsCh <- record:
			}
		}
	}()

	return recordsCh, errCh, nil
}

// Count returns the number of records matching the query filters.
func (s *MemoryStorage) Count(ctx context.Context, q *audit.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, record := range s.records {
		if q.Matches(record) {
			count++
		}
	}
	return count, nil
}

// Delete removes records matching the query filters.
func (s *MemoryStorage) Delete(ctx context.Context, q *audit.Query) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, record := range s.records {
		if q.Matches(record) {
			delete(s.records, id)
			deleted++
		}
	}
	return deleted, nil
}

// Latest returns the most recent record for patientID and rulesetID.
func (s *MemoryStorage) Latest(ctx context.Context, patientID, rulesetID string) (*audit.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *audit.Record
	for _, record := range s.records {
		if record.PatientID != patientID || record.RulesetID != rulesetID {
			continue
		}
		if latest == nil || record.EvaluatedAt.After(latest.EvaluatedAt) {
			latest = record
		}
	}
	if latest == nil {
		return nil, nil
	}
	return copyRecord(latest), nil
}

// Close drops all records.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]*audit.Record)
	return nil
}

// Size returns the number of stored records.
func (s *MemoryStorage) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}

// selectLocked filters, sorts and paginates. Callers hold s.mu.
func (s *MemoryStorage) selectLocked(q *audit.Query) []*audit.Record {
	results := []*audit.Record{}
	for _, record := range s.records {
		if q.Matches(record) {
			results = append(results, copyRecord(record))
		}
	}

	sortRecords(results, q)

	if q.Offset >= len(results) {
		return []*audit.Record{}
	}
	results = results[q.Offset:]
	if q.Limit > 0 && q.Limit < len(results) {
		results = results[:q.Limit]
	}
	return results
}

func sortRecords(records []*audit.Record, q *audit.Query) {
	sortBy, order := query.OrderBy(q)
	less := func(a, b *audit.Record) bool {
		switch sortBy {
		case "duration":
			return a.Duration < b.Duration
		case "patient_id":
			return a.PatientID < b.PatientID
		case "ruleset_id":
			return a.RulesetID < b.RulesetID
		case "outcome":
			return a.Outcome < b.Outcome
		default:
			return a.EvaluatedAt.Before(b.EvaluatedAt)
		}
	}
	// Map iteration order is random; ties fall back to ID order.
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	sort.SliceStable(records, func(i, j int) bool {
		if order == "asc" {
			return less(records[i], records[j])
		}
		return less(records[j], records[i])
	})
}

func copyRecord(r *audit.Record) *audit.Record {
	c := *r
	if r.Warnings != nil {
		c.Warnings = append([]string(nil), r.Warnings...)
	}
	return &c
}

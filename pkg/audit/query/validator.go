// Package query validates and normalizes audit queries.
package query

import (
	"fmt"

	"github.com/Netrion-29/Netrion-cerebralos/pkg/audit"
)

const (
	// DefaultLimit is the number of records returned when none is specified.
	DefaultLimit = 100

	// MaxLimit is the largest page a single query may request.
	MaxLimit = 10000

	// DefaultSortBy is the default sort column.
	DefaultSortBy = "evaluated_at"
)

// ValidSortFields contains the fields that can be used for sorting.
var ValidSortFields = map[string]bool{
	"evaluated_at": true,
	"duration":     true,
	"patient_id":   true,
	"ruleset_id":   true,
	"outcome":      true,
}

// ValidSortOrders contains the valid sort orders.
var ValidSortOrders = map[string]bool{
	"asc":  true,
	"desc": true,
}

// Validate returns a QueryError when any parameter of q is invalid.
func Validate(q *audit.Query) error {
	if q.Limit < 0 {
		return audit.NewQueryError(q, fmt.Errorf("limit must be >= 0, got %d", q.Limit))
	}
	if q.Limit > MaxLimit {
		return audit.NewQueryError(q, fmt.Errorf("limit must be <= %d, got %d", MaxLimit, q.Limit))
	}

	if q.Offset < 0 {
		return audit.NewQueryError(q, fmt.Errorf("offset must be >= 0, got %d", q.Offset))
	}

	if q.SortBy != "" && !ValidSortFields[q.SortBy] {
		return audit.NewQueryError(q, fmt.Errorf("invalid sort field: %s", q.SortBy))
	}

	if q.SortOrder != "" && !ValidSortOrders[q.SortOrder] {
		return audit.NewQueryError(q, fmt.Errorf("invalid sort order: %s (must be 'asc' or 'desc')", q.SortOrder))
	}

	if q.StartTime != nil && q.EndTime != nil && q.StartTime.After(*q.EndTime) {
		return audit.NewQueryError(q, fmt.Errorf("start_time must be before end_time"))
	}

	if q.Category != "" && !q.Category.IsValid() {
		return audit.NewQueryError(q, fmt.Errorf("invalid category: %s (must be 'outcome', 'error', or 'drift')", q.Category))
	}

	return nil
}

// ApplyDefaults fills in the default limit and sort.
func ApplyDefaults(q *audit.Query) {
	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}
	if q.SortBy == "" {
		q.SortBy = DefaultSortBy
	}
	if q.SortOrder == "" {
		q.SortOrder = "desc"
	}
}

// OrderBy returns a safe sort column and direction for q, falling back to
// the defaults for anything outside the allowed sets.
func OrderBy(q *audit.Query) (string, string) {
	sortBy, order := DefaultSortBy, "desc"
	if ValidSortFields[q.SortBy] {
		sortBy = q.SortBy
	}
	if ValidSortOrders[q.SortOrder] {
		order = q.SortOrder
	}
	return sortBy, order
}

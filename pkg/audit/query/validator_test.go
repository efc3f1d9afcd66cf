package query

import (
	"errors"
	"testing"
	"time"

	"github.com/Netrion-29/Netrion-cerebralos/pkg/audit"
)

func TestValidate(t *testing.T) {
	early := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)

	tests := []struct {
		name    string
		query   audit.Query
		wantErr bool
	}{
		{"empty", audit.Query{}, false},
		{"full", audit.Query{Limit: 10, Offset: 5, SortBy: "duration", SortOrder: "asc", Category: audit.CategoryDrift}, false},
		{"negative limit", audit.Query{Limit: -1}, true},
		{"limit too large", audit.Query{Limit: MaxLimit + 1}, true},
		{"negative offset", audit.Query{Offset: -1}, true},
		{"bad sort field", audit.Query{SortBy: "result_json; DROP TABLE"}, true},
		{"bad sort order", audit.Query{SortOrder: "up"}, true},
		{"inverted range", audit.Query{StartTime: &late, EndTime: &early}, true},
		{"bad category", audit.Query{Category: "noise"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&tt.query)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			var qe *audit.QueryError
			if err != nil && !errors.As(err, &qe) {
				t.Errorf("error %T is not a QueryError", err)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	q := &audit.Query{}
	ApplyDefaults(q)
	if q.Limit != DefaultLimit || q.SortBy != "evaluated_at" || q.SortOrder != "desc" {
		t.Errorf("ApplyDefaults() = %+v", q)
	}

	q = &audit.Query{Limit: 5, SortBy: "duration", SortOrder: "asc"}
	ApplyDefaults(q)
	if q.Limit != 5 || q.SortBy != "duration" || q.SortOrder != "asc" {
		t.Errorf("ApplyDefaults() overwrote explicit values: %+v", q)
	}
}

func TestOrderBy(t *testing.T) {
	sortBy, order := OrderBy(&audit.Query{SortBy: "id; --", SortOrder: "sideways"})
	if sortBy != "evaluated_at" || order != "desc" {
		t.Errorf("OrderBy() = %s %s, want defaults", sortBy, order)
	}
	sortBy, order = OrderBy(&audit.Query{SortBy: "patient_id", SortOrder: "asc"})
	if sortBy != "patient_id" || order != "asc" {
		t.Errorf("OrderBy() = %s %s", sortBy, order)
	}
}

package facts

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrInvalidTimestamp is returned when a timestamp is empty or matches no known layout.
	ErrInvalidTimestamp = errors.New("invalid timestamp")

	// ErrMissingFact is returned when a required scalar fact is absent.
	ErrMissingFact = errors.New("missing fact")
)

// timestampLayouts are tried in order. Layouts without a zone are read as UTC
// wall-clock time and marked unzoned.
var timestampLayouts = []struct {
	layout string
	zoned  bool
}{
	{"2006-01-02T15:04:05Z", true},
	{"2006-01-02T15:04:05", false},
	{"2006-01-02 15:04:05", false},
	{"2006-01-02 15:04", false},
	{"01/02/06 1504", false},
	{"01/02/2006 1504", false},
	{"01/02/2006 15:04", false},
	{"01/02/06 15:04", false},
	{time.RFC3339, true},
}

// Timestamp is a parsed clinical timestamp. Zoned reports whether the source
// text carried a zone; unzoned values hold their wall-clock time as UTC.
type Timestamp struct {
	time.Time
	Zoned bool
}

// Comparable reports whether t and o can be ordered. A zoned and an unzoned
// timestamp cannot: the offset of the unzoned one is unknown.
func (t Timestamp) Comparable(o Timestamp) bool {
	return t.Zoned == o.Zoned
}

// ParseTimestamp parses a clinical timestamp in any of the supported layouts.
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Timestamp{}, ErrInvalidTimestamp
	}
	for _, l := range timestampLayouts {
		if t, err := time.Parse(l.layout, s); err == nil {
			return Timestamp{Time: t.UTC(), Zoned: l.zoned}, nil
		}
	}
	return Timestamp{}, ErrInvalidTimestamp
}

package ast

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ConditionType distinguishes the parsed forms of a condition string.
type ConditionType string

const (
	// ConditionThreshold is "parameter:operator:value", e.g. "gcs:<=:8".
	ConditionThreshold ConditionType = "threshold"

	// ConditionTemporal is "temporal:within:N:unit:pattern_key".
	ConditionTemporal ConditionType = "temporal"

	// ConditionReference is a pattern key, or a keyword when the library has no such key.
	ConditionReference ConditionType = "reference"
)

// Operator is a numeric comparison operator.
type Operator string

const (
	OpLessThan       Operator = "<"
	OpLessOrEqual    Operator = "<="
	OpGreaterThan    Operator = ">"
	OpGreaterOrEqual Operator = ">="
	OpEqual          Operator = "=="
	OpNotEqual       Operator = "!="
)

// Valid reports whether o is a supported operator.
func (o Operator) Valid() bool {
	switch o {
	case OpLessThan, OpLessOrEqual, OpGreaterThan, OpGreaterOrEqual, OpEqual, OpNotEqual:
		return true
	}
	return false
}

var temporalUnits = map[string]time.Duration{
	"minute":  time.Minute,
	"minutes": time.Minute,
	"hour":    time.Hour,
	"hours":   time.Hour,
	"day":     24 * time.Hour,
	"days":    24 * time.Hour,
}

// MaxTemporalWindow bounds a temporal condition's window.
const MaxTemporalWindow = 10 * 365 * 24 * time.Hour

// Condition is one entry of a gate's condition list.
type Condition struct {
	Type ConditionType
	Raw  string

	// Threshold fields.
	Parameter string
	Operator  Operator
	Value     float64

	// Temporal fields.
	WindowValue int
	WindowUnit  string
	Within      time.Duration

	// Ref is the pattern reference ("key" or "key@SOURCE") for temporal and
	// reference conditions.
	Ref string
}

// String returns the original condition text.
func (c *Condition) String() string {
	return c.Raw
}

// ParseCondition classifies raw as threshold, temporal or reference.
// Only a string that starts with "temporal:" but is malformed is an error;
// strings that merely look like thresholds fall back to references.
func ParseCondition(raw string) (*Condition, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, fmt.Errorf("empty condition")
	}

	if strings.HasPrefix(strings.ToLower(s), "temporal:") {
		return parseTemporal(s)
	}

	if parts := strings.Split(s, ":"); len(parts) == 3 {
		op := Operator(strings.TrimSpace(parts[1]))
		value, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		if op.Valid() && err == nil {
			return &Condition{
				Type:      ConditionThreshold,
				Raw:       s,
				Parameter: strings.ToLower(strings.TrimSpace(parts[0])),
				Operator:  op,
				Value:     value,
			}, nil
		}
	}

	return &Condition{Type: ConditionReference, Raw: s, Ref: s}, nil
}

func parseTemporal(s string) (*Condition, error) {
	parts := strings.SplitN(s, ":", 5)
	if len(parts) != 5 || strings.ToLower(parts[1]) != "within" {
		return nil, fmt.Errorf("temporal condition %q: want temporal:within:<N>:<unit>:<pattern_key>", s)
	}
	n, err := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err != nil || n < 0 {
		return nil, fmt.Errorf("temporal condition %q: invalid window %q", s, parts[2])
	}
	unit := strings.ToLower(strings.TrimSpace(parts[3]))
	d, ok := temporalUnits[unit]
	if !ok {
		return nil, fmt.Errorf("temporal condition %q: unsupported unit %q (use minutes, hours or days)", s, parts[3])
	}
	if time.Duration(n) > MaxTemporalWindow/d {
		return nil, fmt.Errorf("temporal condition %q: window %d %s exceeds %s", s, n, unit, MaxTemporalWindow)
	}
	ref := strings.TrimSpace(parts[4])
	if ref == "" {
		return nil, fmt.Errorf("temporal condition %q: missing pattern key", s)
	}
	return &Condition{
		Type:        ConditionTemporal,
		Raw:         s,
		WindowValue: n,
		WindowUnit:  unit,
		Within:      time.Duration(n) * d,
		Ref:         ref,
	}, nil
}

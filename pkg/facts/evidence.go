package facts

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// SourceType identifies the kind of clinical document an evidence block came from.
type SourceType string

const (
	SourcePhysicianNote SourceType = "PHYSICIAN_NOTE"
	SourceConsultNote   SourceType = "CONSULT_NOTE"
	SourceNursingNote   SourceType = "NURSING_NOTE"
	SourceImaging       SourceType = "IMAGING"
	SourceLab           SourceType = "LAB"
	SourceMAR           SourceType = "MAR" // Medication Administration Record
	SourceProcedure     SourceType = "PROCEDURE"
	SourceDischarge     SourceType = "DISCHARGE"
	SourceEDNote        SourceType = "ED_NOTE"
	SourceProgressNote  SourceType = "PROGRESS_NOTE"
	SourceOperativeNote SourceType = "OPERATIVE_NOTE"
	SourceTraumaHP      SourceType = "TRAUMA_HP"
	SourceRadiology     SourceType = "RADIOLOGY"
	SourceUnknown       SourceType = "UNKNOWN"
)

var knownSources = map[SourceType]bool{
	SourcePhysicianNote: true,
	SourceConsultNote:   true,
	SourceNursingNote:   true,
	SourceImaging:       true,
	SourceLab:           true,
	SourceMAR:           true,
	SourceProcedure:     true,
	SourceDischarge:     true,
	SourceEDNote:        true,
	SourceProgressNote:  true,
	SourceOperativeNote: true,
	SourceTraumaHP:      true,
	SourceRadiology:     true,
	SourceUnknown:       true,
}

// ParseSourceType normalizes s to a known SourceType.
// The boolean reports whether s named a known type; unknown values map to SourceUnknown.
func ParseSourceType(s string) (SourceType, bool) {
	st := SourceType(strings.ToUpper(strings.TrimSpace(s)))
	if knownSources[st] {
		return st, true
	}
	return SourceUnknown, false
}

// IsKnown reports whether st is one of the defined source types.
func (st SourceType) IsKnown() bool {
	return knownSources[st]
}

// UnmarshalYAML maps unrecognized source types to UNKNOWN instead of failing.
func (st *SourceType) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	*st, _ = ParseSourceType(raw)
	return nil
}

// Pointer is opaque provenance for an evidence block (file, line, offset, ...).
type Pointer map[string]string

// Evidence is one timestamped, source-typed excerpt of clinical text.
type Evidence struct {
	SourceType SourceType `json:"source_type" yaml:"source_type"`
	Timestamp  string     `json:"timestamp,omitempty" yaml:"timestamp"`
	Text       string     `json:"text" yaml:"text"`
	Pointer    Pointer    `json:"pointer,omitempty" yaml:"pointer"`
}

// Time parses the block timestamp. It returns ErrInvalidTimestamp when the
// block has no timestamp or it cannot be parsed.
func (e Evidence) Time() (Timestamp, error) {
	return ParseTimestamp(e.Timestamp)
}

// DefaultArrivalField is the fact consulted when a gate does not name one.
const DefaultArrivalField = "arrival_time"

// PatientFacts is the complete evidence set for one patient.
type PatientFacts struct {
	PatientID string            `json:"patient_id,omitempty" yaml:"patient_id"`
	Facts     map[string]string `json:"facts,omitempty" yaml:"facts"`
	Evidence  []Evidence        `json:"evidence" yaml:"evidence"`
}

// Fact returns a scalar fact by name.
func (p *PatientFacts) Fact(name string) (string, bool) {
	if p == nil || p.Facts == nil {
		return "", false
	}
	v, ok := p.Facts[name]
	return v, ok
}

// Arrival parses the arrival timestamp stored under field, or under
// DefaultArrivalField when field is empty.
func (p *PatientFacts) Arrival(field string) (Timestamp, error) {
	if field == "" {
		field = DefaultArrivalField
	}
	raw, ok := p.Fact(field)
	if !ok || strings.TrimSpace(raw) == "" {
		return Timestamp{}, fmt.Errorf("fact %q: %w", field, ErrMissingFact)
	}
	t, err := ParseTimestamp(raw)
	if err != nil {
		return Timestamp{}, fmt.Errorf("fact %q: %w", field, err)
	}
	return t, nil
}

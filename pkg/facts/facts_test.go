package facts

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		input     string
		want      time.Time
		wantZoned bool
		wantErr   bool
	}{
		{"iso zulu", "2026-01-15T10:00:00Z", want, true, false},
		{"iso naive", "2026-01-15T10:00:00", want, false, false},
		{"space seconds", "2026-01-15 10:00:00", want, false, false},
		{"space minutes", "2026-01-15 10:00", want, false, false},
		{"us short year military", "01/15/26 1000", want, false, false},
		{"us long year military", "01/15/2026 1000", want, false, false},
		{"us long year colon", "01/15/2026 10:00", want, false, false},
		{"us short year colon", "01/15/26 10:00", want, false, false},
		{"rfc3339 offset", "2026-01-15T05:00:00-05:00", want, true, false},
		{"surrounding space", "  2026-01-15 10:00  ", want, false, false},
		{"empty", "", time.Time{}, false, true},
		{"garbage", "yesterday", time.Time{}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimestamp(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTimestamp(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTimestamp) {
					t.Errorf("expected ErrInvalidTimestamp, got %v", err)
				}
				return
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if got.Zoned != tt.wantZoned {
				t.Errorf("ParseTimestamp(%q).Zoned = %v, want %v", tt.input, got.Zoned, tt.wantZoned)
			}
		})
	}
}

func TestTimestamp_Comparable(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"2026-01-15T10:00:00", "01/15/2026 1100", true},
		{"2026-01-15T10:00:00Z", "2026-01-15T09:30:00-05:00", true},
		{"2026-01-15T10:00:00", "2026-01-15T09:30:00-05:00", false},
		{"2026-01-15T10:00:00Z", "2026-01-15 10:00", false},
	}
	for _, tt := range tests {
		a, err := ParseTimestamp(tt.a)
		if err != nil {
			t.Fatal(err)
		}
		b, err := ParseTimestamp(tt.b)
		if err != nil {
			t.Fatal(err)
		}
		if got := a.Comparable(b); got != tt.want {
			t.Errorf("Comparable(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestPatientFacts_Arrival(t *testing.T) {
	p := &PatientFacts{Facts: map[string]string{
		"arrival_time": "2026-01-15T10:00:00",
		"ed_arrival":   "01/15/2026 0930",
		"bad":          "not a time",
	}}

	if got, err := p.Arrival(""); err != nil || got.Hour() != 10 {
		t.Errorf("Arrival(\"\") = %v, %v", got, err)
	}
	if got, err := p.Arrival("ed_arrival"); err != nil || got.Minute() != 30 {
		t.Errorf("Arrival(ed_arrival) = %v, %v", got, err)
	}
	if _, err := p.Arrival("missing"); !errors.Is(err, ErrMissingFact) {
		t.Errorf("expected ErrMissingFact, got %v", err)
	}
	if _, err := p.Arrival("bad"); !errors.Is(err, ErrInvalidTimestamp) {
		t.Errorf("expected ErrInvalidTimestamp, got %v", err)
	}

	var nilFacts *PatientFacts
	if _, ok := nilFacts.Fact("arrival_time"); ok {
		t.Error("nil PatientFacts should report no facts")
	}
}

func TestDecodePatient(t *testing.T) {
	doc := `
patient_id: P-1
facts:
  arrival_time: "2026-01-15T10:00:00"
evidence:
  - source_type: imaging
    timestamp: "2026-01-15 11:30"
    text: "CT chest: no pneumothorax."
    pointer: {file: imaging.txt, line: 12}
  - source_type: FAX_COVER
    text: "cover sheet"
  - text: "no type"
`
	p, err := DecodePatient(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("DecodePatient() error = %v", err)
	}
	if p.PatientID != "P-1" {
		t.Errorf("PatientID = %q", p.PatientID)
	}
	if len(p.Evidence) != 3 {
		t.Fatalf("len(Evidence) = %d, want 3", len(p.Evidence))
	}
	if p.Evidence[0].SourceType != SourceImaging {
		t.Errorf("Evidence[0].SourceType = %q, want IMAGING", p.Evidence[0].SourceType)
	}
	if p.Evidence[0].Pointer["line"] != "12" {
		t.Errorf("Pointer[line] = %q, want 12", p.Evidence[0].Pointer["line"])
	}
	if p.Evidence[1].SourceType != SourceUnknown {
		t.Errorf("unknown source mapped to %q, want UNKNOWN", p.Evidence[1].SourceType)
	}
	if p.Evidence[2].SourceType != SourceUnknown {
		t.Errorf("missing source mapped to %q, want UNKNOWN", p.Evidence[2].SourceType)
	}

	json := `{"patient_id": "P-2", "evidence": [{"source_type": "LAB", "text": "Hgb 6.8"}]}`
	p, err = DecodePatient(strings.NewReader(json))
	if err != nil {
		t.Fatalf("DecodePatient(json) error = %v", err)
	}
	if p.PatientID != "P-2" || p.Evidence[0].SourceType != SourceLab {
		t.Errorf("unexpected JSON decode result: %+v", p)
	}

	if _, err := DecodePatient(strings.NewReader("")); err == nil {
		t.Error("expected error for empty document")
	}
}

func TestParseSourceType(t *testing.T) {
	if st, ok := ParseSourceType(" trauma_hp "); !ok || st != SourceTraumaHP {
		t.Errorf("ParseSourceType(trauma_hp) = %q, %v", st, ok)
	}
	if st, ok := ParseSourceType("TELEGRAM"); ok || st != SourceUnknown {
		t.Errorf("ParseSourceType(TELEGRAM) = %q, %v", st, ok)
	}
}

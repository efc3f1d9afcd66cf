package scope

import (
	"strings"
	"testing"
)

// span returns the byte span of the nth (0-based) occurrence of sub in text.
func span(t *testing.T, text, sub string, nth int) (int, int) {
	t.Helper()
	offset := 0
	for i := 0; ; i++ {
		idx := strings.Index(strings.ToLower(text[offset:]), strings.ToLower(sub))
		if idx < 0 {
			t.Fatalf("occurrence %d of %q not found in %q", nth, sub, text)
		}
		if i == nth {
			return offset + idx, offset + idx + len(sub)
		}
		offset += idx + len(sub)
	}
}

func TestIsNegated(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		finding string
		want    bool
	}{
		{"no evidence of", "CT shows no evidence of pneumothorax.", "pneumothorax", true},
		{"negative for", "Duplex negative for DVT bilaterally", "DVT", true},
		{"rule out", "Plan: rule out fracture", "fracture", true},
		{"ruled out", "PE was ruled out by CTA", "PE", false},
		{"denies", "Patient denies chest pain", "chest pain", true},
		{"without", "Ambulating without pain", "pain", true},
		{"bare no", "No fracture.", "fracture", true},
		{"free of", "Wound free of infection", "infection", true},
		{"post not seen", "Fracture line not seen on films", "Fracture", true},
		{"post unlikely", "Pneumonia unlikely given imaging", "Pneumonia", true},
		{"post not elevated", "Lactate not elevated", "Lactate", true},
		{"present", "Fracture is present", "Fracture", false},
		{"affirmed", "Acute DVT in left popliteal vein", "DVT", false},
		{"sentence boundary", "No fracture seen. Dislocation confirmed on CT.", "Dislocation", false},
		{"contrast conjunction", "No fracture is seen, but a dislocation is present", "dislocation", false},
		{"however", "No bleeding however hematoma noted", "hematoma", false},
		{"newline boundary", "No acute distress\nPneumothorax on left", "Pneumothorax", false},
		{"outside window", "No complaints were voiced during the long interview; later pneumothorax", "pneumothorax", false},
		{"post scope cut", "DVT. Not seen elsewhere", "DVT", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := span(t, tt.text, tt.finding, 0)
			if got := IsNegated(tt.text, start, end); got != tt.want {
				t.Errorf("IsNegated(%q, %q) = %v, want %v", tt.text, tt.finding, got, tt.want)
			}
		})
	}
}

func TestIsNegated_PreCueShape(t *testing.T) {
	cues := []string{
		"no evidence of", "no signs of", "no sign of", "no acute", "no new", "no significant",
		"negative for", "rule out", "rules out", "failed to reveal", "unremarkable for",
		"free of", "without", "denies", "no", "not", "absent", "never",
	}
	for _, cue := range cues {
		text := cue + " hemothorax"
		start, end := span(t, text, "hemothorax", 0)
		if !IsNegated(text, start, end) {
			t.Errorf("cue %q should negate the finding", cue)
		}
	}
}

func TestIsNegated_Bounds(t *testing.T) {
	text := "fracture"
	if IsNegated(text, -5, 100) {
		t.Error("out of range offsets should not panic or negate")
	}
	utf := "Pas de fracture évidente: no fracture"
	start, end := span(t, utf, "fracture", 1)
	if !IsNegated(utf, start, end) {
		t.Error("expected negation with multibyte text in window")
	}
}

func TestIsHistorical(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		finding string
		nth     int
		want    bool
	}{
		{
			name:    "past surgical history section",
			text:    "Past Surgical History: femur fracture repair\nAssessment: femur fracture repair planned",
			finding: "femur fracture",
			nth:     0,
			want:    true,
		},
		{
			name:    "same phrase under assessment",
			text:    "Past Surgical History: femur fracture repair\nAssessment: femur fracture repair planned",
			finding: "femur fracture",
			nth:     1,
			want:    false,
		},
		{
			name:    "pmh abbreviation",
			text:    "PMH: DVT on warfarin",
			finding: "DVT",
			want:    true,
		},
		{
			name:    "history of",
			text:    "Patient with history of splenectomy",
			finding: "splenectomy",
			want:    true,
		},
		{
			name:    "status post",
			text:    "Status post ORIF left tibia",
			finding: "ORIF",
			want:    true,
		},
		{
			name:    "s/p",
			text:    "s/p craniotomy",
			finding: "craniotomy",
			want:    true,
		},
		{
			name:    "relative time after",
			text:    "Rib fractures sustained 3 years ago in MVC",
			finding: "Rib fractures",
			want:    true,
		},
		{
			name:    "past tense procedure",
			text:    "She underwent hip replacement surgery",
			finding: "hip",
			want:    true,
		},
		{
			name:    "current finding",
			text:    "CT: acute left femur fracture",
			finding: "femur fracture",
			want:    false,
		},
		{
			name:    "social history then physical exam",
			text:    "Social History: smoker\nPhysical Exam: pneumothorax on left",
			finding: "pneumothorax",
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := span(t, tt.text, tt.finding, tt.nth)
			if got := IsHistorical(tt.text, start, end); got != tt.want {
				t.Errorf("IsHistorical(%q, %q #%d) = %v, want %v", tt.text, tt.finding, tt.nth, got, tt.want)
			}
		})
	}
}

func TestIsHistorical_SectionWindowLimit(t *testing.T) {
	text := "Past Medical History: asthma\n" + strings.Repeat("x", SectionWindow) + " pneumothorax"
	start, end := span(t, text, "pneumothorax", 0)
	if IsHistorical(text, start, end) {
		t.Error("section header beyond the look-back window must not apply")
	}
}

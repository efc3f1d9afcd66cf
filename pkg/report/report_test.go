package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Netrion-29/Netrion-cerebralos/pkg/facts"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/patterns"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/policy/engine"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/ruleset/ast"
)

func testLibrary() *patterns.Library {
	return patterns.New(map[string][]string{
		"dvt_dx":   {`\bdvt\b`},
		"dvt_ppx":  {`dvt\s+prophylaxis`},
		"dvt_poa":  {`present\s+on\s+admission`},
		"anticoag": {`heparin`},
		"tbi":      {`\bTBI\b`},
		"head_ct":  {`CT\s+head`},
	})
}

func dvtRuleset() *ast.Ruleset {
	return &ast.Ruleset{
		ID:     "NTDS_08_DVT",
		Name:   "Deep Vein Thrombosis",
		Family: ast.FamilyEvent,
		Exclusions: []*ast.Exclusion{
			{RuleID: "EXCL_POA", QueryKeys: []string{"dvt_poa"}, ContextKeys: []string{"dvt_dx"}},
		},
		Gates: []*ast.Gate{
			{ID: "dvt_dx", Kind: ast.GateEvidenceAny, Required: true, QueryKeys: []string{"dvt_dx"}, NoiseKeys: []string{"dvt_ppx"}},
			{ID: "dvt_treatment", Kind: ast.GateRequiresTreatmentAny, Required: true, QueryKeys: []string{"anticoag"}},
		},
	}
}

func dvtPatient() *facts.PatientFacts {
	return &facts.PatientFacts{
		PatientID: "P001",
		Evidence: []facts.Evidence{
			{SourceType: facts.SourceMAR, Timestamp: "2026-01-15T12:00:00", Text: "DVT prophylaxis: enoxaparin 40 mg"},
			{SourceType: facts.SourceImaging, Timestamp: "2026-01-16T09:00:00", Text: "Duplex: no evidence of DVT."},
			{SourceType: facts.SourceNursingNote, Timestamp: "2026-01-16T10:00:00", Text: "Ambulating in hallway."},
		},
	}
}

func failedDVTResult() *engine.Result {
	return &engine.Result{
		RulesetID: "NTDS_08_DVT",
		Name:      "Deep Vein Thrombosis",
		Family:    ast.FamilyEvent,
		PatientID: "P001",
		Outcome:   ast.OutcomeNo,
		GateTrace: []*engine.GateResult{
			{GateID: "dvt_dx", Kind: ast.GateEvidenceAny, Required: true, Passed: false, Reason: "No matching evidence"},
		},
		Warnings: []string{},
	}
}

func TestSummary(t *testing.T) {
	failed := []*engine.GateResult{{GateID: "dvt_dx", Required: true}}
	optionalFail := []*engine.GateResult{
		{GateID: "REQ_TRIGGER", Required: true, Passed: true},
		{GateID: "REQ_TIMING", Required: false, Passed: false},
	}

	tests := []struct {
		name   string
		result *engine.Result
		want   string
	}{
		{"yes", &engine.Result{Outcome: ast.OutcomeYes}, "YES - all required gates passed"},
		{"no", &engine.Result{Outcome: ast.OutcomeNo, GateTrace: failed}, "NO - failed gate: dvt_dx"},
		{"no without gate", &engine.Result{Outcome: ast.OutcomeNo}, "NO - failed gate: unknown"},
		{"unable", &engine.Result{Outcome: ast.OutcomeUnableToDetermine, GateTrace: failed}, "UNABLE - failed gate: dvt_dx"},
		{"excluded", &engine.Result{Outcome: ast.OutcomeExcluded, HardStop: &engine.HardStop{RuleID: "EXCL_POA"}}, "EXCLUDED - EXCL_POA"},
		{"excluded without stop", &engine.Result{Outcome: ast.OutcomeExcluded}, "EXCLUDED"},
		{"compliant", &engine.Result{Outcome: ast.OutcomeCompliant}, "COMPLIANT - All protocol requirements met"},
		{"non compliant", &engine.Result{Outcome: ast.OutcomeNonCompliant, GateTrace: optionalFail}, "NON_COMPLIANT - REQ_TIMING failed"},
		{"not triggered", &engine.Result{Outcome: ast.OutcomeNotTriggered}, "NOT_TRIGGERED - Protocol does not apply to this patient"},
		{"indeterminate", &engine.Result{Outcome: ast.OutcomeIndeterminate}, "INDETERMINATE - Missing required data for compliance determination"},
		{"error", &engine.Result{Outcome: ast.OutcomeError, Error: "nil patient"}, "ERROR - nil patient"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Summary(tt.result); got != tt.want {
				t.Errorf("Summary() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuild_NearMiss(t *testing.T) {
	b := NewBuilder(testLibrary())
	r := b.Build(failedDVTResult(), dvtRuleset(), nil, dvtPatient())

	if r.Summary != "NO - failed gate: dvt_dx" {
		t.Errorf("Summary = %q", r.Summary)
	}

	// noise-key blocks first, then query-key blocks; negation is ignored
	var got []string
	for _, ev := range r.NearMissEvidence {
		got = append(got, ev.Text)
	}
	want := []string{"DVT prophylaxis: enoxaparin 40 mg", "Duplex: no evidence of DVT."}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("near misses mismatch (-want +got):\n%s", diff)
	}

	wantSearched := []SearchEntry{
		{GateID: "dvt_dx", QueryKeys: []string{"dvt_dx"}, ExcludeKeys: []string{"dvt_ppx"}},
	}
	if diff := cmp.Diff(wantSearched, r.SearchedFor); diff != "" {
		t.Errorf("searched_for mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_NearMissCappedByContract(t *testing.T) {
	contract := ast.DefaultContract(ast.FamilyEvent)
	contract.MaxItemsPerGate = 1

	r := NewBuilder(testLibrary()).Build(failedDVTResult(), dvtRuleset(), contract, dvtPatient())
	if len(r.NearMissEvidence) != 1 {
		t.Fatalf("near misses = %d, want 1", len(r.NearMissEvidence))
	}
}

func TestBuild_NoNearMissWhenPassed(t *testing.T) {
	result := &engine.Result{
		RulesetID: "NTDS_08_DVT",
		Family:    ast.FamilyEvent,
		Outcome:   ast.OutcomeYes,
		GateTrace: []*engine.GateResult{
			{GateID: "dvt_dx", Kind: ast.GateEvidenceAny, Required: true, Passed: true},
			{GateID: "dvt_treatment", Kind: ast.GateRequiresTreatmentAny, Required: true, Passed: true},
		},
	}
	r := NewBuilder(testLibrary()).Build(result, dvtRuleset(), nil, dvtPatient())

	if len(r.NearMissEvidence) != 0 {
		t.Errorf("near misses on a passing result: %v", r.NearMissEvidence)
	}
	if len(r.StepTrace) != 2 || len(r.SearchedFor) != 2 {
		t.Errorf("trace=%d searched=%d", len(r.StepTrace), len(r.SearchedFor))
	}
}

func TestBuild_Exclusion(t *testing.T) {
	result := &engine.Result{
		RulesetID: "NTDS_08_DVT",
		Family:    ast.FamilyEvent,
		Outcome:   ast.OutcomeExcluded,
		HardStop: &engine.HardStop{
			Kind:     engine.HardStopExclusion,
			RuleID:   "EXCL_POA",
			Reason:   "DVT present on admission",
			Evidence: []facts.Evidence{{SourceType: facts.SourceTraumaHP, Text: "DVT present on admission"}},
		},
	}
	r := NewBuilder(testLibrary()).Build(result, dvtRuleset(), nil, dvtPatient())

	if r.HardStop == nil || r.HardStop.RuleID != "EXCL_POA" || len(r.HardStop.Evidence) != 1 {
		t.Fatalf("HardStop = %+v", r.HardStop)
	}
	if len(r.SearchedFor) != 1 || r.SearchedFor[0].GateID != "EXCL_POA" {
		t.Fatalf("SearchedFor = %+v", r.SearchedFor)
	}
	if diff := cmp.Diff([]string{"dvt_dx"}, r.SearchedFor[0].ContextKeys); diff != "" {
		t.Errorf("context keys mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_ProtocolKeys(t *testing.T) {
	trigger, err := ast.ParseCondition("tbi")
	if err != nil {
		t.Fatal(err)
	}
	timing, err := ast.ParseCondition("temporal:within:2:hours:head_ct")
	if err != nil {
		t.Fatal(err)
	}
	threshold, err := ast.ParseCondition("gcs:<=:13")
	if err != nil {
		t.Fatal(err)
	}

	rs := &ast.Ruleset{
		ID:     "TBI",
		Family: ast.FamilyProtocol,
		Gates: []*ast.Gate{{
			ID: "REQ_TRIGGER", Kind: ast.GateTriggerCriteria, Required: true,
			RequirementType: ast.RequirementMandatory,
			Conditions:      []*ast.Condition{trigger, threshold, timing},
		}},
	}
	result := &engine.Result{
		RulesetID: "TBI",
		Family:    ast.FamilyProtocol,
		Outcome:   ast.OutcomeNotTriggered,
		GateTrace: []*engine.GateResult{{GateID: "REQ_TRIGGER", Kind: ast.GateTriggerCriteria, Required: true}},
	}
	patient := &facts.PatientFacts{Evidence: []facts.Evidence{
		{SourceType: facts.SourceTraumaHP, Text: "No TBI identified."},
	}}

	r := NewBuilder(testLibrary()).Build(result, rs, nil, patient)

	if diff := cmp.Diff([]string{"tbi", "head_ct"}, r.SearchedFor[0].QueryKeys); diff != "" {
		t.Errorf("query keys mismatch (-want +got):\n%s", diff)
	}
	if r.StepTrace[0].RequirementType != ast.RequirementMandatory {
		t.Errorf("RequirementType = %q", r.StepTrace[0].RequirementType)
	}
	if len(r.NearMissEvidence) != 1 {
		t.Errorf("near misses = %v", r.NearMissEvidence)
	}
}

func TestBuild_TruncatesText(t *testing.T) {
	long := strings.Repeat("é", 300) // 600 bytes
	result := failedDVTResult()
	result.GateTrace[0].Evidence = []facts.Evidence{{SourceType: facts.SourceMAR, Text: long}}

	r := NewBuilder(testLibrary()).Build(result, nil, nil, nil)
	text := r.StepTrace[0].Evidence[0].Text
	if len(text) > MaxTextLength+3 || !strings.HasSuffix(text, "...") {
		t.Errorf("text not bounded: %d bytes", len(text))
	}
	if !strings.HasPrefix(text, "éé") || strings.ContainsRune(text, '\uFFFD') {
		t.Errorf("text cut inside a rune: %q", text[:10])
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, nil); err != nil {
		t.Fatalf("WriteJSON(nil) failed: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("WriteJSON(nil) = %q", buf.String())
	}

	buf.Reset()
	r := NewBuilder(testLibrary()).Build(failedDVTResult(), dvtRuleset(), nil, dvtPatient())
	if err := WriteJSON(&buf, []*Report{r}); err != nil {
		t.Fatalf("WriteJSON() failed: %v", err)
	}

	var decoded []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	for _, key := range []string{"summary", "searched_for", "near_miss_evidence", "step_trace", "warnings"} {
		if _, ok := decoded[0][key]; !ok {
			t.Errorf("missing key %q", key)
		}
	}
}

func TestWriteText(t *testing.T) {
	r := NewBuilder(testLibrary()).Build(failedDVTResult(), dvtRuleset(), nil, dvtPatient())

	var buf bytes.Buffer
	if err := WriteText(&buf, r); err != nil {
		t.Fatalf("WriteText() failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"NTDS_08_DVT", "outcome: NO", "[FAIL] dvt_dx", "near misses:"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

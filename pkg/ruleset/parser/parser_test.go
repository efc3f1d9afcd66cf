package parser

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Netrion-29/Netrion-cerebralos/pkg/facts"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/ruleset/ast"
	rsErrors "github.com/Netrion-29/Netrion-cerebralos/pkg/ruleset/errors"
)

const eventRuleset = `
meta:
  id: NTDS_08_DVT
  canonical_name: Deep Vein Thrombosis
  family: event
  ntds_year: 2025
  version: "1.2"
exclusions:
  - rule_id: EXCL_POA
    gate_type: exclude_if_any
    query_keys: [dvt_present_on_arrival]
    require_context_keys: [poa]
    reason: DVT present on arrival
gates:
  - gate_id: G1_DVT_DX
    gate_type: evidence_any
    query_keys: [dvt_dx@IMAGING]
    min_count: 2
    exclude_noise_keys: [dvt_prophylaxis]
    fail_outcome: NO
    matching:
      skip_historical: false
  - gate_id: G2_AFTER_ARRIVAL
    gate_type: timing_after_arrival
    query_key: dvt_dx
    required: false
`

const protocolRuleset = `
protocol_id: TBI_CT
name: TBI head CT
requirements:
  - id: R1
    type: trigger_criteria
    trigger_conditions: ["gcs:<=:13", "tbi"]
  - id: R2
    type: timing_critical
    requirement_type: conditional
    conditions: ["temporal:within:1:hours:ct_head@IMAGING"]
    exclusion_conditions: ["refused"]
    acceptable_evidence: [IMAGING, RADIOLOGY]
`

func TestParser_ParseBytes_Event(t *testing.T) {
	rs, err := NewParser().ParseBytes([]byte(eventRuleset), "dvt.yaml")
	if err != nil {
		t.Fatalf("ParseBytes() failed: %v", err)
	}

	if rs.ID != "NTDS_08_DVT" || rs.Name != "Deep Vein Thrombosis" {
		t.Errorf("identity = %q/%q", rs.ID, rs.Name)
	}
	if rs.Family != ast.FamilyEvent || rs.Year != 2025 || rs.Mode != ast.ModeEvaluable {
		t.Errorf("family/year/mode = %q/%d/%q", rs.Family, rs.Year, rs.Mode)
	}

	if len(rs.Exclusions) != 1 {
		t.Fatalf("len(Exclusions) = %d, want 1", len(rs.Exclusions))
	}
	ex := rs.Exclusions[0]
	if diff := cmp.Diff([]string{"poa"}, ex.ContextKeys); diff != "" {
		t.Errorf("ContextKeys mismatch (-want +got):\n%s", diff)
	}
	if ex.Location.Line == 0 {
		t.Error("exclusion location not recorded")
	}

	if len(rs.Gates) != 2 {
		t.Fatalf("len(Gates) = %d, want 2", len(rs.Gates))
	}
	g1 := rs.Gates[0]
	if g1.Kind != ast.GateEvidenceAny || g1.MinCount != 2 || !g1.Required {
		t.Errorf("G1 = %+v", g1)
	}
	if g1.FailOutcome != ast.OutcomeNo {
		t.Errorf("FailOutcome = %q, want NO", g1.FailOutcome)
	}
	if g1.Matching.SkipHistorical == nil || *g1.Matching.SkipHistorical {
		t.Error("gate matching override not parsed")
	}
	if g1.Matching.NegationAware != nil {
		t.Error("unset matching flag should stay nil")
	}

	g2 := rs.Gates[1]
	if g2.Required {
		t.Error("G2 should not be required")
	}
	if diff := cmp.Diff([]string{"dvt_dx"}, g2.QueryKeys); diff != "" {
		t.Errorf("query_key alias mismatch (-want +got):\n%s", diff)
	}
	if !g2.TimestampRequired || g2.MinCount != 1 {
		t.Errorf("G2 defaults: timestamp_required=%v min_count=%d", g2.TimestampRequired, g2.MinCount)
	}
	if g2.Location.Line <= g1.Location.Line {
		t.Errorf("gate lines not increasing: %d then %d", g1.Location.Line, g2.Location.Line)
	}
}

func TestParser_ParseBytes_LegacyProtocol(t *testing.T) {
	rs, err := NewParser().ParseBytes([]byte(protocolRuleset), "tbi.yaml")
	if err != nil {
		t.Fatalf("ParseBytes() failed: %v", err)
	}
	if rs.ID != "TBI_CT" || rs.Family != ast.FamilyProtocol {
		t.Errorf("ID/Family = %q/%q", rs.ID, rs.Family)
	}
	if len(rs.Gates) != 2 {
		t.Fatalf("len(Gates) = %d, want 2", len(rs.Gates))
	}

	trigger := rs.Gates[0]
	if trigger.Kind != ast.GateTriggerCriteria || len(trigger.Conditions) != 2 {
		t.Fatalf("trigger gate = %+v", trigger)
	}
	if trigger.Conditions[0].Type != ast.ConditionThreshold || trigger.Conditions[1].Type != ast.ConditionReference {
		t.Errorf("condition types = %q, %q", trigger.Conditions[0].Type, trigger.Conditions[1].Type)
	}

	timing := rs.Gates[1]
	if timing.RequirementType != ast.RequirementConditional {
		t.Errorf("RequirementType = %q", timing.RequirementType)
	}
	if timing.Conditions[0].Type != ast.ConditionTemporal {
		t.Errorf("timing condition type = %q", timing.Conditions[0].Type)
	}
	if diff := cmp.Diff([]facts.SourceType{facts.SourceImaging, facts.SourceRadiology}, timing.AcceptableEvidence); diff != "" {
		t.Errorf("AcceptableEvidence mismatch (-want +got):\n%s", diff)
	}
	if len(timing.ExclusionConditions) != 1 {
		t.Errorf("len(ExclusionConditions) = %d", len(timing.ExclusionConditions))
	}
}

func TestParser_ParseBytes_ContextOnlyJSON(t *testing.T) {
	doc := `{"meta": {"id": "PROTO_REF", "family": "protocol", "evaluation_mode": "context_only"}}`
	rs, err := NewParser().ParseBytes([]byte(doc), "ref.json")
	if err != nil {
		t.Fatalf("ParseBytes() failed: %v", err)
	}
	if !rs.IsContextOnly() || len(rs.Gates) != 0 {
		t.Errorf("mode = %q, gates = %d", rs.Mode, len(rs.Gates))
	}
}

func TestParser_ParseBytes_Errors(t *testing.T) {
	tests := []struct {
		name       string
		doc        string
		wantType   rsErrors.ErrorType
		wantSubstr string
	}{
		{
			name:       "syntax",
			doc:        "meta: [unclosed",
			wantType:   rsErrors.ErrorTypeSyntax,
			wantSubstr: "YAML parsing failed",
		},
		{
			name:       "unknown gate kind",
			doc:        "meta: {id: X}\ngates:\n  - gate_id: G1\n    gate_type: evidence_all\n    query_keys: [a]\n",
			wantType:   rsErrors.ErrorTypeStructural,
			wantSubstr: "unknown gate_type",
		},
		{
			name:       "missing id",
			doc:        "gates:\n  - gate_id: G1\n    gate_type: evidence_any\n",
			wantType:   rsErrors.ErrorTypeStructural,
			wantSubstr: "no identifier",
		},
		{
			name:       "bad temporal",
			doc:        "meta: {id: X, family: protocol}\ngates:\n  - gate_id: G1\n    gate_type: timing_critical\n    conditions: [\"temporal:within:1:weeks:ct\"]\n",
			wantType:   rsErrors.ErrorTypeStructural,
			wantSubstr: "unsupported unit",
		},
		{
			name:       "unknown family",
			doc:        "meta: {id: X, family: billing}\n",
			wantType:   rsErrors.ErrorTypeStructural,
			wantSubstr: "Unknown rule family",
		},
		{
			name:       "exclusion kind",
			doc:        "meta: {id: X}\nexclusions:\n  - rule_id: E1\n    gate_type: exclude_if_all\n    query_keys: [a]\n",
			wantType:   rsErrors.ErrorTypeStructural,
			wantSubstr: "unsupported gate_type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParser().ParseBytes([]byte(tt.doc), "bad.yaml")
			if err == nil {
				t.Fatal("ParseBytes() succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.wantSubstr) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantSubstr)
			}

			var list *rsErrors.ErrorList
			var single *rsErrors.Error
			switch {
			case errors.As(err, &list):
				if !list.HasErrorType(tt.wantType) {
					t.Errorf("error list lacks type %q: %v", tt.wantType, list)
				}
			case errors.As(err, &single):
				if single.Type != tt.wantType {
					t.Errorf("Type = %q, want %q", single.Type, tt.wantType)
				}
			default:
				t.Errorf("unexpected error type %T", err)
			}
		})
	}
}

func TestParser_UnknownGateSuggestion(t *testing.T) {
	doc := "meta: {id: X}\ngates:\n  - gate_id: G1\n    gate_type: evidence_anyy\n    query_keys: [a]\n"
	_, err := NewParser().ParseBytes([]byte(doc), "x.yaml")
	if err == nil || !strings.Contains(err.Error(), "Did you mean 'evidence_any'?") {
		t.Errorf("expected suggestion, got %v", err)
	}
}

func TestParser_ParseDir(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("b_tbi.yaml", protocolRuleset)
	write("a_dvt.yml", eventRuleset)
	write("notes.txt", "not a ruleset")
	write("c_broken.yaml", "meta: {family: event}\n")

	rulesets, err := NewParser().ParseDir(dir)
	if err == nil {
		t.Fatal("expected error for broken file")
	}
	if !strings.Contains(err.Error(), "c_broken.yaml") {
		t.Errorf("error should name the broken file: %v", err)
	}

	var ids []string
	for _, rs := range rulesets {
		ids = append(ids, rs.ID)
	}
	if diff := cmp.Diff([]string{"NTDS_08_DVT", "TBI_CT"}, ids); diff != "" {
		t.Errorf("parsed IDs mismatch (-want +got):\n%s", diff)
	}
}

func TestParser_MaxFileSize(t *testing.T) {
	_, err := NewParser().WithMaxFileSize(10).ParseBytes([]byte(eventRuleset), "big.yaml")
	var single *rsErrors.Error
	if !errors.As(err, &single) || single.Type != rsErrors.ErrorTypeIO {
		t.Errorf("expected io error, got %v", err)
	}
}

func TestParser_ParseContract(t *testing.T) {
	tests := []struct {
		name       string
		file       string
		doc        string
		wantErr    string
		wantCap    int
		wantFamily ast.Family
	}{
		{
			name: "valid event contract",
			file: "ntds_contract.yaml",
			doc: `
meta: {locked: true, version: "2025"}
evidence: {max_items_per_gate: 5}
outcomes:
  allowed: [YES, NO, EXCLUDED, UNABLE_TO_DETERMINE]
  defaults: {missing_required_data: UNABLE_TO_DETERMINE}
`,
			wantCap:    5,
			wantFamily: ast.FamilyEvent,
		},
		{
			name: "legacy cap key",
			file: "protocol_contract.yaml",
			doc: `
meta: {locked: true}
evidence: {max_items_per_requirement: 3}
outcomes: {allowed: [COMPLIANT, NON_COMPLIANT, NOT_TRIGGERED, INDETERMINATE]}
`,
			wantCap:    3,
			wantFamily: ast.FamilyProtocol,
		},
		{
			name:    "unlocked",
			file:    "ntds_contract.yaml",
			doc:     "meta: {locked: false}\noutcomes: {allowed: [YES]}\n",
			wantErr: "not locked",
		},
		{
			name:    "empty allowed",
			file:    "ntds_contract.yaml",
			doc:     "meta: {locked: true}\n",
			wantErr: "allows no outcomes",
		},
		{
			name:    "default outside allowed",
			file:    "ntds_contract.yaml",
			doc:     "meta: {locked: true}\noutcomes: {allowed: [YES, NO], defaults: {missing_required_data: EXCLUDED}}\n",
			wantErr: "not in the allowed set",
		},
		{
			name:    "foreign outcome",
			file:    "protocol_contract.yaml",
			doc:     "meta: {locked: true}\noutcomes: {allowed: [COMPLIANT, YES]}\n",
			wantErr: "not part of the protocol vocabulary",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewParser().ParseContractBytes([]byte(tt.doc), tt.file)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error = %v, want substring %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseContractBytes() failed: %v", err)
			}
			if c.Cap() != tt.wantCap || c.Family != tt.wantFamily {
				t.Errorf("cap/family = %d/%q, want %d/%q", c.Cap(), c.Family, tt.wantCap, tt.wantFamily)
			}
			if c.Matching.AdmissionWindowHours == nil || *c.Matching.AdmissionWindowHours != ast.DefaultAdmissionWindowHours {
				t.Error("matching defaults not applied")
			}
		})
	}
}

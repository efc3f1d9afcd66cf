package ast

import (
	"testing"
	"time"
)

func TestParseCondition(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantType ConditionType
		wantErr  bool
		check    func(t *testing.T, c *Condition)
	}{
		{
			name:     "threshold",
			input:    "GCS:<=:8",
			wantType: ConditionThreshold,
			check: func(t *testing.T, c *Condition) {
				if c.Parameter != "gcs" || c.Operator != OpLessOrEqual || c.Value != 8 {
					t.Errorf("unexpected threshold: %+v", c)
				}
			},
		},
		{
			name:     "threshold decimal",
			input:    "hemoglobin:<:7.5",
			wantType: ConditionThreshold,
			check: func(t *testing.T, c *Condition) {
				if c.Value != 7.5 {
					t.Errorf("Value = %v, want 7.5", c.Value)
				}
			},
		},
		{
			name:     "temporal hours",
			input:    "temporal:within:24:hours:ct_head@IMAGING",
			wantType: ConditionTemporal,
			check: func(t *testing.T, c *Condition) {
				if c.Within != 24*time.Hour || c.Ref != "ct_head@IMAGING" {
					t.Errorf("unexpected temporal: %+v", c)
				}
			},
		},
		{
			name:     "temporal minutes",
			input:    "temporal:within:30:minutes:tourniquet",
			wantType: ConditionTemporal,
			check: func(t *testing.T, c *Condition) {
				if c.Within != 30*time.Minute {
					t.Errorf("Within = %v", c.Within)
				}
			},
		},
		{name: "temporal bad unit", input: "temporal:within:2:fortnights:x", wantErr: true},
		{name: "temporal missing key", input: "temporal:within:2:hours:", wantErr: true},
		{name: "temporal short", input: "temporal:within:2", wantErr: true},
		{name: "temporal bad number", input: "temporal:within:soon:hours:x", wantErr: true},
		{
			name:     "temporal ten years",
			input:    "temporal:within:3650:days:x",
			wantType: ConditionTemporal,
			check: func(t *testing.T, c *Condition) {
				if c.Within != MaxTemporalWindow {
					t.Errorf("Within = %v, want %v", c.Within, MaxTemporalWindow)
				}
			},
		},
		{name: "temporal window too long", input: "temporal:within:3651:days:x", wantErr: true},
		{name: "temporal window overflows", input: "temporal:within:9223372036854775807:minutes:x", wantErr: true},
		{name: "temporal window wraps negative", input: "temporal:within:200000000:hours:x", wantErr: true},
		{name: "empty", input: "  ", wantErr: true},
		{
			name:     "bad operator falls back to reference",
			input:    "gcs:~:8",
			wantType: ConditionReference,
		},
		{
			name:     "non numeric value falls back to reference",
			input:    "age:<:old",
			wantType: ConditionReference,
		},
		{
			name:     "pattern key",
			input:    "protocol_tbi_ct@IMAGING",
			wantType: ConditionReference,
			check: func(t *testing.T, c *Condition) {
				if c.Ref != "protocol_tbi_ct@IMAGING" {
					t.Errorf("Ref = %q", c.Ref)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ParseCondition(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCondition(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if c.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", c.Type, tt.wantType)
			}
			if tt.check != nil {
				tt.check(t, c)
			}
		})
	}
}

func TestContract_Resolve(t *testing.T) {
	c := &Contract{
		Family:         FamilyEvent,
		Allowed:        []Outcome{OutcomeYes, OutcomeNo, OutcomeExcluded, OutcomeUnableToDetermine},
		DefaultMissing: OutcomeUnableToDetermine,
	}

	tests := []struct {
		in   Outcome
		want Outcome
	}{
		{OutcomeNo, OutcomeNo},
		{OutcomeNotEvaluated, OutcomeUnableToDetermine},
		{Outcome("MAYBE"), OutcomeUnableToDetermine},
		{OutcomeError, OutcomeError},
	}
	for _, tt := range tests {
		if got := c.Resolve(tt.in); got != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	noDefault := &Contract{Family: FamilyProtocol}
	if got := noDefault.Resolve(OutcomeYes); got != OutcomeIndeterminate {
		t.Errorf("Resolve without default = %q, want INDETERMINATE", got)
	}
	if noDefault.Cap() != DefaultMaxItemsPerGate {
		t.Errorf("Cap() = %d, want default", noDefault.Cap())
	}
}

func TestFamily(t *testing.T) {
	if f, ok := ParseFamily("NTDS"); !ok || f != FamilyEvent {
		t.Errorf("ParseFamily(NTDS) = %q, %v", f, ok)
	}
	if _, ok := ParseFamily("billing"); ok {
		t.Error("unknown family should not parse")
	}
	if !FamilyProtocol.Accepts(OutcomeNotTriggered) || FamilyProtocol.Accepts(OutcomeYes) {
		t.Error("protocol vocabulary mismatch")
	}
	if FamilyEvent.Satisfied() != OutcomeYes || FamilyProtocol.Satisfied() != OutcomeCompliant {
		t.Error("Satisfied() mismatch")
	}
	if o, ok := ParseOutcome(" yes "); !ok || o != OutcomeYes {
		t.Errorf("ParseOutcome(yes) = %q, %v", o, ok)
	}
}

func TestRuleset_PatternKeys(t *testing.T) {
	cond, _ := ParseCondition("temporal:within:1:hours:ct_head@IMAGING")
	thr, _ := ParseCondition("gcs:<=:8")
	ref, _ := ParseCondition("tbi")
	rs := &Ruleset{
		Exclusions: []*Exclusion{{RuleID: "EX", QueryKeys: []string{"poa_dvt"}, ContextKeys: []string{"poa"}}},
		Gates: []*Gate{
			{ID: "G1", Required: true, QueryKeys: []string{"dvt@IMAGING", "dvt"}, NoiseKeys: []string{"prophylaxis"}},
			{ID: "G2", Conditions: []*Condition{cond, thr, ref}},
		},
	}

	want := []string{"ct_head", "dvt", "poa", "poa_dvt", "prophylaxis", "tbi"}
	got := rs.PatternKeys()
	if len(got) != len(want) {
		t.Fatalf("PatternKeys() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("PatternKeys()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if rs.RequiredGateCount() != 1 {
		t.Errorf("RequiredGateCount() = %d", rs.RequiredGateCount())
	}
	if rs.GetGate("G2") == nil || rs.GetGate("G9") != nil {
		t.Error("GetGate lookup mismatch")
	}
}

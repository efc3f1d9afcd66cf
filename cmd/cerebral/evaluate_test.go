package main

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/Netrion-29/Netrion-cerebralos/pkg/cli"
)

func setEvaluateFlags(patient, format string) {
	evaluateFlags.ruleset = testRuleset
	evaluateFlags.patient = patient
	evaluateFlags.contracts = []string{testContract}
	evaluateFlags.patterns = []string{testPatterns}
	evaluateFlags.format = format
	evaluateFlags.strict = false
}

func TestRunEvaluate_Text(t *testing.T) {
	cmd, buf := testCommand(t)
	setEvaluateFlags("testdata/patients/p001.yaml", "text")

	if err := runEvaluate(cmd, nil); err != nil {
		t.Fatalf("runEvaluate() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{"NTDS_DVT (Deep Vein Thrombosis) patient=P001", "outcome: YES", "[PASS] G1_DVT_DX"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunEvaluate_JSONNearMiss(t *testing.T) {
	cmd, buf := testCommand(t)
	setEvaluateFlags("testdata/patients/p002.yaml", "json")

	if err := runEvaluate(cmd, nil); err != nil {
		t.Fatalf("runEvaluate() error = %v", err)
	}

	var reports []struct {
		Outcome          string `json:"outcome"`
		Summary          string `json:"summary"`
		NearMissEvidence []struct {
			Text string `json:"text"`
		} `json:"near_miss_evidence"`
	}
	if err := json.Unmarshal(buf.Bytes(), &reports); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if len(reports) != 1 {
		t.Fatalf("len(reports) = %d, want 1", len(reports))
	}
	r := reports[0]
	if r.Outcome != "NO" || r.Summary != "NO - failed gate: G1_DVT_DX" {
		t.Errorf("outcome = %q, summary = %q", r.Outcome, r.Summary)
	}
	if len(r.NearMissEvidence) != 2 {
		t.Fatalf("near misses = %+v, want the prophylaxis and negated DVT lines", r.NearMissEvidence)
	}
	if !strings.Contains(r.NearMissEvidence[0].Text, "prophylaxis") {
		t.Errorf("first near miss = %q, want the noise match", r.NearMissEvidence[0].Text)
	}
}

func TestRunEvaluate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		modify  func()
		wantErr string
	}{
		{
			name:    "missing flags",
			modify:  func() { evaluateFlags.patient = "" },
			wantErr: "both --ruleset and --patient",
		},
		{
			name:    "bad format",
			modify:  func() { evaluateFlags.format = "xml" },
			wantErr: "unsupported format",
		},
		{
			name:    "missing patient",
			modify:  func() { evaluateFlags.patient = "testdata/patients/nonexistent.yaml" },
			wantErr: "nonexistent.yaml",
		},
		{
			name:    "invalid ruleset",
			modify:  func() { evaluateFlags.ruleset = "testdata/invalid/unknown_kind.yaml" },
			wantErr: "unknown_kind.yaml",
		},
		{
			name:    "missing pattern file",
			modify:  func() { evaluateFlags.patterns = []string{"testdata/nonexistent.yaml"} },
			wantErr: "pattern file",
		},
		{
			name: "strict with undefined key",
			modify: func() {
				evaluateFlags.ruleset = "testdata/invalid/undefined_key.yaml"
				evaluateFlags.strict = true
			},
			wantErr: "undefined pattern key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, _ := testCommand(t)
			setEvaluateFlags("testdata/patients/p001.yaml", "text")
			tt.modify()

			err := runEvaluate(cmd, nil)
			if err == nil {
				t.Fatal("runEvaluate() should fail")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to contain %q", err, tt.wantErr)
			}
			if code := cli.ExitCode(err); code != cli.ExitInvalidInput {
				t.Errorf("ExitCode() = %d, want %d", code, cli.ExitInvalidInput)
			}
		})
	}
}

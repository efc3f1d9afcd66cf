package patterns

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Netrion-29/Netrion-cerebralos/pkg/facts"
)

func TestNew_CaseInsensitiveAndFallback(t *testing.T) {
	lib := New(map[string][]string{
		"dvt":       {`\bdvt\b`, `deep vein thrombosis`},
		"lookahead": {`foo(?=bar)`},
		"empty":     {},
	})

	res, ok := lib.Lookup("dvt")
	if !ok || len(res) != 2 {
		t.Fatalf("Lookup(dvt) = %v, %v", res, ok)
	}
	if !res[1].MatchString("Left DEEP VEIN THROMBOSIS noted") {
		t.Error("expected case-insensitive match")
	}

	res, _ = lib.Lookup("lookahead")
	if !res[0].MatchString("FOO(?=BAR)") {
		t.Error("fallback pattern should match its literal text")
	}
	if res[0].MatchString("foobar") {
		t.Error("fallback pattern must not behave as a regex")
	}

	fb := lib.Fallbacks()
	if len(fb) != 1 || fb[0].Key != "lookahead" {
		t.Errorf("Fallbacks() = %+v", fb)
	}

	if !lib.Has("empty") {
		t.Error("empty key should still be defined")
	}
	if _, ok := lib.Lookup("missing"); ok {
		t.Error("missing key should not resolve")
	}

	if diff := cmp.Diff([]string{"dvt", "empty", "lookahead"}, lib.Keys()); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}
}

func TestNilLibrary(t *testing.T) {
	var lib *Library
	if _, ok := lib.Lookup("x"); ok {
		t.Error("nil library should resolve nothing")
	}
	if lib.Len() != 0 || lib.Keys() != nil || lib.Raw("x") != nil {
		t.Error("nil library should be empty")
	}
}

func TestLoad_MergesSections(t *testing.T) {
	dir := t.TempDir()
	shared := filepath.Join(dir, "shared.yaml")
	mapper := filepath.Join(dir, "mapper.json")

	if err := os.WriteFile(shared, []byte(`
meta: {locked: true}
buckets:
  prophylaxis: ["prophylaxis"]
action_buckets:
  dvt: ["legacy dvt"]
`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(mapper, []byte(`{"query_patterns": {"dvt": ["\\bdvt\\b"]}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	lib, err := Load(shared, mapper)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff([]string{`\bdvt\b`}, lib.Raw("dvt")); diff != "" {
		t.Errorf("later file should override (-want +got):\n%s", diff)
	}
	if !lib.Has("prophylaxis") {
		t.Error("legacy buckets section should be merged")
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParseRef(t *testing.T) {
	tests := []struct {
		input string
		want  Ref
	}{
		{"dvt", Ref{Key: "dvt"}},
		{"dvt@IMAGING", Ref{Key: "dvt", Sources: []facts.SourceType{facts.SourceImaging}}},
		{"dvt@imaging|lab", Ref{Key: "dvt", Sources: []facts.SourceType{facts.SourceImaging, facts.SourceLab}}},
		{"dvt@", Ref{Key: "dvt@"}},
		{"  spaced  ", Ref{Key: "spaced"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseRef(tt.input)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseRef(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}
		})
	}

	r := ParseRef("dvt@IMAGING")
	if r.String() != "dvt@IMAGING" {
		t.Errorf("String() = %q", r.String())
	}
	if !r.Allows(facts.SourceImaging) || r.Allows(facts.SourceLab) {
		t.Error("Allows() should restrict to IMAGING")
	}
	if !ParseRef("dvt").Allows(facts.SourceLab) {
		t.Error("unrestricted ref should allow every source")
	}
}

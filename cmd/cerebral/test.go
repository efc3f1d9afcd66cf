package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Netrion-29/Netrion-cerebralos/pkg/cli"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/facts"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/policy/engine"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/ruleset/ast"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/ruleset/parser"
)

var testFlags struct {
	ruleset   string
	testsFile string
	contracts []string
	patterns  []string
	format    string
	strict    bool
}

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Run ruleset test cases",
	Long: `Evaluate a ruleset against test patients and compare the outcome with
the expected one.

Test Case Format (YAML):
  tests:
    - name: "acute DVT after arrival"
      patient: patients/p001.yaml   # relative to the test file
      expect:
        outcome: "YES"
    - name: "prophylaxis only"
      input:                        # inline patient evidence
        facts:
          arrival_time: "2026-01-10T08:00:00"
        evidence:
          - source_type: MAR
            timestamp: "2026-01-11T09:00:00"
            text: "Enoxaparin 40 mg SC given for prophylaxis."
      expect:
        outcome: "NO"
        failed_gate: G1_DVT_DX      # optional

Examples:
  # Run test cases
  cerebral test --ruleset rules/dvt.yaml --tests rules/dvt_tests.yaml

  # JSON results for CI/CD
  cerebral test --ruleset rules/dvt.yaml --tests rules/dvt_tests.yaml --format json`,
	RunE: runTests,
}

func init() {
	rootCmd.AddCommand(testCmd)

	testCmd.Flags().StringVarP(&testFlags.ruleset, "ruleset", "r", "", "ruleset file to test (required)")
	testCmd.Flags().StringVarP(&testFlags.testsFile, "tests", "t", "", "test case file (required)")
	testCmd.Flags().StringSliceVar(&testFlags.contracts, "contract", nil, "contract file(s), family taken from the document")
	testCmd.Flags().StringSliceVar(&testFlags.patterns, "patterns", nil, "pattern file(s), replacing the configured ones")
	testCmd.Flags().StringVar(&testFlags.format, "format", "text", "output format: text, json")
	testCmd.Flags().BoolVar(&testFlags.strict, "strict", false, "treat ruleset warnings as errors")
}

// TestSuite is a collection of ruleset test cases.
type TestSuite struct {
	Tests []TestCase `yaml:"tests"`
}

// TestCase is a patient and the outcome the ruleset must produce for it.
// Exactly one of Patient and Input is set.
type TestCase struct {
	Name    string              `yaml:"name"`
	Patient string              `yaml:"patient"`
	Input   *facts.PatientFacts `yaml:"input"`
	Expect  TestExpectation     `yaml:"expect"`
}

// TestExpectation is the expected result of a test case. An empty
// FailedGate is not checked.
type TestExpectation struct {
	Outcome    ast.Outcome `yaml:"outcome"`
	FailedGate string      `yaml:"failed_gate,omitempty"`
}

// TestResult is the result of running a single test case.
type TestResult struct {
	Name         string        `json:"name"`
	Passed       bool          `json:"passed"`
	Expected     ast.Outcome   `json:"expected"`
	Actual       ast.Outcome   `json:"actual,omitempty"`
	ExpectedGate string        `json:"expected_failed_gate,omitempty"`
	ActualGate   string        `json:"actual_failed_gate,omitempty"`
	Error        string        `json:"error,omitempty"`
	Duration     time.Duration `json:"duration_ns"`
}

func runTests(cmd *cobra.Command, args []string) error {
	if testFlags.ruleset == "" || testFlags.testsFile == "" {
		return cli.NewConfigError("", "both --ruleset and --tests must be specified")
	}
	format, err := cli.ParseFormat(testFlags.format, cli.FormatText, cli.FormatJSON)
	if err != nil {
		return err
	}

	suite, err := loadTestCases(testFlags.testsFile)
	if err != nil {
		return cli.NewInputError(testFlags.testsFile, err)
	}
	if len(suite.Tests) == 0 {
		return cli.NewInputError(testFlags.testsFile, fmt.Errorf("no test cases found"))
	}

	env, err := setup(testFlags.patterns, testFlags.contracts)
	if err != nil {
		return err
	}

	rs, err := parser.NewParser().Parse(testFlags.ruleset)
	if err != nil {
		return cli.NewInputError(testFlags.ruleset, err)
	}
	if _, err := env.validator(testFlags.strict).Validate(rs); err != nil {
		return cli.NewInputError(testFlags.ruleset, err)
	}
	contract := env.contractFor(rs.Family)

	baseDir := filepath.Dir(testFlags.testsFile)
	results := make([]TestResult, 0, len(suite.Tests))
	failed := 0
	for _, tc := range suite.Tests {
		result := runTestCase(env.engine, rs, contract, baseDir, tc)
		if !result.Passed {
			failed++
		}
		results = append(results, result)
	}

	out := commandOutput(cmd)
	if format == cli.FormatJSON {
		if err := cli.WriteJSON(out, results); err != nil {
			return err
		}
	} else {
		outputTestResults(out, rs.ID, results, failed)
	}

	if failed > 0 {
		return cli.NewCommandError("test", fmt.Errorf("%d of %d test case(s) failed", failed, len(results)))
	}
	return nil
}

func loadTestCases(path string) (*TestSuite, error) {
	// #nosec G304 - the test file path is user-provided by design.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var suite TestSuite
	if err := yaml.Unmarshal(data, &suite); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	for i := range suite.Tests {
		tc := &suite.Tests[i]
		if tc.Name == "" {
			tc.Name = fmt.Sprintf("case %d", i+1)
		}
		if (tc.Patient == "") == (tc.Input == nil) {
			return nil, fmt.Errorf("%s: exactly one of patient and input must be set", tc.Name)
		}
		o, ok := ast.ParseOutcome(string(tc.Expect.Outcome))
		if !ok {
			return nil, fmt.Errorf("%s: unknown expected outcome %q", tc.Name, tc.Expect.Outcome)
		}
		tc.Expect.Outcome = o
	}
	return &suite, nil
}

func runTestCase(eng *engine.Engine, rs *ast.Ruleset, contract *ast.Contract, baseDir string, tc TestCase) TestResult {
	start := time.Now()
	result := TestResult{
		Name:         tc.Name,
		Expected:     tc.Expect.Outcome,
		ExpectedGate: tc.Expect.FailedGate,
	}

	patient, err := testPatient(baseDir, tc)
	if err != nil {
		result.Error = err.Error()
		result.Duration = time.Since(start)
		return result
	}

	r := eng.Evaluate(rs, contract, patient)
	result.Duration = time.Since(start)
	result.Actual = r.Outcome
	if fg := r.FailedGate(); fg != nil {
		result.ActualGate = fg.GateID
	}
	if r.Outcome == ast.OutcomeError {
		result.Error = r.Error
		return result
	}

	result.Passed = result.Actual == result.Expected &&
		(result.ExpectedGate == "" || result.ActualGate == result.ExpectedGate)
	return result
}

// testPatient loads the case's patient file, relative to baseDir, or
// returns its inline evidence.
func testPatient(baseDir string, tc TestCase) (*facts.PatientFacts, error) {
	if tc.Input != nil {
		p := *tc.Input
		if p.PatientID == "" {
			p.PatientID = tc.Name
		}
		p.Evidence = append([]facts.Evidence(nil), tc.Input.Evidence...)
		for i := range p.Evidence {
			if p.Evidence[i].SourceType == "" {
				p.Evidence[i].SourceType = facts.SourceUnknown
			}
		}
		return &p, nil
	}

	path := tc.Patient
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	return facts.LoadPatient(path)
}

func outputTestResults(w io.Writer, rulesetID string, results []TestResult, failed int) {
	fmt.Fprintf(w, "Running %s test cases...\n\n", rulesetID)

	for _, r := range results {
		if r.Passed {
			fmt.Fprintf(w, "✓ %s (%.1fms)\n", r.Name, r.Duration.Seconds()*1000)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", r.Name)
		if r.Error != "" {
			fmt.Fprintf(w, "  Error: %s\n", r.Error)
			continue
		}
		fmt.Fprintf(w, "  Expected: outcome=%s", r.Expected)
		if r.ExpectedGate != "" {
			fmt.Fprintf(w, ", failed_gate=%s", r.ExpectedGate)
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  Actual:   outcome=%s", r.Actual)
		if r.ActualGate != "" {
			fmt.Fprintf(w, ", failed_gate=%s", r.ActualGate)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Summary:")
	fmt.Fprintf(w, "  %d tests run, %d passed, %d failed\n", len(results), len(results)-failed, failed)
}

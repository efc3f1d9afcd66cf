package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Netrion-29/Netrion-cerebralos/pkg/cli"
	rsErrors "github.com/Netrion-29/Netrion-cerebralos/pkg/ruleset/errors"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/ruleset/parser"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/ruleset/validator"
)

var lintFlags struct {
	file      string
	dir       string
	strict    bool
	format    string
	patterns  []string
	contracts []string
}

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Validate ruleset files",
	Long: `Validate ruleset files for syntax and semantic errors.

The lint command parses ruleset files and performs validation:
  - YAML/JSON syntax validation
  - Ruleset structure validation (gate kinds, ids, conditions)
  - Pattern key references against the pattern library
  - Declared outcomes against the family contract

Examples:
  # Lint single file
  cerebral lint --file rules/dvt.yaml --patterns patterns.yaml

  # Lint directory
  cerebral lint --dir rules/

  # Strict mode (warnings as errors)
  cerebral lint --dir rules/ --strict

  # JSON output for CI/CD
  cerebral lint --dir rules/ --format json`,
	RunE: lintRulesets,
}

func init() {
	rootCmd.AddCommand(lintCmd)

	lintCmd.Flags().StringVarP(&lintFlags.file, "file", "f", "", "ruleset file to validate")
	lintCmd.Flags().StringVarP(&lintFlags.dir, "dir", "d", "", "directory of ruleset files")
	lintCmd.Flags().BoolVar(&lintFlags.strict, "strict", false, "treat warnings as errors")
	lintCmd.Flags().StringVar(&lintFlags.format, "format", "text", "output format: text, json")
	lintCmd.Flags().StringSliceVar(&lintFlags.patterns, "patterns", nil, "pattern file(s) used to check pattern keys")
	lintCmd.Flags().StringSliceVar(&lintFlags.contracts, "contract", nil, "contract file(s) used to check outcomes")
}

// ValidationResult represents the validation result for a single ruleset file.
type ValidationResult struct {
	File     string            `json:"file"`
	ID       string            `json:"id,omitempty"`
	Valid    bool              `json:"valid"`
	Errors   []ValidationIssue `json:"errors,omitempty"`
	Warnings []ValidationIssue `json:"warnings,omitempty"`
}

// ValidationIssue represents a single validation error or warning.
type ValidationIssue struct {
	Line       int    `json:"line,omitempty"`
	Column     int    `json:"column,omitempty"`
	Message    string `json:"message"`
	Severity   string `json:"severity"`
	Type       string `json:"type,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func lintRulesets(cmd *cobra.Command, args []string) error {
	if lintFlags.file == "" && lintFlags.dir == "" {
		return cli.NewConfigError("", "either --file or --dir must be specified")
	}
	format, err := cli.ParseFormat(lintFlags.format, cli.FormatText, cli.FormatJSON)
	if err != nil {
		return err
	}

	var files []string
	if lintFlags.file != "" {
		files = append(files, lintFlags.file)
	}
	if lintFlags.dir != "" {
		matches, err := parser.RulesetFiles(lintFlags.dir)
		if err != nil {
			return cli.NewInputError(lintFlags.dir, err)
		}
		for _, m := range matches {
			if !strings.Contains(strings.ToLower(filepath.Base(m)), "contract") {
				files = append(files, m)
			}
		}
	}
	if len(files) == 0 {
		return cli.NewInputError(lintFlags.dir, fmt.Errorf("no ruleset files found"))
	}

	env, err := setup(lintFlags.patterns, lintFlags.contracts)
	if err != nil {
		return err
	}
	v := env.validator(lintFlags.strict)

	results := make([]ValidationResult, 0, len(files))
	invalid := 0
	for _, file := range files {
		result := validateRulesetFile(file, v)
		if !result.Valid {
			invalid++
		}
		results = append(results, result)
	}

	out := commandOutput(cmd)
	if format == cli.FormatJSON {
		if err := cli.WriteJSON(out, results); err != nil {
			return err
		}
	} else {
		outputText(out, results)
	}

	if invalid > 0 {
		return cli.NewInputError(strings.Join(files, ","), fmt.Errorf("%d of %d ruleset file(s) failed validation", invalid, len(files)))
	}
	return nil
}

func validateRulesetFile(path string, v *validator.Validator) ValidationResult {
	result := ValidationResult{
		File:  path,
		Valid: true,
	}

	rs, err := parser.NewParser().Parse(path)
	if err != nil {
		result.Valid = false
		result.Errors = toIssues(err)
		return result
	}
	result.ID = rs.ID

	warnings, err := v.Validate(rs)
	if err != nil {
		result.Valid = false
		result.Errors = toIssues(err)
	}
	for _, w := range warnings {
		result.Warnings = append(result.Warnings, ValidationIssue{
			Line:     w.Location.Line,
			Column:   w.Location.Column,
			Message:  w.Message,
			Severity: "warning",
		})
	}
	return result
}

// toIssues flattens parser and validator errors.
func toIssues(err error) []ValidationIssue {
	var list *rsErrors.ErrorList
	if errors.As(err, &list) {
		issues := make([]ValidationIssue, 0, len(list.Errors))
		for _, e := range list.Errors {
			issues = append(issues, toIssue(e))
		}
		return issues
	}
	var single *rsErrors.Error
	if errors.As(err, &single) {
		return []ValidationIssue{toIssue(single)}
	}
	return []ValidationIssue{{Message: err.Error(), Severity: "error"}}
}

func toIssue(e *rsErrors.Error) ValidationIssue {
	return ValidationIssue{
		Line:       e.Location.Line,
		Column:     e.Location.Column,
		Message:    e.Message,
		Severity:   "error",
		Type:       string(e.Type),
		Suggestion: e.Suggestion,
	}
}

func outputText(w io.Writer, results []ValidationResult) {
	valid, warnings := 0, 0
	for _, r := range results {
		if r.Valid {
			valid++
			fmt.Fprintf(w, "✓ %s", r.File)
		} else {
			fmt.Fprintf(w, "✗ %s", r.File)
		}
		if r.ID != "" {
			fmt.Fprintf(w, " (%s)", r.ID)
		}
		fmt.Fprintln(w)

		for _, e := range r.Errors {
			fmt.Fprintf(w, "  %s\n", formatIssue(e))
		}
		for _, wn := range r.Warnings {
			warnings++
			fmt.Fprintf(w, "  %s\n", formatIssue(wn))
		}
	}
	fmt.Fprintf(w, "\n%d/%d valid, %d warning(s)\n", valid, len(results), warnings)
}

func formatIssue(i ValidationIssue) string {
	var sb strings.Builder
	if i.Line > 0 {
		fmt.Fprintf(&sb, "%d:%d ", i.Line, i.Column)
	}
	fmt.Fprintf(&sb, "%s: %s", i.Severity, i.Message)
	if i.Suggestion != "" {
		fmt.Fprintf(&sb, " (%s)", i.Suggestion)
	}
	return sb.String()
}

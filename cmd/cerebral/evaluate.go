package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Netrion-29/Netrion-cerebralos/pkg/cli"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/facts"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/report"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/ruleset/ast"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/ruleset/parser"
)

var evaluateFlags struct {
	ruleset   string
	patient   string
	contracts []string
	patterns  []string
	format    string
	strict    bool
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate one ruleset against one patient",
	Long: `Evaluate a single ruleset against a single patient evidence file and print
the explained result.

The ruleset is validated before evaluation. The report lists every gate
evaluated, the evidence that matched, what was searched for and, when a
gate failed, the closest evidence that did not count.

Examples:
  # Text report
  cerebral evaluate --ruleset rules/dvt.yaml --patient patients/p001.yaml

  # JSON report with an explicit contract and pattern library
  cerebral evaluate --ruleset rules/dvt.yaml --patient patients/p001.yaml \
    --contract contracts/ntds_contract.yaml --patterns patterns.yaml --format json`,
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringVarP(&evaluateFlags.ruleset, "ruleset", "r", "", "ruleset file to evaluate (required)")
	evaluateCmd.Flags().StringVarP(&evaluateFlags.patient, "patient", "p", "", "patient evidence file (required)")
	evaluateCmd.Flags().StringSliceVar(&evaluateFlags.contracts, "contract", nil, "contract file(s), family taken from the document")
	evaluateCmd.Flags().StringSliceVar(&evaluateFlags.patterns, "patterns", nil, "pattern file(s), replacing the configured ones")
	evaluateCmd.Flags().StringVar(&evaluateFlags.format, "format", "text", "output format: text, json")
	evaluateCmd.Flags().BoolVar(&evaluateFlags.strict, "strict", false, "treat ruleset warnings as errors")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	if evaluateFlags.ruleset == "" || evaluateFlags.patient == "" {
		return cli.NewConfigError("", "both --ruleset and --patient must be specified")
	}
	format, err := cli.ParseFormat(evaluateFlags.format, cli.FormatText, cli.FormatJSON)
	if err != nil {
		return err
	}

	env, err := setup(evaluateFlags.patterns, evaluateFlags.contracts)
	if err != nil {
		return err
	}

	rs, err := parser.NewParser().Parse(evaluateFlags.ruleset)
	if err != nil {
		return cli.NewInputError(evaluateFlags.ruleset, err)
	}
	warnings, err := env.validator(evaluateFlags.strict).Validate(rs)
	if err != nil {
		return cli.NewInputError(evaluateFlags.ruleset, err)
	}
	for _, w := range warnings {
		env.logger.Warn("ruleset warning", "ruleset_id", rs.ID, "warning", w.String())
	}

	patient, err := facts.LoadPatient(evaluateFlags.patient)
	if err != nil {
		return cli.NewInputError(evaluateFlags.patient, err)
	}

	contract := env.contractFor(rs.Family)
	result := env.engine.Evaluate(rs, contract, patient)
	rep := report.NewBuilder(env.library).Build(result, rs, contract, patient)

	out := commandOutput(cmd)
	if format == cli.FormatJSON {
		err = report.WriteJSON(out, []*report.Report{rep})
	} else {
		err = report.WriteText(out, rep)
	}
	if err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if result.Outcome == ast.OutcomeError {
		return cli.NewCommandError("evaluate", errors.New(result.Error))
	}
	return nil
}

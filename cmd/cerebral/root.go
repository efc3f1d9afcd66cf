package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Netrion-29/Netrion-cerebralos/pkg/cli"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "cerebral",
	Short: "Cerebral - clinical compliance gate evaluation",
	Long: `Cerebral evaluates declarative clinical compliance rulesets against
patient evidence and produces auditable, deterministic outcomes.

It provides:
  - Event rulesets (registry definitions) with YES/NO/EXCLUDED outcomes
  - Protocol rulesets with COMPLIANT/NON_COMPLIANT/NOT_TRIGGERED outcomes
  - Negation, historical and admission-window evidence filtering
  - A persistent audit trail with outcome drift detection
  - Prometheus metrics for batch runs`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with a status derived from the
// returned error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults apply when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

/*
Package cli provides command-line utilities shared by the cerebral command.

Exit Codes:

Commands return typed errors which ExitCode maps to a process status:
configuration and input errors (ConfigError, InputError) exit 2, anything
else exits 1.

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitCode(err))
	}

Output Formatting:

	format, err := cli.ParseFormat(flag, cli.FormatText, cli.FormatJSON)

Progress Reporting:

BatchProgress observes batch evaluations and draws a progress bar:

	progress := cli.NewBatchProgress(os.Stderr, len(patients)*len(rulesets))
	runner.WithMetrics(progress)
	...
	progress.Finish()

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()
*/
package cli

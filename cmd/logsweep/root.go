package main

import (
	"github.com/spf13/cobra"

	"logsweep/internal/config"
)

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}
	ctx := newCommandContext(flags)

	rootCmd := &cobra.Command{
		Use:           "logsweep",
		Short:         "Sweep .log files into one aggregate file",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureSettings()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.config, "config", "c", config.DefaultConfigFile, "Configuration file path (relative to the working directory)")
	pf.StringVar(&flags.pidFile, "pid-file", config.DefaultPIDPath, "PID file path")
	pf.StringVar(&flags.ledger, "ledger", config.DefaultLedgerPath, "Pass history database (empty disables)")
	pf.StringVar(&flags.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.StringVar(&flags.logFormat, "log-format", "console", "Log format (console, json)")
	pf.StringVar(&flags.logFileFormat, "log-file-format", "", "Log format for file outputs (defaults to --log-format)")
	pf.StringSliceVar(&flags.logOutputs, "log-output", nil, "Log outputs: stderr, stdout, syslog or file paths (repeatable)")

	for _, cmd := range newDaemonCommands(ctx) {
		rootCmd.AddCommand(cmd)
	}
	rootCmd.AddCommand(newDaemonRunCommand(ctx))
	rootCmd.AddCommand(newOnceCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newTailCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}

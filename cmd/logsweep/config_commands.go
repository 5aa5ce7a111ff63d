package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"logsweep/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand(ctx))
	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigShowCommand(ctx))

	return configCmd
}

func newConfigInitCommand(ctx *commandContext) *cobra.Command {
	var overwrite bool
	var source, dest string
	var interval time.Duration

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a configuration file",
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := ctx.resolvedConfigPath()
			if err != nil {
				return fmt.Errorf("resolve config path: %w", err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if source == "" && dest == "" && interval == 0 {
				err = config.CreateSample(target)
			} else {
				err = config.WriteFile(target, config.Settings{SourceDir: source, DestDir: dest, PollInterval: interval})
			}
			if err != nil {
				return fmt.Errorf("write config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote configuration to %s\n", target)
			fmt.Fprintln(out, "Line 1 is the source directory, line 2 the destination, line 3 the poll interval in seconds.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	cmd.Flags().StringVar(&source, "source", "", "Source directory to sweep")
	cmd.Flags().StringVar(&dest, "dest", "", "Destination directory for total.log")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Poll interval (whole seconds)")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := ctx.ensureSettings(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", ctx.configPath)
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := ctx.ensureSettings()
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, map[string]any{
					"config_path":           ctx.configPath,
					"source_dir":            settings.SourceDir,
					"dest_dir":              settings.DestDir,
					"poll_interval_seconds": settings.PollSeconds(),
					"aggregate_path":        settings.AggregatePath(),
				})
			}
			sw := newStatusWriter(cmd.OutOrStdout())
			sw.value("Config file", ctx.configPath)
			sw.value("Source directory", settings.SourceDir)
			sw.value("Destination", settings.DestDir)
			sw.value("Aggregate file", settings.AggregatePath())
			sw.value("Poll interval", settings.PollInterval.String())
			sw.value("Pass ledger", ledgerLabel(ctx.ledgerPath()))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output configuration as JSON")
	return cmd
}

func ledgerLabel(path string) string {
	if path == "" {
		return "disabled"
	}
	return path
}

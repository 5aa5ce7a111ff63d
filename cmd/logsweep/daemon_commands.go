package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"logsweep/internal/daemon"
	"logsweep/internal/daemonctl"
	"logsweep/internal/daemonrun"
)

const startWait = 10 * time.Second

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	skip := map[string]string{skipConfigAnnotation: "true"}

	startCmd := &cobra.Command{
		Use:         "start",
		Short:       "Start the logsweep daemon in the background",
		Annotations: skip,
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			if info, err := daemonctl.Inspect(ctx.pidPath()); err == nil && info.State == daemonctl.StateRunning {
				fmt.Fprintf(stdout, "Replacing running daemon (pid %d)\n", info.PID)
			}

			pid, err := daemon.Launch(daemon.LaunchOptions{
				ConfigPath: ctx.flags.config,
				PIDPath:    ctx.pidPath(),
				LedgerPath: ctx.ledgerPath(),
				LogLevel:   ctx.flags.logLevel,
				LogFormat:  ctx.flags.logFormat,
				FileFormat: ctx.flags.logFileFormat,
				LogOutputs: ctx.flags.logOutputs,
				Wait:       startWait,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Daemon started (pid %d)\n", pid)
			return nil
		},
	}

	var stopTimeout time.Duration
	var stopForce bool
	stopCmd := &cobra.Command{
		Use:         "stop",
		Short:       "Stop the logsweep daemon",
		Annotations: skip,
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.Stop(ctx.pidPath(), daemonctl.StopOptions{Timeout: stopTimeout, Force: stopForce})
			if errors.Is(err, daemonctl.ErrNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.Killed {
				fmt.Fprintf(stdout, "Daemon killed (pid %d)\n", result.PID)
				return nil
			}
			fmt.Fprintf(stdout, "Daemon stopped (pid %d)\n", result.PID)
			return nil
		},
	}
	stopCmd.Flags().DurationVar(&stopTimeout, "timeout", 10*time.Second, "How long to wait for the daemon to exit")
	stopCmd.Flags().BoolVar(&stopForce, "force", false, "Send SIGKILL if the daemon does not exit in time")

	reloadCmd := &cobra.Command{
		Use:         "reload",
		Short:       "Ask the daemon to re-read its configuration (SIGHUP)",
		Annotations: skip,
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := daemonctl.Reload(ctx.pidPath())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reload requested (pid %d)\n", pid)
			return nil
		},
	}

	runCmd := &cobra.Command{
		Use:         "run",
		Short:       "Run the daemon in the foreground",
		Annotations: skip,
		RunE: func(cmd *cobra.Command, args []string) error {
			return daemonrun.Run(cmd.Context(), ctx.runOptions(false))
		},
	}

	return []*cobra.Command{startCmd, stopCmd, reloadCmd, runCmd}
}

func (c *commandContext) runOptions(detached bool) daemonrun.Options {
	return daemonrun.Options{
		ConfigPath: c.flags.config,
		WorkDir:    c.flags.workDir,
		PIDPath:    c.pidPath(),
		LedgerPath: c.ledgerPath(),
		LogLevel:   c.flags.logLevel,
		LogFormat:  c.flags.logFormat,
		FileFormat: c.flags.logFileFormat,
		LogOutputs: c.flags.logOutputs,
		Detached:   detached,
	}
}

package main

import (
	"github.com/spf13/cobra"

	"logsweep/internal/daemonrun"
	"logsweep/internal/detach"
)

func newDaemonRunCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "daemon",
		Short:        "Run the logsweep daemon (internal)",
		Hidden:       true,
		Annotations:  map[string]string{skipConfigAnnotation: "true"},
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return daemonrun.Run(cmd.Context(), ctx.runOptions(daemonrun.IsDetachedChild()))
		},
	}
	cmd.Flags().StringVar(&ctx.flags.workDir, detach.WorkDirFlagName, "", "Working directory captured by the launching process")
	return cmd
}

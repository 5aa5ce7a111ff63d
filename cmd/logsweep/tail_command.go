package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"logsweep/internal/aggregate"
)

func newTailCommand(ctx *commandContext) *cobra.Command {
	var size int64
	var follow bool
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Print the end of the aggregate file",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := ctx.ensureSettings()
			if err != nil {
				return err
			}
			path := settings.AggregatePath()
			data, end, err := aggregate.ReadTail(path, size)
			if errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("aggregate file %s does not exist yet", path)
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if _, err := out.Write(data); err != nil {
				return err
			}
			if !follow {
				return nil
			}

			followCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return aggregate.Follow(followCtx, path, end, out, aggregate.DefaultFollowInterval)
		},
	}
	cmd.Flags().Int64VarP(&size, "bytes", "b", 4096, "Number of trailing bytes to print (0 prints everything)")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing blocks as they are appended")
	return cmd
}

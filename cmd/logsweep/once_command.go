package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"logsweep/internal/aggregate"
	"logsweep/internal/config"
	"logsweep/internal/ledger"
	"logsweep/internal/logging"
)

func newOnceCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var record bool
	cmd := &cobra.Command{
		Use:   "once",
		Short: "Run a single sweep pass in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := ctx.ensureSettings()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger([]string{logging.OutputStderr})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer logger.Close()

			opts := []aggregate.Option{aggregate.WithLogger(logger.Logger)}
			if record && ctx.ledgerPath() != "" {
				store, err := ledger.Open(cmd.Context(), ctx.ledgerPath())
				if err != nil {
					logging.WarnWithContext(logger.Logger, "pass ledger unavailable", "ledger_open_failed",
						logging.Error(err),
						logging.String(logging.FieldImpact, "this pass is not recorded"),
					)
				} else {
					defer store.Close()
					opts = append(opts, aggregate.WithRecorder(store))
				}
			}

			result := aggregate.NewCycle(config.NewStaticStore(settings), opts...).RunOnce(cmd.Context())
			if jsonOutput {
				return writeJSON(cmd, passView(result))
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Pass %s\n", result.ID)
			fmt.Fprintf(out, "  Discovered: %d\n", result.Discovered)
			fmt.Fprintf(out, "  Appended:   %d (%s)\n", result.Appended, humanize.Bytes(uint64(result.Bytes)))
			fmt.Fprintf(out, "  Deleted:    %d\n", result.Deleted)
			if result.Error != "" {
				fmt.Fprintf(out, "  Error:      %s\n", result.Error)
			}
			if result.DataLoss() {
				fmt.Fprintf(out, "  Warning:    %d file(s) deleted without being aggregated\n", result.Discovered-result.Appended)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the pass result as JSON")
	cmd.Flags().BoolVar(&record, "record", true, "Record the pass in the ledger")
	return cmd
}

type passJSON struct {
	ID         string `json:"pass_id"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at"`
	SourceDir  string `json:"source_dir"`
	DestDir    string `json:"dest_dir"`
	Discovered int    `json:"discovered"`
	Appended   int    `json:"appended"`
	Skipped    int    `json:"skipped"`
	Deleted    int    `json:"deleted"`
	Bytes      int64  `json:"bytes"`
	DataLoss   bool   `json:"data_loss"`
	Error      string `json:"error,omitempty"`
}

func passView(r aggregate.Result) passJSON {
	return passJSON{
		ID:         r.ID,
		StartedAt:  r.StartedAt.Format(timeLayoutJSON),
		FinishedAt: r.FinishedAt.Format(timeLayoutJSON),
		SourceDir:  r.SourceDir,
		DestDir:    r.DestDir,
		Discovered: r.Discovered,
		Appended:   r.Appended,
		Skipped:    r.Skipped,
		Deleted:    r.Deleted,
		Bytes:      r.Bytes,
		DataLoss:   r.DataLoss(),
		Error:      r.Error,
	}
}

package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"logsweep/internal/ledger"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:         "history",
		Short:       "List recent sweep passes",
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if ctx.ledgerPath() == "" {
				return fmt.Errorf("pass ledger is disabled (--ledger is empty)")
			}
			store, err := ctx.openLedger(cmd.Context())
			if err != nil {
				return fmt.Errorf("open ledger: %w", err)
			}
			var passes []ledger.Pass
			if store != nil {
				defer store.Close()
				if passes, err = store.Recent(cmd.Context(), limit); err != nil {
					return err
				}
			}

			if jsonOutput {
				if passes == nil {
					passes = []ledger.Pass{}
				}
				return writeJSON(cmd, passes)
			}

			stdout := cmd.OutOrStdout()
			if len(passes) == 0 {
				fmt.Fprintln(stdout, "No passes recorded")
				return nil
			}
			fmt.Fprintln(stdout, historyTable(passes))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of passes to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output passes as JSON")
	return cmd
}

func historyTable(passes []ledger.Pass) string {
	spec := tableSpec{
		headers: []string{"Started", "Found", "Appended", "Deleted", "Size", "Took", "Result"},
		aligns:  []columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft},
	}
	var files, bytes int64
	for _, p := range passes {
		spec.rows = append(spec.rows, []string{
			p.StartedAt.Local().Format("2006-01-02 15:04:05"),
			strconv.Itoa(p.Discovered),
			strconv.Itoa(p.Appended),
			strconv.Itoa(p.Deleted),
			humanize.Bytes(uint64(p.Bytes)),
			p.FinishedAt.Sub(p.StartedAt).Round(time.Millisecond).String(),
			passOutcome(p),
		})
		files += int64(p.Appended)
		bytes += p.Bytes
	}
	spec.footer = []string{"Total", "", humanize.Comma(files), "", humanize.Bytes(uint64(bytes)), "", ""}
	return spec.render()
}

func passOutcome(p ledger.Pass) string {
	switch {
	case p.DataLoss():
		return titleLabel("data_loss")
	case p.Error != "":
		return "Error: " + p.Error
	default:
		return "OK"
	}
}

package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"logsweep/internal/config"
	"logsweep/internal/daemonctl"
	"logsweep/internal/ledger"
	"logsweep/internal/preflight"
)

type statusSnapshot struct {
	Process    daemonctl.ProcessInfo `json:"process"`
	PIDPath    string                `json:"pid_path"`
	ConfigPath string                `json:"config_path"`
	ConfigErr  string                `json:"config_error,omitempty"`
	SourceDir  string                `json:"source_dir,omitempty"`
	DestDir    string                `json:"dest_dir,omitempty"`
	PollSecs   int                   `json:"poll_interval_seconds,omitempty"`
	Checks     []preflight.Result    `json:"checks,omitempty"`
	Aggregate  *aggregateInfo        `json:"aggregate,omitempty"`
	LedgerPath string                `json:"ledger_path,omitempty"`
	Totals     *ledger.Totals        `json:"totals,omitempty"`
	LastPass   *ledger.Pass          `json:"last_pass,omitempty"`
}

type aggregateInfo struct {
	Path     string    `json:"path"`
	Exists   bool      `json:"exists"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified,omitempty"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:         "status",
		Short:       "Show daemon, configuration and history status",
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := buildStatusSnapshot(cmd, ctx)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, snap)
			}
			stdout := cmd.OutOrStdout()
			renderStatus(stdout, snap)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output status as JSON")
	return cmd
}

func buildStatusSnapshot(cmd *cobra.Command, ctx *commandContext) (statusSnapshot, error) {
	snap := statusSnapshot{PIDPath: ctx.pidPath(), LedgerPath: ctx.ledgerPath()}

	info, err := daemonctl.Inspect(snap.PIDPath)
	if err != nil {
		return snap, fmt.Errorf("inspect pid record: %w", err)
	}
	snap.Process = info

	settings, err := ctx.ensureSettings()
	snap.ConfigPath = ctx.configPath
	if err != nil {
		snap.ConfigErr = err.Error()
	} else {
		snap.SourceDir = settings.SourceDir
		snap.DestDir = settings.DestDir
		snap.PollSecs = settings.PollSeconds()
		snap.Checks = preflight.RunAll(settings, snap.PIDPath)
		snap.Aggregate = inspectAggregate(settings)
	}

	store, err := ctx.openLedger(cmd.Context())
	if err != nil {
		return snap, fmt.Errorf("open ledger: %w", err)
	}
	if store != nil {
		defer store.Close()
		totals, err := store.Totals(cmd.Context())
		if err != nil {
			return snap, err
		}
		snap.Totals = &totals
		recent, err := store.Recent(cmd.Context(), 1)
		if err != nil {
			return snap, err
		}
		if len(recent) > 0 {
			snap.LastPass = &recent[0]
		}
	}
	return snap, nil
}

func inspectAggregate(settings config.Settings) *aggregateInfo {
	agg := &aggregateInfo{Path: settings.AggregatePath()}
	if fi, err := os.Stat(agg.Path); err == nil {
		agg.Exists = true
		agg.Size = fi.Size()
		agg.Modified = fi.ModTime()
	}
	return agg
}

func renderStatus(w io.Writer, snap statusSnapshot) {
	sw := newStatusWriter(w)
	sw.section("Daemon")
	kind, detail := processLine(snap.Process)
	sw.status("State", kind, detail)
	sw.value("PID file", snap.PIDPath)
	sw.gap()

	sw.section("Configuration")
	sw.value("Config file", snap.ConfigPath)
	if snap.ConfigErr != "" {
		sw.status("Config", statusError, snap.ConfigErr)
	} else {
		sw.value("Source directory", snap.SourceDir)
		sw.value("Destination", snap.DestDir)
		sw.value("Poll interval", (time.Duration(snap.PollSecs) * time.Second).String())
		for _, check := range snap.Checks {
			kind := statusOK
			if !check.Passed {
				kind = statusError
			}
			sw.status(check.Name, kind, check.Detail)
		}
	}
	sw.gap()

	if snap.Aggregate != nil {
		sw.section("Aggregate")
		sw.value("File", snap.Aggregate.Path)
		if snap.Aggregate.Exists {
			sw.value("Size", humanize.Bytes(uint64(snap.Aggregate.Size)))
			sw.value("Last write", humanize.Time(snap.Aggregate.Modified))
		} else {
			sw.value("Size", "not created yet")
		}
		sw.gap()
	}

	sw.section("History")
	if snap.LedgerPath == "" {
		sw.value("Ledger", "disabled")
		return
	}
	sw.value("Ledger", snap.LedgerPath)
	if snap.Totals == nil {
		sw.value("Passes", "none recorded")
		return
	}
	sw.value("Passes", humanize.Comma(int64(snap.Totals.Passes)))
	sw.value("Files aggregated", humanize.Comma(int64(snap.Totals.Appended)))
	sw.value("Bytes aggregated", humanize.Bytes(uint64(snap.Totals.Bytes)))
	lossKind := statusOK
	if snap.Totals.LossPasses > 0 {
		lossKind = statusWarn
	}
	sw.status("Passes with data loss", lossKind, humanize.Comma(int64(snap.Totals.LossPasses)))
	if snap.LastPass != nil {
		sw.value("Last pass", fmt.Sprintf("%s (%d files)", humanize.Time(snap.LastPass.StartedAt), snap.LastPass.Discovered))
	}
}

func processLine(info daemonctl.ProcessInfo) (statusKind, string) {
	label := titleLabel(string(info.State))
	switch info.State {
	case daemonctl.StateRunning:
		return statusOK, fmt.Sprintf("%s (pid %d)", label, info.PID)
	case daemonctl.StateStale:
		return statusWarn, fmt.Sprintf("%s record (pid %d not alive)", label, info.PID)
	default:
		return statusInfo, "Not running"
	}
}

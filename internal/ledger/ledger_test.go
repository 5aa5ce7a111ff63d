package ledger_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"logsweep/internal/aggregate"
	"logsweep/internal/ledger"
	"logsweep/internal/testsupport"
)

func samplePass(id string, started time.Time, discovered, appended int) aggregate.Result {
	return aggregate.Result{
		ID:         id,
		StartedAt:  started,
		FinishedAt: started.Add(250 * time.Millisecond),
		SourceDir:  "/src",
		DestDir:    "/dst",
		Discovered: discovered,
		Appended:   appended,
		Skipped:    discovered - appended,
		Deleted:    discovered,
		Bytes:      int64(appended * 10),
	}
}

func TestRecordAndRecent(t *testing.T) {
	store := testsupport.MustOpenLedger(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"p1", "p2", "p3"} {
		if err := store.Record(ctx, samplePass(id, base.Add(time.Duration(i)*time.Minute), 2, 2)); err != nil {
			t.Fatalf("Record(%s): %v", id, err)
		}
	}

	passes, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(passes) != 2 {
		t.Fatalf("expected 2 passes, got %d", len(passes))
	}
	if passes[0].PassID != "p3" || passes[1].PassID != "p2" {
		t.Fatalf("unexpected order: %s, %s", passes[0].PassID, passes[1].PassID)
	}
	if !passes[0].StartedAt.Equal(base.Add(2 * time.Minute)) {
		t.Fatalf("unexpected start time: %v", passes[0].StartedAt)
	}
	if passes[0].Bytes != 20 || passes[0].Error != "" {
		t.Fatalf("unexpected row: %+v", passes[0])
	}
}

func TestRecentOrdersWithinOneSecond(t *testing.T) {
	store := testsupport.MustOpenLedger(t)
	ctx := context.Background()
	whole := time.Date(2026, 3, 1, 12, 0, 5, 0, time.UTC)

	if err := store.Record(ctx, samplePass("later", whole.Add(500*time.Millisecond), 1, 1)); err != nil {
		t.Fatalf("Record(later): %v", err)
	}
	if err := store.Record(ctx, samplePass("earlier", whole, 1, 1)); err != nil {
		t.Fatalf("Record(earlier): %v", err)
	}

	passes, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(passes) != 2 || passes[0].PassID != "later" || passes[1].PassID != "earlier" {
		t.Fatalf("unexpected order: %+v", passes)
	}
	if !passes[1].StartedAt.Equal(whole) {
		t.Fatalf("start time not preserved: %v", passes[1].StartedAt)
	}
}

func TestRecordKeepsErrorAndLoss(t *testing.T) {
	store := testsupport.MustOpenLedger(t)
	ctx := context.Background()

	result := samplePass("lossy", time.Now().UTC(), 3, 0)
	result.Error = "open aggregate file: permission denied"
	if err := store.Record(ctx, result); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := store.Record(ctx, samplePass("clean", time.Now().UTC(), 1, 1)); err != nil {
		t.Fatalf("Record: %v", err)
	}

	passes, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	var lossy ledger.Pass
	for _, p := range passes {
		if p.PassID == "lossy" {
			lossy = p
		}
	}
	if lossy.Error != result.Error || !lossy.DataLoss() {
		t.Fatalf("unexpected lossy row: %+v", lossy)
	}

	totals, err := store.Totals(ctx)
	if err != nil {
		t.Fatalf("Totals: %v", err)
	}
	if totals.Passes != 2 || totals.Appended != 1 || totals.Deleted != 4 || totals.LossPasses != 1 {
		t.Fatalf("unexpected totals: %+v", totals)
	}
}

func TestRecordRejectsDuplicatePassID(t *testing.T) {
	store := testsupport.MustOpenLedger(t)
	ctx := context.Background()
	pass := samplePass("dup", time.Now().UTC(), 1, 1)
	if err := store.Record(ctx, pass); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := store.Record(ctx, pass); err == nil {
		t.Fatal("expected unique constraint failure")
	}
}

func TestOpenReusesExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "ledger.db")
	ctx := context.Background()

	first, err := ledger.Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := first.Record(ctx, samplePass("kept", time.Now().UTC(), 1, 1)); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second, err := ledger.Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()
	passes, err := second.Recent(ctx, 5)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(passes) != 1 || passes[0].PassID != "kept" {
		t.Fatalf("unexpected passes after reopen: %+v", passes)
	}
}

func TestOpenDetectsSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()
	store, err := ledger.Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	store.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec("PRAGMA user_version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	db.Close()

	if _, err := ledger.Open(ctx, path); !errors.Is(err, ledger.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	if _, err := ledger.Open(context.Background(), " "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestCycleRecordsIntoLedger(t *testing.T) {
	store := testsupport.MustOpenLedger(t)
	settings := testsupport.NewSettings(t)
	testsupport.WriteFile(t, filepath.Join(settings.SourceDir, "a.log"), "hello")

	cycle := aggregate.NewCycle(testsupport.StaticSettings(settings), aggregate.WithRecorder(store))
	result := cycle.RunOnce(context.Background())

	passes, err := store.Recent(context.Background(), 1)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(passes) != 1 || passes[0].PassID != result.ID || passes[0].Appended != 1 {
		t.Fatalf("unexpected ledger rows: %+v", passes)
	}
}

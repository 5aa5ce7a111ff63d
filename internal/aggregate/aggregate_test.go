package aggregate_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"logsweep/internal/aggregate"
	"logsweep/internal/config"
	"logsweep/internal/logging"
	"logsweep/internal/testsupport"
)

type recordingSink struct {
	mu      sync.Mutex
	results []aggregate.Result
	err     error
}

func (r *recordingSink) Record(_ context.Context, result aggregate.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
	return r.err
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.results)
}

type swappableSettings struct {
	current atomic.Pointer[config.Settings]
}

func (s *swappableSettings) Current() config.Settings { return *s.current.Load() }

func (s *swappableSettings) set(settings config.Settings) { s.current.Store(&settings) }

func newCycle(settings config.Settings, opts ...aggregate.Option) *aggregate.Cycle {
	opts = append([]aggregate.Option{aggregate.WithLogger(logging.NewNop())}, opts...)
	return aggregate.NewCycle(config.NewStaticStore(settings), opts...)
}

func TestRunOnceScenarioLogAndText(t *testing.T) {
	settings := testsupport.NewSettings(t)
	aPath := filepath.Join(settings.SourceDir, "a.log")
	testsupport.WriteFile(t, aPath, "hello")
	testsupport.WriteFile(t, filepath.Join(settings.SourceDir, "b.txt"), "ignored")
	testsupport.WriteFile(t, settings.AggregatePath(), "")

	result := newCycle(settings).RunOnce(context.Background())

	want := "\n\n" + aPath + "\nhello"
	if got := testsupport.ReadFile(t, settings.AggregatePath()); got != want {
		t.Fatalf("aggregate content: got %q want %q", got, want)
	}
	names := testsupport.ListDir(t, settings.SourceDir)
	if len(names) != 1 || names[0] != "b.txt" {
		t.Fatalf("source dir after pass: %v", names)
	}
	if result.Discovered != 1 || result.Appended != 1 || result.Deleted != 1 || result.DataLoss() {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestRunOnceGrowthMatchesBlocks(t *testing.T) {
	settings := testsupport.NewSettings(t)
	existing := "previous content"
	testsupport.WriteFile(t, settings.AggregatePath(), existing)

	files := map[string]string{
		filepath.Join(settings.SourceDir, "one.log"):                 "first\n",
		filepath.Join(settings.SourceDir, "nested", "two.log"):       "",
		filepath.Join(settings.SourceDir, "nested", "deep", "3.log"): "third line\nwith two lines",
	}
	wantGrowth := 0
	for path, content := range files {
		testsupport.WriteFile(t, path, content)
		wantGrowth += aggregate.BlockOverhead + len(path) + len(content)
	}

	result := newCycle(settings).RunOnce(context.Background())

	got := testsupport.ReadFile(t, settings.AggregatePath())
	if len(got)-len(existing) != wantGrowth {
		t.Fatalf("aggregate grew by %d, want %d", len(got)-len(existing), wantGrowth)
	}
	if got[:len(existing)] != existing {
		t.Fatal("existing aggregate content was modified")
	}
	if result.Bytes != int64(wantGrowth) {
		t.Fatalf("result bytes %d, want %d", result.Bytes, wantGrowth)
	}
	for path := range files {
		if testsupport.Exists(t, path) {
			t.Fatalf("%s still present after pass", path)
		}
	}
}

func TestRunOnceEmptySourceLeavesDestinationUntouched(t *testing.T) {
	settings := testsupport.NewSettings(t)
	recorder := &recordingSink{}

	result := newCycle(settings, aggregate.WithRecorder(recorder)).RunOnce(context.Background())

	if result.Discovered != 0 {
		t.Fatalf("unexpected discoveries: %+v", result)
	}
	if names := testsupport.ListDir(t, settings.DestDir); len(names) != 0 {
		t.Fatalf("destination changed: %v", names)
	}
	if recorder.count() != 0 {
		t.Fatal("empty pass must not be recorded")
	}
}

func TestRunOnceLeavesNonMatchingFiles(t *testing.T) {
	settings := testsupport.NewSettings(t)
	keep := []string{
		filepath.Join(settings.SourceDir, "notes.txt"),
		filepath.Join(settings.SourceDir, "app.log.1"),
		filepath.Join(settings.SourceDir, "upper.LOG"),
		filepath.Join(settings.SourceDir, ".log"),
		filepath.Join(settings.SourceDir, "sub", "data.json"),
	}
	for _, path := range keep {
		testsupport.WriteFile(t, path, "keep")
	}
	if err := os.Mkdir(filepath.Join(settings.SourceDir, "dir.log"), 0o755); err != nil {
		t.Fatal(err)
	}

	result := newCycle(settings).RunOnce(context.Background())

	if result.Discovered != 0 {
		t.Fatalf("unexpected discoveries: %+v", result)
	}
	for _, path := range keep {
		if !testsupport.Exists(t, path) {
			t.Fatalf("%s was removed", path)
		}
	}
	if testsupport.Exists(t, settings.AggregatePath()) {
		t.Fatal("aggregate file created without matches")
	}
}

func TestRunOnceSharedDirectorySkipsAggregate(t *testing.T) {
	settings := testsupport.NewSettings(t, testsupport.WithSharedDirectory())
	aPath := filepath.Join(settings.SourceDir, "a.log")
	testsupport.WriteFile(t, aPath, "x")

	cycle := newCycle(settings)
	cycle.RunOnce(context.Background())
	second := cycle.RunOnce(context.Background())

	if second.Discovered != 0 {
		t.Fatalf("aggregate file was rediscovered: %+v", second)
	}
	if got := testsupport.ReadFile(t, settings.AggregatePath()); got != "\n\n"+aPath+"\nx" {
		t.Fatalf("unexpected aggregate: %q", got)
	}
}

func TestRunOnceAggregateUnavailableStillDeletes(t *testing.T) {
	settings := testsupport.NewSettings(t)
	aPath := filepath.Join(settings.SourceDir, "a.log")
	testsupport.WriteFile(t, aPath, "lost")
	// A directory in place of total.log makes the aggregate unopenable.
	if err := os.Mkdir(settings.AggregatePath(), 0o755); err != nil {
		t.Fatal(err)
	}
	recorder := &recordingSink{}

	result := newCycle(settings, aggregate.WithRecorder(recorder)).RunOnce(context.Background())

	if result.Error == "" || result.Appended != 0 {
		t.Fatalf("expected aggregate failure: %+v", result)
	}
	if !result.DataLoss() {
		t.Fatal("expected data loss to be flagged")
	}
	if testsupport.Exists(t, aPath) {
		t.Fatal("discovered file must be deleted even when append failed")
	}
	if recorder.count() != 1 {
		t.Fatalf("expected failed pass recorded, got %d", recorder.count())
	}
}

func TestRunOnceFollowsSymlinkToFile(t *testing.T) {
	settings := testsupport.NewSettings(t)
	target := filepath.Join(filepath.Dir(settings.SourceDir), "outside.txt")
	testsupport.WriteFile(t, target, "linked")
	link := filepath.Join(settings.SourceDir, "link.log")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlink unsupported: %v", err)
	}

	result := newCycle(settings).RunOnce(context.Background())

	if result.Appended != 1 {
		t.Fatalf("expected symlinked file appended: %+v", result)
	}
	if got := testsupport.ReadFile(t, settings.AggregatePath()); got != "\n\n"+link+"\nlinked" {
		t.Fatalf("unexpected aggregate: %q", got)
	}
	if testsupport.Exists(t, link) {
		t.Fatal("symlink should be removed")
	}
	if !testsupport.Exists(t, target) {
		t.Fatal("symlink target must survive")
	}
}

func TestRunOnceFollowsSymlinkedSourceDir(t *testing.T) {
	settings := testsupport.NewSettings(t)
	realDir := filepath.Join(t.TempDir(), "real")
	testsupport.WriteFile(t, filepath.Join(realDir, "nested", "a.log"), "hello")
	link := filepath.Join(t.TempDir(), "logs")
	if err := os.Symlink(realDir, link); err != nil {
		t.Skipf("symlink unsupported: %v", err)
	}
	settings.SourceDir = link

	result := newCycle(settings).RunOnce(context.Background())

	if result.Discovered != 1 || result.Appended != 1 || result.Error != "" {
		t.Fatalf("expected file under symlinked source dir: %+v", result)
	}
	recorded := filepath.Join(link, "nested", "a.log")
	if got := testsupport.ReadFile(t, settings.AggregatePath()); got != "\n\n"+recorded+"\nhello" {
		t.Fatalf("unexpected aggregate: %q", got)
	}
	if testsupport.Exists(t, filepath.Join(realDir, "nested", "a.log")) {
		t.Fatal("file behind the symlinked source dir should be deleted")
	}
}

func TestRunOnceSymlinkedSharedDirectorySkipsAggregate(t *testing.T) {
	settings := testsupport.NewSettings(t)
	link := filepath.Join(t.TempDir(), "dest-link")
	if err := os.Symlink(settings.DestDir, link); err != nil {
		t.Skipf("symlink unsupported: %v", err)
	}
	settings.SourceDir = link
	testsupport.WriteFile(t, settings.AggregatePath(), "kept")

	result := newCycle(settings).RunOnce(context.Background())

	if result.Discovered != 0 {
		t.Fatalf("aggregate file reached through a symlink was discovered: %+v", result)
	}
	if got := testsupport.ReadFile(t, settings.AggregatePath()); got != "kept" {
		t.Fatalf("aggregate changed: %q", got)
	}
}

func TestAppendSkipsFileThatCannotBeOpened(t *testing.T) {
	settings := testsupport.NewSettings(t)
	first := filepath.Join(settings.SourceDir, "first.log")
	gone := filepath.Join(settings.SourceDir, "gone.log")
	last := filepath.Join(settings.SourceDir, "last.log")
	testsupport.WriteFile(t, first, "one")
	testsupport.WriteFile(t, last, "three")
	files := []string{first, gone, last}

	stats, err := aggregate.Append(settings.AggregatePath(), files, logging.NewNop())
	if err != nil {
		t.Fatalf("Append returned error: %v", err)
	}
	if stats.Appended != 2 || stats.Skipped != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	want := "\n\n" + first + "\none" + "\n\n" + last + "\nthree"
	if got := testsupport.ReadFile(t, settings.AggregatePath()); got != want {
		t.Fatalf("aggregate content: got %q want %q", got, want)
	}

	deleted := aggregate.Delete(files, logging.NewNop())
	if deleted != len(files) {
		t.Fatalf("every discovered path counts as deleted, got %d", deleted)
	}
	result := aggregate.Result{Discovered: len(files), Appended: stats.Appended, Skipped: stats.Skipped, Deleted: deleted}
	if !result.DataLoss() {
		t.Fatalf("skipped file must be flagged as data loss: %+v", result)
	}
}

func TestRunOnceMissingSourceDir(t *testing.T) {
	settings := testsupport.NewSettings(t, testsupport.WithoutDirectories())

	result := newCycle(settings).RunOnce(context.Background())

	if result.Error == "" || result.Discovered != 0 {
		t.Fatalf("expected discovery error: %+v", result)
	}
}

func TestRunOnceRecordsPass(t *testing.T) {
	settings := testsupport.NewSettings(t)
	testsupport.WriteFile(t, filepath.Join(settings.SourceDir, "a.log"), "abc")
	recorder := &recordingSink{err: errors.New("ledger offline")}
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	result := newCycle(settings,
		aggregate.WithRecorder(recorder),
		aggregate.WithClock(func() time.Time { return fixed }),
	).RunOnce(context.Background())

	if recorder.count() != 1 {
		t.Fatalf("expected one recorded pass, got %d", recorder.count())
	}
	got := recorder.results[0]
	if got.ID == "" || got.ID != result.ID {
		t.Fatalf("recorded id %q, result id %q", got.ID, result.ID)
	}
	if !got.StartedAt.Equal(fixed) || got.SourceDir != settings.SourceDir {
		t.Fatalf("unexpected recorded pass: %+v", got)
	}
}

func TestRunUsesReloadedSettingsAfterWake(t *testing.T) {
	first := testsupport.NewSettings(t, testsupport.WithPollInterval(time.Hour))
	second := testsupport.NewSettings(t, testsupport.WithPollInterval(time.Hour))
	source := &swappableSettings{}
	source.set(first)

	cycle := aggregate.NewCycle(source, aggregate.WithLogger(logging.NewNop()))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cycle.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	logPath := filepath.Join(second.SourceDir, "late.log")
	testsupport.WriteFile(t, logPath, "after reload")
	source.set(second)
	cycle.Wake()

	waitFor(t, func() bool { return testsupport.Exists(t, second.AggregatePath()) })
	waitFor(t, func() bool { return !testsupport.Exists(t, logPath) })
	if testsupport.Exists(t, first.AggregatePath()) {
		t.Fatal("old destination should not receive files")
	}
	if got := testsupport.ReadFile(t, second.AggregatePath()); got != "\n\n"+logPath+"\nafter reload" {
		t.Fatalf("unexpected aggregate: %q", got)
	}
}

func TestRunReturnsOnCancel(t *testing.T) {
	settings := testsupport.NewSettings(t, testsupport.WithPollInterval(time.Hour))
	cycle := newCycle(settings)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cycle.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestWakeNeverBlocks(t *testing.T) {
	cycle := newCycle(testsupport.NewSettings(t))
	for range 5 {
		cycle.Wake()
	}
}

func TestReadTail(t *testing.T) {
	settings := testsupport.NewSettings(t)
	if _, _, err := aggregate.ReadTail(settings.AggregatePath(), 10); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	if testsupport.Exists(t, settings.AggregatePath()) {
		t.Fatal("ReadTail must not create the aggregate file")
	}

	testsupport.WriteFile(t, settings.AggregatePath(), "abcdefgh")
	got, end, err := aggregate.ReadTail(settings.AggregatePath(), 3)
	if err != nil {
		t.Fatalf("ReadTail returned error: %v", err)
	}
	if string(got) != "fgh" || end != 8 {
		t.Fatalf("unexpected tail %q at %d", got, end)
	}
}

func TestMatches(t *testing.T) {
	cases := map[string]bool{
		"a.log":       true,
		"a.b.log":     true,
		".hidden.log": true,
		".log":        false,
		"a.LOG":       false,
		"a.log.gz":    false,
		"log":         false,
	}
	for name, want := range cases {
		if got := aggregate.Matches(name); got != want {
			t.Fatalf("Matches(%q) = %v, want %v", name, got, want)
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

package testsupport

import (
	"context"
	"path/filepath"
	"testing"

	"logsweep/internal/config"
	"logsweep/internal/ledger"
)

// MustOpenLedger opens a ledger.Store in a temp directory and registers cleanup.
func MustOpenLedger(t testing.TB) *ledger.Store {
	t.Helper()

	store, err := ledger.Open(context.Background(), filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// StaticSettings wraps settings in a store that never reloads.
func StaticSettings(settings config.Settings) *config.Store {
	return config.NewStaticStore(settings)
}

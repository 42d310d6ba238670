package skiplist

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/modkit/espclean/internal/storage"
)

func openRegistry(t *testing.T, dbPath, game string) *Registry {
	t.Helper()
	ctx := context.Background()

	db, err := storage.OpenSQLite(ctx, dbPath)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	r, err := NewRegistry(ctx, db, game)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return r
}

func TestBaselineSkips(t *testing.T) {
	r := openRegistry(t, filepath.Join(t.TempDir(), "state.db"), "sse")

	tests := []struct {
		plugin string
		want   bool
	}{
		{"Skyrim.esm", true},
		{"skyrim.esm", true}, // case-insensitive
		{"Dawnguard.esm", true},
		{"Bashed Patch, 0.esp", false}, // stem match is exact, not prefix
		{"Bashed Patch.esp", true},     // extension-less baseline entry matches by stem
		{"MyMod.esp", false},
	}
	for _, tt := range tests {
		if got := r.ShouldSkip(tt.plugin); got != tt.want {
			t.Errorf("ShouldSkip(%q) = %v, want %v", tt.plugin, got, tt.want)
		}
	}
}

func TestBaselineIsPerGame(t *testing.T) {
	r := openRegistry(t, filepath.Join(t.TempDir(), "state.db"), "fo4")

	if !r.ShouldSkip("Fallout4.esm") {
		t.Error("fo4 baseline should skip Fallout4.esm")
	}
	if r.ShouldSkip("Skyrim.esm") {
		t.Error("fo4 baseline should not skip Skyrim.esm")
	}
}

func TestRecordNonCleanablePersists(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()

	r := openRegistry(t, dbPath, "sse")
	if r.ShouldSkip("Quiet.esp") {
		t.Fatal("fresh registry should not skip Quiet.esp")
	}

	if err := r.RecordNonCleanable(ctx, "Quiet.esp"); err != nil {
		t.Fatalf("RecordNonCleanable: %v", err)
	}
	if !r.ShouldSkip("Quiet.esp") {
		t.Error("learned entry not applied in-memory")
	}
	if !r.ShouldSkip("quiet.esp") {
		t.Error("learned entry should match case-insensitively")
	}

	// Idempotent.
	if err := r.RecordNonCleanable(ctx, "Quiet.esp"); err != nil {
		t.Fatalf("repeat RecordNonCleanable: %v", err)
	}

	// Survives a reload.
	r2 := openRegistry(t, dbPath, "sse")
	if !r2.ShouldSkip("Quiet.esp") {
		t.Error("learned entry not persisted")
	}
	if len(r2.Learned()) != 1 {
		t.Errorf("Learned() = %v, want one entry", r2.Learned())
	}
}

func TestLearnedEntriesAreGameScoped(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()

	sse := openRegistry(t, dbPath, "sse")
	if err := sse.RecordNonCleanable(ctx, "Quiet.esp"); err != nil {
		t.Fatal(err)
	}

	fo4 := openRegistry(t, dbPath, "fo4")
	if fo4.ShouldSkip("Quiet.esp") {
		t.Error("learned entry leaked across games")
	}
}

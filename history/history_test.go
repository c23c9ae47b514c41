package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestRecordAndRecent(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "history.sqlite"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	entries := []Entry{
		{Serial: "ABC123", Command: "ls /sdcard", Tier: "exec-out", Duration: 120 * time.Millisecond, StdoutBytes: 512},
		{Serial: "ABC123", Command: "getprop", Tier: "shell", Duration: 900 * time.Millisecond, StderrBytes: 12},
		{Serial: "DEF456", Command: "pm list packages", Tier: "shell", TimedOut: true, Duration: 15 * time.Second},
	}
	for _, e := range entries {
		if err := store.Record(ctx, e); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	recent, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(recent))
	}
	if recent[0].Command != "pm list packages" || !recent[0].TimedOut {
		t.Fatalf("newest entry not first: %#v", recent[0])
	}
	if recent[1].Tier != "shell" || recent[1].StderrBytes != 12 {
		t.Fatalf("fields did not round-trip: %#v", recent[1])
	}
	if recent[0].CreatedAt.IsZero() {
		t.Fatal("created_at should be populated")
	}
}

func TestOpenCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "history.sqlite")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	if err := store.Record(context.Background(), Entry{Serial: "X", Command: "true", Tier: "exec-out"}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
}

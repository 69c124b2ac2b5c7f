package panel

import (
	"context"
	"testing"
	"time"

	"github.com/storydock/panelhost/internal/domain/story"
)

func TestSnapshotRoundTrip(t *testing.T) {
	store, err := NewSnapshotStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	in := &Snapshot{
		SurfaceID: "sfc_abc",
		Root:      "/ext/root",
		Story:     &story.Story{ID: "st-9", Author: "inkwell", Title: "Tides"},
		SavedAt:   time.Now(),
	}
	if err := store.Save(context.Background(), in); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	out, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if out.SurfaceID != in.SurfaceID || out.Root != in.Root || out.Story.ID != "st-9" {
		t.Errorf("snapshot mismatch: %+v", out)
	}
}

func TestSnapshotMissingIsNil(t *testing.T) {
	store, err := NewSnapshotStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	snap, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if snap != nil {
		t.Error("missing snapshot should load as nil")
	}
}

func TestSnapshotOverwrite(t *testing.T) {
	store, err := NewSnapshotStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	for _, id := range []string{"sfc_one", "sfc_two"} {
		snap := &Snapshot{SurfaceID: id, Story: &story.Story{ID: "st-1"}, SavedAt: time.Now()}
		if err := store.Save(context.Background(), snap); err != nil {
			t.Fatal(err)
		}
	}

	out, err := store.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if out.SurfaceID != "sfc_two" {
		t.Errorf("expected latest snapshot, got %s", out.SurfaceID)
	}
}

func TestSnapshotClear(t *testing.T) {
	store, err := NewSnapshotStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	// Clearing with nothing stored is fine.
	if err := store.Clear(); err != nil {
		t.Fatalf("Clear on empty store failed: %v", err)
	}

	snap := &Snapshot{SurfaceID: "sfc_one", Story: &story.Story{ID: "st-1"}, SavedAt: time.Now()}
	if err := store.Save(context.Background(), snap); err != nil {
		t.Fatal(err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	out, err := store.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if out != nil {
		t.Error("snapshot should be gone after Clear")
	}
}

func TestSnapshotCancelledContext(t *testing.T) {
	store, err := NewSnapshotStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	snap := &Snapshot{SurfaceID: "sfc_one", Story: &story.Story{ID: "st-1"}}
	if err := store.Save(ctx, snap); err == nil {
		t.Error("Save with cancelled context should fail")
	}
}

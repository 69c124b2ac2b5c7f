package flair

import (
	"os"
	"path/filepath"
	"testing"
)

func TestIconKnown(t *testing.T) {
	table := Default()

	uri, ok := table.Icon("fiction")
	if !ok {
		t.Fatal("expected fiction flair to resolve")
	}
	if uri == "" {
		t.Error("expected non-empty icon URI")
	}
}

func TestIconUnknown(t *testing.T) {
	table := Default()

	uri, ok := table.Icon("does-not-exist")
	if ok {
		t.Error("unknown flair should not resolve")
	}
	if uri != "" {
		t.Errorf("unknown flair should yield empty URI, got %q", uri)
	}
}

func TestLoadOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flair.yaml")
	content := "fiction: media/icons/custom-fiction.svg\nrecipes: media/icons/recipes.svg\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	table, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if uri, _ := table.Icon("fiction"); uri != "media/icons/custom-fiction.svg" {
		t.Errorf("file entry should override builtin, got %q", uri)
	}
	if _, ok := table.Icon("recipes"); !ok {
		t.Error("file-only entry should resolve")
	}
	if _, ok := table.Icon("poetry"); !ok {
		t.Error("builtin entry should survive overlay")
	}
}

func TestAllReturnsCopy(t *testing.T) {
	table := Default()
	all := table.All()
	all["fiction"] = "tampered"

	if uri, _ := table.Icon("fiction"); uri == "tampered" {
		t.Error("All must return a copy, not the internal map")
	}
}

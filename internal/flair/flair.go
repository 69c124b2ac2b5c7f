// Package flair maps story flair tags to panel icon URIs.
package flair

import (
	"fmt"
	"os"
	"sync"

	"github.com/goccy/go-yaml"
)

// Table is an immutable-after-load lookup from flair tag to icon URI.
type Table struct {
	mu    sync.RWMutex
	icons map[string]string
}

// Default returns the built-in flair table.
func Default() *Table {
	return &Table{
		icons: map[string]string{
			"fiction":    "media/icons/fiction.svg",
			"nonfiction": "media/icons/nonfiction.svg",
			"poetry":     "media/icons/poetry.svg",
			"serial":     "media/icons/serial.svg",
			"draft":      "media/icons/draft.svg",
		},
	}
}

// Load reads additional flair entries from a YAML file and overlays them
// on the built-in table. Entries in the file win on conflict.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read flair table: %w", err)
	}

	var entries map[string]string
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse flair table: %w", err)
	}

	t := Default()
	for tag, icon := range entries {
		t.icons[tag] = icon
	}
	return t, nil
}

// Icon resolves the icon URI for a flair tag. The second return is false
// when the tag is unknown; callers must treat that as an explicit
// "no icon" state rather than keeping a previously set icon.
func (t *Table) Icon(tag string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	uri, ok := t.icons[tag]
	return uri, ok
}

// All returns a copy of the full tag-to-icon map for embedding in the
// generated markup.
func (t *Table) All() map[string]string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]string, len(t.icons))
	for k, v := range t.icons {
		out[k] = v
	}
	return out
}

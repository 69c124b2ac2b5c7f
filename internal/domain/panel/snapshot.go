package panel

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/klauspost/compress/gzip"

	"github.com/storydock/panelhost/internal/domain/story"
)

const snapshotFile = "panel.snapshot.gz"

// Snapshot captures enough of the live panel to revive it after a host
// restart: the surface handle and the story it was showing.
type Snapshot struct {
	SurfaceID string       `json:"surface_id"`
	Root      string       `json:"root"`
	Story     *story.Story `json:"story"`
	SavedAt   time.Time    `json:"saved_at"`
}

// SnapshotStore persists panel snapshots as gzip-compressed JSON under
// the storage path.
type SnapshotStore struct {
	mu  sync.Mutex
	dir string
}

// NewSnapshotStore creates a store rooted at dir, creating it if
// missing.
func NewSnapshotStore(dir string) (*SnapshotStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create snapshot dir: %w", err)
	}
	return &SnapshotStore{dir: dir}, nil
}

// Save overwrites the stored snapshot. Write-then-rename keeps a crash
// from leaving a torn file behind.
func (s *SnapshotStore) Save(ctx context.Context, snap *Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := sonic.ConfigStd.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to serialize snapshot: %w", err)
	}

	tmp := s.path() + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	zw := gzip.NewWriter(f)
	if _, err := zw.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to compress snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return fmt.Errorf("failed to flush snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}

	if err := os.Rename(tmp, s.path()); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

// Load returns the stored snapshot, or (nil, nil) when none exists.
func (s *SnapshotStore) Load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	defer zr.Close()

	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress snapshot: %w", err)
	}

	var snap Snapshot
	if err := sonic.ConfigStd.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	if snap.SurfaceID == "" {
		return nil, fmt.Errorf("snapshot has empty surface id")
	}
	return &snap, nil
}

// Clear removes the stored snapshot. Missing snapshot is not an error.
func (s *SnapshotStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear snapshot: %w", err)
	}
	return nil
}

func (s *SnapshotStore) path() string {
	return filepath.Join(s.dir, snapshotFile)
}

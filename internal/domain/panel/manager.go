package panel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/storydock/panelhost/internal/domain/story"
	"github.com/storydock/panelhost/internal/host"
	"github.com/storydock/panelhost/internal/logging"
	"github.com/storydock/panelhost/internal/render"
	"github.com/storydock/panelhost/internal/shared/id"
)

// TokenSource supplies the session token pair embedded in renders.
type TokenSource interface {
	Tokens() (access, refresh string)
}

// Manager guards the singleton panel. It is created once by the server
// and handed to every consumer; nothing reaches it through a package
// global.
type Manager struct {
	mu      sync.Mutex
	current *Panel

	builder   *render.Builder
	assets    *render.AssetRegistry
	bridge    host.Bridge
	tokens    TokenSource
	snapshots *SnapshotStore
	logger    *logging.Logger
	column    host.ViewColumn
}

// NewManager creates a panel manager. snapshots may be nil to disable
// revive-after-restart persistence.
func NewManager(builder *render.Builder, assets *render.AssetRegistry, bridge host.Bridge, tokens TokenSource, snapshots *SnapshotStore, logger *logging.Logger) *Manager {
	return &Manager{
		builder:   builder,
		assets:    assets,
		bridge:    bridge,
		tokens:    tokens,
		snapshots: snapshots,
		logger:    logger,
		column:    host.ColumnBeside,
	}
}

// Show creates the panel, or refreshes it when one is already visible.
//
// The refresh path replaces the story, refocuses the existing surface
// and re-renders; the surface handle and owned disposables carry over
// untouched, and a changed extension root triggers a rescan of the
// servable assets. Both paths issue a fresh nonce and policy. Editor
// capability failures propagate to the caller without retry.
func (m *Manager) Show(ctx context.Context, root string, st *story.Story) (Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		return m.refreshLocked(ctx, root, st)
	}

	if _, err := m.assets.Discover(root); err != nil {
		return Status{}, fmt.Errorf("failed to scan panel resources: %w", err)
	}

	surfaceID := id.NewSurfaceID().String()
	p := &Panel{
		surface: &Surface{ID: surfaceID, Root: root, CreatedAt: time.Now()},
		story:   st.Clone(),
	}

	if err := m.renderLocked(p); err != nil {
		return Status{}, err
	}

	if err := m.bridge.CreateView(ctx, surfaceID, p.page.Title, m.column); err != nil {
		return Status{}, fmt.Errorf("failed to open surface: %w", err)
	}

	m.current = p
	m.saveSnapshotLocked(ctx)
	m.logger.Info("panel shown",
		zap.String("surface_id", surfaceID),
		zap.String("story_id", st.ID))

	return m.statusLocked(), nil
}

// Revive re-enters the visible state bound to a surface the editor
// kept alive across a host restart. Surface creation is bypassed; the
// view is only refocused.
func (m *Manager) Revive(ctx context.Context, surfaceID, root string, st *story.Story) (Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		return Status{}, fmt.Errorf("panel already visible on surface %s", m.current.surface.ID)
	}
	if surfaceID == "" {
		return Status{}, fmt.Errorf("revive requires a surface id")
	}

	if _, err := m.assets.Discover(root); err != nil {
		return Status{}, fmt.Errorf("failed to scan panel resources: %w", err)
	}

	p := &Panel{
		surface: &Surface{ID: surfaceID, Root: root, CreatedAt: time.Now()},
		story:   st.Clone(),
	}

	if err := m.renderLocked(p); err != nil {
		return Status{}, err
	}

	if err := m.bridge.RevealView(ctx, surfaceID, m.column); err != nil {
		return Status{}, fmt.Errorf("failed to refocus surface: %w", err)
	}

	m.current = p
	m.saveSnapshotLocked(ctx)
	m.logger.Info("panel revived",
		zap.String("surface_id", surfaceID),
		zap.String("story_id", st.ID))

	return m.statusLocked(), nil
}

// Dispose tears the panel down. The singleton reference is cleared
// before any resource is released, then the surface goes, then the
// owned disposables in reverse registration order, each removed from
// the list as it runs. Calling Dispose with no live panel is a no-op.
func (m *Manager) Dispose(ctx context.Context) {
	m.mu.Lock()
	p := m.current
	m.current = nil
	m.mu.Unlock()

	// Resource release happens outside the lock: a draining channel may
	// still be delivering messages that call back into the manager.
	if p == nil {
		return
	}

	if err := m.bridge.ReleaseView(ctx, p.surface.ID); err != nil {
		m.logger.Warn("surface release failed",
			zap.String("surface_id", p.surface.ID),
			zap.Error(err))
	}

	for i := len(p.disposables) - 1; i >= 0; i-- {
		d := p.disposables[i]
		p.disposables = p.disposables[:i]
		d.Dispose()
	}

	if m.snapshots != nil {
		if err := m.snapshots.Clear(); err != nil {
			m.logger.Warn("snapshot clear failed", zap.Error(err))
		}
	}

	m.logger.Info("panel disposed", zap.String("surface_id", p.surface.ID))
}

// Own attaches a disposable to the live panel. Returns false when no
// panel is visible or the surface id does not match, in which case the
// caller keeps ownership.
func (m *Manager) Own(surfaceID string, d Disposable) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil || m.current.surface.ID != surfaceID {
		return false
	}
	m.current.disposables = append(m.current.disposables, d)
	return true
}

// Page returns the markup of the last render for the given surface.
func (m *Manager) Page(surfaceID string) (*render.Page, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil || m.current.surface.ID != surfaceID {
		return nil, false
	}
	return m.current.page, true
}

// State builds the structured payload for the bootstrap message sent
// when the surface reports ready. Mirrors what the markup embeds.
func (m *Manager) State(surfaceID string) (*render.PanelState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil || m.current.surface.ID != surfaceID {
		return nil, false
	}
	access, refresh := m.tokens.Tokens()
	return m.builder.State(m.current.story, access, refresh, m.channelPath(surfaceID)), true
}

// LastSnapshot returns the persisted revive snapshot, or nil when none
// was saved or persistence is disabled.
func (m *Manager) LastSnapshot(ctx context.Context) (*Snapshot, error) {
	if m.snapshots == nil {
		return nil, nil
	}
	return m.snapshots.Load(ctx)
}

// Status reports the current panel state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusLocked()
}

func (m *Manager) statusLocked() Status {
	if m.current == nil {
		return Status{}
	}
	return Status{
		Visible:    true,
		SurfaceID:  m.current.surface.ID,
		StoryID:    m.current.story.ID,
		Title:      m.current.page.Title,
		RenderedAt: m.current.renderedAt,
	}
}

func (m *Manager) refreshLocked(ctx context.Context, root string, st *story.Story) (Status, error) {
	p := m.current
	p.story = st.Clone()

	// A refresh may move the panel to a different extension root, in
	// which case the servable asset set is rebuilt from the new root.
	if root != "" && root != p.surface.Root {
		if _, err := m.assets.Discover(root); err != nil {
			return Status{}, fmt.Errorf("failed to scan panel resources: %w", err)
		}
		p.surface.Root = root
	}

	if err := m.renderLocked(p); err != nil {
		return Status{}, err
	}

	if err := m.bridge.RevealView(ctx, p.surface.ID, m.column); err != nil {
		return Status{}, fmt.Errorf("failed to refocus surface: %w", err)
	}

	m.saveSnapshotLocked(ctx)
	m.logger.Info("panel refreshed",
		zap.String("surface_id", p.surface.ID),
		zap.String("story_id", st.ID))

	return m.statusLocked(), nil
}

// renderLocked produces fresh markup for p. Caller must hold mu.
func (m *Manager) renderLocked(p *Panel) error {
	res, err := m.assets.DefaultResources()
	if err != nil {
		return fmt.Errorf("failed to resolve panel resources: %w", err)
	}

	access, refresh := m.tokens.Tokens()
	page, err := m.builder.Render(p.story, access, refresh, res, m.channelPath(p.surface.ID))
	if err != nil {
		return fmt.Errorf("failed to render panel: %w", err)
	}

	p.page = page
	p.renderedAt = time.Now()
	return nil
}

// saveSnapshotLocked persists the revive snapshot. Best effort: a
// failed save costs revive-after-restart, not the live panel.
func (m *Manager) saveSnapshotLocked(ctx context.Context) {
	if m.snapshots == nil || m.current == nil {
		return
	}
	snap := &Snapshot{
		SurfaceID: m.current.surface.ID,
		Root:      m.current.surface.Root,
		Story:     m.current.story.Clone(),
		SavedAt:   time.Now(),
	}
	if err := m.snapshots.Save(ctx, snap); err != nil {
		m.logger.Warn("snapshot save failed", zap.Error(err))
	}
}

func (m *Manager) channelPath(surfaceID string) string {
	return "/stream/" + surfaceID
}

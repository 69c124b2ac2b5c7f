// Package host abstracts the editor-side capabilities the panel relies
// on. The panel core never talks to the editor directly; it goes through
// a Bridge so failures surface as ordinary errors and tests can swap in
// a recorder.
package host

import (
	"context"

	"go.uber.org/zap"

	"github.com/storydock/panelhost/internal/logging"
)

// ViewColumn hints where the editor should place the surface.
type ViewColumn int

const (
	// ColumnActive places the surface in the currently focused column.
	ColumnActive ViewColumn = iota
	// ColumnBeside opens the surface next to the focused column.
	ColumnBeside
)

func (c ViewColumn) String() string {
	if c == ColumnBeside {
		return "beside"
	}
	return "active"
}

// Bridge is the set of editor capabilities the panel consumes.
//
// CreateView and RevealView may fail when the editor cannot host a
// surface; those errors propagate to the caller that requested the
// panel. Notification failures are the caller's to handle as well.
type Bridge interface {
	// CreateView asks the editor to open a rendering surface.
	CreateView(ctx context.Context, surfaceID, title string, column ViewColumn) error
	// RevealView refocuses an existing surface.
	RevealView(ctx context.Context, surfaceID string, column ViewColumn) error
	// ReleaseView tears a surface down. Safe to call for an already
	// released surface.
	ReleaseView(ctx context.Context, surfaceID string) error
	// CloseActiveView closes whichever editor view currently has focus.
	CloseActiveView(ctx context.Context) error
	// ShowInfo surfaces an informational notification in the editor.
	ShowInfo(ctx context.Context, text string) error
	// ShowError surfaces an error notification in the editor.
	ShowError(ctx context.Context, text string) error
}

// LogBridge is the default Bridge for running without an attached
// editor. Every capability is acknowledged and logged.
type LogBridge struct {
	logger *logging.Logger
}

// NewLogBridge creates a bridge that logs every capability call.
func NewLogBridge(logger *logging.Logger) *LogBridge {
	return &LogBridge{logger: logger}
}

func (b *LogBridge) CreateView(_ context.Context, surfaceID, title string, column ViewColumn) error {
	b.logger.Info("create view",
		zap.String("surface_id", surfaceID),
		zap.String("title", title),
		zap.String("column", column.String()))
	return nil
}

func (b *LogBridge) RevealView(_ context.Context, surfaceID string, column ViewColumn) error {
	b.logger.Info("reveal view",
		zap.String("surface_id", surfaceID),
		zap.String("column", column.String()))
	return nil
}

func (b *LogBridge) ReleaseView(_ context.Context, surfaceID string) error {
	b.logger.Info("release view", zap.String("surface_id", surfaceID))
	return nil
}

func (b *LogBridge) CloseActiveView(_ context.Context) error {
	b.logger.Info("close active view")
	return nil
}

func (b *LogBridge) ShowInfo(_ context.Context, text string) error {
	b.logger.Info("notify", zap.String("text", text))
	return nil
}

func (b *LogBridge) ShowError(_ context.Context, text string) error {
	b.logger.Warn("notify error", zap.String("text", text))
	return nil
}

// Package panel owns the lifecycle of the story panel. At most one
// panel exists per host process; a second show request mutates the
// live panel instead of creating a sibling.
package panel

import (
	"time"

	"github.com/storydock/panelhost/internal/domain/story"
	"github.com/storydock/panelhost/internal/render"
)

// Disposable is anything owned by the panel that must be released when
// the panel goes away. The message channel registers itself here.
type Disposable interface {
	Dispose()
}

// DisposeFunc adapts a plain function to Disposable.
type DisposeFunc func()

func (f DisposeFunc) Dispose() { f() }

// Surface is the handle to the rendering surface the editor opened for
// this panel. Exclusively owned: released on disposal, never shared.
type Surface struct {
	ID        string
	Root      string
	CreatedAt time.Time
}

// Panel is the single live panel instance. All fields are guarded by
// the manager's lock.
type Panel struct {
	surface     *Surface
	story       *story.Story
	page        *render.Page
	renderedAt  time.Time
	disposables []Disposable
}

// Status is a point-in-time copy of the manager's state, safe to hand
// out without the lock.
type Status struct {
	Visible    bool      `json:"visible"`
	SurfaceID  string    `json:"surface_id,omitempty"`
	StoryID    string    `json:"story_id,omitempty"`
	Title      string    `json:"title,omitempty"`
	RenderedAt time.Time `json:"rendered_at,omitempty"`
}

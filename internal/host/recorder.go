package host

import (
	"context"
	"sync"
)

// Call is one recorded capability invocation.
type Call struct {
	Op        string
	SurfaceID string
	Text      string
	Column    ViewColumn
}

// Recorder is a Bridge that records every call. Individual capabilities
// can be made to fail by setting the corresponding error field.
type Recorder struct {
	mu    sync.Mutex
	calls []Call

	CreateErr  error
	RevealErr  error
	ReleaseErr error
	CloseErr   error
	NotifyErr  error
}

// NewRecorder creates an empty recorder bridge.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Calls returns a copy of everything recorded so far.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// Ops returns just the operation names, in call order.
func (r *Recorder) Ops() []string {
	calls := r.Calls()
	ops := make([]string, len(calls))
	for i, c := range calls {
		ops[i] = c.Op
	}
	return ops
}

func (r *Recorder) record(c Call) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
}

func (r *Recorder) CreateView(_ context.Context, surfaceID, title string, column ViewColumn) error {
	r.record(Call{Op: "create", SurfaceID: surfaceID, Text: title, Column: column})
	return r.CreateErr
}

func (r *Recorder) RevealView(_ context.Context, surfaceID string, column ViewColumn) error {
	r.record(Call{Op: "reveal", SurfaceID: surfaceID, Column: column})
	return r.RevealErr
}

func (r *Recorder) ReleaseView(_ context.Context, surfaceID string) error {
	r.record(Call{Op: "release", SurfaceID: surfaceID})
	return r.ReleaseErr
}

func (r *Recorder) CloseActiveView(_ context.Context) error {
	r.record(Call{Op: "close"})
	return r.CloseErr
}

func (r *Recorder) ShowInfo(_ context.Context, text string) error {
	r.record(Call{Op: "info", Text: text})
	return r.NotifyErr
}

func (r *Recorder) ShowError(_ context.Context, text string) error {
	r.record(Call{Op: "error", Text: text})
	return r.NotifyErr
}

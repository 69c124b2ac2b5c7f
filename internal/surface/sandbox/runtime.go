// Package sandbox runs surface-side scripts against generated markup in a
// controlled runtime, so the host can verify the bootstrap contract
// without a real webview.
package sandbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"
)

// LogEntry is a captured console line.
type LogEntry struct {
	Level   string
	Message string
	Time    time.Time
}

// Result of a script execution.
type Result struct {
	Value    interface{}
	Console  []LogEntry
	Duration time.Duration
}

// Runtime wraps a goja VM with the minimal document surface the panel's
// bootstrap script expects: element lookup by id and a WebSocket stub.
type Runtime struct {
	vm     *goja.Runtime
	mu     sync.Mutex
	blocks map[string]string

	console   []LogEntry
	consoleMu sync.Mutex
}

// New creates a runtime with dangerous globals removed.
func New() (*Runtime, error) {
	r := &Runtime{
		vm:     goja.New(),
		blocks: make(map[string]string),
	}
	if err := r.setupGlobals(); err != nil {
		return nil, err
	}
	return r, nil
}

// SetBlock registers an element's text content, addressable from scripts
// via document.getElementById(id).textContent.
func (r *Runtime) SetBlock(id, textContent string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blocks[id] = textContent
}

// Execute runs a script with a deadline taken from ctx.
func (r *Runtime) Execute(ctx context.Context, script string) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			r.vm.Interrupt("context cancelled")
		case <-done:
		}
	}()

	r.consoleMu.Lock()
	r.console = nil
	r.consoleMu.Unlock()

	val, err := r.vm.RunString(script)
	close(done)

	result := &Result{Duration: time.Since(start)}
	r.consoleMu.Lock()
	result.Console = append(result.Console, r.console...)
	r.consoleMu.Unlock()

	if err != nil {
		return result, fmt.Errorf("script execution failed: %w", err)
	}
	if val != nil && !goja.IsUndefined(val) && !goja.IsNull(val) {
		result.Value = val.Export()
	}
	return result, nil
}

// Global exports a binding from the runtime, nil if absent.
func (r *Runtime) Global(name string) interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()

	val := r.vm.GlobalObject().Get(name)
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil
	}
	return val.Export()
}

// GlobalString exports a string binding, empty if absent or non-string.
func (r *Runtime) GlobalString(name string) string {
	if s, ok := r.Global(name).(string); ok {
		return s
	}
	return ""
}

func (r *Runtime) setupGlobals() error {
	r.vm.Set("require", goja.Undefined())
	r.vm.Set("process", goja.Undefined())
	r.vm.Set("module", goja.Undefined())
	r.vm.Set("exports", goja.Undefined())

	console := r.vm.NewObject()
	for _, level := range []string{"log", "warn", "error", "info"} {
		console.Set(level, r.makeConsoleFunc(level))
	}
	r.vm.Set("console", console)

	// document.getElementById over registered blocks
	document := r.vm.NewObject()
	document.Set("getElementById", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 {
			return goja.Null()
		}
		id := call.Arguments[0].String()
		text, ok := r.blocks[id]
		if !ok {
			return goja.Null()
		}
		elem := r.vm.NewObject()
		elem.Set("id", id)
		elem.Set("textContent", text)
		return elem
	})
	r.vm.Set("document", document)

	// location + window aliases the bootstrap expects
	location := r.vm.NewObject()
	location.Set("protocol", "http:")
	location.Set("host", "127.0.0.1")
	r.vm.Set("location", location)
	r.vm.Set("window", r.vm.GlobalObject())

	// WebSocket stub: records the URL, performs no I/O
	r.vm.Set("WebSocket", func(call goja.ConstructorCall) *goja.Object {
		url := ""
		if len(call.Arguments) > 0 {
			url = call.Arguments[0].String()
		}
		call.This.Set("url", url)
		call.This.Set("readyState", 0)
		call.This.Set("send", func(goja.FunctionCall) goja.Value { return goja.Undefined() })
		call.This.Set("close", func(goja.FunctionCall) goja.Value { return goja.Undefined() })
		return nil
	})

	return nil
}

func (r *Runtime) makeConsoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		var msg string
		for i, arg := range call.Arguments {
			if i > 0 {
				msg += " "
			}
			msg += arg.String()
		}
		r.consoleMu.Lock()
		r.console = append(r.console, LogEntry{Level: level, Message: msg, Time: time.Now()})
		r.consoleMu.Unlock()
		return goja.Undefined()
	}
}

package ws

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/storydock/panelhost/internal/domain/panel"
	"github.com/storydock/panelhost/internal/domain/story"
	"github.com/storydock/panelhost/internal/host"
	"github.com/storydock/panelhost/internal/logging"
	"github.com/storydock/panelhost/internal/render"
)

type fakePanels struct {
	mu     sync.Mutex
	owned  map[string]panel.Disposable
	state  *render.PanelState
	reject bool
}

func newFakePanels() *fakePanels {
	return &fakePanels{
		owned: make(map[string]panel.Disposable),
		state: &render.PanelState{
			Story:       &story.Story{ID: "st-1", Author: "inkwell"},
			UserID:      "user-7",
			APIOrigin:   "https://api.storydock.io",
			ChannelPath: "/stream/sfc_test",
		},
	}
}

func (f *fakePanels) Own(surfaceID string, d panel.Disposable) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reject {
		return false
	}
	f.owned[surfaceID] = d
	return true
}

func (f *fakePanels) State(surfaceID string) (*render.PanelState, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == nil {
		return nil, false
	}
	return f.state, true
}

func (f *fakePanels) disposable(surfaceID string) panel.Disposable {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.owned[surfaceID]
}

type fakeVault struct {
	mu     sync.Mutex
	events []string
	block  chan struct{}
	err    error
}

func (v *fakeVault) record(e string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.events = append(v.events, e)
}

func (v *fakeVault) Events() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]string, len(v.events))
	copy(out, v.events)
	return out
}

func (v *fakeVault) SetAccessToken(_ context.Context, value string) error {
	v.record("access-start:" + value)
	if v.block != nil {
		<-v.block
	}
	v.record("access-end")
	return v.err
}

func (v *fakeVault) SetRefreshToken(_ context.Context, value string) error {
	v.record("refresh-start:" + value)
	v.record("refresh-end")
	return v.err
}

func newTestChannel(t *testing.T, panels Panels, bridge host.Bridge, vault TokenSink) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logging.NewNop()
	h := NewHandler(panels, bridge, vault, logger)

	r := gin.New()
	r.GET("/stream/:id", h.HandleConnection)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func dialSurface(t *testing.T, srv *httptest.Server, surfaceID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/stream/" + surfaceID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg Message) {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

func recv(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	return msg
}

// flush sends a ready probe and waits for its reply, proving every
// previously sent message has been handled.
func flush(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	send(t, conn, Message{Kind: KindReady})
	if got := recv(t, conn); got.Kind != KindState {
		t.Fatalf("expected state reply, got %q", got.Kind)
	}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func strptr(s string) *string { return &s }

func TestReadyDeliversState(t *testing.T) {
	panels := newFakePanels()
	srv := newTestChannel(t, panels, host.NewRecorder(), &fakeVault{})
	conn := dialSurface(t, srv, "sfc_test")

	send(t, conn, Message{Kind: KindReady})

	got := recv(t, conn)
	if got.Kind != KindState {
		t.Fatalf("expected state, got %q", got.Kind)
	}
	if got.State == nil || got.State.UserID != "user-7" || got.State.Story.ID != "st-1" {
		t.Errorf("unexpected state payload: %+v", got.State)
	}
}

func TestCloseForwardsToBridge(t *testing.T) {
	bridge := host.NewRecorder()
	srv := newTestChannel(t, newFakePanels(), bridge, &fakeVault{})
	conn := dialSurface(t, srv, "sfc_test")

	send(t, conn, Message{Kind: KindClose})
	flush(t, conn)

	ops := bridge.Ops()
	if len(ops) != 1 || ops[0] != "close" {
		t.Errorf("expected close capability call, got %v", ops)
	}
}

func TestNotifyRequiresText(t *testing.T) {
	bridge := host.NewRecorder()
	srv := newTestChannel(t, newFakePanels(), bridge, &fakeVault{})
	conn := dialSurface(t, srv, "sfc_test")

	send(t, conn, Message{Kind: KindOnInfo})                    // no value
	send(t, conn, Message{Kind: KindOnInfo, Value: strptr("")}) // empty value
	send(t, conn, Message{Kind: KindOnError, Value: strptr("boom")})
	send(t, conn, Message{Kind: KindOnInfo, Value: strptr("hello")})
	flush(t, conn)

	calls := bridge.Calls()
	if len(calls) != 2 {
		t.Fatalf("expected exactly 2 notifications, got %v", calls)
	}
	if calls[0].Op != "error" || calls[0].Text != "boom" {
		t.Errorf("unexpected first notification: %+v", calls[0])
	}
	if calls[1].Op != "info" || calls[1].Text != "hello" {
		t.Errorf("unexpected second notification: %+v", calls[1])
	}
}

func TestTokensPersistInOrder(t *testing.T) {
	vault := &fakeVault{}
	srv := newTestChannel(t, newFakePanels(), host.NewRecorder(), vault)
	conn := dialSurface(t, srv, "sfc_test")

	send(t, conn, Message{Kind: KindTokens, AccessToken: "A1", RefreshToken: "B2"})
	flush(t, conn)

	want := []string{"access-start:A1", "access-end", "refresh-start:B2", "refresh-end"}
	got := vault.Events()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("access persist must complete before refresh begins: %v", got)
		}
	}
}

func TestTokensAccessFailureSkipsRefresh(t *testing.T) {
	vault := &fakeVault{err: errors.New("disk full")}
	srv := newTestChannel(t, newFakePanels(), host.NewRecorder(), vault)
	conn := dialSurface(t, srv, "sfc_test")

	send(t, conn, Message{Kind: KindTokens, AccessToken: "A1", RefreshToken: "B2"})

	if got := recv(t, conn); got.Kind != KindError {
		t.Fatalf("expected error frame, got %q", got.Kind)
	}
	for _, e := range vault.Events() {
		if strings.HasPrefix(e, "refresh") {
			t.Errorf("refresh write should not start after access failure: %v", vault.Events())
		}
	}
}

func TestUnknownKindIgnored(t *testing.T) {
	bridge := host.NewRecorder()
	srv := newTestChannel(t, newFakePanels(), bridge, &fakeVault{})
	conn := dialSurface(t, srv, "sfc_test")

	send(t, conn, Message{Kind: "mystery"})
	send(t, conn, Message{Kind: KindOnInfo, Value: strptr("still alive")})
	flush(t, conn)

	calls := bridge.Calls()
	if len(calls) != 1 || calls[0].Text != "still alive" {
		t.Errorf("unknown kind must be ignored without breaking the loop: %+v", calls)
	}
}

func TestRejectedWhenNoPanel(t *testing.T) {
	panels := newFakePanels()
	panels.reject = true
	srv := newTestChannel(t, panels, host.NewRecorder(), &fakeVault{})
	conn := dialSurface(t, srv, "sfc_test")

	got := recv(t, conn)
	if got.Kind != KindError {
		t.Fatalf("expected error frame, got %q", got.Kind)
	}
	conn.SetReadDeadline(time.Now().Add(time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err == nil {
		t.Error("connection should be closed after rejection")
	}
}

func TestDisposeDrainsInFlightPersist(t *testing.T) {
	panels := newFakePanels()
	vault := &fakeVault{block: make(chan struct{})}
	srv := newTestChannel(t, panels, host.NewRecorder(), vault)
	conn := dialSurface(t, srv, "sfc_test")

	waitFor(t, func() bool { return panels.disposable("sfc_test") != nil }, "channel never registered")

	send(t, conn, Message{Kind: KindTokens, AccessToken: "A1", RefreshToken: "B2"})
	waitFor(t, func() bool {
		events := vault.Events()
		return len(events) > 0 && events[0] == "access-start:A1"
	}, "persist never started")

	disposed := make(chan struct{})
	go func() {
		panels.disposable("sfc_test").Dispose()
		close(disposed)
	}()

	select {
	case <-disposed:
		t.Fatal("Dispose returned while a persist was still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(vault.block)

	select {
	case <-disposed:
	case <-time.After(2 * time.Second):
		t.Fatal("Dispose never returned after the persist finished")
	}

	events := vault.Events()
	last := events[len(events)-1]
	if last != "refresh-end" {
		t.Errorf("token persist should have run to completion before drain finished: %v", events)
	}
}

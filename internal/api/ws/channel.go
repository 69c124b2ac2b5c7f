// Package ws carries the typed message channel between the host and
// the rendering surface. One connection per surface; messages are
// handled strictly in receipt order by a single reader loop.
package ws

import (
	"context"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/storydock/panelhost/internal/domain/panel"
	"github.com/storydock/panelhost/internal/host"
	"github.com/storydock/panelhost/internal/infrastructure/monitoring"
	"github.com/storydock/panelhost/internal/logging"
	"github.com/storydock/panelhost/internal/render"
)

// Message kinds spoken on the channel. Surface to host except for
// KindState, which the host sends in response to KindReady.
const (
	KindReady   = "ready"
	KindClose   = "close"
	KindOnInfo  = "onInfo"
	KindOnError = "onError"
	KindTokens  = "tokens"
	KindState   = "state"
	KindError   = "error"
)

// Message is one frame on the channel. Value carries notification text
// for onInfo and onError; a missing or empty value makes those a no-op.
type Message struct {
	Kind         string             `json:"kind"`
	Value        *string            `json:"value,omitempty"`
	AccessToken  string             `json:"accessToken,omitempty"`
	RefreshToken string             `json:"refreshToken,omitempty"`
	State        *render.PanelState `json:"state,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// The surface loads from loopback; origin enforcement happens
		// at the CSP layer.
		return true
	},
}

// Panels is the slice of the panel manager the channel needs.
type Panels interface {
	Own(surfaceID string, d panel.Disposable) bool
	State(surfaceID string) (*render.PanelState, bool)
}

// TokenSink persists the session token pair. Each Set call returns only
// once the value is durable.
type TokenSink interface {
	SetAccessToken(ctx context.Context, value string) error
	SetRefreshToken(ctx context.Context, value string) error
}

// Handler upgrades surface connections and runs their reader loops.
type Handler struct {
	panels  Panels
	bridge  host.Bridge
	vault   TokenSink
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// NewHandler creates a channel handler.
func NewHandler(panels Panels, bridge host.Bridge, vault TokenSink, logger *logging.Logger) *Handler {
	return &Handler{
		panels: panels,
		bridge: bridge,
		vault:  vault,
		logger: logger,
	}
}

// WithMetrics enables channel metrics collection.
func (h *Handler) WithMetrics(m *monitoring.Metrics) *Handler {
	h.metrics = m
	return h
}

// channel is one live connection, owned by the panel as a disposable.
type channel struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	drained chan struct{}
	closed  sync.Once
}

// Dispose closes the socket and waits for the reader loop to drain, so
// no message handler, token persistence included, outlives disposal.
func (ch *channel) Dispose() {
	ch.closed.Do(func() {
		ch.conn.Close()
	})
	<-ch.drained
}

func (ch *channel) send(msg Message) error {
	ch.writeMu.Lock()
	defer ch.writeMu.Unlock()
	return ch.conn.WriteJSON(msg)
}

func (ch *channel) sendError(text string) error {
	return ch.send(Message{Kind: KindError, Value: &text})
}

// HandleConnection upgrades the request and processes messages until
// the surface goes away or the panel is disposed.
func (h *Handler) HandleConnection(c *gin.Context) {
	surfaceID := c.Param("id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("channel upgrade failed",
			zap.String("surface_id", surfaceID),
			zap.Error(err))
		return
	}

	ch := &channel{conn: conn, drained: make(chan struct{})}

	if !h.panels.Own(surfaceID, ch) {
		h.logger.Warn("channel rejected, no live panel",
			zap.String("surface_id", surfaceID))
		close(ch.drained)
		ch.sendError("no panel for surface " + surfaceID)
		conn.Close()
		return
	}

	connID := uuid.NewString()
	h.logger.Info("surface connected",
		zap.String("surface_id", surfaceID),
		zap.String("conn_id", connID))
	if h.metrics != nil {
		h.metrics.IncChannelConnections()
		defer h.metrics.DecChannelConnections()
	}

	reqCtx := c.Request.Context()

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		h.dispatch(reqCtx, ch, surfaceID, msg)
	}
	close(ch.drained)

	h.logger.Info("surface disconnected",
		zap.String("surface_id", surfaceID),
		zap.String("conn_id", connID))
}

func (h *Handler) dispatch(ctx context.Context, ch *channel, surfaceID string, msg Message) {
	if h.metrics != nil {
		h.metrics.RecordChannelMessage("in", msg.Kind)
	}

	switch msg.Kind {
	case KindReady:
		h.handleReady(ch, surfaceID)
	case KindClose:
		if err := h.bridge.CloseActiveView(ctx); err != nil {
			h.logger.Warn("close capability failed", zap.Error(err))
			ch.sendError(err.Error())
		}
	case KindOnInfo:
		if h.metrics != nil {
			h.metrics.RecordNotification("info")
		}
		h.handleNotify(ctx, ch, msg.Value, h.bridge.ShowInfo)
	case KindOnError:
		if h.metrics != nil {
			h.metrics.RecordNotification("error")
		}
		h.handleNotify(ctx, ch, msg.Value, h.bridge.ShowError)
	case KindTokens:
		h.handleTokens(ctx, ch, msg)
	default:
		h.logger.Warn("unknown message kind",
			zap.String("surface_id", surfaceID),
			zap.String("kind", msg.Kind))
	}
}

// handleReady answers the surface's ready report with the full panel
// state, the same payload the markup embeds.
func (h *Handler) handleReady(ch *channel, surfaceID string) {
	state, ok := h.panels.State(surfaceID)
	if !ok {
		ch.sendError("no panel for surface " + surfaceID)
		return
	}
	if err := ch.send(Message{Kind: KindState, State: state}); err != nil {
		h.logger.Warn("state delivery failed",
			zap.String("surface_id", surfaceID),
			zap.Error(err))
		return
	}
	if h.metrics != nil {
		h.metrics.RecordChannelMessage("out", KindState)
	}
}

// handleNotify forwards notification text to the editor. A missing or
// empty value is a deliberate no-op.
func (h *Handler) handleNotify(ctx context.Context, ch *channel, value *string, show func(context.Context, string) error) {
	if value == nil || *value == "" {
		return
	}
	if err := show(ctx, *value); err != nil {
		h.logger.Warn("notification failed", zap.Error(err))
		ch.sendError(err.Error())
	}
}

// handleTokens persists the pair in order: the access token write fully
// completes before the refresh token write begins.
func (h *Handler) handleTokens(ctx context.Context, ch *channel, msg Message) {
	if err := h.vault.SetAccessToken(ctx, msg.AccessToken); err != nil {
		h.logger.Error("access token persist failed", zap.Error(err))
		h.recordPersist("access", "error")
		ch.sendError("failed to persist tokens")
		return
	}
	h.recordPersist("access", "ok")

	if err := h.vault.SetRefreshToken(ctx, msg.RefreshToken); err != nil {
		h.logger.Error("refresh token persist failed", zap.Error(err))
		h.recordPersist("refresh", "error")
		ch.sendError("failed to persist tokens")
		return
	}
	h.recordPersist("refresh", "ok")
}

func (h *Handler) recordPersist(key, status string) {
	if h.metrics != nil {
		h.metrics.RecordTokenPersist(key, status)
	}
}

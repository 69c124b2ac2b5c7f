// Package http holds the daemon's HTTP handlers: panel lifecycle
// operations for the editor, plus the markup and asset endpoints the
// rendering surface loads from.
package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/storydock/panelhost/internal/client"
	"github.com/storydock/panelhost/internal/domain/panel"
	"github.com/storydock/panelhost/internal/domain/story"
	"github.com/storydock/panelhost/internal/infrastructure/monitoring"
	"github.com/storydock/panelhost/internal/logging"
	"github.com/storydock/panelhost/internal/render"
)

// Handlers contains all HTTP handlers.
type Handlers struct {
	panels      *panel.Manager
	assets      *render.AssetRegistry
	stories     *client.Stories
	metrics     *monitoring.Metrics
	logger      *logging.Logger
	defaultRoot string
}

// NewHandlers creates the handler set. stories may be nil when no API
// client is configured; show requests must then carry a full story.
func NewHandlers(
	panels *panel.Manager,
	assets *render.AssetRegistry,
	stories *client.Stories,
	metrics *monitoring.Metrics,
	logger *logging.Logger,
	defaultRoot string,
) *Handlers {
	return &Handlers{
		panels:      panels,
		assets:      assets,
		stories:     stories,
		metrics:     metrics,
		logger:      logger,
		defaultRoot: defaultRoot,
	}
}

// ShowRequest is the body of show and revive requests. Either a full
// story document or a story id to fetch must be present.
type ShowRequest struct {
	Root      string       `json:"root"`
	SurfaceID string       `json:"surface_id"`
	StoryID   string       `json:"story_id"`
	Story     *story.Story `json:"story"`
}

// Health reports liveness.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "panelhost",
		"panel":   h.panels.Status(),
	})
}

// ShowPanel creates or refreshes the panel.
func (h *Handlers) ShowPanel(c *gin.Context) {
	req, st, ok := h.resolveStory(c)
	if !ok {
		h.metrics.RecordShow("show", "error")
		return
	}

	root := req.Root
	if root == "" {
		root = h.defaultRoot
	}

	status, err := h.panels.Show(c.Request.Context(), root, st)
	if err != nil {
		h.metrics.RecordShow("show", "error")
		h.logger.Error("show failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.metrics.RecordShow("show", "ok")
	h.metrics.RecordRender()
	h.metrics.SetPanelVisible(true)
	c.JSON(http.StatusOK, status)
}

// RevivePanel rebinds the panel to a surface that survived a host
// restart. A body without a surface id falls back to the persisted
// snapshot, which is how the editor revives after losing its own state.
func (h *Handlers) RevivePanel(c *gin.Context) {
	var req ShowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.metrics.RecordShow("revive", "error")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if req.SurfaceID == "" {
		snap, err := h.panels.LastSnapshot(c.Request.Context())
		if err != nil {
			h.logger.Warn("snapshot load failed", zap.Error(err))
		}
		if snap == nil {
			h.metrics.RecordShow("revive", "error")
			c.JSON(http.StatusBadRequest, gin.H{"error": "surface_id required and no snapshot available"})
			return
		}
		req.SurfaceID = snap.SurfaceID
		if req.Root == "" {
			req.Root = snap.Root
		}
		if req.Story == nil && req.StoryID == "" {
			req.Story = snap.Story
		}
	}

	st, ok := h.storyFrom(c, &req)
	if !ok {
		h.metrics.RecordShow("revive", "error")
		return
	}

	root := req.Root
	if root == "" {
		root = h.defaultRoot
	}

	status, err := h.panels.Revive(c.Request.Context(), req.SurfaceID, root, st)
	if err != nil {
		h.metrics.RecordShow("revive", "error")
		h.logger.Error("revive failed", zap.Error(err))
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	h.metrics.RecordShow("revive", "ok")
	h.metrics.RecordRender()
	h.metrics.SetPanelVisible(true)
	c.JSON(http.StatusOK, status)
}

// DisposePanel tears the panel down. Idempotent.
func (h *Handlers) DisposePanel(c *gin.Context) {
	h.panels.Dispose(c.Request.Context())
	h.metrics.SetPanelVisible(false)
	c.JSON(http.StatusOK, gin.H{"disposed": true})
}

// PanelStatus reports the current panel state.
func (h *Handlers) PanelStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.panels.Status())
}

// Surface serves the generated markup for a live surface. The policy
// rides along as a header so the webview enforces it even before the
// meta tag is parsed.
func (h *Handlers) Surface(c *gin.Context) {
	surfaceID := c.Param("id")

	page, ok := h.panels.Page(surfaceID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no panel for surface"})
		return
	}

	c.Header("Content-Security-Policy", page.CSP)
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "text/html; charset=utf-8", page.HTML)
}

// Asset serves an allow-listed resource with its sniffed content type.
// Anything the registry has not discovered under an allowed root is
// not served, including traversal attempts.
func (h *Handlers) Asset(c *gin.Context) {
	rel := strings.TrimPrefix(c.Param("filepath"), "/")

	asset, ok := h.assets.Lookup(rel)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown resource"})
		return
	}

	c.Header("Content-Type", asset.MimeType)
	c.File(asset.Path)
}

// resolveStory extracts the story from the request body, fetching by id
// when only an id is supplied. Writes the error response itself.
func (h *Handlers) resolveStory(c *gin.Context) (*ShowRequest, *story.Story, bool) {
	var req ShowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return nil, nil, false
	}

	st, ok := h.storyFrom(c, &req)
	return &req, st, ok
}

// storyFrom resolves the story carried by an already-bound request.
// Writes the error response itself.
func (h *Handlers) storyFrom(c *gin.Context, req *ShowRequest) (*story.Story, bool) {
	if req.Story != nil {
		return req.Story, true
	}

	if req.StoryID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "story or story_id required"})
		return nil, false
	}
	if h.stories == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no story API configured"})
		return nil, false
	}

	st, err := h.stories.Get(c.Request.Context(), req.StoryID)
	if err != nil {
		h.logger.Warn("story fetch failed",
			zap.String("story_id", req.StoryID),
			zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return nil, false
	}
	return st, true
}

// Package render produces the markup document loaded by the rendering
// surface, together with the per-render nonce and content security policy.
package render

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/bytedance/sonic"
	"github.com/microcosm-cc/bluemonday"

	"github.com/storydock/panelhost/internal/domain/story"
	"github.com/storydock/panelhost/internal/flair"
	"github.com/storydock/panelhost/internal/identity"
)

// PanelState is the structured payload handed to the surface. It is
// embedded as a JSON data block, never as executable script text, and the
// same shape is sent over the channel when the surface reports ready.
type PanelState struct {
	Story        *story.Story      `json:"story"`
	UserID       string            `json:"userId"`
	AccessToken  string            `json:"accessToken"`
	RefreshToken string            `json:"refreshToken"`
	APIOrigin    string            `json:"apiOrigin"`
	ChannelPath  string            `json:"channelPath"`
	FlairIcons   map[string]string `json:"flairIcons"`
}

// Page is the result of one render.
type Page struct {
	Title   string
	IconURI string // empty means explicitly no icon
	Nonce   string
	CSP     string
	HTML    []byte
}

// Builder assembles panel markup. Safe for concurrent use.
type Builder struct {
	apiOrigin     string
	surfaceOrigin string
	flairs        *flair.Table
	sanitizer     *bluemonday.Policy
	tmpl          *template.Template
}

// NewBuilder creates a markup builder for the given origins.
func NewBuilder(apiOrigin, surfaceOrigin string, flairs *flair.Table) *Builder {
	return &Builder{
		apiOrigin:     apiOrigin,
		surfaceOrigin: surfaceOrigin,
		flairs:        flairs,
		sanitizer:     bluemonday.StrictPolicy(),
		tmpl:          template.Must(template.New("panel").Parse(panelTemplate)),
	}
}

// State assembles the structured surface payload. The same shape is
// embedded in the markup and sent over the channel on ready. The user
// id comes from the access token; a token that fails structural
// decoding yields an empty id, never an error.
func (b *Builder) State(st *story.Story, accessToken, refreshToken, channelPath string) *PanelState {
	return &PanelState{
		Story:        st,
		UserID:       identity.CurrentUserID(accessToken),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		APIOrigin:    b.apiOrigin,
		ChannelPath:  channelPath,
		FlairIcons:   b.flairs.All(),
	}
}

// Render produces a complete markup document for the story.
//
// A fresh nonce and CSP are issued on every call. An unknown flair
// clears the icon rather than keeping a previous one.
func (b *Builder) Render(st *story.Story, accessToken, refreshToken string, res Resources, channelPath string) (*Page, error) {
	nonce := NewNonce()
	csp := BuildCSP(b.apiOrigin, b.surfaceOrigin, nonce)

	iconURI := ""
	if uri, ok := b.flairs.Icon(st.Flair); ok {
		iconURI = uri
	}

	state := b.State(st, accessToken, refreshToken, channelPath)

	// ConfigStd escapes <, > and & so the payload cannot close the
	// enclosing data block.
	stateJSON, err := sonic.ConfigStd.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize panel state: %w", err)
	}

	title := b.sanitizer.Sanitize(st.Author)

	var buf bytes.Buffer
	err = b.tmpl.Execute(&buf, map[string]any{
		"Title":     title,
		"IconURI":   iconURI,
		"Nonce":     nonce,
		"CSP":       csp,
		"StateJSON": template.JS(stateJSON),
		"Resources": res,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render panel markup: %w", err)
	}

	return &Page{
		Title:   title,
		IconURI: iconURI,
		Nonce:   nonce,
		CSP:     csp,
		HTML:    buf.Bytes(),
	}, nil
}

const panelTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta http-equiv="Content-Security-Policy" content="{{.CSP}}">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
{{if .IconURI}}<link rel="icon" href="{{.IconURI}}">
{{end}}<link rel="stylesheet" href="{{.Resources.ResetStylesheet}}">
<link rel="stylesheet" href="{{.Resources.VarsStylesheet}}">
<link rel="stylesheet" href="{{.Resources.MainStylesheet}}">
</head>
<body>
<div id="root"></div>
<script type="application/json" id="panel-state" nonce="{{.Nonce}}">{{.StateJSON}}</script>
<script nonce="{{.Nonce}}">
var state = JSON.parse(document.getElementById("panel-state").textContent);
window.panelStory = state.story;
window.currentUserId = state.userId;
window.accessToken = state.accessToken;
window.refreshToken = state.refreshToken;
window.apiOrigin = state.apiOrigin;
window.flairIcons = state.flairIcons;
window.hostChannel = window.WebSocket ? new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + state.channelPath) : null;
</script>
<script src="{{.Resources.Script}}" nonce="{{.Nonce}}"></script>
</body>
</html>
`

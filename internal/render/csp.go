package render

import (
	"fmt"
	"strings"
)

// BuildCSP constructs the content security policy for one render.
//
// Five clauses: network access defaults to the allow-listed API origin,
// connections may additionally reach the surface's own origin so the
// message channel can open its websocket, images are limited to secure
// remote transport and embedded data URIs, styles to the surface's
// resource origin, and scripts to tags carrying this render's nonce.
// The policy is never cached: the nonce is single-use, so a stale
// policy would either block the fresh render's scripts or authorize the
// previous render's.
func BuildCSP(apiOrigin, surfaceOrigin, nonce string) string {
	return strings.Join([]string{
		"default-src " + apiOrigin,
		"connect-src " + apiOrigin + " " + surfaceOrigin + " " + channelOrigin(surfaceOrigin),
		"img-src https: data:",
		"style-src " + surfaceOrigin,
		fmt.Sprintf("script-src 'nonce-%s'", nonce),
	}, "; ")
}

// channelOrigin is the websocket form of the surface origin, the one
// the bootstrap script dials for the message channel.
func channelOrigin(surfaceOrigin string) string {
	if rest, ok := strings.CutPrefix(surfaceOrigin, "https://"); ok {
		return "wss://" + rest
	}
	if rest, ok := strings.CutPrefix(surfaceOrigin, "http://"); ok {
		return "ws://" + rest
	}
	return surfaceOrigin
}

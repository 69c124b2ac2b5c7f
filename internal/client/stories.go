package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/storydock/panelhost/internal/domain/story"
)

// TokenSource supplies the bearer token for API calls. The vault
// implements this.
type TokenSource interface {
	AccessToken() string
}

// Stories fetches story documents from the API.
type Stories struct {
	client *Client
	tokens TokenSource
}

// NewStories creates a story fetcher.
func NewStories(client *Client, tokens TokenSource) *Stories {
	return &Stories{client: client, tokens: tokens}
}

// Get fetches one story by id. The stored access token rides along as a
// bearer credential when present; anonymous fetches are allowed and the
// API decides what they may see.
func (s *Stories) Get(ctx context.Context, id string) (*story.Story, error) {
	if id == "" {
		return nil, fmt.Errorf("story id required")
	}

	result, err := s.client.Execute(func() (interface{}, error) {
		req, err := s.client.Request(ctx)
		if err != nil {
			return nil, err
		}
		if tok := s.tokens.AccessToken(); tok != "" {
			req.SetAuthToken(tok)
		}

		resp, err := req.Get("/stories/" + url.PathEscape(id))
		if err != nil {
			return nil, fmt.Errorf("story fetch failed: %w", err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("story fetch failed: %s", resp.Status())
		}

		return story.Decode(resp.Body())
	})
	if err != nil {
		return nil, err
	}
	return result.(*story.Story), nil
}

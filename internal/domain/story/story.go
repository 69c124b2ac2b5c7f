package story

import (
	"fmt"
	"time"

	"github.com/bytedance/sonic"
)

// Story is the document displayed by the panel. It is supplied by an
// external source and never mutated by the panel core; callers that need
// to hold onto one should Clone it first.
type Story struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Title     string    `json:"title"`
	Flair     string    `json:"flair,omitempty"`
	Body      string    `json:"body,omitempty"`
	URL       string    `json:"url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Clone returns an independent copy.
func (s *Story) Clone() *Story {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}

// Encode serializes the story with standard HTML-safe escaping, so the
// output can be embedded in markup data blocks without breaking out of
// the enclosing element.
func (s *Story) Encode() ([]byte, error) {
	data, err := sonic.ConfigStd.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode story: %w", err)
	}
	return data, nil
}

// Decode parses a story from its serialized form.
func Decode(data []byte) (*Story, error) {
	var s Story
	if err := sonic.ConfigStd.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode story: %w", err)
	}
	return &s, nil
}

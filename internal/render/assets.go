package render

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
	"github.com/gabriel-vasile/mimetype"
)

// Asset is a local file servable to the rendering surface.
type Asset struct {
	Path     string // absolute local path
	Relative string // path relative to the extension root
	URI      string // surface-addressable URI
	MimeType string
}

// Resources is the fixed set of files the generated markup references,
// already translated into surface-addressable URIs.
type Resources struct {
	Script          string
	ResetStylesheet string
	VarsStylesheet  string
	MainStylesheet  string
}

// AssetRegistry translates local resource paths into surface-addressable
// URIs and enforces the allow-listed resource roots. Only files under a
// root matching one of the configured glob patterns may be served.
type AssetRegistry struct {
	baseURL string
	roots   []string

	mu     sync.RWMutex
	byRel  map[string]*Asset
	extDir string
}

// NewAssetRegistry creates a registry serving under baseURL. Root patterns
// use doublestar glob syntax and are matched against paths relative to the
// extension root, e.g. "media/**".
func NewAssetRegistry(baseURL string, rootPatterns ...string) *AssetRegistry {
	if len(rootPatterns) == 0 {
		rootPatterns = []string{"media/**"}
	}
	return &AssetRegistry{
		baseURL: strings.TrimRight(baseURL, "/"),
		roots:   rootPatterns,
		byRel:   make(map[string]*Asset),
	}
}

// Discover walks the extension root and registers every allow-listed file.
// Content types are sniffed from file contents, not extensions.
func (r *AssetRegistry) Discover(extensionRoot string) ([]*Asset, error) {
	abs, err := filepath.Abs(extensionRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve extension root: %w", err)
	}

	found := make(map[string]*Asset)
	conf := fastwalk.Config{Follow: false}

	err = fastwalk.Walk(&conf, abs, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}

		rel, relErr := filepath.Rel(abs, p)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if !r.allowed(rel) {
			return nil
		}

		mtype, mErr := mimetype.DetectFile(p)
		mime := "application/octet-stream"
		if mErr == nil {
			mime = mtype.String()
		}

		found[rel] = &Asset{
			Path:     p,
			Relative: rel,
			URI:      r.baseURL + "/assets/" + rel,
			MimeType: mime,
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("asset discovery failed: %w", err)
	}

	r.mu.Lock()
	r.extDir = abs
	r.byRel = found
	r.mu.Unlock()

	assets := make([]*Asset, 0, len(found))
	for _, a := range found {
		assets = append(assets, a)
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i].Relative < assets[j].Relative })
	return assets, nil
}

// SurfaceURI translates an extension-root-relative path into the URI the
// surface loads it from. Paths outside every allowed root are an error
// that propagates to the caller of show.
func (r *AssetRegistry) SurfaceURI(rel string) (string, error) {
	rel = filepath.ToSlash(rel)
	if !r.allowed(rel) {
		return "", fmt.Errorf("resource %q is outside the allowed roots", rel)
	}
	return r.baseURL + "/assets/" + rel, nil
}

// Lookup returns the registered asset for a relative path.
func (r *AssetRegistry) Lookup(rel string) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byRel[filepath.ToSlash(rel)]
	return a, ok
}

// DefaultResources resolves the standard script and stylesheet set.
func (r *AssetRegistry) DefaultResources() (Resources, error) {
	var res Resources
	var err error

	if res.Script, err = r.SurfaceURI("media/bootstrap.js"); err != nil {
		return Resources{}, err
	}
	if res.ResetStylesheet, err = r.SurfaceURI("media/reset.css"); err != nil {
		return Resources{}, err
	}
	if res.VarsStylesheet, err = r.SurfaceURI("media/vars.css"); err != nil {
		return Resources{}, err
	}
	if res.MainStylesheet, err = r.SurfaceURI("media/panel.css"); err != nil {
		return Resources{}, err
	}
	return res, nil
}

func (r *AssetRegistry) allowed(rel string) bool {
	if rel == "" || strings.HasPrefix(rel, "..") {
		return false
	}
	for _, pattern := range r.roots {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}

package render

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeAsset(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDiscoverRespectsAllowedRoots(t *testing.T) {
	root := t.TempDir()
	writeAsset(t, root, "media/bootstrap.js", "console.log('hi')")
	writeAsset(t, root, "media/icons/fiction.svg", "<svg></svg>")
	writeAsset(t, root, "secrets/key.pem", "private")

	r := NewAssetRegistry("http://127.0.0.1:8600", "media/**")
	assets, err := r.Discover(root)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}

	if len(assets) != 2 {
		t.Fatalf("expected 2 assets, got %d", len(assets))
	}
	for _, a := range assets {
		if strings.HasPrefix(a.Relative, "secrets") {
			t.Errorf("asset outside allowed roots was registered: %s", a.Relative)
		}
		if !strings.HasPrefix(a.URI, "http://127.0.0.1:8600/assets/media/") {
			t.Errorf("unexpected URI: %s", a.URI)
		}
	}
}

func TestSurfaceURIDeniesOutsideRoots(t *testing.T) {
	r := NewAssetRegistry("http://127.0.0.1:8600", "media/**")

	if _, err := r.SurfaceURI("secrets/key.pem"); err == nil {
		t.Error("expected error for path outside allowed roots")
	}
	if _, err := r.SurfaceURI("../etc/passwd"); err == nil {
		t.Error("expected error for path traversal")
	}

	uri, err := r.SurfaceURI("media/panel.css")
	if err != nil {
		t.Fatalf("SurfaceURI failed: %v", err)
	}
	if uri != "http://127.0.0.1:8600/assets/media/panel.css" {
		t.Errorf("unexpected URI: %s", uri)
	}
}

func TestLookupDetectsMimeType(t *testing.T) {
	root := t.TempDir()
	writeAsset(t, root, "media/panel.css", "body { color: red }")

	r := NewAssetRegistry("http://127.0.0.1:8600", "media/**")
	if _, err := r.Discover(root); err != nil {
		t.Fatalf("Discover failed: %v", err)
	}

	a, ok := r.Lookup("media/panel.css")
	if !ok {
		t.Fatal("expected asset to be registered")
	}
	if a.MimeType == "" {
		t.Error("expected detected mime type")
	}
}

func TestDefaultResources(t *testing.T) {
	r := NewAssetRegistry("http://127.0.0.1:8600")

	res, err := r.DefaultResources()
	if err != nil {
		t.Fatalf("DefaultResources failed: %v", err)
	}
	for _, uri := range []string{res.Script, res.ResetStylesheet, res.VarsStylesheet, res.MainStylesheet} {
		if !strings.HasPrefix(uri, "http://127.0.0.1:8600/assets/media/") {
			t.Errorf("unexpected resource URI: %s", uri)
		}
	}
}

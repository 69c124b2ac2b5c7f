package vault

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/bytedance/sonic"
)

func TestEmptyStore(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if s.AccessToken() != "" || s.RefreshToken() != "" {
		t.Error("fresh store should hold empty tokens")
	}
}

func TestSetPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := s.SetAccessToken(ctx, "A1"); err != nil {
		t.Fatalf("SetAccessToken failed: %v", err)
	}
	if err := s.SetRefreshToken(ctx, "B2"); err != nil {
		t.Fatalf("SetRefreshToken failed: %v", err)
	}

	reopened, err := New(dir)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}

	access, refresh := reopened.Tokens()
	if access != "A1" || refresh != "B2" {
		t.Errorf("expected {A1 B2}, got {%s %s}", access, refresh)
	}
}

func TestAccessWriteVisibleBeforeRefreshWrite(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	// After only the access write completes, a reader of durable state
	// must already observe it.
	if err := s.SetAccessToken(ctx, "A1"); err != nil {
		t.Fatalf("SetAccessToken failed: %v", err)
	}
	mid, err := New(dir)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if mid.AccessToken() != "A1" {
		t.Error("access token should be durable before refresh write begins")
	}
	if mid.RefreshToken() != "" {
		t.Error("refresh token should not be set yet")
	}
}

func TestSetHonorsCancelledContext(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.SetAccessToken(ctx, "A1"); err == nil {
		t.Error("expected error from cancelled context")
	}
	if s.AccessToken() != "" {
		t.Error("cancelled write should not mutate state")
	}
}

func TestPersistedFileUsesDeclaredKeys(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := s.SetAccessToken(ctx, "A1"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetRefreshToken(ctx, "B2"); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, tokensFile))
	if err != nil {
		t.Fatalf("read vault file: %v", err)
	}
	var stored map[string]string
	if err := sonic.ConfigStd.Unmarshal(data, &stored); err != nil {
		t.Fatalf("parse vault file: %v", err)
	}

	if stored[KeyAccessToken] != "A1" {
		t.Errorf("access token must live under %q, got %v", KeyAccessToken, stored)
	}
	if stored[KeyRefreshToken] != "B2" {
		t.Errorf("refresh token must live under %q, got %v", KeyRefreshToken, stored)
	}
}

func TestOverwrite(t *testing.T) {
	ctx := context.Background()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	s.SetAccessToken(ctx, "old")
	s.SetAccessToken(ctx, "new")

	if s.AccessToken() != "new" {
		t.Errorf("expected new, got %q", s.AccessToken())
	}
}

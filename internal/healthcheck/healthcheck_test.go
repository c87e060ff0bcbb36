package healthcheck

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/l3aro/linepdg/internal/config"
)

func TestCheckWithNilConfig(t *testing.T) {
	_, err := Check(context.Background(), nil, "")
	if err == nil {
		t.Error("Expected error for nil config, got nil")
	}
}

func TestCheckParser(t *testing.T) {
	g, status := checkParser()
	if status.Status != StatusReady {
		t.Fatalf("parser status = %q (%s), want ready", status.Status, status.Error)
	}
	if g == nil || g.Len() == 0 {
		t.Fatal("parser check returned no graph")
	}
}

func TestCheckCacheDisabled(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.UseCache = false

	status := checkCache(cfg, nil)
	if status.Status != StatusDisabled {
		t.Errorf("cache status = %q, want %q", status.Status, StatusDisabled)
	}
}

func TestCheckCacheLeavesNoSnapshot(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.CacheDir = t.TempDir()

	status := checkCache(cfg, nil)
	if status.Status != StatusReady {
		t.Fatalf("cache status = %q (%s), want ready", status.Status, status.Error)
	}

	entries, err := os.ReadDir(cfg.CacheDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("cache directory has %d entries after check, want 0", len(entries))
	}
}

func TestCheckCacheUnwritable(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig()
	cfg.CacheDir = filepath.Join(file, "cache")

	status := checkCache(cfg, nil)
	if status.Status != StatusError {
		t.Errorf("cache status = %q, want %q", status.Status, StatusError)
	}
}

func TestScopeFromPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	tests := []struct {
		path string
		want string
	}{
		{"", ""},
		{filepath.Join(home, ".lpdg", "config.yaml"), "global"},
		{filepath.Join(".lpdg", "config.yaml"), "project"},
	}
	for _, tt := range tests {
		if got := scopeFromPath(tt.path); got != tt.want {
			t.Errorf("scopeFromPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestResultOK(t *testing.T) {
	r := &HealthCheckResult{
		Parser:   ComponentStatus{Status: StatusReady},
		Cache:    ComponentStatus{Status: StatusDisabled},
		Graphviz: ComponentStatus{Status: StatusReady},
	}
	if !r.OK() {
		t.Error("OK() = false with no failing component")
	}

	r.Graphviz.Status = StatusError
	if r.OK() {
		t.Error("OK() = true with a failing component")
	}
}

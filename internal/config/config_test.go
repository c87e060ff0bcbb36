package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/l3aro/linepdg/internal/log"
	"github.com/l3aro/linepdg/pkg/pdg"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name     string
		got      interface{}
		expected interface{}
	}{
		{"RenderMode", cfg.RenderMode, "normal"},
		{"Format", cfg.Format, FormatText},
		{"DataEdges", cfg.DataEdges, true},
		{"UseCache", cfg.UseCache, true},
		{"LogLevel", cfg.LogLevel, "info"},
		{"Verbose", cfg.Verbose, false},
		{"JSONLogs", cfg.JSONLogs, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("DefaultConfig().%s = %v, want %v", tt.name, tt.got, tt.expected)
			}
		})
	}

	if !strings.HasSuffix(cfg.CacheDir, filepath.Join(".lpdg", "cache")) {
		t.Errorf("DefaultConfig().CacheDir = %q, want a .lpdg/cache directory", cfg.CacheDir)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			RenderMode: "normal",
			Format:     FormatText,
			CacheDir:   "/tmp/lpdg",
			UseCache:   true,
			LogLevel:   "info",
		}
	}

	tests := []struct {
		name        string
		mutate      func(c *Config)
		wantErr     bool
		errContains string
	}{
		{name: "valid config", mutate: func(c *Config) {}},
		{name: "export mode", mutate: func(c *Config) { c.RenderMode = "export" }},
		{name: "empty mode means normal", mutate: func(c *Config) { c.RenderMode = "" }},
		{name: "svg format", mutate: func(c *Config) { c.Format = FormatSVG }},
		{
			name:        "invalid render mode",
			mutate:      func(c *Config) { c.RenderMode = "fancy" },
			wantErr:     true,
			errContains: "invalid render_mode",
		},
		{
			name:        "invalid format",
			mutate:      func(c *Config) { c.Format = "png" },
			wantErr:     true,
			errContains: "invalid format",
		},
		{
			name:        "cache without directory",
			mutate:      func(c *Config) { c.CacheDir = "" },
			wantErr:     true,
			errContains: "cache_dir is required",
		},
		{
			name:   "no cache without directory",
			mutate: func(c *Config) { c.CacheDir = ""; c.UseCache = false },
		},
		{
			name:        "invalid log level",
			mutate:      func(c *Config) { c.LogLevel = "loud" },
			wantErr:     true,
			errContains: "invalid log_level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Validate() expected error containing %q", tt.errContains)
				}
				if !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("Validate() error = %v, want containing %q", err, tt.errContains)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}
		})
	}
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	global := filepath.Join(dir, "global.yaml")
	project := filepath.Join(dir, "project.yaml")

	writeFile(t, global, "render_mode: export\nformat: dot\nlog_level: warn\n")
	writeFile(t, project, "format: json\n")
	t.Setenv("LPDG_LOG_LEVEL", "debug")

	cfg, err := load(global, project, filepath.Join(dir, "missing.yaml"))
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}

	if cfg.Mode() != pdg.RenderExport {
		t.Errorf("Mode() = %v, want export from global config", cfg.Mode())
	}
	if cfg.Format != FormatJSON {
		t.Errorf("Format = %q, want project override %q", cfg.Format, FormatJSON)
	}
	if cfg.Level() != log.DebugLevel {
		t.Errorf("Level() = %v, want env override DEBUG", cfg.Level())
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "render_mode: [unclosed\n")

	if _, err := load(path); err == nil {
		t.Error("load() expected parse error")
	}
	if _, err := LoadFromFile(path); err == nil {
		t.Error("LoadFromFile() expected parse error")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LPDG_RENDER_MODE", "export")
	t.Setenv("LPDG_FORMAT", "svg")
	t.Setenv("LPDG_DATA_EDGES", "false")
	t.Setenv("LPDG_CACHE_DIR", "/var/cache/lpdg")
	t.Setenv("LPDG_USE_CACHE", "0")
	t.Setenv("LPDG_VERBOSE", "yes")
	t.Setenv("LPDG_JSON_LOGS", "TRUE")

	cfg := DefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.RenderMode != "export" || cfg.Format != "svg" {
		t.Errorf("mode/format = %q/%q, want export/svg", cfg.RenderMode, cfg.Format)
	}
	if cfg.DataEdges || cfg.UseCache {
		t.Errorf("DataEdges/UseCache = %v/%v, want false/false", cfg.DataEdges, cfg.UseCache)
	}
	if cfg.CacheDir != "/var/cache/lpdg" {
		t.Errorf("CacheDir = %q", cfg.CacheDir)
	}
	if !cfg.Verbose || !cfg.JSONLogs {
		t.Errorf("Verbose/JSONLogs = %v/%v, want true/true", cfg.Verbose, cfg.JSONLogs)
	}
	if cfg.Level() != log.DebugLevel {
		t.Errorf("Level() = %v, want DEBUG when verbose", cfg.Level())
	}
}

func TestSaveAndLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.RenderMode = "export"
	cfg.DataEdges = false
	cfg.CacheDir = "/tmp/lpdg-cache"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if loaded.RenderMode != "export" || loaded.DataEdges || loaded.CacheDir != "/tmp/lpdg-cache" {
		t.Errorf("LoadFromFile() = %+v, want saved values", loaded)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil || !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("LoadFromFile() error = %v, want read failure", err)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

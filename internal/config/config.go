package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/l3aro/linepdg/internal/log"
	"github.com/l3aro/linepdg/pkg/pdg"
)

// Output formats understood by the CLI.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatDOT  = "dot"
	FormatSVG  = "svg"
)

// Config holds all configuration for lpdg
type Config struct {
	// RenderMode selects how nodes and edges are printed: normal or export.
	RenderMode string `yaml:"render_mode" env:"LPDG_RENDER_MODE"`

	// Format is the default output format of the graph and export commands.
	Format string `yaml:"format" env:"LPDG_FORMAT"`

	// DataEdges adds data dependences computed by reaching definitions.
	DataEdges bool `yaml:"data_edges" env:"LPDG_DATA_EDGES"`

	// Graph snapshot cache
	CacheDir string `yaml:"cache_dir" env:"LPDG_CACHE_DIR"`
	UseCache bool   `yaml:"use_cache" env:"LPDG_USE_CACHE"`

	// Logging
	LogLevel string `yaml:"log_level" env:"LPDG_LOG_LEVEL"`
	Verbose  bool   `yaml:"verbose" env:"LPDG_VERBOSE"`
	JSONLogs bool   `yaml:"json_logs" env:"LPDG_JSON_LOGS"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		RenderMode: pdg.RenderNormal.String(),
		Format:     FormatText,
		DataEdges:  true,
		CacheDir:   defaultCacheDir(),
		UseCache:   true,
		LogLevel:   "info",
		Verbose:    false,
		JSONLogs:   false,
	}
}

func defaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".lpdg", "cache")
	}
	return filepath.Join(home, ".lpdg", "cache")
}

// globalConfigFilePath returns the global config file path (~/.lpdg/config.yaml)
func globalConfigFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".lpdg/config.yaml"
	}
	return filepath.Join(home, ".lpdg", "config.yaml")
}

// ProjectConfigFilePath returns the project-level config file path (./.lpdg/config.yaml)
func ProjectConfigFilePath() string {
	return filepath.Join(".lpdg", "config.yaml")
}

// Load reads configuration with the following priority (highest to lowest):
// 1. Environment variables
// 2. Project-level config (./.lpdg/config.yaml)
// 3. Global config (~/.lpdg/config.yaml)
// 4. Defaults
func Load() (*Config, error) {
	return load(globalConfigFilePath(), ProjectConfigFilePath())
}

func load(paths ...string) (*Config, error) {
	cfg := DefaultConfig()

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile reads configuration from a specific YAML file path
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	if data, err := os.ReadFile(path); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to the specified YAML file path.
// It creates parent directories if they don't exist.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LPDG_RENDER_MODE"); v != "" {
		cfg.RenderMode = v
	}
	if v := os.Getenv("LPDG_FORMAT"); v != "" {
		cfg.Format = v
	}
	if v := os.Getenv("LPDG_DATA_EDGES"); v != "" {
		cfg.DataEdges = parseBool(v)
	}
	if v := os.Getenv("LPDG_CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
	if v := os.Getenv("LPDG_USE_CACHE"); v != "" {
		cfg.UseCache = parseBool(v)
	}
	if v := os.Getenv("LPDG_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("LPDG_VERBOSE"); v != "" {
		cfg.Verbose = parseBool(v)
	}
	if v := os.Getenv("LPDG_JSON_LOGS"); v != "" {
		cfg.JSONLogs = parseBool(v)
	}
}

func parseBool(v string) bool {
	v = strings.ToLower(v)
	return v == "true" || v == "1" || v == "yes"
}

// Validate checks that the configuration has valid required fields
func (c *Config) Validate() error {
	if _, err := pdg.ParseRenderMode(c.RenderMode); err != nil {
		return fmt.Errorf("invalid render_mode: %w", err)
	}

	switch c.Format {
	case FormatText, FormatJSON, FormatDOT, FormatSVG:
	default:
		return fmt.Errorf("invalid format: %s (must be 'text', 'json', 'dot' or 'svg')", c.Format)
	}

	if c.UseCache && c.CacheDir == "" {
		return fmt.Errorf("cache_dir is required when use_cache is enabled")
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}
	return nil
}

// Mode returns the configured render mode. Validate has already checked it.
func (c *Config) Mode() pdg.RenderMode {
	m, err := pdg.ParseRenderMode(c.RenderMode)
	if err != nil {
		return pdg.RenderNormal
	}
	return m
}

// Level returns the effective log level; Verbose forces debug.
func (c *Config) Level() log.Level {
	if c.Verbose {
		return log.DebugLevel
	}
	l, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return l
}

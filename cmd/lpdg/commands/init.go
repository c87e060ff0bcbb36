package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/l3aro/linepdg/internal/config"
	"github.com/l3aro/linepdg/internal/healthcheck"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize lpdg configuration interactively",
	Long: `Guides you through setting up lpdg configuration step by step and
saves it as a project (.lpdg/config.yaml) or global (~/.lpdg/config.yaml) file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		answers := defaultInitAnswers(app.cfg)
		if err := askInit(&answers); err != nil {
			return err
		}
		return saveInit(cmd, answers)
	},
}

// initAnswers holds the choices made in the init wizard.
type initAnswers struct {
	Scope      string
	RenderMode string
	Format     string
	DataEdges  bool
	UseCache   bool
	CacheDir   string
}

func defaultInitAnswers(cfg *config.Config) initAnswers {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return initAnswers{
		Scope:      "project",
		RenderMode: cfg.RenderMode,
		Format:     cfg.Format,
		DataEdges:  cfg.DataEdges,
		UseCache:   cfg.UseCache,
		CacheDir:   cfg.CacheDir,
	}
}

func askInit(a *initAnswers) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Where should the configuration be saved?").
				Options(
					huh.NewOption("This project (.lpdg/config.yaml)", "project"),
					huh.NewOption("All projects (~/.lpdg/config.yaml)", "global"),
				).
				Value(&a.Scope),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Render mode").
				Description("normal prints \"[line] text\", export prints \"Line_<n>\"").
				Options(
					huh.NewOption("Normal", "normal"),
					huh.NewOption("Export", "export"),
				).
				Value(&a.RenderMode),
			huh.NewSelect[string]().
				Title("Default output format").
				Options(
					huh.NewOption("Text", config.FormatText),
					huh.NewOption("JSON", config.FormatJSON),
					huh.NewOption("Graphviz DOT", config.FormatDOT),
					huh.NewOption("SVG", config.FormatSVG),
				).
				Value(&a.Format),
			huh.NewConfirm().
				Title("Compute data dependences?").
				Description("Adds CDG edges from reaching definitions").
				Value(&a.DataEdges),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Cache built graphs on disk?").
				Value(&a.UseCache),
			huh.NewInput().
				Title("Cache directory").
				Placeholder(a.CacheDir).
				Value(&a.CacheDir),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}
	return nil
}

func (a initAnswers) path() (string, error) {
	if a.Scope == "global" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("finding home directory: %w", err)
		}
		return filepath.Join(home, ".lpdg", "config.yaml"), nil
	}
	return config.ProjectConfigFilePath(), nil
}

func (a initAnswers) toConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.RenderMode = a.RenderMode
	cfg.Format = a.Format
	cfg.DataEdges = a.DataEdges
	cfg.UseCache = a.UseCache
	if a.CacheDir != "" {
		cfg.CacheDir = a.CacheDir
	}
	return cfg
}

func saveInit(cmd *cobra.Command, a initAnswers) error {
	w := cmd.OutOrStdout()

	configPath, err := a.path()
	if err != nil {
		return err
	}
	cfg := a.toConfig()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	fmt.Fprintln(w, "\n=== Configuration Preview ===")
	fmt.Fprintf(w, "Config path: %s\n", configPath)
	fmt.Fprintf(w, "Render mode: %s\n", cfg.RenderMode)
	fmt.Fprintf(w, "Format: %s\n", cfg.Format)
	fmt.Fprintf(w, "Data edges: %t\n", cfg.DataEdges)
	if cfg.UseCache {
		fmt.Fprintf(w, "Cache: %s\n", cfg.CacheDir)
	} else {
		fmt.Fprintln(w, "Cache: disabled")
	}
	fmt.Fprintln(w, "================================")

	if err := cfg.Save(configPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Fprintf(w, "Configuration saved to: %s\n", configPath)

	loadedCfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("loading saved config: %w", err)
	}

	fmt.Fprintln(w, "\n=== Running Health Check ===")
	result, err := healthcheck.Check(cmd.Context(), loadedCfg, configPath)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	displayHealth(w, result)

	fmt.Fprintln(w, "\n=== Initialization Complete ===")
	return nil
}

func displayHealth(w io.Writer, result *healthcheck.HealthCheckResult) {
	if result.ConfigPath == "" {
		fmt.Fprintln(w, "Using config: built-in defaults")
	} else {
		fmt.Fprintf(w, "Using config: %s (%s)\n", result.ConfigPath, result.ConfigScope)
	}
	fmt.Fprintf(w, "Render mode: %s\n\n", result.RenderMode)

	for _, c := range result.Components() {
		fmt.Fprintf(w, "%s:\n", c.Name)
		fmt.Fprintf(w, "  Status: %s %s\n", formatStatusIcon(c.Status), c.Status)
		if c.Detail != "" {
			fmt.Fprintf(w, "  Detail: %s\n", c.Detail)
		}
		if c.Error != "" {
			fmt.Fprintf(w, "  Error: %s\n", c.Error)
		}
	}
}

func formatStatusIcon(status string) string {
	switch status {
	case healthcheck.StatusReady:
		return "✓"
	case healthcheck.StatusDisabled:
		return "-"
	default:
		return "✗"
	}
}

func init() {
	RootCmd.AddCommand(initCmd)
}

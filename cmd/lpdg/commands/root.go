package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/l3aro/linepdg/internal/config"
	"github.com/l3aro/linepdg/internal/log"
	"github.com/l3aro/linepdg/pkg/cache"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "lpdg",
	Short: "lpdg - Line-level program dependence graphs",
	Long: `lpdg builds a line-level program dependence graph for a single function.
Each statement line is a node; CD edges link a line to the line controlling it
and CDG edges carry a variable from the line writing it to a line reading it.

Commands:
  graph       Print the nodes and edges of a function's graph
  slice       Backward or forward slice from a line
  deps        Dependencies of a single line
  writes      Variable writes recorded on each line
  export      Write the graph as DOT, SVG or a msgpack snapshot
  init        Create a configuration file interactively
  doctor      Check the parser, cache and renderer
  cache       Manage the graph cache

Use "lpdg [command] --help" for more information about a command.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd)
	},
}

// appState holds the state shared by commands once flags and config are read.
type appState struct {
	cfg        *config.Config
	configPath string
	logger     *log.DefaultLogger
	store      *cache.GraphStore
}

var app appState

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return RootCmd.Execute()
}

func setup(cmd *cobra.Command) error {
	configFile, _ := cmd.Flags().GetString("config")

	var (
		cfg *config.Config
		err error
	)
	if configFile != "" {
		cfg, err = config.LoadFromFile(configFile)
		app.configPath = configFile
	} else {
		cfg, err = config.Load()
		app.configPath = effectiveConfigPath()
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if cmd.Flags().Changed("mode") {
		cfg.RenderMode, _ = cmd.Flags().GetString("mode")
	}
	if cmd.Flags().Changed("data-edges") {
		cfg.DataEdges, _ = cmd.Flags().GetBool("data-edges")
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		cfg.Verbose = true
	}
	if noCache, _ := cmd.Flags().GetBool("no-cache"); noCache {
		cfg.UseCache = false
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	app.cfg = cfg

	app.logger = log.Default()
	app.logger.SetLevel(cfg.Level())
	app.logger.SetJSONOutput(cfg.JSONLogs)

	app.store = nil
	if cfg.UseCache {
		store, err := cache.NewGraphStore(cache.StoreOptions{
			Dir:    cfg.CacheDir,
			Memory: cache.Options{MaxSize: 64},
			Logger: app.logger,
		})
		if err != nil {
			app.logger.Warn("graph cache disabled", "error", err)
		} else {
			app.store = store
		}
	}
	return nil
}

// effectiveConfigPath returns the config file with the highest priority
// that exists, or "" when only defaults apply.
func effectiveConfigPath() string {
	if fileExists(config.ProjectConfigFilePath()) {
		return config.ProjectConfigFilePath()
	}
	if home, err := os.UserHomeDir(); err == nil {
		global := filepath.Join(home, ".lpdg", "config.yaml")
		if fileExists(global) {
			return global
		}
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

func init() {
	flags := RootCmd.PersistentFlags()
	flags.String("config", "", "Config file path (default: .lpdg/config.yaml, then ~/.lpdg/config.yaml)")
	flags.StringP("mode", "m", "", "Render mode: normal or export")
	flags.Bool("data-edges", true, "Compute data dependences (CDG edges)")
	flags.Bool("verbose", false, "Verbose logging")
	flags.Bool("no-cache", false, "Do not read or write the graph cache")
}

package healthcheck

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/l3aro/linepdg/internal/config"
	"github.com/l3aro/linepdg/pkg/builder"
	"github.com/l3aro/linepdg/pkg/cache"
	"github.com/l3aro/linepdg/pkg/pdg"
)

// Component statuses.
const (
	StatusReady    = "ready"
	StatusDisabled = "disabled"
	StatusError    = "error"
)

// ComponentStatus represents the health of one part of the toolchain.
type ComponentStatus struct {
	Name   string
	Status string // "ready", "disabled" or "error"
	Detail string
	Error  string
}

// HealthCheckResult contains the full health check output for display.
type HealthCheckResult struct {
	ConfigPath  string
	ConfigScope string // "global", "project" or "" for defaults
	RenderMode  string
	Parser      ComponentStatus
	Cache       ComponentStatus
	Graphviz    ComponentStatus
}

// Components returns the checked components in display order.
func (r *HealthCheckResult) Components() []ComponentStatus {
	return []ComponentStatus{r.Parser, r.Cache, r.Graphviz}
}

// OK reports whether no component failed.
func (r *HealthCheckResult) OK() bool {
	for _, c := range r.Components() {
		if c.Status == StatusError {
			return false
		}
	}
	return true
}

const probeSource = `package probe

func probe(n int) int {
	total := 0
	for i := 0; i < n; i++ {
		if i > 2 {
			total += i
		}
	}
	return total
}
`

// Check performs a health check against the given config.
// configPath is the config file in use; empty means built-in defaults.
func Check(ctx context.Context, cfg *config.Config, configPath string) (*HealthCheckResult, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	result := &HealthCheckResult{
		ConfigPath:  configPath,
		ConfigScope: scopeFromPath(configPath),
		RenderMode:  cfg.Mode().String(),
	}

	probe, parser := checkParser()
	result.Parser = parser
	result.Cache = checkCache(cfg, probe)
	result.Graphviz = checkGraphviz(ctx, probe)

	return result, nil
}

// scopeFromPath determines "global" or "project" scope from a config file path.
// Returns empty string if path is empty.
func scopeFromPath(path string) string {
	if path == "" {
		return ""
	}

	home, err := os.UserHomeDir()
	if err == nil {
		globalDir := filepath.Join(home, ".lpdg")
		if strings.HasPrefix(path, globalDir) {
			return "global"
		}
	}

	return "project"
}

// checkParser builds the probe function with data edges.
func checkParser() (*pdg.Graph, ComponentStatus) {
	status := ComponentStatus{Name: "parser"}

	out, err := builder.BuildSource(builder.LanguageGo, []byte(probeSource), "probe", builder.Options{DataEdges: true})
	if err != nil {
		status.Status = StatusError
		status.Error = err.Error()
		return nil, status
	}
	if out.HasErrors() || out.DefUse == 0 {
		status.Status = StatusError
		status.Error = "probe function produced an incomplete graph"
		return out.Graph, status
	}

	status.Status = StatusReady
	status.Detail = fmt.Sprintf("go grammar, %d nodes, %d def-use chains", out.Graph.Len(), out.DefUse)
	return out.Graph, status
}

// checkCache stores and reloads the probe graph in the configured directory.
func checkCache(cfg *config.Config, probe *pdg.Graph) ComponentStatus {
	status := ComponentStatus{Name: "cache", Detail: cfg.CacheDir}
	if !cfg.UseCache {
		status.Status = StatusDisabled
		return status
	}
	if probe == nil {
		probe = pdg.New("probe")
		probe.AddLine(1, "func probe() {")
	}

	store, err := cache.NewGraphStore(cache.StoreOptions{Dir: cfg.CacheDir})
	if err != nil {
		status.Status = StatusError
		status.Error = err.Error()
		return status
	}

	key := cache.Key([]byte(probeSource), "healthcheck", true)
	defer store.Delete(key)

	if err := store.Put(key, probe); err != nil {
		status.Status = StatusError
		status.Error = err.Error()
		return status
	}

	reopened, err := cache.NewGraphStore(cache.StoreOptions{Dir: cfg.CacheDir})
	if err != nil {
		status.Status = StatusError
		status.Error = err.Error()
		return status
	}
	if _, ok := reopened.Get(key); !ok {
		status.Status = StatusError
		status.Error = "stored snapshot could not be read back"
		return status
	}

	status.Status = StatusReady
	return status
}

// checkGraphviz renders the probe graph to SVG.
func checkGraphviz(ctx context.Context, probe *pdg.Graph) ComponentStatus {
	status := ComponentStatus{Name: "graphviz"}
	if probe == nil {
		probe = pdg.New("probe")
		probe.AddLine(1, "func probe() {")
	}

	svg, err := pdg.RenderSVG(ctx, pdg.ToDOT(probe, pdg.DOTOptions{Mode: pdg.RenderExport}))
	if err != nil {
		status.Status = StatusError
		status.Error = err.Error()
		return status
	}
	if !strings.Contains(string(svg), "<svg") {
		status.Status = StatusError
		status.Error = "renderer returned no SVG document"
		return status
	}

	status.Status = StatusReady
	status.Detail = fmt.Sprintf("%d bytes of SVG", len(svg))
	return status
}

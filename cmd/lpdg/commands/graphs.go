package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/l3aro/linepdg/pkg/builder"
	"github.com/l3aro/linepdg/pkg/cache"
	"github.com/l3aro/linepdg/pkg/pdg"
)

// loadGraph returns the graph of functionName in filePath, from the cache
// when a snapshot of the same source exists.
func loadGraph(filePath, functionName string) (*pdg.Graph, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory, expected a file: %s", filePath)
	}

	lang, err := builder.LanguageFromPath(filePath)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	key := cache.Key(content, functionName, app.cfg.DataEdges)
	if app.store != nil {
		if g, ok := app.store.Get(key); ok {
			app.logger.Debug("graph loaded from cache", "function", functionName, "file", filePath)
			return g, nil
		}
	}

	out, err := builder.BuildSource(lang, content, functionName, builder.Options{DataEdges: app.cfg.DataEdges})
	if err != nil {
		if errors.Is(err, pdg.ErrNotFound) {
			return nil, fmt.Errorf("function %q not found in %s", functionName, filePath)
		}
		return nil, fmt.Errorf("building graph: %w", err)
	}

	for _, d := range out.Diagnostics {
		msg, _ := d.Message()
		app.logger.Warn("line skipped", "kind", d.Kind(), "reason", msg)
	}
	for text, hs := range out.Graph.DuplicateInfo() {
		app.logger.Debug("lines share text and compare equal", "info", text, "count", len(hs))
	}
	app.logger.Debug("graph built", "function", functionName, "nodes", out.Graph.Len(),
		"edges", len(out.Graph.Edges()), "def_use", out.DefUse)

	// Graphs with skipped lines are not cached so the diagnostics show again.
	if app.store != nil && !out.HasErrors() {
		if err := app.store.Put(key, out.Graph); err != nil {
			app.logger.Warn("failed to cache graph", "error", err)
		}
	}
	return out.Graph, nil
}

type nodeJSON struct {
	Handle int     `json:"handle"`
	Line   int     `json:"line"`
	Info   *string `json:"info"`
	Label  string  `json:"label"`
	Entry  bool    `json:"entry,omitempty"`
}

type edgeJSON struct {
	From     int    `json:"from"`
	To       int    `json:"to"`
	Type     string `json:"type"`
	Variable string `json:"variable,omitempty"`
	Label    string `json:"label"`
}

type writeJSON struct {
	Line     int    `json:"line"`
	Variable string `json:"variable"`
	Declared bool   `json:"declared"`
	Node     string `json:"node"`
}

type graphJSON struct {
	FunctionName string     `json:"function_name"`
	Mode         string     `json:"mode"`
	Nodes        []nodeJSON `json:"nodes"`
	Edges        []edgeJSON `json:"edges"`
}

func lineOf(g *pdg.Graph, h pdg.Handle) int {
	if n := g.Node(h).Node(); n != nil {
		return n.ID()
	}
	return 0
}

func toNodeJSON(g *pdg.Graph, h pdg.Handle, mode pdg.RenderMode) nodeJSON {
	n := g.Node(h).Node()
	out := nodeJSON{Handle: int(h), Line: n.ID(), Label: n.Render(mode), Entry: h == g.Entry()}
	if info, ok := n.Info(); ok && mode == pdg.RenderNormal {
		out.Info = &info
	}
	return out
}

func toEdgeJSON(g *pdg.Graph, e pdg.DependenceEdge, mode pdg.RenderMode) edgeJSON {
	return edgeJSON{
		From:     lineOf(g, e.From()),
		To:       lineOf(g, e.To()),
		Type:     e.Render(mode),
		Variable: e.Variable(),
		Label:    g.Describe(e, mode),
	}
}

func toEdgesJSON(g *pdg.Graph, edges []pdg.DependenceEdge, mode pdg.RenderMode) []edgeJSON {
	out := make([]edgeJSON, 0, len(edges))
	for _, e := range edges {
		out = append(out, toEdgeJSON(g, e, mode))
	}
	return out
}

func toWriteJSON(g *pdg.Graph, w pdg.VariableWrite, mode pdg.RenderMode) writeJSON {
	out := writeJSON{Line: lineOf(g, w.Where()), Variable: w.Variable(), Declared: w.Declared()}
	if n := g.Node(w.Where()).Node(); n != nil {
		out.Node = n.Render(mode)
	}
	return out
}

func toGraphJSON(g *pdg.Graph, mode pdg.RenderMode, controlOnly bool) graphJSON {
	out := graphJSON{FunctionName: g.FunctionName, Mode: mode.String(), Nodes: []nodeJSON{}}
	for _, h := range g.Handles() {
		out.Nodes = append(out.Nodes, toNodeJSON(g, h, mode))
	}
	var edges []pdg.DependenceEdge
	for _, e := range g.Edges() {
		if controlOnly && e.IsData() {
			continue
		}
		edges = append(edges, e)
	}
	out.Edges = toEdgesJSON(g, edges, mode)
	return out
}

func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

// describe renders an edge with its variable for data edges.
func describe(g *pdg.Graph, e pdg.DependenceEdge, mode pdg.RenderMode) string {
	s := g.Describe(e, mode)
	if e.IsData() {
		s += fmt.Sprintf("  (%s)", e.Variable())
	}
	return s
}

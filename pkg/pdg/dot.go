package pdg

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"
)

// DOTOptions configures DOT output.
type DOTOptions struct {
	// Mode selects node labels. In RenderExport mode node identifiers and
	// labels are "Line_<id>" and no source text is embedded.
	Mode RenderMode
	// ControlOnly omits data-carrying CDG edges.
	ControlOnly bool
}

// ToDOT converts a graph to Graphviz DOT format.
// Node identifiers are always the export-mode label so that the output is
// stable; the visible label follows opts.Mode.
func ToDOT(g *Graph, opts DOTOptions) string {
	var buf bytes.Buffer
	name := g.FunctionName
	if name == "" {
		name = "pdg"
	}
	fmt.Fprintf(&buf, "digraph %q {\n", name)
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  node [shape=box, fontname=\"monospace\"];\n")
	buf.WriteString("\n")

	for _, h := range g.Handles() {
		n := g.nodes[h]
		attrs := []string{fmt.Sprintf("label=%q", n.Render(opts.Mode))}
		if h == g.Entry() {
			attrs = append(attrs, "shape=ellipse")
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", nodeID(g, h), strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range g.edges {
		if opts.ControlOnly && e.IsData() {
			continue
		}
		attrs := []string{fmt.Sprintf("label=%q", e.Render(opts.Mode))}
		if e.IsData() {
			attrs = append(attrs, "style=dashed")
			if opts.Mode == RenderNormal {
				attrs = append(attrs, fmt.Sprintf("tooltip=%q", e.variable))
			}
		}
		fmt.Fprintf(&buf, "  %q -> %q [%s];\n", nodeID(g, e.from), nodeID(g, e.to), strings.Join(attrs, ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

// nodeID disambiguates nodes that share a line number.
func nodeID(g *Graph, h Handle) string {
	n := g.nodes[h]
	id := n.Render(RenderExport)
	if primary, ok := g.byLine[n.ID()]; !ok || primary != h {
		id = fmt.Sprintf("%s_%d", id, h)
	}
	return id
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

// Package commands provides the CLI commands for the lpdg tool.
package commands

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/l3aro/linepdg/pkg/pdg"
)

var graphCmd = &cobra.Command{
	Use:   "graph <file> <function>",
	Short: "Print the dependence graph of a function",
	Long: `Builds the line-level dependence graph of a function and prints its nodes
and edges. In export mode nodes are printed as Line_<n> without source text.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := loadGraph(args[0], args[1])
		if err != nil {
			return err
		}

		mode := app.cfg.Mode()
		controlOnly, _ := cmd.Flags().GetBool("control-only")
		jsonOutput, _ := cmd.Flags().GetBool("json")

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), toGraphJSON(g, mode, controlOnly))
		}
		printGraph(cmd.OutOrStdout(), g, mode, controlOnly)
		return nil
	},
}

func printGraph(w io.Writer, g *pdg.Graph, mode pdg.RenderMode, controlOnly bool) {
	fmt.Fprintf(w, "=== PDG for function: %s (%s mode) ===\n", g.FunctionName, mode)

	handles := g.Handles()
	fmt.Fprintf(w, "\nNodes (%d):\n", len(handles))
	for _, h := range handles {
		marker := ""
		if h == g.Entry() {
			marker = "  (entry)"
		}
		fmt.Fprintf(w, "  %s%s\n", g.Node(h).Node().Render(mode), marker)
	}

	var edges []pdg.DependenceEdge
	for _, e := range g.Edges() {
		if controlOnly && e.IsData() {
			continue
		}
		edges = append(edges, e)
	}
	fmt.Fprintf(w, "\nEdges (%d):\n", len(edges))
	for _, e := range edges {
		fmt.Fprintf(w, "  %s\n", describe(g, e, mode))
	}

	dups := g.DuplicateInfo()
	if len(dups) == 0 {
		return
	}
	infos := make([]string, 0, len(dups))
	for info := range dups {
		infos = append(infos, info)
	}
	sort.Strings(infos)

	fmt.Fprintf(w, "\nLines with identical text (%d):\n", len(infos))
	for _, info := range infos {
		var lines []int
		for _, h := range dups[info] {
			lines = append(lines, lineOf(g, h))
		}
		sort.Ints(lines)
		fmt.Fprintf(w, "  %q on lines %s\n", info, formatLineRanges(lines))
	}
}

func init() {
	graphCmd.Flags().Bool("control-only", false, "Omit data-carrying CDG edges")
	graphCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	RootCmd.AddCommand(graphCmd)
}

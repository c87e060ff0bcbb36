package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/l3aro/linepdg/pkg/pdg"
)

var writesCmd = &cobra.Command{
	Use:   "writes <file> <function> [--var NAME] [--json]",
	Short: "List the variable writes recorded on each line",
	Long: `Lists every variable write of a function in line order. A write is marked
as a declaration when it introduces the variable (":=", var, parameters).`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := loadGraph(args[0], args[1])
		if err != nil {
			return err
		}

		var writes []pdg.VariableWrite
		if cmd.Flags().Changed("var") {
			name, _ := cmd.Flags().GetString("var")
			writes = g.WritesOf(name)
		} else {
			for _, h := range g.Handles() {
				writes = append(writes, g.WritesAt(h)...)
			}
		}

		mode := app.cfg.Mode()
		jsonOutput, _ := cmd.Flags().GetBool("json")
		if jsonOutput {
			out := make([]writeJSON, 0, len(writes))
			for _, w := range writes {
				out = append(out, toWriteJSON(g, w, mode))
			}
			return printJSON(cmd.OutOrStdout(), out)
		}

		printWrites(cmd.OutOrStdout(), g, writes, mode)
		return nil
	},
}

func printWrites(w io.Writer, g *pdg.Graph, writes []pdg.VariableWrite, mode pdg.RenderMode) {
	fmt.Fprintf(w, "=== Variable writes in %s (%d) ===\n", g.FunctionName, len(writes))
	for _, wr := range writes {
		kind := "assign"
		if wr.Declared() {
			kind = "declare"
		}
		node := ""
		if n := g.Node(wr.Where()).Node(); n != nil {
			node = n.Render(mode)
		}
		fmt.Fprintf(w, "  %-12s %-8s %s\n", wr.Variable(), kind, node)
	}
}

func init() {
	writesCmd.Flags().StringP("var", "v", "", "Only writes of this variable")
	writesCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	RootCmd.AddCommand(writesCmd)
}

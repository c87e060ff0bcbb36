package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/l3aro/linepdg/pkg/pdg"
)

var depsCmd = &cobra.Command{
	Use:   "deps <file> <function> --line N [--json]",
	Short: "Show the control and data dependences of one line",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		lineNum, _ := cmd.Flags().GetInt("line")
		if lineNum <= 0 {
			return fmt.Errorf("line number must be positive: %d", lineNum)
		}

		g, err := loadGraph(args[0], args[1])
		if err != nil {
			return err
		}
		r := g.NodeAtLine(lineNum)
		if r.HasError() {
			return fmt.Errorf("line %d: %w", lineNum, r.Err())
		}

		mode := app.cfg.Mode()
		deps := pdg.GetDependencies(g, lineNum)

		jsonOutput, _ := cmd.Flags().GetBool("json")
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), struct {
				FunctionName string     `json:"function_name"`
				Node         nodeJSON   `json:"node"`
				ControlIn    []edgeJSON `json:"control_in"`
				ControlOut   []edgeJSON `json:"control_out"`
				DataIn       []edgeJSON `json:"data_in"`
				DataOut      []edgeJSON `json:"data_out"`
			}{
				FunctionName: g.FunctionName,
				Node:         toNodeJSON(g, r.Handle(), mode),
				ControlIn:    toEdgesJSON(g, deps.ControlIn, mode),
				ControlOut:   toEdgesJSON(g, deps.ControlOut, mode),
				DataIn:       toEdgesJSON(g, deps.DataIn, mode),
				DataOut:      toEdgesJSON(g, deps.DataOut, mode),
			})
		}

		fmt.Fprintf(cmd.OutOrStdout(), "=== Dependences of %s in %s ===\n", r.Node().Render(mode), g.FunctionName)
		printEdgeGroup(cmd.OutOrStdout(), g, "Controlled by", deps.ControlIn, mode)
		printEdgeGroup(cmd.OutOrStdout(), g, "Controls", deps.ControlOut, mode)
		printEdgeGroup(cmd.OutOrStdout(), g, "Data from", deps.DataIn, mode)
		printEdgeGroup(cmd.OutOrStdout(), g, "Data to", deps.DataOut, mode)
		return nil
	},
}

func printEdgeGroup(w io.Writer, g *pdg.Graph, title string, edges []pdg.DependenceEdge, mode pdg.RenderMode) {
	fmt.Fprintf(w, "\n%s (%d):\n", title, len(edges))
	for _, e := range edges {
		fmt.Fprintf(w, "  %s\n", describe(g, e, mode))
	}
}

func init() {
	depsCmd.Flags().IntP("line", "l", 0, "Line number (required)")
	depsCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	_ = depsCmd.MarkFlagRequired("line")
	RootCmd.AddCommand(depsCmd)
}

package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/l3aro/linepdg/pkg/pdg"
)

var sliceCmd = &cobra.Command{
	Use:   "slice <file> <function> --line N [--backward|--forward] [--var NAME] [--json]",
	Short: "Perform backward or forward slice analysis on a function",
	Long: `Perform slice analysis on a specific function over its control and data dependences.

Backward slice: Find all lines that may affect the value at the target line.
Forward slice: Find all lines that may be affected by the value at the source line.

With --var, data edges are only followed for that variable; control edges are always followed.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		filePath := args[0]
		functionName := args[1]

		lineNum, err := cmd.Flags().GetInt("line")
		if err != nil {
			return fmt.Errorf("getting line flag: %w", err)
		}
		if lineNum <= 0 {
			return fmt.Errorf("line number must be positive: %d", lineNum)
		}

		backward, _ := cmd.Flags().GetBool("backward")
		forward, _ := cmd.Flags().GetBool("forward")
		if backward && forward {
			return fmt.Errorf("--backward and --forward are mutually exclusive")
		}
		// Default to backward if neither specified
		if !forward {
			backward = true
		}

		var varFilter *string
		if cmd.Flags().Changed("var") {
			varName, _ := cmd.Flags().GetString("var")
			varFilter = &varName
		}

		g, err := loadGraph(filePath, functionName)
		if err != nil {
			return err
		}
		if _, ok := g.HandleAtLine(lineNum); !ok {
			return fmt.Errorf("line %d has no statement in function %q", lineNum, functionName)
		}

		var sliceLines []int
		if backward {
			sliceLines = pdg.BackwardSlice(g, lineNum, varFilter)
		} else {
			sliceLines = pdg.ForwardSlice(g, lineNum, varFilter)
		}
		if sliceLines == nil {
			sliceLines = []int{}
		}

		direction := "backward"
		if !backward {
			direction = "forward"
		}

		jsonOutput, _ := cmd.Flags().GetBool("json")
		if jsonOutput {
			output := struct {
				FunctionName string `json:"function_name"`
				Line         int    `json:"line"`
				Direction    string `json:"direction"`
				Variable     string `json:"variable,omitempty"`
				SliceLines   []int  `json:"slice_lines"`
			}{
				FunctionName: functionName,
				Line:         lineNum,
				Direction:    direction,
				SliceLines:   sliceLines,
			}
			if varFilter != nil {
				output.Variable = *varFilter
			}
			return printJSON(cmd.OutOrStdout(), output)
		}

		printSliceInfo(cmd.OutOrStdout(), g, lineNum, direction, varFilter, sliceLines, app.cfg.Mode())
		return nil
	},
}

func printSliceInfo(w io.Writer, g *pdg.Graph, lineNum int, direction string, varFilter *string, sliceLines []int, mode pdg.RenderMode) {
	fmt.Fprintf(w, "=== Slice for function: %s (line %d, %s) ===\n", g.FunctionName, lineNum, direction)

	if varFilter != nil {
		fmt.Fprintf(w, "Variable filter: %s\n", *varFilter)
	}

	fmt.Fprintf(w, "\nSlice lines (%d): %s\n", len(sliceLines), formatLineRanges(sliceLines))
	if len(sliceLines) == 0 {
		return
	}

	fmt.Fprintln(w, "\n--- Function lines with slice lines highlighted ---")
	printSourceWithHighlights(w, g, sliceLines, mode)
}

func formatLineRanges(lines []int) string {
	if len(lines) == 0 {
		return "none"
	}

	var ranges []string
	start := lines[0]
	end := lines[0]

	flush := func() {
		if start == end {
			ranges = append(ranges, fmt.Sprintf("%d", start))
		} else {
			ranges = append(ranges, fmt.Sprintf("%d-%d", start, end))
		}
	}

	for i := 1; i < len(lines); i++ {
		if lines[i] == end+1 {
			end = lines[i]
			continue
		}
		flush()
		start = lines[i]
		end = lines[i]
	}
	flush()

	return strings.Join(ranges, ", ")
}

func printSourceWithHighlights(w io.Writer, g *pdg.Graph, sliceLines []int, mode pdg.RenderMode) {
	lineSet := make(map[int]bool, len(sliceLines))
	for _, line := range sliceLines {
		lineSet[line] = true
	}

	seen := make(map[int]bool)
	for _, h := range g.Handles() {
		n := g.Node(h).Node()
		if seen[n.ID()] {
			continue
		}
		seen[n.ID()] = true

		highlight := "    "
		if lineSet[n.ID()] {
			highlight = " >>>"
		}
		fmt.Fprintf(w, "%5d:%s %s\n", n.ID(), highlight, n.Render(mode))
	}
}

func init() {
	sliceCmd.Flags().IntP("line", "l", 0, "Line number to slice from (required)")
	sliceCmd.Flags().BoolP("backward", "b", false, "Backward slice (default)")
	sliceCmd.Flags().BoolP("forward", "f", false, "Forward slice")
	sliceCmd.Flags().StringP("var", "v", "", "Variable name to filter (optional)")
	sliceCmd.Flags().BoolP("json", "j", false, "Output as JSON")

	_ = sliceCmd.MarkFlagRequired("line")

	RootCmd.AddCommand(sliceCmd)
}

package pdg

import (
	"container/list"
	"sort"
)

// DependencyInfo contains the control and data dependencies for a specific line.
// Control edges are pure CD edges; data edges are CDG edges induced by a variable.
type DependencyInfo struct {
	ControlIn  []DependenceEdge
	ControlOut []DependenceEdge
	DataIn     []DependenceEdge
	DataOut    []DependenceEdge
}

// getLineNumbers extracts unique sorted line numbers from a set of handles.
func getLineNumbers(g *Graph, handles []Handle) []int {
	lineSet := make(map[int]struct{})
	for _, h := range handles {
		if n := g.Node(h).Node(); n != nil {
			lineSet[n.ID()] = struct{}{}
		}
	}

	lines := make([]int, 0, len(lineSet))
	for line := range lineSet {
		lines = append(lines, line)
	}
	sort.Ints(lines)
	return lines
}

// follows reports whether traversal may cross e under an optional variable filter.
// The filter only restricts data edges; control edges are always followed.
func follows(e DependenceEdge, variable *string) bool {
	if variable == nil || !e.IsData() {
		return true
	}
	return e.variable == *variable
}

// BackwardSlice finds all lines that may affect the value at the target line.
// If a variable filter is provided, only data edges with a matching variable are followed.
func BackwardSlice(g *Graph, line int, variable *string) []int {
	return slice(g, line, variable, true)
}

// ForwardSlice finds all lines that may be affected by the value at the source line.
// If a variable filter is provided, only data edges with a matching variable are followed.
func ForwardSlice(g *Graph, line int, variable *string) []int {
	return slice(g, line, variable, false)
}

func slice(g *Graph, line int, variable *string, backward bool) []int {
	if g == nil {
		return nil
	}

	start, ok := g.HandleAtLine(line)
	if !ok {
		return nil
	}

	// BFS with visited set to avoid infinite loops
	visited := map[Handle]bool{start: true}
	queue := list.New()
	queue.PushBack(start)

	result := make([]Handle, 0)
	for queue.Len() > 0 {
		current := queue.Remove(queue.Front()).(Handle)
		result = append(result, current)

		var edges []DependenceEdge
		if backward {
			edges = g.Incoming(current)
		} else {
			edges = g.Outgoing(current)
		}

		for _, e := range edges {
			if !follows(e, variable) {
				continue
			}
			next := e.to
			if backward {
				next = e.from
			}
			if visited[next] {
				continue
			}
			visited[next] = true
			queue.PushBack(next)
		}
	}

	return getLineNumbers(g, result)
}

// GetDependencies returns the direct dependencies of a specific line,
// separated into control and data, incoming and outgoing.
func GetDependencies(g *Graph, line int) DependencyInfo {
	if g == nil {
		return DependencyInfo{}
	}

	h, ok := g.HandleAtLine(line)
	if !ok {
		return DependencyInfo{}
	}

	var info DependencyInfo
	for _, e := range g.Incoming(h) {
		if e.IsData() {
			info.DataIn = append(info.DataIn, e)
		} else {
			info.ControlIn = append(info.ControlIn, e)
		}
	}
	for _, e := range g.Outgoing(h) {
		if e.IsData() {
			info.DataOut = append(info.DataOut, e)
		} else {
			info.ControlOut = append(info.ControlOut, e)
		}
	}

	// Sort edges by endpoint lines for consistent ordering
	sortEdges := func(edges []DependenceEdge) {
		sort.SliceStable(edges, func(i, j int) bool {
			fi, fj := lineOf(g, edges[i].from), lineOf(g, edges[j].from)
			if fi != fj {
				return fi < fj
			}
			ti, tj := lineOf(g, edges[i].to), lineOf(g, edges[j].to)
			if ti != tj {
				return ti < tj
			}
			return edges[i].variable < edges[j].variable
		})
	}

	sortEdges(info.ControlIn)
	sortEdges(info.ControlOut)
	sortEdges(info.DataIn)
	sortEdges(info.DataOut)

	return info
}

func lineOf(g *Graph, h Handle) int {
	if n := g.Node(h).Node(); n != nil {
		return n.ID()
	}
	return -1
}

// VariableNames returns all unique variable names carried by data edges.
// This is useful for building variable filters.
func VariableNames(g *Graph) []string {
	if g == nil {
		return nil
	}

	varSet := make(map[string]bool)
	for _, e := range g.edges {
		if e.IsData() {
			varSet[e.variable] = true
		}
	}

	variables := make([]string, 0, len(varSet))
	for v := range varSet {
		variables = append(variables, v)
	}
	sort.Strings(variables)
	return variables
}

// LinesWritingVariable returns the sorted lines that write variable.
func LinesWritingVariable(g *Graph, variable string) []int {
	if g == nil {
		return nil
	}

	var handles []Handle
	for _, w := range g.WritesOf(variable) {
		handles = append(handles, w.where)
	}
	return getLineNumbers(g, handles)
}

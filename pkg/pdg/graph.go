package pdg

import (
	"fmt"
	"sort"
	"strings"
)

// Graph holds the nodes, dependence edges, control-flow successors and
// variable records of one function. Nodes are addressed by Handle; a removed
// handle is never reused.
//
// Graph is not safe for concurrent mutation.
type Graph struct {
	FunctionName string

	nodes  []*LineNode // index is the handle; nil once removed
	byLine map[int]Handle
	entry  Handle

	edges    []DependenceEdge
	edgeSeen map[DependenceEdge]struct{}
	flow     map[Handle][]Handle
	flowRev  map[Handle][]Handle

	writes []VariableWrite
	reads  []VariableRead

	// Cached edge maps for efficient traversal
	incomingCache map[Handle][]DependenceEdge
	outgoingCache map[Handle][]DependenceEdge
	cacheValid    bool
}

// New creates an empty graph for the named function.
func New(functionName string) *Graph {
	return &Graph{
		FunctionName: functionName,
		byLine:       make(map[int]Handle),
		entry:        InvalidHandle,
		edgeSeen:     make(map[DependenceEdge]struct{}),
		flow:         make(map[Handle][]Handle),
		flowRev:      make(map[Handle][]Handle),
	}
}

// AddNode inserts node and returns its handle. Nodes with equal text are
// kept as distinct vertices; use Lookup for text-based membership.
func (g *Graph) AddNode(node *LineNode) Handle {
	h := Handle(len(g.nodes))
	g.nodes = append(g.nodes, node)
	if _, ok := g.byLine[node.ID()]; !ok {
		g.byLine[node.ID()] = h
	}
	return h
}

// AddLine returns the handle of the node for line id, creating it with info
// when the line has not been seen yet.
func (g *Graph) AddLine(id int, info string) Handle {
	if h, ok := g.byLine[id]; ok && g.live(h) {
		return h
	}
	return g.AddNode(NewLineNode(id, info))
}

// Node resolves a handle.
func (g *Graph) Node(h Handle) Result {
	if !g.live(h) {
		return FailKind(KindInvalidNode, "no node with handle %d", h)
	}
	return OkAt(h, g.nodes[h])
}

// NodeAtLine resolves the node registered for a source line.
func (g *Graph) NodeAtLine(line int) Result {
	h, ok := g.HandleAtLine(line)
	if !ok {
		return FailKind(KindNotFound, "no node at line %d", line)
	}
	return g.Node(h)
}

// HandleAtLine returns the handle registered for a source line.
func (g *Graph) HandleAtLine(line int) (Handle, bool) {
	h, ok := g.byLine[line]
	if !ok || !g.live(h) {
		return InvalidHandle, false
	}
	return h, true
}

// Handles returns every live handle ordered by line, then by handle.
func (g *Graph) Handles() []Handle {
	hs := make([]Handle, 0, len(g.nodes))
	for i, n := range g.nodes {
		if n != nil {
			hs = append(hs, Handle(i))
		}
	}
	sort.SliceStable(hs, func(i, j int) bool {
		a, b := g.nodes[hs[i]].ID(), g.nodes[hs[j]].ID()
		if a != b {
			return a < b
		}
		return hs[i] < hs[j]
	})
	return hs
}

// Len returns the number of live nodes.
func (g *Graph) Len() int {
	n := 0
	for _, node := range g.nodes {
		if node != nil {
			n++
		}
	}
	return n
}

// Lookup finds the first live node equal to node under LineNode.Equal.
func (g *Graph) Lookup(node *LineNode) (Handle, bool) {
	for i, n := range g.nodes {
		if n != nil && n.Equal(node) {
			return Handle(i), true
		}
	}
	return InvalidHandle, false
}

// DuplicateInfo groups handles whose nodes collide under LineNode.Equal.
// Only groups with more than one member are returned.
func (g *Graph) DuplicateInfo() map[string][]Handle {
	groups := make(map[string][]Handle)
	for _, h := range g.Handles() {
		info, ok := g.nodes[h].Info()
		if !ok {
			continue
		}
		groups[info] = append(groups[info], h)
	}
	for info, hs := range groups {
		if len(hs) < 2 {
			delete(groups, info)
		}
	}
	return groups
}

// SetEntry marks the function entry node.
func (g *Graph) SetEntry(h Handle) error {
	if !g.live(h) {
		return NewAnalysisError(KindInvalidNode, "entry handle %d", h)
	}
	g.entry = h
	return nil
}

// Entry returns the entry node handle, InvalidHandle if unset.
func (g *Graph) Entry() Handle {
	if !g.live(g.entry) {
		return InvalidHandle
	}
	return g.entry
}

// AddEdge inserts a dependence edge. Both endpoints must be live; an edge
// identical to an existing one is ignored.
func (g *Graph) AddEdge(e DependenceEdge) error {
	if !g.live(e.from) {
		return NewAnalysisError(KindInvalidNode, "edge source handle %d", e.from)
	}
	if !g.live(e.to) {
		return NewAnalysisError(KindInvalidNode, "edge target handle %d", e.to)
	}
	if _, dup := g.edgeSeen[e]; dup {
		return nil
	}
	g.edgeSeen[e] = struct{}{}
	g.edges = append(g.edges, e)
	g.cacheValid = false
	return nil
}

// Edges returns all dependence edges in insertion order.
func (g *Graph) Edges() []DependenceEdge {
	out := make([]DependenceEdge, len(g.edges))
	copy(out, g.edges)
	return out
}

// EdgesOfType returns the edges of the given type in insertion order.
func (g *Graph) EdgesOfType(t EdgeType) []DependenceEdge {
	var out []DependenceEdge
	for _, e := range g.edges {
		if e.typ == t {
			out = append(out, e)
		}
	}
	return out
}

// Incoming returns the edges pointing to h.
func (g *Graph) Incoming(h Handle) []DependenceEdge {
	g.buildCache()
	return g.incomingCache[h]
}

// Outgoing returns the edges leaving h.
func (g *Graph) Outgoing(h Handle) []DependenceEdge {
	g.buildCache()
	return g.outgoingCache[h]
}

func (g *Graph) buildCache() {
	if g.cacheValid {
		return
	}
	g.incomingCache = make(map[Handle][]DependenceEdge)
	g.outgoingCache = make(map[Handle][]DependenceEdge)
	for _, e := range g.edges {
		g.outgoingCache[e.from] = append(g.outgoingCache[e.from], e)
		g.incomingCache[e.to] = append(g.incomingCache[e.to], e)
	}
	g.cacheValid = true
}

// AddFlow records that control may pass from one line directly to another.
func (g *Graph) AddFlow(from, to Handle) error {
	if !g.live(from) || !g.live(to) {
		return NewAnalysisError(KindInvalidNode, "flow %d -> %d", from, to)
	}
	for _, s := range g.flow[from] {
		if s == to {
			return nil
		}
	}
	g.flow[from] = append(g.flow[from], to)
	g.flowRev[to] = append(g.flowRev[to], from)
	return nil
}

// Successors returns the control-flow successors of h.
func (g *Graph) Successors(h Handle) []Handle {
	return g.flow[h]
}

// Predecessors returns the control-flow predecessors of h.
func (g *Graph) Predecessors(h Handle) []Handle {
	return g.flowRev[h]
}

// RecordWrite stores a variable write anchored on a live node.
func (g *Graph) RecordWrite(w VariableWrite) error {
	if err := g.checkRecord(w.where, w.variable); err != nil {
		return err
	}
	g.writes = append(g.writes, w)
	return nil
}

// RecordRead stores a variable read anchored on a live node.
func (g *Graph) RecordRead(r VariableRead) error {
	if err := g.checkRecord(r.where, r.variable); err != nil {
		return err
	}
	g.reads = append(g.reads, r)
	return nil
}

func (g *Graph) checkRecord(where Handle, variable string) error {
	if !g.live(where) {
		return NewAnalysisError(KindInvalidNode, "variable %q anchored on handle %d", variable, where)
	}
	if strings.TrimSpace(variable) == "" || strings.ContainsAny(variable, " \t\n") {
		return NewAnalysisError(KindInvalidWrite, "invalid variable name %q", variable)
	}
	return nil
}

// Writes returns every write in recording order.
func (g *Graph) Writes() []VariableWrite {
	out := make([]VariableWrite, len(g.writes))
	copy(out, g.writes)
	return out
}

// WritesOf returns the writes of one variable in recording order.
func (g *Graph) WritesOf(variable string) []VariableWrite {
	var out []VariableWrite
	for _, w := range g.writes {
		if w.variable == variable {
			out = append(out, w)
		}
	}
	return out
}

// WritesAt returns the writes anchored on h.
func (g *Graph) WritesAt(h Handle) []VariableWrite {
	var out []VariableWrite
	for _, w := range g.writes {
		if w.where == h {
			out = append(out, w)
		}
	}
	return out
}

// Reads returns every read in recording order.
func (g *Graph) Reads() []VariableRead {
	out := make([]VariableRead, len(g.reads))
	copy(out, g.reads)
	return out
}

// ReadsAt returns the reads anchored on h.
func (g *Graph) ReadsAt(h Handle) []VariableRead {
	var out []VariableRead
	for _, r := range g.reads {
		if r.where == h {
			out = append(out, r)
		}
	}
	return out
}

// RemoveNode deletes h together with every edge, flow link and variable
// record anchored on it.
func (g *Graph) RemoveNode(h Handle) error {
	if !g.live(h) {
		return NewAnalysisError(KindInvalidNode, "no node with handle %d", h)
	}
	node := g.nodes[h]
	g.nodes[h] = nil
	if cur, ok := g.byLine[node.ID()]; ok && cur == h {
		delete(g.byLine, node.ID())
		// Hand the line to the lowest remaining node on it.
		for i := int(h) + 1; i < len(g.nodes); i++ {
			if n := g.nodes[i]; n != nil && n.ID() == node.ID() {
				g.byLine[node.ID()] = Handle(i)
				break
			}
		}
	}
	if g.entry == h {
		g.entry = InvalidHandle
	}

	edges := g.edges[:0]
	for _, e := range g.edges {
		if e.from == h || e.to == h {
			delete(g.edgeSeen, e)
			continue
		}
		edges = append(edges, e)
	}
	g.edges = edges
	g.cacheValid = false

	for _, s := range g.flow[h] {
		g.flowRev[s] = without(g.flowRev[s], h)
	}
	for _, p := range g.flowRev[h] {
		g.flow[p] = without(g.flow[p], h)
	}
	delete(g.flow, h)
	delete(g.flowRev, h)

	writes := g.writes[:0]
	for _, w := range g.writes {
		if w.where != h {
			writes = append(writes, w)
		}
	}
	g.writes = writes

	reads := g.reads[:0]
	for _, r := range g.reads {
		if r.where != h {
			reads = append(reads, r)
		}
	}
	g.reads = reads
	return nil
}

func (g *Graph) live(h Handle) bool {
	return h >= 0 && int(h) < len(g.nodes) && g.nodes[h] != nil
}

func without(hs []Handle, h Handle) []Handle {
	out := hs[:0]
	for _, x := range hs {
		if x != h {
			out = append(out, x)
		}
	}
	return out
}

// Describe renders an edge using the endpoints' labels, e.g. "[1] if x { -CD-> [2] y = 1".
func (g *Graph) Describe(e DependenceEdge, mode RenderMode) string {
	return fmt.Sprintf("%s -%s-> %s", g.label(e.from, mode), e.Render(mode), g.label(e.to, mode))
}

func (g *Graph) label(h Handle, mode RenderMode) string {
	if !g.live(h) {
		return fmt.Sprintf("<%d>", h)
	}
	return g.nodes[h].Render(mode)
}

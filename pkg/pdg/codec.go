package pdg

import (
	"fmt"
	"io"
	"sort"

	"github.com/vmihailenco/msgpack/v5"
)

// snapshotVersion is bumped whenever the encoded layout changes.
const snapshotVersion = 1

// maxSnapshotCapacity bounds the handle space a snapshot may claim.
const maxSnapshotCapacity = 1 << 20

type nodeData struct {
	Handle Handle  `msgpack:"h"`
	Line   int     `msgpack:"l"`
	Info   *string `msgpack:"i"`
}

type edgeData struct {
	From     Handle   `msgpack:"f"`
	To       Handle   `msgpack:"t"`
	Type     EdgeType `msgpack:"y"`
	Variable string   `msgpack:"v,omitempty"`
}

type recordData struct {
	Where    Handle `msgpack:"w"`
	Variable string `msgpack:"v"`
	Declared bool   `msgpack:"d,omitempty"`
}

type graphData struct {
	Version      int                 `msgpack:"version"`
	FunctionName string              `msgpack:"function_name"`
	Capacity     int                 `msgpack:"capacity"`
	Entry        Handle              `msgpack:"entry"`
	Nodes        []nodeData          `msgpack:"nodes"`
	Edges        []edgeData          `msgpack:"edges"`
	Flow         map[Handle][]Handle `msgpack:"flow"`
	Writes       []recordData        `msgpack:"writes"`
	Reads        []recordData        `msgpack:"reads"`
}

// Encode writes a msgpack snapshot of g. Handles are preserved.
func Encode(w io.Writer, g *Graph) error {
	data := graphData{
		Version:      snapshotVersion,
		FunctionName: g.FunctionName,
		Capacity:     len(g.nodes),
		Entry:        g.Entry(),
		Flow:         g.flow,
	}
	for i, n := range g.nodes {
		if n == nil {
			continue
		}
		nd := nodeData{Handle: Handle(i), Line: n.id}
		if n.hasInfo {
			info := n.info
			nd.Info = &info
		}
		data.Nodes = append(data.Nodes, nd)
	}
	for _, e := range g.edges {
		data.Edges = append(data.Edges, edgeData{From: e.from, To: e.to, Type: e.typ, Variable: e.variable})
	}
	for _, wr := range g.writes {
		data.Writes = append(data.Writes, recordData{Where: wr.where, Variable: wr.variable, Declared: wr.declared})
	}
	for _, rd := range g.reads {
		data.Reads = append(data.Reads, recordData{Where: rd.where, Variable: rd.variable})
	}

	if err := msgpack.NewEncoder(w).Encode(&data); err != nil {
		return fmt.Errorf("failed to encode graph: %w", err)
	}
	return nil
}

// Decode reads a snapshot written by Encode.
func Decode(r io.Reader) (*Graph, error) {
	var data graphData
	if err := msgpack.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode graph: %w", err)
	}
	if data.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported graph snapshot version %d", data.Version)
	}

	if err := checkCapacity(&data); err != nil {
		return nil, err
	}

	g := New(data.FunctionName)
	g.nodes = make([]*LineNode, data.Capacity)
	for _, nd := range data.Nodes {
		if g.nodes[nd.Handle] != nil {
			return nil, fmt.Errorf("duplicate node handle %d", nd.Handle)
		}
		var n *LineNode
		if nd.Info != nil {
			n = NewLineNode(nd.Line, *nd.Info)
		} else {
			n = NewUnlabeledLineNode(nd.Line)
		}
		g.nodes[nd.Handle] = n
	}
	// Register lines in handle order so the first node of a line wins, as in AddNode.
	for i, n := range g.nodes {
		if n == nil {
			continue
		}
		if _, ok := g.byLine[n.id]; !ok {
			g.byLine[n.id] = Handle(i)
		}
	}

	if data.Entry != InvalidHandle {
		if err := g.SetEntry(data.Entry); err != nil {
			return nil, err
		}
	}
	for _, ed := range data.Edges {
		typ, err := ParseEdgeType(string(ed.Type))
		if err != nil || typ != ed.Type {
			return nil, fmt.Errorf("edge %d -> %d: invalid edge type %q", ed.From, ed.To, ed.Type)
		}
		if err := g.AddEdge(DependenceEdge{from: ed.From, to: ed.To, typ: ed.Type, variable: ed.Variable}); err != nil {
			return nil, err
		}
	}
	froms := make([]Handle, 0, len(data.Flow))
	for from := range data.Flow {
		froms = append(froms, from)
	}
	sort.Slice(froms, func(i, j int) bool { return froms[i] < froms[j] })
	for _, from := range froms {
		for _, to := range data.Flow[from] {
			if err := g.AddFlow(from, to); err != nil {
				return nil, err
			}
		}
	}
	for _, wd := range data.Writes {
		if err := g.RecordWrite(NewVariableWrite(wd.Where, wd.Variable, wd.Declared)); err != nil {
			return nil, err
		}
	}
	for _, rd := range data.Reads {
		if err := g.RecordRead(NewVariableRead(rd.Where, rd.Variable)); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// checkCapacity validates the handle space before it is allocated: it must
// hold every node handle and stay below maxSnapshotCapacity.
func checkCapacity(data *graphData) error {
	if data.Capacity < 0 || data.Capacity > maxSnapshotCapacity {
		return fmt.Errorf("graph snapshot capacity %d out of range", data.Capacity)
	}
	if data.Capacity < len(data.Nodes) {
		return fmt.Errorf("graph snapshot capacity %d below node count %d", data.Capacity, len(data.Nodes))
	}
	for _, nd := range data.Nodes {
		if nd.Handle < 0 || int(nd.Handle) >= data.Capacity {
			return fmt.Errorf("node handle %d out of range", nd.Handle)
		}
	}
	return nil
}

// Package pdg defines data structures for representing line-level Program
// Dependence Graphs (PDGs). Each vertex is one source line, edges carry
// control dependence or control+data dependence, and per-line records track
// which variables are written and read.
package pdg

import (
	"fmt"
	"strings"
)

// RenderMode selects how nodes and edges are rendered.
type RenderMode int

const (
	RenderNormal RenderMode = iota // "[<id>] <info>"
	RenderExport                   // "Line_<id>", stable across serialization
)

func (m RenderMode) String() string {
	switch m {
	case RenderNormal:
		return "normal"
	case RenderExport:
		return "export"
	default:
		return fmt.Sprintf("RenderMode(%d)", int(m))
	}
}

// ParseRenderMode converts a textual mode ("normal" or "export") to a RenderMode.
func ParseRenderMode(s string) (RenderMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "normal":
		return RenderNormal, nil
	case "export":
		return RenderExport, nil
	default:
		return RenderNormal, fmt.Errorf("invalid render mode: %q (must be 'normal' or 'export')", s)
	}
}

// EdgeType represents the type of dependence carried by an edge.
type EdgeType string

const (
	EdgeTypeCD  EdgeType = "CD"  // Control dependence
	EdgeTypeCDG EdgeType = "CDG" // Control plus data dependence
)

// DefaultEdgeType is used when an edge is created without an explicit type.
const DefaultEdgeType = EdgeTypeCD

// ParseEdgeType validates s against the edge vocabulary.
func ParseEdgeType(s string) (EdgeType, error) {
	switch EdgeType(strings.ToUpper(strings.TrimSpace(s))) {
	case EdgeTypeCD:
		return EdgeTypeCD, nil
	case EdgeTypeCDG:
		return EdgeTypeCDG, nil
	default:
		return "", fmt.Errorf("invalid edge type: %q (must be 'CD' or 'CDG')", s)
	}
}

// Handle is the stable integer a Graph assigns to a node on insertion.
// Edges, writes and reads refer to nodes through handles only.
type Handle int

// InvalidHandle never refers to a node.
const InvalidHandle Handle = -1

// LineNode is a single analyzed source line.
type LineNode struct {
	id      int
	info    string
	hasInfo bool
}

// NewLineNode creates a node for line id with the given text.
// The text is not validated.
func NewLineNode(id int, info string) *LineNode {
	return &LineNode{id: id, info: info, hasInfo: true}
}

// NewUnlabeledLineNode creates a node without text. Such a node is never
// equal to any node, itself included.
func NewUnlabeledLineNode(id int) *LineNode {
	return &LineNode{id: id}
}

// ID returns the source line number.
func (n *LineNode) ID() int { return n.id }

// Info returns the line text and whether it is present.
func (n *LineNode) Info() (string, bool) { return n.info, n.hasInfo }

// Equal reports whether both nodes carry identical, present text.
// The line number takes no part in equality.
func (n *LineNode) Equal(other *LineNode) bool {
	if n == nil || other == nil {
		return false
	}
	if !n.hasInfo || !other.hasInfo {
		return false
	}
	return n.info == other.info
}

// Render returns the node label for the given mode.
func (n *LineNode) Render(mode RenderMode) string {
	if mode == RenderExport {
		return fmt.Sprintf("Line_%d", n.id)
	}
	if !n.hasInfo {
		return fmt.Sprintf("[%d]", n.id)
	}
	return fmt.Sprintf("[%d] %s", n.id, n.info)
}

func (n *LineNode) String() string {
	return n.Render(RenderNormal)
}

// DependenceEdge is a directed, typed edge between two nodes.
type DependenceEdge struct {
	from     Handle
	to       Handle
	typ      EdgeType
	variable string // variable inducing a data dependence, empty for pure control edges
}

// NewEdge creates an edge of DefaultEdgeType.
func NewEdge(from, to Handle) DependenceEdge {
	return DependenceEdge{from: from, to: to, typ: DefaultEdgeType}
}

// NewTypedEdge creates an edge with an explicit type.
func NewTypedEdge(from, to Handle, typ EdgeType) DependenceEdge {
	return DependenceEdge{from: from, to: to, typ: typ}
}

// NewDataEdge creates a CDG edge from the line writing variable to the line reading it.
func NewDataEdge(from, to Handle, variable string) DependenceEdge {
	return DependenceEdge{from: from, to: to, typ: EdgeTypeCDG, variable: variable}
}

func (e DependenceEdge) From() Handle     { return e.from }
func (e DependenceEdge) To() Handle       { return e.to }
func (e DependenceEdge) Type() EdgeType   { return e.typ }
func (e DependenceEdge) Variable() string { return e.variable }

// IsData reports whether the edge was induced by a variable.
func (e DependenceEdge) IsData() bool { return e.variable != "" }

// Render returns the edge label, which is its type in every mode.
func (e DependenceEdge) Render(mode RenderMode) string {
	return string(e.typ)
}

func (e DependenceEdge) String() string {
	return string(e.typ)
}

// VariableWrite records a declaration or assignment of a variable at a line.
type VariableWrite struct {
	where    Handle
	variable string
	declared bool
}

// NewVariableWrite creates a write record. declared is true for a first
// declaration and false for an assignment to an existing variable.
func NewVariableWrite(where Handle, variable string, declared bool) VariableWrite {
	return VariableWrite{where: where, variable: variable, declared: declared}
}

// NewAssignment creates a write record with declared set to false.
func NewAssignment(where Handle, variable string) VariableWrite {
	return VariableWrite{where: where, variable: variable}
}

func (w VariableWrite) Where() Handle    { return w.where }
func (w VariableWrite) Variable() string { return w.variable }
func (w VariableWrite) Declared() bool   { return w.declared }

// VariableRead records a use of a variable at a line.
type VariableRead struct {
	where    Handle
	variable string
}

// NewVariableRead creates a read record.
func NewVariableRead(where Handle, variable string) VariableRead {
	return VariableRead{where: where, variable: variable}
}

func (r VariableRead) Where() Handle    { return r.where }
func (r VariableRead) Variable() string { return r.variable }

package pdg

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestToDOT(t *testing.T) {
	g, _, _ := buildScenario(t)

	normal := ToDOT(g, DOTOptions{Mode: RenderNormal})
	assert.True(t, strings.HasPrefix(normal, "digraph \"scenario\" {\n"))
	assert.Contains(t, normal, `"Line_2" [label="[2] y = 1;"];`)
	assert.Contains(t, normal, `"Line_1" -> "Line_2" [label="CD"];`)
	assert.Contains(t, normal, `"Line_1" -> "Line_3" [label="CD"];`)

	export := ToDOT(g, DOTOptions{Mode: RenderExport})
	assert.Contains(t, export, `"Line_2" [label="Line_2"];`)
	assert.NotContains(t, export, "y = 1;")
}

func TestToDOTDataEdges(t *testing.T) {
	g := New("f")
	a := g.AddLine(1, "x := 1")
	b := g.AddLine(2, "return x")
	require.NoError(t, g.SetEntry(a))
	require.NoError(t, g.AddEdge(NewDataEdge(a, b, "x")))

	dot := ToDOT(g, DOTOptions{Mode: RenderNormal})
	assert.Contains(t, dot, `"Line_1" [label="[1] x := 1", shape=ellipse];`)
	assert.Contains(t, dot, `"Line_1" -> "Line_2" [label="CDG", style=dashed, tooltip="x"];`)

	dot = ToDOT(g, DOTOptions{Mode: RenderNormal, ControlOnly: true})
	assert.NotContains(t, dot, "->")
}

func TestToDOTSharedLine(t *testing.T) {
	g := New("f")
	g.AddNode(NewLineNode(1, "a := 1"))
	second := g.AddNode(NewLineNode(1, "b := 2"))

	dot := ToDOT(g, DOTOptions{Mode: RenderExport})
	assert.Contains(t, dot, `"Line_1" [label="Line_1"];`)
	assert.Contains(t, dot, `"Line_1_1" [label="Line_1"];`)
	assert.Equal(t, Handle(1), second)
}

func TestToDOTSharedLineAfterRemoval(t *testing.T) {
	g := New("f")
	a := g.AddNode(NewLineNode(3, "a"))
	g.AddNode(NewLineNode(3, "b"))
	g.AddNode(NewLineNode(3, "c"))
	require.NoError(t, g.RemoveNode(a))

	dot := ToDOT(g, DOTOptions{Mode: RenderNormal})
	assert.Contains(t, dot, `"Line_3" [label="[3] b"];`)
	assert.Contains(t, dot, `"Line_3_2" [label="[3] c"];`)
	assert.Equal(t, 1, strings.Count(dot, `"Line_3" [`))
}

func TestSnapshotRoundTrip(t *testing.T) {
	g := New("f")
	a := g.AddLine(1, "func f(n int) int {")
	b := g.AddLine(2, "x := n")
	gone := g.AddLine(3, "// removed")
	c := g.AddNode(NewUnlabeledLineNode(4))
	require.NoError(t, g.SetEntry(a))
	require.NoError(t, g.AddFlow(a, b))
	require.NoError(t, g.AddFlow(b, c))
	require.NoError(t, g.AddEdge(NewEdge(a, b)))
	require.NoError(t, g.AddEdge(NewDataEdge(b, c, "x")))
	require.NoError(t, g.RecordWrite(NewVariableWrite(a, "n", true)))
	require.NoError(t, g.RecordWrite(NewVariableWrite(b, "x", true)))
	require.NoError(t, g.RecordRead(NewVariableRead(b, "n")))
	require.NoError(t, g.RemoveNode(gone))

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, g))

	decoded, err := Decode(&buf)
	require.NoError(t, err)

	assert.Equal(t, "f", decoded.FunctionName)
	assert.Equal(t, g.Handles(), decoded.Handles())
	assert.Equal(t, a, decoded.Entry())
	assert.Equal(t, g.Edges(), decoded.Edges())
	assert.Equal(t, g.Writes(), decoded.Writes())
	assert.Equal(t, g.Reads(), decoded.Reads())
	assert.Equal(t, []Handle{c}, decoded.Successors(b))
	assert.True(t, decoded.Node(gone).HasError())

	_, hasInfo := decoded.Node(c).Node().Info()
	assert.False(t, hasInfo)
	assert.Equal(t, "[2] x := n", decoded.Node(b).Node().String())
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte{0xc1}))
	assert.Error(t, err)
}

func TestDecodeRejectsMalformedSnapshots(t *testing.T) {
	info := "x := 1"
	tests := []struct {
		name string
		data graphData
	}{
		{"negative capacity", graphData{Version: snapshotVersion, Capacity: -1, Entry: InvalidHandle}},
		{"huge capacity", graphData{Version: snapshotVersion, Capacity: maxSnapshotCapacity + 1, Entry: InvalidHandle}},
		{"capacity below node count", graphData{
			Version:  snapshotVersion,
			Capacity: 1,
			Entry:    InvalidHandle,
			Nodes:    []nodeData{{Handle: 0, Line: 1, Info: &info}, {Handle: 1, Line: 2, Info: &info}},
		}},
		{"handle out of range", graphData{
			Version:  snapshotVersion,
			Capacity: 1,
			Entry:    InvalidHandle,
			Nodes:    []nodeData{{Handle: 5, Line: 1, Info: &info}},
		}},
		{"duplicate handle", graphData{
			Version:  snapshotVersion,
			Capacity: 2,
			Entry:    InvalidHandle,
			Nodes:    []nodeData{{Handle: 0, Line: 1, Info: &info}, {Handle: 0, Line: 2, Info: &info}},
		}},
		{"unknown edge type", graphData{
			Version:  snapshotVersion,
			Capacity: 2,
			Entry:    InvalidHandle,
			Nodes:    []nodeData{{Handle: 0, Line: 1, Info: &info}, {Handle: 1, Line: 2, Info: &info}},
			Edges:    []edgeData{{From: 0, To: 1, Type: EdgeType("XD")}},
		}},
		{"lowercase edge type", graphData{
			Version:  snapshotVersion,
			Capacity: 2,
			Entry:    InvalidHandle,
			Nodes:    []nodeData{{Handle: 0, Line: 1, Info: &info}, {Handle: 1, Line: 2, Info: &info}},
			Edges:    []edgeData{{From: 0, To: 1, Type: EdgeType("cd")}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := msgpack.Marshal(&tt.data)
			require.NoError(t, err)

			_, err = Decode(bytes.NewReader(raw))
			assert.Error(t, err)
		})
	}
}

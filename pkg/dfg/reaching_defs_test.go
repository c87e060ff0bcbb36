package dfg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3aro/linepdg/pkg/pdg"
)

type chain struct {
	from, to int
	name     string
}

func chainsOf(g *pdg.Graph, chains []DefUse) []chain {
	out := make([]chain, 0, len(chains))
	for _, c := range chains {
		out = append(out, chain{
			from: g.Node(c.Write.Where()).Node().ID(),
			to:   g.Node(c.Read.Where()).Node().ID(),
			name: c.Variable(),
		})
	}
	return out
}

func flow(t *testing.T, g *pdg.Graph, hs ...pdg.Handle) {
	t.Helper()
	for i := 0; i+1 < len(hs); i++ {
		require.NoError(t, g.AddFlow(hs[i], hs[i+1]))
	}
}

func TestReachingDefsBranchMerge(t *testing.T) {
	g := pdg.New("branch")
	h1 := g.AddLine(1, "x := 1")
	h2 := g.AddLine(2, "if x > 0 {")
	h3 := g.AddLine(3, "x = 2")
	h4 := g.AddLine(4, "y := x")

	flow(t, g, h1, h2, h3, h4)
	flow(t, g, h2, h4)

	require.NoError(t, g.RecordWrite(pdg.NewVariableWrite(h1, "x", true)))
	require.NoError(t, g.RecordRead(pdg.NewVariableRead(h2, "x")))
	require.NoError(t, g.RecordWrite(pdg.NewAssignment(h3, "x")))
	require.NoError(t, g.RecordRead(pdg.NewVariableRead(h4, "x")))
	require.NoError(t, g.RecordWrite(pdg.NewVariableWrite(h4, "y", true)))

	chains := NewReachingDefsAnalyzer().ComputeDefUseChains(g)
	assert.Equal(t, []chain{
		{1, 2, "x"},
		{1, 4, "x"},
		{3, 4, "x"},
	}, chainsOf(g, chains))
}

func TestReachingDefsKill(t *testing.T) {
	g := pdg.New("kill")
	h1 := g.AddLine(1, "x := 1")
	h2 := g.AddLine(2, "x = 2")
	h3 := g.AddLine(3, "return x")
	flow(t, g, h1, h2, h3)

	require.NoError(t, g.RecordWrite(pdg.NewVariableWrite(h1, "x", true)))
	require.NoError(t, g.RecordWrite(pdg.NewAssignment(h2, "x")))
	require.NoError(t, g.RecordRead(pdg.NewVariableRead(h3, "x")))

	chains := NewReachingDefsAnalyzer().ComputeDefUseChains(g)
	assert.Equal(t, []chain{{2, 3, "x"}}, chainsOf(g, chains))
}

func TestReachingDefsLoop(t *testing.T) {
	g := pdg.New("loop")
	h1 := g.AddLine(1, "s := 0")
	h2 := g.AddLine(2, "for i := 0; i < n; i++ {")
	h3 := g.AddLine(3, "s = s + i")
	h4 := g.AddLine(4, "return s")
	flow(t, g, h1, h2, h3, h2, h4)

	require.NoError(t, g.RecordWrite(pdg.NewVariableWrite(h1, "s", true)))
	require.NoError(t, g.RecordWrite(pdg.NewVariableWrite(h2, "i", true)))
	require.NoError(t, g.RecordWrite(pdg.NewAssignment(h2, "i")))
	require.NoError(t, g.RecordRead(pdg.NewVariableRead(h2, "i")))
	require.NoError(t, g.RecordRead(pdg.NewVariableRead(h2, "n")))
	require.NoError(t, g.RecordRead(pdg.NewVariableRead(h3, "s")))
	require.NoError(t, g.RecordRead(pdg.NewVariableRead(h3, "i")))
	require.NoError(t, g.RecordWrite(pdg.NewAssignment(h3, "s")))
	require.NoError(t, g.RecordRead(pdg.NewVariableRead(h4, "s")))

	chains := NewReachingDefsAnalyzer().ComputeDefUseChains(g)
	assert.Equal(t, []chain{
		{2, 2, "i"},
		{1, 3, "s"},
		{3, 3, "s"},
		{2, 3, "i"},
		{1, 4, "s"},
		{3, 4, "s"},
	}, chainsOf(g, chains))

	n, err := AddDataEdges(g)
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	var got []chain
	for _, e := range g.EdgesOfType(pdg.EdgeTypeCDG) {
		got = append(got, chain{
			from: g.Node(e.From()).Node().ID(),
			to:   g.Node(e.To()).Node().ID(),
			name: e.Variable(),
		})
	}
	assert.Equal(t, []chain{
		{1, 3, "s"},
		{2, 3, "i"},
		{1, 4, "s"},
		{3, 4, "s"},
	}, got)
}

func TestReachingDefsEmptyGraph(t *testing.T) {
	assert.Nil(t, NewReachingDefsAnalyzer().ComputeDefUseChains(nil))
	assert.Nil(t, NewReachingDefsAnalyzer().ComputeDefUseChains(pdg.New("empty")))
}

package dfg

import (
	"container/list"
	"fmt"

	"github.com/l3aro/linepdg/pkg/pdg"
)

// ReachingDefsAnalyzer performs reaching definitions analysis over the line
// control flow recorded in a graph. It uses a worklist algorithm to compute
// which writes reach each line, then builds def-use chains from the result.
type ReachingDefsAnalyzer struct {
	// defs holds every write; a definition ID is its index
	defs []pdg.VariableWrite
	// lineGen maps a node to the definition IDs generated on it
	lineGen map[pdg.Handle][]int
	// lineKill maps a node to the variable names it overwrites
	lineKill map[pdg.Handle]map[string]struct{}
}

// NewReachingDefsAnalyzer creates a new ReachingDefsAnalyzer.
func NewReachingDefsAnalyzer() *ReachingDefsAnalyzer {
	return &ReachingDefsAnalyzer{
		lineGen:  make(map[pdg.Handle][]int),
		lineKill: make(map[pdg.Handle]map[string]struct{}),
	}
}

// ComputeDefUseChains returns the def-use chains of g ordered by read, then
// by write. Reads on a line see the definitions reaching the start of that
// line, so "x = x + 1" reads the previous x.
func (r *ReachingDefsAnalyzer) ComputeDefUseChains(g *pdg.Graph) []DefUse {
	if g == nil || g.Len() == 0 {
		return nil
	}

	r.initialize(g)
	handles := g.Handles()

	in := make(map[pdg.Handle]map[int]struct{}, len(handles))
	out := make(map[pdg.Handle]map[int]struct{}, len(handles))
	for _, h := range handles {
		in[h] = make(map[int]struct{})
		out[h] = make(map[int]struct{})
	}

	worklist := list.New()
	queued := make(map[pdg.Handle]bool, len(handles))
	for _, h := range handles {
		worklist.PushBack(h)
		queued[h] = true
	}

	for worklist.Len() > 0 {
		h := worklist.Remove(worklist.Front()).(pdg.Handle)
		queued[h] = false

		// in[h] = union of out[p] over predecessors
		in[h] = r.unionPreds(out, g.Predecessors(h))

		// out[h] = gen[h] U (in[h] - kill[h])
		newOut := r.computeOut(in[h], h)
		if setsEqual(out[h], newOut) {
			continue
		}
		out[h] = newOut

		for _, s := range g.Successors(h) {
			if !queued[s] {
				worklist.PushBack(s)
				queued[s] = true
			}
		}
	}

	return r.buildDefUseChains(g, in)
}

// initialize builds gen/kill sets from the graph's writes.
func (r *ReachingDefsAnalyzer) initialize(g *pdg.Graph) {
	r.defs = g.Writes()
	r.lineGen = make(map[pdg.Handle][]int)
	r.lineKill = make(map[pdg.Handle]map[string]struct{})

	// A later write of the same variable on the same line shadows the earlier one.
	last := make(map[pdg.Handle]map[string]int)
	for id, w := range r.defs {
		if last[w.Where()] == nil {
			last[w.Where()] = make(map[string]int)
		}
		last[w.Where()][w.Variable()] = id
	}

	for id, w := range r.defs {
		h := w.Where()
		if last[h][w.Variable()] == id {
			r.lineGen[h] = append(r.lineGen[h], id)
		}
		if r.lineKill[h] == nil {
			r.lineKill[h] = make(map[string]struct{})
		}
		r.lineKill[h][w.Variable()] = struct{}{}
	}
}

// unionPreds computes the union of out sets for all predecessors.
func (r *ReachingDefsAnalyzer) unionPreds(out map[pdg.Handle]map[int]struct{}, preds []pdg.Handle) map[int]struct{} {
	result := make(map[int]struct{})
	for _, p := range preds {
		for id := range out[p] {
			result[id] = struct{}{}
		}
	}
	return result
}

// computeOut computes out = gen U (in - kill) for one line.
func (r *ReachingDefsAnalyzer) computeOut(inSet map[int]struct{}, h pdg.Handle) map[int]struct{} {
	outSet := make(map[int]struct{})
	for _, id := range r.lineGen[h] {
		outSet[id] = struct{}{}
	}
	for id := range inSet {
		if _, killed := r.lineKill[h][r.defs[id].Variable()]; !killed {
			outSet[id] = struct{}{}
		}
	}
	return outSet
}

func setsEqual(a, b map[int]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

// buildDefUseChains connects each read to the writes reaching its line.
func (r *ReachingDefsAnalyzer) buildDefUseChains(g *pdg.Graph, in map[pdg.Handle]map[int]struct{}) []DefUse {
	var chains []DefUse
	seen := make(map[string]bool)

	for _, read := range g.Reads() {
		reaching := in[read.Where()]
		for id := range r.defs {
			if _, ok := reaching[id]; !ok {
				continue
			}
			w := r.defs[id]
			if w.Variable() != read.Variable() {
				continue
			}
			key := fmt.Sprintf("%d->%d:%s", w.Where(), read.Where(), read.Variable())
			if seen[key] {
				continue
			}
			seen[key] = true
			chains = append(chains, DefUse{Write: w, Read: read})
		}
	}
	return chains
}

// AddDataEdges computes def-use chains for g and inserts a CDG edge from
// each writing line to each reading line. Chains within a single line are
// skipped. It returns the number of chains found.
func AddDataEdges(g *pdg.Graph) (int, error) {
	chains := NewReachingDefsAnalyzer().ComputeDefUseChains(g)
	for _, c := range chains {
		from, to := c.Write.Where(), c.Read.Where()
		if from == to {
			continue
		}
		if err := g.AddEdge(pdg.NewDataEdge(from, to, c.Variable())); err != nil {
			return 0, fmt.Errorf("adding data edge for %s: %w", c.Variable(), err)
		}
	}
	return len(chains), nil
}

// Package dfg computes data dependences over a line-level dependence graph.
// It matches the variable writes recorded on each line to the reads they reach.
package dfg

import "github.com/l3aro/linepdg/pkg/pdg"

// DefUse connects a variable write to a read it reaches.
type DefUse struct {
	Write pdg.VariableWrite
	Read  pdg.VariableRead
}

// Variable returns the name of the variable flowing along the chain.
func (d DefUse) Variable() string {
	return d.Read.Variable()
}

// Package operations implements whole-network algorithms: topological
// sorting, pruning of nodes irrelevant to a query, evidence projection and the
// conversion of deterministic numeric variables into finite-states ones.
//
// Functions that rewrite structure either mutate the network they are given
// (RemoveBarrenNodes, RemoveUnreachableNodes, ProjectEvidence) or work on a
// copy (Pruned, ConvertNumericalVariablesToFS); the doc comment of each says
// which.
package operations

import (
	"github.com/orneryd/markovnet/pkg/network"
	"github.com/orneryd/markovnet/pkg/variable"
)

// SortTopologically orders the nodes of net so that parents come before their
// children. The order among nodes with no path between them is unspecified.
// A directed cycle yields a WrongGraphStructure error.
func SortTopologically(net *network.ProbNet) ([]*network.ProbNode, error) {
	return net.TopologicalOrder()
}

// SortVariablesTopologically returns the variables of vars that belong to net,
// in topological order.
func SortVariablesTopologically(net *network.ProbNet, vars []*variable.Variable) ([]*variable.Variable, error) {
	sorted, err := SortTopologically(net)
	if err != nil {
		return nil, err
	}
	wanted := variableSet(vars)
	out := make([]*variable.Variable, 0, len(vars))
	for _, pn := range sorted {
		if wanted[pn.Name()] {
			out = append(out, pn.Variable())
		}
	}
	return out, nil
}

// variableSet indexes variables by name.
func variableSet(vars []*variable.Variable) map[string]bool {
	set := make(map[string]bool, len(vars))
	for _, v := range vars {
		set[v.Name()] = true
	}
	return set
}

package network

import (
	"fmt"

	"github.com/orneryd/markovnet/pkg/variable"
)

// Constraint is a structural rule a network must satisfy.
//
// CheckProbNet validates the current network. CheckEdit is asked before an
// edit runs and vetoes it by returning false; it sees the network as it is
// before the edit.
type Constraint interface {
	Name() string
	CheckProbNet(net *ProbNet) bool
	CheckEdit(net *ProbNet, edit Edit) (bool, error)
	Message() string
}

// =============================================================================
// Graph shape
// =============================================================================

// NoCycle forbids directed cycles.
type NoCycle struct{}

func (NoCycle) Name() string    { return "NoCycle" }
func (NoCycle) Message() string { return "no cycles allowed" }

func (NoCycle) CheckProbNet(net *ProbNet) bool {
	g := net.graph
	for _, parent := range g.Nodes() {
		for _, child := range g.Children(parent) {
			if g.ExistsPath(child, parent, true) {
				return false
			}
		}
	}
	return true
}

func (NoCycle) CheckEdit(net *ProbNet, edit Edit) (bool, error) {
	for _, e := range SimpleEdits(edit) {
		switch e := e.(type) {
		case *AddLinkEdit:
			n1, n2, ok := net.linkEnds(e.Variable1, e.Variable2)
			if ok && e.Directed && net.graph.ExistsPath(n2, n1, true) {
				return false, nil
			}
		case *InvertLinkEdit:
			n1, n2, ok := net.linkEnds(e.Variable1, e.Variable2)
			if !ok {
				continue
			}
			// after inversion n2 -> n1, so any other path n1 => n2 closes a cycle
			if net.graph.existsPath(n1, n2, true, net.graph.Link(n1, n2, true)) {
				return false, nil
			}
		}
	}
	return true, nil
}

// NoLoops forbids cycles in the underlying undirected graph.
type NoLoops struct{}

func (NoLoops) Name() string    { return "NoLoops" }
func (NoLoops) Message() string { return "no loops allowed" }

func (NoLoops) CheckProbNet(net *ProbNet) bool {
	g := net.graph
	for _, l := range g.Links() {
		if l.Node1 == l.Node2 || g.existsPath(l.Node1, l.Node2, false, l) {
			return false
		}
	}
	return true
}

func (NoLoops) CheckEdit(net *ProbNet, edit Edit) (bool, error) {
	for _, e := range SimpleEdits(edit) {
		if add, ok := e.(*AddLinkEdit); ok {
			n1, n2, found := net.linkEnds(add.Variable1, add.Variable2)
			if found && net.graph.ExistsPath(n2, n1, false) {
				return false, nil
			}
		}
	}
	return true, nil
}

// NoSelfLoop forbids links from a node to itself.
type NoSelfLoop struct{}

func (NoSelfLoop) Name() string    { return "NoSelfLoop" }
func (NoSelfLoop) Message() string { return "no self loops allowed" }

func (NoSelfLoop) CheckProbNet(net *ProbNet) bool {
	for _, l := range net.graph.Links() {
		if l.Node1 == l.Node2 {
			return false
		}
	}
	return true
}

func (NoSelfLoop) CheckEdit(_ *ProbNet, edit Edit) (bool, error) {
	for _, e := range SimpleEdits(edit) {
		if add, ok := e.(*AddLinkEdit); ok && add.Variable1.Equal(add.Variable2) {
			return false, nil
		}
	}
	return true, nil
}

// NoMultipleLinks allows at most one link between any two nodes.
type NoMultipleLinks struct{}

func (NoMultipleLinks) Name() string    { return "NoMultipleLinks" }
func (NoMultipleLinks) Message() string { return "no multiple links between two nodes allowed" }

func (NoMultipleLinks) CheckProbNet(net *ProbNet) bool {
	for _, l := range net.graph.Links() {
		if len(net.graph.LinksBetween(l.Node1, l.Node2)) > 1 {
			return false
		}
	}
	return true
}

func (NoMultipleLinks) CheckEdit(net *ProbNet, edit Edit) (bool, error) {
	for _, e := range SimpleEdits(edit) {
		switch e := e.(type) {
		case *AddLinkEdit:
			n1, n2, ok := net.linkEnds(e.Variable1, e.Variable2)
			if ok && len(net.graph.LinksBetween(n1, n2)) > 0 {
				return false, nil
			}
		case *InvertLinkEdit:
			n1, n2, ok := net.linkEnds(e.Variable1, e.Variable2)
			if ok && len(net.graph.LinksBetween(n1, n2)) > 1 {
				return false, nil
			}
		}
	}
	return true, nil
}

// OnlyDirectedLinks forbids undirected links.
type OnlyDirectedLinks struct{}

func (OnlyDirectedLinks) Name() string    { return "OnlyDirectedLinks" }
func (OnlyDirectedLinks) Message() string { return "only directed links allowed" }

func (OnlyDirectedLinks) CheckProbNet(net *ProbNet) bool {
	for _, l := range net.graph.Links() {
		if !l.Directed {
			return false
		}
	}
	return true
}

func (OnlyDirectedLinks) CheckEdit(_ *ProbNet, edit Edit) (bool, error) {
	for _, e := range SimpleEdits(edit) {
		if add, ok := e.(*AddLinkEdit); ok && !add.Directed {
			return false, nil
		}
	}
	return true, nil
}

// OnlyUndirectedLinks forbids directed links.
type OnlyUndirectedLinks struct{}

func (OnlyUndirectedLinks) Name() string    { return "OnlyUndirectedLinks" }
func (OnlyUndirectedLinks) Message() string { return "only undirected links allowed" }

func (OnlyUndirectedLinks) CheckProbNet(net *ProbNet) bool {
	for _, l := range net.graph.Links() {
		if l.Directed {
			return false
		}
	}
	return true
}

func (OnlyUndirectedLinks) CheckEdit(_ *ProbNet, edit Edit) (bool, error) {
	for _, e := range SimpleEdits(edit) {
		switch e := e.(type) {
		case *AddLinkEdit:
			if e.Directed {
				return false, nil
			}
		case *InvertLinkEdit:
			return false, nil
		}
	}
	return true, nil
}

// MaxNumParents limits the number of parents of every node.
type MaxNumParents struct {
	Max int
}

func (MaxNumParents) Name() string      { return "MaxNumParents" }
func (c MaxNumParents) Message() string { return fmt.Sprintf("a node may not have more than %d parents", c.Max) }

func (c MaxNumParents) CheckProbNet(net *ProbNet) bool {
	for _, id := range net.graph.Nodes() {
		if len(net.graph.Parents(id)) > c.Max {
			return false
		}
	}
	return true
}

func (c MaxNumParents) CheckEdit(net *ProbNet, edit Edit) (bool, error) {
	for _, e := range SimpleEdits(edit) {
		switch e := e.(type) {
		case *AddLinkEdit:
			_, n2, ok := net.linkEnds(e.Variable1, e.Variable2)
			if ok && e.Directed && len(net.graph.Parents(n2)) >= c.Max {
				return false, nil
			}
		case *InvertLinkEdit:
			n1, _, ok := net.linkEnds(e.Variable1, e.Variable2)
			if ok && len(net.graph.Parents(n1)) >= c.Max {
				return false, nil
			}
		}
	}
	return true, nil
}

// =============================================================================
// Node kinds
// =============================================================================

// DistinctVariableNames forbids two nodes with the same variable name.
type DistinctVariableNames struct{}

func (DistinctVariableNames) Name() string    { return "DistinctVariableNames" }
func (DistinctVariableNames) Message() string { return "variable names must be distinct" }

func (DistinctVariableNames) CheckProbNet(net *ProbNet) bool {
	seen := make(map[string]bool)
	for _, pn := range net.depot.All() {
		if seen[pn.Name()] {
			return false
		}
		seen[pn.Name()] = true
	}
	return true
}

func (DistinctVariableNames) CheckEdit(net *ProbNet, edit Edit) (bool, error) {
	for _, e := range SimpleEdits(edit) {
		if add, ok := e.(*AddProbNodeEdit); ok && net.depot.ByName(add.Variable.Name()) != nil {
			return false, nil
		}
	}
	return true, nil
}

// OnlyChanceNodes forbids decision and utility nodes.
type OnlyChanceNodes struct{}

func (OnlyChanceNodes) Name() string    { return "OnlyChanceNodes" }
func (OnlyChanceNodes) Message() string { return "only chance nodes allowed" }

func (OnlyChanceNodes) CheckProbNet(net *ProbNet) bool {
	return net.depot.Count(Decision) == 0 && net.depot.Count(Utility) == 0
}

func (OnlyChanceNodes) CheckEdit(_ *ProbNet, edit Edit) (bool, error) {
	for _, e := range SimpleEdits(edit) {
		if add, ok := e.(*AddProbNodeEdit); ok && add.NodeType != Chance {
			return false, nil
		}
	}
	return true, nil
}

// NoUtilityParent forbids utility nodes with non-utility children.
type NoUtilityParent struct{}

func (NoUtilityParent) Name() string    { return "NoUtilityParent" }
func (NoUtilityParent) Message() string { return "utility nodes can only have utility children" }

func (NoUtilityParent) CheckProbNet(net *ProbNet) bool {
	for _, u := range net.depot.OfType(Utility) {
		for _, child := range net.graph.Children(u.id) {
			if net.nodes[child].nodeType != Utility {
				return false
			}
		}
	}
	return true
}

func (NoUtilityParent) CheckEdit(net *ProbNet, edit Edit) (bool, error) {
	for _, e := range SimpleEdits(edit) {
		var parent, child *variable.Variable
		switch e := e.(type) {
		case *AddLinkEdit:
			if !e.Directed {
				continue
			}
			parent, child = e.Variable1, e.Variable2
		case *InvertLinkEdit:
			parent, child = e.Variable2, e.Variable1
		default:
			continue
		}
		p, c := net.depot.ByVariable(parent), net.depot.ByVariable(child)
		if p != nil && c != nil && p.nodeType == Utility && c.nodeType != Utility {
			return false, nil
		}
	}
	return true, nil
}

// NoMixedParents forbids utility nodes whose parents mix utility and
// chance or decision nodes.
type NoMixedParents struct{}

func (NoMixedParents) Name() string    { return "NoMixedParents" }
func (NoMixedParents) Message() string { return "utility nodes can not mix utility and non utility parents" }

func (NoMixedParents) CheckProbNet(net *ProbNet) bool {
	for _, u := range net.depot.OfType(Utility) {
		if mixedParents(net, net.graph.Parents(u.id)) {
			return false
		}
	}
	return true
}

func (NoMixedParents) CheckEdit(net *ProbNet, edit Edit) (bool, error) {
	for _, e := range SimpleEdits(edit) {
		var parent, child *variable.Variable
		switch e := e.(type) {
		case *AddLinkEdit:
			if !e.Directed {
				continue
			}
			parent, child = e.Variable1, e.Variable2
		case *InvertLinkEdit:
			parent, child = e.Variable2, e.Variable1
		default:
			continue
		}
		p, c := net.depot.ByVariable(parent), net.depot.ByVariable(child)
		if p == nil || c == nil || c.nodeType != Utility {
			continue
		}
		if mixedParents(net, append(net.graph.Parents(c.id), p.id)) {
			return false, nil
		}
	}
	return true, nil
}

func mixedParents(net *ProbNet, parents []NodeID) bool {
	utility, other := false, false
	for _, id := range parents {
		if net.nodes[id].nodeType == Utility {
			utility = true
		} else {
			other = true
		}
	}
	return utility && other
}

// OnlyFiniteStatesVariables forbids numeric and discretized variables.
type OnlyFiniteStatesVariables struct{}

func (OnlyFiniteStatesVariables) Name() string    { return "OnlyFiniteStatesVariables" }
func (OnlyFiniteStatesVariables) Message() string { return "only finite states variables allowed" }

func (OnlyFiniteStatesVariables) CheckProbNet(net *ProbNet) bool {
	for _, pn := range net.depot.All() {
		if pn.variable.Type() != variable.FiniteStates {
			return false
		}
	}
	return true
}

func (OnlyFiniteStatesVariables) CheckEdit(_ *ProbNet, edit Edit) (bool, error) {
	for _, e := range SimpleEdits(edit) {
		if add, ok := e.(*AddProbNodeEdit); ok && add.Variable.Type() != variable.FiniteStates {
			return false, nil
		}
	}
	return true, nil
}

// ConstraintByName builds a constraint from its name. MaxNumParents takes its
// limit from limit.
func ConstraintByName(name string, limit int) (Constraint, bool) {
	switch name {
	case "NoCycle":
		return NoCycle{}, true
	case "NoLoops":
		return NoLoops{}, true
	case "NoSelfLoop":
		return NoSelfLoop{}, true
	case "NoMultipleLinks":
		return NoMultipleLinks{}, true
	case "DistinctVariableNames":
		return DistinctVariableNames{}, true
	case "OnlyDirectedLinks":
		return OnlyDirectedLinks{}, true
	case "OnlyUndirectedLinks":
		return OnlyUndirectedLinks{}, true
	case "OnlyChanceNodes":
		return OnlyChanceNodes{}, true
	case "NoUtilityParent":
		return NoUtilityParent{}, true
	case "NoMixedParents":
		return NoMixedParents{}, true
	case "OnlyFiniteStatesVariables":
		return OnlyFiniteStatesVariables{}, true
	case "MaxNumParents":
		return MaxNumParents{Max: limit}, true
	}
	return nil, false
}

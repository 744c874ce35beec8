package operations

import (
	"github.com/orneryd/markovnet/pkg/evidence"
	"github.com/orneryd/markovnet/pkg/network"
	"github.com/orneryd/markovnet/pkg/variable"
)

// Pruned returns a copy of net without the nodes that can not influence the
// posterior of the variables of interest given ec: barren nodes first, then
// nodes d-separated from the interest set.
func Pruned(net *network.ProbNet, interest []*variable.Variable, ec *evidence.Case) (*network.ProbNet, error) {
	pruned := net.Copy()
	if _, err := RemoveBarrenNodes(pruned, interest, ec); err != nil {
		return nil, err
	}
	if _, err := RemoveUnreachableNodes(pruned, interest, ec); err != nil {
		return nil, err
	}
	return pruned, nil
}

// RemoveBarrenNodes deletes from net every node that is neither of interest
// nor observed and whose children are all barren. Childless nodes are barren
// unless of interest or observed. It returns the removed nodes.
func RemoveBarrenNodes(net *network.ProbNet, interest []*variable.Variable, ec *evidence.Case) ([]*network.ProbNode, error) {
	g := net.Graph()
	keep := relevantSet(interest, ec)

	barren := make(map[network.NodeID]bool)
	for changed := true; changed; {
		changed = false
		for _, pn := range net.ProbNodes() {
			if barren[pn.ID()] || keep[pn.Name()] {
				continue
			}
			allBarren := true
			for _, child := range g.Children(pn.ID()) {
				if !barren[child] {
					allBarren = false
					break
				}
			}
			if allBarren {
				barren[pn.ID()] = true
				changed = true
			}
		}
	}

	var removed []*network.ProbNode
	for _, pn := range net.ProbNodes() {
		if barren[pn.ID()] {
			removed = append(removed, pn)
		}
	}
	return removed, removeNodes(net, removed)
}

// RemoveUnreachableNodes deletes from net every node with no active path to
// the variables of interest given the observed variables of ec. A collider
// X -> Y <- Z passes only when Y is observed or has an observed descendant; a
// chain or fork passes unless its middle node is observed. It returns the
// removed nodes.
func RemoveUnreachableNodes(net *network.ProbNet, interest []*variable.Variable, ec *evidence.Case) ([]*network.ProbNode, error) {
	g := net.Graph()

	observed := make(map[network.NodeID]bool)
	if ec != nil {
		for _, v := range ec.Variables() {
			if pn := net.ProbNodeOf(v); pn != nil {
				observed[pn.ID()] = true
			}
		}
	}
	observedOrAncestor := ancestors(g, observed)

	keep := make(map[network.NodeID]bool)
	explore := newUniqueStack()
	var seeds []network.NodeID
	for _, v := range interest {
		if pn := net.ProbNodeOf(v); pn != nil && !keep[pn.ID()] {
			keep[pn.ID()] = true
			seeds = append(seeds, pn.ID())
		}
	}
	for _, id := range seeds {
		for _, neighbor := range g.Neighbors(id) {
			if !keep[neighbor] {
				keep[neighbor] = true
				explore.push(neighbor)
			}
		}
	}
	reach := func(id network.NodeID) {
		keep[id] = true
		explore.push(id)
	}

	for !explore.empty() {
		node := explore.pop()
		parents, children := g.Parents(node), g.Children(node)

		// X -> node <- Z with node observed or an ancestor of evidence
		if observedOrAncestor[node] {
			for i := 0; i < len(parents)-1; i++ {
				keepI := keep[parents[i]]
				for j := i + 1; j < len(parents); j++ {
					keepJ := keep[parents[j]]
					if keepI && !keepJ {
						reach(parents[j])
					} else if !keepI && keepJ {
						reach(parents[i])
						keepI = true
					}
				}
			}
		}
		for _, child := range children {
			if observedOrAncestor[child] {
				reach(child)
			}
		}

		if observed[node] {
			continue
		}
		for i, child := range children {
			keepChild := keep[child]
			// X -> node -> Z and X <- node <- Z
			for _, parent := range parents {
				keepParent := keep[parent]
				if keepChild && !keepParent {
					reach(parent)
				} else if keepParent && !keepChild {
					reach(child)
					keepChild = true
				}
			}
			// X <- node -> Z
			for _, other := range children[i+1:] {
				keepOther := keep[other]
				if keepOther && !keepChild {
					reach(child)
					keepChild = true
				} else if keepChild && !keepOther {
					reach(other)
				}
			}
		}
	}

	var removed []*network.ProbNode
	for _, pn := range net.ProbNodes() {
		if !keep[pn.ID()] {
			removed = append(removed, pn)
		}
	}
	return removed, removeNodes(net, removed)
}

func removeNodes(net *network.ProbNet, nodes []*network.ProbNode) error {
	for _, pn := range nodes {
		if err := net.RemoveProbNode(pn); err != nil {
			return err
		}
	}
	return nil
}

// relevantSet holds the names of the variables of interest and the observed
// variables.
func relevantSet(interest []*variable.Variable, ec *evidence.Case) map[string]bool {
	set := variableSet(interest)
	if ec != nil {
		for _, v := range ec.Variables() {
			set[v.Name()] = true
		}
	}
	return set
}

// ancestors returns nodes together with all their ancestors.
func ancestors(g *network.Graph, nodes map[network.NodeID]bool) map[network.NodeID]bool {
	out := make(map[network.NodeID]bool, len(nodes))
	var stack []network.NodeID
	for id := range nodes {
		out[id] = true
		stack = append(stack, id)
	}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, parent := range g.Parents(id) {
			if !out[parent] {
				out[parent] = true
				stack = append(stack, parent)
			}
		}
	}
	return out
}

// uniqueStack is a LIFO stack that holds each node at most once.
type uniqueStack struct {
	items   []network.NodeID
	present map[network.NodeID]bool
}

func newUniqueStack() *uniqueStack {
	return &uniqueStack{present: make(map[network.NodeID]bool)}
}

func (s *uniqueStack) push(id network.NodeID) {
	if s.present[id] {
		return
	}
	s.present[id] = true
	s.items = append(s.items, id)
}

func (s *uniqueStack) pop() network.NodeID {
	id := s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]
	delete(s.present, id)
	return id
}

func (s *uniqueStack) empty() bool { return len(s.items) == 0 }

package network

import (
	"github.com/orneryd/markovnet/pkg/potential"
	"github.com/orneryd/markovnet/pkg/variable"
)

// orderedNodes is a map from variable name to node that remembers insertion
// order.
type orderedNodes struct {
	byName map[string]*ProbNode
	order  []string
}

func newOrderedNodes() *orderedNodes {
	return &orderedNodes{byName: make(map[string]*ProbNode)}
}

func (o *orderedNodes) put(pn *ProbNode) {
	name := pn.variable.Name()
	if _, ok := o.byName[name]; !ok {
		o.order = append(o.order, name)
	}
	o.byName[name] = pn
}

func (o *orderedNodes) delete(name string) bool {
	if _, ok := o.byName[name]; !ok {
		return false
	}
	delete(o.byName, name)
	for i, n := range o.order {
		if n == name {
			o.order = append(o.order[:i], o.order[i+1:]...)
			break
		}
	}
	return true
}

func (o *orderedNodes) values() []*ProbNode {
	out := make([]*ProbNode, len(o.order))
	for i, name := range o.order {
		out[i] = o.byName[name]
	}
	return out
}

// ProbNodeDepot indexes the nodes of a network by type and variable name.
type ProbNodeDepot struct {
	byType map[NodeType]*orderedNodes
}

// NewProbNodeDepot returns an empty depot.
func NewProbNodeDepot() *ProbNodeDepot {
	d := &ProbNodeDepot{byType: make(map[NodeType]*orderedNodes, len(nodeTypes))}
	for _, t := range nodeTypes {
		d.byType[t] = newOrderedNodes()
	}
	return d
}

// Add stores pn under its type and variable name.
func (d *ProbNodeDepot) Add(pn *ProbNode) { d.byType[pn.nodeType].put(pn) }

// Remove deletes pn.
func (d *ProbNodeDepot) Remove(pn *ProbNode) bool {
	return d.byType[pn.nodeType].delete(pn.variable.Name())
}

// Get returns the node of the given type holding v.
func (d *ProbNodeDepot) Get(t NodeType, v *variable.Variable) *ProbNode {
	if o, ok := d.byType[t]; ok {
		return o.byName[v.Name()]
	}
	return nil
}

// ByName returns the node whose variable has the given name, of any type.
func (d *ProbNodeDepot) ByName(name string) *ProbNode {
	for _, t := range nodeTypes {
		if pn, ok := d.byType[t].byName[name]; ok {
			return pn
		}
	}
	return nil
}

// ByVariable returns the node holding v, of any type.
func (d *ProbNodeDepot) ByVariable(v *variable.Variable) *ProbNode { return d.ByName(v.Name()) }

// OfType returns the nodes of one type in insertion order.
func (d *ProbNodeDepot) OfType(t NodeType) []*ProbNode {
	if o, ok := d.byType[t]; ok {
		return o.values()
	}
	return nil
}

// All returns chance, decision and utility nodes, each group in insertion order.
func (d *ProbNodeDepot) All() []*ProbNode {
	var out []*ProbNode
	for _, t := range nodeTypes {
		out = append(out, d.byType[t].values()...)
	}
	return out
}

// Count returns the number of nodes of one type.
func (d *ProbNodeDepot) Count(t NodeType) int {
	if o, ok := d.byType[t]; ok {
		return len(o.order)
	}
	return 0
}

// Len returns the number of nodes.
func (d *ProbNodeDepot) Len() int {
	n := 0
	for _, o := range d.byType {
		n += len(o.order)
	}
	return n
}

// Potentials returns the potentials of every node, in All order.
func (d *ProbNodeDepot) Potentials() []potential.Potential {
	var out []potential.Potential
	for _, pn := range d.All() {
		out = append(out, pn.potentials...)
	}
	return out
}

// PotentialsOfType returns the potentials of the nodes of one type.
func (d *ProbNodeDepot) PotentialsOfType(t NodeType) []potential.Potential {
	var out []potential.Potential
	for _, pn := range d.OfType(t) {
		out = append(out, pn.potentials...)
	}
	return out
}

// PotentialsByRole returns the potentials with the given role.
func (d *ProbNodeDepot) PotentialsByRole(role potential.Role) []potential.Potential {
	var out []potential.Potential
	for _, p := range d.Potentials() {
		if p.Role() == role {
			out = append(out, p)
		}
	}
	return out
}

// NumPotentials returns the number of potentials.
func (d *ProbNodeDepot) NumPotentials() int {
	n := 0
	for _, o := range d.byType {
		for _, pn := range o.byName {
			n += len(pn.potentials)
		}
	}
	return n
}

// Package network holds the probabilistic network model: a graph of nodes,
// each carrying a variable and its potentials, governed by structural
// constraints and changed through undoable edits.
//
// A ProbNet is not safe for concurrent mutation. Read-only use from several
// goroutines is fine once construction is done.
package network

import (
	"fmt"
	"strings"

	"github.com/orneryd/markovnet/pkg/errkind"
	"github.com/orneryd/markovnet/pkg/evidence"
	"github.com/orneryd/markovnet/pkg/potential"
	"github.com/orneryd/markovnet/pkg/variable"
)

// ProbNet is a probabilistic network.
type ProbNet struct {
	name        string
	comment     string
	networkType *NetworkType
	constraints []Constraint

	graph *Graph
	nodes map[NodeID]*ProbNode
	depot *ProbNodeDepot

	agents           []*variable.StringWithProperties
	decisionCriteria []*variable.StringWithProperties
	defaultStates    []variable.State
	properties       map[string]string

	edits *EditSupport
}

// New returns an empty network carrying the mandatory constraints of t.
func New(t *NetworkType) *ProbNet {
	return &ProbNet{
		networkType:   t,
		constraints:   t.MandatoryConstraints(),
		graph:         NewGraph(),
		nodes:         make(map[NodeID]*ProbNode),
		depot:         NewProbNodeDepot(),
		defaultStates: variable.States("absent", "present"),
		edits:         &EditSupport{},
	}
}

// =============================================================================
// Nodes and links
// =============================================================================

// AddProbNode returns the node of v, creating it with type t if the network
// has none. Constraints are not consulted; use DoEdit for checked changes.
func (net *ProbNet) AddProbNode(v *variable.Variable, t NodeType) *ProbNode {
	if pn := net.depot.ByName(v.Name()); pn != nil {
		return pn
	}
	pn := newProbNode(net, net.graph.AddNode(), v, t)
	net.nodes[pn.id] = pn
	net.depot.Add(pn)
	return pn
}

func (net *ProbNet) restoreProbNode(pn *ProbNode) {
	pn.net = net
	net.graph.restoreNode(pn.id)
	net.nodes[pn.id] = pn
	net.depot.Add(pn)
}

// RemoveProbNode deletes pn and its links.
func (net *ProbNet) RemoveProbNode(pn *ProbNode) error {
	if net.nodes[pn.id] != pn {
		return errkind.New(errkind.ProbNodeNotFound, "%s", pn.Name())
	}
	if err := net.graph.RemoveNode(pn.id); err != nil {
		return err
	}
	delete(net.nodes, pn.id)
	net.depot.Remove(pn)
	pn.net = nil
	return nil
}

func (net *ProbNet) linkEnds(v1, v2 *variable.Variable) (NodeID, NodeID, bool) {
	pn1, pn2 := net.depot.ByVariable(v1), net.depot.ByVariable(v2)
	if pn1 == nil || pn2 == nil {
		return 0, 0, false
	}
	return pn1.id, pn2.id, true
}

// AddLink links the nodes of v1 and v2.
func (net *ProbNet) AddLink(v1, v2 *variable.Variable, directed bool) error {
	n1, n2, ok := net.linkEnds(v1, v2)
	if !ok {
		return errkind.New(errkind.NodeNotFound, "link %s", linkLabel(v1, v2, directed))
	}
	_, err := net.graph.AddLink(n1, n2, directed)
	return err
}

// RemoveLink removes the link between the nodes of v1 and v2.
func (net *ProbNet) RemoveLink(v1, v2 *variable.Variable, directed bool) error {
	n1, n2, ok := net.linkEnds(v1, v2)
	if !ok {
		return errkind.New(errkind.NodeNotFound, "link %s", linkLabel(v1, v2, directed))
	}
	return net.graph.RemoveLink(n1, n2, directed)
}

// Link returns the link between the nodes of v1 and v2, or nil.
func (net *ProbNet) Link(v1, v2 *variable.Variable, directed bool) *Link {
	n1, n2, ok := net.linkEnds(v1, v2)
	if !ok {
		return nil
	}
	return net.graph.Link(n1, n2, directed)
}

func (net *ProbNet) restoreLink(saved *Link) error {
	l, err := net.graph.AddLink(saved.Node1, saved.Node2, saved.Directed)
	if err != nil {
		return err
	}
	restored := saved.copyLink()
	l.RestrictionsPotential = restored.RestrictionsPotential
	l.RevealingStates = restored.RevealingStates
	l.RevealingIntervals = restored.RevealingIntervals
	return nil
}

// CreateClique joins every pair of distinct variables with an undirected link.
func (net *ProbNet) CreateClique(vars []*variable.Variable) error {
	for i := range vars {
		for j := i + 1; j < len(vars); j++ {
			if vars[i].Equal(vars[j]) {
				continue
			}
			n1, n2, ok := net.linkEnds(vars[i], vars[j])
			if !ok {
				return errkind.New(errkind.NodeNotFound, "link %s", linkLabel(vars[i], vars[j], false))
			}
			if net.graph.HasLink(n1, n2, false) {
				continue
			}
			if _, err := net.graph.AddLink(n1, n2, false); err != nil {
				return err
			}
		}
	}
	return nil
}

// AddPotential attaches p to the network, creating the nodes it needs and the
// links implied by its role and the network's link constraints. It returns the
// node p was attached to, or nil for a constant potential in a network without
// chance nodes.
func (net *ProbNet) AddPotential(p potential.Potential) (*ProbNode, error) {
	vars := p.Variables()
	for _, v := range vars {
		if net.depot.ByVariable(v) == nil {
			net.AddProbNode(v, Chance)
		}
	}

	if uv := p.UtilityVariable(); uv != nil {
		pn := net.AddProbNode(uv, Utility)
		pn.AddPotential(p)
		if net.HasConstraint("OnlyUndirectedLinks") {
			return pn, net.CreateClique(append([]*variable.Variable{uv}, vars...))
		}
		for _, v := range vars {
			if err := net.AddLink(v, uv, true); err != nil {
				return nil, err
			}
		}
		return pn, nil
	}

	if len(vars) == 0 {
		chance := net.depot.OfType(Chance)
		if len(chance) == 0 {
			return nil, nil
		}
		chance[0].AddPotential(p)
		return chance[0], nil
	}

	pn := net.depot.ByVariable(vars[0])
	pn.AddPotential(p)
	switch {
	case net.HasConstraint("OnlyUndirectedLinks"):
		return pn, net.CreateClique(vars)
	case net.HasConstraint("OnlyDirectedLinks"):
		for _, parent := range vars[1:] {
			if err := net.AddLink(parent, vars[0], true); err != nil {
				return nil, err
			}
		}
	}
	return pn, nil
}

// =============================================================================
// Network type and constraints
// =============================================================================

// NetworkType returns the current type.
func (net *ProbNet) NetworkType() *NetworkType { return net.networkType }

// SetNetworkType switches to t. Optional constraints that t forbids are
// dropped and t's mandatory constraints added. If the network does not satisfy
// the result, nothing changes and a ConstraintViolation is returned.
func (net *ProbNet) SetNetworkType(t *NetworkType) error {
	oldType, oldConstraints := net.networkType, net.constraints

	var next []Constraint
	for _, c := range net.constraints {
		if !oldType.isMandatory(c) && t.IsApplicable(c) {
			next = append(next, c)
		}
	}
	for _, m := range t.MandatoryConstraints() {
		next = putConstraint(next, m)
	}

	net.networkType, net.constraints = t, next
	if err := net.CheckProbNet(); err != nil {
		net.networkType, net.constraints = oldType, oldConstraints
		return err
	}
	return nil
}

func putConstraint(cs []Constraint, c Constraint) []Constraint {
	for i, existing := range cs {
		if existing.Name() == c.Name() {
			out := append([]Constraint(nil), cs...)
			out[i] = c
			return out
		}
	}
	return append(cs, c)
}

// Constraints returns the active constraints.
func (net *ProbNet) Constraints() []Constraint { return append([]Constraint(nil), net.constraints...) }

// HasConstraint reports whether a constraint with the given name is active.
func (net *ProbNet) HasConstraint(name string) bool {
	for _, c := range net.constraints {
		if c.Name() == name {
			return true
		}
	}
	return false
}

// AddConstraint activates c, replacing a constraint of the same name. With
// check set the network must already satisfy c.
func (net *ProbNet) AddConstraint(c Constraint, check bool) error {
	if !net.networkType.IsApplicable(c) {
		return errkind.New(errkind.ConstraintViolation, "%s is not applicable to %s", c.Name(), net.networkType)
	}
	if check && !c.CheckProbNet(net) {
		return errkind.New(errkind.ConstraintViolation, "%s: %s", c.Name(), c.Message())
	}
	net.constraints = putConstraint(net.constraints, c)
	return nil
}

// RemoveConstraint deactivates the constraint with the given name.
func (net *ProbNet) RemoveConstraint(name string) bool {
	for i, c := range net.constraints {
		if c.Name() == name {
			net.constraints = append(net.constraints[:i:i], net.constraints[i+1:]...)
			return true
		}
	}
	return false
}

// CheckProbNet returns a ConstraintViolation for the first active constraint
// the network breaks.
func (net *ProbNet) CheckProbNet() error {
	for _, c := range net.constraints {
		if !c.CheckProbNet(net) {
			return errkind.New(errkind.ConstraintViolation, "%s: %s", c.Name(), c.Message())
		}
	}
	return nil
}

// =============================================================================
// Attributes
// =============================================================================

func (net *ProbNet) Name() string { return net.name }
func (net *ProbNet) SetName(name string) { net.name = name }
func (net *ProbNet) Comment() string { return net.comment }
func (net *ProbNet) SetComment(text string) { net.comment = text }
func (net *ProbNet) Edits() *EditSupport { return net.edits }
func (net *ProbNet) Graph() *Graph { return net.graph }
func (net *ProbNet) Depot() *ProbNodeDepot { return net.depot }
func (net *ProbNet) DefaultStates() []variable.State {
	return append([]variable.State(nil), net.defaultStates...)
}

// SetDefaultStates sets the states given to new finite-states variables.
func (net *ProbNet) SetDefaultStates(states []variable.State) {
	net.defaultStates = append([]variable.State(nil), states...)
}

// Agents returns the agents of a multi-agent decision model.
func (net *ProbNet) Agents() []*variable.StringWithProperties {
	return append([]*variable.StringWithProperties(nil), net.agents...)
}

func (net *ProbNet) SetAgents(agents []*variable.StringWithProperties) {
	net.agents = append([]*variable.StringWithProperties(nil), agents...)
}

// DecisionCriteria returns the criteria utilities are measured in.
func (net *ProbNet) DecisionCriteria() []*variable.StringWithProperties {
	return append([]*variable.StringWithProperties(nil), net.decisionCriteria...)
}

func (net *ProbNet) SetDecisionCriteria(criteria []*variable.StringWithProperties) {
	net.decisionCriteria = append([]*variable.StringWithProperties(nil), criteria...)
}

// Property returns an additional network property.
func (net *ProbNet) Property(key string) (string, bool) {
	v, ok := net.properties[key]
	return v, ok
}

// SetProperty sets an additional network property.
func (net *ProbNet) SetProperty(key, value string) {
	if net.properties == nil {
		net.properties = make(map[string]string)
	}
	net.properties[key] = value
}

// =============================================================================
// Lookup
// =============================================================================

// ProbNode returns the node whose variable is called name.
func (net *ProbNet) ProbNode(name string) (*ProbNode, error) {
	if pn := net.depot.ByName(name); pn != nil {
		return pn, nil
	}
	return nil, errkind.New(errkind.ProbNodeNotFound, "%q", name)
}

// ProbNodeOf returns the node of v, or nil.
func (net *ProbNet) ProbNodeOf(v *variable.Variable) *ProbNode { return net.depot.ByVariable(v) }

// Node returns the node with the given graph handle, or nil.
func (net *ProbNet) Node(id NodeID) *ProbNode { return net.nodes[id] }

// Variable returns the variable called name.
func (net *ProbNet) Variable(name string) (*variable.Variable, error) {
	pn, err := net.ProbNode(name)
	if err != nil {
		return nil, err
	}
	return pn.variable, nil
}

// Variables returns the variables of all nodes.
func (net *ProbNet) Variables() []*variable.Variable {
	nodes := net.depot.All()
	vars := make([]*variable.Variable, len(nodes))
	for i, pn := range nodes {
		vars[i] = pn.variable
	}
	return vars
}

// ProbNodes returns chance, decision and utility nodes, in that order.
func (net *ProbNet) ProbNodes() []*ProbNode { return net.depot.All() }

// ProbNodesOfType returns the nodes of type t.
func (net *ProbNet) ProbNodesOfType(t NodeType) []*ProbNode { return net.depot.OfType(t) }

// NumNodes returns the number of nodes.
func (net *ProbNet) NumNodes() int { return net.depot.Len() }

// NumLinks returns the number of links.
func (net *ProbNet) NumLinks() int { return len(net.graph.links) }

func (net *ProbNet) probNodes(ids []NodeID) []*ProbNode {
	out := make([]*ProbNode, 0, len(ids))
	for _, id := range ids {
		out = append(out, net.nodes[id])
	}
	return out
}

func (net *ProbNet) Parents(pn *ProbNode) []*ProbNode { return net.probNodes(net.graph.Parents(pn.id)) }
func (net *ProbNet) Children(pn *ProbNode) []*ProbNode { return net.probNodes(net.graph.Children(pn.id)) }
func (net *ProbNet) Siblings(pn *ProbNode) []*ProbNode { return net.probNodes(net.graph.Siblings(pn.id)) }

// Neighbors returns parents, children and siblings of pn.
func (net *ProbNet) Neighbors(pn *ProbNode) []*ProbNode {
	return net.probNodes(net.graph.Neighbors(pn.id))
}

// ExistsPath reports whether to can be reached from from.
func (net *ProbNet) ExistsPath(from, to *ProbNode, directed bool) bool {
	return net.graph.ExistsPath(from.id, to.id, directed)
}

// TopologicalOrder returns the nodes with parents before children.
func (net *ProbNet) TopologicalOrder() ([]*ProbNode, error) {
	ids, err := net.graph.TopologicalOrder()
	if err != nil {
		return nil, err
	}
	return net.probNodes(ids), nil
}

// ShiftedVariable returns the copy of the temporal variable v timeDifference
// slices later.
func (net *ProbNet) ShiftedVariable(v *variable.Variable, timeDifference int) (*variable.Variable, error) {
	if !v.IsTemporal() {
		return nil, errkind.New(errkind.InvalidArgument, "%s is not temporal", v.Name())
	}
	target := v.TimeSlice() + timeDifference
	for _, pn := range net.depot.All() {
		candidate := pn.variable
		if candidate.IsTemporal() && candidate.BaseName() == v.BaseName() && candidate.TimeSlice() == target {
			return candidate, nil
		}
	}
	return nil, errkind.New(errkind.ProbNodeNotFound, "%s in slice %d", v.BaseName(), target)
}

// =============================================================================
// Potentials
// =============================================================================

// Potentials returns every potential of the network.
func (net *ProbNet) Potentials() []potential.Potential { return net.depot.Potentials() }

// PotentialsOf returns the potentials of v's node followed by the potentials
// of other nodes whose scope includes v.
func (net *ProbNet) PotentialsOf(v *variable.Variable) []potential.Potential {
	var out []potential.Potential
	own := net.depot.ByVariable(v)
	if own != nil {
		out = append(out, own.potentials...)
	}
	for _, pn := range net.depot.All() {
		if pn == own {
			continue
		}
		for _, p := range pn.potentials {
			if p.Contains(v) {
				out = append(out, p)
			}
		}
	}
	return out
}

// SortedPotentials returns the potentials grouped by node, nodes in
// topological order.
func (net *ProbNet) SortedPotentials() ([]potential.Potential, error) {
	order, err := net.TopologicalOrder()
	if err != nil {
		return nil, err
	}
	var out []potential.Potential
	for _, pn := range order {
		out = append(out, pn.potentials...)
	}
	return out, nil
}

// TableProjectPotentials projects every potential onto the evidence.
func (net *ProbNet) TableProjectPotentials(ec *evidence.Case) ([]*potential.TablePotential, error) {
	var out []*potential.TablePotential
	for _, p := range net.depot.Potentials() {
		tables, err := p.TableProject(ec)
		if err != nil {
			return nil, fmt.Errorf("projecting %s: %w", p, err)
		}
		out = append(out, tables...)
	}
	return out, nil
}

// RemovePotential detaches p from whichever node holds it.
func (net *ProbNet) RemovePotential(p potential.Potential) bool {
	for _, pn := range net.depot.All() {
		if pn.RemovePotential(p) {
			return true
		}
	}
	return false
}

// RemovePotentials detaches every potential of pn.
func (net *ProbNet) RemovePotentials(pn *ProbNode) { pn.potentials = nil }

// SetUniformPotential gives pn a uniform potential over itself and its parents.
// Utility nodes get a zero utility table over their parents.
func (net *ProbNet) SetUniformPotential(pn *ProbNode) {
	parents := net.Parents(pn)
	parentVars := make([]*variable.Variable, len(parents))
	for i, p := range parents {
		parentVars[i] = p.variable
	}
	switch pn.nodeType {
	case Utility:
		t := potential.NewTablePotential(parentVars, potential.Utility)
		t.SetUtilityVariable(pn.variable)
		pn.SetPotential(t)
	case Decision:
		vars := append([]*variable.Variable{pn.variable}, parentVars...)
		pn.SetPotential(potential.NewUniformPotential(vars, potential.Policy))
	default:
		vars := append([]*variable.Variable{pn.variable}, parentVars...)
		pn.SetPotential(potential.NewUniformPotential(vars, potential.ConditionalProbability))
	}
}

// Inducers returns every potential as an evidence inducer.
func (net *ProbNet) Inducers() []evidence.Inducer {
	return inducers(net.depot.Potentials())
}

// InducersOf returns the potentials whose scope includes v.
func (net *ProbNet) InducersOf(v *variable.Variable) []evidence.Inducer {
	return inducers(net.PotentialsOf(v))
}

func inducers(ps []potential.Potential) []evidence.Inducer {
	out := make([]evidence.Inducer, len(ps))
	for i, p := range ps {
		out[i] = p
	}
	return out
}

// =============================================================================
// Copy and description
// =============================================================================

// Copy returns a network with its own graph, nodes, constraints and edit
// listeners. Variables and potentials are shared with the original.
func (net *ProbNet) Copy() *ProbNet {
	c := &ProbNet{
		name:             net.name,
		comment:          net.comment,
		networkType:      net.networkType,
		constraints:      net.Constraints(),
		graph:            net.graph.Copy(),
		nodes:            make(map[NodeID]*ProbNode, len(net.nodes)),
		depot:            NewProbNodeDepot(),
		agents:           net.Agents(),
		decisionCriteria: net.DecisionCriteria(),
		defaultStates:    net.DefaultStates(),
		edits:            net.edits.copySupport(),
	}
	for _, pn := range net.depot.All() {
		cp := pn.copyNode()
		cp.net = c
		c.nodes[cp.id] = cp
		c.depot.Add(cp)
	}
	if net.properties != nil {
		c.properties = make(map[string]string, len(net.properties))
		for k, v := range net.properties {
			c.properties[k] = v
		}
	}
	return c
}

// String summarizes the network.
func (net *ProbNet) String() string {
	name := net.name
	if name == "" {
		name = "<unnamed>"
	}
	return fmt.Sprintf("%s (%s): %d nodes, %d links, %d potentials",
		name, net.networkType, net.depot.Len(), len(net.graph.links), net.depot.NumPotentials())
}

// Describe renders a node with its neighbourhood and potentials.
func (net *ProbNet) Describe(pn *ProbNode) string {
	var sb strings.Builder
	sb.WriteString(pn.Name())
	sb.WriteString(" (")
	sb.WriteString(pn.nodeType.String())
	sb.WriteString(", ")
	sb.WriteString(pn.variable.Type().String())
	sb.WriteString(")")
	if n := pn.variable.NumStates(); n > 0 && pn.variable.Type() != variable.Numeric {
		sb.WriteString(" states {")
		sb.WriteString(strings.Join(pn.variable.StateNames(), ", "))
		sb.WriteString("}")
	}
	for _, group := range []struct {
		label string
		nodes []*ProbNode
	}{
		{"parents", net.Parents(pn)},
		{"children", net.Children(pn)},
		{"siblings", net.Siblings(pn)},
	} {
		if len(group.nodes) == 0 {
			continue
		}
		names := make([]string, len(group.nodes))
		for i, n := range group.nodes {
			names[i] = n.Name()
		}
		fmt.Fprintf(&sb, "\n  %s: %s", group.label, strings.Join(names, ", "))
	}
	for _, p := range pn.potentials {
		fmt.Fprintf(&sb, "\n  %s", p)
	}
	return sb.String()
}

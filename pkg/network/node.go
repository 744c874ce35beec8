package network

import (
	"strings"

	"github.com/orneryd/markovnet/pkg/errkind"
	"github.com/orneryd/markovnet/pkg/potential"
	"github.com/orneryd/markovnet/pkg/variable"
)

// NodeType is the role of a node in a decision model.
type NodeType int

const (
	Chance NodeType = iota
	Decision
	Utility
)

// nodeTypes lists the types in the order used when enumerating every node.
var nodeTypes = []NodeType{Chance, Decision, Utility}

func (t NodeType) String() string {
	switch t {
	case Chance:
		return "chance"
	case Decision:
		return "decision"
	case Utility:
		return "utility"
	}
	return "unknown"
}

// ParseNodeType is the inverse of NodeType.String. Empty strings map to Chance.
func ParseNodeType(s string) (NodeType, error) {
	switch strings.ToLower(s) {
	case "chance", "":
		return Chance, nil
	case "decision":
		return Decision, nil
	case "utility":
		return Utility, nil
	}
	return Chance, errkind.New(errkind.InvalidArgument, "unknown node type %q", s)
}

// DefaultRelevance is the relevance of new nodes.
const DefaultRelevance = 5.0

// ProbNode attaches a variable and its potentials to a node of the network
// graph.
type ProbNode struct {
	net        *ProbNet
	id         NodeID
	variable   *variable.Variable
	nodeType   NodeType
	potentials []potential.Potential

	purpose        string
	relevance      float64
	comment        string
	alwaysObserved bool
	policyType     string
	properties     map[string]string
}

func newProbNode(net *ProbNet, id NodeID, v *variable.Variable, t NodeType) *ProbNode {
	pn := &ProbNode{net: net, id: id, variable: v, nodeType: t, relevance: DefaultRelevance}
	if t == Utility && v.Type() != variable.Numeric {
		v.SetType(variable.Numeric)
	}
	return pn
}

// ID returns the handle of the node in the network graph.
func (pn *ProbNode) ID() NodeID { return pn.id }

// ProbNet returns the network the node belongs to, nil once removed.
func (pn *ProbNode) ProbNet() *ProbNet { return pn.net }

// Variable returns the node's variable.
func (pn *ProbNode) Variable() *variable.Variable { return pn.variable }

// SetVariable replaces the node's variable. The name must not change while the
// node belongs to a network.
func (pn *ProbNode) SetVariable(v *variable.Variable) { pn.variable = v }

// Name returns the variable name.
func (pn *ProbNode) Name() string { return pn.variable.Name() }

// NodeType returns the node type.
func (pn *ProbNode) NodeType() NodeType { return pn.nodeType }

// Potentials returns the node's potentials.
func (pn *ProbNode) Potentials() []potential.Potential {
	return append([]potential.Potential(nil), pn.potentials...)
}

// AddPotential appends a potential.
func (pn *ProbNode) AddPotential(p potential.Potential) { pn.potentials = append(pn.potentials, p) }

// SetPotential replaces all potentials by p.
func (pn *ProbNode) SetPotential(p potential.Potential) { pn.potentials = []potential.Potential{p} }

// SetPotentials replaces all potentials.
func (pn *ProbNode) SetPotentials(ps []potential.Potential) {
	pn.potentials = append([]potential.Potential(nil), ps...)
}

// RemovePotential removes p, comparing by identity.
func (pn *ProbNode) RemovePotential(p potential.Potential) bool {
	for i, candidate := range pn.potentials {
		if candidate == p {
			pn.potentials = append(pn.potentials[:i], pn.potentials[i+1:]...)
			return true
		}
	}
	return false
}

// HasPolicy reports whether a decision node carries a policy.
func (pn *ProbNode) HasPolicy() bool {
	if pn.nodeType != Decision {
		return false
	}
	for _, p := range pn.potentials {
		if p.Role() == potential.Policy {
			return true
		}
	}
	return false
}

func (pn *ProbNode) Purpose() string { return pn.purpose }
func (pn *ProbNode) SetPurpose(purpose string) { pn.purpose = purpose }

func (pn *ProbNode) Relevance() float64 { return pn.relevance }
func (pn *ProbNode) SetRelevance(relevance float64) { pn.relevance = relevance }

func (pn *ProbNode) Comment() string { return pn.comment }
func (pn *ProbNode) SetComment(comment string) { pn.comment = comment }

func (pn *ProbNode) AlwaysObserved() bool { return pn.alwaysObserved }
func (pn *ProbNode) SetAlwaysObserved(alwaysObserved bool) { pn.alwaysObserved = alwaysObserved }

func (pn *ProbNode) PolicyType() string { return pn.policyType }
func (pn *ProbNode) SetPolicyType(policyType string) { pn.policyType = policyType }

// Property returns an additional property.
func (pn *ProbNode) Property(key string) (string, bool) {
	v, ok := pn.properties[key]
	return v, ok
}

// SetProperty sets an additional property.
func (pn *ProbNode) SetProperty(key, value string) {
	if pn.properties == nil {
		pn.properties = make(map[string]string)
	}
	pn.properties[key] = value
}

func (pn *ProbNode) copyNode() *ProbNode {
	c := *pn
	c.potentials = append([]potential.Potential(nil), pn.potentials...)
	if pn.properties != nil {
		c.properties = make(map[string]string, len(pn.properties))
		for k, v := range pn.properties {
			c.properties[k] = v
		}
	}
	return &c
}

func (pn *ProbNode) String() string { return pn.variable.Name() }

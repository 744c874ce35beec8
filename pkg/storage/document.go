package storage

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/orneryd/markovnet/pkg/errkind"
	"github.com/orneryd/markovnet/pkg/evidence"
	"github.com/orneryd/markovnet/pkg/network"
	"github.com/orneryd/markovnet/pkg/potential"
	"github.com/orneryd/markovnet/pkg/variable"
)

// Document is the serialized form of a ProbNet. It is written as YAML for
// network files and as JSON inside snapshots.
//
// Example:
//
//	name: sprinkler
//	type: BayesianNetwork
//	variables:
//	  - name: Rain
//	    states: [no, yes]
//	  - name: WetGrass
//	    states: [no, yes]
//	links:
//	  - {from: Rain, to: WetGrass, directed: true}
//	potentials:
//	  - node: Rain
//	    role: conditionalProbability
//	    variables: [Rain]
//	    values: [0.8, 0.2]
type Document struct {
	Name             string               `yaml:"name,omitempty" json:"name,omitempty"`
	Comment          string               `yaml:"comment,omitempty" json:"comment,omitempty"`
	NetworkType      string               `yaml:"type" json:"type"`
	Constraints      []ConstraintDocument `yaml:"constraints,omitempty" json:"constraints,omitempty"`
	Agents           []string             `yaml:"agents,omitempty" json:"agents,omitempty"`
	DecisionCriteria []string             `yaml:"decisionCriteria,omitempty" json:"decisionCriteria,omitempty"`
	Variables        []VariableDocument   `yaml:"variables" json:"variables"`
	Links            []LinkDocument       `yaml:"links,omitempty" json:"links,omitempty"`
	Potentials       []PotentialDocument  `yaml:"potentials,omitempty" json:"potentials,omitempty"`
}

// ConstraintDocument names an optional constraint. Max is only read for
// MaxNumParents.
type ConstraintDocument struct {
	Name string `yaml:"name" json:"name"`
	Max  int    `yaml:"max,omitempty" json:"max,omitempty"`
}

// VariableDocument describes a variable and the node that holds it.
type VariableDocument struct {
	Name           string            `yaml:"name" json:"name"`
	Type           string            `yaml:"type,omitempty" json:"type,omitempty"`
	Node           string            `yaml:"node,omitempty" json:"node,omitempty"`
	States         []string          `yaml:"states,omitempty" json:"states,omitempty"`
	Interval       *IntervalDocument `yaml:"interval,omitempty" json:"interval,omitempty"`
	Precision      float64           `yaml:"precision,omitempty" json:"precision,omitempty"`
	Unit           string            `yaml:"unit,omitempty" json:"unit,omitempty"`
	Purpose        string            `yaml:"purpose,omitempty" json:"purpose,omitempty"`
	Relevance      float64           `yaml:"relevance,omitempty" json:"relevance,omitempty"`
	Comment        string            `yaml:"comment,omitempty" json:"comment,omitempty"`
	AlwaysObserved bool              `yaml:"alwaysObserved,omitempty" json:"alwaysObserved,omitempty"`
}

// IntervalDocument is a partitioned interval. Limits are written with
// variable.FormatValue so that infinite bounds survive JSON.
type IntervalDocument struct {
	Limits        []string `yaml:"limits" json:"limits"`
	BelongsToLeft []bool   `yaml:"belongsToLeft" json:"belongsToLeft"`
}

// LinkDocument is a link between two variables.
type LinkDocument struct {
	From     string `yaml:"from" json:"from"`
	To       string `yaml:"to" json:"to"`
	Directed bool   `yaml:"directed" json:"directed"`
}

// PotentialDocument is a potential together with the node it is attached to.
// Which fields are used depends on Type: table reads Values, delta reads State
// or Value, linear reads Intercept and Coefficients.
type PotentialDocument struct {
	Node         string    `yaml:"node" json:"node"`
	Type         string    `yaml:"type,omitempty" json:"type,omitempty"`
	Role         string    `yaml:"role,omitempty" json:"role,omitempty"`
	Variables    []string  `yaml:"variables" json:"variables"`
	Utility      string    `yaml:"utility,omitempty" json:"utility,omitempty"`
	Values       []float64 `yaml:"values,omitempty" json:"values,omitempty"`
	State        string    `yaml:"state,omitempty" json:"state,omitempty"`
	Value        *float64  `yaml:"value,omitempty" json:"value,omitempty"`
	Intercept    float64   `yaml:"intercept,omitempty" json:"intercept,omitempty"`
	Coefficients []float64 `yaml:"coefficients,omitempty" json:"coefficients,omitempty"`
	Comment      string    `yaml:"comment,omitempty" json:"comment,omitempty"`
}

// EvidenceDocument maps variable names to an observed state name, or to a
// number for numeric variables.
type EvidenceDocument map[string]string

// =============================================================================
// Encoding
// =============================================================================

// Encode converts a network into a Document.
func Encode(net *network.ProbNet) (*Document, error) {
	doc := &Document{
		Name:        net.Name(),
		Comment:     net.Comment(),
		NetworkType: net.NetworkType().Name(),
	}
	for _, c := range net.Constraints() {
		cd := ConstraintDocument{Name: c.Name()}
		if m, ok := c.(network.MaxNumParents); ok {
			cd.Max = m.Max
		}
		doc.Constraints = append(doc.Constraints, cd)
	}
	for _, a := range net.Agents() {
		doc.Agents = append(doc.Agents, a.Name)
	}
	for _, c := range net.DecisionCriteria() {
		doc.DecisionCriteria = append(doc.DecisionCriteria, c.Name)
	}

	for _, pn := range net.ProbNodes() {
		doc.Variables = append(doc.Variables, encodeVariable(pn))
		for _, p := range pn.Potentials() {
			pd, err := encodePotential(pn.Name(), p)
			if err != nil {
				return nil, err
			}
			doc.Potentials = append(doc.Potentials, pd)
		}
	}
	for _, l := range net.Graph().Links() {
		from, to := net.Node(l.Node1), net.Node(l.Node2)
		if from == nil || to == nil {
			return nil, errkind.New(errkind.WrongGraphStructure, "link %d-%d has a missing end", l.Node1, l.Node2)
		}
		doc.Links = append(doc.Links, LinkDocument{From: from.Name(), To: to.Name(), Directed: l.Directed})
	}
	return doc, nil
}

func encodeVariable(pn *network.ProbNode) VariableDocument {
	v := pn.Variable()
	vd := VariableDocument{
		Name:           v.Name(),
		Type:           v.Type().String(),
		Node:           pn.NodeType().String(),
		Unit:           v.Unit(),
		Purpose:        pn.Purpose(),
		Relevance:      pn.Relevance(),
		Comment:        pn.Comment(),
		AlwaysObserved: pn.AlwaysObserved(),
	}
	if v.Type() != variable.Numeric {
		vd.States = v.StateNames()
	}
	if v.Type() != variable.FiniteStates {
		vd.Precision = v.Precision()
		if iv := v.PartitionedInterval(); iv != nil {
			id := &IntervalDocument{BelongsToLeft: iv.BelongsToLeftSide()}
			for _, limit := range iv.Limits() {
				id.Limits = append(id.Limits, variable.FormatValue(limit))
			}
			vd.Interval = id
		}
	}
	return vd
}

func encodePotential(node string, p potential.Potential) (PotentialDocument, error) {
	pd := PotentialDocument{
		Node:      node,
		Type:      p.Type().String(),
		Role:      p.Role().String(),
		Variables: variableNames(p.Variables()),
		Comment:   p.Comment(),
	}
	if uv := p.UtilityVariable(); uv != nil {
		pd.Utility = uv.Name()
		pd.Role = ""
	}
	switch tp := p.(type) {
	case *potential.TablePotential:
		pd.Values = append([]float64(nil), tp.Values()...)
	case *potential.DeltaPotential:
		v := tp.Variables()[0]
		if v.Type() == variable.Numeric {
			value := tp.NumericValue()
			pd.Value = &value
		} else {
			s, err := v.State(tp.StateIndex())
			if err != nil {
				return pd, err
			}
			pd.State = s.Name
		}
	case *potential.UniformPotential:
	case *potential.LinearPotential:
		pd.Intercept = tp.Intercept()
		pd.Coefficients = tp.Coefficients()
	default:
		return pd, errkind.New(errkind.InvalidArgument, "can not encode potential %s", p)
	}
	return pd, nil
}

func variableNames(vars []*variable.Variable) []string {
	names := make([]string, len(vars))
	for i, v := range vars {
		names[i] = v.Name()
	}
	return names
}

// =============================================================================
// Decoding
// =============================================================================

// Decode builds a network from a Document. The network's own constraints are
// checked once everything has been added.
func Decode(doc *Document) (*network.ProbNet, error) {
	nt, err := network.ParseNetworkType(doc.NetworkType)
	if err != nil {
		return nil, err
	}
	net := network.New(nt)
	net.SetName(doc.Name)
	net.SetComment(doc.Comment)

	for _, vd := range doc.Variables {
		if _, err := net.ProbNode(vd.Name); err == nil {
			return nil, errkind.New(errkind.InvalidArgument, "variable %s declared twice", vd.Name)
		}
		v, err := decodeVariable(vd)
		if err != nil {
			return nil, err
		}
		nodeType := network.Chance
		if vd.Node != "" {
			if nodeType, err = network.ParseNodeType(vd.Node); err != nil {
				return nil, err
			}
		}
		pn := net.AddProbNode(v, nodeType)
		pn.SetPurpose(vd.Purpose)
		pn.SetComment(vd.Comment)
		pn.SetAlwaysObserved(vd.AlwaysObserved)
		if vd.Relevance != 0 {
			pn.SetRelevance(vd.Relevance)
		}
	}

	for _, ld := range doc.Links {
		from, err := net.Variable(ld.From)
		if err != nil {
			return nil, err
		}
		to, err := net.Variable(ld.To)
		if err != nil {
			return nil, err
		}
		if err := net.AddLink(from, to, ld.Directed); err != nil {
			return nil, err
		}
	}

	for i, pd := range doc.Potentials {
		pn, err := net.ProbNode(pd.Node)
		if err != nil {
			return nil, fmt.Errorf("potential %d: %w", i, err)
		}
		p, err := decodePotential(net, pd)
		if err != nil {
			return nil, fmt.Errorf("potential %d of %s: %w", i, pd.Node, err)
		}
		pn.AddPotential(p)
	}

	for _, cd := range doc.Constraints {
		c, ok := network.ConstraintByName(cd.Name, cd.Max)
		if !ok {
			return nil, errkind.New(errkind.InvalidArgument, "unknown constraint %q", cd.Name)
		}
		if err := net.AddConstraint(c, false); err != nil {
			return nil, err
		}
	}

	agents := make([]*variable.StringWithProperties, len(doc.Agents))
	for i, name := range doc.Agents {
		agents[i] = variable.NewStringWithProperties(name)
	}
	net.SetAgents(agents)
	criteria := make([]*variable.StringWithProperties, len(doc.DecisionCriteria))
	for i, name := range doc.DecisionCriteria {
		criteria[i] = variable.NewStringWithProperties(name)
	}
	net.SetDecisionCriteria(criteria)

	if err := net.CheckProbNet(); err != nil {
		return nil, err
	}
	return net, nil
}

func decodeVariable(vd VariableDocument) (*variable.Variable, error) {
	varType := variable.FiniteStates
	if vd.Type != "" {
		t, err := variable.ParseType(vd.Type)
		if err != nil {
			return nil, err
		}
		varType = t
	}

	var interval *variable.PartitionedInterval
	if vd.Interval != nil {
		limits := make([]float64, len(vd.Interval.Limits))
		for i, s := range vd.Interval.Limits {
			limit, err := variable.ParseValue(s)
			if err != nil {
				return nil, errkind.Wrap(errkind.InvalidArgument, err, "limit %q of %s", s, vd.Name)
			}
			limits[i] = limit
		}
		var err error
		if interval, err = variable.NewPartitionedInterval(limits, vd.Interval.BelongsToLeft); err != nil {
			return nil, err
		}
	}

	var v *variable.Variable
	switch varType {
	case variable.FiniteStates:
		if len(vd.States) == 0 {
			return nil, errkind.New(errkind.InvalidArgument, "finite-states variable %s has no states", vd.Name)
		}
		v = variable.NewFiniteStates(vd.Name, vd.States...)
	case variable.Numeric:
		v = variable.NewNumeric(vd.Name)
		if interval != nil {
			if err := v.SetPartitionedInterval(interval); err != nil {
				return nil, err
			}
		}
		v.SetPrecision(vd.Precision)
	case variable.Discretized:
		states := make([]variable.State, len(vd.States))
		for i, name := range vd.States {
			states[i] = variable.State{Name: name}
		}
		var err error
		if v, err = variable.NewDiscretized(vd.Name, states, interval, vd.Precision); err != nil {
			return nil, err
		}
	}
	v.SetUnit(vd.Unit)
	return v, nil
}

func decodePotential(net *network.ProbNet, pd PotentialDocument) (potential.Potential, error) {
	vars := make([]*variable.Variable, len(pd.Variables))
	for i, name := range pd.Variables {
		v, err := net.Variable(name)
		if err != nil {
			return nil, err
		}
		vars[i] = v
	}
	role, ok := potential.ParseRole(pd.Role)
	if !ok {
		return nil, errkind.New(errkind.InvalidArgument, "unknown role %q", pd.Role)
	}
	var uv *variable.Variable
	if pd.Utility != "" {
		v, err := net.Variable(pd.Utility)
		if err != nil {
			return nil, err
		}
		uv = v
	}

	var (
		p   potential.Potential
		err error
	)
	switch pd.Type {
	case "", "table":
		if pd.Values == nil {
			p = potential.NewTablePotential(vars, role)
		} else {
			p, err = potential.NewTablePotentialWithValues(vars, role, pd.Values)
		}
	case "delta":
		if len(vars) != 1 {
			return nil, errkind.New(errkind.InvalidArgument, "delta potential needs one variable, got %d", len(vars))
		}
		if pd.Value != nil {
			p = potential.NewDeltaValue(vars[0], *pd.Value, role)
		} else {
			p, err = potential.NewDeltaState(vars[0], pd.State, role)
		}
	case "uniform":
		p = potential.NewUniformPotential(vars, role)
	case "linear":
		if uv != nil {
			p, err = potential.NewLinearUtility(uv, vars, pd.Intercept, pd.Coefficients)
		} else {
			p, err = potential.NewLinearPotential(vars, role, pd.Intercept, pd.Coefficients)
		}
	default:
		return nil, errkind.New(errkind.InvalidArgument, "unknown potential type %q", pd.Type)
	}
	if err != nil {
		return nil, err
	}
	if uv != nil && p.UtilityVariable() == nil {
		p.SetUtilityVariable(uv)
	}
	p.SetComment(pd.Comment)
	return p, nil
}

// =============================================================================
// YAML files
// =============================================================================

// ParseYAML decodes a network from YAML.
func ParseYAML(data []byte) (*network.ProbNet, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse network: %w", err)
	}
	return Decode(&doc)
}

// LoadYAML reads a network file.
func LoadYAML(path string) (*network.ProbNet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read network file: %w", err)
	}
	return ParseYAML(data)
}

// MarshalYAML encodes a network as YAML.
func MarshalYAML(net *network.ProbNet) ([]byte, error) {
	doc, err := Encode(net)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(doc)
}

// LoadEvidenceYAML reads an evidence file.
func LoadEvidenceYAML(path string) (EvidenceDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read evidence file: %w", err)
	}
	var doc EvidenceDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse evidence: %w", err)
	}
	return doc, nil
}

// ToCase resolves the findings against lookup, in name order.
func (d EvidenceDocument) ToCase(lookup evidence.VariableLookup) (*evidence.Case, error) {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	sort.Strings(names)

	ec := evidence.Empty()
	for _, name := range names {
		v, err := lookup.Variable(name)
		if err != nil {
			return nil, err
		}
		if v.Type() == variable.Numeric {
			value, err := variable.ParseValue(d[name])
			if err != nil {
				return nil, errkind.Wrap(errkind.InvalidState, err, "value %q of %s", d[name], name)
			}
			err = ec.AddNumericFindingByName(lookup, name, value)
			if err != nil {
				return nil, err
			}
			continue
		}
		if err := ec.AddNamedFinding(lookup, name, d[name]); err != nil {
			return nil, err
		}
	}
	return ec, nil
}

package network

import (
	"strings"

	"github.com/orneryd/markovnet/pkg/errkind"
)

// NetworkType names a family of networks by the constraints its members must
// satisfy and the constraints they may never carry.
type NetworkType struct {
	name      string
	mandatory func() []Constraint
	forbidden []string
}

var (
	BayesianNetwork = &NetworkType{
		name: "BayesianNetwork",
		mandatory: func() []Constraint {
			return []Constraint{NoCycle{}, OnlyDirectedLinks{}, OnlyChanceNodes{}, NoMultipleLinks{}, DistinctVariableNames{}}
		},
		forbidden: []string{"OnlyUndirectedLinks"},
	}

	InfluenceDiagram = &NetworkType{
		name: "InfluenceDiagram",
		mandatory: func() []Constraint {
			return []Constraint{NoCycle{}, OnlyDirectedLinks{}, NoUtilityParent{}, NoMultipleLinks{}}
		},
		forbidden: []string{"OnlyUndirectedLinks", "OnlyChanceNodes"},
	}

	MarkovNetwork = &NetworkType{
		name: "MarkovNetwork",
		mandatory: func() []Constraint {
			return []Constraint{OnlyUndirectedLinks{}, OnlyChanceNodes{}, NoMultipleLinks{}}
		},
		forbidden: []string{"OnlyDirectedLinks", "NoCycle"},
	}
)

var networkTypes = []*NetworkType{BayesianNetwork, InfluenceDiagram, MarkovNetwork}

// Name returns the type name.
func (t *NetworkType) Name() string { return t.name }

func (t *NetworkType) String() string { return t.name }

// MandatoryConstraints returns fresh instances of the constraints every network
// of this type carries.
func (t *NetworkType) MandatoryConstraints() []Constraint { return t.mandatory() }

// IsApplicable reports whether c may be added to a network of this type.
func (t *NetworkType) IsApplicable(c Constraint) bool {
	for _, name := range t.forbidden {
		if c.Name() == name {
			return false
		}
	}
	return true
}

func (t *NetworkType) isMandatory(c Constraint) bool {
	for _, m := range t.mandatory() {
		if m.Name() == c.Name() {
			return true
		}
	}
	return false
}

// ParseNetworkType finds a network type by name, ignoring case.
func ParseNetworkType(name string) (*NetworkType, error) {
	for _, t := range networkTypes {
		if strings.EqualFold(t.name, name) {
			return t, nil
		}
	}
	return nil, errkind.New(errkind.InvalidArgument, "unknown network type %q", name)
}

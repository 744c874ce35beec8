// Package potential defines the functions over variables that make up a network:
// conditional probability tables, joint tables, utilities and the compact
// deterministic, uniform and linear forms.
//
// Every potential can be projected onto evidence (TableProject) to obtain plain
// TablePotentials, which is what the inference algebra consumes.
package potential

import (
	"strings"

	"github.com/orneryd/markovnet/pkg/evidence"
	"github.com/orneryd/markovnet/pkg/variable"
)

// Role is what a potential stands for in a network.
type Role int

const (
	ConditionalProbability Role = iota
	JointProbability
	Utility
	Policy
	LinkRestriction
	Unspecified
)

var roleNames = [...]string{
	ConditionalProbability: "conditionalProbability",
	JointProbability:       "jointProbability",
	Utility:                "utility",
	Policy:                 "policy",
	LinkRestriction:        "linkRestriction",
	Unspecified:            "unspecified",
}

func (r Role) String() string {
	if int(r) < 0 || int(r) >= len(roleNames) {
		return "unknown"
	}
	return roleNames[r]
}

// ParseRole is the inverse of Role.String. Empty strings map to Unspecified.
func ParseRole(s string) (Role, bool) {
	if s == "" {
		return Unspecified, true
	}
	for i, name := range roleNames {
		if strings.EqualFold(name, s) {
			return Role(i), true
		}
	}
	return Unspecified, false
}

// Type is the representation of a potential.
type Type int

const (
	Table Type = iota
	Delta
	Uniform
	Linear
)

func (t Type) String() string {
	switch t {
	case Table:
		return "table"
	case Delta:
		return "delta"
	case Uniform:
		return "uniform"
	case Linear:
		return "linear"
	}
	return "unknown"
}

// Potential is a function over an ordered list of variables.
//
// For conditional probabilities the first variable is the conditioned one; utility
// potentials carry their utility variable separately.
type Potential interface {
	evidence.Inducer

	Variables() []*variable.Variable
	NumVariables() int
	Role() Role
	Type() Type

	UtilityVariable() *variable.Variable
	SetUtilityVariable(v *variable.Variable)
	// ConditionedVariable returns the first variable, or nil.
	ConditionedVariable() *variable.Variable
	IsUtility() bool

	Contains(v *variable.Variable) bool
	// ReplaceVariable swaps the variable at the position of old by replacement.
	ReplaceVariable(old, replacement *variable.Variable) error

	// TableProject restricts the potential to the evidence, returning one or
	// more tables over the unobserved variables.
	TableProject(ec *evidence.Case) ([]*TablePotential, error)

	Copy() Potential
	Comment() string
	SetComment(comment string)
	String() string
}

// base carries the state shared by every potential.
type base struct {
	variables       []*variable.Variable
	role            Role
	utilityVariable *variable.Variable
	comment         string
}

func newBase(vars []*variable.Variable, role Role) base {
	return base{variables: append([]*variable.Variable(nil), vars...), role: role}
}

func (b *base) Variables() []*variable.Variable {
	return append([]*variable.Variable(nil), b.variables...)
}

func (b *base) NumVariables() int { return len(b.variables) }

func (b *base) Role() Role { return b.role }

func (b *base) UtilityVariable() *variable.Variable { return b.utilityVariable }

func (b *base) SetUtilityVariable(v *variable.Variable) {
	b.utilityVariable = v
	if v != nil {
		b.role = Utility
	}
}

func (b *base) ConditionedVariable() *variable.Variable {
	if len(b.variables) == 0 {
		return nil
	}
	return b.variables[0]
}

func (b *base) IsUtility() bool { return b.role == Utility || b.utilityVariable != nil }

func (b *base) Contains(v *variable.Variable) bool { return indexOf(b.variables, v) >= 0 }

func (b *base) Comment() string { return b.comment }

func (b *base) SetComment(comment string) { b.comment = comment }

func (b *base) replaceVariable(old, replacement *variable.Variable) bool {
	if b.utilityVariable.Equal(old) {
		b.utilityVariable = replacement
		return true
	}
	i := indexOf(b.variables, old)
	if i < 0 {
		return false
	}
	b.variables[i] = replacement
	return true
}

func (b *base) copyBase() base {
	c := *b
	c.variables = append([]*variable.Variable(nil), b.variables...)
	return c
}

// label renders "P(A | B, C)" for probabilities and "U(U | A)" for utilities.
func (b *base) label() string {
	var sb strings.Builder
	vars := b.variables
	switch {
	case b.IsUtility():
		sb.WriteString("U(")
		if b.utilityVariable != nil {
			sb.WriteString(b.utilityVariable.Name())
			if len(vars) > 0 {
				sb.WriteString(" | ")
			}
		}
		sb.WriteString(joinNames(vars))
	case b.role == ConditionalProbability && len(vars) > 1:
		sb.WriteString("P(")
		sb.WriteString(vars[0].Name())
		sb.WriteString(" | ")
		sb.WriteString(joinNames(vars[1:]))
	default:
		sb.WriteString("P(")
		sb.WriteString(joinNames(vars))
	}
	sb.WriteString(")")
	return sb.String()
}

func joinNames(vars []*variable.Variable) string {
	names := make([]string, len(vars))
	for i, v := range vars {
		names[i] = v.Name()
	}
	return strings.Join(names, ", ")
}

func indexOf(vars []*variable.Variable, v *variable.Variable) int {
	for i, candidate := range vars {
		if candidate.Equal(v) {
			return i
		}
	}
	return -1
}

// IndexOf returns the position of v in vars, or -1.
func IndexOf(vars []*variable.Variable, v *variable.Variable) int { return indexOf(vars, v) }

// Union returns the variables of every potential in order of first appearance.
func Union(potentials []Potential) []*variable.Variable {
	var vars []*variable.Variable
	seen := make(map[string]bool)
	for _, p := range potentials {
		for _, v := range p.Variables() {
			if !seen[v.Name()] {
				seen[v.Name()] = true
				vars = append(vars, v)
			}
		}
	}
	return vars
}

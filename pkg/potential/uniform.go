package potential

import (
	"github.com/orneryd/markovnet/pkg/errkind"
	"github.com/orneryd/markovnet/pkg/evidence"
	"github.com/orneryd/markovnet/pkg/variable"
)

// UniformPotential gives every configuration the same value.
type UniformPotential struct {
	base
}

// NewUniformPotential creates a uniform potential.
func NewUniformPotential(vars []*variable.Variable, role Role) *UniformPotential {
	return &UniformPotential{base: newBase(vars, role)}
}

// Type returns Uniform.
func (u *UniformPotential) Type() Type { return Uniform }

// TableProject returns a uniform table over the unobserved variables.
//
// An observed conditioned variable yields the constant 1/numStates (nothing at
// all for numeric variables). An unobserved numeric conditioned variable can not
// be tabulated.
func (u *UniformPotential) TableProject(ec *evidence.Case) ([]*TablePotential, error) {
	free := u.variables
	if ec != nil {
		free = ec.RemainingVariables(u.variables)
	}
	switch u.role {
	case ConditionalProbability, JointProbability, Policy:
		if len(u.variables) == 0 {
			return []*TablePotential{NewConstant(1)}, nil
		}
		conditioned := u.variables[0]
		if ec != nil && ec.Contains(conditioned) {
			if conditioned.Type() == variable.Numeric {
				return nil, nil
			}
			return []*TablePotential{NewConstant(1 / float64(conditioned.NumStates()))}, nil
		}
		if conditioned.Type() == variable.Numeric {
			return nil, errkind.New(errkind.NonProjectable,
				"numeric variable %s makes it impossible to project %s into a table", conditioned.Name(), u.label())
		}
		t := NewTablePotential(free, u.role)
		return []*TablePotential{t}, nil
	case Utility:
		t := NewTablePotential(free, Utility)
		t.utilityVariable = u.utilityVariable
		return []*TablePotential{t}, nil
	}
	return nil, nil
}

// InducedFindings returns nothing.
func (u *UniformPotential) InducedFindings(*evidence.Case, float64) ([]*evidence.Finding, error) {
	return nil, nil
}

// ReplaceVariable swaps a variable.
func (u *UniformPotential) ReplaceVariable(old, replacement *variable.Variable) error {
	if !u.replaceVariable(old, replacement) {
		return errkind.New(errkind.InvalidArgument, "%s is not in %s", old.Name(), u.label())
	}
	return nil
}

// Copy returns an independent uniform potential.
func (u *UniformPotential) Copy() Potential {
	return &UniformPotential{base: u.copyBase()}
}

func (u *UniformPotential) String() string { return u.label() + " = Uniform" }

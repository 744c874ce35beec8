package potential

import (
	"strconv"
	"strings"

	"github.com/orneryd/markovnet/pkg/errkind"
	"github.com/orneryd/markovnet/pkg/evidence"
	"github.com/orneryd/markovnet/pkg/variable"
)

// LinearPotential computes intercept + Σ coefficient·value over its covariates.
//
// For probabilities the first variable is the child and the rest are covariates;
// the child takes the computed value deterministically. For utilities every
// variable is a covariate.
type LinearPotential struct {
	base

	intercept    float64
	coefficients []float64
}

// NewLinearPotential creates a linear potential. coefficients has one entry per
// covariate.
func NewLinearPotential(vars []*variable.Variable, role Role, intercept float64, coefficients []float64) (*LinearPotential, error) {
	l := &LinearPotential{base: newBase(vars, role), intercept: intercept}
	if n := len(l.covariates()); len(coefficients) != n {
		return nil, errkind.New(errkind.InvalidArgument, "%s needs %d coefficients, got %d", l.label(), n, len(coefficients))
	}
	l.coefficients = append([]float64(nil), coefficients...)
	return l, nil
}

// NewLinearUtility creates a linear utility over covariates.
func NewLinearUtility(utility *variable.Variable, covariates []*variable.Variable, intercept float64, coefficients []float64) (*LinearPotential, error) {
	l := &LinearPotential{base: newBase(covariates, Utility), intercept: intercept}
	l.utilityVariable = utility
	if len(coefficients) != len(covariates) {
		return nil, errkind.New(errkind.InvalidArgument, "%s needs %d coefficients, got %d", l.label(), len(covariates), len(coefficients))
	}
	l.coefficients = append([]float64(nil), coefficients...)
	return l, nil
}

// Type returns Linear.
func (l *LinearPotential) Type() Type { return Linear }

// Intercept returns the constant term.
func (l *LinearPotential) Intercept() float64 { return l.intercept }

// Coefficients returns a copy of the covariate weights.
func (l *LinearPotential) Coefficients() []float64 { return append([]float64(nil), l.coefficients...) }

func (l *LinearPotential) covariates() []*variable.Variable {
	if l.utilityVariable != nil || len(l.variables) == 0 {
		return l.variables
	}
	return l.variables[1:]
}

// StateValue returns the number a state stands for: its name parsed as a number,
// or its index when the name is not numeric.
func StateValue(v *variable.Variable, stateIndex int) float64 {
	s, err := v.State(stateIndex)
	if err == nil {
		if value, err := strconv.ParseFloat(strings.TrimSpace(s.Name), 64); err == nil {
			return value
		}
	}
	return float64(stateIndex)
}

func findingValue(f *evidence.Finding) float64 {
	if f.HasNumericalValue() {
		return f.NumericalValue()
	}
	return StateValue(f.Variable(), f.StateIndex())
}

// TableProject evaluates the regression for every configuration of the
// unobserved covariates. With every covariate observed the result collapses to a
// constant (numeric child or utility) or a one-hot table over the child.
func (l *LinearPotential) TableProject(ec *evidence.Case) ([]*TablePotential, error) {
	covariates := l.covariates()
	var free []int
	sum := l.intercept
	for i, v := range covariates {
		var f *evidence.Finding
		if ec != nil {
			f = ec.Finding(v)
		}
		if f != nil {
			sum += l.coefficients[i] * findingValue(f)
			continue
		}
		if v.Type() == variable.Numeric {
			return nil, errkind.New(errkind.NonProjectable,
				"can not project %s with unobserved numeric variable %s", l.label(), v.Name())
		}
		free = append(free, i)
	}

	var child *variable.Variable
	if l.utilityVariable == nil && len(l.variables) > 0 {
		child = l.variables[0]
	}
	numericResult := child == nil || child.Type() == variable.Numeric
	if len(free) == 0 && numericResult {
		c := NewConstant(sum)
		c.role = l.role
		c.utilityVariable = l.utilityVariable
		return []*TablePotential{c}, nil
	}

	vars := make([]*variable.Variable, 0, len(free)+1)
	if child != nil {
		vars = append(vars, child)
	}
	for _, i := range free {
		vars = append(vars, covariates[i])
	}
	t := newTable(vars, l.role)
	t.utilityVariable = l.utilityVariable

	childStates := 1
	if child != nil {
		childStates = child.NumStates()
	}
	freeVars := vars[len(vars)-len(free):]
	freeDims := make([]int, len(free))
	for k, v := range freeVars {
		freeDims[k] = v.NumStates()
	}
	coords := make([]int, len(free))
	for pos := 0; pos < len(t.values); pos += childStates {
		regression := sum
		for k, i := range free {
			regression += l.coefficients[i] * StateValue(freeVars[k], coords[k])
		}
		if numericResult {
			t.values[pos] = regression
		} else {
			idx, err := child.StateIndexForValue(regression)
			if err != nil {
				return nil, errkind.Wrap(errkind.NonProjectable, err, "%s", l.label())
			}
			t.values[pos+idx] = 1
		}
		Advance(coords, freeDims)
	}
	return []*TablePotential{t}, nil
}

// InducedFindings returns nothing.
func (l *LinearPotential) InducedFindings(*evidence.Case, float64) ([]*evidence.Finding, error) {
	return nil, nil
}

// ReplaceVariable swaps a variable; coefficients stay with their position.
func (l *LinearPotential) ReplaceVariable(old, replacement *variable.Variable) error {
	if !l.replaceVariable(old, replacement) {
		return errkind.New(errkind.InvalidArgument, "%s is not in %s", old.Name(), l.label())
	}
	return nil
}

// Copy returns an independent linear potential.
func (l *LinearPotential) Copy() Potential {
	c := *l
	c.base = l.copyBase()
	c.coefficients = append([]float64(nil), l.coefficients...)
	return &c
}

func (l *LinearPotential) String() string {
	var sb strings.Builder
	sb.WriteString(l.label())
	sb.WriteString(" = ")
	sb.WriteString(variable.FormatValue(l.intercept))
	for i, v := range l.covariates() {
		sb.WriteString(" + ")
		sb.WriteString(variable.FormatValue(l.coefficients[i]))
		sb.WriteString("*")
		sb.WriteString(v.Name())
	}
	return sb.String()
}

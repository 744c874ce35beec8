package potential

import (
	"math"

	"github.com/orneryd/markovnet/pkg/errkind"
	"github.com/orneryd/markovnet/pkg/evidence"
	"github.com/orneryd/markovnet/pkg/variable"
)

// DeltaPotential fixes its conditioned variable to one state, or to one number
// for numeric variables.
type DeltaPotential struct {
	base

	stateIndex   int
	numericValue float64
}

// NewDeltaPotential creates a delta on the first state of v, or on the minimum
// of its interval when v is numeric.
func NewDeltaPotential(v *variable.Variable, role Role) *DeltaPotential {
	d := &DeltaPotential{base: newBase([]*variable.Variable{v}, role), stateIndex: -1, numericValue: math.NaN()}
	if v.Type() == variable.Numeric {
		if p := v.PartitionedInterval(); p != nil {
			d.numericValue = p.Min()
		}
	} else {
		d.stateIndex = 0
	}
	return d
}

// NewDeltaState creates a delta on the named state of v.
func NewDeltaState(v *variable.Variable, stateName string, role Role) (*DeltaPotential, error) {
	d := NewDeltaPotential(v, role)
	if err := d.SetState(stateName); err != nil {
		return nil, err
	}
	return d, nil
}

// NewDeltaValue creates a delta on a numeric value.
func NewDeltaValue(v *variable.Variable, value float64, role Role) *DeltaPotential {
	d := NewDeltaPotential(v, role)
	d.SetNumericValue(value)
	return d
}

// Type returns Delta.
func (d *DeltaPotential) Type() Type { return Delta }

// StateIndex returns the fixed state, or -1 for a numeric delta.
func (d *DeltaPotential) StateIndex() int { return d.stateIndex }

// NumericValue returns the fixed number, NaN for a state delta.
func (d *DeltaPotential) NumericValue() float64 { return d.numericValue }

// SetState fixes the conditioned variable to a named state.
func (d *DeltaPotential) SetState(stateName string) error {
	idx, err := d.variables[0].StateIndex(stateName)
	if err != nil {
		return err
	}
	d.stateIndex = idx
	d.numericValue = math.NaN()
	return nil
}

// SetNumericValue fixes the conditioned variable to a number.
func (d *DeltaPotential) SetNumericValue(value float64) {
	d.numericValue = value
	d.stateIndex = -1
}

func (d *DeltaPotential) finding() (*evidence.Finding, error) {
	if d.stateIndex >= 0 {
		return evidence.NewStateFinding(d.variables[0], d.stateIndex)
	}
	return evidence.NewNumericFinding(d.variables[0], d.numericValue)
}

// TableProject returns a one-hot table over the conditioned variable, or a
// constant holding the number. When the variable is already observed the
// result is a constant 1 or 0 depending on agreement.
func (d *DeltaPotential) TableProject(ec *evidence.Case) ([]*TablePotential, error) {
	v := d.variables[0]
	if d.stateIndex < 0 {
		return []*TablePotential{NewConstant(d.numericValue)}, nil
	}
	if ec != nil {
		if f := ec.Finding(v); f != nil {
			if f.StateIndex() == d.stateIndex {
				return []*TablePotential{NewConstant(1)}, nil
			}
			return []*TablePotential{NewConstant(0)}, nil
		}
	}
	t := newTable([]*variable.Variable{v}, Unspecified)
	t.values[d.stateIndex] = 1
	return []*TablePotential{t}, nil
}

// InducedFindings returns the fixed value as a finding.
func (d *DeltaPotential) InducedFindings(*evidence.Case, float64) ([]*evidence.Finding, error) {
	f, err := d.finding()
	if err != nil {
		return nil, err
	}
	return []*evidence.Finding{f}, nil
}

// ReplaceVariable swaps a variable. The fixed state is kept by name.
func (d *DeltaPotential) ReplaceVariable(old, replacement *variable.Variable) error {
	var stateName string
	if d.stateIndex >= 0 && d.variables[0].Equal(old) {
		s, err := old.State(d.stateIndex)
		if err != nil {
			return err
		}
		stateName = s.Name
	}
	if !d.replaceVariable(old, replacement) {
		return errkind.New(errkind.InvalidArgument, "%s is not in %s", old.Name(), d.label())
	}
	if stateName != "" {
		return d.SetState(stateName)
	}
	return nil
}

// Copy returns an independent delta.
func (d *DeltaPotential) Copy() Potential {
	c := *d
	c.base = d.copyBase()
	return &c
}

func (d *DeltaPotential) String() string {
	if d.stateIndex >= 0 {
		s, _ := d.variables[0].State(d.stateIndex)
		return d.label() + " = Delta (" + s.Name + ")"
	}
	return d.label() + " = Delta (" + variable.FormatValue(d.numericValue) + ")"
}

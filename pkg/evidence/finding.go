// Package evidence holds observed variable values and the logic that combines them.
//
// A Finding observes one variable, either by state index or by numeric value.
// A Case (evidence case) is a consistent set of findings with at most one finding
// per variable:
//
//	ec := evidence.Empty()
//	f, _ := evidence.NewNamedFinding(rain, "yes")
//	if err := ec.AddFinding(f); err != nil {
//		// IncompatibleEvidence when Rain was already observed with another state
//	}
//
// ExtendEvidence propagates deterministic consequences of the current findings
// through any source of finding inducers, typically a network's potentials.
package evidence

import (
	"math"

	"github.com/orneryd/markovnet/pkg/errkind"
	"github.com/orneryd/markovnet/pkg/variable"
)

// noState marks a finding that only carries a numeric value.
const noState = math.MaxInt

// Finding is an observed value of a variable.
type Finding struct {
	variable       *variable.Variable
	stateIndex     int
	numericalValue float64
	hasNumeric     bool
}

// NewStateFinding observes a state by index.
func NewStateFinding(v *variable.Variable, stateIndex int) (*Finding, error) {
	if stateIndex < 0 || stateIndex >= v.NumStates() {
		return nil, errkind.New(errkind.InvalidState, "state index %d out of range for %s", stateIndex, v.Name())
	}
	return &Finding{variable: v, stateIndex: stateIndex}, nil
}

// NewNamedFinding observes a state by name.
func NewNamedFinding(v *variable.Variable, stateName string) (*Finding, error) {
	idx, err := v.StateIndex(stateName)
	if err != nil {
		return nil, err
	}
	return &Finding{variable: v, stateIndex: idx}, nil
}

// NewNumericFinding observes a numeric value. Discretized variables derive the
// state index from their partition, finite-states variables from the state
// named after the rounded value.
func NewNumericFinding(v *variable.Variable, value float64) (*Finding, error) {
	f := &Finding{variable: v, stateIndex: noState}
	if err := f.SetNumericalValue(value); err != nil {
		return nil, err
	}
	return f, nil
}

// Variable returns the observed variable.
func (f *Finding) Variable() *variable.Variable { return f.variable }

// StateIndex returns the observed state. Numeric variables always report
// state 0, their only state.
func (f *Finding) StateIndex() int {
	if f.stateIndex == noState {
		return 0
	}
	return f.stateIndex
}

// HasNumericalValue reports whether a number was observed.
func (f *Finding) HasNumericalValue() bool { return f.hasNumeric }

// NumericalValue returns the observed number, or the state index when the
// finding was made by state.
func (f *Finding) NumericalValue() float64 {
	if !f.hasNumeric {
		return float64(f.StateIndex())
	}
	return f.numericalValue
}

// SetNumericalValue changes the observed number and recomputes the state.
func (f *Finding) SetNumericalValue(value float64) error {
	switch f.variable.Type() {
	case variable.Discretized, variable.FiniteStates:
		idx, err := f.variable.StateIndexForValue(value)
		if err != nil {
			return err
		}
		f.stateIndex = idx
	case variable.Numeric:
		if p := f.variable.PartitionedInterval(); p != nil && !p.Contains(value) {
			return errkind.New(errkind.InvalidState, "%s does not contain %s", f.variable.Name(), variable.FormatValue(value))
		}
	}
	f.numericalValue = value
	f.hasNumeric = true
	return nil
}

// valid reports whether the state index fits the variable.
func (f *Finding) valid() bool {
	if f.stateIndex == noState {
		return f.hasNumeric
	}
	return f.stateIndex >= 0 && f.stateIndex < f.variable.NumStates()
}

// String renders "Var = state" or "Var = value".
func (f *Finding) String() string {
	if f.variable.Type() == variable.Numeric || (f.hasNumeric && f.variable.Type() != variable.FiniteStates) {
		return f.variable.Name() + " = " + variable.FormatValue(f.numericalValue)
	}
	state, err := f.variable.State(f.stateIndex)
	if err != nil {
		return f.variable.Name() + " = ?"
	}
	return f.variable.Name() + " = " + state.Name
}

// Copy returns an independent finding over the same variable.
func (f *Finding) Copy() *Finding {
	c := *f
	return &c
}

// Package variable models the random quantities of a probabilistic network.
//
// A Variable is either finite-states (a list of named states), numeric (a single
// anonymous state over a continuous range) or discretized (named states, each
// backed by one subinterval of a PartitionedInterval).
//
// Example:
//
//	rain := variable.NewFiniteStates("Rain", "no", "yes")
//	idx, err := rain.StateIndex("yes") // 1, nil
//
//	temp := variable.NewNumericInterval("Temp", -30, 50, true, true, 0.1)
//	temp.Round(21.04) // 21
//
// Variables are identified by name: two variables are Equal when their names
// match. Names of the form "X [n]" carry a time slice n; BaseName returns "X".
package variable

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/orneryd/markovnet/pkg/errkind"
)

// Type is the kind of values a variable takes.
type Type int

const (
	FiniteStates Type = iota
	Numeric
	Discretized
)

// String returns the type name.
func (t Type) String() string {
	switch t {
	case FiniteStates:
		return "finiteStates"
	case Numeric:
		return "numeric"
	case Discretized:
		return "discretized"
	}
	return "unknown"
}

// ParseType is the inverse of Type.String.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(s) {
	case "finitestates", "finite_states", "":
		return FiniteStates, nil
	case "numeric":
		return Numeric, nil
	case "discretized":
		return Discretized, nil
	}
	return FiniteStates, errkind.New(errkind.InvalidArgument, "unknown variable type %q", s)
}

const (
	// NoTimeSlice marks an atemporal variable.
	NoTimeSlice = math.MinInt

	// DefaultPrecision is the rounding step of new numeric variables.
	DefaultPrecision = 0.01
)

// Variable is a random quantity of the network.
type Variable struct {
	name      string
	baseName  string
	timeSlice int

	states    []State
	varType   Type
	interval  *PartitionedInterval
	precision float64

	unit             string
	agent            *StringWithProperties
	decisionCriteria *StringWithProperties
	properties       map[string]string
}

func newVariable(name string) *Variable {
	v := &Variable{
		timeSlice: NoTimeSlice,
		precision: DefaultPrecision,
	}
	v.SetName(name)
	return v
}

// NewFiniteStates creates a finite-states variable with the given state names.
func NewFiniteStates(name string, stateNames ...string) *Variable {
	v := newVariable(name)
	v.states = States(stateNames...)
	v.varType = FiniteStates
	return v
}

// NewFiniteStatesN creates a finite-states variable with states "0".."n-1".
func NewFiniteStatesN(name string, n int) *Variable {
	names := make([]string, n)
	for i := range names {
		names[i] = strconv.Itoa(i)
	}
	return NewFiniteStates(name, names...)
}

// NewNumeric creates a numeric variable over (-inf, +inf).
func NewNumeric(name string) *Variable {
	v := newVariable(name)
	v.varType = Numeric
	v.states = States("")
	v.interval = UnboundedInterval()
	return v
}

// NewNumericInterval creates a numeric variable over a bounded range.
func NewNumericInterval(name string, min, max float64, leftClosed, rightClosed bool, precision float64) *Variable {
	v := NewNumeric(name)
	v.interval = NewInterval(min, max, leftClosed, rightClosed)
	if precision > 0 {
		v.precision = precision
	}
	return v
}

// NewDiscretized creates a discretized variable. There must be exactly one
// state per subinterval.
func NewDiscretized(name string, states []State, interval *PartitionedInterval, precision float64) (*Variable, error) {
	if interval == nil {
		return nil, errkind.New(errkind.InvalidArgument, "discretized variable %s needs an interval", name)
	}
	if len(states) != interval.NumSubintervals() {
		return nil, errkind.New(errkind.InvalidArgument,
			"discretized variable %s has %d states but %d subintervals", name, len(states), interval.NumSubintervals())
	}
	v := newVariable(name)
	v.varType = Discretized
	v.states = append([]State(nil), states...)
	v.interval = interval.Copy()
	if precision > 0 {
		v.precision = precision
	}
	return v, nil
}

// =============================================================================
// Identity
// =============================================================================

// Name returns the full name, including the time slice suffix.
func (v *Variable) Name() string { return v.name }

// BaseName returns the name without the time slice suffix.
func (v *Variable) BaseName() string { return v.baseName }

// TimeSlice returns the slice index or NoTimeSlice.
func (v *Variable) TimeSlice() int { return v.timeSlice }

// IsTemporal reports whether the variable belongs to a time slice.
func (v *Variable) IsTemporal() bool { return v.timeSlice != NoTimeSlice }

// SetName sets the full name. A trailing " [n]" is parsed as the time slice.
func (v *Variable) SetName(name string) {
	v.name = name
	v.baseName = name
	v.timeSlice = NoTimeSlice
	if base, slice, ok := splitTemporalName(name); ok {
		v.baseName = base
		v.timeSlice = slice
	}
}

// SetBaseName changes the base name and rebuilds the full name.
func (v *Variable) SetBaseName(baseName string) {
	v.baseName = baseName
	v.name = temporalName(baseName, v.timeSlice)
}

// SetTimeSlice moves the variable to another slice, keeping name and baseName
// consistent.
func (v *Variable) SetTimeSlice(timeSlice int) {
	v.timeSlice = timeSlice
	v.name = temporalName(v.baseName, timeSlice)
}

// Equal compares variables by name.
func (v *Variable) Equal(other *Variable) bool {
	if v == nil || other == nil {
		return v == other
	}
	return v.name == other.name
}

// String returns the name.
func (v *Variable) String() string {
	if v == nil {
		return "<nil>"
	}
	return v.name
}

func temporalName(baseName string, timeSlice int) string {
	if timeSlice == NoTimeSlice {
		return baseName
	}
	return fmt.Sprintf("%s [%d]", baseName, timeSlice)
}

func splitTemporalName(name string) (string, int, bool) {
	open := strings.LastIndex(name, " [")
	if open < 0 || !strings.HasSuffix(name, "]") {
		return "", 0, false
	}
	slice, err := strconv.Atoi(name[open+2 : len(name)-1])
	if err != nil {
		return "", 0, false
	}
	return name[:open], slice, true
}

// =============================================================================
// States
// =============================================================================

// States returns a copy of the states.
func (v *Variable) States() []State { return append([]State(nil), v.states...) }

// NumStates returns the number of states.
func (v *Variable) NumStates() int { return len(v.states) }

// StateNames returns the state names in order.
func (v *Variable) StateNames() []string {
	names := make([]string, len(v.states))
	for i, s := range v.states {
		names[i] = s.Name
	}
	return names
}

// State returns state i.
func (v *Variable) State(i int) (State, error) {
	if i < 0 || i >= len(v.states) {
		return State{}, errkind.New(errkind.InvalidState, "state index %d out of range for %s", i, v.name)
	}
	return v.states[i], nil
}

// SetStates replaces the states. Discretized variables get a default interval
// when the number of states no longer matches the partition.
func (v *Variable) SetStates(states []State) {
	v.states = append([]State(nil), states...)
	if v.varType == Discretized && (v.interval == nil || v.interval.NumSubintervals() != len(states)) {
		v.interval = DefaultInterval(len(states), v.precision)
	}
}

// StateIndex returns the index of the state with the given name.
func (v *Variable) StateIndex(name string) (int, error) {
	for i, s := range v.states {
		if s.Name == name {
			return i, nil
		}
	}
	return -1, errkind.New(errkind.InvalidState, "%s has no state %q", v.name, name)
}

// StateIndexOf returns the index of a state.
func (v *Variable) StateIndexOf(state State) (int, error) {
	return v.StateIndex(state.Name)
}

// StateIndexForValue maps a number to a state index. Finite-states variables look
// for the state named after the rounded value; the others use the partition.
func (v *Variable) StateIndexForValue(value float64) (int, error) {
	if v.varType == FiniteStates {
		return v.StateIndex(FormatValue(v.Round(value)))
	}
	if v.interval == nil {
		return -1, errkind.New(errkind.InvalidState, "%s has no interval", v.name)
	}
	idx := v.interval.IndexOfSubinterval(value)
	if idx < 0 {
		return -1, errkind.New(errkind.InvalidState, "%s does not contain %s", v.name, FormatValue(value))
	}
	return idx, nil
}

// RenameState renames a state. Duplicate names are rejected.
func (v *Variable) RenameState(oldName, newName string) error {
	idx, err := v.StateIndex(oldName)
	if err != nil {
		return err
	}
	if oldName == newName {
		return nil
	}
	if _, err := v.StateIndex(newName); err == nil {
		return errkind.New(errkind.InvalidArgument, "%s already has a state %q", v.name, newName)
	}
	v.states[idx].Name = newName
	return nil
}

// =============================================================================
// Type, interval and precision
// =============================================================================

// Type returns the variable type.
func (v *Variable) Type() Type { return v.varType }

// SetType changes the variable type.
//
// Numeric variables get a single anonymous state over a default partition;
// discretized variables get a default partition with one subinterval per state.
func (v *Variable) SetType(t Type) {
	v.varType = t
	switch t {
	case Numeric:
		v.states = States("")
		if v.interval == nil || v.interval.NumSubintervals() != 1 {
			v.interval = UnboundedInterval()
		}
	case Discretized:
		v.interval = DefaultInterval(len(v.states), v.precision)
	}
}

// PartitionedInterval returns the backing partition (nil for finite states).
func (v *Variable) PartitionedInterval() *PartitionedInterval { return v.interval }

// SetPartitionedInterval replaces the partition.
func (v *Variable) SetPartitionedInterval(p *PartitionedInterval) error {
	if v.varType == Discretized && p != nil && p.NumSubintervals() != len(v.states) {
		return errkind.New(errkind.InvalidArgument,
			"%s has %d states but the interval has %d subintervals", v.name, len(v.states), p.NumSubintervals())
	}
	v.interval = p
	return nil
}

// Precision returns the rounding step.
func (v *Variable) Precision() float64 { return v.precision }

// SetPrecision sets the rounding step. Non-positive values are ignored.
func (v *Variable) SetPrecision(precision float64) {
	if precision > 0 {
		v.precision = precision
	}
}

// Round snaps value to the nearest multiple of the precision.
func (v *Variable) Round(value float64) float64 {
	if v.precision <= 0 || math.IsInf(value, 0) || math.IsNaN(value) {
		return value
	}
	snapped := math.Round(value/v.precision) * v.precision
	// strip the binary noise left by the multiplication (0.30000000000000004)
	cleaned, err := strconv.ParseFloat(strconv.FormatFloat(snapped, 'g', 12, 64), 64)
	if err != nil {
		return snapped
	}
	return cleaned
}

// =============================================================================
// Metadata
// =============================================================================

// Unit returns the measurement unit.
func (v *Variable) Unit() string { return v.unit }

// SetUnit sets the measurement unit.
func (v *Variable) SetUnit(unit string) { v.unit = unit }

// Agent returns the owning agent, if any.
func (v *Variable) Agent() *StringWithProperties { return v.agent }

// SetAgent sets the owning agent.
func (v *Variable) SetAgent(agent *StringWithProperties) { v.agent = agent }

// DecisionCriteria returns the criterion of a utility variable.
func (v *Variable) DecisionCriteria() *StringWithProperties { return v.decisionCriteria }

// SetDecisionCriteria sets the criterion of a utility variable.
func (v *Variable) SetDecisionCriteria(c *StringWithProperties) { v.decisionCriteria = c }

// Property returns an additional property.
func (v *Variable) Property(key string) (string, bool) {
	val, ok := v.properties[key]
	return val, ok
}

// SetProperty sets an additional property.
func (v *Variable) SetProperty(key, value string) {
	if v.properties == nil {
		v.properties = make(map[string]string)
	}
	v.properties[key] = value
}

// Copy returns a shallow clone with its own state slice and partition.
func (v *Variable) Copy() *Variable {
	c := *v
	c.states = append([]State(nil), v.states...)
	c.interval = v.interval.Copy()
	if v.properties != nil {
		c.properties = make(map[string]string, len(v.properties))
		for k, val := range v.properties {
			c.properties[k] = val
		}
	}
	return &c
}

package potential

import (
	"fmt"
	"math"
	"strings"

	"github.com/orneryd/markovnet/pkg/errkind"
	"github.com/orneryd/markovnet/pkg/evidence"
	"github.com/orneryd/markovnet/pkg/variable"
)

// TablePotential stores one value per configuration of its variables.
//
// Values are laid out in mixed radix with the first variable varying fastest:
// offsets[0] = 1 and offsets[k] = offsets[k-1] * dimensions[k-1]. A table with no
// variables holds a single constant.
type TablePotential struct {
	base

	values     []float64
	dimensions []int
	offsets    []int
}

// NewTablePotential creates a table initialised according to its role:
// conditional probabilities are uniform over the first variable, joint
// probabilities and policies uniform over the whole table, link restrictions 1
// and utilities 0.
func NewTablePotential(vars []*variable.Variable, role Role) *TablePotential {
	t := newTable(vars, role)
	t.SetUniform()
	return t
}

// NewTablePotentialWithValues creates a table with explicit values. The slice is
// copied.
func NewTablePotentialWithValues(vars []*variable.Variable, role Role, values []float64) (*TablePotential, error) {
	t := newTable(vars, role)
	if len(values) != len(t.values) {
		return nil, errkind.New(errkind.InvalidArgument,
			"%s needs %d values, got %d", t.label(), len(t.values), len(values))
	}
	copy(t.values, values)
	return t, nil
}

// NewConstant creates a table with no variables.
func NewConstant(value float64) *TablePotential {
	t := newTable(nil, JointProbability)
	t.values[0] = value
	return t
}

// DeltaTable creates a conditional table over v that puts all mass on one state.
func DeltaTable(v *variable.Variable, stateName string) (*TablePotential, error) {
	idx, err := v.StateIndex(stateName)
	if err != nil {
		return nil, err
	}
	t := newTable([]*variable.Variable{v}, ConditionalProbability)
	t.values[idx] = 1
	return t, nil
}

func newTable(vars []*variable.Variable, role Role) *TablePotential {
	t := &TablePotential{base: newBase(vars, role)}
	t.dimensions = make([]int, len(vars))
	t.offsets = make([]int, len(vars))
	size := 1
	for i, v := range vars {
		t.offsets[i] = size
		t.dimensions[i] = v.NumStates()
		size *= t.dimensions[i]
	}
	t.values = make([]float64, size)
	return t
}

// Type returns Table.
func (t *TablePotential) Type() Type { return Table }

// Dimensions returns the number of states of each variable.
func (t *TablePotential) Dimensions() []int { return append([]int(nil), t.dimensions...) }

// Offsets returns the stride of each variable.
func (t *TablePotential) Offsets() []int { return append([]int(nil), t.offsets...) }

// Size returns the number of cells.
func (t *TablePotential) Size() int { return len(t.values) }

// Values returns the backing slice. Writes through it modify the table.
func (t *TablePotential) Values() []float64 { return t.values }

// IsConstant reports whether the table has no variables.
func (t *TablePotential) IsConstant() bool { return len(t.variables) == 0 }

// SetUniform resets the values according to the role.
func (t *TablePotential) SetUniform() {
	var value float64
	switch t.role {
	case Utility:
		value = 0
	case LinkRestriction:
		value = 1
	case ConditionalProbability:
		value = 1
		if len(t.dimensions) > 0 && t.dimensions[0] > 0 {
			value = 1 / float64(t.dimensions[0])
		}
	default:
		value = 1 / float64(len(t.values))
	}
	if t.utilityVariable != nil {
		value = 0
	}
	for i := range t.values {
		t.values[i] = value
	}
}

// Position maps a configuration (one state index per variable, in table order)
// to a cell index.
func (t *TablePotential) Position(coords []int) (int, error) {
	if len(coords) != len(t.dimensions) {
		return 0, errkind.New(errkind.InvalidArgument, "%s needs %d coordinates, got %d", t.label(), len(t.dimensions), len(coords))
	}
	pos := 0
	for i, c := range coords {
		if c < 0 || c >= t.dimensions[i] {
			return 0, errkind.New(errkind.InvalidState, "state %d out of range for %s", c, t.variables[i].Name())
		}
		pos += c * t.offsets[i]
	}
	return pos, nil
}

// Configuration is the inverse of Position.
func (t *TablePotential) Configuration(position int) []int {
	coords := make([]int, len(t.dimensions))
	for i := range t.dimensions {
		coords[i] = position % t.dimensions[i]
		position /= t.dimensions[i]
	}
	return coords
}

// Value returns the cell for the given states of vars. vars may be listed in any
// order but must cover the table's variables.
func (t *TablePotential) Value(vars []*variable.Variable, states []int) (float64, error) {
	pos, err := t.positionOf(vars, states)
	if err != nil {
		return 0, err
	}
	return t.values[pos], nil
}

// SetValue writes the cell for the given states of vars.
func (t *TablePotential) SetValue(vars []*variable.Variable, states []int, value float64) error {
	pos, err := t.positionOf(vars, states)
	if err != nil {
		return err
	}
	t.values[pos] = value
	return nil
}

func (t *TablePotential) positionOf(vars []*variable.Variable, states []int) (int, error) {
	if len(vars) != len(states) {
		return 0, errkind.New(errkind.InvalidArgument, "%d variables but %d states", len(vars), len(states))
	}
	coords := make([]int, len(t.variables))
	for i, v := range t.variables {
		j := indexOf(vars, v)
		if j < 0 {
			return 0, errkind.New(errkind.InvalidArgument, "no state given for %s", v.Name())
		}
		coords[i] = states[j]
	}
	return t.Position(coords)
}

// ValueAt returns the cell selected by the findings of ec. Every variable must be
// observed.
func (t *TablePotential) ValueAt(ec *evidence.Case) (float64, error) {
	pos := 0
	for i, v := range t.variables {
		f := ec.Finding(v)
		if f == nil {
			return 0, errkind.New(errkind.NoFinding, "no finding for %s", v.Name())
		}
		pos += f.StateIndex() * t.offsets[i]
	}
	return t.values[pos], nil
}

// AccumulatedOffsets returns, for a walk over vars in mixed radix (first variable
// fastest), how much the position in this table moves when coordinate j is
// incremented and every lower coordinate wraps to 0. Variables of vars absent from
// the table have stride 0.
func (t *TablePotential) AccumulatedOffsets(vars []*variable.Variable) []int {
	acc := make([]int, len(vars))
	prevStride, prevDim := 0, 0
	for j, v := range vars {
		stride := 0
		if i := indexOf(t.variables, v); i >= 0 {
			stride = t.offsets[i]
		}
		if j == 0 {
			acc[j] = stride
		} else {
			acc[j] = acc[j-1] + stride - prevDim*prevStride
		}
		prevStride, prevDim = stride, v.NumStates()
	}
	return acc
}

// Advance increments coords (mixed radix over dims) and returns the index of the
// coordinate that moved, or -1 after the last configuration.
func Advance(coords, dims []int) int {
	for j := range coords {
		coords[j]++
		if coords[j] < dims[j] {
			return j
		}
		coords[j] = 0
	}
	return -1
}

// TableProject restricts the table to the observed variables of ec. The result is
// over the unobserved variables, in table order, and keeps role and utility
// variable.
func (t *TablePotential) TableProject(ec *evidence.Case) ([]*TablePotential, error) {
	if ec == nil || ec.IsEmpty() {
		return []*TablePotential{t.copyTable()}, nil
	}
	var free []*variable.Variable
	start := 0
	for i, v := range t.variables {
		if f := ec.Finding(v); f != nil {
			start += f.StateIndex() * t.offsets[i]
		} else {
			free = append(free, v)
		}
	}
	if len(free) == len(t.variables) {
		return []*TablePotential{t.copyTable()}, nil
	}

	projected := newTable(free, t.role)
	projected.utilityVariable = t.utilityVariable
	projected.comment = t.comment
	acc := t.AccumulatedOffsets(free)
	coords := make([]int, len(free))
	pos := start
	for i := range projected.values {
		projected.values[i] = t.values[pos]
		if j := Advance(coords, projected.dimensions); j >= 0 {
			pos += acc[j]
		}
	}
	return []*TablePotential{projected}, nil
}

// InducedFindings returns nothing: tables do not force values.
func (t *TablePotential) InducedFindings(*evidence.Case, float64) ([]*evidence.Finding, error) {
	return nil, nil
}

// ReplaceVariable swaps old for replacement. When old has a single state and
// replacement several, the values are repeated along the new dimension.
func (t *TablePotential) ReplaceVariable(old, replacement *variable.Variable) error {
	if t.utilityVariable.Equal(old) {
		t.utilityVariable = replacement
		return nil
	}
	i := indexOf(t.variables, old)
	if i < 0 {
		return errkind.New(errkind.InvalidArgument, "%s is not in %s", old.Name(), t.label())
	}
	n := replacement.NumStates()
	switch {
	case n == t.dimensions[i]:
		t.variables[i] = replacement
		return nil
	case t.dimensions[i] != 1:
		return errkind.New(errkind.InvalidArgument,
			"can not replace %s (%d states) by %s (%d states)", old.Name(), t.dimensions[i], replacement.Name(), n)
	}

	vars := append([]*variable.Variable(nil), t.variables...)
	vars[i] = replacement
	widened := newTable(vars, t.role)
	coords := make([]int, len(vars))
	for pos := range widened.values {
		src := 0
		for k, c := range coords {
			if k != i {
				src += c * t.offsets[k]
			}
		}
		widened.values[pos] = t.values[src]
		Advance(coords, widened.dimensions)
	}
	t.variables = widened.variables
	t.dimensions = widened.dimensions
	t.offsets = widened.offsets
	t.values = widened.values
	return nil
}

// Equal compares variables (by name, in order) and values within tolerance.
func (t *TablePotential) Equal(other *TablePotential, tolerance float64) bool {
	if other == nil || len(t.variables) != len(other.variables) || len(t.values) != len(other.values) {
		return false
	}
	for i, v := range t.variables {
		if !v.Equal(other.variables[i]) {
			return false
		}
	}
	for i, x := range t.values {
		if math.Abs(x-other.values[i]) > tolerance {
			return false
		}
	}
	return true
}

// Copy returns a deep copy of the table sharing the variables.
func (t *TablePotential) Copy() Potential { return t.copyTable() }

func (t *TablePotential) copyTable() *TablePotential {
	return &TablePotential{
		base:       t.copyBase(),
		values:     append([]float64(nil), t.values...),
		dimensions: append([]int(nil), t.dimensions...),
		offsets:    append([]int(nil), t.offsets...),
	}
}

// String returns the label, e.g. "P(A | B)".
func (t *TablePotential) String() string { return t.label() }

// Format renders the label followed by one line per configuration.
func (t *TablePotential) Format() string {
	var sb strings.Builder
	sb.WriteString(t.label())
	sb.WriteString("\n")
	coords := make([]int, len(t.variables))
	for _, value := range t.values {
		parts := make([]string, len(t.variables))
		for i, v := range t.variables {
			s, _ := v.State(coords[i])
			parts[i] = fmt.Sprintf("%s=%s", v.Name(), s.Name)
		}
		fmt.Fprintf(&sb, "  [%s] %s\n", strings.Join(parts, " "), variable.FormatValue(value))
		Advance(coords, t.dimensions)
	}
	return sb.String()
}

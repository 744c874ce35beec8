package variable

import (
	"fmt"
	"math"
	"strings"

	"github.com/orneryd/markovnet/pkg/errkind"
)

// PartitionedInterval is an ordered set of adjacent subintervals of the real line.
//
// limits holds numSubintervals+1 ascending bounds. belongsToLeftSide[i] tells
// whether the point limits[i] belongs to the subinterval on its left:
//
//	limits            = [0,    2,     4]
//	belongsToLeftSide = [true, false, true]
//
// is "(0, 2)" followed by "[2, 4]". The interval is left-closed iff
// belongsToLeftSide[0] is false.
type PartitionedInterval struct {
	limits            []float64
	belongsToLeftSide []bool
}

// NewPartitionedInterval validates and builds a partitioned interval.
//
// Limits must be ascending. Two coincident limits describe a single point shared
// by two subintervals, so the left one must exclude it and the right one must
// include it: belongsToLeftSide[i] == false and belongsToLeftSide[i+1] == true.
func NewPartitionedInterval(limits []float64, belongsToLeftSide []bool) (*PartitionedInterval, error) {
	if len(limits) < 2 {
		return nil, errkind.New(errkind.InvalidArgument, "partitioned interval needs at least two limits, got %d", len(limits))
	}
	if len(limits) != len(belongsToLeftSide) {
		return nil, errkind.New(errkind.InvalidArgument,
			"limits and belongsToLeftSide differ in length (%d != %d)", len(limits), len(belongsToLeftSide))
	}
	for i := 0; i < len(limits)-1; i++ {
		if math.IsNaN(limits[i]) || limits[i] > limits[i+1] {
			return nil, errkind.New(errkind.InvalidArgument, "limits not ascending at position %d", i)
		}
		if limits[i] == limits[i+1] && (belongsToLeftSide[i] || !belongsToLeftSide[i+1]) {
			return nil, errkind.New(errkind.InvalidArgument,
				"coincident limits at position %d must be open on the left subinterval", i)
		}
	}
	return &PartitionedInterval{
		limits:            append([]float64(nil), limits...),
		belongsToLeftSide: append([]bool(nil), belongsToLeftSide...),
	}, nil
}

// NewInterval builds a partitioned interval with a single subinterval.
func NewInterval(min, max float64, leftClosed, rightClosed bool) *PartitionedInterval {
	if min > max {
		min, max = max, min
	}
	return &PartitionedInterval{
		limits:            []float64{min, max},
		belongsToLeftSide: []bool{!leftClosed, rightClosed},
	}
}

// UnboundedInterval returns (-inf, +inf).
func UnboundedInterval() *PartitionedInterval {
	return NewInterval(math.Inf(-1), math.Inf(1), false, false)
}

// DefaultInterval returns the partition used when a variable with numStates
// states becomes discretized: -inf, 0, precision, 2*precision, ..., +inf.
func DefaultInterval(numStates int, precision float64) *PartitionedInterval {
	if numStates < 1 {
		numStates = 1
	}
	limits := make([]float64, numStates+1)
	belongs := make([]bool, numStates+1)
	limits[0] = math.Inf(-1)
	belongs[0] = true
	for i := 1; i < numStates; i++ {
		limits[i] = float64(i-1) * precision
	}
	limits[numStates] = math.Inf(1)
	return &PartitionedInterval{limits: limits, belongsToLeftSide: belongs}
}

// NumSubintervals returns len(limits)-1.
func (p *PartitionedInterval) NumSubintervals() int {
	return len(p.limits) - 1
}

// Limits returns a copy of the limits.
func (p *PartitionedInterval) Limits() []float64 {
	return append([]float64(nil), p.limits...)
}

// BelongsToLeftSide returns a copy of the boundary flags.
func (p *PartitionedInterval) BelongsToLeftSide() []bool {
	return append([]bool(nil), p.belongsToLeftSide...)
}

// Min returns the lowest limit.
func (p *PartitionedInterval) Min() float64 { return p.limits[0] }

// Max returns the highest limit.
func (p *PartitionedInterval) Max() float64 { return p.limits[len(p.limits)-1] }

// IsLeftClosed reports whether Min belongs to the interval.
func (p *PartitionedInterval) IsLeftClosed() bool { return !p.belongsToLeftSide[0] }

// IsRightClosed reports whether Max belongs to the interval.
func (p *PartitionedInterval) IsRightClosed() bool {
	return p.belongsToLeftSide[len(p.belongsToLeftSide)-1]
}

// Contains reports whether x lies inside the whole interval.
func (p *PartitionedInterval) Contains(x float64) bool {
	n := len(p.limits) - 1
	return (p.limits[0] < x && x < p.limits[n]) ||
		(x == p.limits[0] && !p.belongsToLeftSide[0]) ||
		(x == p.limits[n] && p.belongsToLeftSide[n])
}

// IndexOfSubinterval returns the subinterval holding x, or -1.
func (p *PartitionedInterval) IndexOfSubinterval(x float64) int {
	for i := 0; i < len(p.limits)-1; i++ {
		lo, hi := p.limits[i], p.limits[i+1]
		if (lo < x && x < hi) ||
			(x == lo && !p.belongsToLeftSide[i]) ||
			(x == hi && p.belongsToLeftSide[i+1]) {
			return i
		}
	}
	return -1
}

// RemoveSubinterval merges subinterval index with its right neighbour by
// dropping limit index+1.
func (p *PartitionedInterval) RemoveSubinterval(index int) error {
	if index < 0 || index >= p.NumSubintervals()-1 {
		return errkind.New(errkind.InvalidArgument,
			"cannot remove subinterval %d of %d", index, p.NumSubintervals())
	}
	drop := index + 1
	p.limits = append(p.limits[:drop:drop], p.limits[drop+1:]...)
	p.belongsToLeftSide = append(p.belongsToLeftSide[:drop:drop], p.belongsToLeftSide[drop+1:]...)
	return nil
}

// ChangeLimit moves limit i, keeping the ordering invariant.
func (p *PartitionedInterval) ChangeLimit(i int, value float64, belongsToLeft bool) error {
	if i < 0 || i >= len(p.limits) {
		return errkind.New(errkind.InvalidArgument, "limit %d out of range", i)
	}
	limits := p.Limits()
	belongs := p.BelongsToLeftSide()
	limits[i] = value
	belongs[i] = belongsToLeft
	checked, err := NewPartitionedInterval(limits, belongs)
	if err != nil {
		return err
	}
	*p = *checked
	return nil
}

// SubintervalString renders subinterval i with bracket notation, e.g. "[2, 4]".
func (p *PartitionedInterval) SubintervalString(i int) string {
	left := "("
	if !p.belongsToLeftSide[i] {
		left = "["
	}
	right := ")"
	if p.belongsToLeftSide[i+1] {
		right = "]"
	}
	return fmt.Sprintf("%s%s, %s%s", left, FormatValue(p.limits[i]), FormatValue(p.limits[i+1]), right)
}

// String renders every subinterval.
func (p *PartitionedInterval) String() string {
	parts := make([]string, p.NumSubintervals())
	for i := range parts {
		parts[i] = p.SubintervalString(i)
	}
	return strings.Join(parts, " ")
}

// Equal compares limits and flags.
func (p *PartitionedInterval) Equal(other *PartitionedInterval) bool {
	if other == nil || len(p.limits) != len(other.limits) {
		return false
	}
	for i := range p.limits {
		if p.limits[i] != other.limits[i] || p.belongsToLeftSide[i] != other.belongsToLeftSide[i] {
			return false
		}
	}
	return true
}

// Copy returns a deep copy.
func (p *PartitionedInterval) Copy() *PartitionedInterval {
	if p == nil {
		return nil
	}
	return &PartitionedInterval{limits: p.Limits(), belongsToLeftSide: p.BelongsToLeftSide()}
}

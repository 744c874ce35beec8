package variable

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/markovnet/pkg/errkind"
)

// =============================================================================
// Construction
// =============================================================================

func TestNewPartitionedInterval(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		p, err := NewPartitionedInterval([]float64{0, 2, 4}, []bool{true, false, true})
		require.NoError(t, err)
		assert.Equal(t, 2, p.NumSubintervals())
		assert.Equal(t, 0.0, p.Min())
		assert.Equal(t, 4.0, p.Max())
		assert.False(t, p.IsLeftClosed())
		assert.True(t, p.IsRightClosed())
	})

	t.Run("length mismatch", func(t *testing.T) {
		_, err := NewPartitionedInterval([]float64{0, 1}, []bool{true})
		assert.True(t, errkind.Is(err, errkind.InvalidArgument))
	})

	t.Run("descending limits", func(t *testing.T) {
		_, err := NewPartitionedInterval([]float64{0, 3, 1}, []bool{false, false, true})
		assert.Error(t, err)
	})

	t.Run("coincident limits must not double count", func(t *testing.T) {
		_, err := NewPartitionedInterval([]float64{0, 1, 1, 2}, []bool{false, true, true, true})
		assert.Error(t, err)

		p, err := NewPartitionedInterval([]float64{0, 1, 1, 2}, []bool{false, false, true, true})
		require.NoError(t, err)
		assert.Equal(t, 1, p.IndexOfSubinterval(1))
	})

	t.Run("inputs are copied", func(t *testing.T) {
		limits := []float64{0, 1}
		p, err := NewPartitionedInterval(limits, []bool{false, true})
		require.NoError(t, err)
		limits[0] = -5
		assert.Equal(t, 0.0, p.Min())
	})
}

// =============================================================================
// Membership
// =============================================================================

func TestPartitionedIntervalScenario(t *testing.T) {
	p, err := NewPartitionedInterval([]float64{0, 2, 4}, []bool{true, false, true})
	require.NoError(t, err)

	assert.True(t, p.Contains(2.0))
	assert.Equal(t, 1, p.IndexOfSubinterval(2.0))
	assert.Equal(t, 0, p.IndexOfSubinterval(math.Nextafter(2.0, 0)))
	assert.Equal(t, 1, p.IndexOfSubinterval(4.0))
	assert.Equal(t, -1, p.IndexOfSubinterval(0.0))
	assert.Equal(t, -1, p.IndexOfSubinterval(4.5))
	assert.False(t, p.Contains(0.0))
	assert.Equal(t, "(0, 2) [2, 4]", p.String())
}

func TestBoundaryExclusivity(t *testing.T) {
	limits := []float64{-1, 0, 0.5, 3, 10}
	for mask := 0; mask < 1<<len(limits); mask++ {
		belongs := make([]bool, len(limits))
		for i := range belongs {
			belongs[i] = mask&(1<<i) != 0
		}
		p, err := NewPartitionedInterval(limits, belongs)
		require.NoError(t, err)

		// inner limits always land in exactly one of the two touching subintervals
		for i := 1; i < len(limits)-1; i++ {
			idx := p.IndexOfSubinterval(limits[i])
			if belongs[i] {
				assert.Equal(t, i-1, idx, "mask %b limit %d", mask, i)
			} else {
				assert.Equal(t, i, idx, "mask %b limit %d", mask, i)
			}
		}
	}
}

// =============================================================================
// Mutation
// =============================================================================

func TestRemoveSubinterval(t *testing.T) {
	p, err := NewPartitionedInterval([]float64{0, 1, 2, 3}, []bool{false, false, false, true})
	require.NoError(t, err)

	require.NoError(t, p.RemoveSubinterval(0))
	assert.Equal(t, []float64{0, 2, 3}, p.Limits())
	assert.Equal(t, 2, p.NumSubintervals())
	assert.Equal(t, 0, p.IndexOfSubinterval(1.5))

	assert.Error(t, p.RemoveSubinterval(1), "last subinterval has no right neighbour")
	assert.Error(t, p.RemoveSubinterval(-1))
}

func TestChangeLimit(t *testing.T) {
	p := NewInterval(0, 10, true, false)

	require.NoError(t, p.ChangeLimit(1, 20, true))
	assert.Equal(t, 20.0, p.Max())
	assert.True(t, p.IsRightClosed())

	assert.Error(t, p.ChangeLimit(0, 30, false), "would break ordering")
	assert.Equal(t, 0.0, p.Min())
}

func TestDefaultInterval(t *testing.T) {
	p := DefaultInterval(3, 0.5)
	assert.Equal(t, []float64{math.Inf(-1), 0, 0.5, math.Inf(1)}, p.Limits())
	assert.Equal(t, 3, p.NumSubintervals())
	assert.Equal(t, 1, p.IndexOfSubinterval(0))
	assert.True(t, p.Copy().Equal(p))
}

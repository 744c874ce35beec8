package algebra

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/markovnet/pkg/errkind"
	"github.com/orneryd/markovnet/pkg/evidence"
	"github.com/orneryd/markovnet/pkg/pool"
	"github.com/orneryd/markovnet/pkg/potential"
	"github.com/orneryd/markovnet/pkg/variable"
)

func vars(vs ...*variable.Variable) []*variable.Variable { return vs }

func table(t *testing.T, vs []*variable.Variable, values ...float64) *potential.TablePotential {
	t.Helper()
	p, err := potential.NewTablePotentialWithValues(vs, potential.JointProbability, values)
	require.NoError(t, err)
	return p
}

func randomTable(r *rand.Rand, vs []*variable.Variable) *potential.TablePotential {
	p := potential.NewTablePotential(vs, potential.JointProbability)
	for i := range p.Values() {
		p.Values()[i] = r.Float64()
	}
	return p
}

// bruteValue evaluates the product of tables at a full assignment.
func bruteValue(t *testing.T, tables []*potential.TablePotential, assignment map[string]int) float64 {
	prod := 1.0
	for _, tb := range tables {
		vs := tb.Variables()
		states := make([]int, len(vs))
		for i, v := range vs {
			states[i] = assignment[v.Name()]
		}
		value, err := tb.Value(vs, states)
		require.NoError(t, err)
		prod *= value
	}
	return prod
}

// =============================================================================
// Partition
// =============================================================================

func TestPartitionCoversRange(t *testing.T) {
	for size := 0; size <= 40; size++ {
		for workers := 1; workers <= 12; workers++ {
			intervals := Partition(size, workers)
			next := 0
			for _, iv := range intervals {
				assert.Equal(t, next, iv.Start, "size %d workers %d", size, workers)
				assert.Positive(t, iv.Len(), "size %d workers %d", size, workers)
				next = iv.End
			}
			assert.Equal(t, size, next, "size %d workers %d", size, workers)
			assert.LessOrEqual(t, len(intervals), workers)
			if len(intervals) > 1 {
				assert.LessOrEqual(t, intervals[0].Len()-intervals[len(intervals)-1].Len(), 1)
			}
		}
	}
}

func TestPartitionRemainderGoesFirst(t *testing.T) {
	assert.Equal(t, []Interval{{0, 4}, {4, 7}, {7, 10}}, Partition(10, 3))
	assert.Equal(t, []Interval{{0, 1}, {1, 2}}, Partition(2, 8))
	assert.Nil(t, Partition(0, 4))
}

func TestStartCoordinate(t *testing.T) {
	coords := make([]int, 3)
	StartCoordinate(11, []int{1, 2, 6}, []int{2, 3, 2}, coords)
	assert.Equal(t, []int{1, 2, 1}, coords)
}

// =============================================================================
// Multiply
// =============================================================================

func TestMultiplyDisjointVariables(t *testing.T) {
	a := variable.NewFiniteStates("A", "a0", "a1")
	b := variable.NewFiniteStates("B", "b0", "b1")
	pa := table(t, vars(a), 0.2, 0.8)
	pb := table(t, vars(b), 0.6, 0.4)

	result, err := Multiply(context.Background(), []*potential.TablePotential{pa, pb}, Params{Workers: 4})
	require.NoError(t, err)
	assert.Equal(t, vars(a, b), result.Variables())
	want := []float64{0.12, 0.48, 0.08, 0.32}
	for i, v := range result.Values() {
		assert.InDelta(t, want[i], v, 1e-12)
	}
}

func TestMultiplyByConstantOne(t *testing.T) {
	a := variable.NewFiniteStates("A", "a0", "a1", "a2")
	pa := table(t, vars(a), 0.1, 0.3, 0.6)

	result, err := Multiply(context.Background(), []*potential.TablePotential{potential.NewConstant(1), pa}, Params{Workers: 2})
	require.NoError(t, err)
	assert.True(t, result.Equal(pa, 0))

	scaled, err := Multiply(context.Background(), []*potential.TablePotential{pa, potential.NewConstant(2), potential.NewConstant(0.5)}, Params{Workers: 1})
	require.NoError(t, err)
	assert.True(t, scaled.Equal(pa, 1e-15))

	only, err := Multiply(context.Background(), []*potential.TablePotential{potential.NewConstant(3), potential.NewConstant(4)}, DefaultParams())
	require.NoError(t, err)
	assert.True(t, only.IsConstant())
	assert.Equal(t, 12.0, only.Values()[0])
}

func TestMultiplyMatchesBruteForce(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	a := variable.NewFiniteStates("A", "0", "1")
	b := variable.NewFiniteStates("B", "0", "1", "2")
	c := variable.NewFiniteStates("C", "0", "1")
	d := variable.NewFiniteStates("D", "0", "1", "2", "3")
	tables := []*potential.TablePotential{
		randomTable(r, vars(b, a)),
		randomTable(r, vars(c, b, d)),
		randomTable(r, vars(d)),
	}

	var reference []float64
	for workers := 1; workers <= 9; workers++ {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			result, err := Multiply(context.Background(), tables, Params{Workers: workers})
			require.NoError(t, err)
			require.Equal(t, vars(b, a, c, d), result.Variables())

			for pos, got := range result.Values() {
				coords := result.Configuration(pos)
				assignment := map[string]int{"B": coords[0], "A": coords[1], "C": coords[2], "D": coords[3]}
				assert.InDelta(t, bruteValue(t, tables, assignment), got, 1e-12, "pos %d", pos)
			}
			if reference == nil {
				reference = append([]float64(nil), result.Values()...)
			}
			assert.Equal(t, reference, result.Values(), "result independent of worker count")
		})
	}
}

func TestMultiplyRejectsBadInput(t *testing.T) {
	a := variable.NewFiniteStates("A", "a0", "a1")
	pa := table(t, vars(a), 0.5, 0.5)

	_, err := Multiply(context.Background(), []*potential.TablePotential{pa}, Params{Workers: 0})
	assert.True(t, errkind.Is(err, errkind.InvalidArgument))

	a.SetStates(variable.States("a0", "a1", "a2"))
	_, err = Multiply(context.Background(), []*potential.TablePotential{pa}, Params{Workers: 1})
	assert.True(t, errkind.Is(err, errkind.InvalidArgument), "stale table dimensions")
}

func TestMultiplyHonoursCancellation(t *testing.T) {
	a := variable.NewFiniteStates("A", "a0", "a1")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Multiply(ctx, []*potential.TablePotential{table(t, vars(a), 1, 2)}, Params{Workers: 2})
	assert.ErrorIs(t, err, context.Canceled)
}

// =============================================================================
// Multiply and marginalize
// =============================================================================

func TestMultiplyAndMarginalize(t *testing.T) {
	a := variable.NewFiniteStates("A", "a0", "a1")
	b := variable.NewFiniteStates("B", "b0", "b1", "b2")
	// table over (B, A), B varies fastest
	pba := table(t, vars(b, a),
		0.1, 0.3, 0.6, // A = a0
		0.5, 0.25, 0.25, // A = a1
	)
	pa := table(t, vars(a), 0.4, 0.6)
	tables := []*potential.TablePotential{pba, pa}

	t.Run("sum out A", func(t *testing.T) {
		result, err := MultiplyAndMarginalize(context.Background(), tables, vars(b), vars(a), Params{Workers: 3})
		require.NoError(t, err)
		assert.Equal(t, vars(b), result.Variables())
		want := []float64{0.4*0.1 + 0.6*0.5, 0.4*0.3 + 0.6*0.25, 0.4*0.6 + 0.6*0.25}
		for i, v := range result.Values() {
			assert.InDelta(t, want[i], v, 1e-12)
		}
	})

	t.Run("variables in neither list are summed out", func(t *testing.T) {
		result, err := MultiplyAndMarginalize(context.Background(), tables, vars(b), nil, Params{Workers: 2})
		require.NoError(t, err)
		assert.InDelta(t, 0.34, result.Values()[0], 1e-12)
	})

	t.Run("average on marginalize", func(t *testing.T) {
		result, err := MultiplyAndMarginalize(context.Background(), tables, vars(b), vars(a),
			Params{Workers: 2, AverageOnMarginalize: true})
		require.NoError(t, err)
		assert.InDelta(t, 0.34/2, result.Values()[0], 1e-12)
	})

	t.Run("pooling does not change results", func(t *testing.T) {
		defer pool.Configure(pool.PoolConfig{Enabled: true, MaxSize: 1 << 16})

		pooled, err := MultiplyAndMarginalize(context.Background(), tables, vars(b), vars(a), Params{Workers: 2})
		require.NoError(t, err)
		again, err := MultiplyAndMarginalize(context.Background(), tables, vars(b), vars(a), Params{Workers: 3})
		require.NoError(t, err)
		assert.True(t, pooled.Equal(again, 1e-12))

		pool.Configure(pool.PoolConfig{Enabled: false})
		plain, err := MultiplyAndMarginalize(context.Background(), tables, vars(b), vars(a), Params{Workers: 2})
		require.NoError(t, err)
		assert.True(t, pooled.Equal(plain, 1e-12))
	})

	t.Run("keep everything equals multiply", func(t *testing.T) {
		kept, err := MultiplyAndMarginalize(context.Background(), tables, vars(b, a), nil, Params{Workers: 4})
		require.NoError(t, err)
		product, err := Multiply(context.Background(), tables, Params{Workers: 1})
		require.NoError(t, err)
		assert.True(t, kept.Equal(product, 1e-12))
	})

	t.Run("keep nothing sums everything", func(t *testing.T) {
		total, err := MultiplyAndMarginalize(context.Background(), tables, nil, nil, Params{Workers: 4})
		require.NoError(t, err)
		assert.True(t, total.IsConstant())
		assert.InDelta(t, 1.0, total.Values()[0], 1e-12)
	})
}

func TestMarginalizeMatchesBruteForce(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	a := variable.NewFiniteStates("A", "0", "1")
	b := variable.NewFiniteStates("B", "0", "1", "2")
	c := variable.NewFiniteStates("C", "0", "1")
	d := variable.NewFiniteStates("D", "0", "1", "2")
	tables := []*potential.TablePotential{
		randomTable(r, vars(a, b)),
		randomTable(r, vars(b, c, d)),
		randomTable(r, vars(d, a)),
	}
	keep := vars(d, b)

	for workers := 1; workers <= 10; workers++ {
		result, err := MultiplyAndMarginalize(context.Background(), tables, keep, vars(c), Params{Workers: workers})
		require.NoError(t, err)
		for pos, got := range result.Values() {
			coords := result.Configuration(pos)
			want := 0.0
			for ai := 0; ai < 2; ai++ {
				for ci := 0; ci < 2; ci++ {
					want += bruteValue(t, tables, map[string]int{"A": ai, "B": coords[1], "C": ci, "D": coords[0]})
				}
			}
			assert.InDelta(t, want, got, 1e-12, "workers %d pos %d", workers, pos)
		}
	}
}

// =============================================================================
// Divide
// =============================================================================

func TestDivide(t *testing.T) {
	a := variable.NewFiniteStates("A", "a0", "a1")
	b := variable.NewFiniteStates("B", "b0", "b1")

	num := table(t, vars(a, b), 1, 2, 3, 4)
	den := table(t, vars(b), 2, 0)

	result, err := Divide(context.Background(), num, den, Params{Workers: 3})
	require.NoError(t, err)
	assert.Equal(t, vars(a, b), result.Variables())
	assert.Equal(t, []float64{0.5, 1, 0, 0}, result.Values())

	t.Run("denominator only variables are appended", func(t *testing.T) {
		c := variable.NewFiniteStates("C", "c0", "c1")
		wide := table(t, vars(c), 1, 4)
		result, err := Divide(context.Background(), table(t, vars(a), 2, 8), wide, Params{Workers: 2})
		require.NoError(t, err)
		assert.Equal(t, vars(a, c), result.Variables())
		assert.Equal(t, []float64{2, 8, 0.5, 2}, result.Values())
	})

	t.Run("divide by itself gives ones where non zero", func(t *testing.T) {
		p := table(t, vars(a, b), 0.2, 0, 0.5, 0.3)
		result, err := Divide(context.Background(), p, p, Params{Workers: 4})
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 0, 1, 1}, result.Values())
	})
}

func TestNormalize(t *testing.T) {
	a := variable.NewFiniteStates("A", "a0", "a1")
	b := variable.NewFiniteStates("B", "b0", "b1")
	p := table(t, vars(a, b), 1, 3, 0, 0)
	Normalize(p)
	assert.Equal(t, []float64{0.25, 0.75, 0, 0}, p.Values())
}

// =============================================================================
// CPT
// =============================================================================

func TestCPT(t *testing.T) {
	x := variable.NewNumeric("X")
	k := variable.NewFiniteStates("K", "0", "1")
	y := variable.NewFiniteStates("Y", "1", "2", "3")

	l, err := potential.NewLinearPotential(vars(y, x, k), potential.ConditionalProbability, 1, []float64{1, 1})
	require.NoError(t, err)

	fx, err := evidence.NewNumericFinding(x, 1)
	require.NoError(t, err)
	ec, err := evidence.NewCase(fx)
	require.NoError(t, err)

	cpt, err := CPT(context.Background(), l, ec, Params{Workers: 2})
	require.NoError(t, err)
	assert.Equal(t, potential.ConditionalProbability, cpt.Role())
	assert.Equal(t, vars(y, k), cpt.Variables())
	// K=0 -> Y=2, K=1 -> Y=3
	assert.Equal(t, []float64{0, 1, 0, 0, 0, 1}, cpt.Values())
}

func BenchmarkMultiply(b *testing.B) {
	r := rand.New(rand.NewSource(1))
	vs := make([]*variable.Variable, 8)
	for i := range vs {
		vs[i] = variable.NewFiniteStatesN(fmt.Sprintf("V%d", i), 4)
	}
	tables := []*potential.TablePotential{
		randomTable(r, vs[:5]),
		randomTable(r, vs[3:]),
	}
	params := DefaultParams()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Multiply(context.Background(), tables, params); err != nil {
			b.Fatal(err)
		}
	}
}

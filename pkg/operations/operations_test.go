package operations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/markovnet/pkg/errkind"
	"github.com/orneryd/markovnet/pkg/evidence"
	"github.com/orneryd/markovnet/pkg/network"
	"github.com/orneryd/markovnet/pkg/potential"
	"github.com/orneryd/markovnet/pkg/variable"
)

func bayesNet(t *testing.T, families ...[]*variable.Variable) *network.ProbNet {
	t.Helper()
	net := network.New(network.BayesianNetwork)
	for _, vars := range families {
		_, err := net.AddPotential(potential.NewTablePotential(vars, potential.ConditionalProbability))
		require.NoError(t, err)
	}
	return net
}

func finite(names ...string) []*variable.Variable {
	out := make([]*variable.Variable, len(names))
	for i, name := range names {
		out[i] = variable.NewFiniteStates(name, "0", "1")
	}
	return out
}

func nodeNames(net *network.ProbNet) []string {
	var out []string
	for _, pn := range net.ProbNodes() {
		out = append(out, pn.Name())
	}
	return out
}

func observe(t *testing.T, v *variable.Variable, state int) *evidence.Case {
	t.Helper()
	f, err := evidence.NewStateFinding(v, state)
	require.NoError(t, err)
	ec, err := evidence.NewCase(f)
	require.NoError(t, err)
	return ec
}

// =============================================================================
// Sorting
// =============================================================================

func TestSortTopologically(t *testing.T) {
	v := finite("A", "B", "C", "D")
	a, b, c, d := v[0], v[1], v[2], v[3]
	net := bayesNet(t, []*variable.Variable{d, b, c}, []*variable.Variable{b, a}, []*variable.Variable{c, a}, []*variable.Variable{a})

	sorted, err := SortTopologically(net)
	require.NoError(t, err)
	position := make(map[string]int)
	for i, pn := range sorted {
		position[pn.Name()] = i
	}
	require.Len(t, position, 4)
	assert.Less(t, position["A"], position["B"])
	assert.Less(t, position["A"], position["C"])
	assert.Less(t, position["B"], position["D"])
	assert.Less(t, position["C"], position["D"])

	vars, err := SortVariablesTopologically(net, []*variable.Variable{d, a})
	require.NoError(t, err)
	require.Len(t, vars, 2)
	assert.Equal(t, "A", vars[0].Name())
	assert.Equal(t, "D", vars[1].Name())
}

// =============================================================================
// Pruning
// =============================================================================

func TestRemoveBarrenNodes(t *testing.T) {
	t.Run("chain keeps only the node of interest", func(t *testing.T) {
		v := finite("A", "B", "C")
		net := bayesNet(t, v[:1], []*variable.Variable{v[1], v[0]}, []*variable.Variable{v[2], v[1]})

		removed, err := RemoveBarrenNodes(net, v[:1], evidence.Empty())
		require.NoError(t, err)
		assert.Len(t, removed, 2)
		assert.Equal(t, []string{"A"}, nodeNames(net))
	})

	t.Run("evidence below keeps the chain", func(t *testing.T) {
		v := finite("A", "B", "C")
		net := bayesNet(t, v[:1], []*variable.Variable{v[1], v[0]}, []*variable.Variable{v[2], v[1]})

		removed, err := RemoveBarrenNodes(net, v[:1], observe(t, v[2], 1))
		require.NoError(t, err)
		assert.Empty(t, removed)
		assert.Equal(t, 3, net.NumNodes())
	})

	t.Run("parent with a relevant child survives", func(t *testing.T) {
		v := finite("A", "B", "C")
		// A -> B, A -> C, interest B
		net := bayesNet(t, v[:1], []*variable.Variable{v[1], v[0]}, []*variable.Variable{v[2], v[0]})

		_, err := RemoveBarrenNodes(net, v[1:2], nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B"}, nodeNames(net))
	})
}

func TestRemoveUnreachableNodes(t *testing.T) {
	t.Run("observed middle blocks a chain", func(t *testing.T) {
		v := finite("A", "B", "C")
		net := bayesNet(t, v[:1], []*variable.Variable{v[1], v[0]}, []*variable.Variable{v[2], v[1]})

		removed, err := RemoveUnreachableNodes(net, v[2:], observe(t, v[1], 0))
		require.NoError(t, err)
		require.Len(t, removed, 1)
		assert.Equal(t, "A", removed[0].Name())
		assert.Equal(t, []string{"B", "C"}, nodeNames(net))
	})

	t.Run("unobserved collider blocks", func(t *testing.T) {
		v := finite("A", "B", "C")
		// A -> C <- B
		net := bayesNet(t, v[:1], v[1:2], []*variable.Variable{v[2], v[0], v[1]})

		_, err := RemoveUnreachableNodes(net, v[:1], evidence.Empty())
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "C"}, nodeNames(net))
	})

	t.Run("observed collider opens", func(t *testing.T) {
		v := finite("A", "B", "C")
		net := bayesNet(t, v[:1], v[1:2], []*variable.Variable{v[2], v[0], v[1]})

		removed, err := RemoveUnreachableNodes(net, v[:1], observe(t, v[2], 1))
		require.NoError(t, err)
		assert.Empty(t, removed)
	})

	t.Run("observed descendant of a collider opens", func(t *testing.T) {
		v := finite("A", "B", "C", "D")
		// A -> C <- B, C -> D
		net := bayesNet(t, v[:1], v[1:2], []*variable.Variable{v[2], v[0], v[1]}, []*variable.Variable{v[3], v[2]})

		_, err := RemoveUnreachableNodes(net, v[:1], observe(t, v[3], 0))
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"A", "B", "C", "D"}, nodeNames(net))
	})

	t.Run("disconnected node is dropped", func(t *testing.T) {
		v := finite("A", "B", "Z")
		net := bayesNet(t, v[:1], []*variable.Variable{v[1], v[0]}, v[2:])

		_, err := RemoveUnreachableNodes(net, v[1:2], nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B"}, nodeNames(net))
	})
}

func TestRemoveNodesReportsForeignNode(t *testing.T) {
	v := finite("A", "B")
	net := bayesNet(t, v[:1], []*variable.Variable{v[1], v[0]})
	other := bayesNet(t, finite("A")[:1])

	err := removeNodes(net, other.ProbNodes())
	assert.True(t, errkind.Is(err, errkind.ProbNodeNotFound))
	assert.Equal(t, 2, net.NumNodes())
}

func TestPrunedLeavesOriginal(t *testing.T) {
	v := finite("A", "B", "C")
	net := bayesNet(t, v[:1], []*variable.Variable{v[1], v[0]}, []*variable.Variable{v[2], v[1]})

	pruned, err := Pruned(net, v[:1], evidence.Empty())
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, nodeNames(pruned))
	assert.Equal(t, 3, net.NumNodes())
}

// =============================================================================
// Evidence projection
// =============================================================================

func TestProjectEvidence(t *testing.T) {
	v := finite("A", "B", "C")
	a, b, c := v[0], v[1], v[2]
	net := bayesNet(t, []*variable.Variable{a}, []*variable.Variable{b, a}, []*variable.Variable{c, b})

	require.NoError(t, ProjectEvidence(net, observe(t, b, 1)))
	assert.Nil(t, net.ProbNodeOf(b))
	assert.Equal(t, 0, net.NumLinks())

	pa := net.ProbNodeOf(a)
	require.Len(t, pa.Potentials(), 2)
	assert.Equal(t, []*variable.Variable{a}, pa.Potentials()[1].Variables())

	pc := net.ProbNodeOf(c)
	require.Len(t, pc.Potentials(), 1)
	assert.Equal(t, []*variable.Variable{c}, pc.Potentials()[0].Variables())
}

// =============================================================================
// Numeric conversion
// =============================================================================

// regressionNet builds X -> Y -> Z where Y = 1 + 2*X is numeric.
func regressionNet(t *testing.T) (*network.ProbNet, *variable.Variable, *variable.Variable, *variable.Variable) {
	t.Helper()
	x := variable.NewFiniteStatesN("X", 3)
	y := variable.NewNumeric("Y")
	z := variable.NewFiniteStates("Z", "low", "high")

	net := network.New(network.BayesianNetwork)
	_, err := net.AddPotential(potential.NewTablePotential([]*variable.Variable{x}, potential.ConditionalProbability))
	require.NoError(t, err)
	linear, err := potential.NewLinearPotential([]*variable.Variable{y, x}, potential.ConditionalProbability, 1, []float64{2})
	require.NoError(t, err)
	_, err = net.AddPotential(linear)
	require.NoError(t, err)
	pz, err := potential.NewTablePotentialWithValues([]*variable.Variable{z, y}, potential.ConditionalProbability, []float64{0.3, 0.7})
	require.NoError(t, err)
	_, err = net.AddPotential(pz)
	require.NoError(t, err)
	return net, x, y, z
}

func TestConvertNumericalVariablesToFS(t *testing.T) {
	t.Run("deterministic child", func(t *testing.T) {
		net, _, y, z := regressionNet(t)

		converted, err := ConvertNumericalVariablesToFS(net, nil)
		require.NoError(t, err)

		py := converted.ProbNodeOf(y)
		require.NotNil(t, py)
		ny := py.Variable()
		assert.Equal(t, variable.FiniteStates, ny.Type())
		assert.Equal(t, []string{"1", "3", "5"}, ny.StateNames())

		table, ok := py.Potentials()[0].(*potential.TablePotential)
		require.True(t, ok)
		assert.Equal(t, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1}, table.Values())

		zt, ok := converted.ProbNodeOf(z).Potentials()[0].(*potential.TablePotential)
		require.True(t, ok)
		assert.Same(t, ny, zt.Variables()[1])
		assert.Equal(t, []int{2, 3}, zt.Dimensions())
		assert.Equal(t, []float64{0.3, 0.7, 0.3, 0.7, 0.3, 0.7}, zt.Values())

		assert.Equal(t, variable.Numeric, net.ProbNodeOf(y).Variable().Type(), "original untouched")
		assert.Equal(t, potential.Linear, net.ProbNodeOf(y).Potentials()[0].Type())
	})

	t.Run("observed variable collapses to one state", func(t *testing.T) {
		net, _, y, _ := regressionNet(t)
		f, err := evidence.NewNumericFinding(y, 3)
		require.NoError(t, err)
		ec, err := evidence.NewCase(f)
		require.NoError(t, err)

		converted, err := ConvertNumericalVariablesToFS(net, ec)
		require.NoError(t, err)
		ny := converted.ProbNodeOf(y).Variable()
		assert.Equal(t, []string{"3"}, ny.StateNames())

		rewritten := ec.Finding(ny)
		require.NotNil(t, rewritten)
		assert.Same(t, ny, rewritten.Variable())
		assert.Equal(t, 0, rewritten.StateIndex())
	})

	t.Run("non projectable potential", func(t *testing.T) {
		w := variable.NewNumeric("W")
		net := network.New(network.BayesianNetwork)
		_, err := net.AddPotential(potential.NewUniformPotential([]*variable.Variable{w}, potential.ConditionalProbability))
		require.NoError(t, err)

		_, err = ConvertNumericalVariablesToFS(net, evidence.Empty())
		assert.True(t, errkind.Is(err, errkind.NonProjectable))
	})
}

// =============================================================================
// Utility bounds
// =============================================================================

func TestUtilityBounds(t *testing.T) {
	d := variable.NewFiniteStates("D", "no", "yes")
	x := variable.NewFiniteStates("X", "x0", "x1")
	u := variable.NewNumeric("U")
	net := network.New(network.InfluenceDiagram)
	net.AddProbNode(d, network.Decision)
	net.AddProbNode(x, network.Chance)

	byDecision, err := potential.NewTablePotentialWithValues([]*variable.Variable{d}, potential.Utility, []float64{-5, 10})
	require.NoError(t, err)
	byDecision.SetUtilityVariable(u)
	byChance, err := potential.NewTablePotentialWithValues([]*variable.Variable{x}, potential.Utility, []float64{1, 2})
	require.NoError(t, err)
	byChance.SetUtilityVariable(u)

	pu, err := net.AddPotential(byDecision)
	require.NoError(t, err)
	_, err = net.AddPotential(byChance)
	require.NoError(t, err)

	lower, upper, err := UtilityBounds(net, pu)
	require.NoError(t, err)
	assert.InDelta(t, -4, lower, 1e-12)
	assert.InDelta(t, 12, upper, 1e-12)

	_, _, err = UtilityBounds(net, net.ProbNodeOf(d))
	assert.True(t, errkind.Is(err, errkind.InvalidArgument))

	cost := variable.NewNumeric("Cost")
	net.AddProbNode(cost, network.Chance)
	linear, err := potential.NewLinearUtility(u, []*variable.Variable{cost}, 0, []float64{-1})
	require.NoError(t, err)
	pu.AddPotential(linear)
	_, _, err = UtilityBounds(net, pu)
	assert.True(t, errkind.Is(err, errkind.NonProjectable))
}

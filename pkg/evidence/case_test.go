package evidence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/markovnet/pkg/errkind"
	"github.com/orneryd/markovnet/pkg/variable"
)

// copyInducer observes `to` in the same state as `from` once `from` is known.
type copyInducer struct {
	from, to *variable.Variable
	calls    int
}

func (c *copyInducer) InducedFindings(ec *Case, _ float64) ([]*Finding, error) {
	c.calls++
	if !ec.Contains(c.from) {
		return nil, nil
	}
	f, err := NewStateFinding(c.to, ec.State(c.from))
	if err != nil {
		return nil, err
	}
	return []*Finding{f}, nil
}

type fakeSource struct {
	inducers []*copyInducer
}

func (s *fakeSource) Inducers() []Inducer {
	out := make([]Inducer, len(s.inducers))
	for i, in := range s.inducers {
		out[i] = in
	}
	return out
}

func (s *fakeSource) InducersOf(v *variable.Variable) []Inducer {
	var out []Inducer
	for _, in := range s.inducers {
		if in.from.Equal(v) || in.to.Equal(v) {
			out = append(out, in)
		}
	}
	return out
}

type lookupMap map[string]*variable.Variable

func (m lookupMap) Variable(name string) (*variable.Variable, error) {
	if v, ok := m[name]; ok {
		return v, nil
	}
	return nil, errkind.New(errkind.NodeNotFound, "no variable %s", name)
}

func (m lookupMap) ShiftedVariable(v *variable.Variable, delta int) (*variable.Variable, error) {
	c := v.Copy()
	c.SetTimeSlice(v.TimeSlice() + delta)
	if found, ok := m[c.Name()]; ok {
		return found, nil
	}
	return nil, errkind.New(errkind.NodeNotFound, "no variable %s", c.Name())
}

// =============================================================================
// Findings
// =============================================================================

func TestFindings(t *testing.T) {
	rain := variable.NewFiniteStates("Rain", "no", "yes")

	t.Run("state index out of range", func(t *testing.T) {
		_, err := NewStateFinding(rain, 2)
		assert.True(t, errkind.Is(err, errkind.InvalidState))
	})

	t.Run("numeric finding on discretized variable derives state", func(t *testing.T) {
		p, err := variable.NewPartitionedInterval([]float64{0, 2, 4}, []bool{true, false, true})
		require.NoError(t, err)
		d, err := variable.NewDiscretized("D", variable.States("low", "high"), p, 0.1)
		require.NoError(t, err)

		f, err := NewNumericFinding(d, 3)
		require.NoError(t, err)
		assert.Equal(t, 1, f.StateIndex())
		assert.Equal(t, 3.0, f.NumericalValue())
		assert.Equal(t, "D = 3", f.String())

		_, err = NewNumericFinding(d, 10)
		assert.True(t, errkind.Is(err, errkind.InvalidState))
	})

	t.Run("numeric variable", func(t *testing.T) {
		temp := variable.NewNumericInterval("Temp", 0, 10, true, true, 0.1)
		f, err := NewNumericFinding(temp, 2.5)
		require.NoError(t, err)
		assert.Equal(t, 0, f.StateIndex())
		assert.True(t, f.HasNumericalValue())

		_, err = NewNumericFinding(temp, 11)
		assert.Error(t, err)
	})

	t.Run("state finding reports index as value", func(t *testing.T) {
		f, err := NewNamedFinding(rain, "yes")
		require.NoError(t, err)
		assert.False(t, f.HasNumericalValue())
		assert.Equal(t, 1.0, f.NumericalValue())
		assert.Equal(t, "Rain = yes", f.String())
	})
}

// =============================================================================
// Case
// =============================================================================

func TestCaseAddFinding(t *testing.T) {
	rain := variable.NewFiniteStates("Rain", "no", "yes")
	wet := variable.NewFiniteStates("Wet", "no", "yes")

	ec := Empty()
	yes, err := NewNamedFinding(rain, "yes")
	require.NoError(t, err)

	require.NoError(t, ec.AddFinding(yes))
	require.NoError(t, ec.AddFinding(yes.Copy()), "compatible duplicate is a no-op")
	assert.Equal(t, 1, ec.Len())

	no, err := NewNamedFinding(rain, "no")
	require.NoError(t, err)
	err = ec.AddFinding(no)
	assert.True(t, errkind.Is(err, errkind.IncompatibleEvidence))
	assert.Equal(t, 1, ec.State(rain), "case unchanged after conflict")

	wetYes, err := NewStateFinding(wet, 1)
	require.NoError(t, err)
	require.NoError(t, ec.AddFinding(wetYes))
	assert.Equal(t, "[Rain = yes, Wet = yes]", ec.String())
	assert.Equal(t, []*variable.Variable{rain, wet}, ec.Variables())

	require.NoError(t, ec.ChangeFinding(no))
	assert.Equal(t, 0, ec.State(rain))
	assert.Equal(t, "[Wet = yes, Rain = no]", ec.String())
}

func TestCaseRemoveAndQuery(t *testing.T) {
	a := variable.NewFiniteStates("A", "a0", "a1")
	b := variable.NewFiniteStates("B", "b0", "b1")
	fa, err := NewStateFinding(a, 0)
	require.NoError(t, err)

	ec, err := NewCase(fa)
	require.NoError(t, err)
	assert.True(t, ec.ExistsEvidence())
	assert.Equal(t, []*variable.Variable{b}, ec.RemainingVariables([]*variable.Variable{a, b}))
	assert.Equal(t, -1, ec.State(b))

	_, err = ec.NumericalValue(b)
	assert.True(t, errkind.Is(err, errkind.NoFinding))

	_, err = ec.RemoveFinding(b)
	assert.True(t, errkind.Is(err, errkind.NoFinding))

	removed, err := ec.RemoveFinding(a)
	require.NoError(t, err)
	assert.Same(t, fa, removed)
	assert.True(t, ec.IsEmpty())
	assert.Equal(t, "[]", ec.String())
}

func TestCaseByName(t *testing.T) {
	a := variable.NewFiniteStates("A", "a0", "a1")
	x := variable.NewNumeric("X")
	lookup := lookupMap{"A": a, "X": x}

	ec := Empty()
	require.NoError(t, ec.AddNamedFinding(lookup, "A", "a1"))
	require.NoError(t, ec.AddNumericFindingByName(lookup, "X", 4.2))
	assert.Error(t, ec.AddNamedFinding(lookup, "Missing", "a0"))
	assert.True(t, errkind.Is(ec.AddNamedFinding(lookup, "A", "zz"), errkind.InvalidState))

	value, err := ec.NumericalValue(x)
	require.NoError(t, err)
	assert.Equal(t, 4.2, value)
}

func TestCaseCopyIsIndependent(t *testing.T) {
	a := variable.NewFiniteStates("A", "a0", "a1")
	fa, err := NewStateFinding(a, 1)
	require.NoError(t, err)
	ec, err := NewCase(fa)
	require.NoError(t, err)

	c := ec.Copy()
	_, err = c.RemoveFinding(a)
	require.NoError(t, err)
	assert.True(t, ec.Contains(a))
	assert.False(t, c.Contains(a))
}

func TestExtendEvidence(t *testing.T) {
	a := variable.NewFiniteStates("A", "0", "1")
	b := variable.NewFiniteStates("B", "0", "1")
	c := variable.NewFiniteStates("C", "0", "1")
	ab := &copyInducer{from: a, to: b}
	bc := &copyInducer{from: b, to: c}
	src := &fakeSource{inducers: []*copyInducer{bc, ab}}

	fa, err := NewStateFinding(a, 1)
	require.NoError(t, err)
	ec, err := NewCase(fa)
	require.NoError(t, err)

	require.NoError(t, ec.ExtendEvidence(src, 1))
	assert.Equal(t, 1, ec.State(b))
	assert.Equal(t, 1, ec.State(c), "chained inductions reach C through the queue")

	t.Run("existing finding wins over induced one", func(t *testing.T) {
		fa, err := NewStateFinding(a, 1)
		require.NoError(t, err)
		fb, err := NewStateFinding(b, 0)
		require.NoError(t, err)
		ec, err := NewCase(fa, fb)
		require.NoError(t, err)

		require.NoError(t, ec.ExtendEvidence(&fakeSource{inducers: []*copyInducer{{from: a, to: b}, bc}}, 1))
		assert.Equal(t, 0, ec.State(b))
		assert.Equal(t, 0, ec.State(c), "propagation continues from the kept finding")
		assert.Equal(t, 3, ec.Len())
	})
}

func TestFuse(t *testing.T) {
	a := variable.NewFiniteStates("A", "0", "1")
	b := variable.NewFiniteStates("B", "0", "1")

	a0, _ := NewStateFinding(a, 0)
	a1, _ := NewStateFinding(a, 1)
	b1, _ := NewStateFinding(b, 1)

	t.Run("keep existing", func(t *testing.T) {
		ec, err := NewCase(a0)
		require.NoError(t, err)
		other, err := NewCase(a1, b1)
		require.NoError(t, err)

		require.NoError(t, ec.Fuse(other, false))
		assert.Equal(t, 0, ec.State(a))
		assert.Equal(t, 1, ec.State(b))
	})

	t.Run("overwrite", func(t *testing.T) {
		ec, err := NewCase(a0)
		require.NoError(t, err)
		other, err := NewCase(a1)
		require.NoError(t, err)

		require.NoError(t, ec.Fuse(other, true))
		assert.Equal(t, 1, ec.State(a))
	})

	t.Run("invalid states are ignored", func(t *testing.T) {
		ec := Empty()
		other := Empty()
		bad := &Finding{variable: a, stateIndex: 7}
		other.findings[a.Name()] = bad
		other.order = append(other.order, a.Name())

		require.NoError(t, ec.Fuse(other, true))
		assert.True(t, ec.IsEmpty())
	})
}

func TestShiftEvidenceBackwards(t *testing.T) {
	h0 := variable.NewFiniteStates("Health [0]", "ok", "ill")
	h2 := variable.NewFiniteStates("Health [2]", "ok", "ill")
	static := variable.NewFiniteStates("Sex", "f", "m")
	lookup := lookupMap{h0.Name(): h0, h2.Name(): h2, static.Name(): static}

	f2, _ := NewStateFinding(h2, 1)
	fs, _ := NewStateFinding(static, 0)
	ec, err := NewCase(f2, fs)
	require.NoError(t, err)

	require.NoError(t, ec.ShiftEvidenceBackwards(2, lookup))
	assert.Equal(t, 1, ec.State(h0))
	assert.False(t, ec.Contains(h2))
	assert.True(t, ec.Contains(static))

	assert.Error(t, ec.ShiftEvidenceBackwards(5, lookup))
}

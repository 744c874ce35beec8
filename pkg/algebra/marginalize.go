package algebra

import (
	"context"
	"time"

	"github.com/orneryd/markovnet/pkg/pool"
	"github.com/orneryd/markovnet/pkg/potential"
	"github.com/orneryd/markovnet/pkg/variable"
)

// MultiplyAndMarginalize multiplies tables and sums out every variable not in
// keep, returning a table over keep.
//
// Variables of the inputs named in neither keep nor eliminate are summed out as
// well. Variables of eliminate absent from every input are ignored. When
// params.AverageOnMarginalize is set each cell is divided by the number of
// eliminated configurations.
func MultiplyAndMarginalize(ctx context.Context, tables []*potential.TablePotential,
	keep, eliminate []*variable.Variable, params Params) (result *potential.TablePotential, err error) {
	start := time.Now()
	workers := 0
	defer func() { observe(opMarginalize, start, result, workers, err) }()

	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := checkTables(tables); err != nil {
		return nil, err
	}

	constantFactor := 1.0
	inputs := make([]*potential.TablePotential, 0, len(tables))
	for _, t := range tables {
		if t.IsConstant() {
			constantFactor *= t.Values()[0]
			continue
		}
		inputs = append(inputs, t)
	}

	union := potential.Union(asPotentials(inputs))
	elim := eliminationOrder(union, keep, eliminate)
	eliminationSize := 1
	for _, v := range elim {
		eliminationSize *= v.NumStates()
	}
	walk := append(append([]*variable.Variable(nil), elim...), keep...)

	result = potential.NewTablePotential(keep, potential.JointProbability)
	out := result.Values()
	p := newPlan(walk, inputs)
	scale := 1.0
	if params.AverageOnMarginalize {
		scale = 1 / float64(eliminationSize)
	}

	workers, err = runPartitioned(ctx, len(out), params.Workers, func(_ context.Context, iv Interval) error {
		// eliminated variables vary fastest, so result cell r starts at r*eliminationSize
		c := p.cursorAt(iv.Start * eliminationSize)
		defer c.release()
		// sums stay worker-local until the interval is complete
		partial := pool.GetFloatSlice(iv.Len())
		defer pool.PutFloatSlice(partial)
		for i := range partial {
			sum := 0.0
			for n := 0; n < eliminationSize; n++ {
				sum += c.product(constantFactor)
				c.advance()
			}
			partial[i] = sum * scale
		}
		copy(out[iv.Start:iv.End], partial)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Marginalize sums a single table down to keep.
func Marginalize(ctx context.Context, t *potential.TablePotential, keep []*variable.Variable, params Params) (*potential.TablePotential, error) {
	return MultiplyAndMarginalize(ctx, []*potential.TablePotential{t}, keep, nil, params)
}

// eliminationOrder returns eliminate restricted to union, followed by the
// variables of union that appear in neither list.
func eliminationOrder(union, keep, eliminate []*variable.Variable) []*variable.Variable {
	var elim []*variable.Variable
	for _, v := range eliminate {
		if potential.IndexOf(union, v) >= 0 && potential.IndexOf(keep, v) < 0 && potential.IndexOf(elim, v) < 0 {
			elim = append(elim, v)
		}
	}
	for _, v := range union {
		if potential.IndexOf(keep, v) < 0 && potential.IndexOf(elim, v) < 0 {
			elim = append(elim, v)
		}
	}
	return elim
}

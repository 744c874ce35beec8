package algebra

import (
	"context"
	"time"

	"github.com/orneryd/markovnet/pkg/potential"
)

// Multiply returns the pointwise product of tables over the union of their
// variables, in order of first appearance.
//
// Tables without variables are folded into a single constant factor. The
// result role is JointProbability.
func Multiply(ctx context.Context, tables []*potential.TablePotential, params Params) (result *potential.TablePotential, err error) {
	start := time.Now()
	workers := 0
	defer func() { observe(opMultiply, start, result, workers, err) }()

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
	if len(inputs) == 0 {
		return potential.NewConstant(constantFactor), nil
	}

	union := potential.Union(asPotentials(inputs))
	result = potential.NewTablePotential(union, potential.JointProbability)
	out := result.Values()
	p := newPlan(union, inputs)

	workers, err = runPartitioned(ctx, len(out), params.Workers, func(_ context.Context, iv Interval) error {
		c := p.cursorAt(iv.Start)
		defer c.release()
		for pos := iv.Start; pos < iv.End; pos++ {
			out[pos] = c.product(constantFactor)
			c.advance()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func asPotentials(tables []*potential.TablePotential) []potential.Potential {
	ps := make([]potential.Potential, len(tables))
	for i, t := range tables {
		ps[i] = t
	}
	return ps
}

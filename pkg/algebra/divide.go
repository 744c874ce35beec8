package algebra

import (
	"context"
	"time"

	"github.com/orneryd/markovnet/pkg/potential"
)

// Divide returns numerator / denominator cell by cell over the numerator's
// variables followed by any variable only the denominator has. Cells with a
// zero denominator are 0.
func Divide(ctx context.Context, numerator, denominator *potential.TablePotential, params Params) (result *potential.TablePotential, err error) {
	start := time.Now()
	workers := 0
	defer func() { observe(opDivide, start, result, workers, err) }()

	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := checkTables([]*potential.TablePotential{numerator, denominator}); err != nil {
		return nil, err
	}

	vars := numerator.Variables()
	for _, v := range denominator.Variables() {
		if potential.IndexOf(vars, v) < 0 {
			vars = append(vars, v)
		}
	}
	result = potential.NewTablePotential(vars, numerator.Role())
	if u := numerator.UtilityVariable(); u != nil {
		result.SetUtilityVariable(u)
	}
	out := result.Values()
	p := newPlan(vars, []*potential.TablePotential{numerator, denominator})
	num, den := p.values[0], p.values[1]

	workers, err = runPartitioned(ctx, len(out), params.Workers, func(_ context.Context, iv Interval) error {
		c := p.cursorAt(iv.Start)
		defer c.release()
		for pos := iv.Start; pos < iv.End; pos++ {
			if d := den[c.positions[1]]; d != 0 {
				out[pos] = num[c.positions[0]] / d
			} else {
				out[pos] = 0
			}
			c.advance()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Normalize scales a table so that, for every configuration of the variables
// other than the first, the values of the first variable add up to 1. Columns
// summing to 0 are left untouched.
func Normalize(t *potential.TablePotential) {
	values := t.Values()
	dims := t.Dimensions()
	if len(dims) == 0 {
		return
	}
	n := dims[0]
	for col := 0; col < len(values); col += n {
		sum := 0.0
		for i := col; i < col+n; i++ {
			sum += values[i]
		}
		if sum == 0 {
			continue
		}
		for i := col; i < col+n; i++ {
			values[i] /= sum
		}
	}
}

package algebra

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/orneryd/markovnet/pkg/errkind"
	"github.com/orneryd/markovnet/pkg/pool"
	"github.com/orneryd/markovnet/pkg/potential"
	"github.com/orneryd/markovnet/pkg/variable"
)

// plan describes a mixed-radix walk over a list of variables and where that
// walk lands in each input table.
type plan struct {
	dims    []int
	offsets []int
	// strides[k][j] is the stride of walk variable j in input k, 0 if absent.
	strides [][]int
	acc     [][]int
	values  [][]float64
}

func newPlan(walk []*variable.Variable, inputs []*potential.TablePotential) *plan {
	p := &plan{
		dims:    make([]int, len(walk)),
		offsets: make([]int, len(walk)),
		strides: make([][]int, len(inputs)),
		acc:     make([][]int, len(inputs)),
		values:  make([][]float64, len(inputs)),
	}
	size := 1
	for j, v := range walk {
		p.offsets[j] = size
		p.dims[j] = v.NumStates()
		size *= p.dims[j]
	}
	for k, in := range inputs {
		inVars := in.Variables()
		inOffsets := in.Offsets()
		strides := make([]int, len(walk))
		for j, v := range walk {
			if i := potential.IndexOf(inVars, v); i >= 0 {
				strides[j] = inOffsets[i]
			}
		}
		p.strides[k] = strides
		p.acc[k] = in.AccumulatedOffsets(walk)
		p.values[k] = in.Values()
	}
	return p
}

// cursor is one worker's position in the walk.
type cursor struct {
	plan      *plan
	coords    []int
	positions []int
}

func (p *plan) cursorAt(position int) *cursor {
	c := &cursor{
		plan:      p,
		coords:    pool.GetIntSlice(len(p.dims)),
		positions: pool.GetIntSlice(len(p.strides)),
	}
	StartCoordinate(position, p.offsets, p.dims, c.coords)
	for k, strides := range p.strides {
		for j, coord := range c.coords {
			c.positions[k] += coord * strides[j]
		}
	}
	return c
}

// product multiplies the current cell of every input.
func (c *cursor) product(factor float64) float64 {
	for k, pos := range c.positions {
		factor *= c.plan.values[k][pos]
	}
	return factor
}

func (c *cursor) advance() {
	j := potential.Advance(c.coords, c.plan.dims)
	if j < 0 {
		return
	}
	for k := range c.positions {
		c.positions[k] += c.plan.acc[k][j]
	}
}

func (c *cursor) release() {
	pool.PutIntSlice(c.coords)
	pool.PutIntSlice(c.positions)
}

// checkTables rejects tables whose variables changed their number of states
// after the table was built.
func checkTables(tables []*potential.TablePotential) error {
	for _, t := range tables {
		if t == nil {
			return errkind.New(errkind.InvalidArgument, "nil table")
		}
		size := 1
		for i, v := range t.Variables() {
			if v.NumStates() != t.Dimensions()[i] {
				return errkind.New(errkind.InvalidArgument,
					"%s: %s has %d states but the table was built for %d", t, v.Name(), v.NumStates(), t.Dimensions()[i])
			}
			size *= v.NumStates()
		}
		if size != t.Size() {
			return errkind.New(errkind.InvalidArgument, "%s: %d values for %d configurations", t, t.Size(), size)
		}
	}
	return nil
}

// runPartitioned fills [0, size) by calling fill once per interval, each on its
// own goroutine. It returns the number of workers used.
func runPartitioned(ctx context.Context, size, workers int, fill func(ctx context.Context, iv Interval) error) (int, error) {
	intervals := Partition(size, workers)
	g, gCtx := errgroup.WithContext(ctx)
	for _, iv := range intervals {
		if err := gCtx.Err(); err != nil {
			break
		}
		iv := iv
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			return fill(gCtx, iv)
		})
	}
	if err := g.Wait(); err != nil {
		return len(intervals), err
	}
	// Wait returns nil when the parent was cancelled before any worker started
	return len(intervals), ctx.Err()
}

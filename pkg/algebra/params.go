// Package algebra implements the discrete potential operations used by
// inference: multiplication, multiplication followed by marginalization and
// division of TablePotentials.
//
// Every operation splits its output table into contiguous ranges and fills each
// range on its own goroutine. Workers never share output cells, so no locking
// is needed on the result. Inputs are only read.
//
// Example:
//
//	params := algebra.DefaultParams()
//	joint, err := algebra.Multiply(ctx, []*potential.TablePotential{pA, pBgivenA}, params)
//	marginal, err := algebra.MultiplyAndMarginalize(ctx, tables, keep, eliminate, params)
package algebra

import (
	"runtime"

	"github.com/orneryd/markovnet/pkg/errkind"
)

// Params controls how an operation is executed.
type Params struct {
	// Workers is the maximum number of goroutines filling the output table.
	Workers int

	// AverageOnMarginalize divides every marginalized cell by the number of
	// eliminated configurations, yielding the mean instead of the sum.
	AverageOnMarginalize bool
}

// DefaultParams uses one worker per CPU and plain sum-marginals.
func DefaultParams() Params {
	return Params{Workers: runtime.NumCPU()}
}

// Validate checks the parameters.
func (p Params) Validate() error {
	if p.Workers < 1 {
		return errkind.New(errkind.InvalidArgument, "workers must be at least 1, got %d", p.Workers)
	}
	return nil
}

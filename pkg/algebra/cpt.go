package algebra

import (
	"context"

	"github.com/orneryd/markovnet/pkg/evidence"
	"github.com/orneryd/markovnet/pkg/potential"
)

// CPT returns p as a single table over its unobserved variables: the projections
// of p onto ec are multiplied and anything else they mention is summed out.
// Probability potentials come back as ConditionalProbability, utilities keep
// their utility variable.
func CPT(ctx context.Context, p potential.Potential, ec *evidence.Case, params Params) (*potential.TablePotential, error) {
	tables, err := p.TableProject(ec)
	if err != nil {
		return nil, err
	}
	keep := p.Variables()
	if ec != nil {
		keep = ec.RemainingVariables(keep)
	}
	cpt, err := MultiplyAndMarginalize(ctx, tables, keep, nil, params)
	if err != nil {
		return nil, err
	}
	cpt.SetComment(p.Comment())
	if u := p.UtilityVariable(); u != nil {
		cpt.SetUtilityVariable(u)
		return cpt, nil
	}
	out, err := potential.NewTablePotentialWithValues(cpt.Variables(), potential.ConditionalProbability, cpt.Values())
	if err != nil {
		return nil, err
	}
	out.SetComment(p.Comment())
	return out, nil
}

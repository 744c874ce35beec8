package operations

import (
	"fmt"

	"github.com/orneryd/markovnet/pkg/evidence"
	"github.com/orneryd/markovnet/pkg/network"
	"github.com/orneryd/markovnet/pkg/variable"
)

// ProjectEvidence replaces every potential that mentions an observed variable
// by its projection onto ec, then removes the observed nodes from net.
// Projections that end up over no variables, or over variables net no longer
// holds, are dropped.
func ProjectEvidence(net *network.ProbNet, ec *evidence.Case) error {
	for _, v := range ec.Variables() {
		pn := net.ProbNodeOf(v)
		if pn == nil {
			continue
		}
		for _, p := range net.PotentialsOf(v) {
			net.RemovePotential(p)
			tables, err := p.TableProject(ec)
			if err != nil {
				return fmt.Errorf("projecting evidence on %s: %w", p, err)
			}
			for _, t := range tables {
				if t.NumVariables() == 0 || !containsAll(net, t.Variables()) {
					continue
				}
				if _, err := net.AddPotential(t); err != nil {
					return err
				}
			}
		}
		if err := net.RemoveProbNode(pn); err != nil {
			return err
		}
	}
	return nil
}

func containsAll(net *network.ProbNet, vars []*variable.Variable) bool {
	for _, v := range vars {
		if net.ProbNodeOf(v) == nil {
			return false
		}
	}
	return true
}

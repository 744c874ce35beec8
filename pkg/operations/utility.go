package operations

import (
	"math"

	"github.com/orneryd/markovnet/pkg/errkind"
	"github.com/orneryd/markovnet/pkg/evidence"
	"github.com/orneryd/markovnet/pkg/network"
)

// UtilityBounds approximates the range of the utility function of pn by adding
// the minima and the maxima of its projected potentials. Potentials that can
// not be projected make the whole call fail.
func UtilityBounds(net *network.ProbNet, pn *network.ProbNode) (lower, upper float64, err error) {
	if pn.NodeType() != network.Utility {
		return 0, 0, errkind.New(errkind.InvalidArgument, "%s is not a utility node", pn.Name())
	}
	if net.ProbNodeOf(pn.Variable()) != pn {
		return 0, 0, errkind.New(errkind.ProbNodeNotFound, "%s", pn.Name())
	}
	empty := evidence.Empty()
	for _, p := range pn.Potentials() {
		tables, err := p.TableProject(empty)
		if err != nil {
			return 0, 0, err
		}
		for _, t := range tables {
			lo, hi := math.Inf(1), math.Inf(-1)
			for _, v := range t.Values() {
				lo = math.Min(lo, v)
				hi = math.Max(hi, v)
			}
			if len(t.Values()) == 0 {
				continue
			}
			lower += lo
			upper += hi
		}
	}
	return lower, upper, nil
}

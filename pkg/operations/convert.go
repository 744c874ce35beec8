package operations

import (
	"fmt"
	"sort"

	"github.com/orneryd/markovnet/pkg/errkind"
	"github.com/orneryd/markovnet/pkg/evidence"
	"github.com/orneryd/markovnet/pkg/network"
	"github.com/orneryd/markovnet/pkg/potential"
	"github.com/orneryd/markovnet/pkg/variable"
)

// ConvertNumericalVariablesToFS returns a copy of net in which every numeric
// chance variable becomes a finite-states variable.
//
// An observed variable gets a single state named after its observed value. An
// unobserved one must be a deterministic function of its parents: its
// potential is projected for every parent configuration and the distinct
// results become its states, in ascending order, with a one-hot table linking
// each configuration to its result. Potentials further down the network are
// rewritten to use the converted variables, and so is ec.
//
// net itself is left untouched. A potential that can not be projected for a
// configuration makes the call fail with a NonProjectable error.
func ConvertNumericalVariablesToFS(net *network.ProbNet, ec *evidence.Case) (*network.ProbNet, error) {
	if ec == nil {
		ec = evidence.Empty()
	}
	converted := net.Copy()
	sorted, err := SortTopologically(converted)
	if err != nil {
		return nil, err
	}

	// original numeric variable of every variable created here
	originals := make(map[*variable.Variable]*variable.Variable)
	// converted variable by name
	replacements := make(map[string]*variable.Variable)

	for _, pn := range sorted {
		old := pn.Variable()
		if old.Type() == variable.Numeric && pn.NodeType() == network.Chance {
			nv, table, err := convertNode(converted, pn, ec, originals)
			if err != nil {
				return nil, err
			}
			pn.SetVariable(nv)
			pn.SetPotential(table)
			originals[nv] = old
			replacements[old.Name()] = nv
			continue
		}
		if err := replaceConverted(pn, replacements); err != nil {
			return nil, err
		}
	}

	for _, f := range ec.Findings() {
		nv, ok := replacements[f.Variable().Name()]
		if !ok || f.Variable() == nv {
			continue
		}
		value := originals[nv].Round(f.NumericalValue())
		idx, err := nv.StateIndex(variable.FormatValue(value))
		if err != nil {
			return nil, errkind.Wrap(errkind.InvalidState, err, "finding %s", f)
		}
		if _, err := ec.RemoveFinding(f.Variable()); err != nil {
			return nil, err
		}
		nf, err := evidence.NewStateFinding(nv, idx)
		if err != nil {
			return nil, err
		}
		if err := ec.AddFinding(nf); err != nil {
			return nil, err
		}
	}
	return converted, nil
}

func convertNode(net *network.ProbNet, pn *network.ProbNode, ec *evidence.Case,
	originals map[*variable.Variable]*variable.Variable) (*variable.Variable, *potential.TablePotential, error) {
	old := pn.Variable()
	potentials := pn.Potentials()
	if len(potentials) == 0 {
		return nil, nil, errkind.New(errkind.NonProjectable, "%s has no potential", old.Name())
	}
	p := potentials[0]

	if f := ec.Finding(old); f != nil {
		nv := variable.NewFiniteStates(old.Name(), variable.FormatValue(old.Round(f.NumericalValue())))
		table := potential.NewTablePotential([]*variable.Variable{nv}, p.Role())
		table.Values()[0] = 1
		return nv, table, nil
	}

	parents := net.Parents(pn)
	parentVars := make([]*variable.Variable, len(parents))
	dims := make([]int, len(parents))
	configuration := ec.Copy()
	numConfigurations := 1
	for i, parent := range parents {
		parentVars[i] = parent.Variable()
		dims[i] = parentVars[i].NumStates()
		numConfigurations *= dims[i]
		if err := setParentFinding(configuration, parentVars[i], 0, originals); err != nil {
			return nil, nil, err
		}
	}

	projected := make([]float64, numConfigurations)
	coords := make([]int, len(parents))
	for i := range projected {
		tables, err := p.TableProject(configuration)
		if err != nil {
			return nil, nil, fmt.Errorf("converting %s: %w", old.Name(), err)
		}
		if len(tables) != 1 || !tables[0].IsConstant() {
			return nil, nil, errkind.New(errkind.NonProjectable,
				"%s is not a deterministic function of its parents", old.Name())
		}
		projected[i] = old.Round(tables[0].Values()[0])

		moved := potential.Advance(coords, dims)
		for j := 0; j <= moved; j++ {
			if err := setParentFinding(configuration, parentVars[j], coords[j], originals); err != nil {
				return nil, nil, err
			}
		}
	}

	distinct := make([]float64, 0, len(projected))
	seen := make(map[float64]bool)
	for _, v := range projected {
		if !seen[v] {
			seen[v] = true
			distinct = append(distinct, v)
		}
	}
	sort.Float64s(distinct)
	names := make([]string, len(distinct))
	stateOf := make(map[float64]int, len(distinct))
	for i, v := range distinct {
		names[i] = variable.FormatValue(v)
		stateOf[v] = i
	}
	nv := variable.NewFiniteStates(old.Name(), names...)

	table := potential.NewTablePotential(append([]*variable.Variable{nv}, parentVars...), p.Role())
	values := table.Values()
	for i := range values {
		values[i] = 0
	}
	for i, v := range projected {
		values[i*len(distinct)+stateOf[v]] = 1
	}
	return nv, table, nil
}

// setParentFinding observes parent v in the given state. Parents that were
// converted earlier are observed through their original numeric variable.
func setParentFinding(ec *evidence.Case, v *variable.Variable, state int,
	originals map[*variable.Variable]*variable.Variable) error {
	var (
		f   *evidence.Finding
		err error
	)
	switch {
	case originals[v] != nil:
		s, serr := v.State(state)
		if serr != nil {
			return serr
		}
		value, perr := variable.ParseValue(s.Name)
		if perr != nil {
			return errkind.Wrap(errkind.InvalidState, perr, "state %q of %s", s.Name, v.Name())
		}
		f, err = evidence.NewNumericFinding(originals[v], value)
	case v.Type() == variable.Numeric:
		return errkind.New(errkind.NonProjectable, "numeric parent %s can not be enumerated", v.Name())
	default:
		f, err = evidence.NewStateFinding(v, state)
	}
	if err != nil {
		return err
	}
	return ec.ChangeFinding(f)
}

// replaceConverted rewrites the potentials of pn that mention a converted
// variable other than the one they are conditioned on.
func replaceConverted(pn *network.ProbNode, replacements map[string]*variable.Variable) error {
	if len(replacements) == 0 {
		return nil
	}
	potentials := pn.Potentials()
	changed := false
	for i, p := range potentials {
		var targets []*variable.Variable
		for _, v := range p.Variables() {
			nv, ok := replacements[v.Name()]
			if !ok || v == nv || (!p.IsUtility() && v == p.ConditionedVariable()) {
				continue
			}
			targets = append(targets, v)
		}
		if len(targets) == 0 {
			continue
		}
		cp := p.Copy()
		for _, v := range targets {
			if err := cp.ReplaceVariable(v, replacements[v.Name()]); err != nil {
				return fmt.Errorf("replacing %s in %s: %w", v.Name(), p, err)
			}
		}
		potentials[i] = cp
		changed = true
	}
	if changed {
		pn.SetPotentials(potentials)
	}
	return nil
}

package evidence

import (
	"strings"

	"github.com/orneryd/markovnet/pkg/errkind"
	"github.com/orneryd/markovnet/pkg/variable"
)

// Inducer derives findings that deterministically follow from a case.
// Potentials implement it; most induce nothing.
type Inducer interface {
	InducedFindings(ec *Case, cycleLength float64) ([]*Finding, error)
}

// InducerSource exposes the inducers of a network.
type InducerSource interface {
	// Inducers returns every inducer of the network.
	Inducers() []Inducer
	// InducersOf returns the inducers whose scope includes v.
	InducersOf(v *variable.Variable) []Inducer
}

// VariableLookup resolves variables by name.
type VariableLookup interface {
	Variable(name string) (*variable.Variable, error)
}

// ShiftedLookup resolves the copy of a temporal variable in another time slice.
type ShiftedLookup interface {
	ShiftedVariable(v *variable.Variable, timeDifference int) (*variable.Variable, error)
}

// Case is a set of findings, at most one per variable, kept in insertion order.
//
// Case is not safe for concurrent mutation.
type Case struct {
	findings map[string]*Finding
	order    []string
}

// NewCase builds a case from findings, skipping none: the first error aborts.
func NewCase(findings ...*Finding) (*Case, error) {
	ec := &Case{findings: make(map[string]*Finding)}
	if err := ec.AddFindings(findings); err != nil {
		return nil, err
	}
	return ec, nil
}

// Empty returns a case without findings.
func Empty() *Case {
	return &Case{findings: make(map[string]*Finding)}
}

// Copy returns a case with copies of every finding.
func (ec *Case) Copy() *Case {
	c := &Case{findings: make(map[string]*Finding, len(ec.findings)), order: append([]string(nil), ec.order...)}
	for name, f := range ec.findings {
		c.findings[name] = f.Copy()
	}
	return c
}

// =============================================================================
// Adding and removing findings
// =============================================================================

// AddFinding inserts f. A compatible finding for the same variable makes the
// call a no-op; a conflicting one fails with IncompatibleEvidence.
func (ec *Case) AddFinding(f *Finding) error {
	if f == nil || f.variable == nil {
		return errkind.New(errkind.InvalidArgument, "nil finding")
	}
	if !f.valid() {
		return errkind.New(errkind.InvalidState, "invalid state for %s", f.variable.Name())
	}
	if !ec.IsCompatible(f) {
		return errkind.New(errkind.IncompatibleEvidence, "%s conflicts with %s", f, ec.findings[f.variable.Name()])
	}
	name := f.variable.Name()
	if _, ok := ec.findings[name]; ok {
		return nil
	}
	ec.findings[name] = f
	ec.order = append(ec.order, name)
	return nil
}

// AddFindings adds every finding, stopping at the first error.
func (ec *Case) AddFindings(findings []*Finding) error {
	for _, f := range findings {
		if err := ec.AddFinding(f); err != nil {
			return err
		}
	}
	return nil
}

// AddNamedFinding observes a state of a variable looked up by name.
func (ec *Case) AddNamedFinding(lookup VariableLookup, variableName, stateName string) error {
	v, err := lookup.Variable(variableName)
	if err != nil {
		return err
	}
	f, err := NewNamedFinding(v, stateName)
	if err != nil {
		return err
	}
	return ec.AddFinding(f)
}

// AddNumericFindingByName observes a number for a variable looked up by name.
func (ec *Case) AddNumericFindingByName(lookup VariableLookup, variableName string, value float64) error {
	v, err := lookup.Variable(variableName)
	if err != nil {
		return err
	}
	f, err := NewNumericFinding(v, value)
	if err != nil {
		return err
	}
	return ec.AddFinding(f)
}

// ChangeFinding replaces the finding of f's variable.
func (ec *Case) ChangeFinding(f *Finding) error {
	if f == nil || f.variable == nil {
		return errkind.New(errkind.InvalidArgument, "nil finding")
	}
	if !f.valid() {
		return errkind.New(errkind.InvalidState, "invalid state for %s", f.variable.Name())
	}
	if ec.Contains(f.variable) {
		if _, err := ec.RemoveFinding(f.variable); err != nil {
			return err
		}
	}
	return ec.AddFinding(f)
}

// RemoveFinding removes and returns the finding of v.
func (ec *Case) RemoveFinding(v *variable.Variable) (*Finding, error) {
	name := v.Name()
	f, ok := ec.findings[name]
	if !ok {
		return nil, errkind.New(errkind.NoFinding, "no finding for %s", name)
	}
	delete(ec.findings, name)
	for i, n := range ec.order {
		if n == name {
			ec.order = append(ec.order[:i], ec.order[i+1:]...)
			break
		}
	}
	return f, nil
}

// =============================================================================
// Queries
// =============================================================================

// Finding returns the finding of v, or nil.
func (ec *Case) Finding(v *variable.Variable) *Finding {
	return ec.findings[v.Name()]
}

// State returns the observed state index of v, or -1.
func (ec *Case) State(v *variable.Variable) int {
	if f := ec.Finding(v); f != nil {
		return f.StateIndex()
	}
	return -1
}

// NumericalValue returns the observed number of v.
func (ec *Case) NumericalValue(v *variable.Variable) (float64, error) {
	f := ec.Finding(v)
	if f == nil {
		return 0, errkind.New(errkind.NoFinding, "no finding for %s", v.Name())
	}
	return f.NumericalValue(), nil
}

// Contains reports whether v is observed.
func (ec *Case) Contains(v *variable.Variable) bool {
	_, ok := ec.findings[v.Name()]
	return ok
}

// Variables returns the observed variables in insertion order.
func (ec *Case) Variables() []*variable.Variable {
	vars := make([]*variable.Variable, len(ec.order))
	for i, name := range ec.order {
		vars[i] = ec.findings[name].variable
	}
	return vars
}

// Findings returns the findings in insertion order.
func (ec *Case) Findings() []*Finding {
	findings := make([]*Finding, len(ec.order))
	for i, name := range ec.order {
		findings[i] = ec.findings[name]
	}
	return findings
}

// Len returns the number of findings.
func (ec *Case) Len() int { return len(ec.order) }

// IsEmpty reports whether the case has no findings.
func (ec *Case) IsEmpty() bool { return len(ec.order) == 0 }

// ExistsEvidence is the negation of IsEmpty.
func (ec *Case) ExistsEvidence() bool { return !ec.IsEmpty() }

// RemainingVariables returns the variables of vars that are not observed.
func (ec *Case) RemainingVariables(vars []*variable.Variable) []*variable.Variable {
	var remaining []*variable.Variable
	for _, v := range vars {
		if !ec.Contains(v) {
			remaining = append(remaining, v)
		}
	}
	return remaining
}

// IsCompatible reports whether f agrees with the finding already held for its
// variable. Finite-states variables compare state indices, numeric variables
// compare values and discretized variables accept either match.
func (ec *Case) IsCompatible(f *Finding) bool {
	current, ok := ec.findings[f.variable.Name()]
	if !ok {
		return true
	}
	sameState := current.StateIndex() == f.StateIndex()
	sameValue := current.hasNumeric && f.hasNumeric && current.numericalValue == f.numericalValue
	switch f.variable.Type() {
	case variable.FiniteStates:
		return sameState
	case variable.Numeric:
		return sameValue
	default:
		return sameState || sameValue
	}
}

// String renders the case as "[A = a, B = 2.5]".
func (ec *Case) String() string {
	parts := make([]string, 0, len(ec.order))
	for _, f := range ec.Findings() {
		parts = append(parts, f.String())
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// =============================================================================
// Propagation and merging
// =============================================================================

// ExtendEvidence adds the findings induced by src until nothing new appears.
//
// Every inducer is asked once up front; afterwards each newly observed variable
// is queued and the inducers touching it are asked again. A variable enters the
// queue at most once, so the loop ends. A finding already in the case wins
// over an induced one for the same variable.
func (ec *Case) ExtendEvidence(src InducerSource, cycleLength float64) error {
	queue := make([]*variable.Variable, 0, ec.Len())
	queued := make(map[string]bool, ec.Len())
	enqueue := func(v *variable.Variable) {
		if !queued[v.Name()] {
			queued[v.Name()] = true
			queue = append(queue, v)
		}
	}
	addInduced := func(inducers []Inducer) error {
		for _, inducer := range inducers {
			induced, err := inducer.InducedFindings(ec, cycleLength)
			if err != nil {
				return err
			}
			for _, f := range induced {
				if ec.Contains(f.variable) {
					continue
				}
				if err := ec.AddFinding(f); err != nil {
					return err
				}
				enqueue(f.variable)
			}
		}
		return nil
	}

	for _, v := range ec.Variables() {
		enqueue(v)
	}
	if err := addInduced(src.Inducers()); err != nil {
		return err
	}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		if err := addInduced(src.InducersOf(v)); err != nil {
			return err
		}
	}
	return nil
}

// Fuse merges other into ec. Variables already observed are replaced only when
// overwrite is set. Findings with an invalid state are skipped silently.
func (ec *Case) Fuse(other *Case, overwrite bool) error {
	for _, f := range other.Findings() {
		var err error
		switch {
		case !ec.Contains(f.variable):
			err = ec.AddFinding(f)
		case overwrite:
			err = ec.ChangeFinding(f)
		}
		if err != nil && !errkind.Is(err, errkind.InvalidState) {
			return err
		}
	}
	return nil
}

// ShiftEvidenceBackwards moves every temporal finding timeDifference slices back.
func (ec *Case) ShiftEvidenceBackwards(timeDifference int, lookup ShiftedLookup) error {
	shifted := Empty()
	for _, f := range ec.Findings() {
		v := f.variable
		if v.IsTemporal() {
			target, err := lookup.ShiftedVariable(v, -timeDifference)
			if err != nil {
				return err
			}
			c := f.Copy()
			c.variable = target
			f = c
		}
		if err := shifted.AddFinding(f); err != nil {
			return err
		}
	}
	*ec = *shifted
	return nil
}

package network

import (
	"fmt"
	"strings"
	"sync"

	"github.com/orneryd/markovnet/pkg/errkind"
	"github.com/orneryd/markovnet/pkg/potential"
	"github.com/orneryd/markovnet/pkg/variable"
)

// Edit is an undoable change to a network. Edits are applied through
// ProbNet.DoEdit so that constraints and listeners see them first.
type Edit interface {
	Do(net *ProbNet) error
	Undo(net *ProbNet) error
	String() string
}

// EditListener is told about edits. EditWillHappen may veto an edit by
// returning an error.
type EditListener interface {
	EditWillHappen(net *ProbNet, edit Edit) error
	EditHappened(net *ProbNet, edit Edit)
	EditUndone(net *ProbNet, edit Edit)
}

// SimpleEdits flattens compound edits into their leaves.
func SimpleEdits(edit Edit) []Edit {
	compound, ok := edit.(*CompoundEdit)
	if !ok {
		return []Edit{edit}
	}
	var out []Edit
	for _, e := range compound.Edits {
		out = append(out, SimpleEdits(e)...)
	}
	return out
}

// =============================================================================
// Edit support
// =============================================================================

// EditSupport keeps the listeners and the undo and redo stacks of a network.
type EditSupport struct {
	mu        sync.Mutex
	listeners []EditListener
	undo      []Edit
	redo      []Edit
}

// AddListener registers l. Adding a listener twice has no effect.
func (s *EditSupport) AddListener(l EditListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.listeners {
		if existing == l {
			return
		}
	}
	s.listeners = append(s.listeners, l)
}

// RemoveListener unregisters l.
func (s *EditSupport) RemoveListener(l EditListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.listeners {
		if existing == l {
			s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
			return
		}
	}
}

// Listeners returns the registered listeners.
func (s *EditSupport) Listeners() []EditListener {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]EditListener(nil), s.listeners...)
}

// CanUndo reports whether there is an edit to undo.
func (s *EditSupport) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.undo) > 0
}

// CanRedo reports whether there is an undone edit to redo.
func (s *EditSupport) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.redo) > 0
}

func (s *EditSupport) announce(net *ProbNet, edit Edit) error {
	for _, l := range s.Listeners() {
		if err := l.EditWillHappen(net, edit); err != nil {
			return err
		}
	}
	return nil
}

func (s *EditSupport) happened(net *ProbNet, edit Edit, clearRedo bool) {
	s.mu.Lock()
	s.undo = append(s.undo, edit)
	if clearRedo {
		s.redo = nil
	}
	s.mu.Unlock()
	for _, l := range s.Listeners() {
		l.EditHappened(net, edit)
	}
}

func (s *EditSupport) popUndo() Edit {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.undo) == 0 {
		return nil
	}
	edit := s.undo[len(s.undo)-1]
	s.undo = s.undo[:len(s.undo)-1]
	return edit
}

func (s *EditSupport) popRedo() Edit {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.redo) == 0 {
		return nil
	}
	edit := s.redo[len(s.redo)-1]
	s.redo = s.redo[:len(s.redo)-1]
	return edit
}

func (s *EditSupport) undone(net *ProbNet, edit Edit) {
	s.mu.Lock()
	s.redo = append(s.redo, edit)
	s.mu.Unlock()
	for _, l := range s.Listeners() {
		l.EditUndone(net, edit)
	}
}

func (s *EditSupport) copySupport() *EditSupport {
	return &EditSupport{listeners: s.Listeners()}
}

// DoEdit checks edit against every constraint, lets listeners veto it, then
// applies it and records it for undo. An edit that leaves the network
// violating a constraint is undone and reported as a ConstraintViolation.
func (net *ProbNet) DoEdit(edit Edit) error {
	for _, c := range net.constraints {
		ok, err := c.CheckEdit(net, edit)
		if err != nil {
			return errkind.Wrap(errkind.ConstraintViolation, err, "%s: %s", c.Name(), edit)
		}
		if !ok {
			return errkind.New(errkind.ConstraintViolation, "%s: %s (%s)", c.Name(), c.Message(), edit)
		}
	}
	if err := net.edits.announce(net, edit); err != nil {
		return err
	}
	if err := edit.Do(net); err != nil {
		if errkind.Is(err, errkind.CanNotDoEdit) {
			return err
		}
		return errkind.Wrap(errkind.DoEditFailed, err, "%s", edit)
	}
	// Per-edit checks see the network before the edit; compound edits can
	// still combine into a violation.
	if err := net.CheckProbNet(); err != nil {
		if undoErr := edit.Undo(net); undoErr != nil {
			return errkind.Wrap(errkind.DoEditFailed, undoErr, "rolling back %s after %v", edit, err)
		}
		return err
	}
	net.edits.happened(net, edit, true)
	return nil
}

// Undo reverts the last edit.
func (net *ProbNet) Undo() error {
	edit := net.edits.popUndo()
	if edit == nil {
		return errkind.New(errkind.CanNotDoEdit, "nothing to undo")
	}
	if err := edit.Undo(net); err != nil {
		return errkind.Wrap(errkind.CanNotDoEdit, err, "undo %s", edit)
	}
	net.edits.undone(net, edit)
	return nil
}

// Redo re-applies the last undone edit.
func (net *ProbNet) Redo() error {
	edit := net.edits.popRedo()
	if edit == nil {
		return errkind.New(errkind.CanNotDoEdit, "nothing to redo")
	}
	if err := edit.Do(net); err != nil {
		return errkind.Wrap(errkind.CanNotDoEdit, err, "redo %s", edit)
	}
	net.edits.happened(net, edit, false)
	return nil
}

// =============================================================================
// Node edits
// =============================================================================

// AddProbNodeEdit adds a node for Variable.
type AddProbNodeEdit struct {
	Variable *variable.Variable
	NodeType NodeType

	added *ProbNode
}

func (e *AddProbNodeEdit) Do(net *ProbNet) error {
	if net.depot.ByName(e.Variable.Name()) != nil {
		return errkind.New(errkind.CanNotDoEdit, "node %s already exists", e.Variable.Name())
	}
	e.added = net.AddProbNode(e.Variable, e.NodeType)
	return nil
}

func (e *AddProbNodeEdit) Undo(net *ProbNet) error {
	if e.added == nil {
		return errkind.New(errkind.CanNotDoEdit, "node %s was not added", e.Variable.Name())
	}
	err := net.RemoveProbNode(e.added)
	e.added = nil
	return err
}

func (e *AddProbNodeEdit) String() string {
	return fmt.Sprintf("add %s node %s", e.NodeType, e.Variable.Name())
}

// RemoveProbNodeEdit removes the node of Variable with its links.
type RemoveProbNodeEdit struct {
	Variable *variable.Variable

	removed *ProbNode
	links   []*Link
}

func (e *RemoveProbNodeEdit) Do(net *ProbNet) error {
	pn := net.ProbNodeOf(e.Variable)
	if pn == nil {
		return errkind.New(errkind.CanNotDoEdit, "no node for %s", e.Variable.Name())
	}
	e.links = nil
	for _, l := range net.graph.LinksOf(pn.id) {
		e.links = append(e.links, l.copyLink())
	}
	e.removed = pn
	return net.RemoveProbNode(pn)
}

func (e *RemoveProbNodeEdit) Undo(net *ProbNet) error {
	if e.removed == nil {
		return errkind.New(errkind.CanNotDoEdit, "node %s was not removed", e.Variable.Name())
	}
	net.restoreProbNode(e.removed)
	for _, l := range e.links {
		if err := net.restoreLink(l); err != nil {
			return err
		}
	}
	e.removed, e.links = nil, nil
	return nil
}

func (e *RemoveProbNodeEdit) String() string { return "remove node " + e.Variable.Name() }

// =============================================================================
// Link edits
// =============================================================================

// AddLinkEdit adds a link from Variable1 to Variable2.
type AddLinkEdit struct {
	Variable1 *variable.Variable
	Variable2 *variable.Variable
	Directed  bool
}

func (e *AddLinkEdit) Do(net *ProbNet) error {
	return net.AddLink(e.Variable1, e.Variable2, e.Directed)
}

func (e *AddLinkEdit) Undo(net *ProbNet) error {
	return net.RemoveLink(e.Variable1, e.Variable2, e.Directed)
}

func (e *AddLinkEdit) String() string {
	return "add link " + linkLabel(e.Variable1, e.Variable2, e.Directed)
}

// RemoveLinkEdit removes the link between Variable1 and Variable2.
type RemoveLinkEdit struct {
	Variable1 *variable.Variable
	Variable2 *variable.Variable
	Directed  bool

	removed *Link
}

func (e *RemoveLinkEdit) Do(net *ProbNet) error {
	n1, n2, ok := net.linkEnds(e.Variable1, e.Variable2)
	if !ok {
		return errkind.New(errkind.NodeNotFound, "link %s", linkLabel(e.Variable1, e.Variable2, e.Directed))
	}
	l := net.graph.Link(n1, n2, e.Directed)
	if l == nil {
		return errkind.New(errkind.CanNotDoEdit, "no link %s", linkLabel(e.Variable1, e.Variable2, e.Directed))
	}
	e.removed = l.copyLink()
	return net.graph.RemoveLink(n1, n2, e.Directed)
}

func (e *RemoveLinkEdit) Undo(net *ProbNet) error {
	if e.removed == nil {
		return errkind.New(errkind.CanNotDoEdit, "link %s was not removed", linkLabel(e.Variable1, e.Variable2, e.Directed))
	}
	err := net.restoreLink(e.removed)
	e.removed = nil
	return err
}

func (e *RemoveLinkEdit) String() string {
	return "remove link " + linkLabel(e.Variable1, e.Variable2, e.Directed)
}

// InvertLinkEdit turns the directed link Variable1 -> Variable2 around.
type InvertLinkEdit struct {
	Variable1 *variable.Variable
	Variable2 *variable.Variable
}

func (e *InvertLinkEdit) Do(net *ProbNet) error { return invert(net, e.Variable1, e.Variable2) }

func (e *InvertLinkEdit) Undo(net *ProbNet) error { return invert(net, e.Variable2, e.Variable1) }

func (e *InvertLinkEdit) String() string {
	return "invert link " + linkLabel(e.Variable1, e.Variable2, true)
}

func invert(net *ProbNet, from, to *variable.Variable) error {
	n1, n2, ok := net.linkEnds(from, to)
	if !ok {
		return errkind.New(errkind.NodeNotFound, "link %s", linkLabel(from, to, true))
	}
	l := net.graph.Link(n1, n2, true)
	if l == nil {
		return errkind.New(errkind.CanNotDoEdit, "no link %s", linkLabel(from, to, true))
	}
	saved := l.copyLink()
	if err := net.graph.RemoveLink(n1, n2, true); err != nil {
		return err
	}
	inverted, err := net.graph.AddLink(n2, n1, true)
	if err != nil {
		return err
	}
	inverted.RestrictionsPotential = saved.RestrictionsPotential
	return nil
}

func linkLabel(v1, v2 *variable.Variable, directed bool) string {
	if directed {
		return v1.Name() + " -> " + v2.Name()
	}
	return v1.Name() + " -- " + v2.Name()
}

// =============================================================================
// Potential and network edits
// =============================================================================

// SetPotentialEdit replaces the potentials of the node of Variable by Potential.
type SetPotentialEdit struct {
	Variable  *variable.Variable
	Potential potential.Potential

	previous []potential.Potential
}

func (e *SetPotentialEdit) Do(net *ProbNet) error {
	pn := net.ProbNodeOf(e.Variable)
	if pn == nil {
		return errkind.New(errkind.CanNotDoEdit, "no node for %s", e.Variable.Name())
	}
	e.previous = pn.Potentials()
	pn.SetPotential(e.Potential)
	return nil
}

func (e *SetPotentialEdit) Undo(net *ProbNet) error {
	pn := net.ProbNodeOf(e.Variable)
	if pn == nil {
		return errkind.New(errkind.CanNotDoEdit, "no node for %s", e.Variable.Name())
	}
	pn.SetPotentials(e.previous)
	return nil
}

func (e *SetPotentialEdit) String() string {
	return fmt.Sprintf("set potential of %s to %s", e.Variable.Name(), e.Potential)
}

// ChangeNetworkTypeEdit switches the network type.
type ChangeNetworkTypeEdit struct {
	Type *NetworkType

	previous *NetworkType
}

func (e *ChangeNetworkTypeEdit) Do(net *ProbNet) error {
	e.previous = net.networkType
	return net.SetNetworkType(e.Type)
}

func (e *ChangeNetworkTypeEdit) Undo(net *ProbNet) error {
	if e.previous == nil {
		return errkind.New(errkind.CanNotDoEdit, "network type was not changed")
	}
	return net.SetNetworkType(e.previous)
}

func (e *ChangeNetworkTypeEdit) String() string { return "change network type to " + e.Type.Name() }

// CompoundEdit applies several edits as one. If a sub-edit fails, the ones
// already done are undone in reverse order.
type CompoundEdit struct {
	Edits []Edit
}

func (e *CompoundEdit) Do(net *ProbNet) error {
	for i, sub := range e.Edits {
		if err := sub.Do(net); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = e.Edits[j].Undo(net)
			}
			return err
		}
	}
	return nil
}

func (e *CompoundEdit) Undo(net *ProbNet) error {
	for i := len(e.Edits) - 1; i >= 0; i-- {
		if err := e.Edits[i].Undo(net); err != nil {
			return err
		}
	}
	return nil
}

func (e *CompoundEdit) String() string {
	parts := make([]string, len(e.Edits))
	for i, sub := range e.Edits {
		parts[i] = sub.String()
	}
	return "{" + strings.Join(parts, "; ") + "}"
}

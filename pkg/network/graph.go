package network

import (
	"github.com/orneryd/markovnet/pkg/errkind"
	"github.com/orneryd/markovnet/pkg/potential"
	"github.com/orneryd/markovnet/pkg/variable"
)

// NodeID is a handle into a Graph. IDs are never reused within a graph and are
// preserved by Copy.
type NodeID int

// Link connects two nodes. Directed links go from Node1 to Node2.
type Link struct {
	Node1    NodeID
	Node2    NodeID
	Directed bool

	// RestrictionsPotential marks forbidden state combinations of the two nodes.
	RestrictionsPotential potential.Potential
	// RevealingStates and RevealingIntervals list the values of Node1 that make
	// Node2 observable.
	RevealingStates    []variable.State
	RevealingIntervals []*variable.PartitionedInterval
}

func (l *Link) copyLink() *Link {
	c := *l
	c.RevealingStates = append([]variable.State(nil), l.RevealingStates...)
	c.RevealingIntervals = make([]*variable.PartitionedInterval, len(l.RevealingIntervals))
	for i, iv := range l.RevealingIntervals {
		c.RevealingIntervals[i] = iv.Copy()
	}
	if l.RestrictionsPotential != nil {
		c.RestrictionsPotential = l.RestrictionsPotential.Copy()
	}
	return &c
}

// connects reports whether the link joins a and b in either orientation.
func (l *Link) connects(a, b NodeID) bool {
	return (l.Node1 == a && l.Node2 == b) || (l.Node1 == b && l.Node2 == a)
}

type vertex struct {
	parents  []NodeID
	children []NodeID
	siblings []NodeID
}

// Graph is a mixed graph of directed and undirected links between nodes
// identified by NodeID.
type Graph struct {
	vertices map[NodeID]*vertex
	order    []NodeID
	links    []*Link
	next     NodeID
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{vertices: make(map[NodeID]*vertex)}
}

// AddNode creates a node and returns its handle.
func (g *Graph) AddNode() NodeID {
	id := g.next
	g.next++
	g.vertices[id] = &vertex{}
	g.order = append(g.order, id)
	return id
}

// restoreNode re-creates a removed node under its old handle.
func (g *Graph) restoreNode(id NodeID) {
	if g.Contains(id) {
		return
	}
	g.vertices[id] = &vertex{}
	g.order = append(g.order, id)
	if id >= g.next {
		g.next = id + 1
	}
}

// Contains reports whether id is a node of the graph.
func (g *Graph) Contains(id NodeID) bool {
	_, ok := g.vertices[id]
	return ok
}

// RemoveNode deletes a node and every link touching it.
func (g *Graph) RemoveNode(id NodeID) error {
	if !g.Contains(id) {
		return errkind.New(errkind.NodeNotFound, "node %d", id)
	}
	for _, l := range append([]*Link(nil), g.links...) {
		if l.Node1 == id || l.Node2 == id {
			g.removeLink(l)
		}
	}
	delete(g.vertices, id)
	g.order = removeID(g.order, id)
	return nil
}

// Nodes returns the node handles in creation order.
func (g *Graph) Nodes() []NodeID { return append([]NodeID(nil), g.order...) }

// NumNodes returns the number of nodes.
func (g *Graph) NumNodes() int { return len(g.order) }

// AddLink connects a and b. Adding a link that already exists is a no-op that
// returns the existing link.
func (g *Graph) AddLink(a, b NodeID, directed bool) (*Link, error) {
	va, okA := g.vertices[a]
	vb, okB := g.vertices[b]
	if !okA || !okB {
		return nil, errkind.New(errkind.NodeNotFound, "link %d-%d", a, b)
	}
	if l := g.Link(a, b, directed); l != nil {
		return l, nil
	}
	l := &Link{Node1: a, Node2: b, Directed: directed}
	g.links = append(g.links, l)
	if directed {
		va.children = append(va.children, b)
		vb.parents = append(vb.parents, a)
	} else {
		va.siblings = append(va.siblings, b)
		if a != b {
			vb.siblings = append(vb.siblings, a)
		}
	}
	return l, nil
}

// RemoveLink deletes the link between a and b.
func (g *Graph) RemoveLink(a, b NodeID, directed bool) error {
	l := g.Link(a, b, directed)
	if l == nil {
		return errkind.New(errkind.InvalidArgument, "no link %d-%d", a, b)
	}
	g.removeLink(l)
	return nil
}

func (g *Graph) removeLink(l *Link) {
	for i, candidate := range g.links {
		if candidate == l {
			g.links = append(g.links[:i], g.links[i+1:]...)
			break
		}
	}
	va, vb := g.vertices[l.Node1], g.vertices[l.Node2]
	if l.Directed {
		va.children = removeID(va.children, l.Node2)
		vb.parents = removeID(vb.parents, l.Node1)
		return
	}
	va.siblings = removeID(va.siblings, l.Node2)
	if l.Node1 != l.Node2 {
		vb.siblings = removeID(vb.siblings, l.Node1)
	}
}

// Link returns the link a->b (directed) or a-b in either orientation
// (undirected), or nil.
func (g *Graph) Link(a, b NodeID, directed bool) *Link {
	for _, l := range g.links {
		if l.Directed != directed {
			continue
		}
		if directed && l.Node1 == a && l.Node2 == b {
			return l
		}
		if !directed && l.connects(a, b) {
			return l
		}
	}
	return nil
}

// HasLink reports whether Link would return a link.
func (g *Graph) HasLink(a, b NodeID, directed bool) bool { return g.Link(a, b, directed) != nil }

// LinksBetween returns every link joining a and b, whatever its kind or
// orientation.
func (g *Graph) LinksBetween(a, b NodeID) []*Link {
	var links []*Link
	for _, l := range g.links {
		if l.connects(a, b) {
			links = append(links, l)
		}
	}
	return links
}

// Links returns every link in insertion order.
func (g *Graph) Links() []*Link { return append([]*Link(nil), g.links...) }

// LinksOf returns the links touching id.
func (g *Graph) LinksOf(id NodeID) []*Link {
	var links []*Link
	for _, l := range g.links {
		if l.Node1 == id || l.Node2 == id {
			links = append(links, l)
		}
	}
	return links
}

// Parents returns the sources of directed links into id.
func (g *Graph) Parents(id NodeID) []NodeID { return g.adjacent(id, func(v *vertex) []NodeID { return v.parents }) }

// Children returns the targets of directed links from id.
func (g *Graph) Children(id NodeID) []NodeID { return g.adjacent(id, func(v *vertex) []NodeID { return v.children }) }

// Siblings returns the nodes joined to id by undirected links.
func (g *Graph) Siblings(id NodeID) []NodeID { return g.adjacent(id, func(v *vertex) []NodeID { return v.siblings }) }

func (g *Graph) adjacent(id NodeID, pick func(*vertex) []NodeID) []NodeID {
	v, ok := g.vertices[id]
	if !ok {
		return nil
	}
	return append([]NodeID(nil), pick(v)...)
}

// Neighbors returns parents, children and siblings of id without duplicates.
func (g *Graph) Neighbors(id NodeID) []NodeID {
	v, ok := g.vertices[id]
	if !ok {
		return nil
	}
	seen := make(map[NodeID]bool)
	var out []NodeID
	for _, list := range [][]NodeID{v.parents, v.children, v.siblings} {
		for _, n := range list {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	return out
}

// ExistsPath reports whether b can be reached from a. Directed paths only follow
// links from parent to child; undirected paths follow any link.
func (g *Graph) ExistsPath(a, b NodeID, directed bool) bool {
	return g.existsPath(a, b, directed, nil)
}

// existsPath is ExistsPath ignoring the link skip.
func (g *Graph) existsPath(a, b NodeID, directed bool, skip *Link) bool {
	if !g.Contains(a) || !g.Contains(b) {
		return false
	}
	visited := map[NodeID]bool{a: true}
	stack := []NodeID{a}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == b {
			return true
		}
		for _, l := range g.links {
			if l == skip || (directed && !l.Directed) {
				continue
			}
			var next NodeID
			switch {
			case l.Node1 == n:
				next = l.Node2
			case l.Node2 == n && !directed:
				next = l.Node1
			default:
				continue
			}
			if !visited[next] {
				visited[next] = true
				stack = append(stack, next)
			}
		}
	}
	return false
}

// TopologicalOrder sorts the nodes so that every parent precedes its children.
// Ties are broken by a LIFO stack, so the order among unrelated nodes is not
// specified. A directed cycle yields WrongGraphStructure.
func (g *Graph) TopologicalOrder() ([]NodeID, error) {
	inDegree := make(map[NodeID]int, len(g.order))
	var stack []NodeID
	for _, id := range g.order {
		inDegree[id] = len(g.vertices[id].parents)
		if inDegree[id] == 0 {
			stack = append(stack, id)
		}
	}
	sorted := make([]NodeID, 0, len(g.order))
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		sorted = append(sorted, n)
		for _, child := range g.vertices[n].children {
			inDegree[child]--
			if inDegree[child] == 0 {
				stack = append(stack, child)
			}
		}
	}
	if len(sorted) != len(g.order) {
		return nil, errkind.New(errkind.WrongGraphStructure,
			"directed cycle: only %d of %d nodes can be ordered", len(sorted), len(g.order))
	}
	return sorted, nil
}

// Copy returns a deep copy with the same node handles.
func (g *Graph) Copy() *Graph {
	c := &Graph{
		vertices: make(map[NodeID]*vertex, len(g.vertices)),
		order:    append([]NodeID(nil), g.order...),
		links:    make([]*Link, len(g.links)),
		next:     g.next,
	}
	for id, v := range g.vertices {
		c.vertices[id] = &vertex{
			parents:  append([]NodeID(nil), v.parents...),
			children: append([]NodeID(nil), v.children...),
			siblings: append([]NodeID(nil), v.siblings...),
		}
	}
	for i, l := range g.links {
		c.links[i] = l.copyLink()
	}
	return c
}

func removeID(ids []NodeID, id NodeID) []NodeID {
	for i, candidate := range ids {
		if candidate == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

package network

import (
	"fmt"
	"strings"
)

var dotShapes = map[NodeType]string{
	Chance:   "ellipse",
	Decision: "box",
	Utility:  "hexagon",
}

// GenerateDOT renders the network graph in Graphviz DOT format.
func (net *ProbNet) GenerateDOT() string {
	var sb strings.Builder

	name := net.name
	if name == "" {
		name = net.networkType.Name()
	}
	sb.WriteString(fmt.Sprintf("digraph %q {\n", name))
	sb.WriteString("  rankdir=TB;\n")
	sb.WriteString("\n")

	for _, pn := range net.depot.All() {
		label := pn.Name()
		if pn.variable.NumStates() > 0 && pn.nodeType == Chance {
			label += "\\n{" + strings.Join(pn.variable.StateNames(), ", ") + "}"
		}
		sb.WriteString(fmt.Sprintf("  %q [shape=%s, label=\"%s\"];\n", pn.Name(), dotShapes[pn.nodeType], label))
	}
	sb.WriteString("\n")

	for _, l := range net.graph.links {
		from, to := net.nodes[l.Node1], net.nodes[l.Node2]
		if l.Directed {
			sb.WriteString(fmt.Sprintf("  %q -> %q;\n", from.Name(), to.Name()))
		} else {
			sb.WriteString(fmt.Sprintf("  %q -> %q [dir=none];\n", from.Name(), to.Name()))
		}
	}

	sb.WriteString("}\n")
	return sb.String()
}

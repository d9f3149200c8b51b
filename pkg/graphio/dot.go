package graphio

import (
	"bytes"
	"fmt"

	"github.com/tradelens/ecomplexity/pkg/core/projection"
)

// DOTOptions configures DOT output.
type DOTOptions struct {
	// Name is the graph name. Defaults to "G".
	Name string
	// Weights includes edge weights as labels when true.
	Weights bool
}

// ToDOT renders a network in Graphviz DOT format. The graph is undirected,
// with edges emitted in sorted label order for stable output.
func ToDOT(g Graph, opts DOTOptions) string {
	name := opts.Name
	if name == "" {
		name = "G"
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "graph %q {\n", name)
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  overlap=false;\n")
	buf.WriteString("  node [shape=circle, style=filled, fillcolor=white, fontsize=12];\n")
	buf.WriteString("\n")

	for _, n := range g.Nodes {
		fmt.Fprintf(&buf, "  %q;\n", n.ID)
	}

	buf.WriteString("\n")
	for _, e := range g.Edges {
		if opts.Weights {
			fmt.Fprintf(&buf, "  %q -- %q [label=%q, weight=%g];\n", e.Source, e.Target, fmt.Sprintf("%.3f", e.Weight), e.Weight)
		} else {
			fmt.Fprintf(&buf, "  %q -- %q;\n", e.Source, e.Target)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

// NetworkToDOT is a convenience wrapper that renders a projected network
// directly to DOT.
func NetworkToDOT(n *projection.Network, opts DOTOptions) string {
	g := Graph{Edges: n.Links()}
	for _, label := range n.Labels() {
		g.Nodes = append(g.Nodes, Node{ID: label})
	}
	return ToDOT(g, opts)
}

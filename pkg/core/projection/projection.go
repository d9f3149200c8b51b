// Package projection turns proximity matrices into weighted undirected graphs
// and exposes the network analyses computed on them.
//
// The graph container and every graph algorithm come from gonum - this
// package never implements its own traversal. What it owns is the mapping
// between economy labels and gonum node IDs, and the edge-trimming policies
// that decide which proximity entries become edges:
//
//   - Threshold: drop edges below a fixed weight.
//   - AvgLinks: keep each node's strongest edge, then add the globally
//     strongest remaining edges until the average degree reaches the target.
//     This preserves connectivity while thinning dense proximity matrices
//     down to a readable network.
//
// With a zero-valued [Options], every nonzero proximity entry becomes an edge.
package projection

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/graph/simple"

	"github.com/tradelens/ecomplexity/pkg/core/economy"
	"github.com/tradelens/ecomplexity/pkg/errors"
)

// Options configures edge selection.
type Options struct {
	// Threshold drops edges with weight below it. Zero keeps every nonzero
	// edge (no filtering).
	Threshold float64
	// AvgLinks, when positive, trims the network to approximately this
	// average degree while keeping each node's strongest edge.
	AvgLinks float64
}

// Link is one undirected weighted edge addressed by labels.
type Link struct {
	Source string  `json:"source" bson:"source"`
	Target string  `json:"target" bson:"target"`
	Weight float64 `json:"weight" bson:"weight"`
}

// Network is a weighted undirected graph over labeled vertices.
// The underlying gonum graph uses node IDs 0..n-1 in label order.
type Network struct {
	g      *simple.WeightedUndirectedGraph
	labels []string
	ids    map[string]int64
}

// FromProximity builds a network from a square proximity matrix.
// Vertices are the matrix labels; isolated vertices are retained so the
// network order always matches the label count. Self-loops never occur
// (proximity diagonals are excluded by construction).
func FromProximity(prox *economy.Matrix, opts Options) (*Network, error) {
	if prox == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "nil proximity matrix")
	}
	rows, cols := prox.Dims()
	if rows != cols {
		return nil, errors.New(errors.ErrCodeInvalidShape, "proximity matrix must be square, got %d×%d", rows, cols)
	}
	if opts.Threshold < 0 || math.IsNaN(opts.Threshold) {
		return nil, errors.New(errors.ErrCodeInvalidOptions, "threshold must be non-negative, got %v", opts.Threshold)
	}
	if opts.AvgLinks < 0 || math.IsNaN(opts.AvgLinks) {
		return nil, errors.New(errors.ErrCodeInvalidOptions, "avg links must be non-negative, got %v", opts.AvgLinks)
	}

	labels := prox.Countries()
	n := &Network{
		g:      simple.NewWeightedUndirectedGraph(0, 0),
		labels: labels,
		ids:    make(map[string]int64, len(labels)),
	}
	for i, label := range labels {
		n.ids[label] = int64(i)
		n.g.AddNode(simple.Node(i))
	}

	links := candidateLinks(prox, opts.Threshold)
	if opts.AvgLinks > 0 {
		links = trimToAverageDegree(links, len(labels), opts.AvgLinks)
	}
	for _, l := range links {
		n.g.SetWeightedEdge(n.g.NewWeightedEdge(simple.Node(l.i), simple.Node(l.j), l.w))
	}
	return n, nil
}

// link is an internal edge candidate by index.
type link struct {
	i, j int
	w    float64
}

// candidateLinks collects the upper-triangle entries at or above the
// threshold, sorted by descending weight (ties broken by index for
// determinism).
func candidateLinks(prox *economy.Matrix, threshold float64) []link {
	var links []link
	prox.NonZeros(func(i, j int, v float64) {
		if i >= j {
			return // lower triangle and diagonal: the matrix is symmetric
		}
		if threshold > 0 && v < threshold {
			return
		}
		links = append(links, link{i: i, j: j, w: v})
	})
	sort.Slice(links, func(a, b int) bool {
		if links[a].w != links[b].w {
			return links[a].w > links[b].w
		}
		if links[a].i != links[b].i {
			return links[a].i < links[b].i
		}
		return links[a].j < links[b].j
	})
	return links
}

// trimToAverageDegree keeps each node's strongest incident edge, then fills
// with the strongest remaining edges until the average degree reaches the
// target. Candidates must already be sorted by descending weight.
func trimToAverageDegree(links []link, nodes int, avgLinks float64) []link {
	if len(links) == 0 {
		return links
	}
	budget := int(math.Ceil(avgLinks * float64(nodes) / 2))

	keep := make([]bool, len(links))
	kept := 0

	// Backbone: the strongest edge touching each node. Candidates are sorted,
	// so the first appearance of a node is its strongest link.
	seen := make(map[int]bool, nodes)
	for k, l := range links {
		if !seen[l.i] || !seen[l.j] {
			keep[k] = true
			kept++
			seen[l.i] = true
			seen[l.j] = true
		}
	}

	for k := range links {
		if kept >= budget {
			break
		}
		if !keep[k] {
			keep[k] = true
			kept++
		}
	}

	out := make([]link, 0, kept)
	for k, l := range links {
		if keep[k] {
			out = append(out, l)
		}
	}
	return out
}

// Graph exposes the underlying gonum graph for any algorithm in the gonum
// graph ecosystem.
func (n *Network) Graph() *simple.WeightedUndirectedGraph { return n.g }

// Order returns the number of vertices.
func (n *Network) Order() int { return len(n.labels) }

// Size returns the number of edges.
func (n *Network) Size() int {
	edges := n.g.Edges()
	count := 0
	for edges.Next() {
		count++
	}
	return count
}

// Labels returns a copy of the vertex labels in node-ID order.
func (n *Network) Labels() []string {
	out := make([]string, len(n.labels))
	copy(out, n.labels)
	return out
}

// Label returns the label for a gonum node ID.
func (n *Network) Label(id int64) string {
	if id < 0 || int(id) >= len(n.labels) {
		return ""
	}
	return n.labels[id]
}

// ID returns the gonum node ID for a label and whether it exists.
func (n *Network) ID(label string) (int64, bool) {
	id, ok := n.ids[label]
	return id, ok
}

// Links returns the edges as labeled links sorted by source, then target.
func (n *Network) Links() []Link {
	var out []Link
	edges := n.g.WeightedEdges()
	for edges.Next() {
		e := edges.WeightedEdge()
		from, to := e.From().ID(), e.To().ID()
		if from > to {
			from, to = to, from
		}
		out = append(out, Link{
			Source: n.labels[from],
			Target: n.labels[to],
			Weight: e.Weight(),
		})
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Source != out[b].Source {
			return out[a].Source < out[b].Source
		}
		return out[a].Target < out[b].Target
	})
	return out
}

package projection

import (
	"sort"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/community"
	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/tradelens/ecomplexity/pkg/errors"
)

// Degree returns the number of edges incident to each vertex.
func (n *Network) Degree() map[string]float64 {
	out := make(map[string]float64, len(n.labels))
	for id, label := range n.labels {
		deg := 0
		neighbors := n.g.From(int64(id))
		for neighbors.Next() {
			deg++
		}
		out[label] = float64(deg)
	}
	return out
}

// Strength returns the sum of incident edge weights per vertex.
func (n *Network) Strength() map[string]float64 {
	out := make(map[string]float64, len(n.labels))
	for id, label := range n.labels {
		total := 0.0
		neighbors := n.g.From(int64(id))
		for neighbors.Next() {
			w, _ := n.g.Weight(int64(id), neighbors.Node().ID())
			total += w
		}
		out[label] = total
	}
	return out
}

// Betweenness returns shortest-path betweenness centrality per vertex.
func (n *Network) Betweenness() map[string]float64 {
	raw := network.Betweenness(n.g)
	out := make(map[string]float64, len(n.labels))
	for id, label := range n.labels {
		out[label] = raw[int64(id)] // absent means zero
	}
	return out
}

// Communities partitions the vertices by Louvain modularity maximization.
// The resolution parameter controls community granularity (1 is the standard
// modularity); the seed makes the stochastic optimization reproducible.
// Each community is sorted by label, and communities are ordered by their
// first member.
func (n *Network) Communities(resolution float64, seed uint64) ([][]string, error) {
	if resolution <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidOptions, "resolution must be positive, got %v", resolution)
	}
	if len(n.labels) == 0 {
		return nil, nil
	}
	reduced := community.Modularize(n.g, resolution, rand.NewSource(seed))
	return n.groupLabels(reduced.Communities()), nil
}

// Components returns the connected components, each sorted by label and
// ordered by first member. Isolated vertices form singleton components.
func (n *Network) Components() [][]string {
	return n.groupLabels(topo.ConnectedComponents(n.g))
}

func (n *Network) groupLabels(groups [][]graph.Node) [][]string {
	out := make([][]string, 0, len(groups))
	for _, nodes := range groups {
		members := make([]string, 0, len(nodes))
		for _, node := range nodes {
			members = append(members, n.labels[node.ID()])
		}
		sort.Strings(members)
		out = append(out, members)
	}
	sort.Slice(out, func(a, b int) bool { return out[a][0] < out[b][0] })
	return out
}

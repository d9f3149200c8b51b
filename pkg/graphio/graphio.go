// Package graphio serializes projected networks to JSON and Graphviz DOT.
//
// The JSON format is a plain node/edge list that round-trips through
// [Unmarshal], suitable for caching, API responses, and downstream tooling.
// DOT output is export-only.
package graphio

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/tradelens/ecomplexity/pkg/core/economy"
	"github.com/tradelens/ecomplexity/pkg/core/projection"
	"github.com/tradelens/ecomplexity/pkg/errors"
)

// Node is one vertex in the serialized graph.
type Node struct {
	ID string `json:"id" bson:"id"`
}

// Graph is the serialized node/edge list form of a projected network.
type Graph struct {
	Nodes []Node            `json:"nodes" bson:"nodes"`
	Edges []projection.Link `json:"edges" bson:"edges"`
}

// =============================================================================
// Graph Serialization API
// =============================================================================

// Marshal converts a network to JSON bytes.
// Nodes and edges are sorted for deterministic output.
func Marshal(n *projection.Network) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeTo(n, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile writes a network to a JSON file.
// The file is created with 0644 permissions.
func WriteFile(n *projection.Network, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return writeTo(n, f)
}

// Write writes a network as JSON to an io.Writer.
// Use Marshal for in-memory serialization or WriteFile for files.
func Write(n *projection.Network, w io.Writer) error {
	return writeTo(n, w)
}

// Unmarshal decodes JSON bytes back into a network. Edge weights must be
// positive and both endpoints must appear in the node list.
func Unmarshal(data []byte) (*projection.Network, error) {
	return readFrom(bytes.NewReader(data))
}

// ReadFile reads a JSON file and returns the decoded network.
func ReadFile(path string) (*projection.Network, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return readFrom(f)
}

// Read decodes a JSON graph from an io.Reader into a network.
func Read(r io.Reader) (*projection.Network, error) {
	return readFrom(r)
}

// =============================================================================
// Internal Implementation
// =============================================================================

func writeTo(n *projection.Network, w io.Writer) error {
	out := Graph{Edges: n.Links()}
	for _, label := range n.Labels() {
		out.Nodes = append(out.Nodes, Node{ID: label})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

func readFrom(r io.Reader) (*projection.Network, error) {
	var data Graph
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode graph")
	}
	return toNetwork(data)
}

// toNetwork rebuilds a network from its serialized form by way of a symmetric
// adjacency matrix, so the decoded graph goes through the same validation as
// a freshly projected one.
func toNetwork(data Graph) (*projection.Network, error) {
	if len(data.Nodes) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "graph has no nodes")
	}
	labels := make([]string, 0, len(data.Nodes))
	known := make(map[string]bool, len(data.Nodes))
	for _, node := range data.Nodes {
		if known[node.ID] {
			return nil, errors.New(errors.ErrCodeInvalidInput, "duplicate node %q", node.ID)
		}
		known[node.ID] = true
		labels = append(labels, node.ID)
	}
	sort.Strings(labels)

	b, err := economy.NewBuilder(labels, labels)
	if err != nil {
		return nil, err
	}
	for _, e := range data.Edges {
		if !known[e.Source] || !known[e.Target] {
			return nil, errors.New(errors.ErrCodeInvalidInput, "edge %s-%s references unknown node", e.Source, e.Target)
		}
		if e.Source == e.Target {
			return nil, errors.New(errors.ErrCodeInvalidInput, "self-loop on node %q", e.Source)
		}
		if err := b.SetLabels(e.Source, e.Target, e.Weight); err != nil {
			return nil, err
		}
		if err := b.SetLabels(e.Target, e.Source, e.Weight); err != nil {
			return nil, err
		}
	}
	adj, err := b.Build()
	if err != nil {
		return nil, err
	}
	return projection.FromProximity(adj, projection.Options{})
}

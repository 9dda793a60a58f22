// Package graph holds the in-memory pipeline graph: an insertion-ordered
// collection of typed nodes connected by typed edges. Node order reflects
// visual stacking, never execution order; the scheduler decides execution.
package graph

import (
	"fmt"

	"github.com/lumagraph-labs/lumagraph/pkg/core"
)

// Graph is a directed graph of pipeline nodes. It is owned by a single
// editing session and is not safe for concurrent mutation.
type Graph struct {
	name  string
	nodes []*core.Node
	edges []*core.Edge

	nodeIndex map[string]*core.Node
	edgeIndex map[string]*core.Edge
}

// New creates an empty graph.
func New(name string) *Graph {
	return &Graph{
		name:      name,
		nodeIndex: make(map[string]*core.Node),
		edgeIndex: make(map[string]*core.Edge),
	}
}

// Name returns the graph's workflow name.
func (g *Graph) Name() string { return g.name }

// SetName renames the graph.
func (g *Graph) SetName(name string) { g.name = name }

// AddNode appends a node to the graph. Node ids must be unique.
func (g *Graph) AddNode(n *core.Node) error {
	if err := n.Validate(); err != nil {
		return err
	}
	if _, exists := g.nodeIndex[n.ID]; exists {
		return fmt.Errorf("node %q already exists", n.ID)
	}
	g.nodes = append(g.nodes, n)
	g.nodeIndex[n.ID] = n
	return nil
}

// RemoveNode deletes a node and every edge touching it.
// Returns false if the node does not exist.
func (g *Graph) RemoveNode(id string) bool {
	if _, exists := g.nodeIndex[id]; !exists {
		return false
	}
	delete(g.nodeIndex, id)

	nodes := g.nodes[:0]
	for _, n := range g.nodes {
		if n.ID != id {
			nodes = append(nodes, n)
		}
	}
	g.nodes = nodes

	edges := g.edges[:0]
	for _, e := range g.edges {
		if e.Source == id || e.Target == id {
			delete(g.edgeIndex, e.ID)
			continue
		}
		edges = append(edges, e)
	}
	g.edges = edges
	return true
}

// AddEdge connects two existing nodes. Structural cycles are permitted;
// the scheduler resolves them with its fallback ordering.
func (g *Graph) AddEdge(e *core.Edge) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if _, exists := g.edgeIndex[e.ID]; exists {
		return fmt.Errorf("edge %q already exists", e.ID)
	}
	if _, ok := g.nodeIndex[e.Source]; !ok {
		return fmt.Errorf("edge %q: source node %q does not exist", e.ID, e.Source)
	}
	if _, ok := g.nodeIndex[e.Target]; !ok {
		return fmt.Errorf("edge %q: target node %q does not exist", e.ID, e.Target)
	}
	g.edges = append(g.edges, e)
	g.edgeIndex[e.ID] = e
	return nil
}

// RemoveEdge deletes an edge. Returns false if the edge does not exist.
func (g *Graph) RemoveEdge(id string) bool {
	if _, exists := g.edgeIndex[id]; !exists {
		return false
	}
	delete(g.edgeIndex, id)
	edges := g.edges[:0]
	for _, e := range g.edges {
		if e.ID != id {
			edges = append(edges, e)
		}
	}
	g.edges = edges
	return true
}

// UpdateNode replaces a node's payload. The payload type must match the
// node's kind; kind itself is immutable.
func (g *Graph) UpdateNode(id string, payload core.NodePayload) error {
	n, ok := g.nodeIndex[id]
	if !ok {
		return fmt.Errorf("node %q does not exist", id)
	}
	updated := *n
	updated.Data = payload
	if err := updated.Validate(); err != nil {
		return err
	}
	n.Data = payload
	return nil
}

// SetDisabled toggles a node's disabled flag.
func (g *Graph) SetDisabled(id string, disabled bool) error {
	n, ok := g.nodeIndex[id]
	if !ok {
		return fmt.Errorf("node %q does not exist", id)
	}
	n.Disabled = disabled
	return nil
}

// Node returns a node by id.
func (g *Graph) Node(id string) (*core.Node, bool) {
	n, ok := g.nodeIndex[id]
	return n, ok
}

// Nodes returns the nodes in insertion order.
// The returned slice is a copy; the nodes are shared.
func (g *Graph) Nodes() []*core.Node {
	out := make([]*core.Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Edges returns the edges in insertion order.
// The returned slice is a copy; the edges are shared.
func (g *Graph) Edges() []*core.Edge {
	out := make([]*core.Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Clear removes all nodes and edges, keeping the name.
func (g *Graph) Clear() {
	g.nodes = nil
	g.edges = nil
	g.nodeIndex = make(map[string]*core.Node)
	g.edgeIndex = make(map[string]*core.Edge)
}

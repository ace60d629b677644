// Package graph provides a directed, edge-labeled multigraph over node
// instances with deduplicating insertion.
//
// Nodes and edges are addressed by handles issued on insert. A handle stays
// valid until its own element is removed; removing other elements never
// changes it. Nodes and Edges enumerate live handles in insertion order.
//
// A Graph has no internal locking. Callers sharing one between goroutines
// must serialize access.
package graph

import (
	"fmt"

	"evalgo.org/lixiv/models"
)

// NodeHandle identifies a node inside a Graph.
type NodeHandle int

// EdgeHandle identifies an edge inside a Graph.
type EdgeHandle int

type edgeSlot struct {
	source NodeHandle
	target NodeHandle
	label  string
}

// Graph is a directed multigraph. The zero value is ready to use.
type Graph struct {
	nodes []*models.NodeInstance
	edges []*edgeSlot

	nodeCount int
	edgeCount int
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{}
}

// AddNode always inserts node and returns its new handle. The graph keeps
// its own copy.
func (g *Graph) AddNode(node models.NodeInstance) NodeHandle {
	c := node.Clone()
	g.nodes = append(g.nodes, &c)
	g.nodeCount++
	return NodeHandle(len(g.nodes) - 1)
}

// AddEdge always inserts a labeled edge from source to target. Both
// endpoints must be live nodes.
func (g *Graph) AddEdge(source, target NodeHandle, label string) EdgeHandle {
	g.mustNode(source)
	g.mustNode(target)

	g.edges = append(g.edges, &edgeSlot{source: source, target: target, label: label})
	g.edgeCount++
	return EdgeHandle(len(g.edges) - 1)
}

// AddNodeDedup returns the handle of the first live node whose display name
// equals node's, discarding node. Otherwise node is inserted.
func (g *Graph) AddNodeDedup(node models.NodeInstance) NodeHandle {
	if h, ok := g.FindByName(node.Name()); ok {
		return h
	}
	return g.AddNode(node)
}

// AddEdgeDedup returns the handle of the first live edge from source to
// target regardless of its label. The existing label is kept and label is
// dropped. Otherwise a new edge is inserted.
func (g *Graph) AddEdgeDedup(source, target NodeHandle, label string) EdgeHandle {
	if h, ok := g.FindEdge(source, target); ok {
		return h
	}
	return g.AddEdge(source, target, label)
}

// FindByName returns the first live node with the given display name.
// Nodes without a string name never match.
func (g *Graph) FindByName(name string) (NodeHandle, bool) {
	for i, n := range g.nodes {
		if n != nil && n.HasName() && n.Name() == name {
			return NodeHandle(i), true
		}
	}
	return 0, false
}

// FindEdge returns the first live edge from source to target.
func (g *Graph) FindEdge(source, target NodeHandle) (EdgeHandle, bool) {
	for i, e := range g.edges {
		if e != nil && e.source == source && e.target == target {
			return EdgeHandle(i), true
		}
	}
	return 0, false
}

// Node returns a copy of the node behind h.
func (g *Graph) Node(h NodeHandle) (models.NodeInstance, bool) {
	if !g.hasNode(h) {
		return models.NodeInstance{}, false
	}
	return g.nodes[h].Clone(), true
}

// Label returns the label of edge h.
func (g *Graph) Label(h EdgeHandle) (string, bool) {
	if !g.hasEdge(h) {
		return "", false
	}
	return g.edges[h].label, true
}

// Endpoints returns the source and target handles of edge h.
func (g *Graph) Endpoints(h EdgeHandle) (NodeHandle, NodeHandle, bool) {
	if !g.hasEdge(h) {
		return 0, 0, false
	}
	e := g.edges[h]
	return e.source, e.target, true
}

// Nodes returns all live node handles in insertion order.
func (g *Graph) Nodes() []NodeHandle {
	handles := make([]NodeHandle, 0, g.nodeCount)
	for i, n := range g.nodes {
		if n != nil {
			handles = append(handles, NodeHandle(i))
		}
	}
	return handles
}

// Edges returns all live edge handles in insertion order.
func (g *Graph) Edges() []EdgeHandle {
	handles := make([]EdgeHandle, 0, g.edgeCount)
	for i, e := range g.edges {
		if e != nil {
			handles = append(handles, EdgeHandle(i))
		}
	}
	return handles
}

// Outgoing returns the live edges leaving h in insertion order.
func (g *Graph) Outgoing(h NodeHandle) []EdgeHandle {
	var out []EdgeHandle
	for i, e := range g.edges {
		if e != nil && e.source == h {
			out = append(out, EdgeHandle(i))
		}
	}
	return out
}

// Incoming returns the live edges entering h in insertion order.
func (g *Graph) Incoming(h NodeHandle) []EdgeHandle {
	var in []EdgeHandle
	for i, e := range g.edges {
		if e != nil && e.target == h {
			in = append(in, EdgeHandle(i))
		}
	}
	return in
}

// NodeCount returns the number of live nodes.
func (g *Graph) NodeCount() int {
	return g.nodeCount
}

// EdgeCount returns the number of live edges.
func (g *Graph) EdgeCount() int {
	return g.edgeCount
}

// RemoveEdge deletes edge h. It reports whether h was live.
func (g *Graph) RemoveEdge(h EdgeHandle) bool {
	if !g.hasEdge(h) {
		return false
	}
	g.edges[h] = nil
	g.edgeCount--
	return true
}

// RemoveNode deletes node h together with every edge touching it and
// returns the removed node.
func (g *Graph) RemoveNode(h NodeHandle) (models.NodeInstance, bool) {
	if !g.hasNode(h) {
		return models.NodeInstance{}, false
	}

	for i, e := range g.edges {
		if e != nil && (e.source == h || e.target == h) {
			g.RemoveEdge(EdgeHandle(i))
		}
	}

	n := *g.nodes[h]
	g.nodes[h] = nil
	g.nodeCount--
	return n, true
}

// Edge resolves h into an Edge keyed by display names. Both endpoints must
// carry a name.
func (g *Graph) Edge(h EdgeHandle) (models.Edge, bool) {
	if !g.hasEdge(h) {
		return models.Edge{}, false
	}
	e := g.edges[h]
	return models.Edge{
		Source: g.nodes[e.source].Name(),
		Target: g.nodes[e.target].Name(),
		Label:  e.label,
	}, true
}

func (g *Graph) hasNode(h NodeHandle) bool {
	return h >= 0 && int(h) < len(g.nodes) && g.nodes[h] != nil
}

func (g *Graph) hasEdge(h EdgeHandle) bool {
	return h >= 0 && int(h) < len(g.edges) && g.edges[h] != nil
}

func (g *Graph) mustNode(h NodeHandle) {
	if !g.hasNode(h) {
		panic(fmt.Sprintf("graph: invalid node handle %d", h))
	}
}

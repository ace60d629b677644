package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"evalgo.org/lixiv/internal/graph"
	"evalgo.org/lixiv/internal/jsonld"
)

// GraphNode represents a node in the visualization graph
type GraphNode struct {
	Data GraphNodeData `json:"data"`
}

// GraphNodeData contains the node's properties
type GraphNodeData struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Kind  string `json:"kind"`

	// Ancestor kinds, nearest first
	Ancestors []string `json:"ancestors,omitempty"`

	Fields map[string]interface{} `json:"fields,omitempty"`
}

// GraphEdge represents an edge (relationship) in the graph
type GraphEdge struct {
	Data GraphEdgeData `json:"data"`
}

// GraphEdgeData contains the edge's properties
type GraphEdgeData struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label"`
}

// GraphData represents the complete graph structure
type GraphData struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// GetGraphData returns the deduplicated graph. Node ids are display names,
// so nodes stored under the same name appear once.
func (s *Server) GetGraphData(c echo.Context) error {
	g, err := s.storage.LoadGraph(c.Request().Context())
	if err != nil {
		return InternalError("Failed to load graph", err.Error())
	}

	return c.JSON(http.StatusOK, s.graphData(g))
}

func (s *Server) graphData(g *graph.Graph) GraphData {
	data := GraphData{
		Nodes: make([]GraphNode, 0, g.NodeCount()),
		Edges: make([]GraphEdge, 0, g.EdgeCount()),
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, h := range g.Nodes() {
		node, _ := g.Node(h)
		name := node.Name()
		var ancestors []string
		if chain := s.registry.Ancestors(node.Kind); len(chain) > 1 {
			ancestors = chain[1:]
		}
		data.Nodes = append(data.Nodes, GraphNode{
			Data: GraphNodeData{
				ID:        name,
				Label:     name,
				Kind:      node.Kind,
				Ancestors: ancestors,
				Fields:    node.Data(),
			},
		})
	}

	for _, h := range g.Edges() {
		edge, _ := g.Edge(h)
		data.Edges = append(data.Edges, GraphEdge{
			Data: GraphEdgeData{
				ID:     edge.Source + "-" + edge.Target,
				Source: edge.Source,
				Target: edge.Target,
				Label:  edge.Label,
			},
		})
	}

	return data
}

// GetGraphStats returns graph statistics
func (s *Server) GetGraphStats(c echo.Context) error {
	ctx := c.Request().Context()

	storedNodes, err := s.storage.CountNodes(ctx)
	if err != nil {
		return InternalError("Failed to count nodes", err.Error())
	}
	storedEdges, err := s.storage.CountEdges(ctx)
	if err != nil {
		return InternalError("Failed to count edges", err.Error())
	}

	g, err := s.storage.LoadGraph(ctx)
	if err != nil {
		return InternalError("Failed to load graph", err.Error())
	}

	nodesByKind := make(map[string]int)
	for _, h := range g.Nodes() {
		node, _ := g.Node(h)
		nodesByKind[node.Kind]++
	}

	edgesByLabel := make(map[string]int)
	for _, h := range g.Edges() {
		label, _ := g.Label(h)
		edgesByLabel[label]++
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"kinds": s.kindCount(),
		"nodes": map[string]interface{}{
			"stored":  storedNodes,
			"unique":  g.NodeCount(),
			"by_kind": nodesByKind,
		},
		"edges": map[string]interface{}{
			"stored":   storedEdges,
			"unique":   g.EdgeCount(),
			"by_label": edgesByLabel,
		},
	})
}

// GetGraphJSONLD returns the graph as a JSON-LD document. With expand=true
// the document is run through JSON-LD expansion first.
func (s *Server) GetGraphJSONLD(c echo.Context) error {
	g, err := s.storage.LoadGraph(c.Request().Context())
	if err != nil {
		return InternalError("Failed to load graph", err.Error())
	}

	doc := jsonld.Document(g)

	expand := false
	if v := c.QueryParam("expand"); v != "" {
		expand, err = strconv.ParseBool(v)
		if err != nil {
			return BadRequestError("Invalid expand parameter", "expand must be a boolean. Got: "+v)
		}
	}

	c.Response().Header().Set(echo.HeaderContentType, "application/ld+json")
	if !expand {
		return c.JSON(http.StatusOK, doc)
	}

	expanded, err := jsonld.Expand(doc)
	if err != nil {
		return InternalError("Failed to expand JSON-LD", err.Error())
	}
	return c.JSON(http.StatusOK, expanded)
}


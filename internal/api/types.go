package api

import (
	"evalgo.org/lixiv/internal/kind"
	"evalgo.org/lixiv/models"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// MessageResponse represents a simple message response.
type MessageResponse struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}

// KindResponse is a stored kind together with its decoded definition.
type KindResponse struct {
	*models.KindRecord
	Parent   string                   `json:"parent,omitempty"`
	Fields   map[string]kind.JSONType `json:"fields"`
	Children []string                 `json:"children,omitempty"`
}

// KindsResponse represents a list of kinds.
type KindsResponse struct {
	Count       int             `json:"count"`
	Total       int             `json:"total"`
	Fingerprint string          `json:"fingerprint"`
	Kinds       []*KindResponse `json:"kinds"`
}

// NodesResponse represents a list of nodes.
type NodesResponse struct {
	Count int                  `json:"count"`
	Total int                  `json:"total"`
	Nodes []*models.NodeRecord `json:"nodes"`
}

// EdgesResponse represents a list of edges.
type EdgesResponse struct {
	Count int                  `json:"count"`
	Total int                  `json:"total"`
	Edges []*models.EdgeRecord `json:"edges"`
}

// CreateEdgeRequest is the body of POST /edges.
type CreateEdgeRequest struct {
	SourceNodeID int64  `json:"source_node_id" validate:"required,gt=0"`
	TargetNodeID int64  `json:"target_node_id" validate:"required,gt=0"`
	Label        string `json:"label" validate:"required"`
}

// DeleteNodeResponse reports a removed node and its cascaded edges.
type DeleteNodeResponse struct {
	ID           int64 `json:"id"`
	EdgesRemoved int64 `json:"edges_removed"`
}

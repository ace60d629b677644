package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"evalgo.org/lixiv/models"
)

// listEdges handles GET /api/v1/edges
func (s *Server) listEdges(c echo.Context) error {
	ctx := c.Request().Context()

	edges, err := s.storage.ListEdges(ctx, listOptions(c))
	if err != nil {
		return InternalError("Failed to list edges", err.Error())
	}
	total, err := s.storage.CountEdges(ctx)
	if err != nil {
		return InternalError("Failed to count edges", err.Error())
	}

	if edges == nil {
		edges = []*models.EdgeRecord{}
	}
	return c.JSON(http.StatusOK, EdgesResponse{
		Count: len(edges),
		Total: total,
		Edges: edges,
	})
}

// getEdge handles GET /api/v1/edges/:id
func (s *Server) getEdge(c echo.Context) error {
	id := pathID(c)

	edge, err := s.storage.GetEdge(c.Request().Context(), id)
	if err != nil {
		return fromDomainError(err, "Edge", strconv.FormatInt(id, 10))
	}

	return c.JSON(http.StatusOK, edge)
}

// createEdge handles POST /api/v1/edges
func (s *Server) createEdge(c echo.Context) error {
	var req CreateEdgeRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestError("Invalid request body", "Failed to parse JSON: "+err.Error())
	}

	s.mu.RLock()
	err := s.validator.Struct(&req)
	s.mu.RUnlock()
	if err != nil {
		return ValidationError("Validation failed", map[string]string{
			"edge": err.Error(),
		})
	}

	edge, err := s.storage.CreateEdge(c.Request().Context(), req.SourceNodeID, req.TargetNodeID, req.Label)
	if err != nil {
		return fromDomainError(err, "Node", strconv.FormatInt(req.SourceNodeID, 10)+" or "+strconv.FormatInt(req.TargetNodeID, 10))
	}

	s.logger.Info("Edge created",
		zap.Int64("edge_id", edge.ID),
		zap.Int64("source", edge.SourceNodeID),
		zap.Int64("target", edge.TargetNodeID),
		zap.String("label", edge.Label))

	s.BroadcastGraphEvent(EventEdgeAdded, edge)

	return c.JSON(http.StatusCreated, edge)
}

// deleteEdge handles DELETE /api/v1/edges/:id
func (s *Server) deleteEdge(c echo.Context) error {
	id := pathID(c)

	if err := s.storage.DeleteEdge(c.Request().Context(), id); err != nil {
		return fromDomainError(err, "Edge", strconv.FormatInt(id, 10))
	}

	s.logger.Info("Edge deleted", zap.Int64("edge_id", id))
	s.BroadcastGraphEvent(EventEdgeRemoved, map[string]int64{"id": id})

	return c.JSON(http.StatusOK, MessageResponse{
		Message: "Edge deleted successfully",
		ID:      strconv.FormatInt(id, 10),
	})
}

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"evalgo.org/lixiv/internal/storage"
	"evalgo.org/lixiv/internal/validation"
	"evalgo.org/lixiv/models"
)

// listNodes handles GET /api/v1/nodes
func (s *Server) listNodes(c echo.Context) error {
	ctx := c.Request().Context()

	filter := storage.NodeFilter{
		Kind: c.QueryParam("kind"),
		Name: c.QueryParam("name"),
	}

	nodes, err := s.storage.ListNodes(ctx, filter, listOptions(c))
	if err != nil {
		return InternalError("Failed to list nodes", err.Error())
	}
	total, err := s.storage.CountNodes(ctx)
	if err != nil {
		return InternalError("Failed to count nodes", err.Error())
	}

	if nodes == nil {
		nodes = []*models.NodeRecord{}
	}
	return c.JSON(http.StatusOK, NodesResponse{
		Count: len(nodes),
		Total: total,
		Nodes: nodes,
	})
}

// getNode handles GET /api/v1/nodes/:id
func (s *Server) getNode(c echo.Context) error {
	id := pathID(c)

	node, err := s.storage.GetNode(c.Request().Context(), id)
	if err != nil {
		return fromDomainError(err, "Node", strconv.FormatInt(id, 10))
	}

	return c.JSON(http.StatusOK, node)
}

// createNode handles POST /api/v1/nodes
//
// The document is checked against the live catalog before it is stored.
// An invalid document is answered with the full validation result.
func (s *Server) createNode(c echo.Context) error {
	ctx := c.Request().Context()

	var doc validation.NodeDocument
	if err := c.Bind(&doc); err != nil {
		return BadRequestError("Invalid request body", "Failed to parse JSON: "+err.Error())
	}

	s.mu.RLock()
	result := s.validator.ValidateNodeDocument(doc)
	s.mu.RUnlock()
	if !result.Valid {
		return c.JSON(http.StatusBadRequest, result)
	}

	node := models.NodeFromData(doc.Kind, doc.Data)
	rec, err := s.storage.CreateNode(ctx, node)
	if err != nil {
		// Only a missing kind reports as not found; the kind may have been
		// deleted after validation.
		if errors.Is(err, storage.ErrNotFound) {
			return fromDomainError(err, "Kind", doc.Kind)
		}
		return fromDomainError(err, "Node", node.Name())
	}

	s.logger.Info("Node created",
		zap.Int64("node_id", rec.ID),
		zap.String("kind", rec.KindTitle),
		zap.String("name", rec.Name))

	s.BroadcastGraphEvent(EventNodeAdded, rec)

	return c.JSON(http.StatusCreated, rec)
}

// deleteNode handles DELETE /api/v1/nodes/:id
func (s *Server) deleteNode(c echo.Context) error {
	id := pathID(c)

	removed, err := s.storage.DeleteNode(c.Request().Context(), id)
	if err != nil {
		return fromDomainError(err, "Node", strconv.FormatInt(id, 10))
	}

	s.logger.Info("Node deleted",
		zap.Int64("node_id", id),
		zap.Int64("edges_removed", removed))

	resp := DeleteNodeResponse{ID: id, EdgesRemoved: removed}
	s.BroadcastGraphEvent(EventNodeRemoved, resp)

	return c.JSON(http.StatusOK, resp)
}

// pathID returns the id parsed by ValidateIDFormat.
func pathID(c echo.Context) int64 {
	id, _ := c.Get("id").(int64)
	return id
}

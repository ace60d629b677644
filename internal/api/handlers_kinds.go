package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"evalgo.org/lixiv/internal/kind"
	"evalgo.org/lixiv/internal/storage"
	"evalgo.org/lixiv/internal/validation"
	"evalgo.org/lixiv/models"
)

// KindRequest is the body of POST /kinds.
type KindRequest struct {
	Title  string                   `json:"title" validate:"required"`
	Parent string                   `json:"parent,omitempty"`
	Fields map[string]kind.JSONType `json:"fields"`
}

// listKinds handles GET /api/v1/kinds
func (s *Server) listKinds(c echo.Context) error {
	ctx := c.Request().Context()

	fingerprint, err := s.fingerprint()
	if err != nil {
		return InternalError("Failed to fingerprint catalog", err.Error())
	}
	etag := `"` + fingerprint + `"`
	c.Response().Header().Set("ETag", etag)
	if c.Request().Header.Get("If-None-Match") == etag {
		return c.NoContent(http.StatusNotModified)
	}

	records, err := s.storage.ListKinds(ctx, listOptions(c))
	if err != nil {
		return InternalError("Failed to list kinds", err.Error())
	}
	total, err := s.storage.CountKinds(ctx)
	if err != nil {
		return InternalError("Failed to count kinds", err.Error())
	}

	kinds := make([]*KindResponse, 0, len(records))
	for _, rec := range records {
		resp, err := s.kindResponse(rec)
		if err != nil {
			return InternalError("Failed to decode kind", err.Error())
		}
		kinds = append(kinds, resp)
	}

	return c.JSON(http.StatusOK, KindsResponse{
		Count:       len(kinds),
		Total:       total,
		Fingerprint: fingerprint,
		Kinds:       kinds,
	})
}

// getKind handles GET /api/v1/kinds/:title
func (s *Server) getKind(c echo.Context) error {
	title := c.Param("title")

	rec, err := s.storage.GetKind(c.Request().Context(), title)
	if err != nil {
		return fromDomainError(err, "Kind", title)
	}

	resp, err := s.kindResponse(rec)
	if err != nil {
		return InternalError("Failed to decode kind", err.Error())
	}
	return c.JSON(http.StatusOK, resp)
}

// createKind handles POST /api/v1/kinds
func (s *Server) createKind(c echo.Context) error {
	ctx := c.Request().Context()

	var req KindRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestError("Invalid request body", "Failed to parse JSON: "+err.Error())
	}
	if apiErr := checkKindTitle(req.Title); apiErr != nil {
		return apiErr
	}
	if req.Parent != "" {
		if apiErr := checkKindTitle(req.Parent); apiErr != nil {
			return apiErr
		}
	}

	def := kind.Definition{Name: req.Title, Parent: req.Parent, Fields: req.Fields}
	if def.Fields == nil {
		def.Fields = map[string]kind.JSONType{}
	}

	rec, err := s.registerKind(ctx, def)
	if err != nil {
		return fromDomainError(err, "Kind", def.Name)
	}

	s.logger.Info("Kind created",
		zap.String("kind", def.Name),
		zap.String("parent", def.Parent),
		zap.Int("fields", len(def.Fields)))

	resp, err := s.kindResponse(rec)
	if err != nil {
		return InternalError("Failed to decode kind", err.Error())
	}

	s.BroadcastGraphEvent(EventKindAdded, resp)

	return c.JSON(http.StatusCreated, resp)
}

// deleteKind handles DELETE /api/v1/kinds/:title
func (s *Server) deleteKind(c echo.Context) error {
	ctx := c.Request().Context()
	title := c.Param("title")

	if err := s.unregisterKind(ctx, title); err != nil {
		return fromDomainError(err, "Kind", title)
	}

	s.logger.Info("Kind deleted", zap.String("kind", title))
	s.BroadcastGraphEvent(EventKindRemoved, map[string]string{"title": title})

	return c.JSON(http.StatusOK, MessageResponse{
		Message: "Kind deleted successfully",
		ID:      title,
	})
}

// unregisterKind removes title from storage and rebuilds the live catalog,
// both under the catalog lock so no child can be registered in between.
func (s *Server) unregisterKind(ctx context.Context, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if children := s.registry.Children(title); len(children) > 0 {
		return fmt.Errorf("kind %s is the parent of %s: %w", title, strings.Join(children, ", "), storage.ErrInUse)
	}

	if err := s.storage.DeleteKind(ctx, title); err != nil {
		return err
	}

	// The registry only grows, so removal means a rebuild.
	reg, err := s.loadRegistry(ctx)
	if err != nil {
		return fmt.Errorf("reloading catalog: %w", err)
	}
	s.registry = reg
	s.validator = validation.New(reg)
	return nil
}

// registerKind adds def to the live catalog and stores it. Both happen
// under the catalog lock; a failed store rebuilds the catalog from storage.
func (s *Server) registerKind(ctx context.Context, def kind.Definition) (*models.KindRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.registry.Register(def); err != nil {
		return nil, err
	}

	rec, err := s.storage.CreateKind(ctx, def)
	if err == nil {
		return rec, nil
	}

	reg, rerr := s.loadRegistry(ctx)
	if rerr != nil {
		s.logger.Error("Failed to rebuild catalog", zap.Error(rerr))
		return nil, err
	}
	s.registry = reg
	s.validator = validation.New(reg)
	return nil, err
}

// kindResponse decodes a stored kind and attaches its known children.
func (s *Server) kindResponse(rec *models.KindRecord) (*KindResponse, error) {
	def, err := storage.DecodeKind(rec)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	children := s.registry.Children(def.Name)
	s.mu.RUnlock()

	return &KindResponse{
		KindRecord: rec,
		Parent:     def.Parent,
		Fields:     def.Fields,
		Children:   children,
	}, nil
}

func (s *Server) fingerprint() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry.Fingerprint()
}

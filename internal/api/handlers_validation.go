package api

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
)

// validateNode checks a node document against the kind catalog without
// storing it. Valid documents answer 200, invalid ones 400, both with the
// validation result.
func (s *Server) validateNode(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Failed to read request body",
		})
	}

	s.mu.RLock()
	result, err := s.validator.ValidateDocument(body)
	s.mu.RUnlock()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Validation error",
			Details: err.Error(),
		})
	}

	if result.Valid {
		return c.JSON(http.StatusOK, result)
	}

	return c.JSON(http.StatusBadRequest, result)
}

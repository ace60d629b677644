package api

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// ValidateContentType middleware ensures that requests with a body have the correct Content-Type
func ValidateContentType(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		method := c.Request().Method

		// Only check POST, PUT, PATCH requests
		if method == "POST" || method == "PUT" || method == "PATCH" {
			contentType := c.Request().Header.Get("Content-Type")

			// Allow empty body for some requests
			if c.Request().ContentLength == 0 {
				return next(c)
			}

			// Check if Content-Type is application/json
			if !strings.HasPrefix(contentType, "application/json") {
				return BadRequestError(
					"Invalid Content-Type",
					"Content-Type must be 'application/json'. Got: "+contentType,
				)
			}
		}

		return next(c)
	}
}

// ValidateAcceptHeader middleware ensures that clients can accept JSON responses
func ValidateAcceptHeader(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		accept := c.Request().Header.Get("Accept")

		// If no Accept header, assume */*
		if accept == "" {
			return next(c)
		}

		// Check if Accept includes application/json or */*
		if !strings.Contains(accept, "application/json") &&
			!strings.Contains(accept, "application/ld+json") &&
			!strings.Contains(accept, "*/*") &&
			!strings.Contains(accept, "application/*") {
			return BadRequestError(
				"Invalid Accept header",
				"API only returns JSON. Accept header must include 'application/json' or '*/*'. Got: "+accept,
			)
		}

		return next(c)
	}
}

// ValidateIDFormat middleware validates that node and edge IDs are positive integers
func ValidateIDFormat(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param("id")

		// If no ID param, skip validation
		if id == "" {
			return next(c)
		}

		parsed, err := strconv.ParseInt(id, 10, 64)
		if err != nil || parsed < 1 {
			return BadRequestError(
				"Invalid ID format",
				"ID must be a positive integer. Got: "+id,
			)
		}

		c.Set("id", parsed)
		return next(c)
	}
}

// ValidateKindTitle middleware validates kind titles in the path
func ValidateKindTitle(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := checkKindTitle(c.Param("title")); err != nil {
			return err
		}
		return next(c)
	}
}

func checkKindTitle(title string) *APIError {
	if title == "" {
		return BadRequestError("Invalid kind title", "Title is required")
	}
	if strings.ContainsAny(title, " \t\n/") {
		return BadRequestError("Invalid kind title", "Title cannot contain whitespace or slashes")
	}
	if len(title) > 256 {
		return BadRequestError("Invalid kind title", "Title must not exceed 256 characters")
	}
	return nil
}

// ValidateQueryParams middleware validates common query parameters
func ValidateQueryParams(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		for _, param := range []string{"limit", "offset"} {
			value := c.QueryParam(param)
			if value == "" {
				continue
			}
			if _, err := strconv.Atoi(value); err != nil {
				return BadRequestError(
					"Invalid "+param+" parameter",
					param+" must be an integer. Got: "+value,
				)
			}
		}

		if k := c.QueryParam("kind"); k != "" {
			if err := checkKindTitle(k); err != nil {
				return err
			}
		}

		return next(c)
	}
}

// SecurityHeaders middleware adds security headers to responses
func SecurityHeaders(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		// Add security headers
		c.Response().Header().Set("X-Content-Type-Options", "nosniff")
		c.Response().Header().Set("X-Frame-Options", "DENY")
		c.Response().Header().Set("X-XSS-Protection", "1; mode=block")
		c.Response().Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		return next(c)
	}
}

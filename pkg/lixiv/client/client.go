// Package client is a small Go client for the Lixiv HTTP API.
//
//	c, err := client.New("http://localhost:8080")
//	result, err := c.Validate(ctx, client.NodeDocument{
//	    Kind: "Nutrition",
//	    Data: map[string]interface{}{"name": "tomatoes-kcal", "kcal": 22},
//	})
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"evalgo.org/lixiv/models"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithToken sends token as a bearer token with every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("baseURL is required")
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NodeDocument is a node as submitted to the API.
type NodeDocument struct {
	Kind string                 `json:"kind"`
	Data map[string]interface{} `json:"data"`
}

// ValidationError is a single problem reported by the validate endpoint.
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// ValidationResult is the answer of the validate endpoint.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// Kind is a kind definition as accepted and returned by the API.
type Kind struct {
	Title  string            `json:"title"`
	Parent string            `json:"parent,omitempty"`
	Fields map[string]string `json:"fields"`
}

// Query narrows ListNodes.
type Query struct {
	Kind   string
	Name   string
	Limit  int
	Offset int
}

func (q Query) values() url.Values {
	v := url.Values{}
	if q.Kind != "" {
		v.Set("kind", q.Kind)
	}
	if q.Name != "" {
		v.Set("name", q.Name)
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		v.Set("offset", strconv.Itoa(q.Offset))
	}
	return v
}

// Error is a non-2xx API response.
type Error struct {
	StatusCode int
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("lixiv api: %d %s: %s", e.StatusCode, e.Message, e.Details)
	}
	return fmt.Sprintf("lixiv api: %d %s", e.StatusCode, e.Message)
}

// Validate checks doc against the server's catalog. An invalid document is
// not an error; inspect the result.
func (c *Client) Validate(ctx context.Context, doc NodeDocument) (*ValidationResult, error) {
	return c.validate(ctx, doc)
}

// ValidateRaw sends an already encoded node document.
func (c *Client) ValidateRaw(ctx context.Context, doc []byte) (*ValidationResult, error) {
	return c.validate(ctx, rawDocument(doc))
}

// rawDocument is a request body sent as is.
type rawDocument []byte

func (c *Client) validate(ctx context.Context, in interface{}) (*ValidationResult, error) {
	var result ValidationResult
	status, body, err := c.do(ctx, http.MethodPost, "/api/v1/validate", nil, in)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK && status != http.StatusBadRequest {
		return nil, apiError(status, body)
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &result, nil
}

// CreateKind registers a kind on the server.
func (c *Client) CreateKind(ctx context.Context, k Kind) error {
	return c.expect(ctx, http.MethodPost, "/api/v1/kinds", k, http.StatusCreated, nil)
}

// CreateNode stores a node and returns the stored record.
func (c *Client) CreateNode(ctx context.Context, doc NodeDocument) (*models.NodeRecord, error) {
	var rec models.NodeRecord
	if err := c.expect(ctx, http.MethodPost, "/api/v1/nodes", doc, http.StatusCreated, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListNodes returns stored nodes matching q.
func (c *Client) ListNodes(ctx context.Context, q Query) ([]*models.NodeRecord, error) {
	var resp struct {
		Nodes []*models.NodeRecord `json:"nodes"`
	}
	status, body, err := c.do(ctx, http.MethodGet, "/api/v1/nodes", q.values(), nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, apiError(status, body)
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return resp.Nodes, nil
}

// CreateEdge stores a labeled edge between two stored nodes.
func (c *Client) CreateEdge(ctx context.Context, source, target int64, label string) (*models.EdgeRecord, error) {
	req := map[string]interface{}{
		"source_node_id": source,
		"target_node_id": target,
		"label":          label,
	}
	var rec models.EdgeRecord
	if err := c.expect(ctx, http.MethodPost, "/api/v1/edges", req, http.StatusCreated, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// GraphJSONLD fetches the stored graph as a JSON-LD document.
func (c *Client) GraphJSONLD(ctx context.Context) (map[string]interface{}, error) {
	var doc map[string]interface{}
	if err := c.expect(ctx, http.MethodGet, "/api/v1/graph/jsonld", nil, http.StatusOK, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (c *Client) expect(ctx context.Context, method, path string, in interface{}, want int, out interface{}) error {
	status, body, err := c.do(ctx, method, path, nil, in)
	if err != nil {
		return err
	}
	if status != want {
		return apiError(status, body)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in interface{}) (int, []byte, error) {
	var reader io.Reader
	if in != nil {
		var data []byte
		if raw, ok := in.(rawDocument); ok {
			data = raw
		} else {
			var err error
			data, err = json.Marshal(in)
			if err != nil {
				return 0, nil, fmt.Errorf("failed to encode request: %w", err)
			}
		}
		reader = bytes.NewReader(data)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return 0, nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to connect to API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func apiError(status int, body []byte) error {
	e := &Error{StatusCode: status}
	if err := json.Unmarshal(body, e); err != nil || e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}

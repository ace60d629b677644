package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evalgo.org/lixiv/internal/auth"
	"evalgo.org/lixiv/internal/config"
	"evalgo.org/lixiv/internal/kind"
	"evalgo.org/lixiv/internal/storage"
	"evalgo.org/lixiv/internal/validation"
	"evalgo.org/lixiv/models"
)

func setupTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := config.Default()
	cfg.Security.RateLimit = 0

	store, err := storage.Open(filepath.Join(t.TempDir(), "api.db"), nil)
	require.NoError(t, err)

	server := New(cfg, store, kind.NewRegistry(), nil)
	t.Cleanup(func() {
		server.wsHub.Stop()
		store.Close()
	})
	return server
}

func doRequest(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func seedCatalog(t *testing.T, s *Server) {
	t.Helper()

	for _, k := range []KindRequest{
		{Title: "Food", Fields: map[string]kind.JSONType{"name": kind.String}},
		{Title: "Ingredient", Parent: "Food", Fields: map[string]kind.JSONType{"name": kind.String}},
		{Title: "Nutrition", Parent: "Ingredient", Fields: map[string]kind.JSONType{"name": kind.String, "kcal": kind.Number}},
	} {
		rec := doRequest(t, s, http.MethodPost, "/api/v1/kinds", k)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
}

func createNode(t *testing.T, s *Server, kindTitle string, data map[string]interface{}) int64 {
	t.Helper()

	rec := doRequest(t, s, http.MethodPost, "/api/v1/nodes", validation.NodeDocument{Kind: kindTitle, Data: data})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var node models.NodeRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &node))
	return node.ID
}

func createEdge(t *testing.T, s *Server, src, dst int64, label string) {
	t.Helper()

	rec := doRequest(t, s, http.MethodPost, "/api/v1/edges", CreateEdgeRequest{
		SourceNodeID: src,
		TargetNodeID: dst,
		Label:        label,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestHealthCheck(t *testing.T) {
	s := setupTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "sqlite", body["database"])
}

func TestCreateKind(t *testing.T) {
	s := setupTestServer(t)
	seedCatalog(t, s)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/kinds/Nutrition", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got KindResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Nutrition", got.Title)
	assert.Equal(t, "Ingredient", got.Parent)
	assert.Equal(t, kind.Number, got.Fields["kcal"])

	rec = doRequest(t, s, http.MethodGet, "/api/v1/kinds/Food", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, []string{"Ingredient"}, got.Children)
}

func TestCreateKind_Errors(t *testing.T) {
	s := setupTestServer(t)
	seedCatalog(t, s)

	tests := []struct {
		name string
		body interface{}
		code int
	}{
		{"duplicate", KindRequest{Title: "Food"}, http.StatusConflict},
		{"unknown parent", KindRequest{Title: "Dessert", Parent: "Meal"}, http.StatusBadRequest},
		{"empty title", KindRequest{}, http.StatusBadRequest},
		{"title with slash", KindRequest{Title: "a/b"}, http.StatusBadRequest},
		{"unknown field type", `{"title":"Drink","fields":{"volume":"liters"}}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, s, http.MethodPost, "/api/v1/kinds", tt.body)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
		})
	}

	// Failed registrations leave the catalog untouched.
	assert.Equal(t, 3, s.kindCount())
}

func TestCreateKind_FieldConflictWithInheritance(t *testing.T) {
	cfg := config.Default()
	cfg.Security.RateLimit = 0
	cfg.Catalog.InheritFields = true

	store, err := storage.Open(filepath.Join(t.TempDir(), "api.db"), nil)
	require.NoError(t, err)
	s := New(cfg, store, kind.NewRegistry(kind.WithInheritedFields()), nil)
	t.Cleanup(func() {
		s.wsHub.Stop()
		store.Close()
	})

	rec := doRequest(t, s, http.MethodPost, "/api/v1/kinds", KindRequest{
		Title: "Food", Fields: map[string]kind.JSONType{"name": kind.String},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, s, http.MethodPost, "/api/v1/kinds", KindRequest{
		Title: "Ingredient", Parent: "Food", Fields: map[string]kind.JSONType{"name": kind.Number},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var apiErr APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Contains(t, apiErr.FieldError, "name")
}

func TestListKinds_ETag(t *testing.T) {
	s := setupTestServer(t)
	seedCatalog(t, s)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/kinds", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	var list KindsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 3, list.Total)
	assert.Len(t, list.Kinds, 3)
	assert.Equal(t, etag, `"`+list.Fingerprint+`"`)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/kinds", nil)
	req.Header.Set("If-None-Match", etag)
	cached := httptest.NewRecorder()
	s.ServeHTTP(cached, req)
	assert.Equal(t, http.StatusNotModified, cached.Code)

	doRequest(t, s, http.MethodPost, "/api/v1/kinds", KindRequest{Title: "Dish", Parent: "Food"})
	rec = doRequest(t, s, http.MethodGet, "/api/v1/kinds", nil)
	assert.NotEqual(t, etag, rec.Header().Get("ETag"))
}

func TestDeleteKind(t *testing.T) {
	s := setupTestServer(t)
	seedCatalog(t, s)

	// Ingredient is the parent of Nutrition.
	rec := doRequest(t, s, http.MethodDelete, "/api/v1/kinds/Ingredient", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	id := createNode(t, s, "Nutrition", map[string]interface{}{"name": "tomatoes-kcal", "kcal": 22})
	rec = doRequest(t, s, http.MethodDelete, "/api/v1/kinds/Nutrition", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doRequest(t, s, http.MethodDelete, fmt.Sprintf("/api/v1/nodes/%d", id), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, s, http.MethodDelete, "/api/v1/kinds/Nutrition", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, s.kindCount())

	rec = doRequest(t, s, http.MethodDelete, "/api/v1/kinds/Nutrition", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// The removed kind no longer validates.
	rec = doRequest(t, s, http.MethodPost, "/api/v1/nodes", validation.NodeDocument{
		Kind: "Nutrition",
		Data: map[string]interface{}{"name": "x"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteKind_ChildPendingInCatalog(t *testing.T) {
	s := setupTestServer(t)
	seedCatalog(t, s)

	// A child registered in the catalog but not stored yet, as during a
	// concurrent POST /kinds, still protects its parent.
	s.mu.Lock()
	require.NoError(t, s.registry.Register(kind.Definition{Name: "Vitamin", Parent: "Nutrition", Fields: map[string]kind.JSONType{}}))
	s.mu.Unlock()

	rec := doRequest(t, s, http.MethodDelete, "/api/v1/kinds/Nutrition", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	_, err := s.storage.GetKind(context.Background(), "Nutrition")
	require.NoError(t, err)

	// Storing the child still works and the catalog reloads.
	_, err = s.storage.CreateKind(context.Background(), kind.Definition{Name: "Vitamin", Parent: "Nutrition", Fields: map[string]kind.JSONType{}})
	require.NoError(t, err)
	_, err = s.loadRegistry(context.Background())
	assert.NoError(t, err)
}

func TestCreateNode_StorageErrors(t *testing.T) {
	s := setupTestServer(t)
	seedCatalog(t, s)

	// Ghost validates against the catalog but was never stored.
	s.mu.Lock()
	require.NoError(t, s.registry.Register(kind.Definition{Name: "Ghost", Fields: map[string]kind.JSONType{"name": kind.String}}))
	s.mu.Unlock()

	rec := doRequest(t, s, http.MethodPost, "/api/v1/nodes", validation.NodeDocument{
		Kind: "Ghost",
		Data: map[string]interface{}{"name": "Casper"},
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
	var apiErr APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, "Kind not found", apiErr.Message)
	assert.Equal(t, "Ghost", apiErr.Context["id"])

	require.NoError(t, s.storage.Close())
	rec = doRequest(t, s, http.MethodPost, "/api/v1/nodes", validation.NodeDocument{
		Kind: "Food",
		Data: map[string]interface{}{"name": "Lasagne"},
	})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	apiErr = APIError{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, "Failed to process Node", apiErr.Message)
}

func TestCreateNode_Validation(t *testing.T) {
	s := setupTestServer(t)
	seedCatalog(t, s)

	tests := []struct {
		name  string
		doc   validation.NodeDocument
		field string
	}{
		{"unknown kind", validation.NodeDocument{Kind: "Dish", Data: map[string]interface{}{"name": "Soup"}}, "kind"},
		{"unknown field", validation.NodeDocument{Kind: "Food", Data: map[string]interface{}{"name": "Soup", "price": 3}}, "price"},
		{"wrong type", validation.NodeDocument{Kind: "Nutrition", Data: map[string]interface{}{"name": "x", "kcal": "22"}}, "kcal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, s, http.MethodPost, "/api/v1/nodes", tt.doc)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			var result validation.ValidationResult
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
			assert.False(t, result.Valid)
			require.NotEmpty(t, result.Errors)
			assert.Equal(t, tt.field, result.Errors[0].Field)
		})
	}

	t.Run("missing name", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodPost, "/api/v1/nodes", validation.NodeDocument{
			Kind: "Nutrition",
			Data: map[string]interface{}{"kcal": 22},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	rec := doRequest(t, s, http.MethodGet, "/api/v1/nodes", nil)
	var list NodesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 0, list.Total)
}

func TestNodes_GetAndFilter(t *testing.T) {
	s := setupTestServer(t)
	seedCatalog(t, s)

	lasagne := createNode(t, s, "Food", map[string]interface{}{"name": "Lasagne"})
	createNode(t, s, "Ingredient", map[string]interface{}{"name": "Tomatoes"})

	rec := doRequest(t, s, http.MethodGet, fmt.Sprintf("/api/v1/nodes/%d", lasagne), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var node models.NodeRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &node))
	assert.Equal(t, "Lasagne", node.Name)
	assert.Equal(t, "Food", node.KindTitle)

	rec = doRequest(t, s, http.MethodGet, "/api/v1/nodes?kind=Ingredient", nil)
	var list NodesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Nodes, 1)
	assert.Equal(t, "Tomatoes", list.Nodes[0].Name)

	rec = doRequest(t, s, http.MethodGet, "/api/v1/nodes/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/v1/nodes/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEdges(t *testing.T) {
	s := setupTestServer(t)
	seedCatalog(t, s)

	lasagne := createNode(t, s, "Food", map[string]interface{}{"name": "Lasagne"})
	tomatoes := createNode(t, s, "Ingredient", map[string]interface{}{"name": "Tomatoes"})
	createEdge(t, s, lasagne, tomatoes, "has-ingredient")

	rec := doRequest(t, s, http.MethodPost, "/api/v1/edges", CreateEdgeRequest{
		SourceNodeID: lasagne, TargetNodeID: 999, Label: "has-ingredient",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, s, http.MethodPost, "/api/v1/edges", `{"source_node_id":1,"target_node_id":2}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/v1/edges", nil)
	var list EdgesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Edges, 1)
	assert.Equal(t, "has-ingredient", list.Edges[0].Label)

	// Deleting a node takes its edges with it.
	rec = doRequest(t, s, http.MethodDelete, fmt.Sprintf("/api/v1/nodes/%d", tomatoes), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var deleted DeleteNodeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &deleted))
	assert.Equal(t, int64(1), deleted.EdgesRemoved)

	rec = doRequest(t, s, http.MethodGet, fmt.Sprintf("/api/v1/edges/%d", list.Edges[0].ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestValidateEndpoint(t *testing.T) {
	s := setupTestServer(t)
	seedCatalog(t, s)

	tests := []struct {
		name  string
		body  string
		code  int
		valid bool
	}{
		{"valid", `{"kind":"Nutrition","data":{"name":"tomatoes-kcal","kcal":22}}`, http.StatusOK, true},
		{"fields omitted", `{"kind":"Nutrition","data":{}}`, http.StatusOK, true},
		{"wrong type", `{"kind":"Nutrition","data":{"kcal":"22"}}`, http.StatusBadRequest, false},
		{"missing kind", `{"data":{"name":"x"}}`, http.StatusBadRequest, false},
		{"malformed", `{"kind":`, http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, s, http.MethodPost, "/api/v1/validate", tt.body)
			assert.Equal(t, tt.code, rec.Code)

			var result validation.ValidationResult
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
			assert.Equal(t, tt.valid, result.Valid)
		})
	}
}

// buildScenario stores the recipe graph with a duplicate Tomatoes node and a
// second label on an existing pair.
func buildScenario(t *testing.T, s *Server) {
	t.Helper()
	seedCatalog(t, s)

	lasagne := createNode(t, s, "Food", map[string]interface{}{"name": "Lasagne"})
	pizza := createNode(t, s, "Food", map[string]interface{}{"name": "Pizza Margherita"})
	tomatoes := createNode(t, s, "Ingredient", map[string]interface{}{"name": "Tomatoes"})
	again := createNode(t, s, "Ingredient", map[string]interface{}{"name": "Tomatoes"})
	kcal := createNode(t, s, "Nutrition", map[string]interface{}{"name": "tomatoes-kcal", "kcal": 22})

	createEdge(t, s, lasagne, tomatoes, "has-ingredient")
	createEdge(t, s, pizza, again, "has-ingredient")
	createEdge(t, s, tomatoes, kcal, "has-nutrition")
	createEdge(t, s, lasagne, again, "contains")
}

func TestGetGraphData_Deduplicates(t *testing.T) {
	s := setupTestServer(t)
	buildScenario(t, s)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/graph", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var data GraphData
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &data))
	require.Len(t, data.Nodes, 4)
	require.Len(t, data.Edges, 3)

	var names []string
	for _, n := range data.Nodes {
		names = append(names, n.Data.ID)
	}
	assert.Equal(t, []string{"Lasagne", "Pizza Margherita", "Tomatoes", "tomatoes-kcal"}, names)
	assert.Equal(t, "Nutrition", data.Nodes[3].Data.Kind)
	assert.Equal(t, []string{"Ingredient", "Food"}, data.Nodes[3].Data.Ancestors)

	// Lasagne -> Tomatoes keeps its first label.
	assert.Equal(t, GraphEdgeData{
		ID: "Lasagne-Tomatoes", Source: "Lasagne", Target: "Tomatoes", Label: "has-ingredient",
	}, data.Edges[0].Data)

	rec = doRequest(t, s, http.MethodGet, "/api/v1/graph/stats", nil)
	var stats map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, float64(5), stats["nodes"]["stored"])
	assert.Equal(t, float64(4), stats["nodes"]["unique"])
	assert.Equal(t, float64(4), stats["edges"]["stored"])
	assert.Equal(t, float64(3), stats["edges"]["unique"])
}

func TestGetGraphJSONLD(t *testing.T) {
	s := setupTestServer(t)
	buildScenario(t, s)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/graph/jsonld", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "application/ld+json")

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Len(t, doc["@graph"], 4)

	rec = doRequest(t, s, http.MethodGet, "/api/v1/graph/jsonld?expand=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var expanded []interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &expanded))
	assert.NotEmpty(t, expanded)

	rec = doRequest(t, s, http.MethodGet, "/api/v1/graph/jsonld?expand=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebSocketStats(t *testing.T) {
	s := setupTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/ws/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, float64(0), stats["connected_clients"])
}

func TestAuth(t *testing.T) {
	cfg := config.Default()
	cfg.Security.RateLimit = 0
	cfg.Security.AuthEnabled = true
	cfg.Security.JWTSecret = "test-secret"

	store, err := storage.Open(filepath.Join(t.TempDir(), "auth.db"), nil)
	require.NoError(t, err)
	s := New(cfg, store, kind.NewRegistry(), nil)
	t.Cleanup(func() {
		s.wsHub.Stop()
		store.Close()
	})

	tokens := auth.NewTokenService(cfg)
	reader, err := tokens.GenerateToken("dashboard", []auth.Role{auth.RoleReader}, time.Hour)
	require.NoError(t, err)
	writer, err := tokens.GenerateToken("importer", []auth.Role{auth.RoleWriter}, time.Hour)
	require.NoError(t, err)

	call := func(method, path, token string, body interface{}) int {
		var data []byte
		if body != nil {
			data, err = json.Marshal(body)
			require.NoError(t, err)
		}
		req := httptest.NewRequest(method, path, bytes.NewReader(data))
		if body != nil {
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		}
		if token != "" {
			req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)
		return rec.Code
	}

	food := KindRequest{Title: "Food", Fields: map[string]kind.JSONType{"name": kind.String}}

	assert.Equal(t, http.StatusOK, call(http.MethodGet, "/health", "", nil))
	assert.Equal(t, http.StatusUnauthorized, call(http.MethodGet, "/api/v1/kinds", "", nil))
	assert.Equal(t, http.StatusOK, call(http.MethodGet, "/api/v1/kinds", reader, nil))
	assert.Equal(t, http.StatusForbidden, call(http.MethodPost, "/api/v1/kinds", reader, food))
	assert.Equal(t, http.StatusCreated, call(http.MethodPost, "/api/v1/kinds", writer, food))
	assert.Equal(t, http.StatusOK, call(http.MethodPost, "/api/v1/validate", reader,
		validation.NodeDocument{Kind: "Food", Data: map[string]interface{}{"name": "Lasagne"}}))
}

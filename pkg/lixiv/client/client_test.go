package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evalgo.org/lixiv/internal/api"
	"evalgo.org/lixiv/internal/config"
	"evalgo.org/lixiv/internal/kind"
	"evalgo.org/lixiv/internal/storage"
)

func setupClient(t *testing.T) *Client {
	t.Helper()

	cfg := config.Default()
	cfg.Security.RateLimit = 0

	store, err := storage.Open(filepath.Join(t.TempDir(), "client.db"), nil)
	require.NoError(t, err)

	server := api.New(cfg, store, kind.NewRegistry(), nil)
	ts := httptest.NewServer(server)
	t.Cleanup(func() {
		ts.Close()
		_ = server.Shutdown(context.Background())
	})

	c, err := New(ts.URL + "/")
	require.NoError(t, err)
	return c
}

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}

func TestClient_RoundTrip(t *testing.T) {
	c := setupClient(t)
	ctx := context.Background()

	require.NoError(t, c.CreateKind(ctx, Kind{Title: "Food", Fields: map[string]string{"name": "string"}}))
	require.NoError(t, c.CreateKind(ctx, Kind{Title: "Ingredient", Parent: "Food", Fields: map[string]string{"name": "string"}}))

	err := c.CreateKind(ctx, Kind{Title: "Food"})
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)

	lasagne, err := c.CreateNode(ctx, NodeDocument{Kind: "Food", Data: map[string]interface{}{"name": "Lasagne"}})
	require.NoError(t, err)
	tomatoes, err := c.CreateNode(ctx, NodeDocument{Kind: "Ingredient", Data: map[string]interface{}{"name": "Tomatoes"}})
	require.NoError(t, err)

	edge, err := c.CreateEdge(ctx, lasagne.ID, tomatoes.ID, "has-ingredient")
	require.NoError(t, err)
	assert.Equal(t, "has-ingredient", edge.Label)

	nodes, err := c.ListNodes(ctx, Query{Kind: "Ingredient"})
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "Tomatoes", nodes[0].Name)

	doc, err := c.GraphJSONLD(ctx)
	require.NoError(t, err)
	assert.Len(t, doc["@graph"], 2)
}

func TestClient_Validate(t *testing.T) {
	c := setupClient(t)
	ctx := context.Background()

	require.NoError(t, c.CreateKind(ctx, Kind{Title: "Nutrition", Fields: map[string]string{"name": "string", "kcal": "number"}}))

	result, err := c.Validate(ctx, NodeDocument{Kind: "Nutrition", Data: map[string]interface{}{"kcal": 22}})
	require.NoError(t, err)
	assert.True(t, result.Valid)

	result, err = c.ValidateRaw(ctx, []byte(`{"kind":"Nutrition","data":{"kcal":"22"}}`))
	require.NoError(t, err)
	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "kcal", result.Errors[0].Field)
	assert.Equal(t, "22", result.Errors[0].Value)
}

func TestWithToken(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/ld+json")
		_, _ = w.Write([]byte(`{"@graph":[]}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL, WithToken("abc"))
	require.NoError(t, err)

	_, err = c.GraphJSONLD(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer abc", got)
}

package jsonld

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evalgo.org/lixiv/internal/graph"
	"evalgo.org/lixiv/models"
)

func foodGraph() *graph.Graph {
	g := graph.New()
	lasagne := g.AddNode(models.NewNodeInstance("Food", "Lasagne"))
	pizza := g.AddNode(models.NewNodeInstance("Food", "Pizza Margherita"))
	tomatoes := g.AddNode(models.NewNodeInstance("Ingredient", "Tomatoes"))

	kcal := models.NewNodeInstance("Nutrition", "tomatoes-kcal")
	kcal.Set("kcal", 22)
	tomatoKcal := g.AddNode(kcal)

	g.AddEdge(lasagne, tomatoes, "has-ingredient")
	g.AddEdge(pizza, tomatoes, "has-ingredient")
	g.AddEdgeDedup(tomatoes, tomatoKcal, "has-nutrition")
	return g
}

func TestNodeID_Stable(t *testing.T) {
	assert.Equal(t, NodeID("Lasagne"), NodeID("Lasagne"))
	assert.NotEqual(t, NodeID("Lasagne"), NodeID("Tomatoes"))
	assert.True(t, strings.HasPrefix(NodeID("Lasagne"), "urn:uuid:"))
}

func TestDocument(t *testing.T) {
	doc := Document(foodGraph())

	assert.True(t, strings.HasPrefix(doc["@id"].(string), "urn:uuid:"))
	assert.Equal(t, map[string]interface{}{"@vocab": Vocab}, doc["@context"])

	items := doc["@graph"].([]interface{})
	require.Len(t, items, 4)

	lasagne := items[0].(map[string]interface{})
	assert.Equal(t, NodeID("Lasagne"), lasagne["@id"])
	assert.Equal(t, "Food", lasagne["@type"])
	assert.Equal(t, "Lasagne", lasagne["name"])
	assert.Equal(t, map[string]interface{}{"@id": NodeID("Tomatoes")}, lasagne["has-ingredient"])

	kcal := items[3].(map[string]interface{})
	assert.Equal(t, "Nutrition", kcal["@type"])
	assert.Equal(t, 22, kcal["kcal"])
}

func TestDocument_RepeatedLabelBecomesList(t *testing.T) {
	g := graph.New()
	lasagne := g.AddNode(models.NewNodeInstance("Food", "Lasagne"))
	tomatoes := g.AddNode(models.NewNodeInstance("Ingredient", "Tomatoes"))
	basil := g.AddNode(models.NewNodeInstance("Ingredient", "Basil"))
	g.AddEdge(lasagne, tomatoes, "has-ingredient")
	g.AddEdge(lasagne, basil, "has-ingredient")

	items := Document(g)["@graph"].([]interface{})
	refs, ok := items[0].(map[string]interface{})["has-ingredient"].([]interface{})
	require.True(t, ok)
	assert.Len(t, refs, 2)
}

func TestDocument_DoesNotMutateGraph(t *testing.T) {
	g := foodGraph()
	Document(g)

	n, ok := g.Node(g.Nodes()[0])
	require.True(t, ok)
	_, hasLabel := n.Get("has-ingredient")
	assert.False(t, hasLabel)
	assert.Equal(t, 1, n.Len())
}

func TestDocument_LabelCollidesWithField(t *testing.T) {
	g := graph.New()
	tags := []interface{}{"vegan"}
	src := models.NewNodeInstance("Food", "Salad")
	src.Set("tag", append(make([]interface{}, 0, 4), tags...))
	salad := g.AddNode(src)
	green := g.AddNode(models.NewNodeInstance("Tag", "Green"))
	raw := g.AddNode(models.NewNodeInstance("Tag", "Raw"))
	g.AddEdge(salad, green, "tag")
	g.AddEdge(salad, raw, "tag")

	items := Document(g)["@graph"].([]interface{})
	entry := items[0].(map[string]interface{})
	assert.Equal(t, tags, entry["tag"])
	assert.Equal(t, []interface{}{
		map[string]interface{}{"@id": NodeID("Green")},
		map[string]interface{}{"@id": NodeID("Raw")},
	}, entry[EdgeVocab+"tag"])

	n, ok := g.Node(salad)
	require.True(t, ok)
	v, _ := n.Get("tag")
	assert.Equal(t, tags, v)
	// Spare capacity of the stored slice stays untouched.
	assert.Nil(t, v.([]interface{})[:2][1])

	expanded, err := Expand(Document(g))
	require.NoError(t, err)
	require.Len(t, expanded, 1)
}

func TestExpand(t *testing.T) {
	expanded, err := Expand(Document(foodGraph()))
	require.NoError(t, err)
	require.Len(t, expanded, 1)

	top := expanded[0].(map[string]interface{})
	nodes := top["@graph"].([]interface{})
	require.Len(t, nodes, 4)

	var lasagne map[string]interface{}
	for _, n := range nodes {
		m := n.(map[string]interface{})
		if m["@id"] == NodeID("Lasagne") {
			lasagne = m
		}
	}
	require.NotNil(t, lasagne, "Lasagne should survive expansion")
	assert.Equal(t, []interface{}{Vocab + "Food"}, lasagne["@type"])
	assert.Contains(t, lasagne, Vocab+"has-ingredient")
	assert.Contains(t, lasagne, Vocab+"name")
}

func TestExpand_EmptyGraph(t *testing.T) {
	_, err := Expand(Document(graph.New()))
	assert.NoError(t, err)
}

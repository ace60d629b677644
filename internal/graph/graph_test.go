package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evalgo.org/lixiv/internal/kind"
	"evalgo.org/lixiv/internal/validation"
	"evalgo.org/lixiv/models"
)

func TestAddNodeDedup_SameNameYieldsSameHandle(t *testing.T) {
	g := New()

	first := models.NewNodeInstance("Nutrition", "tomatoes-kcal")
	first.Set("kcal", 22)
	second := models.NewNodeInstance("Nutrition", "tomatoes-kcal")
	second.Set("kcal", 99)

	h1 := g.AddNodeDedup(first)
	h2 := g.AddNodeDedup(second)

	assert.Equal(t, h1, h2)
	assert.Equal(t, 1, g.NodeCount())

	kept, ok := g.Node(h1)
	require.True(t, ok)
	kcal, _ := kept.Get("kcal")
	assert.Equal(t, 22, kcal, "the first instance should be kept")
}

func TestAddNode_AllowsDuplicateNames(t *testing.T) {
	g := New()

	h1 := g.AddNode(models.NewNodeInstance("Food", "Lasagne"))
	h2 := g.AddNode(models.NewNodeInstance("Food", "Lasagne"))

	assert.NotEqual(t, h1, h2)
	assert.Equal(t, 2, g.NodeCount())

	// Dedup matches the first of them.
	h3 := g.AddNodeDedup(models.NewNodeInstance("Food", "Lasagne"))
	assert.Equal(t, h1, h3)
}

func TestAddEdgeDedup_FirstLabelWins(t *testing.T) {
	g := New()
	a := g.AddNode(models.NewNodeInstance("Food", "Lasagne"))
	b := g.AddNode(models.NewNodeInstance("Ingredient", "Tomatoes"))

	e1 := g.AddEdgeDedup(a, b, "has-ingredient")
	e2 := g.AddEdgeDedup(a, b, "has-nutrition")

	assert.Equal(t, e1, e2)
	assert.Equal(t, 1, g.EdgeCount())

	label, ok := g.Label(e1)
	require.True(t, ok)
	assert.Equal(t, "has-ingredient", label)
}

func TestAddEdgeDedup_DirectionMatters(t *testing.T) {
	g := New()
	a := g.AddNode(models.NewNodeInstance("Food", "Lasagne"))
	b := g.AddNode(models.NewNodeInstance("Ingredient", "Tomatoes"))

	e1 := g.AddEdgeDedup(a, b, "has-ingredient")
	e2 := g.AddEdgeDedup(b, a, "ingredient-of")

	assert.NotEqual(t, e1, e2)
	assert.Equal(t, 2, g.EdgeCount())
}

func TestAddEdge_ParallelEdges(t *testing.T) {
	g := New()
	a := g.AddNode(models.NewNodeInstance("Food", "Lasagne"))
	b := g.AddNode(models.NewNodeInstance("Ingredient", "Tomatoes"))

	g.AddEdge(a, b, "has-ingredient")
	g.AddEdge(a, b, "has-ingredient")

	assert.Equal(t, 2, g.EdgeCount())
	assert.Len(t, g.Outgoing(a), 2)
	assert.Len(t, g.Incoming(b), 2)
}

func TestAddEdge_InvalidHandlePanics(t *testing.T) {
	g := New()
	a := g.AddNode(models.NewNodeInstance("Food", "Lasagne"))

	assert.Panics(t, func() { g.AddEdge(a, NodeHandle(7), "has-ingredient") })
}

func TestRemove_KeepsOtherHandlesValid(t *testing.T) {
	g := New()
	lasagne := g.AddNode(models.NewNodeInstance("Food", "Lasagne"))
	pizza := g.AddNode(models.NewNodeInstance("Food", "Pizza Margherita"))
	tomatoes := g.AddNode(models.NewNodeInstance("Ingredient", "Tomatoes"))

	e1 := g.AddEdge(lasagne, tomatoes, "has-ingredient")
	e2 := g.AddEdge(pizza, tomatoes, "has-ingredient")

	removed, ok := g.RemoveNode(lasagne)
	require.True(t, ok)
	assert.Equal(t, "Lasagne", removed.Name())

	assert.Equal(t, 2, g.NodeCount())
	assert.Equal(t, 1, g.EdgeCount())
	assert.Equal(t, []NodeHandle{pizza, tomatoes}, g.Nodes())
	assert.Equal(t, []EdgeHandle{e2}, g.Edges())

	_, ok = g.Label(e1)
	assert.False(t, ok)

	src, dst, ok := g.Endpoints(e2)
	require.True(t, ok)
	assert.Equal(t, pizza, src)
	assert.Equal(t, tomatoes, dst)

	n, ok := g.Node(tomatoes)
	require.True(t, ok)
	assert.Equal(t, "Tomatoes", n.Name())

	// New inserts never reuse a removed handle.
	again := g.AddNodeDedup(models.NewNodeInstance("Food", "Lasagne"))
	assert.NotEqual(t, lasagne, again)

	assert.False(t, g.RemoveEdge(e1))
	_, ok = g.RemoveNode(lasagne)
	assert.False(t, ok)
}

func TestNode_ReturnsCopy(t *testing.T) {
	g := New()
	h := g.AddNode(models.NewNodeInstance("Food", "Lasagne"))

	n, _ := g.Node(h)
	n.Set("name", "Calzone")

	stored, _ := g.Node(h)
	assert.Equal(t, "Lasagne", stored.Name())
}

func TestEndToEndScenario(t *testing.T) {
	reg := kind.NewRegistry()
	require.NoError(t, reg.Register(kind.Definition{
		Name:   "Food",
		Fields: map[string]kind.JSONType{"name": kind.String},
	}))
	require.NoError(t, reg.Register(kind.Definition{
		Name:   "Ingredient",
		Parent: "Food",
		Fields: map[string]kind.JSONType{"name": kind.String},
	}))
	require.NoError(t, reg.Register(kind.Definition{
		Name:   "Nutrition",
		Parent: "Ingredient",
		Fields: map[string]kind.JSONType{"name": kind.String, "kcal": kind.Number},
	}))

	lasagne := models.NewNodeInstance("Food", "Lasagne")
	pizza := models.NewNodeInstance("Food", "Pizza Margherita")
	tomatoes := models.NewNodeInstance("Ingredient", "Tomatoes")
	tomatoKcal := models.NewNodeInstance("Nutrition", "tomatoes-kcal")
	tomatoKcal.Set("kcal", 22)

	for _, n := range []models.NodeInstance{lasagne, pizza, tomatoes, tomatoKcal} {
		require.NoError(t, validation.ValidateInstance(reg, n), n.Name())
	}

	g := New()
	iLasagne := g.AddNode(lasagne)
	iPizza := g.AddNode(pizza)
	iTomatoes := g.AddNode(tomatoes)
	iKcal := g.AddNode(tomatoKcal)
	iKcal2 := g.AddNodeDedup(tomatoKcal)
	assert.Equal(t, iKcal, iKcal2)

	g.AddEdge(iLasagne, iTomatoes, "has-ingredient")
	g.AddEdge(iPizza, iTomatoes, "has-ingredient")
	g.AddEdgeDedup(iTomatoes, iKcal, "has-nutrition")
	g.AddEdgeDedup(iTomatoes, iKcal2, "has-nutrition")

	assert.Equal(t, 4, g.NodeCount())
	assert.Equal(t, 3, g.EdgeCount())

	var rendered []string
	for _, h := range g.Edges() {
		e, ok := g.Edge(h)
		require.True(t, ok)
		rendered = append(rendered, e.String())
	}
	assert.Equal(t, []string{
		"Lasagne -[has-ingredient]-> Tomatoes",
		"Pizza Margherita -[has-ingredient]-> Tomatoes",
		"Tomatoes -[has-nutrition]-> tomatoes-kcal",
	}, rendered)
}

func TestZeroValueGraph(t *testing.T) {
	var g Graph
	assert.Empty(t, g.Nodes())
	assert.Empty(t, g.Edges())

	h := g.AddNodeDedup(models.NewNodeInstance("Food", "Lasagne"))
	assert.Equal(t, NodeHandle(0), h)
}

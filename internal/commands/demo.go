package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"evalgo.org/lixiv/internal/graph"
	"evalgo.org/lixiv/internal/jsonld"
	"evalgo.org/lixiv/internal/kind"
	"evalgo.org/lixiv/internal/validation"
	"evalgo.org/lixiv/models"
)

var demoJSONLD bool

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Build the recipe example graph and print it",
	Long: `Build a small in-memory graph and print its nodes and edges.

Kinds:
  Food
    └─ Ingredient
         └─ Nutrition

The tomatoes-kcal node is inserted twice; the deduplicating inserts keep a
single node and a single has-nutrition edge.`,
	Args: cobra.NoArgs,
	RunE: runDemo,
}

func init() {
	demoCmd.Flags().BoolVar(&demoJSONLD, "jsonld", false, "print the graph as JSON-LD instead")
}

func runDemo(cmd *cobra.Command, args []string) error {
	reg, err := demoRegistry()
	if err != nil {
		return err
	}

	g, err := demoGraph(reg)
	if err != nil {
		return err
	}

	if demoJSONLD {
		return writeJSON(cmd.OutOrStdout(), jsonld.Document(g))
	}
	writeOverview(cmd.OutOrStdout(), g)
	return nil
}

func demoRegistry() (*kind.Registry, error) {
	reg := kind.NewRegistry()
	for _, def := range []kind.Definition{
		{Name: "Food", Fields: map[string]kind.JSONType{"name": kind.String}},
		{Name: "Ingredient", Parent: "Food", Fields: map[string]kind.JSONType{"name": kind.String}},
		{Name: "Nutrition", Parent: "Ingredient", Fields: map[string]kind.JSONType{"name": kind.String, "kcal": kind.Number}},
	} {
		if err := reg.Register(def); err != nil {
			return nil, fmt.Errorf("register %s kind: %w", def.Name, err)
		}
	}
	return reg, nil
}

func demoGraph(reg *kind.Registry) (*graph.Graph, error) {
	lasagne := models.NewNodeInstance("Food", "Lasagne")
	pizza := models.NewNodeInstance("Food", "Pizza Margherita")
	tomatoes := models.NewNodeInstance("Ingredient", "Tomatoes")
	kcal := models.NewNodeInstance("Nutrition", "tomatoes-kcal")
	kcal.Set("kcal", 22)

	for _, node := range []models.NodeInstance{lasagne, pizza, tomatoes, kcal} {
		if err := validation.ValidateInstance(reg, node); err != nil {
			return nil, fmt.Errorf("node %s: %w", node.Name(), err)
		}
	}

	g := graph.New()
	hLasagne := g.AddNode(lasagne)
	hPizza := g.AddNode(pizza)
	hTomatoes := g.AddNode(tomatoes)
	hKcal := g.AddNode(kcal)
	hKcal2 := g.AddNodeDedup(kcal)

	g.AddEdge(hLasagne, hTomatoes, "has-ingredient")
	g.AddEdge(hPizza, hTomatoes, "has-ingredient")
	g.AddEdgeDedup(hTomatoes, hKcal, "has-nutrition")
	g.AddEdgeDedup(hTomatoes, hKcal2, "has-nutrition")

	return g, nil
}

// writeOverview prints every node as "- name (kind)" and every edge as
// "- source -[label]-> target", both in insertion order.
func writeOverview(w io.Writer, g *graph.Graph) {
	fmt.Fprintln(w, "Nodes:")
	for _, h := range g.Nodes() {
		node, _ := g.Node(h)
		fmt.Fprintf(w, "- %s (%s)\n", node.Name(), node.Kind)
	}

	fmt.Fprintln(w, "\nEdges:")
	for _, h := range g.Edges() {
		edge, _ := g.Edge(h)
		fmt.Fprintf(w, "- %s\n", edge)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

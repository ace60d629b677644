package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"evalgo.org/lixiv/internal/graph"
	"evalgo.org/lixiv/internal/jsonld"
	"evalgo.org/lixiv/internal/logging"
	"evalgo.org/lixiv/internal/storage"
	"evalgo.org/lixiv/models"
)

var (
	exportFormat string
	exportExpand bool
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Work with the stored graph",
}

var graphExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print the stored graph",
	Long: `Load the stored nodes and edges, deduplicate them and print the
resulting graph.

Formats:
  json    {"nodes": [{"kind", "data"}], "edges": [{"source", "target", "label"}]}
  jsonld  a JSON-LD document typed by kind (--expand runs JSON-LD expansion)`,
	Args: cobra.NoArgs,
	RunE: runGraphExport,
}

func init() {
	graphCmd.AddCommand(graphExportCmd)

	graphExportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "output format (json, jsonld)")
	graphExportCmd.Flags().BoolVar(&exportExpand, "expand", false, "expand the JSON-LD document")
}

// graphExport is the json export shape.
type graphExport struct {
	Nodes []models.NodeInstance `json:"nodes"`
	Edges []models.Edge         `json:"edges"`
}

func runGraphExport(cmd *cobra.Command, args []string) error {
	if exportFormat != "json" && exportFormat != "jsonld" {
		return fmt.Errorf("unknown format %q (use json or jsonld)", exportFormat)
	}

	ctx := cmd.Context()
	store, logger, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck
	defer store.Close()

	g, err := store.LoadGraph(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if exportFormat == "json" {
		return writeJSON(out, exportGraph(g))
	}

	doc := jsonld.Document(g)
	if !exportExpand {
		return writeJSON(out, doc)
	}
	expanded, err := jsonld.Expand(doc)
	if err != nil {
		return err
	}
	return writeJSON(out, expanded)
}

// openStorage opens the configured database with a logger that writes to
// stderr, leaving stdout to command output.
func openStorage(ctx context.Context) (*storage.Storage, *zap.Logger, error) {
	logCfg := cfg.Logging
	if logCfg.Output == "" || logCfg.Output == "stdout" {
		logCfg.Output = "stderr"
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	store, err := storage.New(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync() //nolint:errcheck
		return nil, nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return store, logger, nil
}

func exportGraph(g *graph.Graph) graphExport {
	export := graphExport{
		Nodes: make([]models.NodeInstance, 0, g.NodeCount()),
		Edges: make([]models.Edge, 0, g.EdgeCount()),
	}
	for _, h := range g.Nodes() {
		node, _ := g.Node(h)
		export.Nodes = append(export.Nodes, node)
	}
	for _, h := range g.Edges() {
		edge, _ := g.Edge(h)
		export.Edges = append(export.Edges, edge)
	}
	return export
}

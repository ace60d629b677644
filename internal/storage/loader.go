package storage

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"evalgo.org/lixiv/internal/graph"
	"evalgo.org/lixiv/internal/kind"
	"evalgo.org/lixiv/models"
)

// LoadRegistry rebuilds a kind registry from the stored kinds. Parents are
// registered before their children regardless of insertion order.
func (s *Storage) LoadRegistry(ctx context.Context, opts ...kind.Option) (*kind.Registry, error) {
	records, err := s.kindsInOrder(ctx)
	if err != nil {
		return nil, err
	}

	pending := make([]kind.Definition, 0, len(records))
	for _, rec := range records {
		def, err := DecodeKind(rec)
		if err != nil {
			return nil, err
		}
		pending = append(pending, def)
	}

	reg := kind.NewRegistry(opts...)
	for len(pending) > 0 {
		var next []kind.Definition
		for _, def := range pending {
			if def.HasParent() && !reg.Has(def.Parent) {
				next = append(next, def)
				continue
			}
			if err := reg.Register(def); err != nil {
				return nil, fmt.Errorf("loading kind %s: %w", def.Name, err)
			}
		}

		// No progress means a parent is missing from storage.
		if len(next) == len(pending) {
			return nil, fmt.Errorf("loading kind %s: %w", next[0].Name, reg.Register(next[0]))
		}
		pending = next
	}

	s.logger.Debug("Registry loaded", zap.Int("kinds", reg.Len()))
	return reg, nil
}

// Snapshot returns every stored node and edge in insertion order.
func (s *Storage) Snapshot(ctx context.Context) ([]*models.NodeRecord, []*models.EdgeRecord, error) {
	nodes, err := s.listNodes(ctx, "SELECT "+nodeColumns+" FROM nodes ORDER BY id ASC")
	if err != nil {
		return nil, nil, err
	}
	edges, err := s.listEdges(ctx, "SELECT "+edgeColumns+" FROM edges ORDER BY id ASC")
	if err != nil {
		return nil, nil, err
	}
	return nodes, edges, nil
}

// LoadGraph rebuilds the graph from the stored nodes and edges in insertion
// order using the deduplicating inserts: nodes sharing a display name
// collapse into the first stored one and edges between the same pair keep
// the first stored label.
func (s *Storage) LoadGraph(ctx context.Context) (*graph.Graph, error) {
	nodes, edges, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	g := graph.New()
	handles := make(map[int64]graph.NodeHandle, len(nodes))
	for _, rec := range nodes {
		node, err := rec.Instance()
		if err != nil {
			return nil, fmt.Errorf("decoding node %d: %w", rec.ID, err)
		}
		if !node.HasName() {
			return nil, fmt.Errorf("node %d: %w", rec.ID, ErrNameRequired)
		}
		handles[rec.ID] = g.AddNodeDedup(node)
	}

	for _, rec := range edges {
		src, ok := handles[rec.SourceNodeID]
		if !ok {
			return nil, fmt.Errorf("edge %d: source node %d: %w", rec.ID, rec.SourceNodeID, ErrNotFound)
		}
		dst, ok := handles[rec.TargetNodeID]
		if !ok {
			return nil, fmt.Errorf("edge %d: target node %d: %w", rec.ID, rec.TargetNodeID, ErrNotFound)
		}
		g.AddEdgeDedup(src, dst, rec.Label)
	}

	s.logger.Debug("Graph loaded",
		zap.Int("nodes", g.NodeCount()),
		zap.Int("edges", g.EdgeCount()))
	return g, nil
}

// ImportCatalog stores every kind of file that is not stored yet, in file
// order. Kinds already present under the same title are left untouched.
// The new kinds are first registered on top of the stored catalog built with
// opts, so a file that would leave storage unloadable (unknown parent, field
// conflict) is rejected before anything is written. It returns the number of
// kinds created.
func (s *Storage) ImportCatalog(ctx context.Context, file *kind.CatalogFile, opts ...kind.Option) (int, error) {
	reg, err := s.LoadRegistry(ctx, opts...)
	if err != nil {
		return 0, fmt.Errorf("loading stored catalog: %w", err)
	}

	stored := make(map[string]bool, reg.Len())
	for _, def := range reg.List() {
		stored[def.Name] = true
	}

	var pending []kind.Definition
	for _, def := range file.Kinds {
		if stored[def.Name] {
			continue
		}
		if err := reg.Register(def); err != nil {
			return 0, fmt.Errorf("kind %s: %w", def.Name, err)
		}
		pending = append(pending, def)
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		for _, def := range pending {
			if _, err := s.insertKind(ctx, tx, def); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("Catalog imported",
		zap.Int("kinds", len(file.Kinds)),
		zap.Int("created", len(pending)))
	return len(pending), nil
}

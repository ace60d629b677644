package storage

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"evalgo.org/lixiv/models"
)

const edgeColumns = "id, source_node_id, target_node_id, label, created_at"

func scanEdge(row interface{ Scan(...interface{}) error }) (*models.EdgeRecord, error) {
	var (
		rec       models.EdgeRecord
		createdAt int64
	)
	if err := row.Scan(&rec.ID, &rec.SourceNodeID, &rec.TargetNodeID, &rec.Label, &createdAt); err != nil {
		return nil, err
	}
	rec.CreatedAt = unixTime(createdAt)
	return &rec, nil
}

// ListEdges returns stored edges, newest first.
func (s *Storage) ListEdges(ctx context.Context, opts ListOptions) ([]*models.EdgeRecord, error) {
	q, args := paginate("SELECT "+edgeColumns+" FROM edges ORDER BY created_at DESC, id DESC", opts, nil)
	return s.listEdges(ctx, q, args...)
}

func (s *Storage) listEdges(ctx context.Context, q string, args ...interface{}) ([]*models.EdgeRecord, error) {
	rows, err := s.query(ctx, s.db, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing edges: %w", err)
	}
	defer rows.Close()

	var edges []*models.EdgeRecord
	for rows.Next() {
		rec, err := scanEdge(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning edge: %w", err)
		}
		edges = append(edges, rec)
	}
	return edges, rows.Err()
}

// CountEdges returns the number of stored edges.
func (s *Storage) CountEdges(ctx context.Context) (int, error) {
	return count(ctx, s, "SELECT COUNT(*) FROM edges")
}

// GetEdge retrieves an edge by id.
func (s *Storage) GetEdge(ctx context.Context, id int64) (*models.EdgeRecord, error) {
	rec, err := scanEdge(s.queryRow(ctx, s.db, "SELECT "+edgeColumns+" FROM edges WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting edge %d: %w", id, err)
	}
	return rec, nil
}

// CreateEdge stores a labeled edge between two stored nodes. Parallel edges
// are accepted; deduplication happens when the graph is loaded.
func (s *Storage) CreateEdge(ctx context.Context, source, target int64, label string) (*models.EdgeRecord, error) {
	for _, id := range []int64{source, target} {
		if _, err := s.GetNode(ctx, id); err != nil {
			if err == ErrNotFound {
				return nil, fmt.Errorf("node %d: %w", id, ErrNotFound)
			}
			return nil, err
		}
	}

	now := s.timestamp()
	var id int64
	err := s.queryRow(ctx, s.db,
		"INSERT INTO edges (source_node_id, target_node_id, label, created_at) VALUES (?, ?, ?, ?) RETURNING id",
		source, target, label, now,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("creating edge %d -> %d: %w", source, target, err)
	}

	s.logger.Debug("Edge stored",
		zap.Int64("edge_id", id),
		zap.Int64("source_node_id", source),
		zap.Int64("target_node_id", target),
		zap.String("label", label))

	return &models.EdgeRecord{
		ID:           id,
		SourceNodeID: source,
		TargetNodeID: target,
		Label:        label,
		CreatedAt:    unixTime(now),
	}, nil
}

// DeleteEdge removes an edge by id.
func (s *Storage) DeleteEdge(ctx context.Context, id int64) error {
	res, err := s.exec(ctx, s.db, "DELETE FROM edges WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting edge %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	s.logger.Debug("Edge deleted", zap.Int64("edge_id", id))
	return nil
}

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"evalgo.org/lixiv/models"
)

const nodeColumns = "id, kind_title, name, data, created_at, updated_at"

func scanNode(row interface{ Scan(...interface{}) error }) (*models.NodeRecord, error) {
	var (
		rec                  models.NodeRecord
		data                 string
		createdAt, updatedAt int64
	)
	if err := row.Scan(&rec.ID, &rec.KindTitle, &rec.Name, &data, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	rec.Data = json.RawMessage(data)
	rec.CreatedAt = unixTime(createdAt)
	rec.UpdatedAt = unixTime(updatedAt)
	return &rec, nil
}

// NodeFilter narrows ListNodes. Empty fields match everything.
type NodeFilter struct {
	Kind string
	Name string
}

// ListNodes returns stored nodes matching filter, newest first.
func (s *Storage) ListNodes(ctx context.Context, filter NodeFilter, opts ListOptions) ([]*models.NodeRecord, error) {
	q := "SELECT " + nodeColumns + " FROM nodes WHERE 1=1"
	var args []interface{}
	if filter.Kind != "" {
		q += " AND kind_title = ?"
		args = append(args, filter.Kind)
	}
	if filter.Name != "" {
		q += " AND name = ?"
		args = append(args, filter.Name)
	}
	q, args = paginate(q+" ORDER BY created_at DESC, id DESC", opts, args)
	return s.listNodes(ctx, q, args...)
}

func (s *Storage) listNodes(ctx context.Context, q string, args ...interface{}) ([]*models.NodeRecord, error) {
	rows, err := s.query(ctx, s.db, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing nodes: %w", err)
	}
	defer rows.Close()

	var nodes []*models.NodeRecord
	for rows.Next() {
		rec, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning node: %w", err)
		}
		nodes = append(nodes, rec)
	}
	return nodes, rows.Err()
}

// CountNodes returns the number of stored nodes.
func (s *Storage) CountNodes(ctx context.Context) (int, error) {
	return count(ctx, s, "SELECT COUNT(*) FROM nodes")
}

// GetNode retrieves a node by id.
func (s *Storage) GetNode(ctx context.Context, id int64) (*models.NodeRecord, error) {
	rec, err := scanNode(s.queryRow(ctx, s.db, "SELECT "+nodeColumns+" FROM nodes WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting node %d: %w", id, err)
	}
	return rec, nil
}

// CreateNode stores node. Its kind must already be stored.
func (s *Storage) CreateNode(ctx context.Context, node models.NodeInstance) (*models.NodeRecord, error) {
	if !node.HasName() {
		return nil, ErrNameRequired
	}
	if _, err := s.GetKind(ctx, node.Kind); err != nil {
		if err == ErrNotFound {
			return nil, fmt.Errorf("kind %s: %w", node.Kind, ErrNotFound)
		}
		return nil, err
	}

	data, err := json.Marshal(node.Data())
	if err != nil {
		return nil, fmt.Errorf("encoding node %s: %w", node.Name(), err)
	}

	now := s.timestamp()
	var id int64
	err = s.queryRow(ctx, s.db,
		"INSERT INTO nodes (kind_title, name, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?) RETURNING id",
		node.Kind, node.Name(), string(data), now, now,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("creating node %s: %w", node.Name(), err)
	}

	s.logger.Debug("Node stored",
		zap.String("kind", node.Kind),
		zap.String("name", node.Name()),
		zap.Int64("node_id", id))

	return &models.NodeRecord{
		ID:        id,
		KindTitle: node.Kind,
		Name:      node.Name(),
		Data:      data,
		CreatedAt: unixTime(now),
		UpdatedAt: unixTime(now),
	}, nil
}

// DeleteNode removes a node and every edge touching it. It returns the
// number of removed edges.
func (s *Storage) DeleteNode(ctx context.Context, id int64) (int64, error) {
	var removed int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := s.exec(ctx, tx, "DELETE FROM edges WHERE source_node_id = ? OR target_node_id = ?", id, id)
		if err != nil {
			return fmt.Errorf("deleting edges of node %d: %w", id, err)
		}
		removed, _ = res.RowsAffected()

		res, err = s.exec(ctx, tx, "DELETE FROM nodes WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("deleting node %d: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Debug("Node deleted", zap.Int64("node_id", id), zap.Int64("edges_removed", removed))
	return removed, nil
}

// MergeNodes moves every edge of drop onto keep and removes drop. It
// returns the number of moved edges.
func (s *Storage) MergeNodes(ctx context.Context, keep, drop int64) (int64, error) {
	if keep == drop {
		return 0, fmt.Errorf("merging node %d into itself", keep)
	}

	var moved int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, id := range []int64{keep, drop} {
			var n int
			if err := s.queryRow(ctx, tx, "SELECT COUNT(*) FROM nodes WHERE id = ?", id).Scan(&n); err != nil {
				return fmt.Errorf("checking node %d: %w", id, err)
			}
			if n == 0 {
				return fmt.Errorf("node %d: %w", id, ErrNotFound)
			}
		}

		for _, column := range []string{"source_node_id", "target_node_id"} {
			res, err := s.exec(ctx, tx, "UPDATE edges SET "+column+" = ? WHERE "+column+" = ?", keep, drop)
			if err != nil {
				return fmt.Errorf("moving edges of node %d: %w", drop, err)
			}
			n, _ := res.RowsAffected()
			moved += n
		}

		if _, err := s.exec(ctx, tx, "DELETE FROM nodes WHERE id = ?", drop); err != nil {
			return fmt.Errorf("deleting node %d: %w", drop, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Debug("Nodes merged",
		zap.Int64("kept_node_id", keep),
		zap.Int64("dropped_node_id", drop),
		zap.Int64("edges_moved", moved))
	return moved, nil
}

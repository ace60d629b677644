package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"evalgo.org/lixiv/internal/kind"
	"evalgo.org/lixiv/models"
)

// kindSchema is the JSON payload stored in kinds.schema_json.
type kindSchema struct {
	Parent string                   `json:"parent,omitempty"`
	Fields map[string]kind.JSONType `json:"fields"`
}

// EncodeKind returns the schema payload stored for def.
func EncodeKind(def kind.Definition) (json.RawMessage, error) {
	fields := def.Fields
	if fields == nil {
		fields = map[string]kind.JSONType{}
	}
	return json.Marshal(kindSchema{Parent: def.Parent, Fields: fields})
}

// DecodeKind turns a stored kind record back into a definition.
func DecodeKind(rec *models.KindRecord) (kind.Definition, error) {
	var schema kindSchema
	if err := json.Unmarshal(rec.Schema, &schema); err != nil {
		return kind.Definition{}, fmt.Errorf("decoding schema of kind %s: %w", rec.Title, err)
	}
	return kind.Definition{Name: rec.Title, Parent: schema.Parent, Fields: schema.Fields}, nil
}

const kindColumns = "id, title, schema_json, created_at, updated_at"

func scanKind(row interface{ Scan(...interface{}) error }) (*models.KindRecord, error) {
	var (
		rec                  models.KindRecord
		schema               string
		createdAt, updatedAt int64
	)
	if err := row.Scan(&rec.ID, &rec.Title, &schema, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	rec.Schema = json.RawMessage(schema)
	rec.CreatedAt = unixTime(createdAt)
	rec.UpdatedAt = unixTime(updatedAt)
	return &rec, nil
}

// ListKinds returns stored kinds, newest first.
func (s *Storage) ListKinds(ctx context.Context, opts ListOptions) ([]*models.KindRecord, error) {
	q, args := paginate("SELECT "+kindColumns+" FROM kinds ORDER BY created_at DESC, id DESC", opts, nil)
	return s.listKinds(ctx, q, args...)
}

// kindsInOrder returns every stored kind in insertion order.
func (s *Storage) kindsInOrder(ctx context.Context) ([]*models.KindRecord, error) {
	return s.listKinds(ctx, "SELECT "+kindColumns+" FROM kinds ORDER BY id ASC")
}

func (s *Storage) listKinds(ctx context.Context, q string, args ...interface{}) ([]*models.KindRecord, error) {
	rows, err := s.query(ctx, s.db, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing kinds: %w", err)
	}
	defer rows.Close()

	var kinds []*models.KindRecord
	for rows.Next() {
		rec, err := scanKind(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning kind: %w", err)
		}
		kinds = append(kinds, rec)
	}
	return kinds, rows.Err()
}

// CountKinds returns the number of stored kinds.
func (s *Storage) CountKinds(ctx context.Context) (int, error) {
	return count(ctx, s, "SELECT COUNT(*) FROM kinds")
}

// GetKind retrieves a kind by title.
func (s *Storage) GetKind(ctx context.Context, title string) (*models.KindRecord, error) {
	rec, err := scanKind(s.queryRow(ctx, s.db, "SELECT "+kindColumns+" FROM kinds WHERE title = ?", title))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting kind %s: %w", title, err)
	}
	return rec, nil
}

// CreateKind stores def. A kind with the same title yields ErrAlreadyExists
// and a parent that is not stored yields kind.ErrUnknownParent.
func (s *Storage) CreateKind(ctx context.Context, def kind.Definition) (*models.KindRecord, error) {
	var rec *models.KindRecord
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		rec, err = s.insertKind(ctx, tx, def)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Kind stored", zap.String("kind", def.Name), zap.Int64("kind_id", rec.ID))
	return rec, nil
}

// insertKind writes def inside tx after checking its parent is stored.
func (s *Storage) insertKind(ctx context.Context, tx *sql.Tx, def kind.Definition) (*models.KindRecord, error) {
	schema, err := EncodeKind(def)
	if err != nil {
		return nil, fmt.Errorf("encoding kind %s: %w", def.Name, err)
	}

	if def.HasParent() {
		var n int
		if err := s.queryRow(ctx, tx, "SELECT COUNT(*) FROM kinds WHERE title = ?", def.Parent).Scan(&n); err != nil {
			return nil, fmt.Errorf("checking parent of kind %s: %w", def.Name, err)
		}
		if n == 0 {
			return nil, &kind.UnknownParentError{Name: def.Name, Parent: def.Parent}
		}
	}

	now := s.timestamp()
	var id int64
	err = s.queryRow(ctx, tx,
		"INSERT INTO kinds (title, schema_json, created_at, updated_at) VALUES (?, ?, ?, ?) RETURNING id",
		def.Name, string(schema), now, now,
	).Scan(&id)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("kind %s: %w", def.Name, ErrAlreadyExists)
	}
	if err != nil {
		return nil, fmt.Errorf("creating kind %s: %w", def.Name, err)
	}

	return &models.KindRecord{
		ID:        id,
		Title:     def.Name,
		Schema:    schema,
		CreatedAt: unixTime(now),
		UpdatedAt: unixTime(now),
	}, nil
}

// DeleteKind removes a kind. It fails with ErrInUse while nodes reference
// the kind or another kind names it as parent.
func (s *Storage) DeleteKind(ctx context.Context, title string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var n int
		if err := s.queryRow(ctx, tx, "SELECT COUNT(*) FROM nodes WHERE kind_title = ?", title).Scan(&n); err != nil {
			return fmt.Errorf("counting nodes of kind %s: %w", title, err)
		}
		if n > 0 {
			return fmt.Errorf("kind %s has %d nodes: %w", title, n, ErrInUse)
		}

		rows, err := s.query(ctx, tx, "SELECT "+kindColumns+" FROM kinds")
		if err != nil {
			return fmt.Errorf("listing kinds: %w", err)
		}
		var found bool
		for rows.Next() {
			rec, err := scanKind(rows)
			if err != nil {
				rows.Close()
				return fmt.Errorf("scanning kind: %w", err)
			}
			if rec.Title == title {
				found = true
				continue
			}
			def, err := DecodeKind(rec)
			if err != nil {
				rows.Close()
				return err
			}
			if def.Parent == title {
				rows.Close()
				return fmt.Errorf("kind %s is the parent of %s: %w", title, def.Name, ErrInUse)
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		if !found {
			return ErrNotFound
		}

		if _, err := s.exec(ctx, tx, "DELETE FROM kinds WHERE title = ?", title); err != nil {
			return fmt.Errorf("deleting kind %s: %w", title, err)
		}

		s.logger.Debug("Kind deleted", zap.String("kind", title))
		return nil
	})
}

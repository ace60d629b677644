package models

import (
	"encoding/json"
	"time"
)

// KindRecord is a stored kind definition. The title is unique and the
// schema payload holds the parent and field map as JSON.
//
// Example JSON representation:
//
//	{
//	  "id": 3,
//	  "title": "Nutrition",
//	  "schema_json": {"parent": "Ingredient", "fields": {"name": "string", "kcal": "number"}},
//	  "created_at": "2026-10-19T08:00:00Z"
//	}
type KindRecord struct {
	// ID is the database-assigned identifier
	ID int64 `json:"id"`

	// Title is the kind name (unique)
	Title string `json:"title"`

	// Schema is the JSON payload describing parent and fields
	Schema json.RawMessage `json:"schema_json"`

	// CreatedAt is set on insert
	CreatedAt *time.Time `json:"created_at,omitempty"`

	// UpdatedAt is set on insert and on every update
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// NodeRecord is a stored node. Name duplicates the display name held in
// Data so it can be indexed.
type NodeRecord struct {
	ID        int64           `json:"id"`
	KindTitle string          `json:"kind_title"`
	Name      string          `json:"name"`
	Data      json.RawMessage `json:"data"`
	CreatedAt *time.Time      `json:"created_at,omitempty"`
	UpdatedAt *time.Time      `json:"updated_at,omitempty"`
}

// Instance decodes the record into a NodeInstance.
func (r NodeRecord) Instance() (NodeInstance, error) {
	data, err := DecodeData(r.Data)
	if err != nil {
		return NodeInstance{}, err
	}
	return NodeFromData(r.KindTitle, data), nil
}

// EdgeRecord is a stored labeled edge between two stored nodes.
type EdgeRecord struct {
	ID           int64      `json:"id"`
	SourceNodeID int64      `json:"source_node_id"`
	TargetNodeID int64      `json:"target_node_id"`
	Label        string     `json:"label"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
}

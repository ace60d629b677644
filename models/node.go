package models

import (
	"encoding/json"
	"fmt"
	"sort"
)

// NameField is the reserved data field holding a node's display name. The
// graph uses it as the identity key for deduplicated inserts.
const NameField = "name"

// NodeInstance is a single node of the knowledge graph: the name of its kind
// plus a flat field map.
//
// The data map is private so that it is always an object; NewNodeInstance
// and Set are its only mutation points. Kind existence is not checked here,
// only when the node is validated.
//
// Example JSON representation:
//
//	{
//	  "kind": "Nutrition",
//	  "data": {"name": "tomatoes-kcal", "kcal": 22}
//	}
type NodeInstance struct {
	Kind string
	data map[string]interface{}
}

// NewNodeInstance returns a node of the given kind whose data holds exactly
// the display name.
func NewNodeInstance(kind, name string) NodeInstance {
	return NodeInstance{
		Kind: kind,
		data: map[string]interface{}{NameField: name},
	}
}

// NodeFromData builds a node from an already decoded field map. The map is
// copied.
func NodeFromData(kind string, data map[string]interface{}) NodeInstance {
	n := NodeInstance{Kind: kind, data: make(map[string]interface{}, len(data))}
	for k, v := range data {
		n.data[k] = v
	}
	return n
}

// Set overwrites the value stored at field and returns the previous value.
// Nested objects are replaced, never merged.
func (n *NodeInstance) Set(field string, value interface{}) (interface{}, bool) {
	if n.data == nil {
		n.data = make(map[string]interface{})
	}
	prev, ok := n.data[field]
	n.data[field] = value
	return prev, ok
}

// Get returns the value of field.
func (n NodeInstance) Get(field string) (interface{}, bool) {
	v, ok := n.data[field]
	return v, ok
}

// Name returns the display name. It panics if the node has no string name
// field: every node is constructed with one, so a missing name is a bug at
// the construction site.
func (n NodeInstance) Name() string {
	v, ok := n.data[NameField]
	if !ok {
		panic(fmt.Sprintf("models: node of kind %q has no %q field", n.Kind, NameField))
	}
	name, ok := v.(string)
	if !ok {
		panic(fmt.Sprintf("models: node of kind %q has non-string %q field (%T)", n.Kind, NameField, v))
	}
	return name
}

// HasName reports whether the node carries a string display name.
func (n NodeInstance) HasName() bool {
	v, ok := n.data[NameField]
	if !ok {
		return false
	}
	_, ok = v.(string)
	return ok
}

// Fields returns the field names in sorted order.
func (n NodeInstance) Fields() []string {
	fields := make([]string, 0, len(n.data))
	for k := range n.data {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	return fields
}

// Len returns the number of fields.
func (n NodeInstance) Len() int {
	return len(n.data)
}

// Data returns a shallow copy of the field map.
func (n NodeInstance) Data() map[string]interface{} {
	data := make(map[string]interface{}, len(n.data))
	for k, v := range n.data {
		data[k] = v
	}
	return data
}

// Clone returns a copy that does not share the field map.
func (n NodeInstance) Clone() NodeInstance {
	return NodeFromData(n.Kind, n.data)
}

type nodeJSON struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// MarshalJSON implements json.Marshaler.
func (n NodeInstance) MarshalJSON() ([]byte, error) {
	data := n.data
	if data == nil {
		data = map[string]interface{}{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(nodeJSON{Kind: n.Kind, Data: raw})
}

// UnmarshalJSON implements json.Unmarshaler. Unlike the in-process
// invariants, a non-object data payload from outside is reported as an
// error.
func (n *NodeInstance) UnmarshalJSON(b []byte) error {
	var raw nodeJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	data, err := DecodeData(raw.Data)
	if err != nil {
		return err
	}

	n.Kind = raw.Kind
	n.data = data
	return nil
}

// DecodeData decodes a node data payload, requiring a JSON object.
func DecodeData(raw []byte) (map[string]interface{}, error) {
	var v interface{}
	if len(raw) == 0 {
		return nil, fmt.Errorf("node data must be a JSON object, got nothing")
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("invalid node data: %w", err)
	}
	data, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("node data must be a JSON object, got %s", describe(v))
	}
	return data, nil
}

func describe(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case []interface{}:
		return "array"
	}
	return fmt.Sprintf("%T", v)
}

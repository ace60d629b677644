package kind

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// JSONType is the primitive shape of a decoded JSON value.
type JSONType int

const (
	Null JSONType = iota
	Bool
	Number
	String
	Array
	Object
)

var typeNames = map[JSONType]string{
	Null:   "null",
	Bool:   "boolean",
	Number: "number",
	String: "string",
	Array:  "array",
	Object: "object",
}

// String returns the JSON-Schema name of the type.
func (t JSONType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("JSONType(%d)", int(t))
}

// ParseJSONType parses a type name. "bool" and "integer" are accepted as
// aliases of "boolean" and "number".
func ParseJSONType(s string) (JSONType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "null":
		return Null, nil
	case "boolean", "bool":
		return Bool, nil
	case "number", "integer":
		return Number, nil
	case "string":
		return String, nil
	case "array":
		return Array, nil
	case "object":
		return Object, nil
	}
	return Null, fmt.Errorf("unknown json type %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (t JSONType) MarshalText() ([]byte, error) {
	name, ok := typeNames[t]
	if !ok {
		return nil, fmt.Errorf("invalid json type %d", int(t))
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. It is used by both the
// JSON and YAML decoders.
func (t *JSONType) UnmarshalText(text []byte) error {
	parsed, err := ParseJSONType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// TypeOf reports the JSON type of a value as produced by encoding/json
// (nil, bool, float64, json.Number, string, []interface{}, map[string]interface{}).
// Other Go numbers, slices and string-keyed maps are classified by their
// reflected kind so values built in code behave the same as decoded ones.
func TypeOf(v interface{}) JSONType {
	switch v.(type) {
	case nil:
		return Null
	case bool:
		return Bool
	case float64, float32, json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return Number
	case string:
		return String
	case []interface{}:
		return Array
	case map[string]interface{}:
		return Object
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return Bool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return Number
	case reflect.String:
		return String
	case reflect.Slice, reflect.Array:
		return Array
	case reflect.Map, reflect.Struct:
		return Object
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return Null
		}
		return TypeOf(rv.Elem().Interface())
	}
	return Object
}

package validation

import (
	"errors"
	"fmt"

	"evalgo.org/lixiv/internal/kind"
)

// Sentinel errors for errors.Is checks.
var (
	ErrUnknownKind  = errors.New("unknown kind")
	ErrUnknownField = errors.New("unknown field")
	ErrWrongType    = errors.New("wrong type")
)

// UnknownKindError reports a node whose kind is not registered.
type UnknownKindError struct {
	Kind string
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("%s: %s", ErrUnknownKind.Error(), e.Kind)
}

func (e *UnknownKindError) Unwrap() error { return ErrUnknownKind }

// UnknownFieldError reports a field the node's kind does not declare.
type UnknownFieldError struct {
	Kind  string
	Field string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("%s: %s (kind %s)", ErrUnknownField.Error(), e.Field, e.Kind)
}

func (e *UnknownFieldError) Unwrap() error { return ErrUnknownField }

// WrongTypeError reports a field whose value has a different JSON type than
// declared. It always carries both types.
type WrongTypeError struct {
	Field    string
	Expected kind.JSONType
	Actual   kind.JSONType
}

func (e *WrongTypeError) Error() string {
	return fmt.Sprintf("%s: %s: expected %s, got %s", ErrWrongType.Error(), e.Field, e.Expected, e.Actual)
}

func (e *WrongTypeError) Unwrap() error { return ErrWrongType }

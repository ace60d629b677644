package kind

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is checks.
var (
	// ErrDuplicateKind indicates a kind name that is already registered.
	ErrDuplicateKind = errors.New("duplicate kind")

	// ErrUnknownParent indicates a parent that has not been registered yet.
	ErrUnknownParent = errors.New("unknown parent kind")

	// ErrFieldConflict indicates a child redeclaring an inherited field with
	// a different type. Only reported when inherited fields are enabled.
	ErrFieldConflict = errors.New("conflicting field type")
)

// DuplicateKindError is returned by Register when the name is taken.
type DuplicateKindError struct {
	Name string
}

func (e *DuplicateKindError) Error() string {
	return fmt.Sprintf("%s: %s", ErrDuplicateKind.Error(), e.Name)
}

func (e *DuplicateKindError) Unwrap() error { return ErrDuplicateKind }

// UnknownParentError is returned by Register when the declared parent is
// not in the registry.
type UnknownParentError struct {
	Name   string // kind being registered
	Parent string
}

func (e *UnknownParentError) Error() string {
	return fmt.Sprintf("%s: %s (declared by %s)", ErrUnknownParent.Error(), e.Parent, e.Name)
}

func (e *UnknownParentError) Unwrap() error { return ErrUnknownParent }

// FieldConflictError is returned by Register when a field type disagrees
// with the same field on an ancestor.
type FieldConflictError struct {
	Name      string
	Field     string
	Ancestor  string
	Declared  JSONType
	Inherited JSONType
}

func (e *FieldConflictError) Error() string {
	return fmt.Sprintf("%s: %s.%s is %s but %s declares %s",
		ErrFieldConflict.Error(), e.Name, e.Field, e.Declared, e.Ancestor, e.Inherited)
}

func (e *FieldConflictError) Unwrap() error { return ErrFieldConflict }

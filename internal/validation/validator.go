// Package validation checks nodes against the field contract of their kind.
//
// The contract is "no extra or mistyped fields": every field a node carries
// must be declared on its kind with a matching primitive JSON type. Fields
// the kind declares but the node omits are not reported. Only the field set
// returned by the registry is consulted, so parent fields take part only
// when the registry was built with kind.WithInheritedFields.
//
// # Usage Example
//
//	if err := validation.ValidateInstance(reg, node); err != nil {
//	    var wt *validation.WrongTypeError
//	    if errors.As(err, &wt) {
//	        fmt.Printf("%s: want %s, got %s\n", wt.Field, wt.Expected, wt.Actual)
//	    }
//	}
//
// Validator wraps the same check for raw JSON documents and returns a
// ValidationResult listing every problem, which is what the CLI and the HTTP
// API report.
package validation

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"evalgo.org/lixiv/internal/kind"
	"evalgo.org/lixiv/models"
)

// ValidateInstance validates node against reg and returns the first
// violation, or nil. Fields are checked in sorted order so the reported
// violation is deterministic.
func ValidateInstance(reg *kind.Registry, node models.NodeInstance) error {
	errs := Check(reg, node)
	if len(errs) == 0 {
		return nil
	}
	return errs[0]
}

// Check returns every violation of node against reg. An unknown kind is
// reported alone since there is no field contract to compare against.
func Check(reg *kind.Registry, node models.NodeInstance) []error {
	fields, ok := reg.Fields(node.Kind)
	if !ok {
		return []error{&UnknownKindError{Kind: node.Kind}}
	}

	var errs []error
	for _, field := range node.Fields() {
		declared, ok := fields[field]
		if !ok {
			errs = append(errs, &UnknownFieldError{Kind: node.Kind, Field: field})
			continue
		}

		value, _ := node.Get(field)
		if actual := kind.TypeOf(value); actual != declared {
			errs = append(errs, &WrongTypeError{Field: field, Expected: declared, Actual: actual})
		}
	}
	return errs
}

// Validator validates node documents against a kind registry.
type Validator struct {
	// registry holds the kinds documents are checked against
	registry *kind.Registry

	// structValidator checks request shapes before the field contract
	structValidator *validator.Validate
}

// ValidationError represents a single validation error with field-level details.
type ValidationError struct {
	// Field is the name of the field that failed validation
	Field string `json:"field"`

	// Message describes why the validation failed
	Message string `json:"message"`

	// Value is the invalid value that caused the error (optional)
	Value interface{} `json:"value,omitempty"`
}

// ValidationResult represents the complete result of a validation operation.
type ValidationResult struct {
	// Valid is true if validation passed, false otherwise
	Valid bool `json:"valid"`

	// Errors contains all validation errors found (empty if Valid is true)
	Errors []ValidationError `json:"errors,omitempty"`
}

// NodeDocument is the wire shape of a node submitted for validation or
// creation.
type NodeDocument struct {
	Kind string                 `json:"kind" validate:"required"`
	Data map[string]interface{} `json:"data" validate:"required"`
}

// New creates a Validator bound to reg.
func New(reg *kind.Registry) *Validator {
	return &Validator{
		registry:        reg,
		structValidator: validator.New(),
	}
}

// Struct validates struct tags of a request body.
func (v *Validator) Struct(s interface{}) error {
	return v.structValidator.Struct(s)
}

// Validate checks a node and returns the first violation.
func (v *Validator) Validate(node models.NodeInstance) error {
	return ValidateInstance(v.registry, node)
}

// ValidateDocument parses a node document and reports every problem found.
// The returned error is reserved for failures of the validator itself;
// malformed documents produce an invalid result.
func (v *Validator) ValidateDocument(data []byte) (*ValidationResult, error) {
	var doc NodeDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return invalid(ValidationError{
			Field:   "document",
			Message: fmt.Sprintf("Invalid JSON: %v", err),
		}), nil
	}

	return v.ValidateNodeDocument(doc), nil
}

// ValidateNodeDocument reports every problem of an already decoded document.
func (v *Validator) ValidateNodeDocument(doc NodeDocument) *ValidationResult {
	if err := v.structValidator.Struct(&doc); err != nil {
		return invalid(structErrors(err)...)
	}

	node := models.NodeFromData(doc.Kind, doc.Data)
	return Result(Check(v.registry, node), node)
}

// Result converts violations found on node into a ValidationResult.
func Result(errs []error, node models.NodeInstance) *ValidationResult {
	result := &ValidationResult{Valid: len(errs) == 0}
	for _, err := range errs {
		result.Errors = append(result.Errors, toValidationError(err, node))
	}
	return result
}

func toValidationError(err error, node models.NodeInstance) ValidationError {
	switch e := err.(type) {
	case *UnknownKindError:
		return ValidationError{Field: "kind", Message: e.Error(), Value: e.Kind}
	case *UnknownFieldError:
		value, _ := node.Get(e.Field)
		return ValidationError{Field: e.Field, Message: e.Error(), Value: value}
	case *WrongTypeError:
		value, _ := node.Get(e.Field)
		return ValidationError{Field: e.Field, Message: e.Error(), Value: value}
	}
	return ValidationError{Field: "document", Message: err.Error()}
}

func structErrors(err error) []ValidationError {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []ValidationError{{Field: "document", Message: err.Error()}}
	}

	out := make([]ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, ValidationError{
			Field:   jsonName(fe.Field()),
			Message: fmt.Sprintf("%s is %s", jsonName(fe.Field()), fe.Tag()),
		})
	}
	return out
}

// jsonName maps NodeDocument struct field names to their JSON keys.
func jsonName(field string) string {
	switch field {
	case "Kind":
		return "kind"
	case "Data":
		return "data"
	}
	return field
}

func invalid(errs ...ValidationError) *ValidationResult {
	return &ValidationResult{Valid: false, Errors: errs}
}

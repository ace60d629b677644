package models

import "fmt"

// Edge is a directed, labeled relation between two nodes identified by
// their display names.
type Edge struct {
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required"`
	Label  string `json:"label" validate:"required"`
}

// String renders the edge as "source -[label]-> target".
func (e Edge) String() string {
	return fmt.Sprintf("%s -[%s]-> %s", e.Source, e.Label, e.Target)
}

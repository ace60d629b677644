// Package kind implements the kind catalog: named field-type contracts that
// form a single-inheritance hierarchy.
//
// A Registry is an owned value. It grows only through Register and has no
// internal locking; callers that share one between goroutines must
// serialize access themselves.
//
//	reg := kind.NewRegistry()
//	err := reg.Register(kind.Definition{
//	    Name:   "Food",
//	    Fields: map[string]kind.JSONType{"name": kind.String},
//	})
package kind

// Definition declares a kind: its name, optional parent and the fields an
// instance of exactly this kind may carry.
type Definition struct {
	Name   string              `json:"name" yaml:"name" validate:"required"`
	Parent string              `json:"parent,omitempty" yaml:"parent,omitempty"`
	Fields map[string]JSONType `json:"fields" yaml:"fields"`
}

// HasParent reports whether the definition declares a parent.
func (d Definition) HasParent() bool {
	return d.Parent != ""
}

// clone returns a copy that does not share the fields map.
func (d Definition) clone() Definition {
	fields := make(map[string]JSONType, len(d.Fields))
	for name, t := range d.Fields {
		fields[name] = t
	}
	d.Fields = fields
	return d
}

// Option configures a Registry.
type Option func(*Registry)

// WithInheritedFields makes Fields return the union of a kind's own fields
// and those of its ancestors, and makes Register reject a child that
// redeclares an ancestor field with a different type.
func WithInheritedFields() Option {
	return func(r *Registry) {
		r.inherit = true
	}
}

// Registry maps kind names to definitions.
type Registry struct {
	kinds   map[string]Definition
	order   []string
	inherit bool
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		kinds: make(map[string]Definition),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// InheritsFields reports whether the registry was built with
// WithInheritedFields.
func (r *Registry) InheritsFields() bool {
	return r.inherit
}

// Register adds def to the registry. The parent, if any, must already be
// registered; parents therefore always precede their children.
func (r *Registry) Register(def Definition) error {
	if def.HasParent() {
		if _, ok := r.kinds[def.Parent]; !ok {
			return &UnknownParentError{Name: def.Name, Parent: def.Parent}
		}
	}
	if _, ok := r.kinds[def.Name]; ok {
		return &DuplicateKindError{Name: def.Name}
	}

	if r.inherit && def.HasParent() {
		if err := r.checkInherited(def); err != nil {
			return err
		}
	}

	r.kinds[def.Name] = def.clone()
	r.order = append(r.order, def.Name)
	return nil
}

func (r *Registry) checkInherited(def Definition) error {
	for _, ancestor := range r.Ancestors(def.Parent) {
		for field, inherited := range r.kinds[ancestor].Fields {
			if declared, ok := def.Fields[field]; ok && declared != inherited {
				return &FieldConflictError{
					Name:      def.Name,
					Field:     field,
					Ancestor:  ancestor,
					Declared:  declared,
					Inherited: inherited,
				}
			}
		}
	}
	return nil
}

// Get looks up a kind by name. A miss is not an error.
func (r *Registry) Get(name string) (Definition, bool) {
	def, ok := r.kinds[name]
	if !ok {
		return Definition{}, false
	}
	return def.clone(), true
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.kinds[name]
	return ok
}

// Len returns the number of registered kinds.
func (r *Registry) Len() int {
	return len(r.kinds)
}

// List returns all definitions in registration order.
func (r *Registry) List() []Definition {
	defs := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.kinds[name].clone())
	}
	return defs
}

// Ancestors returns name followed by its parent chain up to the root.
// Unknown names yield an empty slice.
func (r *Registry) Ancestors(name string) []string {
	var chain []string
	for name != "" {
		def, ok := r.kinds[name]
		if !ok {
			break
		}
		chain = append(chain, name)
		name = def.Parent
	}
	return chain
}

// Children returns the names of kinds whose parent is name, in
// registration order.
func (r *Registry) Children(name string) []string {
	var children []string
	for _, n := range r.order {
		if r.kinds[n].Parent == name {
			children = append(children, n)
		}
	}
	return children
}

// Fields returns the field contract used to validate instances of name.
// Without WithInheritedFields this is the kind's own field map; with it,
// the union over the parent chain.
func (r *Registry) Fields(name string) (map[string]JSONType, bool) {
	def, ok := r.kinds[name]
	if !ok {
		return nil, false
	}
	if !r.inherit {
		return def.clone().Fields, true
	}

	fields := make(map[string]JSONType)
	for _, ancestor := range r.Ancestors(name) {
		for field, t := range r.kinds[ancestor].Fields {
			if _, seen := fields[field]; !seen {
				fields[field] = t
			}
		}
	}
	return fields, true
}

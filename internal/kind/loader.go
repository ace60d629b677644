package kind

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// CatalogFile is the on-disk layout of a kinds file. Kinds are registered
// in file order, so parents must be listed before their children.
//
//	kinds:
//	  - name: Food
//	    fields:
//	      name: string
//	  - name: Ingredient
//	    parent: Food
//	    fields:
//	      name: string
type CatalogFile struct {
	Kinds []Definition `yaml:"kinds" json:"kinds" validate:"dive"`
}

// ParseCatalog decodes a YAML (or JSON) kinds document.
func ParseCatalog(data []byte) (*CatalogFile, error) {
	var file CatalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	if err := validator.New().Struct(&file); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}

	return &file, nil
}

// Build registers every kind of the file into a new registry.
func (f *CatalogFile) Build(opts ...Option) (*Registry, error) {
	reg := NewRegistry(opts...)
	for _, def := range f.Kinds {
		if err := reg.Register(def); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// LoadFile reads and registers a kinds file.
func LoadFile(path string, opts ...Option) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	file, err := ParseCatalog(data)
	if err != nil {
		return nil, err
	}

	return file.Build(opts...)
}

// MarshalCatalog renders the registry in kinds-file form.
func MarshalCatalog(reg *Registry) ([]byte, error) {
	return yaml.Marshal(CatalogFile{Kinds: reg.List()})
}

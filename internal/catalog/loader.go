package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/attune/internal/domain"
)

// CatalogFile represents the YAML structure for a catalog override file.
type CatalogFile struct {
	Version    string                       `yaml:"version"`
	Indicators []domain.IndicatorDefinition `yaml:"indicators"`
}

// LoadFile reads a catalog override from a YAML file. The file replaces the
// built-in set wholesale; partial overrides would make threshold provenance
// ambiguous.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}

	var file CatalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog file %s: %w", path, err)
	}

	c, err := New(file.Indicators)
	if err != nil {
		return nil, fmt.Errorf("catalog file %s: %w", path, err)
	}
	return c, nil
}

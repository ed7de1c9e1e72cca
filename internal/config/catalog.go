package config

import (
	"fmt"
	"os"

	"live-trivia-service/internal/domain"

	"gopkg.in/yaml.v3"
)

// LoadCatalogFile reads a question catalog from a YAML file and validates it.
func LoadCatalogFile(path string) (domain.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Catalog{}, err
	}
	var catalog domain.Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return domain.Catalog{}, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	if err := catalog.Validate(); err != nil {
		return domain.Catalog{}, fmt.Errorf("catalog %s: %w", path, err)
	}
	return catalog, nil
}

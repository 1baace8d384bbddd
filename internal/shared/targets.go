package shared

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"auto_reviews/internal/domain"
)

// LoadTargets reads the brand -> models map that drives queue seeding.
// The file is a flat YAML mapping, e.g.
//
//	toyota: [camry, corolla, rav4]
//	lada: [granta, vesta]
//
// Pairs come back sorted so seeding stays deterministic across runs.
func LoadTargets(path string) ([]domain.Target, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read targets: %w", err)
	}
	var byBrand map[string][]string
	if err := yaml.Unmarshal(raw, &byBrand); err != nil {
		return nil, fmt.Errorf("parse targets: %w", err)
	}

	brands := make([]string, 0, len(byBrand))
	for b := range byBrand {
		brands = append(brands, b)
	}
	sort.Strings(brands)

	var out []domain.Target
	for _, b := range brands {
		models := append([]string(nil), byBrand[b]...)
		sort.Strings(models)
		for _, m := range models {
			out = append(out, domain.Target{Brand: b, Model: m})
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("targets file %s lists no models", path)
	}
	return out, nil
}

package risk

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Catalog maps diagnosis categories to a 0-100 complexity rating used
// by the scorer. Site operators can override it from YAML.
type Catalog struct {
	Complexity map[string]int `yaml:"complexity" json:"complexity"`
}

func LoadCatalog(path string) (Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultCatalog(), err
	}
	var cat Catalog
	if err := yaml.Unmarshal(content, &cat); err != nil {
		return Catalog{}, err
	}
	if len(cat.Complexity) == 0 {
		return Catalog{}, fmt.Errorf("diagnosis catalog empty")
	}
	for key, value := range cat.Complexity {
		if value < 0 || value > 100 {
			return Catalog{}, fmt.Errorf("complexity for %q out of range: %d", key, value)
		}
	}
	return cat, nil
}

func (c Catalog) Lookup(diagnosis string) (int, bool) {
	if c.Complexity == nil {
		return 0, false
	}
	key := strings.ToLower(strings.TrimSpace(diagnosis))
	if value, ok := c.Complexity[key]; ok {
		return value, true
	}
	for k, v := range c.Complexity {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return 0, false
}

func DefaultCatalog() Catalog {
	return Catalog{Complexity: map[string]int{
		"heart failure":     85,
		"copd":              80,
		"stroke":            85,
		"ckd":               75,
		"cancer":            90,
		"diabetes":          65,
		"pneumonia":         55,
		"hip replacement":   55,
		"knee replacement":  50,
		"hypertension":      40,
		"asthma":            45,
		"depression":        60,
		"substance use":     75,
		"fracture":          35,
		"routine follow-up": 20,
	}}
}

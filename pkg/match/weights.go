package match

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Weights control how the match score blends network status, specialty
// fit, rating, proximity, and availability. They must sum to 1.
type Weights struct {
	Network      float64 `yaml:"network" json:"network"`
	Specialty    float64 `yaml:"specialty" json:"specialty"`
	Rating       float64 `yaml:"rating" json:"rating"`
	Proximity    float64 `yaml:"proximity" json:"proximity"`
	Availability float64 `yaml:"availability" json:"availability"`
}

const weightTolerance = 0.01

func DefaultWeights() Weights {
	return Weights{
		Network:      0.30,
		Specialty:    0.25,
		Rating:       0.20,
		Proximity:    0.15,
		Availability: 0.10,
	}
}

func LoadWeights(path string) (Weights, error) {
	if path == "" {
		return DefaultWeights(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultWeights(), err
	}

	weights := DefaultWeights()
	if err := yaml.Unmarshal(content, &weights); err != nil {
		return Weights{}, err
	}
	if err := weights.Validate(); err != nil {
		return Weights{}, err
	}
	return weights, nil
}

func (w Weights) Validate() error {
	sum := w.Network + w.Specialty + w.Rating + w.Proximity + w.Availability
	if math.Abs(sum-1.0) > weightTolerance {
		return fmt.Errorf("match weights must sum to 1, got %.3f", sum)
	}
	return nil
}

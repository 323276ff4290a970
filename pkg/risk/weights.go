package risk

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Weights control how much each factor contributes to the composite
// leakage-risk score. They must sum to 1.
type Weights struct {
	Age                     float64 `yaml:"age" json:"age"`
	DiagnosisComplexity     float64 `yaml:"diagnosis_complexity" json:"diagnosis_complexity"`
	TimeSinceDischarge      float64 `yaml:"time_since_discharge" json:"time_since_discharge"`
	InsuranceType           float64 `yaml:"insurance_type" json:"insurance_type"`
	GeographicFactors       float64 `yaml:"geographic_factors" json:"geographic_factors"`
	PreviousReferralHistory float64 `yaml:"previous_referral_history" json:"previous_referral_history"`

	HighThreshold   int `yaml:"high_threshold" json:"high_threshold"`
	MediumThreshold int `yaml:"medium_threshold" json:"medium_threshold"`
}

const weightTolerance = 0.01

func DefaultWeights() Weights {
	return Weights{
		Age:                     0.15,
		DiagnosisComplexity:     0.25,
		TimeSinceDischarge:      0.20,
		InsuranceType:           0.15,
		GeographicFactors:       0.10,
		PreviousReferralHistory: 0.15,
		HighThreshold:           70,
		MediumThreshold:         40,
	}
}

// LoadWeights reads factor weights from a YAML file. An empty path
// yields the defaults.
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
	sum := w.Age + w.DiagnosisComplexity + w.TimeSinceDischarge +
		w.InsuranceType + w.GeographicFactors + w.PreviousReferralHistory
	if math.Abs(sum-1.0) > weightTolerance {
		return fmt.Errorf("risk weights must sum to 1, got %.3f", sum)
	}
	if w.HighThreshold <= w.MediumThreshold {
		return fmt.Errorf("high threshold %d must exceed medium threshold %d", w.HighThreshold, w.MediumThreshold)
	}
	return nil
}

package risk

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/carebridge-health/platform/pkg/common/models"
)

// ErrValidation marks a snapshot missing a structurally required field.
// Optional attributes never trigger it; they degrade to a neutral
// factor value instead.
var ErrValidation = errors.New("invalid patient snapshot")

// neutralFactor is used when the raw inputs for a factor are absent.
const neutralFactor = 50

// Scorer turns a patient snapshot into a leakage-risk score with a
// per-factor breakdown. It holds only immutable configuration, so a
// single instance is safe for concurrent use.
type Scorer struct {
	weights Weights
	catalog Catalog
}

func NewScorer(weights Weights, catalog Catalog) (*Scorer, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	if len(catalog.Complexity) == 0 {
		catalog = DefaultCatalog()
	}
	return &Scorer{weights: weights, catalog: catalog}, nil
}

// ComputeRisk scores the snapshot as of the current time.
func (s *Scorer) ComputeRisk(snapshot models.PatientSnapshot) (models.RiskResult, error) {
	return s.ComputeRiskAt(snapshot, time.Now().UTC())
}

// ComputeRiskAt is the pure form: identical snapshot and reference time
// always produce an identical result.
func (s *Scorer) ComputeRiskAt(snapshot models.PatientSnapshot, asOf time.Time) (models.RiskResult, error) {
	if err := validateSnapshot(snapshot); err != nil {
		return models.RiskResult{}, err
	}

	var defaulted []string
	markDefault := func(name string) int {
		defaulted = append(defaulted, name)
		return neutralFactor
	}

	factors := models.RiskFactors{}

	if snapshot.BirthDate != nil {
		factors.Age = ageFactor(yearsBetween(*snapshot.BirthDate, asOf))
	} else {
		factors.Age = markDefault("age")
	}

	if complexity, ok := s.catalog.Lookup(snapshot.Diagnosis); ok {
		factors.DiagnosisComplexity = complexity
	} else {
		factors.DiagnosisComplexity = markDefault("diagnosisComplexity")
	}

	factors.TimeSinceDischarge = dischargeFactor(daysBetween(snapshot.DischargeDate, asOf))

	if factor, ok := insuranceFactor(snapshot.InsurancePlan); ok {
		factors.InsuranceType = factor
	} else {
		factors.InsuranceType = markDefault("insuranceType")
	}

	if snapshot.NearestCareKm != nil {
		factors.GeographicFactors = geographicFactor(*snapshot.NearestCareKm)
	} else {
		factors.GeographicFactors = markDefault("geographicFactors")
	}

	if snapshot.MissedReferrals != nil || snapshot.CancelledReferrals != nil {
		factors.PreviousReferralHistory = historyFactor(intOrZero(snapshot.MissedReferrals) + intOrZero(snapshot.CancelledReferrals))
	} else {
		factors.PreviousReferralHistory = markDefault("previousReferralHistory")
	}

	weighted := s.weights.Age*float64(factors.Age) +
		s.weights.DiagnosisComplexity*float64(factors.DiagnosisComplexity) +
		s.weights.TimeSinceDischarge*float64(factors.TimeSinceDischarge) +
		s.weights.InsuranceType*float64(factors.InsuranceType) +
		s.weights.GeographicFactors*float64(factors.GeographicFactors) +
		s.weights.PreviousReferralHistory*float64(factors.PreviousReferralHistory)

	score := clampScore(int(math.Round(weighted)))

	return models.RiskResult{
		PatientID: snapshot.ID,
		Score:     score,
		Level:     s.level(score),
		Factors:   factors,
		Defaulted: defaulted,
	}, nil
}

func (s *Scorer) level(score int) models.RiskLevel {
	switch {
	case score >= s.weights.HighThreshold:
		return models.RiskLevelHigh
	case score >= s.weights.MediumThreshold:
		return models.RiskLevelMedium
	default:
		return models.RiskLevelLow
	}
}

func validateSnapshot(snapshot models.PatientSnapshot) error {
	if strings.TrimSpace(snapshot.ID) == "" {
		return fmt.Errorf("%w: patient id required", ErrValidation)
	}
	if strings.TrimSpace(snapshot.Diagnosis) == "" {
		return fmt.Errorf("%w: diagnosis required", ErrValidation)
	}
	if snapshot.DischargeDate.IsZero() {
		return fmt.Errorf("%w: discharge date required", ErrValidation)
	}
	return nil
}

// ageFactor bands patient age: risk of disengagement climbs sharply for
// older patients.
func ageFactor(years int) int {
	switch {
	case years >= 75:
		return 90
	case years >= 65:
		return 70
	case years >= 40:
		return 40
	default:
		return 20
	}
}

// dischargeFactor ramps with days since discharge; follow-up care is
// expected within roughly two weeks, and risk saturates after 25 days.
func dischargeFactor(days int) int {
	if days < 0 {
		days = 0
	}
	return clampScore(days * 4)
}

func insuranceFactor(plan string) (int, bool) {
	normalized := strings.ToLower(strings.TrimSpace(plan))
	if normalized == "" {
		return 0, false
	}
	switch {
	case strings.Contains(normalized, "self-pay"), strings.Contains(normalized, "uninsured"), normalized == "none":
		return 90, true
	case strings.Contains(normalized, "medicaid"):
		return 80, true
	case strings.Contains(normalized, "medicare"):
		return 60, true
	case strings.Contains(normalized, "hmo"):
		return 50, true
	case strings.Contains(normalized, "ppo"), strings.Contains(normalized, "commercial"):
		return 30, true
	default:
		return neutralFactor, true
	}
}

// geographicFactor reflects distance to the nearest in-network care
// site, a proxy for the care-desert indicator.
func geographicFactor(nearestKm float64) int {
	switch {
	case nearestKm > 100:
		return 95
	case nearestKm > 50:
		return 80
	case nearestKm > 25:
		return 60
	case nearestKm > 10:
		return 40
	default:
		return 20
	}
}

func historyFactor(priorFailures int) int {
	switch {
	case priorFailures >= 4:
		return 95
	case priorFailures == 3:
		return 80
	case priorFailures == 2:
		return 60
	case priorFailures == 1:
		return 40
	default:
		return 10
	}
}

func yearsBetween(birth, asOf time.Time) int {
	years := asOf.Year() - birth.Year()
	if asOf.YearDay() < birth.YearDay() {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

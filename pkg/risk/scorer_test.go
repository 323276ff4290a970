package risk

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/carebridge-health/platform/pkg/common/models"
)

func testScorer(t *testing.T) *Scorer {
	t.Helper()
	scorer, err := NewScorer(DefaultWeights(), DefaultCatalog())
	if err != nil {
		t.Fatalf("failed to create scorer: %v", err)
	}
	return scorer
}

func fixedNow() time.Time {
	return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
}

func TestComputeRiskHighRiskElderlyMedicaid(t *testing.T) {
	scorer := testScorer(t)
	asOf := fixedNow()
	birth := asOf.AddDate(-72, 0, 0)

	snapshot := models.PatientSnapshot{
		ID:            "pat-001",
		BirthDate:     &birth,
		Diagnosis:     "COPD",
		DischargeDate: asOf.AddDate(0, 0, -20),
		InsurancePlan: "Medicaid",
	}

	result, err := scorer.ComputeRiskAt(snapshot, asOf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Score < 70 {
		t.Fatalf("expected score >= 70, got %d", result.Score)
	}
	if result.Level != models.RiskLevelHigh {
		t.Fatalf("expected high risk level, got %s", result.Level)
	}
	if result.Factors.DiagnosisComplexity != 80 {
		t.Errorf("expected COPD complexity 80, got %d", result.Factors.DiagnosisComplexity)
	}
	if result.Factors.Age != 70 {
		t.Errorf("expected age factor 70 for a 72-year-old, got %d", result.Factors.Age)
	}
}

func TestComputeRiskScoreBounds(t *testing.T) {
	scorer := testScorer(t)
	asOf := fixedNow()

	snapshots := []models.PatientSnapshot{
		{ID: "p1", Diagnosis: "routine follow-up", DischargeDate: asOf.AddDate(0, 0, -1)},
		{ID: "p2", Diagnosis: "cancer", DischargeDate: asOf.AddDate(0, 0, -120), InsurancePlan: "self-pay"},
		{ID: "p3", Diagnosis: "unknown condition", DischargeDate: asOf},
	}

	for _, snapshot := range snapshots {
		result, err := scorer.ComputeRiskAt(snapshot, asOf)
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", snapshot.ID, err)
		}
		if result.Score < 0 || result.Score > 100 {
			t.Fatalf("score out of range for %s: %d", snapshot.ID, result.Score)
		}
		switch {
		case result.Score >= 70 && result.Level != models.RiskLevelHigh:
			t.Errorf("score %d should be high, got %s", result.Score, result.Level)
		case result.Score >= 40 && result.Score < 70 && result.Level != models.RiskLevelMedium:
			t.Errorf("score %d should be medium, got %s", result.Score, result.Level)
		case result.Score < 40 && result.Level != models.RiskLevelLow:
			t.Errorf("score %d should be low, got %s", result.Score, result.Level)
		}
	}
}

func TestComputeRiskDeterministic(t *testing.T) {
	scorer := testScorer(t)
	asOf := fixedNow()
	birth := asOf.AddDate(-55, -2, -10)
	missed := 2
	km := 42.0

	snapshot := models.PatientSnapshot{
		ID:              "pat-deterministic",
		BirthDate:       &birth,
		Diagnosis:       "diabetes",
		DischargeDate:   asOf.AddDate(0, 0, -9),
		InsurancePlan:   "Blue Shield PPO",
		NearestCareKm:   &km,
		MissedReferrals: &missed,
	}

	first, err := scorer.ComputeRiskAt(snapshot, asOf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := scorer.ComputeRiskAt(snapshot, asOf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical results, got %+v and %+v", first, second)
	}
}

func TestComputeRiskDefaultsMissingOptionalFields(t *testing.T) {
	scorer := testScorer(t)
	asOf := fixedNow()

	snapshot := models.PatientSnapshot{
		ID:            "pat-sparse",
		Diagnosis:     "pneumonia",
		DischargeDate: asOf.AddDate(0, 0, -5),
	}

	result, err := scorer.ComputeRiskAt(snapshot, asOf)
	if err != nil {
		t.Fatalf("expected graceful degradation, got error: %v", err)
	}

	expected := map[string]bool{
		"age":                     true,
		"insuranceType":           true,
		"geographicFactors":       true,
		"previousReferralHistory": true,
	}
	if len(result.Defaulted) != len(expected) {
		t.Fatalf("expected %d defaulted factors, got %v", len(expected), result.Defaulted)
	}
	for _, name := range result.Defaulted {
		if !expected[name] {
			t.Errorf("unexpected defaulted factor %q", name)
		}
	}
	if result.Factors.Age != neutralFactor {
		t.Errorf("expected neutral age factor, got %d", result.Factors.Age)
	}
}

func TestComputeRiskValidation(t *testing.T) {
	scorer := testScorer(t)
	asOf := fixedNow()

	cases := []models.PatientSnapshot{
		{Diagnosis: "copd", DischargeDate: asOf},
		{ID: "pat-1", DischargeDate: asOf},
		{ID: "pat-1", Diagnosis: "copd"},
	}
	for i, snapshot := range cases {
		if _, err := scorer.ComputeRiskAt(snapshot, asOf); !errors.Is(err, ErrValidation) {
			t.Errorf("case %d: expected validation error, got %v", i, err)
		}
	}
}

func TestDischargeFactorMonotonic(t *testing.T) {
	previous := -1
	for days := 0; days <= 60; days++ {
		factor := dischargeFactor(days)
		if factor < previous {
			t.Fatalf("discharge factor decreased at day %d: %d < %d", days, factor, previous)
		}
		if factor < 0 || factor > 100 {
			t.Fatalf("discharge factor out of range at day %d: %d", days, factor)
		}
		previous = factor
	}
}

func TestDefaultWeightsValidate(t *testing.T) {
	if err := DefaultWeights().Validate(); err != nil {
		t.Fatalf("default weights invalid: %v", err)
	}

	bad := DefaultWeights()
	bad.Age = 0.5
	if err := bad.Validate(); err == nil {
		t.Fatal("expected validation failure for weights not summing to 1")
	}
}

func TestCatalogLookupCaseInsensitive(t *testing.T) {
	catalog := DefaultCatalog()
	lower, ok := catalog.Lookup("heart failure")
	if !ok {
		t.Fatal("expected catalog hit")
	}
	upper, ok := catalog.Lookup("Heart Failure")
	if !ok || upper != lower {
		t.Fatalf("expected case-insensitive lookup, got %d/%v", upper, ok)
	}
	if _, ok := catalog.Lookup("not a diagnosis"); ok {
		t.Fatal("expected catalog miss")
	}
}

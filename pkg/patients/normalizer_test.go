package patients

import (
	"errors"
	"testing"
)

func TestNormalizeFullPayload(t *testing.T) {
	normalizer := NewNormalizer()

	snapshot, err := normalizer.Normalize(map[string]interface{}{
		"id":                  "pat-42",
		"name":                "Jane Roe",
		"birth_date":          "1950-03-12",
		"diagnosis":           "heart failure",
		"discharge_date":      "2025-06-01T10:00:00Z",
		"insurance":           "Medicaid",
		"required_follow_up":  "cardiology",
		"latitude":            37.77,
		"longitude":           -122.41,
		"nearest_care_km":     12.5,
		"missed_referrals":    float64(2),
		"cancelled_referrals": 1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if snapshot.ID != "pat-42" || snapshot.Diagnosis != "heart failure" {
		t.Fatalf("required fields not carried over: %+v", snapshot)
	}
	if snapshot.BirthDate == nil || snapshot.BirthDate.Year() != 1950 {
		t.Errorf("expected parsed birth date, got %v", snapshot.BirthDate)
	}
	if snapshot.InsurancePlan != "Medicaid" {
		t.Errorf("expected insurance alias resolved, got %q", snapshot.InsurancePlan)
	}
	if snapshot.RequiredService != "cardiology" {
		t.Errorf("expected follow-up alias resolved, got %q", snapshot.RequiredService)
	}
	if snapshot.Location == nil || snapshot.Location.Latitude != 37.77 {
		t.Errorf("expected location parsed, got %v", snapshot.Location)
	}
	if snapshot.MissedReferrals == nil || *snapshot.MissedReferrals != 2 {
		t.Errorf("expected missed referrals parsed, got %v", snapshot.MissedReferrals)
	}
	if snapshot.CancelledReferrals == nil || *snapshot.CancelledReferrals != 1 {
		t.Errorf("expected cancelled referrals parsed, got %v", snapshot.CancelledReferrals)
	}
}

func TestNormalizeNestedLocation(t *testing.T) {
	normalizer := NewNormalizer()

	snapshot, err := normalizer.Normalize(map[string]interface{}{
		"patient_id":     "pat-7",
		"diagnosis":      "copd",
		"discharge_date": "2025-06-05",
		"location": map[string]interface{}{
			"latitude":  40.7,
			"longitude": -74.0,
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snapshot.Location == nil || snapshot.Location.Longitude != -74.0 {
		t.Fatalf("expected nested location parsed, got %v", snapshot.Location)
	}
	if snapshot.BirthDate != nil {
		t.Error("expected missing birth date to stay nil")
	}
}

func TestNormalizeRejectsMissingRequiredFields(t *testing.T) {
	normalizer := NewNormalizer()

	cases := []map[string]interface{}{
		nil,
		{"diagnosis": "copd", "discharge_date": "2025-06-05"},
		{"id": "pat-1", "discharge_date": "2025-06-05"},
		{"id": "pat-1", "diagnosis": "copd"},
		{"id": "pat-1", "diagnosis": "copd", "discharge_date": "not a date"},
	}
	for i, raw := range cases {
		if _, err := normalizer.Normalize(raw); !errors.Is(err, ErrInvalidPatient) {
			t.Errorf("case %d: expected invalid patient error, got %v", i, err)
		}
	}
}

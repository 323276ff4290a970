package providers

import (
	"testing"

	"github.com/carebridge-health/platform/pkg/common/models"
)

func directory() []models.Provider {
	return []models.Provider{
		{
			ID:                "prov-a",
			Name:              "Bay Cardiology",
			Type:              "clinic",
			Specialties:       []string{"cardiology"},
			AcceptedInsurance: []string{"Medicaid", "Aetna PPO"},
		},
		{
			ID:             "prov-b",
			Name:           "Lakeside Orthopedics",
			Type:           "clinic",
			Specialties:    []string{"orthopedics"},
			InNetworkPlans: []string{"Medicaid"},
		},
		{
			ID:          "prov-c",
			Name:        "Downtown Imaging",
			Type:        "imaging center",
			Specialties: []string{"radiology"},
		},
	}
}

func TestFilterBySpecialty(t *testing.T) {
	filtered := Filter(directory(), "Cardiology", "")
	if len(filtered) != 1 || filtered[0].ID != "prov-a" {
		t.Fatalf("expected only the cardiology provider, got %+v", filtered)
	}
}

func TestFilterByInsuranceCoversBothPlanSets(t *testing.T) {
	filtered := Filter(directory(), "", "medicaid")
	if len(filtered) != 2 {
		t.Fatalf("expected accepted and in-network matches, got %+v", filtered)
	}
	if filtered[0].ID != "prov-a" || filtered[1].ID != "prov-b" {
		t.Fatalf("unexpected match set: %+v", filtered)
	}
}

func TestFilterEmptyValuesMatchEverything(t *testing.T) {
	providers := directory()
	filtered := Filter(providers, "", "")
	if len(filtered) != len(providers) {
		t.Fatalf("expected all providers, got %d", len(filtered))
	}
}

func TestFilterCombined(t *testing.T) {
	if filtered := Filter(directory(), "orthopedics", "medicaid"); len(filtered) != 1 || filtered[0].ID != "prov-b" {
		t.Fatalf("expected combined filters to intersect, got %+v", filtered)
	}
}

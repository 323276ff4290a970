package match

import (
	"strings"
	"testing"
	"time"

	"github.com/carebridge-health/platform/pkg/common/models"
)

func testMatcher(t *testing.T, includeUnlocated bool) *Matcher {
	t.Helper()
	matcher, err := NewMatcher(DefaultWeights(), includeUnlocated)
	if err != nil {
		t.Fatalf("failed to create matcher: %v", err)
	}
	return matcher
}

func testPatient() models.PatientSnapshot {
	return models.PatientSnapshot{
		ID:              "pat-1",
		Diagnosis:       "heart failure",
		DischargeDate:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		InsurancePlan:   "Medicaid",
		RequiredService: "cardiology",
		Location:        &models.GeoPoint{Latitude: 37.7749, Longitude: -122.4194},
	}
}

func locatedProvider(id string, rating float64, lat, lng float64) models.Provider {
	return models.Provider{
		ID:                id,
		Name:              "Clinic " + id,
		Type:              "clinic",
		Specialties:       []string{"cardiology"},
		AcceptedInsurance: []string{"Medicaid"},
		Rating:            rating,
		Location:          &models.GeoPoint{Latitude: lat, Longitude: lng},
	}
}

func TestRankProvidersEmptyInput(t *testing.T) {
	matcher := testMatcher(t, true)
	ranked := matcher.RankProviders(nil, testPatient(), models.RankOptions{})
	if len(ranked) != 0 {
		t.Fatalf("expected empty result, got %d entries", len(ranked))
	}
}

func TestRankProvidersPrefersInNetworkSpecialtyMatch(t *testing.T) {
	matcher := testMatcher(t, true)
	patient := testPatient()

	inNetwork := locatedProvider("prov-a", 4.0, 37.78, -122.42)
	outOfNetwork := locatedProvider("prov-b", 4.0, 37.78, -122.42)
	outOfNetwork.AcceptedInsurance = []string{"Aetna PPO"}
	noSpecialty := locatedProvider("prov-c", 4.0, 37.78, -122.42)
	noSpecialty.Specialties = []string{"orthopedics"}

	ranked := matcher.RankProviders([]models.Provider{outOfNetwork, noSpecialty, inNetwork}, patient, models.RankOptions{})
	if len(ranked) != 3 {
		t.Fatalf("expected 3 results, got %d", len(ranked))
	}
	if ranked[0].Provider.ID != "prov-a" {
		t.Fatalf("expected in-network specialty match first, got %s", ranked[0].Provider.ID)
	}
	if !ranked[0].InNetwork || !ranked[0].SpecialtyMatch {
		t.Fatalf("expected network and specialty flags set: %+v", ranked[0])
	}
	if ranked[0].MatchScore <= ranked[1].MatchScore {
		t.Fatalf("expected strictly higher score for the full match, got %d vs %d",
			ranked[0].MatchScore, ranked[1].MatchScore)
	}
}

func TestRankProvidersDistanceNeverIncreasesScore(t *testing.T) {
	matcher := testMatcher(t, true)
	patient := testPatient()

	near := locatedProvider("prov-near", 4.0, 37.78, -122.42)
	mid := locatedProvider("prov-mid", 4.0, 37.90, -122.42)
	far := locatedProvider("prov-far", 4.0, 38.40, -122.42)

	ranked := matcher.RankProviders([]models.Provider{far, near, mid}, patient, models.RankOptions{})
	if len(ranked) != 3 {
		t.Fatalf("expected 3 results, got %d", len(ranked))
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i].MatchScore > ranked[i-1].MatchScore {
			t.Fatalf("score increased with distance: %d then %d", ranked[i-1].MatchScore, ranked[i].MatchScore)
		}
		if *ranked[i].DistanceKm < *ranked[i-1].DistanceKm {
			t.Fatalf("expected distance-ascending order for equal providers")
		}
	}
}

func TestRankProvidersTieBreakOrder(t *testing.T) {
	matcher := testMatcher(t, true)
	patient := testPatient()

	// Identical except rating.
	higherRated := locatedProvider("prov-z", 4.8, 37.78, -122.42)
	lowerRated := locatedProvider("prov-a", 4.7, 37.78, -122.42)
	// Rating tie falls through to provider ID.
	twinOne := locatedProvider("prov-m", 4.7, 37.78, -122.42)
	twinTwo := locatedProvider("prov-n", 4.7, 37.78, -122.42)

	ranked := matcher.RankProviders([]models.Provider{twinTwo, lowerRated, higherRated, twinOne}, patient, models.RankOptions{})
	for i := 1; i < len(ranked); i++ {
		a, b := ranked[i-1], ranked[i]
		if a.MatchScore < b.MatchScore {
			t.Fatalf("unsorted scores at %d", i)
		}
		if a.MatchScore == b.MatchScore && a.Provider.Rating == b.Provider.Rating &&
			*a.DistanceKm == *b.DistanceKm && a.Provider.ID > b.Provider.ID {
			t.Fatalf("expected ID tie-break, got %s before %s", a.Provider.ID, b.Provider.ID)
		}
	}
	if ranked[0].Provider.ID != "prov-z" {
		t.Fatalf("expected highest-rated provider first, got %s", ranked[0].Provider.ID)
	}
}

func TestRankProvidersMaxDistanceExcludesUnlocated(t *testing.T) {
	matcher := testMatcher(t, true)
	patient := testPatient()

	located := locatedProvider("prov-a", 4.0, 37.78, -122.42)
	unlocated := locatedProvider("prov-b", 5.0, 0, 0)
	unlocated.Location = nil

	maxKm := 50.0
	ranked := matcher.RankProviders([]models.Provider{located, unlocated}, patient, models.RankOptions{MaxDistanceKm: &maxKm})
	if len(ranked) != 1 || ranked[0].Provider.ID != "prov-a" {
		t.Fatalf("expected only located provider under distance bound, got %+v", ranked)
	}

	// Without a bound the policy flag governs eligibility.
	ranked = matcher.RankProviders([]models.Provider{located, unlocated}, patient, models.RankOptions{})
	if len(ranked) != 2 {
		t.Fatalf("expected unlocated provider included without bound, got %d", len(ranked))
	}

	strict := testMatcher(t, false)
	ranked = strict.RankProviders([]models.Provider{located, unlocated}, patient, models.RankOptions{})
	if len(ranked) != 1 || ranked[0].Provider.ID != "prov-a" {
		t.Fatalf("expected unlocated provider excluded by policy, got %+v", ranked)
	}
}

func TestRankProvidersMinRatingAndLimit(t *testing.T) {
	matcher := testMatcher(t, true)
	patient := testPatient()

	providers := []models.Provider{
		locatedProvider("prov-a", 4.9, 37.78, -122.42),
		locatedProvider("prov-b", 4.5, 37.78, -122.42),
		locatedProvider("prov-c", 2.1, 37.78, -122.42),
	}

	minRating := 4.0
	ranked := matcher.RankProviders(providers, patient, models.RankOptions{MinRating: &minRating, Limit: 1})
	if len(ranked) != 1 {
		t.Fatalf("expected limit applied, got %d", len(ranked))
	}
	if ranked[0].Provider.ID != "prov-a" {
		t.Fatalf("expected best provider, got %s", ranked[0].Provider.ID)
	}
}

func TestExplanationReferencesConcreteValues(t *testing.T) {
	matcher := testMatcher(t, true)
	patient := testPatient()

	days := 2
	provider := locatedProvider("prov-a", 4.5, 37.78, -122.42)
	provider.NextAvailableDays = &days

	ranked := matcher.RankProviders([]models.Provider{provider}, patient, models.RankOptions{})
	if len(ranked) != 1 {
		t.Fatalf("expected one result, got %d", len(ranked))
	}
	explanation := ranked[0].Explanation
	for _, fragment := range []string{"Medicaid", "cardiology", "4.5/5", "km away", "in 2 days"} {
		if !strings.Contains(explanation, fragment) {
			t.Errorf("explanation missing %q: %s", fragment, explanation)
		}
	}
}

func TestDistanceKmKnownPair(t *testing.T) {
	sf := &models.GeoPoint{Latitude: 37.7749, Longitude: -122.4194}
	oakland := &models.GeoPoint{Latitude: 37.8044, Longitude: -122.2712}

	distance := distanceKm(sf, oakland)
	if distance == nil {
		t.Fatal("expected a distance")
	}
	if *distance < 12 || *distance > 14 {
		t.Fatalf("SF-Oakland distance out of expected band: %.2f km", *distance)
	}
	if distanceKm(nil, oakland) != nil {
		t.Fatal("expected nil distance when a side is missing")
	}
}

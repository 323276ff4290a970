package match

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/carebridge-health/platform/pkg/common/models"
)

const earthRadiusKm = 6371.0

// Matcher ranks candidate providers for a patient. It carries only
// immutable configuration and never mutates its inputs, so concurrent
// rankings against the same candidate slice are safe.
type Matcher struct {
	weights          Weights
	includeUnlocated bool
}

// NewMatcher builds a matcher. includeUnlocated decides whether
// providers without coordinates stay eligible when no distance bound is
// requested; distance-bounded queries always exclude them.
func NewMatcher(weights Weights, includeUnlocated bool) (*Matcher, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	return &Matcher{weights: weights, includeUnlocated: includeUnlocated}, nil
}

// RankProviders scores and orders the candidates for the patient. An
// empty candidate list yields an empty result; malformed optional data
// degrades individual components rather than failing the call.
func (m *Matcher) RankProviders(providers []models.Provider, patient models.PatientSnapshot, opts models.RankOptions) []models.RankedProvider {
	ranked := make([]models.RankedProvider, 0, len(providers))

	for _, provider := range providers {
		if opts.MinRating != nil && provider.Rating < *opts.MinRating {
			continue
		}

		distance := distanceKm(patient.Location, provider.Location)
		if opts.MaxDistanceKm != nil {
			if distance == nil || *distance > *opts.MaxDistanceKm {
				continue
			}
		} else if distance == nil && !m.includeUnlocated {
			continue
		}

		inNetwork := isInNetwork(patient.InsurancePlan, provider)
		specialtyMatch := matchesSpecialty(patient.RequiredService, provider)

		score := m.score(provider, inNetwork, specialtyMatch, distance)
		ranked = append(ranked, models.RankedProvider{
			Provider:       provider,
			MatchScore:     score,
			DistanceKm:     distance,
			InNetwork:      inNetwork,
			SpecialtyMatch: specialtyMatch,
			Explanation:    explain(provider, patient, inNetwork, specialtyMatch, distance),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].MatchScore != ranked[j].MatchScore {
			return ranked[i].MatchScore > ranked[j].MatchScore
		}
		if ranked[i].Provider.Rating != ranked[j].Provider.Rating {
			return ranked[i].Provider.Rating > ranked[j].Provider.Rating
		}
		if cmp := compareDistance(ranked[i].DistanceKm, ranked[j].DistanceKm); cmp != 0 {
			return cmp < 0
		}
		return ranked[i].Provider.ID < ranked[j].Provider.ID
	})

	if opts.Limit > 0 && len(ranked) > opts.Limit {
		ranked = ranked[:opts.Limit]
	}
	return ranked
}

func (m *Matcher) score(provider models.Provider, inNetwork, specialtyMatch bool, distance *float64) int {
	network := 0.0
	if inNetwork {
		network = 100
	}
	specialty := 0.0
	if specialtyMatch {
		specialty = 100
	}

	rating := provider.Rating / 5.0 * 100
	if rating < 0 {
		rating = 0
	}
	if rating > 100 {
		rating = 100
	}

	weighted := m.weights.Network*network +
		m.weights.Specialty*specialty +
		m.weights.Rating*rating +
		m.weights.Proximity*proximityComponent(distance) +
		m.weights.Availability*availabilityComponent(provider.NextAvailableDays)

	score := int(math.Round(weighted))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

// proximityComponent is strictly non-increasing in distance so that a
// farther provider can never out-score a nearer, otherwise-equal one.
func proximityComponent(distance *float64) float64 {
	if distance == nil {
		return 40
	}
	component := 100 - *distance*2
	if component < 0 {
		return 0
	}
	return component
}

func availabilityComponent(nextAvailableDays *int) float64 {
	if nextAvailableDays == nil {
		return 40
	}
	days := *nextAvailableDays
	switch {
	case days <= 1:
		return 100
	case days <= 3:
		return 85
	case days <= 7:
		return 70
	case days <= 14:
		return 50
	case days <= 30:
		return 30
	default:
		return 10
	}
}

func isInNetwork(plan string, provider models.Provider) bool {
	normalized := strings.TrimSpace(plan)
	if normalized == "" {
		return false
	}
	for _, accepted := range provider.AcceptedInsurance {
		if strings.EqualFold(strings.TrimSpace(accepted), normalized) {
			return true
		}
	}
	for _, networkPlan := range provider.InNetworkPlans {
		if strings.EqualFold(strings.TrimSpace(networkPlan), normalized) {
			return true
		}
	}
	return false
}

func matchesSpecialty(requiredService string, provider models.Provider) bool {
	service := strings.TrimSpace(requiredService)
	if service == "" {
		return false
	}
	if strings.EqualFold(provider.Type, service) {
		return true
	}
	for _, specialty := range provider.Specialties {
		if strings.EqualFold(strings.TrimSpace(specialty), service) {
			return true
		}
	}
	return false
}

func explain(provider models.Provider, patient models.PatientSnapshot, inNetwork, specialtyMatch bool, distance *float64) string {
	var parts []string

	plan := strings.TrimSpace(patient.InsurancePlan)
	switch {
	case plan == "":
		parts = append(parts, "patient insurance plan unknown")
	case inNetwork:
		parts = append(parts, fmt.Sprintf("in-network with %s", plan))
	default:
		parts = append(parts, fmt.Sprintf("out-of-network for %s", plan))
	}

	service := strings.TrimSpace(patient.RequiredService)
	switch {
	case service == "":
		parts = append(parts, "no required service specified")
	case specialtyMatch:
		parts = append(parts, fmt.Sprintf("offers %s", service))
	default:
		parts = append(parts, fmt.Sprintf("does not list %s", service))
	}

	parts = append(parts, fmt.Sprintf("rated %.1f/5", provider.Rating))

	if distance != nil {
		parts = append(parts, fmt.Sprintf("%.1f km away", *distance))
	} else {
		parts = append(parts, "distance unknown")
	}

	if provider.NextAvailableDays != nil {
		if *provider.NextAvailableDays <= 1 {
			parts = append(parts, "next opening within a day")
		} else {
			parts = append(parts, fmt.Sprintf("next opening in %d days", *provider.NextAvailableDays))
		}
	}

	return strings.Join(parts, "; ")
}

func compareDistance(a, b *float64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case *a < *b:
		return -1
	case *a > *b:
		return 1
	default:
		return 0
	}
}

// distanceKm returns the great-circle distance between the two points,
// or nil when either side is missing coordinates.
func distanceKm(from, to *models.GeoPoint) *float64 {
	if from == nil || to == nil {
		return nil
	}

	lat1 := from.Latitude * math.Pi / 180
	lat2 := to.Latitude * math.Pi / 180
	deltaLat := (to.Latitude - from.Latitude) * math.Pi / 180
	deltaLng := (to.Longitude - from.Longitude) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(deltaLng/2)*math.Sin(deltaLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	distance := earthRadiusKm * c
	return &distance
}

package providers

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParseRankOptionsUsesConfiguredDefaultLimit(t *testing.T) {
	request := httptest.NewRequest(http.MethodGet, "/patients/pat-1/providers", nil)
	opts := parseRankOptions(request, 25)
	if opts.Limit != 25 {
		t.Fatalf("expected configured default limit, got %d", opts.Limit)
	}
	if opts.MaxDistanceKm != nil || opts.MinRating != nil {
		t.Fatalf("expected no filters by default, got %+v", opts)
	}
}

func TestParseRankOptionsQueryOverrides(t *testing.T) {
	request := httptest.NewRequest(http.MethodGet,
		"/patients/pat-1/providers?limit=3&max_distance_km=40&min_rating=4.5", nil)
	opts := parseRankOptions(request, 25)
	if opts.Limit != 3 {
		t.Fatalf("expected query limit to win, got %d", opts.Limit)
	}
	if opts.MaxDistanceKm == nil || *opts.MaxDistanceKm != 40 {
		t.Fatalf("expected max distance parsed, got %v", opts.MaxDistanceKm)
	}
	if opts.MinRating == nil || *opts.MinRating != 4.5 {
		t.Fatalf("expected min rating parsed, got %v", opts.MinRating)
	}
}

func TestParseRankOptionsIgnoresBadValues(t *testing.T) {
	request := httptest.NewRequest(http.MethodGet,
		"/patients/pat-1/providers?limit=-2&max_distance_km=abc", nil)
	opts := parseRankOptions(request, 25)
	if opts.Limit != 25 {
		t.Fatalf("expected fallback limit for bad value, got %d", opts.Limit)
	}
	if opts.MaxDistanceKm != nil {
		t.Fatalf("expected unparseable distance ignored, got %v", opts.MaxDistanceKm)
	}
}

package patients

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/carebridge-health/platform/pkg/common/models"
)

var ErrInvalidPatient = errors.New("invalid patient payload")

// Normalizer is the single defaulting boundary for patient intake.
// Raw, loosely-typed payloads from upstream systems are converted into
// a validated snapshot exactly once; scoring and matching never
// re-check for missing fields.
type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

func (n *Normalizer) Normalize(raw map[string]interface{}) (models.PatientSnapshot, error) {
	if raw == nil {
		return models.PatientSnapshot{}, fmt.Errorf("%w: nil payload", ErrInvalidPatient)
	}

	id := getString(raw["id"])
	if id == "" {
		id = getString(raw["patient_id"])
	}
	if id == "" {
		return models.PatientSnapshot{}, fmt.Errorf("%w: patient id missing", ErrInvalidPatient)
	}

	diagnosis := getString(raw["diagnosis"])
	if diagnosis == "" {
		return models.PatientSnapshot{}, fmt.Errorf("%w: diagnosis missing", ErrInvalidPatient)
	}

	dischargeDate, ok := getDate(raw["discharge_date"])
	if !ok {
		return models.PatientSnapshot{}, fmt.Errorf("%w: discharge date missing or unparseable", ErrInvalidPatient)
	}

	snapshot := models.PatientSnapshot{
		ID:            id,
		Name:          getString(raw["name"]),
		Diagnosis:     diagnosis,
		DischargeDate: dischargeDate,
		InsurancePlan: firstString(raw, "insurance_plan", "insurance"),
	}

	if birth, ok := getDate(raw["birth_date"]); ok {
		snapshot.BirthDate = &birth
	}

	snapshot.RequiredService = firstString(raw, "required_service", "required_follow_up")
	snapshot.Location = getLocation(raw)

	if km, ok := getFloat(raw["nearest_care_km"]); ok && km >= 0 {
		snapshot.NearestCareKm = &km
	}
	if missed, ok := getInt(raw["missed_referrals"]); ok && missed >= 0 {
		snapshot.MissedReferrals = &missed
	}
	if cancelled, ok := getInt(raw["cancelled_referrals"]); ok && cancelled >= 0 {
		snapshot.CancelledReferrals = &cancelled
	}

	return snapshot, nil
}

func getLocation(raw map[string]interface{}) *models.GeoPoint {
	if nested, ok := raw["location"].(map[string]interface{}); ok {
		lat, latOK := getFloat(nested["latitude"])
		lng, lngOK := getFloat(nested["longitude"])
		if latOK && lngOK {
			return &models.GeoPoint{Latitude: lat, Longitude: lng}
		}
	}
	lat, latOK := getFloat(raw["latitude"])
	lng, lngOK := getFloat(raw["longitude"])
	if latOK && lngOK {
		return &models.GeoPoint{Latitude: lat, Longitude: lng}
	}
	return nil
}

func firstString(raw map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if value := getString(raw[key]); value != "" {
			return value
		}
	}
	return ""
}

func getString(v interface{}) string {
	switch value := v.(type) {
	case string:
		return strings.TrimSpace(value)
	default:
		return ""
	}
}

func getDate(v interface{}) (time.Time, bool) {
	raw := getString(v)
	if raw == "" {
		if t, ok := v.(time.Time); ok && !t.IsZero() {
			return t.UTC(), true
		}
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed.UTC(), true
		}
	}
	return time.Time{}, false
}

func getFloat(v interface{}) (float64, bool) {
	switch value := v.(type) {
	case float64:
		return value, true
	case float32:
		return float64(value), true
	case int:
		return float64(value), true
	case int64:
		return float64(value), true
	default:
		return 0, false
	}
}

func getInt(v interface{}) (int, bool) {
	switch value := v.(type) {
	case int:
		return value, true
	case int64:
		return int(value), true
	case float64:
		return int(value), true
	default:
		return 0, false
	}
}

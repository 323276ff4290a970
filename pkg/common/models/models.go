package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Geolocation
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// PatientSnapshot is the immutable read model the scoring and matching
// engines consume. The patient record itself is owned by the upstream
// store; the snapshot is never written back.
type PatientSnapshot struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name,omitempty"`
	BirthDate          *time.Time `json:"birth_date,omitempty"`
	Diagnosis          string     `json:"diagnosis"`
	DischargeDate      time.Time  `json:"discharge_date"`
	InsurancePlan      string     `json:"insurance_plan,omitempty"`
	Location           *GeoPoint  `json:"location,omitempty"`
	RequiredService    string     `json:"required_service,omitempty"`
	NearestCareKm      *float64   `json:"nearest_care_km,omitempty"`
	MissedReferrals    *int       `json:"missed_referrals,omitempty"`
	CancelledReferrals *int       `json:"cancelled_referrals,omitempty"`
}

// Risk scoring
type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "low"
	RiskLevelMedium RiskLevel = "medium"
	RiskLevelHigh   RiskLevel = "high"
)

type RiskFactors struct {
	Age                     int `json:"age"`
	DiagnosisComplexity     int `json:"diagnosis_complexity"`
	TimeSinceDischarge      int `json:"time_since_discharge"`
	InsuranceType           int `json:"insurance_type"`
	GeographicFactors       int `json:"geographic_factors"`
	PreviousReferralHistory int `json:"previous_referral_history"`
}

type RiskResult struct {
	PatientID string      `json:"patient_id"`
	Score     int         `json:"score"`
	Level     RiskLevel   `json:"level"`
	Factors   RiskFactors `json:"factors"`
	Defaulted []string    `json:"defaulted,omitempty"`
}

// Provider directory
type Provider struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Type              string    `json:"type"`
	Specialties       []string  `json:"specialties,omitempty"`
	AcceptedInsurance []string  `json:"accepted_insurance,omitempty"`
	InNetworkPlans    []string  `json:"in_network_plans,omitempty"`
	Rating            float64   `json:"rating"`
	Location          *GeoPoint `json:"location,omitempty"`
	NextAvailableDays *int      `json:"next_available_days,omitempty"`
	UpdatedAt         time.Time `json:"updated_at,omitempty"`
}

type RankOptions struct {
	Limit         int      `json:"limit,omitempty"`
	MaxDistanceKm *float64 `json:"max_distance_km,omitempty"`
	MinRating     *float64 `json:"min_rating,omitempty"`
}

type RankedProvider struct {
	Provider       Provider `json:"provider"`
	MatchScore     int      `json:"match_score"`
	DistanceKm     *float64 `json:"distance_km,omitempty"`
	InNetwork      bool     `json:"in_network"`
	SpecialtyMatch bool     `json:"specialty_match"`
	Explanation    string   `json:"explanation"`
}

// Referral lifecycle
type ReferralStatus string

const (
	ReferralNeeded    ReferralStatus = "needed"
	ReferralSent      ReferralStatus = "sent"
	ReferralScheduled ReferralStatus = "scheduled"
	ReferralCompleted ReferralStatus = "completed"
	ReferralCancelled ReferralStatus = "cancelled"
)

func (s ReferralStatus) Terminal() bool {
	return s == ReferralCompleted || s == ReferralCancelled
}

func (s ReferralStatus) Valid() bool {
	switch s {
	case ReferralNeeded, ReferralSent, ReferralScheduled, ReferralCompleted, ReferralCancelled:
		return true
	}
	return false
}

func ParseReferralStatus(raw string) (ReferralStatus, bool) {
	status := ReferralStatus(strings.ToLower(strings.TrimSpace(raw)))
	return status, status.Valid()
}

type Referral struct {
	ID            uuid.UUID      `json:"id"`
	PatientID     string         `json:"patient_id"`
	ProviderID    string         `json:"provider_id"`
	ServiceType   string         `json:"service_type"`
	Status        ReferralStatus `json:"status"`
	Version       int64          `json:"version"`
	ScheduledDate *time.Time     `json:"scheduled_date,omitempty"`
	CompletedDate *time.Time     `json:"completed_date,omitempty"`
	Notes         string         `json:"notes,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// HistoryEntry is the append-only audit record of a single status
// transition. Entries are never updated or deleted.
type HistoryEntry struct {
	ReferralID uuid.UUID      `json:"referral_id"`
	Sequence   int            `json:"sequence"`
	OldStatus  ReferralStatus `json:"old_status"`
	NewStatus  ReferralStatus `json:"new_status"`
	Notes      string         `json:"notes,omitempty"`
	Actor      string         `json:"actor"`
	CreatedAt  time.Time      `json:"created_at"`
}

type CreateReferralRequest struct {
	PatientID   string `json:"patient_id"`
	ProviderID  string `json:"provider_id"`
	ServiceType string `json:"service_type"`
}

type ScheduleReferralRequest struct {
	ScheduledDate time.Time `json:"scheduled_date"`
	Notes         string    `json:"notes,omitempty"`
}

type TransitionRequest struct {
	Notes string `json:"notes,omitempty"`
}

// ReferralEvent is the structured domain event returned by lifecycle
// operations and published to the event bus. Notification delivery is
// an external consumer concern.
type ReferralEvent struct {
	Referral   Referral  `json:"referral"`
	Transition string    `json:"transition"`
	Actor      string    `json:"actor"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Event Bus models
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // referral.sent, referral.scheduled, referral.completed, referral.cancelled
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

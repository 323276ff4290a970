package patients

import (
	"context"
	"errors"
	"time"

	"github.com/carebridge-health/platform/pkg/common/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrPatientNotFound = errors.New("patient not found")

type patientModel struct {
	ID                 string            `gorm:"primaryKey;column:id"`
	Name               string            `gorm:"column:name"`
	BirthDate          *time.Time        `gorm:"column:birth_date"`
	Diagnosis          string            `gorm:"column:diagnosis"`
	DischargeDate      time.Time         `gorm:"column:discharge_date"`
	InsurancePlan      string            `gorm:"column:insurance_plan"`
	Latitude           *float64          `gorm:"column:latitude"`
	Longitude          *float64          `gorm:"column:longitude"`
	RequiredService    string            `gorm:"column:required_service"`
	NearestCareKm      *float64          `gorm:"column:nearest_care_km"`
	MissedReferrals    *int              `gorm:"column:missed_referrals"`
	CancelledReferrals *int              `gorm:"column:cancelled_referrals"`
	Attributes         datatypes.JSONMap `gorm:"column:attributes"`
	CreatedAt          time.Time         `gorm:"column:created_at"`
	UpdatedAt          time.Time         `gorm:"column:updated_at"`
}

func (patientModel) TableName() string { return "patient_snapshots" }

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&patientModel{})
}

// Upsert replaces the stored snapshot. Leakage risk is never persisted
// here; it is recomputed from the snapshot on every read.
func (r *Repository) Upsert(ctx context.Context, snapshot models.PatientSnapshot, attributes map[string]interface{}) error {
	row := toPatientRow(snapshot)
	row.Attributes = datatypes.JSONMap(attributes)
	row.UpdatedAt = time.Now().UTC()

	var existing patientModel
	result := r.db.WithContext(ctx).Where("id = ?", snapshot.ID).First(&existing)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		row.CreatedAt = row.UpdatedAt
		return r.db.WithContext(ctx).Create(row).Error
	}
	if result.Error != nil {
		return result.Error
	}
	row.CreatedAt = existing.CreatedAt
	return r.db.WithContext(ctx).Save(row).Error
}

func (r *Repository) GetSnapshot(ctx context.Context, id string) (models.PatientSnapshot, error) {
	var row patientModel
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&row)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return models.PatientSnapshot{}, ErrPatientNotFound
	}
	if result.Error != nil {
		return models.PatientSnapshot{}, result.Error
	}
	return fromPatientRow(row), nil
}

func toPatientRow(snapshot models.PatientSnapshot) *patientModel {
	row := &patientModel{
		ID:                 snapshot.ID,
		Name:               snapshot.Name,
		BirthDate:          snapshot.BirthDate,
		Diagnosis:          snapshot.Diagnosis,
		DischargeDate:      snapshot.DischargeDate,
		InsurancePlan:      snapshot.InsurancePlan,
		RequiredService:    snapshot.RequiredService,
		NearestCareKm:      snapshot.NearestCareKm,
		MissedReferrals:    snapshot.MissedReferrals,
		CancelledReferrals: snapshot.CancelledReferrals,
	}
	if snapshot.Location != nil {
		lat := snapshot.Location.Latitude
		lng := snapshot.Location.Longitude
		row.Latitude = &lat
		row.Longitude = &lng
	}
	return row
}

func fromPatientRow(row patientModel) models.PatientSnapshot {
	snapshot := models.PatientSnapshot{
		ID:                 row.ID,
		Name:               row.Name,
		BirthDate:          row.BirthDate,
		Diagnosis:          row.Diagnosis,
		DischargeDate:      row.DischargeDate,
		InsurancePlan:      row.InsurancePlan,
		RequiredService:    row.RequiredService,
		NearestCareKm:      row.NearestCareKm,
		MissedReferrals:    row.MissedReferrals,
		CancelledReferrals: row.CancelledReferrals,
	}
	if row.Latitude != nil && row.Longitude != nil {
		snapshot.Location = &models.GeoPoint{Latitude: *row.Latitude, Longitude: *row.Longitude}
	}
	return snapshot
}

package referral

import (
	"context"
	"errors"
	"time"

	"github.com/carebridge-health/platform/pkg/common/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type referralModel struct {
	ID            uuid.UUID  `gorm:"primaryKey;column:id"`
	PatientID     string     `gorm:"column:patient_id;index"`
	ProviderID    string     `gorm:"column:provider_id;index"`
	ServiceType   string     `gorm:"column:service_type"`
	Status        string     `gorm:"column:status;index"`
	Version       int64      `gorm:"column:version"`
	ScheduledDate *time.Time `gorm:"column:scheduled_date"`
	CompletedDate *time.Time `gorm:"column:completed_date"`
	Notes         string     `gorm:"column:notes"`
	CreatedAt     time.Time  `gorm:"column:created_at"`
	UpdatedAt     time.Time  `gorm:"column:updated_at"`
}

func (referralModel) TableName() string { return "referrals" }

type historyModel struct {
	ReferralID uuid.UUID `gorm:"primaryKey;column:referral_id"`
	Sequence   int       `gorm:"primaryKey;column:sequence"`
	OldStatus  string    `gorm:"column:old_status"`
	NewStatus  string    `gorm:"column:new_status"`
	Notes      string    `gorm:"column:notes"`
	Actor      string    `gorm:"column:actor"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

func (historyModel) TableName() string { return "referral_history" }

// Repository is the PostgreSQL-backed Store. Optimistic concurrency is
// a conditional UPDATE keyed on (id, version); history appends share
// the transaction so a transition and its audit record land together.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	if err := r.db.AutoMigrate(&referralModel{}, &historyModel{}); err != nil {
		return err
	}
	// Partial unique index backing the one-active-referral-per-patient
	// invariant. The in-transaction count alone is not enough: two
	// concurrent creates can both read zero under READ COMMITTED.
	return r.db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_referrals_active_patient
		 ON referrals (patient_id)
		 WHERE status NOT IN ('completed', 'cancelled')`,
	).Error
}

func (r *Repository) Create(ctx context.Context, referral models.Referral, entry models.HistoryEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var active int64
		err := tx.Model(&referralModel{}).
			Where("patient_id = ? AND status NOT IN ?", referral.PatientID, terminalStatuses()).
			Count(&active).Error
		if err != nil {
			return err
		}
		if active > 0 {
			return ErrActiveReferralExists
		}

		if err := tx.Create(toReferralRow(referral)).Error; err != nil {
			return translateCreateError(err)
		}
		entry.Sequence = 1
		return tx.Create(toHistoryRow(entry)).Error
	})
}

// translateCreateError maps a unique-violation on the active-referral
// index to the domain conflict error. The loser of a concurrent create
// race hits this instead of the count guard.
func translateCreateError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrActiveReferralExists
	}
	return err
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (models.Referral, error) {
	var row referralModel
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&row)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return models.Referral{}, ErrNotFound
	}
	if result.Error != nil {
		return models.Referral{}, result.Error
	}
	return fromReferralRow(row), nil
}

func (r *Repository) FindActiveByPatient(ctx context.Context, patientID string) (models.Referral, error) {
	var row referralModel
	result := r.db.WithContext(ctx).
		Where("patient_id = ? AND status NOT IN ?", patientID, terminalStatuses()).
		Order("created_at DESC").
		First(&row)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return models.Referral{}, ErrNotFound
	}
	if result.Error != nil {
		return models.Referral{}, result.Error
	}
	return fromReferralRow(row), nil
}

func (r *Repository) Transition(ctx context.Context, updated models.Referral, expectedVersion int64, entry models.HistoryEntry) (models.Referral, error) {
	newVersion := expectedVersion + 1

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&referralModel{}).
			Where("id = ? AND version = ?", updated.ID, expectedVersion).
			Updates(map[string]interface{}{
				"status":         string(updated.Status),
				"version":        newVersion,
				"scheduled_date": updated.ScheduledDate,
				"completed_date": updated.CompletedDate,
				"notes":          updated.Notes,
				"updated_at":     updated.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var exists int64
			if err := tx.Model(&referralModel{}).Where("id = ?", updated.ID).Count(&exists).Error; err != nil {
				return err
			}
			if exists == 0 {
				return ErrNotFound
			}
			return ErrVersionConflict
		}

		var entries int64
		if err := tx.Model(&historyModel{}).Where("referral_id = ?", updated.ID).Count(&entries).Error; err != nil {
			return err
		}
		entry.Sequence = int(entries) + 1
		return tx.Create(toHistoryRow(entry)).Error
	})
	if err != nil {
		return models.Referral{}, err
	}

	updated.Version = newVersion
	return updated, nil
}

func (r *Repository) History(ctx context.Context, id uuid.UUID) ([]models.HistoryEntry, error) {
	var rows []historyModel
	result := r.db.WithContext(ctx).
		Where("referral_id = ?", id).
		Order("sequence ASC").
		Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}
	entries := make([]models.HistoryEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, fromHistoryRow(row))
	}
	return entries, nil
}

func (r *Repository) ListByPatient(ctx context.Context, patientID string, limit int) ([]models.Referral, error) {
	if limit <= 0 {
		limit = 25
	}
	var rows []referralModel
	result := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}
	referrals := make([]models.Referral, 0, len(rows))
	for _, row := range rows {
		referrals = append(referrals, fromReferralRow(row))
	}
	return referrals, nil
}

func terminalStatuses() []string {
	return []string{string(models.ReferralCompleted), string(models.ReferralCancelled)}
}

func toReferralRow(referral models.Referral) *referralModel {
	return &referralModel{
		ID:            referral.ID,
		PatientID:     referral.PatientID,
		ProviderID:    referral.ProviderID,
		ServiceType:   referral.ServiceType,
		Status:        string(referral.Status),
		Version:       referral.Version,
		ScheduledDate: referral.ScheduledDate,
		CompletedDate: referral.CompletedDate,
		Notes:         referral.Notes,
		CreatedAt:     referral.CreatedAt,
		UpdatedAt:     referral.UpdatedAt,
	}
}

func fromReferralRow(row referralModel) models.Referral {
	return models.Referral{
		ID:            row.ID,
		PatientID:     row.PatientID,
		ProviderID:    row.ProviderID,
		ServiceType:   row.ServiceType,
		Status:        models.ReferralStatus(row.Status),
		Version:       row.Version,
		ScheduledDate: row.ScheduledDate,
		CompletedDate: row.CompletedDate,
		Notes:         row.Notes,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}

func toHistoryRow(entry models.HistoryEntry) *historyModel {
	return &historyModel{
		ReferralID: entry.ReferralID,
		Sequence:   entry.Sequence,
		OldStatus:  string(entry.OldStatus),
		NewStatus:  string(entry.NewStatus),
		Notes:      entry.Notes,
		Actor:      entry.Actor,
		CreatedAt:  entry.CreatedAt,
	}
}

func fromHistoryRow(row historyModel) models.HistoryEntry {
	return models.HistoryEntry{
		ReferralID: row.ReferralID,
		Sequence:   row.Sequence,
		OldStatus:  models.ReferralStatus(row.OldStatus),
		NewStatus:  models.ReferralStatus(row.NewStatus),
		Notes:      row.Notes,
		Actor:      row.Actor,
		CreatedAt:  row.CreatedAt,
	}
}

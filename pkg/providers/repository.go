package providers

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/carebridge-health/platform/pkg/common/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrProviderNotFound = errors.New("provider not found")

type providerModel struct {
	ID                string         `gorm:"primaryKey;column:id"`
	Name              string         `gorm:"column:name"`
	Type              string         `gorm:"column:type;index"`
	Specialties       datatypes.JSON `gorm:"column:specialties"`
	AcceptedInsurance datatypes.JSON `gorm:"column:accepted_insurance"`
	InNetworkPlans    datatypes.JSON `gorm:"column:in_network_plans"`
	Rating            float64        `gorm:"column:rating"`
	Latitude          *float64       `gorm:"column:latitude"`
	Longitude         *float64       `gorm:"column:longitude"`
	NextAvailableDays *int           `gorm:"column:next_available_days"`
	CreatedAt         time.Time      `gorm:"column:created_at"`
	UpdatedAt         time.Time      `gorm:"column:updated_at"`
}

func (providerModel) TableName() string { return "providers" }

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&providerModel{})
}

func (r *Repository) Upsert(ctx context.Context, provider models.Provider) error {
	row, err := toProviderRow(provider)
	if err != nil {
		return err
	}
	row.UpdatedAt = time.Now().UTC()

	var existing providerModel
	result := r.db.WithContext(ctx).Where("id = ?", provider.ID).First(&existing)
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

func (r *Repository) Get(ctx context.Context, id string) (models.Provider, error) {
	var row providerModel
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&row)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return models.Provider{}, ErrProviderNotFound
	}
	if result.Error != nil {
		return models.Provider{}, result.Error
	}
	return fromProviderRow(row)
}

func (r *Repository) List(ctx context.Context, limit int) ([]models.Provider, error) {
	if limit <= 0 {
		limit = 500
	}
	var rows []providerModel
	result := r.db.WithContext(ctx).Order("id ASC").Limit(limit).Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}
	providers := make([]models.Provider, 0, len(rows))
	for _, row := range rows {
		provider, err := fromProviderRow(row)
		if err != nil {
			return nil, err
		}
		providers = append(providers, provider)
	}
	return providers, nil
}

func toProviderRow(provider models.Provider) (*providerModel, error) {
	specialties, err := json.Marshal(provider.Specialties)
	if err != nil {
		return nil, err
	}
	accepted, err := json.Marshal(provider.AcceptedInsurance)
	if err != nil {
		return nil, err
	}
	plans, err := json.Marshal(provider.InNetworkPlans)
	if err != nil {
		return nil, err
	}

	row := &providerModel{
		ID:                provider.ID,
		Name:              provider.Name,
		Type:              provider.Type,
		Specialties:       specialties,
		AcceptedInsurance: accepted,
		InNetworkPlans:    plans,
		Rating:            provider.Rating,
		NextAvailableDays: provider.NextAvailableDays,
	}
	if provider.Location != nil {
		lat := provider.Location.Latitude
		lng := provider.Location.Longitude
		row.Latitude = &lat
		row.Longitude = &lng
	}
	return row, nil
}

func fromProviderRow(row providerModel) (models.Provider, error) {
	provider := models.Provider{
		ID:                row.ID,
		Name:              row.Name,
		Type:              row.Type,
		Rating:            row.Rating,
		NextAvailableDays: row.NextAvailableDays,
		UpdatedAt:         row.UpdatedAt,
	}
	if err := unmarshalStrings(row.Specialties, &provider.Specialties); err != nil {
		return models.Provider{}, err
	}
	if err := unmarshalStrings(row.AcceptedInsurance, &provider.AcceptedInsurance); err != nil {
		return models.Provider{}, err
	}
	if err := unmarshalStrings(row.InNetworkPlans, &provider.InNetworkPlans); err != nil {
		return models.Provider{}, err
	}
	if row.Latitude != nil && row.Longitude != nil {
		provider.Location = &models.GeoPoint{Latitude: *row.Latitude, Longitude: *row.Longitude}
	}
	return provider, nil
}

func unmarshalStrings(raw datatypes.JSON, target *[]string) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, target)
}

package providers

import (
	"context"
	"strings"

	"github.com/carebridge-health/platform/pkg/common/logger"
	"github.com/carebridge-health/platform/pkg/common/models"
)

// Service fronts the provider directory with a read-through snapshot
// cache. Directory writes invalidate the snapshot so the next ranking
// sees the updated candidate set.
type Service struct {
	repo  *Repository
	cache *Cache
}

func NewService(repo *Repository, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

func (s *Service) Upsert(ctx context.Context, provider models.Provider) error {
	if err := s.repo.Upsert(ctx, provider); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (models.Provider, error) {
	return s.repo.Get(ctx, id)
}

// Snapshot returns the candidate set for ranking. Each call yields an
// independent slice, never a shared cached one.
func (s *Service) Snapshot(ctx context.Context) ([]models.Provider, error) {
	if s.cache != nil {
		cached, err := s.cache.GetSnapshot(ctx)
		if err != nil {
			logger.Log.WithError(err).Warn("provider snapshot cache read failed")
		} else if cached != nil {
			return cached, nil
		}
	}

	providers, err := s.repo.List(ctx, 0)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetSnapshot(ctx, providers); err != nil {
			logger.Log.WithError(err).Warn("provider snapshot cache write failed")
		}
	}
	return providers, nil
}

// Filter narrows a candidate set by specialty and accepted insurance.
// Empty filter values match everything.
func Filter(providers []models.Provider, specialty, insurance string) []models.Provider {
	specialty = strings.TrimSpace(specialty)
	insurance = strings.TrimSpace(insurance)
	if specialty == "" && insurance == "" {
		return providers
	}

	filtered := make([]models.Provider, 0, len(providers))
	for _, provider := range providers {
		if specialty != "" && !offersSpecialty(provider, specialty) {
			continue
		}
		if insurance != "" && !acceptsInsurance(provider, insurance) {
			continue
		}
		filtered = append(filtered, provider)
	}
	return filtered
}

func offersSpecialty(provider models.Provider, specialty string) bool {
	if strings.EqualFold(provider.Type, specialty) {
		return true
	}
	for _, s := range provider.Specialties {
		if strings.EqualFold(strings.TrimSpace(s), specialty) {
			return true
		}
	}
	return false
}

func acceptsInsurance(provider models.Provider, plan string) bool {
	for _, accepted := range provider.AcceptedInsurance {
		if strings.EqualFold(strings.TrimSpace(accepted), plan) {
			return true
		}
	}
	for _, networkPlan := range provider.InNetworkPlans {
		if strings.EqualFold(strings.TrimSpace(networkPlan), plan) {
			return true
		}
	}
	return false
}

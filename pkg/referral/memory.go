package referral

import (
	"context"
	"sort"
	"sync"

	"github.com/carebridge-health/platform/pkg/common/models"
	"github.com/google/uuid"
)

// MemoryStore is a Store kept entirely in process memory. It mirrors
// the repository's compare-and-swap and append-only semantics, which
// makes it suitable for tests and single-node local runs.
type MemoryStore struct {
	mu        sync.Mutex
	referrals map[uuid.UUID]models.Referral
	history   map[uuid.UUID][]models.HistoryEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		referrals: make(map[uuid.UUID]models.Referral),
		history:   make(map[uuid.UUID][]models.HistoryEntry),
	}
}

func (s *MemoryStore) Create(ctx context.Context, referral models.Referral, entry models.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.referrals {
		if existing.PatientID == referral.PatientID && !existing.Status.Terminal() {
			return ErrActiveReferralExists
		}
	}

	entry.Sequence = 1
	s.referrals[referral.ID] = referral
	s.history[referral.ID] = []models.HistoryEntry{entry}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id uuid.UUID) (models.Referral, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	referral, ok := s.referrals[id]
	if !ok {
		return models.Referral{}, ErrNotFound
	}
	return referral, nil
}

func (s *MemoryStore) FindActiveByPatient(ctx context.Context, patientID string) (models.Referral, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, referral := range s.referrals {
		if referral.PatientID == patientID && !referral.Status.Terminal() {
			return referral, nil
		}
	}
	return models.Referral{}, ErrNotFound
}

func (s *MemoryStore) Transition(ctx context.Context, updated models.Referral, expectedVersion int64, entry models.HistoryEntry) (models.Referral, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.referrals[updated.ID]
	if !ok {
		return models.Referral{}, ErrNotFound
	}
	if current.Version != expectedVersion {
		return models.Referral{}, ErrVersionConflict
	}

	updated.Version = expectedVersion + 1
	entry.Sequence = len(s.history[updated.ID]) + 1

	s.referrals[updated.ID] = updated
	s.history[updated.ID] = append(s.history[updated.ID], entry)
	return updated, nil
}

func (s *MemoryStore) History(ctx context.Context, id uuid.UUID) ([]models.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]models.HistoryEntry, len(s.history[id]))
	copy(entries, s.history[id])
	return entries, nil
}

func (s *MemoryStore) ListByPatient(ctx context.Context, patientID string, limit int) ([]models.Referral, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var referrals []models.Referral
	for _, referral := range s.referrals {
		if referral.PatientID == patientID {
			referrals = append(referrals, referral)
		}
	}
	sort.Slice(referrals, func(i, j int) bool {
		if referrals[i].CreatedAt.Equal(referrals[j].CreatedAt) {
			return referrals[i].ID.String() > referrals[j].ID.String()
		}
		return referrals[i].CreatedAt.After(referrals[j].CreatedAt)
	})
	if limit > 0 && len(referrals) > limit {
		referrals = referrals[:limit]
	}
	return referrals, nil
}

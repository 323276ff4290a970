package referral

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/carebridge-health/platform/pkg/common/logger"
	"github.com/carebridge-health/platform/pkg/common/models"
	"github.com/carebridge-health/platform/pkg/observability/metrics"
	"github.com/google/uuid"
)

const eventSource = "referral-service"

// Lifecycle edges. Anything not listed is rejected with
// ErrInvalidTransition before any write happens.
var allowedTransitions = map[models.ReferralStatus][]models.ReferralStatus{
	models.ReferralNeeded:    {models.ReferralSent},
	models.ReferralSent:      {models.ReferralScheduled, models.ReferralCancelled},
	models.ReferralScheduled: {models.ReferralCompleted, models.ReferralCancelled},
}

func canTransition(from, to models.ReferralStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// EventPublisher receives the structured domain event emitted by each
// successful lifecycle operation. Notification delivery is a downstream
// consumer concern, never invoked from here.
type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

type Service struct {
	store  Store
	events EventPublisher
	dlq    EventPublisher
}

func NewService(store Store, events, dlq EventPublisher) *Service {
	return &Service{store: store, events: events, dlq: dlq}
}

// CreateReferral registers a new referral for the patient. The referral
// is transmitted at creation, so it lands directly in Sent with a
// history entry recording the Needed -> Sent edge.
func (s *Service) CreateReferral(ctx context.Context, req models.CreateReferralRequest, actor string) (models.Referral, error) {
	if err := validateCreate(req); err != nil {
		return models.Referral{}, err
	}

	if _, err := s.store.FindActiveByPatient(ctx, req.PatientID); err == nil {
		return models.Referral{}, ErrActiveReferralExists
	} else if !errors.Is(err, ErrNotFound) {
		return models.Referral{}, err
	}

	now := time.Now().UTC()
	referral := models.Referral{
		ID:          uuid.New(),
		PatientID:   req.PatientID,
		ProviderID:  req.ProviderID,
		ServiceType: req.ServiceType,
		Status:      models.ReferralSent,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	entry := models.HistoryEntry{
		ReferralID: referral.ID,
		OldStatus:  models.ReferralNeeded,
		NewStatus:  models.ReferralSent,
		Actor:      resolveActor(actor),
		CreatedAt:  now,
	}

	if err := s.store.Create(ctx, referral, entry); err != nil {
		return models.Referral{}, err
	}

	metrics.ObserveReferralTransition(string(models.ReferralSent))
	s.publish(ctx, referral, "sent", entry.Actor, now)

	logger.Log.WithFields(map[string]interface{}{
		"referral_id": referral.ID,
		"patient_id":  referral.PatientID,
		"provider_id": referral.ProviderID,
	}).Info("Referral created")

	return referral, nil
}

// ScheduleReferral moves a Sent referral to Scheduled.
func (s *Service) ScheduleReferral(ctx context.Context, id uuid.UUID, req models.ScheduleReferralRequest, actor string) (models.Referral, error) {
	if req.ScheduledDate.IsZero() {
		return models.Referral{}, fmt.Errorf("%w: scheduled date required", ErrInvalidRequest)
	}
	scheduled := req.ScheduledDate
	return s.transition(ctx, id, models.ReferralScheduled, "scheduled", req.Notes, actor, func(referral *models.Referral) {
		referral.ScheduledDate = &scheduled
	})
}

// CompleteReferral moves a Scheduled referral to Completed.
func (s *Service) CompleteReferral(ctx context.Context, id uuid.UUID, req models.TransitionRequest, actor string) (models.Referral, error) {
	return s.transition(ctx, id, models.ReferralCompleted, "completed", req.Notes, actor, func(referral *models.Referral) {
		completed := time.Now().UTC()
		referral.CompletedDate = &completed
	})
}

// CancelReferral moves a Sent or Scheduled referral to Cancelled,
// freeing the patient to receive a new referral.
func (s *Service) CancelReferral(ctx context.Context, id uuid.UUID, req models.TransitionRequest, actor string) (models.Referral, error) {
	return s.transition(ctx, id, models.ReferralCancelled, "cancelled", req.Notes, actor, nil)
}

func (s *Service) GetReferral(ctx context.Context, id uuid.UUID) (models.Referral, error) {
	return s.store.Get(ctx, id)
}

// GetHistory returns the referral's audit trail, oldest entry first.
func (s *Service) GetHistory(ctx context.Context, id uuid.UUID) ([]models.HistoryEntry, error) {
	if _, err := s.store.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.store.History(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID string, limit int) ([]models.Referral, error) {
	return s.store.ListByPatient(ctx, patientID, limit)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, target models.ReferralStatus, transitionName, notes, actor string, mutate func(*models.Referral)) (models.Referral, error) {
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return models.Referral{}, err
	}
	if !canTransition(current.Status, target) {
		return models.Referral{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, target)
	}

	now := time.Now().UTC()
	updated := current
	updated.Status = target
	updated.UpdatedAt = now
	if notes != "" {
		updated.Notes = notes
	}
	if mutate != nil {
		mutate(&updated)
	}

	entry := models.HistoryEntry{
		ReferralID: id,
		OldStatus:  current.Status,
		NewStatus:  target,
		Notes:      notes,
		Actor:      resolveActor(actor),
		CreatedAt:  now,
	}

	saved, err := s.store.Transition(ctx, updated, current.Version, entry)
	if err != nil {
		return models.Referral{}, err
	}

	metrics.ObserveReferralTransition(string(target))
	s.publish(ctx, saved, transitionName, entry.Actor, now)

	logger.Log.WithFields(map[string]interface{}{
		"referral_id": saved.ID,
		"old_status":  current.Status,
		"new_status":  saved.Status,
		"version":     saved.Version,
	}).Info("Referral transitioned")

	return saved, nil
}

func (s *Service) publish(ctx context.Context, referral models.Referral, transition, actor string, occurredAt time.Time) {
	if s.events == nil {
		return
	}

	event := models.ReferralEvent{
		Referral:   referral,
		Transition: transition,
		Actor:      actor,
		OccurredAt: occurredAt,
	}
	payload := map[string]interface{}{
		"referral":    event.Referral,
		"transition":  event.Transition,
		"actor":       event.Actor,
		"occurred_at": event.OccurredAt,
	}

	eventType := "referral." + transition
	if err := s.events.PublishEvent(ctx, eventType, eventSource, payload); err != nil {
		logger.Log.WithError(err).WithField("referral_id", referral.ID).Error("failed to publish referral event")
		if s.dlq != nil {
			_ = s.dlq.PublishEvent(ctx, eventType, eventSource, payload)
		}
	}
}

func validateCreate(req models.CreateReferralRequest) error {
	if strings.TrimSpace(req.PatientID) == "" {
		return fmt.Errorf("%w: patient id required", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.ProviderID) == "" {
		return fmt.Errorf("%w: provider id required", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.ServiceType) == "" {
		return fmt.Errorf("%w: service type required", ErrInvalidRequest)
	}
	return nil
}

func resolveActor(actor string) string {
	if strings.TrimSpace(actor) == "" {
		return "system"
	}
	return actor
}

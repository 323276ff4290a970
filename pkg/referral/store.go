package referral

import (
	"context"

	"github.com/carebridge-health/platform/pkg/common/models"
	"github.com/google/uuid"
)

// Store is the persistence boundary for referrals. Implementations must
// provide read-current-write-iff-unchanged semantics for Transition and
// keep the history log append-only.
type Store interface {
	// Create persists a new referral together with its first history
	// entry. It fails with ErrActiveReferralExists when the patient
	// already has a non-terminal referral.
	Create(ctx context.Context, referral models.Referral, entry models.HistoryEntry) error

	// Get returns the referral or ErrNotFound.
	Get(ctx context.Context, id uuid.UUID) (models.Referral, error)

	// FindActiveByPatient returns the patient's non-terminal referral,
	// or ErrNotFound when there is none.
	FindActiveByPatient(ctx context.Context, patientID string) (models.Referral, error)

	// Transition writes the updated referral iff the persisted version
	// still equals expectedVersion, bumping the version and appending
	// exactly one history entry in the same atomic step. A version
	// mismatch yields ErrVersionConflict and leaves everything as-is.
	Transition(ctx context.Context, updated models.Referral, expectedVersion int64, entry models.HistoryEntry) (models.Referral, error)

	// History returns the referral's entries oldest first.
	History(ctx context.Context, id uuid.UUID) ([]models.HistoryEntry, error)

	// ListByPatient returns the patient's referrals newest first.
	ListByPatient(ctx context.Context, patientID string, limit int) ([]models.Referral, error)
}

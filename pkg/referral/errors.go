package referral

import "errors"

var (
	// ErrNotFound marks an unknown referral id.
	ErrNotFound = errors.New("referral not found")

	// ErrActiveReferralExists guards the one-active-referral-per-patient
	// invariant on creation.
	ErrActiveReferralExists = errors.New("patient already has an active referral")

	// ErrInvalidTransition marks a lifecycle edge that is not legal from
	// the referral's current status. The referral and its history are
	// left untouched.
	ErrInvalidTransition = errors.New("invalid referral status transition")

	// ErrVersionConflict reports a failed optimistic-concurrency check:
	// the persisted referral changed since the caller last read it. The
	// caller should refetch and decide whether to retry.
	ErrVersionConflict = errors.New("referral was modified concurrently")

	// ErrInvalidRequest marks malformed or missing required input.
	ErrInvalidRequest = errors.New("invalid referral request")
)

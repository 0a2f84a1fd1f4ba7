// Error taxonomy shared across the onboarding core. Sentinel values let
// handlers and callers distinguish failure kinds with errors.Is; only
// ErrVersionConflict and ErrStoreUnavailable are retryable, and a retry
// always re-runs the whole logical operation, never a partial one.
package models

import "errors"

// ErrInvalidTransition is returned when the requested status is not a
// legal successor of the application's current status.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrUnauthorizedTransition is returned when the actor is not allowed to
// trigger the transition, including any attempt to reach a raffle-owned
// status outside the assignment transaction.
var ErrUnauthorizedTransition = errors.New("unauthorized status transition")

// ErrNotEligibleForResubmission is returned when a resubmission targets
// a document that is not currently rejected.
var ErrNotEligibleForResubmission = errors.New("document not eligible for resubmission")

// ErrNoEligibleCandidates is returned when a raffle is conducted for a
// stall with an empty candidate pool. The stall stays vacant and no
// state is mutated.
var ErrNoEligibleCandidates = errors.New("no eligible candidates for raffle")

// ErrStallNoLongerVacant is returned when the stall was occupied between
// the caller's read and the assignment transaction, or when a raffle is
// re-triggered for an already-occupied stall.
var ErrStallNoLongerVacant = errors.New("stall is no longer vacant")

// ErrVersionConflict is returned when an optimistic-concurrency write
// loses to a concurrent writer. Retryable: re-run the whole operation.
var ErrVersionConflict = errors.New("version conflict")

// ErrDuplicateCertificate is returned when the store's uniqueness
// constraint on certificate numbers rejects an insert.
var ErrDuplicateCertificate = errors.New("duplicate certificate number")

// ErrStoreUnavailable is returned when the entity store cannot be
// reached. Retryable.
var ErrStoreUnavailable = errors.New("entity store unavailable")

// ErrNotFound is returned when a referenced entity does not exist.
var ErrNotFound = errors.New("not found")

// Retryable reports whether the caller may retry the whole logical
// operation after receiving err. All other kinds indicate a caller
// precondition failure and must not be retried blindly.
func Retryable(err error) bool {
	return errors.Is(err, ErrVersionConflict) || errors.Is(err, ErrStoreUnavailable)
}

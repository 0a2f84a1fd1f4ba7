// Package raffle implements the stall assignment transaction: one
// vacant stall, one pool of eligible applications, exactly one winner,
// all written atomically.
package raffle

import (
	"math/rand"
	"time"

	"ms-onboarding/internal/models"
)

// Picker supplies the random index for winner selection. Production
// uses a seeded math/rand source; tests inject deterministic pickers to
// pin outcomes and to assert uniformity statistically.
type Picker interface {
	Intn(n int) int
}

// NewPicker returns the production picker.
func NewPicker() Picker {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// SelectWinner picks one application id uniformly at random from the
// pool. The pool must be non-empty; the caller guards that with
// ErrNoEligibleCandidates before selection.
func SelectWinner(pool []models.Application, picker Picker) string {
	return pool[picker.Intn(len(pool))].ID
}

// Package application implements the vendor-application lifecycle: the
// status state machine and the per-document review ledger. It is the
// single authority on which transitions are legal and who may trigger
// them; stall occupancy is owned by the raffle package.
package application

import (
	"fmt"
	"time"

	"ms-onboarding/internal/models"
)

type edge struct {
	from models.ApplicationStatus
	to   models.ApplicationStatus
}

// transitions is the closed transition table. A missing entry means the
// move is illegal; the role list says who may trigger it.
var transitions = map[edge][]models.Role{
	{models.StatusDraft, models.StatusPendingNotarization}:           {models.RoleApplicant, models.RoleAdmin},
	{models.StatusPendingNotarization, models.StatusPendingApproval}: {models.RoleAdmin},
	{models.StatusPendingApproval, models.StatusApproved}:            {models.RoleAdmin},
	{models.StatusPendingApproval, models.StatusPartiallyApproved}:   {models.RoleAdmin},
	{models.StatusPendingApproval, models.StatusRejected}:            {models.RoleAdmin},
	// Post-award re-review only: the stall-assignment guard keeps
	// applications without a stall off this edge.
	{models.StatusPendingApproval, models.StatusDocumentsApproved}:    {models.RoleAdmin},
	{models.StatusPartiallyApproved, models.StatusPendingApproval}:    {models.RoleApplicant, models.RoleAdmin},
	{models.StatusApproved, models.StatusApprovedForRaffle}:           {models.RoleAdmin},
	{models.StatusApprovedForRaffle, models.StatusWonRaffle}:          {models.RoleRaffle},
	{models.StatusApprovedForRaffle, models.StatusNotSelected}:        {models.RoleRaffle},
	{models.StatusWonRaffle, models.StatusDocumentsSubmitted}:         {models.RoleApplicant, models.RoleAdmin},
	{models.StatusDocumentsSubmitted, models.StatusDocumentsApproved}: {models.RoleAdmin},
	{models.StatusDocumentsSubmitted, models.StatusPartiallyApproved}: {models.RoleAdmin},
	{models.StatusDocumentsApproved, models.StatusActivated}:          {models.RoleAdmin},
}

// StateMachine validates and executes status transitions for a single
// application. It never touches the store; callers persist the returned
// value with a versioned update.
type StateMachine struct{}

func NewStateMachine() *StateMachine {
	return &StateMachine{}
}

// CanTransition reports whether from -> to exists in the table at all,
// regardless of actor.
func (m *StateMachine) CanTransition(from, to models.ApplicationStatus) bool {
	_, ok := transitions[edge{from, to}]
	return ok
}

// Transition applies requested to a copy of app and returns it. Illegal
// moves fail with ErrInvalidTransition and raffle-owned targets fail
// with ErrUnauthorizedTransition for any actor but the raffle engine;
// in both cases app is returned untouched. Re-requesting the current
// status is a no-op success so client retries are harmless.
func (m *StateMachine) Transition(app models.Application, requested models.ApplicationStatus, actor models.Actor) (models.Application, error) {
	if !requested.Valid() {
		return app, fmt.Errorf("unknown status %q: %w", requested, models.ErrInvalidTransition)
	}

	// Retry tolerance: same target, same state, nothing to do.
	if requested == app.Status {
		return app, nil
	}

	roles, ok := transitions[edge{app.Status, requested}]
	if !ok {
		return app, fmt.Errorf("%s -> %s: %w", app.Status, requested, models.ErrInvalidTransition)
	}

	if requested == models.StatusWonRaffle || requested == models.StatusNotSelected {
		// Reachable only through the assignment transaction.
		if actor.Role != models.RoleRaffle {
			return app, fmt.Errorf("%s may only be set by the raffle engine: %w", requested, models.ErrUnauthorizedTransition)
		}
	} else if !roleAllowed(roles, actor.Role) {
		return app, fmt.Errorf("role %s may not set %s: %w", actor.Role, requested, models.ErrUnauthorizedTransition)
	}

	if requested.HoldsStall() && app.AssignedStallID == "" {
		return app, fmt.Errorf("%s requires a stall assignment: %w", requested, models.ErrUnauthorizedTransition)
	}

	now := time.Now().UTC()
	app.Status = requested
	app.UpdatedAt = now
	stamp(&app, requested, now)
	return app, nil
}

// stamp sets the write-once timestamp corresponding to the entered
// status. Already-stamped fields are never overwritten, so loop-back
// transitions keep the original audit trail.
func stamp(app *models.Application, entered models.ApplicationStatus, now time.Time) {
	switch entered {
	case models.StatusPendingNotarization:
		if app.SubmittedAt.IsZero() {
			app.SubmittedAt = now
		}
	case models.StatusPendingApproval:
		if app.NotarizedAt.IsZero() {
			app.NotarizedAt = now
		}
	case models.StatusApproved, models.StatusDocumentsApproved:
		if app.ApprovedAt.IsZero() {
			app.ApprovedAt = now
		}
	case models.StatusRejected:
		if app.RejectedAt.IsZero() {
			app.RejectedAt = now
		}
	case models.StatusWonRaffle:
		if app.WonAt.IsZero() {
			app.WonAt = now
		}
	case models.StatusDocumentsSubmitted:
		if app.DocumentsSubmittedAt.IsZero() {
			app.DocumentsSubmittedAt = now
		}
	case models.StatusActivated:
		if app.ActivatedAt.IsZero() {
			app.ActivatedAt = now
		}
	}
}

func roleAllowed(roles []models.Role, r models.Role) bool {
	for _, allowed := range roles {
		if allowed == r {
			return true
		}
	}
	return false
}

package models

import (
	"time"

	"github.com/uptrace/bun"
)

// RaffleStatus is the outcome state of a raffle event record. Events are
// only written for completed raffles; failed attempts leave no record.
type RaffleStatus string

const (
	RaffleCompleted RaffleStatus = "completed"
)

// RaffleEvent is the immutable record of one assignment attempt for one
// stall. Nothing mutates a raffle event after the assignment transaction
// commits.
type RaffleEvent struct {
	bun.BaseModel `bun:"table:raffle_events"`

	ID               string       `bun:"id,pk"`
	StallID          string       `bun:"stall_id"`
	Status           RaffleStatus `bun:"status"`
	ParticipantCount int          `bun:"participant_count"`
	ConductedAt      time.Time    `bun:"conducted_at"`
}

// RaffleParticipant records one applicant's inclusion in a raffle event.
// Exactly one participant per event carries IsWinner = true.
type RaffleParticipant struct {
	bun.BaseModel `bun:"table:raffle_participants"`

	ID            string `bun:"id,pk"`
	RaffleEventID string `bun:"raffle_event_id"`
	ApplicationID string `bun:"application_id"`
	IsWinner      bool   `bun:"is_winner"`
}

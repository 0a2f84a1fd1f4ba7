package models

import "time"

// TransitionEvent is published on every successful status transition.
type TransitionEvent struct {
	ApplicationID string            `json:"application_id"`
	FromStatus    ApplicationStatus `json:"from_status"`
	ToStatus      ApplicationStatus `json:"to_status"`
	Timestamp     time.Time         `json:"timestamp"`
}

// AssignmentEvent is published once per successful stall assignment, in
// addition to the winner's TransitionEvent.
type AssignmentEvent struct {
	ApplicationID string    `json:"application_id"`
	StallID       string    `json:"stall_id"`
	CertificateID string    `json:"certificate_id"`
	Timestamp     time.Time `json:"timestamp"`
}

// AssignmentResult is returned by the assignment transaction and
// broadcast to live dashboard subscribers. The UI may animate this
// already-decided result but never computes or submits a winner itself.
type AssignmentResult struct {
	RaffleEvent  RaffleEvent       `json:"raffle_event"`
	WinnerID     string            `json:"winner_id"`
	LoserIDs     []string          `json:"loser_ids"`
	Stall        Stall             `json:"stall"`
	Certificate  Certificate       `json:"certificate"`
	WinnerStatus ApplicationStatus `json:"winner_status"`
}

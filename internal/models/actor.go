package models

// Role classifies who is triggering a transition.
type Role string

const (
	RoleApplicant Role = "applicant"
	RoleAdmin     Role = "admin"
	// RoleRaffle is the internal actor of the assignment transaction.
	// It is never minted from an inbound request.
	RoleRaffle Role = "raffle"
)

// Actor is the explicit caller identity passed into every operation.
// The core never reads identity from ambient state; it always arrives
// through this value, extracted from the verified token at the boundary.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// RaffleActor is the identity the assignment transaction uses when it
// promotes the winner and disqualifies the losers.
var RaffleActor = Actor{ID: "raffle-engine", Role: RoleRaffle}

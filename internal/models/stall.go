package models

import (
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// StallStatus is the closed set of occupancy states for a stall.
type StallStatus string

const (
	StallVacant      StallStatus = "vacant"
	StallOccupied    StallStatus = "occupied"
	StallMaintenance StallStatus = "maintenance"
)

func (s StallStatus) Valid() bool {
	return s == StallVacant || s == StallOccupied || s == StallMaintenance
}

// Section is a physical area of the market (e.g. Fish, Vegetables).
// Stalls reference their section by foreign key; the section is never
// inferred from the formatted stall number.
type Section struct {
	bun.BaseModel `bun:"table:sections"`

	ID        string    `bun:"id,pk"`
	Code      string    `bun:"code,unique"`
	Name      string    `bun:"name"`
	Capacity  int       `bun:"capacity"`
	CreatedAt time.Time `bun:"created_at"`
}

// Stall is one physical unit in a market section.
// AssignedApplicationID is non-empty iff Status is occupied, and only
// the assignment transaction may flip a stall to occupied.
type Stall struct {
	bun.BaseModel `bun:"table:stalls"`

	ID                    string      `bun:"id,pk"`
	SectionID             string      `bun:"section_id"`
	StallNumber           string      `bun:"stall_number"`
	Status                StallStatus `bun:"status"`
	AssignedApplicationID string      `bun:"assigned_application_id,nullzero"`
	Version               int64       `bun:"version"`
	CreatedAt             time.Time   `bun:"created_at"`
	UpdatedAt             time.Time   `bun:"updated_at,nullzero"`
}

// StallNumber derives the display number for the n-th stall of a section,
// e.g. "F-12". The section relationship itself lives in SectionID.
func StallNumber(sectionCode string, n int) string {
	return fmt.Sprintf("%s-%d", sectionCode, n)
}

package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Certificate is the immutable proof-of-award record for a completed
// assignment. At most one certificate exists per (application, stall)
// pair; resubmission flows never re-mint one. The certificate number
// carries a unique constraint in the store as a backstop against
// timestamp collisions.
type Certificate struct {
	bun.BaseModel `bun:"table:certificates"`

	ID                string    `bun:"id,pk"`
	CertificateNumber string    `bun:"certificate_number,unique"`
	ApplicationID     string    `bun:"application_id"`
	StallID           string    `bun:"stall_id"`
	SectionID         string    `bun:"section_id"`
	QRCode            []byte    `bun:"qr_code"`
	IssuedAt          time.Time `bun:"issued_at"`
}

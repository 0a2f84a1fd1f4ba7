// Package certificate mints the immutable proof-of-award record for a
// completed stall assignment.
package certificate

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"ms-onboarding/internal/models"
	"ms-onboarding/internal/utils"
)

// Issuer produces certificate records. Given the same inputs it is
// deterministic except for the record id; the certificate number is a
// pure function of the raffle time and stall number, with the store's
// unique constraint as the collision backstop.
type Issuer struct {
	qr *QRGenerator
}

func NewIssuer(qrSecret string) *Issuer {
	return &Issuer{qr: NewQRGenerator(qrSecret)}
}

// Issue builds the certificate for one confirmed assignment. It has no
// side effects; the assignment transaction persists the result.
func (i *Issuer) Issue(app models.Application, stall models.Stall, section models.Section, conductedAt time.Time) (models.Certificate, error) {
	cert := models.Certificate{
		ID:                uuid.NewString(),
		CertificateNumber: utils.GenerateCertificateNumber(conductedAt, stall.StallNumber),
		ApplicationID:     app.ID,
		StallID:           stall.ID,
		SectionID:         section.ID,
		IssuedAt:          conductedAt,
	}

	qrBytes, err := i.qr.GenerateEncryptedQR(cert, app.ApplicationNumber, section.Name)
	if err != nil {
		return models.Certificate{}, fmt.Errorf("failed to generate certificate QR: %w", err)
	}
	cert.QRCode = qrBytes
	return cert, nil
}

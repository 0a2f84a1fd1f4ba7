package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// GenerateApplicationNumber produces the 6-digit human-facing number an
// applicant uses for status lookup. Uniqueness is enforced by the store;
// callers retry on collision.
func GenerateApplicationNumber() string {
	n, _ := rand.Int(rand.Reader, big.NewInt(1000000))
	return fmt.Sprintf("%06d", n.Int64())
}

// GenerateCertificateNumber derives the award certificate number from
// the moment the raffle was conducted and the stall's display number,
// e.g. "CERT-1724990400-F-12".
func GenerateCertificateNumber(conductedAt time.Time, stallNumber string) string {
	return fmt.Sprintf("CERT-%d-%s", conductedAt.Unix(), stallNumber)
}

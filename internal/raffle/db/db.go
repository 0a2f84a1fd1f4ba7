package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	appdb "ms-onboarding/internal/application/db"
	"ms-onboarding/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// RunInTx executes fn inside one store transaction. Every write of the
// assignment transaction happens in here; any error rolls the whole
// thing back so no partial assignment is ever visible.
func (d *DB) RunInTx(ctx context.Context, fn func(ctx context.Context, tx bun.Tx) error) error {
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, fn)
}

// GetStallTx loads the stall under the transaction.
func GetStallTx(ctx context.Context, tx bun.Tx, stallID string) (*models.Stall, error) {
	var stall models.Stall
	err := tx.NewSelect().
		Model(&stall).
		Where("id = ?", stallID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &stall, nil
}

// CandidatePoolTx loads the raffle pool: applications approved for
// raffle that hold no stall yet and carry no unresolved rejection on a
// required document. Disqualified (not_selected) and withdrawn
// applications are excluded by the status filter itself; stall holders
// looping through a post-award re-review are excluded by the
// assignment filter. The rejection subquery mirrors the review
// ledger's required set: a rejected marriage certificate only counts
// for married applicants, a rejected notarized document only when
// notarization was required.
func CandidatePoolTx(ctx context.Context, tx bun.Tx) ([]models.Application, error) {
	var pool []models.Application
	err := tx.NewSelect().
		Model(&pool).
		Where("status = ?", models.StatusApprovedForRaffle).
		Where("assigned_stall_id IS NULL OR assigned_stall_id = ''").
		Where("NOT EXISTS (SELECT 1 FROM application_documents AS d WHERE d.application_id = application.id AND d.verdict = ? AND (d.kind != ? OR application.civil_status = ?) AND (d.kind != ? OR application.notarization_required = ?))",
			models.VerdictRejected, models.DocMarriageCertificate, models.CivilMarried, models.DocNotarizedDocument, true).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return pool, nil
}

// OccupyStallTx flips the stall to occupied with a compare-and-swap on
// its vacant status. Zero rows affected means another assignment won
// the race (or the stall was never vacant); the caller aborts with
// ErrStallNoLongerVacant and the transaction rolls back untouched.
func OccupyStallTx(ctx context.Context, tx bun.Tx, stall models.Stall, winnerID string, now time.Time) (*models.Stall, error) {
	stall.Status = models.StallOccupied
	stall.AssignedApplicationID = winnerID
	stall.Version++
	stall.UpdatedAt = now

	res, err := tx.NewUpdate().
		Model(&stall).
		Column("status", "assigned_application_id", "version", "updated_at").
		Where("id = ?", stall.ID).
		Where("status = ?", models.StallVacant).
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, fmt.Errorf("stall %s: %w", stall.ID, models.ErrStallNoLongerVacant)
	}
	return &stall, nil
}

// InsertRaffleEventTx writes the immutable raffle event record.
func InsertRaffleEventTx(ctx context.Context, tx bun.Tx, event models.RaffleEvent) error {
	_, err := tx.NewInsert().Model(&event).Exec(ctx)
	return err
}

// InsertParticipantsTx writes one row per pool member, exactly one of
// them flagged as the winner.
func InsertParticipantsTx(ctx context.Context, tx bun.Tx, participants []models.RaffleParticipant) error {
	if len(participants) == 0 {
		return nil
	}
	_, err := tx.NewInsert().Model(&participants).Exec(ctx)
	return err
}

// InsertCertificateTx writes the minted certificate. The store's unique
// constraint on certificate numbers is the backstop against timestamp
// collisions; a violation surfaces as ErrDuplicateCertificate rather
// than silently overwriting.
func InsertCertificateTx(ctx context.Context, tx bun.Tx, cert models.Certificate) error {
	_, err := tx.NewInsert().Model(&cert).Exec(ctx)
	if err != nil && appdb.IsUniqueViolation(err) {
		return fmt.Errorf("certificate %s: %w", cert.CertificateNumber, models.ErrDuplicateCertificate)
	}
	return err
}

// GetSectionTx loads the stall's section for certificate issuance.
func GetSectionTx(ctx context.Context, tx bun.Tx, sectionID string) (*models.Section, error) {
	var section models.Section
	err := tx.NewSelect().
		Model(&section).
		Where("id = ?", sectionID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &section, nil
}

// ---------------- READ SIDE ----------------

// GetRaffleEventByStall returns the completed raffle for a stall, if any.
func (d *DB) GetRaffleEventByStall(stallID string) (*models.RaffleEvent, error) {
	var event models.RaffleEvent
	err := d.Bun.NewSelect().
		Model(&event).
		Where("stall_id = ?", stallID).
		Order("conducted_at DESC").
		Limit(1).
		Scan(context.Background())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &event, nil
}

// GetParticipants returns all participant rows of one raffle event.
func (d *DB) GetParticipants(raffleEventID string) ([]models.RaffleParticipant, error) {
	var participants []models.RaffleParticipant
	err := d.Bun.NewSelect().
		Model(&participants).
		Where("raffle_event_id = ?", raffleEventID).
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return participants, nil
}

// GetCertificateByApplication returns the certificate awarded to an
// application, if one exists.
func (d *DB) GetCertificateByApplication(applicationID string) (*models.Certificate, error) {
	var cert models.Certificate
	err := d.Bun.NewSelect().
		Model(&cert).
		Where("application_id = ?", applicationID).
		Limit(1).
		Scan(context.Background())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &cert, nil
}

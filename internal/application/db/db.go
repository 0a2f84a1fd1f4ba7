package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"ms-onboarding/internal/models"
	"ms-onboarding/internal/utils"
)

type DB struct {
	Bun *bun.DB
}

// numberRetries bounds how often CreateApplication retries a colliding
// 6-digit application number before giving up.
const numberRetries = 5

// ---------------- APPLICATIONS ----------------

// CreateApplication inserts a new draft application together with one
// unset document row per supported kind. The 6-digit application number
// is generated here, exactly once; collisions against the unique
// constraint are retried with a fresh number.
func (d *DB) CreateApplication(app models.Application) (*models.Application, error) {
	ctx := context.Background()

	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	app.Status = models.StatusDraft
	app.Version = 1
	if app.CreatedAt.IsZero() {
		app.CreatedAt = time.Now().UTC()
	}

	var lastErr error
	for attempt := 0; attempt < numberRetries; attempt++ {
		app.ApplicationNumber = utils.GenerateApplicationNumber()

		lastErr = d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.NewInsert().Model(&app).Exec(ctx); err != nil {
				return err
			}
			docs := make([]models.ApplicationDocument, 0, len(models.AllDocumentKinds))
			for _, kind := range models.AllDocumentKinds {
				docs = append(docs, models.ApplicationDocument{
					ID:            uuid.NewString(),
					ApplicationID: app.ID,
					Kind:          kind,
				})
			}
			_, err := tx.NewInsert().Model(&docs).Exec(ctx)
			return err
		})
		if lastErr == nil {
			return &app, nil
		}
		if !IsUniqueViolation(lastErr) {
			return nil, lastErr
		}
	}
	return nil, fmt.Errorf("could not allocate a unique application number: %w", lastErr)
}

// GetApplicationByID fetches one application by its opaque id.
func (d *DB) GetApplicationByID(id string) (*models.Application, error) {
	var app models.Application
	err := d.Bun.NewSelect().
		Model(&app).
		Where("id = ?", id).
		Limit(1).
		Scan(context.Background())
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &app, nil
}

// GetApplicationByNumber fetches one application by its human-facing
// 6-digit number, the only identifier end users hold.
func (d *DB) GetApplicationByNumber(number string) (*models.Application, error) {
	var app models.Application
	err := d.Bun.NewSelect().
		Model(&app).
		Where("application_number = ?", number).
		Limit(1).
		Scan(context.Background())
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &app, nil
}

// UpdateApplicationVersioned persists a status/assignment change with an
// optimistic-concurrency check: the write only lands if nobody else has
// bumped the version since the caller read it. A lost race surfaces as
// ErrVersionConflict and the caller retries the whole operation.
func (d *DB) UpdateApplicationVersioned(app models.Application) (*models.Application, error) {
	return updateVersioned(context.Background(), d.Bun, app)
}

// UpdateApplicationVersionedTx is the transaction-scoped variant used by
// the assignment transaction.
func UpdateApplicationVersionedTx(ctx context.Context, tx bun.Tx, app models.Application) (*models.Application, error) {
	return updateVersioned(ctx, tx, app)
}

func updateVersioned(ctx context.Context, idb bun.IDB, app models.Application) (*models.Application, error) {
	readVersion := app.Version
	app.Version = readVersion + 1
	if app.UpdatedAt.IsZero() {
		app.UpdatedAt = time.Now().UTC()
	}

	res, err := idb.NewUpdate().
		Model(&app).
		Column("status", "assigned_stall_id", "version",
			"submitted_at", "notarized_at", "approved_at", "rejected_at",
			"won_at", "documents_submitted_at", "activated_at", "updated_at").
		Where("id = ?", app.ID).
		Where("version = ?", readVersion).
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, fmt.Errorf("application %s was modified concurrently: %w", app.ID, models.ErrVersionConflict)
	}
	return &app, nil
}

// ListApplicationsByStatus returns all applications currently in status.
func (d *DB) ListApplicationsByStatus(status models.ApplicationStatus) ([]models.Application, error) {
	var apps []models.Application
	err := d.Bun.NewSelect().
		Model(&apps).
		Where("status = ?", status).
		Order("created_at ASC").
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return apps, nil
}

// ---------------- DOCUMENTS ----------------

// GetDocumentsByApplication fetches every document row for one
// application, in a stable kind order.
func (d *DB) GetDocumentsByApplication(applicationID string) ([]models.ApplicationDocument, error) {
	var docs []models.ApplicationDocument
	err := d.Bun.NewSelect().
		Model(&docs).
		Where("application_id = ?", applicationID).
		Order("kind ASC").
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// UpdateDocument persists one document row after a verdict or
// resubmission.
func (d *DB) UpdateDocument(doc models.ApplicationDocument) error {
	_, err := d.Bun.NewUpdate().
		Model(&doc).
		Column("ref", "verdict", "reason", "resubmitted_at", "updated_at").
		Where("id = ?", doc.ID).
		Exec(context.Background())
	return err
}

// IsUniqueViolation reports whether err came from a unique-constraint
// rejection. Postgres and the sqlite test driver word it differently,
// so this matches on the common substrings.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return models.ErrNotFound
	}
	return err
}

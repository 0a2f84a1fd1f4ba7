package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"ms-onboarding/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// CreateSectionWithStalls inserts a section and generates its stall
// rows, numbered {code}-1 .. {code}-{capacity}, all vacant. Section and
// stalls land in one transaction so a half-created section never exists.
func (d *DB) CreateSectionWithStalls(section models.Section, stallIDs []string) (*models.Section, []models.Stall, error) {
	ctx := context.Background()
	if section.CreatedAt.IsZero() {
		section.CreatedAt = time.Now().UTC()
	}

	stallRows := make([]models.Stall, 0, section.Capacity)
	for n := 1; n <= section.Capacity; n++ {
		stallRows = append(stallRows, models.Stall{
			ID:          stallIDs[n-1],
			SectionID:   section.ID,
			StallNumber: models.StallNumber(section.Code, n),
			Status:      models.StallVacant,
			Version:     1,
			CreatedAt:   section.CreatedAt,
		})
	}

	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(&section).Exec(ctx); err != nil {
			return err
		}
		if len(stallRows) == 0 {
			return nil
		}
		_, err := tx.NewInsert().Model(&stallRows).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return &section, stallRows, nil
}

// GetStallByID fetches one stall.
func (d *DB) GetStallByID(id string) (*models.Stall, error) {
	var stall models.Stall
	err := d.Bun.NewSelect().
		Model(&stall).
		Where("id = ?", id).
		Limit(1).
		Scan(context.Background())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &stall, nil
}

// GetSectionByID fetches one section.
func (d *DB) GetSectionByID(id string) (*models.Section, error) {
	var section models.Section
	err := d.Bun.NewSelect().
		Model(&section).
		Where("id = ?", id).
		Limit(1).
		Scan(context.Background())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &section, nil
}

// ListStalls returns stalls filtered by section and/or status; empty
// filters match everything.
func (d *DB) ListStalls(sectionID string, status models.StallStatus) ([]models.Stall, error) {
	q := d.Bun.NewSelect().Model((*models.Stall)(nil)).Order("stall_number ASC")
	if sectionID != "" {
		q = q.Where("section_id = ?", sectionID)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var stalls []models.Stall
	if err := q.Scan(context.Background(), &stalls); err != nil {
		return nil, err
	}
	return stalls, nil
}

// SetMaintenanceVersioned flips a stall between vacant and maintenance
// with an optimistic version check. Occupied stalls are owned by the
// assignment transaction and are never touched here.
func (d *DB) SetMaintenanceVersioned(stall models.Stall, underMaintenance bool) (*models.Stall, error) {
	readVersion := stall.Version
	if underMaintenance {
		stall.Status = models.StallMaintenance
	} else {
		stall.Status = models.StallVacant
	}
	stall.Version = readVersion + 1
	stall.UpdatedAt = time.Now().UTC()

	res, err := d.Bun.NewUpdate().
		Model(&stall).
		Column("status", "version", "updated_at").
		Where("id = ?", stall.ID).
		Where("version = ?", readVersion).
		Where("status != ?", models.StallOccupied).
		Exec(context.Background())
	if err != nil {
		return nil, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, models.ErrVersionConflict
	}
	return &stall, nil
}

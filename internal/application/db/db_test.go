package db_test

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"

	"ms-onboarding/internal/application/db"
	"ms-onboarding/internal/models"
)

func setupTestDB(t *testing.T) (*db.DB, *bun.DB) {
	// Connect to an in-memory SQLite DB for testing
	sqldb, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}
	// A single shared connection keeps the in-memory database alive.
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	ctx := context.Background()
	for _, model := range []interface{}{
		(*models.Application)(nil),
		(*models.ApplicationDocument)(nil),
	} {
		if _, err := bunDB.NewCreateTable().Model(model).Exec(ctx); err != nil {
			t.Fatalf("Failed to create table for %T: %v", model, err)
		}
	}

	return &db.DB{Bun: bunDB}, bunDB
}

func TestCreateApplication(t *testing.T) {
	appDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	app, err := appDB.CreateApplication(models.Application{
		ApplicantName: "Maria Santos",
		CivilStatus:   models.CivilMarried,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, app.ID)
	assert.Equal(t, models.StatusDraft, app.Status)
	assert.Equal(t, int64(1), app.Version)
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), app.ApplicationNumber)

	// One document row per supported kind, all unreviewed.
	docs, err := appDB.GetDocumentsByApplication(app.ID)
	require.NoError(t, err)
	assert.Len(t, docs, len(models.AllDocumentKinds))
	for _, d := range docs {
		assert.Equal(t, models.VerdictUnset, d.Verdict)
		assert.Equal(t, app.ID, d.ApplicationID)
	}
}

func TestGetApplicationByNumber(t *testing.T) {
	appDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	created, err := appDB.CreateApplication(models.Application{ApplicantName: "Jose Cruz"})
	require.NoError(t, err)

	found, err := appDB.GetApplicationByNumber(created.ApplicationNumber)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = appDB.GetApplicationByNumber("000000")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestGetApplicationByID_NotFound(t *testing.T) {
	appDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	_, err := appDB.GetApplicationByID("missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUpdateApplicationVersioned(t *testing.T) {
	appDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	created, err := appDB.CreateApplication(models.Application{ApplicantName: "Jose Cruz"})
	require.NoError(t, err)

	// A write carrying the version it read lands and bumps the version.
	next := *created
	next.Status = models.StatusPendingNotarization
	updated, err := appDB.UpdateApplicationVersioned(next)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)

	stored, err := appDB.GetApplicationByID(created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingNotarization, stored.Status)
	assert.Equal(t, int64(2), stored.Version)

	// A stale write, still carrying version 1, loses.
	stale := *created
	stale.Status = models.StatusPendingApproval
	_, err = appDB.UpdateApplicationVersioned(stale)
	assert.ErrorIs(t, err, models.ErrVersionConflict)

	// The losing write changed nothing.
	stored, err = appDB.GetApplicationByID(created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingNotarization, stored.Status)
}

func TestListApplicationsByStatus(t *testing.T) {
	appDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	first, err := appDB.CreateApplication(models.Application{ApplicantName: "First"})
	require.NoError(t, err)
	_, err = appDB.CreateApplication(models.Application{ApplicantName: "Second"})
	require.NoError(t, err)

	next := *first
	next.Status = models.StatusPendingNotarization
	_, err = appDB.UpdateApplicationVersioned(next)
	require.NoError(t, err)

	drafts, err := appDB.ListApplicationsByStatus(models.StatusDraft)
	require.NoError(t, err)
	assert.Len(t, drafts, 1)
	assert.Equal(t, "Second", drafts[0].ApplicantName)
}

func TestUpdateDocument(t *testing.T) {
	appDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	created, err := appDB.CreateApplication(models.Application{ApplicantName: "Jose Cruz"})
	require.NoError(t, err)

	docs, err := appDB.GetDocumentsByApplication(created.ID)
	require.NoError(t, err)

	target := docs[0]
	target.Verdict = models.VerdictRejected
	target.Reason = "unreadable scan"
	require.NoError(t, appDB.UpdateDocument(target))

	stored, err := appDB.GetDocumentsByApplication(created.ID)
	require.NoError(t, err)
	for _, d := range stored {
		if d.ID == target.ID {
			assert.Equal(t, models.VerdictRejected, d.Verdict)
			assert.Equal(t, "unreadable scan", d.Reason)
		} else {
			assert.Equal(t, models.VerdictUnset, d.Verdict)
		}
	}
}

func TestIsUniqueViolation(t *testing.T) {
	appDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	created, err := appDB.CreateApplication(models.Application{ApplicantName: "Jose Cruz"})
	require.NoError(t, err)

	clash := models.Application{
		ID:                "other-id",
		ApplicationNumber: created.ApplicationNumber,
		Status:            models.StatusDraft,
		Version:           1,
	}
	_, err = bunDB.NewInsert().Model(&clash).Exec(context.Background())
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err))

	assert.False(t, db.IsUniqueViolation(nil))
}

package application_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-onboarding/internal/application"
	"ms-onboarding/internal/models"
)

func docsFor(app models.Application) []models.ApplicationDocument {
	docs := make([]models.ApplicationDocument, 0, len(models.AllDocumentKinds))
	for _, kind := range models.AllDocumentKinds {
		docs = append(docs, models.ApplicationDocument{
			ID:            "doc-" + string(kind),
			ApplicationID: app.ID,
			Kind:          kind,
		})
	}
	return docs
}

func TestRequiredDocuments_ConditionalKinds(t *testing.T) {
	single := models.Application{CivilStatus: models.CivilSingle}
	assert.NotContains(t, application.RequiredDocuments(single), models.DocMarriageCertificate)
	assert.NotContains(t, application.RequiredDocuments(single), models.DocNotarizedDocument)

	married := models.Application{CivilStatus: models.CivilMarried, NotarizationRequired: true}
	required := application.RequiredDocuments(married)
	assert.Contains(t, required, models.DocMarriageCertificate)
	assert.Contains(t, required, models.DocNotarizedDocument)
	assert.Len(t, required, len(models.AllDocumentKinds))
}

func TestRecordVerdict_RejectionRequiresReason(t *testing.T) {
	ledger := application.NewLedger()
	app := models.Application{ID: "app-1", Status: models.StatusPendingApproval}
	docs := docsFor(app)

	_, _, err := ledger.RecordVerdict(app, docs, models.DocCedula, models.VerdictRejected, "")
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	updated, aggregate, err := ledger.RecordVerdict(app, docs, models.DocCedula, models.VerdictRejected, "document expired")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPartiallyApproved, aggregate)

	idx := -1
	for i, d := range updated {
		if d.Kind == models.DocCedula {
			idx = i
		}
	}
	require.GreaterOrEqual(t, idx, 0)
	assert.Equal(t, models.VerdictRejected, updated[idx].Verdict)
	assert.Equal(t, "document expired", updated[idx].Reason)

	// The input slice is left untouched.
	for _, d := range docs {
		assert.Equal(t, models.VerdictUnset, d.Verdict)
	}
}

func TestRecordVerdict_ApprovalClearsReason(t *testing.T) {
	ledger := application.NewLedger()
	app := models.Application{ID: "app-1", Status: models.StatusPendingApproval}
	docs := docsFor(app)

	docs, _, err := ledger.RecordVerdict(app, docs, models.DocIDFront, models.VerdictRejected, "blurry photo")
	require.NoError(t, err)

	docs, _, err = ledger.RecordVerdict(app, docs, models.DocIDFront, models.VerdictApproved, "")
	require.NoError(t, err)

	for _, d := range docs {
		if d.Kind == models.DocIDFront {
			assert.Equal(t, models.VerdictApproved, d.Verdict)
			assert.Empty(t, d.Reason)
		}
	}
}

func TestRecordVerdict_AggregateDerivation(t *testing.T) {
	ledger := application.NewLedger()
	app := models.Application{ID: "app-1", Status: models.StatusPendingApproval, CivilStatus: models.CivilSingle}
	docs := docsFor(app)

	required := application.RequiredDocuments(app)

	// Approving all but the last keeps the current status.
	var err error
	var aggregate models.ApplicationStatus
	for _, kind := range required[:len(required)-1] {
		docs, aggregate, err = ledger.RecordVerdict(app, docs, kind, models.VerdictApproved, "")
		require.NoError(t, err)
		assert.Equal(t, models.StatusPendingApproval, aggregate)
	}

	// The final approval completes the review.
	docs, aggregate, err = ledger.RecordVerdict(app, docs, required[len(required)-1], models.VerdictApproved, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, aggregate)

	// A single rejection among approvals dominates.
	_, aggregate, err = ledger.RecordVerdict(app, docs, models.DocBusinessPermit, models.VerdictRejected, "permit lapsed")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPartiallyApproved, aggregate)
}

func TestRecordVerdict_IgnoresNonRequiredRejection(t *testing.T) {
	ledger := application.NewLedger()

	// Single applicant: the marriage certificate row exists but is not
	// part of the required set, so its verdict never affects the
	// aggregate.
	app := models.Application{ID: "app-1", Status: models.StatusPendingApproval, CivilStatus: models.CivilSingle}
	docs := docsFor(app)

	docs, aggregate, err := ledger.RecordVerdict(app, docs, models.DocMarriageCertificate, models.VerdictRejected, "not applicable")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingApproval, aggregate)

	for _, kind := range application.RequiredDocuments(app) {
		docs, aggregate, err = ledger.RecordVerdict(app, docs, kind, models.VerdictApproved, "")
		require.NoError(t, err)
	}
	assert.Equal(t, models.StatusApproved, aggregate)
}

func TestResubmit_OnlyRejectedDocuments(t *testing.T) {
	ledger := application.NewLedger()
	app := models.Application{ID: "app-1", Status: models.StatusPartiallyApproved}
	docs := docsFor(app)

	// Unreviewed documents cannot be resubmitted.
	_, err := ledger.Resubmit(app, docs, models.DocCedula, "ref-2")
	assert.ErrorIs(t, err, models.ErrNotEligibleForResubmission)

	docs, _, err = ledger.RecordVerdict(app, docs, models.DocCedula, models.VerdictRejected, "expired")
	require.NoError(t, err)
	docs, _, err = ledger.RecordVerdict(app, docs, models.DocIDBack, models.VerdictApproved, "")
	require.NoError(t, err)

	// Approved documents are tamper-proof.
	_, err = ledger.Resubmit(app, docs, models.DocIDBack, "ref-2")
	assert.ErrorIs(t, err, models.ErrNotEligibleForResubmission)

	// Resubmission needs a document reference.
	_, err = ledger.Resubmit(app, docs, models.DocCedula, "")
	assert.ErrorIs(t, err, models.ErrNotEligibleForResubmission)

	updated, err := ledger.Resubmit(app, docs, models.DocCedula, "ref-2")
	require.NoError(t, err)

	for _, d := range updated {
		switch d.Kind {
		case models.DocCedula:
			assert.Equal(t, models.VerdictUnset, d.Verdict, "resubmission re-opens review")
			assert.Empty(t, d.Reason)
			assert.Equal(t, "ref-2", d.Ref)
			assert.False(t, d.ResubmittedAt.IsZero())
		case models.DocIDBack:
			assert.Equal(t, models.VerdictApproved, d.Verdict, "other verdicts are untouched")
		}
	}
}

func TestHasUnresolvedRejection(t *testing.T) {
	ledger := application.NewLedger()
	app := models.Application{ID: "app-1", Status: models.StatusPendingApproval, CivilStatus: models.CivilSingle}
	docs := docsFor(app)

	assert.False(t, ledger.HasUnresolvedRejection(app, docs))

	docs, _, err := ledger.RecordVerdict(app, docs, models.DocBirthCertificate, models.VerdictRejected, "unreadable")
	require.NoError(t, err)
	assert.True(t, ledger.HasUnresolvedRejection(app, docs))

	docs, err = ledger.Resubmit(app, docs, models.DocBirthCertificate, "ref-2")
	require.NoError(t, err)
	assert.False(t, ledger.HasUnresolvedRejection(app, docs))
}

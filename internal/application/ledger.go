package application

import (
	"fmt"
	"time"

	"ms-onboarding/internal/models"
)

// Ledger tracks per-document verdicts and derives the aggregate review
// status from them. It mutates copies; persistence is the service's job.
type Ledger struct{}

func NewLedger() *Ledger {
	return &Ledger{}
}

// RequiredDocuments returns the set of document kinds this application
// must have approved. Marriage certificate applies to married applicants
// only; the notarized document applies when notarization was required.
func RequiredDocuments(app models.Application) []models.DocumentKind {
	required := make([]models.DocumentKind, 0, len(models.AllDocumentKinds))
	for _, kind := range models.AllDocumentKinds {
		switch kind {
		case models.DocMarriageCertificate:
			if app.CivilStatus != models.CivilMarried {
				continue
			}
		case models.DocNotarizedDocument:
			if !app.NotarizationRequired {
				continue
			}
		}
		required = append(required, kind)
	}
	return required
}

// RecordVerdict stores verdict for one document and recomputes the
// aggregate status. Rejections require a non-empty reason; approvals
// clear any prior reason. The returned aggregate is one of approved,
// partially_approved, or the unchanged current status while documents
// are still unreviewed.
func (l *Ledger) RecordVerdict(app models.Application, docs []models.ApplicationDocument, kind models.DocumentKind, verdict models.Verdict, reason string) ([]models.ApplicationDocument, models.ApplicationStatus, error) {
	if !kind.Valid() {
		return docs, app.Status, fmt.Errorf("unknown document kind %q: %w", kind, models.ErrInvalidTransition)
	}
	if verdict != models.VerdictApproved && verdict != models.VerdictRejected {
		return docs, app.Status, fmt.Errorf("verdict must be approved or rejected, got %q: %w", verdict, models.ErrInvalidTransition)
	}
	if verdict == models.VerdictRejected && reason == "" {
		return docs, app.Status, fmt.Errorf("rejection of %s requires a reason: %w", kind, models.ErrInvalidTransition)
	}

	idx := indexOf(docs, kind)
	if idx < 0 {
		return docs, app.Status, fmt.Errorf("document %s not filed on application %s: %w", kind, app.ID, models.ErrNotFound)
	}

	updated := make([]models.ApplicationDocument, len(docs))
	copy(updated, docs)

	updated[idx].Verdict = verdict
	updated[idx].UpdatedAt = time.Now().UTC()
	if verdict == models.VerdictRejected {
		updated[idx].Reason = reason
	} else {
		updated[idx].Reason = ""
	}

	return updated, l.Aggregate(app, updated), nil
}

// Resubmit replaces a rejected document's reference and resets its
// verdict to unset so it re-enters review. Targeting any document that
// is not currently rejected fails with ErrNotEligibleForResubmission,
// which keeps already-approved documents tamper-proof.
func (l *Ledger) Resubmit(app models.Application, docs []models.ApplicationDocument, kind models.DocumentKind, newRef string) ([]models.ApplicationDocument, error) {
	if !kind.Valid() {
		return docs, fmt.Errorf("unknown document kind %q: %w", kind, models.ErrNotEligibleForResubmission)
	}
	if newRef == "" {
		return docs, fmt.Errorf("resubmission of %s requires a document reference: %w", kind, models.ErrNotEligibleForResubmission)
	}

	idx := indexOf(docs, kind)
	if idx < 0 || docs[idx].Verdict != models.VerdictRejected {
		return docs, fmt.Errorf("document %s is not rejected on application %s: %w", kind, app.ID, models.ErrNotEligibleForResubmission)
	}

	updated := make([]models.ApplicationDocument, len(docs))
	copy(updated, docs)

	now := time.Now().UTC()
	updated[idx].Ref = newRef
	updated[idx].Verdict = models.VerdictUnset
	updated[idx].Reason = ""
	updated[idx].ResubmittedAt = now
	updated[idx].UpdatedAt = now
	return updated, nil
}

// Aggregate derives the application-level review outcome from the
// individual verdicts: any required rejection wins, a full set of
// required approvals completes the review, anything still unset leaves
// the current status alone.
func (l *Ledger) Aggregate(app models.Application, docs []models.ApplicationDocument) models.ApplicationStatus {
	byKind := make(map[models.DocumentKind]models.Verdict, len(docs))
	for _, d := range docs {
		byKind[d.Kind] = d.Verdict
	}

	allApproved := true
	for _, kind := range RequiredDocuments(app) {
		switch byKind[kind] {
		case models.VerdictRejected:
			return models.StatusPartiallyApproved
		case models.VerdictApproved:
		default:
			allApproved = false
		}
	}
	if allApproved {
		return models.StatusApproved
	}
	return app.Status
}

// HasUnresolvedRejection reports whether any required document still
// carries a rejected verdict. Applications with unresolved rejections
// are excluded from raffle candidate pools.
func (l *Ledger) HasUnresolvedRejection(app models.Application, docs []models.ApplicationDocument) bool {
	required := make(map[models.DocumentKind]bool, len(docs))
	for _, kind := range RequiredDocuments(app) {
		required[kind] = true
	}
	for _, d := range docs {
		if required[d.Kind] && d.Verdict == models.VerdictRejected {
			return true
		}
	}
	return false
}

func indexOf(docs []models.ApplicationDocument, kind models.DocumentKind) int {
	for i, d := range docs {
		if d.Kind == kind {
			return i
		}
	}
	return -1
}

package models

import (
	"time"

	"github.com/uptrace/bun"
)

// ApplicationStatus is the closed set of lifecycle states a vendor
// application can be in. Any string outside this set is rejected at the
// boundary; statuses are never free-form.
type ApplicationStatus string

const (
	StatusDraft               ApplicationStatus = "draft"
	StatusPendingNotarization ApplicationStatus = "pending_notarization"
	StatusPendingApproval     ApplicationStatus = "pending_approval"
	StatusApproved            ApplicationStatus = "approved"
	StatusPartiallyApproved   ApplicationStatus = "partially_approved"
	StatusRejected            ApplicationStatus = "rejected"
	StatusApprovedForRaffle   ApplicationStatus = "approved_for_raffle"
	StatusWonRaffle           ApplicationStatus = "won_raffle"
	StatusNotSelected         ApplicationStatus = "not_selected"
	StatusDocumentsSubmitted  ApplicationStatus = "documents_submitted"
	StatusDocumentsApproved   ApplicationStatus = "documents_approved"
	StatusActivated           ApplicationStatus = "activated"
)

// Valid reports whether s is one of the known lifecycle states.
func (s ApplicationStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPendingNotarization, StatusPendingApproval,
		StatusApproved, StatusPartiallyApproved, StatusRejected,
		StatusApprovedForRaffle, StatusWonRaffle, StatusNotSelected,
		StatusDocumentsSubmitted, StatusDocumentsApproved, StatusActivated:
		return true
	}
	return false
}

// Terminal reports whether no further transitions leave s.
func (s ApplicationStatus) Terminal() bool {
	return s == StatusRejected || s == StatusActivated || s == StatusNotSelected
}

// HoldsStall reports whether an application in this status must hold a
// stall assignment. AssignedStallID is non-nil iff the status holds a stall.
func (s ApplicationStatus) HoldsStall() bool {
	switch s {
	case StatusWonRaffle, StatusDocumentsSubmitted, StatusDocumentsApproved, StatusActivated:
		return true
	}
	return false
}

type CivilStatus string

const (
	CivilSingle  CivilStatus = "single"
	CivilMarried CivilStatus = "married"
	CivilWidowed CivilStatus = "widowed"
)

type Application struct {
	bun.BaseModel `bun:"table:applications"`

	ID string `bun:"id,pk"`

	// ApplicationNumber is the 6-digit human-facing identifier, generated
	// once on first persistence and never changed afterwards. It is the
	// only identifier exposed to applicants for status lookup.
	ApplicationNumber string `bun:"application_number,unique"`

	ApplicantName string      `bun:"applicant_name"`
	CivilStatus   CivilStatus `bun:"civil_status"`

	// NotarizationRequired marks applications whose supporting papers must
	// include a notarized document before review can complete.
	NotarizationRequired bool `bun:"notarization_required"`

	Status ApplicationStatus `bun:"status"`

	// AssignedStallID is set only by the assignment transaction.
	AssignedStallID string `bun:"assigned_stall_id,nullzero"`

	// Version is the optimistic-concurrency counter; every status write
	// must carry the version it read, and bumps it by one.
	Version int64 `bun:"version"`

	CreatedAt            time.Time `bun:"created_at"`
	SubmittedAt          time.Time `bun:"submitted_at,nullzero"`
	NotarizedAt          time.Time `bun:"notarized_at,nullzero"`
	ApprovedAt           time.Time `bun:"approved_at,nullzero"`
	RejectedAt           time.Time `bun:"rejected_at,nullzero"`
	WonAt                time.Time `bun:"won_at,nullzero"`
	DocumentsSubmittedAt time.Time `bun:"documents_submitted_at,nullzero"`
	ActivatedAt          time.Time `bun:"activated_at,nullzero"`
	UpdatedAt            time.Time `bun:"updated_at,nullzero"`
}

// DocumentKind identifies one of the supporting papers an applicant files.
type DocumentKind string

const (
	DocPersonPhoto         DocumentKind = "person_photo"
	DocBarangayClearance   DocumentKind = "barangay_clearance"
	DocIDFront             DocumentKind = "id_front"
	DocIDBack              DocumentKind = "id_back"
	DocBirthCertificate    DocumentKind = "birth_certificate"
	DocMarriageCertificate DocumentKind = "marriage_certificate"
	DocNotarizedDocument   DocumentKind = "notarized_document"
	DocBusinessPermit      DocumentKind = "business_permit"
	DocCedula              DocumentKind = "cedula"
)

// AllDocumentKinds lists every supported document kind.
var AllDocumentKinds = []DocumentKind{
	DocPersonPhoto,
	DocBarangayClearance,
	DocIDFront,
	DocIDBack,
	DocBirthCertificate,
	DocMarriageCertificate,
	DocNotarizedDocument,
	DocBusinessPermit,
	DocCedula,
}

// Valid reports whether k is one of the supported document kinds.
func (k DocumentKind) Valid() bool {
	for _, known := range AllDocumentKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Verdict is the tri-state review outcome for a single document.
type Verdict string

const (
	VerdictUnset    Verdict = ""
	VerdictApproved Verdict = "approved"
	VerdictRejected Verdict = "rejected"
)

// ApplicationDocument is one supporting paper on one application.
// Reason is non-empty iff Verdict is rejected.
type ApplicationDocument struct {
	bun.BaseModel `bun:"table:application_documents"`

	ID            string       `bun:"id,pk"`
	ApplicationID string       `bun:"application_id"`
	Kind          DocumentKind `bun:"kind"`
	Ref           string       `bun:"ref,nullzero"`
	Verdict       Verdict      `bun:"verdict,nullzero"`
	Reason        string       `bun:"reason,nullzero"`
	ResubmittedAt time.Time    `bun:"resubmitted_at,nullzero"`
	UpdatedAt     time.Time    `bun:"updated_at,nullzero"`
}

package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-onboarding/internal/application"
	"ms-onboarding/internal/auth"
	"ms-onboarding/internal/models"
	"ms-onboarding/internal/utils"
)

type Handler struct {
	ApplicationService *application.Service
}

type createRequest struct {
	ApplicantName        string             `json:"applicant_name"`
	CivilStatus          models.CivilStatus `json:"civil_status"`
	NotarizationRequired bool               `json:"notarization_required"`
}

func (h *Handler) CreateApplication(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.ApplicantName == "" {
		http.Error(w, "applicant_name is required", http.StatusBadRequest)
		return
	}

	app, err := h.ApplicationService.CreateDraft(req.ApplicantName, req.CivilStatus, req.NotarizationRequired)
	if err != nil {
		writeError(w, "Could not create application", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(utils.SuccessResponse("application created", app))
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, h.ApplicationService.Submit)
}

func (h *Handler) Notarize(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, h.ApplicationService.Notarize)
}

func (h *Handler) ApproveForRaffle(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, h.ApplicationService.ApproveForRaffle)
}

func (h *Handler) MarkDocumentsSubmitted(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, h.ApplicationService.MarkDocumentsSubmitted)
}

func (h *Handler) ActivateAccount(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, h.ApplicationService.ActivateAccount)
}

type verdictRequest struct {
	Verdict models.Verdict `json:"verdict"`
	Reason  string         `json:"reason,omitempty"`
}

func (h *Handler) RecordDocumentVerdict(w http.ResponseWriter, r *http.Request) {
	applicationID := chi.URLParam(r, "applicationId")
	kind := models.DocumentKind(chi.URLParam(r, "kind"))

	var req verdictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	app, err := h.ApplicationService.RecordDocumentVerdict(applicationID, kind, req.Verdict, req.Reason, auth.ActorFrom(r.Context()))
	if err != nil {
		writeError(w, "Could not record verdict", err)
		return
	}

	json.NewEncoder(w).Encode(utils.SuccessResponse("verdict recorded", app))
}

type resubmitRequest struct {
	DocumentRef string `json:"document_ref"`
}

func (h *Handler) ResubmitDocument(w http.ResponseWriter, r *http.Request) {
	applicationID := chi.URLParam(r, "applicationId")
	kind := models.DocumentKind(chi.URLParam(r, "kind"))

	var req resubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	app, err := h.ApplicationService.ResubmitDocument(applicationID, kind, req.DocumentRef, auth.ActorFrom(r.Context()))
	if err != nil {
		writeError(w, "Could not resubmit document", err)
		return
	}

	json.NewEncoder(w).Encode(utils.SuccessResponse("document resubmitted", app))
}

// GetByNumber is the public status lookup; it exposes only the
// application identified by its 6-digit number.
func (h *Handler) GetByNumber(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")

	app, err := h.ApplicationService.GetByNumber(number)
	if err != nil {
		writeError(w, "Application not found", err)
		return
	}

	json.NewEncoder(w).Encode(utils.SuccessResponse("application found", app))
}

func (h *Handler) GetDocuments(w http.ResponseWriter, r *http.Request) {
	applicationID := chi.URLParam(r, "applicationId")

	docs, err := h.ApplicationService.GetDocuments(applicationID)
	if err != nil {
		writeError(w, "Could not load documents", err)
		return
	}

	json.NewEncoder(w).Encode(utils.SuccessResponse("documents", docs))
}

func (h *Handler) runTransition(w http.ResponseWriter, r *http.Request, op func(id string, actor models.Actor) (*models.Application, error)) {
	applicationID := chi.URLParam(r, "applicationId")

	app, err := op(applicationID, auth.ActorFrom(r.Context()))
	if err != nil {
		writeError(w, "Could not update application status", err)
		return
	}

	json.NewEncoder(w).Encode(utils.SuccessResponse("status updated", app))
}

func writeError(w http.ResponseWriter, message string, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(utils.HTTPStatus(err))
	json.NewEncoder(w).Encode(utils.ErrorResponse(message, err))
}

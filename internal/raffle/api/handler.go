package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-onboarding/internal/models"
	"ms-onboarding/internal/raffle"
	"ms-onboarding/internal/sse"
	"ms-onboarding/internal/utils"
)

type Handler struct {
	RaffleService *raffle.Service
	Emitter       *sse.AssignmentEventEmitter
}

// ConductRaffle triggers the assignment transaction for one stall. The
// winner is decided entirely server-side; the response is the committed
// result the UI may animate.
func (h *Handler) ConductRaffle(w http.ResponseWriter, r *http.Request) {
	stallID := chi.URLParam(r, "stallId")

	result, err := h.RaffleService.Assign(r.Context(), stallID)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(utils.HTTPStatus(err))
		json.NewEncoder(w).Encode(utils.ErrorResponse("Could not conduct raffle", err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(utils.SuccessResponse("stall assigned", result))
}

// GetRaffle returns the completed raffle for a stall with participants.
func (h *Handler) GetRaffle(w http.ResponseWriter, r *http.Request) {
	stallID := chi.URLParam(r, "stallId")

	event, participants, err := h.RaffleService.RaffleDetails(stallID)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(utils.HTTPStatus(err))
		json.NewEncoder(w).Encode(utils.ErrorResponse("Raffle not found", err))
		return
	}

	json.NewEncoder(w).Encode(utils.SuccessResponse("raffle", map[string]interface{}{
		"event":        event,
		"participants": participants,
	}))
}

// GetCertificate returns the certificate awarded to an application.
func (h *Handler) GetCertificate(w http.ResponseWriter, r *http.Request) {
	applicationID := chi.URLParam(r, "applicationId")

	cert, err := h.RaffleService.CertificateFor(applicationID)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(utils.HTTPStatus(err))
		json.NewEncoder(w).Encode(utils.ErrorResponse("Certificate not found", err))
		return
	}

	json.NewEncoder(w).Encode(utils.SuccessResponse("certificate", cert))
}

// StreamAssignments serves the SSE stream of live raffle results. An
// optional ?section= query narrows the stream to one section.
func (h *Handler) StreamAssignments(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	var results chan models.AssignmentResult
	if sectionID := r.URL.Query().Get("section"); sectionID != "" {
		results = h.Emitter.SubscribeToSection(r.Context(), sectionID)
	} else {
		results = h.Emitter.SubscribeToAll(r.Context())
	}

	for result := range results {
		payload, err := json.Marshal(result)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "event: assignment\ndata: %s\n\n", payload)
		flusher.Flush()
	}
}

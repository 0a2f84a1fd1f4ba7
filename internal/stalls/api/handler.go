package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-onboarding/internal/models"
	"ms-onboarding/internal/stalls"
	"ms-onboarding/internal/utils"
)

type Handler struct {
	StallService *stalls.Service
}

type createSectionRequest struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

func (h *Handler) CreateSection(w http.ResponseWriter, r *http.Request) {
	var req createSectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	section, stallRows, err := h.StallService.CreateSection(req.Code, req.Name, req.Capacity)
	if err != nil {
		writeError(w, "Could not create section", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(utils.SuccessResponse("section created", map[string]interface{}{
		"section": section,
		"stalls":  stallRows,
	}))
}

func (h *Handler) ListStalls(w http.ResponseWriter, r *http.Request) {
	sectionID := r.URL.Query().Get("section")
	status := models.StallStatus(r.URL.Query().Get("status"))

	stallRows, err := h.StallService.ListStalls(sectionID, status)
	if err != nil {
		writeError(w, "Could not list stalls", err)
		return
	}

	json.NewEncoder(w).Encode(utils.SuccessResponse("stalls", stallRows))
}

func (h *Handler) GetStall(w http.ResponseWriter, r *http.Request) {
	stallID := chi.URLParam(r, "stallId")

	stall, err := h.StallService.GetStall(stallID)
	if err != nil {
		writeError(w, "Stall not found", err)
		return
	}

	json.NewEncoder(w).Encode(utils.SuccessResponse("stall", stall))
}

type maintenanceRequest struct {
	UnderMaintenance bool `json:"under_maintenance"`
}

func (h *Handler) SetMaintenance(w http.ResponseWriter, r *http.Request) {
	stallID := chi.URLParam(r, "stallId")

	var req maintenanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	stall, err := h.StallService.SetMaintenance(stallID, req.UnderMaintenance)
	if err != nil {
		writeError(w, "Could not update stall", err)
		return
	}

	json.NewEncoder(w).Encode(utils.SuccessResponse("stall updated", stall))
}

func writeError(w http.ResponseWriter, message string, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(utils.HTTPStatus(err))
	json.NewEncoder(w).Encode(utils.ErrorResponse(message, err))
}

package analytics_api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ms-onboarding/internal/analytics"
	"ms-onboarding/internal/logger"
)

// Handler handles analytics HTTP endpoints
type Handler struct {
	Service *analytics.Service
	Logger  *logger.Logger
}

// NewHandler creates a new analytics handler
func NewHandler(service *analytics.Service, logger *logger.Logger) *Handler {
	return &Handler{
		Service: service,
		Logger:  logger,
	}
}

// RegisterRoutes registers the analytics routes on a chi router
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/analytics", func(r chi.Router) {
		r.Get("/pipeline", h.GetPipelineAnalytics)
		r.Get("/occupancy", h.GetOccupancyAnalytics)
	})
}

// GetPipelineAnalytics returns application counts per status and the
// daily intake over the requested trailing window (default 30 days).
func (h *Handler) GetPipelineAnalytics(w http.ResponseWriter, r *http.Request) {
	days := 30
	if raw := r.URL.Query().Get("days"); raw != "" {
		if _, err := fmt.Sscanf(raw, "%d", &days); err != nil || days < 1 {
			http.Error(w, "days must be a positive integer", http.StatusBadRequest)
			return
		}
	}
	since := time.Now().UTC().AddDate(0, 0, -days)

	result, err := h.Service.GetPipelineAnalytics(r.Context(), since)
	if err != nil {
		h.Logger.Error("ANALYTICS", fmt.Sprintf("pipeline aggregation failed: %v", err))
		http.Error(w, "Could not load pipeline analytics", http.StatusInternalServerError)
		return
	}

	sendJSONResponse(w, http.StatusOK, result)
}

// GetOccupancyAnalytics returns per-section stall occupancy.
func (h *Handler) GetOccupancyAnalytics(w http.ResponseWriter, r *http.Request) {
	result, err := h.Service.GetOccupancyAnalytics(r.Context())
	if err != nil {
		h.Logger.Error("ANALYTICS", fmt.Sprintf("occupancy aggregation failed: %v", err))
		http.Error(w, "Could not load occupancy analytics", http.StatusInternalServerError)
		return
	}

	sendJSONResponse(w, http.StatusOK, result)
}

// sendJSONResponse is a helper function to send JSON responses
func sendJSONResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/draftwise/draftwise/internal/services/confidence"
	"github.com/draftwise/draftwise/pkg/httpext"
	"github.com/rs/zerolog/log"
)

// OutcomeRequest records user feedback about a previously delivered answer.
type OutcomeRequest struct {
	ResponseID    string `json:"response_id" validate:"required"`
	Outcome       *bool  `json:"outcome" validate:"required"`
	FeedbackNotes string `json:"feedback_notes"`
}

// HandleOutcome updates the calibration log with advice feedback.
func HandleOutcome(confidenceService *confidence.Service, w http.ResponseWriter, r *http.Request) {
	if confidenceService == nil {
		httpext.JsonError(w, "Confidence logging is not configured", http.StatusServiceUnavailable)
		return
	}

	var req OutcomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn().Err(err).Msg("Client sent malformed outcome request")
		httpext.JsonError(w, "Invalid request format", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		httpext.JsonError(w, "Invalid request: "+err.Error(), http.StatusBadRequest)
		return
	}

	updated, err := confidenceService.UpdateOutcome(r.Context(), req.ResponseID, *req.Outcome, req.FeedbackNotes)
	if err != nil {
		log.Error().Err(err).Str("response_id", req.ResponseID).Msg("Failed to update outcome")
		httpext.JsonError(w, "Failed to update outcome", http.StatusInternalServerError)
		return
	}
	if !updated {
		httpext.JsonError(w, "No logged response with that id", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"updated": true})
}

// HandleConfidenceStats reports Brier-score calibration over a trailing window.
func HandleConfidenceStats(confidenceService *confidence.Service, w http.ResponseWriter, r *http.Request) {
	if confidenceService == nil {
		httpext.JsonError(w, "Confidence logging is not configured", http.StatusServiceUnavailable)
		return
	}

	days := 7
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			httpext.JsonError(w, "days must be a positive integer", http.StatusBadRequest)
			return
		}
		days = parsed
	}

	stats, err := confidenceService.BrierScore(r.Context(), days)
	if err != nil {
		log.Error().Err(err).Msg("Failed to compute confidence stats")
		httpext.JsonError(w, "Failed to compute stats", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// HandleRecentResponses lists recent confidence log entries for monitoring.
func HandleRecentResponses(confidenceService *confidence.Service, w http.ResponseWriter, r *http.Request) {
	if confidenceService == nil {
		httpext.JsonError(w, "Confidence logging is not configured", http.StatusServiceUnavailable)
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 200 {
			httpext.JsonError(w, "limit must be between 1 and 200", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	entries, err := confidenceService.RecentEntries(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list recent responses")
		httpext.JsonError(w, "Failed to list responses", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []confidence.Entry{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}

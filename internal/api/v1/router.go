// Package v1 assembles the HTTP routes for the advice API.
package v1

import (
	"encoding/json"
	"net/http"

	"github.com/draftwise/draftwise/internal/api/v1/handlers"
	"github.com/draftwise/draftwise/internal/api/v1/middleware"
	"github.com/draftwise/draftwise/internal/services"
	"github.com/gorilla/mux"
)

// NewRouter wires every v1 endpoint onto a mux router.
func NewRouter(svcs *services.Services) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/v1").Subrouter()
	api.Use(middleware.RequireAuth())

	adviceService := svcs.GetAdviceService()
	confidenceService := svcs.GetConfidenceService()

	adviceRoutes := api.NewRoute().Subrouter()
	adviceRoutes.Use(middleware.RateLimit("advice"))
	adviceRoutes.HandleFunc("/advice/stream", func(w http.ResponseWriter, r *http.Request) {
		handlers.HandleAdviceStream(adviceService, w, r)
	}).Methods(http.MethodPost)
	adviceRoutes.HandleFunc("/advice", func(w http.ResponseWriter, r *http.Request) {
		handlers.HandleAdvice(adviceService, w, r)
	}).Methods(http.MethodPost)
	adviceRoutes.HandleFunc("/advice/socket", func(w http.ResponseWriter, r *http.Request) {
		handlers.HandleAdviceSocket(adviceService, w, r)
	})

	api.HandleFunc("/outcome", func(w http.ResponseWriter, r *http.Request) {
		handlers.HandleOutcome(confidenceService, w, r)
	}).Methods(http.MethodPost)
	api.HandleFunc("/confidence/stats", func(w http.ResponseWriter, r *http.Request) {
		handlers.HandleConfidenceStats(confidenceService, w, r)
	}).Methods(http.MethodGet)
	api.HandleFunc("/confidence/recent", func(w http.ResponseWriter, r *http.Request) {
		handlers.HandleRecentResponses(confidenceService, w, r)
	}).Methods(http.MethodGet)

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

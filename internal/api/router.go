// Package api wires the HTTP surface: the streaming converse endpoint,
// advisor record reads, auxiliary tools, and health.
package api

import (
	"github.com/gorilla/mux"

	"github.com/adviceline/concierge/internal/api/recovery"
	"github.com/adviceline/concierge/internal/benefits"
	"github.com/adviceline/concierge/internal/deadlines"
	"github.com/adviceline/concierge/internal/health"
	"github.com/adviceline/concierge/internal/services"
	"github.com/adviceline/concierge/internal/store"
)

// Deps collects everything the HTTP layer serves.
type Deps struct {
	Engine    TurnRunner
	Sessions  Sessions
	Store     store.Store
	Deadlines *deadlines.Tracker
	Benefits  *benefits.Calculator
	Locator   *services.Locator
	Monitor   *health.Monitor
}

// NewRouter builds the service router with all routes registered.
func NewRouter(d Deps) *mux.Router {
	router := mux.NewRouter()
	router.Use(recovery.Middleware)

	converse := NewConverseHandler(d.Engine, d.Sessions)
	records := NewRecordsHandler(d.Store, d.Deadlines, d.Benefits, d.Locator)
	healthHandler := NewHealthHandler(d.Monitor)

	// Conversation
	router.HandleFunc("/api/converse", converse.Converse).Methods("POST")
	router.HandleFunc("/api/converse/ws", converse.ConverseWS).Methods("GET")

	// Per-user records
	router.HandleFunc("/api/users/{userId}/notes", records.CreateNote).Methods("POST")
	router.HandleFunc("/api/users/{userId}/notes", records.ListNotes).Methods("GET")
	router.HandleFunc("/api/users/{userId}/bookings", records.ListBookings).Methods("GET")
	router.HandleFunc("/api/users/{userId}/cases", records.ListUserCases).Methods("GET")
	router.HandleFunc("/api/users/{userId}/letters", records.ListLetters).Methods("GET")
	router.HandleFunc("/api/users/{userId}/deadlines", records.CreateDeadline).Methods("POST")
	router.HandleFunc("/api/users/{userId}/deadlines", records.ListDeadlines).Methods("GET")

	// Advisor queue
	router.HandleFunc("/api/cases/pending", records.ListPendingCases).Methods("GET")

	// Tools
	router.HandleFunc("/api/benefits/estimate", records.EstimateBenefits).Methods("POST")
	router.HandleFunc("/api/services", records.FindServices).Methods("GET")

	// Health
	router.HandleFunc("/api/health", healthHandler.CheckHealth).Methods("GET")
	router.HandleFunc("/api/health/ready", healthHandler.CheckReadiness).Methods("GET")

	return router
}

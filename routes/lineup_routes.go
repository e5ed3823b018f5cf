package routes

import (
	"lineup_server/controllers"
	"lineup_server/services"

	"github.com/gorilla/mux"
)

// RegisterLineupRoutes sets up routes for lineup rooms under /api/lineup
func RegisterLineupRoutes(r *mux.Router, lineup *services.LineupService, rotation *services.RotationService, eliminations *services.EliminationService) {
	controller := controllers.NewLineupController(lineup, rotation, eliminations)

	lineupRouter := r.PathPrefix("/api/lineup").Subrouter()

	lineupRouter.HandleFunc("/sessions", controller.HandleCreateSession).Methods("POST")
	lineupRouter.HandleFunc("/sessions/{sessionId}", controller.HandleState).Methods("GET")
	lineupRouter.HandleFunc("/sessions/{sessionId}/join", controller.HandleJoin).Methods("POST")
	lineupRouter.HandleFunc("/sessions/{sessionId}/leave", controller.HandleLeave).Methods("POST")
	lineupRouter.HandleFunc("/sessions/{sessionId}/rotationRequest", controller.HandleRotationRequest).Methods("POST")
	lineupRouter.HandleFunc("/eligibility", controller.HandleEligibility).Methods("GET")
}

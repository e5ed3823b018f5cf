package routes

import (
	"lineup_server/controllers"
	"lineup_server/services"

	"github.com/gorilla/mux"
)

// RegisterSpeedDatingRoutes sets up routes for the speed-dating round under /api/speedDating
func RegisterSpeedDatingRoutes(r *mux.Router, coordinator *services.Coordinator, connections *services.ConnectionService) {
	controller := controllers.NewSpeedDatingController(coordinator, connections)

	speedDatingRouter := r.PathPrefix("/api/speedDating").Subrouter()

	speedDatingRouter.HandleFunc("/search", controller.HandleStartSearch).Methods("POST")
	speedDatingRouter.HandleFunc("/status", controller.HandleStatus).Methods("GET")
	speedDatingRouter.HandleFunc("/select", controller.HandleSelect).Methods("POST")
	speedDatingRouter.HandleFunc("/connect", controller.HandleConnect).Methods("POST")
	speedDatingRouter.HandleFunc("/continue", controller.HandleContinue).Methods("POST")
	speedDatingRouter.HandleFunc("/endChat", controller.HandleEndChat).Methods("POST")
	speedDatingRouter.HandleFunc("/rejectionReview", controller.HandleRejectionReview).Methods("POST")
	speedDatingRouter.HandleFunc("/back", controller.HandleBack).Methods("POST")
	speedDatingRouter.HandleFunc("/feedback", controller.HandleFeedback).Methods("POST")
}

package routes

import (
	"lineup_server/controllers"
	"lineup_server/services"

	"github.com/gorilla/mux"
)

// RegisterUserProfileRoutes sets up routes for profiles under /api/profiles
func RegisterUserProfileRoutes(r *mux.Router, profiles *services.UserProfileService) {
	controller := controllers.NewUserProfileController(profiles)

	profileRouter := r.PathPrefix("/api/profiles").Subrouter()

	profileRouter.HandleFunc("", controller.HandleUpsertProfile).Methods("POST")
	profileRouter.HandleFunc("", controller.HandleGetProfile).Methods("GET")
}

package routes

import (
	"lineup_server/controllers"
	"lineup_server/services"

	"github.com/gorilla/mux"
)

// RegisterNotificationRoutes sets up routes for notifications under /api/notifications
func RegisterNotificationRoutes(r *mux.Router, notifications *services.NotificationService) {
	controller := controllers.NewNotificationController(notifications)

	notificationRouter := r.PathPrefix("/api/notifications").Subrouter()

	notificationRouter.HandleFunc("", controller.HandleList).Methods("GET")
	notificationRouter.HandleFunc("/markSeen", controller.HandleMarkSeen).Methods("POST")
}

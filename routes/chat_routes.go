package routes

import (
	"lineup_server/controllers"
	"lineup_server/services"

	"github.com/gorilla/mux"
)

// RegisterChatRoutes sets up routes for chat messages under /api/chat
func RegisterChatRoutes(r *mux.Router, connections *services.ConnectionService) {
	controller := controllers.NewChatController(connections)

	chatRouter := r.PathPrefix("/api/chat").Subrouter()

	chatRouter.HandleFunc("/messages", controller.HandleGetMessages).Methods("GET")
	chatRouter.HandleFunc("/sendMessage", controller.HandleSendMessage).Methods("POST")
}

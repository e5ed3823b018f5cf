package controllers

import (
	"context"
	"encoding/json"
	"net/http"

	"lineup_server/services"
)

// NotificationController handles HTTP requests for notifications
type NotificationController struct {
	Notifications *services.NotificationService
}

// NewNotificationController creates a new NotificationController instance
func NewNotificationController(notifications *services.NotificationService) *NotificationController {
	return &NotificationController{Notifications: notifications}
}

// HandleList returns the user's notifications, newest first
func (nc *NotificationController) HandleList(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}

	notifications, err := nc.Notifications.ListForUser(context.Background(), userID, 50)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(notifications)
}

// HandleMarkSeen flips the seen flag on one notification
func (nc *NotificationController) HandleMarkSeen(w http.ResponseWriter, r *http.Request) {
	var request struct {
		UserID    string `json:"userId"`
		CreatedAt string `json:"createdAt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if request.UserID == "" || request.CreatedAt == "" {
		http.Error(w, "UserId and CreatedAt are required", http.StatusBadRequest)
		return
	}

	if err := nc.Notifications.MarkSeen(context.Background(), request.UserID, request.CreatedAt); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"message": "Notification marked seen"})
}

package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"lineup_server/services"
)

// ChatController handles HTTP requests for chat messages
type ChatController struct {
	Connections *services.ConnectionService
}

// NewChatController creates a new ChatController instance
func NewChatController(connections *services.ConnectionService) *ChatController {
	return &ChatController{Connections: connections}
}

// HandleGetMessages fetches the latest messages for a room
func (cc *ChatController) HandleGetMessages(w http.ResponseWriter, r *http.Request) {
	conversationID := r.URL.Query().Get("conversationId")
	if conversationID == "" {
		http.Error(w, "conversationId is required", http.StatusBadRequest)
		return
	}

	limit := int32(50)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = int32(parsed)
		}
	}

	messages, err := cc.Connections.GetMessages(context.Background(), conversationID, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(messages)
}

// HandleSendMessage appends a message to a room
func (cc *ChatController) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	var request struct {
		ConversationID string `json:"conversationId"`
		SenderID       string `json:"senderId"`
		Content        string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if request.ConversationID == "" || request.SenderID == "" || request.Content == "" {
		http.Error(w, "ConversationId, SenderId, and Content are required", http.StatusBadRequest)
		return
	}

	message, err := cc.Connections.AddMessage(context.Background(), request.ConversationID, request.SenderID, request.Content, false)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(message)
}

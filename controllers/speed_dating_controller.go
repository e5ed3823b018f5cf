package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"lineup_server/models"
	"lineup_server/services"
)

// SpeedDatingController handles HTTP requests for the speed-dating round
type SpeedDatingController struct {
	Coordinator *services.Coordinator
	Connections *services.ConnectionService
}

// NewSpeedDatingController creates a new SpeedDatingController instance
func NewSpeedDatingController(coordinator *services.Coordinator, connections *services.ConnectionService) *SpeedDatingController {
	return &SpeedDatingController{Coordinator: coordinator, Connections: connections}
}

// HandleStartSearch begins a search round for the user
func (sc *SpeedDatingController) HandleStartSearch(w http.ResponseWriter, r *http.Request) {
	var request struct {
		UserID string `json:"userId"`
		AgeMin int    `json:"ageMin"`
		AgeMax int    `json:"ageMax"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if request.UserID == "" {
		http.Error(w, "UserId is required", http.StatusBadRequest)
		return
	}

	session, err := sc.Coordinator.StartSearch(context.Background(), request.UserID, request.AgeMin, request.AgeMax)
	if err != nil {
		if errors.Is(err, services.ErrActionInProgress) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		log.Println("Error starting search:", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(session)
}

// HandleStatus reports the user's state-machine position and countdowns
func (sc *SpeedDatingController) HandleStatus(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}

	status, err := sc.Coordinator.Status(context.Background(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(status)
}

// HandleSelect enters the detail view for one candidate
func (sc *SpeedDatingController) HandleSelect(w http.ResponseWriter, r *http.Request) {
	var request struct {
		UserID      string `json:"userId"`
		CandidateID string `json:"candidateId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if request.UserID == "" || request.CandidateID == "" {
		http.Error(w, "UserId and CandidateId are required", http.StatusBadRequest)
		return
	}

	if err := sc.Coordinator.SelectCandidate(request.UserID, request.CandidateID); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"message": "Candidate selected"})
}

// HandleConnect creates (or reuses) the chat room with the selected candidate
func (sc *SpeedDatingController) HandleConnect(w http.ResponseWriter, r *http.Request) {
	var request struct {
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if request.UserID == "" {
		http.Error(w, "UserId is required", http.StatusBadRequest)
		return
	}

	conn, err := sc.Coordinator.ConnectWith(context.Background(), request.UserID)
	if err != nil {
		if errors.Is(err, services.ErrActionInProgress) || errors.Is(err, services.ErrInvalidTransition) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		log.Println("Error connecting:", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(conn)
}

// HandleContinue records the user's permanent opt-in
func (sc *SpeedDatingController) HandleContinue(w http.ResponseWriter, r *http.Request) {
	var request struct {
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	promoted, err := sc.Coordinator.ContinuePermanently(context.Background(), request.UserID)
	if err != nil {
		if errors.Is(err, services.ErrInvalidTransition) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]bool{"promoted": promoted})
}

// HandleEndChat exits the chat into the rejection flow
func (sc *SpeedDatingController) HandleEndChat(w http.ResponseWriter, r *http.Request) {
	var request struct {
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	if err := sc.Coordinator.EndChat(context.Background(), request.UserID); err != nil {
		if errors.Is(err, services.ErrInvalidTransition) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"message": "Chat ended"})
}

// HandleRejectionReview stores the leaving party's reason (or skip)
func (sc *SpeedDatingController) HandleRejectionReview(w http.ResponseWriter, r *http.Request) {
	var request struct {
		UserID  string `json:"userId"`
		Reason  string `json:"reason"`
		Skipped bool   `json:"skipped"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	if err := sc.Coordinator.SubmitRejection(context.Background(), request.UserID, request.Reason, request.Skipped); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"message": "Review submitted"})
}

// HandleBack exits the round from any state
func (sc *SpeedDatingController) HandleBack(w http.ResponseWriter, r *http.Request) {
	var request struct {
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	if err := sc.Coordinator.Back(context.Background(), request.UserID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"message": "Exited"})
}

// HandleFeedback stores feature feedback
func (sc *SpeedDatingController) HandleFeedback(w http.ResponseWriter, r *http.Request) {
	var feedback models.SpeedDatingFeedback
	if err := json.NewDecoder(r.Body).Decode(&feedback); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if feedback.UserID == "" {
		http.Error(w, "UserId is required", http.StatusBadRequest)
		return
	}

	if err := sc.Connections.SubmitFeedback(context.Background(), feedback); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"message": "Feedback submitted"})
}

package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"lineup_server/models"
	"lineup_server/services"
)

// LineupController handles HTTP requests for lineup rooms
type LineupController struct {
	Lineup       *services.LineupService
	Rotation     *services.RotationService
	Eliminations *services.EliminationService
}

// NewLineupController creates a new LineupController instance
func NewLineupController(lineup *services.LineupService, rotation *services.RotationService, eliminations *services.EliminationService) *LineupController {
	return &LineupController{Lineup: lineup, Rotation: rotation, Eliminations: eliminations}
}

// HandleCreateSession opens a new lineup room
func (lc *LineupController) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	var request struct {
		PrimaryGender string `json:"primaryGender"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	session, err := lc.Lineup.CreateSession(context.Background(), request.PrimaryGender)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(session)
}

// HandleJoin admits a contestant, subject to the elimination cooldown
func (lc *LineupController) HandleJoin(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]
	var request struct {
		UserID string `json:"userId"`
		Gender string `json:"gender"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if request.UserID == "" || (request.Gender != models.GenderMale && request.Gender != models.GenderFemale) {
		http.Error(w, "UserId and a valid Gender are required", http.StatusBadRequest)
		return
	}

	record, err := lc.Lineup.Join(context.Background(), sessionID, request.UserID, request.Gender)
	if err != nil {
		if errors.Is(err, services.ErrOnCooldown) {
			http.Error(w, err.Error(), http.StatusForbidden)
			return
		}
		log.Println("Error joining lineup:", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(record)
}

// HandleLeave completes the contestant's run
func (lc *LineupController) HandleLeave(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]
	var request struct {
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	if err := lc.Lineup.Leave(context.Background(), sessionID, request.UserID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"message": "Left lineup"})
}

// HandleState returns the room snapshot for the UI
func (lc *LineupController) HandleState(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	state, err := lc.Lineup.State(context.Background(), sessionID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(state)
}

// HandleRotationRequest records a client-submitted rotation ask
func (lc *LineupController) HandleRotationRequest(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]
	var request struct {
		UserID string `json:"userId"`
		Gender string `json:"gender"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if request.UserID == "" || request.Gender == "" {
		http.Error(w, "UserId and Gender are required", http.StatusBadRequest)
		return
	}

	rotationRequest, err := lc.Rotation.SubmitRequest(context.Background(), sessionID, request.UserID, request.Gender)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(rotationRequest)
}

// HandleEligibility reports whether a user may rejoin lineups
func (lc *LineupController) HandleEligibility(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}

	eligible, elimination, err := lc.Eliminations.CanRejoin(context.Background(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{"eligible": eligible}
	if elimination != nil {
		response["eligibleAt"] = elimination.EligibleAt
	}
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

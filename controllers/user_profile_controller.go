package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"lineup_server/models"
	"lineup_server/services"
)

// UserProfileController handles HTTP requests for user profiles
type UserProfileController struct {
	Profiles *services.UserProfileService
}

// NewUserProfileController creates a new UserProfileController instance
func NewUserProfileController(profiles *services.UserProfileService) *UserProfileController {
	return &UserProfileController{Profiles: profiles}
}

// HandleUpsertProfile creates or replaces a profile
func (pc *UserProfileController) HandleUpsertProfile(w http.ResponseWriter, r *http.Request) {
	var profile models.UserProfile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	saved, err := pc.Profiles.UpsertUserProfile(context.Background(), profile)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(saved)
}

// HandleGetProfile fetches a profile by id
func (pc *UserProfileController) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}

	profile, err := pc.Profiles.GetUserProfile(context.Background(), userID)
	if err != nil {
		if errors.Is(err, services.ErrItemNotFound) {
			http.Error(w, "Profile not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(profile)
}

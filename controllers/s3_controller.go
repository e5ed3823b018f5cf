package controllers

import (
	"context"
	"encoding/json"
	"net/http"

	"lineup_server/services"
)

// S3Controller handles presigned URL requests for profile photos
type S3Controller struct {
	S3 *services.S3Service
}

// NewS3Controller creates a new S3Controller instance
func NewS3Controller(s3 *services.S3Service) *S3Controller {
	return &S3Controller{S3: s3}
}

// HandleUploadURL returns a presigned PUT URL for a new photo
func (sc *S3Controller) HandleUploadURL(w http.ResponseWriter, r *http.Request) {
	var request struct {
		FileName string `json:"fileName"`
		FileType string `json:"fileType"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if request.FileName == "" || request.FileType == "" {
		http.Error(w, "FileName and FileType are required", http.StatusBadRequest)
		return
	}

	url, key, err := sc.S3.GenerateUploadURL(context.Background(), request.FileName, request.FileType)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"uploadUrl": url, "key": key})
}

// HandleReadURL returns a presigned GET URL for an existing photo
func (sc *S3Controller) HandleReadURL(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		http.Error(w, "key is required", http.StatusBadRequest)
		return
	}

	url, err := sc.S3.GenerateReadURL(context.Background(), key)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"readUrl": url})
}

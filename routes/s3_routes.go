package routes

import (
	"lineup_server/controllers"
	"lineup_server/services"

	"github.com/gorilla/mux"
)

// RegisterS3Routes sets up presigned photo URL routes under /api/photos
func RegisterS3Routes(r *mux.Router, s3 *services.S3Service) {
	controller := controllers.NewS3Controller(s3)

	s3Router := r.PathPrefix("/api/photos").Subrouter()

	s3Router.HandleFunc("/uploadUrl", controller.HandleUploadURL).Methods("POST")
	s3Router.HandleFunc("/readUrl", controller.HandleReadURL).Methods("GET")
}

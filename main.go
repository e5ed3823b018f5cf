package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"lineup_server/cache"
	"lineup_server/config"
	"lineup_server/routes"
	"lineup_server/services"
	"lineup_server/socket"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize DynamoDB client and service
	log.Println("Initializing DynamoDB client...")
	dynamoClient := services.InitializeDynamoDBClient()
	dynamoService := &services.DynamoService{Client: dynamoClient}
	log.Println("DynamoDB client initialized.")

	// Guard locks back the coordinator's re-entrancy protection
	guards := cache.NewGuardCache(cfg)
	if err := guards.Ping(context.Background()); err != nil {
		log.Printf("⚠️ Redis unreachable (%v); guards degrade to unguarded", err)
	}

	// Socket server carries the live subscription surface
	socketServer := socket.NewServer()
	go func() {
		if err := socketServer.IO().Serve(); err != nil {
			log.Printf("❌ Socket server error: %v", err)
		}
	}()
	defer socketServer.IO().Close()

	// Initialize Services
	profileService := &services.UserProfileService{Dynamo: dynamoService}
	compatibilityService := services.NewCompatibilityService()
	speedDatingService := &services.SpeedDatingService{
		Dynamo:        dynamoService,
		Profiles:      profileService,
		Compatibility: compatibilityService,
		SessionMaxAge: cfg.SessionMaxAge,
	}
	connectionService := &services.ConnectionService{
		Dynamo:    dynamoService,
		Profiles:  profileService,
		Broadcast: socketServer,
	}
	coordinator := &services.Coordinator{
		Sessions:          speedDatingService,
		Connections:       connectionService,
		Guards:            guards,
		SearchCountdown:   cfg.SearchCountdown,
		DetailCountdown:   cfg.DetailCountdown,
		ChatCountdown:     cfg.ChatCountdown,
		SearchRetryDelay:  cfg.SearchRetryDelay,
		SearchMaxAttempts: cfg.SearchMaxAttempts,
		GuardTTL:          cfg.GuardTTL,
	}
	rotationService := &services.RotationService{
		Dynamo:            dynamoService,
		Broadcast:         socketServer,
		SpotlightDuration: cfg.SpotlightDuration,
		RequestMaxAge:     cfg.RequestMaxAge,
	}
	eliminationService := &services.EliminationService{
		Dynamo:       dynamoService,
		Rotation:     rotationService,
		PopThreshold: cfg.PopThreshold,
		Cooldown:     cfg.EliminationCooldown,
	}
	lineupService := &services.LineupService{
		Dynamo:       dynamoService,
		Rotation:     rotationService,
		Eliminations: eliminationService,
	}
	notificationService := &services.NotificationService{Dynamo: dynamoService}

	// Periodic server jobs
	scheduler := services.NewScheduler()
	scheduler.Add(services.Job{
		Name:     "rotation",
		Interval: cfg.RotationInterval,
		Run: func(ctx context.Context) error {
			if err := rotationService.RunSweep(ctx); err != nil {
				return err
			}
			return rotationService.ProcessRequests(ctx)
		},
	})
	scheduler.Add(services.Job{
		Name:     "elimination",
		Interval: cfg.EliminationInterval,
		Run:      eliminationService.RunSweep,
	})
	scheduler.Start(context.Background())
	defer scheduler.Stop()

	// Initialize the router
	r := mux.NewRouter()

	// Register a welcome route
	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "Welcome to Lineup")
	}).Methods("GET")

	// Register a health check endpoint
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		response := map[string]string{"status": "healthy"}
		json.NewEncoder(w).Encode(response)
	}).Methods("GET")

	r.Handle("/socket.io/", socketServer.IO())

	// Register routes
	routes.RegisterUserProfileRoutes(r, profileService)
	routes.RegisterSpeedDatingRoutes(r, coordinator, connectionService)
	routes.RegisterChatRoutes(r, connectionService)
	routes.RegisterLineupRoutes(r, lineupService, rotationService, eliminationService)
	routes.RegisterNotificationRoutes(r, notificationService)

	if cfg.S3Bucket != "" {
		s3Service, err := services.NewS3Service(context.Background(), cfg.AWSRegion, cfg.S3Bucket)
		if err != nil {
			log.Fatalf("Failed to initialize S3: %v", err)
		}
		routes.RegisterS3Routes(r, s3Service)
	}

	// Add CORS middleware
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"}, // Adjust for specific domains if needed
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(r)

	server := &http.Server{Addr: ":" + cfg.Port, Handler: corsHandler}

	go func() {
		log.Printf("Starting server on port %s...\n", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down...")
	if err := server.Shutdown(context.Background()); err != nil {
		log.Printf("❌ Shutdown error: %v", err)
	}
}

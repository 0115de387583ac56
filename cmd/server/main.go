package main

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/greenpanipat/plantation-tracker/internal/server/api"
	"github.com/greenpanipat/plantation-tracker/internal/server/services"
	"github.com/greenpanipat/plantation-tracker/internal/server/setup"
	"github.com/greenpanipat/plantation-tracker/internal/server/storage"
	"github.com/greenpanipat/plantation-tracker/pkg/version"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var rootCmd = &cobra.Command{
	Use:   "plantation-server",
	Short: "Plantation Tracker - community plant registry with map and leaderboard",
	Long:  "Server component for Plantation Tracker providing the HTTP API backed by PostgreSQL, Firebase auth and cloud image storage",
	// Default to serve command if no subcommand provided
	Run: func(cmd *cobra.Command, args []string) {
		runServe(cmd, args)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Run:   runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.GetVersion("plantation-server"))
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, adminCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	log.Printf("=== Plantation Tracker Server ===")
	log.Printf("%s", version.GetVersion("plantation-server"))
	log.Println()

	// Step 1: Setup database (auto-start Docker PostgreSQL if needed)
	log.Println("=== Database Setup ===")
	if err := setup.CheckAndSetupDatabase(); err != nil {
		log.Fatalf("Failed to setup database: %v", err)
	}

	// Step 2: Connect to database
	log.Println("Connecting to database...")
	db, err := storage.NewPostgresDB()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	// Step 3: Run embedded migrations
	log.Println("Running database migrations...")
	if err := runEmbeddedMigrations(db.DB.DB); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Migrations complete")

	// Initialize repositories
	plantRepo := storage.NewPlantRepository(db)
	userRepo := storage.NewUserRepository(db)

	ctx := context.Background()

	// Initialize Firebase auth (optional - only if configured)
	var firebaseService *services.FirebaseService
	if fbService, err := services.NewFirebaseService(ctx); err != nil {
		log.Printf("Warning: Firebase not configured: %v", err)
		log.Println("Google sign-in will not be available; only form-field identity is accepted")
	} else {
		firebaseService = fbService
		log.Println("Firebase authentication initialized")
	}

	// Initialize image storage (optional - only if Firebase configured)
	var ingestor services.ImageIngestor
	if imgService, err := services.NewImageService(ctx); err != nil {
		log.Printf("Warning: image storage not configured: %v", err)
		log.Println("Plant photo uploads will be rejected")
	} else {
		ingestor = imgService
		log.Println("Image storage initialized")
	}

	// Geofence bounds
	bounds := services.BoundsFromEnv()
	log.Printf("Geofence bounds: %s", bounds)

	// Initialize services
	plantService := services.NewPlantService(plantRepo, ingestor, bounds)
	userService := services.NewUserService(userRepo, firebaseService)
	statsService := services.NewStatsService(plantRepo)

	// Initialize handlers
	authHandler := api.NewAuthHandler(userService)
	plantHandler := api.NewPlantHandler(plantService)
	userHandler := api.NewUserHandler(userService)
	statsHandler := api.NewStatsHandler(statsService)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(api.CORSMiddleware)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","service":"plantation-tracker"}`))
	})

	// Public routes
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", authHandler.Login)

		r.Get("/plants", plantHandler.ListPlants)
		r.Get("/plants/{id}", plantHandler.GetPlant)
		r.Get("/leaderboard", statsHandler.Leaderboard)
		r.Get("/user/{id}", userHandler.GetUser)

		// Creation accepts a session or the userId/userName form fallback
		r.With(api.OptionalAuthMiddleware).Post("/plants", plantHandler.CreatePlant)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(api.AuthMiddleware)
			r.Delete("/plants", plantHandler.DeletePlant)
			r.Put("/user/{id}", userHandler.UpdateUser)
		})

		// Admin dashboard
		r.Route("/admin", func(r chi.Router) {
			r.Use(api.AuthMiddleware)
			r.Use(api.AdminMiddleware)
			r.Get("/stats", statsHandler.AdminStats)
			r.Get("/chart", statsHandler.Chart)
		})
	})

	// Get server config
	host := os.Getenv("API_HOST")
	if host == "" {
		host = "0.0.0.0"
	}

	port := os.Getenv("API_PORT")
	if port == "" {
		port = "8080"
	}
	addr := fmt.Sprintf("%s:%s", host, port)

	// Create server
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	go func() {
		log.Printf("Server starting on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

func runEmbeddedMigrations(db *sql.DB) error {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	// Sort migrations by filename to ensure correct order
	var migrations []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".sql" {
			migrations = append(migrations, entry.Name())
		}
	}
	sort.Strings(migrations)

	for _, migration := range migrations {
		log.Printf("Applying migration: %s", migration)

		content, err := migrationsFS.ReadFile(filepath.Join("migrations", migration))
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", migration, err)
		}

		if _, err := db.Exec(string(content)); err != nil {
			// Log warning but continue if objects already exist
			log.Printf("Warning: Migration %s: %v (may already exist)", migration, err)
		}
	}

	return nil
}

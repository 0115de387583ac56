package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/greenpanipat/plantation-tracker/internal/server/services"
	"github.com/greenpanipat/plantation-tracker/internal/server/storage"
	"github.com/greenpanipat/plantation-tracker/pkg/models"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Administrative commands",
	Long:  "Administrative commands for inspecting plant registrations and cleaning up records",
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show registration totals and the contributor leaderboard",
	Run:   runStatsCommand,
}

var listPlantsCmd = &cobra.Command{
	Use:   "list-plants",
	Short: "List registered plants, optionally filtered by owner",
	Run:   runListPlantsCommand,
}

var deletePlantCmd = &cobra.Command{
	Use:   "delete-plant",
	Short: "Delete a plant record by ID",
	Run:   runDeletePlantCommand,
}

func init() {
	listPlantsCmd.Flags().String("owner", "", "Filter by owner user ID")

	deletePlantCmd.Flags().String("id", "", "Plant ID to delete (required)")
	deletePlantCmd.MarkFlagRequired("id")

	adminCmd.AddCommand(
		statsCmd,
		listPlantsCmd,
		deletePlantCmd,
	)
}

// adminDB loads the environment and opens a database connection for
// admin commands. Callers must Close() the returned handle.
func adminDB() *storage.DB {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	db, err := storage.NewPostgresDB()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	return db
}

func runStatsCommand(cmd *cobra.Command, args []string) {
	db := adminDB()
	defer db.Close()

	plantRepo := storage.NewPlantRepository(db)
	statsService := services.NewStatsService(plantRepo)

	ctx := context.Background()

	stats, err := statsService.AdminStats(ctx)
	if err != nil {
		log.Fatalf("Failed to compute stats: %v", err)
	}

	fmt.Println("Plantation Tracker Statistics")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Total plants:       %d\n", stats.TotalPlants)
	fmt.Printf("Contributors:       %d\n", stats.TotalUsers)
	fmt.Printf("Planted this week:  %d\n", stats.RecentPlants)
	fmt.Println()

	entries, err := statsService.Leaderboard(ctx)
	if err != nil {
		log.Fatalf("Failed to compute leaderboard: %v", err)
	}

	if len(entries) == 0 {
		fmt.Println("No registrations yet.")
		return
	}

	fmt.Printf("Leaderboard (top %d):\n", len(entries))
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("%-4s %-40s %-8s\n", "#", "Contributor", "Plants")
	fmt.Println(strings.Repeat("=", 60))
	for i, entry := range entries {
		fmt.Printf("%-4d %-40s %-8d\n", i+1, entry.UserName, entry.PlantCount)
	}
	fmt.Println(strings.Repeat("=", 60))
}

func runListPlantsCommand(cmd *cobra.Command, args []string) {
	owner, _ := cmd.Flags().GetString("owner")

	db := adminDB()
	defer db.Close()

	plantRepo := storage.NewPlantRepository(db)

	ctx := context.Background()

	var plants []models.Plant
	var err error
	if owner != "" {
		plants, err = plantRepo.ListByOwner(ctx, owner)
	} else {
		plants, err = plantRepo.ListAll(ctx)
	}
	if err != nil {
		log.Fatalf("Failed to list plants: %v", err)
	}

	if len(plants) == 0 {
		fmt.Println("No plants found.")
		return
	}

	fmt.Printf("Plants (%d):\n", len(plants))
	fmt.Println(strings.Repeat("=", 110))
	fmt.Printf("%-36s %-10s %-25s %-25s %-20s\n", "ID", "PID", "Name", "Owner", "Planted At")
	fmt.Println(strings.Repeat("=", 110))

	for _, plant := range plants {
		fmt.Printf("%-36s %-10s %-25s %-25s %-20s\n",
			plant.ID,
			plant.PID,
			truncateString(plant.Name, 25),
			truncateString(plant.UserName, 25),
			plant.CreatedAt.Format("2006-01-02 15:04:05"),
		)
	}
	fmt.Println(strings.Repeat("=", 110))
}

func runDeletePlantCommand(cmd *cobra.Command, args []string) {
	idArg, _ := cmd.Flags().GetString("id")

	id, err := uuid.Parse(idArg)
	if err != nil {
		log.Fatalf("Invalid plant ID: %v", err)
	}

	db := adminDB()
	defer db.Close()

	plantRepo := storage.NewPlantRepository(db)

	ctx := context.Background()

	plant, err := plantRepo.GetByID(ctx, id)
	if err != nil {
		log.Fatalf("Failed to find plant: %v", err)
	}
	if plant == nil {
		log.Fatalf("Plant not found: %s", idArg)
	}

	fmt.Printf("Plant found:\n")
	fmt.Printf("  ID: %s\n", plant.ID)
	fmt.Printf("  PID: %s\n", plant.PID)
	fmt.Printf("  Name: %s\n", plant.Name)
	fmt.Printf("  Owner: %s (%s)\n", plant.UserName, plant.UserID)
	fmt.Printf("  Location: %.6f, %.6f\n", plant.Lat, plant.Lng)
	fmt.Printf("  Planted: %s\n", plant.CreatedAt.Format(time.RFC3339))

	// Confirm deletion
	fmt.Print("\nAre you sure you want to delete this plant? (yes/no): ")
	var confirm string
	fmt.Scanln(&confirm)

	if strings.ToLower(confirm) != "yes" {
		fmt.Println("Deletion cancelled.")
		return
	}

	fmt.Println("Deleting plant from database...")
	if err := plantRepo.Delete(ctx, id); err != nil {
		log.Fatalf("Failed to delete plant: %v", err)
	}

	fmt.Println("✓ Plant deleted successfully!")
}

// Helper function to truncate strings for display
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

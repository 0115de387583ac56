package models

import (
	"time"

	"github.com/google/uuid"
)

type Plant struct {
	ID          uuid.UUID `json:"id" db:"id"`
	PID         string    `json:"pid" db:"pid"`
	Name        string    `json:"name" db:"name"`
	Description *string   `json:"description,omitempty" db:"description"`
	ImageURL    *string   `json:"image_url" db:"image_url"`
	Lat         float64   `json:"lat" db:"lat"`
	Lng         float64   `json:"lng" db:"lng"`
	UserID      string    `json:"user_id" db:"user_id"`
	UserName    string    `json:"user_name" db:"user_name"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// LeaderboardEntry is derived from the plant collection, never persisted.
type LeaderboardEntry struct {
	UserID     string `json:"user_id"`
	UserName   string `json:"user_name"`
	PlantCount int    `json:"plant_count"`
}

// AdminStats holds the aggregate counters shown on the admin dashboard.
type AdminStats struct {
	TotalPlants  int `json:"total_plants"`
	TotalUsers   int `json:"total_users"`
	RecentPlants int `json:"recent_plants"`
}

// WeeklyBucket is one point of the admin chart: the Monday (UTC) that starts
// the week, formatted YYYY-MM-DD, and the number of plants created that week.
type WeeklyBucket struct {
	Week   string `json:"week"`
	Plants int    `json:"plants"`
}

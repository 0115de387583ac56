package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/greenpanipat/plantation-tracker/pkg/models"
)

// CreateTestUser creates a test user in the database
func (tdb *TestDB) CreateTestUser(ctx context.Context, email, displayName string) *models.User {
	tdb.t.Helper()

	id := "firebase-" + uuid.New().String()[:8]
	now := time.Now().UTC()

	_, err := tdb.DB.ExecContext(ctx, `
		INSERT INTO users (id, email, display_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
	`, id, email, displayName, now)
	if err != nil {
		tdb.t.Fatalf("Failed to create test user: %v", err)
	}

	return &models.User{
		ID:          id,
		Email:       email,
		DisplayName: displayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// DeleteTestUser removes a test user and their plants from the database
func (tdb *TestDB) DeleteTestUser(ctx context.Context, userID string) {
	tdb.t.Helper()
	_, _ = tdb.DB.ExecContext(ctx, "DELETE FROM plants WHERE user_id = $1", userID)
	_, _ = tdb.DB.ExecContext(ctx, "DELETE FROM users WHERE id = $1", userID)
}

// CreateTestPlant creates a test plant in the database
func (tdb *TestDB) CreateTestPlant(ctx context.Context, pid, name, userID, userName string) *models.Plant {
	tdb.t.Helper()

	id := uuid.New()
	now := time.Now().UTC()

	plant := &models.Plant{
		ID:        id,
		PID:       pid,
		Name:      name,
		Lat:       29.39,
		Lng:       76.97,
		UserID:    userID,
		UserName:  userName,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := tdb.DB.ExecContext(ctx, `
		INSERT INTO plants (id, pid, name, lat, lng, user_id, user_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
	`, plant.ID, plant.PID, plant.Name, plant.Lat, plant.Lng, plant.UserID, plant.UserName, now)
	if err != nil {
		tdb.t.Fatalf("Failed to create test plant: %v", err)
	}

	return plant
}

// DeleteTestPlant removes a test plant from the database
func (tdb *TestDB) DeleteTestPlant(ctx context.Context, plantID uuid.UUID) {
	tdb.t.Helper()
	_, _ = tdb.DB.ExecContext(ctx, "DELETE FROM plants WHERE id = $1", plantID)
}

// GenerateTestEmail generates a unique test email
func GenerateTestEmail() string {
	return fmt.Sprintf("test-%s@example.com", uuid.New().String()[:8])
}

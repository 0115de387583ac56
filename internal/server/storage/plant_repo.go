package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/greenpanipat/plantation-tracker/internal/apperror"
	"github.com/greenpanipat/plantation-tracker/pkg/models"
	"github.com/greenpanipat/plantation-tracker/pkg/utils"
)

type PlantRepository struct {
	db *DB
}

func NewPlantRepository(db *DB) *PlantRepository {
	return &PlantRepository{db: db}
}

// Insert persists a new plant. A pid collision surfaces as
// apperror.ErrUniqueViolation so the allocator can retry with a fallback
// identifier instead of failing the request.
func (r *PlantRepository) Insert(ctx context.Context, plant *models.Plant) error {
	query := `
		INSERT INTO plants (id, pid, name, description, image_url, lat, lng, user_id, user_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`
	if plant.ID == uuid.Nil {
		plant.ID = uuid.New()
	}
	err := r.db.QueryRowContext(ctx, query,
		plant.ID, plant.PID, plant.Name, plant.Description, plant.ImageURL,
		plant.Lat, plant.Lng, plant.UserID, plant.UserName,
	).Scan(&plant.ID, &plant.CreatedAt, &plant.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("pid %q: %w", plant.PID, apperror.ErrUniqueViolation)
		}
		return err
	}
	return nil
}

func (r *PlantRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Plant, error) {
	var plant models.Plant
	query := `SELECT * FROM plants WHERE id = $1`
	err := r.db.GetContext(ctx, &plant, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &plant, nil
}

func (r *PlantRepository) PIDExists(ctx context.Context, pid string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM plants WHERE pid = $1)`
	err := r.db.GetContext(ctx, &exists, query, pid)
	return exists, err
}

// MaxNumericPID returns the highest purely-numeric pid currently stored, or 0
// when none exists. Non-numeric pids (fallback identifiers) are ignored.
func (r *PlantRepository) MaxNumericPID(ctx context.Context) (int64, error) {
	var max int64
	query := `SELECT COALESCE(MAX(pid::bigint), 0) FROM plants WHERE pid ~ '^[0-9]+$'`
	err := r.db.GetContext(ctx, &max, query)
	return max, err
}

func (r *PlantRepository) ListAll(ctx context.Context) ([]models.Plant, error) {
	var plants []models.Plant
	query := `SELECT * FROM plants ORDER BY created_at DESC`
	err := r.db.SelectContext(ctx, &plants, query)
	return plants, err
}

func (r *PlantRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Plant, error) {
	var plants []models.Plant
	query := `SELECT * FROM plants WHERE user_id = $1 ORDER BY created_at DESC`
	err := r.db.SelectContext(ctx, &plants, query, ownerID)
	return plants, err
}

// Search matches term as a case-insensitive substring of name, description or
// owner name. A purely numeric term additionally matches pid exactly.
func (r *PlantRepository) Search(ctx context.Context, term string) ([]models.Plant, error) {
	var plants []models.Plant
	pattern := "%" + term + "%"
	if utils.IsNumeric(term) {
		query := `
			SELECT * FROM plants
			WHERE name ILIKE $1 OR description ILIKE $1 OR user_name ILIKE $1 OR pid = $2
			ORDER BY created_at DESC
		`
		err := r.db.SelectContext(ctx, &plants, query, pattern, term)
		return plants, err
	}
	query := `
		SELECT * FROM plants
		WHERE name ILIKE $1 OR description ILIKE $1 OR user_name ILIKE $1
		ORDER BY created_at DESC
	`
	err := r.db.SelectContext(ctx, &plants, query, pattern)
	return plants, err
}

func (r *PlantRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM plants WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/greenpanipat/plantation-tracker/internal/apperror"
	"github.com/greenpanipat/plantation-tracker/pkg/models"
)

const minNameLength = 2

// Search results are capped; the search page shows a short list, not the full
// collection.
const maxSearchResults = 20

// PlantStore is the record store capability the service depends on. The
// Postgres repository is the one concrete implementation; tests use an
// in-memory fake.
type PlantStore interface {
	PIDStore
	Insert(ctx context.Context, plant *models.Plant) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Plant, error)
	ListAll(ctx context.Context) ([]models.Plant, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Plant, error)
	Search(ctx context.Context, term string) ([]models.Plant, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type PlantService struct {
	store     PlantStore
	allocator *PIDAllocator
	ingestor  ImageIngestor
	bounds    Bounds
}

func NewPlantService(store PlantStore, ingestor ImageIngestor, bounds Bounds) *PlantService {
	return &PlantService{
		store:     store,
		allocator: NewPIDAllocator(store),
		ingestor:  ingestor,
		bounds:    bounds,
	}
}

// CreatePlantInput is a proposed plant submission. Lat/Lng are pointers so a
// missing coordinate is distinguishable from 0.
type CreatePlantInput struct {
	Name        string
	Description string
	Lat         *float64
	Lng         *float64
	OwnerID     string
	OwnerName   string
	Image       *ImageUpload
}

// CreatePlant runs the registration workflow: validate, geofence, allocate an
// identifier, upload the image, persist. The upload strictly precedes the
// insert so a failed upload never leaves a row with a dangling image
// reference; the reverse (an orphaned object after a crash) is a tolerated
// leak since the row is authoritative.
func (s *PlantService) CreatePlant(ctx context.Context, input CreatePlantInput) (*models.Plant, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}

	lat, lng := *input.Lat, *input.Lng
	if !s.bounds.Contains(lat, lng) {
		return nil, apperror.Geofence(lat, lng, s.bounds.MinLat, s.bounds.MaxLat, s.bounds.MinLng, s.bounds.MaxLng)
	}

	pid, err := s.allocator.Next(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate pid: %w", err)
	}

	var imageURL *string
	if input.Image != nil {
		if s.ingestor == nil {
			return nil, apperror.Upload(errors.New("image storage not configured"))
		}
		url, err := s.ingestor.Ingest(ctx, input.OwnerID, input.Image)
		if err != nil {
			return nil, apperror.Upload(err)
		}
		imageURL = &url
	}

	plant := &models.Plant{
		PID:      pid,
		Name:     strings.TrimSpace(input.Name),
		ImageURL: imageURL,
		Lat:      lat,
		Lng:      lng,
		UserID:   input.OwnerID,
		UserName: input.OwnerName,
	}
	if desc := strings.TrimSpace(input.Description); desc != "" {
		plant.Description = &desc
	}

	if err := s.insertWithFallback(ctx, plant); err != nil {
		return nil, err
	}
	return plant, nil
}

// insertWithFallback retries a pid collision at insert time through the
// fallback tiers: timestamp-based, then fully random. Exhausting both is
// fatal for the request.
func (s *PlantService) insertWithFallback(ctx context.Context, plant *models.Plant) error {
	err := s.store.Insert(ctx, plant)
	if err == nil || !errors.Is(err, apperror.ErrUniqueViolation) {
		return err
	}

	plant.PID = s.allocator.FallbackPID()
	err = s.store.Insert(ctx, plant)
	if err == nil || !errors.Is(err, apperror.ErrUniqueViolation) {
		return err
	}

	plant.PID = s.allocator.RandomPID()
	err = s.store.Insert(ctx, plant)
	if err != nil && errors.Is(err, apperror.ErrUniqueViolation) {
		return apperror.AllocationExhausted(plant.PID)
	}
	return err
}

func (s *PlantService) validate(input CreatePlantInput) error {
	if utf8.RuneCountInString(strings.TrimSpace(input.Name)) < minNameLength {
		return apperror.Validation("name", fmt.Sprintf("name must be at least %d characters", minNameLength))
	}
	if input.OwnerID == "" {
		return apperror.Validation("userId", "owner identity is required")
	}
	if input.OwnerName == "" {
		return apperror.Validation("userName", "owner name is required")
	}
	if input.Lat == nil || input.Lng == nil {
		return apperror.Validation("lat", "latitude and longitude are required")
	}
	return nil
}

// ListPlants returns plants newest-first, optionally narrowed by a free-text
// query or an owner filter. The query wins when both are given.
func (s *PlantService) ListPlants(ctx context.Context, query, ownerID string) ([]models.Plant, error) {
	query = strings.TrimSpace(query)
	if query != "" {
		plants, err := s.store.Search(ctx, query)
		if err != nil {
			return nil, err
		}
		if len(plants) > maxSearchResults {
			plants = plants[:maxSearchResults]
		}
		return plants, nil
	}
	if ownerID != "" {
		return s.store.ListByOwner(ctx, ownerID)
	}
	return s.store.ListAll(ctx)
}

func (s *PlantService) GetPlant(ctx context.Context, id uuid.UUID) (*models.Plant, error) {
	plant, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if plant == nil {
		return nil, apperror.NotFound("plant", id.String())
	}
	return plant, nil
}

// DeletePlant removes a plant. Only the owner or an admin may delete;
// everyone else gets Forbidden whether or not the row exists is revealed by
// the earlier NotFound check.
func (s *PlantService) DeletePlant(ctx context.Context, id uuid.UUID, requesterID string, requesterIsAdmin bool) error {
	plant, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if plant == nil {
		return apperror.NotFound("plant", id.String())
	}
	if plant.UserID != requesterID && !requesterIsAdmin {
		return apperror.Forbidden("only the owner or an admin can delete a plant")
	}
	return s.store.Delete(ctx, id)
}

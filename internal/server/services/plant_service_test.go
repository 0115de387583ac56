package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/greenpanipat/plantation-tracker/internal/apperror"
	"github.com/greenpanipat/plantation-tracker/pkg/models"
)

// fakePlantStore is an in-memory PlantStore. Inserts enforce pid uniqueness
// the way the database unique constraint does. hiddenPIDs are treated as free
// by PIDExists but taken by Insert, to force the insert-time collision path.
type fakePlantStore struct {
	mu         sync.Mutex
	plants     []models.Plant
	pids       map[string]struct{}
	hiddenPIDs map[string]struct{}
}

func newFakePlantStore() *fakePlantStore {
	return &fakePlantStore{
		pids:       make(map[string]struct{}),
		hiddenPIDs: make(map[string]struct{}),
	}
}

func (f *fakePlantStore) reservePID(pid string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pids[pid] = struct{}{}
}

func (f *fakePlantStore) hidePID(pid string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hiddenPIDs[pid] = struct{}{}
}

func (f *fakePlantStore) MaxNumericPID(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var max int64
	for pid := range f.pids {
		if n, err := strconv.ParseInt(pid, 10, 64); err == nil && n > max {
			max = n
		}
	}
	return max, nil
}

func (f *fakePlantStore) PIDExists(ctx context.Context, pid string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.pids[pid]
	return ok, nil
}

func (f *fakePlantStore) Insert(ctx context.Context, plant *models.Plant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, taken := f.pids[plant.PID]; taken {
		return fmt.Errorf("insert plant: %w", apperror.ErrUniqueViolation)
	}
	if _, taken := f.hiddenPIDs[plant.PID]; taken {
		return fmt.Errorf("insert plant: %w", apperror.ErrUniqueViolation)
	}
	if plant.ID == uuid.Nil {
		plant.ID = uuid.New()
	}
	f.pids[plant.PID] = struct{}{}
	f.plants = append(f.plants, *plant)
	return nil
}

func (f *fakePlantStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Plant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.plants {
		if f.plants[i].ID == id {
			p := f.plants[i]
			return &p, nil
		}
	}
	return nil, nil
}

func (f *fakePlantStore) ListAll(ctx context.Context) ([]models.Plant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Plant, len(f.plants))
	copy(out, f.plants)
	return out, nil
}

func (f *fakePlantStore) ListByOwner(ctx context.Context, ownerID string) ([]models.Plant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Plant
	for _, p := range f.plants {
		if p.UserID == ownerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePlantStore) Search(ctx context.Context, term string) ([]models.Plant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	term = strings.ToLower(term)
	var out []models.Plant
	for _, p := range f.plants {
		if strings.Contains(strings.ToLower(p.Name), term) || p.PID == term {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePlantStore) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.plants {
		if f.plants[i].ID == id {
			delete(f.pids, f.plants[i].PID)
			f.plants = append(f.plants[:i], f.plants[i+1:]...)
			return nil
		}
	}
	return nil
}

// fakeIngestor records uploads and optionally fails.
type fakeIngestor struct {
	err   error
	calls int
}

func (f *fakeIngestor) Ingest(ctx context.Context, ownerID string, upload *ImageUpload) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if upload.Data != nil {
		io.Copy(io.Discard, upload.Data)
	}
	return "https://storage.googleapis.com/test-bucket/plants/" + ownerID + "/test.jpg", nil
}

func testBounds() Bounds {
	return Bounds{MinLat: 29.2, MaxLat: 29.6, MinLng: 76.7, MaxLng: 77.2}
}

func ptr(v float64) *float64 { return &v }

func validInput() CreatePlantInput {
	return CreatePlantInput{
		Name:      "Neem Tree",
		Lat:       ptr(29.39),
		Lng:       ptr(76.97),
		OwnerID:   "user-1",
		OwnerName: "Asha",
	}
}

func TestPlantService_CreatePlant(t *testing.T) {
	store := newFakePlantStore()
	svc := NewPlantService(store, &fakeIngestor{}, testBounds())
	ctx := context.Background()

	input := validInput()
	input.Name = "  Neem Tree  "
	input.Description = "   "

	plant, err := svc.CreatePlant(ctx, input)
	if err != nil {
		t.Fatalf("CreatePlant failed: %v", err)
	}

	if plant.PID != "1001" {
		t.Errorf("expected first pid 1001, got %s", plant.PID)
	}
	if plant.Name != "Neem Tree" {
		t.Errorf("expected trimmed name, got %q", plant.Name)
	}
	if plant.Description != nil {
		t.Errorf("expected blank description to be dropped, got %q", *plant.Description)
	}
	if plant.ID == uuid.Nil {
		t.Error("expected plant ID to be assigned")
	}

	// Second registration continues the sequence
	second, err := svc.CreatePlant(ctx, validInput())
	if err != nil {
		t.Fatalf("second CreatePlant failed: %v", err)
	}
	if second.PID != "1002" {
		t.Errorf("expected second pid 1002, got %s", second.PID)
	}
}

func TestPlantService_CreatePlant_GeofenceViolation(t *testing.T) {
	store := newFakePlantStore()
	svc := NewPlantService(store, &fakeIngestor{}, testBounds())

	input := validInput()
	input.Lat = ptr(28.6) // Delhi, outside the service area
	input.Lng = ptr(77.2)

	_, err := svc.CreatePlant(context.Background(), input)
	if !errors.Is(err, apperror.ErrGeofence) {
		t.Fatalf("expected geofence violation, got %v", err)
	}

	if len(store.plants) != 0 {
		t.Errorf("expected no rows after rejected registration, got %d", len(store.plants))
	}
}

func TestPlantService_CreatePlant_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreatePlantInput)
	}{
		{"name too short", func(in *CreatePlantInput) { in.Name = "x" }},
		{"name only whitespace", func(in *CreatePlantInput) { in.Name = "   " }},
		{"missing owner id", func(in *CreatePlantInput) { in.OwnerID = "" }},
		{"missing owner name", func(in *CreatePlantInput) { in.OwnerName = "" }},
		{"missing latitude", func(in *CreatePlantInput) { in.Lat = nil }},
		{"missing longitude", func(in *CreatePlantInput) { in.Lng = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakePlantStore()
			svc := NewPlantService(store, &fakeIngestor{}, testBounds())

			input := validInput()
			tt.mutate(&input)

			_, err := svc.CreatePlant(context.Background(), input)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestPlantService_CreatePlant_UploadFailurePrecedesInsert(t *testing.T) {
	store := newFakePlantStore()
	ingestor := &fakeIngestor{err: errors.New("bucket unavailable")}
	svc := NewPlantService(store, ingestor, testBounds())

	input := validInput()
	input.Image = &ImageUpload{Filename: "photo.jpg", ContentType: "image/jpeg", Data: strings.NewReader("fake")}

	_, err := svc.CreatePlant(context.Background(), input)
	if !errors.Is(err, apperror.ErrUpload) {
		t.Fatalf("expected upload error, got %v", err)
	}

	if len(store.plants) != 0 {
		t.Errorf("expected no row after failed upload, got %d", len(store.plants))
	}
}

func TestPlantService_CreatePlant_ImageWithoutStorageConfigured(t *testing.T) {
	store := newFakePlantStore()
	svc := NewPlantService(store, nil, testBounds())

	input := validInput()
	input.Image = &ImageUpload{Filename: "photo.jpg", ContentType: "image/jpeg", Data: strings.NewReader("fake")}

	_, err := svc.CreatePlant(context.Background(), input)
	if !errors.Is(err, apperror.ErrUpload) {
		t.Fatalf("expected upload error when storage is not configured, got %v", err)
	}

	if len(store.plants) != 0 {
		t.Errorf("expected no row, got %d", len(store.plants))
	}

	// A submission without an image still works on the same service
	if _, err := svc.CreatePlant(context.Background(), validInput()); err != nil {
		t.Fatalf("imageless CreatePlant failed: %v", err)
	}
}

func TestPlantService_CreatePlant_WithImage(t *testing.T) {
	store := newFakePlantStore()
	ingestor := &fakeIngestor{}
	svc := NewPlantService(store, ingestor, testBounds())

	input := validInput()
	input.Image = &ImageUpload{Filename: "photo.png", ContentType: "image/png", Data: strings.NewReader("fake")}

	plant, err := svc.CreatePlant(context.Background(), input)
	if err != nil {
		t.Fatalf("CreatePlant failed: %v", err)
	}

	if ingestor.calls != 1 {
		t.Errorf("expected one upload, got %d", ingestor.calls)
	}
	if plant.ImageURL == nil || !strings.HasPrefix(*plant.ImageURL, "https://storage.googleapis.com/") {
		t.Errorf("expected public image URL, got %v", plant.ImageURL)
	}
}

func TestPlantService_CreatePlant_CollisionFallsBackToPrefixedPID(t *testing.T) {
	store := newFakePlantStore()
	svc := NewPlantService(store, &fakeIngestor{}, testBounds())

	// The allocator sees 1001 as free but the insert collides, simulating a
	// concurrent writer taking the pid between probe and insert.
	store.hidePID("1001")

	plant, err := svc.CreatePlant(context.Background(), validInput())
	if err != nil {
		t.Fatalf("CreatePlant failed: %v", err)
	}

	if !strings.HasPrefix(plant.PID, "P") {
		t.Errorf("expected fallback pid with P prefix, got %s", plant.PID)
	}
	if len(plant.PID) > 20 {
		t.Errorf("pid %s exceeds column width", plant.PID)
	}
}

// collidingStore rejects every insert as a pid collision, driving the
// registration through all fallback tiers.
type collidingStore struct {
	*fakePlantStore
}

func (c *collidingStore) Insert(ctx context.Context, plant *models.Plant) error {
	return fmt.Errorf("insert plant: %w", apperror.ErrUniqueViolation)
}

func TestPlantService_CreatePlant_AllTiersCollidingIsExhausted(t *testing.T) {
	store := &collidingStore{fakePlantStore: newFakePlantStore()}
	svc := NewPlantService(store, &fakeIngestor{}, testBounds())

	_, err := svc.CreatePlant(context.Background(), validInput())
	if !errors.Is(err, apperror.ErrAllocationExhausted) {
		t.Fatalf("expected allocation exhausted after all insert tiers collide, got %v", err)
	}
}

func TestPlantService_CreatePlant_ConcurrentRegistrationsGetDistinctPIDs(t *testing.T) {
	store := newFakePlantStore()
	svc := NewPlantService(store, &fakeIngestor{}, testBounds())
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.CreatePlant(ctx, validInput()); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent CreatePlant failed: %v", err)
	}

	seen := make(map[string]struct{})
	for _, p := range store.plants {
		if _, dup := seen[p.PID]; dup {
			t.Fatalf("duplicate pid issued: %s", p.PID)
		}
		seen[p.PID] = struct{}{}
	}
	if len(seen) != n {
		t.Errorf("expected %d plants, got %d", n, len(seen))
	}
}

func TestPlantService_ListPlants(t *testing.T) {
	store := newFakePlantStore()
	svc := NewPlantService(store, &fakeIngestor{}, testBounds())
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		input := validInput()
		input.Name = fmt.Sprintf("Banyan %d", i)
		if i%2 == 0 {
			input.OwnerID = "user-2"
			input.OwnerName = "Ravi"
		}
		if _, err := svc.CreatePlant(ctx, input); err != nil {
			t.Fatalf("seed CreatePlant failed: %v", err)
		}
	}

	// Search results are capped
	results, err := svc.ListPlants(ctx, "banyan", "")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 20 {
		t.Errorf("expected search capped at 20, got %d", len(results))
	}

	// Owner filter
	mine, err := svc.ListPlants(ctx, "", "user-2")
	if err != nil {
		t.Fatalf("owner filter failed: %v", err)
	}
	if len(mine) != 13 {
		t.Errorf("expected 13 plants for user-2, got %d", len(mine))
	}

	// Query wins over owner filter
	both, err := svc.ListPlants(ctx, "banyan 3", "user-2")
	if err != nil {
		t.Fatalf("combined filter failed: %v", err)
	}
	if len(both) != 1 {
		t.Errorf("expected query to win over owner filter, got %d results", len(both))
	}

	all, err := svc.ListPlants(ctx, "", "")
	if err != nil {
		t.Fatalf("list all failed: %v", err)
	}
	if len(all) != 25 {
		t.Errorf("expected 25 plants, got %d", len(all))
	}
}

func TestPlantService_GetPlant_NotFound(t *testing.T) {
	store := newFakePlantStore()
	svc := NewPlantService(store, &fakeIngestor{}, testBounds())

	_, err := svc.GetPlant(context.Background(), uuid.New())
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPlantService_DeletePlant(t *testing.T) {
	store := newFakePlantStore()
	svc := NewPlantService(store, &fakeIngestor{}, testBounds())
	ctx := context.Background()

	plant, err := svc.CreatePlant(ctx, validInput())
	if err != nil {
		t.Fatalf("seed CreatePlant failed: %v", err)
	}

	// Non-owner, non-admin is rejected
	err = svc.DeletePlant(ctx, plant.ID, "intruder", false)
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("expected forbidden for non-owner, got %v", err)
	}
	if len(store.plants) != 1 {
		t.Fatal("plant should survive a rejected delete")
	}

	// Admin may delete someone else's plant
	if err := svc.DeletePlant(ctx, plant.ID, "admin-user", true); err != nil {
		t.Fatalf("admin delete failed: %v", err)
	}
	if len(store.plants) != 0 {
		t.Fatal("expected plant removed")
	}

	// Deleting a missing plant reports not found
	err = svc.DeletePlant(ctx, plant.ID, "admin-user", true)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("expected not found for missing plant, got %v", err)
	}
}

func TestPlantService_DeletePlant_Owner(t *testing.T) {
	store := newFakePlantStore()
	svc := NewPlantService(store, &fakeIngestor{}, testBounds())
	ctx := context.Background()

	plant, err := svc.CreatePlant(ctx, validInput())
	if err != nil {
		t.Fatalf("seed CreatePlant failed: %v", err)
	}

	if err := svc.DeletePlant(ctx, plant.ID, "user-1", false); err != nil {
		t.Fatalf("owner delete failed: %v", err)
	}
}

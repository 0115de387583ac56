package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/greenpanipat/plantation-tracker/internal/server/services"
	"github.com/greenpanipat/plantation-tracker/pkg/models"
)

// Uploaded images are held in memory up to this size while parsing the
// multipart form; larger bodies spill to temp files.
const maxUploadMemory = 10 << 20 // 10 MB

type PlantHandler struct {
	plantService *services.PlantService
}

func NewPlantHandler(plantService *services.PlantService) *PlantHandler {
	return &PlantHandler{plantService: plantService}
}

// ListPlants handles GET /api/plants?q=&ownerId=
func (h *PlantHandler) ListPlants(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	ownerID := r.URL.Query().Get("ownerId")

	plants, err := h.plantService.ListPlants(r.Context(), query, ownerID)
	if err != nil {
		respondAppError(w, err)
		return
	}
	if plants == nil {
		plants = []models.Plant{}
	}
	respondJSON(w, http.StatusOK, plants)
}

// GetPlant handles GET /api/plants/{id}
func (h *PlantHandler) GetPlant(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondErrorJSON(w, http.StatusBadRequest, "invalid plant id")
		return
	}

	plant, err := h.plantService.GetPlant(r.Context(), id)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, plant)
}

// CreatePlant handles POST /api/plants (multipart form). The identity comes
// from the session when one exists; the userId/userName form fields are the
// fallback for clients posting without a session.
func (h *PlantHandler) CreatePlant(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		respondErrorJSON(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	ownerID := r.FormValue("userId")
	ownerName := r.FormValue("userName")
	if claims := GetUserClaims(r); claims != nil {
		ownerID = claims.UserID
		if ownerName == "" {
			ownerName = claims.Email
		}
	}
	if ownerID == "" {
		respondErrorJSON(w, http.StatusUnauthorized, "authentication required")
		return
	}

	input := services.CreatePlantInput{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		OwnerID:     ownerID,
		OwnerName:   ownerName,
	}

	var badCoord bool
	input.Lat, badCoord = parseCoord(r.FormValue("lat"))
	if badCoord {
		respondErrorJSON(w, http.StatusBadRequest, "lat must be a number")
		return
	}
	input.Lng, badCoord = parseCoord(r.FormValue("lng"))
	if badCoord {
		respondErrorJSON(w, http.StatusBadRequest, "lng must be a number")
		return
	}

	if file, header, err := r.FormFile("image"); err == nil {
		defer file.Close()
		input.Image = &services.ImageUpload{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        file,
		}
	}

	plant, err := h.plantService.CreatePlant(r.Context(), input)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, plant)
}

// DeletePlant handles DELETE /api/plants?id=
func (h *PlantHandler) DeletePlant(w http.ResponseWriter, r *http.Request) {
	claims := GetUserClaims(r)
	if claims == nil {
		respondErrorJSON(w, http.StatusUnauthorized, "authentication required")
		return
	}

	rawID := r.URL.Query().Get("id")
	if rawID == "" {
		respondErrorJSON(w, http.StatusBadRequest, "id query parameter is required")
		return
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		respondErrorJSON(w, http.StatusBadRequest, "invalid plant id")
		return
	}

	err = h.plantService.DeletePlant(r.Context(), id, claims.UserID, IsAdminEmail(claims.Email))
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, models.DeletePlantResponse{Success: true, ID: rawID})
}

// parseCoord returns (nil, false) for an absent value, the parsed value for a
// valid one, and (nil, true) when the value is present but malformed.
func parseCoord(raw string) (*float64, bool) {
	if raw == "" {
		return nil, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, true
	}
	return &v, false
}

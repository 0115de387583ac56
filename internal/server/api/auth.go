package api

import (
	"net/http"
	"time"

	"github.com/greenpanipat/plantation-tracker/internal/server/services"
	"github.com/greenpanipat/plantation-tracker/pkg/models"
)

type AuthHandler struct {
	userService *services.UserService
}

func NewAuthHandler(userService *services.UserService) *AuthHandler {
	return &AuthHandler{userService: userService}
}

// Login exchanges a Firebase ID token (from the Google sign-in flow on the
// web client) for a session JWT, creating the account on first sight.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondErrorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.IDToken == "" {
		respondErrorJSON(w, http.StatusBadRequest, "id_token is required")
		return
	}

	user, token, expiresAt, err := h.userService.Login(r.Context(), req.IDToken)
	if err != nil {
		respondAppError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, models.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt.Format(time.RFC3339),
		User:      user,
	})
}

package models

// Auth API types
type LoginRequest struct {
	IDToken string `json:"id_token"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
	User      *User  `json:"user"`
}

// Plant API types
type DeletePlantResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
}

// User API types
type UpdateUserRequest struct {
	DisplayName *string `json:"display_name,omitempty"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
}

// Error response. Code is a machine-readable category the front end maps to
// UI messaging (e.g. "fix your input" vs "try again later").
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

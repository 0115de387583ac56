package services

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"firebase.google.com/go/v4/auth"

	"github.com/greenpanipat/plantation-tracker/internal/apperror"
	"github.com/greenpanipat/plantation-tracker/pkg/models"
	"github.com/greenpanipat/plantation-tracker/pkg/utils"
)

// UserStore is the account slice of the record store.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	Upsert(ctx context.Context, user *models.User) error
	UpdateProfile(ctx context.Context, id string, displayName *string, avatarURL *string) (*models.User, error)
}

type UserService struct {
	users    UserStore
	firebase *FirebaseService
}

func NewUserService(users UserStore, firebase *FirebaseService) *UserService {
	return &UserService{users: users, firebase: firebase}
}

// Login verifies a Firebase ID token, upserts the account on first sight of
// the identity, and mints a session JWT.
func (s *UserService) Login(ctx context.Context, idToken string) (*models.User, string, time.Time, error) {
	if s.firebase == nil {
		return nil, "", time.Time{}, fmt.Errorf("Firebase authentication not configured")
	}

	token, err := s.firebase.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, "", time.Time{}, apperror.Unauthorized("invalid ID token")
	}

	record, err := s.firebase.GetFirebaseUser(ctx, token.UID)
	if err != nil {
		return nil, "", time.Time{}, fmt.Errorf("failed to load provider user: %w", err)
	}

	user := userFromRecord(record)
	if err := s.users.Upsert(ctx, user); err != nil {
		return nil, "", time.Time{}, fmt.Errorf("failed to upsert user: %w", err)
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, "", time.Time{}, fmt.Errorf("JWT_SECRET not configured")
	}

	expiration := 168 * time.Hour // 7 days default
	if raw := os.Getenv("JWT_EXPIRATION"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			expiration = d
		}
	}

	sessionToken, expiresAt, err := utils.GenerateJWT(user.ID, user.Email, jwtSecret, expiration)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	return user, sessionToken, expiresAt, nil
}

// GetOrCreate fetches a profile, creating it from the provider's user record
// when the identity has been authenticated but never stored.
func (s *UserService) GetOrCreate(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user != nil {
		return user, nil
	}

	if s.firebase == nil {
		return nil, apperror.NotFound("user", id)
	}

	record, err := s.firebase.GetFirebaseUser(ctx, id)
	if err != nil {
		return nil, apperror.NotFound("user", id)
	}

	user = userFromRecord(record)
	if err := s.users.Upsert(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// UpdateProfile changes display name and/or avatar. Only the owning identity
// may mutate its profile.
func (s *UserService) UpdateProfile(ctx context.Context, id, requesterID string, displayName, avatarURL *string) (*models.User, error) {
	if requesterID != id {
		return nil, apperror.Forbidden("cannot modify another user's profile")
	}
	if displayName != nil && strings.TrimSpace(*displayName) == "" {
		return nil, apperror.Validation("display_name", "display name cannot be empty")
	}

	user, err := s.users.UpdateProfile(ctx, id, displayName, avatarURL)
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	if user == nil {
		return nil, apperror.NotFound("user", id)
	}
	return user, nil
}

func userFromRecord(record *auth.UserRecord) *models.User {
	name := record.DisplayName
	if name == "" && utils.IsValidEmail(record.Email) {
		// Fall back to the mailbox part of the email.
		name = record.Email[:strings.Index(record.Email, "@")]
	}

	user := &models.User{
		ID:          record.UID,
		Email:       record.Email,
		DisplayName: name,
	}
	if record.PhotoURL != "" {
		photo := record.PhotoURL
		user.AvatarURL = &photo
	}
	return user
}

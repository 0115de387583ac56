package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/greenpanipat/plantation-tracker/pkg/models"
)

type UserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	query := `SELECT * FROM users WHERE id = $1`
	err := r.db.GetContext(ctx, &user, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// Upsert creates the user on first sight of a new identity, or refreshes
// email/avatar on subsequent sign-ins. The display name is only set on
// insert so a user-chosen name is never overwritten by the provider's.
func (r *UserRepository) Upsert(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, display_name, avatar_url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET email = EXCLUDED.email, avatar_url = EXCLUDED.avatar_url, updated_at = NOW()
		RETURNING display_name, created_at, updated_at
	`
	return r.db.QueryRowContext(ctx, query,
		user.ID, user.Email, user.DisplayName, user.AvatarURL,
	).Scan(&user.DisplayName, &user.CreatedAt, &user.UpdatedAt)
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id string, displayName *string, avatarURL *string) (*models.User, error) {
	var user models.User
	query := `
		UPDATE users
		SET display_name = COALESCE($2, display_name),
		    avatar_url = COALESCE($3, avatar_url),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING *
	`
	err := r.db.GetContext(ctx, &user, query, id, displayName, avatarURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

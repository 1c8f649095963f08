package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/padraicbc/wagergenie/models"
)

// UserByUsername looks up an account by its username.
func (s *Store) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	user := &models.User{}
	err := s.db.NewSelect().Model(user).
		Where("username = ?", username).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("selecting user %q: %w", username, err)
	}
	return user, nil
}

// UserExists reports whether the account with id is still present.
func (s *Store) UserExists(ctx context.Context, id int64) (bool, error) {
	return s.db.NewSelect().Model((*models.User)(nil)).
		Where("id = ?", id).
		Exists(ctx)
}

// UpsertUser creates the account or replaces its password hash.
func (s *Store) UpsertUser(ctx context.Context, user *models.User) error {
	_, err := s.db.NewInsert().Model(user).
		On("CONFLICT (username) DO UPDATE SET password = EXCLUDED.password, updated_at = now()").
		Returning("id").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upserting user %q: %w", user.Username, err)
	}
	return nil
}

// Profile returns the profile of userID.
func (s *Store) Profile(ctx context.Context, userID int64) (*models.UserProfile, error) {
	p := &models.UserProfile{}
	err := s.db.NewSelect().Model(p).Where("user_id = ?", userID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("selecting profile: %w", err)
	}
	return p, nil
}

// Subscription returns the newest subscription of userID.
func (s *Store) Subscription(ctx context.Context, userID int64) (*models.Subscription, error) {
	sub := &models.Subscription{}
	err := s.db.NewSelect().Model(sub).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("selecting subscription: %w", err)
	}
	return sub, nil
}

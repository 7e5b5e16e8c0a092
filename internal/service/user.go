package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ohmbajaj/Neurotune-Backend/internal/apperror"
	"github.com/ohmbajaj/Neurotune-Backend/internal/model"
	"github.com/ohmbajaj/Neurotune-Backend/internal/repository"
)

// UserService manages a user's own account.
type UserService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

// NewUserService creates a UserService.
func NewUserService(users repository.UserRepository, logger *slog.Logger) *UserService {
	return &UserService{users: users, logger: logger}
}

// UpdatePreferences replaces the user's preferences document. It must be a
// JSON object.
func (s *UserService) UpdatePreferences(ctx context.Context, userID string, prefs json.RawMessage) (*model.User, error) {
	var probe map[string]any
	if err := json.Unmarshal(prefs, &probe); err != nil || probe == nil {
		return nil, apperror.ValidationFailed("preferences", "Preferences must be a JSON object")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthenticated("User no longer exists")
		}
		return nil, fmt.Errorf("service/user: loading user %s: %w", userID, err)
	}

	user.Preferences = prefs
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("service/user: updating preferences of %s: %w", userID, err)
	}
	return user, nil
}

// DeleteAccount removes the user and every playlist they own.
func (s *UserService) DeleteAccount(ctx context.Context, userID string) error {
	if err := s.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		return fmt.Errorf("service/user: deleting user %s: %w", userID, err)
	}

	s.logger.Info("account deleted", slog.String("userID", userID))
	return nil
}

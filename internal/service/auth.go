// Package service holds the business rules of NeuroTune.
//
//	Handler (HTTP) → Service (rules) → Repository (SQLite)
//	                               ↘ MusicSession → Spotify
//
// Services depend on interfaces, never on the sqlite or HTTP client types,
// so tests pass fakes and mocks.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ohmbajaj/Neurotune-Backend/internal/apperror"
	"github.com/ohmbajaj/Neurotune-Backend/internal/auth"
	"github.com/ohmbajaj/Neurotune-Backend/internal/model"
	"github.com/ohmbajaj/Neurotune-Backend/internal/repository"
)

// AuthService registers and logs in users and links their Spotify accounts.
type AuthService struct {
	users      repository.UserRepository
	tokens     *auth.TokenService
	passwords  *auth.PasswordService
	authorizer SpotifyAuthorizer
	music      MusicProvider
	logger     *slog.Logger
}

// NewAuthService creates an AuthService.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	authorizer SpotifyAuthorizer,
	music MusicProvider,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:      users,
		tokens:     tokens,
		passwords:  passwords,
		authorizer: authorizer,
		music:      music,
		logger:     logger,
	}
}

// AuthResult bundles the user and the session token issued for them.
type AuthResult struct {
	User  *model.User
	Token string
}

// RegisterInput is a new account. Shape validation happens in the handler.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// Register creates an account and signs the user in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", "Password must be 72 bytes or fewer")
	}

	user := &model.User{
		Username:     strings.TrimSpace(in.Username),
		Email:        normalizeEmail(in.Email),
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: creating user %q: %w", user.Username, err)
	}

	s.logger.Info("user registered", slog.String("userID", user.ID))
	return s.issue(user)
}

// Login checks credentials. Unknown email and wrong password produce the
// same error so callers can't probe which emails exist.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	invalid := apperror.Unauthenticated("Invalid credentials")

	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, invalid
		}
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, invalid
		}
		return nil, fmt.Errorf("service/auth: verifying password for %s: %w", user.ID, err)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))
	return s.issue(user)
}

// CurrentUser returns the authenticated user's record.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthenticated("User no longer exists")
		}
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", userID, err)
	}
	return user, nil
}

// SpotifyAuthURL returns the consent URL for userID. The state parameter is
// a short-lived signed token naming the user, checked again on callback.
func (s *AuthService) SpotifyAuthURL(userID string) (string, error) {
	state, err := s.tokens.GenerateState(userID)
	if err != nil {
		return "", fmt.Errorf("service/auth: signing oauth state: %w", err)
	}
	return s.authorizer.AuthURL(state), nil
}

// CompleteSpotifyAuth finishes the OAuth flow started by SpotifyAuthURL:
// it verifies state, exchanges code, looks up the Spotify profile, and
// stores the tokens on the user named by state.
func (s *AuthService) CompleteSpotifyAuth(ctx context.Context, code, state string) error {
	userID, err := s.tokens.ValidateState(state)
	if err != nil {
		return apperror.Unauthenticated("Invalid or expired authorization state")
	}
	if code == "" {
		return apperror.ValidationFailed("code", "Authorization code is missing")
	}

	token, err := s.authorizer.Exchange(ctx, code)
	if err != nil {
		return apperror.Upstream("Spotify", err)
	}

	profile, err := s.music.CurrentUser(ctx, token.AccessToken)
	if err != nil {
		return apperror.Upstream("Spotify", fmt.Errorf("fetching profile: %w", err))
	}

	if err := s.users.UpdateSpotifyTokens(ctx, userID, profile.ID, token.AccessToken, token.RefreshToken); err != nil {
		return fmt.Errorf("service/auth: storing spotify tokens for %s: %w", userID, err)
	}

	s.logger.Info("spotify account connected",
		slog.String("userID", userID),
		slog.String("spotifyID", profile.ID),
	)
	return nil
}

// SessionTTL is how long an issued session token lives.
func (s *AuthService) SessionTTL() int {
	return int(s.tokens.TTL().Seconds())
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

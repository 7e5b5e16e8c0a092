package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"

	"github.com/ohmbajaj/Neurotune-Backend/internal/apperror"
	"github.com/ohmbajaj/Neurotune-Backend/internal/model"
	"github.com/ohmbajaj/Neurotune-Backend/internal/repository"
	"github.com/ohmbajaj/Neurotune-Backend/internal/spotify"
)

// MusicProvider is the subset of *spotify.Client the services call.
// Every method takes the access token explicitly.
type MusicProvider interface {
	CurrentUser(ctx context.Context, token string) (*spotify.User, error)
	SearchArtist(ctx context.Context, token, name string) (string, bool, error)
	Recommendations(ctx context.Context, token string, p spotify.RecommendationParams) ([]spotify.RawTrack, error)
	CreatePlaylist(ctx context.Context, token, spotifyUserID, name, description string, public bool) (*spotify.CreatedPlaylist, error)
	AddTracks(ctx context.Context, token, playlistID string, trackIDs []string) error
	UnfollowPlaylist(ctx context.Context, token, playlistID string) error
}

// SpotifyAuthorizer is the OAuth side of Spotify (*auth.SpotifyProvider).
type SpotifyAuthorizer interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
}

// MusicSession makes Spotify calls on behalf of one user at a time,
// recovering from an expired access token.
//
// When a call is rejected with 401 the session refreshes the token exactly
// once, persists it, updates the caller's *model.User, and repeats the call
// once. Whatever the repeated call returns is final:
//
//	call(token) ──401──▶ Refresh ──▶ persist ──▶ call(newToken) ──err──▶ Upstream
//	     │                  │
//	   other err        refresh err
//	     ▼                  ▼
//	  Upstream        AuthRefreshFailed
type MusicSession struct {
	users      repository.UserRepository
	authorizer SpotifyAuthorizer
	client     MusicProvider
	logger     *slog.Logger
}

// NewMusicSession creates a MusicSession.
func NewMusicSession(
	users repository.UserRepository,
	authorizer SpotifyAuthorizer,
	client MusicProvider,
	logger *slog.Logger,
) *MusicSession {
	return &MusicSession{
		users:      users,
		authorizer: authorizer,
		client:     client,
		logger:     logger,
	}
}

// SearchArtist resolves an artist name to a Spotify ID for user.
func (m *MusicSession) SearchArtist(ctx context.Context, user *model.User, name string) (string, bool, error) {
	type result struct {
		id    string
		found bool
	}
	r, err := withRefresh(ctx, m, user, "search artist", func(ctx context.Context, token string) (result, error) {
		id, found, err := m.client.SearchArtist(ctx, token, name)
		return result{id, found}, err
	})
	return r.id, r.found, err
}

// Recommendations fetches recommended tracks for user.
func (m *MusicSession) Recommendations(ctx context.Context, user *model.User, p spotify.RecommendationParams) ([]spotify.RawTrack, error) {
	return withRefresh(ctx, m, user, "recommendations", func(ctx context.Context, token string) ([]spotify.RawTrack, error) {
		return m.client.Recommendations(ctx, token, p)
	})
}

// CreatePlaylist creates a playlist in user's Spotify account.
func (m *MusicSession) CreatePlaylist(ctx context.Context, user *model.User, name, description string, public bool) (*spotify.CreatedPlaylist, error) {
	return withRefresh(ctx, m, user, "create playlist", func(ctx context.Context, token string) (*spotify.CreatedPlaylist, error) {
		return m.client.CreatePlaylist(ctx, token, user.SpotifyID, name, description, public)
	})
}

// AddTracks appends tracks to one of user's Spotify playlists.
func (m *MusicSession) AddTracks(ctx context.Context, user *model.User, playlistID string, trackIDs []string) error {
	_, err := withRefresh(ctx, m, user, "add tracks", func(ctx context.Context, token string) (struct{}, error) {
		return struct{}{}, m.client.AddTracks(ctx, token, playlistID, trackIDs)
	})
	return err
}

// UnfollowPlaylist removes a playlist from user's Spotify library.
func (m *MusicSession) UnfollowPlaylist(ctx context.Context, user *model.User, playlistID string) error {
	_, err := withRefresh(ctx, m, user, "unfollow playlist", func(ctx context.Context, token string) (struct{}, error) {
		return struct{}{}, m.client.UnfollowPlaylist(ctx, token, playlistID)
	})
	return err
}

// withRefresh runs call with user's access token and applies the single
// refresh-and-retry described on MusicSession. It is a function rather than
// a method because methods can't have type parameters.
func withRefresh[T any](
	ctx context.Context,
	m *MusicSession,
	user *model.User,
	op string,
	call func(ctx context.Context, token string) (T, error),
) (T, error) {
	var zero T

	out, err := call(ctx, user.SpotifyAccessToken)
	if err == nil {
		return out, nil
	}
	if !errors.Is(err, spotify.ErrUnauthorized) {
		return zero, apperror.Upstream("Spotify", fmt.Errorf("%s: %w", op, err))
	}

	m.logger.Info("spotify token rejected, refreshing",
		slog.String("userID", user.ID),
		slog.String("op", op),
	)

	access, err := m.authorizer.Refresh(ctx, user.SpotifyRefreshToken)
	if err != nil {
		m.logger.Warn("spotify token refresh failed",
			slog.String("userID", user.ID),
			slog.Any("error", err),
		)
		if errors.Is(err, apperror.ErrAuthRefresh) {
			return zero, err
		}
		return zero, apperror.AuthRefreshFailed(err)
	}

	if err := m.users.UpdateSpotifyAccessToken(ctx, user.ID, access); err != nil {
		return zero, fmt.Errorf("service/music: persisting refreshed token for user %s: %w", user.ID, err)
	}
	user.SpotifyAccessToken = access

	out, err = call(ctx, access)
	if err != nil {
		return zero, apperror.Upstream("Spotify", fmt.Errorf("%s after refresh: %w", op, err))
	}
	return out, nil
}

// isAuthFailure reports whether err means the user's Spotify authorization
// is unusable, as opposed to Spotify merely misbehaving.
func isAuthFailure(err error) bool {
	return errors.Is(err, apperror.ErrAuthRefresh) || errors.Is(err, spotify.ErrUnauthorized)
}

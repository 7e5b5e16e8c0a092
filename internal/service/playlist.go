package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ohmbajaj/Neurotune-Backend/internal/apperror"
	"github.com/ohmbajaj/Neurotune-Backend/internal/model"
	"github.com/ohmbajaj/Neurotune-Backend/internal/repository"
)

// List limits.
const (
	DefaultListLimit = 10
	MaxListLimit     = repository.MaxPlaylistsPerUser
)

// spotifyPlaylistDescription is attached to every pushed playlist.
const spotifyPlaylistDescription = "Created with NeuroTune"

// PlaylistService reads, deletes and pushes stored playlists. Every call
// that takes a playlist ID checks that the caller owns it.
type PlaylistService struct {
	users     repository.UserRepository
	playlists repository.PlaylistRepository
	music     *MusicSession
	logger    *slog.Logger
}

// NewPlaylistService creates a PlaylistService.
func NewPlaylistService(
	users repository.UserRepository,
	playlists repository.PlaylistRepository,
	music *MusicSession,
	logger *slog.Logger,
) *PlaylistService {
	return &PlaylistService{
		users:     users,
		playlists: playlists,
		music:     music,
		logger:    logger,
	}
}

// List returns the caller's newest playlists. limit is clamped to
// [1, MaxListLimit]; zero or less means DefaultListLimit.
func (s *PlaylistService) List(ctx context.Context, userID string, limit int) ([]model.Playlist, error) {
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}

	playlists, err := s.playlists.ListByOwner(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("service/playlist: listing playlists of %s: %w", userID, err)
	}
	return playlists, nil
}

// Get returns one playlist owned by userID.
func (s *PlaylistService) Get(ctx context.Context, userID, id string) (*model.Playlist, error) {
	return s.owned(ctx, userID, id, "access")
}

// Delete removes a playlist owned by userID. If it was pushed to Spotify,
// the Spotify copy is unfollowed first on a best-effort basis.
func (s *PlaylistService) Delete(ctx context.Context, userID, id string) error {
	playlist, err := s.owned(ctx, userID, id, "delete")
	if err != nil {
		return err
	}

	if playlist.SpotifyPlaylistID != "" {
		s.unfollow(ctx, userID, playlist.SpotifyPlaylistID)
	}

	if err := s.playlists.Delete(ctx, id); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		return fmt.Errorf("service/playlist: deleting playlist %s: %w", id, err)
	}

	s.logger.Info("playlist deleted",
		slog.String("playlistID", id),
		slog.String("userID", userID),
	)
	return nil
}

// SaveRequest pushes a stored playlist to Spotify. Name and Tracks override
// the stored values when given.
type SaveRequest struct {
	PlaylistID string
	Name       string
	Tracks     []model.Track
}

// SaveResult is where the playlist ended up.
type SaveResult struct {
	PlaylistID string `json:"playlist_id"`
	SpotifyURL string `json:"spotify_url"`
}

// Save creates a Spotify playlist from a stored playlist and links the two.
func (s *PlaylistService) Save(ctx context.Context, userID string, req SaveRequest) (*SaveResult, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthenticated("User no longer exists")
		}
		return nil, fmt.Errorf("service/playlist: loading user %s: %w", userID, err)
	}
	if !user.HasSpotify() {
		return nil, apperror.Unauthenticated("Please connect your Spotify account first")
	}

	playlist, err := s.owned(ctx, userID, req.PlaylistID, "save")
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = playlist.Name
	}
	tracks := req.Tracks
	if len(tracks) == 0 {
		tracks = playlist.Tracks
	}

	created, err := s.music.CreatePlaylist(ctx, user, name, spotifyPlaylistDescription, true)
	if err != nil {
		return nil, err
	}

	// From here on a failure would strand an empty playlist in the user's
	// Spotify library, so it is unfollowed before returning.
	if ids := spotifyTrackIDs(tracks); len(ids) > 0 {
		if err := s.music.AddTracks(ctx, user, created.ID, ids); err != nil {
			s.discard(ctx, user, created.ID)
			return nil, err
		}
	}

	if err := s.playlists.SetSpotifyPlaylist(ctx, playlist.ID, created.ID, created.URL); err != nil {
		s.discard(ctx, user, created.ID)
		return nil, fmt.Errorf("service/playlist: linking playlist %s: %w", playlist.ID, err)
	}

	s.logger.Info("playlist saved to spotify",
		slog.String("playlistID", playlist.ID),
		slog.String("spotifyPlaylistID", created.ID),
	)
	return &SaveResult{PlaylistID: playlist.ID, SpotifyURL: created.URL}, nil
}

// owned loads playlist id and checks userID owns it. A stranger gets
// Unauthorized rather than NotFound.
func (s *PlaylistService) owned(ctx context.Context, userID, id, action string) (*model.Playlist, error) {
	playlist, err := s.playlists.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/playlist: loading playlist %s: %w", id, err)
	}

	if playlist.OwnerID != userID {
		s.logger.Warn("playlist ownership check failed",
			slog.String("playlistID", id),
			slog.String("userID", userID),
			slog.String("action", action),
		)
		return nil, apperror.Unauthorized(action, "playlist")
	}
	return playlist, nil
}

func (s *PlaylistService) unfollow(ctx context.Context, userID, spotifyPlaylistID string) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil || !user.HasSpotify() {
		return
	}
	if err := s.music.UnfollowPlaylist(ctx, user, spotifyPlaylistID); err != nil {
		s.logger.Warn("unfollowing spotify playlist failed",
			slog.String("spotifyPlaylistID", spotifyPlaylistID),
			slog.Any("error", err),
		)
	}
}

// discard unfollows a Spotify playlist a failed save just created. It runs
// even when the request context is already done; failures are only logged.
func (s *PlaylistService) discard(ctx context.Context, user *model.User, spotifyPlaylistID string) {
	if err := s.music.UnfollowPlaylist(context.WithoutCancel(ctx), user, spotifyPlaylistID); err != nil {
		s.logger.Warn("discarding half-saved spotify playlist failed",
			slog.String("spotifyPlaylistID", spotifyPlaylistID),
			slog.Any("error", err),
		)
		return
	}
	s.logger.Info("discarded half-saved spotify playlist", slog.String("spotifyPlaylistID", spotifyPlaylistID))
}

// spotifyTrackIDs skips placeholder tracks, which Spotify would reject.
func spotifyTrackIDs(tracks []model.Track) []string {
	ids := make([]string, 0, len(tracks))
	for _, t := range tracks {
		if t.ID == "" || strings.HasPrefix(t.ID, "mock_") {
			continue
		}
		ids = append(ids, t.ID)
	}
	return ids
}

// Package repository declares the storage interfaces used by the service layer.
package repository

import (
	"context"

	"github.com/ohmbajaj/Neurotune-Backend/internal/model"
)

// MaxPlaylistsPerUser is the number of playlists a single owner may keep.
const MaxPlaylistsPerUser = 50

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	UpdateSpotifyTokens(ctx context.Context, id, spotifyID, accessToken, refreshToken string) error
	UpdateSpotifyAccessToken(ctx context.Context, id, accessToken string) error
	// Delete removes the user together with every playlist they own.
	Delete(ctx context.Context, id string) error
}

type PlaylistRepository interface {
	// Create fails with apperror.ErrQuotaExceeded once the owner already
	// holds MaxPlaylistsPerUser playlists.
	Create(ctx context.Context, playlist *model.Playlist) error
	GetByID(ctx context.Context, id string) (*model.Playlist, error)
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]model.Playlist, error)
	CountByOwner(ctx context.Context, ownerID string) (int, error)
	SetSpotifyPlaylist(ctx context.Context, id, spotifyPlaylistID, spotifyURL string) error
	Delete(ctx context.Context, id string) error
}

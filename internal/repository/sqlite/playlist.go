package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/ohmbajaj/Neurotune-Backend/internal/apperror"
	"github.com/ohmbajaj/Neurotune-Backend/internal/model"
	"github.com/ohmbajaj/Neurotune-Backend/internal/repository"
)

var _ repository.PlaylistRepository = (*PlaylistDB)(nil)

// PlaylistDB is the playlist store.
type PlaylistDB struct {
	conn *sql.DB
}

const playlistColumns = `id, owner_id, name, description, type, tracks, parameters,
	spotify_playlist_id, spotify_url, created_at`

// Create inserts a new playlist, assigning its ID and creation time.
//
// The count check and the insert are one statement, so two concurrent
// creates for the same owner can never both slip past the limit.
func (p *PlaylistDB) Create(ctx context.Context, playlist *model.Playlist) error {
	tracks, err := json.Marshal(nonNilTracks(playlist.Tracks))
	if err != nil {
		return fmt.Errorf("sqlite: encoding tracks: %w", err)
	}
	params, err := json.Marshal(playlist.Parameters)
	if err != nil {
		return fmt.Errorf("sqlite: encoding parameters: %w", err)
	}

	id := xid.New().String()
	createdAt := time.Now().UTC()

	result, err := p.conn.ExecContext(ctx,
		`INSERT INTO playlists (`+playlistColumns+`)
		 SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
		 WHERE (SELECT COUNT(*) FROM playlists WHERE owner_id = ?) < ?`,
		id,
		playlist.OwnerID,
		playlist.Name,
		playlist.Description,
		string(playlist.Type),
		string(tracks),
		string(params),
		playlist.SpotifyPlaylistID,
		playlist.SpotifyURL,
		createdAt,
		playlist.OwnerID,
		repository.MaxPlaylistsPerUser,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting playlist %q: %w", playlist.Name, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.QuotaExceeded(fmt.Sprintf(
			"You have reached the maximum of %d playlists, delete one to create another",
			repository.MaxPlaylistsPerUser))
	}

	playlist.ID = id
	playlist.CreatedAt = createdAt
	return nil
}

// GetByID retrieves a playlist by ID.
// Returns apperror.ErrNotFound if it doesn't exist.
func (p *PlaylistDB) GetByID(ctx context.Context, id string) (*model.Playlist, error) {
	row := p.conn.QueryRowContext(ctx,
		`SELECT `+playlistColumns+` FROM playlists WHERE id = ?`, id)

	playlist, err := scanPlaylist(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("playlist", id)
		}
		return nil, fmt.Errorf("sqlite: getting playlist %s: %w", id, err)
	}
	return playlist, nil
}

// ListByOwner returns up to limit playlists, newest first.
// xid sorts by creation time, which breaks ties within one timestamp.
func (p *PlaylistDB) ListByOwner(ctx context.Context, ownerID string, limit int) ([]model.Playlist, error) {
	rows, err := p.conn.QueryContext(ctx,
		`SELECT `+playlistColumns+` FROM playlists
		 WHERE owner_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		ownerID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing playlists of %s: %w", ownerID, err)
	}
	defer rows.Close()

	playlists := []model.Playlist{}
	for rows.Next() {
		playlist, err := scanPlaylist(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning playlist row: %w", err)
		}
		playlists = append(playlists, *playlist)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating playlist rows: %w", err)
	}
	return playlists, nil
}

// CountByOwner returns how many playlists the owner holds.
func (p *PlaylistDB) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	var n int
	err := p.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM playlists WHERE owner_id = ?`, ownerID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting playlists of %s: %w", ownerID, err)
	}
	return n, nil
}

// SetSpotifyPlaylist records the Spotify playlist a stored playlist was pushed to.
func (p *PlaylistDB) SetSpotifyPlaylist(ctx context.Context, id, spotifyPlaylistID, spotifyURL string) error {
	result, err := p.conn.ExecContext(ctx,
		`UPDATE playlists SET spotify_playlist_id = ?, spotify_url = ? WHERE id = ?`,
		spotifyPlaylistID, spotifyURL, id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: linking playlist %s: %w", id, err)
	}
	return expectOneRow(result, "playlist", id)
}

// Delete removes a playlist by ID.
func (p *PlaylistDB) Delete(ctx context.Context, id string) error {
	result, err := p.conn.ExecContext(ctx, `DELETE FROM playlists WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting playlist %s: %w", id, err)
	}
	return expectOneRow(result, "playlist", id)
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanPlaylist(s scanner) (*model.Playlist, error) {
	var (
		playlist   model.Playlist
		kind       string
		tracksJSON string
		paramsJSON string
	)
	err := s.Scan(
		&playlist.ID,
		&playlist.OwnerID,
		&playlist.Name,
		&playlist.Description,
		&kind,
		&tracksJSON,
		&paramsJSON,
		&playlist.SpotifyPlaylistID,
		&playlist.SpotifyURL,
		&playlist.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	playlist.Type = model.PlaylistType(kind)
	if err := json.Unmarshal([]byte(tracksJSON), &playlist.Tracks); err != nil {
		return nil, fmt.Errorf("decoding tracks of %s: %w", playlist.ID, err)
	}
	if err := json.Unmarshal([]byte(paramsJSON), &playlist.Parameters); err != nil {
		return nil, fmt.Errorf("decoding parameters of %s: %w", playlist.ID, err)
	}
	return &playlist, nil
}

func nonNilTracks(tracks []model.Track) []model.Track {
	if tracks == nil {
		return []model.Track{}
	}
	return tracks
}

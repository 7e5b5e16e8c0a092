package model

import "time"

// PlaylistType says which generator produced a playlist.
type PlaylistType string

const (
	PlaylistTypeArtist PlaylistType = "artist"
	PlaylistTypeMood   PlaylistType = "mood"
	PlaylistTypeGenre  PlaylistType = "genre"
)

// Valid reports whether t is one of the known playlist types.
func (t PlaylistType) Valid() bool {
	switch t {
	case PlaylistTypeArtist, PlaylistTypeMood, PlaylistTypeGenre:
		return true
	}
	return false
}

// Playlist is a generated playlist owned by one user.
//
// SpotifyPlaylistID is only an identifier of a playlist living in the
// user's Spotify account; it is empty until the playlist has been pushed.
type Playlist struct {
	ID                string       `json:"id"`
	Name              string       `json:"name"`
	Description       string       `json:"description,omitempty"`
	Type              PlaylistType `json:"type"`
	Tracks            []Track      `json:"tracks"`
	SpotifyPlaylistID string       `json:"spotifyPlaylistId,omitempty"`
	SpotifyURL        string       `json:"spotifyUrl,omitempty"`
	OwnerID           string       `json:"generatedBy"`
	CreatedAt         time.Time    `json:"createdAt"`
	Parameters        Parameters   `json:"parameters"`
}

// Track is a single entry of a playlist. Audio features are in [0,1].
type Track struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Artist       string  `json:"artist"`
	Album        string  `json:"album"`
	Image        string  `json:"image"`
	PreviewURL   string  `json:"preview_url,omitempty"`
	SpotifyURL   string  `json:"spotify_url"`
	DurationMS   int     `json:"duration_ms"`
	Popularity   int     `json:"popularity"`
	Danceability float64 `json:"danceability"`
	Energy       float64 `json:"energy"`
	Valence      float64 `json:"valence"`
}

// Parameters records the request a playlist was generated from.
// The numeric knobs are percentages in [0,100]; nil means "not given".
type Parameters struct {
	Artists        []string `json:"artists,omitempty"`
	Energy         *int     `json:"energy,omitempty"`
	Danceability   *int     `json:"danceability,omitempty"`
	Popularity     *int     `json:"popularity,omitempty"`
	Theme          string   `json:"theme,omitempty"`
	IncludeArtists []string `json:"includeArtists,omitempty"`
	ExcludeArtists []string `json:"excludeArtists,omitempty"`
	CustomPrompt   string   `json:"customPrompt,omitempty"`
	Decades        []string `json:"decades,omitempty"`
	Genre          string   `json:"genre,omitempty"`
}

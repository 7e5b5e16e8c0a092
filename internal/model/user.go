// Package model defines the data structures used throughout the application.
package model

import (
	"encoding/json"
	"time"
)

// User represents a registered user account.
//
// Secrets (password hash and Spotify tokens) are loaded from the store like
// any other column but carry `json:"-"` so they can never reach a response.
// SpotifyConnected is what clients see instead.
type User struct {
	ID                  string          `json:"id"`
	Username            string          `json:"username"`
	Email               string          `json:"email"`
	PasswordHash        string          `json:"-"`
	SpotifyID           string          `json:"spotifyId,omitempty"`
	SpotifyAccessToken  string          `json:"-"`
	SpotifyRefreshToken string          `json:"-"`
	Preferences         json.RawMessage `json:"preferences,omitempty"`
	CreatedAt           time.Time       `json:"createdAt"`
	UpdatedAt           time.Time       `json:"updatedAt"`
}

// HasSpotify reports whether the user finished the Spotify OAuth flow.
func (u *User) HasSpotify() bool {
	return u.SpotifyAccessToken != ""
}

// MarshalJSON adds the derived spotifyConnected flag.
func (u User) MarshalJSON() ([]byte, error) {
	type plain User
	return json.Marshal(struct {
		plain
		SpotifyConnected bool `json:"spotifyConnected"`
	}{plain(u), u.HasSpotify()})
}

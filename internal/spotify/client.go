// Package spotify is a thin client for the Spotify Web API.
//
// A Client holds configuration only. The user's access token is passed to
// every call, so one Client serves all users concurrently and a refreshed
// token never has to be written back into shared state.
package spotify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public Web API root.
const DefaultBaseURL = "https://api.spotify.com/v1"

const (
	// MaxSeeds is the most seed values /recommendations accepts.
	MaxSeeds = 5
	// addTracksBatch is the most URIs one add-items request accepts.
	addTracksBatch = 100
)

// ErrUnauthorized matches any *APIError with status 401, which Spotify
// returns for expired or revoked access tokens.
var ErrUnauthorized = errors.New("spotify: unauthorized")

// APIError is a non-2xx answer from the Web API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("spotify: status %d", e.Status)
	}
	return fmt.Sprintf("spotify: status %d: %s", e.Status, e.Message)
}

// Is lets errors.Is(err, ErrUnauthorized) see through a 401.
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// Client calls the Web API on behalf of whichever user's token it is given.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another API root (tests use httptest).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the default 15s-timeout HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit caps outbound requests per second. Zero or less disables it.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// NewClient creates a Client. Without options it talks to the public API
// with no rate limit.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(rate.Inf, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RecommendationParams are the inputs of GET /recommendations.
// Targets are in [0,1]; nil targets are omitted from the query.
type RecommendationParams struct {
	SeedArtists        []string
	TargetEnergy       *float64
	TargetDanceability *float64
	Limit              int
}

// RawTrack is a track object as the API returns it. The audio-feature
// fields are not part of the track object; they stay nil unless a caller
// fills them from another source.
type RawTrack struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Artists      []Artist `json:"artists"`
	Album        Album    `json:"album"`
	PreviewURL   string   `json:"preview_url"`
	DurationMS   int      `json:"duration_ms"`
	Popularity   int      `json:"popularity"`
	ExternalURLs struct {
		Spotify string `json:"spotify"`
	} `json:"external_urls"`

	Danceability *float64 `json:"danceability,omitempty"`
	Energy       *float64 `json:"energy,omitempty"`
	Valence      *float64 `json:"valence,omitempty"`
}

// Artist is a simplified artist object.
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Album is a simplified album object.
type Album struct {
	Name        string  `json:"name"`
	ReleaseDate string  `json:"release_date"`
	Images      []Image `json:"images"`
}

// Image is an image resource; the API lists the widest first.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// User is the current user's profile.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

// CreatedPlaylist identifies a playlist made in the user's account.
type CreatedPlaylist struct {
	ID  string
	URL string
}

// CurrentUser returns the profile that owns token.
func (c *Client) CurrentUser(ctx context.Context, token string) (*User, error) {
	var u User
	if err := c.do(ctx, token, http.MethodGet, "/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// SearchArtist looks up the best match for name. found is false when the
// search succeeded but matched nothing.
func (c *Client) SearchArtist(ctx context.Context, token, name string) (id string, found bool, err error) {
	q := url.Values{}
	q.Set("q", name)
	q.Set("type", "artist")
	q.Set("limit", "1")

	var resp struct {
		Artists struct {
			Items []Artist `json:"items"`
		} `json:"artists"`
	}
	if err := c.do(ctx, token, http.MethodGet, "/search?"+q.Encode(), nil, &resp); err != nil {
		return "", false, err
	}
	if len(resp.Artists.Items) == 0 {
		return "", false, nil
	}
	return resp.Artists.Items[0].ID, true, nil
}

// Recommendations returns tracks seeded by p.SeedArtists. Seeds past
// MaxSeeds are dropped.
func (c *Client) Recommendations(ctx context.Context, token string, p RecommendationParams) ([]RawTrack, error) {
	seeds := p.SeedArtists
	if len(seeds) > MaxSeeds {
		seeds = seeds[:MaxSeeds]
	}
	if len(seeds) == 0 {
		return nil, errors.New("spotify: recommendations need at least one seed")
	}

	q := url.Values{}
	q.Set("seed_artists", strings.Join(seeds, ","))
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.TargetEnergy != nil {
		q.Set("target_energy", formatTarget(*p.TargetEnergy))
	}
	if p.TargetDanceability != nil {
		q.Set("target_danceability", formatTarget(*p.TargetDanceability))
	}

	var resp struct {
		Tracks []RawTrack `json:"tracks"`
	}
	if err := c.do(ctx, token, http.MethodGet, "/recommendations?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tracks, nil
}

// CreatePlaylist creates an empty playlist in spotifyUserID's account.
func (c *Client) CreatePlaylist(ctx context.Context, token, spotifyUserID, name, description string, public bool) (*CreatedPlaylist, error) {
	body := map[string]any{
		"name":        name,
		"description": description,
		"public":      public,
	}

	var resp struct {
		ID           string `json:"id"`
		ExternalURLs struct {
			Spotify string `json:"spotify"`
		} `json:"external_urls"`
	}
	endpoint := "/users/" + url.PathEscape(spotifyUserID) + "/playlists"
	if err := c.do(ctx, token, http.MethodPost, endpoint, body, &resp); err != nil {
		return nil, err
	}
	return &CreatedPlaylist{ID: resp.ID, URL: resp.ExternalURLs.Spotify}, nil
}

// AddTracks appends trackIDs to playlistID in batches of 100.
func (c *Client) AddTracks(ctx context.Context, token, playlistID string, trackIDs []string) error {
	endpoint := "/playlists/" + url.PathEscape(playlistID) + "/tracks"

	for start := 0; start < len(trackIDs); start += addTracksBatch {
		end := min(start+addTracksBatch, len(trackIDs))

		uris := make([]string, 0, end-start)
		for _, id := range trackIDs[start:end] {
			uris = append(uris, "spotify:track:"+id)
		}

		if err := c.do(ctx, token, http.MethodPost, endpoint, map[string]any{"uris": uris}, nil); err != nil {
			return err
		}
	}
	return nil
}

// UnfollowPlaylist removes playlistID from the user's library. Spotify has
// no real delete; unfollowing your own playlist is how it is done.
func (c *Client) UnfollowPlaylist(ctx context.Context, token, playlistID string) error {
	endpoint := "/playlists/" + url.PathEscape(playlistID) + "/followers"
	return c.do(ctx, token, http.MethodDelete, endpoint, nil, nil)
}

// do performs one request. A non-2xx status becomes *APIError carrying the
// API's own message when it sent one.
func (c *Client) do(ctx context.Context, token, method, endpoint string, body, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("spotify: waiting for rate limiter: %w", err)
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("spotify: encoding request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("spotify: creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("spotify: %s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}

	if result == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("spotify: decoding response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if json.Unmarshal(raw, &body) == nil {
		apiErr.Message = body.Error.Message
	}
	return apiErr
}

func formatTarget(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(WithBaseURL(srv.URL))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestClient_SendsBearerToken(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		assert.Equal(t, "/me", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]string{"id": "spotify-user", "display_name": "Listener"})
	}))

	u, err := c.CurrentUser(context.Background(), "tok-123")
	require.NoError(t, err)
	assert.Equal(t, "spotify-user", u.ID)
}

func TestClient_APIError(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantUnauth bool
		wantMsg   string
	}{
		{"expired token", 401, `{"error":{"status":401,"message":"The access token expired"}}`, true, "The access token expired"},
		{"server error", 500, `oops`, false, ""},
		{"rate limited", 429, `{"error":{"status":429,"message":"API rate limit exceeded"}}`, false, "API rate limit exceeded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))

			_, err := c.CurrentUser(context.Background(), "tok")
			require.Error(t, err)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.wantMsg, apiErr.Message)
			assert.Equal(t, tt.wantUnauth, errors.Is(err, ErrUnauthorized))
		})
	}
}

func TestClient_SearchArtist(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "artist", r.URL.Query().Get("type"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))

		items := []Artist{}
		if r.URL.Query().Get("q") == "Artist A" {
			items = append(items, Artist{ID: "artist-a-id", Name: "Artist A"})
		}
		writeJSON(w, http.StatusOK, map[string]any{"artists": map[string]any{"items": items}})
	}))

	id, found, err := c.SearchArtist(context.Background(), "tok", "Artist A")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "artist-a-id", id)

	_, found, err = c.SearchArtist(context.Background(), "tok", "Nobody")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestClient_Recommendations(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/recommendations", r.URL.Path)
		assert.Equal(t, "s1,s2,s3,s4,s5", q.Get("seed_artists"), "seeds should be capped at five")
		assert.Equal(t, "40", q.Get("limit"))
		assert.Equal(t, "0.70", q.Get("target_energy"))
		assert.False(t, q.Has("target_danceability"))

		writeJSON(w, http.StatusOK, map[string]any{"tracks": []map[string]any{
			{"id": "t1", "name": "One", "artists": []map[string]string{{"name": "A"}}},
			{"id": "t2", "name": "Two", "artists": []map[string]string{{"name": "B"}}},
		}})
	}))

	energy := 0.7
	tracks, err := c.Recommendations(context.Background(), "tok", RecommendationParams{
		SeedArtists:  []string{"s1", "s2", "s3", "s4", "s5", "s6"},
		TargetEnergy: &energy,
		Limit:        40,
	})
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	assert.Equal(t, "t1", tracks[0].ID)
	assert.Equal(t, "B", tracks[1].Artists[0].Name)
}

func TestClient_RecommendationsWithoutSeeds(t *testing.T) {
	c := NewClient(WithBaseURL("http://127.0.0.1:0"))

	_, err := c.Recommendations(context.Background(), "tok", RecommendationParams{})
	assert.Error(t, err)
}

func TestClient_CreatePlaylistAndAddTracks(t *testing.T) {
	var batches [][]string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/users/spotify-user/playlists":
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "My Mix", body["name"])
			assert.Equal(t, "Created with NeuroTune", body["description"])
			assert.Equal(t, true, body["public"])
			writeJSON(w, http.StatusCreated, map[string]any{
				"id":            "pl-1",
				"external_urls": map[string]string{"spotify": "https://open.spotify.com/playlist/pl-1"},
			})
		case r.Method == http.MethodPost && r.URL.Path == "/playlists/pl-1/tracks":
			var body struct {
				URIs []string `json:"uris"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			batches = append(batches, body.URIs)
			writeJSON(w, http.StatusCreated, map[string]string{"snapshot_id": "snap"})
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	created, err := c.CreatePlaylist(context.Background(), "tok", "spotify-user", "My Mix", "Created with NeuroTune", true)
	require.NoError(t, err)
	assert.Equal(t, "pl-1", created.ID)
	assert.Equal(t, "https://open.spotify.com/playlist/pl-1", created.URL)

	ids := make([]string, 230)
	for i := range ids {
		ids[i] = fmt.Sprintf("track%d", i)
	}
	require.NoError(t, c.AddTracks(context.Background(), "tok", created.ID, ids))

	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 100)
	assert.Len(t, batches[1], 100)
	assert.Len(t, batches[2], 30)
	assert.Equal(t, "spotify:track:track0", batches[0][0])
	assert.True(t, strings.HasPrefix(batches[2][29], "spotify:track:track229"))
}

func TestClient_UnfollowPlaylist(t *testing.T) {
	var called bool
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/playlists/pl-9/followers", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))

	require.NoError(t, c.UnfollowPlaylist(context.Background(), "tok", "pl-9"))
	assert.True(t, called)
}

func TestClient_RateLimiterHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"id": "u"})
	}))
	t.Cleanup(srv.Close)
	c := NewClient(WithBaseURL(srv.URL), WithRateLimit(0.001))

	// The burst token is spent here; the next one is ~1000s away.
	_, err := c.CurrentUser(context.Background(), "tok")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.CurrentUser(ctx, "tok")
	assert.ErrorContains(t, err, "rate limiter")
}

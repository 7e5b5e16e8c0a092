package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"golang.org/x/oauth2"

	"github.com/ohmbajaj/Neurotune-Backend/internal/apperror"
	"github.com/ohmbajaj/Neurotune-Backend/internal/model"
	"github.com/ohmbajaj/Neurotune-Backend/internal/repository"
	"github.com/ohmbajaj/Neurotune-Backend/internal/spotify"
)

// =========================================================================
// FAKE REPOSITORIES
// =========================================================================

// fakeUserRepo is an in-memory repository.UserRepository. It hands out
// copies so tests observe only what was persisted.
type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[string]*model.User
	nextID int

	playlists *fakePlaylistRepo // cascade target for Delete, may be nil

	accessTokenUpdates int
	getErr             error
	updateErr          error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == user.Email {
			return apperror.Conflict("user", "email")
		}
		if u.Username == user.Username {
			return apperror.Conflict("user", "username")
		}
	}
	f.nextID++
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	out := *u
	return &out, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (f *fakeUserRepo) Update(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.users[user.ID]; !ok {
		return apperror.NotFound("user", user.ID)
	}
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeUserRepo) UpdateSpotifyTokens(_ context.Context, id, spotifyID, accessToken, refreshToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	u.SpotifyID = spotifyID
	u.SpotifyAccessToken = accessToken
	u.SpotifyRefreshToken = refreshToken
	return nil
}

func (f *fakeUserRepo) UpdateSpotifyAccessToken(_ context.Context, id, accessToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	u.SpotifyAccessToken = accessToken
	f.accessTokenUpdates++
	return nil
}

func (f *fakeUserRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	if _, ok := f.users[id]; !ok {
		f.mu.Unlock()
		return apperror.NotFound("user", id)
	}
	delete(f.users, id)
	f.mu.Unlock()

	if f.playlists != nil {
		f.playlists.deleteOwner(id)
	}
	return nil
}

// seed stores a user directly, bypassing Create's checks.
func (f *fakeUserRepo) seed(u model.User) *model.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := u
	f.users[u.ID] = &stored
	out := u
	return &out
}

// fakePlaylistRepo is an in-memory repository.PlaylistRepository that
// enforces the owner quota the way the store does.
type fakePlaylistRepo struct {
	mu        sync.Mutex
	playlists map[string]*model.Playlist
	nextID    int
	clock     time.Time

	createErr error
}

func newFakePlaylistRepo() *fakePlaylistRepo {
	return &fakePlaylistRepo{
		playlists: make(map[string]*model.Playlist),
		clock:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fakePlaylistRepo) Create(_ context.Context, p *model.Playlist) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if f.countLocked(p.OwnerID) >= repository.MaxPlaylistsPerUser {
		return apperror.QuotaExceeded("playlist quota reached")
	}
	f.nextID++
	f.clock = f.clock.Add(time.Second)
	p.ID = fmt.Sprintf("pl-%d", f.nextID)
	p.CreatedAt = f.clock
	stored := *p
	f.playlists[p.ID] = &stored
	return nil
}

func (f *fakePlaylistRepo) GetByID(_ context.Context, id string) (*model.Playlist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.playlists[id]
	if !ok {
		return nil, apperror.NotFound("playlist", id)
	}
	out := *p
	return &out, nil
}

func (f *fakePlaylistRepo) ListByOwner(_ context.Context, ownerID string, limit int) ([]model.Playlist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Playlist{}
	for _, p := range f.playlists {
		if p.OwnerID == ownerID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakePlaylistRepo) CountByOwner(_ context.Context, ownerID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.countLocked(ownerID), nil
}

func (f *fakePlaylistRepo) SetSpotifyPlaylist(_ context.Context, id, spotifyPlaylistID, spotifyURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.playlists[id]
	if !ok {
		return apperror.NotFound("playlist", id)
	}
	p.SpotifyPlaylistID = spotifyPlaylistID
	p.SpotifyURL = spotifyURL
	return nil
}

func (f *fakePlaylistRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.playlists[id]; !ok {
		return apperror.NotFound("playlist", id)
	}
	delete(f.playlists, id)
	return nil
}

func (f *fakePlaylistRepo) countLocked(ownerID string) int {
	n := 0
	for _, p := range f.playlists {
		if p.OwnerID == ownerID {
			n++
		}
	}
	return n
}

func (f *fakePlaylistRepo) deleteOwner(ownerID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, p := range f.playlists {
		if p.OwnerID == ownerID {
			delete(f.playlists, id)
		}
	}
}

var (
	_ repository.UserRepository     = (*fakeUserRepo)(nil)
	_ repository.PlaylistRepository = (*fakePlaylistRepo)(nil)
)

// =========================================================================
// SPOTIFY MOCKS
// =========================================================================

type mockMusic struct{ mock.Mock }

func (m *mockMusic) CurrentUser(ctx context.Context, token string) (*spotify.User, error) {
	args := m.Called(ctx, token)
	u, _ := args.Get(0).(*spotify.User)
	return u, args.Error(1)
}

func (m *mockMusic) SearchArtist(ctx context.Context, token, name string) (string, bool, error) {
	args := m.Called(ctx, token, name)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *mockMusic) Recommendations(ctx context.Context, token string, p spotify.RecommendationParams) ([]spotify.RawTrack, error) {
	args := m.Called(ctx, token, p)
	tracks, _ := args.Get(0).([]spotify.RawTrack)
	return tracks, args.Error(1)
}

func (m *mockMusic) CreatePlaylist(ctx context.Context, token, spotifyUserID, name, description string, public bool) (*spotify.CreatedPlaylist, error) {
	args := m.Called(ctx, token, spotifyUserID, name, description, public)
	p, _ := args.Get(0).(*spotify.CreatedPlaylist)
	return p, args.Error(1)
}

func (m *mockMusic) AddTracks(ctx context.Context, token, playlistID string, trackIDs []string) error {
	return m.Called(ctx, token, playlistID, trackIDs).Error(0)
}

func (m *mockMusic) UnfollowPlaylist(ctx context.Context, token, playlistID string) error {
	return m.Called(ctx, token, playlistID).Error(0)
}

type mockAuthorizer struct{ mock.Mock }

func (m *mockAuthorizer) AuthURL(state string) string {
	return m.Called(state).String(0)
}

func (m *mockAuthorizer) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	args := m.Called(ctx, code)
	tok, _ := args.Get(0).(*oauth2.Token)
	return tok, args.Error(1)
}

func (m *mockAuthorizer) Refresh(ctx context.Context, refreshToken string) (string, error) {
	args := m.Called(ctx, refreshToken)
	return args.String(0), args.Error(1)
}

var (
	_ MusicProvider     = (*mockMusic)(nil)
	_ SpotifyAuthorizer = (*mockAuthorizer)(nil)
)

// stubCompleter returns a fixed completion.
type stubCompleter struct {
	text    string
	err     error
	prompts []string
}

func (s *stubCompleter) Enabled() bool { return true }

func (s *stubCompleter) Complete(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return s.text, s.err
}

// =========================================================================
// HELPERS
// =========================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func unauthorized() error {
	return &spotify.APIError{Status: 401, Message: "The access token expired"}
}

func connectedUser(id string) model.User {
	return model.User{
		ID:                  id,
		Username:            id,
		Email:               id + "@example.com",
		SpotifyID:           "sp-" + id,
		SpotifyAccessToken:  "access-old",
		SpotifyRefreshToken: "refresh-1",
	}
}

func ptr[T any](v T) *T { return &v }

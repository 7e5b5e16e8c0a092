package sqlite

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/ohmbajaj/Neurotune-Backend/internal/apperror"
	"github.com/ohmbajaj/Neurotune-Backend/internal/model"
	"github.com/ohmbajaj/Neurotune-Backend/internal/repository"
)

func createTestPlaylist(t *testing.T, p *PlaylistDB, ownerID, name string) *model.Playlist {
	t.Helper()
	playlist := &model.Playlist{
		Name:    name,
		Type:    model.PlaylistTypeArtist,
		OwnerID: ownerID,
		Tracks: []model.Track{
			{ID: "t1", Name: "Song One", Artist: "Artist A", Popularity: 70, Energy: 0.7},
		},
		Parameters: model.Parameters{Artists: []string{"Artist A"}},
	}
	if err := p.Create(context.Background(), playlist); err != nil {
		t.Fatalf("failed to create test playlist: %v", err)
	}
	return playlist
}

// =========================================================================
// CREATE / GET TESTS
// =========================================================================

func TestPlaylistCreate_RoundTrip(t *testing.T) {
	p := newTestDB(t).Playlists()
	energy := 70

	playlist := &model.Playlist{
		Name:        "Artist A Inspired Mix",
		Description: "seeded",
		Type:        model.PlaylistTypeArtist,
		OwnerID:     "owner-1",
		Tracks: []model.Track{
			{ID: "t1", Name: "One", Artist: "Artist A", DurationMS: 180000, Danceability: 0.5},
			{ID: "t2", Name: "Two", Artist: "Artist B", DurationMS: 200000, Valence: 0.9},
		},
		Parameters: model.Parameters{Artists: []string{"Artist A"}, Energy: &energy},
	}
	if err := p.Create(context.Background(), playlist); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if playlist.ID == "" {
		t.Fatal("Create() did not set playlist.ID")
	}
	if playlist.CreatedAt.IsZero() {
		t.Error("Create() did not set playlist.CreatedAt")
	}

	found, err := p.GetByID(context.Background(), playlist.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if found.Name != playlist.Name || found.OwnerID != "owner-1" {
		t.Errorf("found = %+v", found)
	}
	if found.Type != model.PlaylistTypeArtist {
		t.Errorf("Type = %q, want artist", found.Type)
	}
	if len(found.Tracks) != 2 || found.Tracks[1].Valence != 0.9 {
		t.Errorf("Tracks = %+v", found.Tracks)
	}
	if found.Parameters.Energy == nil || *found.Parameters.Energy != 70 {
		t.Errorf("Parameters.Energy = %v, want 70", found.Parameters.Energy)
	}
	if found.Parameters.Danceability != nil {
		t.Errorf("Parameters.Danceability = %v, want nil", *found.Parameters.Danceability)
	}
}

func TestPlaylistCreate_NilTracksStoredAsEmpty(t *testing.T) {
	p := newTestDB(t).Playlists()

	playlist := &model.Playlist{Name: "empty", Type: model.PlaylistTypeMood, OwnerID: "o"}
	if err := p.Create(context.Background(), playlist); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	found, err := p.GetByID(context.Background(), playlist.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if found.Tracks == nil || len(found.Tracks) != 0 {
		t.Errorf("Tracks = %#v, want empty slice", found.Tracks)
	}
}

func TestPlaylistGetByID_NotFound(t *testing.T) {
	p := newTestDB(t).Playlists()

	_, err := p.GetByID(context.Background(), "missing")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// QUOTA TESTS
// =========================================================================

func TestPlaylistCreate_Quota(t *testing.T) {
	p := newTestDB(t).Playlists()

	for i := 0; i < repository.MaxPlaylistsPerUser; i++ {
		createTestPlaylist(t, p, "busy", fmt.Sprintf("mix %d", i))
	}

	err := p.Create(context.Background(), &model.Playlist{
		Name: "one too many", Type: model.PlaylistTypeArtist, OwnerID: "busy",
	})
	if !errors.Is(err, apperror.ErrQuotaExceeded) {
		t.Fatalf("Create() #%d error = %v, want ErrQuotaExceeded", repository.MaxPlaylistsPerUser+1, err)
	}

	n, err := p.CountByOwner(context.Background(), "busy")
	if err != nil {
		t.Fatalf("CountByOwner() error = %v", err)
	}
	if n != repository.MaxPlaylistsPerUser {
		t.Errorf("CountByOwner() = %d, want %d", n, repository.MaxPlaylistsPerUser)
	}

	// Other owners are unaffected.
	createTestPlaylist(t, p, "idle", "first")
}

func TestPlaylistCreate_QuotaUnderConcurrency(t *testing.T) {
	p := newTestDB(t).Playlists()

	for i := 0; i < repository.MaxPlaylistsPerUser-1; i++ {
		createTestPlaylist(t, p, "racer", fmt.Sprintf("mix %d", i))
	}

	// One slot left, many writers.
	const writers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		created  int
		rejected int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := p.Create(context.Background(), &model.Playlist{
				Name: fmt.Sprintf("race %d", i), Type: model.PlaylistTypeMood, OwnerID: "racer",
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, apperror.ErrQuotaExceeded):
				rejected++
			default:
				t.Errorf("Create() unexpected error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	if created != 1 || rejected != writers-1 {
		t.Errorf("created = %d, rejected = %d; want 1 and %d", created, rejected, writers-1)
	}
}

// =========================================================================
// LIST / UPDATE / DELETE TESTS
// =========================================================================

func TestPlaylistListByOwner_NewestFirstAndLimited(t *testing.T) {
	p := newTestDB(t).Playlists()

	for i := 0; i < 5; i++ {
		createTestPlaylist(t, p, "lister", fmt.Sprintf("mix %d", i))
	}
	createTestPlaylist(t, p, "someone-else", "not mine")

	list, err := p.ListByOwner(context.Background(), "lister", 3)
	if err != nil {
		t.Fatalf("ListByOwner() error = %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len = %d, want 3", len(list))
	}
	want := []string{"mix 4", "mix 3", "mix 2"}
	for i, pl := range list {
		if pl.Name != want[i] {
			t.Errorf("list[%d].Name = %q, want %q", i, pl.Name, want[i])
		}
		if pl.OwnerID != "lister" {
			t.Errorf("list[%d].OwnerID = %q", i, pl.OwnerID)
		}
	}
}

func TestPlaylistListByOwner_Empty(t *testing.T) {
	p := newTestDB(t).Playlists()

	list, err := p.ListByOwner(context.Background(), "nobody", 10)
	if err != nil {
		t.Fatalf("ListByOwner() error = %v", err)
	}
	if list == nil || len(list) != 0 {
		t.Errorf("ListByOwner() = %#v, want empty non-nil slice", list)
	}
}

func TestPlaylistSetSpotifyPlaylist(t *testing.T) {
	p := newTestDB(t).Playlists()
	pl := createTestPlaylist(t, p, "o", "pushed")

	err := p.SetSpotifyPlaylist(context.Background(), pl.ID, "sp-1", "https://open.spotify.com/playlist/sp-1")
	if err != nil {
		t.Fatalf("SetSpotifyPlaylist() error = %v", err)
	}

	found, err := p.GetByID(context.Background(), pl.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if found.SpotifyPlaylistID != "sp-1" {
		t.Errorf("SpotifyPlaylistID = %q, want sp-1", found.SpotifyPlaylistID)
	}

	err = p.SetSpotifyPlaylist(context.Background(), "missing", "sp-2", "")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("SetSpotifyPlaylist(missing) error = %v, want ErrNotFound", err)
	}
}

func TestPlaylistDelete(t *testing.T) {
	p := newTestDB(t).Playlists()
	pl := createTestPlaylist(t, p, "o", "doomed")

	if err := p.Delete(context.Background(), pl.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := p.GetByID(context.Background(), pl.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() after delete error = %v, want ErrNotFound", err)
	}
	if err := p.Delete(context.Background(), pl.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	db := newTestDB(t)
	createTestPlaylist(t, db.Playlists(), "o", "survivor")

	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate() second run error = %v", err)
	}
	n, err := db.Playlists().CountByOwner(context.Background(), "o")
	if err != nil {
		t.Fatalf("CountByOwner() error = %v", err)
	}
	if n != 1 {
		t.Errorf("CountByOwner() = %d after re-migrate, want 1", n)
	}
}

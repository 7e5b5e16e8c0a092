package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/ohmbajaj/Neurotune-Backend/internal/apperror"
	"github.com/ohmbajaj/Neurotune-Backend/internal/model"
)

// Each test gets its own ":memory:" database, closed by t.Cleanup.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, u *UserDB, username string) *model.User {
	t.Helper()
	user := &model.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "$2a$04$not-a-real-hash",
	}
	if err := u.Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestUserCreate(t *testing.T) {
	u := newTestDB(t).Users()

	user := &model.User{
		Username:     "testuser",
		Email:        "test@example.com",
		PasswordHash: "hash",
	}
	if err := u.Create(context.Background(), user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if user.ID == "" {
		t.Error("Create() did not set user.ID")
	}
	if user.CreatedAt.IsZero() {
		t.Error("Create() did not set user.CreatedAt")
	}
	if user.UpdatedAt.IsZero() {
		t.Error("Create() did not set user.UpdatedAt")
	}
}

func TestUserCreate_DuplicateEmail(t *testing.T) {
	u := newTestDB(t).Users()
	createTestUser(t, u, "first")

	err := u.Create(context.Background(), &model.User{
		Username:     "second",
		Email:        "first@example.com",
		PasswordHash: "hash",
	})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("Create() error = %v, want ErrConflict", err)
	}

	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Message != "user with that email already exists" {
		t.Errorf("Create() message = %v", err)
	}
}

func TestUserCreate_DuplicateUsername(t *testing.T) {
	u := newTestDB(t).Users()
	createTestUser(t, u, "taken")

	err := u.Create(context.Background(), &model.User{
		Username:     "taken",
		Email:        "other@example.com",
		PasswordHash: "hash",
	})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("Create() error = %v, want ErrConflict", err)
	}
}

// =========================================================================
// GET TESTS
// =========================================================================

func TestUserGetByID(t *testing.T) {
	u := newTestDB(t).Users()
	created := createTestUser(t, u, "getbyid_user")

	found, err := u.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if found.ID != created.ID {
		t.Errorf("ID = %q, want %q", found.ID, created.ID)
	}
	if found.Username != "getbyid_user" {
		t.Errorf("Username = %q, want %q", found.Username, "getbyid_user")
	}
	if found.PasswordHash != created.PasswordHash {
		t.Errorf("PasswordHash not persisted")
	}
	if found.HasSpotify() {
		t.Error("new user should not have Spotify connected")
	}
}

func TestUserGetByID_NotFound(t *testing.T) {
	u := newTestDB(t).Users()

	_, err := u.GetByID(context.Background(), "nonexistent-id")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestUserGetByEmail(t *testing.T) {
	u := newTestDB(t).Users()
	created := createTestUser(t, u, "mailer")

	found, err := u.GetByEmail(context.Background(), "mailer@example.com")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if found.ID != created.ID {
		t.Errorf("ID = %q, want %q", found.ID, created.ID)
	}

	_, err = u.GetByEmail(context.Background(), "nobody@example.com")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByEmail() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// UPDATE TESTS
// =========================================================================

func TestUserUpdate_Profile(t *testing.T) {
	u := newTestDB(t).Users()
	user := createTestUser(t, u, "before")

	user.Username = "after"
	user.Preferences = json.RawMessage(`{"favoriteGenres":["jazz"]}`)
	if err := u.Update(context.Background(), user); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	found, err := u.GetByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if found.Username != "after" {
		t.Errorf("Username = %q, want %q", found.Username, "after")
	}
	if string(found.Preferences) != `{"favoriteGenres":["jazz"]}` {
		t.Errorf("Preferences = %s", found.Preferences)
	}
}

func TestUserUpdate_NotFound(t *testing.T) {
	u := newTestDB(t).Users()

	err := u.Update(context.Background(), &model.User{ID: "ghost", Username: "x", Email: "x@example.com"})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
}

func TestUserSpotifyTokens(t *testing.T) {
	u := newTestDB(t).Users()
	user := createTestUser(t, u, "listener")
	ctx := context.Background()

	if err := u.UpdateSpotifyTokens(ctx, user.ID, "spotify-123", "access-1", "refresh-1"); err != nil {
		t.Fatalf("UpdateSpotifyTokens() error = %v", err)
	}
	if err := u.UpdateSpotifyAccessToken(ctx, user.ID, "access-2"); err != nil {
		t.Fatalf("UpdateSpotifyAccessToken() error = %v", err)
	}

	found, err := u.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if found.SpotifyID != "spotify-123" {
		t.Errorf("SpotifyID = %q", found.SpotifyID)
	}
	if found.SpotifyAccessToken != "access-2" {
		t.Errorf("SpotifyAccessToken = %q, want access-2", found.SpotifyAccessToken)
	}
	// A refresh must leave the refresh token alone.
	if found.SpotifyRefreshToken != "refresh-1" {
		t.Errorf("SpotifyRefreshToken = %q, want refresh-1", found.SpotifyRefreshToken)
	}
	if !found.HasSpotify() {
		t.Error("HasSpotify() = false after connecting")
	}
}

// =========================================================================
// DELETE TESTS
// =========================================================================

func TestUserDelete_RemovesPlaylists(t *testing.T) {
	db := newTestDB(t)
	u := db.Users()
	ctx := context.Background()

	owner := createTestUser(t, u, "leaving")
	other := createTestUser(t, u, "staying")
	createTestPlaylist(t, db.Playlists(), owner.ID, "mine")
	createTestPlaylist(t, db.Playlists(), other.ID, "theirs")

	if err := u.Delete(ctx, owner.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := u.GetByID(ctx, owner.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() after delete error = %v, want ErrNotFound", err)
	}
	n, err := db.Playlists().CountByOwner(ctx, owner.ID)
	if err != nil {
		t.Fatalf("CountByOwner() error = %v", err)
	}
	if n != 0 {
		t.Errorf("owner still has %d playlists", n)
	}
	n, _ = db.Playlists().CountByOwner(ctx, other.ID)
	if n != 1 {
		t.Errorf("other user has %d playlists, want 1", n)
	}
}

func TestUserDelete_NotFound(t *testing.T) {
	u := newTestDB(t).Users()

	if err := u.Delete(context.Background(), "ghost"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}
}

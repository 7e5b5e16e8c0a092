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

// compile-time check that *UserDB implements repository.UserRepository
var _ repository.UserRepository = (*UserDB)(nil)

// UserDB is the credential store.
type UserDB struct {
	conn *sql.DB
}

const userColumns = `id, username, email, password_hash, spotify_id,
	spotify_access_token, spotify_refresh_token, preferences, created_at, updated_at`

// Create inserts a new user. The caller must have hashed the password already.
// Duplicate usernames or emails are reported as apperror.ErrConflict.
func (u *UserDB) Create(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := u.conn.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, preferences, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		nullableJSON(user.Preferences),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		switch {
		case isUniqueViolation(err, "users.email"):
			return apperror.Conflict("user", "email")
		case isUniqueViolation(err, "users.username"):
			return apperror.Conflict("user", "username")
		}
		return fmt.Errorf("sqlite: inserting user %q: %w", user.Username, err)
	}

	return nil
}

// GetByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (u *UserDB) GetByID(ctx context.Context, id string) (*model.User, error) {
	row := u.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return user, nil
}

// GetByEmail retrieves a user by email (already normalised by the caller).
func (u *UserDB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	row := u.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}
	return user, nil
}

// Update writes the profile fields (username, email, preferences).
// Tokens have their own update methods so a profile edit can't clobber them.
func (u *UserDB) Update(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now().UTC()

	result, err := u.conn.ExecContext(ctx,
		`UPDATE users SET username = ?, email = ?, preferences = ?, updated_at = ?
		 WHERE id = ?`,
		user.Username,
		user.Email,
		nullableJSON(user.Preferences),
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		if isUniqueViolation(err, "users.email") {
			return apperror.Conflict("user", "email")
		}
		return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
	}
	return expectOneRow(result, "user", user.ID)
}

// UpdateSpotifyTokens stores the result of a completed OAuth callback.
func (u *UserDB) UpdateSpotifyTokens(ctx context.Context, id, spotifyID, accessToken, refreshToken string) error {
	result, err := u.conn.ExecContext(ctx,
		`UPDATE users
		 SET spotify_id = ?, spotify_access_token = ?, spotify_refresh_token = ?, updated_at = ?
		 WHERE id = ?`,
		spotifyID, accessToken, refreshToken, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: storing spotify tokens for user %s: %w", id, err)
	}
	return expectOneRow(result, "user", id)
}

// UpdateSpotifyAccessToken persists a refreshed access token.
func (u *UserDB) UpdateSpotifyAccessToken(ctx context.Context, id, accessToken string) error {
	result, err := u.conn.ExecContext(ctx,
		`UPDATE users SET spotify_access_token = ?, updated_at = ? WHERE id = ?`,
		accessToken, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: storing refreshed token for user %s: %w", id, err)
	}
	return expectOneRow(result, "user", id)
}

// Delete removes a user and their playlists in one transaction.
func (u *UserDB) Delete(ctx context.Context, id string) error {
	tx, err := u.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning delete of user %s: %w", id, err)
	}
	defer tx.Rollback() // no-op after Commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM playlists WHERE owner_id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: deleting playlists of user %s: %w", id, err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %s: %w", id, err)
	}
	if err := expectOneRow(result, "user", id); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing delete of user %s: %w", id, err)
	}
	return nil
}

func scanUser(row *sql.Row) (*model.User, error) {
	var (
		user        model.User
		preferences sql.NullString
	)
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.SpotifyID,
		&user.SpotifyAccessToken,
		&user.SpotifyRefreshToken,
		&preferences,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if preferences.Valid && preferences.String != "" {
		user.Preferences = json.RawMessage(preferences.String)
	}
	return &user, nil
}

func nullableJSON(raw json.RawMessage) sql.NullString {
	if len(raw) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(raw), Valid: true}
}

// expectOneRow turns "0 rows affected" into a NotFound error.
func expectOneRow(result sql.Result, resource, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}

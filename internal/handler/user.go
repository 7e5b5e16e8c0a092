package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ohmbajaj/Neurotune-Backend/internal/apperror"
	"github.com/ohmbajaj/Neurotune-Backend/internal/service"
)

// UserHandler serves account self-management.
type UserHandler struct {
	users        *service.UserService
	cookieSecure bool
	logger       *slog.Logger
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(users *service.UserService, cookieSecure bool, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, cookieSecure: cookieSecure, logger: logger}
}

// HandleUpdatePreferences replaces the caller's preferences with the body.
//
// HTTP: PUT /api/user/preferences
func (h *UserHandler) HandleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var prefs json.RawMessage
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		writeError(w, r, h.logger, apperror.ValidationFailed("preferences", "Invalid JSON body"))
		return
	}

	user, err := h.users.UpdatePreferences(r.Context(), id, prefs)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, user)
}

// HandleDeleteAccount deletes the caller together with their playlists and
// clears the session cookie.
//
// HTTP: DELETE /api/user
func (h *UserHandler) HandleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if err := h.users.DeleteAccount(r.Context(), id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	clearSessionCookie(w, h.cookieSecure)
	writeData(w, struct{}{})
}

package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ohmbajaj/Neurotune-Backend/internal/apperror"
	"github.com/ohmbajaj/Neurotune-Backend/internal/model"
	"github.com/ohmbajaj/Neurotune-Backend/internal/service"
)

// PlaylistHandler serves the caller's stored playlists.
type PlaylistHandler struct {
	playlists *service.PlaylistService
	logger    *slog.Logger
}

// NewPlaylistHandler creates a PlaylistHandler.
func NewPlaylistHandler(playlists *service.PlaylistService, logger *slog.Logger) *PlaylistHandler {
	return &PlaylistHandler{playlists: playlists, logger: logger}
}

type saveRequest struct {
	PlaylistID string        `json:"playlistId" validate:"required"`
	Name       string        `json:"name" validate:"max=100"`
	Tracks     []model.Track `json:"tracks" validate:"max=500"`
}

// HandleList returns the caller's newest playlists.
//
// HTTP: GET /api/playlists?limit=10
func (h *PlaylistHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			writeError(w, r, h.logger, apperror.ValidationFailed("limit", "limit must be a positive integer"))
			return
		}
	}

	playlists, err := h.playlists.List(r.Context(), id, limit)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	count := len(playlists)
	writeJSON(w, http.StatusOK, Response{Success: true, Data: playlists, Count: &count})
}

// HandleGet returns one of the caller's playlists.
//
// HTTP: GET /api/playlists/{id}
func (h *PlaylistHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	playlist, err := h.playlists.Get(r.Context(), id, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, playlist)
}

// HandleDelete removes one of the caller's playlists.
//
// HTTP: DELETE /api/playlists/{id}
func (h *PlaylistHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if err := h.playlists.Delete(r.Context(), id, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, struct{}{})
}

// HandleSave pushes a stored playlist to the caller's Spotify account.
//
// HTTP: POST /api/playlists/save
// BODY: {"playlistId": "...", "name": "optional", "tracks": [optional]}
func (h *PlaylistHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var req saveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	res, err := h.playlists.Save(r.Context(), id, service.SaveRequest{
		PlaylistID: req.PlaylistID,
		Name:       req.Name,
		Tracks:     req.Tracks,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, res)
}

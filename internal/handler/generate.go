package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ohmbajaj/Neurotune-Backend/internal/apperror"
	"github.com/ohmbajaj/Neurotune-Backend/internal/service"
)

// GenerateHandler serves playlist generation and the public genre listings.
type GenerateHandler struct {
	generator *service.GeneratorService
	genres    *service.GenreService
	logger    *slog.Logger
}

// NewGenerateHandler creates a GenerateHandler.
func NewGenerateHandler(generator *service.GeneratorService, genres *service.GenreService, logger *slog.Logger) *GenerateHandler {
	return &GenerateHandler{generator: generator, genres: genres, logger: logger}
}

type artistRequest struct {
	Artists      []string `json:"artists" validate:"required,min=1,max=10,dive,required,max=100"`
	Energy       *int     `json:"energy" validate:"omitempty,min=0,max=100"`
	Danceability *int     `json:"danceability" validate:"omitempty,min=0,max=100"`
}

type moodRequest struct {
	Theme          string   `json:"theme" validate:"required,max=100"`
	IncludeArtists []string `json:"includeArtists" validate:"max=10,dive,required,max=100"`
	ExcludeArtists []string `json:"excludeArtists" validate:"max=20,dive,required,max=100"`
	CustomPrompt   string   `json:"customPrompt" validate:"max=500"`
	Decades        []string `json:"decades" validate:"max=10,dive,required,max=5"`
	Energy         *int     `json:"energy" validate:"omitempty,min=0,max=100"`
	Popularity     *int     `json:"popularity" validate:"omitempty,min=0,max=100"`
}

// HandleArtist generates a playlist similar to the given artists.
//
// HTTP: POST /api/generate/artist
// BODY: {"artists": ["Artist A"], "energy": 70, "danceability": 50}
func (h *GenerateHandler) HandleArtist(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var req artistRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	playlist, err := h.generator.GenerateArtist(r.Context(), id, service.ArtistRequest{
		Artists:      trimAll(req.Artists),
		Energy:       req.Energy,
		Danceability: req.Danceability,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, playlist)
}

// HandleMood generates a playlist for a theme.
//
// HTTP: POST /api/generate/mood
func (h *GenerateHandler) HandleMood(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var req moodRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	playlist, err := h.generator.GenerateMood(r.Context(), id, service.MoodRequest{
		Theme:          strings.TrimSpace(req.Theme),
		IncludeArtists: trimAll(req.IncludeArtists),
		ExcludeArtists: trimAll(req.ExcludeArtists),
		CustomPrompt:   strings.TrimSpace(req.CustomPrompt),
		Decades:        trimAll(req.Decades),
		Energy:         req.Energy,
		Popularity:     req.Popularity,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, playlist)
}

// HandleGenres lists the featured genres.
//
// HTTP: GET /api/generate/genres
func (h *GenerateHandler) HandleGenres(w http.ResponseWriter, r *http.Request) {
	index := h.genres.Index()
	count := len(index)
	writeJSON(w, http.StatusOK, Response{Success: true, Data: index, Count: &count})
}

// HandleGenre returns the track listing of one genre.
//
// HTTP: GET /api/generate/genres/{genre}
func (h *GenerateHandler) HandleGenre(w http.ResponseWriter, r *http.Request) {
	genre := strings.TrimSpace(chi.URLParam(r, "genre"))
	if genre == "" || len(genre) > 50 {
		writeError(w, r, h.logger, apperror.ValidationFailed("genre", "Please provide a genre"))
		return
	}
	writeData(w, h.genres.Playlist(genre))
}

func trimAll(items []string) []string {
	if items == nil {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}

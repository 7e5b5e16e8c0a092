package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/ohmbajaj/Neurotune-Backend/internal/apperror"
	"github.com/ohmbajaj/Neurotune-Backend/internal/generation"
	"github.com/ohmbajaj/Neurotune-Backend/internal/model"
	"github.com/ohmbajaj/Neurotune-Backend/internal/repository"
	"github.com/ohmbajaj/Neurotune-Backend/internal/spotify"
)

const (
	// FallbackSeedArtist seeds recommendations when no requested artist
	// could be found on Spotify.
	FallbackSeedArtist = "4gzpq5DPGxSnKTe4SA8HAU"

	recommendationLimit = 40
	mockTrackCount      = 30
	defaultPercent      = 50

	MaxPlaylistNameLength        = 50
	MaxPlaylistDescriptionLength = 200
)

// Completer produces free text for a prompt (*generation.Client).
type Completer interface {
	Enabled() bool
	Complete(ctx context.Context, prompt string) (string, error)
}

// GeneratorService builds playlists from Spotify recommendations.
type GeneratorService struct {
	users     repository.UserRepository
	playlists repository.PlaylistRepository
	music     *MusicSession
	completer Completer
	logger    *slog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewGeneratorService creates a GeneratorService. completer may be nil.
func NewGeneratorService(
	users repository.UserRepository,
	playlists repository.PlaylistRepository,
	music *MusicSession,
	completer Completer,
	rng *rand.Rand,
	logger *slog.Logger,
) *GeneratorService {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &GeneratorService{
		users:     users,
		playlists: playlists,
		music:     music,
		completer: completer,
		rng:       rng,
		logger:    logger,
	}
}

// ArtistRequest asks for a playlist similar to Artists.
type ArtistRequest struct {
	Artists      []string
	Energy       *int
	Danceability *int
}

// MoodRequest asks for a playlist matching Theme.
type MoodRequest struct {
	Theme          string
	IncludeArtists []string
	ExcludeArtists []string
	CustomPrompt   string
	Decades        []string
	Energy         *int
	Popularity     *int
}

// GenerateArtist builds and stores an artist-similarity playlist.
func (s *GeneratorService) GenerateArtist(ctx context.Context, userID string, req ArtistRequest) (*model.Playlist, error) {
	if len(req.Artists) == 0 || strings.TrimSpace(req.Artists[0]) == "" {
		return nil, apperror.ValidationFailed("artists", "Please provide at least one artist")
	}

	user, err := s.spotifyUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	energy := percentOr(req.Energy, defaultPercent)
	danceability := percentOr(req.Danceability, defaultPercent)

	names := append([]string{}, req.Artists...)
	suggested := s.suggestArtists(ctx, generation.ArtistPrompt(req.Artists, energy, danceability))
	names = append(names, suggested...)

	raw, err := s.recommend(ctx, user, names, float64(energy)/100, float64(danceability)/100)
	if err != nil {
		return nil, err
	}

	playlist := &model.Playlist{
		Name:        truncate(req.Artists[0]+" Inspired Mix", MaxPlaylistNameLength),
		Description: truncate("Inspired by "+strings.Join(req.Artists, ", "), MaxPlaylistDescriptionLength),
		Type:        model.PlaylistTypeArtist,
		Tracks:      raw,
		OwnerID:     user.ID,
		Parameters: model.Parameters{
			Artists:      req.Artists,
			Energy:       &energy,
			Danceability: &danceability,
		},
	}
	return s.store(ctx, playlist)
}

// GenerateMood builds and stores a theme playlist.
func (s *GeneratorService) GenerateMood(ctx context.Context, userID string, req MoodRequest) (*model.Playlist, error) {
	if strings.TrimSpace(req.Theme) == "" {
		return nil, apperror.ValidationFailed("theme", "Please provide a theme")
	}

	user, err := s.spotifyUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	energy := percentOr(req.Energy, defaultPercent)
	popularity := percentOr(req.Popularity, defaultPercent)

	names := append([]string{}, req.IncludeArtists...)
	if len(names) == 0 {
		names = s.suggestArtists(ctx, generation.MoodPrompt(generation.MoodInput{
			Theme:          req.Theme,
			IncludeArtists: req.IncludeArtists,
			ExcludeArtists: req.ExcludeArtists,
			CustomPrompt:   req.CustomPrompt,
			Decades:        req.Decades,
			Energy:         energy,
			Popularity:     popularity,
		}))
		names = withoutExcluded(names, req.ExcludeArtists)
	}

	// Popularity steers danceability: /recommendations has no popularity
	// target that works with artist seeds.
	tracks, err := s.recommendFiltered(ctx, user, names, float64(energy)/100, float64(popularity)/100, req.Decades, req.ExcludeArtists)
	if err != nil {
		return nil, err
	}

	playlist := &model.Playlist{
		Name:        truncate(strings.TrimSpace(req.Theme)+" Mix", MaxPlaylistNameLength),
		Description: truncate(moodDescription(req), MaxPlaylistDescriptionLength),
		Type:        model.PlaylistTypeMood,
		Tracks:      tracks,
		OwnerID:     user.ID,
		Parameters: model.Parameters{
			Theme:          req.Theme,
			IncludeArtists: req.IncludeArtists,
			ExcludeArtists: req.ExcludeArtists,
			CustomPrompt:   req.CustomPrompt,
			Decades:        req.Decades,
			Energy:         &energy,
			Popularity:     &popularity,
		},
	}
	return s.store(ctx, playlist)
}

func (s *GeneratorService) spotifyUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthenticated("User no longer exists")
		}
		return nil, fmt.Errorf("service/generate: loading user %s: %w", userID, err)
	}
	if !user.HasSpotify() {
		return nil, apperror.Unauthenticated("Please connect your Spotify account first")
	}
	return user, nil
}

// suggestArtists asks the completer for artists to seed with. Suggestions
// are optional: any failure is logged and yields none.
func (s *GeneratorService) suggestArtists(ctx context.Context, prompt string) []string {
	if s.completer == nil || !s.completer.Enabled() {
		return nil
	}

	text, err := s.completer.Complete(ctx, prompt)
	if err != nil {
		s.logger.Warn("artist suggestions unavailable", slog.Any("error", err))
		return nil
	}
	return generation.Artists(generation.ParseSuggestions(text), spotify.MaxSeeds)
}

// resolveSeeds turns artist names into Spotify IDs, stopping once MaxSeeds
// are found. Names Spotify doesn't know are skipped. A name whose search
// fails upstream for a non-auth reason is skipped too; anything else aborts.
func (s *GeneratorService) resolveSeeds(ctx context.Context, user *model.User, names []string) ([]string, error) {
	seeds := make([]string, 0, spotify.MaxSeeds)
	seen := make(map[string]bool)

	for _, name := range names {
		if len(seeds) == spotify.MaxSeeds {
			break
		}
		name = strings.TrimSpace(name)
		if name == "" || seen[strings.ToLower(name)] {
			continue
		}
		seen[strings.ToLower(name)] = true

		id, found, err := s.music.SearchArtist(ctx, user, name)
		if err != nil {
			if isAuthFailure(err) || ctx.Err() != nil || !errors.Is(err, apperror.ErrUpstream) {
				return nil, err
			}
			s.logger.Warn("artist search failed", slog.String("artist", name), slog.Any("error", err))
			continue
		}
		if found {
			seeds = append(seeds, id)
		}
	}

	if len(seeds) == 0 {
		seeds = append(seeds, FallbackSeedArtist)
	}
	return seeds, nil
}

func (s *GeneratorService) recommend(ctx context.Context, user *model.User, names []string, energy, danceability float64) ([]model.Track, error) {
	return s.recommendFiltered(ctx, user, names, energy, danceability, nil, nil)
}

// recommendFiltered fetches recommendations and normalises them. A non-auth
// failure of the recommendation call falls back to placeholder tracks.
func (s *GeneratorService) recommendFiltered(
	ctx context.Context,
	user *model.User,
	names []string,
	energy, danceability float64,
	decades, excluded []string,
) ([]model.Track, error) {
	seeds, err := s.resolveSeeds(ctx, user, names)
	if err != nil {
		return nil, err
	}

	raw, err := s.music.Recommendations(ctx, user, spotify.RecommendationParams{
		SeedArtists:        seeds,
		TargetEnergy:       &energy,
		TargetDanceability: &danceability,
		Limit:              recommendationLimit,
	})
	if err != nil {
		if isAuthFailure(err) || ctx.Err() != nil || !errors.Is(err, apperror.ErrUpstream) {
			return nil, err
		}
		s.logger.Warn("recommendations unavailable, using placeholder tracks", slog.Any("error", err))
		return s.withRNG(func(r *rand.Rand) []model.Track { return spotify.MockTracks(mockTrackCount, r) }), nil
	}

	raw = spotify.FilterByDecade(raw, decades)
	raw = withoutArtists(raw, excluded)
	return s.withRNG(func(r *rand.Rand) []model.Track { return spotify.NormalizeTracks(raw, r) }), nil
}

func (s *GeneratorService) store(ctx context.Context, playlist *model.Playlist) (*model.Playlist, error) {
	if err := s.playlists.Create(ctx, playlist); err != nil {
		if errors.Is(err, apperror.ErrQuotaExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("service/generate: storing playlist: %w", err)
	}

	s.logger.Info("playlist generated",
		slog.String("playlistID", playlist.ID),
		slog.String("type", string(playlist.Type)),
		slog.Int("tracks", len(playlist.Tracks)),
	)
	return playlist, nil
}

// withRNG serialises access to the shared *rand.Rand, which isn't safe for
// concurrent use.
func (s *GeneratorService) withRNG(f func(*rand.Rand) []model.Track) []model.Track {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return f(s.rng)
}

// withoutArtists drops tracks credited to any excluded artist.
func withoutArtists(tracks []spotify.RawTrack, excluded []string) []spotify.RawTrack {
	if len(excluded) == 0 {
		return tracks
	}
	banned := lowerSet(excluded)

	kept := make([]spotify.RawTrack, 0, len(tracks))
next:
	for _, t := range tracks {
		for _, a := range t.Artists {
			if banned[strings.ToLower(strings.TrimSpace(a.Name))] {
				continue next
			}
		}
		kept = append(kept, t)
	}
	return kept
}

func withoutExcluded(names, excluded []string) []string {
	if len(excluded) == 0 {
		return names
	}
	banned := lowerSet(excluded)
	var kept []string
	for _, n := range names {
		if !banned[strings.ToLower(strings.TrimSpace(n))] {
			kept = append(kept, n)
		}
	}
	return kept
}

func lowerSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, it := range items {
		set[strings.ToLower(strings.TrimSpace(it))] = true
	}
	return set
}

func moodDescription(req MoodRequest) string {
	if p := strings.TrimSpace(req.CustomPrompt); p != "" {
		return p
	}
	return "A " + strings.TrimSpace(req.Theme) + " playlist"
}

func percentOr(v *int, fallback int) int {
	if v == nil {
		return fallback
	}
	return *v
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:n]))
}

package service

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ohmbajaj/Neurotune-Backend/internal/model"
)

// Cache lifetimes of the genre listings.
const (
	GenreIndexTTL    = 86400 * time.Second
	GenrePlaylistTTL = 43200 * time.Second

	genreIndexKey    = "genres"
	genreTrackCount  = 30
	genreImageFormat = "https://source.unsplash.com/random/300x300/?%s,%s"
)

// Genres are the featured genres of the public index.
var Genres = []string{
	"Electronic", "Rock", "Hip Hop", "Pop", "Jazz",
	"Classical", "R&B", "Country", "Metal",
}

// Cache is the key/value store the genre listings are kept in
// (*cache.Memory).
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any, ttl time.Duration)
}

// GenreService serves the public genre listings. They are placeholders, so
// they are computed once per TTL and cached.
type GenreService struct {
	cache  Cache
	logger *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenreService creates a GenreService. rng may be nil.
func NewGenreService(cache Cache, rng *rand.Rand, logger *slog.Logger) *GenreService {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &GenreService{cache: cache, rng: rng, logger: logger}
}

// Index returns one summary card per featured genre.
func (s *GenreService) Index() []model.GenreSummary {
	if v, ok := s.cache.Get(genreIndexKey); ok {
		if index, ok := v.([]model.GenreSummary); ok {
			return index
		}
	}

	s.mu.Lock()
	index := make([]model.GenreSummary, 0, len(Genres))
	for _, g := range Genres {
		index = append(index, model.GenreSummary{
			Genre:       g,
			Description: "Top " + g + " tracks",
			TracksCount: 50 + s.rng.IntN(100),
			LikesCount:  500 + s.rng.IntN(2000),
			Image:       fmt.Sprintf(genreImageFormat, url.QueryEscape(strings.ToLower(g)), "music"),
		})
	}
	s.mu.Unlock()

	s.cache.Set(genreIndexKey, index, GenreIndexTTL)
	s.logger.Debug("genre index rebuilt", slog.Int("genres", len(index)))
	return index
}

// Playlist returns the track listing of genre. Any genre name is accepted;
// lookups are case-insensitive and the listing carries the display name, so
// "ROCK" and "rock" both come back as "Rock".
func (s *GenreService) Playlist(genre string) model.GenrePlaylist {
	genre = displayGenre(genre)
	key := "genre_" + strings.ToLower(genre)

	if v, ok := s.cache.Get(key); ok {
		if p, ok := v.(model.GenrePlaylist); ok {
			return p
		}
	}

	image := fmt.Sprintf(genreImageFormat, url.QueryEscape(strings.ToLower(genre)), "album")

	s.mu.Lock()
	tracks := make([]model.Track, 0, genreTrackCount)
	for i := 0; i < genreTrackCount; i++ {
		tracks = append(tracks, model.Track{
			ID:           fmt.Sprintf("mock_track_%s_%d", genre, i),
			Name:         fmt.Sprintf("%s Track %d", genre, i+1),
			Artist:       fmt.Sprintf("%s Artist %d", genre, i+1),
			Album:        fmt.Sprintf("%s Album %d", genre, i+1),
			Image:        image,
			SpotifyURL:   fmt.Sprintf("https://open.spotify.com/track/mock_%s_%d", url.PathEscape(genre), i),
			DurationMS:   120000 + s.rng.IntN(300000),
			Popularity:   s.rng.IntN(100),
			Danceability: s.rng.Float64(),
			Energy:       s.rng.Float64(),
			Valence:      s.rng.Float64(),
		})
	}
	s.mu.Unlock()

	p := model.GenrePlaylist{Genre: genre, Tracks: tracks}
	s.cache.Set(key, p, GenrePlaylistTTL)
	return p
}

var genreTitle = cases.Title(language.English)

// displayGenre returns the featured spelling of name, or name in title case
// when it isn't featured.
func displayGenre(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	for _, g := range Genres {
		if strings.EqualFold(g, name) {
			return g
		}
	}
	return genreTitle.String(name)
}

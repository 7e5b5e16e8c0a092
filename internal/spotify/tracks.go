package spotify

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/ohmbajaj/Neurotune-Backend/internal/model"
)

// FilterByDecade keeps tracks released in any of decades. A decade token is
// its first year, with or without a trailing "s" ("1980", "1980s").
//
// No decades (or none parseable) means no filtering. Once filtering applies,
// tracks whose release year can't be read are dropped.
func FilterByDecade(tracks []RawTrack, decades []string) []RawTrack {
	starts := make([]int, 0, len(decades))
	for _, d := range decades {
		d = strings.TrimSuffix(strings.TrimSpace(d), "s")
		if start, err := strconv.Atoi(d); err == nil {
			starts = append(starts, start)
		}
	}
	if len(starts) == 0 {
		return tracks
	}

	kept := make([]RawTrack, 0, len(tracks))
	for _, t := range tracks {
		year, ok := releaseYear(t.Album.ReleaseDate)
		if !ok {
			continue
		}
		for _, start := range starts {
			if year >= start && year < start+10 {
				kept = append(kept, t)
				break
			}
		}
	}
	return kept
}

// releaseYear reads the year of a "YYYY", "YYYY-MM" or "YYYY-MM-DD" date.
func releaseYear(date string) (int, bool) {
	if len(date) < 4 {
		return 0, false
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0, false
	}
	return year, true
}

// NormalizeTrack maps an API track onto the stored shape. Audio features the
// API didn't supply are drawn uniformly from [0,1) using rng.
func NormalizeTrack(raw RawTrack, rng *rand.Rand) model.Track {
	names := make([]string, 0, len(raw.Artists))
	for _, a := range raw.Artists {
		names = append(names, a.Name)
	}

	var image string
	if len(raw.Album.Images) > 0 {
		image = raw.Album.Images[0].URL
	}

	return model.Track{
		ID:           raw.ID,
		Name:         raw.Name,
		Artist:       strings.Join(names, ", "),
		Album:        raw.Album.Name,
		Image:        image,
		PreviewURL:   raw.PreviewURL,
		SpotifyURL:   raw.ExternalURLs.Spotify,
		DurationMS:   raw.DurationMS,
		Popularity:   raw.Popularity,
		Danceability: featureOrRandom(raw.Danceability, rng),
		Energy:       featureOrRandom(raw.Energy, rng),
		Valence:      featureOrRandom(raw.Valence, rng),
	}
}

// NormalizeTracks applies NormalizeTrack to every track, keeping order.
func NormalizeTracks(raw []RawTrack, rng *rand.Rand) []model.Track {
	tracks := make([]model.Track, 0, len(raw))
	for _, r := range raw {
		tracks = append(tracks, NormalizeTrack(r, rng))
	}
	return tracks
}

// MockTracks builds n placeholder tracks for when recommendations are
// unavailable.
func MockTracks(n int, rng *rand.Rand) []model.Track {
	tracks := make([]model.Track, 0, n)
	for i := 0; i < n; i++ {
		tracks = append(tracks, model.Track{
			ID:           fmt.Sprintf("mock_track_%d", i),
			Name:         fmt.Sprintf("Recommended Track %d", i+1),
			Artist:       fmt.Sprintf("Recommended Artist %d", i+1),
			Album:        fmt.Sprintf("Recommended Album %d", i+1),
			Image:        "https://source.unsplash.com/random/300x300/?music,album",
			SpotifyURL:   fmt.Sprintf("https://open.spotify.com/track/mock_%d", i),
			DurationMS:   120000 + rng.IntN(300000),
			Popularity:   rng.IntN(100),
			Danceability: rng.Float64(),
			Energy:       rng.Float64(),
			Valence:      rng.Float64(),
		})
	}
	return tracks
}

func featureOrRandom(v *float64, rng *rand.Rand) float64 {
	if v != nil {
		return *v
	}
	return rng.Float64()
}

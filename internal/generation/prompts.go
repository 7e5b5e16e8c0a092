package generation

import (
	"fmt"
	"strings"
)

const suggestionFormat = `Answer with a JSON array only, no prose: [{"name": "Song", "artist": "Artist"}]`

// ArtistPrompt asks for songs similar to artists. energy and danceability
// are percentages.
func ArtistPrompt(artists []string, energy, danceability int) string {
	return fmt.Sprintf(
		"Suggest 35 songs for a Spotify playlist similar to %s.\n"+
			"Energy level: %d/100. Danceability: %d/100.\n%s",
		strings.Join(artists, ", "), energy, danceability, suggestionFormat,
	)
}

// MoodInput is the mood-mode request as the prompt needs it.
type MoodInput struct {
	Theme          string
	IncludeArtists []string
	ExcludeArtists []string
	CustomPrompt   string
	Decades        []string
	Energy         int
	Popularity     int
}

// MoodPrompt asks for songs matching a theme.
func MoodPrompt(in MoodInput) string {
	return fmt.Sprintf(
		"Suggest 40 songs for a Spotify playlist matching the theme %q.\n"+
			"Include artists: %s. Exclude: %s.\n"+
			"Decades: %s. Energy: %d/100. Popularity: %d/100.\n"+
			"Additional notes: %s.\n%s",
		in.Theme,
		listOr(in.IncludeArtists, "none"),
		listOr(in.ExcludeArtists, "none"),
		listOr(in.Decades, "any"),
		in.Energy,
		in.Popularity,
		orDefault(in.CustomPrompt, "none"),
		suggestionFormat,
	)
}

func listOr(items []string, fallback string) string {
	if len(items) == 0 {
		return fallback
	}
	return strings.Join(items, ", ")
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

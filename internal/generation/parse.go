package generation

import (
	"encoding/json"
	"strings"
)

// Suggestion is one song proposed by the model.
type Suggestion struct {
	Name   string `json:"name"`
	Artist string `json:"artist"`
}

// ParseSuggestions pulls the first JSON array of suggestions out of a
// completion. Models like to wrap JSON in prose or code fences, so every '['
// is tried as a start until one decodes. Entries without an artist are
// dropped. Returns nil when nothing usable is found.
func ParseSuggestions(text string) []Suggestion {
	for i := 0; i < len(text); i++ {
		if text[i] != '[' {
			continue
		}

		var raw []Suggestion
		dec := json.NewDecoder(strings.NewReader(text[i:]))
		if err := dec.Decode(&raw); err != nil {
			continue
		}

		out := make([]Suggestion, 0, len(raw))
		for _, s := range raw {
			s.Name = strings.TrimSpace(s.Name)
			s.Artist = strings.TrimSpace(s.Artist)
			if s.Artist != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// Artists returns the distinct artists of suggestions in first-seen order,
// compared case-insensitively, capped at limit (0 means no cap).
func Artists(suggestions []Suggestion, limit int) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range suggestions {
		key := strings.ToLower(s.Artist)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s.Artist)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

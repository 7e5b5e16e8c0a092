package model

// GenreSummary is one card of the public genre index.
type GenreSummary struct {
	Genre       string `json:"genre"`
	Description string `json:"description"`
	TracksCount int    `json:"tracks_count"`
	LikesCount  int    `json:"likes_count"`
	Image       string `json:"image"`
}

// GenrePlaylist is the public track listing of a single genre.
type GenrePlaylist struct {
	Genre  string  `json:"genre"`
	Tracks []Track `json:"tracks"`
}

package spotify

// AlbumSummary is the catalog metadata returned for album search results.
type AlbumSummary struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Artists     []string `json:"artists"`
	ImageURL    string   `json:"imageUrl"`
	ReleaseDate string   `json:"releaseDate"`
}

// AlbumTrack is one track on an album.
type AlbumTrack struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	TrackNumber int      `json:"trackNumber"`
	DurationMs  int      `json:"durationMs"`
	Artists     []string `json:"artists"`
}

// Album is a full album with its track listing.
type Album struct {
	AlbumSummary
	Tracks []AlbumTrack `json:"tracks"`
}

// TrackMatch is the best catalog match for a (title, artist) pair.
type TrackMatch struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Artist    string `json:"artist"`
	AlbumID   string `json:"albumId"`
	AlbumName string `json:"albumName"`
	ImageURL  string `json:"imageUrl"`
}
